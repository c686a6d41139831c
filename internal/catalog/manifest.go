package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// DefaultSpecfile — имя файла манифеста по умолчанию в дереве исходников.
const DefaultSpecfile = "scena.yaml"

//go:embed manifest.schema.yaml
var manifestSchemaYAML []byte

var (
	manifestSchemaOnce sync.Once
	manifestSchema     *jsonschema.Schema
	manifestSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		var doc any
		if err := yaml.Unmarshal(manifestSchemaYAML, &doc); err != nil {
			manifestSchemaErr = fmt.Errorf("parse manifest schema: %w", err)
			return
		}
		jsonDoc, err := json.Marshal(doc)
		if err != nil {
			manifestSchemaErr = fmt.Errorf("marshal manifest schema: %w", err)
			return
		}
		manifestSchema, manifestSchemaErr = jsonschema.CompileString("manifest.schema.json", string(jsonDoc))
	})
	return manifestSchema, manifestSchemaErr
}

// ParseManifest разбирает и валидирует YAML-манифест операторов.
func ParseManifest(data []byte) (*Manifest, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	// Валидатор ожидает значения в представлении encoding/json,
	// поэтому документ прогоняется через JSON перед проверкой.
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	var instance any
	if err := json.Unmarshal(jsonDoc, &instance); err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	// Выход без назначений публикуется в контексте под меткой,
	// совпадающей с src.
	for i := range manifest.Operators {
		outputs := manifest.Operators[i].Files.Outputs
		for j := range outputs {
			if len(outputs[j].Dst) == 0 {
				outputs[j].Dst = []string{"context::" + outputs[j].Src}
			}
		}
	}
	return &manifest, nil
}

// LoadManifest читает и разбирает манифест из дерева исходников.
// Пустой specfile означает DefaultSpecfile.
func LoadManifest(sourceDir, specfile string) (*Manifest, error) {
	if specfile == "" {
		specfile = DefaultSpecfile
	}
	data, err := os.ReadFile(filepath.Join(sourceDir, specfile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}
