package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const greetManifest = `
version: "0.1.0"
namespace: demo
operators:
  - name: Greet
    image: alpine:3
    env:
      LC_ALL: C
    commands:
      - "sh /code/greet.sh $greeting"
    parameters:
      - name: greeting
        type: str
        default: Hello
    files:
      inputs:
        - src: "context::names"
          type: txt
          dst: "data/names.txt"
      outputs:
        - src: "results/greetings.txt"
          type: txt
          dst:
            - "rundir::greetings.txt"
            - "context::greetings"
`

func TestParseManifest(t *testing.T) {
	manifest, err := ParseManifest([]byte(greetManifest))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}

	if manifest.Version != "0.1.0" {
		t.Errorf("version = %q", manifest.Version)
	}
	if manifest.OpID("Greet") != "demo.Greet" {
		t.Errorf("op id = %q, want namespace prefix", manifest.OpID("Greet"))
	}
	if len(manifest.Operators) != 1 {
		t.Fatalf("operators = %d", len(manifest.Operators))
	}

	op := manifest.Operators[0]
	if op.Image != "alpine:3" {
		t.Errorf("image = %q", op.Image)
	}
	if len(op.Parameters) != 1 || op.Parameters[0].Default != "Hello" {
		t.Errorf("parameters = %+v", op.Parameters)
	}
	if len(op.Files.Inputs) != 1 || op.Files.Inputs[0].Src != "context::names" {
		t.Errorf("inputs = %+v", op.Files.Inputs)
	}
	if len(op.Files.Outputs) != 1 || len(op.Files.Outputs[0].Dst) != 2 {
		t.Errorf("outputs = %+v", op.Files.Outputs)
	}
}

func TestParseManifestDefaultsOutputLabel(t *testing.T) {
	doc := "operators:\n" +
		"  - name: X\n" +
		"    image: alpine:3\n" +
		"    commands: [\"ls\"]\n" +
		"    files:\n" +
		"      outputs:\n" +
		"        - src: results/report.txt\n"

	manifest, err := ParseManifest([]byte(doc))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}

	dst := manifest.Operators[0].Files.Outputs[0].Dst
	if len(dst) != 1 || dst[0] != "context::results/report.txt" {
		t.Errorf("dst = %v, output without destinations must default to its src label", dst)
	}
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "no operators", doc: "version: \"1\"\n"},
		{name: "operator without image", doc: "operators:\n  - name: X\n    commands: [\"ls\"]\n"},
		{name: "operator without commands", doc: "operators:\n  - name: X\n    image: alpine:3\n"},
		{name: "bad parameter type", doc: "operators:\n  - name: X\n    image: alpine:3\n    commands: [\"ls\"]\n    parameters:\n      - name: p\n        type: bool\n"},
		{name: "not yaml", doc: ":::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tt.doc)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestVolatileRegistrySemantics(t *testing.T) {
	ctx := context.Background()
	registry := NewVolatileRegistry()

	spec := &OperatorSpec{Name: "Greet", Image: "alpine:3", Commands: []string{"ls"}}

	if _, err := registry.GetOp(ctx, "demo.Greet"); !errors.Is(err, ErrOpNotFound) {
		t.Fatalf("expected ErrOpNotFound, got %v", err)
	}

	if err := registry.PutOp(ctx, "demo.Greet", "0.1.0", spec, false); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := registry.GetOp(ctx, "demo.Greet")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Image != "alpine:3" {
		t.Errorf("image = %q", got.Image)
	}

	// Повторная регистрация без replace отклоняется.
	if err := registry.PutOp(ctx, "demo.Greet", "0.1.0", spec, false); !errors.Is(err, ErrOpExists) {
		t.Fatalf("expected ErrOpExists, got %v", err)
	}

	// С replace запись перезаписывается.
	updated := &OperatorSpec{Name: "Greet", Image: "alpine:3.20", Commands: []string{"ls"}}
	if err := registry.PutOp(ctx, "demo.Greet", "0.2.0", updated, true); err != nil {
		t.Fatalf("put replace: %v", err)
	}
	got, _ = registry.GetOp(ctx, "demo.Greet")
	if got.Image != "alpine:3.20" {
		t.Errorf("image after replace = %q", got.Image)
	}

	ops, err := registry.ListOps(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ops) != 1 || ops[0].ID != "demo.Greet" {
		t.Errorf("list = %+v", ops)
	}
}

func writeSourceTree(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultSpecfile), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

func TestRegisterFromLocalSource(t *testing.T) {
	ctx := context.Background()
	dir := writeSourceTree(t, greetManifest)

	registry := NewVolatileRegistry()
	registrar := NewRegistrar(registry, LocalSource{}, nil)

	ids, err := registrar.Register(ctx, dir, "", false)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(ids) != 1 || ids[0] != "demo.Greet" {
		t.Fatalf("registered ids = %v", ids)
	}

	if _, err := registry.GetOp(ctx, "demo.Greet"); err != nil {
		t.Errorf("registered operator not found: %v", err)
	}

	// Повторная регистрация того же дерева детерминирована:
	// идентификаторы совпадают, без replace второй заход отклоняется.
	if _, err := registrar.Register(ctx, dir, "", false); !errors.Is(err, ErrOpExists) {
		t.Errorf("expected ErrOpExists, got %v", err)
	}
	ids, err = registrar.Register(ctx, dir, "", true)
	if err != nil {
		t.Fatalf("register with replace: %v", err)
	}
	if len(ids) != 1 || ids[0] != "demo.Greet" {
		t.Errorf("re-registered ids = %v", ids)
	}
}

func TestRegistryFromSource(t *testing.T) {
	dir := writeSourceTree(t, greetManifest)

	registry, err := NewVolatileRegistryFromSource(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("registry from source: %v", err)
	}
	if _, err := registry.GetOp(context.Background(), "demo.Greet"); err != nil {
		t.Errorf("operator not registered at init: %v", err)
	}
}

func TestLocalSourceRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, _, err := (LocalSource{}).Fetch(context.Background(), file); err == nil {
		t.Error("expected error for non-directory source")
	}
}
