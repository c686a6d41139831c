package catalog

import (
	"context"
	"fmt"

	"github.com/shaiso/Scena/internal/telemetry"
)

// RegisteredOp — пара идентификатор/спецификация при перечислении каталога.
type RegisteredOp struct {
	ID   string
	Spec *OperatorSpec
}

// Registry — каталог спецификаций операторов.
//
// Два варианта разделяют один контракт: PersistentRegistry поверх базы
// данных и VolatileRegistry в памяти процесса.
type Registry interface {
	// GetOp возвращает спецификацию оператора по идентификатору.
	// Возвращает ErrOpNotFound, если идентификатор не зарегистрирован.
	GetOp(ctx context.Context, identifier string) (*OperatorSpec, error)

	// PutOp регистрирует спецификацию под идентификатором. Если
	// идентификатор занят и replace = false, возвращает ErrOpExists;
	// при replace = true существующая запись перезаписывается.
	PutOp(ctx context.Context, identifier, version string, spec *OperatorSpec, replace bool) error

	// ListOps перечисляет все зарегистрированные операторы.
	ListOps(ctx context.Context) ([]RegisteredOp, error)
}

// Registrar проводит полный цикл регистрации дерева исходников:
// получение локальной копии, разбор манифеста, сборка объявленных
// образов и запись операторов в каталог.
type Registrar struct {
	registry Registry
	fetcher  SourceFetcher
	builder  ImageBuilder
}

// NewRegistrar создаёт Registrar. fetcher и builder могут быть nil:
// тогда источники ограничены локальными директориями, а директивы
// сборки образов приводят к ошибке.
func NewRegistrar(registry Registry, fetcher SourceFetcher, builder ImageBuilder) *Registrar {
	if fetcher == nil {
		fetcher = LocalSource{}
	}
	return &Registrar{registry: registry, fetcher: fetcher, builder: builder}
}

// Register регистрирует все операторы из дерева исходников source.
// source — путь к локальной директории или ссылка на git-репозиторий;
// specfile — путь манифеста относительно корня дерева (по умолчанию
// scena.yaml). Возвращает идентификаторы зарегистрированных операторов.
//
// Регистрация одного и того же дерева детерминирована: повторный вызов
// даёт те же идентификаторы.
func (r *Registrar) Register(ctx context.Context, source, specfile string, replace bool) ([]string, error) {
	log := telemetry.FromContext(ctx)

	sourceDir, cleanup, err := r.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer cleanup()

	manifest, err := LoadManifest(sourceDir, specfile)
	if err != nil {
		return nil, err
	}

	for _, directive := range manifest.DockerImages {
		if r.builder == nil {
			return nil, fmt.Errorf("manifest declares image %q but no image builder is configured", directive.Tag)
		}
		log.Info("building operator image", "tag", directive.Tag, "base", directive.BaseImage)
		if err := r.builder.Build(ctx, sourceDir, directive); err != nil {
			return nil, fmt.Errorf("build image %q: %w", directive.Tag, err)
		}
	}

	registered := make([]string, 0, len(manifest.Operators))
	for i := range manifest.Operators {
		spec := manifest.Operators[i]
		opID := manifest.OpID(spec.Name)
		if err := r.registry.PutOp(ctx, opID, manifest.Version, &spec, replace); err != nil {
			return nil, fmt.Errorf("register %q: %w", opID, err)
		}
		log.Info("operator registered", "op_id", opID, "version", manifest.Version)
		registered = append(registered, opID)
	}
	return registered, nil
}
