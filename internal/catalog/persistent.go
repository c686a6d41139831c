package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shaiso/Scena/internal/repo"
)

// PersistentRegistry — каталог операторов поверх таблицы operators.
//
// Гонка конкурирующих регистраций под одним идентификатором решается
// ограничением уникальности в базе: проигравшая вставка получает
// ErrOpExists, а не молча перезаписывает победившую.
type PersistentRegistry struct {
	ops *repo.OpRepo
}

// NewPersistentRegistry создаёт PersistentRegistry.
func NewPersistentRegistry(ops *repo.OpRepo) *PersistentRegistry {
	return &PersistentRegistry{ops: ops}
}

// GetOp возвращает спецификацию оператора по идентификатору.
func (r *PersistentRegistry) GetOp(ctx context.Context, identifier string) (*OperatorSpec, error) {
	doc, err := r.ops.Get(ctx, identifier)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrOpNotFound, identifier)
	}
	if err != nil {
		return nil, err
	}

	var spec OperatorSpec
	if err := json.Unmarshal(doc.Spec, &spec); err != nil {
		return nil, fmt.Errorf("decode spec %q: %w", identifier, err)
	}
	return &spec, nil
}

// PutOp регистрирует спецификацию под идентификатором.
func (r *PersistentRegistry) PutOp(ctx context.Context, identifier, version string, spec *OperatorSpec, replace bool) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode spec %q: %w", identifier, err)
	}

	doc := repo.OpDocument{ID: identifier, Version: version, Spec: payload}
	err = r.ops.Put(ctx, doc, replace)
	if errors.Is(err, repo.ErrAlreadyExists) {
		return fmt.Errorf("%w: %q", ErrOpExists, identifier)
	}
	return err
}

// ListOps перечисляет все зарегистрированные операторы.
func (r *PersistentRegistry) ListOps(ctx context.Context) ([]RegisteredOp, error) {
	docs, err := r.ops.List(ctx)
	if err != nil {
		return nil, err
	}

	ops := make([]RegisteredOp, 0, len(docs))
	for _, doc := range docs {
		var spec OperatorSpec
		if err := json.Unmarshal(doc.Spec, &spec); err != nil {
			return nil, fmt.Errorf("decode spec %q: %w", doc.ID, err)
		}
		ops = append(ops, RegisteredOp{ID: doc.ID, Spec: &spec})
	}
	return ops, nil
}
