package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// VolatileRegistry — каталог операторов в памяти процесса.
// Используется для встроенной регистрации и в тестах; записи не
// переживают перезапуск.
type VolatileRegistry struct {
	mu        sync.RWMutex
	operators map[string]RegisteredOp
}

// NewVolatileRegistry создаёт пустой VolatileRegistry.
func NewVolatileRegistry() *VolatileRegistry {
	return &VolatileRegistry{operators: make(map[string]RegisteredOp)}
}

// NewVolatileRegistryFromSource создаёт VolatileRegistry и сразу
// регистрирует операторы из дерева исходников source.
func NewVolatileRegistryFromSource(ctx context.Context, source, specfile string) (*VolatileRegistry, error) {
	registry := NewVolatileRegistry()
	registrar := NewRegistrar(registry, LocalSource{}, nil)
	if _, err := registrar.Register(ctx, source, specfile, false); err != nil {
		return nil, err
	}
	return registry, nil
}

// GetOp возвращает спецификацию оператора по идентификатору.
func (r *VolatileRegistry) GetOp(_ context.Context, identifier string) (*OperatorSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operators[identifier]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrOpNotFound, identifier)
	}
	spec := *op.Spec
	return &spec, nil
}

// PutOp регистрирует спецификацию под идентификатором.
func (r *VolatileRegistry) PutOp(_ context.Context, identifier, _ string, spec *OperatorSpec, replace bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.operators[identifier]; ok && !replace {
		return fmt.Errorf("%w: %q", ErrOpExists, identifier)
	}
	copied := *spec
	r.operators[identifier] = RegisteredOp{ID: identifier, Spec: &copied}
	return nil
}

// ListOps перечисляет операторы в порядке идентификаторов.
func (r *VolatileRegistry) ListOps(_ context.Context) ([]RegisteredOp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]RegisteredOp, 0, len(r.operators))
	for _, op := range r.operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}
