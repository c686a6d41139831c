package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Exchange — таблица обмена ресурсами между задачами одного workflow.
//
// Задача-производитель публикует местоположение файла под меткой,
// последующие задачи читают его по той же метке.
type Exchange interface {
	// Publish сохраняет местоположение ресурса под меткой.
	// Повторная публикация под той же меткой перезаписывает запись.
	Publish(ctx context.Context, workflowID uuid.UUID, label, location string) error

	// Resolve возвращает местоположение ресурса по метке.
	Resolve(ctx context.Context, workflowID uuid.UUID, label string) (string, error)
}

// MemExchange — реализация Exchange в памяти процесса.
// Используется при запуске одним воркером и в тестах; при нескольких
// воркерах обмен идёт через таблицу resources в базе данных.
type MemExchange struct {
	mu      sync.RWMutex
	records map[uuid.UUID]map[string]string
}

// NewMemExchange создаёт пустой MemExchange.
func NewMemExchange() *MemExchange {
	return &MemExchange{records: make(map[uuid.UUID]map[string]string)}
}

// Publish сохраняет местоположение ресурса под меткой.
func (e *MemExchange) Publish(_ context.Context, workflowID uuid.UUID, label, location string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	byLabel, ok := e.records[workflowID]
	if !ok {
		byLabel = make(map[string]string)
		e.records[workflowID] = byLabel
	}
	byLabel[label] = location
	return nil
}

// Resolve возвращает местоположение ресурса по метке.
func (e *MemExchange) Resolve(_ context.Context, workflowID uuid.UUID, label string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	location, ok := e.records[workflowID][label]
	if !ok {
		return "", fmt.Errorf("%w: label %q", ErrNoResource, label)
	}
	return location, nil
}

// Purge удаляет все записи workflow.
func (e *MemExchange) Purge(_ context.Context, workflowID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.records, workflowID)
	return nil
}

// DurableExchange адаптирует хранилище ресурсов (таблицу resources)
// под Exchange, приводя ошибку отсутствия записи к ErrNoResource.
type DurableExchange struct {
	store    Exchange
	notFound error
}

// NewDurableExchange оборачивает store. notFound — сентинел хранилища,
// означающий отсутствие записи.
func NewDurableExchange(store Exchange, notFound error) *DurableExchange {
	return &DurableExchange{store: store, notFound: notFound}
}

// Publish сохраняет местоположение ресурса под меткой.
func (e *DurableExchange) Publish(ctx context.Context, workflowID uuid.UUID, label, location string) error {
	return e.store.Publish(ctx, workflowID, label, location)
}

// Resolve возвращает местоположение ресурса по метке.
func (e *DurableExchange) Resolve(ctx context.Context, workflowID uuid.UUID, label string) (string, error) {
	location, err := e.store.Resolve(ctx, workflowID, label)
	if err != nil {
		if e.notFound != nil && errors.Is(err, e.notFound) {
			return "", fmt.Errorf("%w: label %q", ErrNoResource, label)
		}
		return "", err
	}
	return location, nil
}
