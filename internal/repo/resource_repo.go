package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResourceRepo — таблица обмена ресурсами между задачами одного workflow.
//
// Записи адресуются парой (workflow_id, метка): задача-производитель
// публикует местоположение файла под меткой, задача-потребитель читает
// его по той же метке. Таблица заменяет разделяемый в памяти контекст —
// записи переживают границы процессов воркеров.
type ResourceRepo struct {
	pool *pgxpool.Pool
}

// NewResourceRepo создаёт новый ResourceRepo.
func NewResourceRepo(pool *pgxpool.Pool) *ResourceRepo {
	return &ResourceRepo{pool: pool}
}

// Publish сохраняет местоположение ресурса под меткой.
// Повторная публикация под той же меткой перезаписывает запись.
func (r *ResourceRepo) Publish(ctx context.Context, workflowID uuid.UUID, label, location string) error {
	query := `
		INSERT INTO resources (workflow_id, label, location, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workflow_id, label) DO UPDATE SET location = $3, created_at = $4
	`
	if _, err := r.pool.Exec(ctx, query, workflowID, label, location, time.Now()); err != nil {
		return fmt.Errorf("publish resource: %w", err)
	}
	return nil
}

// Resolve возвращает местоположение ресурса по метке.
func (r *ResourceRepo) Resolve(ctx context.Context, workflowID uuid.UUID, label string) (string, error) {
	query := `SELECT location FROM resources WHERE workflow_id = $1 AND label = $2`

	var location string
	err := r.pool.QueryRow(ctx, query, workflowID, label).Scan(&location)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve resource: %w", err)
	}
	return location, nil
}

// Purge удаляет все записи workflow. Вызывается после завершения
// workflow, когда промежуточные ресурсы больше не нужны.
func (r *ResourceRepo) Purge(ctx context.Context, workflowID uuid.UUID) error {
	query := `DELETE FROM resources WHERE workflow_id = $1`
	if _, err := r.pool.Exec(ctx, query, workflowID); err != nil {
		return fmt.Errorf("purge resources: %w", err)
	}
	return nil
}
