package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Scena/internal/domain"
)

// ContainerRepo — учёт работающих контейнеров.
//
// Записи эфемерны: вставляются сразу после создания контейнера и
// удаляются сразу после его завершения. Единственный потребитель —
// логика отзыва workflow, которая по этим записям находит контейнеры
// для остановки.
type ContainerRepo struct {
	pool *pgxpool.Pool
}

// NewContainerRepo создаёт новый ContainerRepo.
func NewContainerRepo(pool *pgxpool.Pool) *ContainerRepo {
	return &ContainerRepo{pool: pool}
}

// Insert регистрирует работающий контейнер.
func (r *ContainerRepo) Insert(ctx context.Context, workflowID uuid.UUID, containerID string) error {
	query := `
		INSERT INTO containers (workflow_id, container_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, workflowID, containerID); err != nil {
		return fmt.Errorf("insert container record: %w", err)
	}
	return nil
}

// Remove удаляет запись о контейнере.
// Отсутствие записи не является ошибкой: контейнер мог быть удалён
// конкурирующим отзывом workflow.
func (r *ContainerRepo) Remove(ctx context.Context, workflowID uuid.UUID, containerID string) error {
	query := `DELETE FROM containers WHERE workflow_id = $1 AND container_id = $2`
	if _, err := r.pool.Exec(ctx, query, workflowID, containerID); err != nil {
		return fmt.Errorf("remove container record: %w", err)
	}
	return nil
}

// ListByWorkflow возвращает контейнеры, зарегистрированные для workflow.
func (r *ContainerRepo) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.RunningContainer, error) {
	query := `SELECT workflow_id, container_id FROM containers WHERE workflow_id = $1`

	rows, err := r.pool.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	defer rows.Close()

	var records []domain.RunningContainer
	for rows.Next() {
		var rec domain.RunningContainer
		if err := rows.Scan(&rec.WorkflowID, &rec.ContainerID); err != nil {
			return nil, fmt.Errorf("scan container record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
