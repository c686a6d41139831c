package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Scena/internal/domain"
)

// TaskRepo — репозиторий для работы с tasks.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create создаёт новую задачу.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	paramsJSON, err := json.Marshal(task.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	inputsJSON, err := json.Marshal(task.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}

	query := `
		INSERT INTO tasks (id, workflow_id, name, operator, params, inputs, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		task.ID,
		task.WorkflowID,
		task.Name,
		task.Operator,
		paramsJSON,
		inputsJSON,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID возвращает задачу по ID.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, workflow_id, name, operator, params, inputs, status, result,
		       started_at, finished_at, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

// ListByWorkflow возвращает все задачи workflow в порядке создания.
func (r *TaskRepo) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.Task, error) {
	query := `
		SELECT id, workflow_id, name, operator, params, inputs, status, result,
		       started_at, finished_at, created_at, updated_at
		FROM tasks
		WHERE workflow_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by workflow: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListPending возвращает задачи в статусе PENDING.
// Используется воркером как polling fallback.
func (r *TaskRepo) ListPending(ctx context.Context, limit int) ([]domain.Task, error) {
	query := `
		SELECT id, workflow_id, name, operator, params, inputs, status, result,
		       started_at, finished_at, created_at, updated_at
		FROM tasks
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Update обновляет статус и результат задачи.
func (r *TaskRepo) Update(ctx context.Context, task *domain.Task) error {
	var resultJSON []byte
	if task.Result != nil {
		var err error
		resultJSON, err = json.Marshal(task.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	query := `
		UPDATE tasks
		SET status = $2, result = $3, started_at = $4, finished_at = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Status,
		resultJSON,
		task.StartedAt,
		task.FinishedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Statuses возвращает статусы и времена обновления всех задач,
// сгруппированные по workflow. Используется для построения листинга
// workflow с агрегатным статусом.
func (r *TaskRepo) Statuses(ctx context.Context) (map[uuid.UUID][]domain.Task, error) {
	query := `SELECT workflow_id, status, updated_at FROM tasks`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list task statuses: %w", err)
	}
	defer rows.Close()

	grouped := make(map[uuid.UUID][]domain.Task)
	for rows.Next() {
		var workflowID uuid.UUID
		var status domain.TaskStatus
		var updatedAt time.Time
		if err := rows.Scan(&workflowID, &status, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task status: %w", err)
		}
		grouped[workflowID] = append(grouped[workflowID], domain.Task{
			WorkflowID: workflowID,
			Status:     status,
			UpdatedAt:  updatedAt,
		})
	}
	return grouped, rows.Err()
}

// --- Helpers ---

func scanTask(row pgx.Row) (*domain.Task, error) {
	task, err := scanTaskFields(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTaskFields(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTaskFields(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var paramsJSON, inputsJSON, resultJSON []byte

	err := row.Scan(
		&task.ID,
		&task.WorkflowID,
		&task.Name,
		&task.Operator,
		&paramsJSON,
		&inputsJSON,
		&task.Status,
		&resultJSON,
		&task.StartedAt,
		&task.FinishedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &task.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if inputsJSON != nil {
		if err := json.Unmarshal(inputsJSON, &task.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %w", err)
		}
	}
	if resultJSON != nil {
		task.Result = &domain.TaskResult{}
		if err := json.Unmarshal(resultJSON, task.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}

	return &task, nil
}
