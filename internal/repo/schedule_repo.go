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

// ScheduleRepo — репозиторий расписаний периодического запуска workflow.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт новый ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Create создаёт новое расписание.
func (r *ScheduleRepo) Create(ctx context.Context, sched *domain.Schedule) error {
	requestJSON, err := json.Marshal(sched.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	query := `
		INSERT INTO schedules (id, name, cron_expr, interval_sec, request, enabled, next_due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		sched.ID,
		sched.Name,
		nullString(sched.CronExpr),
		sched.IntervalSec,
		requestJSON,
		sched.Enabled,
		sched.NextDueAt,
		sched.CreatedAt,
		sched.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// ListDue возвращает включённые расписания, срок которых наступил.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	query := `
		SELECT id, name, cron_expr, interval_sec, request, enabled, next_due_at, last_run_at, created_at, updated_at
		FROM schedules
		WHERE enabled = TRUE AND next_due_at IS NOT NULL AND next_due_at <= $1
		ORDER BY next_due_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

// List возвращает все расписания.
func (r *ScheduleRepo) List(ctx context.Context) ([]domain.Schedule, error) {
	query := `
		SELECT id, name, cron_expr, interval_sec, request, enabled, next_due_at, last_run_at, created_at, updated_at
		FROM schedules
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, rows.Err()
}

// RecordRun записывает факт запуска и новое время следующего запуска.
func (r *ScheduleRepo) RecordRun(ctx context.Context, id uuid.UUID, lastRun, nextDue time.Time) error {
	query := `
		UPDATE schedules
		SET last_run_at = $2, next_due_at = $3, updated_at = $2
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, lastRun, nextDue)
	if err != nil {
		return fmt.Errorf("record schedule run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет расписание.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func scanSchedule(row pgx.Row) (*domain.Schedule, error) {
	var sched domain.Schedule
	var cronExpr *string
	var requestJSON []byte

	err := row.Scan(
		&sched.ID,
		&sched.Name,
		&cronExpr,
		&sched.IntervalSec,
		&requestJSON,
		&sched.Enabled,
		&sched.NextDueAt,
		&sched.LastRunAt,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}

	if cronExpr != nil {
		sched.CronExpr = *cronExpr
	}
	if requestJSON != nil {
		sched.Request = domain.WorkflowRequest{}
		if err := json.Unmarshal(requestJSON, &sched.Request); err != nil {
			return nil, fmt.Errorf("unmarshal request: %w", err)
		}
	}

	return &sched, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
