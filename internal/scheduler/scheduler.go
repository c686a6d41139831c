package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/dispatch"
	"github.com/shaiso/Scena/internal/domain"
)

// scheduleStore — записи расписаний, нужные планировщику.
type scheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	RecordRun(ctx context.Context, id uuid.UUID, lastRun, nextDue time.Time) error
}

// Scheduler — планировщик, обрабатывающий due расписания.
type Scheduler struct {
	schedules  scheduleStore
	dispatcher dispatch.Dispatcher
	logger     *slog.Logger
	batchSize  int
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules  scheduleStore
	Dispatcher dispatch.Dispatcher
	Logger     *slog.Logger
	BatchSize  int // количество расписаний за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules:  cfg.Schedules,
		dispatcher: cfg.Dispatcher,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due расписания (enabled=true, next_due_at <= now)
// 2. Для каждого отправляет WorkflowRequest диспетчеру
// 3. Записывает факт запуска и новое next_due_at
//
// Ошибки одного расписания не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, submitted int
	for i := range schedules {
		sched := &schedules[i]

		workflowSubmitted, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if workflowSubmitted {
			submitted++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"workflows_submitted", submitted,
	)

	return nil
}

// processSchedule обрабатывает одно расписание.
// Возвращает true, если workflow был отправлен диспетчеру.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	workflowID, err := s.dispatcher.Submit(ctx, sched.Request)
	if err != nil {
		return false, fmt.Errorf("submit workflow: %w", err)
	}

	s.logger.Info("submitted workflow from schedule",
		"workflow_id", workflowID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
	)

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Расписание некорректное — лучше не трогать next_due_at
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		return true, nil
	}

	if err := s.schedules.RecordRun(ctx, sched.ID, now, nextDue); err != nil {
		return true, fmt.Errorf("record schedule run: %w", err)
	}

	return true, nil
}
