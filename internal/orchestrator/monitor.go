package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/telemetry"
)

// ErrTaskFailed возвращается из Run при raiseError, когда задача
// workflow завершилась со статусом FAILED.
var ErrTaskFailed = errors.New("workflow task failed")

// workflowStore — записи workflow, нужные монитору.
type workflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	MarkRevoked(ctx context.Context, id uuid.UUID) error
}

// taskStore — записи задач, нужные монитору.
type taskStore interface {
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.Task, error)
	Statuses(ctx context.Context) (map[uuid.UUID][]domain.Task, error)
}

// containerStore — учёт работающих контейнеров.
type containerStore interface {
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.RunningContainer, error)
	Remove(ctx context.Context, workflowID uuid.UUID, containerID string) error
}

// containerStopper — остановка работающих контейнеров при отзыве.
type containerStopper interface {
	Stop(ctx context.Context, containerID string) error
}

// Monitor наблюдает за выполнением workflow и управляет его отзывом.
type Monitor struct {
	workflows  workflowStore
	tasks      taskStore
	containers containerStore
	runtime    containerStopper
}

// New создаёт Monitor.
func New(workflows workflowStore, tasks taskStore, containers containerStore, runtime containerStopper) *Monitor {
	return &Monitor{
		workflows:  workflows,
		tasks:      tasks,
		containers: containers,
		runtime:    runtime,
	}
}

// RunOptions — параметры блокирующего наблюдения за workflow.
type RunOptions struct {
	// PollInterval — период опроса состояния. По умолчанию 5 секунд.
	PollInterval time.Duration

	// Verbose — логировать статусы задач при каждом опросе.
	Verbose bool

	// RaiseError — вернуть ошибку, если задача workflow провалилась.
	// Иначе провал отражается только в статусах возвращённых задач.
	RaiseError bool
}

// Run блокируется до завершения workflow: либо все задачи DONE, либо
// хотя бы одна FAILED. При провале workflow отзывается (один раз),
// чтобы не оставлять ожидающих задач. Возвращает финальный список задач.
func (m *Monitor) Run(ctx context.Context, workflowID uuid.UUID, opts RunOptions) ([]domain.Task, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	log := telemetry.WithWorkflowID(telemetry.FromContext(ctx), workflowID.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		tasks, err := m.tasks.ListByWorkflow(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		if opts.Verbose {
			log.Info("workflow state", "tasks", formatStatuses(tasks))
		}

		done := true
		for _, task := range tasks {
			if task.Status == domain.TaskStatusFailed {
				if err := m.revokeOnce(ctx, workflowID); err != nil {
					log.Warn("revoke after failure", "error", err)
				}
				if opts.RaiseError {
					return tasks, fmt.Errorf("%w: %s: %s", ErrTaskFailed, task.Name, failureMessage(&task))
				}
				return tasks, nil
			}
			if task.Status != domain.TaskStatusDone {
				done = false
			}
		}
		if done && len(tasks) > 0 {
			return tasks, nil
		}
	}
}

// revokeOnce отзывает workflow, если он ещё не отозван.
func (m *Monitor) revokeOnce(ctx context.Context, workflowID uuid.UUID) error {
	wf, err := m.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}
	if wf.IsRevoked {
		return nil
	}
	return m.Revoke(ctx, workflowID)
}

// Revoke помечает workflow отозванным и останавливает его контейнеры.
//
// Остановка работает по принципу best effort: контейнер мог завершиться
// между выборкой записей и остановкой, такие сбои логируются и не
// прерывают отзыв остальных.
func (m *Monitor) Revoke(ctx context.Context, workflowID uuid.UUID) error {
	log := telemetry.WithWorkflowID(telemetry.FromContext(ctx), workflowID.String())

	if err := m.workflows.MarkRevoked(ctx, workflowID); err != nil {
		return fmt.Errorf("mark revoked: %w", err)
	}

	records, err := m.containers.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}
	for _, rec := range records {
		if err := m.runtime.Stop(ctx, rec.ContainerID); err != nil {
			log.Warn("container stop failed", "container_id", rec.ContainerID, "error", err)
		}
		if err := m.containers.Remove(ctx, workflowID, rec.ContainerID); err != nil {
			log.Warn("container record remove failed", "container_id", rec.ContainerID, "error", err)
		}
	}

	log.Info("workflow revoked", "containers_stopped", len(records))
	return nil
}

// Status возвращает сводный статус workflow по статусам его задач.
func (m *Monitor) Status(ctx context.Context, workflowID uuid.UUID) (domain.TaskStatus, error) {
	tasks, err := m.tasks.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return "", err
	}
	statuses := make([]domain.TaskStatus, 0, len(tasks))
	for _, task := range tasks {
		statuses = append(statuses, task.Status)
	}
	return domain.AggregateStatus(statuses), nil
}

// ListAll возвращает дескрипторы всех workflow, сгруппированные по
// задачам. При activeOnly завершённые workflow опускаются.
func (m *Monitor) ListAll(ctx context.Context, activeOnly bool) ([]domain.WorkflowDescriptor, error) {
	grouped, err := m.tasks.Statuses(ctx)
	if err != nil {
		return nil, err
	}

	descriptors := make([]domain.WorkflowDescriptor, 0, len(grouped))
	for workflowID, tasks := range grouped {
		statuses := make([]domain.TaskStatus, 0, len(tasks))
		lastUpdate := time.Time{}
		for _, task := range tasks {
			statuses = append(statuses, task.Status)
			if task.UpdatedAt.After(lastUpdate) {
				lastUpdate = task.UpdatedAt
			}
		}
		status := domain.AggregateStatus(statuses)
		if activeOnly && status != domain.TaskStatusRunning {
			continue
		}
		descriptors = append(descriptors, domain.WorkflowDescriptor{
			WorkflowID: workflowID,
			Status:     status,
			LastUpdate: lastUpdate,
		})
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].LastUpdate.After(descriptors[j].LastUpdate)
	})
	return descriptors, nil
}

func formatStatuses(tasks []domain.Task) string {
	var b strings.Builder
	for _, task := range tasks {
		fmt.Fprintf(&b, "(%s=%s)", task.Name, task.Status)
	}
	return b.String()
}

func failureMessage(task *domain.Task) string {
	if task.Result == nil {
		return "no result recorded"
	}
	return task.Result.Message
}
