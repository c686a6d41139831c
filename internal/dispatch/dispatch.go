package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/telemetry"
)

// Dispatcher принимает workflow-запросы в систему.
type Dispatcher interface {
	// Submit сохраняет workflow с его задачами и ставит задачи в
	// очередь исполнения. Возвращает идентификатор workflow.
	Submit(ctx context.Context, req domain.WorkflowRequest) (uuid.UUID, error)

	// Cancel помечает workflow отозванным.
	Cancel(ctx context.Context, workflowID uuid.UUID) error
}

// workflowStore — записи workflow, нужные диспетчеру.
type workflowStore interface {
	Create(ctx context.Context, wf *domain.Workflow) error
	MarkRevoked(ctx context.Context, id uuid.UUID) error
}

// taskStore — записи задач, нужные диспетчеру.
type taskStore interface {
	Create(ctx context.Context, task *domain.Task) error
}

// publisher — события, публикуемые диспетчером в брокер.
type publisher interface {
	PublishWorkflowSubmitted(ctx context.Context, workflowID uuid.UUID) error
	PublishTaskReady(ctx context.Context, taskID, workflowID uuid.UUID, operator string) error
}

// NopPublisher — заглушка publisher для работы без брокера.
// Воркеры в этом режиме подбирают задачи через polling.
type NopPublisher struct{}

func (NopPublisher) PublishWorkflowSubmitted(context.Context, uuid.UUID) error { return nil }

func (NopPublisher) PublishTaskReady(context.Context, uuid.UUID, uuid.UUID, string) error {
	return nil
}

// AMQPDispatcher — диспетчер поверх базы данных и RabbitMQ.
//
// Задачи создаются в объявленном порядке со статусом PENDING и
// анонсируются воркерам через tasks.ready. Очерёдность внутри workflow
// обеспечивают сами задачи: потребители меток ждут публикаций
// производителей.
type AMQPDispatcher struct {
	workflows workflowStore
	tasks     taskStore
	publisher publisher
}

// NewAMQPDispatcher создаёт AMQPDispatcher.
func NewAMQPDispatcher(workflows workflowStore, tasks taskStore, pub publisher) *AMQPDispatcher {
	return &AMQPDispatcher{workflows: workflows, tasks: tasks, publisher: pub}
}

// Submit сохраняет workflow с задачами и публикует события готовности.
func (d *AMQPDispatcher) Submit(ctx context.Context, req domain.WorkflowRequest) (uuid.UUID, error) {
	if len(req.Tasks) == 0 {
		return uuid.Nil, fmt.Errorf("workflow request has no tasks")
	}

	now := time.Now()
	wf := &domain.Workflow{ID: uuid.New(), CreatedAt: now}
	if err := d.workflows.Create(ctx, wf); err != nil {
		return uuid.Nil, fmt.Errorf("create workflow: %w", err)
	}

	log := telemetry.WithWorkflowID(telemetry.FromContext(ctx), wf.ID.String())
	log.Info("workflow submitted", "tasks", len(req.Tasks))

	tasks := make([]*domain.Task, 0, len(req.Tasks))
	for i, tr := range req.Tasks {
		task := &domain.Task{
			ID:         uuid.New(),
			WorkflowID: wf.ID,
			Name:       tr.Name,
			Operator:   tr.Operator,
			Params:     tr.Params,
			Inputs:     tr.Inputs,
			Status:     domain.TaskStatusPending,
			// Смещение сохраняет объявленный порядок задач при
			// выборке по created_at.
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt: now,
		}
		if err := d.tasks.Create(ctx, task); err != nil {
			return uuid.Nil, fmt.Errorf("create task %q: %w", tr.Name, err)
		}
		tasks = append(tasks, task)
	}

	if err := d.publisher.PublishWorkflowSubmitted(ctx, wf.ID); err != nil {
		return uuid.Nil, err
	}
	for _, task := range tasks {
		if err := d.publisher.PublishTaskReady(ctx, task.ID, wf.ID, task.Operator); err != nil {
			return uuid.Nil, err
		}
	}
	return wf.ID, nil
}

// Cancel помечает workflow отозванным.
func (d *AMQPDispatcher) Cancel(ctx context.Context, workflowID uuid.UUID) error {
	if err := d.workflows.MarkRevoked(ctx, workflowID); err != nil {
		return fmt.Errorf("revoke workflow: %w", err)
	}
	telemetry.FromContext(ctx).Info("workflow revoked", "workflow_id", workflowID)
	return nil
}
