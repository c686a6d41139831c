package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/executor"
	"github.com/shaiso/Scena/internal/repo"
)

type fakeTaskStore struct {
	byID    map[uuid.UUID]*domain.Task
	updates []domain.TaskStatus
}

func newFakeTaskStore(tasks ...*domain.Task) *fakeTaskStore {
	s := &fakeTaskStore{byID: make(map[uuid.UUID]*domain.Task)}
	for _, t := range tasks {
		s.byID[t.ID] = t
	}
	return s
}

func (s *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	task, ok := s.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *fakeTaskStore) Update(_ context.Context, task *domain.Task) error {
	copied := *task
	s.byID[task.ID] = &copied
	s.updates = append(s.updates, task.Status)
	return nil
}

func (s *fakeTaskStore) ListPending(_ context.Context, limit int) ([]domain.Task, error) {
	var pending []domain.Task
	for _, task := range s.byID {
		if task.Status == domain.TaskStatusPending && len(pending) < limit {
			pending = append(pending, *task)
		}
	}
	return pending, nil
}

type fakeWorkflowStore struct {
	revoked bool
}

func (s *fakeWorkflowStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return &domain.Workflow{ID: id, IsRevoked: s.revoked}, nil
}

type fakeExecutor struct {
	result *domain.TaskResult
	err    error
	calls  []string
}

func (e *fakeExecutor) Execute(_ context.Context, _ executor.TaskContext, opID string, _ map[string]any) (*domain.TaskResult, error) {
	e.calls = append(e.calls, opID)
	return e.result, e.err
}

func pendingTask() *domain.Task {
	return &domain.Task{
		ID:         uuid.New(),
		WorkflowID: uuid.New(),
		Name:       "greet",
		Operator:   "demo.Greet",
		Status:     domain.TaskStatusPending,
	}
}

func newWorker(tasks taskStore, workflows workflowStore, exec taskExecutor) *Worker {
	return New(Config{Tasks: tasks, Workflows: workflows, Executor: exec})
}

func TestProcessTaskSuccess(t *testing.T) {
	task := pendingTask()
	store := newFakeTaskStore(task)
	exec := &fakeExecutor{result: &domain.TaskResult{Files: []string{"/run/greetings.txt"}}}
	w := newWorker(store, &fakeWorkflowStore{}, exec)

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	final := store.byID[task.ID]
	if final.Status != domain.TaskStatusDone {
		t.Errorf("status = %s", final.Status)
	}
	if final.Result == nil || len(final.Result.Files) != 1 {
		t.Errorf("result = %+v", final.Result)
	}
	if final.StartedAt == nil || final.FinishedAt == nil {
		t.Error("timestamps must be recorded")
	}
	if len(exec.calls) != 1 || exec.calls[0] != "demo.Greet" {
		t.Errorf("executor calls = %v", exec.calls)
	}
	// Переходы статуса: RUNNING, затем DONE.
	if len(store.updates) != 2 || store.updates[0] != domain.TaskStatusRunning || store.updates[1] != domain.TaskStatusDone {
		t.Errorf("status transitions = %v", store.updates)
	}
}

func TestProcessTaskFailure(t *testing.T) {
	task := pendingTask()
	store := newFakeTaskStore(task)
	exec := &fakeExecutor{err: &executor.ExecError{
		OpID:       "demo.Greet",
		ReturnCode: 2,
		Logs:       []string{"step ok\n", "boom\n"},
	}}
	w := newWorker(store, &fakeWorkflowStore{}, exec)

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("process must absorb operator failure: %v", err)
	}

	final := store.byID[task.ID]
	if final.Status != domain.TaskStatusFailed {
		t.Errorf("status = %s", final.Status)
	}
	// Сообщение об ошибке содержит склеенные логи контейнера.
	if final.Result == nil || !strings.Contains(final.Result.Message, "boom") {
		t.Errorf("result = %+v", final.Result)
	}
}

func TestProcessTaskNotFound(t *testing.T) {
	w := newWorker(newFakeTaskStore(), &fakeWorkflowStore{}, &fakeExecutor{})

	err := w.processTask(context.Background(), uuid.New())
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestProcessTaskAlreadyTaken(t *testing.T) {
	task := pendingTask()
	task.Status = domain.TaskStatusRunning
	store := newFakeTaskStore(task)
	exec := &fakeExecutor{}
	w := newWorker(store, &fakeWorkflowStore{}, exec)

	err := w.processTask(context.Background(), task.ID)
	if !errors.Is(err, ErrTaskNotPending) {
		t.Errorf("expected ErrTaskNotPending, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Error("taken task must not execute again")
	}
}

func TestProcessTaskRevokedWorkflow(t *testing.T) {
	task := pendingTask()
	store := newFakeTaskStore(task)
	exec := &fakeExecutor{}
	w := newWorker(store, &fakeWorkflowStore{revoked: true}, exec)

	if err := w.processTask(context.Background(), task.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(exec.calls) != 0 {
		t.Error("revoked workflow must not execute tasks")
	}
	final := store.byID[task.ID]
	if final.Status != domain.TaskStatusFailed {
		t.Errorf("status = %s, revoked task must be closed", final.Status)
	}
}
