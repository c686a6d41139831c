package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
)

type fakeWorkflowStore struct {
	created []*domain.Workflow
	revoked []uuid.UUID
}

func (s *fakeWorkflowStore) Create(_ context.Context, wf *domain.Workflow) error {
	s.created = append(s.created, wf)
	return nil
}

func (s *fakeWorkflowStore) MarkRevoked(_ context.Context, id uuid.UUID) error {
	s.revoked = append(s.revoked, id)
	return nil
}

type fakeTaskStore struct {
	created []*domain.Task
	fail    error
}

func (s *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	if s.fail != nil {
		return s.fail
	}
	s.created = append(s.created, task)
	return nil
}

type fakePublisher struct {
	submitted []uuid.UUID
	ready     []string
}

func (p *fakePublisher) PublishWorkflowSubmitted(_ context.Context, workflowID uuid.UUID) error {
	p.submitted = append(p.submitted, workflowID)
	return nil
}

func (p *fakePublisher) PublishTaskReady(_ context.Context, _, _ uuid.UUID, operator string) error {
	p.ready = append(p.ready, operator)
	return nil
}

func request() domain.WorkflowRequest {
	return domain.WorkflowRequest{
		Tasks: []domain.TaskRequest{
			{Name: "produce", Operator: "demo.RandomNames"},
			{Name: "greet", Operator: "demo.Greet", Params: map[string]any{"greeting": "Hi"}},
		},
	}
}

func TestSubmit(t *testing.T) {
	workflows := &fakeWorkflowStore{}
	tasks := &fakeTaskStore{}
	pub := &fakePublisher{}
	d := NewAMQPDispatcher(workflows, tasks, pub)

	wfID, err := d.Submit(context.Background(), request())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if wfID == uuid.Nil {
		t.Fatal("workflow id must be assigned")
	}

	if len(workflows.created) != 1 || workflows.created[0].ID != wfID {
		t.Errorf("workflow row not created")
	}
	if len(tasks.created) != 2 {
		t.Fatalf("tasks created = %d", len(tasks.created))
	}
	for i, task := range tasks.created {
		if task.WorkflowID != wfID {
			t.Errorf("task %d bound to wrong workflow", i)
		}
		if task.Status != domain.TaskStatusPending {
			t.Errorf("task %d status = %s", i, task.Status)
		}
	}
	// Объявленный порядок сохранён в created_at.
	if !tasks.created[0].CreatedAt.Before(tasks.created[1].CreatedAt) {
		t.Error("declared task order must be preserved")
	}

	if len(pub.submitted) != 1 {
		t.Errorf("workflow.submitted published %d times", len(pub.submitted))
	}
	if len(pub.ready) != 2 || pub.ready[0] != "demo.RandomNames" || pub.ready[1] != "demo.Greet" {
		t.Errorf("task.ready events = %v", pub.ready)
	}
}

func TestSubmitEmptyRequest(t *testing.T) {
	d := NewAMQPDispatcher(&fakeWorkflowStore{}, &fakeTaskStore{}, &fakePublisher{})

	if _, err := d.Submit(context.Background(), domain.WorkflowRequest{}); err == nil {
		t.Error("expected error for empty request")
	}
}

func TestSubmitTaskCreateFailure(t *testing.T) {
	boom := errors.New("insert failed")
	d := NewAMQPDispatcher(&fakeWorkflowStore{}, &fakeTaskStore{fail: boom}, &fakePublisher{})

	if _, err := d.Submit(context.Background(), request()); !errors.Is(err, boom) {
		t.Errorf("expected task store error, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	workflows := &fakeWorkflowStore{}
	d := NewAMQPDispatcher(workflows, &fakeTaskStore{}, &fakePublisher{})

	id := uuid.New()
	if err := d.Cancel(context.Background(), id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(workflows.revoked) != 1 || workflows.revoked[0] != id {
		t.Errorf("revoked = %v", workflows.revoked)
	}
}
