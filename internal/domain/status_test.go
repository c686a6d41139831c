package domain

import "testing"

func TestAggregateStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []TaskStatus
		want     TaskStatus
	}{
		{"all done", []TaskStatus{TaskStatusDone, TaskStatusDone, TaskStatusDone}, TaskStatusDone},
		{"all pending", []TaskStatus{TaskStatusPending, TaskStatusPending}, TaskStatusPending},
		{"mixed without failure", []TaskStatus{TaskStatusDone, TaskStatusRunning, TaskStatusDone}, TaskStatusRunning},
		{"pending and done", []TaskStatus{TaskStatusPending, TaskStatusDone}, TaskStatusRunning},
		{"any failed wins", []TaskStatus{TaskStatusDone, TaskStatusFailed, TaskStatusRunning}, TaskStatusFailed},
		{"single failed", []TaskStatus{TaskStatusFailed}, TaskStatusFailed},
		{"empty", nil, TaskStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AggregateStatus(tc.statuses)
			if got != tc.want {
				t.Errorf("AggregateStatus(%v) = %s, want %s", tc.statuses, got, tc.want)
			}
		})
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	if TaskStatusPending.IsTerminal() || TaskStatusRunning.IsTerminal() {
		t.Error("PENDING and RUNNING are not terminal")
	}
	if !TaskStatusDone.IsTerminal() || !TaskStatusFailed.IsTerminal() {
		t.Error("DONE and FAILED are terminal")
	}
}

func TestTaskTransitions(t *testing.T) {
	task := &Task{Status: TaskStatusPending}

	task.MarkRunning()
	if task.Status != TaskStatusRunning {
		t.Fatalf("expected RUNNING, got %s", task.Status)
	}
	if task.StartedAt == nil {
		t.Error("StartedAt should be set")
	}

	task.MarkFailed("boom")
	if task.Status != TaskStatusFailed {
		t.Fatalf("expected FAILED, got %s", task.Status)
	}
	if task.Result == nil || task.Result.Message != "boom" {
		t.Error("failure message should be recorded in result")
	}
	if task.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
}
