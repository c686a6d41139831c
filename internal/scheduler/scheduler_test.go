package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
)

type fakeScheduleStore struct {
	due      []domain.Schedule
	recorded map[uuid.UUID]time.Time
}

func (s *fakeScheduleStore) ListDue(_ context.Context, _ time.Time, limit int) ([]domain.Schedule, error) {
	if len(s.due) > limit {
		return s.due[:limit], nil
	}
	return s.due, nil
}

func (s *fakeScheduleStore) RecordRun(_ context.Context, id uuid.UUID, _, nextDue time.Time) error {
	if s.recorded == nil {
		s.recorded = make(map[uuid.UUID]time.Time)
	}
	s.recorded[id] = nextDue
	return nil
}

type fakeDispatcher struct {
	submitted []domain.WorkflowRequest
	failFor   map[string]error
}

func (d *fakeDispatcher) Submit(_ context.Context, req domain.WorkflowRequest) (uuid.UUID, error) {
	if err := d.failFor[req.Tasks[0].Name]; err != nil {
		return uuid.Nil, err
	}
	d.submitted = append(d.submitted, req)
	return uuid.New(), nil
}

func (d *fakeDispatcher) Cancel(_ context.Context, _ uuid.UUID) error {
	return nil
}

func intervalSchedule(name string, intervalSec int) domain.Schedule {
	due := time.Now().Add(-time.Second)
	return domain.Schedule{
		ID:          uuid.New(),
		Name:        name,
		IntervalSec: intervalSec,
		Request: domain.WorkflowRequest{Tasks: []domain.TaskRequest{
			{Name: name, Operator: "demo.Greet"},
		}},
		Enabled: true,
		NextDueAt:   &due,
	}
}

func TestTickSubmitsDueSchedules(t *testing.T) {
	sched := intervalSchedule("nightly", 3600)
	store := &fakeScheduleStore{due: []domain.Schedule{sched}}
	disp := &fakeDispatcher{}
	s := New(Config{Schedules: store, Dispatcher: disp})

	before := time.Now()
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(disp.submitted) != 1 || disp.submitted[0].Tasks[0].Name != "nightly" {
		t.Fatalf("submitted = %+v", disp.submitted)
	}
	nextDue, ok := store.recorded[sched.ID]
	if !ok {
		t.Fatal("schedule run must be recorded")
	}
	if nextDue.Before(before.Add(time.Hour)) {
		t.Errorf("next due %v must be an hour ahead", nextDue)
	}
}

func TestTickIsolatesScheduleFailures(t *testing.T) {
	broken := intervalSchedule("broken", 60)
	healthy := intervalSchedule("healthy", 60)
	store := &fakeScheduleStore{due: []domain.Schedule{broken, healthy}}
	disp := &fakeDispatcher{failFor: map[string]error{"broken": errors.New("db down")}}
	s := New(Config{Schedules: store, Dispatcher: disp})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(disp.submitted) != 1 || disp.submitted[0].Tasks[0].Name != "healthy" {
		t.Errorf("submitted = %+v, failure must not block other schedules", disp.submitted)
	}
	if _, ok := store.recorded[broken.ID]; ok {
		t.Error("failed schedule must not record a run")
	}
	if _, ok := store.recorded[healthy.ID]; !ok {
		t.Error("healthy schedule must record a run")
	}
}

func TestTickEmptyBatch(t *testing.T) {
	store := &fakeScheduleStore{}
	disp := &fakeDispatcher{}
	s := New(Config{Schedules: store, Dispatcher: disp})

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(disp.submitted) != 0 {
		t.Errorf("submitted = %+v", disp.submitted)
	}
}

func TestCalculateNextDueCron(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "0 9 * * *"}
	from := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	want := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDueInterval(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 300}
	from := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !next.Equal(from.Add(5 * time.Minute)) {
		t.Errorf("next = %v", next)
	}
}

func TestCalculateNextDueInvalid(t *testing.T) {
	if _, err := CalculateNextDue(&domain.Schedule{}, time.Now()); err == nil {
		t.Error("schedule without cron or interval must be rejected")
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("invalid cron expression must be rejected")
	}
}
