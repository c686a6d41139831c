package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// commandOutcome описывает поведение поддельного контейнера для команды.
type commandOutcome struct {
	exitCode  int
	logs      string
	createErr error
}

// fakeRuntime — рантайм, исполняющий сценарий вместо реальных контейнеров.
type fakeRuntime struct {
	mu       sync.Mutex
	seq      int
	outcomes map[string]commandOutcome
	byID     map[string]commandOutcome

	created []string
	started []string
	removed []string
	stopped []string
}

func newFakeRuntime(outcomes map[string]commandOutcome) *fakeRuntime {
	return &fakeRuntime{outcomes: outcomes, byID: make(map[string]commandOutcome)}
}

func (f *fakeRuntime) Create(_ context.Context, _, command string, _ []VolumeBind, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	outcome := f.outcomes[command]
	if outcome.createErr != nil {
		return "", outcome.createErr
	}
	f.seq++
	id := fmt.Sprintf("cont-%d", f.seq)
	f.byID[id] = outcome
	f.created = append(f.created, command)
	return id, nil
}

func (f *fakeRuntime) Start(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
	return nil
}

func (f *fakeRuntime) Wait(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].exitCode, nil
}

func (f *fakeRuntime) Logs(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].logs, nil
}

func (f *fakeRuntime) Stop(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeRuntime) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

// recordTracker фиксирует вставки и удаления записей о контейнерах.
type recordTracker struct {
	mu       sync.Mutex
	inserted []string
	removed  []string
}

func (t *recordTracker) Insert(_ context.Context, _ uuid.UUID, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inserted = append(t.inserted, id)
	return nil
}

func (t *recordTracker) Remove(_ context.Context, _ uuid.UUID, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removed = append(t.removed, id)
	return nil
}

func newRun(t *testing.T, rt ContainerRuntime) *Run {
	t.Helper()
	run, err := NewRun(t.TempDir(), rt)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	return run
}

func TestExecFailFast(t *testing.T) {
	rt := newFakeRuntime(map[string]commandOutcome{
		"step-a": {exitCode: 0, logs: "a ok\n"},
		"step-b": {exitCode: 2, logs: "b broke\n"},
		"step-c": {exitCode: 0, logs: "c ok\n"},
	})
	run := newRun(t, rt)

	result := run.Exec(context.Background(), ExecOptions{
		Image:    "alpine:3",
		Commands: []string{"step-a", "step-b", "step-c"},
		Remove:   true,
	})

	if result.ReturnCode != 2 {
		t.Errorf("return code = %d, want 2", result.ReturnCode)
	}
	if result.Err != nil {
		t.Errorf("non-zero exit must not set Err, got %v", result.Err)
	}
	if len(result.Logs) != 2 {
		t.Fatalf("logs = %v, want entries for exactly two launches", result.Logs)
	}
	if result.Logs[0] != "a ok\n" || result.Logs[1] != "b broke\n" {
		t.Errorf("logs out of order: %v", result.Logs)
	}
	if len(rt.created) != 2 {
		t.Errorf("third command must not launch after failure, created: %v", rt.created)
	}
	if len(rt.removed) != 2 {
		t.Errorf("containers must be removed regardless of exit code, removed: %v", rt.removed)
	}
}

func TestExecInfraFailureAbsorbed(t *testing.T) {
	bootErr := errors.New("image not found")
	rt := newFakeRuntime(map[string]commandOutcome{
		"step-a": {createErr: bootErr},
	})
	run := newRun(t, rt)

	result := run.Exec(context.Background(), ExecOptions{
		Image:    "ghost:latest",
		Commands: []string{"step-a"},
	})

	if result.ReturnCode != 1 {
		t.Errorf("return code = %d, want 1", result.ReturnCode)
	}
	if !errors.Is(result.Err, bootErr) {
		t.Errorf("original error must be preserved, got %v", result.Err)
	}
	if len(result.Logs) == 0 || !strings.Contains(result.Logs[len(result.Logs)-1], "image not found") {
		t.Errorf("failure trace must be appended to logs, got %v", result.Logs)
	}
	if result.Success() {
		t.Error("result must not be successful")
	}
}

func TestExecTracksContainers(t *testing.T) {
	rt := newFakeRuntime(map[string]commandOutcome{
		"step-a": {exitCode: 0},
		"step-b": {exitCode: 1},
	})
	run := newRun(t, rt)
	tracker := &recordTracker{}

	run.Exec(context.Background(), ExecOptions{
		Image:      "alpine:3",
		Commands:   []string{"step-a", "step-b"},
		WorkflowID: uuid.New(),
		Tracker:    tracker,
	})

	if len(tracker.inserted) != 2 {
		t.Fatalf("inserted = %v, want one record per launch", tracker.inserted)
	}
	sort.Strings(tracker.inserted)
	sort.Strings(tracker.removed)
	for i := range tracker.inserted {
		if tracker.inserted[i] != tracker.removed[i] {
			t.Errorf("every tracked container must be untracked, inserted %v removed %v",
				tracker.inserted, tracker.removed)
			break
		}
	}
}

func TestCopyDirectoryRequiresRecursive(t *testing.T) {
	run := newRun(t, newFakeRuntime(nil))

	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "inner.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := run.Copy(srcDir, "data", false); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("expected ErrIsDirectory, got %v", err)
	}

	if err := run.Copy(srcDir, "data", true); err != nil {
		t.Fatalf("recursive copy: %v", err)
	}
	if _, err := os.Stat(run.LocalPath("data/inner.txt")); err != nil {
		t.Errorf("tree not copied: %v", err)
	}
}

func TestCopyFile(t *testing.T) {
	run := newRun(t, newFakeRuntime(nil))

	src := filepath.Join(t.TempDir(), "names.txt")
	if err := os.WriteFile(src, []byte("Ann\nBob\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := run.Copy(src, "data/names.txt", false); err != nil {
		t.Fatalf("copy: %v", err)
	}
	data, err := os.ReadFile(run.LocalPath("data/names.txt"))
	if err != nil {
		t.Fatalf("read copied file: %v", err)
	}
	if string(data) != "Ann\nBob\n" {
		t.Errorf("copied content = %q", data)
	}
}

func TestBindDirsDiscovery(t *testing.T) {
	run := newRun(t, newFakeRuntime(nil))

	for _, name := range []string{"code", "data", "results"} {
		if err := os.MkdirAll(run.LocalPath(name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	// Файлы верхнего уровня томами не становятся.
	if err := os.WriteFile(run.LocalPath("notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := run.BindDirs(""); err != nil {
		t.Fatalf("bind dirs: %v", err)
	}

	var targets []string
	for _, v := range run.volumes {
		targets = append(targets, v.ContainerPath)
	}
	sort.Strings(targets)
	want := []string{"/code", "/data", "/results"}
	if len(targets) != len(want) {
		t.Fatalf("bound targets = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("bound targets = %v, want %v", targets, want)
			break
		}
	}
}

func TestClear(t *testing.T) {
	run := newRun(t, newFakeRuntime(nil))

	if err := os.MkdirAll(run.LocalPath("data"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(run.LocalPath("keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := run.Clear(false); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(run.LocalPath("data")); !os.IsNotExist(err) {
		t.Error("subdirectory must be removed")
	}
	if _, err := os.Stat(run.LocalPath("keep.txt")); err != nil {
		t.Error("top-level file must survive clear without eraseFiles")
	}

	if err := run.Clear(true); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(run.LocalPath("keep.txt")); !os.IsNotExist(err) {
		t.Error("top-level file must be removed with eraseFiles")
	}
}

func TestErase(t *testing.T) {
	run := newRun(t, newFakeRuntime(nil))
	basedir := run.Basedir()

	if err := run.Erase(); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if _, err := os.Stat(basedir); !os.IsNotExist(err) {
		t.Error("sandbox root must be gone")
	}
}
