package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	return string(data)
}

func TestFolderStorePutGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewFolderStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	src := filepath.Join(t.TempDir(), "data.txt")
	writeFile(t, src, "payload")

	location, err := store.PutFile(ctx, src, "nested/data.txt")
	if err != nil {
		t.Fatalf("put file: %v", err)
	}
	if readFile(t, location) != "payload" {
		t.Errorf("stored content mismatch")
	}

	got, err := store.GetFile(ctx, "nested/data.txt")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if readFile(t, got) != "payload" {
		t.Errorf("retrieved content mismatch")
	}
}

func TestFolderStoreGetMissing(t *testing.T) {
	store, err := NewFolderStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	_, err = store.GetFile(context.Background(), "absent.txt")
	if !errors.Is(err, ErrNoResource) {
		t.Errorf("expected ErrNoResource, got %v", err)
	}
}

func TestWorkspaceTmpdirCleanup(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	dir1, err := ws.Tmpdir()
	if err != nil {
		t.Fatalf("tmpdir: %v", err)
	}
	dir2, err := ws.Tmpdir()
	if err != nil {
		t.Fatalf("tmpdir: %v", err)
	}
	if dir1 == dir2 {
		t.Fatalf("tmpdirs must be distinct")
	}

	writeFile(t, filepath.Join(dir1, "scratch.txt"), "x")

	if err := ws.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	for _, dir := range []string{dir1, dir2} {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("tmpdir %q not removed", dir)
		}
	}
}

func TestWorkspaceRunStoreIsolation(t *testing.T) {
	ctx := context.Background()
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	src := filepath.Join(t.TempDir(), "out.txt")
	writeFile(t, src, "result")

	wfA := uuid.New()
	wfB := uuid.New()

	runA, err := ws.RunStore(wfA)
	if err != nil {
		t.Fatalf("run store: %v", err)
	}
	if _, err := runA.PutFile(ctx, src, "out.txt"); err != nil {
		t.Fatalf("put file: %v", err)
	}

	runB, err := ws.RunStore(wfB)
	if err != nil {
		t.Fatalf("run store: %v", err)
	}
	if _, err := runB.GetFile(ctx, "out.txt"); !errors.Is(err, ErrNoResource) {
		t.Errorf("run dirs must be isolated per workflow, got %v", err)
	}
}

func TestMemExchange(t *testing.T) {
	ctx := context.Background()
	ex := NewMemExchange()
	wf := uuid.New()

	if _, err := ex.Resolve(ctx, wf, "names"); !errors.Is(err, ErrNoResource) {
		t.Errorf("expected ErrNoResource, got %v", err)
	}

	if err := ex.Publish(ctx, wf, "names", "/data/names.txt"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, err := ex.Resolve(ctx, wf, "names")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "/data/names.txt" {
		t.Errorf("resolve = %q", got)
	}

	// Повторная публикация перезаписывает запись.
	if err := ex.Publish(ctx, wf, "names", "/data/other.txt"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got, _ = ex.Resolve(ctx, wf, "names")
	if got != "/data/other.txt" {
		t.Errorf("resolve after republish = %q", got)
	}

	// Метки других workflow не видны.
	if _, err := ex.Resolve(ctx, uuid.New(), "names"); !errors.Is(err, ErrNoResource) {
		t.Errorf("labels must be scoped per workflow, got %v", err)
	}
}

type notFoundExchange struct {
	sentinel error
}

func (e notFoundExchange) Publish(context.Context, uuid.UUID, string, string) error {
	return nil
}

func (e notFoundExchange) Resolve(context.Context, uuid.UUID, string) (string, error) {
	return "", e.sentinel
}

func TestDurableExchangeMapsNotFound(t *testing.T) {
	sentinel := errors.New("record not found")
	ex := NewDurableExchange(notFoundExchange{sentinel: sentinel}, sentinel)

	_, err := ex.Resolve(context.Background(), uuid.New(), "names")
	if !errors.Is(err, ErrNoResource) {
		t.Errorf("expected ErrNoResource, got %v", err)
	}
}
