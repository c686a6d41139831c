package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// SourceFetcher получает локальную копию дерева исходников операторов.
type SourceFetcher interface {
	// Fetch возвращает путь к локальной директории с исходниками и
	// функцию освобождения временных ресурсов.
	Fetch(ctx context.Context, source string) (dir string, cleanup func(), err error)
}

// LocalSource — SourceFetcher для директорий на локальном диске.
// Директория используется на месте, без копирования.
type LocalSource struct{}

// Fetch проверяет, что source — существующая директория.
func (LocalSource) Fetch(_ context.Context, source string) (string, func(), error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", nil, fmt.Errorf("source %q: %w", source, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("source %q is not a directory", source)
	}
	return source, func() {}, nil
}

// GitSource — SourceFetcher, клонирующий git-репозитории во временную
// директорию. Локальные директории пропускаются без клонирования.
type GitSource struct {
	// Binary — имя git-бинарника. По умолчанию "git".
	Binary string
}

// NewGitSource создаёт GitSource с бинарником git.
func NewGitSource() *GitSource {
	return &GitSource{Binary: "git"}
}

// Fetch клонирует репозиторий source во временную директорию.
// Если source — локальная директория, она используется на месте.
func (g *GitSource) Fetch(ctx context.Context, source string) (string, func(), error) {
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		return source, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "scena-clone-")
	if err != nil {
		return "", nil, fmt.Errorf("create clone dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	cmd := exec.CommandContext(ctx, g.Binary, "clone", "--depth", "1", source, dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("clone %q: %w: %s", source, err, strings.TrimSpace(stderr.String()))
	}
	return dir, cleanup, nil
}
