package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Workspace — рабочая область воркера на локальном диске.
//
// Раскладка под basedir:
//
//	store/        глобальный каталог данных (если не заменён на S3)
//	run/<id>/     постоянная директория workflow-запуска
//	context/<id>/ файлы, опубликованные задачами для последующих задач
//	tmp/          временные директории песочниц
type Workspace struct {
	basedir string
	global  Store

	mu      sync.Mutex
	tmpdirs []string
}

// NewWorkspace создаёт Workspace с корнем в basedir.
// Глобальным хранилищем по умолчанию служит файловый store/;
// его можно заменить через SetGlobal (например, на S3Store).
func NewWorkspace(basedir string) (*Workspace, error) {
	if err := os.MkdirAll(basedir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	global, err := NewFolderStore(filepath.Join(basedir, "store"))
	if err != nil {
		return nil, err
	}
	return &Workspace{basedir: basedir, global: global}, nil
}

// SetGlobal заменяет глобальное хранилище.
func (w *Workspace) SetGlobal(s Store) {
	w.global = s
}

// Global возвращает глобальное хранилище данных.
func (w *Workspace) Global() Store {
	return w.global
}

// RunStore возвращает хранилище постоянной директории workflow-запуска.
func (w *Workspace) RunStore(workflowID uuid.UUID) (Store, error) {
	return NewFolderStore(filepath.Join(w.basedir, "run", workflowID.String()))
}

// ContextDir возвращает директорию обмена файлами между задачами workflow.
// Файлы, опубликованные под метками, копируются сюда перед уничтожением
// песочницы, чтобы пережить её.
func (w *Workspace) ContextDir(workflowID uuid.UUID) (string, error) {
	dir := filepath.Join(w.basedir, "context", workflowID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create context dir: %w", err)
	}
	return dir, nil
}

// Tmpdir создаёт новую временную директорию для песочницы.
// Все созданные директории удаляются при Cleanup.
func (w *Workspace) Tmpdir() (string, error) {
	base := filepath.Join(w.basedir, "tmp")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}
	dir := filepath.Join(base, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	w.mu.Lock()
	w.tmpdirs = append(w.tmpdirs, dir)
	w.mu.Unlock()
	return dir, nil
}

// Cleanup удаляет все временные директории, выданные через Tmpdir.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	dirs := w.tmpdirs
	w.tmpdirs = nil
	w.mu.Unlock()

	var firstErr error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove tmpdir %q: %w", dir, err)
		}
	}
	return firstErr
}

// PurgeContext удаляет директорию обмена завершённого workflow.
func (w *Workspace) PurgeContext(workflowID uuid.UUID) error {
	dir := filepath.Join(w.basedir, "context", workflowID.String())
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge context dir: %w", err)
	}
	return nil
}
