package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Ошибки хранилища.
var (
	// ErrNoResource — файл не найден в хранилище.
	ErrNoResource = errors.New("no such resource")
)

// Store — область хранения файлов.
//
// Фасад хранения различает три логические области: глобальный каталог
// данных (store), постоянная директория workflow-запуска (rundir) и
// таблица обмена между задачами (context, см. Exchange). Первые две
// реализуют этот интерфейс.
type Store interface {
	// GetFile возвращает локальный путь файла, хранящегося под именем name.
	// Возвращает ErrNoResource, если файла нет.
	GetFile(ctx context.Context, name string) (string, error)

	// PutFile сохраняет локальный файл src под именем dst.
	// Возвращает местоположение сохранённого файла.
	PutFile(ctx context.Context, src, dst string) (string, error)
}

// FolderStore — файловая реализация Store поверх одной директории.
type FolderStore struct {
	basedir string
}

// NewFolderStore создаёт FolderStore с корнем в basedir.
// Директория создаётся, если её нет.
func NewFolderStore(basedir string) (*FolderStore, error) {
	if err := os.MkdirAll(basedir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FolderStore{basedir: basedir}, nil
}

// GetFile возвращает путь файла под именем name.
func (s *FolderStore) GetFile(_ context.Context, name string) (string, error) {
	path := filepath.Join(s.basedir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrNoResource, name)
	}
	return path, nil
}

// PutFile копирует src в хранилище под именем dst.
func (s *FolderStore) PutFile(_ context.Context, src, dst string) (string, error) {
	target := filepath.Join(s.basedir, dst)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := copyFile(src, target); err != nil {
		return "", fmt.Errorf("put file: %w", err)
	}
	return target, nil
}

// copyFile копирует обычный файл с сохранением прав доступа.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
