package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/telemetry"
)

// ErrIsDirectory — источник копирования является директорией,
// а рекурсивное копирование не запрошено.
var ErrIsDirectory = errors.New("source is a directory")

// Run — песочница одного контейнерного запуска.
//
// Песочница одноразовая: подготовка (Copy, Bind*), затем Exec, затем
// Erase. Повторное использование после Erase не поддерживается.
type Run struct {
	basedir string
	runtime ContainerRuntime
	volumes []VolumeBind
}

// NewRun создаёт песочницу с корнем в существующей директории basedir.
func NewRun(basedir string, rt ContainerRuntime) (*Run, error) {
	info, err := os.Stat(basedir)
	if err != nil {
		return nil, fmt.Errorf("sandbox basedir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox basedir %q is not a directory", basedir)
	}
	return &Run{basedir: basedir, runtime: rt}, nil
}

// Basedir возвращает корень песочницы.
func (r *Run) Basedir() string {
	return r.basedir
}

// LocalPath возвращает абсолютный путь внутри песочницы.
func (r *Run) LocalPath(relpath string) string {
	return filepath.Join(r.basedir, relpath)
}

// Copy копирует файл src извне песочницы в песочницу по относительному
// пути dst. Пустой dst означает имя src в корне песочницы. Директории
// копируются только при recursive = true, иначе ErrIsDirectory.
func (r *Run) Copy(src, dst string, recursive bool) error {
	if dst == "" {
		dst = filepath.Base(src)
	}
	target := filepath.Join(r.basedir, dst)

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy into sandbox: %w", err)
	}
	if info.IsDir() {
		if !recursive {
			return fmt.Errorf("%w: %q", ErrIsDirectory, src)
		}
		return copyTree(src, target)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("copy into sandbox: %w", err)
	}
	return copyRegular(src, target, info.Mode().Perm())
}

// Bind регистрирует директорию песочницы path как том контейнера по
// пути target. При create = true директория создаётся.
func (r *Run) Bind(path, target string, create bool) error {
	local := filepath.Join(r.basedir, path)
	if create {
		if err := os.MkdirAll(local, 0o755); err != nil {
			return fmt.Errorf("bind %q: %w", path, err)
		}
	}
	r.volumes = append(r.volumes, VolumeBind{HostPath: local, ContainerPath: target})
	return nil
}

// BindBase привязывает корень песочницы целиком по пути target.
func (r *Run) BindBase(target string) {
	r.volumes = append(r.volumes, VolumeBind{HostPath: r.basedir, ContainerPath: target})
}

// BindDirs находит все директории первого уровня под root (по умолчанию
// корень песочницы) и привязывает каждую под её собственным именем.
// Так соглашения вида code/data/results становятся томами контейнера
// без отдельных объявлений.
func (r *Run) BindDirs(root string) error {
	if root == "" {
		root = r.basedir
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("bind dirs: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r.volumes = append(r.volumes, VolumeBind{
			HostPath:      filepath.Join(root, entry.Name()),
			ContainerPath: "/" + entry.Name(),
		})
	}
	return nil
}

// Clear удаляет поддиректории песочницы; при eraseFiles удаляются и
// файлы верхнего уровня. Привязки томов остаются.
func (r *Run) Clear(eraseFiles bool) error {
	entries, err := os.ReadDir(r.basedir)
	if err != nil {
		return fmt.Errorf("clear sandbox: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && !eraseFiles {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.basedir, entry.Name())); err != nil {
			return fmt.Errorf("clear sandbox: %w", err)
		}
	}
	return nil
}

// Erase рекурсивно удаляет корень песочницы. Вызывается только после
// того, как все нужные результаты скопированы наружу.
func (r *Run) Erase() error {
	if err := os.RemoveAll(r.basedir); err != nil {
		return fmt.Errorf("erase sandbox: %w", err)
	}
	return nil
}

// ExecOptions — параметры серии контейнерных запусков.
type ExecOptions struct {
	// Image — образ контейнера.
	Image string

	// Commands — shell-команды; каждая исполняется отдельным запуском
	// контейнера с одними и теми же томами, по порядку, до первой
	// завершившейся ненулевым кодом.
	Commands []string

	// Env — переменные окружения контейнеров.
	Env map[string]string

	// BindDirs — перед запуском привязать все директории первого
	// уровня песочницы (см. BindDirs).
	BindDirs bool

	// Remove — удалять контейнер после завершения.
	Remove bool

	// WorkflowID — идентификатор workflow для учёта контейнеров.
	WorkflowID uuid.UUID

	// Tracker — учёт работающих контейнеров. Запись вставляется сразу
	// после создания контейнера и удаляется сразу после завершения
	// ожидания: в этом окне отзыв workflow может остановить контейнер.
	Tracker ContainerTracker
}

// Exec выполняет команды по порядку, останавливаясь на первой
// провалившейся. Инфраструктурный сбой не возвращается как ошибка:
// он поглощается в результат с ReturnCode = 1 и трассировкой в Logs.
func (r *Run) Exec(ctx context.Context, opts ExecOptions) *ExecResult {
	log := telemetry.FromContext(ctx)

	if opts.BindDirs {
		if err := r.BindDirs(""); err != nil {
			return &ExecResult{ReturnCode: 1, Logs: []string{stacktrace(err)}, Err: err}
		}
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NopTracker{}
	}

	result := &ExecResult{}
	for _, command := range opts.Commands {
		code, logs, err := r.execOne(ctx, command, opts, tracker)
		if err == nil {
			result.Logs = append(result.Logs, logs)
		}
		if err != nil {
			log.Error("container run failed", "image", opts.Image, "error", err)
			result.ReturnCode = 1
			result.Err = err
			result.Logs = append(result.Logs, stacktrace(err))
			return result
		}
		if code != 0 {
			log.Info("command exited non-zero", "image", opts.Image, "code", code)
			result.ReturnCode = code
			return result
		}
	}
	return result
}

// execOne проводит одну команду через полный жизненный цикл контейнера.
func (r *Run) execOne(ctx context.Context, command string, opts ExecOptions, tracker ContainerTracker) (int, string, error) {
	log := telemetry.FromContext(ctx)

	containerID, err := r.runtime.Create(ctx, opts.Image, command, r.volumes, opts.Env)
	if err != nil {
		return 0, "", fmt.Errorf("create container: %w", err)
	}
	log.Debug("container created", "container_id", shortID(containerID), "command", command)

	if err := tracker.Insert(ctx, opts.WorkflowID, containerID); err != nil {
		slog.Warn("container tracking insert failed", "error", err)
	}
	defer func() {
		if err := tracker.Remove(ctx, opts.WorkflowID, containerID); err != nil {
			slog.Warn("container tracking remove failed", "error", err)
		}
	}()
	if opts.Remove {
		defer func() {
			if err := r.runtime.Remove(ctx, containerID); err != nil {
				slog.Warn("container remove failed", "container_id", shortID(containerID), "error", err)
			}
		}()
	}

	if err := r.runtime.Start(ctx, containerID); err != nil {
		return 0, "", fmt.Errorf("start container: %w", err)
	}
	code, err := r.runtime.Wait(ctx, containerID)
	if err != nil {
		return 0, "", fmt.Errorf("wait container: %w", err)
	}
	logs, err := r.runtime.Logs(ctx, containerID)
	if err != nil {
		return 0, "", fmt.Errorf("fetch container logs: %w", err)
	}
	return code, logs, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// --- Копирование файлов ---

func copyRegular(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy into sandbox: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("copy into sandbox: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy into sandbox: %w", err)
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(path, src)
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyRegular(path, target, info.Mode().Perm())
	})
}
