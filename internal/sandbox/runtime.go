package sandbox

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
)

// VolumeBind — привязка директории хоста к пути в контейнере.
type VolumeBind struct {
	HostPath      string
	ContainerPath string
}

// ContainerRuntime — контейнерный рантайм, в котором исполняются команды.
//
// Каждая команда проходит полный жизненный цикл: Create → Start → Wait →
// Logs → Remove. Stop используется только при отзыве workflow.
type ContainerRuntime interface {
	// Create создаёт контейнер под одну shell-команду и возвращает его ID.
	Create(ctx context.Context, image, command string, volumes []VolumeBind, env map[string]string) (string, error)

	// Start запускает созданный контейнер.
	Start(ctx context.Context, containerID string) error

	// Wait блокируется до завершения контейнера и возвращает код выхода.
	Wait(ctx context.Context, containerID string) (int, error)

	// Logs возвращает объединённый stdout и stderr контейнера.
	Logs(ctx context.Context, containerID string) (string, error)

	// Stop останавливает работающий контейнер.
	Stop(ctx context.Context, containerID string) error

	// Remove удаляет контейнер.
	Remove(ctx context.Context, containerID string) error
}

// ContainerTracker — учёт работающих контейнеров по workflow.
// Реализуется repo.ContainerRepo; по этим записям отзыв workflow
// находит контейнеры для остановки.
type ContainerTracker interface {
	Insert(ctx context.Context, workflowID uuid.UUID, containerID string) error
	Remove(ctx context.Context, workflowID uuid.UUID, containerID string) error
}

// NopTracker — заглушка ContainerTracker для запусков вне workflow.
type NopTracker struct{}

func (NopTracker) Insert(context.Context, uuid.UUID, string) error { return nil }
func (NopTracker) Remove(context.Context, uuid.UUID, string) error { return nil }

// stacktrace форматирует ошибку вместе со стеком вызовов текущей
// горутины для записи в логи результата.
func stacktrace(err error) string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return fmt.Sprintf("%v\n%s", err, buf[:n])
}
