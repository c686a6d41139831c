package executor

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки исполнения задач.
var (
	// ErrInvalidReference — ссылка на файл с нераспознанной схемой.
	ErrInvalidReference = errors.New("invalid file reference")

	// ErrMissingInput — входной файл не был опубликован предыдущими
	// задачами и не найден в хранилище.
	ErrMissingInput = errors.New("missing input file")
)

// ExecError — провал команд оператора внутри контейнера.
// Сообщение ошибки складывается из логов всех запусков.
type ExecError struct {
	OpID       string
	ReturnCode int
	Logs       []string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("operator %q failed with code %d:\n%s",
		e.OpID, e.ReturnCode, strings.Join(e.Logs, "\n"))
}
