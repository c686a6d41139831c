package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — отдельная единица работы внутри workflow.
//
// Task создаётся диспетчером при отправке workflow на выполнение
// и выполняется воркером: воркер разрешает оператора по идентификатору,
// запускает его в контейнере и записывает результат.
type Task struct {
	// ID — уникальный идентификатор задачи.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на родительский workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Name — имя задачи в рамках workflow (из WorkflowRequest).
	Name string `json:"name"`

	// Operator — идентификатор оператора в каталоге
	// (например, "demo.hello-world.SayHello").
	Operator string `json:"operator"`

	// Params — значения параметров для подстановки в команды оператора.
	Params map[string]any `json:"params,omitempty"`

	// Inputs — переопределения меток входных файлов (метка → ссылка
	// вида scheme::identifier). Необязательны: обычно привязки входов
	// целиком описаны в спецификации оператора.
	Inputs map[string]string `json:"inputs,omitempty"`

	// Status — текущий статус задачи.
	Status TaskStatus `json:"status"`

	// Result — результат выполнения. Заполняется воркером при переходе
	// в финальный статус.
	Result *TaskResult `json:"result,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания задачи.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения статуса.
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskResult — результат выполнения задачи.
type TaskResult struct {
	// Files — местоположения файлов, произведённых задачей.
	Files []string `json:"files,omitempty"`

	// Message — текст ошибки при неудаче (склеенные логи контейнера).
	Message string `json:"message,omitempty"`
}

// IsFinished возвращает true, если задача завершена.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkRunning переводит задачу в статус RUNNING.
func (t *Task) MarkRunning() {
	now := time.Now()
	t.Status = TaskStatusRunning
	t.StartedAt = &now
	t.UpdatedAt = now
}

// MarkDone переводит задачу в статус DONE с результатом.
func (t *Task) MarkDone(result *TaskResult) {
	now := time.Now()
	t.Status = TaskStatusDone
	t.Result = result
	t.FinishedAt = &now
	t.UpdatedAt = now
}

// MarkFailed переводит задачу в статус FAILED с сообщением об ошибке.
func (t *Task) MarkFailed(message string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.Result = &TaskResult{Message: message}
	t.FinishedAt = &now
	t.UpdatedAt = now
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если задача ещё не завершена.
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}
