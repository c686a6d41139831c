package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — экземпляр выполнения цепочки задач.
//
// Workflow создаётся диспетчером при отправке WorkflowRequest.
// Его агрегатный статус никогда не хранится как отдельное поле —
// он выводится из статусов задач (см. AggregateStatus).
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// IsRevoked — флаг отзыва. Установленный флаг означает, что
	// новые задачи этого workflow не должны начинать выполнение.
	IsRevoked bool `json:"is_revoked"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`
}

// WorkflowRequest — запрос на выполнение workflow.
//
// Workflow описывается как упорядоченный список задач. Порядок
// объявления используется диспетчером как подсказка для порядка
// постановки в очередь; данные между задачами передаются через
// контекст запуска (метки входов и выходов операторов).
type WorkflowRequest struct {
	// Tasks — упорядоченный список описаний задач.
	Tasks []TaskRequest `json:"tasks" yaml:"tasks"`
}

// TaskRequest — описание одной задачи в WorkflowRequest.
type TaskRequest struct {
	// Name — имя задачи (уникально в рамках запроса).
	Name string `json:"name" yaml:"name"`

	// Operator — идентификатор оператора в каталоге.
	Operator string `json:"operator" yaml:"operator"`

	// Params — значения параметров оператора.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Inputs — переопределения меток входных файлов.
	Inputs map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// WorkflowDescriptor — сводка по workflow для листингов.
//
// Строится группировкой задач по родительскому workflow;
// статус — агрегатный (см. AggregateStatus).
type WorkflowDescriptor struct {
	// WorkflowID — идентификатор workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — агрегатный статус.
	Status TaskStatus `json:"status"`

	// LastUpdate — время последнего изменения любой из задач.
	LastUpdate time.Time `json:"last_update"`
}

// RunningContainer — запись о работающем контейнере.
//
// Запись вставляется при старте контейнера и удаляется сразу после
// его завершения. Используется исключительно для поиска контейнеров,
// которые нужно остановить при отзыве workflow.
type RunningContainer struct {
	// WorkflowID — workflow, в рамках которого запущен контейнер.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// ContainerID — идентификатор контейнера в рантайме.
	ContainerID string `json:"container_id"`
}
