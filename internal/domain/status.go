package domain

// TaskStatus — статус выполнения задачи.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → DONE
//	                  ↘ FAILED
//
// DONE и FAILED — финальные статусы, обратных переходов нет.
type TaskStatus string

const (
	// TaskStatusPending — задача создана, но ещё не взята воркером.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusRunning — задача выполняется воркером.
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusDone — задача успешно завершена.
	TaskStatusDone TaskStatus = "DONE"

	// TaskStatusFailed — задача завершилась с ошибкой.
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// AggregateStatus выводит статус workflow из статусов его задач.
//
// Статус никогда не хранится отдельно — он вычисляется заново при
// каждом запросе. Правило: если все задачи в одном статусе, это и есть
// статус workflow; иначе, если хотя бы одна задача FAILED — FAILED;
// во всех остальных случаях — RUNNING. Ошибка таким образом видна
// сразу, не дожидаясь отстающих задач.
func AggregateStatus(statuses []TaskStatus) TaskStatus {
	if len(statuses) == 0 {
		return TaskStatusPending
	}

	distinct := make(map[TaskStatus]struct{}, 4)
	for _, s := range statuses {
		distinct[s] = struct{}{}
	}

	if len(distinct) == 1 {
		return statuses[0]
	}
	if _, ok := distinct[TaskStatusFailed]; ok {
		return TaskStatusFailed
	}
	return TaskStatusRunning
}
