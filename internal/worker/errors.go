package worker

import "errors"

// Ошибки воркера.
var (
	// ErrTaskNotFound — задача не найдена в БД.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotPending — задача не в статусе PENDING.
	ErrTaskNotPending = errors.New("task is not in PENDING status")

	// ErrWorkflowRevoked — родительский workflow отозван.
	ErrWorkflowRevoked = errors.New("workflow is revoked")
)
