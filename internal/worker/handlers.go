package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/executor"
	"github.com/shaiso/Scena/internal/mq"
	"github.com/shaiso/Scena/internal/repo"
)

// handleTaskReady обрабатывает событие о новой задаче из tasks.ready.
func (w *Worker) handleTaskReady(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.TaskReadyPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse task.ready payload", "error", err)
		return err
	}

	w.logger.Debug("received task.ready event",
		"task_id", payload.TaskID,
		"workflow_id", payload.WorkflowID,
	)

	if err := w.processTask(ctx, payload.TaskID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrTaskNotPending) {
			w.logger.Debug("task not processed", "task_id", payload.TaskID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process task", "task_id", payload.TaskID, "error", err)
		return err
	}

	return nil
}

// processTask загружает задачу из БД, исполняет оператора и записывает
// результат.
func (w *Worker) processTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := w.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return fmt.Errorf("get task: %w", err)
	}

	if task.Status != domain.TaskStatusPending {
		return ErrTaskNotPending
	}

	wf, err := w.workflows.GetByID(ctx, task.WorkflowID)
	if err != nil {
		return fmt.Errorf("get workflow: %w", err)
	}
	if wf.IsRevoked {
		// Отозванный workflow не исполняет ожидающих задач; запись
		// закрывается, чтобы не висеть в выборке polling.
		task.MarkFailed(ErrWorkflowRevoked.Error())
		if err := w.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("close revoked task: %w", err)
		}
		w.logger.Info("task skipped, workflow revoked",
			"task_id", task.ID,
			"workflow_id", task.WorkflowID,
		)
		return nil
	}

	task.MarkRunning()
	if err := w.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("update task to running: %w", err)
	}

	w.logger.Info("task started",
		"task_id", task.ID,
		"workflow_id", task.WorkflowID,
		"name", task.Name,
		"operator", task.Operator,
	)

	taskCtx := executor.TaskContext{
		WorkflowID: task.WorkflowID,
		TaskID:     task.ID,
		Inputs:     task.Inputs,
	}
	result, execErr := w.executor.Execute(ctx, taskCtx, task.Operator, task.Params)

	if execErr != nil {
		task.MarkFailed(execErr.Error())
		if err := w.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("update task to failed: %w", err)
		}

		w.logger.Warn("task failed",
			"task_id", task.ID,
			"workflow_id", task.WorkflowID,
			"name", task.Name,
			"error", execErr,
		)
		return nil
	}

	task.MarkDone(result)
	if err := w.tasks.Update(ctx, task); err != nil {
		return fmt.Errorf("update task to done: %w", err)
	}

	w.logger.Info("task succeeded",
		"task_id", task.ID,
		"workflow_id", task.WorkflowID,
		"name", task.Name,
		"files", len(result.Files),
	)
	return nil
}
