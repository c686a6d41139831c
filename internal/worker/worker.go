package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/executor"
	"github.com/shaiso/Scena/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 1
)

// taskStore — записи задач, нужные воркеру.
type taskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	ListPending(ctx context.Context, limit int) ([]domain.Task, error)
}

// workflowStore — записи workflow, нужные воркеру.
type workflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// taskExecutor — исполнение оператора задачи.
// Реализуется executor.Executor.
type taskExecutor interface {
	Execute(ctx context.Context, taskCtx executor.TaskContext, opID string, args map[string]any) (*domain.TaskResult, error)
}

// Worker выполняет отдельные задачи workflow.
type Worker struct {
	tasks     taskStore
	workflows workflowStore
	executor  taskExecutor

	conn     *mq.Connection
	consumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	Tasks     taskStore
	Workflows workflowStore
	Executor  taskExecutor

	// Conn — соединение с брокером. Если nil, воркер работает только
	// через polling.
	Conn *mq.Connection

	// PollInterval — интервал polling fallback (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество задач за один poll (default: 50).
	BatchSize int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		tasks:        cfg.Tasks,
		workflows:    cfg.Workflows,
		executor:     cfg.Executor,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для tasks.ready (если есть соединение с брокером)
//   - Polling горутину для fallback
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueTasksReady),
			Handler:  w.handleTaskReady,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("task consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем задачи, созданные
	// пока воркер был выключен).
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	tasks, err := w.tasks.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending tasks", "error", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	w.logger.Debug("poll found pending tasks", "count", len(tasks))

	for i := range tasks {
		if err := w.processTask(ctx, tasks[i].ID); err != nil {
			if errors.Is(err, ErrTaskNotPending) {
				continue
			}
			w.logger.Error("failed to process task from poll",
				"task_id", tasks[i].ID,
				"error", err,
			)
		}
	}
}
