package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Scena/internal/catalog"
	"github.com/shaiso/Scena/internal/dispatch"
	"github.com/shaiso/Scena/internal/mq"
	"github.com/shaiso/Scena/internal/orchestrator"
	"github.com/shaiso/Scena/internal/repo"
	"github.com/shaiso/Scena/internal/sandbox"
)

// App — связка зависимостей CLI.
//
// CLI работает напрямую с базой данных и брокером. Если брокер
// недоступен, отправка workflow всё равно работает: воркеры подберут
// задачи через polling.
type App struct {
	Workflows  *repo.WorkflowRepo
	Tasks      *repo.TaskRepo
	Schedules  *repo.ScheduleRepo
	Registry   *catalog.PersistentRegistry
	Dispatcher dispatch.Dispatcher
	Monitor    *orchestrator.Monitor

	pool *pgxpool.Pool
	conn *mq.Connection
}

// Connect подключается к базе данных и брокеру и собирает App.
func Connect(ctx context.Context, logger *slog.Logger) (*App, error) {
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	workflows := repo.NewWorkflowRepo(pool)
	tasks := repo.NewTaskRepo(pool)
	containers := repo.NewContainerRepo(pool)
	ops := repo.NewOpRepo(pool)
	schedules := repo.NewScheduleRepo(pool)

	app := &App{
		Workflows: workflows,
		Tasks:     tasks,
		Schedules: schedules,
		Registry:  catalog.NewPersistentRegistry(ops),
		Monitor:   orchestrator.New(workflows, tasks, containers, sandbox.NewDockerCLI()),
		pool:      pool,
	}

	conn, err := mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, workers will rely on polling", "error", err)
		app.Dispatcher = dispatch.NewAMQPDispatcher(workflows, tasks, dispatch.NopPublisher{})
		return app, nil
	}

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}

	app.conn = conn
	app.Dispatcher = dispatch.NewAMQPDispatcher(workflows, tasks, mq.NewPublisher(conn, logger))
	return app, nil
}

// Close освобождает соединения.
func (a *App) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
	a.pool.Close()
}
