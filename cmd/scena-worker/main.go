// Scena Worker — выполняет отдельные задачи workflow.
//
// Worker:
//   - Получает задачи из RabbitMQ (tasks.ready)
//   - Периодически проверяет PENDING задачи в БД (polling fallback)
//   - Исполняет оператора задачи в docker-контейнере
//   - Записывает результат в БД
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Scena/internal/catalog"
	"github.com/shaiso/Scena/internal/executor"
	"github.com/shaiso/Scena/internal/mq"
	"github.com/shaiso/Scena/internal/repo"
	"github.com/shaiso/Scena/internal/sandbox"
	"github.com/shaiso/Scena/internal/storage"
	"github.com/shaiso/Scena/internal/telemetry"
	"github.com/shaiso/Scena/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting scena-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	taskRepo := repo.NewTaskRepo(pool)
	workflowRepo := repo.NewWorkflowRepo(pool)
	opRepo := repo.NewOpRepo(pool)
	containerRepo := repo.NewContainerRepo(pool)
	resourceRepo := repo.NewResourceRepo(pool)

	// Рабочая область воркера
	basedir := os.Getenv("SCENA_WORKDIR")
	if basedir == "" {
		basedir = filepath.Join(os.TempDir(), "scena")
	}
	workspace, err := storage.NewWorkspace(basedir)
	if err != nil {
		logger.Error("failed to create workspace", "error", err)
		os.Exit(1)
	}
	defer workspace.Cleanup()

	// Глобальный каталог файлов: S3, если сконфигурирован
	if os.Getenv("S3_ENDPOINT") != "" {
		staging, err := workspace.Tmpdir()
		if err != nil {
			logger.Error("failed to create staging dir", "error", err)
			os.Exit(1)
		}
		global, err := storage.NewS3Store(ctx, storage.S3ConfigFromEnv(), staging)
		if err != nil {
			logger.Error("failed to connect to S3", "error", err)
			os.Exit(1)
		}
		workspace.SetGlobal(global)
		logger.Info("S3 store connected")
	}

	// Обмен ресурсами между задачами — через таблицу resources,
	// общую для всех воркеров.
	exchange := storage.NewDurableExchange(resourceRepo, repo.ErrNotFound)

	exec := executor.New(
		catalog.NewPersistentRegistry(opRepo),
		workspace,
		exchange,
		sandbox.NewDockerCLI(),
		containerRepo,
	)

	// RabbitMQ
	var mqConn *mq.Connection
	mqConn, err = mq.NewConnection(mq.URL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	// Создаём worker
	w := worker.New(worker.Config{
		Tasks:     taskRepo,
		Workflows: workflowRepo,
		Executor:  exec,
		Conn:      mqConn,
		Logger:    logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("scena-worker stopped")
}
