package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Scena/internal/catalog"
	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/engine"
	"github.com/shaiso/Scena/internal/sandbox"
	"github.com/shaiso/Scena/internal/storage"
	"github.com/shaiso/Scena/internal/telemetry"
)

// Схемы адресации файлов в привязках операторов.
const (
	schemeStore   = "store::"
	schemeRundir  = "rundir::"
	schemeContext = "context::"
	schemeURL     = "url::"
)

// TaskContext — привязка одного исполнения к workflow и задаче.
type TaskContext struct {
	WorkflowID uuid.UUID
	TaskID     uuid.UUID

	// Inputs — переопределения источников входных файлов по меткам:
	// метка context-привязки заменяется ссылкой из запроса задачи.
	Inputs map[string]string
}

// Executor — универсальный исполнитель задач.
//
// Любой зарегистрированный оператор исполняется одним и тем же путём:
// спецификация из каталога, песочница из рабочей области, входы по
// схемам адресации, подстановка параметров, контейнерные запуски и
// разнос результатов по хранилищам.
type Executor struct {
	registry  catalog.Registry
	workspace *storage.Workspace
	exchange  storage.Exchange
	runtime   sandbox.ContainerRuntime
	tracker   sandbox.ContainerTracker
}

// New создаёт Executor. tracker может быть nil, тогда контейнеры не
// учитываются и отзыв workflow их не остановит.
func New(registry catalog.Registry, workspace *storage.Workspace, exchange storage.Exchange,
	runtime sandbox.ContainerRuntime, tracker sandbox.ContainerTracker) *Executor {
	if tracker == nil {
		tracker = sandbox.NopTracker{}
	}
	return &Executor{
		registry:  registry,
		workspace: workspace,
		exchange:  exchange,
		runtime:   runtime,
		tracker:   tracker,
	}
}

// Execute исполняет оператор opID с аргументами args в контексте задачи.
//
// Возвращает результат с местоположениями всех сохранённых выходных
// файлов. Провал команд оператора возвращается как *ExecError с
// объединёнными логами; отсутствие оператора, входного файла или
// непригодное значение параметра — как соответствующая ошибка без
// запуска контейнеров.
func (e *Executor) Execute(ctx context.Context, taskCtx TaskContext, opID string, args map[string]any) (*domain.TaskResult, error) {
	log := telemetry.WithOperator(telemetry.FromContext(ctx), opID)
	ctx = telemetry.WithLogger(ctx, log)

	spec, err := e.registry.GetOp(ctx, opID)
	if err != nil {
		return nil, err
	}

	tmpdir, err := e.workspace.Tmpdir()
	if err != nil {
		return nil, err
	}
	run, err := sandbox.NewRun(tmpdir, e.runtime)
	if err != nil {
		return nil, err
	}
	log.Debug("sandbox created", "basedir", run.Basedir())

	runStore, err := e.workspace.RunStore(taskCtx.WorkflowID)
	if err != nil {
		return nil, err
	}

	for _, file := range spec.Files.Inputs {
		if err := e.copyInputFile(ctx, run, runStore, taskCtx, file); err != nil {
			return nil, err
		}
	}
	if err := createOutputFolders(run, spec); err != nil {
		return nil, err
	}

	commands, err := renderCommands(spec, args)
	if err != nil {
		return nil, err
	}

	result := run.Exec(ctx, sandbox.ExecOptions{
		Image:      spec.Image,
		Commands:   commands,
		Env:        spec.Env,
		BindDirs:   true,
		Remove:     true,
		WorkflowID: taskCtx.WorkflowID,
		Tracker:    e.tracker,
	})
	if !result.Success() {
		return nil, &ExecError{OpID: opID, ReturnCode: result.ReturnCode, Logs: result.Logs}
	}

	var files []string
	for _, file := range spec.Files.Outputs {
		locations, err := e.handleResultFile(ctx, run, runStore, taskCtx, file)
		if err != nil {
			return nil, err
		}
		files = append(files, locations...)
	}

	if err := run.Erase(); err != nil {
		log.Warn("sandbox erase failed", "error", err)
	}
	return &domain.TaskResult{Files: files}, nil
}

// copyInputFile разрешает ссылку входной привязки по схеме адресации и
// копирует файл в песочницу.
func (e *Executor) copyInputFile(ctx context.Context, run *sandbox.Run, runStore storage.Store,
	taskCtx TaskContext, file catalog.InputFile) error {
	src := file.Src
	if strings.HasPrefix(src, schemeContext) {
		label := strings.TrimPrefix(src, schemeContext)
		if override, ok := taskCtx.Inputs[label]; ok {
			src = override
		}
	}

	local, err := e.resolveReference(ctx, runStore, taskCtx.WorkflowID, src)
	if err != nil {
		return err
	}
	if err := run.Copy(local, file.Dst, false); err != nil {
		return fmt.Errorf("stage input %q: %w", file.Src, err)
	}
	return nil
}

// resolveReference возвращает локальный путь файла по ссылке вида
// "<схема>::<идентификатор>".
func (e *Executor) resolveReference(ctx context.Context, runStore storage.Store,
	workflowID uuid.UUID, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, schemeContext):
		label := strings.TrimPrefix(ref, schemeContext)
		local, err := e.exchange.Resolve(ctx, workflowID, label)
		if err != nil {
			return "", fmt.Errorf("%w: label %q", ErrMissingInput, label)
		}
		return local, nil
	case strings.HasPrefix(ref, schemeStore):
		local, err := e.workspace.Global().GetFile(ctx, strings.TrimPrefix(ref, schemeStore))
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrMissingInput, ref)
		}
		return local, nil
	case strings.HasPrefix(ref, schemeRundir):
		local, err := runStore.GetFile(ctx, strings.TrimPrefix(ref, schemeRundir))
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrMissingInput, ref)
		}
		return local, nil
	case strings.HasPrefix(ref, schemeURL):
		return "", fmt.Errorf("url references are not supported yet: %q", ref)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
}

// handleResultFile разносит выходной файл по объявленным назначениям и
// возвращает местоположения сохранённых копий.
func (e *Executor) handleResultFile(ctx context.Context, run *sandbox.Run, runStore storage.Store,
	taskCtx TaskContext, file catalog.OutputFile) ([]string, error) {
	produced := run.LocalPath(file.Src)
	if _, err := os.Stat(produced); err != nil {
		return nil, fmt.Errorf("declared output %q was not produced: %w", file.Src, err)
	}

	var locations []string
	for _, dst := range file.Dst {
		switch {
		case strings.HasPrefix(dst, schemeStore):
			location, err := e.workspace.Global().PutFile(ctx, produced, strings.TrimPrefix(dst, schemeStore))
			if err != nil {
				return nil, err
			}
			locations = append(locations, location)
		case strings.HasPrefix(dst, schemeRundir):
			location, err := runStore.PutFile(ctx, produced, strings.TrimPrefix(dst, schemeRundir))
			if err != nil {
				return nil, err
			}
			locations = append(locations, location)
		case strings.HasPrefix(dst, schemeContext):
			label := strings.TrimPrefix(dst, schemeContext)
			location, err := e.publishToContext(ctx, taskCtx.WorkflowID, produced, label)
			if err != nil {
				return nil, err
			}
			locations = append(locations, location)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidReference, dst)
		}
	}
	return locations, nil
}

// publishToContext сохраняет файл в директории обмена workflow и
// публикует его местоположение под меткой. Копия обязательна: песочница
// будет уничтожена, а потребители метки ещё не запускались.
func (e *Executor) publishToContext(ctx context.Context, workflowID uuid.UUID, produced, label string) (string, error) {
	contextDir, err := e.workspace.ContextDir(workflowID)
	if err != nil {
		return "", err
	}
	target := filepath.Join(contextDir, label)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create context dir for %q: %w", label, err)
	}

	data, err := os.ReadFile(produced)
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("save output under label %q: %w", label, err)
	}

	if err := e.exchange.Publish(ctx, workflowID, label, target); err != nil {
		return "", err
	}
	return target, nil
}

// createOutputFolders создаёт родительские директории всех объявленных
// выходов, чтобы привязать их томами до запуска контейнера.
func createOutputFolders(run *sandbox.Run, spec *catalog.OperatorSpec) error {
	for _, file := range spec.Files.Outputs {
		parent := filepath.Dir(run.LocalPath(file.Src))
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create output dir for %q: %w", file.Src, err)
		}
	}
	return nil
}

// renderCommands приводит аргументы к объявленным типам параметров и
// подставляет их в команды оператора.
func renderCommands(spec *catalog.OperatorSpec, args map[string]any) ([]string, error) {
	values := make(map[string]string, len(spec.Parameters))
	for _, param := range spec.Parameters {
		value, err := engine.CoerceParameter(param.Type, args[param.Name], param.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", param.Name, err)
		}
		values[param.Name] = value
	}

	commands, err := engine.SubstituteAll(spec.Commands, values)
	if err != nil {
		return nil, err
	}
	for i := range commands {
		commands[i] = strings.TrimSpace(commands[i])
	}
	return commands, nil
}
