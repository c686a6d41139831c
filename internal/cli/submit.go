package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/orchestrator"
)

// NewSubmitCmd создаёт команду отправки workflow.
func NewSubmitCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	var watch bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Submit a workflow described in a YAML file",
		Long: "Submit reads a workflow request (an ordered list of tasks)\n" +
			"from FILE and hands it to the dispatcher. With --watch the\n" +
			"command blocks until the workflow finishes and reports the\n" +
			"failed task, if any.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			req, err := readRequest(args[0])
			if err != nil {
				return err
			}

			workflowID, err := app.Dispatcher.Submit(cmd.Context(), *req)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Workflow submitted: %s", workflowID))

			if !watch {
				return nil
			}

			tasks, err := app.Monitor.Run(cmd.Context(), workflowID, orchestrator.RunOptions{
				PollInterval: pollInterval,
				Verbose:      true,
				RaiseError:   true,
			})
			if err != nil {
				if errors.Is(err, orchestrator.ErrTaskFailed) {
					printTasks(out, tasks)
				}
				return err
			}

			out.Success("Workflow finished")
			printTasks(out, tasks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Wait for the workflow to finish")
	cmd.Flags().DurationVar(&pollInterval, "poll", 5*time.Second, "Status poll interval with --watch")

	return cmd
}

// readRequest читает WorkflowRequest из YAML-файла.
func readRequest(path string) (*domain.WorkflowRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	var req domain.WorkflowRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request file: %w", err)
	}
	return &req, nil
}

// printTasks выводит таблицу задач workflow.
func printTasks(out *Output, tasks []domain.Task) {
	headers := []string{"NAME", "OPERATOR", "STATUS", "DURATION", "MESSAGE"}
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		message := ""
		if t.Result != nil {
			message = firstLine(t.Result.Message)
		}
		rows[i] = []string{
			t.Name, t.Operator, string(t.Status),
			t.Duration().Round(time.Millisecond).String(), message,
		}
	}
	out.Print(headers, rows, tasks)
}
