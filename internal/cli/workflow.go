package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflow.
func NewWorkflowCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(appFn, outputFn),
		newWorkflowShowCmd(appFn, outputFn),
		newWorkflowRevokeCmd(appFn, outputFn),
	)

	return cmd
}

func newWorkflowListCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows with their aggregate status",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			descriptors, err := app.Monitor.ListAll(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}

			headers := []string{"WORKFLOW_ID", "STATUS", "LAST_UPDATE"}
			rows := make([][]string, len(descriptors))
			for i, d := range descriptors {
				rows[i] = []string{
					d.WorkflowID.String(), string(d.Status),
					d.LastUpdate.Format(time.RFC3339),
				}
			}
			out.Print(headers, rows, descriptors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Show only workflows that are still running")

	return cmd
}

func newWorkflowShowCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a workflow and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID, err := parseWorkflowID(args[0])
			if err != nil {
				return err
			}

			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			wf, err := app.Workflows.GetByID(cmd.Context(), workflowID)
			if err != nil {
				return err
			}
			tasks, err := app.Tasks.ListByWorkflow(cmd.Context(), workflowID)
			if err != nil {
				return err
			}

			status, err := app.Monitor.Status(cmd.Context(), workflowID)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow %s  status=%s  revoked=%t", wf.ID, status, wf.IsRevoked))
			printTasks(out, tasks)
			return nil
		},
	}
}

func newWorkflowRevokeCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke ID",
		Short: "Revoke a workflow and stop its running containers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID, err := parseWorkflowID(args[0])
			if err != nil {
				return err
			}

			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			if err := app.Monitor.Revoke(cmd.Context(), workflowID); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Workflow revoked: %s", workflowID))
			return nil
		},
	}
}

func parseWorkflowID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid workflow ID %q: %w", s, err)
	}
	return id, nil
}

// firstLine возвращает первую непустую строку сообщения.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
