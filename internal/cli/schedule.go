package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Scena/internal/domain"
	"github.com/shaiso/Scena/internal/scheduler"
)

// NewScheduleCmd создаёт группу команд для управления расписаниями.
func NewScheduleCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage recurring workflow schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(appFn, outputFn),
		newScheduleCreateCmd(appFn, outputFn),
		newScheduleDeleteCmd(appFn, outputFn),
	)

	return cmd
}

func newScheduleListCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			schedules, err := app.Schedules.List(cmd.Context())
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "CRON", "INTERVAL", "ENABLED", "NEXT_DUE"}
			rows := make([][]string, len(schedules))
			for i, s := range schedules {
				rows[i] = []string{
					s.ID.String(), s.Name, s.CronExpr, formatInterval(s.IntervalSec),
					strconv.FormatBool(s.Enabled), formatTime(s.NextDueAt),
				}
			}
			out.Print(headers, rows, schedules)
			return nil
		},
	}
}

func newScheduleCreateCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	var name string
	var cronExpr string
	var intervalSec int

	cmd := &cobra.Command{
		Use:   "create REQUEST_FILE",
		Short: "Create a schedule that submits the workflow from REQUEST_FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cronExpr == "" && intervalSec <= 0 {
				return fmt.Errorf("either --cron or --interval is required")
			}
			if cronExpr != "" {
				if err := scheduler.ValidateCronExpr(cronExpr); err != nil {
					return err
				}
			}

			req, err := readRequest(args[0])
			if err != nil {
				return err
			}

			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			now := time.Now()
			sched := &domain.Schedule{
				ID:          uuid.New(),
				Name:        name,
				CronExpr:    cronExpr,
				IntervalSec: intervalSec,
				Request:     *req,
				Enabled:     true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}

			nextDue, err := scheduler.CalculateInitialNextDue(sched)
			if err != nil {
				return err
			}
			sched.NextDueAt = &nextDue

			if err := app.Schedules.Create(cmd.Context(), sched); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", sched.ID))
			out.Print(
				[]string{"ID", "NAME", "CRON", "INTERVAL", "NEXT_DUE"},
				[][]string{{
					sched.ID.String(), sched.Name, sched.CronExpr,
					formatInterval(sched.IntervalSec), formatTime(sched.NextDueAt),
				}},
				sched,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schedule name (required)")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (e.g. '0 9 * * *')")
	cmd.Flags().IntVar(&intervalSec, "interval", 0, "Interval in seconds")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newScheduleDeleteCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule ID %q: %w", args[0], err)
			}

			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			if err := app.Schedules.Delete(cmd.Context(), id); err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Schedule deleted: %s", id))
			return nil
		},
	}
}

func formatInterval(intervalSec int) string {
	if intervalSec <= 0 {
		return ""
	}
	return strconv.Itoa(intervalSec) + "s"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
