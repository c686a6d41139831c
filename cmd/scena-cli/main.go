// Scena CLI — инструмент командной строки для управления каталогом
// операторов, workflow и расписаниями.
//
// Использование:
//
//	scena [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	register   Регистрация операторов из каталога с манифестом
//	op         Каталог операторов
//	submit     Отправка workflow из YAML-файла
//	workflow   Управление workflow
//	schedule   Управление расписаниями
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Scena/internal/cli"
	"github.com/shaiso/Scena/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "scena",
		Short:         "Scena CLI — containerized workflow tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	logger := telemetry.SetupLogger()
	appFn := func() (*cli.App, error) { return cli.Connect(rootCmd.Context(), logger) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRegisterCmd(appFn, outputFn),
		cli.NewOpCmd(appFn, outputFn),
		cli.NewSubmitCmd(appFn, outputFn),
		cli.NewWorkflowCmd(appFn, outputFn),
		cli.NewScheduleCmd(appFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
