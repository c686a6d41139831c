package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shaiso/Scena/internal/catalog"
)

// NewRegisterCmd создаёт команду регистрации операторов.
func NewRegisterCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	var specfile string
	var replace bool
	var noBuild bool

	cmd := &cobra.Command{
		Use:   "register SOURCE",
		Short: "Register operators from a directory or git repository",
		Long: "Register reads the operator manifest from SOURCE (a local\n" +
			"directory or a git URL), builds the declared docker images and\n" +
			"stores the operator specs in the catalog.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			var builder catalog.ImageBuilder
			if !noBuild {
				builder = catalog.NewDockerImageBuilder()
			}

			registrar := catalog.NewRegistrar(app.Registry, catalog.NewGitSource(), builder)
			ids, err := registrar.Register(cmd.Context(), args[0], specfile, replace)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Registered %d operator(s)", len(ids)))
			rows := make([][]string, len(ids))
			for i, id := range ids {
				rows[i] = []string{id}
			}
			out.Print([]string{"OPERATOR"}, rows, ids)
			return nil
		},
	}

	cmd.Flags().StringVar(&specfile, "specfile", catalog.DefaultSpecfile, "Manifest file name inside the source")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace already registered operators")
	cmd.Flags().BoolVar(&noBuild, "no-build", false, "Skip building docker images declared in the manifest")

	return cmd
}

// NewOpCmd создаёт группу команд для каталога операторов.
func NewOpCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "op",
		Short: "Inspect the operator catalog",
	}

	cmd.AddCommand(newOpListCmd(appFn, outputFn))

	return cmd
}

func newOpListCmd(appFn func() (*App, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFn()
			if err != nil {
				return err
			}
			defer app.Close()
			out := outputFn()

			ops, err := app.Registry.ListOps(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })

			headers := []string{"OPERATOR", "IMAGE", "COMMANDS"}
			rows := make([][]string, len(ops))
			for i, op := range ops {
				rows[i] = []string{op.ID, op.Spec.Image, fmt.Sprintf("%d", len(op.Spec.Commands))}
			}
			out.Print(headers, rows, ops)
			return nil
		},
	}
}
