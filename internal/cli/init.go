package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/usecase"
)

// newInitCommand creates the init command for initializing the store.
func newInitCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a projex store in the current directory",
		Long: `Initialize a projex store.

This creates the .projex data directory and the store selected by the
[store] section of the configuration (json by default).

Examples:
  # Initialize with the default json store
  projex init

  # Initialize a SQLite store
  printf '[store]\nbackend = "sqlite"\n' > .projex/config.toml && projex init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.InitStoreUseCase().Execute(cmd.Context(), usecase.InitStoreInput{
				DataDir: c.Config.DataDir,
			})
			if err != nil {
				return err
			}

			if out.AlreadyInitialized {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Already initialized at %s\n", out.DataDir)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s store at %s\n", c.Config.Backend, out.DataDir)
			return nil
		},
	}
}
