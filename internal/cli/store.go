package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase"
)

// newMigrateCommand creates the migrate command.
func newMigrateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		To        string
		Path      string
		Namespace string
		DryRun    bool
		JSON      bool
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the active store into another backend",
		Long: `Copy every user, project and task of the active store into another store.

Records already present in the destination with identical content are
skipped. A record that differs aborts the migration before anything is
written. Switch backends afterwards by editing the [store] section of
config.toml.

Examples:
  # Move from the default json store to SQLite
  projex migrate --to sqlite

  # Preview copying into git refs under a custom namespace
  projex migrate --to git --namespace team --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend := strings.ToLower(strings.TrimSpace(opts.To))
			dest := domain.StoreConfig{Backend: backend, Path: opts.Path, Namespace: opts.Namespace}

			uc, closeDest, err := c.MigrateStoreUseCase(dest)
			if err != nil {
				return err
			}
			defer closeDest()

			out, err := uc.Execute(cmd.Context(), usecase.MigrateStoreInput{DryRun: opts.DryRun})
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			verb := "Migrated"
			if opts.DryRun {
				verb = "Would migrate"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s to %s store: %s, %s, %s\n", verb, backend,
				migrateSummary("user", out.Users), migrateSummary("project", out.Projects), migrateSummary("task", out.Tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "Destination backend: json, sqlite, git")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Destination store file for json/sqlite (default: inside .projex)")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Destination ref namespace for git (default: projex)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would be copied without writing")
	addJSONFlag(cmd, &opts.JSON)
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func migrateSummary(noun string, n usecase.MigrateCount) string {
	s := fmt.Sprintf("%d %s(s)", n.Migrated, noun)
	if n.Skipped > 0 {
		s += fmt.Sprintf(" (skipped %d existing)", n.Skipped)
	}
	return s
}

func newSyncCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the git store with its remote",
		Long:  "Push or fetch the store's refs. Only available with the git backend.",
	}

	cmd.AddCommand(newSyncDirectionCommand(c, "push", "Push store refs to the remote", false))
	cmd.AddCommand(newSyncDirectionCommand(c, "fetch", "Fetch store refs from the remote", true))

	return cmd
}

func newSyncDirectionCommand(c *app.Container, use, short string, fetch bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.SyncStoreUseCase().Execute(cmd.Context(), usecase.SyncStoreInput{Fetch: fetch}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s complete\n", strings.ToUpper(use[:1])+use[1:])
			return nil
		},
	}
}

// newLogsCommand creates the logs command.
func newLogsCommand(c *app.Container) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs [task-id]",
		Short: "Show the event log",
		Long: `Show the global event log, or the log of a single task.

Examples:
  projex logs
  projex logs 1f0c2b7e -n 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.ShowLogsInput{Lines: lines}
			if len(args) == 1 {
				in.TaskID = args[0]
			}
			out, err := c.ShowLogsUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), out.Content)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Number of lines to show from the end (0 = all)")

	return cmd
}
