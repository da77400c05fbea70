package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase"
)

// newUserCommand creates the user command group.
func newUserCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCommand(c))
	return cmd
}

func newUserAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		availability map[string]int
		id           string
		capacity     int
		json         bool
	}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user",
		Long: `Create a user that tasks can be assigned to.

Examples:
  projex user add "Ada Lovelace" --id ada --capacity 1800
  projex user add Grace --availability monday=240,friday=120`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.NewUserUseCase().Execute(cmd.Context(), usecase.NewUserInput{
				ID:                opts.id,
				Name:              args[0],
				WeeklyCapacity:    opts.capacity,
				AvailabilityByDay: opts.availability,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created user %s\n", out.UserID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "User ID (generated when empty)")
	f.IntVar(&opts.capacity, "capacity", 0, "Weekly capacity in minutes (default from config)")
	f.StringToIntVar(&opts.availability, "availability", nil, "Minutes available per weekday, e.g. monday=240")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

// newProjectCommand creates the project command group.
func newProjectCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectAddCommand(c))
	return cmd
}

func newProjectAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		id          string
		start       string
		end         string
		settings    string
		workingDays []string
		json        bool
	}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Long: `Create a project.

--settings reads a TOML file of engine overrides applied to the project's
tasks, using the same keys as the [engine.*] tables of config.toml:

  [weights]
  urgency = 2.0

  [duplication]
  similarity_threshold = 0.7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := optionalDate(opts.start)
			if err != nil {
				return err
			}
			end, err := optionalDate(opts.end)
			if err != nil {
				return err
			}
			var settings *domain.EngineOverrides
			if opts.settings != "" {
				settings, err = readOverrides(opts.settings)
				if err != nil {
					return err
				}
			}

			out, err := c.NewProjectUseCase().Execute(cmd.Context(), usecase.NewProjectInput{
				ID:          opts.id,
				Name:        args[0],
				StartDate:   start,
				EndDate:     end,
				WorkingDays: opts.workingDays,
				Settings:    settings,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", out.ProjectID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "Project ID (generated when empty)")
	f.StringVar(&opts.start, "start", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "End date (YYYY-MM-DD)")
	f.StringSliceVar(&opts.workingDays, "working-day", nil, "Working weekday (repeatable)")
	f.StringVar(&opts.settings, "settings", "", "TOML file with engine overrides")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

// readOverrides decodes a TOML file of engine overrides.
func readOverrides(path string) (*domain.EngineOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var o domain.EngineOverrides
	if err := toml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return &o, nil
}

// newImportCommand creates the import command.
func newImportCommand(c *app.Container) *cobra.Command {
	var opts struct {
		dryRun bool
		json   bool
	}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import users, projects and tasks from a YAML document",
		Long: `Import users, projects and tasks from a YAML document ("-" reads stdin).

References may be plain ids or mappings with an "_id" or "id" key. The whole
document is validated before anything is written; existing records with the
same id are replaced.

Example document:
  users:
    - id: ada
      name: Ada
      weeklyCapacity: 1800
  tasks:
    - id: t1
      title: Write docs
      assignees: [ada]
      dependencies: [{_id: t0}]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			out, err := c.ImportEntitiesUseCase().Execute(cmd.Context(), usecase.ImportEntitiesInput{
				Content: content,
				DryRun:  opts.dryRun,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			verb := "Imported"
			if opts.dryRun {
				verb = "Would import"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d users, %d projects, %d tasks\n",
				verb, len(out.Users), len(out.Projects), len(out.Tasks))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate the document without writing")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

// readInput reads path, or r when path is "-".
func readInput(r io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
