// Package cli provides the command-line interface for projex.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lollopanta/Projex-sub000/internal/app"
)

// Command group IDs.
const (
	groupSetup   = "setup"
	groupTask    = "task"
	groupInsight = "insight"
)

// NewRootCommand creates the root command for projex.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "projex",
		Short: "Task and project tracking with explainable priorities",
		Long: `projex tracks tasks, users and projects in a local store and derives
explainable insights from them: priority scores, workload, time estimates,
near-duplicate titles and dependency impact.

Every insight is computed from rules and completed-task history only, so the
same data always produces the same answer.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}
			if c.ConfigErr != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: using default configuration: %v\n", c.ConfigErr)
				return nil
			}

			cfg, err := c.ConfigLoader.Load()
			if err != nil {
				return nil
			}
			for _, w := range cfg.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Management:"},
		&cobra.Group{ID: groupInsight, Title: "Insights:"},
	)

	// Setup commands
	setup := []*cobra.Command{
		newInitCommand(c),
		newConfigCommand(c),
		newMigrateCommand(c),
		newSyncCommand(c),
		newLogsCommand(c),
	}
	for _, cmd := range setup {
		cmd.GroupID = groupSetup
	}

	// Task management commands
	tasks := []*cobra.Command{
		newTaskCommand(c),
		newUserCommand(c),
		newProjectCommand(c),
		newImportCommand(c),
	}
	for _, cmd := range tasks {
		cmd.GroupID = groupTask
	}

	// Insight commands
	insights := []*cobra.Command{
		newPriorityCommand(c),
		newWorkloadCommand(c),
		newEstimateCommand(c),
		newDuplicatesCommand(c),
		newImpactCommand(c),
		newGraphCommand(c),
	}
	for _, cmd := range insights {
		cmd.GroupID = groupInsight
	}

	root.AddCommand(setup...)
	root.AddCommand(tasks...)
	root.AddCommand(insights...)

	return root
}
