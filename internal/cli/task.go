package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase"
)

// newTaskCommand creates the task command group.
func newTaskCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"t"},
		Short:   "Create, inspect and update tasks",
	}
	cmd.AddCommand(
		newTaskAddCommand(c),
		newTaskListCommand(c),
		newTaskShowCommand(c),
		newTaskEditCommand(c),
		newTaskRemoveCommand(c),
		newTaskDoneCommand(c),
		newTaskDepsCommand(c),
	)
	return cmd
}

func newTaskAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		description  string
		project      string
		priority     string
		due          string
		assignees    []string
		labels       []string
		dependencies []string
		estimate     int
		json         bool
	}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a new task",
		Long: `Create a new task.

Dependencies are validated before the task is written: unknown ids and
dependency cycles are rejected. Open tasks with a near-identical title are
reported as a warning.

Examples:
  projex task add "Write release notes" --priority high --due 2024-03-01
  projex task add "Deploy" --depends-on 1f0c2b7e --assignee ada --estimate 90`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := optionalDate(opts.due)
			if err != nil {
				return err
			}
			in := usecase.NewTaskInput{
				Title:        args[0],
				Description:  opts.description,
				ProjectID:    opts.project,
				Priority:     opts.priority,
				DueDate:      due,
				Assignees:    opts.assignees,
				Labels:       opts.labels,
				Dependencies: opts.dependencies,
			}
			if cmd.Flags().Changed("estimate") {
				in.EstimatedTime = &opts.estimate
			}

			out, err := c.NewTaskUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(cmd.OutOrStdout())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", st.ID.Render(out.TaskID))
			for _, s := range out.Similar {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: similar to %s %q (%.0f%%)\n", s.TaskID, s.Title, s.Similarity*100)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.description, "description", "d", "", "Task description")
	f.StringVarP(&opts.project, "project", "p", "", "Project ID")
	f.StringVar(&opts.priority, "priority", "", "Priority: low, medium, high or 1-5 (default medium)")
	f.StringVar(&opts.due, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	f.StringSliceVarP(&opts.assignees, "assignee", "a", nil, "Assignee user ID (repeatable)")
	f.StringSliceVarP(&opts.labels, "label", "l", nil, "Label (repeatable)")
	f.StringSliceVar(&opts.dependencies, "depends-on", nil, "Task ID this task depends on (repeatable)")
	f.IntVarP(&opts.estimate, "estimate", "e", 0, "Estimated minutes")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

func newTaskListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		project  string
		assignee string
		labels   []string
		all      bool
		blocked  bool
		json     bool
	}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Long: `List tasks in creation order.

Completed tasks are hidden unless --all is given. The STATE column shows
whether a task is done, blocked by an incomplete dependency, or ready.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListTasksUseCase().Execute(cmd.Context(), usecase.ListTasksInput{
				ProjectID:   opts.project,
				Assignee:    opts.assignee,
				Labels:      opts.labels,
				IncludeDone: opts.all,
				BlockedOnly: opts.blocked,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(out.Tasks) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
				return nil
			}

			st := newStyles(cmd.OutOrStdout())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tPRI\tDUE\tASSIGNEES\tTITLE\tSTATE")
			for _, s := range out.Tasks {
				due := "-"
				if s.Task.DueDate != nil {
					due = s.Task.DueDate.Format("2006-01-02")
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
					shortID(s.Task.ID), s.Task.Priority, due,
					joinOrDash(s.Task.Assignees), s.Task.Title,
					st.state(s.Task.Done, s.Blocked))
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.project, "project", "p", "", "Filter by project ID")
	f.StringVarP(&opts.assignee, "assignee", "a", "", "Filter by assignee user ID")
	f.StringSliceVarP(&opts.labels, "label", "l", nil, "Filter by label (all must match)")
	f.BoolVar(&opts.all, "all", false, "Include completed tasks")
	f.BoolVar(&opts.blocked, "blocked", false, "Only show blocked tasks")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

func newTaskShowCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its dependencies and dependents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowTaskUseCase().Execute(cmd.Context(), usecase.ShowTaskInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(cmd.OutOrStdout())
			w := cmd.OutOrStdout()
			t := out.Task
			_, _ = fmt.Fprintf(w, "%s %s\n", st.ID.Render(t.ID), st.Header.Render(t.Title))
			_, _ = fmt.Fprintf(w, "State:        %s\n", st.state(t.Done, out.Blocked))
			_, _ = fmt.Fprintf(w, "Priority:     %d\n", t.Priority)
			if t.ProjectID != nil {
				_, _ = fmt.Fprintf(w, "Project:      %s\n", *t.ProjectID)
			}
			_, _ = fmt.Fprintf(w, "Assignees:    %s\n", joinOrDash(t.Assignees))
			_, _ = fmt.Fprintf(w, "Labels:       %s\n", joinOrDash(t.Labels))
			if t.DueDate != nil {
				_, _ = fmt.Fprintf(w, "Due:          %s\n", t.DueDate.Format("2006-01-02 15:04"))
			}
			if t.EstimatedTime != nil {
				_, _ = fmt.Fprintf(w, "Estimate:     %s\n", formatMinutes(*t.EstimatedTime))
			}
			if t.ActualTime != nil {
				_, _ = fmt.Fprintf(w, "Actual:       %s\n", formatMinutes(*t.ActualTime))
			}
			_, _ = fmt.Fprintf(w, "Progress:     %d%%\n", t.PercentDone)
			_, _ = fmt.Fprintf(w, "Depends on:   %s\n", joinOrDash(t.Dependencies))
			if len(out.Blockers) > 0 {
				_, _ = fmt.Fprintf(w, "Blocked by:   %s\n", st.Error.Render(strings.Join(taskIDs(out.Blockers), ",")))
			}
			_, _ = fmt.Fprintf(w, "Dependents:   %s\n", joinOrDash(out.Dependents))
			if out.Record.Description != "" {
				_, _ = fmt.Fprintf(w, "\n%s\n", out.Record.Description)
			}
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newTaskEditCommand(c *app.Container) *cobra.Command {
	var opts struct {
		title           string
		description     string
		priority        string
		due             string
		addLabels       []string
		removeLabels    []string
		addAssignees    []string
		removeAssignees []string
		estimate        int
		percent         int
		clearDue        bool
		json            bool
	}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update fields of a task",
		Long: `Update fields of a task. Only the flags given are changed.

Examples:
  projex task edit 1f0c2b7e --title "Ship it" --priority 5
  projex task edit 1f0c2b7e --add-label backend --remove-assignee ada --percent 40`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			in := usecase.EditTaskInput{
				TaskID:          args[0],
				AddLabels:       opts.addLabels,
				RemoveLabels:    opts.removeLabels,
				AddAssignees:    opts.addAssignees,
				RemoveAssignees: opts.removeAssignees,
				ClearDueDate:    opts.clearDue,
			}
			if f.Changed("title") {
				in.Title = &opts.title
			}
			if f.Changed("description") {
				in.Description = &opts.description
			}
			if f.Changed("priority") {
				in.Priority = &opts.priority
			}
			if f.Changed("estimate") {
				in.EstimatedTime = &opts.estimate
			}
			if f.Changed("percent") {
				in.PercentDone = &opts.percent
			}
			due, err := optionalDate(opts.due)
			if err != nil {
				return err
			}
			in.DueDate = due

			out, err := c.EditTaskUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", out.Task.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.title, "title", "", "New title")
	f.StringVarP(&opts.description, "description", "d", "", "New description")
	f.StringVar(&opts.priority, "priority", "", "New priority: low, medium, high or 1-5")
	f.StringVar(&opts.due, "due", "", "New due date (YYYY-MM-DD or RFC 3339)")
	f.BoolVar(&opts.clearDue, "clear-due", false, "Remove the due date")
	f.IntVarP(&opts.estimate, "estimate", "e", 0, "Estimated minutes")
	f.IntVar(&opts.percent, "percent", 0, "Percent done (0-100)")
	f.StringSliceVar(&opts.addLabels, "add-label", nil, "Label to add (repeatable)")
	f.StringSliceVar(&opts.removeLabels, "remove-label", nil, "Label to remove (repeatable)")
	f.StringSliceVar(&opts.addAssignees, "add-assignee", nil, "Assignee to add (repeatable)")
	f.StringSliceVar(&opts.removeAssignees, "remove-assignee", nil, "Assignee to remove (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

func newTaskRemoveCommand(c *app.Container) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Long: `Delete a task.

A task other tasks depend on is only deleted with --force, which also
removes it from their dependency lists.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.DeleteTaskUseCase().Execute(cmd.Context(), usecase.DeleteTaskInput{
				TaskID: args[0],
				Force:  force,
			})
			if err != nil {
				if errors.Is(err, domain.ErrHasDependents) {
					return fmt.Errorf("%w (use --force to detach them)", err)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			if len(out.Detached) > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed dependency from: %s\n", strings.Join(out.Detached, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even when other tasks depend on it")
	return cmd
}

func newTaskDoneCommand(c *app.Container) *cobra.Command {
	var opts struct {
		actual int
		json   bool
	}

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as completed",
		Long: `Mark a task as completed.

The actual time spent feeds later estimates. Dependents left without an
incomplete dependency are reported as unblocked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.CompleteTaskInput{TaskID: args[0]}
			if cmd.Flags().Changed("actual") {
				in.ActualTime = &opts.actual
			}

			// JSON output carries the unblocked list; keep notifications off stdout then.
			notifyOut := cmd.OutOrStdout()
			if opts.json {
				notifyOut = cmd.ErrOrStderr()
			}
			out, err := c.CompleteTaskUseCase(notifyOut).Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s\n", out.Task.ID)
			if len(out.Waiting) > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Still blocked: %s\n", strings.Join(taskIDs(out.Waiting), ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.actual, "actual", 0, "Minutes actually spent")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

func newTaskDepsCommand(c *app.Container) *cobra.Command {
	var opts struct {
		add    []string
		remove []string
		clear  bool
		check  bool
		json   bool
	}

	cmd := &cobra.Command{
		Use:   "deps <id>",
		Short: "Change the dependencies of a task",
		Long: `Change the dependencies of a task.

With --check, the resulting list is validated and reported without being
saved. The command fails when a dependency is unknown or would create a cycle.

Examples:
  projex task deps 1f0c2b7e --add 9a1d3c44 --add 77e0b1aa
  projex task deps 1f0c2b7e --clear --add 9a1d3c44 --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.check {
				return checkDependencies(cmd, c, args[0], opts.add, opts.remove, opts.clear, opts.json)
			}

			out, err := c.SetDependenciesUseCase().Execute(cmd.Context(), usecase.SetDependenciesInput{
				TaskID: args[0],
				Add:    opts.add,
				Remove: opts.remove,
				Clear:  opts.clear,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s depends on: %s\n", args[0], joinOrDash(out.Dependencies))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.add, "add", nil, "Dependency to add (repeatable)")
	f.StringSliceVar(&opts.remove, "remove", nil, "Dependency to remove (repeatable)")
	f.BoolVar(&opts.clear, "clear", false, "Drop every existing dependency first")
	f.BoolVar(&opts.check, "check", false, "Validate the resulting list without saving it")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

// checkDependencies validates the list a deps change would produce.
func checkDependencies(cmd *cobra.Command, c *app.Container, taskID string, add, remove []string, clearAll, asJSON bool) error {
	show, err := c.ShowTaskUseCase().Execute(cmd.Context(), usecase.ShowTaskInput{TaskID: taskID})
	if err != nil {
		return err
	}
	var proposed []string
	if !clearAll {
		proposed = append(proposed, show.Task.Dependencies...)
	}
	proposed = append(proposed, add...)
	proposed = slices.DeleteFunc(proposed, func(id string) bool { return slices.Contains(remove, id) })

	out, err := c.ValidateDependenciesUseCase().Execute(cmd.Context(), usecase.ValidateDependenciesInput{
		TaskID:       taskID,
		Dependencies: proposed,
	})
	if err != nil {
		return err
	}
	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		return out.Err
	}
	if !out.Valid {
		return out.Err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", joinOrDash(out.Dependencies))
	return nil
}
