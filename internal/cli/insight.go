package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/engine"
	"github.com/lollopanta/Projex-sub000/internal/usecase"
)

func newPriorityCommand(c *app.Container) *cobra.Command {
	var opts struct {
		project  string
		assignee string
		limit    int
		workload bool
		explain  bool
		json     bool
	}

	cmd := &cobra.Command{
		Use:   "priority [task-id]",
		Short: "Rank open tasks by priority score",
		Long: `Rank open tasks by a 0-100 priority score.

The score combines urgency, overdue days, manual priority, blocked
dependents and completion, each weighted by the [engine.weights] config.
Ties are broken by due date, then creation time.

With a task id, only that task is scored and its factors are listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.ScoreTasksInput{
				ProjectID:   opts.project,
				Assignee:    opts.assignee,
				Limit:       opts.limit,
				UseWorkload: opts.workload,
			}
			if len(args) == 1 {
				in.TaskID = args[0]
				opts.explain = true
			}

			out, err := c.ScoreTasksUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(out.Results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No open tasks.")
				return nil
			}

			st := newStyles(cmd.OutOrStdout())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "SCORE\tID\tWHY")
			for _, r := range out.Results {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", st.score(r.Score), shortID(r.TaskID), r.Explanation)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if opts.explain {
				for _, r := range out.Results {
					writeFactors(cmd.OutOrStdout(), st, r.TaskID, r.Factors)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.project, "project", "p", "", "Only score tasks of this project")
	f.StringVarP(&opts.assignee, "assignee", "a", "", "Only score tasks assigned to this user")
	f.IntVarP(&opts.limit, "limit", "n", 0, "Show the top N tasks (0 = all)")
	f.BoolVar(&opts.workload, "workload", false, "Factor in the most loaded assignee's workload")
	f.BoolVar(&opts.explain, "explain", false, "List every factor's contribution")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

// writeFactors prints the factor breakdown of one score.
func writeFactors(out io.Writer, st styles, taskID string, factors []engine.Factor) {
	_, _ = fmt.Fprintf(out, "\n%s\n", st.Header.Render("Factors for "+taskID))
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "FACTOR\tVALUE\tWEIGHT\tIMPACT\tNOTE")
	for _, f := range factors {
		note := f.Description
		if note == "" {
			note = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%+.2f\t%s\n", f.Name, f.Value, f.Weight, f.Impact, note)
	}
	_ = w.Flush()
}

func newWorkloadCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "workload [user-id]",
		Short: "Compare each user's open estimated work to their capacity",
		Long: `Compare each user's open estimated work to their weekly capacity.

Users are classified as overload, warning, balanced or underutilized using
the [engine.workload] thresholds. Tasks without an estimate count with the
default estimate.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.ShowWorkloadInput{}
			if len(args) == 1 {
				in.UserID = args[0]
			}
			out, err := c.ShowWorkloadUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(out.Results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No users.")
				return nil
			}

			st := newStyles(cmd.OutOrStdout())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "USER\tTASKS\tLOAD\tCAPACITY\tUSED\tSTATUS")
			for _, r := range out.Results {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d%%\t%s\n",
					r.UserID, r.TaskCount, formatMinutes(r.WeeklyLoad), formatMinutes(r.Capacity),
					r.LoadPercentage, st.workloadStatus(r.Status))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for _, r := range out.Results {
				if len(r.Warnings) == 0 && len(r.Suggestions) == 0 {
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %s\n", st.Header.Render(r.UserID), r.Explanation)
				for _, warn := range r.Warnings {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", st.Warning.Render("!"), warn)
				}
				for _, s := range r.Suggestions {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", st.Info.Render("-"), s)
				}
			}
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newEstimateCommand(c *app.Container) *cobra.Command {
	var opts struct {
		assignee string
		save     bool
		json     bool
	}

	cmd := &cobra.Command{
		Use:   "estimate <task-id>",
		Short: "Estimate a task's duration from completed work",
		Long: `Estimate a task's duration from completed tasks with an actual time.

Completed tasks sharing a label, the project or the assignee are considered
similar. With too few of them, the assignee's historical averages or the
configured default are used and the confidence drops.

--save stores the estimate as the task's estimated time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.EstimateTaskUseCase().Execute(cmd.Context(), usecase.EstimateTaskInput{
				TaskID:     args[0],
				AssigneeID: opts.assignee,
				Save:       opts.save,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			r := out.Result
			st := newStyles(cmd.OutOrStdout())
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s %s\n", st.ID.Render(r.TaskID), st.Header.Render(formatMinutes(r.EstimatedMinutes)))
			_, _ = fmt.Fprintf(w, "Confidence:  %.0f%%\n", r.ConfidenceLevel*100)
			_, _ = fmt.Fprintf(w, "Samples:     %d\n", r.SampleSize)
			_, _ = fmt.Fprintf(w, "Based on:    %s\n", joinOrDash(r.BasedOn))
			_, _ = fmt.Fprintf(w, "%s\n", r.Explanation)
			if out.Saved {
				_, _ = fmt.Fprintln(w, st.Success.Render("Saved as the task's estimate."))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.assignee, "assignee", "a", "", "Estimate for this user (default: first assignee)")
	f.BoolVar(&opts.save, "save", false, "Store the estimate on the task")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

func newDuplicatesCommand(c *app.Container) *cobra.Command {
	var opts struct {
		project string
		all     bool
		json    bool
	}

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find tasks with near-identical titles",
		Long: `Find tasks whose titles share most of their words.

Titles are compared case-insensitively after dropping punctuation and stop
words. Pairs at or above the [engine.duplication] similarity threshold are
reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.FindDuplicatesUseCase().Execute(cmd.Context(), usecase.FindDuplicatesInput{
				ProjectID:   opts.project,
				IncludeDone: opts.all,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			if len(out.Results) == 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No duplicates among %d tasks.\n", out.Checked)
				return nil
			}

			st := newStyles(cmd.OutOrStdout())
			for _, r := range out.Results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", st.ID.Render(r.TaskID))
				for _, s := range r.SimilarTasks {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %3.0f%%  %s  %s\n", s.Similarity*100, shortID(s.TaskID), s.Title)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.project, "project", "p", "", "Only compare tasks of this project")
	f.BoolVar(&opts.all, "all", false, "Compare completed tasks too")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

func newImpactCommand(c *app.Container) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "impact <task-id>",
		Short: "Show which tasks depend on a task, directly or not",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowImpactUseCase().Execute(cmd.Context(), usecase.ShowImpactInput{TaskID: args[0]})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(cmd.OutOrStdout())
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s %s\n", st.ID.Render(out.Task.ID), st.Header.Render(out.Task.Title))
			_, _ = fmt.Fprintf(w, "%s\n", out.Explanation)
			_, _ = fmt.Fprintf(w, "Blocked by:  %s\n", joinOrDash(taskIDs(out.Blockers)))
			_, _ = fmt.Fprintf(w, "Direct:      %s\n", joinOrDash(out.Impact.Direct))
			_, _ = fmt.Fprintf(w, "Indirect:    %s\n", joinOrDash(out.Impact.Indirect))
			_, _ = fmt.Fprintf(w, "Total:       %d\n", len(out.Impact.All))
			return nil
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newGraphCommand(c *app.Container) *cobra.Command {
	var opts struct {
		depth int
		json  bool
	}

	cmd := &cobra.Command{
		Use:   "graph <task-id>",
		Short: "Show the dependency neighbourhood of a task",
		Long: `Show the tasks a task depends on (upstream) and the tasks depending on it
(downstream), up to --depth hops. The default depth comes from
[engine.dependency] max_depth.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowGraphUseCase().Execute(cmd.Context(), usecase.ShowGraphInput{
				TaskID:   args[0],
				MaxDepth: opts.depth,
			})
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			st := newStyles(cmd.OutOrStdout())
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s %s (depth %d)\n", st.ID.Render(out.Task.ID), st.Header.Render(out.Task.Title), out.MaxDepth)
			writeGraphNodes(w, st, "Upstream", "<-", out.Graph.Upstream)
			writeGraphNodes(w, st, "Downstream", "->", out.Graph.Downstream)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.depth, "depth", 0, "Hops to expand (default from config)")
	addJSONFlag(cmd, &opts.json)
	return cmd
}

// writeGraphNodes prints nodes indented by their hop distance.
func writeGraphNodes(w io.Writer, st styles, title, arrow string, nodes []engine.GraphNode) {
	_, _ = fmt.Fprintf(w, "%s:\n", title)
	if len(nodes) == 0 {
		_, _ = fmt.Fprintf(w, "  %s\n", st.Muted.Render("(none)"))
		return
	}
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Depth+1)
		_, _ = fmt.Fprintf(w, "%s%s %s %s  %s\n", indent, arrow, shortID(n.Task.ID), n.Task.Title,
			st.state(n.Task.Done, false))
	}
}
