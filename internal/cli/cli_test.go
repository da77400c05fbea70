package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lollopanta/Projex-sub000/internal/app"
	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/testutil"
)

var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// newTestContainer creates an app.Container with mock dependencies.
func newTestContainer(repo *testutil.MockRepository) *app.Container {
	container := app.NewWithDeps(
		app.Config{DataDir: "/nonexistent/.projex", Backend: domain.StoreJSON},
		repo,
		repo,
		&testutil.MockClock{NowTime: testNow},
		testutil.NewMockConfigLoader(),
		&testutil.MockLogger{},
	)
	container.ConfigManager = testutil.NewMockConfigManager()
	return container
}

// seedTasks stores a <- b <- c, where c also depends on a.
func seedTasks(repo *testutil.MockRepository) {
	repo.Users["ada"] = &domain.UserRecord{ID: "ada", Name: "Ada", WeeklyCapacity: 600}
	estimate := 120
	repo.AddTask(&domain.TaskRecord{ID: "a", Title: "Design schema", CreatedAt: testNow, EstimatedTime: &estimate, Assignees: domain.Refs("ada")})
	repo.AddTask(&domain.TaskRecord{ID: "b", Title: "Write migrations", CreatedAt: testNow.Add(time.Minute), Dependencies: domain.Refs("a")})
	repo.AddTask(&domain.TaskRecord{ID: "c", Title: "Ship release", CreatedAt: testNow.Add(2 * time.Minute), Dependencies: domain.Refs("a", "b")})
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, c *app.Container, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(c, "test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// =============================================================================
// Task Command Tests
// =============================================================================

func TestTaskAdd_CreatesTask(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	repo.Users["ada"] = &domain.UserRecord{ID: "ada", Name: "Ada"}
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "task", "add", "Write docs", "--priority", "high", "-a", "ada", "-l", "docs", "--due", "2024-01-05", "-e", "45")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Created task")
	require.Len(t, repo.Tasks, 1)
	for _, task := range repo.Tasks {
		assert.Equal(t, "Write docs", task.Title)
		assert.Equal(t, domain.PriorityNamed("high"), task.Priority)
		assert.Equal(t, domain.Refs("ada"), task.Assignees)
		assert.Equal(t, domain.Refs("docs"), task.Labels)
		require.NotNil(t, task.EstimatedTime)
		assert.Equal(t, 45, *task.EstimatedTime)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, 5, task.DueDate.Day())
	}
}

func TestTaskAdd_JSON(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "task", "add", "Write docs", "--json")

	// Assert
	require.NoError(t, err)
	var got struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, repo.Tasks, got.TaskID)
}

func TestTaskAdd_RejectsBadDate(t *testing.T) {
	c := newTestContainer(testutil.NewMockRepository())

	_, err := execute(t, c, "task", "add", "x", "--due", "next week")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestTaskList_ShowsState(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "task", "list")

	// Assert
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "STATE")
	assert.Contains(t, lines[1], "Design schema")
	assert.Contains(t, lines[1], "ready")
	assert.Contains(t, lines[2], "blocked")
	assert.Contains(t, lines[3], "blocked")
}

func TestTaskList_Empty(t *testing.T) {
	c := newTestContainer(testutil.NewMockRepository())

	out, err := execute(t, c, "task", "list")

	require.NoError(t, err)
	assert.Equal(t, "No tasks found.\n", out)
}

func TestTaskShow(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "task", "show", "b")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Write migrations")
	assert.Contains(t, out, "Blocked by:   a")
	assert.Contains(t, out, "Dependents:   c")
}

func TestTaskShow_NotFound(t *testing.T) {
	c := newTestContainer(testutil.NewMockRepository())

	_, err := execute(t, c, "task", "show", "ghost")

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskEdit(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	_, err := execute(t, c, "task", "edit", "a", "--title", "Design tables", "--percent", "40", "--add-label", "db")

	// Assert
	require.NoError(t, err)
	task := repo.Tasks["a"]
	assert.Equal(t, "Design tables", task.Title)
	assert.Equal(t, 40, task.PercentDone)
	assert.Equal(t, domain.Refs("db"), task.Labels)
}

func TestTaskDone_ReportsUnblocked(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "task", "done", "a", "--actual", "90")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Completed task a")
	assert.Contains(t, out, `Unblocked: b "Write migrations"`)
	assert.Contains(t, out, "Still blocked: c")
	assert.True(t, repo.Tasks["a"].Done)
	require.NotNil(t, repo.Tasks["a"].ActualTime)
	assert.Equal(t, 90, *repo.Tasks["a"].ActualTime)
}

func TestTaskDeps_RejectsCycle(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	_, err := execute(t, c, "task", "deps", "a", "--add", "c")

	// Assert
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
	assert.Empty(t, repo.Tasks["a"].Dependencies)
}

func TestTaskDeps_Check(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "task", "deps", "c", "--remove", "a", "--check")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "OK: b\n", out)
	assert.Equal(t, domain.Refs("a", "b"), repo.Tasks["c"].Dependencies)
}

func TestTaskRemove_NeedsForce(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	_, err := execute(t, c, "task", "rm", "a")

	// Assert
	require.ErrorIs(t, err, domain.ErrHasDependents)
	assert.Contains(t, err.Error(), "--force")
	assert.Contains(t, repo.Tasks, "a")

	out, err := execute(t, c, "task", "rm", "a", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed dependency from: b, c")
	assert.NotContains(t, repo.Tasks, "a")
}

// =============================================================================
// Entity Command Tests
// =============================================================================

func TestUserAdd(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "user", "add", "Grace", "--id", "grace", "--capacity", "1200", "--availability", "monday=240")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Created user grace\n", out)
	require.Contains(t, repo.Users, "grace")
	assert.Equal(t, 1200, repo.Users["grace"].WeeklyCapacity)
}

func TestProjectAdd(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "project", "add", "Platform", "--id", "plat", "--working-day", "monday")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Created project plat\n", out)
	assert.Contains(t, repo.Projects, "plat")
}

func TestImport_DryRunFromStdin(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	c := newTestContainer(repo)
	doc := `
users:
  - id: ada
    name: Ada
tasks:
  - id: t1
    title: Write docs
    assignees: [ada]
`
	cmd := NewRootCommand(c, "test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(doc))
	cmd.SetArgs([]string{"import", "-", "--dry-run"})

	// Execute
	err := cmd.Execute()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Would import 1 users, 0 projects, 1 tasks\n", out.String())
	assert.Empty(t, repo.Tasks)
	assert.Empty(t, repo.Users)
}

// =============================================================================
// Insight Command Tests
// =============================================================================

func TestPriority_RanksOpenTasks(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "priority", "--json")

	// Assert
	require.NoError(t, err)
	var got struct {
		Results []struct {
			TaskID string `json:"taskId"`
			Score  int    `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Results, 3)
	for i := 1; i < len(got.Results); i++ {
		assert.GreaterOrEqual(t, got.Results[i-1].Score, got.Results[i].Score)
	}
}

func TestPriority_SingleTaskListsFactors(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "priority", "a")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "Factors for a")
	assert.Contains(t, out, "FACTOR")
}

func TestWorkload(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "workload")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "USER")
	assert.Contains(t, out, "ada")
	assert.Contains(t, out, "2h")
	assert.Contains(t, out, "10h")
}

func TestEstimate_UnknownTask(t *testing.T) {
	c := newTestContainer(testutil.NewMockRepository())

	_, err := execute(t, c, "estimate", "ghost")

	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDuplicates(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	repo.AddTask(&domain.TaskRecord{ID: "a", Title: "Fix the login page bug", CreatedAt: testNow})
	repo.AddTask(&domain.TaskRecord{ID: "b", Title: "Fix login page bug", CreatedAt: testNow.Add(time.Minute)})
	repo.AddTask(&domain.TaskRecord{ID: "c", Title: "Plan the offsite", CreatedAt: testNow.Add(2 * time.Minute)})
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "duplicates")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Fix login page bug")
	assert.NotContains(t, out, "offsite")
}

func TestImpact(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "impact", "a")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Direct:      b,c")
	assert.Contains(t, out, "Total:       2")
}

func TestGraph(t *testing.T) {
	// Setup
	repo := testutil.NewMockRepository()
	seedTasks(repo)
	c := newTestContainer(repo)

	// Execute
	out, err := execute(t, c, "graph", "b", "--depth", "1")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "(depth 1)")
	assert.Contains(t, out, "<- a Design schema")
	assert.Contains(t, out, "-> c Ship release")
}

// =============================================================================
// Setup Command Tests
// =============================================================================

func TestConfigTemplate_WithoutContainer(t *testing.T) {
	out, err := execute(t, nil, "config", "template")

	require.NoError(t, err)
	assert.Contains(t, out, "[engine.weights]")
}

func TestConfigShow(t *testing.T) {
	// Setup
	c := newTestContainer(testutil.NewMockRepository())
	c.ConfigManager = &testutil.MockConfigManager{
		RepoConfigInfo: domain.ConfigInfo{Path: "/repo/.projex/config.toml"},
	}

	// Execute
	out, err := execute(t, c, "config", "show")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "- /repo/.projex/config.toml (not found)")
	assert.Contains(t, out, "[Effective Config]")
	assert.Contains(t, out, "similarity_threshold")
}

func TestSync_UnsupportedBackend(t *testing.T) {
	c := newTestContainer(testutil.NewMockRepository())

	_, err := execute(t, c, "sync", "push")

	assert.ErrorIs(t, err, domain.ErrSyncUnsupported)
}

func TestRoot_PrintsConfigWarnings(t *testing.T) {
	// Setup
	c := newTestContainer(testutil.NewMockRepository())
	c.ConfigErr = errors.New("bad toml")
	cmd := NewRootCommand(c, "test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"task", "list"})

	// Execute
	err := cmd.Execute()

	// Assert
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "Warning: using default configuration: bad toml")
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "45m", formatMinutes(45))
	assert.Equal(t, "2h", formatMinutes(120))
	assert.Equal(t, "1h30m", formatMinutes(90))
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())

	got, err = parseDate("2024-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	_, err = parseDate("tomorrow")
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "1f0c2b7e", shortID("1f0c2b7e-1d2a-4c4b-9a7e-0d6b1c2f3a4b"))
	assert.Equal(t, "a", shortID("a"))
}
