// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/infra/config"
	"github.com/lollopanta/Projex-sub000/internal/infra/gitstore"
	"github.com/lollopanta/Projex-sub000/internal/infra/jsonstore"
	"github.com/lollopanta/Projex-sub000/internal/infra/logging"
	"github.com/lollopanta/Projex-sub000/internal/infra/sqlitestore"
	"github.com/lollopanta/Projex-sub000/internal/usecase"
)

// Config holds the application paths.
type Config struct {
	Root      string // Workspace root (the directory holding .projex)
	DataDir   string // Path to the .projex directory
	StorePath string // Store file for the json and sqlite backends
	Backend   string // Active store backend
	Namespace string // Git ref namespace of the active store
}

// newConfig resolves the paths for a workspace root and its loaded configuration.
func newConfig(root string, appConfig *domain.Config) Config {
	dataDir := domain.RepoDataDir(root)
	return Config{
		Root:      root,
		DataDir:   dataDir,
		StorePath: appConfig.StorePath(dataDir),
		Backend:   appConfig.Store.Backend,
		Namespace: appConfig.Store.Namespace,
	}
}

// FindRoot walks up from dir looking for an existing data directory.
// When none is found, dir itself is the root, so that `projex init` creates one there.
func FindRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for cur := abs; ; {
		if info, err := os.Stat(domain.RepoDataDir(cur)); err == nil && info.IsDir() {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs
		}
		cur = parent
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Repo             domain.Repository
	StoreInitializer domain.StoreInitializer
	Syncer           domain.Syncer // nil unless the git backend is active
	Clock            domain.Clock
	ConfigLoader     domain.ConfigLoader
	ConfigManager    domain.ConfigManager
	EventLog         domain.Logger

	// Pointer fields
	Logger *slog.Logger

	closers []io.Closer

	// ConfigErr is set when the configuration could not be loaded and defaults are in use.
	ConfigErr error

	// Configuration
	Config Config
}

// New creates a new Container for the workspace containing dir.
func New(dir string) (*Container, error) {
	root := FindRoot(dir)
	dataDir := domain.RepoDataDir(root)

	// Load app config to determine the store backend.
	configLoader := config.NewLoader(dataDir)
	appConfig, configErr := configLoader.Load()
	if configErr != nil {
		appConfig = domain.NewDefaultConfig()
	}

	cfg := newConfig(root, appConfig)

	repo, storeInit, err := OpenStore(cfg, appConfig.Store)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// The file log lives in the data directory; it stays disabled until `projex init` created it.
	logDir := ""
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
		logDir = dataDir
	}
	eventLog := logging.New(logDir, logging.ParseLevel(appConfig.Log.Level))

	c := &Container{
		Repo:             repo,
		StoreInitializer: storeInit,
		Clock:            domain.RealClock{},
		ConfigLoader:     configLoader,
		ConfigManager:    config.NewManager(dataDir),
		EventLog:         eventLog,
		Logger:           logger,
		ConfigErr:        configErr,
		Config:           cfg,
		closers:          []io.Closer{eventLog},
	}
	if s, ok := repo.(domain.Syncer); ok {
		c.Syncer = s
	}
	if closer, ok := repo.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	return c, nil
}

// OpenStore creates the repository for a store configuration.
// The backend defaults to json.
func OpenStore(cfg Config, store domain.StoreConfig) (domain.Repository, domain.StoreInitializer, error) {
	switch store.Backend {
	case "", domain.StoreJSON:
		s := jsonstore.New(storePath(cfg, store))
		return s, s, nil
	case domain.StoreSQLite:
		s := sqlitestore.New(storePath(cfg, store))
		return s, s, nil
	case domain.StoreGit:
		namespace := store.Namespace
		if namespace == "" {
			namespace = "projex"
		}
		s, err := gitstore.New(cfg.Root, namespace, filepath.Join(cfg.DataDir, "git.lock"))
		if err != nil {
			return nil, nil, fmt.Errorf("open git store: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownStore, store.Backend)
	}
}

func storePath(cfg Config, store domain.StoreConfig) string {
	return (&domain.Config{Store: store}).StorePath(cfg.DataDir)
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(cfg Config, repo domain.Repository, storeInit domain.StoreInitializer, clock domain.Clock, configLoader domain.ConfigLoader, eventLog domain.Logger) *Container {
	c := &Container{
		Repo:             repo,
		StoreInitializer: storeInit,
		Clock:            clock,
		ConfigLoader:     configLoader,
		EventLog:         eventLog,
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:           cfg,
	}
	if s, ok := repo.(domain.Syncer); ok {
		c.Syncer = s
	}
	return c
}

// Close releases log files and database handles.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UseCase factory methods

// InitStoreUseCase returns a new InitStore use case.
func (c *Container) InitStoreUseCase() *usecase.InitStore {
	return usecase.NewInitStore(c.StoreInitializer)
}

// NewTaskUseCase returns a new NewTask use case.
func (c *Container) NewTaskUseCase() *usecase.NewTask {
	return usecase.NewNewTask(c.Repo, c.ConfigLoader, c.Clock, c.EventLog)
}

// NewUserUseCase returns a new NewUser use case.
func (c *Container) NewUserUseCase() *usecase.NewUser {
	return usecase.NewNewUser(c.Repo, c.EventLog)
}

// NewProjectUseCase returns a new NewProject use case.
func (c *Container) NewProjectUseCase() *usecase.NewProject {
	return usecase.NewNewProject(c.Repo, c.EventLog)
}

// ImportEntitiesUseCase returns a new ImportEntities use case.
func (c *Container) ImportEntitiesUseCase() *usecase.ImportEntities {
	return usecase.NewImportEntities(c.Repo, c.Clock, c.EventLog)
}

// ListTasksUseCase returns a new ListTasks use case.
func (c *Container) ListTasksUseCase() *usecase.ListTasks {
	return usecase.NewListTasks(c.Repo)
}

// ShowTaskUseCase returns a new ShowTask use case.
func (c *Container) ShowTaskUseCase() *usecase.ShowTask {
	return usecase.NewShowTask(c.Repo)
}

// EditTaskUseCase returns a new EditTask use case.
func (c *Container) EditTaskUseCase() *usecase.EditTask {
	return usecase.NewEditTask(c.Repo, c.Clock, c.EventLog)
}

// DeleteTaskUseCase returns a new DeleteTask use case.
func (c *Container) DeleteTaskUseCase() *usecase.DeleteTask {
	return usecase.NewDeleteTask(c.Repo, c.Clock, c.EventLog)
}

// CompleteTaskUseCase returns a new CompleteTask use case.
// Unblocked tasks are announced on out.
func (c *Container) CompleteTaskUseCase(out io.Writer) *usecase.CompleteTask {
	return usecase.NewCompleteTask(c.Repo, logging.NewNotifier(c.EventLog, out), c.Clock, c.EventLog)
}

// SetDependenciesUseCase returns a new SetDependencies use case.
func (c *Container) SetDependenciesUseCase() *usecase.SetDependencies {
	return usecase.NewSetDependencies(c.Repo, c.Clock, c.EventLog)
}

// ValidateDependenciesUseCase returns a new ValidateDependencies use case.
func (c *Container) ValidateDependenciesUseCase() *usecase.ValidateDependencies {
	return usecase.NewValidateDependencies(c.Repo)
}

// ScoreTasksUseCase returns a new ScoreTasks use case.
func (c *Container) ScoreTasksUseCase() *usecase.ScoreTasks {
	return usecase.NewScoreTasks(c.Repo, c.ConfigLoader, c.Clock)
}

// ShowWorkloadUseCase returns a new ShowWorkload use case.
func (c *Container) ShowWorkloadUseCase() *usecase.ShowWorkload {
	return usecase.NewShowWorkload(c.Repo, c.ConfigLoader)
}

// EstimateTaskUseCase returns a new EstimateTask use case.
func (c *Container) EstimateTaskUseCase() *usecase.EstimateTask {
	return usecase.NewEstimateTask(c.Repo, c.ConfigLoader, c.Clock, c.EventLog)
}

// FindDuplicatesUseCase returns a new FindDuplicates use case.
func (c *Container) FindDuplicatesUseCase() *usecase.FindDuplicates {
	return usecase.NewFindDuplicates(c.Repo, c.ConfigLoader)
}

// ShowImpactUseCase returns a new ShowImpact use case.
func (c *Container) ShowImpactUseCase() *usecase.ShowImpact {
	return usecase.NewShowImpact(c.Repo)
}

// ShowGraphUseCase returns a new ShowGraph use case.
func (c *Container) ShowGraphUseCase() *usecase.ShowGraph {
	return usecase.NewShowGraph(c.Repo, c.ConfigLoader)
}

// ShowLogsUseCase returns a new ShowLogs use case.
func (c *Container) ShowLogsUseCase() *usecase.ShowLogs {
	return usecase.NewShowLogs(c.Repo, c.Config.DataDir)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader, c.Repo)
}

// ShowConfigTemplateUseCase returns a new ShowConfigTemplate use case.
func (c *Container) ShowConfigTemplateUseCase() *usecase.ShowConfigTemplate {
	return usecase.NewShowConfigTemplate(config.RenderTemplate)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}

// SyncStoreUseCase returns a new SyncStore use case.
func (c *Container) SyncStoreUseCase() *usecase.SyncStore {
	return usecase.NewSyncStore(c.Syncer, c.EventLog)
}

// MigrateStoreUseCase returns a MigrateStore use case copying the active store
// into a store of the given backend. The destination is closed by the returned func.
func (c *Container) MigrateStoreUseCase(dest domain.StoreConfig) (*usecase.MigrateStore, func(), error) {
	if dest.Backend == c.Config.Backend {
		same := storePath(c.Config, dest) == c.Config.StorePath
		if dest.Backend == domain.StoreGit {
			same = dest.Namespace == c.Config.Namespace
		}
		if same {
			return nil, nil, fmt.Errorf("destination is the active %s store", dest.Backend)
		}
	}
	repo, init, err := OpenStore(c.Config, dest)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if closer, ok := repo.(io.Closer); ok {
		closeFn = func() { _ = closer.Close() }
	}
	return usecase.NewMigrateStore(c.Repo, repo, init), closeFn, nil
}
