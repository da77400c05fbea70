package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DataDirName is the directory holding the store, config and logs of a workspace.
const DataDirName = ".projex"

// RepoDataDir returns the data directory for a workspace root.
func RepoDataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// GlobalDataDir returns the global configuration directory under configHome.
func GlobalDataDir(configHome string) string {
	return filepath.Join(configHome, "projex")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "projex.log")
}

// TaskLogPath returns the path to the log file of a task.
// Path separators in the id are replaced so every id maps to a single file.
func TaskLogPath(dataDir, taskID string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(taskID)
	return filepath.Join(dataDir, "logs", fmt.Sprintf("task-%s.log", safe))
}
