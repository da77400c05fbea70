package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lollopanta/Projex-sub000/internal/domain"
	"github.com/lollopanta/Projex-sub000/internal/usecase/shared"
)

// ShowLogsInput contains the parameters for showing the activity log.
type ShowLogsInput struct {
	TaskID string // Task to show the log of; empty shows the global log
	Lines  int    // Number of lines to display from the end (0 = all)
}

// ShowLogsOutput contains the log content.
type ShowLogsOutput struct {
	LogPath string // Path to the log file
	Content string // Log file content
}

// ShowLogs reads the global or per-task activity log.
type ShowLogs struct {
	store   domain.EntityStore
	dataDir string
}

// NewShowLogs creates a new ShowLogs use case.
func NewShowLogs(store domain.EntityStore, dataDir string) *ShowLogs {
	return &ShowLogs{
		store:   store,
		dataDir: dataDir,
	}
}

// Execute reads and returns the log content.
func (uc *ShowLogs) Execute(_ context.Context, in ShowLogsInput) (*ShowLogsOutput, error) {
	logPath := domain.GlobalLogPath(uc.dataDir)
	if in.TaskID != "" {
		if _, err := shared.GetTask(uc.store, in.TaskID); err != nil {
			return nil, err
		}
		logPath = domain.TaskLogPath(uc.dataDir, in.TaskID)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoLogs, logPath)
		}
		return nil, fmt.Errorf("read log file: %w", err)
	}

	result := string(content)
	if in.Lines > 0 {
		lines := strings.Split(strings.TrimSuffix(result, "\n"), "\n")
		if len(lines) > in.Lines {
			lines = lines[len(lines)-in.Lines:]
		}
		result = strings.Join(lines, "\n") + "\n"
	}

	return &ShowLogsOutput{
		LogPath: logPath,
		Content: result,
	}, nil
}
