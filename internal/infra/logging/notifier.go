package logging

import (
	"fmt"
	"io"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// Ensure Notifier implements domain.Notifier interface.
var _ domain.Notifier = (*Notifier)(nil)

// Notifier reports unblocked tasks to the task log and, optionally, to a writer.
type Notifier struct {
	logger domain.Logger
	out    io.Writer
}

// NewNotifier creates a Notifier. Either argument may be nil.
func NewNotifier(logger domain.Logger, out io.Writer) *Notifier {
	return &Notifier{logger: logger, out: out}
}

// TaskUnblocked records that completing completedID left task with no open dependency.
func (n *Notifier) TaskUnblocked(task domain.TaskSnapshot, completedID string) {
	if n.logger != nil {
		n.logger.Info(task.ID, "notify", fmt.Sprintf("ready to start, last blocker %s completed", completedID))
	}
	if n.out != nil {
		_, _ = fmt.Fprintf(n.out, "Unblocked: %s %q\n", task.ID, task.Title)
	}
}
