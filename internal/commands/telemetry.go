package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

// RunStatus is how a pipeline command ended.
type RunStatus string

const (
	RunSucceeded   RunStatus = "succeeded"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// RunReport describes one finished pipeline command.
type RunReport struct {
	Command   string
	Operation string
	Campaign  string
	Status    RunStatus
	Duration  time.Duration
	Error     error
	Fields    map[string]any
}

// Reporter receives a report after every run.
type Reporter[T command.Message] func(ctx context.Context, msg T, report RunReport)

// LogReporter writes run reports to logger. Interrupted runs log at warn level.
func LogReporter[T command.Message](logger interfaces.Logger) Reporter[T] {
	if logger == nil {
		logger = logging.NoOp()
	}
	return func(_ context.Context, _ T, report RunReport) {
		entry := logging.WithFields(logger, report.Fields)
		args := []any{"duration_ms", report.Duration.Milliseconds()}
		switch report.Status {
		case RunSucceeded:
			entry.Info("pipeline.command.completed", args...)
		case RunInterrupted:
			entry.Warn("pipeline.command.interrupted", append(args, "error", report.Error)...)
		default:
			entry.Error("pipeline.command.failed", append(args, "error", report.Error)...)
		}
	}
}
