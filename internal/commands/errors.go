package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by errors leaving a pipeline command.
const (
	CodeInvalidCommand = "PIPELINE_COMMAND_INVALID"
	CodeRunCancelled   = "PIPELINE_RUN_CANCELLED"
	CodeRunTimedOut    = "PIPELINE_RUN_TIMED_OUT"
	CodeRunFailed      = "PIPELINE_RUN_FAILED"
)

type failureKind struct {
	category goerrors.Category
	code     string
	message  string
	severity goerrors.Severity
}

var (
	invalidCommand = failureKind{goerrors.CategoryValidation, CodeInvalidCommand, "pipeline command rejected", goerrors.SeverityWarning}
	runCancelled   = failureKind{goerrors.CategoryCommand, CodeRunCancelled, "pipeline run cancelled", goerrors.SeverityWarning}
	runTimedOut    = failureKind{goerrors.CategoryCommand, CodeRunTimedOut, "pipeline run exceeded its time budget", goerrors.SeverityError}
	runFailed      = failureKind{goerrors.CategoryCommand, CodeRunFailed, "pipeline run failed", goerrors.SeverityError}
)

// interruption maps a done context to its failure kind.
func interruption(err error) failureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return runTimedOut
	}
	return runCancelled
}

// tag classifies err and attaches the run scope. Errors already classified
// by the publishing layer keep their category and code.
func (k failureKind) tag(err error, scope map[string]any) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, k.category, k.message).
		WithTextCode(k.code).
		WithSeverity(k.severity).
		WithMetadata(scope)
}
