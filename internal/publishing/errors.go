package publishing

import (
	"context"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageTemplateAssignment Stage = "template_assignment"
	StageContentGeneration  Stage = "content_generation"
	StageFormatting         Stage = "formatting"
	StageURLGeneration      Stage = "url_generation"
	StagePublishing         Stage = "publishing"
)

var (
	ErrCampaignRequired     = errors.New("publishing: campaign id required")
	ErrNoSites              = errors.New("publishing: at least one site id is required")
	ErrKeywordRequired      = errors.New("publishing: keyword required")
	ErrTargetURLRequired    = errors.New("publishing: target url required")
	ErrBlogDisabled         = errors.New("template assignment: site has blogging disabled")
	ErrGeneratorUnavailable = errors.New("content generation: no generator configured")
	ErrEmptyGeneration      = errors.New("content generation: generator returned empty content")
)

const (
	invalidRequestCode = "PUBLISHING_INVALID_REQUEST"
	batchFailedCode    = "PUBLISHING_BATCH_FAILED"
)

// StageError tags an error with the stage it happened in and whether a
// retry may help.
type StageError struct {
	Stage     Stage
	Message   string
	Retryable bool
	Err       error
}

func (e *StageError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Stage) + " failed"
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageError builds a StageError whose retryability is inferred from err.
func stageError(stage Stage, message string, err error) *StageError {
	_, retryable := Classify(err)
	return &StageError{Stage: stage, Message: message, Retryable: retryable, Err: err}
}

var (
	retryableHints = []string{"timeout", "rate limit", "service unavailable", "network", "temporary"}
	stageHints     = []struct {
		stage Stage
		terms []string
	}{
		{StageTemplateAssignment, []string{"template"}},
		{StageContentGeneration, []string{"content", "generate"}},
		{StageFormatting, []string{"format"}},
		{StageURLGeneration, []string{"url", "slug"}},
	}
)

// Classify returns the stage and retryability of err. A StageError anywhere in
// the chain wins; otherwise the message is matched against stage and
// retryability hints.
func Classify(err error) (Stage, bool) {
	if err == nil {
		return "", false
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) && stageErr.Stage != "" {
		return stageErr.Stage, stageErr.Retryable
	}

	message := strings.ToLower(err.Error())
	stage := StagePublishing
	for _, hint := range stageHints {
		if containsAny(message, hint.terms) {
			stage = hint.stage
			break
		}
	}

	retryable := errors.Is(err, context.DeadlineExceeded) || containsAny(message, retryableHints)
	return stage, retryable
}

func containsAny(message string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(message, term) {
			return true
		}
	}
	return false
}

func invalidRequest(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid publishing request").
		WithTextCode(invalidRequestCode)
}

func batchFailure(err error) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "publishing batch failed").
		WithTextCode(batchFailedCode)
}
