package publishing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/publishing"
)

func TestClassifyUsesMessageHints(t *testing.T) {
	cases := []struct {
		err       error
		stage     publishing.Stage
		retryable bool
	}{
		{errors.New("template pool is empty"), publishing.StageTemplateAssignment, false},
		{errors.New("failed to generate article: request timeout"), publishing.StageContentGeneration, true},
		{errors.New("format: malformed heading"), publishing.StageFormatting, false},
		{errors.New("slug namespace exhausted"), publishing.StageURLGeneration, false},
		{errors.New("write rejected: network unreachable"), publishing.StagePublishing, true},
		{errors.New("upstream says rate limit"), publishing.StagePublishing, true},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), publishing.StagePublishing, true},
	}
	for _, tc := range cases {
		stage, retryable := publishing.Classify(tc.err)
		if stage != tc.stage || retryable != tc.retryable {
			t.Fatalf("%q: expected (%s, %v), got (%s, %v)", tc.err, tc.stage, tc.retryable, stage, retryable)
		}
	}
}

func TestClassifyPrefersStageError(t *testing.T) {
	err := fmt.Errorf("outer: %w", &publishing.StageError{
		Stage:     publishing.StageFormatting,
		Message:   "content could not be styled",
		Retryable: true,
	})
	stage, retryable := publishing.Classify(err)
	if stage != publishing.StageFormatting || !retryable {
		t.Fatalf("expected structured classification, got (%s, %v)", stage, retryable)
	}
	if stage, _ := publishing.Classify(nil); stage != "" {
		t.Fatalf("expected empty stage for nil error")
	}
}

func TestStageErrorMessageAndUnwrap(t *testing.T) {
	err := &publishing.StageError{Stage: publishing.StageContentGeneration, Err: publishing.ErrEmptyGeneration}
	if !errors.Is(err, publishing.ErrEmptyGeneration) {
		t.Fatalf("expected unwrap to reach sentinel")
	}
	if err.Error() != publishing.ErrEmptyGeneration.Error() {
		t.Fatalf("unexpected message %q", err.Error())
	}
	bare := &publishing.StageError{Stage: publishing.StagePublishing}
	if bare.Error() != "publishing failed" {
		t.Fatalf("unexpected bare message %q", bare.Error())
	}
}
