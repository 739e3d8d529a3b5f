package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type testMessage struct{}

func (testMessage) Type() string { return "autopublish.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "autopublish.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerReportsRuns(t *testing.T) {
	var reports []RunReport
	reporter := func(_ context.Context, _ testMessage, report RunReport) {
		reports = append(reports, report)
	}
	ticks := []time.Time{
		time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 12, 0, 3, 0, time.UTC),
	}
	clock := func() time.Time {
		now := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return now
	}

	ok := NewHandler[testMessage](func(context.Context, testMessage) error { return nil },
		WithReporter[testMessage](reporter),
		WithOperation[testMessage]("publishing.batch"),
		WithClock[testMessage](clock))
	if err := ok.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	failing := NewHandler[testMessage](func(context.Context, testMessage) error { return errors.New("boom") },
		WithReporter[testMessage](reporter))
	if err := failing.Execute(context.Background(), testMessage{}); err == nil {
		t.Fatal("expected failure")
	}

	if len(reports) != 2 {
		t.Fatalf("expected two reports, got %d", len(reports))
	}
	first := reports[0]
	if first.Status != RunSucceeded || first.Operation != "publishing.batch" || first.Command != "autopublish.test.message" {
		t.Fatalf("unexpected success report %+v", first)
	}
	if first.Duration != 3*time.Second {
		t.Fatalf("expected run timed by the clock, got %v", first.Duration)
	}
	if reports[1].Status != RunFailed || reports[1].Error == nil {
		t.Fatalf("unexpected failure report %+v", reports[1])
	}
}

type campaignMessage struct {
	campaign string
}

func (campaignMessage) Type() string { return "autopublish.test.campaign" }

func (campaignMessage) Validate() error { return nil }

func (m campaignMessage) Campaign() string { return m.campaign }

func textCode(t *testing.T, err error) (string, map[string]any) {
	t.Helper()
	var tagged *goerrors.Error
	if !errors.As(err, &tagged) {
		t.Fatalf("expected go-errors error, got %T", err)
	}
	return tagged.TextCode, tagged.Metadata
}

func TestHandlerTagsFailuresWithCampaignScope(t *testing.T) {
	var reported RunReport
	h := NewHandler[campaignMessage](func(context.Context, campaignMessage) error { return errors.New("rotation store down") },
		WithOperation[campaignMessage]("publishing.batch"),
		WithReporter[campaignMessage](func(_ context.Context, _ campaignMessage, report RunReport) { reported = report }))

	err := h.Execute(context.Background(), campaignMessage{campaign: "camp-7"})
	code, meta := textCode(t, err)
	if code != CodeRunFailed {
		t.Fatalf("expected %s, got %s", CodeRunFailed, code)
	}
	if meta["campaign_id"] != "camp-7" || meta["operation"] != "publishing.batch" || meta["command"] != "autopublish.test.campaign" {
		t.Fatalf("unexpected metadata %v", meta)
	}
	if reported.Campaign != "camp-7" {
		t.Fatalf("expected campaign on report, got %q", reported.Campaign)
	}
}

func TestHandlerSeparatesTimeoutFromCancellation(t *testing.T) {
	var statuses []RunStatus
	reporter := func(_ context.Context, _ testMessage, report RunReport) { statuses = append(statuses, report.Status) }

	slow := NewHandler[testMessage](func(ctx context.Context, _ testMessage) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout[testMessage](5*time.Millisecond), WithReporter[testMessage](reporter))
	if code, _ := textCode(t, slow.Execute(context.Background(), testMessage{})); code != CodeRunTimedOut {
		t.Fatalf("expected %s, got %s", CodeRunTimedOut, code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := NewHandler[testMessage](func(_ context.Context, _ testMessage) error {
		cancel()
		return context.Canceled
	}, WithReporter[testMessage](reporter))
	if code, _ := textCode(t, stopped.Execute(ctx, testMessage{})); code != CodeRunCancelled {
		t.Fatalf("expected %s, got %s", CodeRunCancelled, code)
	}

	if len(statuses) != 2 || statuses[0] != RunInterrupted || statuses[1] != RunInterrupted {
		t.Fatalf("expected interrupted reports, got %v", statuses)
	}
}

func TestHandlerKeepsClassifiedErrors(t *testing.T) {
	classified := goerrors.Wrap(errors.New("no sites"), goerrors.CategoryValidation, "invalid publishing request").
		WithTextCode("PUBLISHING_INVALID_REQUEST")
	h := NewHandler[testMessage](func(context.Context, testMessage) error { return classified })

	err := h.Execute(context.Background(), testMessage{})
	if code, _ := textCode(t, err); code != "PUBLISHING_INVALID_REQUEST" {
		t.Fatalf("expected publishing code to survive, got %s", code)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
}

func TestHandlerRejectsInvalidMessageWithCode(t *testing.T) {
	h := NewHandler[invalidMessage](func(context.Context, invalidMessage) error { return nil })
	if code, _ := textCode(t, h.Execute(context.Background(), invalidMessage{})); code != CodeInvalidCommand {
		t.Fatalf("expected %s, got %s", CodeInvalidCommand, code)
	}
}
