package commands

import (
	"context"
	"errors"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

// HandlerOption configures a Handler.
type HandlerOption[T command.Message] func(*Handler[T])

// Handler runs one kind of pipeline command for the go-command dispatcher.
// It validates the message, bounds the run with a time budget, reports the
// outcome and classifies the returned error.
type Handler[T command.Message] struct {
	run       command.CommandFunc[T]
	logger    interfaces.Logger
	budget    time.Duration
	operation string
	reporter  Reporter[T]
	now       func() time.Time
}

// NewHandler wraps run so it satisfies command.Commander[T].
func NewHandler[T command.Message](run command.CommandFunc[T], opts ...HandlerOption[T]) *Handler[T] {
	if run == nil {
		panic("commands: run function cannot be nil")
	}
	h := &Handler[T]{
		run:    run,
		logger: logging.NoOp(),
		budget: DefaultRunTimeout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.reporter == nil {
		h.reporter = LogReporter[T](h.logger)
	}
	return h
}

func (h *Handler[T]) Execute(ctx context.Context, msg T) error {
	messageType := command.GetMessageType(msg)
	scope := scopeFields(messageType, h.operation, msg)

	if err := command.ValidateMessage(msg); err != nil {
		return invalidCommand.tag(err, scope)
	}

	ctx, cancel := runScope(ctx, h.budget)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return interruption(err).tag(err, scope)
	}

	logging.WithFields(h.logger, scope).Debug("pipeline.command.started")
	started := h.now()
	err := h.run(ctx, msg)

	report := RunReport{
		Command:   messageType,
		Operation: h.operation,
		Duration:  h.now().Sub(started),
		Fields:    scope,
		Status:    RunSucceeded,
	}
	if campaign, ok := scope["campaign_id"].(string); ok {
		report.Campaign = campaign
	}

	kind := runFailed
	switch ctxErr := ctx.Err(); {
	case err != nil && ctxErr != nil && errors.Is(err, ctxErr):
		kind = interruption(ctxErr)
		report.Status, report.Error = RunInterrupted, err
	case err != nil:
		report.Status, report.Error = RunFailed, err
	case ctxErr != nil:
		err, kind = ctxErr, interruption(ctxErr)
		report.Status, report.Error = RunInterrupted, ctxErr
	}
	h.reporter(ctx, msg, report)
	return kind.tag(err, scope)
}

// WithTimeout sets the run budget. Zero or less disables it.
func WithTimeout[T command.Message](budget time.Duration) HandlerOption[T] {
	return func(h *Handler[T]) {
		if budget < 0 {
			budget = 0
		}
		h.budget = budget
	}
}

// WithLogger sets the logger used for run logs and the default reporter.
func WithLogger[T command.Message](logger interfaces.Logger) HandlerOption[T] {
	return func(h *Handler[T]) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithOperation names the pipeline operation in logs and error metadata.
func WithOperation[T command.Message](operation string) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.operation = operation
	}
}

// WithReporter replaces the log-based run reports.
func WithReporter[T command.Message](reporter Reporter[T]) HandlerOption[T] {
	return func(h *Handler[T]) {
		h.reporter = reporter
	}
}

// WithClock overrides the clock used to time runs.
func WithClock[T command.Message](now func() time.Time) HandlerOption[T] {
	return func(h *Handler[T]) {
		if now != nil {
			h.now = now
		}
	}
}
