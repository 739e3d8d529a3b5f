package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging/console"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 535897000, time.UTC)

	minLevel := console.LevelDebug
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
		MinLevel: &minLevel,
	})

	logger := logging.WithFields(provider.GetLogger("autopublish.publishing"), map[string]any{
		"module": "autopublish.publishing",
	})
	ctx := logging.ContextWithFields(context.Background(), map[string]any{
		"campaign_id": "spring-launch",
	})
	logger = logger.WithContext(ctx)

	logger.Info("publishing.entry.published",
		"site_id", "site-1",
		"duration", 1500*time.Millisecond,
		"url", "https://blog.example.com/tech-focus/best-seo-tips",
	)

	got := strings.TrimSpace(buf.String())
	want := "2024-03-14T15:09:26.535897Z INFO publishing.entry.published campaign_id=spring-launch duration=1.5s logger=autopublish.publishing module=autopublish.publishing site_id=site-1 url=https://blog.example.com/tech-focus/best-seo-tips"
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelInfo
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: time.Now,
		MinLevel: &minLevel,
	})

	logger := provider.GetLogger("autopublish.test")
	logger.Debug("ignored.debug", "foo", "bar")
	logger.Info("included.info", "foo", "bar")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "included.info") {
		t.Fatalf("expected info log to be written, got %s", lines[0])
	}
}

func TestConsoleLogger_QuotesValuesAndPositionalArgs(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf})

	var logger interfaces.Logger = provider.GetLogger("x")
	logger.Error("failed", "error", errors.New("rate limit exceeded"), "dangling")

	line := buf.String()
	if !strings.Contains(line, `error="rate limit exceeded"`) {
		t.Fatalf("expected quoted error value, got %s", line)
	}
	if !strings.Contains(line, "field_1=dangling") {
		t.Fatalf("expected positional field for dangling arg, got %s", line)
	}
}

func TestParseLevel(t *testing.T) {
	level, ok := console.ParseLevel("Warning")
	if !ok || level != console.LevelWarn {
		t.Fatalf("expected warn level, got %v (%v)", level, ok)
	}
	if _, ok := console.ParseLevel("loud"); ok {
		t.Fatal("expected unknown level to be rejected")
	}
}
