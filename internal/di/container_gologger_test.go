package di

import (
	"fmt"
	"testing"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging/console"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging/gologger"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/runtimeconfig"
)

func TestConfigureLoggerProviderUsesGoLoggerAdapter(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	provider, ok := container.loggerProvider.(*gologger.Provider)
	if !ok {
		t.Fatalf("expected go-logger provider, got %T", container.loggerProvider)
	}

	logger := provider.GetLogger("autopublish.test")
	if logger == nil {
		t.Fatal("expected logger from go-logger provider, got nil")
	}
}

func TestConfigureLoggerProviderDefaultsToConsole(t *testing.T) {
	container, err := NewContainer(runtimeconfig.DefaultConfig())
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	want := console.NewProvider(console.Options{})
	if got := container.LoggerProvider(); got == nil || fmt.Sprintf("%T", got) != fmt.Sprintf("%T", want) {
		t.Fatalf("expected console provider, got %T", got)
	}
}
