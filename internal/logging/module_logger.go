package logging

import (
	"context"
	"strings"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const (
	rootModule       = "autopublish"
	rotationModule   = "autopublish.rotation"
	formatterModule  = "autopublish.formatter"
	urlgenModule     = "autopublish.urlgen"
	publishingModule = "autopublish.publishing"
	generationModule = "autopublish.generation"
)

const (
	fieldCampaignID = "campaign_id"
	fieldSiteID     = "site_id"
	fieldEntryID    = "entry_id"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field so entries can be filtered per module.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// RotationLogger returns the logger namespace reserved for the rotation engine.
func RotationLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, rotationModule)
}

// FormatterLogger returns the logger namespace reserved for the content formatter.
func FormatterLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, formatterModule)
}

// URLGenLogger returns the logger namespace reserved for slug and URL generation.
func URLGenLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, urlgenModule)
}

// PublishingLogger returns the logger namespace reserved for the orchestrator.
func PublishingLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publishingModule)
}

// GenerationLogger returns the logger namespace reserved for content generators.
func GenerationLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, generationModule)
}

// WithEntryContext enriches the logger with campaign, site and entry identifiers.
// Empty values are ignored.
func WithEntryContext(logger interfaces.Logger, campaignID, siteID, entryID string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(campaignID); trimmed != "" {
		fields[fieldCampaignID] = trimmed
	}
	if trimmed := strings.TrimSpace(siteID); trimmed != "" {
		fields[fieldSiteID] = trimmed
	}
	if trimmed := strings.TrimSpace(entryID); trimmed != "" {
		fields[fieldEntryID] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
