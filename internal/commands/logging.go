package commands

import (
	"strings"

	"github.com/belonio2793/backlinkoo-solar-system-sub002/internal/logging"
	"github.com/belonio2793/backlinkoo-solar-system-sub002/pkg/interfaces"
)

const commandModuleRoot = "autopublish.commands"

// CommandLogger returns a module-scoped logger for command handlers tagged with the
// command module name.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
