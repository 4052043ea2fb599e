// FILE: scribelog/src/cmd/scribelog/commands/help.go
package commands

import (
	"fmt"
	"strings"
)

// generalHelpTemplate is shown when no specific command is requested.
const generalHelpTemplate = `Scribelog: a scribe protocol log collector and shipper.

Usage:
  scribelog [command] [options]
  scribelog [options]              Same as 'scribelog collect'

Commands:
%s

Options:
  --config <path>          Path to configuration file (default: ~/.config/scribelog.toml)
  --quiet=true             Suppress all console output, including errors
  --<section>.<key>=<v>    Override any configuration value
  -h, --help               Display this help message and exit

Environment:
  SCRIBELOG_CONFIG_FILE              Config file path
  SCRIBELOG_CONFIG_DIR               Config directory
  SCRIBELOG_<SECTION>_<KEY>          Override any configuration value
  SCRIBELOG_DISABLE_STATUS_REPORTER  Disable periodic status reports (set to 1)

Configuration Sources (Precedence: CLI > Env > File > Defaults)

Examples:
  # Run the collector on a custom port
  scribelog --collector.port=2464

  # Ship a log file to a remote collector
  tail -F /var/log/app.log | scribelog ship --shipper.host=10.0.0.5
`

// HelpCommand displays general or command-specific help.
type HelpCommand struct {
	router *CommandRouter
}

func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 && args[0] != "" {
		cmdName := args[0]

		if handler, exists := c.router.GetCommand(cmdName); exists {
			fmt.Print(handler.Help())
			return nil
		}

		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Print(c.General())
	return nil
}

func (c *HelpCommand) Description() string {
	return "Display help information"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  scribelog help              Show general help
  scribelog help <command>    Show help for a specific command
`
}

// General renders the general help text with the aligned command list.
func (c *HelpCommand) General() string {
	return fmt.Sprintf(generalHelpTemplate, c.formatCommandList())
}

func (c *HelpCommand) formatCommandList() string {
	names := c.router.Names()

	maxLen := 0
	for _, name := range names {
		if len(name) > maxLen {
			maxLen = len(name)
		}
	}

	var lines []string
	for _, name := range names {
		handler, _ := c.router.GetCommand(name)
		padding := strings.Repeat(" ", maxLen-len(name)+2)
		lines = append(lines, fmt.Sprintf("  %s%s%s", name, padding, handler.Description()))
	}

	return strings.Join(lines, "\n")
}
