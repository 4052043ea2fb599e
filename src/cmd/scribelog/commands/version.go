// FILE: scribelog/src/cmd/scribelog/commands/version.go
package commands

import (
	"fmt"

	"scribelog/src/internal/version"
)

// VersionCommand handles version display
type VersionCommand struct{}

func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

func (c *VersionCommand) Execute(args []string) error {
	fmt.Println(version.String())
	return nil
}

func (c *VersionCommand) Description() string {
	return "Show version information"
}

func (c *VersionCommand) Help() string {
	return `Version Command - Show scribelog version information

Usage:
  scribelog version

Output includes the version tag, git commit and build time.
`
}
