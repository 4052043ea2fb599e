// FILE: scribelog/src/cmd/scribelog/main.go
package main

import (
	"os"
	"time"

	"scribelog/src/cmd/scribelog/commands"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	router := commands.NewCommandRouter()
	router.Register("collect", &collectCommand{})
	router.Register("ship", &shipCommand{})

	// Bare invocation or leading flags run the collector
	args := os.Args
	if len(args) < 2 || (args[1] != "" && args[1][0] == '-' && !isHelpFlag(args[1])) {
		args = append([]string{args[0], "collect"}, args[1:]...)
	}

	handled, err := router.Route(args)
	if err != nil {
		FatalError(1, "Error: %v\n", err)
	}
	if !handled {
		FatalError(1, "Error: no command executed\n")
	}
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help"
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}

func enableStatusReporter() bool {
	return os.Getenv("SCRIBELOG_DISABLE_STATUS_REPORTER") != "1"
}
