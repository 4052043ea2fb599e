// FILE: scribelog/src/cmd/scribelog/signal.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler waits for termination signals
type SignalHandler struct {
	sigChan chan os.Signal
}

// NewSignalHandler subscribes to SIGINT and SIGTERM
func NewSignalHandler() *SignalHandler {
	sh := &SignalHandler{
		sigChan: make(chan os.Signal, 1),
	}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// Wait returns the received signal, or nil when ctx ends first
func (sh *SignalHandler) Wait(ctx context.Context) os.Signal {
	select {
	case sig := <-sh.sigChan:
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Stop unsubscribes from all signals
func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
