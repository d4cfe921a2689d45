package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// notifyShutdown calls cancel on the first SIGINT or SIGTERM. After that the
// default handling is restored, so a second signal terminates the process.
// The returned func stops listening.
func notifyShutdown(logger *slog.Logger, cancel func()) (stop func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go awaitShutdown(sigChan, done, logger, cancel, func() { signal.Stop(sigChan) })

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// awaitShutdown waits for one signal or done. On a signal it calls release
// before cancel so the handler is gone by the time draining starts.
func awaitShutdown(signals <-chan os.Signal, done <-chan struct{}, logger *slog.Logger, cancel, release func()) {
	select {
	case sig := <-signals:
		release()
		logger.Warn("Received shutdown signal, finishing in-flight files; signal again to force exit",
			"signal", sig.String())
		cancel()
	case <-done:
	}
}
