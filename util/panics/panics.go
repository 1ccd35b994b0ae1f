package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/dashevo/dashspv/infrastructure/logger"
)

const exitHandlerTimeout = 5 * time.Second

// HandlePanic recovers a panic, logs it along with the stack trace of the
// goroutine that spawned the panicking one, and exits.
func HandlePanic(log *logger.Logger, spawnStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	exitHandlerDone := make(chan struct{})
	go func() {
		log.Criticalf("Fatal error: %+v", err)
		log.Criticalf("Stack trace: %s", debug.Stack())
		if spawnStackTrace != nil {
			log.Criticalf("Spawned from: %s", spawnStackTrace)
		}
		if log.Backend().IsRunning() {
			log.Backend().Close()
		}
		close(exitHandlerDone)
	}()

	select {
	case <-time.After(exitHandlerTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't flush the log before exiting.")
	case <-exitHandlerDone:
	}
	os.Exit(1)
}

// GoroutineWrapperFunc returns a function spawning named goroutines whose
// panics are written to log.
func GoroutineWrapperFunc(log *logger.Logger) func(name string, f func()) {
	return func(name string, f func()) {
		spawnStackTrace := debug.Stack()
		go func() {
			log.Tracef("Started goroutine %s", name)
			defer log.Tracef("Ended goroutine %s", name)
			defer HandlePanic(log, spawnStackTrace)
			f()
		}()
	}
}
