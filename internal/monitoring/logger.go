// Package monitoring carries the progress logger used by the command line
// tools. Library packages keep their own ops/diag/trace streams.
package monitoring

import (
	"log"
	"time"
)

// Logf reports progress. It defaults to log.Printf and may be replaced by
// SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Track logs the start of a named step and returns a func that logs its
// duration. Use as defer monitoring.Track("triptych")().
func Track(step string) func() {
	start := time.Now()
	Logf("%s: started", step)
	return func() {
		Logf("%s: done in %v", step, time.Since(start).Round(time.Millisecond))
	}
}
