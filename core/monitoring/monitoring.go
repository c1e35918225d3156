// Package monitoring reports failed planning runs to an error tracker.
package monitoring

import (
	"time"

	"github.com/kilianp07/induction/core/model"
)

// FlushTimeout bounds how long ReportFailure waits for buffered events.
const FlushTimeout = 2 * time.Second

// Monitor receives failures of a command.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops everything. It is used when no tracker is configured.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation. A nil monitor is ignored.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Reset restores the no-op monitor.
func Reset() { current = NopMonitor{} }

// Tags builds the tags attached to a failed command.
func Tags(command string, err error) map[string]string {
	kind := string(model.KindOf(err))
	if kind == "" {
		kind = "error"
	}
	return map[string]string{"kind": kind, "command": command}
}

// ReportFailure sends a failed command to the tracker and waits for delivery.
// Validation failures are not reported. It reports whether err was sent.
func ReportFailure(command string, err error) bool {
	if err == nil || model.IsKind(err, model.KindValidation) {
		return false
	}
	current.CaptureException(err, Tags(command, err))
	current.Flush(FlushTimeout)
	return true
}
