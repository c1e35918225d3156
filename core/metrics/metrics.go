package metrics

import (
	"io"
	"time"
)

// Outcome values of a RunEvent besides the failure kinds.
const (
	OutcomeOK = "ok"
)

// RunEvent summarises one planning run.
type RunEvent struct {
	RunID       string
	Engine      string
	Status      string
	Outcome     string
	Vehicles    int
	Service     int
	Standby     int
	Maintenance int
	Ineligible  int
	Objective   int64
	Bound       float64
	Nodes       int64
	SolveTime   time.Duration
	Duration    time.Duration
	Time        time.Time
}

// Sink records planning runs.
type Sink interface {
	RecordRun(ev RunEvent) error
}

// StageEvent is the timing of one pipeline stage.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// StageRecorder is implemented by sinks able to record stage timings.
type StageRecorder interface {
	RecordStage(ev StageEvent) error
}

// Flusher is implemented by sinks that buffer or push their data.
type Flusher interface {
	Flush() error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error     { return nil }
func (NopSink) RecordStage(StageEvent) error { return nil }
func (NopSink) Flush() error                 { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to every sink, returning the first error.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordStage forwards stage timings to the sinks that support them.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			if err := rec.RecordStage(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every sink that buffers.
func (m *MultiSink) Flush() error {
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases every sink holding a connection or a file.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := Close(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes s when it implements io.Closer.
func Close(s Sink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
