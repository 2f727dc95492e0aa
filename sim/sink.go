package sim

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// TextSink writes one line per event to an io.Writer.
type TextSink struct {
	mu  sync.Mutex
	out io.Writer
	err error // first write error; later writes are dropped
}

// NewTextSink creates a TextSink writing to out.
func NewTextSink(out io.Writer) *TextSink {
	return &TextSink{out: out}
}

func (s *TextSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if _, err := fmt.Fprintln(s.out, e.Line()); err != nil {
		s.err = err
		logrus.Errorf("event output failed, dropping further events: %v", err)
	}
}

// Err returns the first write error, if any.
func (s *TextSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LogSink forwards events to logrus as structured entries.
type LogSink struct {
	Logger logrus.FieldLogger
	Level  logrus.Level
}

// NewLogSink creates a LogSink that logs at info level.
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{Logger: logger, Level: logrus.InfoLevel}
}

func (s *LogSink) Emit(e Event) {
	fields := logrus.Fields{
		"event":   string(e.Kind),
		"flow":    e.Flow.ID,
		"elapsed": fmt.Sprintf("%.2f", e.Elapsed.Seconds()),
	}
	switch e.Kind {
	case EventArrival:
		fields["arrival"] = e.Flow.Arrival.Seconds()
		fields["hold"] = e.Flow.Hold.Seconds()
		fields["priority"] = e.Flow.Priority
	case EventWait:
		fields["blocked_by"] = e.BlockedBy
		fields["blocked_by_holder"] = e.BlockedByHolder
	}
	entry := s.Logger.WithFields(fields)
	switch s.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug(e.Message())
	case logrus.WarnLevel:
		entry.Warn(e.Message())
	default:
		entry.Info(e.Message())
	}
}

// Recorder keeps every event in memory, in emission order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the recorded events of the given kind.
func (r *Recorder) Filter(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// MultiSink fans each event out to every sink, in order.
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// discardSink drops every event.
type discardSink struct{}

func (discardSink) Emit(Event) {}

// Discard is an EventSink that drops every event.
var Discard EventSink = discardSink{}
