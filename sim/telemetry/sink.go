package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inference-sim/flowsim/sim"
)

const instrumentationName = "github.com/inference-sim/flowsim/sim/telemetry"

type flowSpans struct {
	root     trace.Span
	ctx      context.Context
	wait     trace.Span
	transmit trace.Span
}

// SpanSink turns the event stream into spans. It implements sim.EventSink
// and is safe for concurrent use.
type SpanSink struct {
	tracer trace.Tracer

	mu    sync.Mutex
	flows map[int]*flowSpans
}

// NewSpanSink creates a sink using tp. A nil tp uses the global provider.
func NewSpanSink(tp trace.TracerProvider) *SpanSink {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &SpanSink{
		tracer: tp.Tracer(instrumentationName),
		flows:  make(map[int]*flowSpans),
	}
}

func (s *SpanSink) Emit(e sim.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := trace.WithTimestamp(e.Time)
	switch e.Kind {
	case sim.EventArrival:
		ctx, root := s.tracer.Start(context.Background(), "flow", at,
			trace.WithAttributes(flowAttributes(e.Flow)...))
		_, wait := s.tracer.Start(ctx, "flow.wait", at)
		s.flows[e.Flow.ID] = &flowSpans{root: root, ctx: ctx, wait: wait}
	case sim.EventWait:
		fs := s.flows[e.Flow.ID]
		if fs == nil || fs.wait == nil {
			return
		}
		fs.wait.AddEvent("blocked", at, trace.WithAttributes(
			attribute.Int("flowsim.blocked_by", e.BlockedBy),
			attribute.Bool("flowsim.blocked_by_holder", e.BlockedByHolder),
		))
	case sim.EventStart:
		fs := s.flows[e.Flow.ID]
		if fs == nil {
			return
		}
		if fs.wait != nil {
			fs.wait.End(trace.WithTimestamp(e.Time))
			fs.wait = nil
		}
		_, fs.transmit = s.tracer.Start(fs.ctx, "flow.transmit", at)
	case sim.EventEnd:
		fs := s.flows[e.Flow.ID]
		if fs == nil {
			return
		}
		if fs.transmit != nil {
			fs.transmit.End(trace.WithTimestamp(e.Time))
		}
		fs.root.SetStatus(codes.Ok, "")
		fs.root.End(trace.WithTimestamp(e.Time))
		delete(s.flows, e.Flow.ID)
	}
}

// Close ends the spans of flows that never finished, marking them as errors.
func (s *SpanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, fs := range s.flows {
		if fs.wait != nil {
			fs.wait.End()
		}
		if fs.transmit != nil {
			fs.transmit.End()
		}
		fs.root.SetStatus(codes.Error, "flow did not finish")
		fs.root.End()
		delete(s.flows, id)
	}
}

// Open returns the number of flows with unfinished spans.
func (s *SpanSink) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

func flowAttributes(f sim.Flow) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("flowsim.flow_id", f.ID),
		attribute.Int("flowsim.priority", f.Priority),
		attribute.Float64("flowsim.arrival_seconds", f.Arrival.Seconds()),
		attribute.Float64("flowsim.hold_seconds", f.Hold.Seconds()),
	}
}
