package observability

import (
	"log/slog"

	"pactnet/core/events"
	"pactnet/core/types"
	"pactnet/native/escrow"
)

// InstrumentedEmitter decorates an events.Emitter with structured logging and
// Prometheus counters. Engines stay unaware of observability; the decoration
// happens at wiring time.
type InstrumentedEmitter struct {
	next    events.Emitter
	logger  *slog.Logger
	metrics *ledgerMetrics
}

// NewInstrumentedEmitter wraps next so every emitted event is logged and
// counted. A nil next falls back to the no-op emitter.
func NewInstrumentedEmitter(next events.Emitter, logger *slog.Logger) *InstrumentedEmitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedEmitter{next: next, logger: logger, metrics: Ledger()}
}

// Emit forwards the event after recording it.
func (e *InstrumentedEmitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	e.metrics.RecordEvent(eventType)
	switch eventType {
	case escrow.EventTypeDisputeRaised:
		e.metrics.DisputeOpened()
	case escrow.EventTypeDisputeResolved:
		e.metrics.DisputeClosed()
	}

	args := []any{slog.String("event", eventType)}
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		if typed := payload.Event(); typed != nil {
			for key, value := range typed.Attributes {
				args = append(args, slog.String(key, value))
			}
		}
	}
	e.logger.Info("ledger event", args...)

	e.next.Emit(evt)
}
