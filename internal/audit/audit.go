// Package audit notifies optional observers of entity state transitions and
// field changes. The engine works identically with no sink configured.
package audit

import (
	"context"

	"go.uber.org/zap"
)

// Sink observes engine mutations. Implementations must not fail the
// triggering operation: notifications are best-effort and fire after the
// mutation committed.
type Sink interface {
	Transition(ctx context.Context, entity, entityID, from, to string)
	FieldChange(ctx context.Context, entity, entityID, field string)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Transition(context.Context, string, string, string, string) {}

func (Nop) FieldChange(context.Context, string, string, string) {}

// ZapSink logs transitions and field changes as structured events.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps a logger as a sink.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Transition(_ context.Context, entity, entityID, from, to string) {
	s.logger.Info("state_transition",
		zap.String("entity", entity),
		zap.String("entity_id", entityID),
		zap.String("from", from),
		zap.String("to", to),
	)
}

func (s *ZapSink) FieldChange(_ context.Context, entity, entityID, field string) {
	s.logger.Debug("field_change",
		zap.String("entity", entity),
		zap.String("entity_id", entityID),
		zap.String("field", field),
	)
}

// Multi fans notifications out to several sinks.
type Multi []Sink

func (m Multi) Transition(ctx context.Context, entity, entityID, from, to string) {
	for _, s := range m {
		if s != nil {
			s.Transition(ctx, entity, entityID, from, to)
		}
	}
}

func (m Multi) FieldChange(ctx context.Context, entity, entityID, field string) {
	for _, s := range m {
		if s != nil {
			s.FieldChange(ctx, entity, entityID, field)
		}
	}
}
