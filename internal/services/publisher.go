package services

import (
	"context"

	"memorybox/internal/events"

	"go.uber.org/zap"
)

// Badge evaluation modes
const (
	EvaluationAsync = "async"
	EvaluationSync  = "sync"
)

// publisher emits domain events. In sync mode handlers run inside the
// request; in async mode they run on the bus workers. Failures never fail
// the mutation that raised the event.
type publisher struct {
	bus    events.EventBus
	sync   bool
	logger *zap.Logger
}

func newPublisher(bus events.EventBus, mode string, logger *zap.Logger) *publisher {
	return &publisher{bus: bus, sync: mode == EvaluationSync, logger: logger}
}

func (p *publisher) publish(ctx context.Context, event events.Event) {
	if p == nil || p.bus == nil {
		return
	}

	var err error
	if p.sync {
		err = p.bus.Publish(ctx, event)
	} else {
		err = p.bus.PublishAsync(ctx, event)
	}
	if err != nil {
		p.logger.Warn("Event delivery failed",
			zap.String("event_type", event.GetEventType()),
			zap.Int64("group_id", event.GetGroupID()),
			zap.Bool("sync", p.sync),
			zap.Error(err),
		)
	}
}
