package metrics

import (
	"strconv"

	"alphapoints/core/events"
)

// Subscriber feeds the event journal into Prometheus counters. It implements
// events.Emitter so it can be registered on the state manager alongside the
// indexer.
type Subscriber struct {
	m *PointsMetrics
}

// NewSubscriber wires the singleton points registry.
func NewSubscriber() *Subscriber {
	return &Subscriber{m: Points()}
}

// Emit implements events.Emitter.
func (s *Subscriber) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	raw := evt.Event()
	if raw == nil {
		return
	}
	attrs := raw.Attributes
	switch raw.Type {
	case events.TypePointsEarned:
		s.m.ObserveEarned(attrAmount(attrs, "amount"))
		s.publishSupply(attrs)
	case events.TypePointsSpent:
		s.m.ObserveSpent(attrAmount(attrs, "amount"))
		s.publishSupply(attrs)
	case events.TypePerkClaimed:
		s.m.ObserveClaim("ok")
	}
}

func (s *Subscriber) publishSupply(attrs map[string]string) {
	if raw, ok := attrs["supply"]; ok {
		if supply, err := strconv.ParseUint(raw, 10, 64); err == nil {
			s.m.SetSupply(supply)
		}
	}
}

func attrAmount(attrs map[string]string, key string) uint64 {
	raw, ok := attrs[key]
	if !ok {
		return 0
	}
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}
