package publisher

import (
	"time"

	"github.com/google/uuid"
	"github.com/mvishiu11/WIND/internal/wire"
)

// clientSubscription is the publisher-internal per-subscriber delivery
// state from spec.md §3 "ClientSubscription". Per spec.md §9 "Dynamic
// dispatch", delivery behavior is an explicit switch on Mode.Kind rather
// than a virtual method.
type clientSubscription struct {
	mode           wire.SubscriptionMode
	qos            wire.QosParams
	subscriptionID uuid.UUID
	lastSentAt     *time.Time
	lastSentValue  *wire.Value
}

// shouldSend decides, per spec.md §4.3 "Delivery modes", whether value
// should be delivered to this subscription at time now.
func (s *clientSubscription) shouldSend(now time.Time, value wire.Value) bool {
	switch s.mode.Kind {
	case wire.ModeOnce:
		return s.lastSentAt == nil
	case wire.ModeOnChange:
		return s.lastSentValue == nil || !s.lastSentValue.Equal(value)
	case wire.ModePeriodic:
		interval := time.Duration(s.mode.IntervalMS) * time.Millisecond
		return s.lastSentAt == nil || now.Sub(*s.lastSentAt) >= interval
	default:
		return false
	}
}

// recordSent updates last-sent bookkeeping after a successful delivery.
func (s *clientSubscription) recordSent(now time.Time, value wire.Value) {
	t := now
	v := value
	s.lastSentAt = &t
	s.lastSentValue = &v
}
