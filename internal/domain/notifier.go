package domain

import "time"

// Change event types emitted by the core. Consumers treat events purely as a
// refetch trigger, never as the source of truth.
const (
	ChangeOpportunity = "opportunity_changed"
	ChangeAssignment  = "assignment_changed"
)

// ChangeEvent is the envelope broadcast when an opportunity or one of its
// assignments changes.
type ChangeEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OpportunityID string    `json:"opportunity_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ChangeNotifier fans change events out to subscribed observers. Delivery is
// fire-and-forget and best-effort: Broadcast must never block the caller, and
// the invariant-bearing state stays correct even if an event is dropped or
// arrives out of order.
type ChangeNotifier interface {
	Broadcast(event ChangeEvent)
}
