// Package notification fans out "commission updated" facts. Delivery is
// best-effort: a sink may drop, it must never block or fail a calculation.
package notification

import "context"

// Fact is the only thing the engine tells the outside world.
type Fact struct {
	UserID string  `json:"user_id"`
	OrgID  string  `json:"org_id"`
	Month  string  `json:"month"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

type Sink interface {
	Publish(ctx context.Context, fact Fact)
}
