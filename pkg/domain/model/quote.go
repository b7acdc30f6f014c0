package model

import "time"

// Quote is a bank's pricing proposal for an RD. It is mutable while being
// drafted and frozen once referenced by an ACCEPTED reply.
type Quote struct {
	StaticID        string
	RDID            string
	Advance         float64
	PricingPercent  float64
	DaysDiscounting int
	Comment         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
