// Package usage tracks per-guest feature usage against free-tier limits.
package usage

import (
	"context"
	"errors"
)

// Features offered by the product.
const (
	FeatureSimplify = "simplify"
	FeatureStealth  = "stealth"
	FeatureChat     = "chat"
	FeaturePodcast  = "podcast"
	FeatureExtract  = "extract"
)

// ErrUnknownFeature is returned when a counter is requested for a feature the
// plan does not define.
var ErrUnknownFeature = errors.New("usage: unknown feature")

// Counts maps a feature to the number of times a guest has used it.
type Counts map[string]int

// Plan holds the static per-feature caps.
type Plan map[string]int

// GuestPlan is the free tier applied to anonymous visitors.
var GuestPlan = Plan{
	FeatureSimplify: 5,
	FeatureStealth:  3,
	FeatureChat:     10,
	FeaturePodcast:  1,
	FeatureExtract:  10,
}

// Has reports whether the plan defines feature.
func (p Plan) Has(feature string) bool {
	_, ok := p[feature]
	return ok
}

// CanUse reports whether counts still allow another use of feature.
// It returns false once the counter reaches the cap, and for features the
// plan does not define.
func (p Plan) CanUse(counts Counts, feature string) bool {
	limit, ok := p[feature]
	if !ok {
		return false
	}
	return counts[feature] < limit
}

// Remaining returns how many uses are left for every feature in the plan.
func (p Plan) Remaining(counts Counts) map[string]int {
	out := make(map[string]int, len(p))
	for feature, limit := range p {
		left := limit - counts[feature]
		if left < 0 {
			left = 0
		}
		out[feature] = left
	}
	return out
}

// Store persists guest counters.
type Store interface {
	// Counts returns all counters for guestID. Unknown guests have no counters.
	Counts(ctx context.Context, guestID string) (Counts, error)
	// Add changes the guest's counter for feature by delta and returns the
	// new value. Counters never go below zero.
	Add(ctx context.Context, guestID, feature string, delta int) (int, error)
	Close() error
}
