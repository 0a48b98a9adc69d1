package usage

import "context"

// Tracker applies a Plan to the counters kept in a Store.
//
// A use is reserved before the work starts and released if the work fails.
// Reserving increments first and checks the cap on the returned value, so
// concurrent requests from one guest cannot overshoot the plan.
type Tracker struct {
	Store Store
	Plan  Plan
}

// NewTracker returns a Tracker enforcing plan over store.
func NewTracker(store Store, plan Plan) *Tracker {
	return &Tracker{Store: store, Plan: plan}
}

// Reserve takes one use of feature for guestID. It returns false, leaving
// the counter unchanged, when the guest is already at the cap.
func (t *Tracker) Reserve(ctx context.Context, guestID, feature string) (bool, error) {
	limit, ok := t.Plan[feature]
	if !ok {
		return false, ErrUnknownFeature
	}
	n, err := t.Store.Add(ctx, guestID, feature, 1)
	if err != nil {
		return false, err
	}
	if n > limit {
		if _, err := t.Store.Add(ctx, guestID, feature, -1); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Release returns a reserved use that was not consumed.
func (t *Tracker) Release(ctx context.Context, guestID, feature string) error {
	if !t.Plan.Has(feature) {
		return ErrUnknownFeature
	}
	_, err := t.Store.Add(ctx, guestID, feature, -1)
	return err
}

// Summary is the JSON shape returned to the client.
type Summary struct {
	Counts    Counts         `json:"counts"`
	Limits    Plan           `json:"limits"`
	Remaining map[string]int `json:"remaining"`
}

// Summary returns the guest's counters alongside the plan limits.
func (t *Tracker) Summary(ctx context.Context, guestID string) (Summary, error) {
	counts, err := t.Store.Counts(ctx, guestID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Counts: counts, Limits: t.Plan, Remaining: t.Plan.Remaining(counts)}, nil
}
