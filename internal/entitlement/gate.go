// Package entitlement decides whether a user may create another resource,
// based on subscription state and free-tier usage counts.
//
// The Gate is a small registry: each resource type registers its free-tier
// limit and a counter callback. The package has no dependency on domain
// models or the database; the host app wires counters and the subscription
// resolver at bootstrap.
package entitlement

import (
	"context"
	"errors"
)

// Resource identifies a countable, quota-gated resource type.
type Resource string

const (
	ResourceClients  Resource = "clients"
	ResourceDevis    Resource = "devis"
	ResourceFactures Resource = "factures"
)

// Unlimited marks the absence of a quota in a Decision.
const Unlimited int64 = -1

// ErrUnknownResource is returned when no counter was registered for a resource.
var ErrUnknownResource = errors.New("entitlement: unknown resource")

// Decision is the outcome of a quota check, surfaced to the user so the UI
// can show "4 of 5 used".
type Decision struct {
	Allowed bool  `json:"allowed"`
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"` // Unlimited (-1) for subscribed users
}

// CounterFunc returns the user's live count of a resource. For factures the
// wired counter excludes soft-deleted rows.
type CounterFunc func(ctx context.Context, userID uint) (int64, error)

// SubscriptionResolver reports the user's subscription state.
type SubscriptionResolver interface {
	// PlanActive is true while a paid plan's current period runs.
	PlanActive(ctx context.Context, userID uint) (bool, error)
	// TrialActive is true while the free trial runs.
	TrialActive(ctx context.Context, userID uint) (bool, error)
}

type resourceRule struct {
	limit int64
	count CounterFunc
}

// Gate is the central creation checkpoint.
type Gate struct {
	subs  SubscriptionResolver
	rules map[Resource]resourceRule
}

// NewGate creates an empty gate; register each resource before use.
func NewGate(subs SubscriptionResolver) *Gate {
	return &Gate{subs: subs, rules: make(map[Resource]resourceRule)}
}

// Register adds a resource with its free-tier limit and counter.
// Overwrites any existing registration for that resource.
func (g *Gate) Register(r Resource, freeLimit int64, count CounterFunc) {
	g.rules[r] = resourceRule{limit: freeLimit, count: count}
}

// CanCreate checks whether the user may create one more of the resource.
// Subscribed users are always allowed, with the current count reported and
// the limit set to Unlimited. Free users are allowed while their live count
// is below the registered limit. The check applies to creation only; edits
// never re-check quota.
func (g *Gate) CanCreate(ctx context.Context, userID uint, r Resource) (Decision, error) {
	rule, ok := g.rules[r]
	if !ok {
		return Decision{}, ErrUnknownResource
	}
	current, err := rule.count(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	active, err := g.subs.PlanActive(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if active {
		return Decision{Allowed: true, Current: current, Limit: Unlimited}, nil
	}
	return Decision{Allowed: current < rule.limit, Current: current, Limit: rule.limit}, nil
}

// PlanOrTrialActive reports whether the user holds a paid plan or a running
// trial. Devis creation requires this in addition to the count gate.
func (g *Gate) PlanOrTrialActive(ctx context.Context, userID uint) (bool, error) {
	active, err := g.subs.PlanActive(ctx, userID)
	if err != nil {
		return false, err
	}
	if active {
		return true, nil
	}
	return g.subs.TrialActive(ctx, userID)
}
