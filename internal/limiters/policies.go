package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/dia-accounts/dia/internal/rate"
)

// Policy is the budget of one group: Capacity requests per Window.
type Policy struct {
	Capacity int64
	Window   time.Duration
}

// Policies holds one Policy per rate-limit group.
type Policies struct {
	General  Policy
	Login    Policy
	Register Policy
}

// DefaultPolicies returns 60/h general, 10/h login and 5/h registration budgets.
func DefaultPolicies() Policies {
	return Policies{
		General:  Policy{Capacity: 60, Window: time.Hour},
		Login:    Policy{Capacity: 10, Window: time.Hour},
		Register: Policy{Capacity: 5, Window: time.Hour},
	}
}

func (p Policies) Validate() error {
	for _, group := range []rate.Group{rate.General, rate.Login, rate.Register} {
		policy := p.policy(group)
		if policy.Capacity < 1 {
			return fmt.Errorf("%s rate limit capacity must be >= 1", group)
		}
		if policy.Window < time.Second {
			return fmt.Errorf("%s rate limit window must be >= 1s", group)
		}
	}
	return nil
}

// For builds the immutable Limit for one check.
func (p Policies) For(group rate.Group, id rate.Identifier) rate.Limit {
	policy := p.policy(group)
	return rate.Limit{
		Group:      group,
		Identifier: id,
		Capacity:   policy.Capacity,
		Window:     policy.Window,
	}
}

func (p Policies) policy(group rate.Group) Policy {
	switch group {
	case rate.Login:
		return p.Login
	case rate.Register:
		return p.Register
	default:
		return p.General
	}
}

// Gate applies Policies through a shared Limiter.
type Gate struct {
	limiter  *rate.Limiter
	policies Policies
}

func NewGate(limiter *rate.Limiter, policies Policies) *Gate {
	return &Gate{limiter: limiter, policies: policies}
}

// Enforce consumes one unit of group's budget for id.
func (g *Gate) Enforce(ctx context.Context, group rate.Group, id rate.Identifier) error {
	return g.limiter.Check(ctx, g.policies.For(group, id))
}
