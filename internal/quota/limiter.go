package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"readaloud/internal/entity"
)

const (
	// PolicyIncrementThenCheck counts every request first; the one that
	// crosses the ceiling is rejected but still consumes a unit.
	PolicyIncrementThenCheck = "increment_then_check"
	// PolicyCheckThenIncrement only counts requests that fit under the
	// ceiling, so a rejected request consumes nothing.
	PolicyCheckThenIncrement = "check_then_increment"
)

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies the configured policy on top of a Counter.
type Limiter struct {
	counter Counter
	policy  string
	now     func() time.Time
}

// NewLimiter creates a limiter. An unknown policy falls back to
// PolicyIncrementThenCheck.
func NewLimiter(counter Counter, policy string) *Limiter {
	p := strings.ToLower(strings.TrimSpace(policy))
	if p != PolicyCheckThenIncrement {
		p = PolicyIncrementThenCheck
	}
	return &Limiter{counter: counter, policy: p, now: time.Now}
}

// WithClock replaces the time source, used by tests crossing midnight.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Policy returns the effective policy name.
func (l *Limiter) Policy() string {
	return l.policy
}

// Consume records one play for userID against limit.
func (l *Limiter) Consume(ctx context.Context, userID string, limit int) (Decision, error) {
	if l == nil || l.counter == nil {
		return Decision{}, fmt.Errorf("quota limiter not initialised")
	}
	now := l.now().UTC()
	day := entity.UsageDay(now)
	decision := Decision{Limit: limit, ResetAt: NextReset(now)}

	switch l.policy {
	case PolicyCheckThenIncrement:
		count, accepted, err := l.counter.IncrementPlayCountWithin(ctx, userID, day, limit)
		if err != nil {
			return Decision{}, fmt.Errorf("increment play count: %w", err)
		}
		decision.Count = count
		decision.Allowed = accepted
	default:
		count, err := l.counter.IncrementPlayCount(ctx, userID, day)
		if err != nil {
			return Decision{}, fmt.Errorf("increment play count: %w", err)
		}
		decision.Count = count
		decision.Allowed = count <= limit
	}

	decision.Remaining = remaining(limit, decision.Count)
	return decision, nil
}

// Peek reports the remaining plays without consuming one.
func (l *Limiter) Peek(ctx context.Context, userID string, limit int) (Decision, error) {
	if l == nil || l.counter == nil {
		return Decision{}, fmt.Errorf("quota limiter not initialised")
	}
	now := l.now().UTC()
	count, err := l.counter.GetPlayCount(ctx, userID, entity.UsageDay(now))
	if err != nil {
		return Decision{}, fmt.Errorf("read play count: %w", err)
	}
	return Decision{
		Allowed:   count < limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining(limit, count),
		ResetAt:   NextReset(now),
	}, nil
}

// NextReset returns the next UTC midnight after t.
func NextReset(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}
