package payout

import (
	"time"

	"github.com/bmbroch/payops/pkg/config"
)

// Policy holds the two payout policy constants. Both come from config in
// exactly one place; nothing else in the tree restates them.
type Policy struct {
	BaseShare     int64
	BonusWaitDays int
}

// NewPolicy builds a policy from configuration
func NewPolicy(cfg *config.PolicyConfig) Policy {
	return Policy{
		BaseShare:     cfg.BaseShare,
		BonusWaitDays: cfg.BonusWaitDays,
	}
}

// BonusEligibleDate returns the first calendar day the bonus share may be paid
func (p Policy) BonusEligibleDate(postDate time.Time) time.Time {
	return dateOnly(postDate).AddDate(0, 0, p.BonusWaitDays)
}

// BonusEligible reports whether the bonus share may be paid yet
func (p Policy) BonusEligible(postDate, now time.Time) bool {
	return !dateOnly(now).Before(p.BonusEligibleDate(postDate))
}

// DaysUntilEligible returns the number of full days remaining after today
// before the bonus unlocks, clamped at zero, for display
func (p Policy) DaysUntilEligible(postDate, now time.Time) int {
	days := int(p.BonusEligibleDate(postDate).Sub(dateOnly(now)).Hours()/24) - 1
	if days < 0 {
		days = 0
	}
	return days
}

// dateOnly truncates a timestamp to its UTC calendar date
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
