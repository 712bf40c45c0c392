package payout

import (
	"fmt"
	"math"
)

// OpenEnd marks the upper bound of the final, unbounded tier
const OpenEnd = int64(math.MaxInt64)

// ConfigError reports a malformed tier table. It should never occur with
// the shipped schedule; hitting one at runtime is a programming error.
type ConfigError struct {
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("payout config error: %s", e.Reason)
}

// TierRow maps a view-count range to a flat payout amount in whole dollars
type TierRow struct {
	MinViews int64
	MaxViews int64
	Payout   int64
}

// Schedule is an ordered tier table covering [0, OpenEnd] contiguously
type Schedule []TierRow

// DefaultSchedule is the stepped payout table. The first bracket pays the
// flat base only; everything above it adds a time-gated bonus share.
var DefaultSchedule = Schedule{
	{MinViews: 0, MaxViews: 9_999, Payout: 25},
	{MinViews: 10_000, MaxViews: 29_999, Payout: 40},
	{MinViews: 30_000, MaxViews: 49_999, Payout: 75},
	{MinViews: 50_000, MaxViews: 99_999, Payout: 100},
	{MinViews: 100_000, MaxViews: 249_999, Payout: 150},
	{MinViews: 250_000, MaxViews: 499_999, Payout: 200},
	{MinViews: 500_000, MaxViews: 999_999, Payout: 300},
	{MinViews: 1_000_000, MaxViews: OpenEnd, Payout: 500},
}

// Validate checks that the schedule is non-empty, starts at zero, is
// contiguous and non-overlapping, and ends with an open-ended row
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return &ConfigError{Reason: "empty tier table"}
	}
	if s[0].MinViews != 0 {
		return &ConfigError{Reason: fmt.Sprintf("first tier starts at %d, want 0", s[0].MinViews)}
	}
	for i, row := range s {
		if row.MaxViews < row.MinViews {
			return &ConfigError{Reason: fmt.Sprintf("tier %d has max_views %d below min_views %d", i, row.MaxViews, row.MinViews)}
		}
		if row.Payout <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("tier %d has non-positive payout %d", i, row.Payout)}
		}
		if i > 0 {
			prev := s[i-1]
			if row.MinViews != prev.MaxViews+1 {
				return &ConfigError{Reason: fmt.Sprintf("tier %d starts at %d, want %d (contiguous with previous)", i, row.MinViews, prev.MaxViews+1)}
			}
			if row.Payout < prev.Payout {
				return &ConfigError{Reason: fmt.Sprintf("tier %d payout %d below previous payout %d", i, row.Payout, prev.Payout)}
			}
		}
	}
	if s[len(s)-1].MaxViews != OpenEnd {
		return &ConfigError{Reason: "final tier is not open-ended"}
	}
	return nil
}

// Lookup returns the unique row matching a non-negative view count
func (s Schedule) Lookup(views int64) (TierRow, error) {
	if views < 0 {
		return TierRow{}, &ConfigError{Reason: fmt.Sprintf("negative view count %d", views)}
	}
	for _, row := range s {
		if views >= row.MinViews && views <= row.MaxViews {
			return row, nil
		}
	}
	return TierRow{}, &ConfigError{Reason: fmt.Sprintf("no tier matches %d views", views)}
}
