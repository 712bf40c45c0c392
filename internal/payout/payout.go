package payout

import (
	"github.com/bmbroch/payops/internal/models"
)

// Calculator turns view counts into owed amounts under a validated
// schedule and policy. Construct once at startup and share.
type Calculator struct {
	schedule Schedule
	policy   Policy
}

// NewCalculator validates the schedule and returns a calculator
func NewCalculator(schedule Schedule, policy Policy) (*Calculator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{schedule: schedule, policy: policy}, nil
}

// Policy returns the calculator's policy
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Schedule returns the calculator's tier table
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// PayoutFor returns the tiered payout for a view count. The schedule was
// validated to cover [0, OpenEnd], so a lookup miss cannot happen here.
func (c *Calculator) PayoutFor(views int64) int64 {
	if views < 0 {
		views = 0
	}
	row, err := c.schedule.Lookup(views)
	if err != nil {
		panic(err)
	}
	return row.Payout
}

// Split decomposes a payout into the fixed base share and the remainder
// bonus share. Bonus floors at zero.
func (c *Calculator) Split(views int64) (base, bonus int64) {
	base = c.policy.BaseShare
	bonus = c.PayoutFor(views) - base
	if bonus < 0 {
		bonus = 0
	}
	return base, bonus
}

// ShareValue returns the dollar value of one payment type for a view count
func (c *Calculator) ShareValue(views int64, paymentType string) int64 {
	base, bonus := c.Split(views)
	if paymentType == models.PaymentTypeBonus {
		return bonus
	}
	return base
}

// BestViews returns the higher of the two platform view counts
func BestViews(p *models.Post) int64 {
	if p.TikTokViews > p.InstagramViews {
		return p.TikTokViews
	}
	return p.InstagramViews
}

// WinningPlatform returns the display label for the platform with more
// views. Instagram wins exact ties; the label never affects payout math.
func WinningPlatform(p *models.Post) string {
	if p.TikTokViews > p.InstagramViews {
		return models.PlatformTikTok
	}
	return models.PlatformInstagram
}
