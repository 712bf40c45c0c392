package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bmbroch/payops/internal/cache"
	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/internal/payout"
	"github.com/bmbroch/payops/internal/recon"
	"github.com/bmbroch/payops/pkg/logging"
	"github.com/bmbroch/payops/pkg/telemetry"
)

// Store is the read surface the aggregator needs
type Store interface {
	GetCreator(ctx context.Context, id int64) (*models.Creator, error)
	ListCreators(ctx context.Context) ([]*models.Creator, error)
	ListPostsByCreator(ctx context.Context, creatorID int64) ([]*models.Post, error)
	ListPaymentsByCreator(ctx context.Context, creatorID int64) ([]*models.Payment, error)
}

// CreatorTotals is one creator's rolled-up payout position. Every field
// is recomputed from current post/payment state on read; there is no
// persisted running balance to drift.
type CreatorTotals struct {
	CreatorID         int64  `json:"creator_id"`
	Name              string `json:"name"`
	PostCount         int    `json:"post_count"`
	TotalOwed         int64  `json:"total_owed"`
	TotalPaid         int64  `json:"total_paid"`
	Balance           int64  `json:"balance"`
	UnreconciledCount int    `json:"unreconciled_count"`
	BonusReadyAmount  int64  `json:"bonus_ready_amount"`
}

// OrgTotals sums CreatorTotals across every creator
type OrgTotals struct {
	CreatorCount      int   `json:"creator_count"`
	PostCount         int   `json:"post_count"`
	TotalOwed         int64 `json:"total_owed"`
	TotalPaid         int64 `json:"total_paid"`
	Balance           int64 `json:"balance"`
	UnreconciledCount int   `json:"unreconciled_count"`
	BonusReadyAmount  int64 `json:"bonus_ready_amount"`
}

// PostDetail is one post with its computed payout fields, for operator views
type PostDetail struct {
	PostID            int64  `json:"post_id"`
	PostDate          string `json:"post_date"`
	TikTokViews       int64  `json:"tiktok_views"`
	InstagramViews    int64  `json:"instagram_views"`
	BestViews         int64  `json:"best_views"`
	WinningPlatform   string `json:"winning_platform"`
	Owed              int64  `json:"owed"`
	BaseShare         int64  `json:"base_share"`
	BonusShare        int64  `json:"bonus_share"`
	BasePaid          bool   `json:"base_paid"`
	BonusPaid         bool   `json:"bonus_paid"`
	BonusEligible     bool   `json:"bonus_eligible"`
	DaysUntilEligible int    `json:"days_until_eligible"`
	ViewsLocked       bool   `json:"views_locked"`
}

// CreatorDetail is one creator's totals plus per-post breakdown
type CreatorDetail struct {
	Totals CreatorTotals `json:"totals"`
	Posts  []PostDetail  `json:"posts"`
}

// Aggregator rolls post and payment state up into balances. Results are
// cached briefly in Redis; reconciliation writes invalidate per creator.
type Aggregator struct {
	store  Store
	calc   *payout.Calculator
	cache  *cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewAggregator creates a reporting aggregator
func NewAggregator(store Store, calc *payout.Calculator, redisCache *cache.Cache, ttl time.Duration) *Aggregator {
	return &Aggregator{
		store:  store,
		calc:   calc,
		cache:  redisCache,
		ttl:    ttl,
		now:    time.Now,
		logger: logging.WithComponent("report-aggregator"),
	}
}

func creatorTotalsKey(creatorID int64) string {
	return cache.HashKey("report_creator_totals", strconv.FormatInt(creatorID, 10))
}

// CreatorTotals computes one creator's rolled-up position
func (a *Aggregator) CreatorTotals(ctx context.Context, creatorID int64) (*CreatorTotals, error) {
	ctx, span := telemetry.StartSpan(ctx, "report.creator_totals")
	defer span.End()

	if a.cache != nil {
		var cached CreatorTotals
		if err := a.cache.GetJSON(creatorTotalsKey(creatorID), &cached); err == nil {
			return &cached, nil
		}
	}

	creator, err := a.store.GetCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load creator %d: %w", creatorID, err)
	}
	if creator == nil {
		return nil, &recon.NotFoundError{Collection: "creator", ID: creatorID}
	}

	totals, err := a.computeTotals(ctx, creator)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.SetJSON(creatorTotalsKey(creatorID), totals, a.ttl); err != nil && err != cache.ErrCacheDisabled {
			a.logger.Warn("failed to cache creator totals", zap.Int64("creator_id", creatorID), zap.Error(err))
		}
	}

	return totals, nil
}

func (a *Aggregator) computeTotals(ctx context.Context, creator *models.Creator) (*CreatorTotals, error) {
	posts, err := a.store.ListPostsByCreator(ctx, creator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for creator %d: %w", creator.ID, err)
	}
	payments, err := a.store.ListPaymentsByCreator(ctx, creator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments for creator %d: %w", creator.ID, err)
	}

	now := a.now()
	policy := a.calc.Policy()
	totals := &CreatorTotals{
		CreatorID: creator.ID,
		Name:      creator.Name,
		PostCount: len(posts),
	}

	for _, p := range posts {
		views := payout.BestViews(p)
		totals.TotalOwed += a.calc.PayoutFor(views)

		_, bonus := a.calc.Split(views)
		if bonus > 0 && !p.BonusPaid && policy.BonusEligible(p.PostDate, now) {
			totals.BonusReadyAmount += bonus
		}
	}

	for _, pay := range payments {
		totals.TotalPaid += pay.Amount
		if pay.Status == models.PaymentStatusUnreconciled {
			totals.UnreconciledCount++
		}
	}

	totals.Balance = totals.TotalOwed - totals.TotalPaid
	return totals, nil
}

// ListCreatorTotals computes totals for every creator
func (a *Aggregator) ListCreatorTotals(ctx context.Context) ([]*CreatorTotals, error) {
	ctx, span := telemetry.StartSpan(ctx, "report.list_creator_totals")
	defer span.End()

	creators, err := a.store.ListCreators(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list creators: %w", err)
	}

	out := make([]*CreatorTotals, 0, len(creators))
	for _, c := range creators {
		totals, err := a.CreatorTotals(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, totals)
	}
	return out, nil
}

// OrgTotals sums every creator's totals
func (a *Aggregator) OrgTotals(ctx context.Context) (*OrgTotals, error) {
	ctx, span := telemetry.StartSpan(ctx, "report.org_totals")
	defer span.End()

	perCreator, err := a.ListCreatorTotals(ctx)
	if err != nil {
		return nil, err
	}

	org := &OrgTotals{CreatorCount: len(perCreator)}
	for _, t := range perCreator {
		org.PostCount += t.PostCount
		org.TotalOwed += t.TotalOwed
		org.TotalPaid += t.TotalPaid
		org.UnreconciledCount += t.UnreconciledCount
		org.BonusReadyAmount += t.BonusReadyAmount
	}
	org.Balance = org.TotalOwed - org.TotalPaid
	return org, nil
}

// CreatorDetail returns totals plus the per-post payout breakdown
func (a *Aggregator) CreatorDetail(ctx context.Context, creatorID int64) (*CreatorDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "report.creator_detail")
	defer span.End()

	totals, err := a.CreatorTotals(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	posts, err := a.store.ListPostsByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for creator %d: %w", creatorID, err)
	}

	now := a.now()
	policy := a.calc.Policy()
	detail := &CreatorDetail{Totals: *totals}
	for _, p := range posts {
		views := payout.BestViews(p)
		base, bonus := a.calc.Split(views)
		detail.Posts = append(detail.Posts, PostDetail{
			PostID:            p.ID,
			PostDate:          p.PostDate.Format("2006-01-02"),
			TikTokViews:       p.TikTokViews,
			InstagramViews:    p.InstagramViews,
			BestViews:         views,
			WinningPlatform:   payout.WinningPlatform(p),
			Owed:              a.calc.PayoutFor(views),
			BaseShare:         base,
			BonusShare:        bonus,
			BasePaid:          p.BasePaid,
			BonusPaid:         p.BonusPaid,
			BonusEligible:     policy.BonusEligible(p.PostDate, now),
			DaysUntilEligible: policy.DaysUntilEligible(p.PostDate, now),
			ViewsLocked:       p.ViewsLocked,
		})
	}
	return detail, nil
}

// InvalidateCreator drops a creator's cached totals after a write
func (a *Aggregator) InvalidateCreator(creatorID int64) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(creatorTotalsKey(creatorID)); err != nil && err != cache.ErrCacheDisabled {
		a.logger.Warn("failed to invalidate creator totals", zap.Int64("creator_id", creatorID), zap.Error(err))
	}
}
