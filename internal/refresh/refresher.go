package refresh

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/pkg/logging"
	"github.com/bmbroch/payops/pkg/telemetry"
)

// Store is the persistence surface the refresher writes through
type Store interface {
	ListRefreshablePosts(ctx context.Context) ([]*models.Post, error)
	PatchPost(ctx context.Context, postID int64, fields map[string]interface{}) error
}

// ViewSource fetches current view counts for a post URL
type ViewSource interface {
	ViewCount(ctx context.Context, platform, postURL string) (int64, error)
}

// Refresher walks every unlocked post with a platform URL and pulls
// fresh view counts. Counts only move forward; a source returning fewer
// views than stored is treated as a transient platform glitch and skipped.
type Refresher struct {
	store      Store
	source     ViewSource
	maxWorkers int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRefresher creates a view-count refresher
func NewRefresher(store Store, source ViewSource, maxWorkers int, timeout time.Duration) *Refresher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Refresher{
		store:      store,
		source:     source,
		maxWorkers: maxWorkers,
		timeout:    timeout,
		logger:     logging.WithComponent("refresher"),
	}
}

// Run executes one full refresh pass. It satisfies cron.Job.
func (r *Refresher) Run() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := r.RefreshAll(ctx); err != nil {
		r.logger.Error("Refresh pass failed", zap.Error(err))
	}
}

// RefreshAll refreshes every refreshable post using a bounded worker pool
func (r *Refresher) RefreshAll(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "refresh.all")
	defer span.End()

	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID))

	posts, err := r.store.ListRefreshablePosts(ctx)
	if err != nil {
		logger.Error("Failed to list refreshable posts", zap.Error(err))
		return err
	}

	logger.Info("Starting view refresh",
		zap.Int("posts", len(posts)),
		zap.Int("workers", r.maxWorkers))

	jobs := make(chan *models.Post)
	var updated, failed int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for post := range jobs {
				ok := r.refreshPost(ctx, logger, post)
				mu.Lock()
				if ok {
					updated++
				} else {
					failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, post := range posts {
		select {
		case jobs <- post:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info("View refresh complete",
		zap.Int64("updated", updated),
		zap.Int64("failed", failed))
	return nil
}

func (r *Refresher) refreshPost(ctx context.Context, logger *zap.Logger, post *models.Post) bool {
	fields := make(map[string]interface{})

	if views, ok := r.fetch(ctx, logger, post.ID, models.PlatformTikTok, post.TikTokURL, post.TikTokViews); ok {
		fields["tiktok_views"] = views
	}
	if views, ok := r.fetch(ctx, logger, post.ID, models.PlatformInstagram, post.InstagramURL, post.InstagramViews); ok {
		fields["instagram_views"] = views
	}

	if len(fields) == 0 {
		return false
	}

	if err := r.store.PatchPost(ctx, post.ID, fields); err != nil {
		logger.Error("Failed to store refreshed views",
			zap.Int64("post_id", post.ID),
			zap.Error(err))
		return false
	}
	return true
}

func (r *Refresher) fetch(ctx context.Context, logger *zap.Logger, postID int64, platform string, postURL sql.NullString, current int64) (int64, bool) {
	if !postURL.Valid || postURL.String == "" {
		return 0, false
	}

	views, err := r.source.ViewCount(ctx, platform, postURL.String)
	if err != nil {
		logger.Warn("View fetch failed",
			zap.Int64("post_id", postID),
			zap.String("platform", platform),
			zap.Error(err))
		return 0, false
	}
	if views < current {
		logger.Warn("Fetched views below stored count, skipping",
			zap.Int64("post_id", postID),
			zap.String("platform", platform),
			zap.Int64("fetched", views),
			zap.Int64("stored", current))
		return 0, false
	}
	return views, true
}
