package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/pkg/config"
	"github.com/bmbroch/payops/pkg/logging"
	"github.com/bmbroch/payops/pkg/telemetry"
)

// Client wraps the scrapecreators view-count API
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New creates a view-count API client
func New(cfg *config.ScraperConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("scraper_url is required")
	}

	logger := logging.GetLogger().With(zap.String("component", "scrape-client"))

	http := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(time.Duration(cfg.TimeoutSec) * time.Second).
		SetRetryCount(cfg.RetryCount).
		SetHeader("x-api-key", cfg.Token)

	logger.Info("Scrape client initialized", zap.String("url", cfg.URL))

	return &Client{http: http, logger: logger}, nil
}

type tiktokResponse struct {
	Stats struct {
		PlayCount int64 `json:"playCount"`
	} `json:"stats"`
}

type instagramResponse struct {
	VideoViewCount int64 `json:"video_view_count"`
	VideoPlayCount int64 `json:"video_play_count"`
}

// ViewCount fetches the current view count for a post URL on the given platform
func (c *Client) ViewCount(ctx context.Context, platform, postURL string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "scrape.view_count")
	defer span.End()

	switch platform {
	case models.PlatformTikTok:
		return c.tiktokViews(ctx, postURL)
	case models.PlatformInstagram:
		return c.instagramViews(ctx, postURL)
	default:
		return 0, fmt.Errorf("unknown platform: %s", platform)
	}
}

func (c *Client) tiktokViews(ctx context.Context, postURL string) (int64, error) {
	var out tiktokResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("url", postURL).
		SetResult(&out).
		Get("/v1/tiktok/video")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch tiktok views: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("tiktok view fetch returned status %d", resp.StatusCode())
	}
	return out.Stats.PlayCount, nil
}

func (c *Client) instagramViews(ctx context.Context, postURL string) (int64, error) {
	var out instagramResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("url", postURL).
		SetResult(&out).
		Get("/v1/instagram/post")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch instagram views: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("instagram view fetch returned status %d", resp.StatusCode())
	}
	// reels report play count, older posts report view count
	if out.VideoPlayCount > out.VideoViewCount {
		return out.VideoPlayCount, nil
	}
	return out.VideoViewCount, nil
}
