package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/internal/recon"
)

// postStore is the slice of the store the post admin API needs
type postStore interface {
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	PatchPost(ctx context.Context, postID int64, fields map[string]interface{}) error
}

// PostAPI serves post admin operations
type PostAPI struct {
	store postStore
}

// NewPostAPI creates a post admin API
func NewPostAPI(store postStore) *PostAPI {
	return &PostAPI{store: store}
}

// SetViewsLock handles payops.set_views_lock
func (a *PostAPI) SetViewsLock(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		PostID int64 `json:"post_id"`
		Locked bool  `json:"locked"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid params")
	}
	if req.PostID <= 0 {
		return nil, NewError(ErrInvalidParams, fmt.Sprintf("invalid post_id %d", req.PostID))
	}

	ctx := c.Request.Context()
	post, err := a.store.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &recon.NotFoundError{Collection: "post", ID: req.PostID}
	}

	if err := a.store.PatchPost(ctx, req.PostID, map[string]interface{}{"views_locked": req.Locked}); err != nil {
		return nil, err
	}
	return gin.H{"post_id": req.PostID, "views_locked": req.Locked}, nil
}
