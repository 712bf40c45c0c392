package recon

import (
	"context"

	"github.com/bmbroch/payops/internal/models"
)

// Store is the record-store surface the engine needs: filter-by-field
// reads and partial-field writes. No multi-record transaction is assumed;
// the engine orders its writes so a crash mid-save is retryable.
type Store interface {
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPostsByIDs(ctx context.Context, ids []int64) ([]*models.Post, error)
	ListPostsByCreator(ctx context.Context, creatorID int64) ([]*models.Post, error)
	ListLinksByPayment(ctx context.Context, paymentID int64) ([]*models.PostPaymentLink, error)
	ListLinksByPosts(ctx context.Context, postIDs []int64) ([]*models.PostPaymentLink, error)
	CreateLink(ctx context.Context, link *models.PostPaymentLink) error
	DeleteLinksByPayment(ctx context.Context, paymentID int64) error
	PatchPost(ctx context.Context, id int64, fields map[string]interface{}) error
	PatchPayment(ctx context.Context, id int64, fields map[string]interface{}) error
}
