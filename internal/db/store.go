package db

import (
	"context"

	"github.com/bmbroch/payops/internal/models"
)

// Store bundles the repositories behind the interfaces the engine and
// aggregator accept. It is the only glue between the domain packages and
// the gorm transport.
type Store struct {
	creators *CreatorRepository
	posts    *PostRepository
	payments *PaymentRepository
	links    *LinkRepository
}

// NewStore creates a store over a database connection
func NewStore(database *DB) *Store {
	repo := NewRepository(database.DB)
	return &Store{
		creators: NewCreatorRepository(repo),
		posts:    NewPostRepository(repo),
		payments: NewPaymentRepository(repo),
		links:    NewLinkRepository(repo),
	}
}

// GetCreator retrieves a creator by ID
func (s *Store) GetCreator(ctx context.Context, id int64) (*models.Creator, error) {
	return s.creators.GetByID(ctx, id)
}

// ListCreators retrieves all creators
func (s *Store) ListCreators(ctx context.Context) ([]*models.Creator, error) {
	return s.creators.List(ctx)
}

// GetPayment retrieves a payment by ID
func (s *Store) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// ListPaymentsByCreator retrieves a creator's payments
func (s *Store) ListPaymentsByCreator(ctx context.Context, creatorID int64) ([]*models.Payment, error) {
	return s.payments.ListByCreator(ctx, creatorID)
}

// PatchPayment updates selected fields of a payment
func (s *Store) PatchPayment(ctx context.Context, id int64, fields map[string]interface{}) error {
	return s.payments.Patch(ctx, id, fields)
}

// GetPost retrieves a post by ID
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// GetPostsByIDs retrieves multiple posts by IDs
func (s *Store) GetPostsByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	return s.posts.GetByIDs(ctx, ids)
}

// ListPostsByCreator retrieves a creator's posts
func (s *Store) ListPostsByCreator(ctx context.Context, creatorID int64) ([]*models.Post, error) {
	return s.posts.ListByCreator(ctx, creatorID)
}

// ListRefreshablePosts retrieves posts eligible for a view-count refresh
func (s *Store) ListRefreshablePosts(ctx context.Context) ([]*models.Post, error) {
	return s.posts.ListRefreshable(ctx)
}

// PatchPost updates selected fields of a post
func (s *Store) PatchPost(ctx context.Context, id int64, fields map[string]interface{}) error {
	return s.posts.Patch(ctx, id, fields)
}

// ListLinksByPayment retrieves all links for a payment
func (s *Store) ListLinksByPayment(ctx context.Context, paymentID int64) ([]*models.PostPaymentLink, error) {
	return s.links.ListByPayment(ctx, paymentID)
}

// ListLinksByPosts retrieves all links touching any of the given posts
func (s *Store) ListLinksByPosts(ctx context.Context, postIDs []int64) ([]*models.PostPaymentLink, error) {
	return s.links.ListByPosts(ctx, postIDs)
}

// CreateLink creates a new post-payment link
func (s *Store) CreateLink(ctx context.Context, link *models.PostPaymentLink) error {
	return s.links.Create(ctx, link)
}

// DeleteLinksByPayment deletes all links for a payment
func (s *Store) DeleteLinksByPayment(ctx context.Context, paymentID int64) error {
	return s.links.DeleteByPayment(ctx, paymentID)
}
