package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bmbroch/payops/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatorRepository provides creator-related database operations
type CreatorRepository struct {
	*Repository
}

// NewCreatorRepository creates a new creator repository
func NewCreatorRepository(repo *Repository) *CreatorRepository {
	return &CreatorRepository{Repository: repo}
}

// GetByID retrieves a creator by ID
func (r *CreatorRepository) GetByID(ctx context.Context, id int64) (*models.Creator, error) {
	var creator models.Creator
	if err := r.db.WithContext(ctx).First(&creator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &creator, nil
}

// GetByName retrieves a creator by name
func (r *CreatorRepository) GetByName(ctx context.Context, name string) (*models.Creator, error) {
	var creator models.Creator
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&creator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &creator, nil
}

// List retrieves all creators ordered by name
func (r *CreatorRepository) List(ctx context.Context) ([]*models.Creator, error) {
	var creators []*models.Creator
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&creators).Error; err != nil {
		return nil, err
	}
	return creators, nil
}

// Create creates a new creator
func (r *CreatorRepository) Create(ctx context.Context, creator *models.Creator) error {
	return r.db.WithContext(ctx).Create(creator).Error
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByIDs retrieves multiple posts by IDs
func (r *PostRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByCreator retrieves a creator's posts ordered by post date
func (r *PostRepository) ListByCreator(ctx context.Context, creatorID int64) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("post_date ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListRefreshable retrieves posts with at least one platform URL whose
// view counts are not frozen by the operator
func (r *PostRepository) ListRefreshable(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Where("views_locked = ?", false).
		Where("tiktok_url IS NOT NULL OR instagram_url IS NOT NULL").
		Order("id ASC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// Patch updates selected fields of a post
func (r *PostRepository) Patch(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// PaymentRepository provides payment-related database operations
type PaymentRepository struct {
	*Repository
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(repo *Repository) *PaymentRepository {
	return &PaymentRepository{Repository: repo}
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListByCreator retrieves a creator's payments ordered by payment date
func (r *PaymentRepository) ListByCreator(ctx context.Context, creatorID int64) ([]*models.Payment, error) {
	var payments []*models.Payment
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("payment_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Patch updates selected fields of a payment
func (r *PaymentRepository) Patch(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// LinkRepository provides post-payment link database operations
type LinkRepository struct {
	*Repository
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(repo *Repository) *LinkRepository {
	return &LinkRepository{Repository: repo}
}

// ListByPayment retrieves all links for a payment
func (r *LinkRepository) ListByPayment(ctx context.Context, paymentID int64) ([]*models.PostPaymentLink, error) {
	var links []*models.PostPaymentLink
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ListByPosts retrieves all links touching any of the given posts
func (r *LinkRepository) ListByPosts(ctx context.Context, postIDs []int64) ([]*models.PostPaymentLink, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var links []*models.PostPaymentLink
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// Create creates a new link
func (r *LinkRepository) Create(ctx context.Context, link *models.PostPaymentLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// DeleteByPayment deletes all links for a payment
func (r *LinkRepository) DeleteByPayment(ctx context.Context, paymentID int64) error {
	return r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Delete(&models.PostPaymentLink{}).Error
}
