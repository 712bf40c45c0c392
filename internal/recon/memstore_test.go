package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/bmbroch/payops/internal/models"
)

// memStore is an in-memory Store for engine tests, with optional write
// failure injection to exercise partial-save behavior.
type memStore struct {
	payments map[int64]*models.Payment
	posts    map[int64]*models.Post
	links    map[int64]*models.PostPaymentLink
	nextLink int64

	createCalls      int
	failCreateLinkAt int // fail the Nth CreateLink call (1-based), 0 = never
}

func newMemStore() *memStore {
	return &memStore{
		payments: make(map[int64]*models.Payment),
		posts:    make(map[int64]*models.Post),
		links:    make(map[int64]*models.PostPaymentLink),
	}
}

func (m *memStore) addPayment(p models.Payment) {
	cp := p
	m.payments[p.ID] = &cp
}

func (m *memStore) addPost(p models.Post) {
	cp := p
	m.posts[p.ID] = &cp
}

func (m *memStore) addLink(l models.PostPaymentLink) {
	m.nextLink++
	cp := l
	cp.ID = m.nextLink
	m.links[cp.ID] = &cp
}

func (m *memStore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetPostsByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListPostsByCreator(ctx context.Context, creatorID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range m.posts {
		if p.CreatorID == creatorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListLinksByPayment(ctx context.Context, paymentID int64) ([]*models.PostPaymentLink, error) {
	var out []*models.PostPaymentLink
	for _, l := range m.links {
		if l.PaymentID == paymentID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) ListLinksByPosts(ctx context.Context, postIDs []int64) ([]*models.PostPaymentLink, error) {
	want := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	var out []*models.PostPaymentLink
	for _, l := range m.links {
		if want[l.PostID] {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) CreateLink(ctx context.Context, link *models.PostPaymentLink) error {
	m.createCalls++
	if m.failCreateLinkAt > 0 && m.createCalls == m.failCreateLinkAt {
		return fmt.Errorf("injected store failure")
	}
	m.nextLink++
	cp := *link
	cp.ID = m.nextLink
	cp.CreatedAt = time.Now()
	m.links[cp.ID] = &cp
	return nil
}

func (m *memStore) DeleteLinksByPayment(ctx context.Context, paymentID int64) error {
	for id, l := range m.links {
		if l.PaymentID == paymentID {
			delete(m.links, id)
		}
	}
	return nil
}

func (m *memStore) PatchPost(ctx context.Context, id int64, fields map[string]interface{}) error {
	p, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("post %d not found", id)
	}
	for k, v := range fields {
		switch k {
		case "base_paid":
			p.BasePaid = v.(bool)
		case "bonus_paid":
			p.BonusPaid = v.(bool)
		case "tiktok_views":
			p.TikTokViews = v.(int64)
		case "instagram_views":
			p.InstagramViews = v.(int64)
		case "views_locked":
			p.ViewsLocked = v.(bool)
		default:
			return fmt.Errorf("unexpected post field %q", k)
		}
	}
	return nil
}

func (m *memStore) PatchPayment(ctx context.Context, id int64, fields map[string]interface{}) error {
	p, ok := m.payments[id]
	if !ok {
		return fmt.Errorf("payment %d not found", id)
	}
	for k, v := range fields {
		switch k {
		case "status":
			p.Status = v.(string)
		case "base_count":
			p.BaseCount = v.(int64)
		case "bonus_amount":
			p.BonusAmount = v.(int64)
		default:
			return fmt.Errorf("unexpected payment field %q", k)
		}
	}
	return nil
}

func (m *memStore) linksFor(paymentID int64) []*models.PostPaymentLink {
	var out []*models.PostPaymentLink
	for _, l := range m.links {
		if l.PaymentID == paymentID {
			out = append(out, l)
		}
	}
	return out
}
