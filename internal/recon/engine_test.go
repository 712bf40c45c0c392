package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/internal/payout"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T, store Store) *Engine {
	t.Helper()
	calc, err := payout.NewCalculator(payout.DefaultSchedule, payout.Policy{BaseShare: 25, BonusWaitDays: 15})
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	engine := NewEngine(store, calc)
	engine.now = func() time.Time { return testNow }
	return engine
}

// threeBasePosts seeds one creator with a $75 payment and three posts in
// the bottom tier, each worth the $25 base share.
func threeBasePosts(store *memStore) {
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 75, Status: models.PaymentStatusUnreconciled})
	for i := int64(1); i <= 3; i++ {
		store.addPost(models.Post{
			ID:        i,
			CreatorID: 10,
			PostDate:  time.Date(2024, time.January, int(i), 0, 0, 0, 0, time.UTC),
		})
	}
}

func TestAvailablePostsBase(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	// Post 2's base share is already covered by another payment.
	store.addLink(models.PostPaymentLink{PostID: 2, PaymentID: 99, Amount: 25, PaymentType: models.PaymentTypeBase})
	engine := testEngine(t, store)

	candidates, err := engine.AvailablePosts(context.Background(), 1, models.PaymentTypeBase)
	if err != nil {
		t.Fatalf("AvailablePosts: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.Post.ID == 2 {
			t.Error("Post 2 should be excluded: base share already linked")
		}
		if c.Value != 25 {
			t.Errorf("Expected base value 25, got %d", c.Value)
		}
	}
}

func TestAvailablePostsBonusEligibility(t *testing.T) {
	store := newMemStore()
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 100, Status: models.PaymentStatusUnreconciled})
	// Eligible: posted 2024-01-10, window long past at testNow (2024-03-01).
	store.addPost(models.Post{ID: 1, CreatorID: 10, TikTokViews: 12000,
		PostDate: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)})
	// Not eligible: posted 2024-02-25, only 5 days before testNow.
	store.addPost(models.Post{ID: 2, CreatorID: 10, TikTokViews: 50000,
		PostDate: time.Date(2024, time.February, 25, 0, 0, 0, 0, time.UTC)})
	engine := testEngine(t, store)

	candidates, err := engine.AvailablePosts(context.Background(), 1, models.PaymentTypeBonus)
	if err != nil {
		t.Fatalf("AvailablePosts: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Post.ID != 1 {
		t.Errorf("Expected post 1, got %d", candidates[0].Post.ID)
	}
	// 12000 views -> payout 40, bonus share 15
	if candidates[0].Value != 15 {
		t.Errorf("Expected bonus value 15, got %d", candidates[0].Value)
	}
}

func TestAvailablePostsUnknownPayment(t *testing.T) {
	engine := testEngine(t, newMemStore())

	_, err := engine.AvailablePosts(context.Background(), 404, models.PaymentTypeBase)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestNewDraftCarriesCandidatesAndBudget(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	// Post 2's base share is already covered by another payment.
	store.addLink(models.PostPaymentLink{PostID: 2, PaymentID: 99, Amount: 25, PaymentType: models.PaymentTypeBase})
	engine := testEngine(t, store)

	draft, err := engine.NewDraft(context.Background(), 1, models.PaymentTypeBase)
	if err != nil {
		t.Fatalf("NewDraft: %v", err)
	}

	if draft.PaymentType() != models.PaymentTypeBase {
		t.Errorf("PaymentType = %q, want %q", draft.PaymentType(), models.PaymentTypeBase)
	}
	if draft.Amount() != 75 {
		t.Errorf("Amount = %d, want 75", draft.Amount())
	}
	if draft.Remaining() != 75 {
		t.Errorf("Remaining = %d on an empty draft, want 75", draft.Remaining())
	}

	candidates := draft.Candidates()
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.Post.ID == 2 {
			t.Error("Post 2 should be excluded: base share already linked")
		}
		if !draft.Add(c.Post.ID) {
			t.Errorf("Expected post %d to be addable", c.Post.ID)
		}
	}
	if draft.Remaining() != 25 {
		t.Errorf("Remaining = %d after two base selections, want 25", draft.Remaining())
	}
}

func TestPreviewSelection(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	engine := testEngine(t, store)

	preview, err := engine.PreviewSelection(context.Background(), 1, []int64{1, 2}, models.PaymentTypeBase, 0)
	if err != nil {
		t.Fatalf("PreviewSelection: %v", err)
	}

	if preview.Total != 50 {
		t.Errorf("Expected total 50, got %d", preview.Total)
	}
	if preview.Remaining != 25 {
		t.Errorf("Expected remaining 25, got %d", preview.Remaining)
	}
	if len(preview.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(preview.Items))
	}
}

func TestPreviewOverBudget(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	// 3 posts x 25 + manual bonus 10 = 85 > 75
	engine := testEngine(t, store)

	_, err := engine.PreviewSelection(context.Background(), 1, []int64{1, 2, 3}, models.PaymentTypeBase, 10)
	var be *BudgetExceededError
	if !errors.As(err, &be) {
		t.Fatalf("Expected BudgetExceededError, got %v", err)
	}
	if be.Selected != 85 || be.Amount != 75 {
		t.Errorf("Expected selected 85 vs amount 75, got %d vs %d", be.Selected, be.Amount)
	}
}

func TestSaveReconciliationBase(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	engine := testEngine(t, store)

	result, err := engine.SaveReconciliation(context.Background(), 1, []int64{1, 2, 3}, models.PaymentTypeBase, 0)
	if err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}

	if result.Total != 75 || result.Remaining != 0 {
		t.Errorf("Expected total 75 remaining 0, got %d / %d", result.Total, result.Remaining)
	}
	if result.BaseCount != 3 || result.BonusAmount != 0 {
		t.Errorf("Expected base_count 3 bonus_amount 0, got %d / %d", result.BaseCount, result.BonusAmount)
	}

	payment := store.payments[1]
	if payment.Status != models.PaymentStatusReconciled {
		t.Errorf("Expected payment reconciled, got %s", payment.Status)
	}
	if payment.BaseCount != 3 {
		t.Errorf("Expected stored base_count 3, got %d", payment.BaseCount)
	}
	for i := int64(1); i <= 3; i++ {
		if !store.posts[i].BasePaid {
			t.Errorf("Post %d should have base_paid=true", i)
		}
		if store.posts[i].BonusPaid {
			t.Errorf("Post %d bonus_paid should be untouched", i)
		}
	}
	if got := len(store.linksFor(1)); got != 3 {
		t.Errorf("Expected 3 links, got %d", got)
	}
}

func TestSaveReconciliationBonus(t *testing.T) {
	store := newMemStore()
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 40, Status: models.PaymentStatusUnreconciled})
	store.addPost(models.Post{ID: 1, CreatorID: 10, TikTokViews: 12000,
		PostDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}) // bonus 15
	store.addPost(models.Post{ID: 2, CreatorID: 10, InstagramViews: 12000,
		PostDate: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)}) // bonus 15
	engine := testEngine(t, store)

	result, err := engine.SaveReconciliation(context.Background(), 1, []int64{1, 2}, models.PaymentTypeBonus, 0)
	if err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}

	if result.BonusAmount != 30 || result.BaseCount != 0 {
		t.Errorf("Expected bonus_amount 30 base_count 0, got %d / %d", result.BonusAmount, result.BaseCount)
	}
	if result.Remaining != 10 {
		t.Errorf("Expected remaining 10, got %d", result.Remaining)
	}
	for i := int64(1); i <= 2; i++ {
		if !store.posts[i].BonusPaid {
			t.Errorf("Post %d should have bonus_paid=true", i)
		}
		if store.posts[i].BasePaid {
			t.Errorf("Post %d base_paid should be untouched", i)
		}
	}
}

func TestSaveOverBudget(t *testing.T) {
	store := newMemStore()
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 50, Status: models.PaymentStatusUnreconciled})
	for i := int64(1); i <= 3; i++ {
		store.addPost(models.Post{ID: i, CreatorID: 10,
			PostDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)})
	}
	engine := testEngine(t, store)

	_, err := engine.SaveReconciliation(context.Background(), 1, []int64{1, 2, 3}, models.PaymentTypeBase, 0)
	var be *BudgetExceededError
	if !errors.As(err, &be) {
		t.Fatalf("Expected BudgetExceededError, got %v", err)
	}
	// Nothing may be written on a rejected save.
	if len(store.links) != 0 {
		t.Errorf("Expected no links after rejected save, got %d", len(store.links))
	}
	if store.payments[1].Status != models.PaymentStatusUnreconciled {
		t.Error("Payment must stay unreconciled after rejected save")
	}
}

func TestSaveLinkConflict(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	store.addLink(models.PostPaymentLink{PostID: 2, PaymentID: 99, Amount: 25, PaymentType: models.PaymentTypeBase})
	engine := testEngine(t, store)

	_, err := engine.SaveReconciliation(context.Background(), 1, []int64{1, 2}, models.PaymentTypeBase, 0)
	var lc *LinkConflictError
	if !errors.As(err, &lc) {
		t.Fatalf("Expected LinkConflictError, got %v", err)
	}
	if lc.PostID != 2 || lc.PaymentID != 99 {
		t.Errorf("Expected conflict on post 2 / payment 99, got post %d / payment %d", lc.PostID, lc.PaymentID)
	}
}

func TestSaveAlreadyReconciled(t *testing.T) {
	store := newMemStore()
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 75, Status: models.PaymentStatusReconciled})
	engine := testEngine(t, store)

	_, err := engine.SaveReconciliation(context.Background(), 1, nil, models.PaymentTypeBase, 0)
	if !errors.Is(err, ErrAlreadyReconciled) {
		t.Fatalf("Expected ErrAlreadyReconciled, got %v", err)
	}
}

func TestSavePartialFailureIsRetryable(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	store.failCreateLinkAt = 2
	engine := testEngine(t, store)

	_, err := engine.SaveReconciliation(context.Background(), 1, []int64{1, 2, 3}, models.PaymentTypeBase, 0)
	var ps *PartialSaveError
	if !errors.As(err, &ps) {
		t.Fatalf("Expected PartialSaveError, got %v", err)
	}
	if ps.Applied != 1 {
		t.Errorf("Expected 1 link applied before failure, got %d", ps.Applied)
	}
	if store.payments[1].Status != models.PaymentStatusUnreconciled {
		t.Error("Payment must stay unreconciled after partial save")
	}

	// Retry: existing link is kept, not duplicated, and the save completes.
	store.failCreateLinkAt = 0
	result, err := engine.SaveReconciliation(context.Background(), 1, []int64{1, 2, 3}, models.PaymentTypeBase, 0)
	if err != nil {
		t.Fatalf("Retried save failed: %v", err)
	}
	if result.BaseCount != 3 {
		t.Errorf("Expected base_count 3 after retry, got %d", result.BaseCount)
	}
	if got := len(store.linksFor(1)); got != 3 {
		t.Errorf("Expected exactly 3 links after retry, got %d", got)
	}
}

func TestUndoRestoresPreSaveState(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	engine := testEngine(t, store)
	ctx := context.Background()

	if _, err := engine.SaveReconciliation(ctx, 1, []int64{1, 2, 3}, models.PaymentTypeBase, 0); err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}
	if err := engine.UndoReconciliation(ctx, 1); err != nil {
		t.Fatalf("UndoReconciliation: %v", err)
	}

	payment := store.payments[1]
	if payment.Status != models.PaymentStatusUnreconciled {
		t.Errorf("Expected unreconciled after undo, got %s", payment.Status)
	}
	if payment.BaseCount != 0 || payment.BonusAmount != 0 {
		t.Errorf("Expected zeroed counters, got base_count %d bonus_amount %d", payment.BaseCount, payment.BonusAmount)
	}
	if len(store.linksFor(1)) != 0 {
		t.Error("Expected all links removed by undo")
	}
	for i := int64(1); i <= 3; i++ {
		if store.posts[i].BasePaid {
			t.Errorf("Post %d base_paid should be restored to false", i)
		}
	}
}

func TestUndoKeepsOtherPaymentsFlags(t *testing.T) {
	store := newMemStore()
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 25, Status: models.PaymentStatusUnreconciled})
	// Post 1's bonus was covered by payment 99; this payment covers its base.
	store.addPost(models.Post{ID: 1, CreatorID: 10, TikTokViews: 12000, BonusPaid: true,
		PostDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)})
	store.addLink(models.PostPaymentLink{PostID: 1, PaymentID: 99, Amount: 15, PaymentType: models.PaymentTypeBonus})
	engine := testEngine(t, store)
	ctx := context.Background()

	if _, err := engine.SaveReconciliation(ctx, 1, []int64{1}, models.PaymentTypeBase, 0); err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}
	if err := engine.UndoReconciliation(ctx, 1); err != nil {
		t.Fatalf("UndoReconciliation: %v", err)
	}

	post := store.posts[1]
	if post.BasePaid {
		t.Error("base_paid should be cleared: this payment's link is gone")
	}
	if !post.BonusPaid {
		t.Error("bonus_paid must survive: payment 99's link still exists")
	}
}

func TestUndoIsIdempotent(t *testing.T) {
	store := newMemStore()
	threeBasePosts(store)
	engine := testEngine(t, store)
	ctx := context.Background()

	if err := engine.UndoReconciliation(ctx, 1); err != nil {
		t.Fatalf("Undo of unreconciled payment should be a no-op, got: %v", err)
	}

	if _, err := engine.SaveReconciliation(ctx, 1, []int64{1}, models.PaymentTypeBase, 0); err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}
	if err := engine.UndoReconciliation(ctx, 1); err != nil {
		t.Fatalf("UndoReconciliation: %v", err)
	}
	if err := engine.UndoReconciliation(ctx, 1); err != nil {
		t.Fatalf("Second undo should be a no-op, got: %v", err)
	}
}

func TestSaveManualBonusPersisted(t *testing.T) {
	store := newMemStore()
	store.addPayment(models.Payment{ID: 1, CreatorID: 10, Amount: 40, Status: models.PaymentStatusUnreconciled})
	store.addPost(models.Post{ID: 1, CreatorID: 10,
		PostDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)})
	engine := testEngine(t, store)

	// One base post (25) plus a manual bonus of 15 covers the 40 exactly.
	result, err := engine.SaveReconciliation(context.Background(), 1, []int64{1}, models.PaymentTypeBase, 15)
	if err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}
	if result.BaseCount != 1 || result.BonusAmount != 15 {
		t.Errorf("Expected base_count 1 bonus_amount 15, got %d / %d", result.BaseCount, result.BonusAmount)
	}
	if result.Remaining != 0 {
		t.Errorf("Expected remaining 0, got %d", result.Remaining)
	}
}
