package recon

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/internal/payout"
	"github.com/bmbroch/payops/pkg/logging"
	"github.com/bmbroch/payops/pkg/telemetry"
)

// Engine matches bank payments to posts. One operator reconciles a given
// payment at a time; every write is ordered so that a failure mid-save
// leaves a state that undo or a retried save can repair.
type Engine struct {
	store  Store
	calc   *payout.Calculator
	now    func() time.Time
	logger *zap.Logger
	saves  metric.Int64Counter
	undos  metric.Int64Counter
}

// NewEngine creates a reconciliation engine
func NewEngine(store Store, calc *payout.Calculator) *Engine {
	return &Engine{
		store:  store,
		calc:   calc,
		now:    time.Now,
		logger: logging.WithComponent("recon-engine"),
		saves:  telemetry.Counter("payops.reconciliation.saves", "Completed reconciliation saves"),
		undos:  telemetry.Counter("payops.reconciliation.undos", "Completed reconciliation undos"),
	}
}

// Result summarizes a saved reconciliation
type Result struct {
	PaymentID   int64   `json:"payment_id"`
	PaymentType string  `json:"payment_type"`
	PostIDs     []int64 `json:"post_ids"`
	Total       int64   `json:"total"`
	Remaining   int64   `json:"remaining"`
	BaseCount   int64   `json:"base_count"`
	BonusAmount int64   `json:"bonus_amount"`
}

// Preview describes a draft selection's totals without writing anything
type Preview struct {
	PaymentID   int64         `json:"payment_id"`
	PaymentType string        `json:"payment_type"`
	Amount      int64         `json:"amount"`
	Items       []PreviewItem `json:"items"`
	ManualBonus int64         `json:"manual_bonus"`
	Total       int64         `json:"total"`
	Remaining   int64         `json:"remaining"`
}

// PreviewItem is one selected post's value for the active payment type
type PreviewItem struct {
	PostID int64 `json:"post_id"`
	Value  int64 `json:"value"`
}

func validatePaymentType(paymentType string) error {
	if paymentType != models.PaymentTypeBase && paymentType != models.PaymentTypeBonus {
		return fmt.Errorf("invalid payment type %q", paymentType)
	}
	return nil
}

// AvailablePosts returns the payment creator's posts whose share of the
// given type is still unpaid. Paid-ness is derived from the live link
// set, never from the stored flags, so stale booleans cannot leak posts
// in or out of the candidate list. Bonus candidates must also be past
// their eligibility window.
func (e *Engine) AvailablePosts(ctx context.Context, paymentID int64, paymentType string) ([]Candidate, error) {
	ctx, span := telemetry.StartSpan(ctx, "recon.available_posts")
	defer span.End()

	if err := validatePaymentType(paymentType); err != nil {
		return nil, err
	}

	payment, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}
	if payment == nil {
		return nil, &NotFoundError{Collection: "payment", ID: paymentID}
	}

	posts, err := e.store.ListPostsByCreator(ctx, payment.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts for creator %d: %w", payment.CreatorID, err)
	}

	postIDs := make([]int64, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}
	links, err := e.store.ListLinksByPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}

	linked := make(map[int64]bool)
	for _, l := range links {
		if l.PaymentType == paymentType {
			linked[l.PostID] = true
		}
	}

	now := e.now()
	policy := e.calc.Policy()
	candidates := make([]Candidate, 0, len(posts))
	for _, p := range posts {
		if linked[p.ID] {
			continue
		}
		if paymentType == models.PaymentTypeBonus && !policy.BonusEligible(p.PostDate, now) {
			continue
		}
		candidates = append(candidates, Candidate{
			Post:  p,
			Value: e.calc.ShareValue(payout.BestViews(p), paymentType),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Post, candidates[j].Post
		if !a.PostDate.Equal(b.PostDate) {
			return a.PostDate.Before(b.PostDate)
		}
		return a.ID < b.ID
	})

	return candidates, nil
}

// NewDraft starts an interactive selection over the payment's available
// posts. The draft is pure client-side state; abandoning it requires no
// compensating action.
func (e *Engine) NewDraft(ctx context.Context, paymentID int64, paymentType string) (*Selection, error) {
	candidates, err := e.AvailablePosts(ctx, paymentID, paymentType)
	if err != nil {
		return nil, err
	}
	payment, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}
	if payment == nil {
		return nil, &NotFoundError{Collection: "payment", ID: paymentID}
	}
	return NewSelection(payment, paymentType, candidates), nil
}

// PreviewSelection computes totals for a draft selection. Over-budget
// drafts come back as a BudgetExceededError.
func (e *Engine) PreviewSelection(ctx context.Context, paymentID int64, postIDs []int64, paymentType string, manualBonus int64) (*Preview, error) {
	ctx, span := telemetry.StartSpan(ctx, "recon.preview_selection")
	defer span.End()

	payment, sel, err := e.resolveSelection(ctx, paymentID, postIDs, paymentType, manualBonus)
	if err != nil {
		return nil, err
	}

	preview := &Preview{
		PaymentID:   payment.ID,
		PaymentType: paymentType,
		Amount:      payment.Amount,
		ManualBonus: manualBonus,
		Total:       sel.Total(),
		Remaining:   sel.Remaining(),
	}
	for _, id := range sel.PostIDs() {
		preview.Items = append(preview.Items, PreviewItem{PostID: id, Value: sel.values[id]})
	}
	return preview, nil
}

// SaveReconciliation links the selected posts to the payment, flips their
// paid flags, and marks the payment reconciled. Link creation is
// idempotent per (post, payment, type): posts already linked to this
// payment are kept, so a partially applied save can simply be retried.
// The payment status update runs last so a crash mid-save never yields a
// payment that claims reconciliation it does not have links for.
func (e *Engine) SaveReconciliation(ctx context.Context, paymentID int64, postIDs []int64, paymentType string, manualBonus int64) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "recon.save_reconciliation")
	defer span.End()

	payment, sel, err := e.resolveSelection(ctx, paymentID, postIDs, paymentType, manualBonus)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusReconciled {
		return nil, fmt.Errorf("payment %d: %w", paymentID, ErrAlreadyReconciled)
	}

	flagField := "base_paid"
	if paymentType == models.PaymentTypeBonus {
		flagField = "bonus_paid"
	}

	applied := 0
	for _, postID := range sel.PostIDs() {
		if !sel.existing[postID] {
			link := &models.PostPaymentLink{
				PostID:      postID,
				PaymentID:   payment.ID,
				Amount:      sel.values[postID],
				PaymentType: paymentType,
			}
			if err := e.store.CreateLink(ctx, link); err != nil {
				return nil, &PartialSaveError{PaymentID: payment.ID, PostID: postID, Applied: applied, Err: err}
			}
		}
		if err := e.store.PatchPost(ctx, postID, map[string]interface{}{flagField: true}); err != nil {
			return nil, &PartialSaveError{PaymentID: payment.ID, PostID: postID, Applied: applied, Err: err}
		}
		applied++
	}

	selectedTotal := sel.Total() - manualBonus
	var baseCount, bonusAmount int64
	if paymentType == models.PaymentTypeBase {
		baseCount = int64(len(sel.PostIDs()))
		bonusAmount = manualBonus
	} else {
		bonusAmount = selectedTotal
	}

	if err := e.store.PatchPayment(ctx, payment.ID, map[string]interface{}{
		"status":       models.PaymentStatusReconciled,
		"base_count":   baseCount,
		"bonus_amount": bonusAmount,
	}); err != nil {
		return nil, &PartialSaveError{PaymentID: payment.ID, Applied: applied, Err: fmt.Errorf("links written but status update failed: %w", err)}
	}

	e.saves.Add(ctx, 1)
	e.logger.Info("reconciliation saved",
		zap.Int64("payment_id", payment.ID),
		zap.String("payment_type", paymentType),
		zap.Int("posts", applied),
		zap.Int64("total", sel.Total()),
		zap.Int64("remaining", sel.Remaining()))

	return &Result{
		PaymentID:   payment.ID,
		PaymentType: paymentType,
		PostIDs:     sel.PostIDs(),
		Total:       sel.Total(),
		Remaining:   sel.Remaining(),
		BaseCount:   baseCount,
		BonusAmount: bonusAmount,
	}, nil
}

// UndoReconciliation deletes the payment's links and returns it to the
// unreconciled state. Affected posts' paid flags are recomputed from the
// links that survive, so links held by other payments keep their posts'
// flags truthful. Safe to call on an already-unreconciled payment.
func (e *Engine) UndoReconciliation(ctx context.Context, paymentID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "recon.undo_reconciliation")
	defer span.End()

	payment, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}
	if payment == nil {
		return &NotFoundError{Collection: "payment", ID: paymentID}
	}

	links, err := e.store.ListLinksByPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load links for payment %d: %w", paymentID, err)
	}
	if payment.Status == models.PaymentStatusUnreconciled && len(links) == 0 {
		return nil
	}

	affected := make([]int64, 0, len(links))
	seen := make(map[int64]bool)
	for _, l := range links {
		if !seen[l.PostID] {
			seen[l.PostID] = true
			affected = append(affected, l.PostID)
		}
	}

	if err := e.store.DeleteLinksByPayment(ctx, paymentID); err != nil {
		return fmt.Errorf("failed to delete links for payment %d: %w", paymentID, err)
	}

	remaining, err := e.store.ListLinksByPosts(ctx, affected)
	if err != nil {
		return fmt.Errorf("failed to reload links after undo of payment %d: %w", paymentID, err)
	}
	baseLinked := make(map[int64]bool)
	bonusLinked := make(map[int64]bool)
	for _, l := range remaining {
		switch l.PaymentType {
		case models.PaymentTypeBase:
			baseLinked[l.PostID] = true
		case models.PaymentTypeBonus:
			bonusLinked[l.PostID] = true
		}
	}

	for _, postID := range affected {
		if err := e.store.PatchPost(ctx, postID, map[string]interface{}{
			"base_paid":  baseLinked[postID],
			"bonus_paid": bonusLinked[postID],
		}); err != nil {
			return fmt.Errorf("undo of payment %d: failed to recompute flags for post %d: %w", paymentID, postID, err)
		}
	}

	if err := e.store.PatchPayment(ctx, paymentID, map[string]interface{}{
		"status":       models.PaymentStatusUnreconciled,
		"base_count":   int64(0),
		"bonus_amount": int64(0),
	}); err != nil {
		return fmt.Errorf("undo of payment %d: failed to reset payment: %w", paymentID, err)
	}

	e.undos.Add(ctx, 1)
	e.logger.Info("reconciliation undone",
		zap.Int64("payment_id", paymentID),
		zap.Int("links_removed", len(links)))

	return nil
}

// resolveSelection loads the payment, validates every requested post, and
// builds a budget-checked selection. Posts already linked to this payment
// for the type are marked existing so save can skip re-creating them.
func (e *Engine) resolveSelection(ctx context.Context, paymentID int64, postIDs []int64, paymentType string, manualBonus int64) (*models.Payment, *resolvedSelection, error) {
	if err := validatePaymentType(paymentType); err != nil {
		return nil, nil, err
	}
	if manualBonus < 0 {
		return nil, nil, fmt.Errorf("manual bonus must be non-negative, got %d", manualBonus)
	}

	payment, err := e.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}
	if payment == nil {
		return nil, nil, &NotFoundError{Collection: "payment", ID: paymentID}
	}

	posts, err := e.store.GetPostsByIDs(ctx, postIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load posts: %w", err)
	}
	byID := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	links, err := e.store.ListLinksByPosts(ctx, postIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load links: %w", err)
	}
	linkedBy := make(map[int64]int64)
	for _, l := range links {
		if l.PaymentType == paymentType {
			linkedBy[l.PostID] = l.PaymentID
		}
	}

	now := e.now()
	policy := e.calc.Policy()
	sel := &resolvedSelection{
		payment:     payment,
		values:      make(map[int64]int64, len(postIDs)),
		existing:    make(map[int64]bool),
		manualBonus: manualBonus,
	}

	for _, id := range postIDs {
		post, ok := byID[id]
		if !ok {
			return nil, nil, &NotFoundError{Collection: "post", ID: id}
		}
		if post.CreatorID != payment.CreatorID {
			return nil, nil, fmt.Errorf("post %d belongs to creator %d, payment %d belongs to creator %d",
				id, post.CreatorID, paymentID, payment.CreatorID)
		}
		if owner, linked := linkedBy[id]; linked {
			if owner != paymentID {
				return nil, nil, &LinkConflictError{PostID: id, PaymentID: owner, PaymentType: paymentType}
			}
			sel.existing[id] = true
		}
		if paymentType == models.PaymentTypeBonus && !policy.BonusEligible(post.PostDate, now) {
			return nil, nil, fmt.Errorf("post %d bonus is not eligible until %s",
				id, policy.BonusEligibleDate(post.PostDate).Format("2006-01-02"))
		}
		sel.values[id] = e.calc.ShareValue(payout.BestViews(post), paymentType)
	}

	if total := sel.Total(); total > payment.Amount {
		return nil, nil, &BudgetExceededError{PaymentID: paymentID, Amount: payment.Amount, Selected: total}
	}

	return payment, sel, nil
}

// resolvedSelection is a validated, budget-checked server-side selection
type resolvedSelection struct {
	payment     *models.Payment
	values      map[int64]int64
	existing    map[int64]bool
	manualBonus int64
}

// Total returns selected post values plus manual bonus
func (s *resolvedSelection) Total() int64 {
	total := s.manualBonus
	for _, v := range s.values {
		total += v
	}
	return total
}

// Remaining returns payment amount minus the running total
func (s *resolvedSelection) Remaining() int64 {
	return s.payment.Amount - s.Total()
}

// PostIDs returns the selected post IDs in ascending order
func (s *resolvedSelection) PostIDs() []int64 {
	ids := make([]int64, 0, len(s.values))
	for id := range s.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
