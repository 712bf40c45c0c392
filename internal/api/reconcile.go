package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/bmbroch/payops/internal/models"
	"github.com/bmbroch/payops/internal/payout"
	"github.com/bmbroch/payops/internal/recon"
	"github.com/bmbroch/payops/internal/report"
)

// paymentReader is the slice of the store the API needs beyond the engine
type paymentReader interface {
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
}

// ReconcileAPI serves the reconciliation workflow
type ReconcileAPI struct {
	engine   *recon.Engine
	payments paymentReader
	agg      *report.Aggregator
}

// NewReconcileAPI creates a reconciliation API
func NewReconcileAPI(engine *recon.Engine, payments paymentReader, agg *report.Aggregator) *ReconcileAPI {
	return &ReconcileAPI{engine: engine, payments: payments, agg: agg}
}

type selectionParams struct {
	PaymentID   int64   `json:"payment_id"`
	PostIDs     []int64 `json:"post_ids"`
	PaymentType string  `json:"payment_type"`
	ManualBonus int64   `json:"manual_bonus"`
}

func parseSelectionParams(params json.RawMessage) (*selectionParams, error) {
	var req selectionParams
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid params")
	}
	if req.PaymentID <= 0 {
		return nil, NewError(ErrInvalidParams, fmt.Sprintf("invalid payment_id %d", req.PaymentID))
	}
	return &req, nil
}

// candidateView is one selectable post on the wire
type candidateView struct {
	PostID          int64  `json:"post_id"`
	PostDate        string `json:"post_date"`
	BestViews       int64  `json:"best_views"`
	WinningPlatform string `json:"winning_platform"`
	Value           int64  `json:"value"`
}

// AvailablePosts handles payops.available_posts. The response is the
// dashboard's starting draft: the selectable posts plus the budget the
// operator will draw against.
func (a *ReconcileAPI) AvailablePosts(c *gin.Context, params json.RawMessage) (interface{}, error) {
	req, err := parseSelectionParams(params)
	if err != nil {
		return nil, err
	}

	draft, err := a.engine.NewDraft(c.Request.Context(), req.PaymentID, req.PaymentType)
	if err != nil {
		return nil, err
	}

	candidates := draft.Candidates()
	posts := make([]candidateView, 0, len(candidates))
	for _, cand := range candidates {
		posts = append(posts, candidateView{
			PostID:          cand.Post.ID,
			PostDate:        cand.Post.PostDate.Format("2006-01-02"),
			BestViews:       payout.BestViews(cand.Post),
			WinningPlatform: payout.WinningPlatform(cand.Post),
			Value:           cand.Value,
		})
	}
	return gin.H{
		"payment_id":   req.PaymentID,
		"payment_type": draft.PaymentType(),
		"amount":       draft.Amount(),
		"remaining":    draft.Remaining(),
		"posts":        posts,
	}, nil
}

// PreviewSelection handles payops.preview_selection
func (a *ReconcileAPI) PreviewSelection(c *gin.Context, params json.RawMessage) (interface{}, error) {
	req, err := parseSelectionParams(params)
	if err != nil {
		return nil, err
	}
	return a.engine.PreviewSelection(c.Request.Context(), req.PaymentID, req.PostIDs, req.PaymentType, req.ManualBonus)
}

// SaveReconciliation handles payops.save_reconciliation
func (a *ReconcileAPI) SaveReconciliation(c *gin.Context, params json.RawMessage) (interface{}, error) {
	req, err := parseSelectionParams(params)
	if err != nil {
		return nil, err
	}

	result, err := a.engine.SaveReconciliation(c.Request.Context(), req.PaymentID, req.PostIDs, req.PaymentType, req.ManualBonus)
	if err != nil {
		return nil, err
	}

	a.invalidateFor(c.Request.Context(), req.PaymentID)
	return result, nil
}

// UndoReconciliation handles payops.undo_reconciliation
func (a *ReconcileAPI) UndoReconciliation(c *gin.Context, params json.RawMessage) (interface{}, error) {
	req, err := parseSelectionParams(params)
	if err != nil {
		return nil, err
	}

	if err := a.engine.UndoReconciliation(c.Request.Context(), req.PaymentID); err != nil {
		return nil, err
	}

	a.invalidateFor(c.Request.Context(), req.PaymentID)
	return gin.H{"payment_id": req.PaymentID, "status": models.PaymentStatusUnreconciled}, nil
}

// invalidateFor drops the cached totals of the payment's creator after a write
func (a *ReconcileAPI) invalidateFor(ctx context.Context, paymentID int64) {
	payment, err := a.payments.GetPayment(ctx, paymentID)
	if err != nil || payment == nil {
		return
	}
	a.agg.InvalidateCreator(payment.CreatorID)
}
