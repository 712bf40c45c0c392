package recon

import (
	"sort"

	"github.com/bmbroch/payops/internal/models"
)

// Candidate is a post available for reconciliation, with its dollar value
// for the active payment type
type Candidate struct {
	Post  *models.Post
	Value int64
}

// Selection is the draft state of one reconciliation: a payment, a
// payment type, and the operator's running choice of posts plus an
// optional manual bonus amount. It lives only in memory; abandoning it
// costs nothing because no store writes happen until save.
type Selection struct {
	payment     *models.Payment
	paymentType string
	candidates  []Candidate
	values      map[int64]int64
	selected    map[int64]bool
	manualBonus int64
}

// NewSelection starts an empty draft over the given candidates
func NewSelection(payment *models.Payment, paymentType string, candidates []Candidate) *Selection {
	values := make(map[int64]int64, len(candidates))
	for _, c := range candidates {
		values[c.Post.ID] = c.Value
	}
	return &Selection{
		payment:     payment,
		paymentType: paymentType,
		candidates:  candidates,
		values:      values,
		selected:    make(map[int64]bool),
	}
}

// Candidates returns the selectable posts in store order
func (s *Selection) Candidates() []Candidate {
	return s.candidates
}

// PaymentType returns the draft's payment type
func (s *Selection) PaymentType() string {
	return s.paymentType
}

// Amount returns the payment amount the draft reconciles against
func (s *Selection) Amount() int64 {
	return s.payment.Amount
}

// Total returns the running total: selected post values plus manual bonus
func (s *Selection) Total() int64 {
	total := s.manualBonus
	for id, on := range s.selected {
		if on {
			total += s.values[id]
		}
	}
	return total
}

// Remaining returns payment amount minus the running total
func (s *Selection) Remaining() int64 {
	return s.payment.Amount - s.Total()
}

// CanAdd reports whether a post may be added without overrunning the
// payment amount. Unknown posts can never be added.
func (s *Selection) CanAdd(postID int64) bool {
	value, ok := s.values[postID]
	if !ok {
		return false
	}
	if s.selected[postID] {
		return false
	}
	return s.Total()+value <= s.payment.Amount
}

// Add selects a post if the budget allows; returns whether it was added
func (s *Selection) Add(postID int64) bool {
	if !s.CanAdd(postID) {
		return false
	}
	s.selected[postID] = true
	return true
}

// Remove deselects a post. Always allowed, regardless of budget state.
func (s *Selection) Remove(postID int64) {
	delete(s.selected, postID)
}

// Selected reports whether a post is currently in the draft
func (s *Selection) Selected(postID int64) bool {
	return s.selected[postID]
}

// SetManualBonus sets the free-form bonus amount if the budget allows;
// returns whether it was applied
func (s *Selection) SetManualBonus(amount int64) bool {
	if amount < 0 {
		return false
	}
	if s.Total()-s.manualBonus+amount > s.payment.Amount {
		return false
	}
	s.manualBonus = amount
	return true
}

// ManualBonus returns the draft's manual bonus amount
func (s *Selection) ManualBonus() int64 {
	return s.manualBonus
}

// PostIDs returns the selected post IDs in ascending order
func (s *Selection) PostIDs() []int64 {
	ids := make([]int64, 0, len(s.selected))
	for id, on := range s.selected {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
