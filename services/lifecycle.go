package services

import (
	"context"
	"fmt"
	"time"

	models "github.com/athar/donation-tracker-go/models"
)

// Review decisions accepted from both entry points.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// DonationStore is the persistence boundary of the lifecycle engine. The store
// owns all state; the engine is a stateless read-modify-write layer on top.
type DonationStore interface {
	Insert(ctx context.Context, d *models.Donation) error
	Get(ctx context.Context, id string) (*models.Donation, error)
	List(ctx context.Context, status string) ([]models.Donation, error)
	// CompleteReview atomically moves a donation out of pending. The status
	// precondition and the write must be a single conditional update; it
	// returns (nil, nil) when no pending document matched.
	CompleteReview(ctx context.Context, id, status, reviewer string, at time.Time) (*models.Donation, error)
	// SetTelegramMessage records the chat/message that carries the donation's
	// inline approval buttons.
	SetTelegramMessage(ctx context.Context, id string, chatID, messageID int64) error
}

// Lifecycle implements the donation state machine:
// pending -> approved | rejected, both terminal.
type Lifecycle struct {
	store DonationStore
	now   func() time.Time
}

func NewLifecycle(store DonationStore) *Lifecycle {
	return &Lifecycle{store: store, now: time.Now}
}

// Submit creates a pending donation. The receipt must already be uploaded;
// a donation is never recorded with a promised-but-missing receipt.
func (s *Lifecycle) Submit(ctx context.Context, amount, boxes int64, paymentMethod, receiptURL string) (*models.Donation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	if boxes < 0 {
		return nil, fmt.Errorf("boxes must not be negative")
	}
	now := s.now()
	d := &models.Donation{
		Amount:        amount,
		Boxes:         boxes,
		PaymentMethod: paymentMethod,
		ReceiptURL:    receiptURL,
		Status:        models.DonationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddManual records an off-system donation entered by an operator. It is
// created directly approved; there is no review step.
func (s *Lifecycle) AddManual(ctx context.Context, amount, boxes int64, operator string) (*models.Donation, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than 0")
	}
	if boxes < 0 {
		return nil, fmt.Errorf("boxes must not be negative")
	}
	now := s.now()
	d := &models.Donation{
		Amount:        amount,
		Boxes:         boxes,
		PaymentMethod: "manual",
		Status:        models.DonationApproved,
		ReviewedBy:    operator,
		ReviewedAt:    &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Review applies the single terminal transition for a donation. It is the one
// choke point shared by the dashboard and the Telegram webhook: the store-level
// conditional update guarantees that when both race, exactly one wins and the
// other gets ErrAlreadyReviewed.
func (s *Lifecycle) Review(ctx context.Context, id, decision, reviewer string) (*models.Donation, error) {
	var status string
	switch decision {
	case DecisionApprove:
		status = models.DonationApproved
	case DecisionReject:
		status = models.DonationRejected
	default:
		return nil, fmt.Errorf("unknown review decision %q", decision)
	}

	d, err := s.store.CompleteReview(ctx, id, status, reviewer, s.now())
	if err != nil {
		return nil, err
	}
	if d != nil {
		return d, nil
	}

	// No pending document matched: distinguish missing from already reviewed.
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	return existing, ErrAlreadyReviewed
}

// Get returns a single donation or ErrNotFound.
func (s *Lifecycle) Get(ctx context.Context, id string) (*models.Donation, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// List returns donations, optionally filtered by status.
func (s *Lifecycle) List(ctx context.Context, status string) ([]models.Donation, error) {
	return s.store.List(ctx, status)
}

// AttachTelegramMessage is best-effort bookkeeping after the channel alert is
// sent; a failure here never fails the submission.
func (s *Lifecycle) AttachTelegramMessage(ctx context.Context, id string, chatID, messageID int64) error {
	return s.store.SetTelegramMessage(ctx, id, chatID, messageID)
}
