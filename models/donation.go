package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Donation statuses. A donation is created pending and reviewed exactly once;
// approved and rejected are terminal.
const (
	DonationPending  = "pending"
	DonationApproved = "approved"
	DonationRejected = "rejected"
)

// ReviewerTelegram marks reviews resolved from the Telegram approval channel
// rather than by a dashboard operator.
const ReviewerTelegram = "telegram"

type Donation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Amount        int64              `bson:"amount" json:"amount"`
	Boxes         int64              `bson:"boxes,omitempty" json:"boxes,omitempty"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"` // VODAFONE_CASH, INSTAPAY, BANK, manual
	ReceiptURL    string             `bson:"receipt_url,omitempty" json:"receipt_url,omitempty"`
	Status        string             `bson:"status" json:"status"`
	ReviewedBy    string             `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	// Telegram message that carries this donation's approve/reject buttons,
	// recorded so a dashboard review can still edit it.
	TelegramChatID    int64 `bson:"telegram_chat_id,omitempty" json:"-"`
	TelegramMessageID int64 `bson:"telegram_message_id,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
