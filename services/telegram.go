package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	models "github.com/athar/donation-tracker-go/models"
)

// MessageRef identifies a previously sent channel message.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Notifier is the one-way push surface to the approval channel. Every call is
// best-effort: callers are permitted to log and ignore the error, and no
// failure here may roll back the operation it accompanies.
type Notifier interface {
	NotifyDonation(ctx context.Context, d *models.Donation) (MessageRef, error)
	AnnounceReview(ctx context.Context, ref MessageRef, d *models.Donation) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// ParseCallbackToken splits an inline-button token of the form
// {action}_{donationId}. Only the first separator counts: donation ids may
// themselves contain underscores.
func ParseCallbackToken(data string) (action, donationID string, err error) {
	parts := strings.SplitN(data, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrMalformedCallback
	}
	return parts[0], parts[1], nil
}

// TelegramBot talks to the Telegram Bot API over plain HTTP. BaseURL and
// Client are overridable for tests.
type TelegramBot struct {
	Token   string
	ChatID  int64
	BaseURL string
	Client  *http.Client
}

func NewTelegramBot(token string, chatID int64) *TelegramBot {
	return &TelegramBot{
		Token:   token,
		ChatID:  chatID,
		BaseURL: "https://api.telegram.org",
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether credentials are configured; when they are not, all
// sends degrade to logged no-ops.
func (b *TelegramBot) Enabled() bool {
	return b.Token != "" && b.ChatID != 0
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type apiResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"result"`
	Description string `json:"description"`
}

func (b *TelegramBot) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.BaseURL, b.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK {
		return &out, fmt.Errorf("telegram %s failed: %s", method, out.Description)
	}
	return &out, nil
}

func donationCaption(d *models.Donation) string {
	boxes := "غير محدد"
	if d.Boxes > 0 {
		boxes = fmt.Sprintf("%d", d.Boxes)
	}
	return fmt.Sprintf(`🆕 *تبرع جديد*

💰 *المبلغ:* %d جنيه
📦 *عدد الشنط:* %s
💳 *طريقة الدفع:* %s
🆔 *رقم التبرع:* `+"`%s`"+`

⏳ *الحالة:* في انتظار المراجعة`,
		d.Amount, boxes, d.PaymentMethod, d.ID.Hex())
}

func reviewedCaption(d *models.Donation) string {
	header := "❌ *تم الرفض*"
	footer := "❌ تم رفض التبرع"
	if d.Status == models.DonationApproved {
		header = "✅ *تم القبول*"
		footer = "✅ تمت الموافقة وإضافة المبلغ للعداد"
	}
	boxes := "غير محدد"
	if d.Boxes > 0 {
		boxes = fmt.Sprintf("%d", d.Boxes)
	}
	return fmt.Sprintf(`%s

💰 *المبلغ:* %d جنيه
📦 *عدد الشنط:* %s
💳 *طريقة الدفع:* %s
🆔 *رقم التبرع:* `+"`%s`"+`

%s`,
		header, d.Amount, boxes, d.PaymentMethod, d.ID.Hex(), footer)
}

// NotifyDonation pushes the new-donation alert with approve/reject buttons.
// A photo send is attempted first when a receipt exists; on failure it falls
// back to a plain text message carrying the receipt URL.
func (b *TelegramBot) NotifyDonation(ctx context.Context, d *models.Donation) (MessageRef, error) {
	if !b.Enabled() {
		log.Println("telegram not configured, skipping donation alert")
		return MessageRef{}, nil
	}

	id := d.ID.Hex()
	caption := donationCaption(d)
	keyboard := inlineKeyboard{InlineKeyboard: [][]inlineButton{{
		{Text: "✅ قبول", CallbackData: "approve_" + id},
		{Text: "❌ رفض", CallbackData: "reject_" + id},
	}}}

	if d.ReceiptURL != "" {
		resp, err := b.call(ctx, "sendPhoto", map[string]any{
			"chat_id":      b.ChatID,
			"photo":        d.ReceiptURL,
			"caption":      caption,
			"parse_mode":   "Markdown",
			"reply_markup": keyboard,
		})
		if err == nil {
			return MessageRef{ChatID: resp.Result.Chat.ID, MessageID: resp.Result.MessageID}, nil
		}
		log.Printf("telegram photo send failed, falling back to text: %v", err)
		caption = caption + "\n\n📷 *صورة الإيصال:* " + d.ReceiptURL
	}

	resp, err := b.call(ctx, "sendMessage", map[string]any{
		"chat_id":      b.ChatID,
		"text":         caption,
		"parse_mode":   "Markdown",
		"reply_markup": keyboard,
	})
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: resp.Result.Chat.ID, MessageID: resp.Result.MessageID}, nil
}

// AnnounceReview edits the original alert so the buttons disappear and the
// final decision is shown.
func (b *TelegramBot) AnnounceReview(ctx context.Context, ref MessageRef, d *models.Donation) error {
	if !b.Enabled() || ref.MessageID == 0 {
		return nil
	}
	_, err := b.call(ctx, "editMessageCaption", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"caption":    reviewedCaption(d),
		"parse_mode": "Markdown",
	})
	return err
}

// AnswerCallback acknowledges a button press with a prominent alert.
func (b *TelegramBot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if !b.Enabled() {
		return nil
	}
	_, err := b.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        true,
	})
	return err
}
