package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/athar/donation-tracker-go/models"
)

func TestParseCallbackToken(t *testing.T) {
	action, id, err := ParseCallbackToken("approve_abc_123")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if action != "approve" {
		t.Fatalf("action = %q, want approve", action)
	}
	// Only the first separator splits: ids may contain underscores.
	if id != "abc_123" {
		t.Fatalf("donation id = %q, want abc_123", id)
	}

	for _, bad := range []string{"", "approve", "approve_", "_abc"} {
		if _, _, err := ParseCallbackToken(bad); !errors.Is(err, ErrMalformedCallback) {
			t.Errorf("ParseCallbackToken(%q): expected ErrMalformedCallback, got %v", bad, err)
		}
	}
}

// telegramStub records Bot API calls and can fail selected methods.
type telegramStub struct {
	calls     []string
	bodies    []map[string]any
	failPhoto bool
	lastMsgID int64
}

func (s *telegramStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		s.calls = append(s.calls, method)

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		s.bodies = append(s.bodies, body)

		if method == "sendPhoto" && s.failPhoto {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "wrong file identifier"})
			return
		}

		s.lastMsgID++
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": s.lastMsgID,
				"chat":       map[string]any{"id": int64(-100123)},
			},
		})
	}
}

func testBot(t *testing.T, stub *telegramStub) (*TelegramBot, func()) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	bot := NewTelegramBot("test-token", -100123)
	bot.BaseURL = srv.URL
	bot.Client = srv.Client()
	return bot, srv.Close
}

func sampleDonation() *models.Donation {
	return &models.Donation{
		ID:            primitive.NewObjectID(),
		Amount:        500,
		Boxes:         2,
		PaymentMethod: "INSTAPAY",
		ReceiptURL:    "https://res.cloudinary.com/demo/receipts/x.jpg",
		Status:        models.DonationPending,
	}
}

func TestNotifyDonation_SendsPhotoWithButtons(t *testing.T) {
	stub := &telegramStub{}
	bot, done := testBot(t, stub)
	defer done()

	d := sampleDonation()
	ref, err := bot.NotifyDonation(context.Background(), d)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if ref.MessageID == 0 || ref.ChatID != -100123 {
		t.Fatalf("unexpected message ref %+v", ref)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "sendPhoto" {
		t.Fatalf("calls = %v, want [sendPhoto]", stub.calls)
	}

	markup, _ := json.Marshal(stub.bodies[0]["reply_markup"])
	id := d.ID.Hex()
	if !strings.Contains(string(markup), "approve_"+id) || !strings.Contains(string(markup), "reject_"+id) {
		t.Fatalf("keyboard missing action tokens: %s", markup)
	}
}

func TestNotifyDonation_FallsBackToTextOnPhotoFailure(t *testing.T) {
	stub := &telegramStub{failPhoto: true}
	bot, done := testBot(t, stub)
	defer done()

	d := sampleDonation()
	ref, err := bot.NotifyDonation(context.Background(), d)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if ref.MessageID == 0 {
		t.Fatalf("fallback should still return a message ref")
	}
	if len(stub.calls) != 2 || stub.calls[0] != "sendPhoto" || stub.calls[1] != "sendMessage" {
		t.Fatalf("calls = %v, want [sendPhoto sendMessage]", stub.calls)
	}
	text, _ := stub.bodies[1]["text"].(string)
	if !strings.Contains(text, d.ReceiptURL) {
		t.Fatalf("fallback text should carry the receipt URL")
	}
}

func TestAnnounceReview_EditsCaption(t *testing.T) {
	stub := &telegramStub{}
	bot, done := testBot(t, stub)
	defer done()

	d := sampleDonation()
	d.Status = models.DonationApproved
	err := bot.AnnounceReview(context.Background(), MessageRef{ChatID: -100123, MessageID: 42}, d)
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "editMessageCaption" {
		t.Fatalf("calls = %v, want [editMessageCaption]", stub.calls)
	}
	if stub.bodies[0]["message_id"].(float64) != 42 {
		t.Fatalf("edited wrong message: %v", stub.bodies[0]["message_id"])
	}
	// The edited caption must drop the buttons.
	if _, hasMarkup := stub.bodies[0]["reply_markup"]; hasMarkup {
		t.Fatalf("edited message must not keep the inline keyboard")
	}
}

func TestAnswerCallback(t *testing.T) {
	stub := &telegramStub{}
	bot, done := testBot(t, stub)
	defer done()

	if err := bot.AnswerCallback(context.Background(), "cb-1", "done"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "answerCallbackQuery" {
		t.Fatalf("calls = %v, want [answerCallbackQuery]", stub.calls)
	}
	if stub.bodies[0]["callback_query_id"] != "cb-1" {
		t.Fatalf("wrong callback id: %v", stub.bodies[0]["callback_query_id"])
	}
	if stub.bodies[0]["show_alert"] != true {
		t.Fatalf("acknowledgment should be a prominent alert")
	}
}

func TestBot_DisabledIsANoOp(t *testing.T) {
	bot := NewTelegramBot("", 0)

	ref, err := bot.NotifyDonation(context.Background(), sampleDonation())
	if err != nil || ref.MessageID != 0 {
		t.Fatalf("disabled bot should no-op, got %+v, %v", ref, err)
	}
	if err := bot.AnswerCallback(context.Background(), "cb", "x"); err != nil {
		t.Fatalf("disabled bot should no-op, got %v", err)
	}
}
