package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"CamuPos/app/config"
	"CamuPos/app/models"
)

// ErrNoRecipient is returned when an order carries no usable phone number
var ErrNoRecipient = errors.New("no recipient phone number")

// SendResult is the gateway's verdict on one message
type SendResult struct {
	Status bool   `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Messenger delivers a text to a phone number (digits only, 62 prefix)
type Messenger interface {
	Send(ctx context.Context, target, message string) (SendResult, error)
}

// FonnteMessenger posts to the Fonnte WhatsApp gateway
type FonnteMessenger struct {
	token  string
	apiURL string
	client *http.Client
}

// NewFonnteMessenger creates a gateway client
func NewFonnteMessenger(cfg config.WhatsAppConfig) *FonnteMessenger {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.fonnte.com/send"
	}
	return &FonnteMessenger{
		token:  cfg.Token,
		apiURL: apiURL,
		client: &http.Client{Timeout: 20 * time.Second},
	}
}

// Send posts target and message as a form. A gateway refusal is reported in
// the result, not as an error.
func (f *FonnteMessenger) Send(ctx context.Context, target, message string) (SendResult, error) {
	form := url.Values{}
	form.Set("target", target)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("build fonnte request: %w", err)
	}
	req.Header.Set("Authorization", f.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("fonnte request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return SendResult{}, fmt.Errorf("read fonnte response: %w", err)
	}
	var result SendResult
	if err := json.Unmarshal(body, &result); err != nil {
		return SendResult{}, fmt.Errorf("decode fonnte response (HTTP %d): %w", resp.StatusCode, err)
	}
	return result, nil
}

// TelegramMessenger sends the owner a copy of storefront orders
type TelegramMessenger struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramMessenger connects the owner bot
func NewTelegramMessenger(cfg config.TelegramConfig) (*TelegramMessenger, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramMessenger{api: api, chatID: cfg.ChatID}, nil
}

// Send delivers to target when it is a numeric chat id, otherwise to the owner chat
func (t *TelegramMessenger) Send(ctx context.Context, target, message string) (SendResult, error) {
	chatID := t.chatID
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		chatID = id
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		return SendResult{Status: false, Reason: err.Error()}, err
	}
	return SendResult{Status: true}, nil
}

// NotifierService builds customer and owner messages and sends them
// best-effort. Nothing here changes order state.
type NotifierService struct {
	whatsapp Messenger
	owner    Messenger
	logger   *LoggerService
	location *time.Location
}

// NewNotifierService creates a notifier. Either messenger may be nil.
func NewNotifierService(whatsapp, owner Messenger, logger *LoggerService) *NotifierService {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.Local
	}
	return &NotifierService{whatsapp: whatsapp, owner: owner, logger: logger, location: loc}
}

// WhatsAppEnabled reports whether customer messages can be sent automatically
func (n *NotifierService) WhatsAppEnabled() bool {
	return n.whatsapp != nil
}

func (n *NotifierService) sendCustomer(ctx context.Context, o models.Order, message string) (SendResult, error) {
	phone := o.PhoneDigits()
	if phone == "" {
		return SendResult{Reason: "Tidak ada nomor WA pelanggan."}, ErrNoRecipient
	}
	if n.whatsapp == nil {
		return SendResult{Reason: "WhatsApp gateway not configured"}, nil
	}
	result, err := n.whatsapp.Send(ctx, phone, message)
	if err != nil {
		n.logger.LogError("WhatsApp send failed", err, "order="+o.ID)
		return result, err
	}
	if !result.Status {
		n.logger.LogWarning("WhatsApp gateway refused message", "order="+o.ID, "reason="+result.Reason)
	}
	return result, nil
}

// NotifyNewOrder messages the customer and the owner about a storefront order
func (n *NotifierService) NotifyNewOrder(ctx context.Context, o models.Order) (SendResult, error) {
	if n.owner != nil {
		if _, err := n.owner.Send(ctx, "", OwnerOrderMessage(o)); err != nil {
			n.logger.LogError("Owner notification failed", err, "order="+o.ID)
		}
	}
	return n.sendCustomer(ctx, o, NewOrderMessage(o))
}

// NotifyReady tells the customer the order can be picked up
func (n *NotifierService) NotifyReady(ctx context.Context, o models.Order) (SendResult, error) {
	return n.sendCustomer(ctx, o, ReadyMessage(o))
}

// NotifyUnpaid reminds the customer to pay at the counter
func (n *NotifierService) NotifyUnpaid(ctx context.Context, o models.Order) (SendResult, error) {
	return n.sendCustomer(ctx, o, UnpaidReminderMessage(o, n.location))
}

// SendReceipt sends the counter receipt to phone
func (n *NotifierService) SendReceipt(ctx context.Context, o models.Order, phone string) (SendResult, error) {
	o.CustomerPhone = phone
	return n.sendCustomer(ctx, o, ReceiptMessage(o, RandomPantun(), n.location))
}

// Message returns the text and wa.me link for a manual send
func (n *NotifierService) Message(kind string, o models.Order) (string, string, error) {
	var message string
	switch kind {
	case "new":
		message = NewOrderMessage(o)
	case "ready":
		message = ReadyMessage(o)
	case "unpaid":
		message = UnpaidReminderMessage(o, n.location)
	case "receipt":
		message = ReceiptMessage(o, RandomPantun(), n.location)
	default:
		return "", "", fmt.Errorf("unknown message kind %q", kind)
	}
	return message, WaLink(o.CustomerPhone, message), nil
}
