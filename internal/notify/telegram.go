// Package notify delivers booking notifications to slot owners. It contains
// the Telegram Bot API client, message formatting, the transition-driven
// Dispatcher with its reminder sweep, and optional fan-out targets (AMQP
// event publishing) and reminder de-duplication (Redis ledger).
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ErrDeliveryFailed wraps every error returned by a Sender.
var ErrDeliveryFailed = errors.New("notification delivery failed")

const (
	// DefaultTelegramAPI is the public Bot API endpoint.
	DefaultTelegramAPI = "https://api.telegram.org"
	// DefaultSendTimeout bounds a single sendMessage call.
	DefaultSendTimeout = 10 * time.Second

	// FormatHTML selects Telegram's HTML parse mode.
	FormatHTML = string(models.ParseModeHTML)
)

// TelegramClient sends messages through the Telegram Bot API. The bot token
// is fixed at construction; a blank token yields a disabled client.
type TelegramClient struct {
	bot     *bot.Bot
	token   string
	baseURL string
	timeout time.Duration
	initErr error
}

// NewTelegramClient builds a client for token. An empty baseURL means
// DefaultTelegramAPI; a non-positive timeout means DefaultSendTimeout.
// No request is made until the first Send.
func NewTelegramClient(token, baseURL string, timeout time.Duration) *TelegramClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	c := &TelegramClient{baseURL: baseURL, timeout: timeout}

	token = strings.TrimSpace(token)
	if token == "" {
		return c
	}
	c.token = token
	c.bot, c.initErr = bot.New(token,
		bot.WithSkipGetMe(),
		bot.WithServerURL(baseURL),
		bot.WithHTTPClient(timeout, &http.Client{Timeout: timeout}),
	)
	return c
}

// Enabled reports whether the client has a usable bot to send with.
func (c *TelegramClient) Enabled() bool { return c != nil && c.bot != nil && c.initErr == nil }

// Err returns why a client built with a token could not be initialized.
func (c *TelegramClient) Err() error { return c.initErr }

// Send posts text to recipientID with the given parse mode. Transport
// errors, timeouts, and Bot API rejections all wrap ErrDeliveryFailed.
func (c *TelegramClient) Send(ctx context.Context, recipientID, text, format string) error {
	if !c.Enabled() {
		if c != nil && c.initErr != nil {
			return fmt.Errorf("%w: %v", ErrDeliveryFailed, c.initErr)
		}
		return fmt.Errorf("%w: bot token not configured", ErrDeliveryFailed)
	}
	if strings.TrimSpace(recipientID) == "" {
		return fmt.Errorf("%w: empty recipient", ErrDeliveryFailed)
	}

	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    recipientID,
		Text:      text,
		ParseMode: models.ParseMode(format),
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, c.redact(err))
	}
	return nil
}

// minRedactLen is the shortest token masked inside error text. Shorter
// values would match ordinary words; real Bot API tokens are far longer.
const minRedactLen = 8

// redact drops the request URL, which embeds the bot token, from err and
// masks any remaining occurrence of the token.
func (c *TelegramClient) redact(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	msg := err.Error()
	if len(c.token) < minRedactLen {
		return msg
	}
	return strings.ReplaceAll(msg, c.token, "<token>")
}
