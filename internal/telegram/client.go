// Package telegram delivers ingest-run summaries via the Telegram Bot API,
// so an unattended scheduler still has a human watching its results. Sends
// are retried with backoff; a run report that cannot be delivered is logged
// by the caller and dropped, never blocking ingest.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/speedy-finance/bulkdeals/internal/scheduler"
)

// Client sends ingest reports to one chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a Telegram client for the given bot token and chat.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendReport delivers an ingest-run summary, retrying on transient failures.
func (c *Client) SendReport(r scheduler.Report) error {
	msg := tgbotapi.NewMessage(c.chatID, formatReport(r))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("send report after %d retries: %w", c.maxRetries, lastErr)
}

// formatReport renders a run report as a MarkdownV2 message.
func formatReport(r scheduler.Report) string {
	var b strings.Builder

	if r.Failed() {
		b.WriteString("⚠️ *Bulk deals ingest completed with errors*\n\n")
	} else {
		b.WriteString("✅ *Bulk deals ingest completed*\n\n")
	}

	fmt.Fprintf(&b, "📅 Date: %s\n", escapeMarkdownV2(r.Date))
	fmt.Fprintf(&b, "🔖 Run: %s \\(%s\\)\n\n", escapeMarkdownV2(shortID(r.RunID)), escapeMarkdownV2(r.Trigger))

	for _, src := range r.Sources {
		if src.Err != nil {
			fmt.Fprintf(&b, "❌ %s: %s\n", escapeMarkdownV2(src.Source), escapeMarkdownV2(src.Err.Error()))
		} else {
			fmt.Fprintf(&b, "📥 %s: %d fetched\n", escapeMarkdownV2(src.Source), src.Fetched)
		}
	}

	fmt.Fprintf(&b, "\n➕ Added: *%d*\n", r.Added)
	if r.StoreErr != nil {
		fmt.Fprintf(&b, "💾 Persist error: %s\n", escapeMarkdownV2(r.StoreErr.Error()))
	}
	fmt.Fprintf(&b, "⏱ Took: %s\n", escapeMarkdownV2(r.Duration.Round(time.Millisecond).String()))

	return b.String()
}

// shortID truncates a run UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// escapeMarkdownV2 escapes the characters Telegram's MarkdownV2 mode treats
// as markup.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
