package telegram

import (
	"context"
	"time"

	"github.com/moyoez/sora-history-bot/types"
)

func (c *Client) GetMe(ctx context.Context) (*types.User, error) {
	return call[*types.User](ctx, c, "getMe", struct{}{})
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// GetUpdates long polls for at most timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]types.Update, error) {
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()
	return call[[]types.Update](reqCtx, c, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        secs,
		AllowedUpdates: AllowedUpdates,
	})
}

type sendMessageRequest struct {
	ChatID      int64                       `json:"chat_id"`
	Text        string                      `json:"text"`
	ReplyMarkup *types.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *types.InlineKeyboardMarkup) (*types.Message, error) {
	return call[*types.Message](ctx, c, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
}

// SendText is SendMessage without the sent message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, keyboard *types.InlineKeyboardMarkup) error {
	_, err := c.SendMessage(ctx, chatID, text, keyboard)
	return err
}

type answerCallbackQueryRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	_, err := call[bool](ctx, c, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

// AnswerCallback stops the loading spinner on the pressed button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.AnswerCallbackQuery(ctx, callbackID, "")
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := call[bool](ctx, c, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: AllowedUpdates,
	})
	return err
}

type deleteWebhookRequest struct {
	DropPendingUpdates bool `json:"drop_pending_updates"`
}

// DeleteWebhook must precede getUpdates when a webhook was registered before.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := call[bool](ctx, c, "deleteWebhook", deleteWebhookRequest{})
	return err
}
