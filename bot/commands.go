package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
	"github.com/moyoez/sora-history-bot/upload"
)

// splitCommand returns the lower-cased command of a "/cmd@BotName args" text and its arguments.
func splitCommand(text string) (cmd string, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd = text
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		cmd, args = text[:i], strings.TrimSpace(text[i:])
	}
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), args
}

func (b *Bot) handleCommand(ctx context.Context, msg *types.Message, cmd, _ string) {
	switch cmd {
	case "/start":
		b.handleStart(ctx, msg)
	case "/help":
		b.reply(ctx, msg.Chat.ID, helpText(b.uploads.Extension()))
	case "/upload":
		b.handleUploadCommand(ctx, msg)
	case "/cancel":
		b.handleCancel(ctx, msg)
	default:
		b.reply(ctx, msg.Chat.ID, textUnknownCommand)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *types.Message) {
	tool.DefaultLogger.Infof("[Bot] /start from %s (%d)", msg.From.DisplayName(), msg.From.ID)
	entries, err := b.catalog.List()
	if err != nil {
		tool.DefaultLogger.Errorf("[Bot] Failed to list videos: %v", err)
		b.reply(ctx, msg.Chat.ID, textListFailed)
		return
	}
	if len(entries) == 0 {
		b.reply(ctx, msg.Chat.ID, textNoVideos)
		return
	}
	keyboard := &types.InlineKeyboardMarkup{InlineKeyboard: make([][]types.InlineKeyboardButton, 0, len(entries))}
	for _, entry := range entries {
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, []types.InlineKeyboardButton{{
			Text:         entry.Name,
			CallbackData: b.codec.Encode(entry),
		}})
	}
	b.replyWithKeyboard(ctx, msg.Chat.ID, textSelectVideo, keyboard)
}

func (b *Bot) handleUploadCommand(ctx context.Context, msg *types.Message) {
	if err := b.uploads.Begin(msg.From.ID); err != nil {
		if errors.Is(err, upload.ErrUnauthorized) {
			tool.DefaultLogger.Warnf("[Bot] Unauthorized /upload attempt by %s (%d)", msg.From.DisplayName(), msg.From.ID)
			b.reply(ctx, msg.Chat.ID, textUploadUnauthorized)
			return
		}
		tool.DefaultLogger.Errorf("[Bot] Failed to start upload session: %v", err)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf(textUploadPrompt, b.uploads.Extension(), formatMB(b.uploads.MaxBytes())))
}

func (b *Bot) handleCancel(ctx context.Context, msg *types.Message) {
	if b.uploads.Cancel(msg.From.ID) {
		tool.DefaultLogger.Infof("[Bot] Upload cancelled by %s (%d)", msg.From.DisplayName(), msg.From.ID)
		b.reply(ctx, msg.Chat.ID, textCancelled)
		return
	}
	b.reply(ctx, msg.Chat.ID, textNothingToCancel)
}
