package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/notify"
	"github.com/moyoez/sora-history-bot/selection"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

func (b *Bot) handleCallback(ctx context.Context, cq *types.CallbackQuery) {
	if err := b.transport.AnswerCallback(ctx, cq.ID); err != nil {
		tool.DefaultLogger.Warnf("[Bot] Failed to answer callback %s: %v", cq.ID, err)
	}
	chatID, _ := chatOf(types.Update{CallbackQuery: cq})

	name, err := b.codec.Decode(cq.Data)
	if err != nil {
		if errors.Is(err, selection.ErrNotFound) {
			tool.DefaultLogger.Infof("[Bot] Stale selection %q from %d", cq.Data, cq.From.ID)
			b.reply(ctx, chatID, textVideoGone)
			return
		}
		tool.DefaultLogger.Warnf("[Bot] Unknown selection %q from %d", cq.Data, cq.From.ID)
		b.reply(ctx, chatID, textUnknownAction)
		return
	}

	if !b.catalog.HasExtension(name) {
		tool.DefaultLogger.Warnf("[Bot] Selection %q from %d is outside the catalog", cq.Data, cq.From.ID)
		b.reply(ctx, chatID, textFileMissing)
		return
	}
	size, err := b.catalog.Size(name)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			tool.DefaultLogger.Errorf("[Bot] Failed to stat %s: %v", name, err)
		}
		b.reply(ctx, chatID, textFileMissing)
		return
	}
	if b.maxSend > 0 && size > b.maxSend {
		tool.DefaultLogger.Warnf("[Bot] %s is %d bytes, above the send limit", name, size)
		b.reply(ctx, chatID, fmt.Sprintf(textVideoTooLarge, formatMB(b.maxSend)))
		return
	}

	path, err := b.catalog.Path(name)
	if err != nil {
		b.reply(ctx, chatID, textFileMissing)
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := b.transport.SendVideo(sendCtx, chatID, path, "🎬 "+name); err != nil {
		tool.DefaultLogger.Errorf("[Bot] Failed to send %s to chat %d: %v", name, chatID, err)
		b.reply(ctx, chatID, textSendFailed)
		return
	}
	tool.DefaultLogger.Infof("[Bot] Sent %s to %s (%d)", name, cq.From.DisplayName(), cq.From.ID)
	b.notify(notify.VideoSent(name, size, chatID))
}
