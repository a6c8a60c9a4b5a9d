package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/moyoez/sora-history-bot/notify"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
	"github.com/moyoez/sora-history-bot/upload"
)

func attachmentOf(msg *types.Message) types.Attachment {
	switch {
	case msg.Video != nil:
		return types.Attachment{
			Kind:     types.AttachmentVideo,
			FileID:   msg.Video.FileID,
			FileName: msg.Video.FileName,
			MimeType: msg.Video.MimeType,
			Size:     msg.Video.FileSize,
		}
	case msg.Document != nil:
		return types.Attachment{
			Kind:     types.AttachmentDocument,
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     msg.Document.FileSize,
		}
	}
	return types.Attachment{Kind: types.AttachmentNone}
}

func (b *Bot) handleAttachment(ctx context.Context, msg *types.Message) {
	user, chatID := msg.From, msg.Chat.ID
	att := attachmentOf(msg)
	ext := b.uploads.Extension()
	limit := formatMB(b.uploads.MaxBytes())

	acc, err := b.uploads.Review(user.ID, att)
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrNoSession):
		tool.DefaultLogger.Debugf("[Bot] Ignoring file from %d without upload session", user.ID)
		return
	case errors.Is(err, upload.ErrUnauthorized):
		tool.DefaultLogger.Warnf("[Bot] Unauthorized file from %s (%d)", user.DisplayName(), user.ID)
		b.reply(ctx, chatID, textNotAuthorized)
		return
	case errors.Is(err, upload.ErrNoAttachment):
		b.reply(ctx, chatID, fmt.Sprintf(textNoAttachment, ext))
		return
	case errors.Is(err, upload.ErrUnsupportedType):
		tool.DefaultLogger.Infof("[Bot] Rejected upload: %v", err)
		b.reply(ctx, chatID, fmt.Sprintf(textUnsupportedType, ext))
		b.notify(notify.UploadRejected(err.Error(), att, user))
		return
	case errors.Is(err, upload.ErrTooLarge):
		tool.DefaultLogger.Warnf("[Bot] Rejected upload: %v", err)
		b.reply(ctx, chatID, fmt.Sprintf(textUploadTooLarge, limit))
		b.notify(notify.UploadRejected(err.Error(), att, user))
		return
	default:
		tool.DefaultLogger.Errorf("[Bot] Upload review failed: %v", err)
		b.reply(ctx, chatID, textUploadFailed)
		return
	}

	b.jobs.Add(1)
	go b.runUpload(chatID, user, acc)
}

// runUpload streams an accepted file into the catalog without holding up the chat worker.
func (b *Bot) runUpload(chatID int64, user *types.User, acc upload.Accepted) {
	defer b.jobs.Done()
	jobID := tool.GenerateJobID()
	tool.DefaultLogger.Infof("[Upload %s] Receiving %s (%d bytes declared) from %d", jobID, acc.Candidate, acc.Size, user.ID)

	name, size, err := b.uploads.Store(b.ctx, acc, b.transport.OpenFile)
	if err != nil {
		tool.DefaultLogger.Errorf("[Upload %s] Failed: %v", jobID, err)
		if errors.Is(err, upload.ErrTooLarge) {
			b.reply(b.ctx, chatID, fmt.Sprintf(textUploadTooLarge, formatMB(b.uploads.MaxBytes())))
		} else {
			b.reply(b.ctx, chatID, textUploadFailed)
		}
		b.notify(notify.UploadFailed(acc.Candidate, user, err))
		return
	}
	tool.DefaultLogger.Infof("[Upload %s] Saved %s (%d bytes)", jobID, name, size)
	b.reply(b.ctx, chatID, fmt.Sprintf(textUploadSaved, name))
	b.notify(notify.UploadSaved(name, size, user))
}
