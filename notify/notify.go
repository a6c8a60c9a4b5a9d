// Package notify fans bot events out to local observers: WebSocket clients of the HTTP API and, when
// configured, a listener on a Unix domain socket.
package notify

import (
	"fmt"

	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

type Notifier struct {
	hub        *Hub
	socketPath string
}

// New returns a Notifier. hub may be nil, an empty socketPath disables socket delivery.
func New(hub *Hub, socketPath string) *Notifier {
	return &Notifier{hub: hub, socketPath: socketPath}
}

func (n *Notifier) Notify(notification *types.Notification) {
	if n == nil || notification == nil {
		return
	}
	if n.hub != nil {
		n.hub.Broadcast(notification)
	}
	if n.socketPath != "" {
		if err := SendToSocket(n.socketPath, notification); err != nil {
			tool.DefaultLogger.Warnf("[Notify] %v", err)
		}
	}
}

func UploadSaved(name string, size int64, user *types.User) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeUploadSaved,
		Title:   "Upload Saved",
		Message: fmt.Sprintf("%s saved %s", user.DisplayName(), name),
		Data: map[string]any{
			"name":   name,
			"size":   size,
			"userId": userID(user),
		},
	}
}

func UploadFailed(candidate string, user *types.User, err error) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeUploadFailed,
		Title:   "Upload Failed",
		Message: err.Error(),
		Data: map[string]any{
			"candidate": candidate,
			"userId":    user.ID,
		},
	}
}

func UploadRejected(reason string, att types.Attachment, user *types.User) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeUploadRejected,
		Title:   "Upload Rejected",
		Message: reason,
		Data: map[string]any{
			"fileName": att.FileName,
			"mimeType": att.MimeType,
			"size":     att.Size,
			"userId":   user.ID,
		},
	}
}

func VideoSent(name string, size int64, chatID int64) *types.Notification {
	return &types.Notification{
		Type:    types.NotifyTypeVideoSent,
		Title:   "Video Sent",
		Message: name,
		Data: map[string]any{
			"name":   name,
			"size":   size,
			"chatId": chatID,
		},
	}
}

func userID(u *types.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
