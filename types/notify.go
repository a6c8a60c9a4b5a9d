package types

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "upload_saved", "video_sent", etc.
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

const (
	NotifyTypeUploadSaved    = "upload_saved"
	NotifyTypeUploadFailed   = "upload_failed"
	NotifyTypeUploadRejected = "upload_rejected"
	NotifyTypeVideoSent      = "video_sent"
)
