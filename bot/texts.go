package bot

import (
	"fmt"
	"strings"
)

const (
	textNoVideos        = "No videos available yet. Admin can upload with /upload 📤"
	textSelectVideo     = "Select a video to receive 🎬:"
	textListFailed      = "Failed to read the video list. Please try again later. 😞"
	textUnknownCommand  = "Unknown command. Use /help to see available commands. 🤖"
	textCancelled       = "Operation cancelled. ✖️"
	textNothingToCancel = "Nothing to cancel."

	textVideoGone     = "Sorry, I can't find that video anymore. ⚠️"
	textUnknownAction = "Unknown action."
	textFileMissing   = "Video file not found on server. ⚠️"
	textVideoTooLarge = "Sorry, this video is larger than %s and cannot be sent. ⚠️"
	textSendFailed    = "Failed to send the video due to an error. 😞"

	textUploadUnauthorized = "You are not authorized to use /upload. 🔒"
	textUploadPrompt       = "Please send the %s video file (under %s). Send /cancel to abort. 📤"
	textNotAuthorized      = "You are not authorized. 🔒"
	textNoAttachment       = "Please send a %s file as a video or document. ❗"
	textUnsupportedType    = "Only %s video files are accepted. ❗"
	textUploadTooLarge     = "File is too large. Please upload a file under %s. ⚠️"
	textUploadSaved        = "Upload successful! Saved as %s ✅"
	textUploadFailed       = "Failed to save the uploaded file due to an error. 😞"
)

func helpText(ext string) string {
	var sb strings.Builder
	sb.WriteString("Sora History Bot - available commands:\n\n")
	sb.WriteString("/start - list available videos 🎬\n")
	sb.WriteString("/help - show this help message ℹ️\n")
	fmt.Fprintf(&sb, "/upload - (admin only) upload a new %s file 📤\n", ext)
	sb.WriteString("/cancel - cancel current operation ❌")
	return sb.String()
}

// formatMB renders a byte ceiling the way users read it, 52428800 -> "50MB".
func formatMB(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
