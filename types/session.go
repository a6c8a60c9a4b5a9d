package types

// UploadState is the position of one requester in the upload dialogue.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadAwaitingFile
)

func (s UploadState) String() string {
	switch s {
	case UploadAwaitingFile:
		return "awaiting_file"
	default:
		return "idle"
	}
}

// AttachmentKind tells how the file arrived in the chat.
type AttachmentKind int

const (
	AttachmentNone AttachmentKind = iota
	AttachmentVideo
	AttachmentDocument
)

// Attachment is the transport-agnostic metadata of a file sent by a user.
type Attachment struct {
	Kind     AttachmentKind
	FileID   string
	FileName string
	MimeType string
	Size     int64 // declared by the sender, 0 when unknown
}
