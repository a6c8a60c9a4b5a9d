// Package upload runs the admin upload dialogue: /upload opens a session, the next attachment is
// validated and streamed into the catalog, /cancel drops the session.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

var (
	ErrUnauthorized    = errors.New("user is not allowed to upload")
	ErrNoSession       = errors.New("no upload session")
	ErrNoAttachment    = errors.New("message carries no video or document")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrIOFailure       = errors.New("upload failed")
)

// sessions without expiry still need a ttl for the cache
const neverExpire = 100 * 365 * 24 * time.Hour

// Catalog is the part of catalog.Store the machine writes through.
type Catalog interface {
	ReserveDestination(candidate string) string
	Release(name string)
	Write(ctx context.Context, name string, r io.Reader, limit int64) (int64, error)
}

// Opener streams the content of a remote file.
type Opener func(ctx context.Context, fileID string) (io.ReadCloser, error)

type Config struct {
	AdminID    int64
	Extension  string
	MaxBytes   int64
	SessionTTL time.Duration // 0 keeps a session until it is used or cancelled
}

// Accepted is an attachment that passed every gate and may be stored.
type Accepted struct {
	FileID    string
	Candidate string
	Size      int64
}

type Machine struct {
	adminID  int64
	ext      string
	maxBytes int64
	catalog  Catalog

	mu       sync.Mutex
	sessions *ttlworker.Cache[int64, types.UploadState]
}

func NewMachine(cfg Config, catalog Catalog) *Machine {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = neverExpire
	}
	return &Machine{
		adminID:  cfg.AdminID,
		ext:      strings.ToLower(cfg.Extension),
		maxBytes: cfg.MaxBytes,
		catalog:  catalog,
		sessions: ttlworker.NewCache[int64, types.UploadState](ttl),
	}
}

func (m *Machine) Authorized(userID int64) bool {
	return userID == m.adminID
}

func (m *Machine) MaxBytes() int64 {
	return m.maxBytes
}

func (m *Machine) Extension() string {
	return m.ext
}

// State reports where userID stands in the dialogue. Unknown users are idle.
func (m *Machine) State(userID int64) types.UploadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Get(userID)
}

// Begin opens a session for userID, or restarts the one already open.
func (m *Machine) Begin(userID int64) error {
	if !m.Authorized(userID) {
		return ErrUnauthorized
	}
	m.mu.Lock()
	m.sessions.Set(userID, types.UploadAwaitingFile)
	m.mu.Unlock()
	return nil
}

// Cancel drops the session of userID. It reports whether one was open.
func (m *Machine) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions.Get(userID) != types.UploadAwaitingFile {
		return false
	}
	m.sessions.Delete(userID)
	return true
}

// Review runs the gates on an attachment sent by userID. ErrUnsupportedType and ErrNoAttachment keep the
// session open so the user can send another file. Every other outcome, acceptance included, ends it.
func (m *Machine) Review(userID int64, att types.Attachment) (Accepted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions.Get(userID) != types.UploadAwaitingFile {
		return Accepted{}, ErrNoSession
	}
	if !m.Authorized(userID) {
		m.sessions.Delete(userID)
		return Accepted{}, ErrUnauthorized
	}
	if att.Kind == types.AttachmentNone {
		return Accepted{}, ErrNoAttachment
	}

	candidate := att.FileName
	if candidate == "" {
		if att.Kind == types.AttachmentVideo {
			candidate = "video_" + att.FileID + m.ext
		} else {
			candidate = "video_upload" + m.ext
		}
	}

	if !strings.HasSuffix(strings.ToLower(candidate), m.ext) {
		if !isVideo(att) {
			return Accepted{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, candidate, att.MimeType)
		}
		// keep the file visible to listings
		candidate += m.ext
	}

	if m.maxBytes > 0 && att.Size > m.maxBytes {
		m.sessions.Delete(userID)
		return Accepted{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, att.Size, m.maxBytes)
	}

	m.sessions.Delete(userID)
	return Accepted{FileID: att.FileID, Candidate: candidate, Size: att.Size}, nil
}

func isVideo(att types.Attachment) bool {
	return att.Kind == types.AttachmentVideo || strings.HasPrefix(strings.ToLower(att.MimeType), "video/")
}

// Store reserves a destination for acc and streams the remote file into it. The declared size may lie, so
// the stream itself is capped at the size ceiling too.
func (m *Machine) Store(ctx context.Context, acc Accepted, open Opener) (name string, size int64, err error) {
	name = m.catalog.ReserveDestination(acc.Candidate)

	rc, err := open(ctx, acc.FileID)
	if err != nil {
		m.catalog.Release(name)
		return "", 0, fmt.Errorf("%w: open %s: %w", ErrIOFailure, acc.FileID, err)
	}
	defer rc.Close()

	size, err = m.catalog.Write(ctx, name, rc, m.maxBytes)
	if err != nil {
		if errors.Is(err, tool.ErrLimitExceeded) {
			return "", size, fmt.Errorf("%w: stream exceeded %d bytes", ErrTooLarge, m.maxBytes)
		}
		return "", size, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return name, size, nil
}
