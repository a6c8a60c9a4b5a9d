package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moyoez/sora-history-bot/catalog"
	"github.com/moyoez/sora-history-bot/types"
)

const (
	adminID  = int64(42)
	maxBytes = int64(50 * 1024 * 1024)
)

func newTestMachine(t *testing.T) (*Machine, *catalog.Store) {
	t.Helper()
	store, err := catalog.New(t.TempDir(), ".mp4")
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return NewMachine(Config{AdminID: adminID, Extension: ".mp4", MaxBytes: maxBytes}, store), store
}

func openString(content string) Opener {
	return func(ctx context.Context, fileID string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}
}

func TestBeginUnauthorized(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Begin(7); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if m.State(7) != types.UploadIdle {
		t.Error("unauthorized user must not get a session")
	}
	_, err := m.Review(7, types.Attachment{Kind: types.AttachmentVideo, FileID: "f", FileName: "a.mp4"})
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for a stray attachment, got %v", err)
	}
}

func TestBeginRestartsSession(t *testing.T) {
	m, _ := newTestMachine(t)
	if err := m.Begin(adminID); err != nil {
		t.Fatal(err)
	}
	if err := m.Begin(adminID); err != nil {
		t.Fatal(err)
	}
	if m.State(adminID) != types.UploadAwaitingFile {
		t.Errorf("expected awaiting_file, got %s", m.State(adminID))
	}
}

func TestCancel(t *testing.T) {
	m, _ := newTestMachine(t)
	if m.Cancel(adminID) {
		t.Error("cancel without a session should report false")
	}
	_ = m.Begin(adminID)
	if !m.Cancel(adminID) {
		t.Error("cancel should report the open session")
	}
	if m.State(adminID) != types.UploadIdle {
		t.Error("expected idle after cancel")
	}
}

func TestReviewUnsupportedTypeKeepsSession(t *testing.T) {
	m, _ := newTestMachine(t)
	_ = m.Begin(adminID)
	_, err := m.Review(adminID, types.Attachment{
		Kind: types.AttachmentDocument, FileID: "f", FileName: "notes.txt", MimeType: "text/plain", Size: 10,
	})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if m.State(adminID) != types.UploadAwaitingFile {
		t.Error("session must survive an unsupported type")
	}
}

func TestReviewNoAttachmentKeepsSession(t *testing.T) {
	m, _ := newTestMachine(t)
	_ = m.Begin(adminID)
	if _, err := m.Review(adminID, types.Attachment{}); !errors.Is(err, ErrNoAttachment) {
		t.Fatalf("expected ErrNoAttachment, got %v", err)
	}
	if m.State(adminID) != types.UploadAwaitingFile {
		t.Error("session must survive a message without a file")
	}
}

func TestReviewTooLargeEndsSession(t *testing.T) {
	m, _ := newTestMachine(t)
	_ = m.Begin(adminID)
	_, err := m.Review(adminID, types.Attachment{
		Kind: types.AttachmentVideo, FileID: "f", FileName: "big.mp4", Size: maxBytes + 1,
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if m.State(adminID) != types.UploadIdle {
		t.Error("expected idle after an oversized file")
	}
}

func TestReviewExactLimitAccepted(t *testing.T) {
	m, _ := newTestMachine(t)
	_ = m.Begin(adminID)
	acc, err := m.Review(adminID, types.Attachment{
		Kind: types.AttachmentDocument, FileID: "f", FileName: "edge.MP4", Size: maxBytes,
	})
	if err != nil {
		t.Fatalf("expected acceptance at the limit, got %v", err)
	}
	if acc.Candidate != "edge.MP4" {
		t.Errorf("unexpected candidate %s", acc.Candidate)
	}
	if m.State(adminID) != types.UploadIdle {
		t.Error("expected idle after acceptance")
	}
}

func TestReviewCandidateNames(t *testing.T) {
	cases := []struct {
		att  types.Attachment
		want string
	}{
		{types.Attachment{Kind: types.AttachmentVideo, FileID: "abc"}, "video_abc.mp4"},
		{types.Attachment{Kind: types.AttachmentDocument, FileID: "abc", MimeType: "video/mp4"}, "video_upload.mp4"},
		{types.Attachment{Kind: types.AttachmentDocument, FileID: "abc", FileName: "clip", MimeType: "video/quicktime"}, "clip.mp4"},
		{types.Attachment{Kind: types.AttachmentVideo, FileID: "abc", FileName: "movie.mov"}, "movie.mov.mp4"},
	}
	for _, tc := range cases {
		m, _ := newTestMachine(t)
		_ = m.Begin(adminID)
		acc, err := m.Review(adminID, tc.att)
		if err != nil {
			t.Fatalf("Review(%+v) failed: %v", tc.att, err)
		}
		if acc.Candidate != tc.want {
			t.Errorf("Review(%+v) candidate = %s, want %s", tc.att, acc.Candidate, tc.want)
		}
	}
}

func TestStoreResolvesCollisions(t *testing.T) {
	m, store := newTestMachine(t)
	if err := os.WriteFile(filepath.Join(store.Dir(), "a.mp4"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"a_1.mp4", "a_2.mp4"} {
		name, size, err := m.Store(context.Background(), Accepted{FileID: "f", Candidate: "a.mp4"}, openString("new"))
		if err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if name != want || size != 3 {
			t.Errorf("expected %s (3 bytes), got %s (%d bytes)", want, name, size)
		}
	}
	old, _ := os.ReadFile(filepath.Join(store.Dir(), "a.mp4"))
	if string(old) != "old" {
		t.Error("existing file was overwritten")
	}
}

func TestStoreStreamTooLarge(t *testing.T) {
	store, err := catalog.New(t.TempDir(), ".mp4")
	if err != nil {
		t.Fatal(err)
	}
	m := NewMachine(Config{AdminID: adminID, Extension: ".mp4", MaxBytes: 4}, store)

	_, _, err = m.Store(context.Background(), Accepted{FileID: "f", Candidate: "liar.mp4", Size: 1}, openString("12345"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, _ := store.List()
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestStoreOpenFailureReleasesName(t *testing.T) {
	m, store := newTestMachine(t)
	failing := func(ctx context.Context, fileID string) (io.ReadCloser, error) {
		return nil, errors.New("network down")
	}
	_, _, err := m.Store(context.Background(), Accepted{FileID: "f", Candidate: "x.mp4"}, failing)
	if !errors.Is(err, ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
	if got := store.ReserveDestination("x.mp4"); got != "x.mp4" {
		t.Errorf("expected x.mp4 to be free, got %s", got)
	}
}

func TestStoreWriteFailure(t *testing.T) {
	m, store := newTestMachine(t)
	broken := func(ctx context.Context, fileID string) (io.ReadCloser, error) {
		return io.NopCloser(io.MultiReader(bytes.NewReader([]byte("part")), errReader{})), nil
	}
	_, _, err := m.Store(context.Background(), Accepted{FileID: "f", Candidate: "y.mp4"}, broken)
	if !errors.Is(err, ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
	if store.Exists("y.mp4") {
		t.Error("partial file must not be visible")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}
