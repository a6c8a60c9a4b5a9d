// Package catalog keeps the video files of one flat directory. The directory is the only source of truth:
// every listing reads it again, so files placed or removed out of band show up immediately.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

var (
	ErrNotFound  = errors.New("video not found")
	ErrIOFailure = errors.New("video storage failure")
)

const tempPattern = ".upload-*.part"

// Store is safe for concurrent use. Listing and lookups go straight to the file system, reservations and
// the final rename share one mutex.
type Store struct {
	dir string
	ext string

	mu      sync.Mutex
	pending map[string]struct{} // names handed out by ReserveDestination whose Write has not finished
}

// New opens (and creates when missing) the directory. ext is the accepted extension, e.g. ".mp4".
func New(dir, ext string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create video dir failed: %w", err)
	}
	return &Store{
		dir:     dir,
		ext:     strings.ToLower(ext),
		pending: make(map[string]struct{}),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Extension() string {
	return s.ext
}

// HasExtension reports whether name ends in the accepted extension, ignoring case.
func (s *Store) HasExtension(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), s.ext)
}

// List returns a fresh snapshot of all regular files with the accepted extension, sorted by name.
func (s *Store) List() ([]types.VideoEntry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir: %w", ErrIOFailure, err)
	}
	entries := make([]types.VideoEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || !s.HasExtension(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		entries = append(entries, types.VideoEntry{Name: de.Name(), Size: info.Size()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Exists reports whether name is currently a regular file of the directory.
func (s *Store) Exists(name string) bool {
	_, err := s.Size(name)
	return err == nil
}

// Size returns the byte size of name, or ErrNotFound when it is absent at call time.
func (s *Store) Size(name string) (int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return 0, fmt.Errorf("%w: stat %s: %w", ErrIOFailure, name, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return info.Size(), nil
}

// Path joins name to the directory. Names carrying directory components never address a catalog entry.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != LeafName(name) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return filepath.Join(s.dir, name), nil
}

// LeafName drops every directory component of name, treating both slash kinds as separators.
func LeafName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// ReserveDestination turns a proposed upload name into one that is neither on disk nor reserved by
// another upload: name.ext, then name_1.ext, name_2.ext, ... The reservation holds until Write or Release.
func (s *Store) ReserveDestination(candidate string) string {
	candidate = LeafName(candidate)
	if candidate == "" {
		candidate = "video_upload" + s.ext
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.takenLocked(candidate) {
		s.pending[candidate] = struct{}{}
		return candidate
	}
	ext := filepath.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)
	if stem == "" {
		stem = candidate
		ext = ""
	}
	for n := 1; ; n++ {
		try := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !s.takenLocked(try) {
			s.pending[try] = struct{}{}
			return try
		}
	}
}

func (s *Store) takenLocked(name string) bool {
	if _, ok := s.pending[name]; ok {
		return true
	}
	_, err := os.Lstat(filepath.Join(s.dir, name))
	return !errors.Is(err, os.ErrNotExist)
}

// Release drops a reservation that will not be written.
func (s *Store) Release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, name)
}

// Write streams r into a hidden temporary file and renames it to name once complete, so List never sees a
// partial upload. A limit > 0 aborts with an error wrapping tool.ErrLimitExceeded. Any reservation of name
// is released when Write returns.
func (s *Store) Write(ctx context.Context, name string, r io.Reader, limit int64) (written int64, err error) {
	defer s.Release(name)

	target, err := s.Path(name)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid name %q", ErrIOFailure, name)
	}

	f, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %w", ErrIOFailure, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				tool.DefaultLogger.Errorf("[Catalog] Failed to remove partial file %s: %v", f.Name(), rmErr)
			}
		}
	}()

	written, err = tool.CopyWithContext(ctx, f, r, limit)
	if err != nil {
		return written, fmt.Errorf("%w: write %s: %w", ErrIOFailure, name, err)
	}
	if err = f.Sync(); err != nil {
		return written, fmt.Errorf("%w: sync %s: %w", ErrIOFailure, name, err)
	}
	if err = f.Chmod(0o644); err != nil {
		return written, fmt.Errorf("%w: chmod %s: %w", ErrIOFailure, name, err)
	}
	if err = f.Close(); err != nil {
		return written, fmt.Errorf("%w: close %s: %w", ErrIOFailure, name, err)
	}

	s.mu.Lock()
	err = os.Rename(f.Name(), target)
	s.mu.Unlock()
	if err != nil {
		return written, fmt.Errorf("%w: rename %s: %w", ErrIOFailure, name, err)
	}
	tool.DefaultLogger.Debugf("[Catalog] Stored %s (%d bytes)", name, written)
	return written, nil
}
