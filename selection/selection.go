// Package selection turns catalog entry names into compact button tokens and back.
//
// A name short enough to fit is embedded directly ("V:" + name). Longer names are replaced by a hash
// ("H:" + 32 hex chars) that the Registry maps back to the full name.
package selection

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/moyoez/sora-history-bot/tool"
	"github.com/moyoez/sora-history-bot/types"
)

const (
	DirectPrefix   = "V:"
	IndirectPrefix = "H:"

	// DefaultLimit is the byte ceiling a token must respect.
	DefaultLimit = 60
	// MinLimit leaves room for an indirect token.
	MinLimit = len(IndirectPrefix) + 32
)

var (
	ErrNotFound     = errors.New("selection token no longer resolves")
	ErrUnknownToken = errors.New("unknown selection token")
)

// Registry maps hashes back to the full names they were issued for. Entries are never removed, so a
// token issued once keeps resolving for the life of the process.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Register records name and returns its hash. Registering the same name twice is harmless.
func (r *Registry) Register(name string) string {
	hash := tool.ShortSHA256(name)
	r.mu.Lock()
	r.names[hash] = name
	r.mu.Unlock()
	return hash
}

func (r *Registry) Resolve(hash string) (string, error) {
	r.mu.RLock()
	name, ok := r.names[hash]
	r.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

type Codec struct {
	registry *Registry
	limit    int
}

// NewCodec clamps limit into [MinLimit, 64]; 0 means DefaultLimit.
func NewCodec(registry *Registry, limit int) *Codec {
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < MinLimit:
		limit = MinLimit
	case limit > 64:
		limit = 64
	}
	return &Codec{registry: registry, limit: limit}
}

func (c *Codec) Limit() int {
	return c.limit
}

func (c *Codec) Registry() *Registry {
	return c.registry
}

// Encode returns the token for entry. The result never exceeds the byte limit.
func (c *Codec) Encode(entry types.VideoEntry) string {
	if token := DirectPrefix + entry.Name; len(token) <= c.limit {
		return token
	}
	return IndirectPrefix + c.registry.Register(entry.Name)
}

// Decode returns the name a token stands for. It does not check whether the file still exists.
func (c *Codec) Decode(token string) (string, error) {
	switch {
	case strings.HasPrefix(token, DirectPrefix) && len(token) > len(DirectPrefix):
		return strings.TrimPrefix(token, DirectPrefix), nil
	case strings.HasPrefix(token, IndirectPrefix) && len(token) > len(IndirectPrefix):
		name, err := c.registry.Resolve(strings.TrimPrefix(token, IndirectPrefix))
		if err != nil {
			return "", fmt.Errorf("%w: %s", err, token)
		}
		return name, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
}

// Warm encodes every entry, so hashed tokens shown before a restart keep resolving for entries still
// present. It returns how many entries needed the registry.
func (c *Codec) Warm(entries []types.VideoEntry) int {
	indirect := 0
	for _, entry := range entries {
		if strings.HasPrefix(c.Encode(entry), IndirectPrefix) {
			indirect++
		}
	}
	return indirect
}
