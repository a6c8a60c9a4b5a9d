package selection

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/moyoez/sora-history-bot/types"
)

func entry(name string) types.VideoEntry {
	return types.VideoEntry{Name: name}
}

func TestEncodeDirect(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	token := codec.Encode(entry("cat.mp4"))
	if token != "V:cat.mp4" {
		t.Fatalf("expected V:cat.mp4, got %s", token)
	}
	name, err := codec.Decode(token)
	if err != nil || name != "cat.mp4" {
		t.Errorf("expected cat.mp4, got %q (%v)", name, err)
	}
	if codec.Registry().Len() != 0 {
		t.Error("direct tokens must not touch the registry")
	}
}

func TestEncodeBoundary(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	exact := strings.Repeat("a", DefaultLimit-len(DirectPrefix)-4) + ".mp4"
	if token := codec.Encode(entry(exact)); !strings.HasPrefix(token, DirectPrefix) || len(token) != DefaultLimit {
		t.Errorf("name at the limit should be direct, got %s (%d)", token, len(token))
	}
	over := "b" + exact
	token := codec.Encode(entry(over))
	if !strings.HasPrefix(token, IndirectPrefix) {
		t.Fatalf("name over the limit should be indirect, got %s", token)
	}
	if len(token) != MinLimit {
		t.Errorf("expected indirect token of %d bytes, got %d", MinLimit, len(token))
	}
	name, err := codec.Decode(token)
	if err != nil || name != over {
		t.Errorf("round trip failed: %q (%v)", name, err)
	}
}

func TestEncodeMultibyteMeasuredInBytes(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	// 20 runes, 60 bytes: too long once the prefix is added
	name := strings.Repeat("視", 20)
	token := codec.Encode(entry(name))
	if !strings.HasPrefix(token, IndirectPrefix) {
		t.Fatalf("expected indirect token, got %s", token)
	}
	if got, _ := codec.Decode(token); got != name {
		t.Errorf("expected %s, got %s", name, got)
	}
}

func TestEncodeIsStable(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	long := strings.Repeat("x", 100) + ".mp4"
	first := codec.Encode(entry(long))
	second := codec.Encode(entry(long))
	if first != second {
		t.Errorf("expected identical tokens, got %s and %s", first, second)
	}
	if codec.Registry().Len() != 1 {
		t.Errorf("expected one registry entry, got %d", codec.Registry().Len())
	}
}

func TestDecodeUnknownHash(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	_, err := codec.Decode(IndirectPrefix + strings.Repeat("0", 32))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDecodeUnknownToken(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	for _, token := range []string{"", "X:abc", "V:", "H:", "cat.mp4"} {
		if _, err := codec.Decode(token); !errors.Is(err, ErrUnknownToken) {
			t.Errorf("Decode(%q): expected ErrUnknownToken, got %v", token, err)
		}
	}
}

func TestNewCodecClampsLimit(t *testing.T) {
	if got := NewCodec(NewRegistry(), 0).Limit(); got != DefaultLimit {
		t.Errorf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NewCodec(NewRegistry(), 10).Limit(); got != MinLimit {
		t.Errorf("expected %d, got %d", MinLimit, got)
	}
	if got := NewCodec(NewRegistry(), 200).Limit(); got != 64 {
		t.Errorf("expected 64, got %d", got)
	}
}

func TestWarm(t *testing.T) {
	registry := NewRegistry()
	codec := NewCodec(registry, DefaultLimit)
	long := strings.Repeat("y", 80) + ".mp4"
	n := codec.Warm([]types.VideoEntry{entry("short.mp4"), entry(long)})
	if n != 1 {
		t.Errorf("expected 1 indirect entry, got %d", n)
	}

	// a fresh codec over the same registry decodes tokens issued earlier
	again := NewCodec(registry, DefaultLimit)
	if name, err := again.Decode(IndirectPrefix + registry.Register(long)); err != nil || name != long {
		t.Errorf("expected %s, got %q (%v)", long, name, err)
	}
}

func TestRegistryConcurrent(t *testing.T) {
	codec := NewCodec(NewRegistry(), DefaultLimit)
	long := strings.Repeat("z", 90)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := codec.Encode(entry(long))
			if name, err := codec.Decode(token); err != nil || name != long {
				t.Errorf("concurrent decode failed: %q (%v)", name, err)
			}
		}()
	}
	wg.Wait()
}
