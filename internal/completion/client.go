// Package completion wraps the external text-completion provider behind a
// small interface. Callers on read/ranking paths must treat any error or
// malformed output as recoverable and degrade instead of propagating.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnavailable indicates the completion provider was unreachable or
// returned content that could not be used.
var ErrUnavailable = errors.New("completion: service unavailable")

// Options controls a single completion call.
type Options struct {
	// JSON requests strict JSON output from the provider.
	JSON bool
}

// Client sends a structured prompt to the completion provider and returns
// raw text. Implementations may fail or time out; they must not retry past
// their own policy.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}

// StripFences removes Markdown code-fence markers from model output.
// Providers wrap JSON in ```json ... ``` often enough that every parse
// site must go through this first.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the opening fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "" || isFenceTag(first) {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// DecodeJSON strips fences from raw model output and unmarshals it into v.
// A failure here means the provider returned malformed content and is
// reported as ErrUnavailable so read paths can absorb it uniformly.
func DecodeJSON(raw string, v interface{}) error {
	if err := json.Unmarshal([]byte(StripFences(raw)), v); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
