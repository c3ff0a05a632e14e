// Package redact builds key-based masking functions used to scrub sensitive
// fields from request context before it leaves the process (logs, error
// tracker).
//
// A redactor is built once, is immutable afterwards, and is safe for
// concurrent use.
//
// Import Path: novostudio.tech/foundation/internal/pkg/redact
package redact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultCensor replaces matched values.
const DefaultCensor = "[REDACTED]"

// DefaultDepth is the wildcard nesting bound applied when Config.Depth is 0.
const DefaultDepth = 3

// ErrNotRedactable is returned in strict mode when the input is neither an
// object nor an array.
var ErrNotRedactable = errors.New("redact: value is not an object or array")

// Keys that must never be traversed or copied when deep-copying untrusted
// input. The output may be consumed by JavaScript clients, so copying these
// would reintroduce a prototype-pollution vector.
var forbiddenKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// Config configures a Redactor.
type Config struct {
	// Keys are sensitive field names, masked wherever they appear up to
	// Depth levels of nesting. Must not be empty.
	Keys []string

	// Depth bounds how deep a key is still matched: a key with at most
	// Depth ancestor keys is masked, anything nested deeper is left
	// untouched. 0 means DefaultDepth; negative is invalid.
	Depth int

	// PlainKeys are verbatim paths, matched exactly at any position given
	// in the path. Bracket notation addresses keys containing characters
	// that dotted paths cannot, e.g. `headers["x-api-key"]`.
	PlainKeys []string

	// Censor replaces matched values. Empty means DefaultCensor.
	Censor string

	// Serialize makes the redactor return a JSON string instead of the
	// redacted copy.
	Serialize bool

	// Strict makes the redactor fail on inputs that are neither objects
	// nor arrays instead of passing them through.
	Strict bool
}

// Redactor masks configured key paths in JSON-like values.
type Redactor struct {
	keys      map[string]struct{}
	depth     int
	plain     map[string]struct{}
	censor    string
	serialize bool
	strict    bool
}

// New builds a Redactor from cfg. It fails when cfg.Keys is empty or
// cfg.Depth is negative.
func New(cfg Config) (*Redactor, error) {
	if len(cfg.Keys) == 0 {
		return nil, errors.New("redact: at least one key is required")
	}
	if cfg.Depth < 0 {
		return nil, fmt.Errorf("redact: depth must not be negative, got %d", cfg.Depth)
	}

	depth := cfg.Depth
	if depth == 0 {
		depth = DefaultDepth
	}
	censor := cfg.Censor
	if censor == "" {
		censor = DefaultCensor
	}

	keys := make(map[string]struct{}, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys[k] = struct{}{}
	}
	plain := make(map[string]struct{}, len(cfg.PlainKeys))
	for _, p := range cfg.PlainKeys {
		plain[normalizePath(p)] = struct{}{}
	}

	return &Redactor{
		keys:      keys,
		depth:     depth,
		plain:     plain,
		censor:    censor,
		serialize: cfg.Serialize,
		strict:    cfg.Strict,
	}, nil
}

// Redact returns a deep copy of v with all matched keys replaced by the
// censor string. The input is never mutated. With Serialize set the result
// is the redacted copy marshaled to JSON.
func (r *Redactor) Redact(v any) (any, error) {
	node, ok := toNode(v)
	if !ok {
		if r.strict {
			return nil, ErrNotRedactable
		}
		if r.serialize {
			return marshal(v)
		}
		return v, nil
	}

	out := r.walk(node, nil)
	if r.serialize {
		return marshal(out)
	}
	return out, nil
}

// walk copies node, masking matches. path holds the ancestor key names of
// the current node; array levels do not contribute path segments.
func (r *Redactor) walk(node any, path []string) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			if _, bad := forbiddenKeys[k]; bad {
				continue
			}
			if r.matches(k, path) {
				out[k] = r.censor
				continue
			}
			out[k] = r.walk(v, append(path, k))
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = r.walk(v, path)
		}
		return out
	default:
		return node
	}
}

// matches reports whether key at the given ancestor path must be masked.
func (r *Redactor) matches(key string, path []string) bool {
	if _, ok := r.keys[key]; ok && len(path) <= r.depth {
		return true
	}
	if len(r.plain) == 0 {
		return false
	}
	full := strings.Join(append(path, key), ".")
	_, ok := r.plain[full]
	return ok
}

// toNode converts v into a JSON-like tree, deep-copying in the process.
// Returns false when v is a scalar.
func toNode(v any) (any, bool) {
	switch v.(type) {
	case nil, string, bool, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		json.Number:
		return nil, false
	}

	// JSON round-trip normalizes maps with non-any values, structs and
	// slices into map[string]any / []any and gives us the deep copy.
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var node any
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, false
	}
	switch node.(type) {
	case map[string]any, []any:
		return node, true
	default:
		return nil, false
	}
}

// normalizePath converts a path in dot/bracket notation into a dotted form:
// `headers["x-api-key"]` becomes `headers.x-api-key`.
func normalizePath(p string) string {
	var segs []string
	rest := p
	for rest != "" {
		if strings.HasPrefix(rest, "[") {
			end := strings.Index(rest, "]")
			if end < 0 {
				segs = append(segs, strings.Trim(rest, `[]"'`))
				break
			}
			seg := strings.Trim(rest[1:end], `"'`)
			segs = append(segs, seg)
			rest = strings.TrimPrefix(rest[end+1:], ".")
			continue
		}
		idx := strings.IndexAny(rest, ".[")
		if idx < 0 {
			segs = append(segs, rest)
			break
		}
		if rest[idx] == '.' {
			segs = append(segs, rest[:idx])
			rest = rest[idx+1:]
			continue
		}
		if idx > 0 {
			segs = append(segs, rest[:idx])
		}
		rest = rest[idx:]
	}
	return strings.Join(segs, ".")
}

func marshal(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("redact: serialize: %w", err)
	}
	return string(data), nil
}
