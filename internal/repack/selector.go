package repack

import (
	"fmt"
	"path"
	"strings"

	"retint/pkg/imgutil"
)

// Selector decides whether an entry path is a transform target.
type Selector func(p string) bool

// DefaultSegment is where resource packs keep item textures.
const DefaultSegment = "textures/item"

// DefaultSelector matches PNG files under textures/item.
func DefaultSelector() Selector {
	return ContainsSelector(DefaultSegment, ".png")
}

// ContainsSelector matches paths containing segment and ending in one of
// exts. With no exts, any supported image extension matches.
func ContainsSelector(segment string, exts ...string) Selector {
	ext := ExtensionSelector(exts...)
	return func(p string) bool {
		return strings.Contains(p, segment) && ext(p)
	}
}

// ExtensionSelector matches paths by case-insensitive extension. With no
// exts, PNG and JPEG extensions match.
func ExtensionSelector(exts ...string) Selector {
	if len(exts) == 0 {
		exts = imgutil.Extensions()
	}
	lower := make([]string, len(exts))
	for i, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		lower[i] = e
	}
	return func(p string) bool {
		if strings.HasSuffix(p, "/") {
			return false
		}
		got := strings.ToLower(path.Ext(p))
		for _, e := range lower {
			if got == e {
				return true
			}
		}
		return false
	}
}

// GlobSelector matches paths with path.Match. A pattern without a slash is
// matched against the base name only.
func GlobSelector(pattern string) (Selector, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	baseOnly := !strings.Contains(pattern, "/")
	return func(p string) bool {
		subject := p
		if baseOnly {
			subject = path.Base(p)
		}
		ok, _ := path.Match(pattern, subject)
		return ok
	}, nil
}

// All matches when every selector matches.
func All(sels ...Selector) Selector {
	return func(p string) bool {
		for _, s := range sels {
			if !s(p) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one selector matches.
func Any(sels ...Selector) Selector {
	return func(p string) bool {
		for _, s := range sels {
			if s(p) {
				return true
			}
		}
		return false
	}
}
