package naming

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gobuffalo/flect"
	"github.com/stoewer/go-strcase"
)

// Registry hands out unique identifiers and remembers which structural
// fingerprint each one was assigned to. It lives for a single generation run.
type Registry struct {
	used          map[string]bool
	byFingerprint map[string]string
	fingerprintOf map[string]string
}

// NewRegistry returns an empty registry with the given names already taken.
func NewRegistry(reserved ...string) *Registry {
	r := &Registry{
		used:          map[string]bool{},
		byFingerprint: map[string]string{},
		fingerprintOf: map[string]string{},
	}
	for _, name := range reserved {
		r.used[name] = true
	}
	return r
}

// Claim takes the first free candidate. When all are taken, the first
// candidate is suffixed with 2, 3, ... until a free name is found.
func (r *Registry) Claim(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && !r.used[c] {
			r.used[c] = true
			return c
		}
	}
	base := candidates[0]
	for n := 2; ; n++ {
		name := base + strconv.Itoa(n)
		if !r.used[name] {
			r.used[name] = true
			return name
		}
	}
}

// Register binds fp to name. The first binding wins on both sides: a
// fingerprint keeps its first name and a name keeps its first fingerprint.
func (r *Registry) Register(fp, name string) bool {
	if _, ok := r.byFingerprint[fp]; ok {
		return false
	}
	if _, ok := r.fingerprintOf[name]; ok {
		return false
	}
	r.byFingerprint[fp] = name
	r.fingerprintOf[name] = fp
	return true
}

// Lookup returns the name registered for fp.
func (r *Registry) Lookup(fp string) (string, bool) {
	name, ok := r.byFingerprint[fp]
	return name, ok
}

// Used reports whether name has been claimed or reserved.
func (r *Registry) Used(name string) bool { return r.used[name] }

// Ident turns an arbitrary document name into an exported identifier fragment.
func Ident(s string) string {
	s = flect.Pascalize(s)
	return sanitize(s)
}

// Segment converts one path segment, e.g. "user-profiles" to "UserProfiles".
func Segment(s string) string {
	return sanitize(strcase.UpperCamelCase(s))
}

func sanitize(s string) string {
	var b strings.Builder
	upperNext := false
	for _, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if upperNext {
				r = unicode.ToUpper(r)
				upperNext = false
			}
			b.WriteRune(r)
		default:
			upperNext = true
		}
	}
	out := b.String()
	if out != "" && unicode.IsDigit([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}
