package validator

import (
	"regexp"
	"sync"
	"time"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// NumericPattern is the decimal form a coerced number may take in a path,
// query or header value. Blanks, hex, Inf and NaN are not numbers here.
const NumericPattern = `^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`

var numericString = regexp.MustCompile(NumericPattern)

var (
	tagValidator = playground.New()
	patterns     sync.Map // pattern string -> *regexp.Regexp
)

// formatChecks maps OpenAPI string formats to their checks. Formats missing
// from the table are accepted as annotations.
var formatChecks = map[string]func(string) bool{
	"email":     tagCheck("email"),
	"uri":       tagCheck("uri"),
	"url":       tagCheck("url"),
	"hostname":  tagCheck("hostname_rfc1123"),
	"ipv4":      tagCheck("ipv4"),
	"ipv6":      tagCheck("ipv6"),
	"byte":      tagCheck("base64"),
	"uuid":      isUUID,
	"date-time": layoutCheck(time.RFC3339Nano),
	"date":      layoutCheck(time.DateOnly),
	"time": func(s string) bool {
		_, err := time.Parse(time.RFC3339Nano, "1970-01-01T"+s)
		return err == nil
	},
}

// KnownFormat reports whether format has a runtime check.
func KnownFormat(format string) bool {
	_, ok := formatChecks[format]
	return ok
}

func checkFormat(format, s string) (ok, known bool) {
	fn, known := formatChecks[format]
	if !known {
		return true, false
	}
	return fn(s), true
}

func tagCheck(tag string) func(string) bool {
	return func(s string) bool { return tagValidator.Var(s, tag) == nil }
}

func layoutCheck(layout string) func(string) bool {
	return func(s string) bool {
		_, err := time.Parse(layout, s)
		return err == nil
	}
}

// isUUID accepts only the canonical 8-4-4-4-12 form; uuid.Parse alone also
// takes urn and braced variants.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}
