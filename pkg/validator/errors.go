package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the sentinel behind every *Error.
// Use errors.Is(err, ErrValidation) to tell validation failures from other errors.
var ErrValidation = errors.New("validation")

// Stable issue codes.
const (
	CodeType          = "type"
	CodeRequired      = "required"
	CodeUnknownKey    = "unknown_key"
	CodeFormat        = "format"
	CodePattern       = "pattern"
	CodeMinLength     = "min_length"
	CodeMaxLength     = "max_length"
	CodeMinimum       = "minimum"
	CodeMaximum       = "maximum"
	CodeMultipleOf    = "multiple_of"
	CodeLiteral       = "literal"
	CodeEnum          = "enum"
	CodeMinItems      = "min_items"
	CodeMaxItems      = "max_items"
	CodeUniqueItems   = "unique_items"
	CodeMinProperties = "min_properties"
	CodeMaxProperties = "max_properties"
	CodeUnion         = "union"
	CodeReference     = "reference"
)

// Issue is a single failed check at a location inside the value.
type Issue struct {
	Path    string `json:"path"`    // dotted path, e.g. "items.2.price"; empty for the root
	Code    string `json:"code"`    // one of the Code constants
	Message string `json:"message"` // human-readable
}

func (i Issue) Error() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Error collects the issues of one validation run.
type Error struct {
	Issues []Issue `json:"issues"`
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap returns ErrValidation for errors.Is.
func (e *Error) Unwrap() error { return ErrValidation }

// Has reports whether any issue carries code.
func (e *Error) Has(code string) bool {
	for _, i := range e.Issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func (e *Error) add(at path, code, format string, args ...any) {
	e.Issues = append(e.Issues, Issue{
		Path:    at.String(),
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}
