// Package validator holds the runtime validators that generated code is built from.
//
// Values are expected in their decoded JSON form: nil, bool, float64 (or any Go
// integer type, or json.Number), string, []any and map[string]any.
package validator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Schema validates a decoded JSON value.
type Schema interface {
	// Validate returns nil when value is accepted, or an *Error listing every issue found.
	Validate(value any) error
	check(value any, at path, errs *Error)
}

func run(s Schema, value any) error {
	errs := &Error{}
	s.check(value, nil, errs)
	if len(errs.Issues) == 0 {
		return nil
	}
	return errs
}

// Int returns a pointer to n, for optional bounds in composite literals.
func Int(n int) *int { return &n }

// Float returns a pointer to f, for optional bounds in composite literals.
func Float(f float64) *float64 { return &f }

// Any accepts every value, including null.
type Any struct{}

func (s *Any) Validate(value any) error              { return run(s, value) }
func (s *Any) check(value any, at path, errs *Error) {}

// Null accepts only null.
type Null struct{}

func (s *Null) Validate(value any) error { return run(s, value) }

func (s *Null) check(value any, at path, errs *Error) {
	if value != nil {
		errs.add(at, CodeType, "expected null, got %s", typeName(value))
	}
}

// Boolean accepts true and false. With Coerce set, the strings "true" and
// "false" are accepted as well, which is how booleans arrive in paths, queries and headers.
type Boolean struct {
	Coerce bool
}

func (s *Boolean) Validate(value any) error { return run(s, value) }

func (s *Boolean) check(value any, at path, errs *Error) {
	if _, ok := value.(bool); ok {
		return
	}
	if str, ok := value.(string); ok && s.Coerce && (str == "true" || str == "false") {
		return
	}
	errs.add(at, CodeType, "expected boolean, got %s", typeName(value))
}

// String accepts strings, optionally constrained by length, pattern and format.
// Lengths count code points. Formats without a registered check are annotations only.
type String struct {
	Format    string
	Pattern   string
	MinLength *int
	MaxLength *int
}

func (s *String) Validate(value any) error { return run(s, value) }

func (s *String) check(value any, at path, errs *Error) {
	str, ok := value.(string)
	if !ok {
		errs.add(at, CodeType, "expected string, got %s", typeName(value))
		return
	}
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		errs.add(at, CodeMinLength, "must be at least %d characters", *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		errs.add(at, CodeMaxLength, "must be at most %d characters", *s.MaxLength)
	}
	if s.Pattern != "" {
		re, err := compilePattern(s.Pattern)
		switch {
		case err != nil:
			errs.add(at, CodePattern, "pattern %q cannot be compiled: %v", s.Pattern, err)
		case !re.MatchString(str):
			errs.add(at, CodePattern, "must match pattern %q", s.Pattern)
		}
	}
	if s.Format != "" {
		if ok, known := checkFormat(s.Format, str); known && !ok {
			errs.add(at, CodeFormat, "must be a valid %s", s.Format)
		}
	}
}

// Number accepts numbers. Integer restricts to whole numbers; Format "int32"
// and "int64" add the matching range. With Coerce set, strings matching
// NumericPattern are accepted as the number they spell.
type Number struct {
	Integer          bool
	Format           string
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MultipleOf       *float64
	Coerce           bool
}

func (s *Number) Validate(value any) error { return run(s, value) }

func (s *Number) check(value any, at path, errs *Error) {
	f, ok := toNumber(value)
	if !ok && s.Coerce {
		if str, isStr := value.(string); isStr && numericString.MatchString(str) {
			parsed, err := strconv.ParseFloat(str, 64)
			ok = err == nil
			f = parsed
		}
	}
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		want := "number"
		if s.Integer {
			want = "integer"
		}
		errs.add(at, CodeType, "expected %s, got %s", want, typeName(value))
		return
	}
	if s.Integer && f != math.Trunc(f) {
		errs.add(at, CodeType, "expected integer, got %v", f)
		return
	}
	switch s.Format {
	case "int32":
		if f < math.MinInt32 || f > math.MaxInt32 {
			errs.add(at, CodeFormat, "must fit in int32")
		}
	case "int64":
		if f < math.MinInt64 || f > math.MaxInt64 {
			errs.add(at, CodeFormat, "must fit in int64")
		}
	}
	if s.Minimum != nil {
		if s.ExclusiveMinimum && f <= *s.Minimum {
			errs.add(at, CodeMinimum, "must be greater than %v", *s.Minimum)
		} else if !s.ExclusiveMinimum && f < *s.Minimum {
			errs.add(at, CodeMinimum, "must be greater than or equal to %v", *s.Minimum)
		}
	}
	if s.Maximum != nil {
		if s.ExclusiveMaximum && f >= *s.Maximum {
			errs.add(at, CodeMaximum, "must be less than %v", *s.Maximum)
		} else if !s.ExclusiveMaximum && f > *s.Maximum {
			errs.add(at, CodeMaximum, "must be less than or equal to %v", *s.Maximum)
		}
	}
	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		q := f / *s.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			errs.add(at, CodeMultipleOf, "must be a multiple of %v", *s.MultipleOf)
		}
	}
}

// Literal accepts exactly one value.
type Literal struct {
	Value any
}

func (s *Literal) Validate(value any) error { return run(s, value) }

func (s *Literal) check(value any, at path, errs *Error) {
	if !equal(value, s.Value) {
		errs.add(at, CodeLiteral, "must equal %s", describe(s.Value))
	}
}

// Enum accepts any of the listed values. Order is kept for rendering only.
type Enum struct {
	Values []any
}

func (s *Enum) Validate(value any) error { return run(s, value) }

func (s *Enum) check(value any, at path, errs *Error) {
	for _, v := range s.Values {
		if equal(value, v) {
			return
		}
	}
	parts := make([]string, 0, len(s.Values))
	for _, v := range s.Values {
		parts = append(parts, describe(v))
	}
	errs.add(at, CodeEnum, "must be one of %s", strings.Join(parts, ", "))
}

// Array accepts sequences. A nil Items leaves elements unconstrained.
type Array struct {
	Items       Schema
	MinItems    *int
	MaxItems    *int
	UniqueItems bool
}

func (s *Array) Validate(value any) error { return run(s, value) }

func (s *Array) check(value any, at path, errs *Error) {
	items, ok := value.([]any)
	if !ok {
		errs.add(at, CodeType, "expected array, got %s", typeName(value))
		return
	}
	if s.MinItems != nil && len(items) < *s.MinItems {
		errs.add(at, CodeMinItems, "must contain at least %d items", *s.MinItems)
	}
	if s.MaxItems != nil && len(items) > *s.MaxItems {
		errs.add(at, CodeMaxItems, "must contain at most %d items", *s.MaxItems)
	}
	if s.UniqueItems {
	outer:
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				if equal(items[i], items[j]) {
					errs.add(at, CodeUniqueItems, "items %d and %d are equal", i, j)
					break outer
				}
			}
		}
	}
	if s.Items == nil {
		return
	}
	for i, item := range items {
		s.Items.check(item, at.index(i), errs)
	}
}

// Property is one declared key of an Object.
type Property struct {
	Name     string
	Schema   Schema
	Required bool
}

// Object accepts maps. Keys not listed in Properties pass through unless
// Strict is set, or are validated against Additional when it is non-nil.
type Object struct {
	Properties    []Property
	Strict        bool
	Additional    Schema
	MinProperties *int
	MaxProperties *int
}

func (s *Object) Validate(value any) error { return run(s, value) }

func (s *Object) check(value any, at path, errs *Error) {
	obj, ok := value.(map[string]any)
	if !ok {
		errs.add(at, CodeType, "expected object, got %s", typeName(value))
		return
	}
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		errs.add(at, CodeMinProperties, "must have at least %d properties", *s.MinProperties)
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		errs.add(at, CodeMaxProperties, "must have at most %d properties", *s.MaxProperties)
	}
	declared := make(map[string]struct{}, len(s.Properties))
	for _, p := range s.Properties {
		declared[p.Name] = struct{}{}
		v, present := obj[p.Name]
		if !present {
			if p.Required {
				errs.add(at.key(p.Name), CodeRequired, "is required")
			}
			continue
		}
		if p.Schema != nil {
			p.Schema.check(v, at.key(p.Name), errs)
		}
	}
	if !s.Strict && s.Additional == nil {
		return
	}
	for _, k := range sortedKeys(obj) {
		if _, ok := declared[k]; ok {
			continue
		}
		if s.Strict {
			errs.add(at.key(k), CodeUnknownKey, "is not allowed")
			continue
		}
		s.Additional.check(obj[k], at.key(k), errs)
	}
}

// Union accepts a value matching at least one branch. Branches are tried in order.
type Union struct {
	Branches []Schema
}

func (s *Union) Validate(value any) error { return run(s, value) }

func (s *Union) check(value any, at path, errs *Error) {
	for _, b := range s.Branches {
		branch := &Error{}
		b.check(value, at, branch)
		if len(branch.Issues) == 0 {
			return
		}
	}
	errs.add(at, CodeUnion, "does not match any of %d variants", len(s.Branches))
}

// Intersection accepts a value matching every branch.
type Intersection struct {
	Branches []Schema
}

func (s *Intersection) Validate(value any) error { return run(s, value) }

func (s *Intersection) check(value any, at path, errs *Error) {
	for _, b := range s.Branches {
		b.check(value, at, errs)
	}
}

// Nullable accepts null in addition to whatever Schema accepts.
type Nullable struct {
	Schema Schema
}

func (s *Nullable) Validate(value any) error { return run(s, value) }

func (s *Nullable) check(value any, at path, errs *Error) {
	if value == nil {
		return
	}
	s.Schema.check(value, at, errs)
}

// Ref points at a named declaration. Generated code uses Lazy for
// declarations that take part in a reference cycle.
type Ref struct {
	// Name is the declaration identifier.
	Name string
	// Target is the document pointer the reference was created from. It is
	// only meaningful while generating.
	Target string

	get func() Schema
}

// Lazy returns a reference resolved on first use, so a declaration can refer to
// itself or to declarations assigned later.
func Lazy(name string, get func() Schema) *Ref {
	return &Ref{Name: name, get: get}
}

// Bind sets the function used to resolve r.
func (r *Ref) Bind(get func() Schema) { r.get = get }

// Resolve returns the referenced schema, or nil when r is unbound.
func (r *Ref) Resolve() Schema {
	if r.get == nil {
		return nil
	}
	return r.get()
}

func (r *Ref) Validate(value any) error { return run(r, value) }

func (r *Ref) check(value any, at path, errs *Error) {
	target := r.Resolve()
	if target == nil {
		errs.add(at, CodeReference, "reference %s is not bound", r.Name)
		return
	}
	target.check(value, at, errs)
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	default:
		return fmt.Sprint(t)
	}
}
