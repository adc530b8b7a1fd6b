package kuid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Variant selects between the two textual identity forms.
type Variant int

const (
	// V1 is the three-component kuid form (kuid:author:content:version).
	V1 Variant = iota + 1
	// V2 is the four-component kuid2 form (kuid2:author:content:version:build).
	V2
)

// Keyword returns the tag keyword for the variant ("kuid" or "kuid2").
func (v Variant) Keyword() string {
	if v == V2 {
		return "kuid2"
	}
	return "kuid"
}

// Identity is a parsed catalog identifier. Components are non-negative and
// bounded to the catalog's 32-bit integer width. Build is meaningful only for
// the V2 variant. Values are immutable once parsed; treat them as read-only.
type Identity struct {
	Variant Variant
	Author  int32
	Content int32
	Version int32
	Build   int32
}

var (
	// ErrMissingIdentity reports marker content with no kuid tag line at all.
	ErrMissingIdentity = errors.New("no kuid tag found")
	// ErrMalformedIdentity reports a kuid tag line that does not parse.
	ErrMalformedIdentity = errors.New("malformed kuid")
)

// Placeholder components are reserved values no published asset uses, so a
// staged copy can round-trip through the installer without colliding with the
// real catalog entry.
const (
	PlaceholderAuthor  int32 = 298469
	PlaceholderContent int32 = 999999
)

// Placeholder returns the fixed disposable identity for the given variant.
// The variant is preserved so a rewritten marker still satisfies the tag
// grammar.
func Placeholder(v Variant) Identity {
	id := Identity{
		Variant: v,
		Author:  PlaceholderAuthor,
		Content: PlaceholderContent,
	}
	return id
}

// IsZero reports whether the identity is the unset zero value, as opposed to
// any parsed identity.
func (id Identity) IsZero() bool {
	return id.Variant == 0
}

// String renders the identity in its exact textual form: kuid:a:b:c for V1 and
// kuid2:a:b:c:d for V2. Substituting the result back over a Match span
// reproduces a valid tag line.
func (id Identity) String() string {
	var b strings.Builder
	b.WriteString(id.Variant.Keyword())
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(int64(id.Author), 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(int64(id.Content), 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(int64(id.Version), 10))
	if id.Variant == V2 {
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(int64(id.Build), 10))
	}
	return b.String()
}

// Bracketed renders the identity enclosed in angle brackets, the form used
// inside marker tag lines.
func (id Identity) Bracketed() string {
	return "<" + id.String() + ">"
}

// Parse parses the bare identity text (without brackets), e.g. "kuid:1:2:3" or
// "kuid2:9:8:7:6". The keyword is case-insensitive; components are decimal
// integers within the 32-bit signed range. A keyword with the wrong component
// count is malformed, never coerced into the other variant.
func Parse(payload string) (Identity, error) {
	parts := strings.Split(payload, ":")
	if len(parts) < 2 {
		return Identity{}, fmt.Errorf("%w: %q", ErrMalformedIdentity, payload)
	}

	var variant Variant
	switch strings.ToLower(parts[0]) {
	case "kuid":
		variant = V1
	case "kuid2":
		variant = V2
	default:
		return Identity{}, fmt.Errorf("%w: unknown keyword %q", ErrMalformedIdentity, parts[0])
	}

	want := 3
	if variant == V2 {
		want = 4
	}
	comps := parts[1:]
	if len(comps) != want {
		return Identity{}, fmt.Errorf("%w: %s expects %d components, got %d", ErrMalformedIdentity, variant.Keyword(), want, len(comps))
	}

	values := make([]int32, len(comps))
	for i, comp := range comps {
		value, err := parseComponent(comp)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: component %q: %v", ErrMalformedIdentity, comp, err)
		}
		values[i] = value
	}

	id := Identity{
		Variant: variant,
		Author:  values[0],
		Content: values[1],
		Version: values[2],
	}
	if variant == V2 {
		id.Build = values[3]
	}
	return id, nil
}

// parseComponent accepts decimal digits only; bitSize 31 bounds the value to
// the non-negative half of the catalog's int32 range.
func parseComponent(s string) (int32, error) {
	if s == "" {
		return 0, errors.New("empty")
	}
	value, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, errors.New("out of range")
		}
		return 0, errors.New("not a decimal integer")
	}
	return int32(value), nil
}
