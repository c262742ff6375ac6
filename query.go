package defensio

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Key names a request parameter. The two implementations are Literal and
// Symbol; no other type can satisfy Key.
type Key interface {
	// String returns the name as it appears on the wire.
	String() string

	isKey()
}

// Literal is a parameter name sent exactly as written.
type Literal string

// String implements Key.
func (k Literal) String() string { return string(k) }

func (Literal) isKey() {}

// Symbol is an identifier-style parameter name. Underscores are sent as
// hyphens, so Symbol("author_email") goes out as "author-email".
type Symbol string

// String implements Key.
func (k Symbol) String() string { return strings.ReplaceAll(string(k), "_", "-") }

func (Symbol) isKey() {}

// Params is a flat set of request parameters.
//
// Values must be scalars: strings, booleans, integers, floats, Date,
// time.Time (sent as its calendar date), fmt.Stringer implementations, or
// nil (sent as an empty value). Nested maps, slices and structs are rejected
// by EncodeQuery.
type Params map[Key]any

// Lookup returns the value stored under the given wire name.
func (p Params) Lookup(name string) (any, bool) {
	for k, v := range p {
		if k != nil && k.String() == name {
			return v, true
		}
	}
	return nil, false
}

// Merge returns a new set holding defaults overlaid by p. When a key of p
// and a key of defaults share a wire name, the value from p is kept.
func (p Params) Merge(defaults Params) Params {
	if p == nil && defaults == nil {
		return nil
	}
	out := make(Params, len(p)+len(defaults))
	for k, v := range defaults {
		if k == nil {
			continue
		}
		if _, ok := p.Lookup(k.String()); ok {
			continue
		}
		out[k] = v
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// EncodeQuery renders p as a URL query string.
//
// Keys are sorted by wire name so the same set always encodes to the same
// string. Keys and values are percent-escaped as URI components (a space
// becomes %20). A nil set yields ok == false, meaning the request carries
// no query string at all; an empty non-nil set yields ("", true).
func EncodeQuery(p Params) (query string, ok bool, err error) {
	if p == nil {
		return "", false, nil
	}

	pairs := make(map[string]string, len(p))
	for k, v := range p {
		if k == nil {
			return "", false, fmt.Errorf("%w: nil key", ErrUnsupportedParam)
		}
		name := k.String()
		if _, dup := pairs[name]; dup {
			return "", false, fmt.Errorf("%w: %q", ErrDuplicateParam, name)
		}
		value, err := formatValue(v)
		if err != nil {
			return "", false, fmt.Errorf("%w: %q: %v", ErrUnsupportedParam, name, err)
		}
		pairs[name] = value
	}

	var b strings.Builder
	for i, name := range slices.Sorted(maps.Keys(pairs)) {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeComponent(name))
		b.WriteByte('=')
		b.WriteString(escapeComponent(pairs[name]))
	}
	return b.String(), true, nil
}

// escapeComponent escapes everything outside the unreserved set.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// formatValue returns the canonical wire form of a scalar value.
func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case Date:
		return v.String(), nil
	case time.Time:
		return DateOf(v).String(), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	}

	// Named scalar types such as `type Kind string`.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("value of type %T is not a scalar", v)
	}
}
