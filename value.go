package teng

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Tag identifies the concrete kind held by a Value.
type Tag uint8

const (
	TagUndefined Tag = iota
	TagInt
	TagReal
	TagString
	TagStringRef
	TagFragmentRef
	TagListRef
	TagRegex
)

func (t Tag) String() string {
	switch t {
	case TagUndefined:
		return "undefined"
	case TagInt:
		return "int"
	case TagReal:
		return "real"
	case TagString:
		return "string"
	case TagStringRef:
		return "string-ref"
	case TagFragmentRef:
		return "fragment-ref"
	case TagListRef:
		return "list-ref"
	case TagRegex:
		return "regex"
	}
	return "unknown"
}

// RegexValue holds a compiled regular expression plus the raw flags it
// was declared with, since Teng's `i`/`g`/`m` flags don't map 1:1 onto
// Go's regexp syntax flags (`g` has no regexp-level meaning and is only
// kept in Flags).
type RegexValue struct {
	Pattern string
	Flags   string
	Re      *regexp.Regexp
}

// FragmentRef points at a fragment somewhere on the fragment stack.
type FragmentRef struct {
	Frag  *Fragment
	Depth int
}

// ListRef points at a fragment-list together with the position within
// it that produced the reference (used for equality-by-identity and
// for functions like `wordcount`-style introspection).
type ListRef struct {
	List  *FragmentList
	Index int
}

// Value is Teng's tagged scalar. Exactly one of the typed fields is
// meaningful for a given Tag; conversions are total functions defined
// for every tag (undefined propagates rather than erroring).
type Value struct {
	Tag    Tag
	Int    int64
	Real   float64
	Str    string // used for both TagString and TagStringRef
	Frag   FragmentRef
	List   ListRef
	Regexp *RegexValue
}

// Undefined is the zero Value.
var Undefined = Value{Tag: TagUndefined}

func IntValue(i int64) Value    { return Value{Tag: TagInt, Int: i} }
func RealValue(f float64) Value { return Value{Tag: TagReal, Real: f} }
func StringValue(s string) Value {
	return Value{Tag: TagString, Str: s}
}
func StringRefValue(s string) Value {
	return Value{Tag: TagStringRef, Str: s}
}
func FragmentRefValue(f *Fragment, depth int) Value {
	return Value{Tag: TagFragmentRef, Frag: FragmentRef{Frag: f, Depth: depth}}
}
func ListRefValue(l *FragmentList, idx int) Value {
	return Value{Tag: TagListRef, List: ListRef{List: l, Index: idx}}
}
func RegexValueOf(pattern, flags string, re *regexp.Regexp) Value {
	return Value{Tag: TagRegex, Regexp: &RegexValue{Pattern: pattern, Flags: flags, Re: re}}
}

// IsUndefined reports whether v carries no data.
func (v Value) IsUndefined() bool { return v.Tag == TagUndefined }

// Bool converts v to a boolean following Teng's truthiness rules:
// undefined and zero-valued scalars are false, non-empty strings and
// non-zero numbers are true, references are true when non-nil/non-empty.
func (v Value) Bool() bool {
	switch v.Tag {
	case TagUndefined:
		return false
	case TagInt:
		return v.Int != 0
	case TagReal:
		return v.Real != 0
	case TagString, TagStringRef:
		return v.Str != ""
	case TagFragmentRef:
		return v.Frag.Frag != nil
	case TagListRef:
		return v.List.List != nil && v.List.List.Len() > 0
	case TagRegex:
		return v.Regexp != nil
	}
	return false
}

// Int64 converts v to an integer. Undefined and non-numeric strings
// convert to 0, matching Teng's "undefined propagates as undefined"
// rule for arithmetic contexts that ultimately need a concrete number.
func (v Value) Int64() int64 {
	switch v.Tag {
	case TagInt:
		return v.Int
	case TagReal:
		return int64(v.Real)
	case TagString, TagStringRef:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
			if ferr == nil {
				return int64(f)
			}
			return 0
		}
		return n
	case TagFragmentRef:
		if v.Frag.Frag != nil {
			return 1
		}
	case TagListRef:
		if v.List.List != nil {
			return int64(v.List.List.Len())
		}
	}
	return 0
}

// Float64 converts v to a real number.
func (v Value) Float64() float64 {
	switch v.Tag {
	case TagInt:
		return float64(v.Int)
	case TagReal:
		return v.Real
	case TagString, TagStringRef:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return float64(v.Int64())
	}
}

// IsNumeric reports whether v carries an int or real tag.
func (v Value) IsNumeric() bool { return v.Tag == TagInt || v.Tag == TagReal }

// String converts v to its textual representation.
func (v Value) String() string {
	switch v.Tag {
	case TagUndefined:
		return ""
	case TagInt:
		return strconv.FormatInt(v.Int, 10)
	case TagReal:
		if math.IsNaN(v.Real) || math.IsInf(v.Real, 0) {
			return ""
		}
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case TagString, TagStringRef:
		return v.Str
	case TagFragmentRef:
		return "<fragment>"
	case TagListRef:
		return "<fragment-list>"
	case TagRegex:
		return "/" + v.Regexp.Pattern + "/" + v.Regexp.Flags
	}
	return ""
}

// Equal implements Teng's equality rule: by-value for scalars, by
// identity for fragment/list references.
func Equal(a, b Value) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return a.Float64() == b.Float64()
	}
	if a.Tag != b.Tag {
		// numeric-vs-string coercion follows Value.Float64/Int64 rules
		if (a.Tag == TagString || a.Tag == TagStringRef) && b.IsNumeric() {
			return a.Float64() == b.Float64()
		}
		if (b.Tag == TagString || b.Tag == TagStringRef) && a.IsNumeric() {
			return a.Float64() == b.Float64()
		}
		if a.Tag == TagUndefined || b.Tag == TagUndefined {
			return a.Tag == b.Tag
		}
		return false
	}
	switch a.Tag {
	case TagUndefined:
		return true
	case TagString, TagStringRef:
		return a.Str == b.Str
	case TagFragmentRef:
		return a.Frag.Frag == b.Frag.Frag
	case TagListRef:
		return a.List.List == b.List.List && a.List.Index == b.List.Index
	case TagRegex:
		return a.Regexp == b.Regexp
	}
	return false
}

// Compare orders two values numerically/lexically, returning -1, 0, 1.
// Non-numeric values, reference-tagged ones included, compare by their
// String() form, so any two references of the same kind compare equal.
func Compare(a, b Value) int {
	if a.IsNumeric() || b.IsNumeric() {
		af, bf := a.Float64(), b.Float64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.String(), b.String()
	return strings.Compare(as, bs)
}

// GoString supports %#v-style debug printing without leaking internal
// pointer values for reference tags.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %q}", v.Tag, v.String())
}
