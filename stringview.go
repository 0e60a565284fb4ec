package teng

import "unsafe"

// stringView is a zero-copy slice over a source buffer that some other
// part of the system owns. It never allocates; it only ever narrows.
//
// Grounded on original_source/src/stringview.cc and on the teacher's
// single unsafe zero-copy conversion in toStringFast (utils.go).
type stringView struct {
	base  string
	start int
	end   int
}

func newStringView(s string) stringView {
	return stringView{base: s, start: 0, end: len(s)}
}

func (v stringView) String() string { return v.base[v.start:v.end] }
func (v stringView) Len() int       { return v.end - v.start }
func (v stringView) Empty() bool    { return v.start >= v.end }

func (v stringView) slice(from, to int) stringView {
	return stringView{base: v.base, start: v.start + from, end: v.start + to}
}

// flexView is a stringView that also remembers whether the bytes it
// names came from the owned source buffer (zero-copy) or were
// synthesized (e.g. by unescaping), in which case base holds an
// independently-owned string and the view spans it entirely.
type flexView struct {
	stringView
	owned bool
}

func flexOf(s string) flexView { return flexView{stringView: newStringView(s), owned: true} }

// bytesToStringNoCopy reinterprets a []byte as a string without an
// allocation. Callers must not mutate b after this call, matching the
// teacher's own use of this trick in toStringFast for the []byte case.
func bytesToStringNoCopy(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return *(*string)(unsafe.Pointer(&b))
}
