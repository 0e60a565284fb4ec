package teng

import (
	"io"
	"strings"
)

// WhiteMode selects how a Formatter treats runs of whitespace written
// through it, one of the `format` directive's space= values (spec.md
// §5 "Formatter"). Grounded on original_source/src/formatter.cc's
// Formatter_t mode table, including MODE_COPY_PREV which SPEC_FULL.md
// folds into the invalid/default case (both simply forward bytes
// unmodified).
type WhiteMode uint8

const (
	WhitePassThrough WhiteMode = iota // "noformat"/invalid/default: copy verbatim
	WhiteNone                         // "nowhite"/"nospace": drop all whitespace
	WhiteOneSpace                     // "onespace": collapse any run to a single space
	WhiteStripLines                   // "striplines": collapse a run spanning a newline down to one newline
	WhiteJoinLines                    // "joinlines": a run spanning a newline keeps only its leading whitespace
	WhiteNoWhiteLines                 // "nowhitelines": drop lines left entirely blank by a whitespace run
)

// whiteModeFromString maps a `format` directive's space= token to a
// WhiteMode, using the exact spellings of
// original_source/src/formatter.cc's resolveFormat table. An unknown
// token (including the never-produced MODE_INVALID) falls through to
// pass-through, matching that function's behavior for both cases.
func whiteModeFromString(s string) WhiteMode {
	switch s {
	case "nowhite", "nospace":
		return WhiteNone
	case "onespace":
		return WhiteOneSpace
	case "striplines":
		return WhiteStripLines
	case "joinlines":
		return WhiteJoinLines
	case "nowhitelines":
		return WhiteNoWhiteLines
	case "noformat":
		return WhitePassThrough
	default:
		return WhitePassThrough
	}
}

// Formatter wraps an io.Writer with a stack of whitespace modes, one
// pushed per nested `format` directive and popped at `endformat`. It
// buffers whitespace runs across separate Write calls so that a run
// split by an intervening PRINT_ESC/PRINT boundary is still collapsed
// as a unit, mirroring formatter.cc's incremental `process` method.
type Formatter struct {
	w           io.Writer
	modes       []WhiteMode
	pending     strings.Builder // buffered whitespace run awaiting a decision
	atLineStart bool
	err         error
}

// NewFormatter wraps w, initially in pass-through mode.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w, modes: []WhiteMode{WhitePassThrough}, atLineStart: true}
}

func (f *Formatter) mode() WhiteMode { return f.modes[len(f.modes)-1] }

// Push enters a new whitespace mode, named per the `format` directive's
// space= parameter (spec.md §5).
func (f *Formatter) Push(spaceMode string) {
	f.flushPending()
	f.modes = append(f.modes, whiteModeFromString(spaceMode))
}

// Pop restores the previous mode. Popping the outermost (pass-through)
// mode is a no-op, tolerating an unbalanced endformat after a parse
// error already logged elsewhere.
func (f *Formatter) Pop() {
	f.flushPending()
	if len(f.modes) > 1 {
		f.modes = f.modes[:len(f.modes)-1]
	}
}

// Write processes s according to the active whitespace mode and
// forwards the result to the underlying writer.
func (f *Formatter) Write(s string) {
	if f.err != nil || s == "" {
		return
	}
	if f.mode() == WhitePassThrough {
		f.raw(s)
		return
	}
	f.writeRunWise(s)
}

func (f *Formatter) raw(s string) {
	if f.err != nil {
		return
	}
	if _, err := io.WriteString(f.w, s); err != nil {
		f.err = err
	}
	if len(s) > 0 {
		f.atLineStart = s[len(s)-1] == '\n'
	}
}

// writeRunWise scans s for maximal whitespace runs, buffering an
// unterminated trailing run in f.pending across Write calls so it can
// be joined with whatever arrives next (or with nothing, at Flush),
// and copies non-whitespace text through untouched. This mirrors
// formatter.cc's Formatter_t::write byte-scanning loop, which treats a
// whitespace run as the unit of transformation rather than a line.
func (f *Formatter) writeRunWise(s string) {
	i, n := 0, len(s)
	if n > 0 && !isFormatterSpace(s[0]) && f.pending.Len() > 0 {
		f.emitRun()
	}
	for i < n {
		if isFormatterSpace(s[i]) {
			j := i
			for j < n && isFormatterSpace(s[j]) {
				j++
			}
			f.pending.WriteString(s[i:j])
			i = j
			if i < n {
				// the run ended within this call, so its fate (unlike a
				// run still open at the end of s) is decided now
				f.emitRun()
			}
			continue
		}
		j := i
		for j < n && !isFormatterSpace(s[j]) {
			j++
		}
		f.raw(s[i:j])
		i = j
	}
}

// emitRun resolves the buffered whitespace run under the active mode
// and writes the result, per formatter.cc's process(string, ...).
func (f *Formatter) emitRun() {
	if f.pending.Len() == 0 {
		return
	}
	out := processWhitespaceRun(f.mode(), f.pending.String())
	f.pending.Reset()
	if out != "" {
		f.raw(out)
	}
}

func (f *Formatter) flushPending() { f.emitRun() }

// processWhitespaceRun decides what a complete whitespace run (which
// may have been assembled from more than one Write call) produces
// under mode, ported case-for-case from formatter.cc's process().
func processWhitespaceRun(mode WhiteMode, str string) string {
	switch mode {
	case WhiteNone:
		return ""
	case WhiteOneSpace:
		return " "
	case WhiteStripLines:
		if strings.IndexByte(str, '\n') < 0 {
			return str
		}
		return "\n"
	case WhiteJoinLines:
		nl := strings.IndexByte(str, '\n')
		if nl < 0 {
			return str
		}
		return str[:nl]
	case WhiteNoWhiteLines:
		fnl := strings.IndexByte(str, '\n')
		if fnl < 0 {
			return str
		}
		lnl := strings.LastIndexByte(str, '\n')
		if fnl == lnl {
			return str
		}
		return str[:fnl+1] + str[lnl+1:]
	}
	return str
}

func isFormatterSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Flush pushes any buffered whitespace to the underlying writer using
// the current (innermost) mode's rule, called once at the end of a
// render.
func (f *Formatter) Flush() error {
	f.flushPending()
	return f.err
}
