package teng

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Severity is the diagnostic level of an ErrorEntry, ordered so that
// the numeric value doubles as the exit-code table of spec.md §6.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityWarning
	SeverityDiag
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityWarning:
		return "warning"
	case SeverityDiag:
		return "diag"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// ErrorEntry is one append-only diagnostic produced during compilation
// or execution.
type ErrorEntry struct {
	Pos      Pos
	Severity Severity
	Message  string
}

func (e ErrorEntry) String() string {
	return fmt.Sprintf("%s [%s] %s", e.Pos, e.Severity, e.Message)
}

// ErrorLog is the ordered, severity-stamped diagnostic sequence shared
// by compilation and execution (spec.md §3 "Error log"). A RenderID,
// generated once per render/compile via google/uuid, lets separate
// slog records about the same request be correlated (SPEC_FULL.md §2).
type ErrorLog struct {
	RenderID string
	entries  []ErrorEntry
	max      Severity
}

// NewErrorLog creates an empty log stamped with a fresh render id.
func NewErrorLog() *ErrorLog {
	return &ErrorLog{RenderID: uuid.NewString()}
}

// Add appends a diagnostic and updates the running maximum severity.
func (l *ErrorLog) Add(pos Pos, sev Severity, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.entries = append(l.entries, ErrorEntry{Pos: pos, Severity: sev, Message: msg})
	if sev > l.max {
		l.max = sev
	}
}

// Entries returns the accumulated log in insertion order.
func (l *ErrorLog) Entries() []ErrorEntry { return l.entries }

// Count returns the number of entries logged so far.
func (l *ErrorLog) Count() int { return len(l.entries) }

// MaxSeverity returns the highest severity seen, the return value of
// generate_page per spec.md §6.
func (l *ErrorLog) MaxSeverity() Severity { return l.max }

// Entry retrieves the i-th entry, used by the synthetic error fragment.
func (l *ErrorLog) Entry(i int) ErrorEntry { return l.entries[i] }

// String renders the whole log, one entry per line, for diagnostics.
func (l *ErrorLog) String() string {
	var b strings.Builder
	for _, e := range l.entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
