package teng

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/itchyny/timefmt-go"
)

// builtinFuncs is the FUNC dispatch table, grounded on
// original_source/src/tengfunctionstring.h's builtin catalogue (len,
// substr, replace, strtolower/strtoupper, and friends) and generalized
// to Go equivalents. Date/time formatting and human-readable sizing
// are wired to third-party libraries rather than hand-rolled, per
// SPEC_FULL.md §3 "domain stack".
var builtinFuncs = map[string]BuiltinFunc{
	"len":       fnLen,
	"upper":     fnUpper,
	"lower":     fnLower,
	"trim":      fnTrim,
	"substr":    fnSubstr,
	"replace":   fnReplace,
	"round":     fnRound,
	"int":       fnInt,
	"float":     fnFloat,
	"string":    fnString,
	"strtotime": fnStrToTime,
	"strftime":  fnStrfTime,
	"bytesize":  fnBytesize,
	"ordinal":   fnOrdinal,
	"wordwrap":  fnWordwrap,
	"join":      fnJoin,
	"escape":    fnEscape,
	"unescape":  fnUnescape,
}

func arg(args []Value, i int) Value {
	if i < 0 || i >= len(args) {
		return Undefined
	}
	return args[i]
}

func fnLen(p *Processor, args []Value, pos Pos) Value {
	v := arg(args, 0)
	switch v.Tag {
	case TagString, TagStringRef:
		return IntValue(int64(len([]rune(v.String()))))
	case TagListRef:
		return IntValue(int64(v.List.List.Len()))
	case TagFragmentRef:
		return IntValue(int64(len(v.Frag.Frag.Names())))
	}
	return IntValue(0)
}

func fnUpper(p *Processor, args []Value, pos Pos) Value {
	return StringValue(strings.ToUpper(arg(args, 0).String()))
}

func fnLower(p *Processor, args []Value, pos Pos) Value {
	return StringValue(strings.ToLower(arg(args, 0).String()))
}

func fnTrim(p *Processor, args []Value, pos Pos) Value {
	return StringValue(strings.TrimSpace(arg(args, 0).String()))
}

func fnSubstr(p *Processor, args []Value, pos Pos) Value {
	s := []rune(arg(args, 0).String())
	start := int(arg(args, 1).Int64())
	length := len(s) - start
	if len(args) > 2 {
		length = int(arg(args, 2).Int64())
	}
	if start < 0 || start > len(s) {
		p.errs.Add(pos, SeverityDiag, "substr: start index out of range")
		return StringValue("")
	}
	end := start + length
	if end > len(s) {
		end = len(s)
	}
	if end < start {
		end = start
	}
	return StringValue(string(s[start:end]))
}

func fnReplace(p *Processor, args []Value, pos Pos) Value {
	s := arg(args, 0).String()
	old := arg(args, 1).String()
	new := arg(args, 2).String()
	return StringValue(strings.ReplaceAll(s, old, new))
}

func fnRound(p *Processor, args []Value, pos Pos) Value {
	f := arg(args, 0).Float64()
	digits := 0
	if len(args) > 1 {
		digits = int(arg(args, 1).Int64())
	}
	mult := 1.0
	for i := 0; i < digits; i++ {
		mult *= 10
	}
	rounded := float64(int64(f*mult+0.5)) / mult
	if digits == 0 {
		return IntValue(int64(rounded))
	}
	return RealValue(rounded)
}

func fnInt(p *Processor, args []Value, pos Pos) Value { return IntValue(arg(args, 0).Int64()) }
func fnFloat(p *Processor, args []Value, pos Pos) Value {
	return RealValue(arg(args, 0).Float64())
}
func fnString(p *Processor, args []Value, pos Pos) Value {
	return StringValue(arg(args, 0).String())
}

// fnStrToTime parses a formatted timestamp using the strftime-style
// layout in args[1] (default "%Y-%m-%dT%H:%M:%S"), wired to
// github.com/itchyny/timefmt-go so date handling matches the
// strftime/strptime conventions Teng templates expect rather than Go's
// reference-time layout syntax.
func fnStrToTime(p *Processor, args []Value, pos Pos) Value {
	layout := "%Y-%m-%dT%H:%M:%S"
	if len(args) > 1 {
		layout = arg(args, 1).String()
	}
	t, err := timefmt.Parse(arg(args, 0).String(), layout)
	if err != nil {
		p.errs.Add(pos, SeverityDiag, "strtotime: %v", err)
		return Undefined
	}
	return IntValue(t.Unix())
}

func fnStrfTime(p *Processor, args []Value, pos Pos) Value {
	layout := "%Y-%m-%d %H:%M:%S"
	if len(args) > 1 {
		layout = arg(args, 1).String()
	}
	t := time.Unix(arg(args, 0).Int64(), 0).UTC()
	return StringValue(timefmt.Format(t, layout))
}

// fnBytesize renders a byte count in human-readable form via
// github.com/dustin/go-humanize.
func fnBytesize(p *Processor, args []Value, pos Pos) Value {
	return StringValue(humanize.Bytes(uint64(arg(args, 0).Int64())))
}

// fnOrdinal renders 1 as "1st", 2 as "2nd", and so on.
func fnOrdinal(p *Processor, args []Value, pos Pos) Value {
	return StringValue(humanize.Ordinal(int(arg(args, 0).Int64())))
}

func fnWordwrap(p *Processor, args []Value, pos Pos) Value {
	s := arg(args, 0).String()
	width := 80
	if len(args) > 1 {
		width = int(arg(args, 1).Int64())
	}
	return StringValue(wrapText(s, width))
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if lineLen > 0 && lineLen+1+len(w) > width {
			b.WriteByte('\n')
			lineLen = 0
		} else if i > 0 && lineLen > 0 {
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}

func fnJoin(p *Processor, args []Value, pos Pos) Value {
	sep := ","
	if len(args) > 1 {
		sep = arg(args, 1).String()
	}
	v := arg(args, 0)
	if v.Tag != TagListRef {
		return StringValue(v.String())
	}
	list := v.List.List
	parts := make([]string, list.Len())
	for i := 0; i < list.Len(); i++ {
		frag := list.At(i)
		if fv, ok := frag.Find("value"); ok && fv.Kind == FVScalar {
			parts[i] = fv.Scalar.String()
		}
	}
	return StringValue(strings.Join(parts, sep))
}

// fnEscape escapes args[0] under an explicit content-type name (args[1])
// or, absent that, the content type currently active on the processor's
// ctype stack (the innermost `ctype "..."` block, or the render's
// default), so a nested `ctype` directive changes what a bare
// `escape(...)` call does.
func fnEscape(p *Processor, args []Value, pos Pos) Value {
	ct := p.curCtype()
	if len(args) > 1 {
		ct, _ = defaultContentTypes.Lookup(arg(args, 1).String())
	}
	return StringValue(ct.Escape(arg(args, 0).String()))
}

func fnUnescape(p *Processor, args []Value, pos Pos) Value {
	ct := p.curCtype()
	if len(args) > 1 {
		ct, _ = defaultContentTypes.Lookup(arg(args, 1).String())
	}
	return StringValue(ct.Unescape(arg(args, 0).String()))
}
