package teng

import (
	"strings"
	"testing"
)

func renderString(t *testing.T, src string, root *Fragment) (string, *ErrorLog) {
	t.Helper()
	if root == nil {
		root = NewFragment()
	}
	errs := NewErrorLog()
	p := NewParser(".", LexerConfig{UTF8: true}, nil, errs)
	prog := p.Parse(src, "<test>")
	var buf strings.Builder
	proc := NewProcessor(prog, root, &buf, "text/plain", nil, errs)
	if err := proc.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return buf.String(), errs
}

func TestParserPlainText(t *testing.T) {
	out, _ := renderString(t, "hello world", nil)
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestParserEscExprPrintsVariable(t *testing.T) {
	root := NewFragment()
	root.SetString("name", "world")
	out, _ := renderString(t, "hello ${name}!", root)
	if out != "hello world!" {
		t.Fatalf("got %q", out)
	}
}

func TestParserIfElse(t *testing.T) {
	root := NewFragment()
	root.SetInt("flag", 1)
	src := `<?teng if flag ?>yes<?teng else ?>no<?teng endif?>`
	out, _ := renderString(t, src, root)
	if out != "yes" {
		t.Fatalf("got %q", out)
	}

	root2 := NewFragment()
	root2.SetInt("flag", 0)
	out2, _ := renderString(t, src, root2)
	if out2 != "no" {
		t.Fatalf("got %q", out2)
	}
}

func TestParserFragIteration(t *testing.T) {
	root := NewFragment()
	rows := root.AddFragmentList("items")
	for _, name := range []string{"a", "b", "c"} {
		rows.AddFragment().SetString("name", name)
	}
	src := `<?teng frag items?>${name}-<?teng endfrag?>`
	out, _ := renderString(t, src, root)
	if out != "a-b-c-" {
		t.Fatalf("got %q", out)
	}
}

func TestParserFragCountAndIndex(t *testing.T) {
	root := NewFragment()
	rows := root.AddFragmentList("items")
	rows.AddFragment().SetString("x", "1")
	rows.AddFragment().SetString("x", "2")
	src := `<?teng frag items?>${_index}/${_count} <?teng endfrag?>`
	out, _ := renderString(t, src, root)
	if out != "0/2 1/2 " {
		t.Fatalf("got %q", out)
	}
}

func TestParserArithmetic(t *testing.T) {
	out, _ := renderString(t, `${2 + 3 * 4}`, nil)
	if out != "14" {
		t.Fatalf("got %q", out)
	}
}

func TestParserDivisionByZeroLogsDiag(t *testing.T) {
	out, errs := renderString(t, `${1 / 0}`, nil)
	if out != "" {
		t.Fatalf("expected empty output for undefined division result, got %q", out)
	}
	if errs.MaxSeverity() != SeverityDiag {
		t.Fatalf("expected diagnostic severity, got %v", errs.MaxSeverity())
	}
}

func TestParserErrorFragIteratesLoggedDiagnostics(t *testing.T) {
	src := `${1/0}<?teng frag _error?>[${message}]<?teng endfrag?>`
	out, errs := renderString(t, src, nil)
	if errs.Count() != 1 {
		t.Fatalf("expected exactly one logged diagnostic, got %d", errs.Count())
	}
	if out != "[division by zero]" {
		t.Fatalf("got %q", out)
	}
}

func TestParserSetDirective(t *testing.T) {
	out, _ := renderString(t, `<?teng set x = 10 ?>${x}`, nil)
	if out != "10" {
		t.Fatalf("got %q", out)
	}
}

func TestParserStringConcat(t *testing.T) {
	out, _ := renderString(t, `${"a" ++ "b"}`, nil)
	if out != "ab" {
		t.Fatalf("got %q", out)
	}
}

func TestParserHTMLEscaping(t *testing.T) {
	root := NewFragment()
	root.SetString("v", "<b>&x</b>")
	errs := NewErrorLog()
	p := NewParser(".", LexerConfig{UTF8: true}, nil, errs)
	prog := p.Parse("${v}", "<test>")
	var buf strings.Builder
	proc := NewProcessor(prog, root, &buf, "text/html", nil, errs)
	if err := proc.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "&lt;b&gt;&amp;x&lt;/b&gt;"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestParserEscapeUsesNestedCtype(t *testing.T) {
	errs := NewErrorLog()
	p := NewParser(".", LexerConfig{UTF8: true, PrintEscapeEnabled: true}, nil, errs)
	src := `<?teng ctype "quoted-string"?>%{escape('a"b')}<?teng endctype?>`
	prog := p.Parse(src, "<test>")
	var buf strings.Builder
	proc := NewProcessor(prog, NewFragment(), &buf, "text/plain", nil, errs)
	if err := proc.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `a\"b`
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestParserLogicalShortCircuit(t *testing.T) {
	root := NewFragment()
	root.SetInt("a", 0)
	out, _ := renderString(t, `${a && (1/0)}`, root)
	if out != "0" {
		t.Fatalf("expected short-circuited && to avoid the division, got %q", out)
	}
}
