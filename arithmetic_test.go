package teng

import "testing"

func TestArithmeticNumericStringCoercion(t *testing.T) {
	out, errs := renderString(t, `${1 + "2"}`, nil)
	if out != "3" {
		t.Fatalf("got %q, want %q", out, "3")
	}
	if errs.MaxSeverity() != SeverityDebug {
		t.Fatalf("expected a clean render, got severity %v", errs.MaxSeverity())
	}
}

func TestArithmeticStringConcatStillWorks(t *testing.T) {
	out, _ := renderString(t, `${"a" ++ "b"}`, nil)
	if out != "ab" {
		t.Fatalf("got %q", out)
	}
}

func TestArithmeticUndefinedOperandPropagatesSilently(t *testing.T) {
	root := NewFragment()
	out, errs := renderString(t, `[${missing + 1}]`, root)
	if out != "[]" {
		t.Fatalf("got %q, want %q", out, "[]")
	}
	if errs.Count() != 0 {
		t.Fatalf("expected undefined propagation to log nothing, got %v", errs.Entries())
	}
}

func TestArithmeticNonNumericStringLogsDiagAndYieldsUndefined(t *testing.T) {
	p := &Processor{errs: NewErrorLog()}
	v := p.binary(OpAdd, StringValue("abc"), IntValue(1), Pos{})
	if !v.IsUndefined() {
		t.Fatalf("expected undefined, got %+v", v)
	}
	if p.errs.MaxSeverity() != SeverityDiag {
		t.Fatalf("expected a diag severity entry, got %v", p.errs.MaxSeverity())
	}
}

func TestArithmeticBothIntStaysInt(t *testing.T) {
	out, _ := renderString(t, `${7 / 2}`, nil)
	if out != "3" {
		t.Fatalf("expected integer division, got %q", out)
	}
}

func TestArithmeticMixedIntAndNumericStringUsesFloatPath(t *testing.T) {
	out, _ := renderString(t, `${"7" / 2}`, nil)
	if out != "3.5" {
		t.Fatalf("got %q, want %q", out, "3.5")
	}
}
