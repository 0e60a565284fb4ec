package teng

import "testing"

func scanAll(body string) []Lex2Token {
	lx := NewLexer2(body, Pos{Filename: "<test>", Line: 1}, true)
	var toks []Lex2Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == L2EOF || t.Kind == L2Error {
			break
		}
	}
	return toks
}

func TestLexer2IdentifiersAndKeywords(t *testing.T) {
	toks := scanAll("if frag_name endif")
	if toks[0].Kind != L2Keyword || toks[0].Text != "if" {
		t.Fatalf("token 0 = %+v", toks[0])
	}
	if toks[1].Kind != L2Ident || toks[1].Text != "frag_name" {
		t.Fatalf("token 1 = %+v", toks[1])
	}
	if toks[2].Kind != L2Keyword || toks[2].Text != "endif" {
		t.Fatalf("token 2 = %+v", toks[2])
	}
}

func TestLexer2Numbers(t *testing.T) {
	toks := scanAll("42 3.14 2e10")
	if toks[0].Kind != L2Int || toks[0].IntV != 42 {
		t.Fatalf("token 0 = %+v", toks[0])
	}
	if toks[1].Kind != L2Real || toks[1].RealV != 3.14 {
		t.Fatalf("token 1 = %+v", toks[1])
	}
	if toks[2].Kind != L2Real || toks[2].RealV != 2e10 {
		t.Fatalf("token 2 = %+v", toks[2])
	}
}

func TestLexer2StringEscapes(t *testing.T) {
	toks := scanAll(`"a\nb\tc\"d"`)
	if toks[0].Kind != L2String {
		t.Fatalf("token 0 = %+v", toks[0])
	}
	want := "a\nb\tc\"d"
	if toks[0].StrV != want {
		t.Fatalf("got %q, want %q", toks[0].StrV, want)
	}
}

func TestLexer2Operators(t *testing.T) {
	toks := scanAll("a == b && c != d")
	var ops []string
	for _, tk := range toks {
		if tk.Kind == L2Op {
			ops = append(ops, tk.Text)
		}
	}
	want := []string{"==", "&&", "!="}
	if len(ops) != len(want) {
		t.Fatalf("got ops %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("got ops %v, want %v", ops, want)
		}
	}
}

func TestLexer2GreedyMultiCharOperators(t *testing.T) {
	toks := scanAll("a<=>b")
	if toks[1].Kind != L2Op || toks[1].Text != "<=>" {
		t.Fatalf("expected greedy <=> match, got %+v", toks[1])
	}
}
