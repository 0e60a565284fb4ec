package teng

import "testing"

func collectTokens(src string, cfg LexerConfig) []Token {
	lx := NewLexer1(src, "<test>", cfg)
	var toks []Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == TokEOF || tok.Kind == TokError {
			break
		}
	}
	return toks
}

func TestLexer1TextAndEscExpr(t *testing.T) {
	cfg := LexerConfig{UTF8: true}
	toks := collectTokens(`hello ${name}!`, cfg)
	if len(toks) != 4 {
		t.Fatalf("expected 4 tokens (text, expr, text, eof), got %d: %+v", len(toks), toks)
	}
	if toks[0].Kind != TokText || toks[0].Body != "hello " {
		t.Errorf("token 0 = %+v", toks[0])
	}
	if toks[1].Kind != TokEscExpr || toks[1].Body != "name" {
		t.Errorf("token 1 = %+v", toks[1])
	}
	if toks[2].Kind != TokText || toks[2].Body != "!" {
		t.Errorf("token 2 = %+v", toks[2])
	}
}

func TestLexer1LongDirective(t *testing.T) {
	cfg := LexerConfig{UTF8: true}
	toks := collectTokens(`<?teng if a ?>x<?teng endif?>`, cfg)
	var kinds []TokenKind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	want := []TokenKind{TokTeng, TokText, TokTeng, TokEOF}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got kinds %v, want %v", kinds, want)
		}
	}
}

func TestLexer1CommentSwallowed(t *testing.T) {
	cfg := LexerConfig{UTF8: true}
	toks := collectTokens(`a<!--- hidden --->b`, cfg)
	if len(toks) != 2 {
		t.Fatalf("expected text+eof, got %+v", toks)
	}
	if toks[0].Body != "ab" {
		t.Errorf("expected comment to be swallowed leaving \"ab\", got %q", toks[0].Body)
	}
}

func TestLexer1ShortTagDisabledByDefault(t *testing.T) {
	cfg := LexerConfig{UTF8: true, ShortTagEnabled: false}
	toks := collectTokens(`<? if a ?>`, cfg)
	if toks[0].Kind != TokText {
		t.Fatalf("expected short tag to be treated as plain text when disabled, got %+v", toks[0])
	}
}

func TestLexer1ShortTagEnabled(t *testing.T) {
	cfg := LexerConfig{UTF8: true, ShortTagEnabled: true}
	toks := collectTokens(`<? if a ?>`, cfg)
	if toks[0].Kind != TokTengShort {
		t.Fatalf("expected short directive token, got %+v", toks[0])
	}
}

func TestLexer1UnterminatedDirective(t *testing.T) {
	cfg := LexerConfig{UTF8: true}
	toks := collectTokens(`${unterminated`, cfg)
	found := false
	for _, tk := range toks {
		if tk.Kind == TokError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an error token for unterminated directive, got %+v", toks)
	}
}

func TestLexer1DictLookupToken(t *testing.T) {
	cfg := LexerConfig{UTF8: true}
	toks := collectTokens(`#{greeting}`, cfg)
	if toks[0].Kind != TokDict || toks[0].Body != "greeting" {
		t.Fatalf("expected dict token, got %+v", toks[0])
	}
}
