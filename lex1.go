package teng

import "strings"

// TokenKind enumerates the level-1 token kinds of spec.md §4.1.
type TokenKind uint8

const (
	TokText TokenKind = iota
	TokTeng
	TokTengShort
	TokEscExpr
	TokRawExpr
	TokDict
	TokError
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokText:
		return "TEXT"
	case TokTeng:
		return "TENG"
	case TokTengShort:
		return "TENG_SHORT"
	case TokEscExpr:
		return "ESC_EXPR"
	case TokRawExpr:
		return "RAW_EXPR"
	case TokDict:
		return "DICT"
	case TokError:
		return "ERROR"
	case TokEOF:
		return "END_OF_INPUT"
	}
	return "?"
}

// Token is one unit produced by the level-1 lexer. For TokText/TokError
// Body carries the literal text/message; for directive kinds Body
// carries the raw, un-lexed content between the delimiters.
type Token struct {
	Kind TokenKind
	Pos  Pos
	Body string
}

// LexerConfig holds the level-1 lexer's feature toggles, sourced from
// the param dictionary (spec.md §3).
type LexerConfig struct {
	ShortTagEnabled    bool
	PrintEscapeEnabled bool
	UTF8               bool
}

// Lexer1 is the level-1 lexer: it splits source into TEXT runs and
// directive bodies, deferring a directive token behind any text that
// preceded it. Grounded on original_source/src/lex1.h's Lex1_t.
type Lexer1 struct {
	src      string
	filename string
	off      int
	pos      Pos
	cfg      LexerConfig

	deferred   *Token
	deferredAt int
}

// NewLexer1 constructs a lexer over src, reporting positions tagged
// with filename (may be empty for string-sourced templates).
func NewLexer1(src, filename string, cfg LexerConfig) *Lexer1 {
	return &Lexer1{
		src:      src,
		filename: filename,
		pos:      Pos{Filename: filename, Line: 1, Column: 0},
		cfg:      cfg,
	}
}

func (l *Lexer1) eof() bool { return l.off >= len(l.src) }

// Next returns the next token in the stream.
func (l *Lexer1) Next() Token {
	if l.deferred != nil {
		t := *l.deferred
		l.deferred = nil
		return t
	}
	if l.eof() {
		return Token{Kind: TokEOF, Pos: l.pos}
	}

	start := l.off
	startPos := l.pos
	// swallowed holds the TEXT scanned before each swallowed comment, so
	// the comment's own bytes are left out of the returned body.
	var swallowed strings.Builder
	for !l.eof() {
		if kind, bodyStart, ok := l.matchDirectiveStart(); ok {
			if kind == tokComment {
				// swallow: consume up through terminator, then continue
				// scanning TEXT from here without emitting a token.
				commentStart := l.off
				if !l.consumeComment() {
					return l.errorToken(startPos, l.src[start:l.off], "unterminated comment")
				}
				swallowed.WriteString(l.src[start:commentStart])
				start = l.off
				continue
			}
			// textEnd is where the directive opener begins, BEFORE
			// readDirectiveBody consumes anything past it.
			textEnd := l.off
			if textEnd > start || swallowed.Len() > 0 {
				directive, err := l.readDirectiveBody(kind, bodyStart)
				if err != "" {
					errTok := l.errorToken(l.pos, "", err)
					l.deferred = &errTok
				} else {
					l.deferred = &directive
				}
				return Token{Kind: TokText, Pos: startPos, Body: swallowed.String() + l.src[start:textEnd]}
			}
			directive, err := l.readDirectiveBody(kind, bodyStart)
			if err != "" {
				return l.errorToken(l.pos, "", err)
			}
			return directive
		}
		l.advanceOne()
	}
	if l.off > start || swallowed.Len() > 0 {
		return Token{Kind: TokText, Pos: startPos, Body: swallowed.String() + l.src[start:l.off]}
	}
	return Token{Kind: TokEOF, Pos: l.pos}
}

type directiveKind uint8

const (
	tokComment directiveKind = iota
	tokLong
	tokShort
	tokEsc
	tokRaw
	tokDictLookup
)

// matchDirectiveStart checks whether a recognized directive/comment
// opener begins at the current offset, in the scan-rule priority order
// of spec.md §4.1. It never advances l.off.
func (l *Lexer1) matchDirectiveStart() (directiveKind, int, bool) {
	s := l.src[l.off:]
	switch {
	case strings.HasPrefix(s, "<!---"):
		return tokComment, 5, true
	case strings.HasPrefix(s, "<?teng") && len(s) > 6 && isSpaceByte(s[6]):
		return tokLong, 6, true
	case l.cfg.ShortTagEnabled && strings.HasPrefix(s, "<?"):
		return tokShort, 2, true
	case strings.HasPrefix(s, "${"):
		return tokEsc, 2, true
	case l.cfg.PrintEscapeEnabled && strings.HasPrefix(s, "%{"):
		return tokRaw, 2, true
	case strings.HasPrefix(s, "#{"):
		return tokDictLookup, 2, true
	}
	return 0, 0, false
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// advanceOne consumes one code point (or byte, in non-UTF-8 mode) of
// plain text, updating the tracked position.
func (l *Lexer1) advanceOne() {
	width := 1
	if l.cfg.UTF8 {
		width = utf8LeadWidth(l.src[l.off])
	}
	if l.off+width > len(l.src) {
		width = len(l.src) - l.off
	}
	chunk := l.src[l.off : l.off+width]
	l.pos = l.pos.advance(chunk, l.cfg.UTF8)
	l.off += width
}

// consumeComment advances past a `<!--- ... --->` block, requiring at
// least one character between the markers. Returns false on EOF
// without finding the terminator.
func (l *Lexer1) consumeComment() bool {
	openOff, openPos := l.off, l.pos
	l.consumeLiteral("<!---")
	idx := strings.Index(l.src[l.off:], "--->")
	if idx == 0 {
		// zero characters between markers is not a valid comment body;
		// look for the next terminator instead.
		next := strings.Index(l.src[l.off+1:], "--->")
		if next < 0 {
			l.off, l.pos = openOff, openPos
			return false
		}
		idx = next + 1
	} else if idx < 0 {
		l.off, l.pos = openOff, openPos
		return false
	}
	body := l.src[l.off : l.off+idx]
	l.pos = l.pos.advance(body, l.cfg.UTF8)
	l.off += idx
	l.consumeLiteral("--->")
	return true
}

func (l *Lexer1) consumeLiteral(lit string) {
	l.pos = l.pos.advance(lit, l.cfg.UTF8)
	l.off += len(lit)
}

// readDirectiveBody consumes a directive of the given kind starting at
// the opener already identified (bodyStart = length of the opener),
// returning its token. String literals inside the body are respected
// for long/short/esc/raw forms per spec.md §4.1 rule 1/2/4/5; dict
// lookups (#{...}) have no string-literal awareness (rule 6).
func (l *Lexer1) readDirectiveBody(kind directiveKind, openerLen int) (Token, string) {
	openPos := l.pos
	var opener, terminator string
	quoteAware := true
	switch kind {
	case tokLong:
		opener, terminator = "<?teng", "?>"
	case tokShort:
		opener, terminator = "<?", "?>"
	case tokEsc:
		opener, terminator = "${", "}"
	case tokRaw:
		opener, terminator = "%{", "}"
	case tokDictLookup:
		opener, terminator = "#{", "}"
		quoteAware = false
	}
	_ = openerLen
	l.consumeLiteral(opener)

	bodyStartOff := l.off
	end := findTerminator(l.src, l.off, terminator, quoteAware)
	if end < 0 {
		return Token{}, "unterminated " + strings.TrimSpace(opener) + " directive"
	}
	body := l.src[bodyStartOff:end]
	l.pos = l.pos.advance(body, l.cfg.UTF8)
	l.off = end
	l.consumeLiteral(terminator)

	var tk TokenKind
	switch kind {
	case tokLong:
		tk = TokTeng
	case tokShort:
		tk = TokTengShort
	case tokEsc:
		tk = TokEscExpr
	case tokRaw:
		tk = TokRawExpr
	case tokDictLookup:
		tk = TokDict
	}
	return Token{Kind: tk, Pos: openPos, Body: body}, ""
}

// findTerminator locates the first occurrence of term in s starting at
// off that is not inside a single- or double-quoted string literal
// (when quoteAware is set).
func findTerminator(s string, off int, term string, quoteAware bool) int {
	i := off
	var quote byte
	for i < len(s) {
		c := s[i]
		if quoteAware && quote != 0 {
			if c == '\\' && i+1 < len(s) {
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		if quoteAware && (c == '"' || c == '\'') {
			quote = c
			i++
			continue
		}
		if strings.HasPrefix(s[i:], term) {
			return i
		}
		i++
	}
	return -1
}

func (l *Lexer1) errorToken(pos Pos, consumed, msg string) Token {
	_ = consumed
	return Token{Kind: TokError, Pos: pos, Body: msg}
}

// Unescape exposes the level-1 unescape scanner (unescape.go) bound to
// this lexer's print-escape configuration.
func (l *Lexer1) Unescape(s string) string { return unescape(s, l.cfg.PrintEscapeEnabled) }
