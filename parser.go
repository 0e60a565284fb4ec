package teng

import (
	"os"
	"path/filepath"
	"strings"
)

// IncludeResolver loads the contents of an included template, given the
// path written in an include directive and the directory of the file
// that contains it. The default resolver reads from disk relative to
// dir; engine.go supplies one that delegates to the default resolver
// (spec.md §5 "engine(root_dir, ...)").
type IncludeResolver func(dir, path string) (src string, resolvedPath string, err error)

func defaultIncludeResolver(dir, path string) (string, string, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(dir, path)
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return "", full, err
	}
	return string(b), full, nil
}

// Parser compiles one template source directly into a Program,
// emitting bytecode from grammar reductions without building an
// intermediate tree, per spec.md §4.2. Grounded on the teacher's
// single-pass parser.go, generalized to Teng's statement/expression
// grammar and to a backpatch stack for forward jumps (originally the
// teacher tracked only flat template placeholders).
type Parser struct {
	cfg      LexerConfig
	errs     *ErrorLog
	b        *programBuilder
	resolve  IncludeResolver
	baseDir  string
	depth    int
	maxDepth int
}

// NewParser prepares a parser for a template rooted at baseDir (used to
// resolve include directives). errs receives compile diagnostics.
func NewParser(baseDir string, cfg LexerConfig, resolve IncludeResolver, errs *ErrorLog) *Parser {
	if resolve == nil {
		resolve = defaultIncludeResolver
	}
	return &Parser{cfg: cfg, errs: errs, resolve: resolve, baseDir: baseDir, maxDepth: 32}
}

// Parse compiles src (identified by filename for diagnostics, or
// "<string>" for a string-sourced template) into a Program.
func (p *Parser) Parse(src, filename string) *Program {
	p.b = newProgramBuilder(filename)
	p.parseInto(src, filename, p.baseDir)
	p.b.emit(Instruction{Op: OpEndProgram})
	return p.b.build()
}

// blockFrame tracks one open control structure across the several
// level-1 directive tokens that make it up (e.g. `if`, `elif*`,
// `else?`, `endif` are four separate <?teng ?> bodies).
type blockFrame struct {
	kind        string // "if", "frag", "format", "ctype", "case"
	falseJumps  []int  // condition-false jump instrs needing patch to next branch/end
	toEndJumps  []int  // unconditional jumps to the construct's end
	loopStart   int    // frag: index of the iteration body's start
	openFragIdx int    // frag: index of the OPEN_FRAG instruction
}

type blockStack struct {
	frames []*blockFrame
}

func (s *blockStack) push(f *blockFrame) { s.frames = append(s.frames, f) }
func (s *blockStack) top() *blockFrame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}
func (s *blockStack) pop() *blockFrame {
	f := s.top()
	if f != nil {
		s.frames = s.frames[:len(s.frames)-1]
	}
	return f
}

// parseInto scans one source's level-1 tokens, dispatching TEXT and
// expression directives to bytecode and threading control-structure
// directives through a shared blockStack.
func (p *Parser) parseInto(src, filename, dir string) {
	lx1 := NewLexer1(src, filename, p.cfg)
	blocks := &blockStack{}
	for {
		tok := lx1.Next()
		switch tok.Kind {
		case TokEOF:
			if len(blocks.frames) > 0 {
				p.errs.Add(tok.Pos, SeverityError, "unclosed block(s) at end of input")
			}
			return
		case TokText:
			text := lx1.Unescape(tok.Body)
			if text != "" {
				p.b.emit(Instruction{Op: OpPushConst, Pos: tok.Pos, Const: ConstString, Str: text})
				p.b.emit(Instruction{Op: OpPrint, Pos: tok.Pos})
			}
		case TokEscExpr:
			p.compileExprBody(tok.Body, tok.Pos)
			p.b.emit(Instruction{Op: OpPrintEsc, Pos: tok.Pos})
		case TokRawExpr:
			p.compileExprBody(tok.Body, tok.Pos)
			p.b.emit(Instruction{Op: OpPrint, Pos: tok.Pos})
		case TokDict:
			p.b.emit(Instruction{Op: OpPushDict, Pos: tok.Pos, Str: strings.TrimSpace(tok.Body)})
			p.b.emit(Instruction{Op: OpPrintEsc, Pos: tok.Pos})
		case TokError:
			p.errs.Add(tok.Pos, SeverityError, "%s", tok.Body)
		case TokTeng, TokTengShort:
			p.parseStatement(tok, blocks, dir)
		}
	}
}

func (p *Parser) compileExprBody(body string, pos Pos) {
	toks := p.scan(body, pos)
	e := &exprParser{toks: toks, p: p}
	e.expr()
	if e.pos < len(e.toks)-1 {
		p.errs.Add(pos, SeverityWarning, "trailing tokens after expression")
	}
}

func (p *Parser) scan(body string, pos Pos) []Lex2Token {
	lx2 := NewLexer2(body, pos, p.cfg.UTF8)
	var toks []Lex2Token
	for {
		t := lx2.Next()
		toks = append(toks, t)
		if t.Kind == L2EOF || t.Kind == L2Error {
			if t.Kind == L2Error {
				p.errs.Add(t.Pos, SeverityError, "%s", t.Text)
			}
			break
		}
	}
	return toks
}

// parseStatement handles one <?teng ...?> / <? ... ?> body, which may
// contain a single statement keyword or a bare expression, which is
// evaluated and its value discarded (only the escape/raw/dict forms
// print).
func (p *Parser) parseStatement(tok Token, blocks *blockStack, dir string) {
	body := strings.TrimSpace(tok.Body)
	toks := p.scan(body, tok.Pos)
	if len(toks) == 0 || toks[0].Kind == L2EOF {
		return
	}
	head := toks[0]
	kw := ""
	if head.Kind == L2Keyword {
		kw = head.Text
	}

	switch kw {
	case "if":
		e := &exprParser{toks: toks[1:], p: p}
		e.expr()
		idx := p.b.emit(Instruction{Op: OpJmpIfFalse, Pos: tok.Pos})
		blocks.push(&blockFrame{kind: "if", falseJumps: []int{idx}})

	case "elif":
		f := blocks.top()
		if f == nil || f.kind != "if" {
			p.errs.Add(tok.Pos, SeverityError, "elif without matching if")
			return
		}
		end := p.b.emit(Instruction{Op: OpJmp, Pos: tok.Pos})
		f.toEndJumps = append(f.toEndJumps, end)
		for _, j := range f.falseJumps {
			p.b.patchJump(j, p.b.here())
		}
		f.falseJumps = nil
		e := &exprParser{toks: toks[1:], p: p}
		e.expr()
		idx := p.b.emit(Instruction{Op: OpJmpIfFalse, Pos: tok.Pos})
		f.falseJumps = append(f.falseJumps, idx)

	case "else":
		f := blocks.top()
		if f == nil || f.kind != "if" {
			p.errs.Add(tok.Pos, SeverityError, "else without matching if")
			return
		}
		end := p.b.emit(Instruction{Op: OpJmp, Pos: tok.Pos})
		f.toEndJumps = append(f.toEndJumps, end)
		for _, j := range f.falseJumps {
			p.b.patchJump(j, p.b.here())
		}
		f.falseJumps = nil

	case "endif":
		f := blocks.pop()
		if f == nil || f.kind != "if" {
			p.errs.Add(tok.Pos, SeverityError, "endif without matching if")
			return
		}
		for _, j := range f.falseJumps {
			p.b.patchJump(j, p.b.here())
		}
		for _, j := range f.toEndJumps {
			p.b.patchJump(j, p.b.here())
		}

	case "frag":
		if len(toks) < 2 || toks[1].Kind != L2Ident {
			p.errs.Add(tok.Pos, SeverityError, "frag requires a fragment name")
			return
		}
		var openIdx int
		if toks[1].Text == "_error" {
			openIdx = p.b.emit(Instruction{Op: OpOpenErrorFrag, Pos: tok.Pos})
		} else {
			ref := parseDottedRef(toks[1:])
			openIdx = p.b.emit(Instruction{Op: OpOpenFrag, Pos: tok.Pos, Var: ref})
		}
		loopStart := p.b.here()
		blocks.push(&blockFrame{kind: "frag", openFragIdx: openIdx, loopStart: loopStart})

	case "endfrag":
		f := blocks.pop()
		if f == nil || f.kind != "frag" {
			p.errs.Add(tok.Pos, SeverityError, "endfrag without matching frag")
			return
		}
		p.b.emit(Instruction{Op: OpRepeatFrag, Pos: tok.Pos, Int: int64(f.loopStart)})
		p.b.emit(Instruction{Op: OpCloseFrag, Pos: tok.Pos})
		p.b.patchJump(f.openFragIdx, p.b.here())

	case "ctype":
		name := ""
		if len(toks) > 1 && toks[1].Kind == L2String {
			name = toks[1].StrV
		}
		p.b.emit(Instruction{Op: OpPushCtype, Pos: tok.Pos, Str: name})
		blocks.push(&blockFrame{kind: "ctype"})

	case "endctype":
		f := blocks.pop()
		if f == nil || f.kind != "ctype" {
			p.errs.Add(tok.Pos, SeverityError, "endctype without matching ctype")
			return
		}
		p.b.emit(Instruction{Op: OpPopCtype, Pos: tok.Pos})

	case "format":
		mode := ""
		arg := 1
		if len(toks) > 3 && toks[1].Text == "space" && toks[2].Text == "=" {
			arg = 3
		}
		if len(toks) > arg {
			mode = toks[arg].Text
			if toks[arg].Kind == L2String {
				mode = toks[arg].StrV
			}
		}
		p.b.emit(Instruction{Op: OpPushFormat, Pos: tok.Pos, Str: mode})
		blocks.push(&blockFrame{kind: "format"})

	case "endformat":
		f := blocks.pop()
		if f == nil || f.kind != "format" {
			p.errs.Add(tok.Pos, SeverityError, "endformat without matching format")
			return
		}
		p.b.emit(Instruction{Op: OpPopFormat, Pos: tok.Pos})

	case "set":
		if len(toks) < 3 || toks[1].Kind != L2Ident || toks[2].Text != "=" {
			p.errs.Add(tok.Pos, SeverityError, "malformed set directive")
			return
		}
		name := toks[1].Text
		e := &exprParser{toks: toks[3:], p: p}
		e.expr()
		p.b.emit(Instruction{Op: OpSetVar, Pos: tok.Pos, Str: name})

	case "include":
		if len(toks) < 2 || toks[1].Kind != L2String {
			p.errs.Add(tok.Pos, SeverityError, "include requires a quoted path")
			return
		}
		p.compileInclude(toks[1].StrV, tok.Pos, dir)

	case "debug":
		p.b.emit(Instruction{Op: OpFunc, Pos: tok.Pos, Str: "debug", Int: 0})

	case "bytecode":
		p.b.emit(Instruction{Op: OpFunc, Pos: tok.Pos, Str: "bytecode", Int: 0})

	case "case":
		e := &exprParser{toks: toks[1:], p: p}
		e.expr()
		blocks.push(&blockFrame{kind: "case"})

	case "endcase":
		f := blocks.pop()
		if f == nil || f.kind != "case" {
			p.errs.Add(tok.Pos, SeverityError, "endcase without matching case")
		}
		p.b.emit(Instruction{Op: OpPop0, Pos: tok.Pos})

	case "break":
		// no-op marker inside case bodies; case compiles to no arm
		// dispatch at all, so break has nothing to do.

	default:
		// bare expression: evaluate and discard.
		e := &exprParser{toks: toks, p: p}
		e.expr()
		p.b.emit(Instruction{Op: OpPop0, Pos: tok.Pos})
	}
}

// compileInclude resolves and splices a nested template, tracking
// include cycles via depth rather than a visited-set (Teng templates
// can legitimately include the same file twice at different points).
func (p *Parser) compileInclude(path string, pos Pos, dir string) {
	if p.depth >= p.maxDepth {
		p.errs.Add(pos, SeverityError, "include depth exceeded, possible cycle at %q", path)
		return
	}
	src, resolved, err := p.resolve(dir, path)
	if err != nil {
		p.errs.Add(pos, SeverityError, "cannot include %q: %v", path, err)
		return
	}
	p.b.addInclude(resolved)
	p.depth++
	p.parseInto(src, resolved, filepath.Dir(resolved))
	p.depth--
}

// parseDottedRef builds a VarRef from an identifier token possibly
// followed by `.ident` continuations.
func parseDottedRef(toks []Lex2Token) VarRef {
	ref := VarRef{Name: toks[0].Text}
	i := 1
	for i+1 < len(toks) && toks[i].Text == "." && toks[i+1].Kind == L2Ident {
		ref.Path = append(ref.Path, toks[i+1].Text)
		i += 2
	}
	return ref
}

// exprParser is a precedence-climbing expression compiler operating
// over a flat token slice for one directive body, emitting directly
// into the shared programBuilder as it descends — the same
// no-retained-tree approach the statement parser uses.
type exprParser struct {
	toks []Lex2Token
	pos  int
	p    *Parser
}

func (e *exprParser) cur() Lex2Token {
	if e.pos >= len(e.toks) {
		return Lex2Token{Kind: L2EOF}
	}
	return e.toks[e.pos]
}

func (e *exprParser) advance() Lex2Token {
	t := e.cur()
	if e.pos < len(e.toks) {
		e.pos++
	}
	return t
}

func (e *exprParser) isOp(s string) bool {
	t := e.cur()
	return t.Kind == L2Op && t.Text == s
}

func (e *exprParser) emit(instr Instruction) { e.p.b.emit(instr) }

// expr parses the ternary/top precedence level and is the entry point
// used by both directive bodies and print forms.
func (e *exprParser) expr() { e.ternary() }

func (e *exprParser) ternary() {
	e.logicalOr()
	if e.isOp("?") {
		pos := e.advance().Pos
		jf := e.p.b.emit(Instruction{Op: OpJmpIfFalse, Pos: pos})
		e.ternary()
		jend := e.p.b.emit(Instruction{Op: OpJmp, Pos: pos})
		e.p.b.patchJump(jf, e.p.b.here())
		if e.isOp(":") {
			e.advance()
		} else {
			e.p.errs.Add(pos, SeverityError, "expected ':' in ternary expression")
		}
		e.ternary()
		e.p.b.patchJump(jend, e.p.b.here())
	}
}

// binaryLevel is a table-driven helper for the many strictly
// left-associative binary precedence levels below the ternary.
type binOpDef struct {
	text string
	op   Opcode
}

func (e *exprParser) logicalOr() {
	e.logicalAnd()
	for e.isOp("||") {
		pos := e.advance().Pos
		keep := e.p.b.emit(Instruction{Op: OpJmpIfTrueKeep, Pos: pos})
		e.p.b.emit(Instruction{Op: OpPop0, Pos: pos})
		e.logicalAnd()
		e.p.b.patchJump(keep, e.p.b.here())
	}
}

func (e *exprParser) logicalAnd() {
	e.bitOr()
	for e.isOp("&&") {
		pos := e.advance().Pos
		keep := e.p.b.emit(Instruction{Op: OpJmpIfFalseKeep, Pos: pos})
		e.p.b.emit(Instruction{Op: OpPop0, Pos: pos})
		e.bitOr()
		e.p.b.patchJump(keep, e.p.b.here())
	}
}

func (e *exprParser) bitOr() {
	e.bitXor()
	for e.isOp("|") {
		pos := e.advance().Pos
		e.bitXor()
		e.emit(Instruction{Op: OpBitOr, Pos: pos})
	}
}

func (e *exprParser) bitXor() {
	e.bitAnd()
	for e.isOp("^") {
		pos := e.advance().Pos
		e.bitAnd()
		e.emit(Instruction{Op: OpBitXor, Pos: pos})
	}
}

func (e *exprParser) bitAnd() {
	e.equality()
	for e.isOp("&") {
		pos := e.advance().Pos
		e.equality()
		e.emit(Instruction{Op: OpBitAnd, Pos: pos})
	}
}

var equalityOps = []binOpDef{{"==", OpEq}, {"!=", OpNe}}
var relationalOps = []binOpDef{{"<=", OpLe}, {">=", OpGe}, {"<", OpLt}, {">", OpGt}}
var regexOps = []binOpDef{{"=~", OpRegexMatch}, {"!~", OpRegexNotMatch}}
var shiftOps = []binOpDef{{"<<", OpShiftLeft}, {">>", OpShiftRight}}
var additiveOps = []binOpDef{{"+", OpAdd}, {"-", OpSub}, {"++", OpConcat}}
var multiplicativeOps = []binOpDef{{"*", OpMul}, {"/", OpDiv}, {"%", OpMod}}

func (e *exprParser) matchAny(defs []binOpDef) (Opcode, Pos, bool) {
	t := e.cur()
	if t.Kind != L2Op {
		return 0, Pos{}, false
	}
	for _, d := range defs {
		if d.text == t.Text {
			e.advance()
			return d.op, t.Pos, true
		}
	}
	return 0, Pos{}, false
}

func (e *exprParser) equality() {
	e.relational()
	for {
		op, pos, ok := e.matchAny(equalityOps)
		if !ok {
			return
		}
		e.relational()
		e.emit(Instruction{Op: op, Pos: pos})
	}
}

func (e *exprParser) relational() {
	e.regexMatch()
	for {
		op, pos, ok := e.matchAny(relationalOps)
		if !ok {
			return
		}
		e.regexMatch()
		e.emit(Instruction{Op: op, Pos: pos})
	}
}

func (e *exprParser) regexMatch() {
	e.shift()
	for {
		op, pos, ok := e.matchAny(regexOps)
		if !ok {
			return
		}
		e.shift()
		e.emit(Instruction{Op: op, Pos: pos})
	}
}

func (e *exprParser) shift() {
	e.additive()
	for {
		op, pos, ok := e.matchAny(shiftOps)
		if !ok {
			return
		}
		e.additive()
		e.emit(Instruction{Op: op, Pos: pos})
	}
}

func (e *exprParser) additive() {
	e.multiplicative()
	for {
		op, pos, ok := e.matchAny(additiveOps)
		if !ok {
			return
		}
		e.multiplicative()
		e.emit(Instruction{Op: op, Pos: pos})
	}
}

func (e *exprParser) multiplicative() {
	e.unary()
	for {
		op, pos, ok := e.matchAny(multiplicativeOps)
		if !ok {
			return
		}
		e.unary()
		e.emit(Instruction{Op: op, Pos: pos})
	}
}

func (e *exprParser) unary() {
	t := e.cur()
	if t.Kind == L2Op && (t.Text == "-" || t.Text == "!" || t.Text == "~") {
		e.advance()
		e.unary()
		switch t.Text {
		case "-":
			e.emit(Instruction{Op: OpNeg, Pos: t.Pos})
		case "!":
			e.emit(Instruction{Op: OpNot, Pos: t.Pos})
		case "~":
			e.emit(Instruction{Op: OpBitNot, Pos: t.Pos})
		}
		return
	}
	e.primary()
}

func (e *exprParser) primary() {
	t := e.cur()
	switch t.Kind {
	case L2Int:
		e.advance()
		e.emit(Instruction{Op: OpPushConst, Pos: t.Pos, Const: ConstInt, Int: t.IntV})
	case L2Real:
		e.advance()
		e.emit(Instruction{Op: OpPushConst, Pos: t.Pos, Const: ConstReal, Real: t.RealV})
	case L2String:
		e.advance()
		e.emit(Instruction{Op: OpPushConst, Pos: t.Pos, Const: ConstString, Str: t.StrV})
	case L2Op:
		if t.Text == "(" {
			e.advance()
			e.expr()
			if e.isOp(")") {
				e.advance()
			} else {
				e.p.errs.Add(t.Pos, SeverityError, "expected ')'")
			}
			return
		}
		if t.Text == "#" {
			e.advance()
			if e.isOp("{") {
				e.advance()
			}
			key := e.collectDictKey()
			e.emit(Instruction{Op: OpPushDict, Pos: t.Pos, Str: key})
			if e.isOp("}") {
				e.advance()
			}
			return
		}
		e.p.errs.Add(t.Pos, SeverityError, "unexpected token %q in expression", t.Text)
		e.advance()
	case L2Keyword:
		switch t.Text {
		case "defined", "exists":
			kw := t.Text
			e.advance()
			if e.isOp("(") {
				e.advance()
			}
			ref := e.identPath()
			e.emit(Instruction{Op: OpPushVar, Pos: t.Pos, Var: ref})
			if kw == "defined" {
				e.emit(Instruction{Op: OpDefined, Pos: t.Pos})
			} else {
				e.emit(Instruction{Op: OpExists, Pos: t.Pos})
			}
			if e.isOp(")") {
				e.advance()
			}
		default:
			e.p.errs.Add(t.Pos, SeverityError, "unexpected keyword %q in expression", t.Text)
			e.advance()
		}
	case L2Ident:
		e.identOrCall()
	default:
		e.p.errs.Add(t.Pos, SeverityError, "unexpected end of expression")
	}
}

// identOrCall parses `name`, `name.a.b`, `_count`, `_index`, `_this`,
// or `name(args)`.
func (e *exprParser) identOrCall() {
	t := e.advance()
	if e.isOp("(") {
		e.advance()
		argc := 0
		for !e.isOp(")") && e.cur().Kind != L2EOF {
			e.expr()
			argc++
			if e.isOp(",") {
				e.advance()
				continue
			}
			break
		}
		if e.isOp(")") {
			e.advance()
		} else {
			e.p.errs.Add(t.Pos, SeverityError, "expected ')' in call to %s", t.Text)
		}
		e.emit(Instruction{Op: OpFunc, Pos: t.Pos, Str: t.Text, Int: int64(argc)})
		return
	}
	switch t.Text {
	case "_count":
		e.emit(Instruction{Op: OpPushFragCount, Pos: t.Pos})
	case "_index":
		e.emit(Instruction{Op: OpPushFragIndex, Pos: t.Pos})
	case "_this":
		e.emit(Instruction{Op: OpPushThisFragIndex, Pos: t.Pos})
	default:
		ref := VarRef{Name: t.Text}
		for e.isOp(".") {
			e.advance()
			if e.cur().Kind != L2Ident {
				e.p.errs.Add(t.Pos, SeverityError, "expected identifier after '.'")
				break
			}
			ref.Path = append(ref.Path, e.advance().Text)
		}
		e.emit(Instruction{Op: OpPushVar, Pos: t.Pos, Var: ref})
	}
}

func (e *exprParser) identPath() VarRef {
	if e.cur().Kind != L2Ident {
		return VarRef{}
	}
	t := e.advance()
	ref := VarRef{Name: t.Text}
	for e.isOp(".") {
		e.advance()
		if e.cur().Kind == L2Ident {
			ref.Path = append(ref.Path, e.advance().Text)
		}
	}
	return ref
}

// collectDictKey reads a dotted identifier as a raw string, used by
// the `#{...}` in-expression dictionary lookup form (distinct from the
// standalone #{key} print token handled at the level-1 lexer stage).
func (e *exprParser) collectDictKey() string {
	var b strings.Builder
	for {
		t := e.cur()
		if t.Kind == L2Ident || t.Kind == L2Keyword {
			b.WriteString(t.Text)
			e.advance()
			if e.isOp(".") {
				b.WriteString(".")
				e.advance()
				continue
			}
		}
		break
	}
	return b.String()
}
