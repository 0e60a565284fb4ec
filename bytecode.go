package teng

// Opcode enumerates the bytecode instruction set of spec.md §4.2. Teng
// compiles directly from grammar reductions into this flat instruction
// stream; there is no retained AST.
type Opcode uint8

const (
	OpNop Opcode = iota

	// stack push
	OpPushConst
	OpPushVar
	OpPushFrag
	OpPushFragCount
	OpPushFragIndex
	OpPushThisFragIndex
	OpPushDict
	OpPushAttr

	// arithmetic (binary, pop 2 push 1)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat // string ++ operator

	// bitwise
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShiftLeft
	OpShiftRight

	// comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpRegexMatch
	OpRegexNotMatch

	// logical
	OpLogicalAnd
	OpLogicalOr

	// unary
	OpNeg
	OpNot
	OpBitNot

	// control flow
	OpJmpIfFalseKeep // for && short-circuit: keep operand, jump if falsy
	OpJmpIfTrueKeep  // for || short-circuit
	OpJmp
	OpJmpIfFalse // pops operand
	OpJmpIfTrue  // pops operand

	// fragment iteration
	OpOpenFrag
	OpCloseFrag
	OpRepeatFrag
	OpOpenErrorFrag

	// output
	OpPrint
	OpPrintEsc
	OpPushFormat
	OpPopFormat
	OpPushCtype
	OpPopCtype

	// variables and functions
	OpSetVar
	OpFunc
	OpDefined
	OpExists
	OpPop0 // discard top of stack, used for statement-expressions

	OpEndProgram
)

func (op Opcode) String() string {
	names := [...]string{
		"NOP",
		"PUSH_CONST", "PUSH_VAR", "PUSH_FRAG", "PUSH_FRAG_COUNT",
		"PUSH_FRAG_INDEX", "PUSH_THIS_FRAG_INDEX", "PUSH_DICT", "PUSH_ATTR",
		"ADD", "SUB", "MUL", "DIV", "MOD", "CONCAT",
		"BIT_AND", "BIT_OR", "BIT_XOR", "SHL", "SHR",
		"EQ", "NE", "LT", "LE", "GT", "GE", "REGEX_MATCH", "REGEX_NOT_MATCH",
		"LOGICAL_AND", "LOGICAL_OR",
		"NEG", "NOT", "BIT_NOT",
		"JMP_IF_FALSE_KEEP", "JMP_IF_TRUE_KEEP", "JMP", "JMP_IF_FALSE", "JMP_IF_TRUE",
		"OPEN_FRAG", "CLOSE_FRAG", "REPEAT_FRAG", "OPEN_ERROR_FRAG",
		"PRINT", "PRINT_ESC", "PUSH_FORMAT", "POP_FORMAT", "PUSH_CTYPE", "POP_CTYPE",
		"SET_VAR", "FUNC", "DEFINED", "EXISTS", "POP0",
		"END_PROGRAM",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// VarRef identifies an identifier lookup by its (context, depth, name)
// coordinates, per spec.md §3: Context selects which open root-chain
// to resolve against (0 = innermost; nonzero opens/targets a chain
// rooted again at the data-tree root), and Depth is how many enclosing
// frag scopes within that chain to walk up from its top (0 = current).
// This parser never emits a nonzero Context — no directive syntax
// here triggers a context switch — so it is always 0 for
// parser-compiled programs; the field and FragmentStack's handling of
// it exist for instruction-set fidelity and for Programs built by
// embedding applications, the same rationale as OpPushFrag/OpPushAttr
// (see DESIGN.md).
type VarRef struct {
	Context int
	Depth   int // number of enclosing frag scopes to walk up; 0 = current
	Name    string
	Path    []string // dotted attribute path beyond Name, for a.b.c lookups
}

// Instruction is one bytecode instruction: an opcode plus whichever of
// the operand fields it uses, and the source position for diagnostics
// raised while executing it.
type Instruction struct {
	Op       Opcode
	Pos      Pos
	Const    ConstKind // which of Int/Real/Str a PUSH_CONST carries
	Int      int64     // PUSH_CONST(int), jump target, arg count for FUNC
	Real     float64
	Str      string // PUSH_CONST(string), PUSH_DICT key, FUNC name, format spec
	Var      VarRef
}

// ConstKind disambiguates the payload of a PUSH_CONST instruction; a
// bare zero value would otherwise be indistinguishable from an unset
// Int/Real field.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstInt
	ConstReal
	ConstString
)

// Program is an immutable compiled unit: a whole template's directive
// and TEXT-emitting instructions in source order, each instruction
// carrying its constants and identifiers inline (there are no separate
// pools). Programs never mutate after Compile
// returns, so a single *Program is safely shared across concurrent
// renders (spec.md §7 "at most one build in flight").
type Program struct {
	Instrs   []Instruction
	Source   string // filename or "<string>"
	Includes []string
}

// Len returns the instruction count.
func (p *Program) Len() int { return len(p.Instrs) }

// programBuilder accumulates instructions during compilation and
// patches forward jump targets once the parser (which tracks the
// pending jumps in its blockFrames) knows them. Bytecode is emitted
// directly from parser actions, with no separate codegen pass over an
// AST.
type programBuilder struct {
	instrs   []Instruction
	source   string
	includes []string
}

func newProgramBuilder(source string) *programBuilder {
	return &programBuilder{source: source}
}

// emit appends an instruction and returns its index, used as a jump
// target by callers that need to backpatch it later.
func (b *programBuilder) emit(instr Instruction) int {
	b.instrs = append(b.instrs, instr)
	return len(b.instrs) - 1
}

// here returns the index the next emitted instruction will occupy.
func (b *programBuilder) here() int { return len(b.instrs) }

// patchJump sets the jump target of the instruction at idx to dest.
func (b *programBuilder) patchJump(idx, dest int) {
	b.instrs[idx].Int = int64(dest)
}

func (b *programBuilder) addInclude(path string) { b.includes = append(b.includes, path) }

func (b *programBuilder) build() *Program {
	return &Program{Instrs: b.instrs, Source: b.source, Includes: b.includes}
}
