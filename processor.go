package teng

import (
	"fmt"
	"io"
)

// BuiltinFunc implements one FUNC dispatch target. args are already
// evaluated and in left-to-right order; pos is the call site for
// diagnostics.
type BuiltinFunc func(p *Processor, args []Value, pos Pos) Value

// Processor is the stack-based bytecode interpreter of spec.md §4.2: it
// walks a Program's flat instruction stream maintaining an operand
// stack, a FragmentStack for identifier resolution, a content-type
// stack for PRINT_ESC, and a Formatter for whitespace handling.
// Grounded on spec.md §4.6 and the teacher's node.render(ctx, w)
// dispatch generalized into a for-pc instruction loop; the arithmetic
// opcodes further follow original_source/src/tengfp.h's
// exception-checked division and modulo.
type Processor struct {
	prog     *Program
	errs     *ErrorLog
	stack    []Value
	fstack   *FragmentStack
	fmtr     *Formatter
	ctypes   []*ContentType
	dict     *Dictionary
	builtins map[string]BuiltinFunc
	pc       int
}

// NewProcessor builds a processor ready to execute prog against root,
// writing to w, escaping through the named default content type, and
// resolving dictionary lookups against dict (may be nil).
func NewProcessor(prog *Program, root *Fragment, w io.Writer, defaultCtype string, dict *Dictionary, errs *ErrorLog) *Processor {
	ct, _ := defaultContentTypes.Lookup(defaultCtype)
	return &Processor{
		prog:     prog,
		errs:     errs,
		fstack:   NewFragmentStack(root),
		fmtr:     NewFormatter(w),
		ctypes:   []*ContentType{ct},
		dict:     dict,
		builtins: builtinFuncs,
	}
}

func (p *Processor) push(v Value) { p.stack = append(p.stack, v) }

func (p *Processor) pop() Value {
	n := len(p.stack)
	if n == 0 {
		return Undefined
	}
	v := p.stack[n-1]
	p.stack = p.stack[:n-1]
	return v
}

func (p *Processor) top() Value {
	if len(p.stack) == 0 {
		return Undefined
	}
	return p.stack[len(p.stack)-1]
}

func (p *Processor) curCtype() *ContentType {
	if len(p.ctypes) == 0 {
		return nil
	}
	return p.ctypes[len(p.ctypes)-1]
}

// Run executes the program to completion (END_PROGRAM or falling off
// the end) and flushes the formatter. It returns an error only for
// genuine Go-level I/O failures; template-level problems go into the
// error log instead, per SPEC_FULL.md §2 "error handling".
func (p *Processor) Run() error {
	instrs := p.prog.Instrs
	for p.pc = 0; p.pc < len(instrs); {
		instr := instrs[p.pc]
		if instr.Op == OpEndProgram {
			break
		}
		p.step(instr)
	}
	if err := p.fmtr.Flush(); err != nil {
		return fmt.Errorf("teng: write output: %w", err)
	}
	return nil
}

// step executes one instruction and advances p.pc, except for jump
// opcodes which set it directly.
func (p *Processor) step(instr Instruction) {
	next := p.pc + 1
	switch instr.Op {
	case OpNop:

	case OpPushConst:
		switch instr.Const {
		case ConstInt:
			p.push(IntValue(instr.Int))
		case ConstReal:
			p.push(RealValue(instr.Real))
		case ConstString:
			p.push(StringValue(instr.Str))
		default:
			p.push(Undefined)
		}

	case OpPushVar:
		v, status := p.fstack.FindVariable(instr.Var)
		if status != LookupOK {
			p.push(Undefined)
		} else {
			p.push(v)
		}

	case OpPushFrag:
		if fv, ok := p.fstack.LookupFragmentValue(instr.Var); ok && fv.Kind == FVFragment {
			p.push(FragmentRefValue(fv.Nested, 0))
		} else {
			p.push(Undefined)
		}

	case OpPushFragCount:
		p.push(IntValue(p.fstack.FragmentCount()))
	case OpPushFragIndex:
		p.push(IntValue(p.fstack.FragmentIndex()))
	case OpPushThisFragIndex:
		p.push(IntValue(p.fstack.FragmentIndex()))

	case OpPushDict:
		if p.dict != nil {
			if v, ok := p.dict.Lookup(instr.Str); ok {
				p.push(StringValue(v))
				break
			}
		}
		p.errs.Add(instr.Pos, SeverityWarning, "dictionary key %q not found", instr.Str)
		p.push(StringValue("#{" + instr.Str + "}"))

	case OpPushAttr:
		container := p.pop()
		p.push(p.attrOf(container, instr.Str, instr.Pos))

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpConcat,
		OpBitAnd, OpBitOr, OpBitXor, OpShiftLeft, OpShiftRight:
		b, a := p.pop(), p.pop()
		p.push(p.binary(instr.Op, a, b, instr.Pos))

	case OpEq:
		b, a := p.pop(), p.pop()
		p.push(boolValue(Equal(a, b)))
	case OpNe:
		b, a := p.pop(), p.pop()
		p.push(boolValue(!Equal(a, b)))
	case OpLt:
		b, a := p.pop(), p.pop()
		p.push(boolValue(Compare(a, b) < 0))
	case OpLe:
		b, a := p.pop(), p.pop()
		p.push(boolValue(Compare(a, b) <= 0))
	case OpGt:
		b, a := p.pop(), p.pop()
		p.push(boolValue(Compare(a, b) > 0))
	case OpGe:
		b, a := p.pop(), p.pop()
		p.push(boolValue(Compare(a, b) >= 0))

	case OpRegexMatch, OpRegexNotMatch:
		b, a := p.pop(), p.pop()
		p.push(p.regexTest(instr.Op, a, b, instr.Pos))

	case OpLogicalAnd:
		b, a := p.pop(), p.pop()
		p.push(boolValue(a.Bool() && b.Bool()))
	case OpLogicalOr:
		b, a := p.pop(), p.pop()
		p.push(boolValue(a.Bool() || b.Bool()))

	case OpNeg:
		a := p.pop()
		if a.Tag == TagInt {
			p.push(IntValue(-a.Int))
		} else {
			p.push(RealValue(-a.Float64()))
		}
	case OpNot:
		p.push(boolValue(!p.pop().Bool()))
	case OpBitNot:
		p.push(IntValue(^p.pop().Int64()))

	case OpJmpIfFalseKeep:
		if !p.top().Bool() {
			p.pc = int(instr.Int)
			return
		}
	case OpJmpIfTrueKeep:
		if p.top().Bool() {
			p.pc = int(instr.Int)
			return
		}
	case OpJmp:
		p.pc = int(instr.Int)
		return
	case OpJmpIfFalse:
		if !p.pop().Bool() {
			p.pc = int(instr.Int)
			return
		}
	case OpJmpIfTrue:
		if p.pop().Bool() {
			p.pc = int(instr.Int)
			return
		}

	case OpOpenFrag:
		n, status := p.fstack.PushFrag(instr.Var)
		if status != LookupOK {
			p.errs.Add(instr.Pos, SeverityDiag, "fragment %q not found or not iterable", instr.Var.Name)
		}
		if n == 0 {
			p.pc = int(instr.Int)
			return
		}
	case OpRepeatFrag:
		if p.fstack.NextIteration() {
			p.pc = int(instr.Int)
			return
		}
	case OpCloseFrag:
		p.fstack.PopFrag()
	case OpOpenErrorFrag:
		n := p.fstack.PushErrorFrag(p.errs)
		if n == 0 {
			p.pc = int(instr.Int)
			return
		}

	case OpPrint:
		p.fmtr.Write(p.pop().String())
	case OpPrintEsc:
		p.fmtr.Write(p.curCtype().Escape(p.pop().String()))

	case OpPushFormat:
		p.fmtr.Push(instr.Str)
	case OpPopFormat:
		p.fmtr.Pop()
	case OpPushCtype:
		ct, ok := defaultContentTypes.Lookup(instr.Str)
		if !ok {
			p.errs.Add(instr.Pos, SeverityWarning, "unknown content type %q", instr.Str)
		}
		p.ctypes = append(p.ctypes, ct)
	case OpPopCtype:
		if len(p.ctypes) > 1 {
			p.ctypes = p.ctypes[:len(p.ctypes)-1]
		}

	case OpSetVar:
		p.fstack.SetVariable(instr.Str, p.pop())

	case OpFunc:
		p.execFunc(instr)

	case OpDefined, OpExists:
		p.push(boolValue(!p.pop().IsUndefined()))

	case OpPop0:
		p.pop()
	}
	p.pc = next
}

func boolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

func (p *Processor) attrOf(container Value, name string, pos Pos) Value {
	if container.Tag != TagFragmentRef {
		p.errs.Add(pos, SeverityDiag, "attribute %q requested on non-fragment value", name)
		return Undefined
	}
	fv, ok := container.Frag.Frag.Find(name)
	if !ok {
		return Undefined
	}
	switch fv.Kind {
	case FVScalar:
		return fv.Scalar
	case FVFragment:
		return FragmentRefValue(fv.Nested, 0)
	case FVList:
		return ListRefValue(fv.List, 0)
	}
	return Undefined
}

func (p *Processor) execFunc(instr Instruction) {
	argc := int(instr.Int)
	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = p.pop()
	}
	switch instr.Str {
	case "debug":
		p.errs.Add(instr.Pos, SeverityDebug, "debug: operand stack depth=%d, fragment depth=%d", len(p.stack), len(p.fstack.curChain().frames))
		return
	case "bytecode":
		p.errs.Add(instr.Pos, SeverityDebug, "bytecode: %d instructions, pc=%d", len(p.prog.Instrs), p.pc)
		return
	}
	fn, ok := p.builtins[instr.Str]
	if !ok {
		p.errs.Add(instr.Pos, SeverityError, "unknown function %q", instr.Str)
		p.push(Undefined)
		return
	}
	p.push(fn(p, args, instr.Pos))
}
