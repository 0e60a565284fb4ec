package teng

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// binary evaluates one arithmetic/bitwise/concat opcode against a and
// b, guarding against the same failure modes original_source/src/
// tengfp.h's floating-point exception wrapper does — division and
// modulo by zero, and NaN/Inf results — by logging a diagnostic and
// yielding Undefined instead of panicking or propagating an
// unrepresentable value (SPEC_FULL.md §4 "fp-exception guard").
func (p *Processor) binary(op Opcode, a, b Value, pos Pos) Value {
	switch op {
	case OpConcat:
		return StringValue(a.String() + b.String())
	case OpBitAnd:
		return IntValue(a.Int64() & b.Int64())
	case OpBitOr:
		return IntValue(a.Int64() | b.Int64())
	case OpBitXor:
		return IntValue(a.Int64() ^ b.Int64())
	case OpShiftLeft:
		return IntValue(a.Int64() << uint64(b.Int64()&63))
	case OpShiftRight:
		return IntValue(a.Int64() >> uint64(b.Int64()&63))
	}

	bothInt := a.Tag == TagInt && b.Tag == TagInt
	if !isArithmeticOperand(a) || !isArithmeticOperand(b) {
		if a.IsUndefined() || b.IsUndefined() {
			// undefined propagates as undefined, not as a logged error
			return Undefined
		}
		p.errs.Add(pos, SeverityDiag, "arithmetic on non-numeric operand")
		return Undefined
	}

	if bothInt {
		ai, bi := a.Int, b.Int
		switch op {
		case OpAdd:
			return IntValue(ai + bi)
		case OpSub:
			return IntValue(ai - bi)
		case OpMul:
			return IntValue(ai * bi)
		case OpDiv:
			if bi == 0 {
				p.errs.Add(pos, SeverityDiag, "division by zero")
				return Undefined
			}
			return IntValue(ai / bi)
		case OpMod:
			if bi == 0 {
				p.errs.Add(pos, SeverityDiag, "modulo by zero")
				return Undefined
			}
			return IntValue(ai % bi)
		}
	}

	af, bf := a.Float64(), b.Float64()
	var r float64
	switch op {
	case OpAdd:
		r = af + bf
	case OpSub:
		r = af - bf
	case OpMul:
		r = af * bf
	case OpDiv:
		if bf == 0 {
			p.errs.Add(pos, SeverityDiag, "division by zero")
			return Undefined
		}
		r = af / bf
	case OpMod:
		if bf == 0 {
			p.errs.Add(pos, SeverityDiag, "modulo by zero")
			return Undefined
		}
		r = math.Mod(af, bf)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		p.errs.Add(pos, SeverityDiag, "arithmetic result is not a finite number")
		return Undefined
	}
	return RealValue(r)
}

// isArithmeticOperand reports whether v can take part in arithmetic:
// an int/real directly, or a string that parses as a number, matching
// original_source's implicit string-to-number coercion (spec.md §8
// scenario 5, `${1 + "2"}` must render "3").
func isArithmeticOperand(v Value) bool {
	if v.IsNumeric() {
		return true
	}
	if v.Tag == TagString || v.Tag == TagStringRef {
		_, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return err == nil
	}
	return false
}

// regexTest implements =~ and !~ against a compiled or ad hoc pattern.
// A malformed pattern logs an error and evaluates to false rather than
// aborting the render.
func (p *Processor) regexTest(op Opcode, a, b Value, pos Pos) Value {
	pattern := b.String()
	re, err := regexp.Compile(pattern)
	if err != nil {
		p.errs.Add(pos, SeverityDiag, "invalid regular expression %q: %v", pattern, err)
		return boolValue(false)
	}
	matched := re.MatchString(a.String())
	if op == OpRegexNotMatch {
		matched = !matched
	}
	return boolValue(matched)
}
