package optimizer

import (
	"math"

	"github.com/tetratelabs/wasm2spirv/internal/spirv"
)

// foldable are the instructions evaluate knows. Every operand is an id.
var foldable = map[spirv.Opcode]bool{
	spirv.OpIAdd: true, spirv.OpISub: true, spirv.OpIMul: true,
	spirv.OpUDiv: true, spirv.OpSDiv: true, spirv.OpUMod: true, spirv.OpSRem: true, spirv.OpSMod: true,
	spirv.OpSNegate: true, spirv.OpNot: true,
	spirv.OpBitwiseAnd: true, spirv.OpBitwiseOr: true, spirv.OpBitwiseXor: true,
	spirv.OpShiftLeftLogical: true, spirv.OpShiftRightLogical: true, spirv.OpShiftRightArithmetic: true,
	spirv.OpIEqual: true, spirv.OpINotEqual: true,
	spirv.OpULessThan: true, spirv.OpULessThanEqual: true, spirv.OpUGreaterThan: true, spirv.OpUGreaterThanEqual: true,
	spirv.OpSLessThan: true, spirv.OpSLessThanEqual: true, spirv.OpSGreaterThan: true, spirv.OpSGreaterThanEqual: true,
	spirv.OpFAdd: true, spirv.OpFSub: true, spirv.OpFMul: true, spirv.OpFDiv: true, spirv.OpFNegate: true,
	spirv.OpFOrdEqual: true, spirv.OpFUnordEqual: true, spirv.OpFOrdNotEqual: true, spirv.OpFUnordNotEqual: true,
	spirv.OpFOrdLessThan: true, spirv.OpFUnordLessThan: true, spirv.OpFOrdLessThanEqual: true, spirv.OpFUnordLessThanEqual: true,
	spirv.OpFOrdGreaterThan: true, spirv.OpFUnordGreaterThan: true,
	spirv.OpFOrdGreaterThanEqual: true, spirv.OpFUnordGreaterThanEqual: true,
	spirv.OpIsNan: true, spirv.OpIsInf: true,
	spirv.OpLogicalAnd: true, spirv.OpLogicalOr: true, spirv.OpLogicalNot: true,
	spirv.OpLogicalEqual: true, spirv.OpLogicalNotEqual: true,
	spirv.OpBitcast: true, spirv.OpUConvert: true, spirv.OpSConvert: true, spirv.OpFConvert: true,
	spirv.OpConvertUToF: true, spirv.OpConvertSToF: true, spirv.OpConvertFToU: true, spirv.OpConvertFToS: true,
}

func mask(width uint32) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return 1<<width - 1
}

// signed sign-extends the low width bits of v.
func signed(v uint64, width uint32) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}

func toFloat(v uint64, width uint32) float64 {
	if width == 32 {
		return float64(math.Float32frombits(uint32(v)))
	}
	return math.Float64frombits(v)
}

func fromFloat(f float64, width uint32) uint64 {
	if width == 32 {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}

func fromBool(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// evaluate computes op over constant args, where rt is the result type and at the type of the first operand.
// It returns false when the result is undefined, so the instruction is left for the device to evaluate.
func evaluate(op spirv.Opcode, rt, at scalar, args []uint64) (uint64, bool) {
	switch at.kind {
	case kindInt:
		if op == spirv.OpBitcast || isConversion(op) {
			return convert(op, rt, at, args[0])
		}
		return evaluateInt(op, at.width, args)
	case kindFloat:
		if op == spirv.OpBitcast || isConversion(op) {
			return convert(op, rt, at, args[0])
		}
		return evaluateFloat(op, at.width, args)
	case kindBool:
		return evaluateBool(op, args)
	}
	return 0, false
}

func isConversion(op spirv.Opcode) bool {
	switch op {
	case spirv.OpUConvert, spirv.OpSConvert, spirv.OpFConvert,
		spirv.OpConvertUToF, spirv.OpConvertSToF, spirv.OpConvertFToU, spirv.OpConvertFToS:
		return true
	}
	return false
}

func evaluateInt(op spirv.Opcode, width uint32, args []uint64) (uint64, bool) {
	m := mask(width)
	a := args[0] & m
	if len(args) == 1 {
		switch op {
		case spirv.OpNot:
			return ^a & m, true
		case spirv.OpSNegate:
			return -a & m, true
		}
		return 0, false
	}

	b := args[1] & m
	sa, sb := signed(a, width), signed(b, width)
	switch op {
	case spirv.OpIAdd:
		return (a + b) & m, true
	case spirv.OpISub:
		return (a - b) & m, true
	case spirv.OpIMul:
		return (a * b) & m, true
	case spirv.OpUDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case spirv.OpUMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case spirv.OpSDiv, spirv.OpSRem, spirv.OpSMod:
		if b == 0 || (sb == -1 && sa == signed(1<<(width-1), width)) {
			return 0, false
		}
		switch op {
		case spirv.OpSDiv:
			return uint64(sa/sb) & m, true
		case spirv.OpSRem:
			return uint64(sa%sb) & m, true
		}
		r := sa % sb
		if r != 0 && (r < 0) != (sb < 0) {
			r += sb
		}
		return uint64(r) & m, true
	case spirv.OpBitwiseAnd:
		return a & b, true
	case spirv.OpBitwiseOr:
		return a | b, true
	case spirv.OpBitwiseXor:
		return a ^ b, true
	case spirv.OpShiftLeftLogical, spirv.OpShiftRightLogical, spirv.OpShiftRightArithmetic:
		if b >= uint64(width) {
			return 0, false
		}
		switch op {
		case spirv.OpShiftLeftLogical:
			return (a << b) & m, true
		case spirv.OpShiftRightLogical:
			return a >> b, true
		}
		return uint64(sa>>b) & m, true
	case spirv.OpIEqual:
		return fromBool(a == b), true
	case spirv.OpINotEqual:
		return fromBool(a != b), true
	case spirv.OpULessThan:
		return fromBool(a < b), true
	case spirv.OpULessThanEqual:
		return fromBool(a <= b), true
	case spirv.OpUGreaterThan:
		return fromBool(a > b), true
	case spirv.OpUGreaterThanEqual:
		return fromBool(a >= b), true
	case spirv.OpSLessThan:
		return fromBool(sa < sb), true
	case spirv.OpSLessThanEqual:
		return fromBool(sa <= sb), true
	case spirv.OpSGreaterThan:
		return fromBool(sa > sb), true
	case spirv.OpSGreaterThanEqual:
		return fromBool(sa >= sb), true
	}
	return 0, false
}

func evaluateFloat(op spirv.Opcode, width uint32, args []uint64) (uint64, bool) {
	x := toFloat(args[0], width)
	switch op {
	case spirv.OpFNegate:
		// The sign bit flips even for NaN.
		if width == 32 {
			return (args[0] ^ 1<<31) & mask(32), true
		}
		return args[0] ^ 1<<63, true
	case spirv.OpIsNan:
		return fromBool(math.IsNaN(x)), true
	case spirv.OpIsInf:
		return fromBool(math.IsInf(x, 0)), true
	}
	if len(args) != 2 {
		return 0, false
	}

	// Rounding a float64 sum, difference, product or quotient of float32 values gives the float32 result.
	y := toFloat(args[1], width)
	nan := math.IsNaN(x) || math.IsNaN(y)
	switch op {
	case spirv.OpFAdd:
		return fromFloat(x+y, width), true
	case spirv.OpFSub:
		return fromFloat(x-y, width), true
	case spirv.OpFMul:
		return fromFloat(x*y, width), true
	case spirv.OpFDiv:
		return fromFloat(x/y, width), true
	case spirv.OpFOrdEqual:
		return fromBool(!nan && x == y), true
	case spirv.OpFUnordEqual:
		return fromBool(nan || x == y), true
	case spirv.OpFOrdNotEqual:
		return fromBool(!nan && x != y), true
	case spirv.OpFUnordNotEqual:
		return fromBool(nan || x != y), true
	case spirv.OpFOrdLessThan:
		return fromBool(!nan && x < y), true
	case spirv.OpFUnordLessThan:
		return fromBool(nan || x < y), true
	case spirv.OpFOrdLessThanEqual:
		return fromBool(!nan && x <= y), true
	case spirv.OpFUnordLessThanEqual:
		return fromBool(nan || x <= y), true
	case spirv.OpFOrdGreaterThan:
		return fromBool(!nan && x > y), true
	case spirv.OpFUnordGreaterThan:
		return fromBool(nan || x > y), true
	case spirv.OpFOrdGreaterThanEqual:
		return fromBool(!nan && x >= y), true
	case spirv.OpFUnordGreaterThanEqual:
		return fromBool(nan || x >= y), true
	}
	return 0, false
}

func evaluateBool(op spirv.Opcode, args []uint64) (uint64, bool) {
	a := args[0] != 0
	if op == spirv.OpLogicalNot {
		return fromBool(!a), true
	}
	if len(args) != 2 {
		return 0, false
	}
	b := args[1] != 0
	switch op {
	case spirv.OpLogicalAnd:
		return fromBool(a && b), true
	case spirv.OpLogicalOr:
		return fromBool(a || b), true
	case spirv.OpLogicalEqual:
		return fromBool(a == b), true
	case spirv.OpLogicalNotEqual:
		return fromBool(a != b), true
	}
	return 0, false
}

// convert evaluates a bitcast or conversion of v from at to rt.
func convert(op spirv.Opcode, rt, at scalar, v uint64) (uint64, bool) {
	v &= mask(at.width)
	switch op {
	case spirv.OpBitcast:
		if rt.width != at.width || rt.kind == kindBool {
			return 0, false
		}
		return v, true
	case spirv.OpUConvert:
		return v & mask(rt.width), true
	case spirv.OpSConvert:
		return uint64(signed(v, at.width)) & mask(rt.width), true
	case spirv.OpFConvert:
		return fromFloat(toFloat(v, at.width), rt.width), true
	case spirv.OpConvertUToF:
		if rt.width == 32 {
			return uint64(math.Float32bits(float32(v))), true
		}
		return math.Float64bits(float64(v)), true
	case spirv.OpConvertSToF:
		s := signed(v, at.width)
		if rt.width == 32 {
			return uint64(math.Float32bits(float32(s))), true
		}
		return math.Float64bits(float64(s)), true
	case spirv.OpConvertFToU:
		f := math.Trunc(toFloat(v, at.width))
		if !(f > -1 && f < math.Ldexp(1, int(rt.width))) {
			return 0, false
		}
		return uint64(f), true
	case spirv.OpConvertFToS:
		f := math.Trunc(toFloat(v, at.width))
		limit := math.Ldexp(1, int(rt.width)-1)
		if !(f >= -limit && f < limit) {
			return 0, false
		}
		return uint64(int64(f)) & mask(rt.width), true
	}
	return 0, false
}
