package compiler

import (
	"math"

	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

type numericOp struct {
	t  wasm.ValueType
	op spirv.Opcode
}

const (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
	f32 = wasm.ValueTypeF32
	f64 = wasm.ValueTypeF64
)

var binaryOps = map[wasm.Opcode]numericOp{
	wasm.OpcodeI32Add:  {i32, spirv.OpIAdd},
	wasm.OpcodeI32Sub:  {i32, spirv.OpISub},
	wasm.OpcodeI32Mul:  {i32, spirv.OpIMul},
	wasm.OpcodeI32DivS: {i32, spirv.OpSDiv},
	wasm.OpcodeI32DivU: {i32, spirv.OpUDiv},
	wasm.OpcodeI32RemS: {i32, spirv.OpSRem},
	wasm.OpcodeI32RemU: {i32, spirv.OpUMod},
	wasm.OpcodeI32And:  {i32, spirv.OpBitwiseAnd},
	wasm.OpcodeI32Or:   {i32, spirv.OpBitwiseOr},
	wasm.OpcodeI32Xor:  {i32, spirv.OpBitwiseXor},
	wasm.OpcodeI64Add:  {i64, spirv.OpIAdd},
	wasm.OpcodeI64Sub:  {i64, spirv.OpISub},
	wasm.OpcodeI64Mul:  {i64, spirv.OpIMul},
	wasm.OpcodeI64DivS: {i64, spirv.OpSDiv},
	wasm.OpcodeI64DivU: {i64, spirv.OpUDiv},
	wasm.OpcodeI64RemS: {i64, spirv.OpSRem},
	wasm.OpcodeI64RemU: {i64, spirv.OpUMod},
	wasm.OpcodeI64And:  {i64, spirv.OpBitwiseAnd},
	wasm.OpcodeI64Or:   {i64, spirv.OpBitwiseOr},
	wasm.OpcodeI64Xor:  {i64, spirv.OpBitwiseXor},
	wasm.OpcodeF32Add:  {f32, spirv.OpFAdd},
	wasm.OpcodeF32Sub:  {f32, spirv.OpFSub},
	wasm.OpcodeF32Mul:  {f32, spirv.OpFMul},
	wasm.OpcodeF32Div:  {f32, spirv.OpFDiv},
	wasm.OpcodeF64Add:  {f64, spirv.OpFAdd},
	wasm.OpcodeF64Sub:  {f64, spirv.OpFSub},
	wasm.OpcodeF64Mul:  {f64, spirv.OpFMul},
	wasm.OpcodeF64Div:  {f64, spirv.OpFDiv},
}

// compareOps produce a bool. Float ne is unordered: it is true when either operand is NaN.
var compareOps = map[wasm.Opcode]numericOp{
	wasm.OpcodeI32Eq:  {i32, spirv.OpIEqual},
	wasm.OpcodeI32Ne:  {i32, spirv.OpINotEqual},
	wasm.OpcodeI32LtS: {i32, spirv.OpSLessThan},
	wasm.OpcodeI32LtU: {i32, spirv.OpULessThan},
	wasm.OpcodeI32GtS: {i32, spirv.OpSGreaterThan},
	wasm.OpcodeI32GtU: {i32, spirv.OpUGreaterThan},
	wasm.OpcodeI32LeS: {i32, spirv.OpSLessThanEqual},
	wasm.OpcodeI32LeU: {i32, spirv.OpULessThanEqual},
	wasm.OpcodeI32GeS: {i32, spirv.OpSGreaterThanEqual},
	wasm.OpcodeI32GeU: {i32, spirv.OpUGreaterThanEqual},
	wasm.OpcodeI64Eq:  {i64, spirv.OpIEqual},
	wasm.OpcodeI64Ne:  {i64, spirv.OpINotEqual},
	wasm.OpcodeI64LtS: {i64, spirv.OpSLessThan},
	wasm.OpcodeI64LtU: {i64, spirv.OpULessThan},
	wasm.OpcodeI64GtS: {i64, spirv.OpSGreaterThan},
	wasm.OpcodeI64GtU: {i64, spirv.OpUGreaterThan},
	wasm.OpcodeI64LeS: {i64, spirv.OpSLessThanEqual},
	wasm.OpcodeI64LeU: {i64, spirv.OpULessThanEqual},
	wasm.OpcodeI64GeS: {i64, spirv.OpSGreaterThanEqual},
	wasm.OpcodeI64GeU: {i64, spirv.OpUGreaterThanEqual},
	wasm.OpcodeF32Eq:  {f32, spirv.OpFOrdEqual},
	wasm.OpcodeF32Ne:  {f32, spirv.OpFUnordNotEqual},
	wasm.OpcodeF32Lt:  {f32, spirv.OpFOrdLessThan},
	wasm.OpcodeF32Gt:  {f32, spirv.OpFOrdGreaterThan},
	wasm.OpcodeF32Le:  {f32, spirv.OpFOrdLessThanEqual},
	wasm.OpcodeF32Ge:  {f32, spirv.OpFOrdGreaterThanEqual},
	wasm.OpcodeF64Eq:  {f64, spirv.OpFOrdEqual},
	wasm.OpcodeF64Ne:  {f64, spirv.OpFUnordNotEqual},
	wasm.OpcodeF64Lt:  {f64, spirv.OpFOrdLessThan},
	wasm.OpcodeF64Gt:  {f64, spirv.OpFOrdGreaterThan},
	wasm.OpcodeF64Le:  {f64, spirv.OpFOrdLessThanEqual},
	wasm.OpcodeF64Ge:  {f64, spirv.OpFOrdGreaterThanEqual},
}

// shiftOps take the shift count modulo the width.
var shiftOps = map[wasm.Opcode]numericOp{
	wasm.OpcodeI32Shl:  {i32, spirv.OpShiftLeftLogical},
	wasm.OpcodeI32ShrS: {i32, spirv.OpShiftRightArithmetic},
	wasm.OpcodeI32ShrU: {i32, spirv.OpShiftRightLogical},
	wasm.OpcodeI64Shl:  {i64, spirv.OpShiftLeftLogical},
	wasm.OpcodeI64ShrS: {i64, spirv.OpShiftRightArithmetic},
	wasm.OpcodeI64ShrU: {i64, spirv.OpShiftRightLogical},
}

type conversion struct {
	from, to wasm.ValueType
	op       spirv.Opcode
}

var conversions = map[wasm.Opcode]conversion{
	wasm.OpcodeI32WrapI64:        {i64, i32, spirv.OpUConvert},
	wasm.OpcodeI64ExtendI32S:     {i32, i64, spirv.OpSConvert},
	wasm.OpcodeI64ExtendI32U:     {i32, i64, spirv.OpUConvert},
	wasm.OpcodeF32ConvertI32S:    {i32, f32, spirv.OpConvertSToF},
	wasm.OpcodeF32ConvertI32U:    {i32, f32, spirv.OpConvertUToF},
	wasm.OpcodeF32ConvertI64S:    {i64, f32, spirv.OpConvertSToF},
	wasm.OpcodeF32ConvertI64U:    {i64, f32, spirv.OpConvertUToF},
	wasm.OpcodeF64ConvertI32S:    {i32, f64, spirv.OpConvertSToF},
	wasm.OpcodeF64ConvertI32U:    {i32, f64, spirv.OpConvertUToF},
	wasm.OpcodeF64ConvertI64S:    {i64, f64, spirv.OpConvertSToF},
	wasm.OpcodeF64ConvertI64U:    {i64, f64, spirv.OpConvertUToF},
	wasm.OpcodeF32DemoteF64:      {f64, f32, spirv.OpFConvert},
	wasm.OpcodeF64PromoteF32:     {f32, f64, spirv.OpFConvert},
	wasm.OpcodeI32ReinterpretF32: {f32, i32, spirv.OpBitcast},
	wasm.OpcodeI64ReinterpretF64: {f64, i64, spirv.OpBitcast},
	wasm.OpcodeF32ReinterpretI32: {i32, f32, spirv.OpBitcast},
	wasm.OpcodeF64ReinterpretI64: {i64, f64, spirv.OpBitcast},
}

type truncation struct {
	from, to wasm.ValueType
	signed   bool
}

// truncations trap in wasm when the result is out of range. A shader cannot trap, so they saturate like their
// non-trapping counterparts.
var truncations = map[wasm.Opcode]truncation{
	wasm.OpcodeI32TruncF32S: {f32, i32, true},
	wasm.OpcodeI32TruncF32U: {f32, i32, false},
	wasm.OpcodeI32TruncF64S: {f64, i32, true},
	wasm.OpcodeI32TruncF64U: {f64, i32, false},
	wasm.OpcodeI64TruncF32S: {f32, i64, true},
	wasm.OpcodeI64TruncF32U: {f32, i64, false},
	wasm.OpcodeI64TruncF64S: {f64, i64, true},
	wasm.OpcodeI64TruncF64U: {f64, i64, false},
}

var saturatingTruncations = map[wasm.OpcodeMisc]truncation{
	wasm.OpcodeMiscI32TruncSatF32S: {f32, i32, true},
	wasm.OpcodeMiscI32TruncSatF32U: {f32, i32, false},
	wasm.OpcodeMiscI32TruncSatF64S: {f64, i32, true},
	wasm.OpcodeMiscI32TruncSatF64U: {f64, i32, false},
	wasm.OpcodeMiscI64TruncSatF32S: {f32, i64, true},
	wasm.OpcodeMiscI64TruncSatF32U: {f32, i64, false},
	wasm.OpcodeMiscI64TruncSatF64S: {f64, i64, true},
	wasm.OpcodeMiscI64TruncSatF64U: {f64, i64, false},
}

type extInstOp struct {
	t            wasm.ValueType
	glsl, opencl uint32
}

var floatExtInsts = map[wasm.Opcode]extInstOp{
	wasm.OpcodeF32Abs:     {f32, spirv.GLSLFAbs, spirv.OpenCLFAbs},
	wasm.OpcodeF32Ceil:    {f32, spirv.GLSLCeil, spirv.OpenCLCeil},
	wasm.OpcodeF32Floor:   {f32, spirv.GLSLFloor, spirv.OpenCLFloor},
	wasm.OpcodeF32Trunc:   {f32, spirv.GLSLTrunc, spirv.OpenCLTrunc},
	wasm.OpcodeF32Nearest: {f32, spirv.GLSLRoundEven, spirv.OpenCLRint},
	wasm.OpcodeF32Sqrt:    {f32, spirv.GLSLSqrt, spirv.OpenCLSqrt},
	wasm.OpcodeF64Abs:     {f64, spirv.GLSLFAbs, spirv.OpenCLFAbs},
	wasm.OpcodeF64Ceil:    {f64, spirv.GLSLCeil, spirv.OpenCLCeil},
	wasm.OpcodeF64Floor:   {f64, spirv.GLSLFloor, spirv.OpenCLFloor},
	wasm.OpcodeF64Trunc:   {f64, spirv.GLSLTrunc, spirv.OpenCLTrunc},
	wasm.OpcodeF64Nearest: {f64, spirv.GLSLRoundEven, spirv.OpenCLRint},
	wasm.OpcodeF64Sqrt:    {f64, spirv.GLSLSqrt, spirv.OpenCLSqrt},
}

// lowerNumeric lowers a numeric instruction, returning false if op is not one.
func (f *functionBuilder) lowerNumeric(op wasm.Opcode) bool {
	c := f.c
	if n, ok := binaryOps[op]; ok {
		b, a := f.pop(n.t), f.pop(n.t)
		f.push(f.emit(n.op, c.typeOf(n.t), a.id, b.id), n.t)
		return true
	}
	if n, ok := compareOps[op]; ok {
		b, a := f.pop(n.t), f.pop(n.t)
		f.pushCond(f.emit(n.op, c.b.TypeBool(), a.id, b.id))
		return true
	}
	if n, ok := shiftOps[op]; ok {
		b, a := f.pop(n.t), f.pop(n.t)
		f.push(f.emit(n.op, c.typeOf(n.t), a.id, f.shiftCount(n.t, b.id)), n.t)
		return true
	}
	if cv, ok := conversions[op]; ok {
		a := f.pop(cv.from)
		f.push(f.emit(cv.op, c.typeOf(cv.to), a.id), cv.to)
		return true
	}
	if tr, ok := truncations[op]; ok {
		f.truncate(tr)
		return true
	}
	if e, ok := floatExtInsts[op]; ok {
		a := f.pop(e.t)
		f.push(c.extInst(f.fn, c.typeOf(e.t), e.glsl, e.opencl, a.id), e.t)
		return true
	}

	switch op {
	case wasm.OpcodeI32Eqz, wasm.OpcodeI64Eqz:
		t := i32
		if op == wasm.OpcodeI64Eqz {
			t = i64
		}
		a := f.pop(t)
		f.pushCond(f.emit(spirv.OpIEqual, c.b.TypeBool(), a.id, c.constBits(t, 0)))
	case wasm.OpcodeI32Clz:
		f.unary(i32, f.clz)
	case wasm.OpcodeI64Clz:
		f.unary(i64, f.clz)
	case wasm.OpcodeI32Ctz:
		f.unary(i32, f.ctz)
	case wasm.OpcodeI64Ctz:
		f.unary(i64, f.ctz)
	case wasm.OpcodeI32Popcnt:
		f.unary(i32, f.popcnt)
	case wasm.OpcodeI64Popcnt:
		f.unary(i64, f.popcnt)
	case wasm.OpcodeI32Rotl:
		f.rotate(i32, true)
	case wasm.OpcodeI32Rotr:
		f.rotate(i32, false)
	case wasm.OpcodeI64Rotl:
		f.rotate(i64, true)
	case wasm.OpcodeI64Rotr:
		f.rotate(i64, false)
	case wasm.OpcodeF32Neg:
		a := f.pop(f32)
		f.push(f.emit(spirv.OpFNegate, c.typeOf(f32), a.id), f32)
	case wasm.OpcodeF64Neg:
		a := f.pop(f64)
		f.push(f.emit(spirv.OpFNegate, c.typeOf(f64), a.id), f64)
	case wasm.OpcodeF32Min:
		f.minMax(f32, true)
	case wasm.OpcodeF32Max:
		f.minMax(f32, false)
	case wasm.OpcodeF64Min:
		f.minMax(f64, true)
	case wasm.OpcodeF64Max:
		f.minMax(f64, false)
	case wasm.OpcodeF32Copysign:
		f.copysign(f32)
	case wasm.OpcodeF64Copysign:
		f.copysign(f64)
	case wasm.OpcodeI32Extend8S:
		f.unary(i32, func(t wasm.ValueType, v uint32) uint32 { return f.signExtend(t, v, 8) })
	case wasm.OpcodeI32Extend16S:
		f.unary(i32, func(t wasm.ValueType, v uint32) uint32 { return f.signExtend(t, v, 16) })
	case wasm.OpcodeI64Extend8S:
		f.unary(i64, func(t wasm.ValueType, v uint32) uint32 { return f.signExtend(t, v, 8) })
	case wasm.OpcodeI64Extend16S:
		f.unary(i64, func(t wasm.ValueType, v uint32) uint32 { return f.signExtend(t, v, 16) })
	case wasm.OpcodeI64Extend32S:
		f.unary(i64, func(t wasm.ValueType, v uint32) uint32 { return f.signExtend(t, v, 32) })
	default:
		return false
	}
	return true
}

func (f *functionBuilder) unary(t wasm.ValueType, lower func(t wasm.ValueType, v uint32) uint32) {
	a := f.pop(t)
	f.push(lower(t, a.id), t)
}

func width(t wasm.ValueType) uint64 {
	if is64(t) {
		return 64
	}
	return 32
}

func (f *functionBuilder) shiftCount(t wasm.ValueType, n uint32) uint32 {
	c := f.c
	return f.emit(spirv.OpBitwiseAnd, c.typeOf(t), n, c.constBits(t, width(t)-1))
}

func (f *functionBuilder) rotate(t wasm.ValueType, left bool) {
	c := f.c
	typ := c.typeOf(t)
	b, a := f.pop(t), f.pop(t)
	s := f.shiftCount(t, b.id)
	// The opposite shift is (width - s) mod width, which is zero when s is.
	rest := f.shiftCount(t, f.emit(spirv.OpISub, typ, c.constBits(t, width(t)), s))
	first, second := spirv.OpShiftLeftLogical, spirv.OpShiftRightLogical
	if !left {
		first, second = second, first
	}
	hi := f.emit(first, typ, a.id, s)
	lo := f.emit(second, typ, a.id, rest)
	f.push(f.emit(spirv.OpBitwiseOr, typ, hi, lo), t)
}

// clz counts leading zeros by binary search: while the top half of what is left is zero, shift it out.
func (f *functionBuilder) clz(t wasm.ValueType, v uint32) uint32 {
	c := f.c
	typ, boolType := c.typeOf(t), c.b.TypeBool()
	n, x := c.constBits(t, 0), v
	for step := width(t) / 2; step > 0; step /= 2 {
		top := f.emit(spirv.OpULessThan, boolType, x, c.constBits(t, 1<<(width(t)-step)))
		stepID := c.constBits(t, step)
		n = f.emit(spirv.OpSelect, typ, top, f.emit(spirv.OpIAdd, typ, n, stepID), n)
		x = f.emit(spirv.OpSelect, typ, top, f.emit(spirv.OpShiftLeftLogical, typ, x, stepID), x)
	}
	// Only zero is left with a clear top bit.
	zero := f.emit(spirv.OpIEqual, boolType, x, c.constBits(t, 0))
	return f.emit(spirv.OpIAdd, typ, n, f.emit(spirv.OpSelect, typ, zero, c.constBits(t, 1), c.constBits(t, 0)))
}

// ctz is the popcnt of the bits below the lowest set bit: (x & -x) - 1.
func (f *functionBuilder) ctz(t wasm.ValueType, v uint32) uint32 {
	c := f.c
	typ := c.typeOf(t)
	lowest := f.emit(spirv.OpBitwiseAnd, typ, v, f.emit(spirv.OpSNegate, typ, v))
	return f.popcnt(t, f.emit(spirv.OpISub, typ, lowest, c.constBits(t, 1)))
}

// popcnt uses OpBitCount on 32-bit halves, the only width Vulkan supports it on.
func (f *functionBuilder) popcnt(t wasm.ValueType, v uint32) uint32 {
	c := f.c
	u32 := c.u32()
	if !is64(t) {
		return f.emit(spirv.OpBitCount, u32, v)
	}
	u64 := c.u64()
	lo := f.emit(spirv.OpUConvert, u32, v)
	hi := f.emit(spirv.OpUConvert, u32, f.emit(spirv.OpShiftRightLogical, u64, v, c.constU64(32)))
	sum := f.emit(spirv.OpIAdd, u32, f.emit(spirv.OpBitCount, u32, lo), f.emit(spirv.OpBitCount, u32, hi))
	return f.emit(spirv.OpUConvert, u64, sum)
}

func canonicalNaN(t wasm.ValueType) uint64 {
	if is64(t) {
		return 0x7ff8000000000000
	}
	return 0x7fc00000
}

func (f *functionBuilder) floatConst(t wasm.ValueType, v float64) uint32 {
	if is64(t) {
		return f.c.constant(t, math.Float64bits(v))
	}
	return f.c.constant(t, uint64(math.Float32bits(float32(v))))
}

// minMax returns NaN if either operand is, and orders -0 below +0: for equal operands the sign bits are combined.
func (f *functionBuilder) minMax(t wasm.ValueType, min bool) {
	c := f.c
	typ, bits, boolType := c.typeOf(t), c.bitsType(t), c.b.TypeBool()
	b, a := f.pop(t), f.pop(t)

	nan := f.emit(spirv.OpLogicalOr, boolType,
		f.emit(spirv.OpIsNan, boolType, a.id), f.emit(spirv.OpIsNan, boolType, b.id))
	lt := f.emit(spirv.OpFOrdLessThan, boolType, a.id, b.id)
	gt := f.emit(spirv.OpFOrdGreaterThan, boolType, a.id, b.id)
	combine := spirv.OpBitwiseOr
	if !min {
		combine = spirv.OpBitwiseAnd
		lt, gt = gt, lt
	}
	ab, bb := f.emit(spirv.OpBitcast, bits, a.id), f.emit(spirv.OpBitcast, bits, b.id)
	eq := f.emit(spirv.OpBitcast, typ, f.emit(combine, bits, ab, bb))

	r := f.emit(spirv.OpSelect, typ, lt, a.id, f.emit(spirv.OpSelect, typ, gt, b.id, eq))
	f.push(f.emit(spirv.OpSelect, typ, nan, c.constant(t, canonicalNaN(t)), r), t)
}

func (f *functionBuilder) copysign(t wasm.ValueType) {
	c := f.c
	typ, bits := c.typeOf(t), c.bitsType(t)
	sign := uint64(1) << (width(t) - 1)
	b, a := f.pop(t), f.pop(t)
	magnitude := f.emit(spirv.OpBitwiseAnd, bits, f.emit(spirv.OpBitcast, bits, a.id), c.constBits(t, sign-1))
	signBit := f.emit(spirv.OpBitwiseAnd, bits, f.emit(spirv.OpBitcast, bits, b.id), c.constBits(t, sign))
	f.push(f.emit(spirv.OpBitcast, typ, f.emit(spirv.OpBitwiseOr, bits, magnitude, signBit)), t)
}

// truncate converts a float to an integer toward zero, saturating out of range values and mapping NaN to zero.
func (f *functionBuilder) truncate(tr truncation) {
	c := f.c
	typ, boolType := c.typeOf(tr.to), c.b.TypeBool()
	a := f.pop(tr.from)

	w := width(tr.to)
	var minBits, maxBits uint64
	var tooLow uint32
	in := a.id
	if tr.signed {
		minBits, maxBits = uint64(1)<<(w-1), uint64(1)<<(w-1)-1
		tooLow = f.emit(spirv.OpFOrdLessThan, boolType, a.id, f.floatConst(tr.from, -math.Pow(2, float64(w-1))))
	} else {
		// OpConvertFToU is undefined for any negative operand, including those in (-1, 0) that truncate to 0.
		minBits, maxBits = 0, math.MaxUint64>>(64-w)
		zero := f.floatConst(tr.from, 0)
		tooLow = f.emit(spirv.OpFOrdLessThan, boolType, a.id, zero)
		in = f.emit(spirv.OpSelect, c.typeOf(tr.from), tooLow, zero, a.id)
	}
	limit := math.Pow(2, float64(w))
	if tr.signed {
		limit = math.Pow(2, float64(w-1))
	}
	tooHigh := f.emit(spirv.OpFOrdGreaterThanEqual, boolType, a.id, f.floatConst(tr.from, limit))

	op := spirv.OpConvertFToU
	if tr.signed {
		op = spirv.OpConvertFToS
	}
	r := f.emit(op, typ, in)
	if tr.signed {
		r = f.emit(spirv.OpSelect, typ, tooLow, c.constant(tr.to, minBits), r)
	}
	r = f.emit(spirv.OpSelect, typ, tooHigh, c.constant(tr.to, maxBits), r)
	nan := f.emit(spirv.OpIsNan, boolType, a.id)
	f.push(f.emit(spirv.OpSelect, typ, nan, c.constant(tr.to, 0), r), tr.to)
}
