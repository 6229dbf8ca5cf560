package compiler

import (
	"errors"
	"fmt"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// value is an entry of the operand stack.
type value struct {
	id uint32
	t  wasm.ValueType
	// cond is the bool this i32 was selected from, zero if none. Branches on the value reuse it.
	cond uint32
	// konst is set when bits is the value of a constant.
	konst bool
	bits  uint64
}

type local struct {
	variable uint32
	t        wasm.ValueType
}

// unreachableState tracks code after an unconditional branch, which is skipped until the end or else that
// closes the frame the branch was in.
type unreachableState struct {
	on    bool
	depth int
}

// functionBuilder lowers the body of one function.
type functionBuilder struct {
	c          *moduleBuilder
	info       *functionInfo
	localTypes []wasm.ValueType

	fn          *spirv.Function
	locals      []local
	stack       []value
	frames      []*controlFrame
	unreachable unreachableState
	// brk is the Function variable holding the frame index of a pending multi-level break, -1 if none.
	brk uint32
}

func newFunctionBuilder(c *moduleBuilder, info *functionInfo, localTypes []wasm.ValueType) *functionBuilder {
	return &functionBuilder{c: c, info: info, localTypes: localTypes}
}

func (f *functionBuilder) build(body []wasm.Instruction) error {
	c, info := f.c, f.info
	f.fn = c.b.NewFunction(info.id, info.resultType, info.typeID, spirv.FunctionControlNone)
	params := make([]uint32, len(info.typ.Params))
	for i, t := range info.typ.Params {
		params[i] = f.fn.Parameter(c.typeOf(t))
	}
	f.fn.NewLabel()
	for i, t := range info.typ.Params {
		v := f.localVariable(t, 0)
		f.fn.Emit(spirv.OpStore, v, params[i])
		f.locals = append(f.locals, local{variable: v, t: t})
	}
	for _, t := range f.localTypes {
		v := f.localVariable(t, c.constant(t, 0))
		f.locals = append(f.locals, local{variable: v, t: t})
	}
	for i, l := range f.locals {
		if name, ok := c.m.LocalName(info.index, wasm.Index(i)); ok && name != "" {
			c.b.Name(l.variable, name)
		}
	}
	f.frames = []*controlFrame{{kind: frameFunction, typ: info.typ}}
	if c.err != nil {
		return functionError(info.index, c.err)
	}

	for i := range body {
		inst := &body[i]
		f.lower(inst)
		if c.err != nil {
			return &api.BuildError{Function: int(info.index), Offset: inst.Offset, Instruction: inst.Name(), Err: c.err}
		}
		if len(f.frames) == 0 {
			if i != len(body)-1 {
				return &api.BuildError{Function: int(info.index), Offset: body[i+1].Offset, Instruction: body[i+1].Name(),
					Err: errors.New("instruction after the end of the function")}
			}
			return nil
		}
	}
	return functionError(info.index, errors.New("function body does not end"))
}

// localVariable declares a Function variable of type t. init is zero for none.
func (f *functionBuilder) localVariable(t wasm.ValueType, init uint32) uint32 {
	c := f.c
	return f.fn.Variable(c.pointer(api.StorageClassFunction, c.typeOf(t)), init)
}

func (f *functionBuilder) emit(op spirv.Opcode, resultType uint32, operands ...uint32) uint32 {
	return f.fn.EmitResult(op, resultType, operands...)
}

func (f *functionBuilder) push(id uint32, t wasm.ValueType) {
	f.stack = append(f.stack, value{id: id, t: t})
}

func (f *functionBuilder) pushValue(v value) {
	f.stack = append(f.stack, v)
}

func (f *functionBuilder) pushConst(t wasm.ValueType, bits uint64) {
	if !is64(t) {
		bits = uint64(uint32(bits))
	}
	f.pushValue(value{id: f.c.constant(t, bits), t: t, konst: true, bits: bits})
}

// pushCond pushes the i32 of a bool, remembering the bool.
func (f *functionBuilder) pushCond(cond uint32) {
	c := f.c
	id := f.emit(spirv.OpSelect, c.u32(), cond, c.constU32(1), c.constU32(0))
	f.pushValue(value{id: id, t: wasm.ValueTypeI32, cond: cond})
}

func (f *functionBuilder) frameBase() int {
	return f.frames[len(f.frames)-1].stackBase
}

func (f *functionBuilder) popAny() value {
	if len(f.stack) <= f.frameBase() {
		f.c.fail(api.ErrStackUnderflow)
		return value{}
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *functionBuilder) pop(t wasm.ValueType) value {
	v := f.popAny()
	if f.c.err == nil && v.t != t {
		f.c.failf(api.ErrTypeMismatch, "expected %s, but was %s", wasm.ValueTypeName(t), wasm.ValueTypeName(v.t))
	}
	return v
}

// popValues pops operands of the given types, returning them in push order.
func (f *functionBuilder) popValues(types []wasm.ValueType) []value {
	ret := make([]value, len(types))
	for i := len(types) - 1; i >= 0; i-- {
		ret[i] = f.pop(types[i])
	}
	return ret
}

// peek returns the ids of the top operands, which must have the given types, without popping them.
func (f *functionBuilder) peek(types []wasm.ValueType) []uint32 {
	n := len(f.stack) - f.frameBase()
	if n < len(types) {
		f.c.fail(api.ErrStackUnderflow)
		return nil
	}
	top := f.stack[len(f.stack)-len(types):]
	ret := make([]uint32, len(types))
	for i, t := range types {
		if top[i].t != t {
			f.c.failf(api.ErrTypeMismatch, "expected %s, but was %s", wasm.ValueTypeName(t), wasm.ValueTypeName(top[i].t))
			return nil
		}
		ret[i] = top[i].id
	}
	return ret
}

// popCond pops an i32 and returns it as a bool.
func (f *functionBuilder) popCond() uint32 {
	c := f.c
	v := f.pop(wasm.ValueTypeI32)
	if v.cond != 0 {
		return v.cond
	}
	return f.emit(spirv.OpINotEqual, c.b.TypeBool(), v.id, c.constU32(0))
}

func (f *functionBuilder) markUnreachable() {
	f.unreachable = unreachableState{on: true}
	f.stack = f.stack[:f.frameBase()]
}

func (f *functionBuilder) lower(inst *wasm.Instruction) {
	if f.unreachable.on {
		switch inst.Opcode {
		case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf:
			f.unreachable.depth++
		case wasm.OpcodeElse:
			if f.unreachable.depth == 0 {
				f.lowerElse(false)
			}
		case wasm.OpcodeEnd:
			if f.unreachable.depth == 0 {
				f.lowerEnd(false)
			} else {
				f.unreachable.depth--
			}
		}
		return
	}

	c := f.c
	switch op := inst.Opcode; op {
	case wasm.OpcodeUnreachable:
		f.fn.Emit(spirv.OpUnreachable)
		f.markUnreachable()
	case wasm.OpcodeNop:
	case wasm.OpcodeBlock:
		f.enter(frameBlock, inst.BlockType)
	case wasm.OpcodeLoop:
		f.enter(frameLoop, inst.BlockType)
	case wasm.OpcodeIf:
		f.enter(frameIf, inst.BlockType)
	case wasm.OpcodeElse:
		f.lowerElse(true)
	case wasm.OpcodeEnd:
		f.lowerEnd(true)
	case wasm.OpcodeBr:
		f.branch(inst.Index)
		f.markUnreachable()
	case wasm.OpcodeBrIf:
		f.lowerBrIf(inst.Index)
	case wasm.OpcodeBrTable:
		f.lowerBrTable(inst)
	case wasm.OpcodeReturn:
		f.ret()
		f.markUnreachable()
	case wasm.OpcodeCall:
		f.lowerCall(inst.Index)
	case wasm.OpcodeDrop:
		f.popAny()
	case wasm.OpcodeSelect, wasm.OpcodeTypedSelect:
		f.lowerSelect(inst)
	case wasm.OpcodeLocalGet:
		if l, ok := f.local(inst.Index); ok {
			f.push(f.emit(spirv.OpLoad, c.typeOf(l.t), l.variable), l.t)
		}
	case wasm.OpcodeLocalSet:
		if l, ok := f.local(inst.Index); ok {
			f.fn.Emit(spirv.OpStore, l.variable, f.pop(l.t).id)
		}
	case wasm.OpcodeLocalTee:
		if l, ok := f.local(inst.Index); ok {
			v := f.pop(l.t)
			f.fn.Emit(spirv.OpStore, l.variable, v.id)
			f.pushValue(v)
		}
	case wasm.OpcodeGlobalGet:
		f.lowerGlobalGet(inst.Index)
	case wasm.OpcodeGlobalSet:
		f.lowerGlobalSet(inst.Index)
	case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
		wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
		wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		if f.requireMemory() {
			f.lowerLoad(inst)
		}
	case wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
		wasm.OpcodeI32Store8, wasm.OpcodeI32Store16, wasm.OpcodeI64Store8, wasm.OpcodeI64Store16,
		wasm.OpcodeI64Store32:
		if f.requireMemory() {
			f.lowerStore(inst)
		}
	case wasm.OpcodeMemorySize:
		if f.requireMemory() {
			f.lowerMemorySize()
		}
	case wasm.OpcodeMemoryGrow:
		if f.requireMemory() {
			f.lowerMemoryGrow()
		}
	case wasm.OpcodeI32Const:
		f.pushConst(wasm.ValueTypeI32, inst.Value)
	case wasm.OpcodeI64Const:
		f.pushConst(wasm.ValueTypeI64, inst.Value)
	case wasm.OpcodeF32Const:
		f.pushConst(wasm.ValueTypeF32, inst.Value)
	case wasm.OpcodeF64Const:
		f.pushConst(wasm.ValueTypeF64, inst.Value)
	case wasm.OpcodeMiscPrefix:
		if tr, ok := saturatingTruncations[inst.Misc]; ok {
			f.truncate(tr)
		} else {
			c.failf(api.ErrUnsupported, "instruction %s", inst.Name())
		}
	default:
		if !f.lowerNumeric(op) {
			c.failf(api.ErrUnsupported, "instruction %s", inst.Name())
		}
	}
}

func (f *functionBuilder) local(index wasm.Index) (local, bool) {
	if int(index) >= len(f.locals) {
		f.c.fail(fmt.Errorf("local index %d out of range", index))
		return local{}, false
	}
	return f.locals[index], true
}

func (f *functionBuilder) global(index wasm.Index) (*globalValue, bool) {
	c := f.c
	if int(index) >= len(c.globals) {
		c.fail(fmt.Errorf("global index %d out of range", index))
		return nil, false
	}
	g := c.globals[index]
	if g.imported {
		c.failf(api.ErrUnsupported, "global[%d] is imported", index)
		return nil, false
	}
	return g, true
}

func (f *functionBuilder) lowerGlobalGet(index wasm.Index) {
	c := f.c
	g, ok := f.global(index)
	if !ok {
		return
	}
	if !g.mutable {
		f.push(g.constant, g.t)
		return
	}
	c.use(f.info.id, g.variable)
	f.push(f.emit(spirv.OpLoad, c.typeOf(g.t), g.variable), g.t)
}

func (f *functionBuilder) lowerGlobalSet(index wasm.Index) {
	c := f.c
	g, ok := f.global(index)
	if !ok {
		return
	}
	if !g.mutable {
		c.failf(api.ErrTypeMismatch, "global[%d] is immutable", index)
		return
	}
	c.use(f.info.id, g.variable)
	f.fn.Emit(spirv.OpStore, g.variable, f.pop(g.t).id)
}

func (f *functionBuilder) lowerCall(index wasm.Index) {
	c := f.c
	if int(index) >= len(c.functions) {
		c.fail(fmt.Errorf("function index %d out of range", index))
		return
	}
	callee := c.functions[index]
	if callee.builtin != nil {
		f.lowerBuiltinCall(callee)
		return
	}

	args := f.popValues(callee.typ.Params)
	operands := make([]uint32, 0, len(args)+1)
	operands = append(operands, callee.id)
	for _, a := range args {
		operands = append(operands, a.id)
	}
	result := f.emit(spirv.OpFunctionCall, callee.resultType, operands...)
	c.call(f.info.id, callee.id)
	if len(callee.typ.Results) == 1 {
		f.push(result, callee.typ.Results[0])
	}
}

func (f *functionBuilder) lowerSelect(inst *wasm.Instruction) {
	c := f.c
	cond := f.popCond()
	b := f.popAny()
	a := f.popAny()
	if c.err != nil {
		return
	}
	if inst.Opcode == wasm.OpcodeTypedSelect && a.t != inst.ValueType {
		c.failf(api.ErrTypeMismatch, "expected %s, but was %s", wasm.ValueTypeName(inst.ValueType), wasm.ValueTypeName(a.t))
		return
	}
	if a.t != b.t {
		c.failf(api.ErrTypeMismatch, "select between %s and %s", wasm.ValueTypeName(a.t), wasm.ValueTypeName(b.t))
		return
	}
	f.push(f.emit(spirv.OpSelect, c.typeOf(a.t), cond, a.id, b.id), a.t)
}
