package compiler

import (
	"fmt"
	"math"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

type frameKind uint8

const (
	frameFunction frameKind = iota
	frameBlock
	frameLoop
	frameIf
)

// controlFrame is an open block, loop or if.
//
// Every frame is lowered to a single-iteration SPIR-V loop: header, body, continue target and merge block. A wasm
// loop continues by branching to the continue target, anything else leaves through the merge block. Operands
// crossing the frame boundary go through Function variables, so no OpPhi is needed.
type controlFrame struct {
	kind      frameKind
	typ       *wasm.FunctionType
	stackBase int

	header, merge, cont uint32
	// sel and elseLabel are the selection merge and the else block of an if.
	sel, elseLabel uint32
	// params are the operands of an if, given again to its else arm.
	params []value

	// paramVars receive the operands of a branch to a loop, resultVars those of a branch to anything else.
	paramVars, resultVars []uint32

	elseSeen bool
	// mergeReached is set when something branches to the merge block.
	mergeReached bool
	// crossed is set when a break to an outer frame passes through the merge block.
	crossed bool
}

func (f *functionBuilder) enter(kind frameKind, bt wasm.BlockType) {
	c := f.c
	typ, err := c.m.ResolveBlockType(bt)
	if err != nil {
		c.fail(err)
		return
	}
	var cond uint32
	if kind == frameIf {
		cond = f.popCond()
	}
	params := f.popValues(typ.Params)
	if c.err != nil {
		return
	}

	fr := &controlFrame{kind: kind, typ: typ, stackBase: len(f.stack)}
	fr.header, fr.merge, fr.cont = c.b.AllocID(), c.b.AllocID(), c.b.AllocID()
	for _, t := range typ.Results {
		fr.resultVars = append(fr.resultVars, f.localVariable(t, 0))
	}
	if kind == frameLoop {
		for i, t := range typ.Params {
			v := f.localVariable(t, 0)
			f.fn.Emit(spirv.OpStore, v, params[i].id)
			fr.paramVars = append(fr.paramVars, v)
		}
	}

	body := c.b.AllocID()
	f.fn.Emit(spirv.OpBranch, fr.header)
	f.fn.Label(fr.header)
	f.fn.Emit(spirv.OpLoopMerge, fr.merge, fr.cont, uint32(spirv.LoopControlNone))
	f.fn.Emit(spirv.OpBranch, body)
	f.fn.Label(body)

	switch kind {
	case frameLoop:
		for i, t := range typ.Params {
			f.push(f.emit(spirv.OpLoad, c.typeOf(t), fr.paramVars[i]), t)
		}
	case frameIf:
		then := c.b.AllocID()
		fr.sel, fr.elseLabel, fr.params = c.b.AllocID(), c.b.AllocID(), params
		f.fn.Emit(spirv.OpSelectionMerge, fr.sel, uint32(spirv.SelectionControlNone))
		f.fn.Emit(spirv.OpBranchConditional, cond, then, fr.elseLabel)
		f.fn.Label(then)
		f.stack = append(f.stack, params...)
	default:
		f.stack = append(f.stack, params...)
	}
	f.frames = append(f.frames, fr)
	if c.logger.IsEnabled(logging.LogScopeBuild) {
		c.logger.Logf(logging.LogScopeBuild, "function[%d]: enter frame %d %s, header %%%d merge %%%d",
			f.info.index, len(f.frames)-1, typ, fr.header, fr.merge)
	}
}

// storeResults pops the results of fr, which must be all that is left in it, into its result variables.
func (f *functionBuilder) storeResults(fr *controlFrame) {
	c := f.c
	have, want := len(f.stack)-fr.stackBase, len(fr.typ.Results)
	if have < want {
		c.fail(api.ErrStackUnderflow)
		return
	}
	if have > want {
		c.failf(api.ErrTypeMismatch, "%d values left on the stack, but expected %d", have, want)
		return
	}
	for i, v := range f.popValues(fr.typ.Results) {
		f.fn.Emit(spirv.OpStore, fr.resultVars[i], v.id)
	}
}

func (f *functionBuilder) lowerElse(reachable bool) {
	c := f.c
	fr := f.frames[len(f.frames)-1]
	if fr.kind != frameIf || fr.elseSeen {
		c.fail(fmt.Errorf("else does not belong to an if"))
		return
	}
	f.unreachable = unreachableState{}
	if reachable {
		f.storeResults(fr)
		f.fn.Emit(spirv.OpBranch, fr.merge)
		fr.mergeReached = true
	}
	fr.elseSeen = true
	f.stack = append(f.stack[:fr.stackBase], fr.params...)
	f.fn.Label(fr.elseLabel)
}

func (f *functionBuilder) lowerEnd(reachable bool) {
	c := f.c
	fr := f.frames[len(f.frames)-1]
	f.unreachable = unreachableState{}
	if fr.kind == frameFunction {
		f.endFunction(reachable)
		return
	}

	if reachable {
		f.storeResults(fr)
		f.fn.Emit(spirv.OpBranch, fr.merge)
		fr.mergeReached = true
	}
	if fr.kind == frameIf {
		if !fr.elseSeen {
			// The implicit else passes the params through.
			f.fn.Label(fr.elseLabel)
			f.stack = append(f.stack[:fr.stackBase], fr.params...)
			f.storeResults(fr)
			f.fn.Emit(spirv.OpBranch, fr.merge)
			fr.mergeReached = true
		}
		f.fn.Label(fr.sel)
		f.fn.Emit(spirv.OpUnreachable)
	}
	f.fn.Label(fr.cont)
	f.fn.Emit(spirv.OpBranch, fr.header)

	f.frames = f.frames[:len(f.frames)-1]
	f.stack = f.stack[:fr.stackBase]
	f.fn.Label(fr.merge)
	if !fr.mergeReached {
		f.fn.Emit(spirv.OpUnreachable)
		f.markUnreachable()
		return
	}
	for i, t := range fr.typ.Results {
		f.push(f.emit(spirv.OpLoad, c.typeOf(t), fr.resultVars[i]), t)
	}
	if fr.crossed {
		f.forwardBreak()
	}
}

func (f *functionBuilder) endFunction(reachable bool) {
	if reachable {
		if have, want := len(f.stack), len(f.info.typ.Results); have > want {
			f.c.failf(api.ErrTypeMismatch, "%d values left on the stack, but expected %d", have, want)
			return
		}
		f.ret()
	}
	if f.c.err != nil {
		return
	}
	f.frames = nil
	f.fn.End()
}

func (f *functionBuilder) ret() {
	results := f.info.typ.Results
	vals := f.peek(results)
	if f.c.err != nil {
		return
	}
	if len(vals) == 0 {
		f.fn.Emit(spirv.OpReturn)
	} else {
		f.fn.Emit(spirv.OpReturnValue, vals[0])
	}
}

// branch lowers a branch to the frame depth levels out, leaving the operands on the stack.
//
// Structured control flow only allows leaving the innermost construct. A branch further out stores the target
// frame index in brk and breaks the innermost frame. Each merge block it crosses then forwards the break to its
// parent, until the target is reached.
func (f *functionBuilder) branch(depth wasm.Index) {
	c := f.c
	n := len(f.frames) - 1
	if int(depth) > n {
		c.fail(fmt.Errorf("branch depth %d out of range", depth))
		return
	}
	t := n - int(depth)
	target := f.frames[t]
	if target.kind == frameFunction {
		f.ret()
		return
	}

	vars, types := target.resultVars, target.typ.Results
	if target.kind == frameLoop {
		vars, types = target.paramVars, target.typ.Params
	}
	vals := f.peek(types)
	if c.err != nil {
		return
	}
	for i, v := range vals {
		f.fn.Emit(spirv.OpStore, vars[i], v)
	}

	if t == n {
		if target.kind == frameLoop {
			f.fn.Emit(spirv.OpBranch, target.cont)
		} else {
			f.fn.Emit(spirv.OpBranch, target.merge)
			target.mergeReached = true
		}
		return
	}

	f.fn.Emit(spirv.OpStore, f.brkVar(), c.constU32(uint32(t)))
	for i := t + 1; i <= n; i++ {
		f.frames[i].crossed = true
	}
	inner := f.frames[n]
	f.fn.Emit(spirv.OpBranch, inner.merge)
	inner.mergeReached = true
}

func (f *functionBuilder) brkVar() uint32 {
	if f.brk == 0 {
		c := f.c
		f.brk = f.localVariable(wasm.ValueTypeI32, c.constU32(math.MaxUint32))
	}
	return f.brk
}

// forwardBreak continues a pending break at the merge block of a frame just closed. The innermost open frame is
// its parent, which is never the function frame: a branch to it returns directly.
func (f *functionBuilder) forwardBreak() {
	c := f.c
	p := len(f.frames) - 1
	parent := f.frames[p]
	u32, boolType := c.u32(), c.b.TypeBool()
	none := c.constU32(math.MaxUint32)

	brk := f.emit(spirv.OpLoad, u32, f.brkVar())
	pending := f.emit(spirv.OpINotEqual, boolType, brk, none)
	fwd, next := c.b.AllocID(), c.b.AllocID()
	f.fn.Emit(spirv.OpSelectionMerge, next, uint32(spirv.SelectionControlNone))
	f.fn.Emit(spirv.OpBranchConditional, pending, fwd, next)
	f.fn.Label(fwd)

	arrived := f.emit(spirv.OpIEqual, boolType, brk, c.constU32(uint32(p)))
	if parent.kind == frameLoop {
		// A break arriving at a loop continues it, otherwise it passes through.
		arrive, pass, dead := c.b.AllocID(), c.b.AllocID(), c.b.AllocID()
		f.fn.Emit(spirv.OpSelectionMerge, dead, uint32(spirv.SelectionControlNone))
		f.fn.Emit(spirv.OpBranchConditional, arrived, arrive, pass)
		f.fn.Label(arrive)
		f.fn.Emit(spirv.OpStore, f.brkVar(), none)
		f.fn.Emit(spirv.OpBranch, parent.cont)
		f.fn.Label(pass)
		f.fn.Emit(spirv.OpBranch, parent.merge)
		f.fn.Label(dead)
		f.fn.Emit(spirv.OpUnreachable)
	} else {
		// Either way the parent's merge is next: clear brk if it arrived.
		f.fn.Emit(spirv.OpStore, f.brkVar(), f.emit(spirv.OpSelect, u32, arrived, none, brk))
		f.fn.Emit(spirv.OpBranch, parent.merge)
	}
	parent.mergeReached = true
	f.fn.Label(next)
}

func (f *functionBuilder) lowerBrIf(depth wasm.Index) {
	c := f.c
	cond := f.popCond()
	if c.err != nil {
		return
	}
	taken, skip := c.b.AllocID(), c.b.AllocID()
	f.fn.Emit(spirv.OpSelectionMerge, skip, uint32(spirv.SelectionControlNone))
	f.fn.Emit(spirv.OpBranchConditional, cond, taken, skip)
	f.fn.Label(taken)
	f.branch(depth)
	f.fn.Label(skip)
}

// lowerBrTable switches on the operand, with one case block per distinct target.
func (f *functionBuilder) lowerBrTable(inst *wasm.Instruction) {
	c := f.c
	selector := f.pop(wasm.ValueTypeI32)
	if c.err != nil {
		return
	}

	labels := map[wasm.Index]uint32{}
	var depths []wasm.Index
	label := func(depth wasm.Index) uint32 {
		if l, ok := labels[depth]; ok {
			return l
		}
		l := c.b.AllocID()
		labels[depth] = l
		depths = append(depths, depth)
		return l
	}

	operands := []uint32{selector.id, label(inst.Index)}
	for i, depth := range inst.Table {
		operands = append(operands, uint32(i), label(depth))
	}
	after := c.b.AllocID()
	f.fn.Emit(spirv.OpSelectionMerge, after, uint32(spirv.SelectionControlNone))
	f.fn.Emit(spirv.OpSwitch, operands...)
	for _, depth := range depths {
		f.fn.Label(labels[depth])
		f.branch(depth)
	}
	f.fn.Label(after)
	f.fn.Emit(spirv.OpUnreachable)
	f.markUnreachable()
}
