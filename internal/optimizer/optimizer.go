// Package optimizer rewrites a SPIR-V module into a smaller equivalent one. It folds instructions whose
// operands are constants and removes what no entry point or exported function can reach.
//
// Control flow is never restructured: merge and continue blocks stay where the compiler put them, even when a
// branch condition becomes constant.
package optimizer

import (
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
)

// Optimize returns an optimized copy of m. m is not modified. logger may be nil.
func Optimize(m *spirv.Module, logger *logging.Logger) *spirv.Module {
	o := newOptimizer(m.Clone())
	before := o.m.Len()

	folded := o.fold()
	functions := o.removeDeadFunctions()
	removed := o.removeDeadInstructions()
	o.removeDeadNames()

	if logger.IsEnabled(logging.LogScopeOptimize) {
		logger.Logf(logging.LogScopeOptimize, "folded %d instructions, removed %d functions and %d instructions: %d -> %d",
			folded, functions, removed, before, o.m.Len())
	}
	return o.m
}

type scalarKind uint8

const (
	kindBool scalarKind = iota
	kindInt
	kindFloat
)

// scalar is a numeric or boolean type.
type scalar struct {
	kind  scalarKind
	width uint32
}

// constant is the value of a scalar constant. Values narrower than 64 bits are zero-extended.
type constant struct {
	typ  uint32
	bits uint64
}

type optimizer struct {
	m *spirv.Module

	types  map[uint32]scalar
	consts map[uint32]constant
	// interned finds the id of an existing constant by value.
	interned map[constant]uint32
	// composites are the constituents of each OpConstantComposite.
	composites map[uint32][]uint32
	// replace maps the result of a folded instruction to the id that now stands for it.
	replace map[uint32]uint32
}

func newOptimizer(m *spirv.Module) *optimizer {
	o := &optimizer{
		m:          m,
		types:      map[uint32]scalar{},
		consts:     map[uint32]constant{},
		interned:   map[constant]uint32{},
		composites: map[uint32][]uint32{},
		replace:    map[uint32]uint32{},
	}
	for i := range m.Globals {
		inst := &m.Globals[i]
		w := inst.Words
		switch inst.Opcode {
		case spirv.OpTypeBool:
			o.types[w[0]] = scalar{kind: kindBool, width: 1}
		case spirv.OpTypeInt:
			o.types[w[0]] = scalar{kind: kindInt, width: w[1]}
		case spirv.OpTypeFloat:
			o.types[w[0]] = scalar{kind: kindFloat, width: w[1]}
		case spirv.OpConstantTrue:
			o.addConstant(w[1], constant{typ: w[0], bits: 1})
		case spirv.OpConstantFalse:
			o.addConstant(w[1], constant{typ: w[0]})
		case spirv.OpConstantNull:
			if _, ok := o.types[w[0]]; ok {
				o.addConstant(w[1], constant{typ: w[0]})
			}
		case spirv.OpConstant:
			c := constant{typ: w[0], bits: uint64(w[2])}
			if len(w) > 3 {
				c.bits |= uint64(w[3]) << 32
			}
			o.addConstant(w[1], c)
		case spirv.OpConstantComposite:
			o.composites[w[1]] = w[2:]
		}
	}
	return o
}

func (o *optimizer) addConstant(id uint32, c constant) {
	o.consts[id] = c
	if _, ok := o.interned[c]; !ok {
		o.interned[c] = id
	}
}

// constant returns the id of a constant of type typ, defining it after the other globals if it is new.
func (o *optimizer) constant(typ uint32, t scalar, bits uint64) uint32 {
	c := constant{typ: typ, bits: bits}
	if id, ok := o.interned[c]; ok {
		return id
	}
	id := o.m.Bound
	o.m.Bound++

	inst := spirv.Instruction{Opcode: spirv.OpConstant, Words: []uint32{typ, id, uint32(bits)}}
	switch {
	case t.kind == kindBool && bits != 0:
		inst = spirv.Instruction{Opcode: spirv.OpConstantTrue, Words: []uint32{typ, id}}
	case t.kind == kindBool:
		inst = spirv.Instruction{Opcode: spirv.OpConstantFalse, Words: []uint32{typ, id}}
	case t.width == 64:
		inst.Words = append(inst.Words, uint32(bits>>32))
	}
	o.m.Globals = append(o.m.Globals, inst)
	o.addConstant(id, c)
	return id
}

func (o *optimizer) resolve(id uint32) uint32 {
	for {
		r, ok := o.replace[id]
		if !ok {
			return id
		}
		id = r
	}
}

// fold replaces instructions whose value is known by the id of that value until nothing changes, and
// returns how many were replaced.
func (o *optimizer) fold() int {
	folded := 0
	for changed := true; changed; {
		changed = false
		out := o.m.Functions[:0]
		for i := range o.m.Functions {
			inst := o.m.Functions[i]
			inst.RewriteIDs(o.resolve)
			if id, ok := o.foldInstruction(&inst); ok {
				o.replace[inst.ResultID()] = id
				folded++
				changed = true
				continue
			}
			out = append(out, inst)
		}
		o.m.Functions = out
	}
	return folded
}

func (o *optimizer) foldInstruction(inst *spirv.Instruction) (uint32, bool) {
	w := inst.Words
	switch inst.Opcode {
	case spirv.OpCopyObject:
		return w[2], true
	case spirv.OpSelect:
		cond, ok := o.consts[w[2]]
		if !ok {
			return 0, false
		}
		if cond.bits != 0 {
			return w[3], true
		}
		return w[4], true
	case spirv.OpCompositeExtract:
		parts, ok := o.composites[w[2]]
		if !ok || len(w) != 4 || int(w[3]) >= len(parts) {
			return 0, false
		}
		return parts[w[3]], true
	}

	if !foldable[inst.Opcode] {
		return 0, false
	}
	rt, ok := o.types[w[0]]
	if !ok {
		return 0, false
	}
	args := make([]uint64, 0, 2)
	var at scalar
	for i, id := range w[2:] {
		c, ok := o.consts[id]
		if !ok {
			return 0, false
		}
		if i == 0 {
			at = o.types[c.typ]
		}
		args = append(args, c.bits)
	}
	bits, ok := evaluate(inst.Opcode, rt, at, args)
	if !ok {
		return 0, false
	}
	return o.constant(w[0], rt, bits), true
}
