package compiler

import (
	"bytes"
	"fmt"
	"math"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/ieee754"
	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// globalValue is one entry of the global index space. An immutable global is a constant. A mutable one is a
// module-scope variable initialized to its constant.
type globalValue struct {
	t        wasm.ValueType
	mutable  bool
	imported bool
	constant uint32
	variable uint32
}

func (c *moduleBuilder) declareGlobals() error {
	for _, imp := range c.m.ImportSection {
		if imp.Type == wasm.ExternTypeGlobal {
			c.globals = append(c.globals, &globalValue{t: imp.DescGlobal.ValType, mutable: imp.DescGlobal.Mutable, imported: true})
		}
	}

	for _, g := range c.m.GlobalSection {
		index := len(c.globals)
		bits, err := c.evalConst(g.Init, g.Type.ValType)
		if err != nil {
			return moduleError(fmt.Errorf("global[%d]: %w", index, err))
		}
		gv := &globalValue{t: g.Type.ValType, mutable: g.Type.Mutable}
		init := c.constant(gv.t, bits)
		if gv.mutable {
			gv.variable = c.variable(c.privateClass(), c.typeOf(gv.t), init, fmt.Sprintf("global%d", index))
		} else {
			gv.constant = init
		}
		c.globals = append(c.globals, gv)
	}
	return nil
}

// evalConst returns the bits of a constant expression of type t.
func (c *moduleBuilder) evalConst(expr *wasm.ConstantExpression, t wasm.ValueType) (uint64, error) {
	var exprType wasm.ValueType
	var bits uint64
	var err error
	switch expr.Opcode {
	case wasm.OpcodeI32Const:
		var v int32
		v, _, err = leb128.LoadInt32(expr.Data)
		exprType, bits = wasm.ValueTypeI32, uint64(uint32(v))
	case wasm.OpcodeI64Const:
		var v int64
		v, _, err = leb128.LoadInt64(expr.Data)
		exprType, bits = wasm.ValueTypeI64, uint64(v)
	case wasm.OpcodeF32Const:
		var v float32
		v, err = ieee754.DecodeFloat32(bytes.NewReader(expr.Data))
		exprType, bits = wasm.ValueTypeF32, uint64(math.Float32bits(v))
	case wasm.OpcodeF64Const:
		var v float64
		v, err = ieee754.DecodeFloat64(bytes.NewReader(expr.Data))
		exprType, bits = wasm.ValueTypeF64, math.Float64bits(v)
	case wasm.OpcodeGlobalGet:
		return 0, fmt.Errorf("%w: constant expression reads a global", api.ErrUnsupported)
	default:
		return 0, fmt.Errorf("%w: constant expression %s", api.ErrUnsupported, wasm.InstructionName(expr.Opcode))
	}
	if err != nil {
		return 0, err
	}
	if exprType != t {
		return 0, fmt.Errorf("%w: expected %s, but was %s", api.ErrTypeMismatch, wasm.ValueTypeName(t), wasm.ValueTypeName(exprType))
	}
	return bits, nil
}
