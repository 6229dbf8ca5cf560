package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/ieee754"
	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// DecodeInstructions decodes a function body (Code.Body) into its instruction sequence, including the final end.
//
// This is a syntactic decode: immediates are read but not validated against the module, so an out-of-range
// index surfaces later, when the function is compiled. Errors are *api.DecodeError with offsets relative to body.
func DecodeInstructions(body []byte, features wasm.Features) ([]wasm.Instruction, error) {
	r := bytes.NewReader(body)
	var ret []wasm.Instruction
	for r.Len() > 0 {
		start := offset(r)
		inst, err := decodeInstruction(r, features)
		if err != nil {
			return nil, &api.DecodeError{Offset: start, Err: err}
		}
		inst.Offset = start
		ret = append(ret, inst)
	}
	if len(ret) == 0 || ret[len(ret)-1].Opcode != wasm.OpcodeEnd {
		return nil, &api.DecodeError{Offset: len(body), Err: fmt.Errorf("expr not terminated by end")}
	}
	return ret, nil
}

func decodeInstruction(r *bytes.Reader, features wasm.Features) (inst wasm.Instruction, err error) {
	if inst.Opcode, err = r.ReadByte(); err != nil {
		return inst, fmt.Errorf("read opcode: %w", err)
	}

	op := inst.Opcode
	switch {
	case op == wasm.OpcodeBlock || op == wasm.OpcodeLoop || op == wasm.OpcodeIf:
		inst.BlockType, err = decodeBlockType(r)
	case op == wasm.OpcodeBr || op == wasm.OpcodeBrIf ||
		op == wasm.OpcodeCall ||
		(op >= wasm.OpcodeLocalGet && op <= wasm.OpcodeTableSet) ||
		op == wasm.OpcodeRefFunc:
		inst.Index, err = decodeIndex(r, "index")
	case op == wasm.OpcodeBrTable:
		err = decodeBrTable(r, &inst)
	case op == wasm.OpcodeCallIndirect:
		if inst.Index, err = decodeIndex(r, "type index"); err == nil {
			inst.Index2, err = decodeIndex(r, "table index")
		}
	case op == wasm.OpcodeTypedSelect:
		err = decodeTypedSelect(r, &inst)
	case op >= wasm.OpcodeI32Load && op <= wasm.OpcodeI64Store32:
		inst.MemArg, err = decodeMemArg(r, features)
	case op == wasm.OpcodeMemorySize || op == wasm.OpcodeMemoryGrow:
		err = decodeZeroByte(r, "memory index")
	case op == wasm.OpcodeI32Const:
		var v int32
		v, _, err = leb128.DecodeInt32(r)
		inst.Value = uint64(uint32(v))
	case op == wasm.OpcodeI64Const:
		var v int64
		v, _, err = leb128.DecodeInt64(r)
		inst.Value = uint64(v)
	case op == wasm.OpcodeF32Const:
		var v float32
		v, err = ieee754.DecodeFloat32(r)
		inst.Value = uint64(api.EncodeF32(v))
	case op == wasm.OpcodeF64Const:
		var v float64
		v, err = ieee754.DecodeFloat64(r)
		inst.Value = api.EncodeF64(v)
	case op >= wasm.OpcodeI32Extend8S && op <= wasm.OpcodeI64Extend32S:
		err = features.Require(wasm.FeatureSignExtensionOps)
	case op == wasm.OpcodeRefNull:
		var b byte
		if b, err = r.ReadByte(); err == nil && b != wasm.RefTypeFuncref && b != wasm.RefTypeExternref {
			err = fmt.Errorf("%w: reference type %#x", ErrInvalidByte, b)
		}
		inst.ValueType = b
	case op == wasm.OpcodeMiscPrefix:
		err = decodeMisc(r, features, &inst)
	case wasm.InstructionName(op) == "":
		err = fmt.Errorf("%w: unknown opcode %#x", ErrInvalidByte, op)
	}

	if err != nil {
		return inst, fmt.Errorf("%s: %w", instructionLabel(inst), err)
	}
	return inst, nil
}

func instructionLabel(inst wasm.Instruction) string {
	if name := inst.Name(); name != "" {
		return name
	}
	if inst.Opcode == wasm.OpcodeMiscPrefix {
		return fmt.Sprintf("misc opcode %#x", inst.Misc)
	}
	return fmt.Sprintf("opcode %#x", inst.Opcode)
}

// decodeBlockType decodes the empty type (0x40), a single value type, or a signed 33-bit type index.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-blocktype
func decodeBlockType(r *bytes.Reader) (wasm.BlockType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return wasm.BlockType{}, fmt.Errorf("read block type: %w", err)
	}

	switch b {
	case 0x40:
		return wasm.BlockType{}, nil
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return wasm.BlockType{Result: b}, nil
	}

	if err = r.UnreadByte(); err != nil {
		return wasm.BlockType{}, err
	}
	raw, _, err := leb128.DecodeInt33AsInt64(r)
	if err != nil {
		return wasm.BlockType{}, fmt.Errorf("read block type index: %w", err)
	}
	if raw < 0 || raw > int64(^uint32(0)) {
		return wasm.BlockType{}, fmt.Errorf("%w: block type %d", ErrInvalidByte, raw)
	}
	idx := wasm.Index(raw)
	return wasm.BlockType{TypeIndex: &idx}, nil
}

func decodeIndex(r *bytes.Reader, what string) (wasm.Index, error) {
	idx, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", what, err)
	}
	return idx, nil
}

func decodeBrTable(r *bytes.Reader, inst *wasm.Instruction) error {
	n, err := decodeIndex(r, "label count")
	if err != nil {
		return err
	}
	if int(n) > r.Len() {
		return fmt.Errorf("%d labels exceed the %d remaining bytes", n, r.Len())
	}
	inst.Table = make([]wasm.Index, n)
	for i := range inst.Table {
		if inst.Table[i], err = decodeIndex(r, "label"); err != nil {
			return err
		}
	}
	inst.Index, err = decodeIndex(r, "default label")
	return err
}

func decodeTypedSelect(r *bytes.Reader, inst *wasm.Instruction) error {
	n, err := decodeIndex(r, "result count")
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("typed select must have exactly one result but had %d", n)
	}
	types, err := decodeValueTypes(r, 1)
	if err != nil {
		return err
	}
	inst.ValueType = types[0]
	return nil
}

// decodeMemArg reads the alignment exponent and offset. The offset is 64-bit only with memory64.
func decodeMemArg(r *bytes.Reader, features wasm.Features) (m wasm.MemArg, err error) {
	if m.Align, _, err = leb128.DecodeUint32(r); err != nil {
		return m, fmt.Errorf("read memory align: %w", err)
	}
	if features.Get(wasm.FeatureMemory64) {
		m.Offset, _, err = leb128.DecodeUint64(r)
	} else {
		var o uint32
		o, _, err = leb128.DecodeUint32(r)
		m.Offset = uint64(o)
	}
	if err != nil {
		return m, fmt.Errorf("read memory offset: %w", err)
	}
	return m, nil
}

func decodeZeroByte(r *bytes.Reader, what string) error {
	b, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if b != 0 {
		return fmt.Errorf("%w: %s must be zero but was %#x", ErrInvalidByte, what, b)
	}
	return nil
}

func decodeMisc(r *bytes.Reader, features wasm.Features, inst *wasm.Instruction) error {
	misc, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("read misc opcode: %w", err)
	}
	if misc > 0xff || wasm.MiscInstructionName(wasm.OpcodeMisc(misc)) == "" {
		return fmt.Errorf("%w: unknown misc opcode %#x", ErrInvalidByte, misc)
	}
	inst.Misc = wasm.OpcodeMisc(misc)

	switch inst.Misc {
	case wasm.OpcodeMiscI32TruncSatF32S, wasm.OpcodeMiscI32TruncSatF32U,
		wasm.OpcodeMiscI32TruncSatF64S, wasm.OpcodeMiscI32TruncSatF64U,
		wasm.OpcodeMiscI64TruncSatF32S, wasm.OpcodeMiscI64TruncSatF32U,
		wasm.OpcodeMiscI64TruncSatF64S, wasm.OpcodeMiscI64TruncSatF64U:
		return features.Require(wasm.FeatureNonTrappingFloatToIntConversion)
	case wasm.OpcodeMiscMemoryInit:
		if inst.Index, err = decodeIndex(r, "data index"); err != nil {
			return err
		}
		return decodeZeroByte(r, "memory index")
	case wasm.OpcodeMiscDataDrop, wasm.OpcodeMiscElemDrop:
		inst.Index, err = decodeIndex(r, "index")
		return err
	case wasm.OpcodeMiscMemoryCopy:
		if err = decodeZeroByte(r, "destination memory index"); err != nil {
			return err
		}
		return decodeZeroByte(r, "source memory index")
	case wasm.OpcodeMiscMemoryFill:
		return decodeZeroByte(r, "memory index")
	case wasm.OpcodeMiscTableInit, wasm.OpcodeMiscTableCopy:
		if inst.Index, err = decodeIndex(r, "index"); err != nil {
			return err
		}
		inst.Index2, err = decodeIndex(r, "table index")
		return err
	default: // table.grow, table.size, table.fill
		inst.Index, err = decodeIndex(r, "table index")
		return err
	}
}
