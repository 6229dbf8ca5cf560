package spirv

// Instruction is one SPIR-V instruction. Words are everything after the first word: the result type and
// result id when the opcode has them, then the operands.
type Instruction struct {
	Opcode Opcode
	Words  []uint32
}

// ResultID returns the id this instruction defines, or zero if it defines none.
func (i *Instruction) ResultID() uint32 {
	info, ok := grammar[i.Opcode]
	if !ok || !info.hasResult {
		return 0
	}
	idx := 0
	if info.hasType {
		idx = 1
	}
	if idx >= len(i.Words) {
		return 0
	}
	return i.Words[idx]
}

// ResultType returns the type id of the result, or zero if the instruction has none.
func (i *Instruction) ResultType() uint32 {
	info, ok := grammar[i.Opcode]
	if !ok || !info.hasType || len(i.Words) == 0 {
		return 0
	}
	return i.Words[0]
}

// UsedIDs returns every id the instruction references, including the result type, in operand order.
// The result id is not included.
func (i *Instruction) UsedIDs() []uint32 {
	ops, err := decodeOperands(i.Opcode, i.Words)
	if err != nil {
		return nil
	}
	var ret []uint32
	for _, o := range ops {
		if o.kind == operandResultType || o.kind == operandID {
			ret = append(ret, o.words[0])
		}
	}
	return ret
}

// RewriteIDs replaces each used id with fn(id). The result id is left alone.
func (i *Instruction) RewriteIDs(fn func(uint32) uint32) {
	ops, err := decodeOperands(i.Opcode, i.Words)
	if err != nil {
		return
	}
	for _, o := range ops {
		if o.kind == operandResultType || o.kind == operandID {
			i.Words[o.start] = fn(o.words[0])
		}
	}
}

// Clone returns a copy that shares no memory with i.
func (i *Instruction) Clone() Instruction {
	return Instruction{Opcode: i.Opcode, Words: append([]uint32(nil), i.Words...)}
}

// Encode appends the binary form of the instruction to buf.
func (i *Instruction) Encode(buf []uint32) []uint32 {
	buf = append(buf, uint32(len(i.Words)+1)<<16|uint32(i.Opcode))
	return append(buf, i.Words...)
}
