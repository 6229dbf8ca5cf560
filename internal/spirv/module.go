package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Module is a SPIR-V module with its instructions grouped by logical layout section. Functions holds every
// instruction from the first OpFunction to the last OpFunctionEnd.
type Module struct {
	Version   Version
	Generator uint32
	// Bound is greater than every id in the module.
	Bound  uint32
	Schema uint32

	Capabilities   []Instruction
	Extensions     []Instruction
	ExtInstImports []Instruction
	MemoryModel    *Instruction
	EntryPoints    []Instruction
	ExecutionModes []Instruction
	// Debug holds OpString, OpName and OpMemberName.
	Debug []Instruction
	// Annotations holds OpDecorate and OpMemberDecorate.
	Annotations []Instruction
	// Globals holds types, constants and module-scope variables, each defined before use.
	Globals   []Instruction
	Functions []Instruction
}

// section is the position of an instruction kind in the logical layout.
type section int

const (
	sectionCapability section = iota
	sectionExtension
	sectionExtInstImport
	sectionMemoryModel
	sectionEntryPoint
	sectionExecutionMode
	sectionDebug
	sectionAnnotation
	sectionGlobal
	sectionFunction
)

func sectionOf(op Opcode) section {
	switch op {
	case OpCapability:
		return sectionCapability
	case OpExtension:
		return sectionExtension
	case OpExtInstImport:
		return sectionExtInstImport
	case OpMemoryModel:
		return sectionMemoryModel
	case OpEntryPoint:
		return sectionEntryPoint
	case OpExecutionMode:
		return sectionExecutionMode
	case OpString, OpName, OpMemberName:
		return sectionDebug
	case OpDecorate, OpMemberDecorate:
		return sectionAnnotation
	case OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeArray, OpTypeRuntimeArray,
		OpTypeStruct, OpTypePointer, OpTypeFunction,
		OpConstantTrue, OpConstantFalse, OpConstant, OpConstantComposite, OpConstantNull,
		OpVariable, OpUndef, OpNop:
		return sectionGlobal
	}
	return sectionFunction
}

// Instructions returns every instruction in layout order.
func (m *Module) Instructions() []Instruction {
	ret := make([]Instruction, 0, m.Len())
	ret = append(ret, m.Capabilities...)
	ret = append(ret, m.Extensions...)
	ret = append(ret, m.ExtInstImports...)
	if m.MemoryModel != nil {
		ret = append(ret, *m.MemoryModel)
	}
	ret = append(ret, m.EntryPoints...)
	ret = append(ret, m.ExecutionModes...)
	ret = append(ret, m.Debug...)
	ret = append(ret, m.Annotations...)
	ret = append(ret, m.Globals...)
	return append(ret, m.Functions...)
}

// Len returns the number of instructions in the module.
func (m *Module) Len() int {
	n := len(m.Capabilities) + len(m.Extensions) + len(m.ExtInstImports) + len(m.EntryPoints) +
		len(m.ExecutionModes) + len(m.Debug) + len(m.Annotations) + len(m.Globals) + len(m.Functions)
	if m.MemoryModel != nil {
		n++
	}
	return n
}

// Words returns the binary form of the module: the five header words, then every instruction.
func (m *Module) Words() []uint32 {
	ret := []uint32{MagicNumber, m.Version.Word(), m.Generator, m.Bound, m.Schema}
	for _, inst := range m.Instructions() {
		ret = inst.Encode(ret)
	}
	return ret
}

// Bytes returns Words in little-endian byte order.
func (m *Module) Bytes() []byte {
	words := m.Words()
	ret := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(ret[4*i:], w)
	}
	return ret
}

// Clone returns a deep copy of m.
func (m *Module) Clone() *Module {
	ret := &Module{
		Version:        m.Version,
		Generator:      m.Generator,
		Bound:          m.Bound,
		Schema:         m.Schema,
		Capabilities:   cloneInstructions(m.Capabilities),
		Extensions:     cloneInstructions(m.Extensions),
		ExtInstImports: cloneInstructions(m.ExtInstImports),
		EntryPoints:    cloneInstructions(m.EntryPoints),
		ExecutionModes: cloneInstructions(m.ExecutionModes),
		Debug:          cloneInstructions(m.Debug),
		Annotations:    cloneInstructions(m.Annotations),
		Globals:        cloneInstructions(m.Globals),
		Functions:      cloneInstructions(m.Functions),
	}
	if m.MemoryModel != nil {
		mm := m.MemoryModel.Clone()
		ret.MemoryModel = &mm
	}
	return ret
}

func cloneInstructions(in []Instruction) []Instruction {
	if in == nil {
		return nil
	}
	ret := make([]Instruction, len(in))
	for i := range in {
		ret[i] = in[i].Clone()
	}
	return ret
}

// Validate checks the structural rules emission relies on: every instruction is well-formed and in its
// section, every id is defined once and below Bound, every referenced id is defined, and globals are
// defined before they are used.
func (m *Module) Validate() error {
	if m.MemoryModel == nil {
		return errors.New("missing OpMemoryModel")
	}

	defined := map[uint32]Opcode{}
	define := func(inst *Instruction) error {
		id := inst.ResultID()
		if id == 0 {
			if info := grammar[inst.Opcode]; info.hasResult {
				return fmt.Errorf("%s: result id is zero", inst.Opcode)
			}
			return nil
		}
		if id >= m.Bound {
			return fmt.Errorf("%s: id %%%d is not below the bound %d", inst.Opcode, id, m.Bound)
		}
		if prev, ok := defined[id]; ok {
			return fmt.Errorf("%s: id %%%d is already defined by %s", inst.Opcode, id, prev)
		}
		defined[id] = inst.Opcode
		return nil
	}

	groups := []struct {
		section section
		insts   []Instruction
	}{
		{sectionCapability, m.Capabilities},
		{sectionExtension, m.Extensions},
		{sectionExtInstImport, m.ExtInstImports},
		{sectionMemoryModel, []Instruction{*m.MemoryModel}},
		{sectionEntryPoint, m.EntryPoints},
		{sectionExecutionMode, m.ExecutionModes},
		{sectionDebug, m.Debug},
		{sectionAnnotation, m.Annotations},
		{sectionGlobal, m.Globals},
		{sectionFunction, m.Functions},
	}
	for _, g := range groups {
		for i := range g.insts {
			inst := &g.insts[i]
			if _, err := decodeOperands(inst.Opcode, inst.Words); err != nil {
				return err
			}
			s := sectionOf(inst.Opcode)
			switch {
			case g.section == sectionFunction:
				if i == 0 && inst.Opcode != OpFunction {
					return fmt.Errorf("%s outside a function", inst.Opcode)
				}
			case s == sectionFunction:
				return fmt.Errorf("%s outside a function", inst.Opcode)
			case s != g.section:
				return fmt.Errorf("%s is out of section order", inst.Opcode)
			}
			if g.section == sectionGlobal {
				// Globals may only reference what is already defined.
				for _, used := range inst.UsedIDs() {
					if _, ok := defined[used]; !ok {
						return fmt.Errorf("%s: %%%d is used before it is defined", inst.Opcode, used)
					}
				}
			}
			if err := define(inst); err != nil {
				return err
			}
		}
	}

	all := m.Instructions()
	for i := range all {
		inst := &all[i]
		for _, used := range inst.UsedIDs() {
			if _, ok := defined[used]; !ok {
				return fmt.Errorf("%s: %%%d is not defined", inst.Opcode, used)
			}
		}
	}
	return nil
}

// ParseBytes decodes a little-endian SPIR-V binary.
func ParseBytes(b []byte) (*Module, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of four", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return Parse(words)
}

// Parse decodes the binary form of a module and sorts its instructions into sections. Unknown opcodes
// and instructions out of layout order are errors.
func Parse(words []uint32) (*Module, error) {
	if len(words) < 5 {
		return nil, fmt.Errorf("%d words are too few for a header", len(words))
	}
	if words[0] != MagicNumber {
		return nil, fmt.Errorf("invalid magic number %#x", words[0])
	}
	m := &Module{Version: versionFromWord(words[1]), Generator: words[2], Bound: words[3], Schema: words[4]}

	last := sectionCapability
	for pos := 5; pos < len(words); {
		n := int(words[pos] >> 16)
		op := Opcode(words[pos])
		if n == 0 || pos+n > len(words) {
			return nil, fmt.Errorf("word %d: invalid word count %d", pos, n)
		}
		inst := Instruction{Opcode: op, Words: append([]uint32(nil), words[pos+1:pos+n]...)}
		if _, err := decodeOperands(op, inst.Words); err != nil {
			return nil, fmt.Errorf("word %d: %w", pos, err)
		}

		s := sectionOf(op)
		if last == sectionFunction {
			s = sectionFunction
		}
		if s < last {
			return nil, fmt.Errorf("word %d: %s is out of section order", pos, op)
		}
		last = s

		switch s {
		case sectionCapability:
			m.Capabilities = append(m.Capabilities, inst)
		case sectionExtension:
			m.Extensions = append(m.Extensions, inst)
		case sectionExtInstImport:
			m.ExtInstImports = append(m.ExtInstImports, inst)
		case sectionMemoryModel:
			if m.MemoryModel != nil {
				return nil, fmt.Errorf("word %d: duplicate OpMemoryModel", pos)
			}
			m.MemoryModel = &inst
		case sectionEntryPoint:
			m.EntryPoints = append(m.EntryPoints, inst)
		case sectionExecutionMode:
			m.ExecutionModes = append(m.ExecutionModes, inst)
		case sectionDebug:
			m.Debug = append(m.Debug, inst)
		case sectionAnnotation:
			m.Annotations = append(m.Annotations, inst)
		case sectionGlobal:
			m.Globals = append(m.Globals, inst)
		default:
			if len(m.Functions) == 0 && op != OpFunction {
				return nil, fmt.Errorf("word %d: %s outside a function", pos, op)
			}
			m.Functions = append(m.Functions, inst)
		}
		pos += n
	}
	return m, nil
}
