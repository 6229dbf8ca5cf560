package spirv

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wasm2spirv/api"
)

// scalarType is what the text form needs to know about the result type of OpConstant.
type scalarType struct {
	float  bool
	width  uint32
	signed bool
}

// Disassemble returns the text form of m: a commented header, then one instruction per line. Ids print
// as %<n>, enums by name and literal strings quoted. Assemble parses this form back.
func Disassemble(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; SPIR-V\n; Version: %s\n; Generator: %d\n; Bound: %d\n; Schema: %d\n",
		m.Version, m.Generator, m.Bound, m.Schema)

	d := disassembler{scalars: map[uint32]scalarType{}, extSets: map[uint32]string{}}
	for _, inst := range m.Instructions() {
		sb.WriteString(d.instruction(&inst))
		sb.WriteByte('\n')
	}
	return sb.String()
}

type disassembler struct {
	scalars map[uint32]scalarType
	extSets map[uint32]string
}

func (d *disassembler) instruction(inst *Instruction) string {
	ops, err := decodeOperands(inst.Opcode, inst.Words)
	if err != nil {
		// Parse and Builder never produce these, but print something useful anyway.
		return fmt.Sprintf("; %s %v", inst.Opcode, inst.Words)
	}

	var parts []string
	var result string
	for i, o := range ops {
		switch o.kind {
		case operandResultID:
			result = fmt.Sprintf("%%%d = ", o.words[0])
		case operandResultType, operandID:
			parts = append(parts, fmt.Sprintf("%%%d", o.words[0]))
		case operandExtInst:
			parts = append(parts, d.extInst(ops[i-1].words[0], o.words[0]))
		case operandContextLiteral:
			parts = append(parts, d.contextLiteral(inst.ResultType(), o.words))
		default:
			parts = append(parts, formatOperand(o))
		}
	}
	d.record(inst)

	line := result + inst.Opcode.String()
	if len(parts) > 0 {
		line += " " + strings.Join(parts, " ")
	}
	return line
}

// record remembers what later instructions need to print their operands.
func (d *disassembler) record(inst *Instruction) {
	switch inst.Opcode {
	case OpTypeInt:
		d.scalars[inst.Words[0]] = scalarType{width: inst.Words[1], signed: inst.Words[2] != 0}
	case OpTypeFloat:
		d.scalars[inst.Words[0]] = scalarType{float: true, width: inst.Words[1]}
	case OpExtInstImport:
		d.extSets[inst.Words[0]] = decodeString(inst.Words[1:])
	}
}

func (d *disassembler) extInst(set, n uint32) string {
	if name, ok := extInstName(d.extSets[set], n); ok {
		return name
	}
	return strconv.FormatUint(uint64(n), 10)
}

func (d *disassembler) contextLiteral(typeID uint32, words []uint32) string {
	t, ok := d.scalars[typeID]
	if !ok || len(words) > 2 {
		return formatLiterals(words)
	}
	var bits uint64
	for i, w := range words {
		bits |= uint64(w) << (32 * uint(i))
	}
	switch {
	case t.float && t.width == 32:
		f := math.Float32frombits(uint32(bits))
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Sprintf("%#x", bits)
		}
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case t.float && t.width == 64:
		f := math.Float64frombits(bits)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprintf("%#x", bits)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case t.signed && t.width == 32:
		return strconv.FormatInt(int64(int32(bits)), 10)
	case t.signed:
		return strconv.FormatInt(int64(bits), 10)
	}
	return strconv.FormatUint(bits, 10)
}

func formatLiterals(words []uint32) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strconv.FormatUint(uint64(w), 10)
	}
	return strings.Join(parts, " ")
}

func formatOperand(o operand) string {
	w := o.words[0]
	switch o.kind {
	case operandString:
		return strconv.Quote(decodeString(o.words))
	case operandCapability:
		return api.Capability(w).String()
	case operandAddressingModel:
		return enumString(addressingModelNames, w)
	case operandMemoryModel:
		return api.MemoryModel(w).String()
	case operandExecutionModel:
		return api.ExecutionModel(w).String()
	case operandStorageClass:
		return api.StorageClass(w).String()
	case operandExecutionMode:
		return joinNonEmpty(api.ExecutionMode(w).String(), formatLiterals(o.words[1:]))
	case operandDecoration:
		if api.Decoration(w) == api.DecorationBuiltIn && len(o.words) == 2 {
			return joinNonEmpty(api.Decoration(w).String(), api.BuiltIn(o.words[1]).String())
		}
		return joinNonEmpty(api.Decoration(w).String(), formatLiterals(o.words[1:]))
	case operandFunctionControl:
		return maskString(functionControlNames, w)
	case operandSelectionControl:
		return maskString(selectionControlNames, w)
	case operandLoopControl:
		return maskString(loopControlNames, w)
	case operandMemoryAccess:
		return joinNonEmpty(maskString(memoryAccessNames, w), formatLiterals(o.words[1:]))
	}
	return formatLiterals(o.words)
}

func joinNonEmpty(a, b string) string {
	if b == "" {
		return a
	}
	return a + " " + b
}

func enumString(names map[uint32]string, v uint32) string {
	if name, ok := names[v]; ok {
		return name
	}
	return strconv.FormatUint(uint64(v), 10)
}

// maskString returns the names of the set bits joined by "|", or "None".
func maskString(names map[uint32]string, v uint32) string {
	if v == 0 {
		return "None"
	}
	var bits []uint32
	for bit := range names {
		if v&bit != 0 {
			bits = append(bits, bit)
		}
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	var parts []string
	rest := v
	for _, bit := range bits {
		parts = append(parts, names[bit])
		rest &^= bit
	}
	if rest != 0 {
		parts = append(parts, strconv.FormatUint(uint64(rest), 10))
	}
	return strings.Join(parts, "|")
}
