package spirv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func header(bound uint32) []uint32 {
	return []uint32{MagicNumber, Version1_0.Word(), GeneratorID, bound, 0}
}

func word0(op Opcode, count int) uint32 {
	return uint32(count)<<16 | uint32(op)
}

func TestParse_RoundTrip(t *testing.T) {
	m, _ := buildCompute(t)
	parsed, err := Parse(m.Words())
	require.NoError(t, err)
	require.Equal(t, m, parsed)

	parsed, err = ParseBytes(m.Bytes())
	require.NoError(t, err)
	require.Equal(t, m, parsed)
}

func TestParse_Errors(t *testing.T) {
	memoryModel := []uint32{word0(OpMemoryModel, 3), 0, 1}
	tests := []struct {
		name        string
		words       []uint32
		expectedErr string
	}{
		{
			name:        "short header",
			words:       []uint32{MagicNumber},
			expectedErr: "1 words are too few for a header",
		},
		{
			name:        "magic",
			words:       []uint32{0x03022307, 0, 0, 0, 0},
			expectedErr: "invalid magic number 0x3022307",
		},
		{
			name:        "zero word count",
			words:       append(header(1), 0),
			expectedErr: "word 5: invalid word count 0",
		},
		{
			name:        "word count past the end",
			words:       append(header(1), word0(OpTypeVoid, 3), 1),
			expectedErr: "word 5: invalid word count 3",
		},
		{
			name:        "unknown opcode",
			words:       append(header(1), word0(999, 1)),
			expectedErr: "word 5: unknown opcode 999",
		},
		{
			name:        "out of order",
			words:       append(append(header(1), memoryModel...), word0(OpCapability, 2), 1),
			expectedErr: "word 8: OpCapability is out of section order",
		},
		{
			name:        "outside function",
			words:       append(header(1), word0(OpReturn, 1)),
			expectedErr: "word 5: OpReturn outside a function",
		},
		{
			name:        "truncated",
			words:       append(header(2), word0(OpTypeInt, 2), 1),
			expectedErr: "word 5: OpTypeInt: truncated operands",
		},
		{
			name:        "trailing",
			words:       append(header(2), word0(OpTypeVoid, 3), 1, 7),
			expectedErr: "word 5: OpTypeVoid: 1 unexpected trailing words",
		},
		{
			name:        "unterminated string",
			words:       append(header(1), word0(OpExtension, 2), 0x41414141),
			expectedErr: "word 5: OpExtension: literal string is not nul-terminated",
		},
		{
			name:        "duplicate memory model",
			words:       append(append(header(1), memoryModel...), memoryModel...),
			expectedErr: "word 8: duplicate OpMemoryModel",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.words)
			require.EqualError(t, err, tc.expectedErr)
		})
	}
}

func TestParseBytes_Length(t *testing.T) {
	_, err := ParseBytes([]byte{1, 2, 3})
	require.EqualError(t, err, "length 3 is not a multiple of four")
}

func TestModule_Validate(t *testing.T) {
	memoryModel := &Instruction{Opcode: OpMemoryModel, Words: []uint32{0, 1}}
	tests := []struct {
		name        string
		module      *Module
		expectedErr string
	}{
		{
			name:        "no memory model",
			module:      &Module{Bound: 1},
			expectedErr: "missing OpMemoryModel",
		},
		{
			name: "duplicate id",
			module: &Module{Bound: 2, MemoryModel: memoryModel, Globals: []Instruction{
				{Opcode: OpTypeVoid, Words: []uint32{1}},
				{Opcode: OpTypeBool, Words: []uint32{1}},
			}},
			expectedErr: "OpTypeBool: id %1 is already defined by OpTypeVoid",
		},
		{
			name: "bound",
			module: &Module{Bound: 2, MemoryModel: memoryModel, Globals: []Instruction{
				{Opcode: OpTypeVoid, Words: []uint32{2}},
			}},
			expectedErr: "OpTypeVoid: id %2 is not below the bound 2",
		},
		{
			name: "global used before defined",
			module: &Module{Bound: 3, MemoryModel: memoryModel, Globals: []Instruction{
				{Opcode: OpTypePointer, Words: []uint32{1, 6, 2}},
				{Opcode: OpTypeBool, Words: []uint32{2}},
			}},
			expectedErr: "OpTypePointer: %2 is used before it is defined",
		},
		{
			name: "undefined",
			module: &Module{Bound: 3, MemoryModel: memoryModel, Debug: []Instruction{
				{Opcode: OpName, Words: append([]uint32{2}, encodeString("x")...)},
			}},
			expectedErr: "OpName: %2 is not defined",
		},
		{
			name: "wrong section",
			module: &Module{Bound: 3, MemoryModel: memoryModel, Globals: []Instruction{
				{Opcode: OpDecorate, Words: []uint32{1, 2}},
			}},
			expectedErr: "OpDecorate is out of section order",
		},
		{
			name: "instruction outside a function",
			module: &Module{Bound: 3, MemoryModel: memoryModel, Globals: []Instruction{
				{Opcode: OpReturn},
			}},
			expectedErr: "OpReturn outside a function",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.EqualError(t, tc.module.Validate(), tc.expectedErr)
		})
	}
}

func TestModule_Clone(t *testing.T) {
	m, _ := buildCompute(t)
	clone := m.Clone()
	require.Equal(t, m, clone)

	clone.Globals[0].Words[1] = 64
	clone.MemoryModel.Words[1] = 2
	require.Equal(t, uint32(32), m.Globals[0].Words[1])
	require.Equal(t, uint32(1), m.MemoryModel.Words[1])
	require.Equal(t, m.Len(), len(m.Instructions()))
}

func TestInstruction_IDs(t *testing.T) {
	tests := []struct {
		name              string
		inst              Instruction
		expectedResult    uint32
		expectedType      uint32
		expectedUsed      []uint32
		expectedRewritten []uint32
	}{
		{
			name:              "binary op",
			inst:              Instruction{Opcode: OpIAdd, Words: []uint32{1, 2, 3, 4}},
			expectedResult:    2,
			expectedType:      1,
			expectedUsed:      []uint32{1, 3, 4},
			expectedRewritten: []uint32{101, 2, 103, 104},
		},
		{
			name:              "store with alignment",
			inst:              Instruction{Opcode: OpStore, Words: []uint32{5, 6, uint32(MemoryAccessAligned), 4}},
			expectedUsed:      []uint32{5, 6},
			expectedRewritten: []uint32{105, 106, uint32(MemoryAccessAligned), 4},
		},
		{
			name:              "switch",
			inst:              Instruction{Opcode: OpSwitch, Words: []uint32{7, 8, 1, 9, 2, 10}},
			expectedUsed:      []uint32{7, 8, 9, 10},
			expectedRewritten: []uint32{107, 108, 1, 109, 2, 110},
		},
		{
			name:              "ext inst",
			inst:              Instruction{Opcode: OpExtInst, Words: []uint32{1, 2, 3, GLSLSqrt, 4}},
			expectedResult:    2,
			expectedType:      1,
			expectedUsed:      []uint32{1, 3, 4},
			expectedRewritten: []uint32{101, 2, 103, GLSLSqrt, 104},
		},
		{
			name:              "type",
			inst:              Instruction{Opcode: OpTypeInt, Words: []uint32{3, 32, 0}},
			expectedResult:    3,
			expectedRewritten: []uint32{3, 32, 0},
		},
		{
			name:              "entry point interface",
			inst:              Instruction{Opcode: OpEntryPoint, Words: append(append([]uint32{5, 1}, encodeString("main")...), 2, 3)},
			expectedUsed:      []uint32{1, 2, 3},
			expectedRewritten: append(append([]uint32{5, 101}, encodeString("main")...), 102, 103),
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expectedResult, tc.inst.ResultID())
			require.Equal(t, tc.expectedType, tc.inst.ResultType())
			require.Equal(t, tc.expectedUsed, tc.inst.UsedIDs())

			inst := tc.inst.Clone()
			inst.RewriteIDs(func(id uint32) uint32 { return id + 100 })
			require.Equal(t, tc.expectedRewritten, inst.Words)
		})
	}
}

func TestStrings(t *testing.T) {
	for _, s := range []string{"", "a", "abc", "abcd", "GLSL.std.450"} {
		words := encodeString(s)
		require.Equal(t, len(s)/4+1, len(words), s)
		n, err := stringWordCount(words)
		require.NoError(t, err)
		require.Equal(t, len(words), n)
		require.Equal(t, s, decodeString(words))
	}
}
