package binary

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// TestDecodeModule relies on EncodeModule being correct, so that cases are written as modules, not bytes.
func TestDecodeModule(t *testing.T) {
	i32, i64, f32 := wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32
	zero, one, max := uint32(0), uint32(1), uint32(4)

	tests := []struct {
		name  string
		input *wasm.Module // round trip test!
	}{
		{
			name:  "empty",
			input: &wasm.Module{},
		},
		{
			name:  "only name section",
			input: &wasm.Module{NameSection: &wasm.NameSection{ModuleName: "simple"}},
		},
		{
			name: "type section",
			input: &wasm.Module{
				TypeSection: []*wasm.FunctionType{
					{},
					{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}},
					{Params: []wasm.ValueType{i32, i32, i32, i32}, Results: []wasm.ValueType{i32}},
				},
			},
		},
		{
			name: "type and import section",
			input: &wasm.Module{
				TypeSection: []*wasm.FunctionType{
					{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}},
					{Params: []wasm.ValueType{f32, f32}, Results: []wasm.ValueType{f32}},
				},
				ImportSection: []*wasm.Import{
					{Type: wasm.ExternTypeFunc, Module: "spir_global", Name: "gl_GlobalInvocationID", DescFunc: 0},
					{Type: wasm.ExternTypeMemory, Module: "env", Name: "memory", DescMem: &wasm.MemoryType{LimitsType: wasm.LimitsType{Min: 1}}},
					{Type: wasm.ExternTypeGlobal, Module: "env", Name: "g", DescGlobal: &wasm.GlobalType{ValType: i64, Mutable: true}},
				},
			},
		},
		{
			name: "table, memory and global",
			input: &wasm.Module{
				TableSection:  []*wasm.TableType{{ElemType: wasm.RefTypeFuncref, Limits: wasm.LimitsType{Min: 1, Max: &one}}},
				MemorySection: []*wasm.MemoryType{{LimitsType: wasm.LimitsType{Min: 1, Max: &max}}},
				GlobalSection: []*wasm.Global{
					{
						Type: &wasm.GlobalType{ValType: i32, Mutable: true},
						Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0x2a}},
					},
				},
			},
		},
		{
			name: "functions, exports and names",
			input: &wasm.Module{
				TypeSection:     []*wasm.FunctionType{{Params: []wasm.ValueType{f32, f32}, Results: []wasm.ValueType{f32}}},
				FunctionSection: []wasm.Index{0},
				ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "add", Index: 0}},
				CodeSection: []*wasm.Code{
					{
						LocalTypes: []wasm.ValueType{i32, i32, i64},
						Body:       []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 1, wasm.OpcodeF32Add, wasm.OpcodeEnd},
					},
				},
				NameSection: &wasm.NameSection{
					ModuleName:    "math",
					FunctionNames: wasm.NameMap{{Index: 0, Name: "add"}},
					LocalNames:    wasm.IndirectNameMap{{Index: 0, NameMap: wasm.NameMap{{Index: 0, Name: "x"}, {Index: 1, Name: "y"}}}},
				},
			},
		},
		{
			name: "start, element and data",
			input: &wasm.Module{
				TypeSection:     []*wasm.FunctionType{{}},
				FunctionSection: []wasm.Index{0},
				TableSection:    []*wasm.TableType{{ElemType: wasm.RefTypeFuncref, Limits: wasm.LimitsType{Min: 1}}},
				MemorySection:   []*wasm.MemoryType{{LimitsType: wasm.LimitsType{Min: 1}}},
				StartSection:    &zero,
				ElementSection: []*wasm.ElementSegment{
					{OffsetExpr: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0}}, Init: []wasm.Index{0}},
				},
				CodeSection: []*wasm.Code{{Body: []byte{wasm.OpcodeEnd}}},
				DataSection: []*wasm.DataSegment{
					{OffsetExpression: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0x10}}, Init: []byte("hello")},
					{Passive: true, Init: []byte{1, 2, 3}},
				},
			},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			m, e := DecodeModule(EncodeModule(tc.input), wasm.Features20191205)
			require.NoError(t, e)
			require.Equal(t, tc.input, m)
		})
	}
}

func TestDecodeModule_Memory64(t *testing.T) {
	input := EncodeModule(&wasm.Module{MemorySection: []*wasm.MemoryType{{LimitsType: wasm.LimitsType{Min: 2}, Is64: true}}})

	_, err := DecodeModule(input, wasm.Features20191205)
	require.Error(t, err)

	m, err := DecodeModule(input, wasm.Features20191205.Set(wasm.FeatureMemory64, true))
	require.NoError(t, err)
	require.True(t, m.MemorySection[0].Is64)
	require.Equal(t, uint32(2), m.MemorySection[0].Min)
}

func TestDecodeModule_SkipsCustomSections(t *testing.T) {
	input := append(append(append([]byte{}, Magic...), version...),
		wasm.SectionIDCustom, 0x09, // 9 bytes in this section
		0x04, 'm', 'e', 'm', 'e',
		subsectionIDModuleName, 0x02, 0x01, 'x',
		wasm.SectionIDCustom, 0x09,
		0x04, 'n', 'a', 'm', 'e',
		subsectionIDModuleName, 0x02, 0x01, 'y',
		wasm.SectionIDCustom, 0x09, // a redundant name section is ignored
		0x04, 'n', 'a', 'm', 'e',
		subsectionIDModuleName, 0x02, 0x01, 'z',
	)
	m, err := DecodeModule(input, wasm.Features20191205)
	require.NoError(t, err)
	require.Equal(t, &wasm.Module{NameSection: &wasm.NameSection{ModuleName: "y"}}, m)
}

func TestDecodeModule_Errors(t *testing.T) {
	header := append(append([]byte{}, Magic...), version...)
	withHeader := func(b ...byte) []byte {
		return append(append([]byte{}, header...), b...)
	}

	tests := []struct {
		name           string
		input          []byte
		expectedErr    string
		expectedOffset int
		expectedCause  error
	}{
		{
			name:          "wrong magic",
			input:         []byte("wasm\x01\x00\x00\x00"),
			expectedErr:   "invalid wasm binary at offset 0x0: invalid magic number",
			expectedCause: ErrInvalidMagicNumber,
		},
		{
			name:           "wrong version",
			input:          []byte("\x00asm\x01\x00\x00\x01"),
			expectedErr:    "invalid wasm binary at offset 0x4: invalid version header",
			expectedOffset: 4,
			expectedCause:  ErrInvalidVersion,
		},
		{
			name:           "unknown section",
			input:          withHeader(0x0d, 0x00),
			expectedErr:    "invalid wasm binary at offset 0x8: invalid section id: 0xd",
			expectedOffset: 8,
			expectedCause:  ErrInvalidSectionID,
		},
		{
			name:           "section out of order",
			input:          withHeader(wasm.SectionIDFunction, 0x01, 0x00, wasm.SectionIDType, 0x01, 0x00),
			expectedErr:    "invalid wasm binary at offset 0xb: section type out of order or duplicated after section function",
			expectedOffset: 11,
		},
		{
			name:           "duplicate section",
			input:          withHeader(wasm.SectionIDType, 0x01, 0x00, wasm.SectionIDType, 0x01, 0x00),
			expectedErr:    "invalid wasm binary at offset 0xb: section type out of order or duplicated after section type",
			expectedOffset: 11,
		},
		{
			name:           "section size exceeds input",
			input:          withHeader(wasm.SectionIDType, 0x05, 0x00),
			expectedErr:    "invalid wasm binary at offset 0xa: section type: size 5 exceeds the 1 remaining bytes",
			expectedOffset: 10,
		},
		{
			name:           "section size too large for content",
			input:          withHeader(wasm.SectionIDType, 0x02, 0x00, 0x00),
			expectedErr:    "invalid wasm binary at offset 0xb: section type: invalid section length: expected to be 2 but got 1",
			expectedOffset: 11,
		},
		{
			name: "function without code",
			input: withHeader(wasm.SectionIDType, 0x04, 0x01, 0x60, 0x00, 0x00,
				wasm.SectionIDFunction, 0x02, 0x01, 0x00),
			expectedErr:    "invalid wasm binary at offset 0x12: function and code section have inconsistent lengths",
			expectedOffset: 18,
		},
		{
			name:           "invalid value type",
			input:          withHeader(wasm.SectionIDType, 0x04, 0x01, 0x60, 0x01, 0x7b),
			expectedErr:    "invalid wasm binary at offset 0xe: section type: read 0-th type: could not read parameter types: invalid value type: 123",
			expectedOffset: 14,
		},
		{
			name:           "memory over limit",
			input:          withHeader(wasm.SectionIDMemory, 0x05, 0x01, 0x00, 0x81, 0x80, 0x04),
			expectedErr:    "invalid wasm binary at offset 0xf: section memory: read memory[0]: min 65537 pages over limit of 65536 pages",
			expectedOffset: 15,
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			_, e := DecodeModule(tc.input, wasm.Features20191205)
			require.EqualError(t, e, tc.expectedErr)

			var de *api.DecodeError
			require.True(t, errors.As(e, &de))
			require.Equal(t, tc.expectedOffset, de.Offset)
			if tc.expectedCause != nil {
				require.ErrorIs(t, e, tc.expectedCause)
			}
		})
	}
}
