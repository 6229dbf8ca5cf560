package compiler

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

var (
	v_v     = &wasm.FunctionType{}
	i32_v   = &wasm.FunctionType{Params: []wasm.ValueType{i32}}
	v_i32   = &wasm.FunctionType{Results: []wasm.ValueType{i32}}
	i32_i32 = &wasm.FunctionType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}
	i64_i64 = &wasm.FunctionType{Params: []wasm.ValueType{i64}, Results: []wasm.ValueType{i64}}
	f32_f32 = &wasm.FunctionType{Params: []wasm.ValueType{f32}, Results: []wasm.ValueType{f32}}
)

// vulkan is a Vulkan 1.1 compute configuration, which targets SPIR-V 1.3.
func vulkan() *config.Builder {
	return config.NewBuilder(config.Vulkan(1, 1), config.Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450)
}

func buildConfig(t *testing.T, b *config.Builder) *config.Config {
	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

// singleFunction returns a module defining one function exported as "main".
func singleFunction(typ *wasm.FunctionType, locals []wasm.ValueType, body ...byte) *wasm.Module {
	return &wasm.Module{
		TypeSection:     []*wasm.FunctionType{typ},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []*wasm.Code{{LocalTypes: locals, Body: body}},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "main", Index: 0}},
	}
}

func withMemory(m *wasm.Module, minPages uint32) *wasm.Module {
	m.MemorySection = []*wasm.MemoryType{{LimitsType: wasm.LimitsType{Min: minPages}}}
	return m
}

func compileText(t *testing.T, cfg *config.Config, m *wasm.Module) string {
	out, err := Compile(cfg, m, nil)
	require.NoError(t, err)
	return spirv.Disassemble(out)
}

func countOp(text string, op spirv.Opcode) int {
	return len(regexp.MustCompile(`(?m)(^|= )` + op.String() + `( |$)`).FindAllString(text, -1))
}

func TestCompile_F32Add(t *testing.T) {
	m := singleFunction(&wasm.FunctionType{Params: []wasm.ValueType{f32, f32}, Results: []wasm.ValueType{f32}}, nil,
		wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 1, wasm.OpcodeF32Add, wasm.OpcodeEnd)
	text := compileText(t, buildConfig(t, vulkan()), m)

	require.Contains(t, text, "OpCapability Shader\n")
	require.Equal(t, 1, countOp(text, spirv.OpFAdd))
	require.Equal(t, 1, countOp(text, spirv.OpReturnValue))
	require.Equal(t, 1, countOp(text, spirv.OpFunction))
	require.Regexp(t, `OpName %\d+ "main"`, text)
	// Without an entry point nothing is an interface.
	require.Equal(t, 0, countOp(text, spirv.OpEntryPoint))
}

func TestCompile_DebugNames(t *testing.T) {
	// square is only named in the name section, and main's export name wins over its debug name.
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{i32_i32},
		FunctionSection: []wasm.Index{0, 0},
		CodeSection: []*wasm.Code{
			{Body: []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Mul, wasm.OpcodeEnd}},
			{Body: []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeCall, 0, wasm.OpcodeEnd}},
		},
		ExportSection: []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "main", Index: 1}},
		NameSection: &wasm.NameSection{
			FunctionNames: wasm.NameMap{{Index: 0, Name: "square"}, {Index: 1, Name: "outer"}},
			LocalNames: wasm.IndirectNameMap{
				{Index: 0, NameMap: wasm.NameMap{{Index: 0, Name: "x"}}},
				{Index: 1, NameMap: wasm.NameMap{{Index: 0, Name: "n"}}},
			},
		},
	}

	text := compileText(t, buildConfig(t, vulkan()), m)
	require.Regexp(t, `OpName %\d+ "square"\n`, text)
	require.Regexp(t, `OpName %\d+ "main"\n`, text)
	require.NotContains(t, text, `"outer"`)
	x := regexp.MustCompile(`OpName (%\d+) "x"\n`).FindStringSubmatch(text)
	require.NotNil(t, x)
	require.Contains(t, text, x[1]+" = OpVariable ")
	require.Regexp(t, `OpName %\d+ "n"\n`, text)

	t.Run("entry point", func(t *testing.T) {
		m.ExportSection = nil
		fc := config.NewFunctionConfig().
			WithExecutionModel(api.ExecutionModelGLCompute).
			WithExecutionMode(config.LocalSize(1, 1, 1))
		m.TypeSection = []*wasm.FunctionType{i32_i32, v_v}
		m.FunctionSection = []wasm.Index{0, 1}
		m.CodeSection[1] = &wasm.Code{Body: []byte{wasm.OpcodeI32Const, 2, wasm.OpcodeCall, 0, wasm.OpcodeDrop, wasm.OpcodeEnd}}

		text := compileText(t, buildConfig(t, vulkan().WithFunction(1, fc)), m)
		require.Regexp(t, `OpEntryPoint GLCompute %\d+ "outer"\n`, text)
		require.Regexp(t, `OpName %\d+ "square"\n`, text)
	})
}

func TestCompile_Deterministic(t *testing.T) {
	m := withMemory(singleFunction(i32_i32, []wasm.ValueType{i64},
		wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Load8S, 0, 3,
		wasm.OpcodeI64ExtendI32S, wasm.OpcodeLocalSet, 1,
		wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 1, wasm.OpcodeI64Store, 3, 0,
		wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Popcnt, wasm.OpcodeEnd), 1)
	cfg := buildConfig(t, vulkan())

	first, err := Compile(cfg, m, nil)
	require.NoError(t, err)
	second, err := Compile(cfg, m, nil)
	require.NoError(t, err)
	require.Equal(t, first.Words(), second.Words())
}

func TestCompile_Capabilities(t *testing.T) {
	i64Add := singleFunction(i64_i64, nil,
		wasm.OpcodeLocalGet, 0, wasm.OpcodeI64Const, 1, wasm.OpcodeI64Add, wasm.OpcodeEnd)

	t.Run("dynamic declares what is used", func(t *testing.T) {
		text := compileText(t, buildConfig(t, vulkan()), i64Add)
		require.Contains(t, text, "OpCapability Int64\n")
		require.NotContains(t, text, "OpCapability Float64\n")
	})

	t.Run("static declares exactly the list", func(t *testing.T) {
		b := config.NewBuilder(config.Vulkan(1, 1), config.Static(api.CapabilityShader, api.CapabilityInt64, api.CapabilityFloat64),
			nil, api.AddressingModelLogical, api.MemoryModelGLSL450)
		text := compileText(t, buildConfig(t, b), i64Add)
		require.Contains(t, text, "OpCapability Float64\n")
	})

	t.Run("static fails on a missing capability", func(t *testing.T) {
		b := config.NewBuilder(config.Vulkan(1, 1), config.Static(api.CapabilityShader), nil,
			api.AddressingModelLogical, api.MemoryModelGLSL450)
		_, err := Compile(buildConfig(t, b), i64Add, nil)
		require.True(t, errors.Is(err, api.ErrMissingCapability), err)
		require.Contains(t, err.Error(), "Int64")

		var be *api.BuildError
		require.True(t, errors.As(err, &be))
		require.Equal(t, 0, be.Function)
	})
}

func TestCompile_MemoryGrow(t *testing.T) {
	m := withMemory(singleFunction(v_i32, nil,
		wasm.OpcodeI32Const, 1, wasm.OpcodeMemoryGrow, 0, wasm.OpcodeEnd), 1)

	t.Run("soft", func(t *testing.T) {
		text := compileText(t, buildConfig(t, vulkan()), m)
		require.Regexp(t, `OpConstant %\d+ 4294967295`, text)
		require.Equal(t, 1, countOp(text, spirv.OpReturnValue))
	})

	t.Run("hard", func(t *testing.T) {
		_, err := Compile(buildConfig(t, vulkan().WithMemoryGrowError(config.MemoryGrowErrorHard)), m, nil)
		require.True(t, errors.Is(err, api.ErrUnsupported), err)

		var be *api.BuildError
		require.True(t, errors.As(err, &be))
		require.Equal(t, 0, be.Function)
		require.Equal(t, 2, be.Offset)
		require.Equal(t, "memory.grow", be.Instruction)
	})
}

func TestCompile_MemorySize(t *testing.T) {
	m := withMemory(singleFunction(v_i32, nil, wasm.OpcodeMemorySize, 0, wasm.OpcodeEnd), 3)
	text := compileText(t, buildConfig(t, vulkan()), m)
	require.Regexp(t, `OpConstant %\d+ 3\n`, text)
}

func TestCompile_ControlFlow(t *testing.T) {
	tests := []struct {
		name             string
		typ              *wasm.FunctionType
		locals           []wasm.ValueType
		body             []byte
		loops, selection int
	}{
		{
			name: "if else with a result",
			typ:  i32_i32,
			body: []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeIf, i32,
				wasm.OpcodeI32Const, 1,
				wasm.OpcodeElse,
				wasm.OpcodeI32Const, 2,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			},
			loops:     1,
			selection: 1,
		},
		{
			name: "if without else",
			typ:  i32_v,
			body: []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeIf, 0x40,
				wasm.OpcodeNop,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			},
			loops:     1,
			selection: 1,
		},
		{
			// Counts down the parameter, summing it in local 1.
			name:   "loop breaking two levels out",
			typ:    i32_i32,
			locals: []wasm.ValueType{i32},
			body: []byte{
				wasm.OpcodeBlock, 0x40,
				wasm.OpcodeLoop, 0x40,
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeI32Eqz,
				wasm.OpcodeBrIf, 1,
				wasm.OpcodeLocalGet, 1, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Add, wasm.OpcodeLocalSet, 1,
				wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Const, 1, wasm.OpcodeI32Sub, wasm.OpcodeLocalSet, 0,
				wasm.OpcodeBr, 0,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
				wasm.OpcodeLocalGet, 1,
				wasm.OpcodeEnd,
			},
			loops: 2,
			// br_if and forwarding the break at the loop merge.
			selection: 2,
		},
		{
			name: "code after br is skipped",
			typ:  v_i32,
			body: []byte{
				wasm.OpcodeBlock, i32,
				wasm.OpcodeI32Const, 7,
				wasm.OpcodeBr, 0,
				wasm.OpcodeF32Const, 0, 0, 0, 0,
				wasm.OpcodeBlock, 0x40, wasm.OpcodeEnd,
				wasm.OpcodeEnd,
				wasm.OpcodeEnd,
			},
			loops: 1,
		},
		{
			name: "br_table",
			typ:  i32_i32,
			body: []byte{
				wasm.OpcodeBlock, 0x40,
				wasm.OpcodeBlock, 0x40,
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeBrTable, 2, 0, 1, 0,
				wasm.OpcodeEnd,
				wasm.OpcodeI32Const, 10,
				wasm.OpcodeReturn,
				wasm.OpcodeEnd,
				wasm.OpcodeI32Const, 20,
				wasm.OpcodeEnd,
			},
			loops: 2,
			// The switch and forwarding the break at the inner merge.
			selection: 2,
		},
		{
			name: "return from a nested block",
			typ:  i32_i32,
			body: []byte{
				wasm.OpcodeBlock, 0x40,
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeReturn,
				wasm.OpcodeEnd,
				wasm.OpcodeUnreachable,
				wasm.OpcodeEnd,
			},
			loops: 1,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			text := compileText(t, buildConfig(t, vulkan()), singleFunction(tc.typ, tc.locals, tc.body...))
			require.Equal(t, tc.loops, countOp(text, spirv.OpLoopMerge), text)
			require.Equal(t, tc.selection, countOp(text, spirv.OpSelectionMerge), text)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name                string
		module              *wasm.Module
		expectedErr         error
		expectedFunction    int
		expectedOffset      int
		expectedInstruction string
	}{
		{
			name:                "stack underflow",
			module:              singleFunction(v_i32, nil, wasm.OpcodeI32Add, wasm.OpcodeEnd),
			expectedErr:         api.ErrStackUnderflow,
			expectedInstruction: "i32.add",
		},
		{
			name:                "operand type",
			module:              singleFunction(v_i32, nil, wasm.OpcodeF32Const, 0, 0, 0, 0, wasm.OpcodeI32Eqz, wasm.OpcodeEnd),
			expectedErr:         api.ErrTypeMismatch,
			expectedOffset:      5,
			expectedInstruction: "i32.eqz",
		},
		{
			name:                "values left at the end",
			module:              singleFunction(v_v, nil, wasm.OpcodeI32Const, 0, wasm.OpcodeEnd),
			expectedErr:         api.ErrTypeMismatch,
			expectedOffset:      2,
			expectedInstruction: "end",
		},
		{
			name:                "call_indirect",
			module:              singleFunction(v_v, nil, wasm.OpcodeI32Const, 0, wasm.OpcodeCallIndirect, 0, 0, wasm.OpcodeEnd),
			expectedErr:         api.ErrUnsupported,
			expectedOffset:      2,
			expectedInstruction: "call_indirect",
		},
		{
			name:                "load without memory",
			module:              singleFunction(v_v, nil, wasm.OpcodeI32Const, 0, wasm.OpcodeI32Load, 2, 0, wasm.OpcodeDrop, wasm.OpcodeEnd),
			expectedErr:         api.ErrUnsupported,
			expectedOffset:      2,
			expectedInstruction: "i32.load",
		},
		{
			name: "store without memory",
			module: singleFunction(v_v, nil,
				wasm.OpcodeI32Const, 0, wasm.OpcodeI32Const, 9, wasm.OpcodeI32Store, 2, 0, wasm.OpcodeEnd),
			expectedErr:         api.ErrUnsupported,
			expectedOffset:      4,
			expectedInstruction: "i32.store",
		},
		{
			name:                "memory.size without memory",
			module:              singleFunction(v_i32, nil, wasm.OpcodeMemorySize, 0, wasm.OpcodeEnd),
			expectedErr:         api.ErrUnsupported,
			expectedInstruction: "memory.size",
		},
		{
			name:                "memory.grow without memory",
			module:              singleFunction(v_i32, nil, wasm.OpcodeI32Const, 1, wasm.OpcodeMemoryGrow, 0, wasm.OpcodeEnd),
			expectedErr:         api.ErrUnsupported,
			expectedOffset:      2,
			expectedInstruction: "memory.grow",
		},
		{
			name: "memory64",
			module: &wasm.Module{
				MemorySection: []*wasm.MemoryType{{LimitsType: wasm.LimitsType{Min: 1}, Is64: true}},
			},
			expectedErr:      api.ErrUnsupported,
			expectedFunction: -1,
			expectedOffset:   -1,
		},
		{
			name: "unknown import",
			module: &wasm.Module{
				TypeSection:   []*wasm.FunctionType{v_v},
				ImportSection: []*wasm.Import{{Type: wasm.ExternTypeFunc, Module: "env", Name: "abort"}},
			},
			expectedErr:    api.ErrUnsupported,
			expectedOffset: -1,
		},
		{
			name: "builtin import signature",
			module: &wasm.Module{
				TypeSection:   []*wasm.FunctionType{v_i32},
				ImportSection: []*wasm.Import{{Type: wasm.ExternTypeFunc, Module: "spir_global", Name: "gl_WorkGroupID"}},
			},
			expectedErr:    api.ErrTypeMismatch,
			expectedOffset: -1,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(buildConfig(t, vulkan()), tc.module, nil)
			require.True(t, errors.Is(err, tc.expectedErr), err)

			var be *api.BuildError
			require.True(t, errors.As(err, &be))
			require.Equal(t, tc.expectedFunction, be.Function)
			require.Equal(t, tc.expectedOffset, be.Offset)
			require.Equal(t, tc.expectedInstruction, be.Instruction)
		})
	}
}

func TestCompile_Globals(t *testing.T) {
	m := singleFunction(v_i32, nil,
		wasm.OpcodeGlobalGet, 0,
		wasm.OpcodeGlobalGet, 1, wasm.OpcodeI32Add,
		wasm.OpcodeGlobalSet, 1,
		wasm.OpcodeGlobalGet, 1,
		wasm.OpcodeEnd)
	m.GlobalSection = []*wasm.Global{
		{Type: &wasm.GlobalType{ValType: i32}, Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0x2a}}},
		{Type: &wasm.GlobalType{ValType: i32, Mutable: true}, Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0x7f}}},
	}

	text := compileText(t, buildConfig(t, vulkan()), m)
	require.Regexp(t, `OpConstant %\d+ 42\n`, text)
	require.Regexp(t, `OpConstant %\d+ 4294967295\n`, text)
	require.Regexp(t, `OpVariable %\d+ Private %\d+\n`, text)
	require.Contains(t, text, `"global1"`)

	t.Run("setting an immutable global", func(t *testing.T) {
		m := singleFunction(v_v, nil, wasm.OpcodeI32Const, 1, wasm.OpcodeGlobalSet, 0, wasm.OpcodeEnd)
		m.GlobalSection = []*wasm.Global{
			{Type: &wasm.GlobalType{ValType: i32}, Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0}}},
		}
		_, err := Compile(buildConfig(t, vulkan()), m, nil)
		require.True(t, errors.Is(err, api.ErrTypeMismatch), err)
	})
}

func TestCompile_Numeric(t *testing.T) {
	tests := []struct {
		name     string
		typ      *wasm.FunctionType
		body     []byte
		expected []string
	}{
		{
			name:     "sqrt is an extended instruction",
			typ:      f32_f32,
			body:     []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeF32Sqrt, wasm.OpcodeEnd},
			expected: []string{`OpExtInstImport "GLSL.std.450"`, " Sqrt "},
		},
		{
			name:     "nearest rounds to even",
			typ:      f32_f32,
			body:     []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeF32Nearest, wasm.OpcodeEnd},
			expected: []string{" RoundEven "},
		},
		{
			name:     "min propagates NaN",
			typ:      &wasm.FunctionType{Params: []wasm.ValueType{f32, f32}, Results: []wasm.ValueType{f32}},
			body:     []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 1, wasm.OpcodeF32Min, wasm.OpcodeEnd},
			expected: []string{"OpIsNan", "0x7fc00000"},
		},
		{
			name:     "shift counts are masked",
			typ:      i32_i32,
			body:     []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Shl, wasm.OpcodeEnd},
			expected: []string{"OpBitwiseAnd", "OpShiftLeftLogical"},
		},
		{
			name:     "popcnt of i64 counts halves",
			typ:      i64_i64,
			body:     []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeI64Popcnt, wasm.OpcodeEnd},
			expected: []string{"OpBitCount", "OpUConvert"},
		},
		{
			name:     "trapping truncation saturates",
			typ:      &wasm.FunctionType{Params: []wasm.ValueType{f32}, Results: []wasm.ValueType{i32}},
			body:     []byte{wasm.OpcodeLocalGet, 0, wasm.OpcodeI32TruncF32S, wasm.OpcodeEnd},
			expected: []string{"OpConvertFToS", "OpIsNan", "2147483647"},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			text := compileText(t, buildConfig(t, vulkan()), singleFunction(tc.typ, nil, tc.body...))
			for _, e := range tc.expected {
				require.Contains(t, text, e)
			}
		})
	}
}

func TestCompile_TruncateUnsigned(t *testing.T) {
	tests := []struct {
		name string
		typ  *wasm.FunctionType
		op   wasm.Opcode
		misc bool
	}{
		{name: "i32.trunc_f32_u", typ: &wasm.FunctionType{Params: []wasm.ValueType{f32}, Results: []wasm.ValueType{i32}}, op: wasm.OpcodeI32TruncF32U},
		{name: "i64.trunc_f64_u", typ: &wasm.FunctionType{Params: []wasm.ValueType{f64}, Results: []wasm.ValueType{i64}}, op: wasm.OpcodeI64TruncF64U},
		{name: "i32.trunc_sat_f32_u", typ: &wasm.FunctionType{Params: []wasm.ValueType{f32}, Results: []wasm.ValueType{i32}}, op: wasm.OpcodeMiscI32TruncSatF32U, misc: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			body := []byte{wasm.OpcodeLocalGet, 0}
			if tc.misc {
				body = append(body, wasm.OpcodeMiscPrefix)
			}
			body = append(body, tc.op, wasm.OpcodeEnd)
			text := compileText(t, buildConfig(t, vulkan()), singleFunction(tc.typ, nil, body...))

			// Negative operands, -0.5 included, are replaced with zero before the conversion.
			conv := regexp.MustCompile(`OpConvertFToU %\d+ (%\d+)\n`).FindStringSubmatch(text)
			require.NotNil(t, conv)
			require.Regexp(t, conv[1]+` = OpSelect %\d+ %\d+ %\d+ %\d+\n`, text)
			require.Equal(t, 0, countOp(text, spirv.OpFOrdLessThanEqual))
		})
	}
}

func TestCompile_EntryPoint(t *testing.T) {
	// main(out) stores 7 at the first element of a storage buffer.
	m := withMemory(singleFunction(i32_v, nil,
		wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Const, 7, wasm.OpcodeI32Store, 2, 0, wasm.OpcodeEnd), 1)
	fc := config.NewFunctionConfig().
		WithExecutionModel(api.ExecutionModelGLCompute).
		WithExecutionMode(config.LocalSize(64, 1, 1)).
		WithParam(0, config.DescriptorSetParameter(api.StorageClassStorageBuffer, 0, 1).WithStructuredArray(api.ValueTypeI32))

	text := compileText(t, buildConfig(t, vulkan().WithFunction(0, fc)), m)
	require.Regexp(t, `OpEntryPoint GLCompute %\d+ "main"\n`, text)
	require.Regexp(t, `OpExecutionMode %\d+ LocalSize 64 1 1\n`, text)
	require.Regexp(t, `OpDecorate %\d+ DescriptorSet 0\n`, text)
	require.Regexp(t, `OpDecorate %\d+ Binding 1\n`, text)
	require.Regexp(t, `OpDecorate %\d+ ArrayStride 4\n`, text)
	// The wrapper passes the address of region 1.
	require.Regexp(t, `OpConstant %\d+ 268435456\n`, text)
	// Reading and writing a word both switch on the region.
	require.Equal(t, 2, countOp(text, spirv.OpSwitch))

	t.Run("SPIR-V 1.4 lists every variable", func(t *testing.T) {
		b := config.NewBuilder(config.Vulkan(1, 2), config.Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450)
		text := compileText(t, buildConfig(t, b.WithFunction(0, fc)), m)
		// The buffer and linear memory.
		require.Regexp(t, `OpEntryPoint GLCompute %\d+ "main" %\d+ %\d+\n`, text)
	})
}

func TestCompile_EntryPointInputs(t *testing.T) {
	m := singleFunction(&wasm.FunctionType{Params: []wasm.ValueType{i32, f32}}, nil, wasm.OpcodeEnd)
	fc := config.NewFunctionConfig().
		WithExecutionModel(api.ExecutionModelFragment).
		WithExecutionMode(config.OriginUpperLeft).
		WithParam(0, config.InputParameter(0)).
		WithParam(1, config.InputParameter(1))

	text := compileText(t, buildConfig(t, vulkan().WithFunction(0, fc)), m)
	require.Regexp(t, `OpEntryPoint Fragment %\d+ "main" %\d+ %\d+\n`, text)
	require.Regexp(t, `OpDecorate %\d+ Location 1\n`, text)
	// Only the integer input is flat.
	require.Equal(t, 1, strings.Count(text, " Flat\n"))

	t.Run("an ordinary parameter", func(t *testing.T) {
		fc := config.NewFunctionConfig().WithExecutionModel(api.ExecutionModelFragment)
		_, err := Compile(buildConfig(t, vulkan().WithFunction(0, fc)), m, nil)
		require.True(t, errors.Is(err, api.ErrUnsupported), err)
		require.Contains(t, err.Error(), "param[0]")
	})
}

func TestCompile_Builtin(t *testing.T) {
	// main() stores gl_GlobalInvocationID.x to memory.
	m := withMemory(&wasm.Module{
		TypeSection:     []*wasm.FunctionType{i32_i32, v_v},
		ImportSection:   []*wasm.Import{{Type: wasm.ExternTypeFunc, Module: "spir_global", Name: "gl_GlobalInvocationID", DescFunc: 0}},
		FunctionSection: []wasm.Index{1},
		CodeSection: []*wasm.Code{{Body: []byte{
			wasm.OpcodeI32Const, 0,
			wasm.OpcodeI32Const, 0, wasm.OpcodeCall, 0,
			wasm.OpcodeI32Store, 2, 0,
			wasm.OpcodeEnd,
		}}},
		ExportSection: []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "main", Index: 1}},
	}, 1)
	fc := config.NewFunctionConfig().
		WithExecutionModel(api.ExecutionModelGLCompute).
		WithExecutionMode(config.LocalSize(8, 8, 1))

	text := compileText(t, buildConfig(t, vulkan().WithFunction(1, fc)), m)
	require.Regexp(t, `OpDecorate %\d+ BuiltIn GlobalInvocationId\n`, text)
	require.Regexp(t, `OpEntryPoint GLCompute %\d+ "main" %\d+\n`, text)
	require.Equal(t, 1, countOp(text, spirv.OpCompositeExtract))
}

func TestCompile_AddressingModels(t *testing.T) {
	m := withMemory(singleFunction(i32_i32, nil,
		wasm.OpcodeLocalGet, 0, wasm.OpcodeI32Load, 2, 0, wasm.OpcodeEnd), 1)

	tests := []struct {
		name     string
		builder  *config.Builder
		expected []string
	}{
		{
			name:     "logical",
			builder:  vulkan(),
			expected: []string{"OpMemoryModel Logical GLSL450", "StorageBuffer"},
		},
		{
			name: "physical storage buffer",
			builder: config.NewBuilder(config.Vulkan(1, 2), config.Dynamic(), nil,
				api.AddressingModelPhysicalStorageBuffer, api.MemoryModelGLSL450),
			expected: []string{"OpMemoryModel PhysicalStorageBuffer64 GLSL450", "PushConstant", "OpConvertUToPtr", "Aligned 4"},
		},
		{
			name: "physical",
			builder: config.NewBuilder(config.Universal(1, 0), config.Dynamic(), nil,
				api.AddressingModelPhysical, api.MemoryModelOpenCL),
			expected: []string{"OpCapability Kernel", "OpMemoryModel Physical32 OpenCL", "CrossWorkgroup"},
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			text := compileText(t, buildConfig(t, tc.builder), m)
			for _, e := range tc.expected {
				require.Contains(t, text, e)
			}
		})
	}
}

func TestCompile_DataSegments(t *testing.T) {
	m := withMemory(singleFunction(v_i32, nil, wasm.OpcodeI32Const, 0, wasm.OpcodeI32Load, 2, 0, wasm.OpcodeEnd), 1)
	m.DataSection = []*wasm.DataSegment{{
		OffsetExpression: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{4}},
		Init:             []byte{1, 2, 3, 4},
	}}
	b := config.NewBuilder(config.Universal(1, 0), config.Dynamic(), nil, api.AddressingModelPhysical, api.MemoryModelOpenCL)

	text := compileText(t, buildConfig(t, b), m)
	require.Regexp(t, `OpConstant %\d+ 67305985\n`, text) // 0x04030201
	require.Equal(t, 1, countOp(text, spirv.OpConstantComposite))

	t.Run("out of bounds", func(t *testing.T) {
		m := withMemory(singleFunction(v_v, nil, wasm.OpcodeEnd), 0)
		m.DataSection = []*wasm.DataSegment{{
			OffsetExpression: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{4}},
			Init:             []byte{1},
		}}
		_, err := Compile(buildConfig(t, b), m, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "out of memory bounds")
	})
}

func TestCompile_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, logging.LogScopeBuild)
	_, err := Compile(buildConfig(t, vulkan()), singleFunction(v_v, nil, wasm.OpcodeEnd), logger)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "function[0]")
}
