package spirv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasm2spirv/api"
)

// buildCompute returns a small compute module and its expected text form.
func buildCompute(t *testing.T) (*Module, string) {
	b := NewBuilder(Version1_3)
	b.AddCapability(api.CapabilityShader)
	b.AddCapability(api.CapabilityShader)
	b.SetMemoryModel(AddressingModelLogical, api.MemoryModelGLSL450)

	u32 := b.TypeInt(32, false)
	seven := b.ConstantUint32(u32, 7)
	require.Equal(t, u32, b.TypeInt(32, false))
	require.Equal(t, seven, b.ConstantUint32(u32, 7))

	void := b.TypeVoid()
	fnType := b.TypeFunction(void)
	fnID := b.AllocID()
	f := b.NewFunction(fnID, void, fnType, FunctionControlNone)
	f.NewLabel()
	v := f.Variable(b.TypePointer(api.StorageClassFunction, u32), 0)
	f.Emit(OpStore, v, seven)
	f.Emit(OpReturn)
	require.True(t, f.Terminated())
	f.End()

	b.AddEntryPoint(api.ExecutionModelGLCompute, fnID, "main", nil)
	b.AddExecutionMode(fnID, api.ExecutionModeLocalSize, 1, 1, 1)

	m, err := b.Module()
	require.NoError(t, err)
	return m, `; SPIR-V
; Version: 1.3
; Generator: 0
; Bound: 9
; Schema: 0
OpCapability Shader
OpMemoryModel Logical GLSL450
OpEntryPoint GLCompute %5 "main"
OpExecutionMode %5 LocalSize 1 1 1
%1 = OpTypeInt 32 0
%2 = OpConstant %1 7
%3 = OpTypeVoid
%4 = OpTypeFunction %3
%7 = OpTypePointer Function %1
%5 = OpFunction %3 None %4
%6 = OpLabel
%8 = OpVariable %7 Function
OpStore %8 %2
OpReturn
OpFunctionEnd
`
}

func TestBuilder_Module(t *testing.T) {
	m, expected := buildCompute(t)
	require.Equal(t, expected, Disassemble(m))

	words := m.Words()
	require.Equal(t, []uint32{MagicNumber, 0x00010300, GeneratorID, 9, 0}, words[:5])
	require.Equal(t, uint32(2)<<16|uint32(OpCapability), words[5])
	require.Equal(t, 4*len(words), len(m.Bytes()))
	require.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, m.Bytes()[:4])
}

func TestBuilder_Interning(t *testing.T) {
	b := NewBuilder(Version1_0)
	u32 := b.TypeInt(32, false)
	i32 := b.TypeInt(32, true)
	require.NotEqual(t, u32, i32)

	s1 := b.TypeStruct(u32)
	require.Equal(t, s1, b.TypeStruct(u32))
	require.NotEqual(t, s1, b.TypeStruct(u32, u32))

	p1 := b.TypePointer(api.StorageClassStorageBuffer, s1)
	require.NotEqual(t, p1, b.TypePointer(api.StorageClassPrivate, s1))

	// Same bits, different types.
	require.NotEqual(t, b.ConstantUint32(u32, 1), b.ConstantUint32(i32, 1))
	require.Equal(t, b.ConstantBool(true), b.ConstantBool(true))
	require.NotEqual(t, b.ConstantBool(true), b.ConstantBool(false))

	// Variables are never shared.
	require.NotEqual(t, b.Variable(p1, api.StorageClassStorageBuffer, 0), b.Variable(p1, api.StorageClassStorageBuffer, 0))

	b.Decorate(s1, api.DecorationBlock)
	b.Decorate(s1, api.DecorationBlock)
	b.MemberDecorate(s1, 0, api.DecorationOffset, 0)
	b.MemberDecorate(s1, 0, api.DecorationOffset, 0)
	require.Equal(t, 2, len(b.annotations))

	require.Equal(t, b.ExtInstImport(ExtInstSetGLSL), b.ExtInstImport(ExtInstSetGLSL))
	require.Equal(t, 1, len(b.extInstImports))

	b.AddExtension("SPV_KHR_storage_buffer_storage_class")
	b.AddExtension("SPV_KHR_storage_buffer_storage_class")
	require.Equal(t, 1, len(b.extensions))
}

func TestBuilder_Capabilities(t *testing.T) {
	b := NewBuilder(Version1_0)
	b.AddCapability(api.CapabilityInt64)
	b.AddCapability(api.CapabilityShader)
	b.AddCapability(api.CapabilityInt64)
	require.Equal(t, []api.Capability{api.CapabilityInt64, api.CapabilityShader}, b.Capabilities())
	require.True(t, b.HasCapability(api.CapabilityShader))
	require.False(t, b.HasCapability(api.CapabilityKernel))
}

func TestBuilder_Errors(t *testing.T) {
	newFunction := func(b *Builder) *Function {
		void := b.TypeVoid()
		fnType := b.TypeFunction(void)
		return b.NewFunction(b.AllocID(), void, fnType, FunctionControlNone)
	}

	tests := []struct {
		name        string
		build       func(b *Builder)
		expectedErr string
	}{
		{
			name:        "no memory model",
			build:       func(b *Builder) {},
			expectedErr: "memory model not set",
		},
		{
			name: "emit after terminator",
			build: func(b *Builder) {
				f := newFunction(b)
				f.NewLabel()
				f.Emit(OpReturn)
				f.Emit(OpReturn)
			},
			expectedErr: "function %3: OpReturn outside a block",
		},
		{
			name: "label in open block",
			build: func(b *Builder) {
				f := newFunction(b)
				f.NewLabel()
				f.NewLabel()
			},
			expectedErr: "function %3: block %5 starts before the previous block is terminated",
		},
		{
			name: "unterminated",
			build: func(b *Builder) {
				f := newFunction(b)
				f.NewLabel()
				f.End()
			},
			expectedErr: "function %3: last block is not terminated",
		},
		{
			name: "no blocks",
			build: func(b *Builder) {
				newFunction(b).End()
			},
			expectedErr: "function %3 has no blocks",
		},
		{
			name: "undefined id",
			build: func(b *Builder) {
				b.SetMemoryModel(AddressingModelLogical, api.MemoryModelGLSL450)
				f := newFunction(b)
				f.NewLabel()
				f.Emit(OpReturnValue, 42)
				f.End()
			},
			expectedErr: "invalid module: OpReturnValue: %42 is not defined",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder(Version1_0)
			tc.build(b)
			_, err := b.Module()
			require.Error(t, err)
			require.True(t, api.IsInternal(err))
			require.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}
