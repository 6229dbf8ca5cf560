package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasm2spirv/api"
)

func TestTarget_SPIRVVersion(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		expected Version
	}{
		{name: "vulkan 1.0", target: Vulkan(1, 0), expected: Version{1, 0}},
		{name: "vulkan 1.1", target: Vulkan(1, 1), expected: Version{1, 3}},
		{name: "vulkan 1.2", target: Vulkan(1, 2), expected: Version{1, 5}},
		{name: "vulkan 1.3", target: Vulkan(1, 3), expected: Version{1, 6}},
		{name: "vulkan 1.4", target: Vulkan(1, 4), expected: Version{1, 6}},
		{name: "universal 1.0", target: Universal(1, 0), expected: Version{1, 0}},
		{name: "universal 1.4", target: Universal(1, 4), expected: Version{1, 4}},
		{name: "universal 1.6", target: Universal(1, 6), expected: Version{1, 6}},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewBuilder(tc.target, Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).Build()
			require.NoError(t, err)
			require.Equal(t, tc.expected, cfg.SPIRVVersion())
			require.Equal(t, tc.target, cfg.Target())
		})
	}
}

func TestBuilder_Defaults(t *testing.T) {
	cfg, err := NewBuilder(Vulkan(1, 1), Dynamic(api.CapabilityShader), []string{"SPV_KHR_variable_pointers"},
		api.AddressingModelLogical, api.MemoryModelGLSL450).Build()
	require.NoError(t, err)

	require.Equal(t, DefaultFeatures(), cfg.Features())
	require.True(t, cfg.Features().SignExtension)
	require.True(t, cfg.Features().SaturatingFloatToInt)
	require.False(t, cfg.Features().Memory64)
	require.Equal(t, MemoryGrowErrorSoft, cfg.MemoryGrowError())
	require.Equal(t, []string{"SPV_KHR_variable_pointers"}, cfg.Extensions())
	require.Equal(t, api.AddressingModelLogical, cfg.AddressingModel())
	require.Equal(t, api.MemoryModelGLSL450, cfg.MemoryModel())
	require.Empty(t, cfg.FunctionIndexes())

	_, ok := cfg.Function(0)
	require.False(t, ok)
}

func TestBuilder_CopyOnWrite(t *testing.T) {
	base := NewBuilder(Vulkan(1, 1), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450)
	hard := base.WithMemoryGrowError(MemoryGrowErrorHard)
	withFn := base.WithFunction(2, NewFunctionConfig().WithExecutionModel(api.ExecutionModelGLCompute))

	baseCfg, err := base.Build()
	require.NoError(t, err)
	require.Equal(t, MemoryGrowErrorSoft, baseCfg.MemoryGrowError())
	require.Empty(t, baseCfg.FunctionIndexes())

	hardCfg, err := hard.Build()
	require.NoError(t, err)
	require.Equal(t, MemoryGrowErrorHard, hardCfg.MemoryGrowError())
	require.Empty(t, hardCfg.FunctionIndexes())

	fnCfg, err := withFn.Build()
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, fnCfg.FunctionIndexes())
	f, ok := fnCfg.Function(2)
	require.True(t, ok)
	m, ok := f.ExecutionModel()
	require.True(t, ok)
	require.Equal(t, api.ExecutionModelGLCompute, m)
}

func TestFunctionConfig_CopyOnWrite(t *testing.T) {
	base := NewFunctionConfig().WithParam(0, InputParameter(1))
	more := base.WithParam(1, OutputParameter(0)).WithExecutionMode(LocalSize(8, 8, 1))

	require.Equal(t, []uint32{0}, base.ParamIndexes())
	require.Empty(t, base.ExecutionModes())
	_, ok := base.ExecutionModel()
	require.False(t, ok)

	require.Equal(t, []uint32{0, 1}, more.ParamIndexes())
	require.Equal(t, []ExecutionMode{LocalSize(8, 8, 1)}, more.ExecutionModes())
	require.Equal(t, OutputParameter(0), more.Param(1))
	require.Equal(t, FunctionParameter(), more.Param(7))

	// Mutating the returned slice does not leak into the config.
	modes := more.ExecutionModes()
	modes[0].Mode = api.ExecutionModeInvocations
	require.Equal(t, api.ExecutionModeLocalSize, more.ExecutionModes()[0].Mode)
}

func TestParameter(t *testing.T) {
	p := DescriptorSetParameter(api.StorageClassStorageBuffer, 1, 2).WithStructuredArray(api.ValueTypeF32)
	require.True(t, p.IsStructuredArray())
	require.Equal(t, &ParameterType{Scalar: api.ValueTypeF32, StructuredArray: true}, p.Type)
	require.Equal(t, uint32(1), p.Set)
	require.Equal(t, uint32(2), p.Binding)

	p = InputParameter(3).WithScalar(api.ValueTypeI64)
	require.False(t, p.IsStructuredArray())
	require.Equal(t, ParameterKindInput, p.Kind)
	require.Equal(t, uint32(3), p.Location)
	require.Equal(t, "input", p.Kind.String())
	require.Equal(t, "function_parameter", FunctionParameter().Kind.String())
}

func TestBuilder_Build_Errors(t *testing.T) {
	compute := func(p Parameter) *FunctionConfig {
		return NewFunctionConfig().WithExecutionModel(api.ExecutionModelGLCompute).WithParam(1, p)
	}

	tests := []struct {
		name        string
		builder     *Builder
		expectedErr string
	}{
		{
			name:        "vulkan 2.0",
			builder:     NewBuilder(Vulkan(2, 0), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450),
			expectedErr: "invalid config: platform.version: unsupported Vulkan version 2.0",
		},
		{
			name:        "spir-v 1.7",
			builder:     NewBuilder(Universal(1, 7), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450),
			expectedErr: "invalid config: platform.version: unsupported SPIR-V version 1.7",
		},
		{
			name:        "vulkan physical",
			builder:     NewBuilder(Vulkan(1, 2), Dynamic(), nil, api.AddressingModelPhysical, api.MemoryModelGLSL450),
			expectedErr: "invalid config: addressing_model: Vulkan does not support Physical addressing",
		},
		{
			name:        "universal physical storage buffer",
			builder:     NewBuilder(Universal(1, 5), Dynamic(), nil, api.AddressingModelPhysicalStorageBuffer, api.MemoryModelGLSL450),
			expectedErr: "invalid config: addressing_model: PhysicalStorageBuffer addressing requires the Vulkan platform",
		},
		{
			name: "execution mode operands",
			builder: NewBuilder(Vulkan(1, 1), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).
				WithFunction(0, NewFunctionConfig().WithExecutionMode(ExecutionMode{Mode: api.ExecutionModeLocalSize, Operands: []uint32{1}})),
			expectedErr: "invalid config: functions.0.execution_modes.0: LocalSize takes 3 operands, but has 1",
		},
		{
			name: "structured array push constant",
			builder: NewBuilder(Vulkan(1, 1), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).
				WithFunction(0, compute(DescriptorSetParameter(api.StorageClassPushConstant, 0, 0).WithStructuredArray(api.ValueTypeI32))),
			expectedErr: "invalid config: functions.0.params.1.type: a structured array cannot be a push constant",
		},
		{
			name: "structured array input",
			builder: NewBuilder(Vulkan(1, 1), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).
				WithFunction(3, compute(InputParameter(0).WithStructuredArray(api.ValueTypeI32))),
			expectedErr: "invalid config: functions.3.params.1.type: a structured array must be a descriptor set parameter, not input",
		},
		{
			name: "descriptor in private storage",
			builder: NewBuilder(Vulkan(1, 1), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).
				WithFunction(0, compute(DescriptorSetParameter(api.StorageClassPrivate, 0, 0))),
			expectedErr: "invalid config: functions.0.params.1.kind: storage class Private cannot hold a descriptor",
		},
		{
			name: "invalid scalar",
			builder: NewBuilder(Vulkan(1, 1), Dynamic(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).
				WithFunction(0, compute(InputParameter(0).WithScalar(0x40))),
			expectedErr: "invalid config: functions.0.params.1.type: invalid scalar type 0x40",
		},
		{
			name: "static list lacks the execution model capability",
			builder: NewBuilder(Universal(1, 0), Static(api.CapabilityShader), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).
				WithFunction(0, NewFunctionConfig().WithExecutionModel(api.ExecutionModelKernel)),
			expectedErr: "invalid config: capabilities: missing capability: Kernel",
		},
		{
			name:        "static list lacks the memory model capability",
			builder:     NewBuilder(Universal(1, 0), Static(api.CapabilityInt64), nil, api.AddressingModelLogical, api.MemoryModelGLSL450),
			expectedErr: "invalid config: capabilities: missing capability: Shader",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder.Build()
			require.EqualError(t, err, tc.expectedErr)

			var cfgErr *api.ConfigError
			require.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestBuilder_Build_StaticMissingCapabilityIs(t *testing.T) {
	_, err := NewBuilder(Universal(1, 0), Static(), nil, api.AddressingModelLogical, api.MemoryModelGLSL450).Build()
	require.True(t, errors.Is(err, api.ErrMissingCapability))
}

func TestCapabilityModel_Allows(t *testing.T) {
	tests := []struct {
		name     string
		model    CapabilityModel
		c        api.Capability
		expected bool
	}{
		{name: "dynamic allows anything", model: Dynamic(), c: api.CapabilityFloat64, expected: true},
		{name: "listed", model: Static(api.CapabilityShader), c: api.CapabilityShader, expected: true},
		{name: "implied", model: Static(api.CapabilityShader), c: api.CapabilityMatrix, expected: true},
		{name: "implied through a chain", model: Static(api.CapabilityVariablePointers), c: api.CapabilityMatrix, expected: true},
		{name: "geometry implies shader", model: Static(api.CapabilityGeometry), c: api.CapabilityShader, expected: true},
		{name: "not implied", model: Static(api.CapabilityShader), c: api.CapabilityInt64, expected: false},
		{name: "implication is one way", model: Static(api.CapabilityShader), c: api.CapabilityGeometry, expected: false},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.model.Allows(tc.c))
		})
	}
}

func TestConfig_Capabilities(t *testing.T) {
	cfg, err := NewBuilder(Vulkan(1, 2), Static(api.CapabilityShader, api.CapabilityInt64, api.CapabilityShader,
		api.CapabilityPhysicalStorageBufferAddresses), nil, api.AddressingModelPhysicalStorageBuffer, api.MemoryModelGLSL450).
		WithFunction(0, NewFunctionConfig().
			WithExecutionModel(api.ExecutionModelFragment).
			WithParam(0, InputParameter(0)).
			WithParam(1, DescriptorSetParameter(api.StorageClassStorageBuffer, 0, 1))).
		Build()
	require.NoError(t, err)

	caps := cfg.Capabilities()
	require.Equal(t, CapabilityModelStatic, caps.Kind)
	require.Equal(t, []api.Capability{api.CapabilityShader, api.CapabilityInt64, api.CapabilityPhysicalStorageBufferAddresses}, caps.List)

	require.Equal(t, []api.Capability{api.CapabilityPhysicalStorageBufferAddresses, api.CapabilityShader}, cfg.RequiredCapabilities())

	// Mutating the returned list does not leak into the config.
	caps.List[0] = api.CapabilityKernel
	require.Equal(t, api.CapabilityShader, cfg.Capabilities().List[0])
}

func TestStorageClassCapabilities(t *testing.T) {
	require.Equal(t, []api.Capability{api.CapabilityShader}, StorageClassCapabilities(api.StorageClassStorageBuffer))
	require.Equal(t, []api.Capability{api.CapabilityPhysicalStorageBufferAddresses}, StorageClassCapabilities(api.StorageClassPhysicalStorageBuffer))
	require.Nil(t, StorageClassCapabilities(api.StorageClassFunction))
	require.Nil(t, StorageClassCapabilities(api.StorageClassInput))
}

func TestEnums_String(t *testing.T) {
	require.Equal(t, "Vulkan 1.2", Vulkan(1, 2).String())
	require.Equal(t, "Universal 1.5", Universal(1, 5).String())
	require.Equal(t, "1.3", Version{1, 3}.String())
	require.Equal(t, "static", CapabilityModelStatic.String())
	require.Equal(t, "dynamic", CapabilityModelDynamic.String())
	require.Equal(t, "hard", MemoryGrowErrorHard.String())
	require.Equal(t, "soft", MemoryGrowErrorSoft.String())
}
