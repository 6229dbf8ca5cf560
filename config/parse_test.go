package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasm2spirv/api"
)

const computeJSON = `{
  "platform": {"vulkan": {"major": 1, "minor": 1}},
  "addressing_model": "logical",
  "memory_model": "GLSL450",
  "capabilities": {"dynamic": ["Shader", "int64"]},
  "extensions": ["SPV_KHR_storage_buffer_storage_class"],
  "features": {"memory64": false, "sign_extension": false},
  "memory_grow_error": "hard",
  "functions": {
    "1": {
      "execution_model": "GLCompute",
      "execution_modes": [{"local_size": [64, 1, 1]}],
      "params": {
        "0": {"kind": {"input": 0}},
        "1": {"type": "f32", "structured_array": true, "kind": {"descriptor_set": {"storage_class": "storage_buffer", "set": 0, "binding": 2}}}
      }
    }
  }
}`

const computeYAML = `
platform:
  vulkan: {major: 1, minor: 1}
addressing_model: logical
memory_model: GLSL450
capabilities:
  dynamic: [Shader, int64]
extensions: [SPV_KHR_storage_buffer_storage_class]
features:
  memory64: false
  sign_extension: false
memory_grow_error: hard
functions:
  "1":
    execution_model: GLCompute
    execution_modes:
      - local_size: [64, 1, 1]
    params:
      "0":
        kind: {input: 0}
      "1":
        type: f32
        structured_array: true
        kind:
          descriptor_set: {storage_class: storage_buffer, set: 0, binding: 2}
`

func TestParse_Compute(t *testing.T) {
	expected, err := NewBuilder(Vulkan(1, 1), Dynamic(api.CapabilityShader, api.CapabilityInt64),
		[]string{"SPV_KHR_storage_buffer_storage_class"}, api.AddressingModelLogical, api.MemoryModelGLSL450).
		WithFeatures(Features{SaturatingFloatToInt: true}).
		WithMemoryGrowError(MemoryGrowErrorHard).
		WithFunction(1, NewFunctionConfig().
			WithExecutionModel(api.ExecutionModelGLCompute).
			WithExecutionMode(LocalSize(64, 1, 1)).
			WithParam(0, InputParameter(0)).
			WithParam(1, DescriptorSetParameter(api.StorageClassStorageBuffer, 0, 2).WithStructuredArray(api.ValueTypeF32))).
		Build()
	require.NoError(t, err)

	fromJSON, err := ParseJSON([]byte(computeJSON))
	require.NoError(t, err)
	require.Equal(t, expected, fromJSON)

	fromYAML, err := ParseYAML([]byte(computeYAML))
	require.NoError(t, err)
	require.Equal(t, expected, fromYAML)
}

func TestParse_Minimal(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
platform: {universal: {major: 1, minor: 4}}
addressing_model: physical
memory_model: open_cl
capabilities: {static: [Kernel, Addresses]}
`))
	require.NoError(t, err)
	require.Equal(t, Version{1, 4}, cfg.SPIRVVersion())
	require.Equal(t, api.AddressingModelPhysical, cfg.AddressingModel())
	require.Equal(t, api.MemoryModelOpenCL, cfg.MemoryModel())
	require.Equal(t, Static(api.CapabilityKernel, api.CapabilityAddresses), cfg.Capabilities())
	require.Equal(t, DefaultFeatures(), cfg.Features())
	require.Equal(t, MemoryGrowErrorSoft, cfg.MemoryGrowError())
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectedErr string
	}{
		{
			name:        "not json",
			input:       `{`,
			expectedErr: "invalid config: unexpected EOF",
		},
		{
			name:        "wrong type",
			input:       `{"addressing_model": 1}`,
			expectedErr: "invalid config: addressing_model: json: cannot unmarshal number into Go struct field rawConfig.addressing_model of type string",
		},
		{
			name:        "unknown field",
			input:       `{"colour": "red"}`,
			expectedErr: `invalid config: json: unknown field "colour"`,
		},
		{
			name:        "missing platform",
			input:       `{"addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}}`,
			expectedErr: "invalid config: platform: required field is missing",
		},
		{
			name:        "two platforms",
			input:       `{"platform": {"vulkan": {"major": 1}, "universal": {"major": 1}}}`,
			expectedErr: "invalid config: platform: set only one of vulkan and universal",
		},
		{
			name:        "missing addressing model",
			input:       `{"platform": {"vulkan": {"major": 1}}}`,
			expectedErr: "invalid config: addressing_model: required field is missing",
		},
		{
			name:        "unknown addressing model",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "segmented"}`,
			expectedErr: `invalid config: addressing_model: unknown addressing model "segmented"`,
		},
		{
			name:        "missing memory model",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical"}`,
			expectedErr: "invalid config: memory_model: required field is missing",
		},
		{
			name:        "missing capabilities",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple"}`,
			expectedErr: "invalid config: capabilities: required field is missing",
		},
		{
			name:        "unknown capability",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"static": ["Shader", "Teleport"]}}`,
			expectedErr: `invalid config: capabilities.static.1: unknown capability "Teleport"`,
		},
		{
			name:        "both capability models",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"static": [], "dynamic": []}}`,
			expectedErr: "invalid config: capabilities: set only one of static and dynamic",
		},
		{
			name:        "unknown memory grow error",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "memory_grow_error": "loud"}`,
			expectedErr: `invalid config: memory_grow_error: unknown memory.grow error "loud"`,
		},
		{
			name:        "function index",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"main": {}}}`,
			expectedErr: `invalid config: functions.main: invalid index "main"`,
		},
		{
			name:        "unknown execution model",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"execution_model": "Raytrace"}}}`,
			expectedErr: `invalid config: functions.0.execution_model: unknown execution model "Raytrace"`,
		},
		{
			name:        "two modes in one entry",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"execution_modes": [{"origin_upper_left": [], "depth_replacing": []}]}}}`,
			expectedErr: "invalid config: functions.0.execution_modes.0: expected one mode, but found 2",
		},
		{
			name:        "mode operands",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"execution_modes": [{"local_size": [1, 1]}]}}}`,
			expectedErr: "invalid config: functions.0.execution_modes.0: LocalSize takes 3 operands, but has 2",
		},
		{
			name:        "two kinds",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"params": {"2": {"kind": {"input": 0, "output": 1}}}}}}`,
			expectedErr: "invalid config: functions.0.params.2.kind: expected one kind, but found 2",
		},
		{
			name:        "unknown type",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"params": {"0": {"type": "v128"}}}}}`,
			expectedErr: `invalid config: functions.0.params.0.type: unknown type "v128"`,
		},
		{
			name:        "structured array without a type",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"params": {"0": {"structured_array": true}}}}}`,
			expectedErr: "invalid config: functions.0.params.0.type: a structured array needs an element type",
		},
		{
			name:        "unknown storage class",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"params": {"0": {"kind": {"descriptor_set": {"storage_class": "disk"}}}}}}}`,
			expectedErr: `invalid config: functions.0.params.0.kind.descriptor_set.storage_class: unknown storage class "disk"`,
		},
		{
			name:        "push constant structured array",
			input:       `{"platform": {"vulkan": {"major": 1}}, "addressing_model": "logical", "memory_model": "simple", "capabilities": {"dynamic": []}, "functions": {"0": {"params": {"0": {"type": "i32", "structured_array": true, "kind": {"descriptor_set": {"storage_class": "push_constant"}}}}}}}`,
			expectedErr: "invalid config: functions.0.params.0.type: a structured array cannot be a push constant",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tc.input))
			require.EqualError(t, err, tc.expectedErr)

			var cfgErr *api.ConfigError
			require.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedField string
	}{
		{
			name:          "unknown field",
			input:         "colour: red\n",
			expectedField: "",
		},
		{
			name:          "unknown capability",
			input:         "platform: {vulkan: {major: 1}}\naddressing_model: logical\nmemory_model: simple\ncapabilities: {dynamic: [Shader, Teleport]}\n",
			expectedField: "capabilities.dynamic.1",
		},
		{
			name:          "vulkan physical",
			input:         "platform: {vulkan: {major: 1, minor: 2}}\naddressing_model: physical\nmemory_model: simple\ncapabilities: {dynamic: []}\n",
			expectedField: "addressing_model",
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tc.input))
			var cfgErr *api.ConfigError
			require.True(t, errors.As(err, &cfgErr), "%v", err)
			require.Equal(t, tc.expectedField, cfgErr.Field)
		})
	}
}
