package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapability(t *testing.T) {
	tests := []struct {
		input    string
		expected Capability
	}{
		{"Shader", CapabilityShader},
		{"shader", CapabilityShader},
		{"Int64", CapabilityInt64},
		{"physical_storage_buffer_addresses", CapabilityPhysicalStorageBufferAddresses},
		{"VulkanMemoryModel", CapabilityVulkanMemoryModel},
		{"11", CapabilityInt64},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.input, func(t *testing.T) {
			c, ok := ParseCapability(tc.input)
			require.True(t, ok)
			require.Equal(t, tc.expected, c)
		})
	}

	_, ok := ParseCapability("Teleportation")
	require.False(t, ok)
	require.Equal(t, "Shader", CapabilityShader.String())
	require.Equal(t, "99999", Capability(99999).String())
}

func TestEnumNames_RoundTrip(t *testing.T) {
	for v, name := range capabilityNames {
		c, ok := ParseCapability(name)
		require.True(t, ok, name)
		require.Equal(t, Capability(v), c)
	}
	for v, name := range storageClassNames {
		c, ok := ParseStorageClass(name)
		require.True(t, ok, name)
		require.Equal(t, StorageClass(v), c)
	}
	for v, name := range executionModelNames {
		m, ok := ParseExecutionModel(name)
		require.True(t, ok, name)
		require.Equal(t, ExecutionModel(v), m)
	}
	for v, name := range executionModeNames {
		m, ok := ParseExecutionMode(name)
		require.True(t, ok, name)
		require.Equal(t, ExecutionMode(v), m)
	}
	for v, name := range decorationNames {
		d, ok := ParseDecoration(name)
		require.True(t, ok, name)
		require.Equal(t, Decoration(v), d)
	}
	for v, name := range builtInNames {
		b, ok := ParseBuiltIn(name)
		require.True(t, ok, name)
		require.Equal(t, BuiltIn(v), b)
	}
}

func TestParseModels(t *testing.T) {
	a, ok := ParseAddressingModel("physical_storage_buffer")
	require.True(t, ok)
	require.Equal(t, AddressingModelPhysicalStorageBuffer, a)

	m, ok := ParseMemoryModel("glsl450")
	require.True(t, ok)
	require.Equal(t, MemoryModelGLSL450, m)

	m, ok = ParseMemoryModel("open_cl")
	require.True(t, ok)
	require.Equal(t, MemoryModelOpenCL, m)

	_, ok = ParseMemoryModel("Relaxed")
	require.False(t, ok)
}
