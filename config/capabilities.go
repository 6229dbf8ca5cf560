package config

import "github.com/tetratelabs/wasm2spirv/api"

func addressingModelCapabilities(m api.AddressingModel) []api.Capability {
	switch m {
	case api.AddressingModelPhysical:
		return []api.Capability{api.CapabilityAddresses}
	case api.AddressingModelPhysicalStorageBuffer:
		return []api.Capability{api.CapabilityPhysicalStorageBufferAddresses}
	}
	return nil
}

func memoryModelCapabilities(m api.MemoryModel) []api.Capability {
	switch m {
	case api.MemoryModelSimple, api.MemoryModelGLSL450:
		return []api.Capability{api.CapabilityShader}
	case api.MemoryModelOpenCL:
		return []api.Capability{api.CapabilityKernel}
	case api.MemoryModelVulkan:
		return []api.Capability{api.CapabilityVulkanMemoryModel}
	}
	return nil
}

func executionModelCapabilities(m api.ExecutionModel) []api.Capability {
	switch m {
	case api.ExecutionModelVertex, api.ExecutionModelFragment, api.ExecutionModelGLCompute:
		return []api.Capability{api.CapabilityShader}
	case api.ExecutionModelTessellationControl, api.ExecutionModelTessellationEvaluation:
		return []api.Capability{api.CapabilityTessellation}
	case api.ExecutionModelGeometry:
		return []api.Capability{api.CapabilityGeometry}
	case api.ExecutionModelKernel:
		return []api.Capability{api.CapabilityKernel}
	}
	return nil
}

func executionModeCapabilities(m api.ExecutionMode) []api.Capability {
	switch m {
	case api.ExecutionModeLocalSizeHint:
		return []api.Capability{api.CapabilityKernel}
	case api.ExecutionModeInvocations:
		return []api.Capability{api.CapabilityGeometry}
	}
	return nil
}

// StorageClassCapabilities returns the capabilities a variable or pointer in the storage class needs.
func StorageClassCapabilities(sc api.StorageClass) []api.Capability {
	return storageClassCapabilities(sc)
}

func storageClassCapabilities(sc api.StorageClass) []api.Capability {
	switch sc {
	case api.StorageClassUniform, api.StorageClassOutput, api.StorageClassPrivate,
		api.StorageClassPushConstant, api.StorageClassStorageBuffer:
		return []api.Capability{api.CapabilityShader}
	case api.StorageClassPhysicalStorageBuffer:
		return []api.Capability{api.CapabilityPhysicalStorageBufferAddresses}
	case api.StorageClassGeneric:
		return []api.Capability{api.CapabilityGenericPointer}
	}
	return nil
}

// implicitlyDeclares maps a capability to those its declaration implies.
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html#_capability
var implicitlyDeclares = map[api.Capability][]api.Capability{
	api.CapabilityShader:                        {api.CapabilityMatrix},
	api.CapabilityGeometry:                      {api.CapabilityShader},
	api.CapabilityTessellation:                  {api.CapabilityShader},
	api.CapabilityVector16:                      {api.CapabilityKernel},
	api.CapabilityFloat16Buffer:                 {api.CapabilityKernel},
	api.CapabilityInt64Atomics:                  {api.CapabilityInt64},
	api.CapabilityImageBasic:                    {api.CapabilityKernel},
	api.CapabilityTessellationPointSize:         {api.CapabilityTessellation},
	api.CapabilityGeometryPointSize:             {api.CapabilityGeometry},
	api.CapabilityClipDistance:                  {api.CapabilityShader},
	api.CapabilityCullDistance:                  {api.CapabilityShader},
	api.CapabilityGenericPointer:                {api.CapabilityAddresses},
	api.CapabilityGroupNonUniformArithmetic:     {api.CapabilityGroupNonUniform},
	api.CapabilityVariablePointersStorageBuffer: {api.CapabilityShader},
	api.CapabilityVariablePointers:              {api.CapabilityVariablePointersStorageBuffer},
	api.CapabilityShaderNonUniform:              {api.CapabilityShader},
	api.CapabilityRuntimeDescriptorArray:        {api.CapabilityShader},
	api.CapabilityInt64ImageEXT:                 {api.CapabilityShader},
}

// implies returns true if declaring declared also declares want, directly or through a chain.
func implies(declared, want api.Capability) bool {
	if declared == want {
		return true
	}
	for _, c := range implicitlyDeclares[declared] {
		if implies(c, want) {
			return true
		}
	}
	return false
}
