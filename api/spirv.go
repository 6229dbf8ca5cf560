package api

import (
	"strconv"
	"strings"
)

// Capability is a SPIR-V capability operand. A module declares with OpCapability every capability its
// instructions, types and execution models need.
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html#_capability
type Capability uint32

const (
	CapabilityMatrix                             Capability = 0
	CapabilityShader                             Capability = 1
	CapabilityGeometry                           Capability = 2
	CapabilityTessellation                       Capability = 3
	CapabilityAddresses                          Capability = 4
	CapabilityLinkage                            Capability = 5
	CapabilityKernel                             Capability = 6
	CapabilityVector16                           Capability = 7
	CapabilityFloat16Buffer                      Capability = 8
	CapabilityFloat16                            Capability = 9
	CapabilityFloat64                            Capability = 10
	CapabilityInt64                              Capability = 11
	CapabilityInt64Atomics                       Capability = 12
	CapabilityImageBasic                         Capability = 13
	CapabilityGroups                             Capability = 18
	CapabilityInt16                              Capability = 22
	CapabilityTessellationPointSize              Capability = 23
	CapabilityGeometryPointSize                  Capability = 24
	CapabilityClipDistance                       Capability = 32
	CapabilityCullDistance                       Capability = 33
	CapabilityInt8                               Capability = 39
	CapabilityGenericPointer                     Capability = 38
	CapabilityGroupNonUniform                    Capability = 61
	CapabilityGroupNonUniformArithmetic          Capability = 63
	CapabilityStorageBuffer16BitAccess           Capability = 4433
	CapabilityUniformAndStorageBuffer16BitAccess Capability = 4434
	CapabilityVariablePointersStorageBuffer      Capability = 4441
	CapabilityVariablePointers                   Capability = 4442
	CapabilityStorageBuffer8BitAccess            Capability = 4448
	CapabilityDenormPreserve                     Capability = 4464
	CapabilitySignedZeroInfNanPreserve           Capability = 4466
	CapabilityVulkanMemoryModel                  Capability = 5345
	CapabilityVulkanMemoryModelDeviceScope       Capability = 5346
	CapabilityPhysicalStorageBufferAddresses     Capability = 5347
	CapabilityShaderNonUniform                   Capability = 5301
	CapabilityRuntimeDescriptorArray             Capability = 5302
	CapabilityInt64ImageEXT                      Capability = 5016
	CapabilityShaderClockKHR                     Capability = 5055
	CapabilityFloatControls2                     Capability = 6029
	CapabilityAtomicFloat32AddEXT                Capability = 6033
	CapabilityAtomicFloat64AddEXT                Capability = 6034
)

var capabilityNames = map[uint32]string{
	uint32(CapabilityMatrix):                             "Matrix",
	uint32(CapabilityShader):                             "Shader",
	uint32(CapabilityGeometry):                           "Geometry",
	uint32(CapabilityTessellation):                       "Tessellation",
	uint32(CapabilityAddresses):                          "Addresses",
	uint32(CapabilityLinkage):                            "Linkage",
	uint32(CapabilityKernel):                             "Kernel",
	uint32(CapabilityVector16):                           "Vector16",
	uint32(CapabilityFloat16Buffer):                      "Float16Buffer",
	uint32(CapabilityFloat16):                            "Float16",
	uint32(CapabilityFloat64):                            "Float64",
	uint32(CapabilityInt64):                              "Int64",
	uint32(CapabilityInt64Atomics):                       "Int64Atomics",
	uint32(CapabilityImageBasic):                         "ImageBasic",
	uint32(CapabilityGroups):                             "Groups",
	uint32(CapabilityInt16):                              "Int16",
	uint32(CapabilityTessellationPointSize):              "TessellationPointSize",
	uint32(CapabilityGeometryPointSize):                  "GeometryPointSize",
	uint32(CapabilityClipDistance):                       "ClipDistance",
	uint32(CapabilityCullDistance):                       "CullDistance",
	uint32(CapabilityInt8):                               "Int8",
	uint32(CapabilityGenericPointer):                     "GenericPointer",
	uint32(CapabilityGroupNonUniform):                    "GroupNonUniform",
	uint32(CapabilityGroupNonUniformArithmetic):          "GroupNonUniformArithmetic",
	uint32(CapabilityStorageBuffer16BitAccess):           "StorageBuffer16BitAccess",
	uint32(CapabilityUniformAndStorageBuffer16BitAccess): "UniformAndStorageBuffer16BitAccess",
	uint32(CapabilityVariablePointersStorageBuffer):      "VariablePointersStorageBuffer",
	uint32(CapabilityVariablePointers):                   "VariablePointers",
	uint32(CapabilityStorageBuffer8BitAccess):            "StorageBuffer8BitAccess",
	uint32(CapabilityDenormPreserve):                     "DenormPreserve",
	uint32(CapabilitySignedZeroInfNanPreserve):           "SignedZeroInfNanPreserve",
	uint32(CapabilityVulkanMemoryModel):                  "VulkanMemoryModel",
	uint32(CapabilityVulkanMemoryModelDeviceScope):       "VulkanMemoryModelDeviceScope",
	uint32(CapabilityPhysicalStorageBufferAddresses):     "PhysicalStorageBufferAddresses",
	uint32(CapabilityShaderNonUniform):                   "ShaderNonUniform",
	uint32(CapabilityRuntimeDescriptorArray):             "RuntimeDescriptorArray",
	uint32(CapabilityInt64ImageEXT):                      "Int64ImageEXT",
	uint32(CapabilityShaderClockKHR):                     "ShaderClockKHR",
	uint32(CapabilityFloatControls2):                     "FloatControls2",
	uint32(CapabilityAtomicFloat32AddEXT):                "AtomicFloat32AddEXT",
	uint32(CapabilityAtomicFloat64AddEXT):                "AtomicFloat64AddEXT",
}

// String implements fmt.Stringer by returning the SPIR-V name, or the number if unknown.
func (c Capability) String() string { return enumName(capabilityNames, uint32(c)) }

// ParseCapability looks up a capability by its SPIR-V name. Case and underscores are ignored.
func ParseCapability(name string) (Capability, bool) {
	v, ok := enumValue(capabilityNames, name)
	return Capability(v), ok
}

// AddressingModel is how pointers are represented. This is the user-facing choice: the SPIR-V
// addressing model word is derived from it and the wasm memory index width.
type AddressingModel uint32

const (
	// AddressingModelLogical has no pointer arithmetic. Linear memory is a storage buffer.
	AddressingModelLogical AddressingModel = iota
	// AddressingModelPhysical lowers to Physical32, or Physical64 with 64-bit memory.
	AddressingModelPhysical
	// AddressingModelPhysicalStorageBuffer lowers to PhysicalStorageBuffer64: linear memory is reached
	// through a device address pushed as a constant.
	AddressingModelPhysicalStorageBuffer
)

var addressingModelNames = map[uint32]string{
	uint32(AddressingModelLogical):               "Logical",
	uint32(AddressingModelPhysical):              "Physical",
	uint32(AddressingModelPhysicalStorageBuffer): "PhysicalStorageBuffer",
}

// String implements fmt.Stringer.
func (a AddressingModel) String() string { return enumName(addressingModelNames, uint32(a)) }

// ParseAddressingModel looks up an addressing model by name. Case and underscores are ignored.
func ParseAddressingModel(name string) (AddressingModel, bool) {
	v, ok := enumValue(addressingModelNames, name)
	return AddressingModel(v), ok
}

// MemoryModel is the SPIR-V memory model operand of OpMemoryModel.
type MemoryModel uint32

const (
	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelOpenCL  MemoryModel = 2
	MemoryModelVulkan  MemoryModel = 3
)

var memoryModelNames = map[uint32]string{
	uint32(MemoryModelSimple):  "Simple",
	uint32(MemoryModelGLSL450): "GLSL450",
	uint32(MemoryModelOpenCL):  "OpenCL",
	uint32(MemoryModelVulkan):  "Vulkan",
}

// String implements fmt.Stringer.
func (m MemoryModel) String() string { return enumName(memoryModelNames, uint32(m)) }

// ParseMemoryModel looks up a memory model by name. Case and underscores are ignored.
func ParseMemoryModel(name string) (MemoryModel, bool) {
	v, ok := enumValue(memoryModelNames, name)
	return MemoryModel(v), ok
}

// ExecutionModel is the stage an entry point runs in.
type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelKernel                 ExecutionModel = 6
)

var executionModelNames = map[uint32]string{
	uint32(ExecutionModelVertex):                 "Vertex",
	uint32(ExecutionModelTessellationControl):    "TessellationControl",
	uint32(ExecutionModelTessellationEvaluation): "TessellationEvaluation",
	uint32(ExecutionModelGeometry):               "Geometry",
	uint32(ExecutionModelFragment):               "Fragment",
	uint32(ExecutionModelGLCompute):              "GLCompute",
	uint32(ExecutionModelKernel):                 "Kernel",
}

// String implements fmt.Stringer.
func (m ExecutionModel) String() string { return enumName(executionModelNames, uint32(m)) }

// ParseExecutionModel looks up an execution model by name. Case and underscores are ignored.
func ParseExecutionModel(name string) (ExecutionModel, bool) {
	v, ok := enumValue(executionModelNames, name)
	return ExecutionModel(v), ok
}

// ExecutionMode is the mode operand of OpExecutionMode. Some modes carry literal operands.
type ExecutionMode uint32

const (
	ExecutionModeInvocations        ExecutionMode = 0
	ExecutionModePixelCenterInteger ExecutionMode = 6
	ExecutionModeOriginUpperLeft    ExecutionMode = 7
	ExecutionModeOriginLowerLeft    ExecutionMode = 8
	ExecutionModeEarlyFragmentTests ExecutionMode = 9
	ExecutionModeDepthReplacing     ExecutionMode = 12
	ExecutionModeLocalSize          ExecutionMode = 17
	ExecutionModeLocalSizeHint      ExecutionMode = 18
)

var executionModeNames = map[uint32]string{
	uint32(ExecutionModeInvocations):        "Invocations",
	uint32(ExecutionModePixelCenterInteger): "PixelCenterInteger",
	uint32(ExecutionModeOriginUpperLeft):    "OriginUpperLeft",
	uint32(ExecutionModeOriginLowerLeft):    "OriginLowerLeft",
	uint32(ExecutionModeEarlyFragmentTests): "EarlyFragmentTests",
	uint32(ExecutionModeDepthReplacing):     "DepthReplacing",
	uint32(ExecutionModeLocalSize):          "LocalSize",
	uint32(ExecutionModeLocalSizeHint):      "LocalSizeHint",
}

// String implements fmt.Stringer.
func (m ExecutionMode) String() string { return enumName(executionModeNames, uint32(m)) }

// ParseExecutionMode looks up an execution mode by name. Case and underscores are ignored.
func ParseExecutionMode(name string) (ExecutionMode, bool) {
	v, ok := enumValue(executionModeNames, name)
	return ExecutionMode(v), ok
}

// StorageClass is where a variable lives.
type StorageClass uint32

const (
	StorageClassUniformConstant       StorageClass = 0
	StorageClassInput                 StorageClass = 1
	StorageClassUniform               StorageClass = 2
	StorageClassOutput                StorageClass = 3
	StorageClassWorkgroup             StorageClass = 4
	StorageClassCrossWorkgroup        StorageClass = 5
	StorageClassPrivate               StorageClass = 6
	StorageClassFunction              StorageClass = 7
	StorageClassGeneric               StorageClass = 8
	StorageClassPushConstant          StorageClass = 9
	StorageClassAtomicCounter         StorageClass = 10
	StorageClassImage                 StorageClass = 11
	StorageClassStorageBuffer         StorageClass = 12
	StorageClassPhysicalStorageBuffer StorageClass = 5349
)

var storageClassNames = map[uint32]string{
	uint32(StorageClassUniformConstant):       "UniformConstant",
	uint32(StorageClassInput):                 "Input",
	uint32(StorageClassUniform):               "Uniform",
	uint32(StorageClassOutput):                "Output",
	uint32(StorageClassWorkgroup):             "Workgroup",
	uint32(StorageClassCrossWorkgroup):        "CrossWorkgroup",
	uint32(StorageClassPrivate):               "Private",
	uint32(StorageClassFunction):              "Function",
	uint32(StorageClassGeneric):               "Generic",
	uint32(StorageClassPushConstant):          "PushConstant",
	uint32(StorageClassAtomicCounter):         "AtomicCounter",
	uint32(StorageClassImage):                 "Image",
	uint32(StorageClassStorageBuffer):         "StorageBuffer",
	uint32(StorageClassPhysicalStorageBuffer): "PhysicalStorageBuffer",
}

// String implements fmt.Stringer.
func (s StorageClass) String() string { return enumName(storageClassNames, uint32(s)) }

// ParseStorageClass looks up a storage class by name. Case and underscores are ignored.
func ParseStorageClass(name string) (StorageClass, bool) {
	v, ok := enumValue(storageClassNames, name)
	return StorageClass(v), ok
}

// Decoration is the decoration operand of OpDecorate and OpMemberDecorate.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationArrayStride   Decoration = 6
	DecorationBuiltIn       Decoration = 11
	DecorationFlat          Decoration = 14
	DecorationNonWritable   Decoration = 24
	DecorationNonReadable   Decoration = 25
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
	DecorationAlignment     Decoration = 44
)

var decorationNames = map[uint32]string{
	uint32(DecorationBlock):         "Block",
	uint32(DecorationBufferBlock):   "BufferBlock",
	uint32(DecorationArrayStride):   "ArrayStride",
	uint32(DecorationBuiltIn):       "BuiltIn",
	uint32(DecorationFlat):          "Flat",
	uint32(DecorationNonWritable):   "NonWritable",
	uint32(DecorationNonReadable):   "NonReadable",
	uint32(DecorationLocation):      "Location",
	uint32(DecorationBinding):       "Binding",
	uint32(DecorationDescriptorSet): "DescriptorSet",
	uint32(DecorationOffset):        "Offset",
	uint32(DecorationAlignment):     "Alignment",
}

// String implements fmt.Stringer.
func (d Decoration) String() string { return enumName(decorationNames, uint32(d)) }

// ParseDecoration looks up a decoration by name. Case and underscores are ignored.
func ParseDecoration(name string) (Decoration, bool) {
	v, ok := enumValue(decorationNames, name)
	return Decoration(v), ok
}

// BuiltIn is the operand of the BuiltIn decoration.
type BuiltIn uint32

const (
	BuiltInPosition           BuiltIn = 0
	BuiltInFragCoord          BuiltIn = 15
	BuiltInFragDepth          BuiltIn = 22
	BuiltInNumWorkgroups      BuiltIn = 24
	BuiltInWorkgroupSize      BuiltIn = 25
	BuiltInWorkgroupId        BuiltIn = 26
	BuiltInLocalInvocationId  BuiltIn = 27
	BuiltInGlobalInvocationId BuiltIn = 28
	BuiltInLocalInvocationIdx BuiltIn = 29
	BuiltInVertexIndex        BuiltIn = 42
	BuiltInInstanceIndex      BuiltIn = 43
)

var builtInNames = map[uint32]string{
	uint32(BuiltInPosition):           "Position",
	uint32(BuiltInFragCoord):          "FragCoord",
	uint32(BuiltInFragDepth):          "FragDepth",
	uint32(BuiltInNumWorkgroups):      "NumWorkgroups",
	uint32(BuiltInWorkgroupSize):      "WorkgroupSize",
	uint32(BuiltInWorkgroupId):        "WorkgroupId",
	uint32(BuiltInLocalInvocationId):  "LocalInvocationId",
	uint32(BuiltInGlobalInvocationId): "GlobalInvocationId",
	uint32(BuiltInLocalInvocationIdx): "LocalInvocationIndex",
	uint32(BuiltInVertexIndex):        "VertexIndex",
	uint32(BuiltInInstanceIndex):      "InstanceIndex",
}

// String implements fmt.Stringer.
func (b BuiltIn) String() string { return enumName(builtInNames, uint32(b)) }

// ParseBuiltIn looks up a builtin by name. Case and underscores are ignored.
func ParseBuiltIn(name string) (BuiltIn, bool) {
	v, ok := enumValue(builtInNames, name)
	return BuiltIn(v), ok
}

func enumName(names map[uint32]string, v uint32) string {
	if name, ok := names[v]; ok {
		return name
	}
	return strconv.FormatUint(uint64(v), 10)
}

// enumValue also accepts the decimal form enumName falls back to.
func enumValue(names map[uint32]string, name string) (uint32, bool) {
	want := normalizeName(name)
	for v, n := range names {
		if normalizeName(n) == want {
			return v, true
		}
	}
	if v, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uint32(v), true
	}
	return 0, false
}

// normalizeName folds case and drops underscores so "physical_storage_buffer" matches "PhysicalStorageBuffer".
func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
