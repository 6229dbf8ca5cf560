// Package spirv is an in-memory SPIR-V module: instructions grouped by logical layout section, a builder that
// allocates ids and interns types and constants, and conversions to and from the binary and text forms.
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html#LogicalLayout
package spirv

import "fmt"

// MagicNumber is the first word of every SPIR-V module.
const MagicNumber = 0x07230203

// GeneratorID is written to the generator word of the header. Zero is the unregistered generator.
const GeneratorID = 0

// Version is a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// Word returns the version as encoded in the header: 0 | Major | Minor | 0.
func (v Version) Word() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8
}

// AtLeast returns true if v is the same or a later version than o.
func (v Version) AtLeast(o Version) bool {
	return v.Major > o.Major || (v.Major == o.Major && v.Minor >= o.Minor)
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func versionFromWord(w uint32) Version {
	return Version{Major: uint8(w >> 16), Minor: uint8(w >> 8)}
}

// AddressingModel is the first operand of OpMemoryModel.
type AddressingModel uint32

const (
	AddressingModelLogical                 AddressingModel = 0
	AddressingModelPhysical32              AddressingModel = 1
	AddressingModelPhysical64              AddressingModel = 2
	AddressingModelPhysicalStorageBuffer64 AddressingModel = 5348
)

var addressingModelNames = map[uint32]string{
	uint32(AddressingModelLogical):                 "Logical",
	uint32(AddressingModelPhysical32):              "Physical32",
	uint32(AddressingModelPhysical64):              "Physical64",
	uint32(AddressingModelPhysicalStorageBuffer64): "PhysicalStorageBuffer64",
}

// FunctionControl is the mask operand of OpFunction.
type FunctionControl uint32

const (
	FunctionControlNone       FunctionControl = 0
	FunctionControlInline     FunctionControl = 1
	FunctionControlDontInline FunctionControl = 2
	FunctionControlPure       FunctionControl = 4
	FunctionControlConst      FunctionControl = 8
)

var functionControlNames = map[uint32]string{
	uint32(FunctionControlInline):     "Inline",
	uint32(FunctionControlDontInline): "DontInline",
	uint32(FunctionControlPure):       "Pure",
	uint32(FunctionControlConst):      "Const",
}

// SelectionControl is the mask operand of OpSelectionMerge.
type SelectionControl uint32

const (
	SelectionControlNone        SelectionControl = 0
	SelectionControlFlatten     SelectionControl = 1
	SelectionControlDontFlatten SelectionControl = 2
)

var selectionControlNames = map[uint32]string{
	uint32(SelectionControlFlatten):     "Flatten",
	uint32(SelectionControlDontFlatten): "DontFlatten",
}

// LoopControl is the mask operand of OpLoopMerge.
type LoopControl uint32

const (
	LoopControlNone       LoopControl = 0
	LoopControlUnroll     LoopControl = 1
	LoopControlDontUnroll LoopControl = 2
)

var loopControlNames = map[uint32]string{
	uint32(LoopControlUnroll):     "Unroll",
	uint32(LoopControlDontUnroll): "DontUnroll",
}

// MemoryAccess is the optional mask operand of OpLoad and OpStore.
type MemoryAccess uint32

const (
	MemoryAccessNone        MemoryAccess = 0
	MemoryAccessVolatile    MemoryAccess = 1
	MemoryAccessAligned     MemoryAccess = 2
	MemoryAccessNontemporal MemoryAccess = 4
)

var memoryAccessNames = map[uint32]string{
	uint32(MemoryAccessVolatile):    "Volatile",
	uint32(MemoryAccessAligned):     "Aligned",
	uint32(MemoryAccessNontemporal): "Nontemporal",
}
