package wasm

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/wasm2spirv/api"
)

// Module is a WebAssembly binary representation.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#modules%E2%91%A8
//
// Differences from the WebAssembly Core specification:
// * The NameSection is decoded, so not present as a key "name" in CustomSections.
// * Code bodies are kept as bytes. binary.DecodeInstructions turns one into a flat instruction sequence.
type Module struct {
	// TypeSection contains the unique FunctionType of functions imported or defined in this module.
	//
	// Note: In the Binary Format, this is SectionIDType.
	TypeSection []*FunctionType

	// ImportSection contains imported functions, tables, memories or globals.
	//
	// Note: In the Binary Format, this is SectionIDImport.
	ImportSection []*Import

	// FunctionSection contains the index in TypeSection of each function defined in this module.
	//
	// Note: The function Index namespace begins with imported functions and ends with those defined in this module.
	// For example, if there are two imported functions and one defined in this module, the function Index 2 is defined
	// in this module at FunctionSection[0].
	//
	// Note: FunctionSection is index correlated with the CodeSection.
	FunctionSection []Index

	// TableSection contains each table defined in this module.
	TableSection []*TableType

	// MemorySection contains each memory defined in this module.
	MemorySection []*MemoryType

	// GlobalSection contains each global defined in this module.
	//
	// Global indexes are offset by any imported globals because the global index space begins with imports.
	GlobalSection []*Global

	// ExportSection contains each export in the order it was declared.
	ExportSection []*Export

	// StartSection is the index of a function to call on instantiation, in the function index namespace.
	StartSection *Index

	ElementSection []*ElementSegment

	// CodeSection is index-correlated with FunctionSection and contains each function's locals and body.
	CodeSection []*Code

	DataSection []*DataSegment

	// NameSection is set when the custom section "name" was present and valid.
	NameSection *NameSection
}

// Index is the offset in an index namespace, not necessarily an absolute position in a Module section. This is
// because index namespaces are often preceded by a corresponding type in the Module.ImportSection.
//
// For example, the function index namespace starts with any ExternTypeFunc in the Module.ImportSection followed by
// the Module.FunctionSection
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-index
type Index = uint32

// FunctionType is a possibly empty function signature.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A0
type FunctionType struct {
	// Params are the possibly empty sequence of value types accepted by a function with this signature.
	Params []ValueType

	// Results are the possibly empty sequence of value types returned by a function with this signature.
	Results []ValueType
}

// String returns a text format signature such as "i32i32_f32", or "v_v" when empty.
func (t *FunctionType) String() string {
	var b strings.Builder
	for _, p := range t.Params {
		b.WriteString(ValueTypeName(p))
	}
	if len(t.Params) == 0 {
		b.WriteString("v")
	}
	b.WriteByte('_')
	for _, r := range t.Results {
		b.WriteString(ValueTypeName(r))
	}
	if len(t.Results) == 0 {
		b.WriteString("v")
	}
	return b.String()
}

// EqualsSignature returns true if the function type has the same parameters and results.
func (t *FunctionType) EqualsSignature(params, results []ValueType) bool {
	return string(t.Params) == string(params) && string(t.Results) == string(results)
}

// Import is the binary representation of an import indicated by Type
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-import
type Import struct {
	Type ExternType
	// Module is the possibly empty primary namespace of this import
	Module string
	// Module is the possibly empty secondary namespace of this import
	Name string
	// DescFunc is the index in Module.TypeSection when Type equals ExternTypeFunc
	DescFunc Index
	// DescTable is the inlined TableType when Type equals ExternTypeTable
	DescTable *TableType
	// DescMem is the inlined MemoryType when Type equals ExternTypeMemory
	DescMem *MemoryType
	// DescGlobal is the inlined GlobalType when Type equals ExternTypeGlobal
	DescGlobal *GlobalType
}

// LimitsType are the minimum and optional maximum count of units, which are pages for memories and elements for
// tables.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
type LimitsType struct {
	Min uint32
	Max *uint32
}

// MemoryType is the limits of a memory in pages. Is64 is set for a memory64 memory, whose addresses are i64.
type MemoryType struct {
	LimitsType
	Is64 bool
}

// MemoryPageSize is the unit of memory length in WebAssembly, and is defined as 2^16 = 65536.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#memory-instances%E2%91%A0
const MemoryPageSize = uint32(65536)

// MemoryLimitPages is maximum number of pages defined (2^16).
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#grow-mem
const MemoryLimitPages = uint32(65536)

// TableType is the element type and limits of a table.
type TableType struct {
	ElemType RefType
	Limits   LimitsType
}

// RefType is the element type of a table.
type RefType = byte

const (
	RefTypeFuncref   RefType = 0x70
	RefTypeExternref RefType = 0x6f
)

type GlobalType struct {
	ValType ValueType
	Mutable bool
}

type Global struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ConstantExpression is an initializer of a global, or the offset of a segment. Data holds the immediate of Opcode
// as it was encoded.
type ConstantExpression struct {
	Opcode Opcode
	Data   []byte
}

// Export is the binary representation of an export indicated by Type
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-export
type Export struct {
	Type ExternType

	// Name is what the host refers to this definition as.
	Name string

	// Index is the index of the definition to export, the index namespace is by Type
	// Ex. If ExternTypeFunc, this is a position in the function index namespace.
	Index Index
}

// ElementSegment is an active segment of function indexes placed in table 0. Tables are never lowered, so this is
// decoded only for completeness.
type ElementSegment struct {
	OffsetExpr *ConstantExpression
	Init       []Index
}

// Code is an entry in the Module.CodeSection containing the locals and body of the function.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-code
type Code struct {
	// LocalTypes are any function-scoped variables in insertion order.
	LocalTypes []ValueType

	// Body is a sequence of expressions ending in OpcodeEnd. Instruction offsets are relative to its start.
	Body []byte
}

// DataSegment initializes a range of memory 0. A Passive segment has no OffsetExpression and is only copied by
// memory.init.
type DataSegment struct {
	OffsetExpression *ConstantExpression
	Init             []byte
	Passive          bool
}

// NameSection represent the known custom name subsections defined in the WebAssembly Binary Format
//
// Note: This can be nil if no names were decoded for any reason including configuration.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#name-section%E2%91%A0
type NameSection struct {
	// ModuleName is the symbolic identifier for a module. Ex. math
	ModuleName string

	// FunctionNames is an association of a function index to its symbolic identifier. Ex. add
	FunctionNames NameMap

	// LocalNames contains symbolic names for function parameters or locals that have one.
	LocalNames IndirectNameMap
}

// NameMap associates an index with any associated names.
//
// Note: Often the index namespace bridges multiple sections. For example, the function index namespace starts with
// any ExternTypeFunc in the Module.ImportSection followed by the Module.FunctionSection
//
// Note: NameMap is unique by NameAssoc.Index, but NameAssoc.Name needn't be unique.
// Note: When encoding in the Binary format, this must be ordered by NameAssoc.Index
type NameMap []*NameAssoc

type NameAssoc struct {
	Index Index
	Name  string
}

// IndirectNameMap associates an index with an association of names.
type IndirectNameMap []*NameMapAssoc

type NameMapAssoc struct {
	Index   Index
	NameMap NameMap
}

// ImportFuncCount returns the count of imported functions, which precede defined ones in the function index
// namespace.
func (m *Module) ImportFuncCount() (count uint32) {
	for _, i := range m.ImportSection {
		if i.Type == ExternTypeFunc {
			count++
		}
	}
	return
}

// ImportGlobalCount returns the count of imported globals.
func (m *Module) ImportGlobalCount() (count uint32) {
	for _, i := range m.ImportSection {
		if i.Type == ExternTypeGlobal {
			count++
		}
	}
	return
}

// FunctionCount returns the size of the function index namespace.
func (m *Module) FunctionCount() uint32 {
	return m.ImportFuncCount() + uint32(len(m.FunctionSection))
}

// TypeOfFunction returns the FunctionType of the function at funcIdx, in the function index namespace, or an error
// if either index is out of range.
func (m *Module) TypeOfFunction(funcIdx Index) (*FunctionType, error) {
	typeIdx, err := m.typeIndexOfFunction(funcIdx)
	if err != nil {
		return nil, err
	}
	if typeIdx >= uint32(len(m.TypeSection)) {
		return nil, fmt.Errorf("function[%d] has invalid type index %d", funcIdx, typeIdx)
	}
	return m.TypeSection[typeIdx], nil
}

func (m *Module) typeIndexOfFunction(funcIdx Index) (Index, error) {
	var n Index
	for _, i := range m.ImportSection {
		if i.Type != ExternTypeFunc {
			continue
		}
		if n == funcIdx {
			return i.DescFunc, nil
		}
		n++
	}
	if defined := funcIdx - n; funcIdx >= n && defined < uint32(len(m.FunctionSection)) {
		return m.FunctionSection[defined], nil
	}
	return 0, fmt.Errorf("function index %d out of range", funcIdx)
}

// ImportedFunction returns the import at funcIdx or nil if funcIdx is a defined function.
func (m *Module) ImportedFunction(funcIdx Index) *Import {
	var n Index
	for _, i := range m.ImportSection {
		if i.Type != ExternTypeFunc {
			continue
		}
		if n == funcIdx {
			return i
		}
		n++
	}
	return nil
}

// ExportedFunctionName returns the first export name of the function at funcIdx.
func (m *Module) ExportedFunctionName(funcIdx Index) (string, bool) {
	for _, e := range m.ExportSection {
		if e.Type == ExternTypeFunc && e.Index == funcIdx {
			return e.Name, true
		}
	}
	return "", false
}

// FunctionName returns the name of the function at funcIdx in the NameSection, if any.
func (m *Module) FunctionName(funcIdx Index) (string, bool) {
	if m.NameSection == nil {
		return "", false
	}
	for _, n := range m.NameSection.FunctionNames {
		if n.Index == funcIdx {
			return n.Name, true
		}
	}
	return "", false
}

// LocalName returns the name of the local at localIdx of the function at funcIdx in the NameSection, if any.
func (m *Module) LocalName(funcIdx, localIdx Index) (string, bool) {
	if m.NameSection == nil {
		return "", false
	}
	for _, f := range m.NameSection.LocalNames {
		if f.Index != funcIdx {
			continue
		}
		for _, n := range f.NameMap {
			if n.Index == localIdx {
				return n.Name, true
			}
		}
	}
	return "", false
}

// SectionID identifies the sections of a Module in the WebAssembly 1.0 (20191205) Binary Format.
//
// Note: these are defined in the wasm package, instead of the binary package, as a key per section is needed regardless
// of format, and deferring to the binary type avoids confusion.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
type SectionID = byte

const (
	// SectionIDCustom includes the standard defined NameSection and possibly others not defined in the standard.
	SectionIDCustom SectionID = iota // don't add anything not in https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	// SectionIDDataCount may exist in WebAssembly 2.0 or WebAssembly 1.0 with FeatureBulkMemoryOperations enabled.
	//
	// See https://webassembly.github.io/spec/core/binary/modules.html#data-count-section
	SectionIDDataCount
)

// SectionIDName returns the canonical name of a module section.
// https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
func SectionIDName(sectionID SectionID) string {
	switch sectionID {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	case SectionIDDataCount:
		return "data_count"
	}
	return "unknown"
}

// sectionOrder is the position a standard section must appear in. The data count section sits between the element
// and code sections even though its ID is larger.
func sectionOrder(id SectionID) int {
	switch id {
	case SectionIDDataCount:
		return int(SectionIDElement) + 1
	case SectionIDCode, SectionIDData:
		return int(id) + 1
	}
	return int(id)
}

// SectionInOrder returns true if a standard section with ID next may follow one with ID prev.
func SectionInOrder(prev, next SectionID) bool {
	return sectionOrder(next) > sectionOrder(prev)
}

// ValueType is an alias of api.ValueType defined to simplify imports.
type ValueType = api.ValueType

const (
	ValueTypeI32 = api.ValueTypeI32
	ValueTypeI64 = api.ValueTypeI64
	ValueTypeF32 = api.ValueTypeF32
	ValueTypeF64 = api.ValueTypeF64
	// ValueTypeV128 is decoded so that an error can name it, but never lowered.
	ValueTypeV128 ValueType = 0x7b
)

// ValueTypeName is an alias of api.ValueTypeName defined to simplify imports.
func ValueTypeName(t ValueType) string {
	if t == ValueTypeV128 {
		return "v128"
	}
	return api.ValueTypeName(t)
}

// ExternType classifies imports and exports with their respective types.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#external-types%E2%91%A0
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName returns the text format field name of the given type.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	}
	return fmt.Sprintf("%#x", et)
}
