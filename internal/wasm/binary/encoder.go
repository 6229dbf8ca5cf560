package binary

import (
	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

var sizePrefixedName = []byte{4, 'n', 'a', 'm', 'e'}

// EncodeModule encodes m in the WebAssembly 1.0 (20191205) Binary Format. The decoder reads it back unchanged.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func EncodeModule(m *wasm.Module) (bytes []byte) {
	bytes = append(Magic, version...)
	if len(m.TypeSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDType, encodeVector(len(m.TypeSection), func(i int) []byte {
			return encodeFunctionType(m.TypeSection[i])
		}))...)
	}
	if len(m.ImportSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDImport, encodeVector(len(m.ImportSection), func(i int) []byte {
			return encodeImport(m.ImportSection[i])
		}))...)
	}
	if len(m.FunctionSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDFunction, encodeVector(len(m.FunctionSection), func(i int) []byte {
			return leb128.EncodeUint32(m.FunctionSection[i])
		}))...)
	}
	if len(m.TableSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDTable, encodeVector(len(m.TableSection), func(i int) []byte {
			return encodeTableType(m.TableSection[i])
		}))...)
	}
	if len(m.MemorySection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDMemory, encodeVector(len(m.MemorySection), func(i int) []byte {
			return encodeMemoryType(m.MemorySection[i])
		}))...)
	}
	if len(m.GlobalSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDGlobal, encodeVector(len(m.GlobalSection), func(i int) []byte {
			return encodeGlobal(m.GlobalSection[i])
		}))...)
	}
	if len(m.ExportSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDExport, encodeVector(len(m.ExportSection), func(i int) []byte {
			return encodeExport(m.ExportSection[i])
		}))...)
	}
	if m.StartSection != nil {
		bytes = append(bytes, encodeSection(wasm.SectionIDStart, leb128.EncodeUint32(*m.StartSection))...)
	}
	if len(m.ElementSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDElement, encodeVector(len(m.ElementSection), func(i int) []byte {
			return encodeElement(m.ElementSection[i])
		}))...)
	}
	if len(m.CodeSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDCode, encodeVector(len(m.CodeSection), func(i int) []byte {
			return encodeCode(m.CodeSection[i])
		}))...)
	}
	if len(m.DataSection) > 0 {
		bytes = append(bytes, encodeSection(wasm.SectionIDData, encodeVector(len(m.DataSection), func(i int) []byte {
			return encodeDataSegment(m.DataSection[i])
		}))...)
	}
	if m.NameSection != nil {
		nameSection := append(sizePrefixedName, encodeNameSectionData(m.NameSection)...)
		bytes = append(bytes, encodeSection(wasm.SectionIDCustom, nameSection)...)
	}
	return
}

// encodeSection encodes the sectionID, the size of its contents in bytes, followed by the contents.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#sections%E2%91%A0
func encodeSection(sectionID wasm.SectionID, contents []byte) []byte {
	return append([]byte{sectionID}, encodeSizePrefixed(contents)...)
}

// encodeVector encodes the count followed by each element.
func encodeVector(n int, encodeElem func(i int) []byte) []byte {
	data := leb128.EncodeUint32(uint32(n))
	for i := 0; i < n; i++ {
		data = append(data, encodeElem(i)...)
	}
	return data
}
