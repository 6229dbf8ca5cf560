package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// DecodeModule decodes a module in the WebAssembly 1.0 (20191205) Binary Format, plus the post-MVP encodings
// enabled in features. Custom sections other than "name" are skipped, as are malformed "name" sections.
//
// Errors are *api.DecodeError, whose offset is where decoding stopped.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func DecodeModule(binary []byte, features wasm.Features) (*wasm.Module, error) {
	r := bytes.NewReader(binary)

	// Magic number.
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil || !bytes.Equal(buf, Magic) {
		return nil, &api.DecodeError{Offset: 0, Err: ErrInvalidMagicNumber}
	}

	// Version.
	if _, err := io.ReadFull(r, buf); err != nil || !bytes.Equal(buf, version) {
		return nil, &api.DecodeError{Offset: 4, Err: ErrInvalidVersion}
	}

	m := &wasm.Module{}
	var lastSectionID wasm.SectionID // custom sections don't affect ordering
	var functionCount, dataCount *uint32
	for {
		sectionStart := offset(r)
		sectionID, err := r.ReadByte()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, &api.DecodeError{Offset: sectionStart, Err: fmt.Errorf("read section id: %w", err)}
		}

		sectionSize, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, &api.DecodeError{Offset: sectionStart, Err: fmt.Errorf("get size of section %s: %v", wasm.SectionIDName(sectionID), err)}
		}

		sectionContentStart := offset(r)
		if int(sectionSize) > r.Len() {
			return nil, &api.DecodeError{Offset: sectionContentStart, Err: fmt.Errorf("section %s: size %d exceeds the %d remaining bytes", wasm.SectionIDName(sectionID), sectionSize, r.Len())}
		}

		if sectionID != wasm.SectionIDCustom {
			if sectionID > wasm.SectionIDDataCount {
				return nil, &api.DecodeError{Offset: sectionStart, Err: fmt.Errorf("%w: %#x", ErrInvalidSectionID, sectionID)}
			}
			if lastSectionID != wasm.SectionIDCustom && !wasm.SectionInOrder(lastSectionID, sectionID) {
				return nil, &api.DecodeError{Offset: sectionStart, Err: fmt.Errorf("section %s out of order or duplicated after section %s",
					wasm.SectionIDName(sectionID), wasm.SectionIDName(lastSectionID))}
			}
			lastSectionID = sectionID
		}

		switch sectionID {
		case wasm.SectionIDCustom:
			err = decodeCustomSection(r, m, sectionSize)
		case wasm.SectionIDType:
			m.TypeSection, err = decodeTypeSection(r)
		case wasm.SectionIDImport:
			m.ImportSection, err = decodeImportSection(r, features)
		case wasm.SectionIDFunction:
			m.FunctionSection, err = decodeFunctionSection(r)
			n := uint32(len(m.FunctionSection))
			functionCount = &n
		case wasm.SectionIDTable:
			m.TableSection, err = decodeTableSection(r)
		case wasm.SectionIDMemory:
			m.MemorySection, err = decodeMemorySection(r, features)
		case wasm.SectionIDGlobal:
			m.GlobalSection, err = decodeGlobalSection(r)
		case wasm.SectionIDExport:
			m.ExportSection, err = decodeExportSection(r)
		case wasm.SectionIDStart:
			m.StartSection, err = decodeStartSection(r)
		case wasm.SectionIDElement:
			m.ElementSection, err = decodeElementSection(r)
		case wasm.SectionIDDataCount:
			var n uint32
			if n, _, err = leb128.DecodeUint32(r); err == nil {
				dataCount = &n
			}
		case wasm.SectionIDCode:
			m.CodeSection, err = decodeCodeSection(r)
			if err == nil && (functionCount == nil || *functionCount != uint32(len(m.CodeSection))) {
				err = fmt.Errorf("function and code section have inconsistent lengths")
			}
		case wasm.SectionIDData:
			m.DataSection, err = decodeDataSection(r)
			if err == nil && dataCount != nil && *dataCount != uint32(len(m.DataSection)) {
				err = fmt.Errorf("data count section (%d) doesn't match the length of data section (%d)", *dataCount, len(m.DataSection))
			}
		}

		if err == nil && sectionContentStart+int(sectionSize) != offset(r) {
			err = fmt.Errorf("invalid section length: expected to be %d but got %d", sectionSize, offset(r)-sectionContentStart)
		}

		if err != nil {
			return nil, &api.DecodeError{Offset: offset(r), Err: fmt.Errorf("section %s: %w", wasm.SectionIDName(sectionID), err)}
		}
	}

	if functionCount != nil && len(m.CodeSection) == 0 && *functionCount > 0 {
		return nil, &api.DecodeError{Offset: len(binary), Err: fmt.Errorf("function and code section have inconsistent lengths")}
	}
	return m, nil
}

// offset returns the absolute position of the reader in its input.
func offset(r *bytes.Reader) int {
	return int(r.Size()) - r.Len()
}
