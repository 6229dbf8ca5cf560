package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

const (
	// subsectionIDModuleName contains only the module name.
	subsectionIDModuleName = uint8(0)
	// subsectionIDFunctionNames is a map of indices to function names, in ascending order by function index
	subsectionIDFunctionNames = uint8(1)
	// subsectionIDLocalNames contain a map of function indices to a map of local indices to their names, in ascending
	// order by function and local index
	subsectionIDLocalNames = uint8(2)
)

// decodeNameSection deserializes the data associated with the "name" key in SectionIDCustom according to the
// standard:
//
// * ModuleName decode from subsection 0
// * FunctionNames decode from subsection 1
// * LocalNames decode from subsection 2
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
func decodeNameSection(data []byte) (result *wasm.NameSection, err error) {
	r := bytes.NewReader(data)
	result = &wasm.NameSection{}

	// subsectionID is decoded if known, and skipped if not
	var subsectionID uint8
	// subsectionSize is the length to skip when the subsectionID is unknown
	var subsectionSize uint32
	for {
		if subsectionID, err = r.ReadByte(); err != nil {
			if err == io.EOF {
				return result, nil
			}
			return nil, fmt.Errorf("failed to read a subsection ID: %w", err)
		}

		if subsectionSize, _, err = leb128.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("failed to read the size of subsection[%d]: %w", subsectionID, err)
		}

		switch subsectionID {
		case subsectionIDModuleName:
			if result.ModuleName, _, err = decodeUTF8(r, "module name"); err != nil {
				return nil, err
			}
		case subsectionIDFunctionNames:
			if result.FunctionNames, err = decodeFunctionNames(r); err != nil {
				return nil, err
			}
		case subsectionIDLocalNames:
			if result.LocalNames, err = decodeLocalNames(r); err != nil {
				return nil, err
			}
		default: // Skip other subsections.
			// Note: Not Seek because it doesn't err when given an offset past EOF. Rather, it leads to undefined state.
			if _, err := io.CopyN(io.Discard, r, int64(subsectionSize)); err != nil {
				return nil, fmt.Errorf("failed to skip subsection[%d]: %w", subsectionID, err)
			}
		}
	}
}

func decodeFunctionNames(r *bytes.Reader) (wasm.NameMap, error) {
	functionCount, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read the function count of subsection[%d]: %w", subsectionIDFunctionNames, err)
	}

	var result wasm.NameMap
	for i := uint32(0); i < functionCount; i++ {
		functionIndex, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read a function index in subsection[%d]: %w", subsectionIDFunctionNames, err)
		}

		name, _, err := decodeUTF8(r, "function[%d] name", functionIndex)
		if err != nil {
			return nil, err
		}
		result = append(result, &wasm.NameAssoc{Index: functionIndex, Name: name})
	}
	return result, nil
}

func decodeLocalNames(r *bytes.Reader) (wasm.IndirectNameMap, error) {
	functionCount, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read the function count of subsection[%d]: %w", subsectionIDLocalNames, err)
	}

	var result wasm.IndirectNameMap
	for i := uint32(0); i < functionCount; i++ {
		functionIndex, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read a function index in subsection[%d]: %w", subsectionIDLocalNames, err)
		}

		localCount, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read the local count for function[%d]: %w", functionIndex, err)
		}

		var locals wasm.NameMap
		for j := uint32(0); j < localCount; j++ {
			localIndex, _, err := leb128.DecodeUint32(r)
			if err != nil {
				return nil, fmt.Errorf("failed to read a local index of function[%d]: %w", functionIndex, err)
			}
			name, _, err := decodeUTF8(r, "function[%d] local[%d] name", functionIndex, localIndex)
			if err != nil {
				return nil, err
			}
			locals = append(locals, &wasm.NameAssoc{Index: localIndex, Name: name})
		}
		result = append(result, &wasm.NameMapAssoc{Index: functionIndex, NameMap: locals})
	}
	return result, nil
}

// encodeNameSectionData serializes the data for the "name" key in SectionIDCustom according to the standard:
//
// Note: The result can be nil because this does not encode empty subsections
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-namesec
func encodeNameSectionData(n *wasm.NameSection) (data []byte) {
	if n.ModuleName != "" {
		data = append(data, encodeNameSubsection(subsectionIDModuleName, encodeSizePrefixed([]byte(n.ModuleName)))...)
	}
	if fd := encodeNameMap(n.FunctionNames); len(fd) > 0 {
		data = append(data, encodeNameSubsection(subsectionIDFunctionNames, fd)...)
	}
	if len(n.LocalNames) > 0 {
		ld := leb128.EncodeUint32(uint32(len(n.LocalNames)))
		for _, na := range n.LocalNames {
			ld = append(ld, leb128.EncodeUint32(na.Index)...)
			ld = append(ld, encodeNameMap(na.NameMap)...)
		}
		data = append(data, encodeNameSubsection(subsectionIDLocalNames, ld)...)
	}
	return
}

// encodeNameMap encodes the map as a vector of index and name pairs, or nil if empty.
func encodeNameMap(m wasm.NameMap) []byte {
	if len(m) == 0 {
		return nil
	}
	data := leb128.EncodeUint32(uint32(len(m)))
	for _, na := range m {
		data = append(data, leb128.EncodeUint32(na.Index)...)
		data = append(data, encodeSizePrefixed([]byte(na.Name))...)
	}
	return data
}

func encodeNameSubsection(subsectionID uint8, content []byte) []byte {
	contentSizeInBytes := leb128.EncodeUint32(uint32(len(content)))
	result := []byte{subsectionID}
	result = append(result, contentSizeInBytes...)
	result = append(result, content...)
	return result
}

// encodeSizePrefixed encodes the data with a leading LEB128 size.
func encodeSizePrefixed(data []byte) []byte {
	size := leb128.EncodeUint32(uint32(len(data)))
	return append(size, data...)
}
