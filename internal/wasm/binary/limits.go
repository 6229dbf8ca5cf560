package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

const (
	limitsFlagMin        = 0x00
	limitsFlagMinMax     = 0x01
	limitsFlagMin64      = 0x04
	limitsFlagMinMax64   = 0x05
	limitsFlagMax64Shift = 2
)

// decodeLimitsType returns the wasm.LimitsType decoded with the WebAssembly 1.0 (20191205) Binary Format, and
// whether the limits used the 64-bit index flags from the memory64 proposal. allow64 gates those flags.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
func decodeLimitsType(r *bytes.Reader, allow64 bool) (lt wasm.LimitsType, is64 bool, err error) {
	var flag byte
	if flag, err = r.ReadByte(); err != nil {
		err = fmt.Errorf("read leading byte: %v", err)
		return
	}

	switch flag {
	case limitsFlagMin, limitsFlagMinMax:
	case limitsFlagMin64, limitsFlagMinMax64:
		if !allow64 {
			err = fmt.Errorf("%v for limits: %#x != 0x00 or 0x01: 64-bit limits require feature %s",
				ErrInvalidByte, flag, wasm.FeatureMemory64)
			return
		}
		is64 = true
	default:
		err = fmt.Errorf("%v for limits: %#x not in (0x00, 0x01, 0x04, 0x05)", ErrInvalidByte, flag)
		return
	}

	if lt.Min, err = decodeLimit(r, is64, "min"); err != nil {
		return
	}
	if flag&limitsFlagMinMax == limitsFlagMinMax {
		var max uint32
		if max, err = decodeLimit(r, is64, "max"); err != nil {
			return
		}
		lt.Max = &max
	}
	return
}

// decodeLimit reads one bound. 64-bit bounds are accepted only when they also fit 32 bits, as no addressing model
// here can reach further.
func decodeLimit(r *bytes.Reader, is64 bool, name string) (uint32, error) {
	if !is64 {
		v, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return 0, fmt.Errorf("read %s of limit: %v", name, err)
		}
		return v, nil
	}
	v, _, err := leb128.DecodeUint64(r)
	if err != nil {
		return 0, fmt.Errorf("read %s of limit: %v", name, err)
	}
	if v > 0xffffffff {
		return 0, fmt.Errorf("%s of limit %d overflows 32 bits", name, v)
	}
	return uint32(v), nil
}

// encodeLimitsType returns the wasm.LimitsType encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#limits%E2%91%A6
func encodeLimitsType(lt wasm.LimitsType, is64 bool) []byte {
	flag := byte(limitsFlagMin)
	if lt.Max != nil {
		flag = limitsFlagMinMax
	}
	if is64 {
		flag |= 1 << limitsFlagMax64Shift
	}
	data := []byte{flag}
	data = append(data, encodeLimit(lt.Min, is64)...)
	if lt.Max != nil {
		data = append(data, encodeLimit(*lt.Max, is64)...)
	}
	return data
}

func encodeLimit(v uint32, is64 bool) []byte {
	if is64 {
		return leb128.EncodeUint64(uint64(v))
	}
	return leb128.EncodeUint32(v)
}

// decodeMemoryType returns the wasm.MemoryType decoded with the WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-memory
func decodeMemoryType(r *bytes.Reader, features wasm.Features) (*wasm.MemoryType, error) {
	lt, is64, err := decodeLimitsType(r, features.Get(wasm.FeatureMemory64))
	if err != nil {
		return nil, err
	}
	if lt.Min > wasm.MemoryLimitPages {
		return nil, fmt.Errorf("min %d pages over limit of %d pages", lt.Min, wasm.MemoryLimitPages)
	}
	if lt.Max != nil {
		if *lt.Max > wasm.MemoryLimitPages {
			return nil, fmt.Errorf("max %d pages over limit of %d pages", *lt.Max, wasm.MemoryLimitPages)
		} else if lt.Min > *lt.Max {
			return nil, fmt.Errorf("min %d pages > max %d pages", lt.Min, *lt.Max)
		}
	}
	return &wasm.MemoryType{LimitsType: lt, Is64: is64}, nil
}

// encodeMemoryType returns the wasm.MemoryType encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-memory
func encodeMemoryType(m *wasm.MemoryType) []byte {
	return encodeLimitsType(m.LimitsType, m.Is64)
}

// decodeTableType returns the wasm.TableType decoded with the WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-table
func decodeTableType(r *bytes.Reader) (*wasm.TableType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read leading byte: %v", err)
	}

	if b != wasm.RefTypeFuncref && b != wasm.RefTypeExternref {
		return nil, fmt.Errorf("%v: invalid element type %#x", ErrInvalidByte, b)
	}

	lt, _, err := decodeLimitsType(r, false)
	if err != nil {
		return nil, fmt.Errorf("read limits: %v", err)
	}
	if lt.Max != nil && *lt.Max < lt.Min {
		return nil, fmt.Errorf("table size minimum must not be greater than maximum")
	}
	return &wasm.TableType{ElemType: b, Limits: lt}, nil
}

// encodeTableType returns the wasm.TableType encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-table
func encodeTableType(t *wasm.TableType) []byte {
	return append([]byte{t.ElemType}, encodeLimitsType(t.Limits, false)...)
}
