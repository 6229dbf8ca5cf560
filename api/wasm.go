// Package api includes constants and error types used by both end-users and internal implementations.
package api

import "math"

// ValueType describes a numeric type used in Web Assembly 1.0 (20191205). For example, Function parameters and results are
// only definable as a value type.
//
// Each value type lowers to one SPIR-V scalar type:
//  * ValueTypeI32 - OpTypeInt 32 0
//  * ValueTypeI64 - OpTypeInt 64 0, which requires the Int64 capability
//  * ValueTypeF32 - OpTypeFloat 32
//  * ValueTypeF64 - OpTypeFloat 64, which requires the Float64 capability
//
// Note: This is a type alias as it is easier to encode and decode in the binary format.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number.
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name of the given ValueType as a string.
// These type names match the names used in the WebAssembly text format.
//
// Note: This returns "unknown", if an undefined ValueType value is passed.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// ParseValueType is the inverse of ValueTypeName.
func ParseValueType(name string) (ValueType, bool) {
	for _, t := range []ValueType{ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64} {
		if normalizeName(name) == ValueTypeName(t) {
			return t, true
		}
	}
	return 0, false
}

// EncodeF32 encodes the input as the bit pattern of a ValueTypeF32 constant.
func EncodeF32(input float32) uint32 {
	return math.Float32bits(input)
}

// DecodeF32 decodes the bit pattern of a ValueTypeF32 constant.
func DecodeF32(input uint32) float32 {
	return math.Float32frombits(input)
}

// EncodeF64 encodes the input as the bit pattern of a ValueTypeF64 constant.
func EncodeF64(input float64) uint64 {
	return math.Float64bits(input)
}

// DecodeF64 decodes the bit pattern of a ValueTypeF64 constant.
func DecodeF64(input uint64) float64 {
	return math.Float64frombits(input)
}
