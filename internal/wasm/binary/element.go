package binary

import (
	"bytes"
	"fmt"

	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// decodeElementSegment decodes the WebAssembly 1.0 (20191205) encoding of an element segment: an active segment of
// table zero initialized with function indexes. Tables are never lowered, so the later encodings are rejected here
// rather than decoded into something no stage could use.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#element-section%E2%91%A0
func decodeElementSegment(r *bytes.Reader) (*wasm.ElementSegment, error) {
	prefix, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read element prefix: %w", err)
	}
	if prefix != 0 {
		return nil, fmt.Errorf("element segment prefix %#x is not supported", prefix)
	}

	expr, err := decodeConstantExpression(r)
	if err != nil {
		return nil, fmt.Errorf("read expr for offset: %w", err)
	}

	vs, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("get size of vector: %w", err)
	}

	init := make([]wasm.Index, vs)
	for i := range init {
		if init[i], _, err = leb128.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("read function index: %w", err)
		}
	}
	return &wasm.ElementSegment{OffsetExpr: expr, Init: init}, nil
}

// encodeElement returns the wasm.ElementSegment encoded in WebAssembly 1.0 (20191205) Binary Format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#element-section%E2%91%A0
func encodeElement(e *wasm.ElementSegment) (ret []byte) {
	ret = append(ret, 0x00)
	ret = append(ret, encodeConstantExpression(e.OffsetExpr)...)
	ret = append(ret, leb128.EncodeUint32(uint32(len(e.Init)))...)
	for _, idx := range e.Init {
		ret = append(ret, leb128.EncodeUint32(idx)...)
	}
	return
}
