package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

func decodeValueTypes(r *bytes.Reader, num uint32) ([]wasm.ValueType, error) {
	if num == 0 {
		return nil, nil
	}
	if int(num) > r.Len() {
		return nil, fmt.Errorf("%d value types exceed the %d remaining bytes", num, r.Len())
	}
	ret := make([]wasm.ValueType, num)
	buf := make([]wasm.ValueType, num)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}

	for i, v := range buf {
		switch v {
		case wasm.ValueTypeI32, wasm.ValueTypeF32, wasm.ValueTypeI64, wasm.ValueTypeF64:
			ret[i] = v
		default:
			return nil, fmt.Errorf("invalid value type: %d", v)
		}
	}
	return ret, nil
}

func encodeValTypes(vt []wasm.ValueType) []byte {
	count := leb128.EncodeUint32(uint32(len(vt)))
	return append(count, vt...)
}
