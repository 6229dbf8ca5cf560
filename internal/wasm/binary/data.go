package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tetratelabs/wasm2spirv/internal/leb128"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

const (
	dataSegmentPrefixActive          = 0x0
	dataSegmentPrefixPassive         = 0x1
	dataSegmentPrefixActiveWithIndex = 0x2
)

func decodeDataSegment(r *bytes.Reader) (*wasm.DataSegment, error) {
	prefix, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read data segment prefix: %w", err)
	}

	ret := &wasm.DataSegment{}
	switch prefix {
	case dataSegmentPrefixActive:
	case dataSegmentPrefixActiveWithIndex:
		d, _, err := leb128.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read memory index: %v", err)
		}
		if d != 0 {
			return nil, fmt.Errorf("invalid memory index: %d", d)
		}
	case dataSegmentPrefixPassive:
		ret.Passive = true
	default:
		return nil, fmt.Errorf("invalid data segment prefix: %#x", prefix)
	}

	if !ret.Passive {
		if ret.OffsetExpression, err = decodeConstantExpression(r); err != nil {
			return nil, fmt.Errorf("read offset expression: %v", err)
		}
	}

	vs, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("get the size of vector: %v", err)
	}
	if int(vs) > r.Len() {
		return nil, fmt.Errorf("data of size %d exceeds the %d remaining bytes", vs, r.Len())
	}

	ret.Init = make([]byte, vs)
	if _, err := io.ReadFull(r, ret.Init); err != nil {
		return nil, fmt.Errorf("read bytes for init: %v", err)
	}
	return ret, nil
}

// encodeDataSegment returns the wasm.DataSegment encoded in WebAssembly 1.0 (20191205) Binary Format, or the
// passive encoding of the bulk memory proposal.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#data-section%E2%91%A0
func encodeDataSegment(d *wasm.DataSegment) (ret []byte) {
	if d.Passive {
		ret = append(ret, dataSegmentPrefixPassive)
	} else {
		ret = append(ret, dataSegmentPrefixActive)
		ret = append(ret, encodeConstantExpression(d.OffsetExpression)...)
	}
	ret = append(ret, leb128.EncodeUint32(uint32(len(d.Init)))...)
	ret = append(ret, d.Init...)
	return
}
