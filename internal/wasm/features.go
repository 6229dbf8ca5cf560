package wasm

import (
	"fmt"
	"strings"
)

// Features are the currently enabled features.
//
// Note: This is a bit flag until we have too many (>63). Flags are not guaranteed to be stable between releases.
type Features uint64

// Features20191205 include those finished in WebAssembly 1.0 (20191205).
//
// See https://github.com/WebAssembly/proposals/blob/main/finished-proposals.md
const Features20191205 = FeatureMutableGlobal

const (
	// FeatureMutableGlobal decides if global vars are allowed to be imported or exported (ExternTypeGlobal)
	// See https://github.com/WebAssembly/mutable-global
	FeatureMutableGlobal Features = 1 << iota

	// FeatureSignExtensionOps decides if parsing should succeed on OpcodeI32Extend8S and friends.
	// See https://github.com/WebAssembly/spec/blob/main/proposals/sign-extension-ops/Overview.md
	FeatureSignExtensionOps

	// FeatureNonTrappingFloatToIntConversion decides if parsing should succeed on OpcodeMiscI32TruncSatF32S and friends.
	// See https://github.com/WebAssembly/spec/blob/main/proposals/nontrapping-float-to-int-conversion/Overview.md
	FeatureNonTrappingFloatToIntConversion

	// FeatureMemory64 decides if memories may use 64-bit indexes (limits flags 0x04 and 0x05).
	// See https://github.com/WebAssembly/memory64/blob/main/proposals/memory64/Overview.md
	FeatureMemory64
)

// Set assigns the value for the given feature.
func (f Features) Set(feature Features, val bool) Features {
	if val {
		return f | feature
	}
	return f &^ feature
}

// Get returns the value of the given feature.
func (f Features) Get(feature Features) bool {
	return f&feature != 0
}

// Require fails with a configuration error if the given feature is not enabled
func (f Features) Require(feature Features) error {
	if f&feature == 0 {
		return fmt.Errorf("feature %q is disabled", feature)
	}
	return nil
}

// String implements fmt.Stringer by returning each enabled feature.
func (f Features) String() string {
	var builder strings.Builder
	for i := 0; i <= 63; i++ { // cycle through all bits to reduce code and maintenance
		target := Features(1 << i)
		if f.Get(target) {
			if name := featureName(target); name != "" {
				if builder.Len() > 0 {
					builder.WriteByte('|')
				}
				builder.WriteString(name)
			}
		}
	}
	return builder.String()
}

func featureName(f Features) string {
	switch f {
	case FeatureMutableGlobal:
		return "mutable-global"
	case FeatureSignExtensionOps:
		return "sign-extension-ops"
	case FeatureNonTrappingFloatToIntConversion:
		return "nontrapping-float-to-int-conversion"
	case FeatureMemory64:
		return "memory64"
	}
	return ""
}
