// Package vs checks the compiler against real WebAssembly engines. Each engine turns the text fixtures of the
// corpus into binaries and validates them, so every module the compiler is tested with is known to be valid
// WebAssembly, and every engine's binary compiles to the same SPIR-V.
package vs

import "sort"

// validator is a WebAssembly engine used as a second opinion.
type validator interface {
	// Wat2Wasm converts the text format to a binary.
	Wat2Wasm(wat string) ([]byte, error)
	// Validate returns an error if the binary is not a valid module.
	Validate(wasm []byte) error
}

// validators are registered by the files of each engine, which build only where that engine is available.
var validators = map[string]func() validator{}

func validatorNames() []string {
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
