//go:build amd64 && cgo && !windows
// +build amd64,cgo,!windows

package vs

import (
	"github.com/bytecodealliance/wasmtime-go"
)

func init() {
	validators["wasmtime-go"] = newWasmtimeValidator
}

func newWasmtimeValidator() validator {
	return &wasmtimeValidator{engine: wasmtime.NewEngine()}
}

type wasmtimeValidator struct {
	engine *wasmtime.Engine
}

func (w *wasmtimeValidator) Wat2Wasm(wat string) ([]byte, error) {
	return wasmtime.Wat2Wasm(wat)
}

func (w *wasmtimeValidator) Validate(wasm []byte) error {
	return wasmtime.ModuleValidate(w.engine, wasm)
}
