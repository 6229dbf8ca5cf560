//go:build amd64 && cgo && !windows
// +build amd64,cgo,!windows

package vs

import (
	"github.com/wasmerio/wasmer-go/wasmer"
)

func init() {
	validators["wasmer-go"] = newWasmerValidator
}

func newWasmerValidator() validator {
	return &wasmerValidator{store: wasmer.NewStore(wasmer.NewEngine())}
}

type wasmerValidator struct {
	store *wasmer.Store
}

func (w *wasmerValidator) Wat2Wasm(wat string) ([]byte, error) {
	return wasmer.Wat2Wasm(wat)
}

func (w *wasmerValidator) Validate(wasm []byte) error {
	return wasmer.ValidateModule(w.store, wasm)
}
