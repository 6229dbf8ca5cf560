package wasm2spirv

import "fmt"

// Language is a shading language a SPIR-V module can be translated to.
type Language uint8

const (
	LanguageGLSL Language = iota
	LanguageHLSL
	LanguageMSL
	LanguageWGSL
)

// String implements fmt.Stringer.
func (l Language) String() string {
	switch l {
	case LanguageGLSL:
		return "GLSL"
	case LanguageHLSL:
		return "HLSL"
	case LanguageMSL:
		return "MSL"
	case LanguageWGSL:
		return "WGSL"
	}
	return fmt.Sprintf("Language(%d)", uint8(l))
}

// CrossCompiler translates SPIR-V words to source code, for example by calling SPIRV-Cross or naga. None is
// included.
type CrossCompiler interface {
	CrossCompile(lang Language, spirv []uint32) (string, error)
}
