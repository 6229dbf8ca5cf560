package spirv

// Names of the extended instruction sets imported with OpExtInstImport.
const (
	ExtInstSetGLSL   = "GLSL.std.450"
	ExtInstSetOpenCL = "OpenCL.std"
)

// GLSL.std.450 instruction numbers.
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/GLSL.std.450.html
const (
	GLSLRoundEven uint32 = 2
	GLSLTrunc     uint32 = 3
	GLSLFAbs      uint32 = 4
	GLSLFloor     uint32 = 8
	GLSLCeil      uint32 = 9
	GLSLSqrt      uint32 = 31
)

// OpenCL.std instruction numbers.
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/OpenCL.ExtendedInstructionSet.100.html
const (
	OpenCLCeil  uint32 = 12
	OpenCLFAbs  uint32 = 23
	OpenCLFloor uint32 = 25
	OpenCLRint  uint32 = 53
	OpenCLSqrt  uint32 = 61
	OpenCLTrunc uint32 = 66
)

var extInstNames = map[string]map[uint32]string{
	ExtInstSetGLSL: {
		GLSLRoundEven: "RoundEven",
		GLSLTrunc:     "Trunc",
		GLSLFAbs:      "FAbs",
		GLSLFloor:     "Floor",
		GLSLCeil:      "Ceil",
		GLSLSqrt:      "Sqrt",
	},
	ExtInstSetOpenCL: {
		OpenCLCeil:  "ceil",
		OpenCLFAbs:  "fabs",
		OpenCLFloor: "floor",
		OpenCLRint:  "rint",
		OpenCLSqrt:  "sqrt",
		OpenCLTrunc: "trunc",
	},
}

func extInstName(set string, n uint32) (string, bool) {
	name, ok := extInstNames[set][n]
	return name, ok
}

func extInstNumber(set, name string) (uint32, bool) {
	for n, s := range extInstNames[set] {
		if s == name {
			return n, true
		}
	}
	return 0, false
}
