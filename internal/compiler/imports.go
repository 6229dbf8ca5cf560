package compiler

import (
	"fmt"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// builtinModule is the import module of functions that read a component of a builtin vector.
const builtinModule = "spir_global"

var builtinImports = map[string]api.BuiltIn{
	"gl_NumWorkGroups":      api.BuiltInNumWorkgroups,
	"gl_WorkGroupSize":      api.BuiltInWorkgroupSize,
	"gl_WorkGroupID":        api.BuiltInWorkgroupId,
	"gl_LocalInvocationID":  api.BuiltInLocalInvocationId,
	"gl_GlobalInvocationID": api.BuiltInGlobalInvocationId,
}

// builtinImport is an imported function (i32) -> i32 or (i32) -> i64 returning a component of a builtin.
type builtinImport struct {
	name    string
	builtin api.BuiltIn
}

func resolveImport(imp *wasm.Import, typ *wasm.FunctionType) (*builtinImport, error) {
	builtin, ok := builtinImports[imp.Name]
	if imp.Module != builtinModule || !ok {
		return nil, fmt.Errorf("%w: import %s.%s", api.ErrUnsupported, imp.Module, imp.Name)
	}
	if len(typ.Params) != 1 || typ.Params[0] != wasm.ValueTypeI32 || len(typ.Results) != 1 ||
		(typ.Results[0] != wasm.ValueTypeI32 && typ.Results[0] != wasm.ValueTypeI64) {
		return nil, fmt.Errorf("%w: %s.%s has signature %s, but expected i32_i32 or i32_i64",
			api.ErrTypeMismatch, imp.Module, imp.Name, typ)
	}
	return &builtinImport{name: imp.Name, builtin: builtin}, nil
}

// builtinVector returns the uvec3 value of a builtin, loading it in fn if it is a variable.
func (c *moduleBuilder) builtinVector(fn *spirv.Function, fnID uint32, bi *builtinImport) uint32 {
	uvec3 := c.b.TypeVector(c.u32(), 3)
	if bi.builtin == api.BuiltInWorkgroupSize {
		return c.workgroupSize(uvec3)
	}
	v, ok := c.builtins[bi.builtin]
	if !ok {
		v = c.variable(api.StorageClassInput, uvec3, 0, bi.name)
		c.b.Decorate(v, api.DecorationBuiltIn, uint32(bi.builtin))
		c.builtins[bi.builtin] = v
	}
	c.use(fnID, v)
	return fn.EmitResult(spirv.OpLoad, uvec3, v)
}

// workgroupSize is the LocalSize of the entry points as a constant. They must agree, as a function may be
// reachable from any of them.
func (c *moduleBuilder) workgroupSize(uvec3 uint32) uint32 {
	var size []uint32
	for _, idx := range c.cfg.FunctionIndexes() {
		fc, _ := c.cfg.Function(idx)
		for _, mode := range fc.ExecutionModes() {
			if mode.Mode != api.ExecutionModeLocalSize {
				continue
			}
			if size != nil && !equalOperands(size, mode.Operands) {
				c.failf(api.ErrUnsupported, "gl_WorkGroupSize with entry points of different LocalSize")
				return 0
			}
			size = mode.Operands
		}
	}
	if size == nil {
		c.failf(api.ErrUnsupported, "gl_WorkGroupSize without a LocalSize execution mode")
		return 0
	}
	return c.b.ConstantComposite(uvec3, c.constU32(size[0]), c.constU32(size[1]), c.constU32(size[2]))
}

func equalOperands(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lowerBuiltinCall replaces a call to a builtin import by reading the component of the builtin.
func (f *functionBuilder) lowerBuiltinCall(callee *functionInfo) {
	c := f.c
	bi := callee.builtin
	idx := f.pop(wasm.ValueTypeI32)
	if c.err != nil {
		return
	}
	vec := c.builtinVector(f.fn, f.info.id, bi)

	var v uint32
	if idx.konst {
		if idx.bits > 2 {
			c.failf(api.ErrUnsupported, "component %d of %s", idx.bits, bi.name)
			return
		}
		v = f.emit(spirv.OpCompositeExtract, c.u32(), vec, uint32(idx.bits))
	} else {
		v = f.emit(spirv.OpVectorExtractDynamic, c.u32(), vec, idx.id)
	}
	result := callee.typ.Results[0]
	if result == wasm.ValueTypeI64 {
		v = f.emit(spirv.OpUConvert, c.u64(), v)
	}
	f.push(v, result)
}
