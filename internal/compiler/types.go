package compiler

import (
	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

// require makes sure the module may use a capability. A dynamic model declares it on first use. A static model
// only checks it was declared, directly or implicitly.
func (c *moduleBuilder) require(capability api.Capability) {
	if c.b.HasCapability(capability) {
		return
	}
	caps := c.cfg.Capabilities()
	if !caps.Allows(capability) {
		c.failf(api.ErrMissingCapability, "%s", capability)
		return
	}
	if caps.Kind == config.CapabilityModelDynamic {
		c.b.AddCapability(capability)
	}
}

func (c *moduleBuilder) requireStorageClass(sc api.StorageClass) {
	for _, capability := range config.StorageClassCapabilities(sc) {
		c.require(capability)
	}
}

// typeOf returns the SPIR-V type of a wasm value type. Integers are unsigned: signedness is in the opcodes.
func (c *moduleBuilder) typeOf(t wasm.ValueType) uint32 {
	switch t {
	case wasm.ValueTypeI32:
		return c.b.TypeInt(32, false)
	case wasm.ValueTypeI64:
		c.require(api.CapabilityInt64)
		return c.b.TypeInt(64, false)
	case wasm.ValueTypeF32:
		return c.b.TypeFloat(32)
	case wasm.ValueTypeF64:
		c.require(api.CapabilityFloat64)
		return c.b.TypeFloat(64)
	}
	c.failf(api.ErrUnsupported, "value type %s", wasm.ValueTypeName(t))
	return 0
}

func (c *moduleBuilder) u32() uint32 { return c.typeOf(wasm.ValueTypeI32) }

func (c *moduleBuilder) u64() uint32 { return c.typeOf(wasm.ValueTypeI64) }

// bitsType returns the unsigned integer type with the width of t.
func (c *moduleBuilder) bitsType(t wasm.ValueType) uint32 {
	if is64(t) {
		return c.u64()
	}
	return c.u32()
}

func is64(t wasm.ValueType) bool {
	return t == wasm.ValueTypeI64 || t == wasm.ValueTypeF64
}

func isFloat(t wasm.ValueType) bool {
	return t == wasm.ValueTypeF32 || t == wasm.ValueTypeF64
}

// constant returns the id of a constant of type t whose bits are v.
func (c *moduleBuilder) constant(t wasm.ValueType, v uint64) uint32 {
	if is64(t) {
		return c.b.ConstantUint64(c.typeOf(t), v)
	}
	return c.b.ConstantUint32(c.typeOf(t), uint32(v))
}

func (c *moduleBuilder) constU32(v uint32) uint32 {
	return c.b.ConstantUint32(c.u32(), v)
}

func (c *moduleBuilder) constU64(v uint64) uint32 {
	return c.b.ConstantUint64(c.u64(), v)
}

// constBits returns a constant of the unsigned integer type with the width of t.
func (c *moduleBuilder) constBits(t wasm.ValueType, v uint64) uint32 {
	if is64(t) {
		return c.constU64(v)
	}
	return c.constU32(uint32(v))
}

func (c *moduleBuilder) pointer(sc api.StorageClass, elem uint32) uint32 {
	c.requireStorageClass(sc)
	return c.b.TypePointer(sc, elem)
}

// variable defines a module-scope variable of type elem.
func (c *moduleBuilder) variable(sc api.StorageClass, elem, init uint32, name string) uint32 {
	id := c.b.Variable(c.pointer(sc, elem), sc, init)
	c.classes[id] = sc
	if name != "" {
		c.b.Name(id, name)
	}
	return id
}

// privateClass is where module-scope mutable state lives: Private in shaders, CrossWorkgroup in kernels.
func (c *moduleBuilder) privateClass() api.StorageClass {
	if c.cfg.MemoryModel() == api.MemoryModelOpenCL {
		return api.StorageClassCrossWorkgroup
	}
	return api.StorageClassPrivate
}

// bufferClass returns the storage class and block decoration of a buffer. Before SPIR-V 1.3 a storage buffer is
// a Uniform decorated BufferBlock. A runtime array in a Uniform is one too, as uniform blocks must be sized.
func (c *moduleBuilder) bufferClass(sc api.StorageClass, runtimeArray bool) (api.StorageClass, api.Decoration) {
	if sc == api.StorageClassStorageBuffer || (sc == api.StorageClassUniform && runtimeArray) {
		if c.b.Version().AtLeast(spirv.Version1_3) {
			return api.StorageClassStorageBuffer, api.DecorationBlock
		}
		return api.StorageClassUniform, api.DecorationBufferBlock
	}
	return sc, api.DecorationBlock
}

// extInst emits an extended instruction: from GLSL.std.450 in shaders, from OpenCL.std in kernels.
func (c *moduleBuilder) extInst(fn *spirv.Function, resultType, glsl, opencl uint32, operands ...uint32) uint32 {
	set, n := spirv.ExtInstSetGLSL, glsl
	if c.cfg.MemoryModel() == api.MemoryModelOpenCL {
		set, n = spirv.ExtInstSetOpenCL, opencl
	}
	setID := c.b.ExtInstImport(set)
	return fn.EmitResult(spirv.OpExtInst, resultType, append([]uint32{setID, n}, operands...)...)
}
