package compiler

import (
	"fmt"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

type paramKey struct {
	function wasm.Index
	param    uint32
}

// entryParam is where an entry point parameter comes from.
type entryParam struct {
	kind config.ParameterKind
	// t is the type of the wasm parameter and varType the type of variable. They have the same width.
	t, varType wasm.ValueType
	variable   uint32
	class      api.StorageClass
	// region is set when the wasm parameter is the address of a region.
	region *region
}

// entryModel returns the execution model of an entry point.
func (c *moduleBuilder) entryModel(index wasm.Index) (*config.FunctionConfig, api.ExecutionModel, bool) {
	fc, ok := c.cfg.Function(index)
	if !ok {
		return nil, 0, false
	}
	model, ok := fc.ExecutionModel()
	return fc, model, ok
}

// entryName is the export name of an entry point, its name in the name section, or a name made from its index.
func (c *moduleBuilder) entryName(index wasm.Index) string {
	if name, ok := c.m.ExportedFunctionName(index); ok {
		return name
	}
	if name, ok := c.m.FunctionName(index); ok && name != "" {
		return name
	}
	return fmt.Sprintf("func%d", index)
}

// declareEntryParams declares the interface variable behind each entry point parameter.
func (c *moduleBuilder) declareEntryParams() error {
	for _, index := range c.cfg.FunctionIndexes() {
		fc, model, ok := c.entryModel(index)
		if !ok {
			continue
		}
		if int(index) >= len(c.functions) {
			return moduleError(fmt.Errorf("entry point function[%d] does not exist", index))
		}
		info := c.functions[index]
		if info.id == 0 {
			return functionError(index, fmt.Errorf("%w: an imported function cannot be an entry point", api.ErrUnsupported))
		}
		name := c.entryName(index)
		for i, t := range info.typ.Params {
			ep, err := c.declareEntryParam(model, fmt.Sprintf("%s_param%d", name, i), fc.Param(uint32(i)), t)
			if err == nil {
				err = c.err
			}
			if err != nil {
				return functionError(index, fmt.Errorf("param[%d]: %w", i, err))
			}
			c.params[paramKey{function: index, param: uint32(i)}] = ep
		}
	}
	return nil
}

func (c *moduleBuilder) declareEntryParam(model api.ExecutionModel, name string, p config.Parameter, t wasm.ValueType) (*entryParam, error) {
	ep := &entryParam{kind: p.Kind, t: t, varType: t}
	if p.Type != nil && !p.IsStructuredArray() {
		ep.varType = p.Type.Scalar
	}

	switch {
	case p.Kind == config.ParameterKindFunction:
		return nil, fmt.Errorf("%w: an entry point parameter must be an input, an output or a descriptor", api.ErrUnsupported)
	case p.Kind == config.ParameterKindOutput || p.IsStructuredArray():
		if t != wasm.ValueTypeI32 && t != wasm.ValueTypeI64 {
			return nil, fmt.Errorf("%w: the address of a %s parameter must be an integer, but was %s",
				api.ErrTypeMismatch, p.Kind, wasm.ValueTypeName(t))
		}
		elem := wasm.ValueTypeI32
		if p.Type != nil {
			elem = p.Type.Scalar
		}
		r, err := c.newRegion(name, p, elem)
		if err != nil {
			return nil, err
		}
		ep.region = r
		return ep, nil
	}

	if is64(ep.varType) != is64(t) {
		return nil, fmt.Errorf("%w: the interface type %s and the parameter type %s differ in width",
			api.ErrTypeMismatch, wasm.ValueTypeName(ep.varType), wasm.ValueTypeName(t))
	}
	if p.Kind == config.ParameterKindInput {
		ep.class = api.StorageClassInput
		ep.variable = c.variable(ep.class, c.typeOf(ep.varType), 0, name)
		c.b.Decorate(ep.variable, api.DecorationLocation, p.Location)
		if model == api.ExecutionModelFragment && !isFloat(ep.varType) {
			c.b.Decorate(ep.variable, api.DecorationFlat)
		}
		return ep, nil
	}

	// A scalar descriptor is a block holding it.
	var deco api.Decoration
	ep.class, deco = c.bufferClass(p.StorageClass, false)
	block := c.b.TypeStruct(c.typeOf(ep.varType))
	c.b.Decorate(block, deco)
	c.b.MemberDecorate(block, 0, api.DecorationOffset, 0)
	ep.variable = c.variable(ep.class, block, 0, name)
	if ep.class != api.StorageClassPushConstant {
		c.b.Decorate(ep.variable, api.DecorationDescriptorSet, p.Set)
		c.b.Decorate(ep.variable, api.DecorationBinding, p.Binding)
	}
	return ep, nil
}

// buildEntryPoints declares each configured entry point. A function without parameters or results that nothing
// calls is the entry point itself. Any other gets a wrapper, as an entry point is void and cannot be called.
func (c *moduleBuilder) buildEntryPoints() error {
	for _, index := range c.cfg.FunctionIndexes() {
		fc, model, ok := c.entryModel(index)
		if !ok {
			continue
		}
		info := c.functions[index]
		name := c.entryName(index)

		entry := info.id
		if len(info.typ.Params) > 0 || len(info.typ.Results) > 0 || c.isCalled(info.id) {
			entry = c.buildEntryWrapper(index, info)
		}
		if c.err != nil {
			return functionError(index, c.err)
		}

		iface := c.entryInterface(entry)
		c.b.AddEntryPoint(model, entry, name, iface)
		for _, mode := range fc.ExecutionModes() {
			c.b.AddExecutionMode(entry, mode.Mode, mode.Operands...)
		}
		c.b.Name(entry, name)
		if c.logger.IsEnabled(logging.LogScopeBuild) {
			c.logger.Logf(logging.LogScopeBuild, "entry point %q: %s function[%d], %d interface variables",
				name, model, index, len(iface))
		}
	}
	return nil
}

func (c *moduleBuilder) isCalled(fn uint32) bool {
	for _, callees := range c.calls {
		for _, callee := range callees {
			if callee == fn {
				return true
			}
		}
	}
	return false
}

// entryInterface lists the variables an entry point references. Before SPIR-V 1.4 only inputs and outputs are
// listed.
func (c *moduleBuilder) entryInterface(entry uint32) []uint32 {
	vars := c.reachableVariables(entry)
	if c.b.Version().AtLeast(spirv.Version1_4) {
		return vars
	}
	ret := vars[:0]
	for _, v := range vars {
		if sc := c.classes[v]; sc == api.StorageClassInput || sc == api.StorageClassOutput {
			ret = append(ret, v)
		}
	}
	return ret
}

// buildEntryWrapper defines a void function that reads the parameters of function index from their variables,
// calls it and discards the result.
func (c *moduleBuilder) buildEntryWrapper(index wasm.Index, info *functionInfo) uint32 {
	id := c.b.AllocID()
	void := c.b.TypeVoid()
	fn := c.b.NewFunction(id, void, c.b.TypeFunction(void), spirv.FunctionControlNone)
	fn.NewLabel()

	operands := []uint32{info.id}
	for i, t := range info.typ.Params {
		ep := c.params[paramKey{function: index, param: uint32(i)}]
		var arg uint32
		switch {
		case ep.region != nil:
			// The variable is accessed through the memory helpers, but belongs to the interface.
			c.use(id, ep.region.variable)
			arg = c.constant(t, uint64(ep.region.index)<<regionShift)
		case ep.kind == config.ParameterKindInput:
			c.use(id, ep.variable)
			arg = fn.EmitResult(spirv.OpLoad, c.typeOf(ep.varType), ep.variable)
		default:
			c.use(id, ep.variable)
			ptr := fn.EmitResult(spirv.OpAccessChain, c.pointer(ep.class, c.typeOf(ep.varType)), ep.variable, c.constU32(0))
			arg = fn.EmitResult(spirv.OpLoad, c.typeOf(ep.varType), ptr)
		}
		if ep.region == nil && ep.varType != t {
			arg = fn.EmitResult(spirv.OpBitcast, c.typeOf(t), arg)
		}
		operands = append(operands, arg)
	}
	fn.EmitResult(spirv.OpFunctionCall, info.resultType, operands...)
	c.call(id, info.id)
	fn.Emit(spirv.OpReturn)
	fn.End()
	return id
}
