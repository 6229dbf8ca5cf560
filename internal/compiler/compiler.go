// Package compiler lowers a decoded WebAssembly module to a SPIR-V module.
//
// Each defined function becomes a SPIR-V function. The operand stack is resolved at compile time into SSA ids,
// locals become Function variables, and structured control flow is rebuilt from wasm blocks. Linear memory is an
// array of 32-bit words whose storage depends on the addressing model. Entry points get a wrapper that reads
// their parameters from interface variables and calls the lowered function.
package compiler

import (
	"fmt"
	"sort"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
	"github.com/tetratelabs/wasm2spirv/internal/wasm/binary"
)

// WasmFeatures returns the decoder features a configuration enables. Mutable globals are always enabled.
func WasmFeatures(f config.Features) wasm.Features {
	return wasm.Features20191205.
		Set(wasm.FeatureMemory64, f.Memory64).
		Set(wasm.FeatureNonTrappingFloatToIntConversion, f.SaturatingFloatToInt).
		Set(wasm.FeatureSignExtensionOps, f.SignExtension)
}

// functionInfo is one entry of the function index space.
type functionInfo struct {
	index wasm.Index
	typ   *wasm.FunctionType
	// id is the SPIR-V function id, zero for an import.
	id uint32
	// typeID and resultType are the OpTypeFunction and its result type.
	typeID, resultType uint32
	// builtin is set for an import that reads a builtin variable.
	builtin *builtinImport
}

// moduleBuilder holds the state shared by all functions of one compilation.
type moduleBuilder struct {
	cfg    *config.Config
	m      *wasm.Module
	logger *logging.Logger
	b      *spirv.Builder

	// err is the first failure. Lowering continues after it is set, but its output is discarded.
	err error

	functions []*functionInfo
	globals   []*globalValue
	memory    *linearMemory
	regions   []*region
	params    map[paramKey]*entryParam
	builtins  map[api.BuiltIn]uint32
	helpers   map[helperKind]uint32

	// classes is the storage class of each module-scope variable.
	classes map[uint32]api.StorageClass
	// uses and calls are the module-scope variables and functions each function references, by function id.
	uses  map[uint32][]uint32
	calls map[uint32][]uint32
	seen  map[[2]uint32]struct{}
}

// Compile lowers m as configured by cfg. logger may be nil.
//
// Failures caused by the input are *api.BuildError. A failure of the emitter itself is an *api.EmitError.
func Compile(cfg *config.Config, m *wasm.Module, logger *logging.Logger) (*spirv.Module, error) {
	v := cfg.SPIRVVersion()
	c := &moduleBuilder{
		cfg:      cfg,
		m:        m,
		logger:   logger,
		b:        spirv.NewBuilder(spirv.Version{Major: v.Major, Minor: v.Minor}),
		params:   map[paramKey]*entryParam{},
		builtins: map[api.BuiltIn]uint32{},
		helpers:  map[helperKind]uint32{},
		classes:  map[uint32]api.StorageClass{},
		uses:     map[uint32][]uint32{},
		calls:    map[uint32][]uint32{},
		seen:     map[[2]uint32]struct{}{},
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return c.b.Module()
}

func (c *moduleBuilder) compile() error {
	c.declareModule()
	if c.err != nil {
		return moduleError(c.err)
	}

	steps := []func() error{
		c.checkModule,
		c.declareFunctions,
		c.declareGlobals,
		c.declareEntryParams,
		c.declareMemory,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
		if c.err != nil {
			return moduleError(c.err)
		}
	}

	importCount := c.m.ImportFuncCount()
	for i, code := range c.m.CodeSection {
		info := c.functions[importCount+uint32(i)]
		if err := c.buildFunction(info, code); err != nil {
			return err
		}
	}

	if err := c.buildEntryPoints(); err != nil {
		return err
	}
	c.nameFunctions()
	if c.err != nil {
		return moduleError(c.err)
	}
	return nil
}

func moduleError(err error) error {
	return &api.BuildError{Function: -1, Offset: -1, Err: err}
}

func functionError(index wasm.Index, err error) error {
	return &api.BuildError{Function: int(index), Offset: -1, Err: err}
}

// fail records the first error.
func (c *moduleBuilder) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *moduleBuilder) failf(base error, format string, args ...interface{}) {
	c.fail(fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...)))
}

// declareModule sets the module header: capabilities, extensions and the memory model.
func (c *moduleBuilder) declareModule() {
	caps := c.cfg.Capabilities()
	for _, capability := range caps.List {
		c.b.AddCapability(capability)
	}
	for _, capability := range c.cfg.RequiredCapabilities() {
		c.require(capability)
	}
	for _, ext := range c.cfg.Extensions() {
		c.b.AddExtension(ext)
	}

	var addressing spirv.AddressingModel
	switch c.cfg.AddressingModel() {
	case api.AddressingModelLogical:
		addressing = spirv.AddressingModelLogical
	case api.AddressingModelPhysical:
		addressing = spirv.AddressingModelPhysical32
	case api.AddressingModelPhysicalStorageBuffer:
		addressing = spirv.AddressingModelPhysicalStorageBuffer64
		if !c.b.Version().AtLeast(spirv.Version1_5) {
			c.b.AddExtension("SPV_KHR_physical_storage_buffer")
		}
	}
	c.b.SetMemoryModel(addressing, c.cfg.MemoryModel())
}

// memoryType returns memory 0, defined or imported, or nil if there is none.
func (c *moduleBuilder) memoryType() *wasm.MemoryType {
	for _, imp := range c.m.ImportSection {
		if imp.Type == wasm.ExternTypeMemory {
			return imp.DescMem
		}
	}
	if len(c.m.MemorySection) > 0 {
		return c.m.MemorySection[0]
	}
	return nil
}

// checkModule rejects module-level constructs that have no lowering.
func (c *moduleBuilder) checkModule() error {
	var memories, tables int
	for _, imp := range c.m.ImportSection {
		switch imp.Type {
		case wasm.ExternTypeMemory:
			return moduleError(fmt.Errorf("%w: imported memory %s.%s", api.ErrUnsupported, imp.Module, imp.Name))
		case wasm.ExternTypeTable:
			tables++
		}
	}
	memories += len(c.m.MemorySection)
	for _, mt := range c.m.MemorySection {
		if mt.Is64 {
			return moduleError(fmt.Errorf("%w: memory64, byte addresses are 32 bits", api.ErrUnsupported))
		}
	}
	tables += len(c.m.TableSection)
	if memories > 1 {
		return moduleError(fmt.Errorf("%w: %d memories", api.ErrUnsupported, memories))
	}
	if tables > 1 {
		return moduleError(fmt.Errorf("%w: %d tables", api.ErrUnsupported, tables))
	}

	if len(c.m.FunctionSection) != len(c.m.CodeSection) {
		return moduleError(fmt.Errorf("function and code section have inconsistent lengths: %d != %d",
			len(c.m.FunctionSection), len(c.m.CodeSection)))
	}

	if start := c.m.StartSection; start != nil {
		importCount := c.m.ImportFuncCount()
		if *start < importCount || *start-importCount >= uint32(len(c.m.CodeSection)) {
			return moduleError(fmt.Errorf("%w: start function[%d] is not defined in the module", api.ErrUnsupported, *start))
		}
		code := c.m.CodeSection[*start-importCount]
		if len(code.LocalTypes) > 0 || len(code.Body) != 1 || code.Body[0] != wasm.OpcodeEnd {
			return moduleError(fmt.Errorf("%w: start function[%d] has a body", api.ErrUnsupported, *start))
		}
	}
	return nil
}

// declareFunctions allocates an id and function type for each defined function, so that calls may precede
// definitions, and resolves imports to builtins.
func (c *moduleBuilder) declareFunctions() error {
	count := c.m.FunctionCount()
	c.functions = make([]*functionInfo, count)
	for i := wasm.Index(0); i < count; i++ {
		typ, err := c.m.TypeOfFunction(i)
		if err != nil {
			return moduleError(err)
		}
		info := &functionInfo{index: i, typ: typ}
		c.functions[i] = info

		if imp := c.m.ImportedFunction(i); imp != nil {
			builtin, err := resolveImport(imp, typ)
			if err != nil {
				return functionError(i, err)
			}
			info.builtin = builtin
			continue
		}

		if len(typ.Results) > 1 {
			return functionError(i, fmt.Errorf("%w: %d results", api.ErrUnsupported, len(typ.Results)))
		}
		info.id = c.b.AllocID()
		info.resultType = c.b.TypeVoid()
		if len(typ.Results) == 1 {
			info.resultType = c.typeOf(typ.Results[0])
		}
		params := make([]uint32, len(typ.Params))
		for j, p := range typ.Params {
			params[j] = c.typeOf(p)
		}
		info.typeID = c.b.TypeFunction(info.resultType, params...)
		if c.err != nil {
			return functionError(i, c.err)
		}
	}
	return nil
}

// use records that the function fn references the module-scope variable v.
func (c *moduleBuilder) use(fn, v uint32) {
	key := [2]uint32{fn, v}
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.uses[fn] = append(c.uses[fn], v)
}

// call records that the function from calls the function to.
func (c *moduleBuilder) call(from, to uint32) {
	key := [2]uint32{from, to}
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.calls[from] = append(c.calls[from], to)
}

// reachableVariables returns the module-scope variables referenced by fn or anything it calls, in id order.
func (c *moduleBuilder) reachableVariables(fn uint32) []uint32 {
	visited := map[uint32]struct{}{}
	vars := map[uint32]struct{}{}
	stack := []uint32{fn}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[f]; ok {
			continue
		}
		visited[f] = struct{}{}
		for _, v := range c.uses[f] {
			vars[v] = struct{}{}
		}
		stack = append(stack, c.calls[f]...)
	}

	ret := make([]uint32, 0, len(vars))
	for v := range vars {
		ret = append(ret, v)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// nameFunctions names each function that is not an entry point after its export, or else its name in the name
// section.
func (c *moduleBuilder) nameFunctions() {
	for _, info := range c.functions {
		if info.id == 0 {
			continue
		}
		if _, _, entry := c.entryModel(info.index); entry {
			continue
		}
		name, ok := c.m.ExportedFunctionName(info.index)
		if !ok {
			name, ok = c.m.FunctionName(info.index)
		}
		if ok && name != "" {
			c.b.Name(info.id, name)
		}
	}
}

// buildFunction decodes and lowers one defined function.
func (c *moduleBuilder) buildFunction(info *functionInfo, code *wasm.Code) error {
	body, err := binary.DecodeInstructions(code.Body, WasmFeatures(c.cfg.Features()))
	if err != nil {
		return functionError(info.index, err)
	}
	if c.logger.IsEnabled(logging.LogScopeBuild) {
		c.logger.Logf(logging.LogScopeBuild, "function[%d] %s: %d locals, %d instructions",
			info.index, info.typ, len(code.LocalTypes), len(body))
	}

	f := newFunctionBuilder(c, info, code.LocalTypes)
	return f.build(body)
}
