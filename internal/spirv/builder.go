package spirv

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wasm2spirv/api"
)

// Builder assembles a Module. It allocates ids, keeps capabilities, extensions and extended instruction
// set imports unique, and interns types and constants so that each structurally equal one has one id.
//
// A Builder is not goroutine-safe. Misuse, such as emitting after a block terminator, is recorded and
// returned by Module as an *api.EmitError.
type Builder struct {
	version Version
	nextID  uint32
	err     error

	capabilities   []api.Capability
	capabilitySet  map[api.Capability]struct{}
	extensions     []Instruction
	extensionSet   map[string]struct{}
	extInstImports []Instruction
	extInstSets    map[string]uint32
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debug          []Instruction
	annotations    []Instruction
	globals        []Instruction
	functions      []Instruction

	// interned maps the opcode and operands of a type or constant to its id.
	interned map[string]uint32
	// annotated deduplicates names and decorations.
	annotated map[string]struct{}
}

// NewBuilder returns a Builder for a module of the given version.
func NewBuilder(version Version) *Builder {
	return &Builder{
		version:       version,
		nextID:        1,
		capabilitySet: map[api.Capability]struct{}{},
		extensionSet:  map[string]struct{}{},
		extInstSets:   map[string]uint32{},
		interned:      map[string]uint32{},
		annotated:     map[string]struct{}{},
	}
}

// Version returns the version of the module being built.
func (b *Builder) Version() Version {
	return b.version
}

// AllocID returns a fresh id.
func (b *Builder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Builder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = api.NewEmitError(format, args...)
	}
}

// AddCapability declares a capability. Repeated calls are no-ops; the first call decides the order.
func (b *Builder) AddCapability(c api.Capability) {
	if _, ok := b.capabilitySet[c]; ok {
		return
	}
	b.capabilitySet[c] = struct{}{}
	b.capabilities = append(b.capabilities, c)
}

// HasCapability returns true if AddCapability was called with c.
func (b *Builder) HasCapability(c api.Capability) bool {
	_, ok := b.capabilitySet[c]
	return ok
}

// Capabilities returns the declared capabilities in declaration order.
func (b *Builder) Capabilities() []api.Capability {
	return append([]api.Capability(nil), b.capabilities...)
}

// AddExtension declares an extension once.
func (b *Builder) AddExtension(name string) {
	if _, ok := b.extensionSet[name]; ok {
		return
	}
	b.extensionSet[name] = struct{}{}
	b.extensions = append(b.extensions, Instruction{Opcode: OpExtension, Words: encodeString(name)})
}

// ExtInstImport returns the id of the extended instruction set, importing it on first use.
func (b *Builder) ExtInstImport(name string) uint32 {
	if id, ok := b.extInstSets[name]; ok {
		return id
	}
	id := b.AllocID()
	b.extInstSets[name] = id
	b.extInstImports = append(b.extInstImports, Instruction{
		Opcode: OpExtInstImport,
		Words:  append([]uint32{id}, encodeString(name)...),
	})
	return id
}

// SetMemoryModel sets the operands of OpMemoryModel.
func (b *Builder) SetMemoryModel(addressing AddressingModel, memory api.MemoryModel) {
	b.memoryModel = &Instruction{Opcode: OpMemoryModel, Words: []uint32{uint32(addressing), uint32(memory)}}
}

// AddEntryPoint declares fn as an entry point. iface lists the interface variables.
func (b *Builder) AddEntryPoint(model api.ExecutionModel, fn uint32, name string, iface []uint32) {
	words := append([]uint32{uint32(model), fn}, encodeString(name)...)
	b.entryPoints = append(b.entryPoints, Instruction{Opcode: OpEntryPoint, Words: append(words, iface...)})
}

// AddExecutionMode declares an execution mode of the entry point fn.
func (b *Builder) AddExecutionMode(fn uint32, mode api.ExecutionMode, literals ...uint32) {
	words := append([]uint32{fn, uint32(mode)}, literals...)
	b.executionModes = append(b.executionModes, Instruction{Opcode: OpExecutionMode, Words: words})
}

// Name attaches a debug name to id.
func (b *Builder) Name(id uint32, name string) {
	b.annotate(&b.debug, OpName, append([]uint32{id}, encodeString(name)...))
}

// MemberName attaches a debug name to a member of a struct type.
func (b *Builder) MemberName(structID, member uint32, name string) {
	b.annotate(&b.debug, OpMemberName, append([]uint32{structID, member}, encodeString(name)...))
}

// Decorate decorates id. Decorating the same id the same way twice is a no-op, so interned types can be
// decorated by every user.
func (b *Builder) Decorate(id uint32, d api.Decoration, literals ...uint32) {
	b.annotate(&b.annotations, OpDecorate, append([]uint32{id, uint32(d)}, literals...))
}

// MemberDecorate decorates a member of a struct type.
func (b *Builder) MemberDecorate(structID, member uint32, d api.Decoration, literals ...uint32) {
	b.annotate(&b.annotations, OpMemberDecorate, append([]uint32{structID, member, uint32(d)}, literals...))
}

func (b *Builder) annotate(dst *[]Instruction, op Opcode, words []uint32) {
	key := internKey(op, words)
	if _, ok := b.annotated[key]; ok {
		return
	}
	b.annotated[key] = struct{}{}
	*dst = append(*dst, Instruction{Opcode: op, Words: words})
}

func internKey(op Opcode, words []uint32) string {
	buf := make([]byte, 2+4*len(words))
	binary.LittleEndian.PutUint16(buf, uint16(op))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[2+4*i:], w)
	}
	return string(buf)
}

// intern returns the id of the global instruction with the given opcode and operands, defining it when
// absent. resultType is zero for types.
func (b *Builder) intern(op Opcode, resultType uint32, operands ...uint32) uint32 {
	key := internKey(op, append([]uint32{resultType}, operands...))
	if id, ok := b.interned[key]; ok {
		return id
	}
	id := b.AllocID()
	b.interned[key] = id

	var words []uint32
	if resultType != 0 {
		words = append(words, resultType)
	}
	words = append(words, id)
	b.globals = append(b.globals, Instruction{Opcode: op, Words: append(words, operands...)})
	return id
}

// TypeVoid returns the id of OpTypeVoid.
func (b *Builder) TypeVoid() uint32 { return b.intern(OpTypeVoid, 0) }

// TypeBool returns the id of OpTypeBool.
func (b *Builder) TypeBool() uint32 { return b.intern(OpTypeBool, 0) }

// TypeInt returns the id of an integer type of the given width.
func (b *Builder) TypeInt(width uint32, signed bool) uint32 {
	var s uint32
	if signed {
		s = 1
	}
	return b.intern(OpTypeInt, 0, width, s)
}

// TypeFloat returns the id of a float type of the given width.
func (b *Builder) TypeFloat(width uint32) uint32 { return b.intern(OpTypeFloat, 0, width) }

// TypeVector returns the id of a vector of count elements.
func (b *Builder) TypeVector(elem, count uint32) uint32 { return b.intern(OpTypeVector, 0, elem, count) }

// TypeArray returns the id of an array whose length is the constant length.
func (b *Builder) TypeArray(elem, length uint32) uint32 { return b.intern(OpTypeArray, 0, elem, length) }

// TypeRuntimeArray returns the id of an unsized array.
func (b *Builder) TypeRuntimeArray(elem uint32) uint32 { return b.intern(OpTypeRuntimeArray, 0, elem) }

// TypeStruct returns the id of a struct with the given member types.
func (b *Builder) TypeStruct(members ...uint32) uint32 { return b.intern(OpTypeStruct, 0, members...) }

// TypePointer returns the id of a pointer to elem in the storage class.
func (b *Builder) TypePointer(sc api.StorageClass, elem uint32) uint32 {
	return b.intern(OpTypePointer, 0, uint32(sc), elem)
}

// TypeFunction returns the id of a function type.
func (b *Builder) TypeFunction(result uint32, params ...uint32) uint32 {
	return b.intern(OpTypeFunction, 0, append([]uint32{result}, params...)...)
}

// Constant returns the id of a scalar constant. 64-bit values take two words, low word first.
func (b *Builder) Constant(typeID uint32, words ...uint32) uint32 {
	return b.intern(OpConstant, typeID, words...)
}

// ConstantUint32 returns the id of a 32-bit integer constant of the given type.
func (b *Builder) ConstantUint32(typeID, v uint32) uint32 { return b.Constant(typeID, v) }

// ConstantUint64 returns the id of a 64-bit integer constant of the given type.
func (b *Builder) ConstantUint64(typeID uint32, v uint64) uint32 {
	return b.Constant(typeID, uint32(v), uint32(v>>32))
}

// ConstantFloat32 returns the id of a 32-bit float constant of the given type.
func (b *Builder) ConstantFloat32(typeID uint32, v float32) uint32 {
	return b.Constant(typeID, math.Float32bits(v))
}

// ConstantFloat64 returns the id of a 64-bit float constant of the given type.
func (b *Builder) ConstantFloat64(typeID uint32, v float64) uint32 {
	return b.ConstantUint64(typeID, math.Float64bits(v))
}

// ConstantBool returns the id of OpConstantTrue or OpConstantFalse.
func (b *Builder) ConstantBool(v bool) uint32 {
	if v {
		return b.intern(OpConstantTrue, b.TypeBool())
	}
	return b.intern(OpConstantFalse, b.TypeBool())
}

// ConstantComposite returns the id of a composite constant.
func (b *Builder) ConstantComposite(typeID uint32, constituents ...uint32) uint32 {
	return b.intern(OpConstantComposite, typeID, constituents...)
}

// ConstantNull returns the id of the zero value of a type.
func (b *Builder) ConstantNull(typeID uint32) uint32 { return b.intern(OpConstantNull, typeID) }

// Variable defines a module-scope variable. init is an optional constant initializer, zero for none.
// Variables are never interned.
func (b *Builder) Variable(ptrType uint32, sc api.StorageClass, init uint32) uint32 {
	id := b.AllocID()
	words := []uint32{ptrType, id, uint32(sc)}
	if init != 0 {
		words = append(words, init)
	}
	b.globals = append(b.globals, Instruction{Opcode: OpVariable, Words: words})
	return id
}

// Module returns the finished module. The bound is one past the last allocated id. The module is
// validated, and any recorded misuse or validation failure is returned as an *api.EmitError.
func (b *Builder) Module() (*Module, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.memoryModel == nil {
		return nil, api.NewEmitError("memory model not set")
	}

	m := &Module{
		Version:        b.version,
		Generator:      GeneratorID,
		Bound:          b.nextID,
		ExtInstImports: cloneInstructions(b.extInstImports),
		EntryPoints:    cloneInstructions(b.entryPoints),
		ExecutionModes: cloneInstructions(b.executionModes),
		Extensions:     cloneInstructions(b.extensions),
		Debug:          cloneInstructions(b.debug),
		Annotations:    cloneInstructions(b.annotations),
		Globals:        cloneInstructions(b.globals),
		Functions:      cloneInstructions(b.functions),
	}
	for _, c := range b.capabilities {
		m.Capabilities = append(m.Capabilities, Instruction{Opcode: OpCapability, Words: []uint32{uint32(c)}})
	}
	mm := b.memoryModel.Clone()
	m.MemoryModel = &mm

	if err := m.Validate(); err != nil {
		return nil, api.NewEmitError("invalid module: %v", err)
	}
	return m, nil
}

// Function builds the body of one function. Function-scope variables are hoisted into the first block
// whenever they are declared, so callers can declare them mid-body.
type Function struct {
	b          *Builder
	id         uint32
	resultType uint32
	typeID     uint32
	control    FunctionControl
	params     []Instruction
	variables  []Instruction
	body       []Instruction
	inBlock    bool
	ended      bool
}

// NewFunction starts a function whose id was allocated beforehand, so calls can precede the definition.
func (b *Builder) NewFunction(id, resultType, typeID uint32, control FunctionControl) *Function {
	return &Function{b: b, id: id, resultType: resultType, typeID: typeID, control: control}
}

// ID returns the function id.
func (f *Function) ID() uint32 { return f.id }

// Parameter declares the next parameter.
func (f *Function) Parameter(typeID uint32) uint32 {
	id := f.b.AllocID()
	f.params = append(f.params, Instruction{Opcode: OpFunctionParameter, Words: []uint32{typeID, id}})
	return id
}

// Variable declares a Function-scope variable. ptrType must be a Function pointer. init is an optional
// initializer id, zero for none.
func (f *Function) Variable(ptrType, init uint32) uint32 {
	id := f.b.AllocID()
	words := []uint32{ptrType, id, uint32(api.StorageClassFunction)}
	if init != 0 {
		words = append(words, init)
	}
	f.variables = append(f.variables, Instruction{Opcode: OpVariable, Words: words})
	return id
}

// Label starts the block id. The previous block must have been terminated.
func (f *Function) Label(id uint32) {
	if f.inBlock {
		f.b.fail("function %%%d: block %%%d starts before the previous block is terminated", f.id, id)
	}
	f.body = append(f.body, Instruction{Opcode: OpLabel, Words: []uint32{id}})
	f.inBlock = true
}

// NewLabel allocates an id and starts a block with it.
func (f *Function) NewLabel() uint32 {
	id := f.b.AllocID()
	f.Label(id)
	return id
}

// Terminated returns true if there is no open block, because the last block ended with a terminator.
func (f *Function) Terminated() bool { return !f.inBlock }

// Emit appends an instruction with no result.
func (f *Function) Emit(op Opcode, operands ...uint32) {
	if !f.inBlock {
		f.b.fail("function %%%d: %s outside a block", f.id, op)
		return
	}
	f.body = append(f.body, Instruction{Opcode: op, Words: operands})
	if op.IsTerminator() {
		f.inBlock = false
	}
}

// EmitResult appends an instruction that defines a fresh id of resultType, and returns the id.
func (f *Function) EmitResult(op Opcode, resultType uint32, operands ...uint32) uint32 {
	id := f.b.AllocID()
	f.Emit(op, append([]uint32{resultType, id}, operands...)...)
	return id
}

// End closes the function and adds it to the module.
func (f *Function) End() {
	switch {
	case f.ended:
		f.b.fail("function %%%d ended twice", f.id)
		return
	case len(f.body) == 0:
		f.b.fail("function %%%d has no blocks", f.id)
		return
	case f.inBlock:
		f.b.fail("function %%%d: last block is not terminated", f.id)
		return
	}
	f.ended = true

	fns := f.b.functions
	fns = append(fns, Instruction{Opcode: OpFunction, Words: []uint32{f.resultType, f.id, uint32(f.control), f.typeID}})
	fns = append(fns, f.params...)
	fns = append(fns, f.body[0])
	fns = append(fns, f.variables...)
	fns = append(fns, f.body[1:]...)
	f.b.functions = append(fns, Instruction{Opcode: OpFunctionEnd})
}
