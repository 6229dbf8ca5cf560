package compiler

import (
	"fmt"
	"math"

	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
)

const (
	// wordsPerPage is the number of 32-bit words in a wasm page.
	wordsPerPage = wasm.MemoryPageSize / 4
	// regionShift is the position of the region number in a byte address.
	regionShift = 28
	// maxRegions is the number of regions besides linear memory that fit in the top address bits.
	maxRegions = 15
	// maxInitializerWords is the largest initialized memory a module can carry: the initializer is one
	// OpConstantComposite, and an instruction has at most 65535 words.
	maxInitializerWords = 65532
)

// linearMemory is memory 0, lowered to 32-bit words in storage that depends on the addressing model.
type linearMemory struct {
	variable uint32
	// class is the storage class of variable.
	class    api.StorageClass
	minPages uint32
}

// region is a buffer an entry point reads or writes through a byte address whose top bits are index.
type region struct {
	index    uint32
	elem     wasm.ValueType
	variable uint32
	class    api.StorageClass
	// array is false for an Output, which holds a single element.
	array bool
}

func (c *moduleBuilder) declareMemory() error {
	mt := c.memoryType()
	if mt == nil {
		return nil
	}
	mem := &linearMemory{minPages: mt.Min}
	u32 := c.u32()

	switch c.cfg.AddressingModel() {
	case api.AddressingModelLogical:
		sc, deco := c.bufferClass(api.StorageClassStorageBuffer, true)
		block := c.wordBlock(u32, deco)
		mem.variable = c.variable(sc, block, 0, "memory")
		mem.class = sc
		c.b.Decorate(mem.variable, api.DecorationDescriptorSet, 0)
		c.b.Decorate(mem.variable, api.DecorationBinding, c.freeBinding())
		c.logDataSegments()
	case api.AddressingModelPhysicalStorageBuffer:
		block := c.b.TypeStruct(c.u64())
		c.b.Decorate(block, api.DecorationBlock)
		c.b.MemberDecorate(block, 0, api.DecorationOffset, 0)
		c.b.MemberName(block, 0, "base")
		mem.variable = c.variable(api.StorageClassPushConstant, block, 0, "memory")
		mem.class = api.StorageClassPushConstant
		c.logDataSegments()
	case api.AddressingModelPhysical:
		words := mt.Min * wordsPerPage
		if words == 0 {
			words = 1
		}
		array := c.b.TypeArray(u32, c.constU32(words))
		init, err := c.dataInitializer(array, words)
		if err != nil {
			return moduleError(err)
		}
		mem.variable = c.variable(api.StorageClassCrossWorkgroup, array, init, "memory")
		mem.class = api.StorageClassCrossWorkgroup
	}
	c.memory = mem
	return nil
}

// wordBlock returns struct { T data[]; } laid out for a buffer.
func (c *moduleBuilder) wordBlock(elem uint32, deco api.Decoration) uint32 {
	return c.arrayBlock(elem, 4, deco)
}

func (c *moduleBuilder) arrayBlock(elem, stride uint32, deco api.Decoration) uint32 {
	array := c.b.TypeRuntimeArray(elem)
	c.b.Decorate(array, api.DecorationArrayStride, stride)
	block := c.b.TypeStruct(array)
	c.b.Decorate(block, deco)
	c.b.MemberDecorate(block, 0, api.DecorationOffset, 0)
	return block
}

// freeBinding returns the lowest binding of descriptor set 0 no parameter uses.
func (c *moduleBuilder) freeBinding() uint32 {
	used := map[uint32]struct{}{}
	for _, idx := range c.cfg.FunctionIndexes() {
		fc, _ := c.cfg.Function(idx)
		for _, i := range fc.ParamIndexes() {
			p := fc.Param(i)
			if p.Kind == config.ParameterKindDescriptorSet && p.StorageClass != api.StorageClassPushConstant && p.Set == 0 {
				used[p.Binding] = struct{}{}
			}
		}
	}
	var b uint32
	for {
		if _, ok := used[b]; !ok {
			return b
		}
		b++
	}
}

func (c *moduleBuilder) logDataSegments() {
	for i, d := range c.m.DataSection {
		c.logger.Logf(logging.LogScopeBuild, "data[%d]: %d bytes are left to the host to upload", i, len(d.Init))
	}
}

// dataInitializer returns the constant initializer of a Physical memory, or zero if there are no active data
// segments.
func (c *moduleBuilder) dataInitializer(array, words uint32) (uint32, error) {
	var image []uint32
	for i, d := range c.m.DataSection {
		if d.Passive {
			c.logger.Logf(logging.LogScopeBuild, "data[%d]: passive segment is never copied", i)
			continue
		}
		offset, err := c.evalConst(d.OffsetExpression, wasm.ValueTypeI32)
		if err != nil {
			return 0, fmt.Errorf("data[%d]: %w", i, err)
		}
		if offset+uint64(len(d.Init)) > uint64(words)*4 {
			return 0, fmt.Errorf("data[%d]: %d bytes at offset %d are out of memory bounds", i, len(d.Init), offset)
		}
		if image == nil {
			if words > maxInitializerWords {
				return 0, fmt.Errorf("%w: data segments in a memory of %d words, more than %d",
					api.ErrUnsupported, words, maxInitializerWords)
			}
			image = make([]uint32, words)
		}
		for j, b := range d.Init {
			a := offset + uint64(j)
			shift := 8 * (a % 4)
			image[a/4] = image[a/4]&^(0xff<<shift) | uint32(b)<<shift
		}
	}
	if image == nil {
		return 0, nil
	}
	constituents := make([]uint32, len(image))
	for i, w := range image {
		constituents[i] = c.constU32(w)
	}
	return c.b.ConstantComposite(array, constituents...), nil
}

// newRegion declares the variable behind a region parameter.
func (c *moduleBuilder) newRegion(name string, p config.Parameter, elem wasm.ValueType) (*region, error) {
	if len(c.regions) == maxRegions {
		return nil, fmt.Errorf("%w: more than %d structured array and output parameters", api.ErrUnsupported, maxRegions)
	}
	r := &region{index: uint32(len(c.regions) + 1), elem: elem}
	t := c.typeOf(elem)
	switch p.Kind {
	case config.ParameterKindOutput:
		r.class = api.StorageClassOutput
		r.variable = c.variable(r.class, t, 0, name)
		c.b.Decorate(r.variable, api.DecorationLocation, p.Location)
	default:
		var deco api.Decoration
		r.class, deco = c.bufferClass(p.StorageClass, true)
		r.array = true
		stride := uint32(4)
		if is64(elem) {
			stride = 8
		}
		block := c.arrayBlock(t, stride, deco)
		r.variable = c.variable(r.class, block, 0, name)
		c.b.Decorate(r.variable, api.DecorationDescriptorSet, p.Set)
		c.b.Decorate(r.variable, api.DecorationBinding, p.Binding)
	}
	c.regions = append(c.regions, r)
	return r, nil
}

type helperKind uint8

const (
	helperLoadWord helperKind = iota
	helperStoreWord
	helperLoad8
	helperLoad16
	helperLoad32
	helperStore8
	helperStore16
	helperStore32
)

var helperNames = [...]string{
	helperLoadWord:  "load_word",
	helperStoreWord: "store_word",
	helperLoad8:     "load8",
	helperLoad16:    "load16",
	helperLoad32:    "load32",
	helperStore8:    "store8",
	helperStore16:   "store16",
	helperStore32:   "store32",
}

func (k helperKind) isLoad() bool {
	switch k {
	case helperLoadWord, helperLoad8, helperLoad16, helperLoad32:
		return true
	}
	return false
}

// helper returns the id of a memory access function, building it on first use.
func (c *moduleBuilder) helper(kind helperKind) uint32 {
	if id, ok := c.helpers[kind]; ok {
		return id
	}
	id := c.b.AllocID()
	c.helpers[kind] = id
	c.logger.Logf(logging.LogScopeBuild, "helper %s = %%%d", helperNames[kind], id)

	u32 := c.u32()
	var fn *spirv.Function
	var params []uint32
	if kind.isLoad() {
		fn = c.b.NewFunction(id, u32, c.b.TypeFunction(u32, u32), spirv.FunctionControlNone)
		params = []uint32{fn.Parameter(u32)}
	} else {
		void := c.b.TypeVoid()
		fn = c.b.NewFunction(id, void, c.b.TypeFunction(void, u32, u32), spirv.FunctionControlNone)
		params = []uint32{fn.Parameter(u32), fn.Parameter(u32)}
	}
	fn.NewLabel()
	h := &helperBuilder{c: c, fn: fn, id: id}
	switch kind {
	case helperLoadWord:
		h.loadWord(params[0])
	case helperStoreWord:
		h.storeWord(params[0], params[1])
	case helperLoad8:
		h.load8(params[0])
	case helperLoad16:
		h.load16(params[0])
	case helperLoad32:
		h.load32(params[0])
	case helperStore8:
		h.store8(params[0], params[1])
	case helperStore16:
		h.store16(params[0], params[1])
	case helperStore32:
		h.store32(params[0], params[1])
	}
	fn.End()
	return id
}

// callHelper emits a call from the function fnID to a memory access function.
func (c *moduleBuilder) callHelper(fn *spirv.Function, fnID uint32, kind helperKind, args ...uint32) uint32 {
	id := c.helper(kind)
	c.call(fnID, id)
	resultType := c.b.TypeVoid()
	if kind.isLoad() {
		resultType = c.u32()
	}
	return fn.EmitResult(spirv.OpFunctionCall, resultType, append([]uint32{id}, args...)...)
}

// helperBuilder emits the body of one memory access function. Byte addresses are u32.
type helperBuilder struct {
	c  *moduleBuilder
	fn *spirv.Function
	id uint32
}

func (h *helperBuilder) op(op spirv.Opcode, args ...uint32) uint32 {
	return h.fn.EmitResult(op, h.c.u32(), args...)
}

func (h *helperBuilder) call(kind helperKind, args ...uint32) uint32 {
	return h.c.callHelper(h.fn, h.id, kind, args...)
}

// byteShift returns (addr & 3) * 8.
func (h *helperBuilder) byteShift(addr uint32) uint32 {
	return h.op(spirv.OpShiftLeftLogical, h.op(spirv.OpBitwiseAnd, addr, h.c.constU32(3)), h.c.constU32(3))
}

func (h *helperBuilder) loadWord(addr uint32) {
	h.dispatch(addr, func(index uint32) {
		h.fn.Emit(spirv.OpReturnValue, h.memoryLoad(index))
	}, func(r *region, index uint32) {
		h.fn.Emit(spirv.OpReturnValue, h.regionLoad(r, index))
	})
}

func (h *helperBuilder) storeWord(addr, v uint32) {
	h.dispatch(addr, func(index uint32) {
		h.memoryStore(index, v)
		h.fn.Emit(spirv.OpReturn)
	}, func(r *region, index uint32) {
		h.regionStore(r, index, v)
		h.fn.Emit(spirv.OpReturn)
	})
}

// dispatch calls onMemory or onRegion with the word index of addr, in a switch on the region number when there
// are regions. Each callback must terminate its block.
func (h *helperBuilder) dispatch(addr uint32, onMemory func(index uint32), onRegion func(r *region, index uint32)) {
	c := h.c
	if len(c.regions) == 0 {
		onMemory(h.op(spirv.OpShiftRightLogical, addr, c.constU32(2)))
		return
	}

	offset := h.op(spirv.OpBitwiseAnd, addr, c.constU32(1<<regionShift-1))
	index := h.op(spirv.OpShiftRightLogical, offset, c.constU32(2))
	selector := h.op(spirv.OpShiftRightLogical, addr, c.constU32(regionShift))

	merge, def := c.b.AllocID(), c.b.AllocID()
	labels := make([]uint32, len(c.regions))
	operands := []uint32{selector, def}
	for i, r := range c.regions {
		labels[i] = c.b.AllocID()
		operands = append(operands, r.index, labels[i])
	}
	h.fn.Emit(spirv.OpSelectionMerge, merge, uint32(spirv.SelectionControlNone))
	h.fn.Emit(spirv.OpSwitch, operands...)

	h.fn.Label(def)
	onMemory(index)
	for i, r := range c.regions {
		h.fn.Label(labels[i])
		onRegion(r, index)
	}
	h.fn.Label(merge)
	h.fn.Emit(spirv.OpUnreachable)
}

// memoryPointer returns a pointer to the word at index of linear memory.
func (h *helperBuilder) memoryPointer(index uint32) uint32 {
	c := h.c
	mem := c.memory
	c.use(h.id, mem.variable)
	u32 := c.u32()
	switch c.cfg.AddressingModel() {
	case api.AddressingModelPhysical:
		return h.fn.EmitResult(spirv.OpAccessChain, c.pointer(mem.class, u32), mem.variable, index)
	case api.AddressingModelPhysicalStorageBuffer:
		u64 := c.u64()
		basePtr := h.fn.EmitResult(spirv.OpAccessChain, c.pointer(mem.class, u64), mem.variable, c.constU32(0))
		base := h.fn.EmitResult(spirv.OpLoad, u64, basePtr)
		offset := h.fn.EmitResult(spirv.OpIMul, u64, h.fn.EmitResult(spirv.OpUConvert, u64, index), c.constU64(4))
		addr := h.fn.EmitResult(spirv.OpIAdd, u64, base, offset)
		return h.fn.EmitResult(spirv.OpConvertUToPtr, c.pointer(api.StorageClassPhysicalStorageBuffer, u32), addr)
	}
	return h.fn.EmitResult(spirv.OpAccessChain, c.pointer(mem.class, u32), mem.variable, c.constU32(0), index)
}

// memoryAccess returns the memory operands of a word access: physical storage buffer pointers need an alignment.
func (h *helperBuilder) memoryAccess() []uint32 {
	if h.c.cfg.AddressingModel() == api.AddressingModelPhysicalStorageBuffer {
		return []uint32{uint32(spirv.MemoryAccessAligned), 4}
	}
	return nil
}

func (h *helperBuilder) memoryLoad(index uint32) uint32 {
	ptr := h.memoryPointer(index)
	return h.op(spirv.OpLoad, append([]uint32{ptr}, h.memoryAccess()...)...)
}

func (h *helperBuilder) memoryStore(index, v uint32) {
	ptr := h.memoryPointer(index)
	h.fn.Emit(spirv.OpStore, append([]uint32{ptr, v}, h.memoryAccess()...)...)
}

// elementPointer returns a pointer to the element at index of a region.
func (h *helperBuilder) elementPointer(r *region, index uint32) uint32 {
	c := h.c
	c.use(h.id, r.variable)
	if !r.array {
		return r.variable
	}
	return h.fn.EmitResult(spirv.OpAccessChain, c.pointer(r.class, c.typeOf(r.elem)), r.variable, c.constU32(0), index)
}

// halfShift returns the shift of the word at index within its 64-bit element: (index & 1) * 32, as u64.
func (h *helperBuilder) halfShift(index uint32) uint32 {
	c := h.c
	sh := h.op(spirv.OpShiftLeftLogical, h.op(spirv.OpBitwiseAnd, index, c.constU32(1)), c.constU32(5))
	return h.fn.EmitResult(spirv.OpUConvert, c.u64(), sh)
}

func (h *helperBuilder) regionLoad(r *region, index uint32) uint32 {
	c := h.c
	t := c.typeOf(r.elem)
	if !is64(r.elem) {
		v := h.fn.EmitResult(spirv.OpLoad, t, h.elementPointer(r, index))
		if isFloat(r.elem) {
			v = h.op(spirv.OpBitcast, v)
		}
		return v
	}

	u64 := c.u64()
	e := h.fn.EmitResult(spirv.OpLoad, t, h.elementPointer(r, h.op(spirv.OpShiftRightLogical, index, c.constU32(1))))
	if isFloat(r.elem) {
		e = h.fn.EmitResult(spirv.OpBitcast, u64, e)
	}
	return h.op(spirv.OpUConvert, h.fn.EmitResult(spirv.OpShiftRightLogical, u64, e, h.halfShift(index)))
}

func (h *helperBuilder) regionStore(r *region, index, v uint32) {
	c := h.c
	t := c.typeOf(r.elem)
	if !is64(r.elem) {
		if isFloat(r.elem) {
			v = h.fn.EmitResult(spirv.OpBitcast, t, v)
		}
		h.fn.Emit(spirv.OpStore, h.elementPointer(r, index), v)
		return
	}

	u64 := c.u64()
	ptr := h.elementPointer(r, h.op(spirv.OpShiftRightLogical, index, c.constU32(1)))
	e := h.fn.EmitResult(spirv.OpLoad, t, ptr)
	if isFloat(r.elem) {
		e = h.fn.EmitResult(spirv.OpBitcast, u64, e)
	}
	sh := h.halfShift(index)
	mask := h.fn.EmitResult(spirv.OpNot, u64, h.fn.EmitResult(spirv.OpShiftLeftLogical, u64, c.constU64(math.MaxUint32), sh))
	word := h.fn.EmitResult(spirv.OpShiftLeftLogical, u64, h.fn.EmitResult(spirv.OpUConvert, u64, v), sh)
	e = h.fn.EmitResult(spirv.OpBitwiseOr, u64, h.fn.EmitResult(spirv.OpBitwiseAnd, u64, e, mask), word)
	if isFloat(r.elem) {
		e = h.fn.EmitResult(spirv.OpBitcast, t, e)
	}
	h.fn.Emit(spirv.OpStore, ptr, e)
}

func (h *helperBuilder) load8(addr uint32) {
	c := h.c
	w := h.call(helperLoadWord, addr)
	v := h.op(spirv.OpBitwiseAnd, h.op(spirv.OpShiftRightLogical, w, h.byteShift(addr)), c.constU32(0xff))
	h.fn.Emit(spirv.OpReturnValue, v)
}

func (h *helperBuilder) load16(addr uint32) {
	c := h.c
	lo := h.call(helperLoad8, addr)
	hi := h.call(helperLoad8, h.op(spirv.OpIAdd, addr, c.constU32(1)))
	h.fn.Emit(spirv.OpReturnValue, h.op(spirv.OpBitwiseOr, lo, h.op(spirv.OpShiftLeftLogical, hi, c.constU32(8))))
}

// load32 reads one word when addr is aligned, else combines the two words it straddles.
func (h *helperBuilder) load32(addr uint32) {
	c := h.c
	sh := h.byteShift(addr)
	lo := h.call(helperLoadWord, addr)
	aligned := h.fn.EmitResult(spirv.OpIEqual, c.b.TypeBool(), sh, c.constU32(0))

	merge, alignedLabel, unalignedLabel := c.b.AllocID(), c.b.AllocID(), c.b.AllocID()
	h.fn.Emit(spirv.OpSelectionMerge, merge, uint32(spirv.SelectionControlNone))
	h.fn.Emit(spirv.OpBranchConditional, aligned, alignedLabel, unalignedLabel)

	h.fn.Label(alignedLabel)
	h.fn.Emit(spirv.OpReturnValue, lo)

	h.fn.Label(unalignedLabel)
	hi := h.call(helperLoadWord, h.op(spirv.OpIAdd, addr, c.constU32(4)))
	v := h.op(spirv.OpBitwiseOr,
		h.op(spirv.OpShiftRightLogical, lo, sh),
		h.op(spirv.OpShiftLeftLogical, hi, h.op(spirv.OpISub, c.constU32(32), sh)))
	h.fn.Emit(spirv.OpReturnValue, v)

	h.fn.Label(merge)
	h.fn.Emit(spirv.OpUnreachable)
}

func (h *helperBuilder) store8(addr, v uint32) {
	c := h.c
	sh := h.byteShift(addr)
	w := h.call(helperLoadWord, addr)
	mask := h.op(spirv.OpNot, h.op(spirv.OpShiftLeftLogical, c.constU32(0xff), sh))
	b := h.op(spirv.OpShiftLeftLogical, h.op(spirv.OpBitwiseAnd, v, c.constU32(0xff)), sh)
	h.call(helperStoreWord, addr, h.op(spirv.OpBitwiseOr, h.op(spirv.OpBitwiseAnd, w, mask), b))
	h.fn.Emit(spirv.OpReturn)
}

func (h *helperBuilder) store16(addr, v uint32) {
	c := h.c
	h.call(helperStore8, addr, v)
	h.call(helperStore8, h.op(spirv.OpIAdd, addr, c.constU32(1)), h.op(spirv.OpShiftRightLogical, v, c.constU32(8)))
	h.fn.Emit(spirv.OpReturn)
}

// store32 writes one word when addr is aligned, else merges v into the two words it straddles.
func (h *helperBuilder) store32(addr, v uint32) {
	c := h.c
	sh := h.byteShift(addr)
	aligned := h.fn.EmitResult(spirv.OpIEqual, c.b.TypeBool(), sh, c.constU32(0))

	merge, alignedLabel, unalignedLabel := c.b.AllocID(), c.b.AllocID(), c.b.AllocID()
	h.fn.Emit(spirv.OpSelectionMerge, merge, uint32(spirv.SelectionControlNone))
	h.fn.Emit(spirv.OpBranchConditional, aligned, alignedLabel, unalignedLabel)

	h.fn.Label(alignedLabel)
	h.call(helperStoreWord, addr, v)
	h.fn.Emit(spirv.OpReturn)

	h.fn.Label(unalignedLabel)
	ones := c.constU32(math.MaxUint32)
	inv := h.op(spirv.OpISub, c.constU32(32), sh)
	lo := h.call(helperLoadWord, addr)
	lo = h.op(spirv.OpBitwiseOr,
		h.op(spirv.OpBitwiseAnd, lo, h.op(spirv.OpNot, h.op(spirv.OpShiftLeftLogical, ones, sh))),
		h.op(spirv.OpShiftLeftLogical, v, sh))
	h.call(helperStoreWord, addr, lo)

	next := h.op(spirv.OpIAdd, addr, c.constU32(4))
	hi := h.call(helperLoadWord, next)
	hi = h.op(spirv.OpBitwiseOr,
		h.op(spirv.OpBitwiseAnd, hi, h.op(spirv.OpNot, h.op(spirv.OpShiftRightLogical, ones, inv))),
		h.op(spirv.OpShiftRightLogical, v, inv))
	h.call(helperStoreWord, next, hi)
	h.fn.Emit(spirv.OpReturn)

	h.fn.Label(merge)
	h.fn.Emit(spirv.OpUnreachable)
}

// effectiveAddress pops the address operand of a load or store and adds the static offset.
func (f *functionBuilder) effectiveAddress(inst *wasm.Instruction) uint32 {
	c := f.c
	addr := f.pop(wasm.ValueTypeI32).id
	switch offset := inst.MemArg.Offset; {
	case offset > math.MaxUint32:
		c.failf(api.ErrUnsupported, "offset %d does not fit in 32 bits", offset)
	case offset != 0:
		addr = f.emit(spirv.OpIAdd, c.u32(), addr, c.constU32(uint32(offset)))
	}
	return addr
}

func (f *functionBuilder) callHelper(kind helperKind, args ...uint32) uint32 {
	return f.c.callHelper(f.fn, f.info.id, kind, args...)
}

func (f *functionBuilder) load64(addr uint32) uint32 {
	c := f.c
	u64 := c.u64()
	lo := f.emit(spirv.OpUConvert, u64, f.callHelper(helperLoad32, addr))
	hi := f.emit(spirv.OpUConvert, u64, f.callHelper(helperLoad32, f.emit(spirv.OpIAdd, c.u32(), addr, c.constU32(4))))
	return f.emit(spirv.OpBitwiseOr, u64, lo, f.emit(spirv.OpShiftLeftLogical, u64, hi, c.constU64(32)))
}

func (f *functionBuilder) store64(addr, v uint32) {
	c := f.c
	u32, u64 := c.u32(), c.u64()
	lo := f.emit(spirv.OpUConvert, u32, v)
	hi := f.emit(spirv.OpUConvert, u32, f.emit(spirv.OpShiftRightLogical, u64, v, c.constU64(32)))
	f.callHelper(helperStore32, addr, lo)
	f.callHelper(helperStore32, f.emit(spirv.OpIAdd, u32, addr, c.constU32(4)), hi)
}

// signExtend sign extends the low bits of a value of type t.
func (f *functionBuilder) signExtend(t wasm.ValueType, v uint32, bits uint64) uint32 {
	c := f.c
	sh := c.constBits(t, width(t)-bits)
	typ := c.bitsType(t)
	return f.emit(spirv.OpShiftRightArithmetic, typ, f.emit(spirv.OpShiftLeftLogical, typ, v, sh), sh)
}

func (f *functionBuilder) lowerLoad(inst *wasm.Instruction) {
	c := f.c
	addr := f.effectiveAddress(inst)
	switch inst.Opcode {
	case wasm.OpcodeI32Load:
		f.push(f.callHelper(helperLoad32, addr), wasm.ValueTypeI32)
	case wasm.OpcodeF32Load:
		f.push(f.emit(spirv.OpBitcast, c.typeOf(wasm.ValueTypeF32), f.callHelper(helperLoad32, addr)), wasm.ValueTypeF32)
	case wasm.OpcodeI64Load:
		f.push(f.load64(addr), wasm.ValueTypeI64)
	case wasm.OpcodeF64Load:
		f.push(f.emit(spirv.OpBitcast, c.typeOf(wasm.ValueTypeF64), f.load64(addr)), wasm.ValueTypeF64)
	case wasm.OpcodeI32Load8U:
		f.push(f.callHelper(helperLoad8, addr), wasm.ValueTypeI32)
	case wasm.OpcodeI32Load8S:
		f.push(f.signExtend(wasm.ValueTypeI32, f.callHelper(helperLoad8, addr), 8), wasm.ValueTypeI32)
	case wasm.OpcodeI32Load16U:
		f.push(f.callHelper(helperLoad16, addr), wasm.ValueTypeI32)
	case wasm.OpcodeI32Load16S:
		f.push(f.signExtend(wasm.ValueTypeI32, f.callHelper(helperLoad16, addr), 16), wasm.ValueTypeI32)
	case wasm.OpcodeI64Load8U:
		f.push(f.emit(spirv.OpUConvert, c.u64(), f.callHelper(helperLoad8, addr)), wasm.ValueTypeI64)
	case wasm.OpcodeI64Load8S:
		v := f.signExtend(wasm.ValueTypeI32, f.callHelper(helperLoad8, addr), 8)
		f.push(f.emit(spirv.OpSConvert, c.u64(), v), wasm.ValueTypeI64)
	case wasm.OpcodeI64Load16U:
		f.push(f.emit(spirv.OpUConvert, c.u64(), f.callHelper(helperLoad16, addr)), wasm.ValueTypeI64)
	case wasm.OpcodeI64Load16S:
		v := f.signExtend(wasm.ValueTypeI32, f.callHelper(helperLoad16, addr), 16)
		f.push(f.emit(spirv.OpSConvert, c.u64(), v), wasm.ValueTypeI64)
	case wasm.OpcodeI64Load32U:
		f.push(f.emit(spirv.OpUConvert, c.u64(), f.callHelper(helperLoad32, addr)), wasm.ValueTypeI64)
	case wasm.OpcodeI64Load32S:
		f.push(f.emit(spirv.OpSConvert, c.u64(), f.callHelper(helperLoad32, addr)), wasm.ValueTypeI64)
	}
}

func (f *functionBuilder) lowerStore(inst *wasm.Instruction) {
	c := f.c
	var t wasm.ValueType
	switch inst.Opcode {
	case wasm.OpcodeI32Store, wasm.OpcodeI32Store8, wasm.OpcodeI32Store16:
		t = wasm.ValueTypeI32
	case wasm.OpcodeF32Store:
		t = wasm.ValueTypeF32
	case wasm.OpcodeF64Store:
		t = wasm.ValueTypeF64
	default:
		t = wasm.ValueTypeI64
	}
	v := f.pop(t).id
	addr := f.effectiveAddress(inst)

	switch inst.Opcode {
	case wasm.OpcodeI32Store:
		f.callHelper(helperStore32, addr, v)
	case wasm.OpcodeF32Store:
		f.callHelper(helperStore32, addr, f.emit(spirv.OpBitcast, c.u32(), v))
	case wasm.OpcodeI64Store:
		f.store64(addr, v)
	case wasm.OpcodeF64Store:
		f.store64(addr, f.emit(spirv.OpBitcast, c.u64(), v))
	case wasm.OpcodeI32Store8:
		f.callHelper(helperStore8, addr, v)
	case wasm.OpcodeI32Store16:
		f.callHelper(helperStore16, addr, v)
	case wasm.OpcodeI64Store8:
		f.callHelper(helperStore8, addr, f.emit(spirv.OpUConvert, c.u32(), v))
	case wasm.OpcodeI64Store16:
		f.callHelper(helperStore16, addr, f.emit(spirv.OpUConvert, c.u32(), v))
	case wasm.OpcodeI64Store32:
		f.callHelper(helperStore32, addr, f.emit(spirv.OpUConvert, c.u32(), v))
	}
}

// requireMemory fails unless the module has a memory for a memory instruction to use.
func (f *functionBuilder) requireMemory() bool {
	if f.c.memory == nil {
		f.c.failf(api.ErrUnsupported, "no memory is declared")
		return false
	}
	return true
}

func (f *functionBuilder) lowerMemorySize() {
	f.pushConst(wasm.ValueTypeI32, uint64(f.c.memory.minPages))
}

// lowerMemoryGrow fails under MemoryGrowErrorHard. Otherwise growing always fails at run time, with -1.
func (f *functionBuilder) lowerMemoryGrow() {
	f.pop(wasm.ValueTypeI32)
	if f.c.cfg.MemoryGrowError() == config.MemoryGrowErrorHard {
		f.c.failf(api.ErrUnsupported, "memory cannot grow")
		return
	}
	f.pushConst(wasm.ValueTypeI32, math.MaxUint32)
}
