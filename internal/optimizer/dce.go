package optimizer

import (
	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
)

// function is the instructions from OpFunction to OpFunctionEnd.
type function struct {
	id    uint32
	insts []spirv.Instruction
}

func (o *optimizer) splitFunctions() []function {
	var ret []function
	for _, inst := range o.m.Functions {
		if inst.Opcode == spirv.OpFunction {
			ret = append(ret, function{id: inst.ResultID()})
		}
		last := &ret[len(ret)-1]
		last.insts = append(last.insts, inst)
	}
	return ret
}

// removeDeadFunctions removes the functions that no entry point or named function calls, directly or not, and
// returns how many were removed.
func (o *optimizer) removeDeadFunctions() int {
	fns := o.splitFunctions()
	byID := make(map[uint32]*function, len(fns))
	for i := range fns {
		byID[fns[i].id] = &fns[i]
	}

	var queue []uint32
	for i := range o.m.EntryPoints {
		queue = append(queue, o.m.EntryPoints[i].Words[1])
	}
	for i := range o.m.Debug {
		if inst := &o.m.Debug[i]; inst.Opcode == spirv.OpName {
			if _, ok := byID[inst.Words[0]]; ok {
				queue = append(queue, inst.Words[0])
			}
		}
	}

	live := map[uint32]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		fn, ok := byID[id]
		if !ok || live[id] {
			continue
		}
		live[id] = true
		for i := range fn.insts {
			if inst := &fn.insts[i]; inst.Opcode == spirv.OpFunctionCall {
				queue = append(queue, inst.Words[2])
			}
		}
	}

	removed := 0
	out := o.m.Functions[:0]
	for i := range fns {
		if !live[fns[i].id] {
			removed++
			continue
		}
		out = append(out, fns[i].insts...)
	}
	o.m.Functions = out
	return removed
}

// uses counts the references to each id outside debug instructions and annotations. stores counts the OpStore
// instructions writing through each pointer.
func (o *optimizer) uses() (uses, stores map[uint32]int) {
	uses, stores = map[uint32]int{}, map[uint32]int{}
	count := func(insts []spirv.Instruction) {
		for i := range insts {
			inst := &insts[i]
			for _, id := range inst.UsedIDs() {
				uses[id]++
			}
			if inst.Opcode == spirv.OpStore {
				stores[inst.Words[0]]++
			}
		}
	}
	count(o.m.EntryPoints)
	count(o.m.ExecutionModes)
	count(o.m.Globals)
	count(o.m.Functions)
	return
}

// removeDeadInstructions removes instructions without effects whose results are unused, and Function variables
// that are only written, until nothing changes. It returns how many instructions were removed.
func (o *optimizer) removeDeadInstructions() int {
	removed := 0
	for {
		uses, stores := o.uses()
		deadVars := map[uint32]bool{}
		for i := range o.m.Functions {
			inst := &o.m.Functions[i]
			if inst.Opcode == spirv.OpVariable && api.StorageClass(inst.Words[2]) == api.StorageClassFunction &&
				uses[inst.Words[1]] == stores[inst.Words[1]] {
				deadVars[inst.Words[1]] = true
			}
		}
		dead := func(inst *spirv.Instruction) bool {
			if inst.Opcode == spirv.OpStore {
				return deadVars[inst.Words[0]]
			}
			id := inst.ResultID()
			return deadVars[id] || (id != 0 && inst.Opcode.IsPure() && uses[id] == 0)
		}

		n := 0
		for _, section := range []*[]spirv.Instruction{&o.m.ExtInstImports, &o.m.Globals, &o.m.Functions} {
			out := (*section)[:0]
			for i := range *section {
				if dead(&(*section)[i]) {
					n++
					continue
				}
				out = append(out, (*section)[i])
			}
			*section = out
		}
		if n == 0 {
			return removed
		}
		removed += n
	}
}

// removeDeadNames removes names and decorations of ids that are no longer defined.
func (o *optimizer) removeDeadNames() {
	defined := map[uint32]bool{}
	for _, inst := range o.m.Instructions() {
		if id := inst.ResultID(); id != 0 {
			defined[id] = true
		}
	}
	filter := func(insts []spirv.Instruction) []spirv.Instruction {
		out := insts[:0]
		for _, inst := range insts {
			if inst.Opcode == spirv.OpString || defined[inst.Words[0]] {
				out = append(out, inst)
			}
		}
		return out
	}
	o.m.Debug = filter(o.m.Debug)
	o.m.Annotations = filter(o.m.Annotations)
}
