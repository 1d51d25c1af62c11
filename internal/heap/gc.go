package heap

import (
	"sort"

	"hulascript/internal/bytecode"
	"hulascript/internal/value"
)

// Roots is every GC root set the spec names: the evaluation stack, the
// locals stack, globals, values temporarily exempted mid-opcode
// (temp_gc_exempt), and the REPL-used constant/function ids that must
// survive until the next top-level statement.
type Roots struct {
	EvalStack     []value.Value
	Locals        []value.Value
	Globals       []value.Value
	TempExempt    []value.Value
	ReplConstants []bytecode.ConstID
	ReplFunctions []bytecode.FuncID
}

// Stats summarizes one collection cycle, returned so callers can report
// or assert on it (see the end-to-end GC-reclaims-unreferenced-tables
// scenario in spec.md §8).
type Stats struct {
	TablesSwept    int
	StringsSwept   int
	ObjectsSwept   int
	FunctionsSwept int
	ConstantsSwept int
	HeapLenBefore  int
	HeapLenAfter   int
}

// Collect runs mark, sweep, and heap compaction. It does not compact the
// instruction stream: the ip ranges of the functions this cycle swept are
// only recorded in SweptFunctionRanges.
func (h *Heap) Collect(roots Roots) Stats {
	before := len(h.values)

	h.resetMarks()

	mark := h.markValue
	for _, v := range roots.EvalStack {
		mark(v)
	}
	for _, v := range roots.Locals {
		mark(v)
	}
	for _, v := range roots.Globals {
		mark(v)
	}
	for _, v := range roots.TempExempt {
		mark(v)
	}
	for _, id := range roots.ReplConstants {
		if v, ok := h.Constants.Get(id); ok {
			h.markFunctionAndConstant(id, v)
		}
	}
	for _, id := range roots.ReplFunctions {
		h.markFunction(id)
	}

	stats := h.sweep()
	h.compactHeap()

	stats.HeapLenBefore = before
	stats.HeapLenAfter = len(h.values)
	return stats
}

func (h *Heap) resetMarks() {
	for _, t := range h.tables {
		t.marked = false
	}
	h.Strings.ResetMarks()
	h.markedFuncs = make(map[bytecode.FuncID]bool)
	h.markedConsts = make(map[bytecode.ConstID]bool)
	h.markedObjs = make(map[uint32]bool)
	h.markedFns = make(map[uint32]bool)
	h.SweptFunctionRanges = nil
}

// markValue traces a single value: CLOSURE marks its function (and
// capture table if present); TABLE marks the table and recurses into its
// live slots; STRING marks the interned pointer; FOREIGN_OBJECT /
// FOREIGN_OBJECT_METHOD mark the object and call its Trace for further
// roots; FOREIGN_FUNCTION marks the function id.
func (h *Heap) markValue(v value.Value) {
	switch v.Tag {
	case value.Closure:
		h.markFunction(bytecode.FuncID(v.FuncID))
		if v.HasFlag(value.HasCaptureTable) {
			h.markTable(v.DataID)
		}
	case value.Table:
		h.markTable(v.DataID)
	case value.String:
		h.Strings.Mark(v.Str)
	case value.ForeignObject, value.ForeignObjectMethod:
		h.markForeignObject(v.DataID)
	case value.ForeignFunction:
		h.markForeignFunction(v.FuncID)
	}
}

func (h *Heap) markTable(id uint32) {
	t, ok := h.tables[id]
	if !ok || t.marked {
		return
	}
	t.marked = true // mark before recursing: tables may be cyclic
	for slot := 0; slot < t.Count; slot++ {
		h.markValue(h.values[t.Block.Start+slot])
	}
	if t.HasParent {
		h.markTable(t.Parent)
	}
}

func (h *Heap) markForeignObject(id uint32) {
	if h.markedObjs[id] {
		return
	}
	h.markedObjs[id] = true
	if obj, ok := h.Foreign.Object(id); ok {
		obj.Trace(h.markValue)
	}
}

func (h *Heap) markForeignFunction(id uint32) {
	h.markedFns[id] = true
}

// markFunction marks a function id reachable, then enqueues its
// referenced functions and marks (and traces) its referenced constants.
func (h *Heap) markFunction(id bytecode.FuncID) {
	if h.markedFuncs[id] {
		return
	}
	h.markedFuncs[id] = true
	fe, ok := h.Functions.Get(id)
	if !ok {
		return
	}
	for ref := range fe.ReferencedFunctions {
		h.markFunction(ref)
	}
	for ref := range fe.ReferencedConstants {
		if v, ok := h.Constants.Get(ref); ok {
			h.markFunctionAndConstant(ref, v)
		}
	}
}

func (h *Heap) markFunctionAndConstant(id bytecode.ConstID, v value.Value) {
	if h.markedConsts[id] {
		return
	}
	h.markedConsts[id] = true
	h.markValue(v)
}

func (h *Heap) sweep() Stats {
	var s Stats
	for id, t := range h.tables {
		if !t.marked {
			h.releaseBlock(t.Block)
			delete(h.tables, id)
			s.TablesSwept++
		}
	}
	s.StringsSwept = h.Strings.Sweep()

	for _, id := range h.Foreign.ObjectIDs() {
		if !h.markedObjs[id] {
			h.Foreign.ReleaseObject(id)
			s.ObjectsSwept++
		}
	}
	for _, id := range h.Foreign.FunctionIDs() {
		if !h.markedFns[id] {
			h.Foreign.ReleaseFunction(id)
		}
	}
	for _, id := range h.Functions.IDs() {
		if !h.markedFuncs[id] {
			fe, _ := h.Functions.Get(id)
			h.SweptFunctionRanges = append(h.SweptFunctionRanges, [2]int{fe.StartAddress, fe.StartAddress + fe.Length})
			h.Functions.Release(id)
			s.FunctionsSwept++
		}
	}
	for _, id := range h.Constants.IDs() {
		if !h.markedConsts[id] {
			h.Constants.Release(id)
			s.ConstantsSwept++
		}
	}
	return s
}

// compactHeap sorts surviving tables by block start, repacks them
// leftward contiguously, trims each table's capacity down to its live
// count, truncates the heap to the new high-water mark, and clears the
// free list -- spec.md §4.4's "Compact heap" step.
func (h *Heap) compactHeap() {
	ids := h.LiveTableIDs()
	sort.Slice(ids, func(i, j int) bool {
		return h.tables[ids[i]].Block.Start < h.tables[ids[j]].Block.Start
	})

	newValues := make([]value.Value, 0, len(h.values))
	for _, id := range ids {
		t := h.tables[id]
		newStart := len(newValues)
		for slot := 0; slot < t.Count; slot++ {
			newValues = append(newValues, h.values[t.Block.Start+slot])
		}
		t.Block = Block{Start: newStart, Capacity: t.Count}
	}
	h.values = newValues
	h.free = make(map[int][]int)
}

// SweptFunctionRanges and the marked-bookkeeping maps live here rather
// than as locals so sweep() and markValue() share state across a single
// Collect call; they are reset at the top of every cycle.
