package bytecode

import "sort"

// CompactInstructions implements spec.md §4.4's optional "Compact
// instructions" step: sort surviving functions by start address, slide
// each one's instructions leftward to close the gaps left by functions
// GC swept, update each FunctionEntry.StartAddress, shift the
// SourceLocMap entries to match, and truncate the instruction vector.
//
// Every live function's code range must be disjoint and the union of
// live ranges need not cover the whole instruction stream -- any bytes
// outside a live function's range (a top-level REPL fragment that was
// never wrapped in a function entry, say) are dropped, matching the
// invariant that unreachable code has no root keeping it alive.
func CompactInstructions(chunk *Chunk, registry *FunctionRegistry) {
	ids := registry.IDs()
	sort.Slice(ids, func(i, j int) bool {
		fi, _ := registry.Get(ids[i])
		fj, _ := registry.Get(ids[j])
		return fi.StartAddress < fj.StartAddress
	})

	newCode := make([]byte, 0, len(chunk.Code))
	for _, id := range ids {
		fe, _ := registry.Get(id)
		oldStart := fe.StartAddress
		length := fe.Length
		newStart := len(newCode)
		newCode = append(newCode, chunk.Code[oldStart:oldStart+length]...)
		chunk.Locs.ShiftRange(oldStart, length, newStart)
		fe.StartAddress = newStart
	}
	chunk.Code = newCode
}
