// Package heap implements HulaScript's value heap: a single contiguous
// sequence of values divided into per-table blocks, the table registry,
// and the mark-and-sweep/compact garbage collector that prunes
// unreferenced tables, strings, foreign objects, foreign functions,
// constants, and functions. The teacher has no tracing GC of its own
// (internal/memory is a process-forensics module, unrelated); this
// package is new code grounded directly on spec.md §3/§4.4, following the
// teacher's preference for explicit structs over interface-heavy data
// modeling (see bytecode.Chunk).
package heap

import "hulascript/internal/value"

// Block is a half-open range [Start, Start+Capacity) within the heap that
// a single table owns.
type Block struct {
	Start    int
	Capacity int
}

func (b Block) End() int { return b.Start + b.Capacity }

// Table is {block, count, key_hashes} per spec.md §3: elements live at
// heap[block.Start+slot]; Count is the insertion-order watermark so
// array-style iteration yields the first Count slots in order.
type Table struct {
	ID        uint32
	Block     Block
	Count     int
	KeyHashes map[uint64]int // hash -> slot index, slot < Count
	Flags     uint32

	// Parent is the base-class table id for a table allocated via
	// ALLOCATE_INHERITED_CLASS; only meaningful when HasParent is set.
	// LOAD_TABLE chases it on a miss when TableInheritsParent is set.
	Parent    uint32
	HasParent bool

	marked bool
}

func (t *Table) IsFinal() bool        { return t.Flags&value.TableIsFinal != 0 }
func (t *Table) InheritsParent() bool { return t.Flags&value.TableInheritsParent != 0 }
func (t *Table) IsArrayIterate() bool { return t.Flags&value.TableArrayIterate != 0 }
