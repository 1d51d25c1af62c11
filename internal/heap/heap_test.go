package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hulascript/internal/bytecode"
	"hulascript/internal/foreign"
	"hulascript/internal/heap"
	"hulascript/internal/value"
)

func newHeap() *heap.Heap {
	return heap.New(value.NewStringPool(), bytecode.NewFunctionRegistry(), bytecode.NewConstantPool(), foreign.NewRegistry())
}

func TestAllocateTableGrowsAndReads(t *testing.T) {
	h := newHeap()
	tbl := h.AllocateTable(2, 0, false, nil)
	h.Set(tbl.Block.Start, value.NumberValue(1))
	h.Set(tbl.Block.Start+1, value.NumberValue(2))
	tbl.Count = 2

	require.NoError(t, h.GrowForAppend(tbl.ID, false, nil))
	require.GreaterOrEqual(t, tbl.Block.Capacity, 4)
	require.Equal(t, value.NumberValue(1), h.Get(tbl.Block.Start))
	require.Equal(t, value.NumberValue(2), h.Get(tbl.Block.Start+1))
}

func TestCollectReclaimsUnreferencedTable(t *testing.T) {
	h := newHeap()
	kept := h.AllocateTable(1, 0, false, nil)
	h.AllocateTable(1, 0, false, nil) // orphaned: referenced by nothing

	stats := h.Collect(heap.Roots{Globals: []value.Value{value.TableValue(kept.ID, 0)}})
	require.Equal(t, 1, stats.TablesSwept)

	ids := h.LiveTableIDs()
	require.Equal(t, []uint32{kept.ID}, ids)
}

func TestCollectIdempotentWithNothingToReclaim(t *testing.T) {
	h := newHeap()
	tbl := h.AllocateTable(1, 0, false, nil)
	root := []value.Value{value.TableValue(tbl.ID, 0)}

	first := h.Collect(heap.Roots{Globals: root})
	second := h.Collect(heap.Roots{Globals: root})

	require.Equal(t, 0, first.TablesSwept)
	require.Equal(t, 0, second.TablesSwept)
	require.Equal(t, []uint32{tbl.ID}, h.LiveTableIDs())
}
