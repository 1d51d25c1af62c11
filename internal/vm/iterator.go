package vm

import "hulascript/internal/value"

// iterState is the mutable iteration position for one `for x in E` loop.
// It lives VM-side, keyed off a synthetic id carried in the pushed
// value's DataID field, rather than inside the Value itself -- Value
// stays a small copyable handle and the iterators map is the only place
// that owns mutable state, mirroring how Table itself separates the
// handle (Value{Tag:Table}) from its storage (heap.Table).
type iterState struct {
	tableID uint32
	idx     int
}

// newIterator implements LOAD_ITERATOR: only array-flagged tables can be
// iterated (spec.md's for-loop only walks array-style tables; a foreign
// object wanting iteration support exposes it as its own method instead).
func (vm *VM) newIterator(ip int, target value.Value) value.Value {
	if target.Tag != value.Table {
		vm.panicf(ip, "cannot iterate a value of type %s", target.TypeName())
	}
	t, ok := vm.Heap.Table(target.DataID)
	if !ok {
		vm.panicf(ip, "dangling table reference")
	}
	if !t.IsArrayIterate() {
		vm.panicf(ip, "cannot iterate a non-array table")
	}
	id := vm.nextIterID
	vm.nextIterID++
	vm.iterators[id] = &iterState{tableID: target.DataID}
	return value.Value{Tag: value.InternalTableGetIterator, DataID: id}
}

func (vm *VM) iterLookup(ip int, it value.Value) *iterState {
	if it.Tag != value.InternalTableGetIterator {
		vm.panicf(ip, "not an iterator")
	}
	st, ok := vm.iterators[it.DataID]
	if !ok {
		vm.panicf(ip, "dangling iterator reference")
	}
	return st
}

// iterHasNext also frees the iterator's VM-side state once exhausted,
// since nothing else ever reclaims an entry from vm.iterators.
func (vm *VM) iterHasNext(ip int, it value.Value) bool {
	st := vm.iterLookup(ip, it)
	t, ok := vm.Heap.Table(st.tableID)
	if !ok {
		vm.panicf(ip, "dangling table reference")
	}
	if st.idx >= t.Count {
		delete(vm.iterators, it.DataID)
		return false
	}
	return true
}

func (vm *VM) iterNext(ip int, it value.Value) value.Value {
	st := vm.iterLookup(ip, it)
	t, ok := vm.Heap.Table(st.tableID)
	if !ok {
		vm.panicf(ip, "dangling table reference")
	}
	if st.idx >= t.Count {
		vm.panicf(ip, "iterator exhausted")
	}
	v := vm.Heap.Get(t.Block.Start + st.idx)
	st.idx++
	return v
}
