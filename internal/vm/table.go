package vm

import (
	"hulascript/internal/heap"
	"hulascript/internal/value"
)

const lengthKeyName = "@length"

// loadTable implements LOAD_TABLE: pop key, pop base, push value. base may
// be a script table, a foreign object (property lookup by name hash), or
// (for array-style tables) a number index. A miss on a TableInheritsParent
// table chases Table.Parent before reporting "no such key."
func (vm *VM) loadTable(ip int, base, key value.Value) value.Value {
	switch base.Tag {
	case value.Table:
		return vm.loadFromTable(ip, base.DataID, key)
	case value.ForeignObject:
		obj, ok := vm.Foreign.Object(base.DataID)
		if !ok {
			vm.panicf(ip, "dangling foreign object reference")
		}
		h := keyHash(key)
		if v, ok := obj.LoadProperty(h); ok {
			return v
		}
		vm.panicf(ip, "foreign object has no property %q", keyName(key))
		return value.Value{}
	default:
		vm.panicf(ip, "cannot index into a value of type %s", base.TypeName())
		return value.Value{}
	}
}

func (vm *VM) loadFromTable(ip int, tableID uint32, key value.Value) value.Value {
	t, ok := vm.Heap.Table(tableID)
	if !ok {
		vm.panicf(ip, "dangling table reference")
	}

	if key.Tag == value.String && key.Str != nil && key.Str.Data == lengthKeyName {
		return value.NumberValue(float64(t.Count))
	}

	if t.IsArrayIterate() && key.Tag == value.Number {
		idx := int(key.Num)
		if idx < 0 || idx >= t.Count {
			vm.panicf(ip, "array index %d out of range (length %d)", idx, t.Count)
		}
		return vm.Heap.Get(t.Block.Start + idx)
	}

	h := keyHash(key)
	if slot, ok := t.KeyHashes[h]; ok {
		return vm.Heap.Get(t.Block.Start + slot)
	}
	if t.InheritsParent() && t.HasParent {
		return vm.loadFromTable(ip, t.Parent, key)
	}
	vm.panicf(ip, "table has no key %q", keyName(key))
	return value.Value{}
}

// storeTable implements STORE_TABLE: pop value, pop key, pop base, write
// in place (push nothing -- the compiler never expects a value back).
// dotStore distinguishes `.name = v` (always a hash-keyed write; on a
// miss in a TableInheritsParent table, a key that already exists along
// the Parent chain is overwritten where it lives) from `[expr] = v`
// (array-index write when the table is array-flagged and the key is
// numeric, hash-keyed otherwise; never chases a parent).
func (vm *VM) storeTable(ip int, base, key, val value.Value, dotStore bool) {
	if base.Tag != value.Table {
		vm.panicf(ip, "cannot index into a value of type %s", base.TypeName())
	}
	t, ok := vm.Heap.Table(base.DataID)
	if !ok {
		vm.panicf(ip, "dangling table reference")
	}

	if t.IsArrayIterate() && !dotStore && key.Tag == value.Number {
		idx := int(key.Num)
		if idx < 0 || idx > t.Count {
			vm.panicf(ip, "array index %d out of range (length %d)", idx, t.Count)
		}
		if idx == t.Count {
			vm.growTable(t)
			t.Count++
		}
		vm.Heap.Set(t.Block.Start+idx, val)
		return
	}

	h := keyHash(key)
	if slot, ok := t.KeyHashes[h]; ok {
		vm.Heap.Set(t.Block.Start+slot, val)
		return
	}
	if dotStore {
		for cur := t; cur.InheritsParent() && cur.HasParent; {
			parent, ok := vm.Heap.Table(cur.Parent)
			if !ok {
				break
			}
			if slot, ok := parent.KeyHashes[h]; ok {
				vm.Heap.Set(parent.Block.Start+slot, val)
				return
			}
			cur = parent
		}
	}
	if t.IsFinal() {
		vm.panicf(ip, "cannot add key %q to a final table", keyName(key))
	}
	if t.Count >= t.Block.Capacity {
		vm.growTable(t)
	}
	slot := t.Count
	t.Count++
	t.KeyHashes[h] = slot
	vm.Heap.Set(t.Block.Start+slot, val)
}

func (vm *VM) growTable(t *heap.Table) {
	if err := vm.Heap.GrowForAppend(t.ID, true, vm.collect); err != nil {
		panic(vm.newRuntimeError(0, err.Error()))
	}
}

func keyHash(key value.Value) uint64 {
	if key.Tag == value.InternalStrHash {
		return key.Hash
	}
	return value.Hash(key)
}

func keyName(key value.Value) string {
	if key.Tag == value.String && key.Str != nil {
		return key.Str.Data
	}
	return key.TypeName()
}
