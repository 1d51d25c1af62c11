package vm

import (
	"fmt"

	"hulascript/internal/foreign"
	"hulascript/internal/value"
)

// vmHost implements foreign.Host against a *VM, the surface a foreign
// object/function call is handed back into the running script so it can
// manipulate tables, invoke script values, and construct strings without
// reaching into the heap or VM internals directly.
type vmHost struct{ vm *VM }

func (vm *VM) host() foreign.Host { return vmHost{vm: vm} }

func (h vmHost) TableSize(id uint32) (int, error) {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return 0, fmt.Errorf("foreign: no such table %d", id)
	}
	return t.Count, nil
}

func (h vmHost) TableIsArray(id uint32) (bool, error) {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return false, fmt.Errorf("foreign: no such table %d", id)
	}
	return t.IsArrayIterate(), nil
}

func (h vmHost) TableAtIndex(id uint32, index int) (value.Value, error) {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return value.Value{}, fmt.Errorf("foreign: no such table %d", id)
	}
	if index < 0 || index >= t.Count {
		return value.Value{}, fmt.Errorf("foreign: index %d out of range (length %d)", index, t.Count)
	}
	return h.vm.Heap.Get(t.Block.Start + index), nil
}

func (h vmHost) TableSwapIndex(id uint32, i, j int) error {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return fmt.Errorf("foreign: no such table %d", id)
	}
	if i < 0 || i >= t.Count || j < 0 || j >= t.Count {
		return fmt.Errorf("foreign: swap index out of range (length %d)", t.Count)
	}
	a, b := t.Block.Start+i, t.Block.Start+j
	va, vb := h.vm.Heap.Get(a), h.vm.Heap.Get(b)
	h.vm.Heap.Set(a, vb)
	h.vm.Heap.Set(b, va)
	return nil
}

func (h vmHost) TableReserve(id uint32, capacity int) error {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return fmt.Errorf("foreign: no such table %d", id)
	}
	if capacity <= t.Block.Capacity {
		return nil
	}
	return h.vm.Heap.ReallocateTable(id, capacity, true, h.vm.collect)
}

func (h vmHost) TableAppend(id uint32, v value.Value) error {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return fmt.Errorf("foreign: no such table %d", id)
	}
	if t.Count >= t.Block.Capacity {
		if err := h.vm.Heap.GrowForAppend(id, true, h.vm.collect); err != nil {
			return err
		}
	}
	h.vm.Heap.Set(t.Block.Start+t.Count, v)
	t.Count++
	return nil
}

func (h vmHost) TableGet(id uint32, key value.Value) (value.Value, bool, error) {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return value.Value{}, false, fmt.Errorf("foreign: no such table %d", id)
	}
	hh := keyHash(key)
	if slot, ok := t.KeyHashes[hh]; ok {
		return h.vm.Heap.Get(t.Block.Start + slot), true, nil
	}
	return value.Value{}, false, nil
}

func (h vmHost) TableEmplace(id uint32, key value.Value, v value.Value) error {
	t, ok := h.vm.Heap.Table(id)
	if !ok {
		return fmt.Errorf("foreign: no such table %d", id)
	}
	hh := keyHash(key)
	if slot, ok := t.KeyHashes[hh]; ok {
		h.vm.Heap.Set(t.Block.Start+slot, v)
		return nil
	}
	if t.IsFinal() {
		return fmt.Errorf("foreign: cannot add key %q to a final table", keyName(key))
	}
	if t.Count >= t.Block.Capacity {
		if err := h.vm.Heap.GrowForAppend(id, true, h.vm.collect); err != nil {
			return err
		}
	}
	slot := t.Count
	t.Count++
	t.KeyHashes[hh] = slot
	h.vm.Heap.Set(t.Block.Start+slot, v)
	return nil
}

// TempGCProtect/TempGCUnprotect let foreign code hold a value alive across
// a call that might itself trigger a collection (building up a table
// entry by entry, say) without that value living on the eval stack.
func (h vmHost) TempGCProtect(v value.Value) {
	h.vm.tempExempt = append(h.vm.tempExempt, v)
}

func (h vmHost) TempGCUnprotect(v value.Value) {
	for i := len(h.vm.tempExempt) - 1; i >= 0; i-- {
		if h.vm.tempExempt[i] == v {
			h.vm.tempExempt = append(h.vm.tempExempt[:i], h.vm.tempExempt[i+1:]...)
			return
		}
	}
}

// MakeTable and MakeArray allocate directly through the heap, the same
// allocate-empty-then-fill sequence the compiler emits for `{...}` and
// `[...]` literals (see compiler/expr.go's tableLiteral/arrayLiteral).
func (h vmHost) MakeTable(pairs map[string]value.Value, final bool) value.Value {
	t := h.vm.Heap.AllocateTable(len(pairs), 0, true, h.vm.collect)
	for k, v := range pairs {
		slot := t.Count
		t.Count++
		t.KeyHashes[value.Djb2(k)] = slot
		h.vm.Heap.Set(t.Block.Start+slot, v)
	}
	if final {
		t.Flags |= value.TableIsFinal
	}
	return value.TableValue(t.ID, t.Flags)
}

func (h vmHost) MakeArray(elems []value.Value, final bool) value.Value {
	t := h.vm.Heap.AllocateTable(len(elems), value.TableArrayIterate, true, h.vm.collect)
	for i, v := range elems {
		h.vm.Heap.Set(t.Block.Start+i, v)
	}
	t.Count = len(elems)
	if final {
		t.Flags |= value.TableIsFinal
	}
	return value.TableValue(t.ID, t.Flags)
}

func (h vmHost) NewForeignObject(o foreign.Object) value.Value {
	id := h.vm.Foreign.AddObject(o)
	return value.ForeignObjectValue(id)
}

func (h vmHost) Invoke(callee value.Value, args []value.Value) (value.Value, error) {
	return h.vm.invokeValue(callee, args)
}

func (h vmHost) Panic(msg string) error {
	return h.vm.newRuntimeError(h.vm.curIPHint(), msg)
}

func (h vmHost) MakeString(s string) value.Value {
	return value.StringValue(h.vm.Strings.Intern(s))
}

func (h vmHost) PrintString(v value.Value) string {
	return h.vm.printString(v)
}
