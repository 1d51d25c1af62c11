// Package foreign defines the capability interface host-provided values
// implement to appear inside HulaScript: foreign objects, foreign
// functions, and the table-helper surface foreign code uses to manipulate
// script tables without reaching into the heap directly. Grounded on the
// teacher's NativeFunction/module-registration pattern
// (internal/vm/vm.go's RegisterWebSocketFunctions and the *_funcs.go
// stdlib registration files), generalized from a flat native-function map
// to the spec's capability-interface object.
package foreign

import "hulascript/internal/value"

// Object is any host type a script can hold a FOREIGN_OBJECT value for.
// Embed Base to get sensible "unsupported" defaults for the operator
// methods most foreign objects never need.
type Object interface {
	LoadProperty(nameHash uint64) (value.Value, bool)
	CallMethod(methodID uint32, args []value.Value, host Host) (value.Value, error)

	Add(other value.Value) (value.Value, error)
	Subtract(other value.Value) (value.Value, error)
	Multiply(other value.Value) (value.Value, error)
	Divide(other value.Value) (value.Value, error)
	Modulo(other value.Value) (value.Value, error)
	Exponentiate(other value.Value) (value.Value, error)

	// Trace reports every Value this object holds onto, so the GC can mark
	// through it (tables captured in closures, other foreign objects, etc).
	Trace(mark func(value.Value))

	ToString() string
}

// MethodTable maps a foreign object type's method names to stable ids,
// looked up by name hash when a property is loaded (see Resolve), so the
// VM dispatches CallMethod by integer, not by string.
type MethodTable map[string]uint32

func (t MethodTable) ID(name string) (uint32, bool) {
	id, ok := t[name]
	return id, ok
}

// Resolve answers LoadProperty(nameHash) for a foreign object whose only
// properties are its own methods: it finds the method whose name hashes
// to nameHash (the djb2 hash LOAD_TABLE already computed for the
// property key) and returns the FOREIGN_OBJECT_METHOD value script code
// calls as obj.method(...).
func (t MethodTable) Resolve(objID uint32, nameHash uint64) (value.Value, bool) {
	for name, id := range t {
		if value.Djb2(name) == nameHash {
			return value.ForeignObjectMethodValue(objID, id), true
		}
	}
	return value.Value{}, false
}

// Base gives foreign objects a default "operator undefined" implementation
// of the arithmetic capability set and a no-op Trace, so a foreign object
// with no captured values and no operator overloads only has to implement
// LoadProperty/CallMethod/ToString.
type Base struct{ TypeName string }

func unsupported(op, typ string) error {
	return &OperatorError{Op: op, Type: typ}
}

type OperatorError struct {
	Op   string
	Type string
}

func (e *OperatorError) Error() string {
	return "operator " + e.Op + " is not defined on foreign object " + e.Type
}

func (b Base) Add(value.Value) (value.Value, error)          { return value.Value{}, unsupported("+", b.TypeName) }
func (b Base) Subtract(value.Value) (value.Value, error)      { return value.Value{}, unsupported("-", b.TypeName) }
func (b Base) Multiply(value.Value) (value.Value, error)      { return value.Value{}, unsupported("*", b.TypeName) }
func (b Base) Divide(value.Value) (value.Value, error)        { return value.Value{}, unsupported("/", b.TypeName) }
func (b Base) Modulo(value.Value) (value.Value, error)        { return value.Value{}, unsupported("%", b.TypeName) }
func (b Base) Exponentiate(value.Value) (value.Value, error)  { return value.Value{}, unsupported("^", b.TypeName) }
func (b Base) Trace(func(value.Value))                        {}

// Function is a host closure exposed as a FOREIGN_FUNCTION value.
type Function func(args []value.Value, host Host) (value.Value, error)

// Host is the surface a foreign object/function call is given back into
// the running instance: the table-helper operations of spec.md §4.5, plus
// invocation, panics, and string construction.
type Host interface {
	// Table helper
	TableSize(id uint32) (int, error)
	TableIsArray(id uint32) (bool, error)
	TableAtIndex(id uint32, index int) (value.Value, error)
	TableSwapIndex(id uint32, i, j int) error
	TableReserve(id uint32, capacity int) error
	TableAppend(id uint32, v value.Value) error
	TableGet(id uint32, key value.Value) (value.Value, bool, error)
	TableEmplace(id uint32, key value.Value, v value.Value) error
	TempGCProtect(v value.Value)
	TempGCUnprotect(v value.Value)

	// MakeTable/MakeArray allocate a fresh table from scratch, for foreign
	// code (a database row, a parsed JSON document) that needs to hand
	// script code a structured result without going through the compiler.
	MakeTable(pairs map[string]value.Value, final bool) value.Value
	MakeArray(elems []value.Value, final bool) value.Value

	Invoke(callee value.Value, args []value.Value) (value.Value, error)
	Panic(msg string) error
	MakeString(s string) value.Value
	PrintString(v value.Value) string

	// NewForeignObject registers a freshly constructed foreign object (a
	// matrix method returning its transpose, a cursor from a query) and
	// returns the FOREIGN_OBJECT value script code holds for it.
	NewForeignObject(o Object) value.Value
}
