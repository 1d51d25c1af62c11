// Package value implements HulaScript's runtime value model: a small
// discriminated union plus the interned string pool that backs every
// script-visible string.
package value

import "fmt"

// Tag discriminates the payload carried by a Value.
type Tag byte

const (
	Nil Tag = iota
	Number
	Boolean
	String
	Table
	Closure
	ForeignObject
	ForeignObjectMethod
	ForeignFunction
	InternalStrHash
	InternalTableGetIterator
)

func (t Tag) String() string {
	switch t {
	case Nil:
		return "nil"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	case Table:
		return "table"
	case Closure:
		return "closure"
	case ForeignObject:
		return "foreign_object"
	case ForeignObjectMethod:
		return "foreign_object_method"
	case ForeignFunction:
		return "foreign_function"
	case InternalStrHash:
		return "internal_strhash"
	case InternalTableGetIterator:
		return "internal_table_get_iterator"
	default:
		return "unknown"
	}
}

// Flag bits carried alongside TABLE and CLOSURE payloads.
const (
	HasCaptureTable      uint32 = 1 << iota // closure carries a capture table by id
	TableIsFinal                            // reject new-key writes
	TableInheritsParent                     // fall back to table "base" on lookup miss
	TableArrayIterate                       // iteration yields elements 0..count-1 in order
)

// Value is a 16-byte-logical tagged union. Rather than pack every payload
// into a fixed byte width (the source language's representation, see
// spec.md's design notes), each payload gets its own named field -- the
// discriminant in Tag says which fields are meaningful.
type Value struct {
	Tag Tag

	Num  float64 // NUMBER
	Bool bool    // BOOLEAN
	Str  *Interned

	// DataID is the TABLE id, the CLOSURE capture-table id (when
	// HasCaptureTable is set in Flags), or the FOREIGN_OBJECT /
	// FOREIGN_OBJECT_METHOD object id.
	DataID uint32
	// FuncID is the function-registry id for CLOSURE and FOREIGN_FUNCTION.
	FuncID uint32
	// MethodID is the method selector for FOREIGN_OBJECT_METHOD.
	MethodID uint32
	// Flags holds HasCaptureTable/TableIsFinal/TableInheritsParent/TableArrayIterate.
	Flags uint32

	// Hash carries the INTERNAL_STRHASH payload: a precomputed string hash
	// used as a table lookup key without re-hashing at each use.
	Hash uint64
}

func NilValue() Value { return Value{Tag: Nil} }

func NumberValue(n float64) Value { return Value{Tag: Number, Num: n} }

func BoolValue(b bool) Value { return Value{Tag: Boolean, Bool: b} }

func StringValue(s *Interned) Value { return Value{Tag: String, Str: s} }

func TableValue(id uint32, flags uint32) Value {
	return Value{Tag: Table, DataID: id, Flags: flags}
}

func ClosureValue(funcID uint32, captureTableID uint32, hasCapture bool) Value {
	v := Value{Tag: Closure, FuncID: funcID}
	if hasCapture {
		v.Flags |= HasCaptureTable
		v.DataID = captureTableID
	}
	return v
}

func ForeignObjectValue(id uint32) Value {
	return Value{Tag: ForeignObject, DataID: id}
}

func ForeignObjectMethodValue(objID, methodID uint32) Value {
	return Value{Tag: ForeignObjectMethod, DataID: objID, MethodID: methodID}
}

func ForeignFunctionValue(id uint32) Value {
	return Value{Tag: ForeignFunction, FuncID: id}
}

func StrHashValue(h uint64) Value {
	return Value{Tag: InternalStrHash, Hash: h}
}

func TableIteratorValue() Value {
	return Value{Tag: InternalTableGetIterator}
}

// IsNil reports whether v is NIL. It is a tag check only: boolean false
// is not nil (truthiness is evaluated by Truthy).
func (v Value) IsNil() bool { return v.Tag == Nil }

// Truthy implements HulaScript's truthiness rule: only NIL and boolean
// false are falsy; every other value, including the number 0, is truthy.
func (v Value) Truthy() bool {
	switch v.Tag {
	case Nil:
		return false
	case Boolean:
		return v.Bool
	default:
		return true
	}
}

func (v Value) HasFlag(flag uint32) bool { return v.Flags&flag != 0 }

// TypeName reports the script-visible type name used in error messages.
func (v Value) TypeName() string {
	switch v.Tag {
	case Table:
		if v.HasFlag(TableArrayIterate) {
			return "array"
		}
		return "table"
	case Closure, ForeignFunction:
		return "function"
	case ForeignObject, ForeignObjectMethod:
		return "foreign_object"
	default:
		return v.Tag.String()
	}
}

func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s}", v.Tag)
}
