package vm

import (
	"math"

	"hulascript/internal/bytecode"
	"hulascript/internal/value"
)

// arith implements ADD/SUB/MUL/DIV/MOD/EXP. Numbers combine arithmetically;
// ADD on two strings concatenates (interning the result); ADD on an array
// table and anything appends; a foreign object as the left operand defers
// to its own operator method, while a foreign object only on the right is
// a type error like any other undefined pairing. Division and modulo by
// zero produce the
// IEEE-754 result (+Inf/-Inf/NaN) rather than panicking, matching plain
// double division the way the original's handle_numerical_divide does.
func (vm *VM) arith(ip int, op bytecode.Op, a, b value.Value) value.Value {
	if a.Tag == value.ForeignObject {
		return vm.foreignArith(ip, op, a, b)
	}
	if op == bytecode.OpAdd && a.Tag == value.String && b.Tag == value.String {
		return value.StringValue(vm.Strings.Intern(a.Str.Data + b.Str.Data))
	}
	if op == bytecode.OpAdd && a.Tag == value.Table {
		return vm.tableAppend(ip, a, b)
	}
	if a.Tag != value.Number || b.Tag != value.Number {
		vm.panicf(ip, "operator %s is not defined between %s and %s", op, a.TypeName(), b.TypeName())
	}
	switch op {
	case bytecode.OpAdd:
		return value.NumberValue(a.Num + b.Num)
	case bytecode.OpSub:
		return value.NumberValue(a.Num - b.Num)
	case bytecode.OpMul:
		return value.NumberValue(a.Num * b.Num)
	case bytecode.OpDiv:
		return value.NumberValue(a.Num / b.Num)
	case bytecode.OpMod:
		return value.NumberValue(math.Mod(a.Num, b.Num))
	case bytecode.OpExp:
		return value.NumberValue(math.Pow(a.Num, b.Num))
	default:
		vm.panicf(ip, "unreachable arithmetic opcode %s", op)
		return value.Value{}
	}
}

func (vm *VM) foreignArith(ip int, op bytecode.Op, a, b value.Value) value.Value {
	obj, ok := vm.Foreign.Object(a.DataID)
	if !ok {
		vm.panicf(ip, "dangling foreign object reference")
	}
	var result value.Value
	var err error
	switch op {
	case bytecode.OpAdd:
		result, err = obj.Add(b)
	case bytecode.OpSub:
		result, err = obj.Subtract(b)
	case bytecode.OpMul:
		result, err = obj.Multiply(b)
	case bytecode.OpDiv:
		result, err = obj.Divide(b)
	case bytecode.OpMod:
		result, err = obj.Modulo(b)
	case bytecode.OpExp:
		result, err = obj.Exponentiate(b)
	}
	if err != nil {
		vm.panicf(ip, "%s", err.Error())
	}
	return result
}

// tableAppend implements the "table + value appends" convention STORE's
// dedicated table-helper surface formalizes for foreign code
// (foreign.Host.TableAppend): `arr + x` on an array-flagged table grows a
// fresh copy with x appended, leaving the original untouched.
func (vm *VM) tableAppend(ip int, base, v value.Value) value.Value {
	t, ok := vm.Heap.Table(base.DataID)
	if !ok {
		vm.panicf(ip, "dangling table reference")
	}
	if !t.IsArrayIterate() {
		vm.panicf(ip, "operator + is not defined on a non-array table")
	}
	nt := vm.Heap.AllocateTable(t.Count+1, t.Flags, true, vm.collect)
	for i := 0; i < t.Count; i++ {
		vm.Heap.Set(nt.Block.Start+i, vm.Heap.Get(t.Block.Start+i))
	}
	vm.Heap.Set(nt.Block.Start+t.Count, v)
	nt.Count = t.Count + 1
	return value.TableValue(nt.ID, nt.Flags)
}

// compare implements LESS/GREATER/LESS_EQUAL/GREATER_EQUAL, defined only
// between two numbers or two strings (lexicographic).
func (vm *VM) compare(ip int, op bytecode.Op, a, b value.Value) value.Value {
	if a.Tag == value.Number && b.Tag == value.Number {
		return value.BoolValue(numCompare(op, a.Num < b.Num, a.Num > b.Num))
	}
	if a.Tag == value.String && b.Tag == value.String && a.Str != nil && b.Str != nil {
		return value.BoolValue(numCompare(op, a.Str.Data < b.Str.Data, a.Str.Data > b.Str.Data))
	}
	vm.panicf(ip, "operator %s is not defined between %s and %s", op, a.TypeName(), b.TypeName())
	return value.Value{}
}

func numCompare(op bytecode.Op, less, greater bool) bool {
	switch op {
	case bytecode.OpLess:
		return less
	case bytecode.OpGreater:
		return greater
	case bytecode.OpLessEqual:
		return less || !greater
	case bytecode.OpGreaterEqual:
		return greater || !less
	default:
		return false
	}
}
