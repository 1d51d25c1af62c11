package vm

import (
	"fmt"

	"hulascript/internal/bytecode"
	"hulascript/internal/value"
)

// invokeValue is the implementation behind foreign.Host.Invoke: it lets
// foreign code call back into a script value (a callback passed to a
// database query, a comparator passed to a sort helper, ...) without
// going through the CALL opcode, since the args already live in a Go
// slice rather than on the eval stack. A script closure re-enters the
// dispatch loop via runUntil and shares frames/evalStack/locals with
// whatever call is already in flight; a foreign function/method just
// calls straight through.
func (vm *VM) invokeValue(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee.Tag {
	case value.Closure:
		fe, ok := vm.Functions.Get(bytecode.FuncID(callee.FuncID))
		if !ok {
			return value.Value{}, fmt.Errorf("invoke: dangling function reference %d", callee.FuncID)
		}
		if len(args) != fe.ParameterCount {
			return value.Value{}, fmt.Errorf("invoke: %s expects %d argument(s), got %d", fe.Name, fe.ParameterCount, len(args))
		}
		base := len(vm.locals)
		if callee.HasFlag(value.HasCaptureTable) {
			vm.locals = append(vm.locals, value.TableValue(callee.DataID, 0))
		}
		vm.locals = append(vm.locals, args...)
		targetDepth := len(vm.frames)
		vm.frames = append(vm.frames, frame{localBase: base, funcName: fe.Name})
		return vm.runUntil(fe.StartAddress, targetDepth)
	case value.ForeignFunction:
		fn, ok := vm.Foreign.Function(callee.FuncID)
		if !ok {
			return value.Value{}, fmt.Errorf("invoke: dangling foreign function reference")
		}
		return fn(args, vm.host())
	case value.ForeignObjectMethod:
		obj, ok := vm.Foreign.Object(callee.DataID)
		if !ok {
			return value.Value{}, fmt.Errorf("invoke: dangling foreign object reference")
		}
		return obj.CallMethod(callee.MethodID, args, vm.host())
	default:
		return value.Value{}, fmt.Errorf("invoke: cannot call a value of type %s", callee.TypeName())
	}
}

// printString renders a value the way the `print`/`to_string` builtins
// do: strings print bare, tables/arrays recurse through their live slots
// (cycle-guarded by a visited set), and foreign objects defer to their
// own ToString.
func (vm *VM) printString(v value.Value) string {
	return vm.printStringVisit(v, make(map[uint32]bool))
}

func (vm *VM) printStringVisit(v value.Value, visited map[uint32]bool) string {
	switch v.Tag {
	case value.Nil:
		return "nil"
	case value.Boolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case value.Number:
		return formatNumber(v.Num)
	case value.String:
		if v.Str != nil {
			return v.Str.Data
		}
		return ""
	case value.Table:
		if visited[v.DataID] {
			return "<cycle>"
		}
		visited[v.DataID] = true
		t, ok := vm.Heap.Table(v.DataID)
		if !ok {
			return "<dangling table>"
		}
		isArray := t.IsArrayIterate()
		s := "{"
		if isArray {
			s = "["
		}
		for i := 0; i < t.Count; i++ {
			if i > 0 {
				s += ", "
			}
			s += vm.printStringVisit(vm.Heap.Get(t.Block.Start+i), visited)
		}
		if isArray {
			return s + "]"
		}
		return s + "}"
	case value.Closure, value.ForeignFunction:
		return "<function>"
	case value.ForeignObject, value.ForeignObjectMethod:
		if obj, ok := vm.Foreign.Object(v.DataID); ok {
			return obj.ToString()
		}
		return "<foreign object>"
	default:
		return "<" + v.TypeName() + ">"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
