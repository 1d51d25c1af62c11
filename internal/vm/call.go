package vm

import (
	"hulascript/internal/bytecode"
	"hulascript/internal/value"
)

// call pops the callee and its args off the eval stack and either enters
// a script function (pushing a new frame and jumping into its body) or
// invokes a foreign function/method in place, returning the ip to resume
// at (next for a foreign call, the callee's start address for a script
// call).
func (vm *VM) call(ip int, argc int) int {
	args := make([]value.Value, argc)
	copy(args, vm.evalStack[len(vm.evalStack)-argc:])
	vm.evalStack = vm.evalStack[:len(vm.evalStack)-argc]
	callee := vm.pop()

	switch callee.Tag {
	case value.Closure:
		return vm.enterClosure(ip, callee, args)
	case value.ForeignFunction:
		fn, ok := vm.Foreign.Function(callee.FuncID)
		if !ok {
			vm.panicf(ip, "dangling foreign function reference")
		}
		result, err := fn(args, vm.host())
		if err != nil {
			vm.panicf(ip, "%s", err.Error())
		}
		vm.push(result)
		return ip + 2
	case value.ForeignObjectMethod:
		obj, ok := vm.Foreign.Object(callee.DataID)
		if !ok {
			vm.panicf(ip, "dangling foreign object reference")
		}
		result, err := obj.CallMethod(callee.MethodID, args, vm.host())
		if err != nil {
			vm.panicf(ip, "%s", err.Error())
		}
		vm.push(result)
		return ip + 2
	default:
		vm.panicf(ip, "cannot call a value of type %s", callee.TypeName())
		return 0
	}
}

// callLabel invokes a function directly by id, with no intervening
// CLOSURE value -- used for direct class-constructor-style calls. Since
// the current compiler never emits CALL_LABEL (super-calls fall out of
// LOAD_TABLE's parent-chain-chasing instead), this path exists for
// completeness and for any foreign-embedder code that constructs calls by
// function id directly.
func (vm *VM) callLabel(ip int, id bytecode.FuncID) int {
	fe, ok := vm.Functions.Get(id)
	if !ok {
		vm.panicf(ip, "call to undeclared function %d", id)
	}
	argc := fe.ParameterCount
	args := make([]value.Value, argc)
	copy(args, vm.evalStack[len(vm.evalStack)-argc:])
	vm.evalStack = vm.evalStack[:len(vm.evalStack)-argc]
	return vm.enterFunction(ip+4, fe, args, 0, false)
}

// enterClosure resolves a CLOSURE value's function entry and enters it,
// binding its capture table (if any) at local slot 0 ahead of its
// declared parameters.
func (vm *VM) enterClosure(ip int, callee value.Value, args []value.Value) int {
	fe, ok := vm.Functions.Get(bytecode.FuncID(callee.FuncID))
	if !ok {
		vm.panicf(ip, "call to undeclared function %d", callee.FuncID)
	}
	return vm.enterFunction(ip+2, fe, args, callee.DataID, callee.HasFlag(value.HasCaptureTable))
}

func (vm *VM) enterFunction(returnIP int, fe *bytecode.FunctionEntry, args []value.Value, captureTableID uint32, hasCapture bool) int {
	if len(args) != fe.ParameterCount {
		vm.panicf(returnIP, "%s expects %d argument(s), got %d", fe.Name, fe.ParameterCount, len(args))
	}
	base := len(vm.locals)
	if hasCapture {
		vm.locals = append(vm.locals, value.TableValue(captureTableID, 0))
	}
	vm.locals = append(vm.locals, args...)
	vm.frames = append(vm.frames, frame{returnIP: returnIP, localBase: base, funcName: fe.Name})
	return fe.StartAddress
}
