package vm

import (
	"hulascript/internal/herrors"
	"hulascript/internal/value"
)

// InvokeValue is the instance layer's entry point for calling a script
// value from host code with no script call already in flight (unlike
// vmHost.Invoke, which runs nested inside a panic-recovering Run/runUntil
// call already on the stack). It wraps invokeValue with its own recover
// so a host-initiated call that panics (an out-of-range index, say)
// surfaces as an error rather than crashing the embedder.
func (vm *VM) InvokeValue(callee value.Value, args []value.Value) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*herrors.RuntimeError); ok {
				err = re
				return
			}
			panic(r)
		}
	}()
	return vm.invokeValue(callee, args)
}

// LoadNamedProperty looks up name on obj the way `.name` does from script,
// for host code driving invoke_method against a table or foreign object.
func (vm *VM) LoadNamedProperty(obj value.Value, name string) (result value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*herrors.RuntimeError); ok {
				err = re
				return
			}
			panic(r)
		}
	}()
	key := value.StringValue(vm.Strings.Intern(name))
	return vm.loadTable(0, obj, key), nil
}

// PrintString renders v the way script-level printing does, for host code
// implementing get_value_print_string.
func (vm *VM) PrintString(v value.Value) string {
	return vm.printString(v)
}

// Panic raises a runtime error the same way a script-level panic()
// builtin would, carrying the current call stack, for host code that
// wants to abort a foreign call mid-flight.
func (vm *VM) Panic(msg string) error {
	return vm.newRuntimeError(vm.curIPHint(), msg)
}

// EvalStackSnapshot and LocalsSnapshot expose the VM's live value slices
// as GC roots for the instance layer's error-path and between-statement
// collections; callers must treat the result as read-only.
func (vm *VM) EvalStackSnapshot() []value.Value { return vm.evalStack }
func (vm *VM) LocalsSnapshot() []value.Value    { return vm.locals }
