// Package instance ties the compiler, VM, heap, and foreign registries
// together into the embedder API spec.md §6 describes: one struct a host
// program constructs once and calls run/declare_global/make_*/invoke_*
// against, mirroring the teacher's own embedding story (cmd/sentra builds
// one *vm.EnhancedVM and drives it) generalized to HulaScript's
// compile-then-run, GC-aware lifecycle.
package instance

import (
	"fmt"

	"hulascript/internal/bytecode"
	"hulascript/internal/compiler"
	"hulascript/internal/foreign"
	"hulascript/internal/heap"
	"hulascript/internal/herrors"
	"hulascript/internal/value"
	"hulascript/internal/vm"
)

// Instance is one running HulaScript program: its shared chunk, constant
// pool, function registry, string pool, foreign registry, heap, compiler,
// and VM. All of spec.md §6's embedder API hangs off this type.
type Instance struct {
	Chunk     *bytecode.Chunk
	Constants *bytecode.ConstantPool
	Functions *bytecode.FunctionRegistry
	Strings   *value.StringPool
	Foreign   *foreign.Registry
	Heap      *heap.Heap
	Compiler  *compiler.Compiler
	VM        *vm.VM

	pendingStartIP     int
	pendingGlobalsFrom int
	hasPending         bool
}

func New() *Instance {
	chunk := bytecode.NewChunk()
	consts := bytecode.NewConstantPool()
	funcs := bytecode.NewFunctionRegistry()
	strings := value.NewStringPool()
	fgn := foreign.NewRegistry()
	h := heap.New(strings, funcs, consts, fgn)
	c := compiler.New(chunk, consts, funcs, strings)
	machine := vm.New(chunk, consts, funcs, h, strings, fgn)

	return &Instance{
		Chunk:     chunk,
		Constants: consts,
		Functions: funcs,
		Strings:   strings,
		Foreign:   fgn,
		Heap:      h,
		Compiler:  c,
		VM:        machine,
	}
}

// RunResult is the tri-state spec.md's `run` returns: either a value, a
// set of non-fatal warnings awaiting acknowledgment (call RunLoaded to
// proceed), or neither (an empty/no-op top-level statement).
type RunResult struct {
	Value    value.Value
	HasValue bool
	Warnings []herrors.Warning
}

// Run compiles source and, unless it produced warnings the host hasn't
// acknowledged, executes it immediately. ignoreWarnings runs through
// warnings without stopping for acknowledgment, matching the flag in
// spec.md §6.
func (in *Instance) Run(source, fileName string, ignoreWarnings bool) (RunResult, error) {
	globalsBefore := in.Compiler.GlobalCount()

	startIP, err := in.Compiler.CompileTopLevel(source, fileName)
	if err != nil {
		in.Compiler.RollbackGlobalsTo(globalsBefore)
		in.gcOnError()
		return RunResult{}, err
	}
	in.growGlobals()

	if len(in.Compiler.Warnings) > 0 && !ignoreWarnings {
		in.pendingStartIP = startIP
		in.pendingGlobalsFrom = globalsBefore
		in.hasPending = true
		return RunResult{Warnings: in.Compiler.Warnings}, nil
	}
	return in.execute(startIP, globalsBefore)
}

// RunLoaded executes instructions compiled by a prior Run call whose
// warnings the host has now acknowledged.
func (in *Instance) RunLoaded() (RunResult, error) {
	if !in.hasPending {
		return RunResult{}, fmt.Errorf("instance: no pending compiled statement")
	}
	in.hasPending = false
	return in.execute(in.pendingStartIP, in.pendingGlobalsFrom)
}

// execute runs a compiled top-level statement, and on an uncaught
// runtime error rolls back globals introduced by that statement beyond
// globalsBefore (spec.md §7's host-boundary recovery policy) in addition
// to Run's own frame/locals/evalStack unwind.
func (in *Instance) execute(startIP, globalsBefore int) (RunResult, error) {
	v, err := in.VM.Run(startIP)
	if err != nil {
		in.Compiler.RollbackGlobalsTo(globalsBefore)
		in.VM.Globals = in.VM.Globals[:globalsBefore]
		in.gcOnError()
		return RunResult{}, err
	}
	if v.IsNil() {
		return RunResult{}, nil
	}
	return RunResult{Value: v, HasValue: true}, nil
}

// gcOnError runs GC unconditionally on any error path (spec.md §7) to
// release work-in-progress allocations from the aborted statement.
func (in *Instance) gcOnError() {
	in.Heap.Collect(heap.Roots{
		EvalStack:     in.VM.EvalStackSnapshot(),
		Locals:        in.VM.LocalsSnapshot(),
		Globals:       in.VM.Globals,
		ReplConstants: in.Compiler.ReplUsedConstants,
		ReplFunctions: in.Compiler.ReplUsedFunctions,
	})
}

// growGlobals extends VM.Globals up to the compiler's declared count,
// since DECL_TOPLVL_LOCAL only grows the slice lazily as it executes.
func (in *Instance) growGlobals() {
	for len(in.VM.Globals) < in.Compiler.GlobalCount() {
		in.VM.Globals = append(in.VM.Globals, value.NilValue())
	}
}

// DeclareGlobal implements spec.md's declare_global, pre-seeding a global
// before any script code runs (e.g. binding a host API object). It
// reports false rather than silently truncating once the 256-global cap
// is reached -- spec.md §9 flags the original's missing success signal
// as a bug; this resolves it with an explicit bool. Redeclaring a name
// that is already bound reports true and leaves its current value as is.
func (in *Instance) DeclareGlobal(name string, v value.Value) bool {
	before := in.Compiler.GlobalCount()
	if !in.Compiler.DeclareGlobalDirect(name) {
		return false
	}
	if in.Compiler.GlobalCount() == before {
		return true
	}
	in.growGlobals()
	in.VM.Globals[before] = v
	return true
}

func (in *Instance) MakeForeignFunction(f foreign.Function) value.Value {
	id := in.Foreign.AddFunction(f)
	return value.ForeignFunctionValue(id)
}

func (in *Instance) AddForeignObject(o foreign.Object) value.Value {
	id := in.Foreign.AddObject(o)
	return value.ForeignObjectValue(id)
}

func (in *Instance) MakeString(s string) value.Value {
	return value.StringValue(in.Strings.Intern(s))
}

// MakeTableObj builds a final (sealed) or growable table from key/value
// pairs, per spec.md's make_table_obj(pairs, final?).
func (in *Instance) MakeTableObj(pairs map[string]value.Value, final bool) value.Value {
	t := in.Heap.AllocateTable(len(pairs), 0, false, nil)
	for k, v := range pairs {
		h := value.Djb2(k)
		slot := t.Count
		t.Count++
		t.KeyHashes[h] = slot
		in.Heap.Set(t.Block.Start+slot, v)
	}
	if final {
		t.Flags |= value.TableIsFinal
	}
	return value.TableValue(t.ID, t.Flags)
}

// MakeArray builds an array-flagged table from elems in order, per
// spec.md's make_array(elems, final?) -- final here governs whether the
// array additionally rejects becoming a non-array hash table, matching
// TableIsFinal's ordinary "reject new keys" meaning applied to index 0..n.
func (in *Instance) MakeArray(elems []value.Value, final bool) value.Value {
	t := in.Heap.AllocateTable(len(elems), value.TableArrayIterate, false, nil)
	for i, v := range elems {
		in.Heap.Set(t.Block.Start+i, v)
	}
	t.Count = len(elems)
	if final {
		t.Flags |= value.TableIsFinal
	}
	return value.TableValue(t.ID, t.Flags)
}

func (in *Instance) InvokeValue(callee value.Value, args []value.Value) (value.Value, error) {
	return in.VM.InvokeValue(callee, args)
}

// InvokeMethod loads a named property off obj and invokes it with args,
// the table/foreign-object analogue of `obj.name(args...)` called from
// host code rather than from script.
func (in *Instance) InvokeMethod(obj value.Value, name string, args []value.Value) (value.Value, error) {
	method, err := in.VM.LoadNamedProperty(obj, name)
	if err != nil {
		return value.Value{}, err
	}
	return in.VM.InvokeValue(method, args)
}

func (in *Instance) GetValuePrintString(v value.Value) string {
	return in.VM.PrintString(v)
}

// Panic raises a runtime error carrying the VM's current call stack, for
// host code that wants to abort a running foreign call the same way a
// script-level panic would (spec.md §6's panic(msg)).
func (in *Instance) Panic(msg string) error {
	return in.VM.Panic(msg)
}

// Collect runs a full GC pass, including REPL-used constants/functions
// as roots so a value referenced only by the most recent top-level
// statement survives for the next one.
func (in *Instance) Collect() heap.Stats {
	return in.Heap.Collect(heap.Roots{
		EvalStack:     in.VM.EvalStackSnapshot(),
		Locals:        in.VM.LocalsSnapshot(),
		Globals:       in.VM.Globals,
		ReplConstants: in.Compiler.ReplUsedConstants,
		ReplFunctions: in.Compiler.ReplUsedFunctions,
	})
}
