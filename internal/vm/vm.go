// Package vm implements HulaScript's bytecode interpreter: a
// fetch-decode-dispatch loop over the single flat instruction vector the
// compiler produces. Grounded on the teacher's internal/vm/vm.go
// EnhancedVM dispatch loop and EnhancedCallFrame (slotBase + separate
// locals storage per call), stripped of the teacher's large
// security-tooling surface (cloud/ml/blockchain/siem/... builtins are an
// explicit non-goal here) and regrounded on spec.md §4.3's operator
// dispatch table and call-frame model.
package vm

import (
	"fmt"

	"hulascript/internal/bytecode"
	"hulascript/internal/foreign"
	"hulascript/internal/heap"
	"hulascript/internal/herrors"
	"hulascript/internal/value"
)

// frame is one call's activation record: where to resume the caller and
// where this call's locals begin in the shared locals stack. Whether a
// given RETURN should stop the enclosing runUntil loop or resume the
// caller at returnIP is decided by comparing the frame-stack depth
// against that loop's targetDepth, not by a sentinel on the frame itself.
type frame struct {
	returnIP  int
	localBase int
	funcName  string
}

// VM owns the eval stack, the locals stack, and the call-frame stack for
// one run, plus references to every heap-adjacent registry it reads
// constants, functions, and foreign values from.
type VM struct {
	Chunk     *bytecode.Chunk
	Constants *bytecode.ConstantPool
	Functions *bytecode.FunctionRegistry
	Heap      *heap.Heap
	Strings   *value.StringPool
	Foreign   *foreign.Registry

	Globals []value.Value

	evalStack []value.Value
	locals    []value.Value
	frames    []frame

	tempExempt []value.Value

	iterators  map[uint32]*iterState
	nextIterID uint32

	// curIP tracks the instruction pointer currently executing, so a
	// runtime error raised indirectly (through a foreign function calling
	// back into host.Panic) still anchors to a real source location.
	curIP int

	// Allocation-triggered collection for the AllocateTable/ReallocateTable
	// calls the VM makes is governed by heap.Heap.SoftCapacity (zero, its
	// default, never triggers one); the VM holds no threshold of its own.
}

func New(chunk *bytecode.Chunk, consts *bytecode.ConstantPool, funcs *bytecode.FunctionRegistry, h *heap.Heap, strings *value.StringPool, fgn *foreign.Registry) *VM {
	return &VM{
		Chunk:     chunk,
		Constants: consts,
		Functions: funcs,
		Heap:      h,
		Strings:   strings,
		Foreign:   fgn,
		iterators: make(map[uint32]*iterState),
	}
}

func (vm *VM) push(v value.Value) { vm.evalStack = append(vm.evalStack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.evalStack)
	v := vm.evalStack[n-1]
	vm.evalStack = vm.evalStack[:n-1]
	return v
}

func (vm *VM) peek() value.Value { return vm.evalStack[len(vm.evalStack)-1] }

func (vm *VM) curFrame() *frame { return &vm.frames[len(vm.frames)-1] }

// Run executes starting at startIP in a fresh call frame and reports the
// value that frame eventually returns, converting any runtime panic into
// an error. This is the entry point the instance layer calls for a
// top-level script or REPL statement; invokeValue below re-enters the
// same dispatch loop (via runUntil) for host-initiated calls back into
// script values, sharing frames/evalStack/locals with whatever call is
// already in progress.
func (vm *VM) Run(startIP int) (result value.Value, err error) {
	frameDepth0 := len(vm.frames)
	localsLen0 := len(vm.locals)
	evalLen0 := len(vm.evalStack)

	defer func() {
		if r := recover(); r != nil {
			// An uncaught panic can leave frames/locals/evalStack with
			// whatever partial state existed mid-dispatch; since Run is
			// always the outermost entry point for a top-level statement,
			// unwind everything it pushed so the VM is clean for the next
			// one (spec.md §7's host-boundary recovery policy).
			vm.frames = vm.frames[:frameDepth0]
			vm.locals = vm.locals[:localsLen0]
			vm.evalStack = vm.evalStack[:evalLen0]
			if re, ok := r.(*herrors.RuntimeError); ok {
				err = re
				return
			}
			panic(r)
		}
	}()

	targetDepth := len(vm.frames)
	vm.frames = append(vm.frames, frame{localBase: len(vm.locals)})
	return vm.runUntil(startIP, targetDepth)
}

// runUntil executes starting at ip until the frame stack shrinks back down
// to targetDepth (i.e. until the frame that was on top when the caller
// entered returns), yielding that frame's returned value.
func (vm *VM) runUntil(startIP int, targetDepth int) (value.Value, error) {
	ip := startIP

	for {
		vm.curIP = ip
		op := bytecode.Op(vm.Chunk.Code[ip])
		operand := vm.Chunk.Code[ip+1]
		next := ip + 2

		switch op {
		case bytecode.OpPushNil:
			vm.push(value.NilValue())
		case bytecode.OpPushTrue:
			vm.push(value.BoolValue(true))
		case bytecode.OpPushFalse:
			vm.push(value.BoolValue(false))

		case bytecode.OpLoadConstantFast:
			v, ok := vm.Constants.Get(bytecode.ConstID(operand))
			if !ok {
				vm.panicf(ip, "missing constant %d", operand)
			}
			vm.push(v)

		case bytecode.OpLoadConstant:
			id := vm.Chunk.Read24(ip)
			next = ip + 4
			v, ok := vm.Constants.Get(bytecode.ConstID(id))
			if !ok {
				vm.panicf(ip, "missing constant %d", id)
			}
			vm.push(v)

		case bytecode.OpDeclLocal:
			f := vm.curFrame()
			idx := f.localBase + int(operand)
			v := vm.pop()
			if idx == len(vm.locals) {
				vm.locals = append(vm.locals, v)
			} else {
				vm.locals[idx] = v
			}

		case bytecode.OpDeclTopLvlLocal, bytecode.OpDeclGlobal:
			idx := int(operand)
			v := vm.pop()
			if idx == len(vm.Globals) {
				vm.Globals = append(vm.Globals, v)
			} else {
				vm.Globals[idx] = v
			}

		case bytecode.OpProbeLocals:
			for i := 0; i < int(operand); i++ {
				vm.locals = append(vm.locals, value.NilValue())
			}
		case bytecode.OpUnwindLocals:
			n := len(vm.locals) - int(operand)
			if n < 0 {
				n = 0
			}
			vm.locals = vm.locals[:n]

		case bytecode.OpLoadLocal:
			vm.push(vm.locals[vm.curFrame().localBase+int(operand)])
		case bytecode.OpStoreLocal:
			vm.locals[vm.curFrame().localBase+int(operand)] = vm.pop()

		case bytecode.OpLoadGlobal:
			vm.push(vm.Globals[int(operand)])
		case bytecode.OpStoreGlobal:
			vm.Globals[int(operand)] = vm.pop()

		case bytecode.OpLoadTable:
			key := vm.pop()
			base := vm.pop()
			vm.push(vm.loadTable(ip, base, key))

		case bytecode.OpStoreTable:
			val := vm.pop()
			key := vm.pop()
			base := vm.pop()
			vm.storeTable(ip, base, key, val, operand == 1)

		case bytecode.OpAllocateTable:
			t := vm.Heap.AllocateTable(int(operand), 0, true, vm.collect)
			vm.push(value.TableValue(t.ID, 0))

		case bytecode.OpAllocateTableLiteral:
			n := int(vm.Chunk.Read24(ip))
			next = ip + 4
			t := vm.Heap.AllocateTable(n, 0, true, vm.collect)
			for i := 0; i < n; i++ {
				elem := vm.evalStack[len(vm.evalStack)-n+i]
				vm.Heap.Set(t.Block.Start+i, elem)
			}
			vm.evalStack = vm.evalStack[:len(vm.evalStack)-n]
			t.Count = n
			vm.push(value.TableValue(t.ID, 0))

		case bytecode.OpAllocateInheritedClass:
			base := vm.pop()
			self := vm.pop()
			if base.Tag != value.Table {
				vm.panicf(ip, "base of inherited class must be a table, got %s", base.TypeName())
			}
			t, _ := vm.Heap.Table(self.DataID)
			t.Parent = base.DataID
			t.HasParent = true
			vm.push(self)

		case bytecode.OpFinalizeTable:
			t := vm.pop()
			tbl, _ := vm.Heap.Table(t.DataID)
			tbl.Flags |= uint32(operand)
			vm.push(value.TableValue(t.DataID, tbl.Flags))

		case bytecode.OpCaptureFuncptr:
			id := vm.Chunk.Read24(ip)
			next = ip + 4
			vm.push(value.ClosureValue(id, 0, false))

		case bytecode.OpCaptureClosure:
			id := vm.Chunk.Read24(ip)
			next = ip + 4
			capture := vm.pop()
			vm.push(value.ClosureValue(id, capture.DataID, true))

		case bytecode.OpCall:
			next = vm.call(ip, int(operand))
		case bytecode.OpCallLabel:
			id := vm.Chunk.Read24(ip)
			next = vm.callLabel(ip, bytecode.FuncID(id))

		case bytecode.OpReturn:
			retVal := vm.pop()
			f := vm.frames[len(vm.frames)-1]
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.locals = vm.locals[:f.localBase]
			if len(vm.frames) == targetDepth {
				return retVal, nil
			}
			vm.push(retVal)
			next = f.returnIP

		case bytecode.OpDiscardTop:
			vm.pop()
		case bytecode.OpDup:
			vm.push(vm.peek())

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpExp:
			b := vm.pop()
			a := vm.pop()
			vm.push(vm.arith(ip, op, a, b))

		case bytecode.OpEquals:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(valuesEqual(a, b)))
		case bytecode.OpNotEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(!valuesEqual(a, b)))
		case bytecode.OpLess, bytecode.OpGreater, bytecode.OpLessEqual, bytecode.OpGreaterEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(vm.compare(ip, op, a, b))

		case bytecode.OpAnd:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(a.Truthy() && b.Truthy()))
		case bytecode.OpOr:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(a.Truthy() || b.Truthy()))
		case bytecode.OpNot:
			vm.push(value.BoolValue(!vm.pop().Truthy()))

		case bytecode.OpJumpAhead:
			off, width := vm.Chunk.ReadJumpOffset(ip)
			next = ip + width + off
		case bytecode.OpJumpBack:
			off, width := vm.Chunk.ReadJumpOffset(ip)
			next = ip + width - off
		case bytecode.OpIfFalseJumpAhead:
			off, width := vm.Chunk.ReadJumpOffset(ip)
			if !vm.pop().Truthy() {
				next = ip + width + off
			} else {
				next = ip + width
			}
		case bytecode.OpIfFalseJumpBack:
			off, width := vm.Chunk.ReadJumpOffset(ip)
			if !vm.pop().Truthy() {
				next = ip + width - off
			} else {
				next = ip + width
			}
		case bytecode.OpIfntNilJumpAhead:
			off, width := vm.Chunk.ReadJumpOffset(ip)
			if !vm.peek().IsNil() {
				next = ip + width + off
			} else {
				next = ip + width
			}

		case bytecode.OpLoadIterator:
			vm.push(vm.newIterator(ip, vm.pop()))
		case bytecode.OpIterHasNext:
			it := vm.pop()
			vm.push(value.BoolValue(vm.iterHasNext(ip, it)))
		case bytecode.OpIterNext:
			it := vm.pop()
			vm.push(vm.iterNext(ip, it))

		default:
			vm.panicf(ip, "unimplemented opcode %s", op)
		}

		ip = next
	}
}

// panicf raises a *herrors.RuntimeError with a collapsed call-stack
// trace built from the current frame stack plus ip.
func (vm *VM) panicf(ip int, format string, args ...interface{}) {
	panic(vm.newRuntimeError(ip, fmt.Sprintf(format, args...)))
}

// newRuntimeError builds a RuntimeError whose stack walks every active
// call frame, innermost first, so a panic inside deeply nested calls
// reports its whole chain rather than just the immediate instruction.
func (vm *VM) newRuntimeError(ip int, msg string) *herrors.RuntimeError {
	locs := make([]herrors.Location, 0, len(vm.frames)+1)
	if loc, ok := vm.Chunk.Locs.Lookup(ip); ok {
		locs = append(locs, herrors.Location{Row: loc.Row, Col: loc.Col, File: loc.File, Function: loc.Function})
	}
	for i := len(vm.frames) - 1; i >= 0; i-- {
		if loc, ok := vm.Chunk.Locs.Lookup(vm.frames[i].returnIP); ok {
			locs = append(locs, herrors.Location{Row: loc.Row, Col: loc.Col, File: loc.File, Function: loc.Function})
		}
	}
	return herrors.NewRuntimeError(msg, locs)
}

// curIPHint reports the instruction pointer last dispatched, for a
// runtime error raised from inside a foreign call (host.Panic) where no
// ip is directly at hand.
func (vm *VM) curIPHint() int { return vm.curIP }

func valuesEqual(a, b value.Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	return value.Hash(a) == value.Hash(b)
}

// collect is passed to heap allocation calls as the allowCollect hook;
// it runs a full mark-and-sweep using the VM's current roots. Live
// iterators hold a table id the eval-stack handle itself doesn't
// reference (the pushed value's DataID names the iterator, not the
// table), so each iterator's target table is added as an extra root
// alongside tempExempt.
func (vm *VM) collect() {
	exempt := vm.tempExempt
	for _, st := range vm.iterators {
		exempt = append(exempt, value.TableValue(st.tableID, 0))
	}
	vm.Heap.Collect(heap.Roots{
		EvalStack:  vm.evalStack,
		Locals:     vm.locals,
		Globals:    vm.Globals,
		TempExempt: exempt,
	})
}
