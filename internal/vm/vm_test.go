package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hulascript/internal/bytecode"
	"hulascript/internal/compiler"
	"hulascript/internal/foreign"
	"hulascript/internal/heap"
	"hulascript/internal/value"
	"hulascript/internal/vm"
)

// harness wires a compiler and a VM over the same chunk/constants/functions,
// mirroring instance.New's construction without the embedder-API layer on
// top, so these tests can exercise VM.Run directly against compiled source.
type harness struct {
	c      *compiler.Compiler
	m      *vm.VM
	consts *bytecode.ConstantPool
	funcs  *bytecode.FunctionRegistry
}

func newHarness() *harness {
	chunk := bytecode.NewChunk()
	consts := bytecode.NewConstantPool()
	funcs := bytecode.NewFunctionRegistry()
	strings := value.NewStringPool()
	fgn := foreign.NewRegistry()
	h := heap.New(strings, funcs, consts, fgn)
	c := compiler.New(chunk, consts, funcs, strings)
	m := vm.New(chunk, consts, funcs, h, strings, fgn)
	return &harness{c: c, m: m, consts: consts, funcs: funcs}
}

func (h *harness) growGlobals() {
	for len(h.m.Globals) < h.c.GlobalCount() {
		h.m.Globals = append(h.m.Globals, value.NilValue())
	}
}

// run compiles and executes one top-level statement, growing Globals the
// way Instance.Run does, and rolls back on error the way execute does.
func (h *harness) run(t *testing.T, source string) (value.Value, error) {
	t.Helper()
	before := h.c.GlobalCount()
	startIP, err := h.c.CompileTopLevel(source, "<test>")
	if err != nil {
		h.c.RollbackGlobalsTo(before)
		return value.NilValue(), err
	}
	h.growGlobals()
	v, err := h.m.Run(startIP)
	if err != nil {
		h.c.RollbackGlobalsTo(before)
		h.m.Globals = h.m.Globals[:before]
	}
	return v, err
}

func TestIfBranchesTakeCorrectPath(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "picked = 0")
	require.NoError(t, err)

	_, err = h.run(t, "if 1 < 2 then\n  picked = 10\nelse\n  picked = 20\nend")
	require.NoError(t, err)
	v, err := h.run(t, "picked")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(10), v)

	_, err = h.run(t, "if 2 < 1 then\n  picked = 10\nelse\n  picked = 20\nend")
	require.NoError(t, err)
	v, err = h.run(t, "picked")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(20), v)
}

func TestWhileLoopAccumulates(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "total = 0\ni = 1")
	require.NoError(t, err)

	_, err = h.run(t, "while i <= 5 do\n  total = total + i\n  i = i + 1\nend")
	require.NoError(t, err)

	v, err := h.run(t, "total")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(15), v)
}

func TestForInLoopOverArray(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "total = 0")
	require.NoError(t, err)

	_, err = h.run(t, "for x in [1, 2, 3, 4] do total = total + x end")
	require.NoError(t, err)

	v, err := h.run(t, "total")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(10), v)
}

func TestNilCoalesceShortCircuits(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "calls = 0")
	require.NoError(t, err)

	// The right side of ?? must not evaluate when the left side is non-nil:
	// if it did, calls would be incremented and the result would still be 1,
	// masking the bug, so the test checks calls stayed untouched too.
	_, err = h.run(t, "bumped = function() calls = calls + 1 return 99 end")
	require.NoError(t, err)

	v, err := h.run(t, "1 ?? bumped()")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(1), v)

	callsAfter, err := h.run(t, "calls")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(0), callsAfter)
}

func TestNilCoalesceEvaluatesRightWhenLeftNil(t *testing.T) {
	h := newHarness()
	v, err := h.run(t, "nil ?? 7")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(7), v)
}

func TestUncaughtRuntimeErrorLeavesStacksClean(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "target = 5")
	require.NoError(t, err)

	_, err = h.run(t, "target()")
	require.Error(t, err, "calling a number must panic at runtime")

	require.Empty(t, h.m.EvalStackSnapshot(), "a failed Run must leave the eval stack empty for the next statement")
	require.Empty(t, h.m.LocalsSnapshot(), "a failed Run must leave the locals stack empty for the next statement")

	// The VM must still be usable for a subsequent, unrelated statement.
	v, err := h.run(t, "target + 1")
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(6), v)
}
