package objects_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatrixAddSubtractDispatchThroughForeignArith(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = make_matrix(2, 2)")
	runOne(t, in, "a.set(0, 0, 1)")
	runOne(t, in, "a.set(0, 1, 2)")
	runOne(t, in, "a.set(1, 0, 3)")
	runOne(t, in, "a.set(1, 1, 4)")
	runOne(t, in, "b = identity(2)")

	sum := runOne(t, in, "a + b")
	require.Equal(t, "[2, 2; 3, 5]", in.GetValuePrintString(sum))

	diff := runOne(t, in, "a - b")
	require.Equal(t, "[0, 2; 3, 3]", in.GetValuePrintString(diff))
}

func TestMatrixMultiplyByIdentityIsUnchanged(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = make_matrix(2, 2)")
	runOne(t, in, "a.set(0, 0, 1)")
	runOne(t, in, "a.set(0, 1, 2)")
	runOne(t, in, "a.set(1, 0, 3)")
	runOne(t, in, "a.set(1, 1, 4)")
	runOne(t, in, "id = identity(2)")

	prod := runOne(t, in, "a * id")
	require.Equal(t, "[1, 2; 3, 4]", in.GetValuePrintString(prod))
}

func TestMatrixAddRequiresMatchingDimensions(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = make_matrix(2, 2)")
	runOne(t, in, "b = make_matrix(3, 3)")

	_, err := in.Run("a + b", "<test>", true)
	require.Error(t, err)
}

// x+y=3, 2x+y=4 solves to x=1, y=2 -- a known-answer check on rref's
// scale-then-back-substitute pass.
func TestMatrixRowReducedEchelonFormSolvesLinearSystem(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "m = make_matrix(2, 3)")
	runOne(t, in, "m.set(0, 0, 1) m.set(0, 1, 1) m.set(0, 2, 3)")
	runOne(t, in, "m.set(1, 0, 2) m.set(1, 1, 1) m.set(1, 2, 4)")

	isRrefBefore := runOne(t, in, "m.isRref()")
	require.Equal(t, "false", in.GetValuePrintString(isRrefBefore))

	runOne(t, in, "r = m.rref()")
	isRrefAfter := runOne(t, in, "r.isRref()")
	require.Equal(t, "true", in.GetValuePrintString(isRrefAfter))
	require.Equal(t, "[1, 0, 1; 0, 1, 2]", in.GetValuePrintString(runOne(t, in, "r")))

	sol := runOne(t, in, "r.sol()")
	require.Equal(t, "[1; 2]", in.GetValuePrintString(sol))
}

func TestMatrixEchelonFormPredicates(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "m = make_matrix(2, 2)")
	runOne(t, in, "m.set(0, 0, 0) m.set(0, 1, 1) m.set(1, 0, 1) m.set(1, 1, 0)")

	isRefBefore := runOne(t, in, "m.isRef()")
	require.Equal(t, "false", in.GetValuePrintString(isRefBefore))

	runOne(t, in, "e = m.ref()")
	isRefAfter := runOne(t, in, "e.isRef()")
	require.Equal(t, "true", in.GetValuePrintString(isRefAfter))
}

func TestMatrixAugmentAndCoefSplit(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = identity(2)")
	runOne(t, in, "b = vector(2)")
	runOne(t, in, "b.set(0, 0, 5) b.set(1, 0, 6)")

	runOne(t, in, "aug = a.augment(b)")
	dim := runOne(t, in, "aug.dim()")
	require.Equal(t, "[2, 3]", in.GetValuePrintString(dim))

	coef := runOne(t, in, "aug.coef()")
	require.Equal(t, "[1, 0; 0, 1]", in.GetValuePrintString(coef))

	sol := runOne(t, in, "aug.sol()")
	require.Equal(t, "[5; 6]", in.GetValuePrintString(sol))
}

func TestMatrixTransposeAndRowColAt(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "m = make_matrix(2, 3)")
	runOne(t, in, "m.set(0, 0, 1) m.set(0, 1, 2) m.set(0, 2, 3)")
	runOne(t, in, "m.set(1, 0, 4) m.set(1, 1, 5) m.set(1, 2, 6)")

	trans := runOne(t, in, "m.trans()")
	require.Equal(t, "[1, 4; 2, 5; 3, 6]", in.GetValuePrintString(trans))

	row := runOne(t, in, "m.rowAt(1)")
	require.Equal(t, "[4, 5, 6]", in.GetValuePrintString(row))

	col := runOne(t, in, "m.colAt(2)")
	require.Equal(t, "[3; 6]", in.GetValuePrintString(col))
}
