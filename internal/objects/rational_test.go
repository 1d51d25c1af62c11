package objects_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hulascript/internal/instance"
	"hulascript/internal/objects"
	"hulascript/internal/value"
)

func newInstance(t *testing.T) *instance.Instance {
	t.Helper()
	in := instance.New()
	require.True(t, objects.RegisterRational(in))
	require.True(t, objects.RegisterMatrix(in))
	return in
}

func runOne(t *testing.T, in *instance.Instance, source string) value.Value {
	t.Helper()
	res, err := in.Run(source, "<test>", true)
	require.NoError(t, err)
	return res.Value
}

func TestRationalOperatorsDispatchThroughForeignArith(t *testing.T) {
	in := newInstance(t)

	runOne(t, in, "a = make_rational(1, 3)")
	runOne(t, in, "b = make_rational(1, 6)")
	sum := runOne(t, in, "a + b")

	require.Equal(t, "0.5", in.GetValuePrintString(sum))
}

func TestRationalSubtractAndMultiply(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = make_rational(3, 4)")
	runOne(t, in, "b = make_rational(1, 4)")

	diff := runOne(t, in, "a - b")
	require.Equal(t, "0.5", in.GetValuePrintString(diff))

	prod := runOne(t, in, "a * b")
	require.Equal(t, "0.1875", in.GetValuePrintString(prod))
}

func TestRationalDivideByZeroErrors(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = make_rational(1, 2)")
	runOne(t, in, "z = make_rational(0, 1)")

	_, err := in.Run("a / z", "<test>", true)
	require.Error(t, err)
}

func TestRationalExponentiateIntegerPower(t *testing.T) {
	in := newInstance(t)
	runOne(t, in, "a = make_rational(2, 3)")
	cube := runOne(t, in, "a ^ 3")
	require.Equal(t, "8/27", in.GetValuePrintString(cube))
}

func TestRationalParseDecimal(t *testing.T) {
	in := newInstance(t)
	r, err := objects.ParseRational(in.Foreign, "3.14")
	require.NoError(t, err)
	require.Equal(t, "3.14", r.ToString())

	neg, err := objects.ParseRational(in.Foreign, "-12.5")
	require.NoError(t, err)
	require.Equal(t, "-12.5", neg.ToString())

	whole, err := objects.ParseRational(in.Foreign, "7")
	require.NoError(t, err)
	require.Equal(t, "7", whole.ToString())
}

func TestRationalToStringFallsBackToFractionForm(t *testing.T) {
	r, err := objects.NewRational(nil, 1, 3)
	require.NoError(t, err)
	require.Equal(t, "1/3", r.ToString())
}
