package instance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hulascript/internal/instance"
	"hulascript/internal/value"
)

func TestRunReturnsValue(t *testing.T) {
	in := instance.New()
	result, err := in.Run("2 + 3", "<test>", false)
	require.NoError(t, err)
	require.True(t, result.HasValue)
	require.Equal(t, value.NumberValue(5), result.Value)
}

func TestRunWarnsThenRunLoadedExecutes(t *testing.T) {
	in := instance.New()
	result, err := in.Run("function make()\n  return 7\nend\nmake()", "<test>", false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings, "a capturing-nothing free function should warn")
	require.False(t, result.HasValue)

	result, err = in.RunLoaded()
	require.NoError(t, err)
	require.True(t, result.HasValue)
	require.Equal(t, value.NumberValue(7), result.Value)
}

func TestRunIgnoreWarningsSkipsAcknowledgment(t *testing.T) {
	in := instance.New()
	result, err := in.Run("function make()\n  return 7\nend\nmake()", "<test>", true)
	require.NoError(t, err)
	require.True(t, result.HasValue)
	require.Equal(t, value.NumberValue(7), result.Value)
}

func TestWarningsDoNotLeakToNextStatement(t *testing.T) {
	in := instance.New()
	_, err := in.Run("function make()\n  return 7\nend\nmake()", "<test>", true)
	require.NoError(t, err)

	result, err := in.Run("1 + 1", "<test>", false)
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.True(t, result.HasValue)
}

func TestDeclareGlobalCollisionKeepsFirstBinding(t *testing.T) {
	in := instance.New()
	require.True(t, in.DeclareGlobal("host_api", value.NumberValue(1)))
	require.True(t, in.DeclareGlobal("host_api", value.NumberValue(2)), "redeclaring the same name is a no-op success")

	result, err := in.Run("host_api", "<test>", false)
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(1), result.Value, "the first binding wins; DeclareGlobal does not overwrite")
}

func TestMakeArrayAndTableObjPrintRoundTrip(t *testing.T) {
	in := instance.New()

	arr := in.MakeArray([]value.Value{value.NumberValue(1), value.NumberValue(2), value.NumberValue(3)}, true)
	require.Equal(t, "[1, 2, 3]", in.GetValuePrintString(arr))

	tbl := in.MakeTableObj(map[string]value.Value{"x": value.NumberValue(1)}, true)
	require.Equal(t, "{1}", in.GetValuePrintString(tbl))
}

func TestUncaughtRuntimeErrorRollsBackGlobals(t *testing.T) {
	in := instance.New()

	_, err := in.Run("target = 5", "<test>", true)
	require.NoError(t, err)
	before := in.Compiler.GlobalCount()

	// `another` is a fresh global declared by the same failing statement
	// that then calls a non-callable number -- the runtime error must
	// unwind `another` along with the VM's own stacks.
	_, err = in.Run("another = 10\ntarget()", "<test>", true)
	require.Error(t, err)
	require.Equal(t, before, in.Compiler.GlobalCount(), "a failed statement's globals must not survive the error")

	// The VM must still be usable for a subsequent statement.
	result, err := in.Run("42", "<test>", true)
	require.NoError(t, err)
	require.Equal(t, value.NumberValue(42), result.Value)
}
