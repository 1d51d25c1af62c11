package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hulascript/internal/bytecode"
	"hulascript/internal/compiler"
	"hulascript/internal/value"
)

func newCompiler() *compiler.Compiler {
	return compiler.New(bytecode.NewChunk(), bytecode.NewConstantPool(), bytecode.NewFunctionRegistry(), value.NewStringPool())
}

func TestDeclareGlobalDirectAssignsStableOffsets(t *testing.T) {
	c := newCompiler()

	require.True(t, c.DeclareGlobalDirect("a"))
	require.True(t, c.DeclareGlobalDirect("b"))
	require.Equal(t, 2, c.GlobalCount())

	// Redeclaring an existing name is a no-op success, not a second slot.
	require.True(t, c.DeclareGlobalDirect("a"))
	require.Equal(t, 2, c.GlobalCount())
}

func TestDeclareGlobalDirectRejectsPastCap(t *testing.T) {
	c := newCompiler()
	for i := 0; i < 256; i++ {
		require.True(t, c.DeclareGlobalDirect(string(rune('a'+i%26))+string(rune('0'+i/26))))
	}
	require.Equal(t, 256, c.GlobalCount())
	require.False(t, c.DeclareGlobalDirect("one_too_many"))
}

func TestRollbackGlobalsToDiscardsLaterGlobals(t *testing.T) {
	c := newCompiler()
	require.True(t, c.DeclareGlobalDirect("kept"))
	before := c.GlobalCount()
	require.True(t, c.DeclareGlobalDirect("discarded_one"))
	require.True(t, c.DeclareGlobalDirect("discarded_two"))
	require.Equal(t, before+2, c.GlobalCount())

	c.RollbackGlobalsTo(before)
	require.Equal(t, before, c.GlobalCount())

	// The rolled-back name is gone: redeclaring it gets a fresh offset
	// at the rolled-back count, not an error.
	require.True(t, c.DeclareGlobalDirect("discarded_one"))
	require.Equal(t, before+1, c.GlobalCount())
}

func TestCompileTopLevelGrowsGlobalsAcrossStatements(t *testing.T) {
	c := newCompiler()

	_, err := c.CompileTopLevel("x = 1", "<test>")
	require.NoError(t, err)
	firstCount := c.GlobalCount()
	require.Equal(t, 1, firstCount)

	_, err = c.CompileTopLevel("y = 2", "<test>")
	require.NoError(t, err)
	require.Equal(t, 2, c.GlobalCount())
}
