package compiler

import (
	"fmt"

	"hulascript/internal/bytecode"
	"hulascript/internal/herrors"
	"hulascript/internal/lexer"
	"hulascript/internal/value"
)

// functionDeclStatement compiles `function name(params) ... end` (or its
// no_capture variant) as sugar for `name = function(params) ... end`: it
// binds the name (to nil) first so references to it inside the body
// resolve, then emits the function literal and stores it under the name.
// A function declared inside another function captures the name's value
// when its closure is built, which is still nil at that point.
func (c *Compiler) functionDeclStatement() {
	noCapture := c.cur.Type == lexer.TokNoCapture
	if noCapture {
		c.advanceOrPanic()
		c.expect(lexer.TokFunction, "function")
	} else {
		c.advanceOrPanic()
	}
	name := c.expect(lexer.TokIdent, "function name").Lexeme
	c.emit(bytecode.OpPushNil)
	c.store(name)
	c.functionLiteralBody(noCapture, false, name)
	c.store(name)
}

// functionLiteral compiles an anonymous function expression, leaving the
// resulting closure (or bare function pointer, if it captures nothing)
// on the stack.
func (c *Compiler) functionLiteral(isClassMethod bool) {
	noCapture := c.cur.Type == lexer.TokNoCapture
	if noCapture {
		c.advanceOrPanic()
		c.expect(lexer.TokFunction, "function")
	} else {
		c.advanceOrPanic()
	}
	c.functionLiteralBody(noCapture, isClassMethod, "")
}

// functionLiteralBody parses the shared `(params) ... end` tail of a
// function declaration or literal and emits its bytecode out-of-line
// (the body's instructions live after the enclosing code; control flow
// never falls into them), then emits the CAPTURE_FUNCPTR/CAPTURE_CLOSURE
// instruction that produces the callable value.
func (c *Compiler) functionLiteralBody(noCapture, isClassMethod bool, name string) {
	c.expect(lexer.TokLParen, "(")
	var params []string
	for c.cur.Type != lexer.TokRParen {
		params = append(params, c.expect(lexer.TokIdent, "parameter name").Lexeme)
		if !c.match(lexer.TokComma) {
			break
		}
	}
	c.expect(lexer.TokRParen, ")")

	skip := c.emitJump(bytecode.OpJumpAhead)
	entry, err := c.Functions.Declare(name, len(params))
	if err != nil {
		c.fail(err.Error())
	}
	entry.NoCapture = noCapture
	entry.IsClassMethod = isClassMethod
	entry.StartAddress = c.Chunk.Len()

	fd := &funcDecl{entry: entry, noCapture: noCapture, isClassMethod: isClassMethod, captured: make(map[string]bool)}
	if len(c.funcs) > 0 {
		fd.parent = c.funcs[len(c.funcs)-1]
	}
	c.funcs = append(c.funcs, fd)
	c.pushScope(false).isFuncRoot = true

	if !noCapture && !isClassMethod {
		c.declareSlot(captureTableLocalName(entry.ID))
	}
	for _, p := range params {
		c.declareSlot(p)
	}

	for !c.atBlockEnd([]lexer.TokenType{lexer.TokEnd}) {
		c.statement()
	}
	closed := c.currentScope()
	allReturn := closed.allPathsReturn
	c.popScope()
	c.expect(lexer.TokEnd, "end")

	if !allReturn {
		c.emit(bytecode.OpPushNil)
		c.emit(bytecode.OpReturn)
	}
	entry.Length = c.Chunk.Len() - entry.StartAddress
	c.funcs = c.funcs[:len(c.funcs)-1]
	c.patchJumpHere(skip)

	if len(fd.captured) == 0 || noCapture || isClassMethod {
		if len(fd.captured) == 0 && !noCapture && !isClassMethod {
			name := entry.Name
			if name == "" {
				name = "<anonymous>"
			}
			c.Warnings = append(c.Warnings, herrors.Warning{
				Message:  fmt.Sprintf("function %q captures nothing; declare it no_capture function to skip building a capture table", name),
				Location: herrors.Location(c.loc()),
			})
		}
		c.trackReplFunction(entry.ID)
		c.trackFunctionFuncRef(entry.ID)
		c.Chunk.Emit24(bytecode.OpCaptureFuncptr, uint32(entry.ID), c.loc())
		return
	}

	// Build the capture table: one final, non-array table keyed by each
	// captured name's hash, populated from the enclosing scope before the
	// closure is captured (spec.md §4.1 closures-by-name-hash). Each
	// binding is its own dup'd-table store, not a flat ALLOCATE_TABLE_LITERAL
	// run, for the same reason tableLiteral is: that opcode's count means
	// "values already pushed," which a key/value pair list isn't.
	captured := make([]string, 0, len(fd.captured))
	for n := range fd.captured {
		captured = append(captured, n)
	}
	c.emit1(bytecode.OpAllocateTable, byte(len(captured)))
	for _, n := range captured {
		c.emit(bytecode.OpDup)
		c.emitConstant(c.internString(n))
		c.load(n)
		c.emit1(bytecode.OpStoreTable, 0)
	}
	c.emit1(bytecode.OpFinalizeTable, byte(value.TableIsFinal))
	c.trackReplFunction(entry.ID)
	c.trackFunctionFuncRef(entry.ID)
	c.Chunk.Emit24(bytecode.OpCaptureClosure, uint32(entry.ID), c.loc())
}
