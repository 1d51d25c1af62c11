package compiler

import (
	"fmt"

	"hulascript/internal/bytecode"
	"hulascript/internal/lexer"
)

// statement compiles exactly one statement, dispatching on its leading
// token; blocks are delimited by `end` (if/while/for/function/class) or
// by `while` (do-while), never by braces -- braces are reserved for
// table literals.
func (c *Compiler) statement() {
	switch c.cur.Type {
	case lexer.TokIf:
		c.ifStatement()
	case lexer.TokWhile:
		c.whileStatement()
	case lexer.TokDo:
		c.doStatement()
	case lexer.TokFor:
		c.forInStatement()
	case lexer.TokReturn:
		c.returnStatement()
	case lexer.TokBreak:
		c.breakStatement()
	case lexer.TokContinue:
		c.continueStatement()
	case lexer.TokGlobal:
		c.globalStatement()
	case lexer.TokFunction, lexer.TokNoCapture:
		c.functionDeclStatement()
	case lexer.TokClass:
		c.classStatement()
	default:
		c.exprOrAssignStatement()
	}
}

// blockUntil compiles statements until the current token is one of
// terminators (left unconsumed) or EOF, returning whether every path
// through the block returned.
func (c *Compiler) blockUntil(terminators ...lexer.TokenType) bool {
	c.pushScope(false)
	for !c.atBlockEnd(terminators) {
		c.statement()
	}
	closed := c.popScope()
	return closed.allPathsReturn
}

func (c *Compiler) atBlockEnd(terminators []lexer.TokenType) bool {
	if c.cur.Type == lexer.TokEOF {
		return true
	}
	for _, t := range terminators {
		if c.cur.Type == t {
			return true
		}
	}
	return false
}

// ---- control flow ----

func (c *Compiler) ifStatement() {
	c.advanceOrPanic() // 'if'
	allReturn := c.ifBranch()
	if allReturn {
		c.currentScope().allPathsReturn = true
	}
}

// ifBranch compiles one `COND then BLOCK` branch, assuming its leading
// keyword (`if` or `elif`) has already been consumed, followed by
// whatever comes next: another `elif` branch, a final `else` block, or
// `end`. It returns whether every path through the whole chain returns.
func (c *Compiler) ifBranch() bool {
	c.expression()
	c.expect(lexer.TokThen, "then")
	jmpElse := c.emitJump(bytecode.OpIfFalseJumpAhead)
	allReturn := c.blockUntil(lexer.TokElif, lexer.TokElse, lexer.TokEnd)
	jmpEnd := c.emitJump(bytecode.OpJumpAhead)
	c.patchJumpHere(jmpElse)

	switch c.cur.Type {
	case lexer.TokElif:
		c.advanceOrPanic()
		allReturn = c.ifBranch() && allReturn
	case lexer.TokElse:
		c.advanceOrPanic()
		elseReturn := c.blockUntil(lexer.TokEnd)
		allReturn = allReturn && elseReturn
		c.expect(lexer.TokEnd, "end")
	default:
		c.expect(lexer.TokEnd, "end")
		allReturn = false
	}
	c.patchJumpHere(jmpEnd)
	return allReturn
}

func (c *Compiler) whileStatement() {
	c.advanceOrPanic() // 'while'
	condIP := c.Chunk.Len()
	c.expression()
	c.expect(lexer.TokDo, "do")
	jmpEnd := c.emitJump(bytecode.OpIfFalseJumpAhead)

	s := c.pushScope(true)
	s.loopStartIP = condIP
	for !c.atBlockEnd([]lexer.TokenType{lexer.TokEnd}) {
		c.statement()
	}
	c.popScope()

	back := c.emitJump(bytecode.OpJumpBack)
	c.Chunk.PatchJump(back, c.Chunk.Len()-condIP)
	c.patchJumpHere(jmpEnd)
	c.expect(lexer.TokEnd, "end")
}

// doStatement compiles `do ... while cond end`, HulaScript's post-test
// loop: the body always runs once before the condition is checked.
func (c *Compiler) doStatement() {
	c.advanceOrPanic() // 'do'
	startIP := c.Chunk.Len()

	s := c.pushScope(true)
	s.loopStartIP = startIP
	for !c.atBlockEnd([]lexer.TokenType{lexer.TokWhile}) {
		c.statement()
	}
	c.popScope()

	c.expect(lexer.TokWhile, "while")
	c.expression()
	c.expect(lexer.TokEnd, "end")
	c.emit(bytecode.OpNot)
	back := c.emitJump(bytecode.OpIfFalseJumpBack)
	c.Chunk.PatchJump(back, c.Chunk.Len()-startIP)
}

// forInStatement compiles `for ident in expr do ... end`: LOAD_ITERATOR
// wraps the iterated value in an internal iterator value bound to a
// hidden local, and each pass runs ITER_HAS_NEXT / ITER_NEXT on it. Only
// array-flagged tables can be iterated; any other table, and any foreign
// object, is rejected with a runtime error when LOAD_ITERATOR runs.
func (c *Compiler) forInStatement() {
	c.advanceOrPanic() // 'for'
	name := c.expect(lexer.TokIdent, "loop variable").Lexeme
	c.expect(lexer.TokIn, "in")
	c.expression()
	c.expect(lexer.TokDo, "do")

	c.emit(bytecode.OpLoadIterator)
	hiddenIter := fmt.Sprintf("@iterator_%d", c.iterCounter())
	s := c.pushScope(true)
	c.declare(hiddenIter)

	condIP := c.Chunk.Len()
	c.load(hiddenIter)
	c.emit(bytecode.OpIterHasNext)
	jmpEnd := c.emitJump(bytecode.OpIfFalseJumpAhead)

	c.load(hiddenIter)
	c.emit(bytecode.OpIterNext)
	c.declare(name)

	s.loopStartIP = condIP
	for !c.atBlockEnd([]lexer.TokenType{lexer.TokEnd}) {
		c.statement()
	}
	c.popScope()

	back := c.emitJump(bytecode.OpJumpBack)
	c.Chunk.PatchJump(back, c.Chunk.Len()-condIP)
	c.patchJumpHere(jmpEnd)
	c.expect(lexer.TokEnd, "end")
}

var iterSeq int

func (c *Compiler) iterCounter() int {
	iterSeq++
	return iterSeq
}

func (c *Compiler) returnStatement() {
	c.advanceOrPanic()
	if c.atStatementBoundary() {
		c.emit(bytecode.OpPushNil)
	} else {
		c.expression()
	}
	c.emit(bytecode.OpReturn)
	c.currentScope().allPathsReturn = true
}

// atStatementBoundary reports whether the current token could not begin
// an expression, i.e. a bare `return` with no value follows.
func (c *Compiler) atStatementBoundary() bool {
	switch c.cur.Type {
	case lexer.TokEnd, lexer.TokElse, lexer.TokElif, lexer.TokEOF, lexer.TokWhile:
		return true
	default:
		return false
	}
}

func (c *Compiler) breakStatement() {
	c.advanceOrPanic()
	s := c.loopScope()
	if s == nil {
		c.fail("break outside of a loop")
	}
	ip := c.emitJump(bytecode.OpJumpAhead)
	s.breakPatches = append(s.breakPatches, ip)
}

func (c *Compiler) continueStatement() {
	c.advanceOrPanic()
	s := c.loopScope()
	if s == nil {
		c.fail("continue outside of a loop")
	}
	ip := c.emitJump(bytecode.OpJumpBack)
	s.continuePatches = append(s.continuePatches, ip)
}

func (c *Compiler) globalStatement() {
	c.advanceOrPanic()
	name := c.expect(lexer.TokIdent, "global name").Lexeme
	if c.inFunction() {
		c.fail("global declarations are only valid at top level")
	}
	if c.match(lexer.TokAssign) {
		c.expression()
	} else {
		c.emit(bytecode.OpPushNil)
	}
	c.declare(name)
}

// ---- assignment / expression statements ----

func (c *Compiler) exprOrAssignStatement() {
	if c.cur.Type == lexer.TokIdent {
		name := c.cur.Lexeme
		save := c.cur
		c.advanceOrPanic()
		if c.cur.Type == lexer.TokAssign {
			c.advanceOrPanic()
			c.expression()
			c.store(name)
			return
		}
		c.resumeIdentPostfixAssign(save)
		return
	}
	c.expression()
	c.discardOrKeepTailValue()
}

// discardOrKeepTailValue discards an expression statement's value, unless
// it is the program's final statement at top-level scope: that value
// becomes CompileTopLevel's result instead (spec.md §6's run result).
func (c *Compiler) discardOrKeepTailValue() {
	if len(c.scopes) == 1 && c.cur.Type == lexer.TokEOF {
		c.lastStatementHasValue = true
		return
	}
	c.emit(bytecode.OpDiscardTop)
}

// resumeIdentPostfixAssign handles `ident.a.b = v` and `ident[k] = v`: it
// replays the leading identifier load, then parses a postfix chain,
// treating a final `.name`/`[expr]` before `=` as a store target instead
// of a load.
func (c *Compiler) resumeIdentPostfixAssign(identTok lexer.Token) {
	c.load(identTok.Lexeme)
	for {
		switch c.cur.Type {
		case lexer.TokDot:
			c.advanceOrPanic()
			field := c.expect(lexer.TokIdent, "property name")
			if c.cur.Type == lexer.TokAssign {
				c.advanceOrPanic()
				c.emitConstant(c.internString(field.Lexeme))
				c.expression()
				c.emit1(bytecode.OpStoreTable, 1)
				return
			}
			c.emitConstant(c.internString(field.Lexeme))
			c.emit1(bytecode.OpLoadTable, 0)
		case lexer.TokLBracket:
			c.advanceOrPanic()
			c.expression()
			c.expect(lexer.TokRBracket, "]")
			if c.cur.Type == lexer.TokAssign {
				c.advanceOrPanic()
				c.expression()
				c.emit1(bytecode.OpStoreTable, 0)
				return
			}
			c.emit1(bytecode.OpLoadTable, 0)
		case lexer.TokLParen:
			c.callArgs()
		default:
			c.discardOrKeepTailValue()
			return
		}
	}
}
