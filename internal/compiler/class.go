package compiler

import (
	"hulascript/internal/bytecode"
	"hulascript/internal/lexer"
	"hulascript/internal/value"
)

// classStatement compiles `class Name [: Base] method(...) ... end ... end`
// into a final table of CAPTURE_FUNCPTR closures (class methods never
// capture outer locals, spec.md §4.2), optionally built over a base
// table via ALLOCATE_INHERITED_CLASS so lookups chase TableInheritsParent
// on miss, then binds Name to it. A `construct` method is an ordinary
// entry; `self.base(...)` inside it calls through to the parent's own
// `construct` the same way any other method call does.
func (c *Compiler) classStatement() {
	c.advanceOrPanic() // 'class'
	name := c.expect(lexer.TokIdent, "class name").Lexeme

	var baseName string
	hasBase := c.match(lexer.TokColon)
	if hasBase {
		baseName = c.expect(lexer.TokIdent, "base class name").Lexeme
	}

	type methodFunc struct {
		name string
		id   uint32
	}
	var methods []methodFunc
	for c.cur.Type != lexer.TokEnd {
		methodName := c.expect(lexer.TokIdent, "method name").Lexeme
		id := c.classMethodLiteral()
		methods = append(methods, methodFunc{name: methodName, id: id})
	}
	c.expect(lexer.TokEnd, "end")

	// Fold the methods into a fresh table one dup'd STORE_TABLE at a time
	// (ALLOCATE_TABLE_LITERAL's count means "values already on the stack,"
	// which a name/funcptr pair list isn't -- see tableLiteral).
	c.emit1(bytecode.OpAllocateTable, byte(len(methods)))
	for _, m := range methods {
		c.emit(bytecode.OpDup)
		c.emitConstant(c.internString(m.name))
		c.Chunk.Emit24(bytecode.OpCaptureFuncptr, m.id, c.loc())
		c.emit1(bytecode.OpStoreTable, 0)
	}

	flags := byte(value.TableIsFinal)
	if hasBase {
		// ALLOCATE_INHERITED_CLASS expects [self, base] with base on top.
		c.load(baseName)
		c.emit(bytecode.OpAllocateInheritedClass)
		flags |= byte(value.TableInheritsParent)
	}
	c.emit1(bytecode.OpFinalizeTable, flags)

	c.store(name)
}

// classMethodLiteral compiles one class method's `(params) ... end` body
// as an isClassMethod function (barred from capturing outer locals),
// returning its function id for the caller to fold into the class table.
func (c *Compiler) classMethodLiteral() uint32 {
	skip := c.emitJump(bytecode.OpJumpAhead)
	c.expect(lexer.TokLParen, "(")
	var params []string
	// An implicit `self` parameter always occupies local slot 0.
	params = append(params, "self")
	for c.cur.Type != lexer.TokRParen {
		params = append(params, c.expect(lexer.TokIdent, "parameter name").Lexeme)
		if !c.match(lexer.TokComma) {
			break
		}
	}
	c.expect(lexer.TokRParen, ")")

	entry, err := c.Functions.Declare("", len(params))
	if err != nil {
		c.fail(err.Error())
	}
	entry.IsClassMethod = true
	entry.StartAddress = c.Chunk.Len()

	fd := &funcDecl{entry: entry, isClassMethod: true, captured: make(map[string]bool)}
	c.funcs = append(c.funcs, fd)
	c.pushScope(false).isFuncRoot = true
	for _, p := range params {
		c.declareSlot(p)
	}
	for !c.atBlockEnd([]lexer.TokenType{lexer.TokEnd}) {
		c.statement()
	}
	allReturn := c.currentScope().allPathsReturn
	c.popScope()
	c.expect(lexer.TokEnd, "end")

	if !allReturn {
		c.emit(bytecode.OpPushNil)
		c.emit(bytecode.OpReturn)
	}
	entry.Length = c.Chunk.Len() - entry.StartAddress
	c.funcs = c.funcs[:len(c.funcs)-1]
	c.patchJumpHere(skip)
	return uint32(entry.ID)
}
