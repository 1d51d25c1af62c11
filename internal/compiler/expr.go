package compiler

import (
	"hulascript/internal/bytecode"
	"hulascript/internal/lexer"
	"hulascript/internal/value"
)

// precedence table (spec.md §4.1): || && bind loosest, then comparisons
// and ??, then + -, then * / %, then ^ tightest among binaries; unary
// (not, -) binds tighter than any binary operator.
type precedence int

const (
	precNone precedence = iota
	precOr              // || &&
	precCmp             // == != < > <= >= ??
	precAdd             // + -
	precMul             // * / %
	precPow             // ^
	precUnary
	precPostfix
)

var binPrec = map[lexer.TokenType]precedence{
	lexer.TokOrOr:      precOr,
	lexer.TokAndAnd:    precOr,
	lexer.TokEqEq:      precCmp,
	lexer.TokNotEq:     precCmp,
	lexer.TokLess:      precCmp,
	lexer.TokGreater:   precCmp,
	lexer.TokLessEq:    precCmp,
	lexer.TokGreaterEq: precCmp,
	lexer.TokQQ:        precCmp,
	lexer.TokPlus:      precAdd,
	lexer.TokMinus:     precAdd,
	lexer.TokStar:      precMul,
	lexer.TokSlash:     precMul,
	lexer.TokPercent:   precMul,
	lexer.TokCaret:     precPow,
}

// expression parses and emits one full expression (every binary
// precedence level), leaving the resulting value on the stack.
func (c *Compiler) expression() { c.parseBinary(precOr) }

func (c *Compiler) parseBinary(minPrec precedence) {
	c.unary()
	for {
		prec, ok := binPrec[c.cur.Type]
		if !ok || prec < minPrec {
			return
		}
		op := c.cur.Type
		if err := c.advance(); err != nil {
			panic(err)
		}

		if op == lexer.TokAndAnd || op == lexer.TokOrOr {
			c.shortCircuit(op, prec)
			continue
		}
		if op == lexer.TokQQ {
			c.nilCoalesce(prec)
			continue
		}

		c.parseBinary(prec + 1)
		c.emit(binOpcode(op))
	}
}

// shortCircuit emits && / || without always evaluating the right operand:
// && jumps over the right side (leaving false) when the left is false;
// || jumps over it (leaving true) when the left is true.
func (c *Compiler) shortCircuit(op lexer.TokenType, prec precedence) {
	c.emit(bytecode.OpDup)
	var jmp int
	if op == lexer.TokAndAnd {
		jmp = c.emitJump(bytecode.OpIfFalseJumpAhead)
	} else {
		c.emit(bytecode.OpNot)
		jmp = c.emitJump(bytecode.OpIfFalseJumpAhead)
	}
	c.emit(bytecode.OpDiscardTop)
	c.parseBinary(prec + 1)
	c.patchJumpHere(jmp)
}

// nilCoalesce emits `a ?? b`: evaluate a, and if it is not nil keep it
// (IFNT_NIL_JUMP_AHEAD skips b entirely), otherwise discard the nil and
// evaluate b.
func (c *Compiler) nilCoalesce(prec precedence) {
	jmp := c.emitJump(bytecode.OpIfntNilJumpAhead)
	c.emit(bytecode.OpDiscardTop)
	c.parseBinary(prec + 1)
	c.patchJumpHere(jmp)
}

func binOpcode(t lexer.TokenType) bytecode.Op {
	switch t {
	case lexer.TokPlus:
		return bytecode.OpAdd
	case lexer.TokMinus:
		return bytecode.OpSub
	case lexer.TokStar:
		return bytecode.OpMul
	case lexer.TokSlash:
		return bytecode.OpDiv
	case lexer.TokPercent:
		return bytecode.OpMod
	case lexer.TokCaret:
		return bytecode.OpExp
	case lexer.TokEqEq:
		return bytecode.OpEquals
	case lexer.TokNotEq:
		return bytecode.OpNotEqual
	case lexer.TokLess:
		return bytecode.OpLess
	case lexer.TokGreater:
		return bytecode.OpGreater
	case lexer.TokLessEq:
		return bytecode.OpLessEqual
	case lexer.TokGreaterEq:
		return bytecode.OpGreaterEqual
	}
	panic("unreachable binary operator")
}

func (c *Compiler) unary() {
	switch c.cur.Type {
	case lexer.TokMinus:
		c.advanceOrPanic()
		c.emitConstant(value.NumberValue(0))
		c.parseBinary(precUnary)
		c.emit(bytecode.OpSub)
		return
	case lexer.TokBang:
		c.advanceOrPanic()
		c.parseBinary(precUnary)
		c.emit(bytecode.OpNot)
		return
	}
	c.postfix()
}

func (c *Compiler) advanceOrPanic() {
	if err := c.advance(); err != nil {
		panic(err)
	}
}

// postfix parses a primary expression followed by any chain of
// `.ident`, `[expr]`, and `(args)` suffixes.
func (c *Compiler) postfix() {
	c.primary()
	for {
		switch c.cur.Type {
		case lexer.TokDot:
			c.advanceOrPanic()
			name := c.expect(lexer.TokIdent, "property name")
			c.emitConstant(c.internString(name.Lexeme))
			c.emit1(bytecode.OpLoadTable, 0)
		case lexer.TokLBracket:
			c.advanceOrPanic()
			c.expression()
			c.expect(lexer.TokRBracket, "]")
			c.emit1(bytecode.OpLoadTable, 0)
		case lexer.TokLParen:
			c.callArgs()
		default:
			return
		}
	}
}

func (c *Compiler) internString(s string) value.Value {
	return value.StringValue(c.strings.Intern(s))
}

// callArgs parses `(arg, arg, ...)` and emits CALL with the argument
// count; the callee must already be on the stack beneath the arguments.
func (c *Compiler) callArgs() {
	c.advanceOrPanic() // consume '('
	n := 0
	if c.cur.Type != lexer.TokRParen {
		for {
			c.expression()
			n++
			if !c.match(lexer.TokComma) {
				break
			}
		}
	}
	c.expect(lexer.TokRParen, ")")
	if n > 255 {
		c.fail("too many call arguments (max 255)")
	}
	c.emit1(bytecode.OpCall, byte(n))
}

func (c *Compiler) primary() {
	switch c.cur.Type {
	case lexer.TokNumber:
		n := c.cur.Num
		c.advanceOrPanic()
		c.emitConstant(value.NumberValue(n))
	case lexer.TokString:
		s := c.cur.Lexeme
		c.advanceOrPanic()
		c.emitConstant(c.internString(s))
	case lexer.TokTrue:
		c.advanceOrPanic()
		c.emit(bytecode.OpPushTrue)
	case lexer.TokFalse:
		c.advanceOrPanic()
		c.emit(bytecode.OpPushFalse)
	case lexer.TokNil:
		c.advanceOrPanic()
		c.emit(bytecode.OpPushNil)
	case lexer.TokIdent:
		name := c.cur.Lexeme
		c.advanceOrPanic()
		c.load(name)
	case lexer.TokLParen:
		c.advanceOrPanic()
		c.expression()
		c.expect(lexer.TokRParen, ")")
	case lexer.TokLBracket:
		c.arrayLiteral()
	case lexer.TokLBrace:
		c.tableLiteral()
	case lexer.TokFunction, lexer.TokNoCapture:
		c.functionLiteral(false)
	default:
		c.fail("expected expression")
	}
}

// arrayLiteral compiles `[e1, e2, ...]`: allocate an array-flagged table
// sized to the element count, holding each element in order. The table
// is not marked final.
func (c *Compiler) arrayLiteral() {
	c.advanceOrPanic() // '['
	var elems int
	for c.cur.Type != lexer.TokRBracket {
		c.expression()
		elems++
		if elems > 255 {
			c.fail("too many array elements (max 255)")
		}
		if !c.match(lexer.TokComma) {
			break
		}
	}
	c.expect(lexer.TokRBracket, "]")
	c.Chunk.Emit24(bytecode.OpAllocateTableLiteral, uint32(elems), c.loc())
	c.emit1(bytecode.OpFinalizeTable, byte(value.TableArrayIterate))
}

// tableLiteral compiles `{ .name = expr, ... }` or `{ {key, val}, ... }`
// forms, up to 255 entries. Unlike arrayLiteral (one value per slot,
// matching ALLOCATE_TABLE_LITERAL's element count directly), each entry
// here is a key/value pair, so the table starts empty and each pair is
// written with a dup'd table reference plus a bracket-mode STORE_TABLE --
// ALLOCATE_TABLE_LITERAL's count always means "values already on the
// stack," which a flat key/value run would violate.
func (c *Compiler) tableLiteral() {
	c.advanceOrPanic() // '{'
	c.emit1(bytecode.OpAllocateTable, 0)
	var entries int
	for c.cur.Type != lexer.TokRBrace {
		c.emit(bytecode.OpDup)
		if c.cur.Type == lexer.TokDot {
			c.advanceOrPanic()
			name := c.expect(lexer.TokIdent, "field name")
			c.expect(lexer.TokAssign, "=")
			c.emitConstant(c.internString(name.Lexeme))
			c.expression()
		} else if c.cur.Type == lexer.TokLBrace {
			c.advanceOrPanic()
			c.expression() // key
			c.expect(lexer.TokComma, ",")
			c.expression() // value
			c.expect(lexer.TokRBrace, "}")
		} else {
			c.fail("expected .name=value or {key,value} table entry")
		}
		c.emit1(bytecode.OpStoreTable, 0)
		entries++
		if entries > 255 {
			c.fail("too many table entries (max 255)")
		}
		if !c.match(lexer.TokComma) {
			break
		}
	}
	c.expect(lexer.TokRBrace, "}")
	c.emit1(bytecode.OpFinalizeTable, byte(value.TableIsFinal))
}
