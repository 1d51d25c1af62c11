// Package bytecode holds HulaScript's instruction encoding, constant pool,
// function registry, and source-location map -- the artifacts the compiler
// produces and the interpreter consumes. Adapted from the teacher's
// internal/bytecode/opcodes.go and chunk.go, generalized from a per-function
// chunk into the single flat instruction vector the spec calls for (one
// program, many functions living at different start addresses within it).
package bytecode

// Op is one byte. Every instruction is (Op, operand byte); wider immediates
// spill into the following instruction slot(s), most-significant byte
// first (see Chunk.Emit24 and Chunk.EmitJump).
type Op byte

const (
	OpPushNil Op = iota
	OpPushTrue
	OpPushFalse
	OpLoadConstantFast // 8-bit constant id
	OpLoadConstant     // 24-bit constant id, spills into next slot

	OpDeclLocal       // operand must equal locals.len()-local_offset
	OpDeclTopLvlLocal
	OpProbeLocals  // reserve n local slots
	OpUnwindLocals // truncate locals by n
	OpLoadLocal
	OpStoreLocal

	OpDeclGlobal
	OpLoadGlobal
	OpStoreGlobal

	OpLoadTable  // pop key, pop table/foreign -> push value
	OpStoreTable // operand 1 = dot-store (chase base), 0 = bracket-store

	OpAllocateTable          // operand: initial capacity
	OpAllocateTableLiteral   // 24-bit element count, spills into next slot
	OpAllocateInheritedClass
	OpFinalizeTable

	OpCaptureFuncptr // 24-bit function id, no captures
	OpCaptureClosure // 24-bit function id, preceded by a built capture table
	OpCall           // 8-bit argument count
	OpCallLabel      // 24-bit function id, direct call (class-constructor paths)
	OpReturn

	OpDiscardTop
	OpDup

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpEquals
	OpNotEqual
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpAnd
	OpOr
	OpNot

	OpJumpAhead
	OpJumpBack
	OpIfFalseJumpAhead
	OpIfFalseJumpBack
	OpIfntNilJumpAhead // evaluate RHS only if TOS is not NIL (?? operator)

	OpLoadIterator // synthesize iterator for the "for x in E" protocol
	OpIterHasNext  // pop iterator, push whether another element remains
	OpIterNext     // pop iterator, push the next element and advance it
)

var names = map[Op]string{
	OpPushNil: "PUSH_NIL", OpPushTrue: "PUSH_TRUE", OpPushFalse: "PUSH_FALSE",
	OpLoadConstantFast: "LOAD_CONSTANT_FAST", OpLoadConstant: "LOAD_CONSTANT",
	OpDeclLocal: "DECL_LOCAL", OpDeclTopLvlLocal: "DECL_TOPLVL_LOCAL",
	OpProbeLocals: "PROBE_LOCALS", OpUnwindLocals: "UNWIND_LOCALS",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpDeclGlobal: "DECL_GLOBAL", OpLoadGlobal: "LOAD_GLOBAL", OpStoreGlobal: "STORE_GLOBAL",
	OpLoadTable: "LOAD_TABLE", OpStoreTable: "STORE_TABLE",
	OpAllocateTable: "ALLOCATE_TABLE", OpAllocateTableLiteral: "ALLOCATE_TABLE_LITERAL",
	OpAllocateInheritedClass: "ALLOCATE_INHERITED_CLASS", OpFinalizeTable: "FINALIZE_TABLE",
	OpCaptureFuncptr: "CAPTURE_FUNCPTR", OpCaptureClosure: "CAPTURE_CLOSURE",
	OpCall: "CALL", OpCallLabel: "CALL_LABEL", OpReturn: "RETURN",
	OpDiscardTop: "DISCARD_TOP", OpDup: "DUP",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpExp: "EXP",
	OpEquals: "EQUALS", OpNotEqual: "NOT_EQUAL",
	OpLess: "LESS", OpGreater: "GREATER", OpLessEqual: "LESS_EQUAL", OpGreaterEqual: "GREATER_EQUAL",
	OpAnd: "AND", OpOr: "OR", OpNot: "NOT",
	OpJumpAhead: "JUMP_AHEAD", OpJumpBack: "JUMP_BACK",
	OpIfFalseJumpAhead: "IF_FALSE_JUMP_AHEAD", OpIfFalseJumpBack: "IF_FALSE_JUMP_BACK",
	OpIfntNilJumpAhead: "IFNT_NIL_JUMP_AHEAD",
	OpLoadIterator:     "LOAD_ITERATOR",
	OpIterHasNext:      "ITER_HAS_NEXT",
	OpIterNext:         "ITER_NEXT",
}

func (o Op) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return "UNKNOWN_OP"
}
