package bytecode

import "fmt"

// FuncID is a 24-bit function id (max 2^24 functions per spec.md).
type FuncID uint32

// FunctionEntry is a function's registry metadata: entry address, length,
// arity, and the sets of constants/functions it references -- the roots
// the GC must trace to decide whether the function itself stays reachable.
type FunctionEntry struct {
	ID             FuncID
	Name           string
	StartAddress   int
	Length         int
	ParameterCount int
	NoCapture      bool
	IsClassMethod  bool

	ReferencedFunctions map[FuncID]struct{}
	ReferencedConstants map[ConstID]struct{}
}

// FunctionRegistry is the per-program table of function metadata.
type FunctionRegistry struct {
	entries map[FuncID]*FunctionEntry
	nextID  FuncID
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{entries: make(map[FuncID]*FunctionEntry)}
}

// Declare reserves a new function id; the caller fills in StartAddress and
// Length once the body has been emitted (a function's own body may
// reference its own id before Length is known, e.g. recursive calls).
func (r *FunctionRegistry) Declare(name string, paramCount int) (*FunctionEntry, error) {
	if r.nextID >= maxPoolID {
		return nil, fmt.Errorf("bytecode: function registry exhausted (max %d)", maxPoolID)
	}
	id := r.nextID
	r.nextID++
	fe := &FunctionEntry{
		ID:                  id,
		Name:                name,
		ParameterCount:      paramCount,
		ReferencedFunctions: make(map[FuncID]struct{}),
		ReferencedConstants: make(map[ConstID]struct{}),
	}
	r.entries[id] = fe
	return fe, nil
}

func (r *FunctionRegistry) Get(id FuncID) (*FunctionEntry, bool) {
	fe, ok := r.entries[id]
	return fe, ok
}

func (r *FunctionRegistry) Release(id FuncID) {
	delete(r.entries, id)
}

func (r *FunctionRegistry) Len() int { return len(r.entries) }

func (r *FunctionRegistry) IDs() []FuncID {
	ids := make([]FuncID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// ByAddress finds the function whose [StartAddress, StartAddress+Length)
// contains ip, used to label stack-trace frames with an enclosing function
// name and to bound instruction-compaction shifts.
func (r *FunctionRegistry) ByAddress(ip int) (*FunctionEntry, bool) {
	for _, fe := range r.entries {
		if ip >= fe.StartAddress && ip < fe.StartAddress+fe.Length {
			return fe, true
		}
	}
	return nil, false
}
