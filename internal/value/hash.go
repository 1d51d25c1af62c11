package value

import "math"

// Djb2 reimplements the source language's string hash bit-exact: accumulator
// starts at 5381, each byte folds in as h*33+c. INTERNAL_STRHASH values and
// every table key hash are computed with this function so precomputed keys
// emitted by the compiler agree with hashes computed at run time.
func Djb2(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}
	return h
}

// HashBytes extends Djb2 to an arbitrary byte sequence, used when hashing a
// value's serialized form for EQUALS/NOT_EQUAL and table-key comparisons.
func HashBytes(b []byte) uint64 {
	h := uint64(5381)
	for _, c := range b {
		h = h*33 + uint64(c)
	}
	return h
}

// Hash computes the djb2 hash of a value's canonical serialized form. Two
// values with equal Hash are treated as equal keys -- collisions are a
// documented limitation, not a bug (spec.md Design Notes / Open Questions).
func Hash(v Value) uint64 {
	switch v.Tag {
	case Nil:
		return Djb2("nil")
	case Boolean:
		if v.Bool {
			return Djb2("true")
		}
		return Djb2("false")
	case Number:
		bits := math.Float64bits(v.Num)
		buf := [8]byte{
			byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24),
			byte(bits >> 32), byte(bits >> 40), byte(bits >> 48), byte(bits >> 56),
		}
		return HashBytes(buf[:])
	case String:
		if v.Str != nil {
			return v.Str.Hash
		}
		return Djb2("")
	case InternalStrHash:
		return v.Hash
	case Table:
		return uint64(v.DataID) ^ 0x7461626c65 // "table" salt so ids don't collide with numbers
	case Closure:
		return uint64(v.FuncID) ^ 0x636c6f73 // "clos" salt
	case ForeignObject:
		return uint64(v.DataID) ^ 0x666f626a // "fobj" salt
	case ForeignObjectMethod:
		return uint64(v.DataID)<<32 | uint64(v.MethodID)
	case ForeignFunction:
		return uint64(v.FuncID) ^ 0x66666e // "ffn" salt
	default:
		return 0
	}
}
