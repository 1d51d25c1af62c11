package objects

import (
	"fmt"
	"math/big"
	"strings"

	"hulascript/internal/foreign"
	"hulascript/internal/instance"
	"hulascript/internal/value"
)

var RationalMethods = foreign.MethodTable{
	"numerator":   0,
	"denominator": 1,
	"to_number":   2,
	"to_frac":     3,
}

// Rational is an exact fraction, kept in lowest terms by math/big.Rat,
// for script code that needs exact arithmetic a float64 can't give
// (row reduction, accounting totals, probability fractions). reg lets
// the operator methods below resolve/construct foreign objects directly,
// since foreign.Object's Add/Subtract/... methods are not handed a Host
// the way CallMethod is.
type Rational struct {
	foreign.Base
	reg *foreign.Registry
	id  uint32
	val *big.Rat
}

func NewRational(reg *foreign.Registry, num, den int64) (*Rational, error) {
	if den == 0 {
		return nil, fmt.Errorf("rational: denominator cannot be zero")
	}
	return &Rational{Base: foreign.Base{TypeName: "rational"}, reg: reg, val: big.NewRat(num, den)}, nil
}

// register adds r to its registry and remembers its own id, so
// LoadProperty can hand back a FOREIGN_OBJECT_METHOD value bound to
// this instance rather than a dangling or wrong one.
func (r *Rational) register() value.Value {
	v := value.ForeignObjectValue(r.reg.AddObject(r))
	r.id = v.DataID
	return v
}

// ParseRational reads a decimal literal ("3.14", "-12.5", "7") into an
// exact fraction, the way the original rational::parse builds one digit
// at a time instead of going through a lossy float64 parse.
func ParseRational(reg *foreign.Registry, s string) (*Rational, error) {
	negate := false
	decimalSeen := false
	var intPart strings.Builder
	decimalDigits := 0

	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			intPart.WriteRune(c)
			if decimalSeen {
				decimalDigits++
			}
		case c == '.':
			if decimalSeen {
				return nil, fmt.Errorf("rational: parse %q: two decimal points", s)
			}
			decimalSeen = true
		case c == '-':
			if negate {
				return nil, fmt.Errorf("rational: parse %q: two minus signs", s)
			}
			negate = true
		default:
			return nil, fmt.Errorf("rational: parse %q: must be digits, '.', or a leading '-'", s)
		}
	}
	if intPart.Len() == 0 {
		return nil, fmt.Errorf("rational: parse %q: no digits", s)
	}

	numerator, ok := new(big.Int).SetString(intPart.String(), 10)
	if !ok {
		return nil, fmt.Errorf("rational: parse %q: invalid digits", s)
	}
	denominator := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalDigits)), nil)
	if negate {
		numerator.Neg(numerator)
	}
	return &Rational{Base: foreign.Base{TypeName: "rational"}, reg: reg, val: new(big.Rat).SetFrac(numerator, denominator)}, nil
}

// ToString renders a terminating decimal when the reduced denominator's
// only prime factors are 2 and 5 (the same case the original's to_string
// special-cases), and falls back to a num/den fraction otherwise.
func (r *Rational) ToString() string {
	den := new(big.Int).Set(r.val.Denom())
	twos, fives := 0, 0
	for new(big.Int).Mod(den, big.NewInt(2)).Sign() == 0 {
		den.Div(den, big.NewInt(2))
		twos++
	}
	for new(big.Int).Mod(den, big.NewInt(5)).Sign() == 0 {
		den.Div(den, big.NewInt(5))
		fives++
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return r.val.RatString()
	}
	digits := twos
	if fives > digits {
		digits = fives
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	scaled := new(big.Rat).Mul(r.val, new(big.Rat).SetInt(scale))
	s := scaled.Num().String() // scaled is always an integer by construction
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	if digits == 0 {
		if negative {
			return "-" + s
		}
		return s
	}
	for len(s) <= digits {
		s = "0" + s
	}
	whole, frac := s[:len(s)-digits], s[len(s)-digits:]
	out := whole + "." + frac
	if negative {
		out = "-" + out
	}
	return out
}

func (r *Rational) LoadProperty(nameHash uint64) (value.Value, bool) {
	return RationalMethods.Resolve(r.id, nameHash)
}

func (r *Rational) CallMethod(methodID uint32, args []value.Value, host foreign.Host) (value.Value, error) {
	switch methodID {
	case RationalMethods["numerator"]:
		n, _ := new(big.Float).SetInt(r.val.Num()).Float64()
		return value.NumberValue(n), nil
	case RationalMethods["denominator"]:
		d, _ := new(big.Float).SetInt(r.val.Denom()).Float64()
		return value.NumberValue(d), nil
	case RationalMethods["to_number"]:
		n, _ := r.val.Float64()
		return value.NumberValue(n), nil
	case RationalMethods["to_frac"]:
		return host.MakeString(r.val.RatString()), nil
	default:
		return value.Value{}, fmt.Errorf("rational: no such method id %d", methodID)
	}
}

// operand resolves an operator's right-hand side into a *big.Rat: a
// plain number converts via SetFloat64 (exact for any float64, since
// that is itself just a binary fraction), a rational foreign object
// contributes its own exact value.
func (r *Rational) operand(other value.Value) (*big.Rat, error) {
	switch other.Tag {
	case value.Number:
		rat := new(big.Rat)
		if rat.SetFloat64(other.Num) == nil {
			return nil, fmt.Errorf("rational: %g is not a finite number", other.Num)
		}
		return rat, nil
	case value.ForeignObject:
		obj, ok := r.reg.Object(other.DataID)
		if !ok {
			return nil, fmt.Errorf("rational: dangling foreign object reference")
		}
		o, ok := obj.(*Rational)
		if !ok {
			return nil, fmt.Errorf("rational: operator requires another rational, got %s", other.TypeName())
		}
		return o.val, nil
	default:
		return nil, fmt.Errorf("rational: operator requires a number or rational, got %s", other.TypeName())
	}
}

func (r *Rational) wrap(v *big.Rat) value.Value {
	out := &Rational{Base: foreign.Base{TypeName: "rational"}, reg: r.reg, val: v}
	return out.register()
}

func (r *Rational) Add(other value.Value) (value.Value, error) {
	b, err := r.operand(other)
	if err != nil {
		return value.Value{}, err
	}
	return r.wrap(new(big.Rat).Add(r.val, b)), nil
}

func (r *Rational) Subtract(other value.Value) (value.Value, error) {
	b, err := r.operand(other)
	if err != nil {
		return value.Value{}, err
	}
	return r.wrap(new(big.Rat).Sub(r.val, b)), nil
}

func (r *Rational) Multiply(other value.Value) (value.Value, error) {
	b, err := r.operand(other)
	if err != nil {
		return value.Value{}, err
	}
	return r.wrap(new(big.Rat).Mul(r.val, b)), nil
}

func (r *Rational) Divide(other value.Value) (value.Value, error) {
	b, err := r.operand(other)
	if err != nil {
		return value.Value{}, err
	}
	if b.Sign() == 0 {
		return value.Value{}, fmt.Errorf("rational: division by zero")
	}
	return r.wrap(new(big.Rat).Quo(r.val, b)), nil
}

// Modulo computes the exact remainder a - b*floor(a/b), matching the
// sign of the divisor the way Python's % does, since big.Rat has no
// built-in modulo.
func (r *Rational) Modulo(other value.Value) (value.Value, error) {
	b, err := r.operand(other)
	if err != nil {
		return value.Value{}, err
	}
	if b.Sign() == 0 {
		return value.Value{}, fmt.Errorf("rational: modulo by zero")
	}
	q := new(big.Rat).Quo(r.val, b)
	floor := new(big.Int).Div(q.Num(), q.Denom())
	rem := new(big.Rat).Sub(r.val, new(big.Rat).Mul(b, new(big.Rat).SetInt(floor)))
	return r.wrap(rem), nil
}

// Exponentiate supports an integer exponent (any rational raised to a
// whole power stays exact); a fractional exponent has no general exact
// rational result, so it is reported as unsupported rather than
// silently falling back to an inexact float.
func (r *Rational) Exponentiate(other value.Value) (value.Value, error) {
	b, err := r.operand(other)
	if err != nil {
		return value.Value{}, err
	}
	if !b.IsInt() {
		return value.Value{}, fmt.Errorf("rational: only integer exponents preserve exactness")
	}
	exp := b.Num()
	neg := exp.Sign() < 0
	if neg {
		exp = new(big.Int).Neg(exp)
	}
	num := new(big.Int).Exp(r.val.Num(), exp, nil)
	den := new(big.Int).Exp(r.val.Denom(), exp, nil)
	result := new(big.Rat).SetFrac(num, den)
	if neg {
		if result.Sign() == 0 {
			return value.Value{}, fmt.Errorf("rational: zero cannot be raised to a negative power")
		}
		result.Inv(result)
	}
	return r.wrap(result), nil
}

// RegisterRational binds make_rational(num, den) and rational_parse(str)
// as globals; +, -, *, /, %, and ^ on the resulting values dispatch
// through Rational's own operator methods (see internal/vm/arith.go's
// foreignArith), not through free functions.
func RegisterRational(in *instance.Instance) bool {
	make_ := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		if len(args) != 2 || args[0].Tag != value.Number || args[1].Tag != value.Number {
			return value.Value{}, fmt.Errorf("make_rational(num, den) requires two numbers")
		}
		r, err := NewRational(in.Foreign, int64(args[0].Num), int64(args[1].Num))
		if err != nil {
			return value.Value{}, err
		}
		return r.register(), nil
	})
	ok := in.DeclareGlobal("make_rational", make_)

	parse := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		if len(args) != 1 || args[0].Tag != value.String {
			return value.Value{}, fmt.Errorf("rational_parse(str) requires one string")
		}
		r, err := ParseRational(in.Foreign, args[0].Str.Data)
		if err != nil {
			return value.Value{}, err
		}
		return r.register(), nil
	})
	return in.DeclareGlobal("rational_parse", parse) && ok
}
