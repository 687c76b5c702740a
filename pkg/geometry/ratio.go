package geometry

import (
	"fmt"
	"math"
	"math/big"
)

// Ratio is an exact width:height aspect ratio kept in lowest terms.
// The zero value is the undefined ratio (0:0).
type Ratio struct {
	p int64
	q int64
}

// Undefined is the ratio of anything with a zero side
var Undefined = Ratio{}

// NewRatio creates a reduced ratio p:q. A zero numerator or denominator
// yields Undefined; the sign is always carried by the numerator.
func NewRatio(p, q int64) Ratio {
	if p == 0 || q == 0 {
		return Undefined
	}
	return fromRat(new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q)))
}

// fromRat narrows an already reduced big.Rat. Callers check the range first.
func fromRat(r *big.Rat) Ratio {
	if r.Sign() == 0 {
		return Undefined
	}
	return Ratio{p: r.Num().Int64(), q: r.Denom().Int64()}
}

// Num returns the reduced numerator
func (r Ratio) Num() int64 {
	return r.p
}

// Denom returns the reduced denominator
func (r Ratio) Denom() int64 {
	return r.q
}

// IsUndefined reports whether the ratio has a zero term
func (r Ratio) IsUndefined() bool {
	return r.p == 0 || r.q == 0
}

// IsLargerOnWidth reports whether the ratio is wider than tall
func (r Ratio) IsLargerOnWidth() bool {
	return r.p > r.q
}

// IsLargerOnHeight reports whether the ratio is taller than wide
func (r Ratio) IsLargerOnHeight() bool {
	return r.p < r.q
}

// Equal reports whether both ratios describe the same rational number
func (r Ratio) Equal(o Ratio) bool {
	return r.p == o.p && r.q == o.q
}

// Float64 returns an approximation for display purposes only
func (r Ratio) Float64() float64 {
	if r.IsUndefined() {
		return 0
	}
	return float64(r.p) / float64(r.q)
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d:%d", r.p, r.q)
}

// WidthForHeight returns round(p*h/q), rounding halves away from zero
func (r Ratio) WidthForHeight(h int) int {
	if r.IsUndefined() {
		return 0
	}
	return roundQuo(big.NewInt(r.p), big.NewInt(int64(h)), big.NewInt(r.q))
}

// HeightForWidth returns round(q*w/p), rounding halves away from zero
func (r Ratio) HeightForWidth(w int) int {
	if r.IsUndefined() {
		return 0
	}
	return roundQuo(big.NewInt(r.q), big.NewInt(int64(w)), big.NewInt(r.p))
}

// Mul returns r*o
func (r Ratio) Mul(o Ratio) (Ratio, error) {
	if r.IsUndefined() || o.IsUndefined() {
		return Undefined, nil
	}
	res := new(big.Rat).Mul(r.rat(), o.rat())
	return narrow("multiply", res)
}

// Div returns r/o. Dividing by an undefined ratio yields Undefined.
func (r Ratio) Div(o Ratio) (Ratio, error) {
	if r.IsUndefined() || o.IsUndefined() {
		return Undefined, nil
	}
	res := new(big.Rat).Quo(r.rat(), o.rat())
	return narrow("divide", res)
}

// AddInt returns r+n
func (r Ratio) AddInt(n int64) (Ratio, error) {
	if r.IsUndefined() {
		return Undefined, nil
	}
	res := new(big.Rat).Add(r.rat(), new(big.Rat).SetInt64(n))
	return narrow("add", res)
}

func (r Ratio) rat() *big.Rat {
	return new(big.Rat).SetFrac(big.NewInt(r.p), big.NewInt(r.q))
}

// narrow stores a reduced result back into int64 terms
func narrow(op string, res *big.Rat) (Ratio, error) {
	if !res.Num().IsInt64() || !res.Denom().IsInt64() {
		return Undefined, &OverflowError{
			Op:    op,
			Num:   res.Num().String(),
			Denom: res.Denom().String(),
		}
	}
	return fromRat(res), nil
}

var (
	bigMaxInt = big.NewInt(math.MaxInt)
	bigMinInt = big.NewInt(math.MinInt)
)

// roundQuo computes round(a*b/c) with halves rounded away from zero.
// Results outside the int range saturate.
func roundQuo(a, b, c *big.Int) int {
	num := new(big.Int).Mul(a, b)
	den := new(big.Int).Set(c)
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}

	// |num|/den + 1/2 truncated == round half away from zero of |num|/den
	neg := num.Sign() < 0
	num.Abs(num)
	num.Mul(num, big.NewInt(2))
	num.Add(num, den)
	den.Mul(den, big.NewInt(2))
	q := num.Quo(num, den)
	if neg {
		q.Neg(q)
	}

	switch {
	case q.Cmp(bigMaxInt) > 0:
		return math.MaxInt
	case q.Cmp(bigMinInt) < 0:
		return math.MinInt
	}
	return int(q.Int64())
}
