// Package polynomial implements the coefficient-vector polynomials used by
// DKG, resharing, and recovery, plus the Lagrange and Birkhoff interpolation
// machinery threshold signing and recovery need.
//
// All coefficient and interpolation arithmetic happens in the secp256k1
// scalar field (never in fixed-width integers): design note §9 of the
// specification calls out that a naive 64-bit Lagrange implementation
// silently overflows once n >= 14, and every function here is built to avoid
// that trap by construction.
package polynomial

import (
	"crypto/rand"
	"fmt"

	"github.com/cronokirby/saferith"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
)

// Polynomial is a coefficient vector [a0, a1, ..., a_{degree}] of degree
// `degree` in the scalar field. Coefficient i corresponds to a0..a_degree:
// len(coeffs) == degree+1.
type Polynomial struct {
	coeffs []*curve.Scalar
}

// New builds a Polynomial of the given degree with a0 fixed to constant and
// the remaining coefficients sampled uniformly at random. This is Round 1 of
// DKG: "party i's Round-1 polynomial has a0 random and the remaining
// coefficients random" (callers pass a freshly sampled constant for that
// case) or, for reshare's zero-polynomial, a0 fixed to the literal zero
// scalar (use NewZero instead, which makes that explicit).
func New(degree int, constant *curve.Scalar) (*Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("polynomial: negative degree %d", degree)
	}
	coeffs := make([]*curve.Scalar, degree+1)
	coeffs[0] = constant.Clone()
	for i := 1; i <= degree; i++ {
		c, err := curve.RandomScalar(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("polynomial: sampling coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &Polynomial{coeffs: coeffs}, nil
}

// NewZero builds a zero-polynomial of the given degree: a0 is the literal
// zero scalar and a1..a_degree are random. The discipline from design note
// §9 is to start coefficient sampling at index 1, never to sample a0 and
// then overwrite it, so the constant term's zero-ness is structural.
func NewZero(degree int) (*Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("polynomial: negative degree %d", degree)
	}
	coeffs := make([]*curve.Scalar, degree+1)
	coeffs[0] = curve.NewScalar()
	for i := 1; i <= degree; i++ {
		c, err := curve.RandomScalar(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("polynomial: sampling coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &Polynomial{coeffs: coeffs}, nil
}

// FromCoefficients wraps an already-built coefficient vector, used when
// reconstructing a Polynomial from received commitments/shares rather than
// sampling one.
func FromCoefficients(coeffs []*curve.Scalar) *Polynomial {
	return &Polynomial{coeffs: coeffs}
}

// Degree returns the polynomial's degree.
func (p *Polynomial) Degree() int { return len(p.coeffs) - 1 }

// Constant returns a0.
func (p *Polynomial) Constant() *curve.Scalar { return p.coeffs[0] }

// Evaluate computes f(x) via Horner's method.
func (p *Polynomial) Evaluate(x *curve.Scalar) *curve.Scalar {
	result := curve.NewScalar()
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(p.coeffs[i])
	}
	return result
}

// EvaluateAt is a convenience wrapper for evaluating at a party index.
func (p *Polynomial) EvaluateAt(id frostparty.ID) *curve.Scalar {
	return p.Evaluate(id.Scalar())
}

// EvaluateDerivative computes the `order`-th derivative of f evaluated at x:
//
//	f^(order)(x) = sum_{k>=order} (k! / (k-order)!) * a_k * x^(k-order)
//
// order 0 reduces to Evaluate. This is the HTSS Round-2 share emission
// formula of spec §4.1: "evaluate the r_j-th derivative f_i^(r_j) at j".
func (p *Polynomial) EvaluateDerivative(x *curve.Scalar, order int) *curve.Scalar {
	if order == 0 {
		return p.Evaluate(x)
	}
	result := curve.NewScalar()
	for k := len(p.coeffs) - 1; k >= order; k-- {
		coeff := fallingFactorialScalar(k, order)
		term := p.coeffs[k].Mul(coeff)
		// term *= x^(k-order)
		xp := powScalar(x, k-order)
		term = term.Mul(xp)
		result = result.Add(term)
	}
	return result
}

// Commit returns the coefficient commitments [a_k * G], the values DKG and
// reshare broadcast so receivers can verify their share without learning the
// sender's coefficients.
func (p *Polynomial) Commit() []*curve.Point {
	out := make([]*curve.Point, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = c.ActOnBase()
	}
	return out
}

// VerifyShare checks that share == f(x) given only the sender's commitments,
// using the generalized HTSS verification formula from spec §4.1 step 2:
//
//	share*G == sum_k (k!/(k-order)!) * x^(k-order) * C_k
//
// order 0 reduces to the standard sum_k x^k * C_k check.
func VerifyShare(share *curve.Scalar, x *curve.Scalar, order int, commitments []*curve.Point) bool {
	expected := curve.NewPoint()
	for k := order; k < len(commitments); k++ {
		coeff := fallingFactorialScalar(k, order)
		xp := powScalar(x, k-order)
		scalar := coeff.Mul(xp)
		expected = expected.Add(scalar.Act(commitments[k]))
	}
	return share.ActOnBase().Equal(expected)
}

func powScalar(x *curve.Scalar, n int) *curve.Scalar {
	result := curve.ScalarFromUint64(1)
	base := x.Clone()
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return result
}

// fallingFactorialScalar computes k!/(k-order)! = k*(k-1)*...*(k-order+1) in
// arbitrary precision (via math/big, since these are small non-secret
// integers, not field elements, until the final reduction) and embeds the
// result into the scalar field through saferith.Nat, the same bridge type
// the teacher uses for every integer-to-scalar conversion.
func fallingFactorialScalar(k, order int) *curve.Scalar {
	acc := uint64(1)
	bigAcc := (*saferith.Nat)(nil)
	for i := 0; i < order; i++ {
		factor := uint64(k - i)
		if acc > (1<<63)/factor {
			// Overflow guard: fall back to saferith-backed big accumulation.
			if bigAcc == nil {
				bigAcc = new(saferith.Nat).SetUint64(acc)
			}
			bigAcc = mulNatUint64(bigAcc, factor)
			acc = 0
			continue
		}
		acc *= factor
	}
	if bigAcc == nil {
		return curve.ScalarFromUint64(acc)
	}
	if acc != 0 {
		bigAcc = mulNatUint64(bigAcc, acc)
	}
	return curve.ScalarFromNat(bigAcc)
}

// mulNatUint64 multiplies a saferith.Nat by a uint64. saferith.Nat's Mul
// takes an explicit result bit-length cap; falling factorials only ever
// involve `order`/`k` bounded by the protocol's threshold, so padding the
// cap by 64 bits per multiplication is always generous enough.
func mulNatUint64(n *saferith.Nat, factor uint64) *saferith.Nat {
	f := new(saferith.Nat).SetUint64(factor)
	return new(saferith.Nat).Mul(n, f, n.TrueBitLen()+64)
}
