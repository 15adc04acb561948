package polynomial

import (
	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
)

// LagrangeCoefficients returns, for every id in ids, the coefficient
// lambda_id such that sum_id lambda_id * f(id) == f(at) for any degree
// len(ids)-1 polynomial f. Passing at == the zero scalar recovers the
// constant term, the case signing and flat-TSS recovery both use; recovery
// of a specific lost party's sub-share instead evaluates at that party's own
// index (LagrangeAt).
//
// This generalizes the teacher's fixed "evaluate at 0" Lagrange helper to an
// arbitrary evaluation point, the form HTSS sub-share recovery needs.
func LagrangeCoefficients(ids frostparty.IDSlice, at *curve.Scalar) map[frostparty.ID]*curve.Scalar {
	out := make(map[frostparty.ID]*curve.Scalar, len(ids))
	for _, i := range ids {
		xi := i.Scalar()
		num := curve.ScalarFromUint64(1)
		den := curve.ScalarFromUint64(1)
		for _, j := range ids {
			if j == i {
				continue
			}
			xj := j.Scalar()
			// num *= (at - xj)
			num = num.Mul(at.Sub(xj))
			// den *= (xi - xj)
			den = den.Mul(xi.Sub(xj))
		}
		out[i] = num.Mul(den.Invert())
	}
	return out
}

// Lagrange returns the coefficients recovering the constant term f(0) from
// shares at ids, the form FROST signing and flat-TSS recovery use.
func Lagrange(ids frostparty.IDSlice) map[frostparty.ID]*curve.Scalar {
	return LagrangeCoefficients(ids, curve.NewScalar())
}

// InterpolateAt reconstructs f(at) from the shares of f at ids, given as a
// map keyed by party ID.
func InterpolateAt(shares map[frostparty.ID]*curve.Scalar, at *curve.Scalar) *curve.Scalar {
	ids := make(frostparty.IDSlice, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	coeffs := LagrangeCoefficients(ids, at)
	sum := curve.NewScalar()
	for id, share := range shares {
		sum = sum.Add(coeffs[id].Mul(share))
	}
	return sum
}

// Interpolate reconstructs f(0), the secret, from the shares of f.
func Interpolate(shares map[frostparty.ID]*curve.Scalar) *curve.Scalar {
	return InterpolateAt(shares, curve.NewScalar())
}
