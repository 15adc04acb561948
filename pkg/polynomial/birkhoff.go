package polynomial

import (
	"fmt"
	"math/big"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
)

// Contributor is one signer's (index, rank) pair for Birkhoff interpolation:
// the signer at party index X contributed the rank-th derivative of the
// shared polynomial evaluated at X.
type Contributor struct {
	ID   frostparty.ID
	Rank int
}

// CheckPolya verifies the Pólya condition the specification requires of any
// HTSS signer set: sorted by ascending rank, the i-th contributor's rank
// (0-indexed) must not exceed i. Without this, the Birkhoff matrix built
// from the set is singular and no secret can be recovered.
func CheckPolya(contributors []Contributor) error {
	ranks := make([]int, len(contributors))
	for i, c := range contributors {
		ranks[i] = c.Rank
	}
	sortInts(ranks)
	for i, r := range ranks {
		if r > i {
			return frosterr.New("polynomial.CheckPolya", frosterr.SignerSetInvalid,
				fmt.Errorf("rank %d at sorted position %d violates the Pólya condition", r, i))
		}
	}
	return nil
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// BirkhoffWeights returns, for a set of t contributors satisfying the Pólya
// condition, the weights w_id such that sum_id w_id * share_id == f(0) for
// any degree t-1 polynomial f, where share_id == f^(rank_id)(id).
//
// The matrix B (B[j][k] = k!/(k-r_j)! * x_j^(k-r_j) for k>=r_j, else 0) is
// inverted over exact rational arithmetic (math/big.Rat) rather than
// floating point, per the specification's resolution of its Birkhoff
// inversion open question, then the first row of B^-1 is reduced into the
// scalar field. Exact rationals avoid the precision loss a float64 inversion
// would introduce for larger t.
func BirkhoffWeights(contributors []Contributor) (map[frostparty.ID]*curve.Scalar, error) {
	if err := CheckPolya(contributors); err != nil {
		return nil, err
	}
	t := len(contributors)
	if t == 0 {
		return nil, frosterr.New("polynomial.BirkhoffWeights", frosterr.SignerSetInvalid,
			fmt.Errorf("empty contributor set"))
	}

	B := make([][]*big.Rat, t)
	for j, c := range contributors {
		row := make([]*big.Rat, t)
		x := new(big.Int).SetUint64(uint64(c.ID))
		for k := 0; k < t; k++ {
			if k < c.Rank {
				row[k] = new(big.Rat)
				continue
			}
			coeff := fallingFactorialBig(k, c.Rank)
			xp := new(big.Int).Exp(x, big.NewInt(int64(k-c.Rank)), nil)
			row[k] = new(big.Rat).SetInt(new(big.Int).Mul(coeff, xp))
		}
		B[j] = row
	}

	inv, err := invertRatMatrix(B)
	if err != nil {
		return nil, frosterr.New("polynomial.BirkhoffWeights", frosterr.SignerSetInvalid, err)
	}

	weights := make(map[frostparty.ID]*curve.Scalar, t)
	for j, c := range contributors {
		weights[c.ID] = ratToScalar(inv[0][j])
	}
	return weights, nil
}

// BirkhoffWeightsAt generalizes BirkhoffWeights from recovering f(0) to
// recovering an arbitrary functional f^(atRank)(atID): the form share
// recovery needs when reconstructing a lost party's own (possibly
// higher-rank) sub-share rather than the group secret. BirkhoffWeights is
// the atRank=0, atID=0 special case of this (its functional vector is the
// standard basis vector e_0, which is exactly row 0 of B^-1).
func BirkhoffWeightsAt(contributors []Contributor, atID frostparty.ID, atRank int) (map[frostparty.ID]*curve.Scalar, error) {
	if err := CheckPolya(contributors); err != nil {
		return nil, err
	}
	t := len(contributors)
	if t == 0 {
		return nil, frosterr.New("polynomial.BirkhoffWeightsAt", frosterr.SignerSetInvalid,
			fmt.Errorf("empty contributor set"))
	}

	B := make([][]*big.Rat, t)
	for j, c := range contributors {
		row := make([]*big.Rat, t)
		x := new(big.Int).SetUint64(uint64(c.ID))
		for k := 0; k < t; k++ {
			if k < c.Rank {
				row[k] = new(big.Rat)
				continue
			}
			coeff := fallingFactorialBig(k, c.Rank)
			xp := new(big.Int).Exp(x, big.NewInt(int64(k-c.Rank)), nil)
			row[k] = new(big.Rat).SetInt(new(big.Int).Mul(coeff, xp))
		}
		B[j] = row
	}

	inv, err := invertRatMatrix(B)
	if err != nil {
		return nil, frosterr.New("polynomial.BirkhoffWeightsAt", frosterr.SignerSetInvalid, err)
	}

	// c[k] = k!/(k-atRank)! * atID^(k-atRank) for k >= atRank, else 0 — the
	// functional row for f^(atRank)(atID), mirrored from the same formula
	// EvaluateDerivative uses in scalar-field form.
	atX := new(big.Int).SetUint64(uint64(atID))
	c := make([]*big.Rat, t)
	for k := 0; k < t; k++ {
		if k < atRank {
			c[k] = new(big.Rat)
			continue
		}
		coeff := fallingFactorialBig(k, atRank)
		xp := new(big.Int).Exp(atX, big.NewInt(int64(k-atRank)), nil)
		c[k] = new(big.Rat).SetInt(new(big.Int).Mul(coeff, xp))
	}

	weights := make(map[frostparty.ID]*curve.Scalar, t)
	for j, contributor := range contributors {
		acc := new(big.Rat)
		for k := 0; k < t; k++ {
			if c[k].Sign() == 0 {
				continue
			}
			term := new(big.Rat).Mul(c[k], inv[k][j])
			acc.Add(acc, term)
		}
		weights[contributor.ID] = ratToScalar(acc)
	}
	return weights, nil
}

// fallingFactorialBig computes k!/(k-order)! as an exact big.Int.
func fallingFactorialBig(k, order int) *big.Int {
	acc := big.NewInt(1)
	for i := 0; i < order; i++ {
		acc.Mul(acc, big.NewInt(int64(k-i)))
	}
	return acc
}

// ratToScalar reduces a rational number into the scalar field: num * inverse(den) mod n.
func ratToScalar(r *big.Rat) *curve.Scalar {
	num := new(big.Int).Set(r.Num())
	den := new(big.Int).Set(r.Denom())
	negative := num.Sign() < 0
	if negative {
		num.Neg(num)
	}
	numScalar := curve.ScalarFromBigInt(num)
	denScalar := curve.ScalarFromBigInt(den)
	result := numScalar.Mul(denScalar.Invert())
	return result.CondNegate(negative)
}

// invertRatMatrix inverts a square matrix of exact rationals via
// Gauss-Jordan elimination with the identity matrix augmented alongside.
func invertRatMatrix(m [][]*big.Rat) ([][]*big.Rat, error) {
	n := len(m)
	aug := make([][]*big.Rat, n)
	for i := range aug {
		aug[i] = make([]*big.Rat, 2*n)
		for j := 0; j < n; j++ {
			aug[i][j] = new(big.Rat).Set(m[i][j])
		}
		for j := 0; j < n; j++ {
			if i == j {
				aug[i][n+j] = big.NewRat(1, 1)
			} else {
				aug[i][n+j] = new(big.Rat)
			}
		}
	}

	for col := 0; col < n; col++ {
		pivot := -1
		for row := col; row < n; row++ {
			if aug[row][col].Sign() != 0 {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return nil, fmt.Errorf("matrix is singular: signer set's ranks/indices do not span the polynomial")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		inv := new(big.Rat).Inv(aug[col][col])
		for j := 0; j < 2*n; j++ {
			aug[col][j].Mul(aug[col][j], inv)
		}

		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := new(big.Rat).Set(aug[row][col])
			if factor.Sign() == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				term := new(big.Rat).Mul(factor, aug[col][j])
				aug[row][j].Sub(aug[row][j], term)
			}
		}
	}

	out := make([][]*big.Rat, n)
	for i := range out {
		out[i] = aug[i][n:]
	}
	return out, nil
}
