package polynomial_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/polynomial"
)

func TestEvaluateMatchesConstantAtZero(t *testing.T) {
	secret, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)

	p, err := polynomial.New(2, secret)
	require.NoError(t, err)

	got := p.Evaluate(curve.NewScalar())
	require.True(t, got.Equal(secret))
}

func TestZeroPolynomialConstantIsZero(t *testing.T) {
	p, err := polynomial.NewZero(3)
	require.NoError(t, err)
	require.True(t, p.Constant().IsZero())
}

func TestCommitVerifiesEveryShare(t *testing.T) {
	secret, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	p, err := polynomial.New(2, secret)
	require.NoError(t, err)

	commitments := p.Commit()
	for _, id := range frostparty.IDSlice{1, 2, 3, 4} {
		share := p.EvaluateAt(id)
		require.True(t, polynomial.VerifyShare(share, id.Scalar(), 0, commitments))
	}
}

func TestLagrangeRecoversSecret(t *testing.T) {
	secret, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	p, err := polynomial.New(2, secret)
	require.NoError(t, err)

	ids := frostparty.IDSlice{2, 5, 9}
	shares := map[frostparty.ID]*curve.Scalar{}
	for _, id := range ids {
		shares[id] = p.EvaluateAt(id)
	}

	recovered := polynomial.Interpolate(shares)
	require.True(t, recovered.Equal(secret))
}

func TestLagrangeRecoversAtArbitraryPoint(t *testing.T) {
	secret, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	p, err := polynomial.New(3, secret)
	require.NoError(t, err)

	ids := frostparty.IDSlice{1, 2, 3, 4}
	shares := map[frostparty.ID]*curve.Scalar{}
	for _, id := range ids {
		shares[id] = p.EvaluateAt(id)
	}

	target := frostparty.ID(7)
	recovered := polynomial.InterpolateAt(shares, target.Scalar())
	require.True(t, recovered.Equal(p.EvaluateAt(target)))
}

func TestBirkhoffFlatRanksMatchLagrange(t *testing.T) {
	secret, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	p, err := polynomial.New(2, secret)
	require.NoError(t, err)

	ids := frostparty.IDSlice{3, 6, 11}
	contributors := make([]polynomial.Contributor, len(ids))
	shares := make(map[frostparty.ID]*curve.Scalar, len(ids))
	for i, id := range ids {
		contributors[i] = polynomial.Contributor{ID: id, Rank: 0}
		shares[id] = p.EvaluateAt(id)
	}

	weights, err := polynomial.BirkhoffWeights(contributors)
	require.NoError(t, err)

	sum := curve.NewScalar()
	for id, w := range weights {
		sum = sum.Add(w.Mul(shares[id]))
	}
	require.True(t, sum.Equal(secret))
}

func TestBirkhoffHigherRankRecoversSecret(t *testing.T) {
	secret, err := curve.RandomScalar(rand.Reader)
	require.NoError(t, err)
	p, err := polynomial.New(2, secret)
	require.NoError(t, err)

	contributors := []polynomial.Contributor{
		{ID: 1, Rank: 0},
		{ID: 2, Rank: 1},
		{ID: 3, Rank: 2},
	}
	shares := make(map[frostparty.ID]*curve.Scalar, len(contributors))
	for _, c := range contributors {
		shares[c.ID] = p.EvaluateDerivative(c.ID.Scalar(), c.Rank)
	}

	weights, err := polynomial.BirkhoffWeights(contributors)
	require.NoError(t, err)

	sum := curve.NewScalar()
	for id, w := range weights {
		sum = sum.Add(w.Mul(shares[id]))
	}
	require.True(t, sum.Equal(secret))
}

func TestCheckPolyaRejectsInvalidRankOrdering(t *testing.T) {
	err := polynomial.CheckPolya([]polynomial.Contributor{
		{ID: 1, Rank: 2},
		{ID: 2, Rank: 2},
	})
	require.Error(t, err)
}

