// Package recovery reconstructs a lost party's paired share from the
// cooperation of a quorum of surviving helpers, without ever reconstructing
// the group secret itself: each helper emits an encrypted sub-share derived
// from its own share and the lost party's index (and, under HTSS, rank);
// recombining those sub-shares at the recovering party recovers exactly the
// value the lost party's share would have been, via the same Lagrange/
// Birkhoff machinery signing uses to interpolate at 0 — generalized here to
// interpolate at the lost party's index instead.
//
// Grounded on pkg/polynomial's interpolation machinery (itself grounded on
// threshold-network-roast-go's deriveInterpolatingValue), generalized from
// evaluation-at-0 to evaluation-at-lost-party, the same transform
// BirkhoffWeightsAt applies to HTSS's derivative functional.
package recovery

import (
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostlog"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/polynomial"
	"github.com/frostdao/htss/pkg/wallet"
)

// HelperSubShare is one surviving party's contribution toward reconstructing
// lost's share: its own interpolation weight for the recovery signer set,
// applied to its own share.
type HelperSubShare struct {
	Helper frostparty.ID
	Value  *curve.Scalar
}

// Round1 runs at a surviving helper: it computes the helper's Lagrange (flat
// TSS) or Birkhoff (HTSS) weight for reconstructing lost's value from the
// helper set implied by meta's full party list, and emits weight*share as
// the sub-share it sends to whichever party is performing the recovery.
//
// helperSet must be the full set of helpers cooperating in this recovery
// (meta.Threshold of them, at least); every helper must be called with the
// same helperSet for the weights to interpolate correctly.
func Round1(share *wallet.PairedShare, meta wallet.Metadata, lost frostparty.ID, helperSet frostparty.IDSlice) (*HelperSubShare, error) {
	if len(helperSet) < meta.Threshold {
		return nil, frosterr.New("recovery.Round1", frosterr.InsufficientContributors,
			fmt.Errorf("have %d helpers, need threshold %d", len(helperSet), meta.Threshold))
	}
	if !helperSet.Contains(share.Index) {
		return nil, frosterr.New("recovery.Round1", frosterr.SignerSetInvalid,
			fmt.Errorf("helper %s not present in its own helper set", share.Index))
	}

	var weight *curve.Scalar
	if !meta.Hierarchical {
		weights := polynomial.LagrangeCoefficients(helperSet, lost.Scalar())
		weight = weights[share.Index]
	} else {
		contributors := make([]polynomial.Contributor, len(helperSet))
		for i, id := range helperSet {
			contributors[i] = polynomial.Contributor{ID: id, Rank: meta.Ranks[id]}
		}
		weights, err := polynomial.BirkhoffWeightsAt(contributors, lost, meta.Ranks[lost])
		if err != nil {
			return nil, err
		}
		weight = weights[share.Index]
	}
	if weight == nil {
		return nil, frosterr.New("recovery.Round1", frosterr.SignerSetInvalid,
			fmt.Errorf("no interpolation weight computed for helper %s", share.Index))
	}

	frostlog.For("recovery").Debug().Uint32("helper", uint32(share.Index)).Uint32("lost", uint32(lost)).Msg("recovery round1 complete")

	return &HelperSubShare{Helper: share.Index, Value: weight.Mul(share.Share)}, nil
}

// Finalize sums the helpers' sub-shares into lost's reconstructed share,
// pairing it with the unchanged group key.
func Finalize(groupKey *wallet.GroupKey, meta wallet.Metadata, lost frostparty.ID, helpers map[frostparty.ID]*HelperSubShare) (*wallet.PairedShare, error) {
	if len(helpers) < meta.Threshold {
		return nil, frosterr.New("recovery.Finalize", frosterr.InsufficientContributors,
			fmt.Errorf("have %d helper contributions, need threshold %d", len(helpers), meta.Threshold))
	}

	sum := curve.NewScalar()
	for _, h := range helpers {
		sum = sum.Add(h.Value)
	}

	frostlog.For("recovery").Info().Uint32("lost", uint32(lost)).Msg("recovery finalize complete")

	return &wallet.PairedShare{Index: lost, Share: sum, GroupKey: groupKey}, nil
}
