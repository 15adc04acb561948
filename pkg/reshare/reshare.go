// Package reshare implements resharing: moving an existing group secret to a
// new (threshold, party-set) without ever reconstructing it. Every current
// holder samples a zero-polynomial — constant term fixed to zero, every
// other coefficient random — and sends each new party an evaluation of it;
// a new party's final share is its old share (if it still holds one; zero
// otherwise) plus the sum of every zero-share it received, which leaves the
// group secret, and hence the group key, unchanged while re-randomizing the
// sharing polynomial.
//
// Grounded on protocols/lss/reshare/round1.go's per-party zero-polynomial
// commitment broadcast, generalized here from a network round into pure
// functions, and on protocols/lss/dealer.go's doc comments about auxiliary
// (zero-constant) secrets motivating the zero-polynomial discipline.
package reshare

import (
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostlog"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/polynomial"
	"github.com/frostdao/htss/pkg/wallet"
	"github.com/frostdao/htss/pkg/workerpool"
)

// Round1Output is what an old-group party broadcasts: its zero-polynomial's
// commitments and its per-new-party shares, keyed by the new party ID it's
// addressed to. Shares are published here (not sent point-to-point) because,
// unlike DKG's a0 (a real secret), a zero-polynomial's evaluations reveal
// nothing about the group secret on their own — only their sum across every
// old party does.
type Round1Output struct {
	Self        frostparty.ID
	Commitments []*curve.Point
	Shares      map[frostparty.ID]*curve.Scalar
}

// Round1 runs for every current share-holder. newN/newT describe the
// incoming committee; self is the old party's own index, used only to
// evaluate the new parties' polynomial and to label the output.
func Round1(share *wallet.PairedShare, newT, newN int, newParties frostparty.IDSlice) (*Round1Output, error) {
	if newT < 1 || newT > newN {
		return nil, frosterr.New("reshare.Round1", frosterr.ThresholdConfig,
			fmt.Errorf("new threshold %d invalid for newN=%d", newT, newN))
	}
	if len(newParties) != newN {
		return nil, frosterr.New("reshare.Round1", frosterr.ThresholdConfig,
			fmt.Errorf("have %d new parties, want newN=%d", len(newParties), newN))
	}

	poly, err := polynomial.NewZero(newT - 1)
	if err != nil {
		return nil, frosterr.New("reshare.Round1", frosterr.InternalCrypto, err)
	}
	commitments := poly.Commit()

	shares := make(map[frostparty.ID]*curve.Scalar, len(newParties))
	for _, id := range newParties {
		shares[id] = poly.EvaluateAt(id)
	}

	frostlog.For("reshare").Debug().Uint32("party", uint32(share.Index)).Msg("reshare round1 complete")

	return &Round1Output{Self: share.Index, Commitments: commitments, Shares: shares}, nil
}

// Finalize runs for every new-committee party: it verifies every old
// party's zero-share against its commitments, sums the verified shares, and
// adds newSelf's pre-existing share (zero if newSelf was not already a
// holder — a brand-new party added during resharing). The resulting share
// is paired with the unchanged group key.
//
// sourceMeta is the OLD committee's metadata: at least sourceMeta.Threshold
// old parties must contribute a zero-share, or the sum recovered here is not
// guaranteed to preserve the group secret (a zero-polynomial reconstructed
// from fewer than its own threshold of evaluations is not the zero
// polynomial at every other point).
func Finalize(
	sourceMeta wallet.Metadata,
	existingShare *curve.Scalar,
	groupKey *wallet.GroupKey,
	newSelf frostparty.ID,
	outputs map[frostparty.ID]*Round1Output,
) (*wallet.PairedShare, error) {
	if len(outputs) < sourceMeta.Threshold {
		return nil, frosterr.New("reshare.Finalize", frosterr.InsufficientContributors,
			fmt.Errorf("have %d reshare contributions, need source threshold %d", len(outputs), sourceMeta.Threshold))
	}

	senders := make(frostparty.IDSlice, 0, len(outputs))
	for id := range outputs {
		senders = append(senders, id)
	}
	senders = senders.Sorted()

	pool := workerpool.New()
	verifyErrs := make([]error, len(senders))
	err := pool.Run(len(senders), func(i int) error {
		sender := senders[i]
		out := outputs[sender]
		share, ok := out.Shares[newSelf]
		if !ok {
			verifyErrs[i] = frosterr.New("reshare.Finalize", frosterr.ShareInconsistent,
				fmt.Errorf("missing reshare contribution from party %s for %s", sender, newSelf))
			return verifyErrs[i]
		}
		if !polynomial.VerifyShare(share, newSelf.Scalar(), 0, out.Commitments) {
			verifyErrs[i] = frosterr.New("reshare.Finalize", frosterr.ShareInconsistent,
				fmt.Errorf("reshare contribution from party %s fails commitment check", sender))
			return verifyErrs[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	newShare := curve.NewScalar()
	if existingShare != nil {
		newShare = existingShare.Clone()
	}
	for _, sender := range senders {
		newShare = newShare.Add(outputs[sender].Shares[newSelf])
	}

	frostlog.For("reshare").Info().Uint32("party", uint32(newSelf)).Msg("reshare finalize complete")

	return &wallet.PairedShare{Index: newSelf, Share: newShare, GroupKey: groupKey}, nil
}
