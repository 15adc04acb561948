// Package dkg implements the two-round SimplePedPop-style distributed key
// generation protocol: each party commits to a secret polynomial, proves
// possession of its constant term, distributes per-recipient shares derived
// from that polynomial (or, under HTSS, from one of its derivatives), and
// every party independently finalizes the same group key from the same
// commitments.
//
// Grounded on the commit/share/verify shape of the teacher's
// protocols/lss/keygen round1/round2/round3, generalized here from a
// network-round state machine to pure functions operating over already
// collected round outputs, and from flat TSS (evaluation only) to HTSS
// (derivative evaluation keyed by rank).
package dkg

import (
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostlog"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/polynomial"
	"github.com/frostdao/htss/pkg/taghash"
	"github.com/frostdao/htss/pkg/transcript"
	"github.com/frostdao/htss/pkg/wallet"
	"github.com/frostdao/htss/pkg/workerpool"
)

// Params describes the threshold configuration all parties run DKG under.
type Params struct {
	Threshold int
	N         int
}

// Round1Output is what a party broadcasts after Round 1: its polynomial
// commitments, the rank it is generating a share for, and a proof of
// possession of the polynomial's constant term.
type Round1Output struct {
	Self        frostparty.ID
	Rank        int
	Commitments []*curve.Point
	PoP         PoP
}

// PoP is a proof of possession: a Schnorr signature over the commitment to
// a0, challenged on (session context, party index, a0 commitment, nonce
// commitment), preventing a rogue-key attack where a party sets its
// commitment to (target - sum of others) without knowing a discrete log.
type PoP struct {
	R *curve.Point
	S *curve.Scalar
}

// Round1Secret is the private state Round1 produces and Round2 consumes: the
// full polynomial, never transmitted.
type Round1Secret struct {
	poly *polynomial.Polynomial
}

// Round1 samples party self's secret polynomial of degree Threshold-1,
// commits to it, and proves possession of its constant term. signers is the
// full party-index set this DKG run is agreed over; it (plus params and
// sessionID) is folded into the transcript.Context bytes that bind the PoP
// challenge to this specific run, the same context Finalize must recompute
// to verify it.
func Round1(params Params, sessionID []byte, signers frostparty.IDSlice, self frostparty.ID, rank int) (*Round1Output, *Round1Secret, error) {
	log := frostlog.For("dkg")
	if params.Threshold < 1 || params.Threshold > params.N {
		return nil, nil, frosterr.New("dkg.Round1", frosterr.ThresholdConfig,
			fmt.Errorf("threshold %d invalid for n=%d", params.Threshold, params.N))
	}
	if err := self.Validate(); err != nil {
		return nil, nil, frosterr.New("dkg.Round1", frosterr.InvalidInput, err)
	}

	secretScalar, err := curve.RandomNonZero()
	if err != nil {
		return nil, nil, frosterr.New("dkg.Round1", frosterr.InternalCrypto, err)
	}
	poly, err := polynomial.New(params.Threshold-1, secretScalar)
	if err != nil {
		return nil, nil, frosterr.New("dkg.Round1", frosterr.InternalCrypto, err)
	}

	ctx := transcript.Context(sessionID, params.Threshold, params.N, signers)
	commitments := poly.Commit()
	pop, err := provePossession(ctx, self, commitments[0], secretScalar)
	if err != nil {
		return nil, nil, frosterr.New("dkg.Round1", frosterr.InternalCrypto, err)
	}

	log.Debug().Uint32("party", uint32(self)).Int("rank", rank).Msg("dkg round1 complete")

	return &Round1Output{
			Self:        self,
			Rank:        rank,
			Commitments: commitments,
			PoP:         pop,
		}, &Round1Secret{
			poly: poly,
		}, nil
}

// Round2 evaluates self's secret polynomial once per recipient in `all`,
// at the recipient's index and (for HTSS) the recipient's rank-th
// derivative, producing the shares self sends to every party including
// itself.
func Round2(self frostparty.ID, secret *Round1Secret, all map[frostparty.ID]*Round1Output) (map[frostparty.ID]*curve.Scalar, error) {
	if secret == nil || secret.poly == nil {
		return nil, frosterr.New("dkg.Round2", frosterr.InvalidInput, fmt.Errorf("missing round1 secret"))
	}
	if _, ok := all[self]; !ok {
		return nil, frosterr.New("dkg.Round2", frosterr.InvalidInput, fmt.Errorf("round1 output set does not include self (%s)", self))
	}
	out := make(map[frostparty.ID]*curve.Scalar, len(all))
	for recipient, round1 := range all {
		share := secret.poly.EvaluateDerivative(recipient.Scalar(), round1.Rank)
		out[recipient] = share
	}
	return out, nil
}

// Finalize verifies the proofs of possession and every received share
// against its sender's commitments, sums the received shares into self's
// final paired share, and sums every sender's constant-term commitment into
// the group key.
//
// sessionID is the same session identifier every party passed to Round1;
// Finalize recomputes the identical transcript.Context from it plus meta
// and the participant set found in all, since every PoP was challenged
// against that context.
func Finalize(
	sessionID []byte,
	self frostparty.ID,
	meta wallet.Metadata,
	all map[frostparty.ID]*Round1Output,
	received map[frostparty.ID]*curve.Scalar,
) (*wallet.PairedShare, *wallet.GroupKey, error) {
	if len(all) != meta.N {
		return nil, nil, frosterr.New("dkg.Finalize", frosterr.ThresholdConfig,
			fmt.Errorf("have %d round1 outputs, want n=%d", len(all), meta.N))
	}
	selfRank := meta.Ranks[self]

	ids := make(frostparty.IDSlice, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	ids = ids.Sorted()

	ctx := transcript.Context(sessionID, meta.Threshold, meta.N, ids)

	pool := workerpool.New()
	verifyErrs := make([]error, len(ids))
	err := pool.Run(len(ids), func(i int) error {
		id := ids[i]
		out := all[id]
		if err := verifyPossession(ctx, out); err != nil {
			verifyErrs[i] = frosterr.New("dkg.Finalize", frosterr.PoPInvalid,
				fmt.Errorf("party %s: %w", id, err))
			return verifyErrs[i]
		}
		share, ok := received[id]
		if !ok {
			verifyErrs[i] = frosterr.New("dkg.Finalize", frosterr.ShareInconsistent,
				fmt.Errorf("missing share from party %s", id))
			return verifyErrs[i]
		}
		if !polynomial.VerifyShare(share, self.Scalar(), selfRank, out.Commitments) {
			verifyErrs[i] = frosterr.New("dkg.Finalize", frosterr.ShareInconsistent,
				fmt.Errorf("share from party %s fails commitment check", id))
			return verifyErrs[i]
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	finalShare := curve.NewScalar()
	groupPoint := curve.NewPoint()
	for _, id := range ids {
		finalShare = finalShare.Add(received[id])
		groupPoint = groupPoint.Add(all[id].Commitments[0])
	}

	evenGroupPoint, flip := groupPoint.Normalized()
	finalShare = finalShare.CondNegate(flip)

	groupKey := wallet.NewGroupKey(evenGroupPoint)
	paired := &wallet.PairedShare{Index: self, Share: finalShare, GroupKey: groupKey}

	frostlog.For("dkg").Info().Uint32("party", uint32(self)).Msg("dkg finalize complete")
	return paired, groupKey, nil
}

func provePossession(ctx []byte, self frostparty.ID, a0Commitment *curve.Point, a0 *curve.Scalar) (PoP, error) {
	k, err := curve.RandomNonZero()
	if err != nil {
		return PoP{}, err
	}
	R := k.ActOnBase()
	e := popChallenge(ctx, self, a0Commitment, R)
	return PoP{R: R, S: k.Add(e.Mul(a0))}, nil
}

func verifyPossession(ctx []byte, out *Round1Output) error {
	if len(out.Commitments) == 0 {
		return fmt.Errorf("empty commitment vector")
	}
	e := popChallenge(ctx, out.Self, out.Commitments[0], out.PoP.R)
	lhs := out.PoP.S.ActOnBase()
	rhs := out.PoP.R.Add(e.Act(out.Commitments[0]))
	if !lhs.Equal(rhs) {
		return fmt.Errorf("proof of possession does not verify")
	}
	return nil
}

// popChallenge computes e = H("BIP0340/challenge", ctx, index, a0, R),
// reusing the BIP-340 challenge tag (per spec §6's enumerated tag list) but
// with a bespoke input tuple rather than BIP-340's fixed (R.x, P.x, msg)
// shape, since a PoP challenges a one-time nonce commitment, not a message.
func popChallenge(ctx []byte, self frostparty.ID, a0Commitment, r *curve.Point) *curve.Scalar {
	idxBytes := self.Scalar().Bytes()
	a0Bytes := a0Commitment.XOnlyBytes()
	rBytes := r.XOnlyBytes()
	return taghash.HashToScalar(taghash.TagChallenge, ctx, idxBytes[:], a0Bytes[:], rBytes[:])
}
