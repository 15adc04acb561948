// Package signing implements FROST binonce threshold signing: nonce
// generation, per-signer partial signature production, and combination into
// a single BIP-340 Schnorr signature.
//
// Nonce generation is grounded on the hedged-deterministic recipe of the
// teacher's protocols/frost/sign/round1.go (blake3.DeriveKey over the
// share, mixed with OS entropy, feeding a keyed XOF two scalars are read
// from), generalized from a single nonce to FROST's (d, e) binonce.
// Binding-factor/group-commitment/challenge/combine math is grounded on
// threshold-network-roast-go's frost.go (computeBindingFactors,
// computeGroupCommitment, computeChallenge, deriveInterpolatingValue),
// adapted from that draft's generic hash calls to BIP-340 tagged hashes and
// from plain Lagrange to Birkhoff-aware coefficients for HTSS signer sets.
package signing

import (
	"crypto/rand"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostlog"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/polynomial"
	"github.com/frostdao/htss/pkg/taghash"
	"github.com/frostdao/htss/pkg/transcript"
	"github.com/frostdao/htss/pkg/wallet"
)

const deriveNonceContext = "github.com/frostdao/htss frost binonce derivation"

// BinonceCommitment is the public half of a signer's nonce, published
// before partial signing begins.
type BinonceCommitment struct {
	Signer frostparty.ID
	D      *curve.Point
	E      *curve.Point
}

// PartialSig is one signer's contribution, bundled with the public
// commitment it was produced from so a combiner can recompute binding
// factors and the aggregate nonce without a separate round-trip.
type PartialSig struct {
	Signer     frostparty.ID
	Z          *curve.Scalar
	Commitment BinonceCommitment
}

// Signature is a combined BIP-340 Schnorr signature.
type Signature struct {
	RX [32]byte
	S  *curve.Scalar
}

func walletID(share *wallet.PairedShare) string {
	gk := share.GroupKey.XOnlyBytes()
	return fmt.Sprintf("%x/%d", gk, share.Index)
}

// GenerateNonce derives a fresh binonce for (share, sessionID), persists its
// secret half via store, and returns the public commitment to broadcast.
func GenerateNonce(store wallet.Store, share *wallet.PairedShare, sessionID string) (BinonceCommitment, error) {
	shareBytes, err := share.Share.MarshalBinary()
	if err != nil {
		return BinonceCommitment{}, frosterr.New("signing.GenerateNonce", frosterr.InternalCrypto, err)
	}

	hashKey := make([]byte, 32)
	blake3.DeriveKey(deriveNonceContext, shareBytes, hashKey)

	hasher, err := blake3.NewKeyed(hashKey)
	if err != nil {
		return BinonceCommitment{}, frosterr.New("signing.GenerateNonce", frosterr.InternalCrypto, err)
	}
	_, _ = hasher.Write([]byte(sessionID))

	var entropy [32]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return BinonceCommitment{}, frosterr.New("signing.GenerateNonce", frosterr.InternalCrypto, err)
	}
	_, _ = hasher.Write(entropy[:])

	digest := hasher.Digest()
	d, err := readNonzeroScalar(digest)
	if err != nil {
		return BinonceCommitment{}, frosterr.New("signing.GenerateNonce", frosterr.InternalCrypto, err)
	}
	e, err := readNonzeroScalar(digest)
	if err != nil {
		return BinonceCommitment{}, frosterr.New("signing.GenerateNonce", frosterr.InternalCrypto, err)
	}

	if err := store.PutNonce(walletID(share), sessionID, wallet.Binonce{D: d, E: e}); err != nil {
		return BinonceCommitment{}, err
	}

	return BinonceCommitment{Signer: share.Index, D: d.ActOnBase(), E: e.ActOnBase()}, nil
}

func readNonzeroScalar(r interface{ Read([]byte) (int, error) }) (*curve.Scalar, error) {
	for {
		var buf [32]byte
		if _, err := r.Read(buf[:]); err != nil {
			return nil, err
		}
		s := curve.NewScalar()
		overflow := s.SetBytes(buf[:])
		if !overflow && !s.IsZero() {
			return s, nil
		}
	}
}

// sortedCommitments returns the peer commitments (including self) sorted by
// signer ID, the canonical order binding factor computation requires.
func sortedCommitments(peerNonces map[frostparty.ID]BinonceCommitment) []BinonceCommitment {
	out := make([]BinonceCommitment, 0, len(peerNonces))
	for _, c := range peerNonces {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signer < out[j].Signer })
	return out
}

// bindingFactors computes rho_i = H("frost/binding", i, D_i, E_i, P, m,
// signer_set) for every commitment in cs, per spec §4.2.
func bindingFactors(cs []BinonceCommitment, groupKey *wallet.GroupKey, msg []byte) map[frostparty.ID]*curve.Scalar {
	ids := make(frostparty.IDSlice, len(cs))
	for i, c := range cs {
		ids[i] = c.Signer
	}
	setDigest := transcript.SignerSetDigest(ids)
	px := groupKey.XOnlyBytes()

	out := make(map[frostparty.ID]*curve.Scalar, len(cs))
	for _, c := range cs {
		idxBytes := c.Signer.Scalar().Bytes()
		dBytes := c.D.XOnlyBytes()
		eBytes := c.E.XOnlyBytes()
		out[c.Signer] = taghash.HashToScalar(taghash.TagBinding, idxBytes[:], dBytes[:], eBytes[:], px[:], msg, setDigest)
	}
	return out
}

// groupCommitment computes R = sum_i (D_i + rho_i * E_i), returning the
// even-Y normalized aggregate and whether a negation was needed.
func groupCommitment(cs []BinonceCommitment, rhos map[frostparty.ID]*curve.Scalar) (*curve.Point, bool) {
	R := curve.NewPoint()
	for _, c := range cs {
		rho := rhos[c.Signer]
		R = R.Add(c.D).Add(rho.Act(c.E))
	}
	return R.Normalized()
}

// coefficients returns the Lagrange (flat) or Birkhoff (hierarchical)
// weights for the given signer set under meta.
func coefficients(signers frostparty.IDSlice, meta wallet.Metadata) (map[frostparty.ID]*curve.Scalar, error) {
	if !meta.Hierarchical {
		return polynomial.Lagrange(signers), nil
	}
	contributors := make([]polynomial.Contributor, len(signers))
	for i, id := range signers {
		contributors[i] = polynomial.Contributor{ID: id, Rank: meta.Ranks[id]}
	}
	return polynomial.BirkhoffWeights(contributors)
}

// Tweak is the secret-side correction a caller hands to Partial/VerifyPartial/
// Combine to sign for something other than the raw group key: a Taproot
// output-key tweak, an HD child key, or both composed into one scalar.
//
// Scalar is the tweak value itself (nil or zero for no tweak). BaseNegate is
// whatever sign flip the caller has already accumulated before this tweak is
// applied — always false for a one-shot Taproot tweak against the original
// group key, and hd.Result.BaseNegate when signing for an HD-derived child
// key reached via hd.Derive, since hd.Derive's own per-level normalization
// may have already flipped the sign of the group secret that TargetKey's
// single fresh normalization can't rediscover on its own (see hd.Derive's
// doc comment).
type Tweak struct {
	Scalar     *curve.Scalar
	BaseNegate bool
}

func (t *Tweak) scalar() *curve.Scalar {
	if t == nil || t.Scalar == nil {
		return curve.NewScalar()
	}
	return t.Scalar
}

func (t *Tweak) baseNegate() bool {
	return t != nil && t.BaseNegate
}

// TargetKey computes the public key a signature must verify against: the
// group key itself when tweak is nil/zero and tweak.BaseNegate is false, or
// the tweaked key Q = (-P or P) + tweak.Scalar*G otherwise. Every BIP-340
// challenge — in every signer's Partial and in Combine — must be computed
// against this same Q, since the verifier's challenge always reads
// e = H(R.x, Q.x, m); computing it against the untweaked group key instead
// would make partial signatures and the combined signature disagree with
// what Verify expects.
//
// The bool return, shareNegate, is whether the scalar actually satisfying
// target.Point() == d*G is the negation of (sign implied by
// tweak.BaseNegate)*x + tweak.Scalar: base := P.CondNegate(tweak.BaseNegate)
// already folds in whatever sign the caller tells us the group secret needs
// (hd.Result.BaseNegate for an HD-derived key, false otherwise); raw :=
// base + tweak.Scalar*G then gets its own independent normalization, and
// shareNegate is true exactly when that second normalization's flip
// disagrees with tweak.BaseNegate — i.e. the two negations don't cancel.
// Both Partial's share term and Combine's own tweak-correction term must
// negate on shareNegate for the aggregate s = k + e*d equation to hold,
// since x itself needs that same sign and no signer's individual share
// carries that information.
func TargetKey(groupKey *wallet.GroupKey, tweak *Tweak) (*wallet.GroupKey, bool) {
	base := groupKey.Point().CondNegate(tweak.baseNegate())
	scalar := tweak.scalar()
	if scalar.IsZero() {
		evenBase, flip := base.Normalized()
		return wallet.NewGroupKey(evenBase), flip != tweak.baseNegate()
	}
	raw := base.Add(scalar.ActOnBase())
	evenQ, flip := raw.Normalized()
	return wallet.NewGroupKey(evenQ), flip != tweak.baseNegate()
}

// Partial produces this signer's contribution to a FROST signature. tweak
// carries the cumulative HD/Taproot tweak (nil for an untweaked group
// signature). Combine adds the tweak's own correction term; Partial's job is
// to compute the challenge against the right target key and, when reaching
// that target key required a net sign flip, negate its own share term so the
// per-signer contributions sum to k - e*x rather than k + e*x (see TargetKey).
func Partial(
	store wallet.Store,
	share *wallet.PairedShare,
	sessionID string,
	message []byte,
	signers []frostparty.ID,
	peerNonces map[frostparty.ID]BinonceCommitment,
	meta wallet.Metadata,
	tweak *Tweak,
) (*PartialSig, error) {
	if err := validateSignerSet(signers, meta, "signing.Partial"); err != nil {
		return nil, err
	}

	target, shareNegate := TargetKey(share.GroupKey, tweak)

	binonce, err := store.TakeNonce(walletID(share), sessionID)
	if err != nil {
		return nil, err
	}
	self, ok := peerNonces[share.Index]
	if !ok {
		return nil, frosterr.New("signing.Partial", frosterr.SignerSetInvalid,
			fmt.Errorf("self (%s) missing from peer nonce set", share.Index))
	}

	cs := sortedCommitments(peerNonces)
	rhos := bindingFactors(cs, target, message)
	R, rFlip := groupCommitment(cs, rhos)

	d := binonce.D.CondNegate(rFlip)
	e := binonce.E.CondNegate(rFlip)

	ids := frostparty.IDSlice(signers)
	weights, err := coefficients(ids, meta)
	if err != nil {
		return nil, err
	}
	lambda := weights[share.Index]
	if lambda == nil {
		return nil, frosterr.New("signing.Partial", frosterr.SignerSetInvalid,
			fmt.Errorf("signer %s has no interpolation weight for this signer set", share.Index))
	}

	rx := R.XOnlyBytes()
	px := target.XOnlyBytes()
	challenge := taghash.Challenge(rx, px, message)

	rho := rhos[share.Index]
	shareTerm := lambda.Mul(share.Share).Mul(challenge).CondNegate(shareNegate)
	z := d.Add(e.Mul(rho)).Add(shareTerm)

	frostlog.For("signing").Debug().Uint32("signer", uint32(share.Index)).Str("session", sessionID).Msg("partial signature produced")

	return &PartialSig{Signer: share.Index, Z: z, Commitment: self}, nil
}

// validateSignerSet enforces the two fail-closed conditions every entry
// point into signer-set-dependent math shares: the set must be exactly
// meta.Threshold signers (no more, no fewer — interpolation weights are only
// defined for a set of that size) and it must not contain a duplicate index
// (polynomial.LagrangeCoefficients silently drops repeats rather than
// failing, which would otherwise let a duplicate-padded set masquerade as a
// larger one).
func validateSignerSet(signers []frostparty.ID, meta wallet.Metadata, op string) error {
	if len(signers) != meta.Threshold {
		return frosterr.New(op, frosterr.SignerSetInvalid,
			fmt.Errorf("signer set has %d members, want exactly threshold %d", len(signers), meta.Threshold))
	}
	if frostparty.IDSlice(signers).HasDuplicates() {
		return frosterr.New(op, frosterr.SignerSetInvalid, fmt.Errorf("signer set contains a duplicate index"))
	}
	return nil
}

// VerifyPartial checks a signer's partial signature share against their
// verification share (commitments[i] = share_i * G), letting a combiner
// reject a bad contribution before a full Combine pass.
func VerifyPartial(
	partial *PartialSig,
	verificationShare *curve.Point,
	signers []frostparty.ID,
	peerNonces map[frostparty.ID]BinonceCommitment,
	groupKey *wallet.GroupKey,
	message []byte,
	meta wallet.Metadata,
	tweak *Tweak,
) (bool, error) {
	if err := validateSignerSet(signers, meta, "signing.VerifyPartial"); err != nil {
		return false, err
	}

	target, shareNegate := TargetKey(groupKey, tweak)
	cs := sortedCommitments(peerNonces)
	rhos := bindingFactors(cs, target, message)
	R, rFlip := groupCommitment(cs, rhos)

	rx := R.XOnlyBytes()
	px := target.XOnlyBytes()
	challenge := taghash.Challenge(rx, px, message)

	weights, err := coefficients(frostparty.IDSlice(signers), meta)
	if err != nil {
		return false, err
	}
	lambda := weights[partial.Signer]
	if lambda == nil {
		return false, frosterr.New("signing.VerifyPartial", frosterr.SignerSetInvalid,
			fmt.Errorf("signer %s not part of this signer set", partial.Signer))
	}

	self, ok := peerNonces[partial.Signer]
	if !ok {
		return false, frosterr.New("signing.VerifyPartial", frosterr.SignerSetInvalid,
			fmt.Errorf("missing commitment for signer %s", partial.Signer))
	}
	rho := rhos[partial.Signer]

	D := self.D.CondNegate(rFlip)
	E := self.E.CondNegate(rFlip)

	shareTerm := lambda.Mul(challenge).Act(verificationShare).CondNegate(shareNegate)

	lhs := partial.Z.ActOnBase()
	rhs := D.Add(rho.Act(E)).Add(shareTerm)
	return lhs.Equal(rhs), nil
}

// Combine aggregates partial signatures into a final BIP-340 signature,
// adding the tweak's own secret-side correction once. The resulting
// signature verifies against the tweaked key (TargetKey(groupKey, tweak),
// even-Y normalized), not against groupKey directly when tweak is non-nil;
// callers derive that key the same way via TargetKey.
func Combine(
	signers []frostparty.ID,
	partials map[frostparty.ID]*PartialSig,
	groupKey *wallet.GroupKey,
	message []byte,
	meta wallet.Metadata,
	tweak *Tweak,
) (*Signature, error) {
	if err := validateSignerSet(signers, meta, "signing.Combine"); err != nil {
		return nil, err
	}
	if len(partials) < meta.Threshold {
		return nil, frosterr.New("signing.Combine", frosterr.InsufficientContributors,
			fmt.Errorf("have %d partials, need threshold %d", len(partials), meta.Threshold))
	}

	target, shareNegate := TargetKey(groupKey, tweak)

	peerNonces := make(map[frostparty.ID]BinonceCommitment, len(partials))
	for id, p := range partials {
		peerNonces[id] = p.Commitment
	}
	cs := sortedCommitments(peerNonces)
	rhos := bindingFactors(cs, target, message)
	R, _ := groupCommitment(cs, rhos)

	rx := R.XOnlyBytes()
	px := target.XOnlyBytes()
	challenge := taghash.Challenge(rx, px, message)

	s := curve.NewScalar()
	for _, id := range signers {
		p, ok := partials[id]
		if !ok {
			return nil, frosterr.New("signing.Combine", frosterr.InsufficientContributors,
				fmt.Errorf("missing partial signature from signer %s", id))
		}
		s = s.Add(p.Z)
	}

	scalar := tweak.scalar()
	if !scalar.IsZero() {
		tweakNegate := shareNegate != tweak.baseNegate()
		s = s.Add(challenge.Mul(scalar).CondNegate(tweakNegate))
	}

	return &Signature{RX: rx, S: s}, nil
}
