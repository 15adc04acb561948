// Package hd implements non-hardened BIP-32 style child-key derivation over
// the group's Taproot output key: a deterministic HMAC-SHA512 chain walks a
// derivation path, producing a child public key, a child chain code, and the
// cumulative tweak scalar that pkg/signing's Partial/Combine apply to sign
// with the child key without ever reconstructing the group secret.
//
// Grounded on the derivation chain in
// SafeMPC-mpc-service's internal/mpc/protocol/derivation/utils.go
// (parseDerivationPath, computeIL): the HMAC-SHA512 input is the parent's
// compressed pubkey concatenated with the big-endian index, split into
// IL/IR exactly as there. That source carries whatever real point parity
// the additive step produces into the next level's HMAC input, which is
// right for ECDSA keys; this package diverges where Taproot requires every
// level's child point to be even-Y before it can be the next level's
// parent, tracking the resulting sign flip into the cumulative tweak via
// the recurrence in Derive's doc comment.
package hd

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/taghash"
	"github.com/frostdao/htss/pkg/wallet"
)

// hardenedBit marks a hardened path component in the usual BIP-32 encoding.
// Hardened derivation is rejected outright: it requires the joint secret,
// which no single party (or even a t-subset acting alone) holds.
const hardenedBit = uint32(0x80000000)

// Result is the outcome of walking a derivation path: the even-Y child
// public key, its chain code, and the tweak pkg/signing's Partial and
// Combine need (wrapped in a signing.Tweak) to sign for the child key.
//
// BaseNegate records whether the group secret's sign flipped an odd number
// of times across the path — equivalently, whether ChildKey.Point() equals
// (-x + CumulativeTweak)*G rather than (x + CumulativeTweak)*G for the
// original DKG secret x. This can't be recovered later from CumulativeTweak
// and groupKey alone (see Derive's doc comment), so it must be carried
// alongside the tweak into signing.Tweak.BaseNegate.
type Result struct {
	ChildKey        *wallet.GroupKey
	ChildChainCode  [32]byte
	CumulativeTweak *curve.Scalar
	BaseNegate      bool
}

// SeedChainCode derives the root chain code from the group public key, per
// the tagged-hash chain-code seed the specification defines (there being no
// BIP-32 master seed in a threshold setting — the group key itself anchors
// the chain).
func SeedChainCode(groupKey *wallet.GroupKey) [32]byte {
	gk := groupKey.XOnlyBytes()
	return taghash.Hash(taghash.TagHD, gk[:])
}

// ParsePath parses a path string like "m/0/2/17" (or without the leading
// "m") into a slice of non-hardened indices. Hardened suffixes ('/h/H) are
// recognized only to reject them explicitly rather than silently
// misinterpreting the index.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) > 0 && parts[0] == "m" {
		parts = parts[1:]
	}

	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") || strings.HasSuffix(part, "H") {
			return nil, frosterr.New("hd.ParsePath", frosterr.InvalidInput,
				fmt.Errorf("hardened component %q is not supported (no single party holds the joint secret)", part))
		}
		val, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, frosterr.New("hd.ParsePath", frosterr.InvalidInput,
				fmt.Errorf("invalid path component %q: %w", part, err))
		}
		if val >= uint64(hardenedBit) {
			return nil, frosterr.New("hd.ParsePath", frosterr.InvalidInput,
				fmt.Errorf("path component %d is out of the non-hardened range [0, 2^31)", val))
		}
		indices = append(indices, uint32(val))
	}
	return indices, nil
}

// Derive walks the non-hardened path from groupKey/chainCode, returning the
// child key, child chain code, and the cumulative tweak/sign pair.
//
// Maintaining correctness across levels: write the group secret as x (so
// groupKey.Point() == x*G). After k levels the child point is always the
// even-Y representative of (sign_k * x + tweak_k)*G for some public sign_k
// in {+1,-1} and public scalar tweak_k — "public" because both follow only
// from the HMAC outputs and the points' own Y parities, never from x. The
// recurrence per level, given per-level HMAC scalar t and whether
// parent+t*G lands on an odd-Y point (flip):
//
//	no flip: tweak_{k+1} = tweak_k + t, sign_{k+1} = sign_k
//	flip:    tweak_{k+1} = -(tweak_k + t), sign_{k+1} = -sign_k
//
// sign_final (exposed as Result.BaseNegate, true when sign_final == -1)
// cannot be recovered later from tweak_final and groupKey alone:
// signing.TargetKey(groupKey, tweak_final) recomputes x*G + tweak_final*G
// and normalizes that fresh point, which tells you whether *that specific
// sum* needed a flip to reach even-Y, not how many flips the derivation
// chain already folded into tweak_final along the way — the two agree only
// when sign_final happens to be +1. Derive must hand BaseNegate over
// explicitly; callers pass both straight into a signing.Tweak so Partial/
// Combine can fold the already-accumulated sign in with whatever flip
// TargetKey itself computes for the final tweaked point.
func Derive(groupKey *wallet.GroupKey, chainCode [32]byte, path []uint32) (*Result, error) {
	point := groupKey.Point()
	cc := chainCode
	tweak := curve.NewScalar()
	negate := false

	for _, index := range path {
		if index >= hardenedBit {
			return nil, frosterr.New("hd.Derive", frosterr.InvalidInput,
				fmt.Errorf("index %d is hardened", index))
		}

		compressed := point.CompressedBytes()
		var idxBytes [4]byte
		binary.BigEndian.PutUint32(idxBytes[:], index)

		mac := hmac.New(sha512.New, cc[:])
		mac.Write(compressed[:])
		mac.Write(idxBytes[:])
		I := mac.Sum(nil)

		levelTweak := curve.NewScalar()
		overflow := levelTweak.SetBytes(I[:32])
		if overflow || levelTweak.IsZero() {
			return nil, frosterr.New("hd.Derive", frosterr.InternalCrypto,
				fmt.Errorf("index %d produced an out-of-range IL (BIP-32 requires skipping to the next index)", index))
		}
		copy(cc[:], I[32:64])

		raw := point.Add(levelTweak.ActOnBase())
		childPoint, flip := raw.Normalized()

		combined := tweak.Add(levelTweak)
		if flip {
			combined = combined.Negate()
			negate = !negate
		}
		tweak = combined
		point = childPoint
	}

	return &Result{
		ChildKey:        wallet.NewGroupKey(point),
		ChildChainCode:  cc,
		CumulativeTweak: tweak,
		BaseNegate:      negate,
	}, nil
}
