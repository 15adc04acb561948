// Package taproot computes the BIP-341 output-key tweak for the group's
// Taproot internal key: key-path-only spending (this module's scope — no
// script tree) tweaks the internal key by t = tagged_hash("TapTweak", P.x)
// for an empty merkle root, or t = tagged_hash("TapTweak", P.x || merkle_root)
// when a script tree commitment is supplied by the caller.
//
// Grounded on the TapTweak tag already enumerated for pkg/taghash and the
// teacher's taproot.Signature usage in cmd/threshold-cli/protocols.go
// (the teacher imports a pkg/taproot for its BIP-340/341 signature type but
// does not carry the tweak derivation itself in the retrieved source, so the
// tweak math here follows BIP-341 directly). The returned scalar is meant to
// be summed with any HD cumulative tweak (pkg/hd.Result.CumulativeTweak)
// before being handed to signing.Partial/Combine's tweak parameter — both
// tweaks land in the same single e·tweak_total slot the combiner applies.
package taproot

import (
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/taghash"
	"github.com/frostdao/htss/pkg/wallet"
)

// TweakGroupKey computes the BIP-341 key-path tweak for internalKey. A nil
// or empty merkleRoot produces the key-path-only (script-tree-less) tweak;
// a non-nil merkleRoot commits the output key to that script tree root.
func TweakGroupKey(internalKey *wallet.GroupKey, merkleRoot []byte) *curve.Scalar {
	px := internalKey.XOnlyBytes()
	if len(merkleRoot) == 0 {
		return taghash.HashToScalar(taghash.TagTapTweak, px[:])
	}
	return taghash.HashToScalar(taghash.TagTapTweak, px[:], merkleRoot)
}

// OutputKey applies TweakGroupKey's tweak to internalKey, returning the
// even-Y Taproot output key. Exposed separately from the tweak scalar since
// callers publishing an address need the key itself, not just the scalar
// that later feeds signing.
func OutputKey(internalKey *wallet.GroupKey, merkleRoot []byte) *wallet.GroupKey {
	tweak := TweakGroupKey(internalKey, merkleRoot)
	Q := internalKey.Point().Add(tweak.ActOnBase())
	evenQ, _ := Q.Normalized()
	return wallet.NewGroupKey(evenQ)
}

// MerkleRoot validates a caller-supplied script-tree commitment: BIP-341
// requires exactly 32 bytes when a tree is present at all.
func MerkleRoot(b []byte) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	if len(b) != 32 {
		return nil, frosterr.New("taproot.MerkleRoot", frosterr.InvalidInput,
			fmt.Errorf("merkle root must be 32 bytes, got %d", len(b)))
	}
	return b, nil
}
