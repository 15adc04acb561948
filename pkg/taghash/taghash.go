// Package taghash implements BIP-340 tagged hashing and the Schnorr
// sign/verify primitives built on top of it: the proofs of possession used
// in DKG, and the final signature challenge used in FROST combining.
package taghash

import (
	"crypto/sha256"
	"sync"

	"github.com/frostdao/htss/pkg/curve"
)

// Known tags. Exported so callers never hand-roll a tag string.
const (
	TagChallenge = "BIP0340/challenge"
	TagAux       = "BIP0340/aux"
	TagNonce     = "BIP0340/nonce"
	TagTapTweak  = "TapTweak"
	TagHD        = "FrostDAO/HD"
	TagBinding   = "frost/binding"
)

var (
	tagHashMu    sync.RWMutex
	tagHashCache = map[string][32]byte{}
)

func tagHash(tag string) [32]byte {
	tagHashMu.RLock()
	h, ok := tagHashCache[tag]
	tagHashMu.RUnlock()
	if ok {
		return h
	}

	h = sha256.Sum256([]byte(tag))

	tagHashMu.Lock()
	tagHashCache[tag] = h
	tagHashMu.Unlock()
	return h
}

// Hash computes SHA256(SHA256(tag) || SHA256(tag) || data), exactly as
// BIP-340 §Tagged Hashes defines it. This is a wire-format requirement, not
// an ambient concern, so it is built on stdlib sha256 rather than an
// ecosystem hashing library (see DESIGN.md).
func Hash(tag string, data ...[]byte) [32]byte {
	th := tagHash(tag)
	h := sha256.New()
	h.Write(th[:])
	h.Write(th[:])
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Challenge computes the BIP-340 Schnorr challenge e = H(R.x || P.x || m)
// reduced into the scalar field.
func Challenge(rx, px [32]byte, msg []byte) *curve.Scalar {
	h := Hash(TagChallenge, rx[:], px[:], msg)
	e := curve.NewScalar()
	e.SetBytes(h[:])
	return e
}

// HashToScalar reduces a tagged hash of data into the scalar field. It
// generalizes Challenge to the non-BIP-340 tagged hashes this module also
// needs a scalar out of: proof-of-possession challenges and per-signer
// binding factors.
func HashToScalar(tag string, data ...[]byte) *curve.Scalar {
	h := Hash(tag, data...)
	s := curve.NewScalar()
	s.SetBytes(h[:])
	return s
}
