package taghash

import (
	"crypto/rand"
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
)

// Signature is a 64-byte BIP-340 Schnorr signature (R.x || s).
type Signature struct {
	RX [32]byte
	S  [32]byte
}

// Bytes returns the 64-byte wire form.
func (sig *Signature) Bytes() [64]byte {
	var out [64]byte
	copy(out[:32], sig.RX[:])
	copy(out[32:], sig.S[:])
	return out
}

// Sign produces a single-party BIP-340 Schnorr signature over msg with
// secret key sk. It is used directly for proofs of possession in DKG, and
// the same nonce-derivation shape underlies FROST's per-signer partial
// signatures (pkg/signing), generalized from one nonce to a binonce there.
func Sign(sk *curve.Scalar, msg []byte) (*Signature, error) {
	var auxRand [32]byte
	if _, err := rand.Read(auxRand[:]); err != nil {
		return nil, fmt.Errorf("taghash: read aux rand: %w", err)
	}
	return SignWithAux(sk, msg, auxRand)
}

// SignWithAux is Sign with an explicit aux-rand value, exposed for
// deterministic test vectors.
func SignWithAux(sk *curve.Scalar, msg []byte, auxRand [32]byte) (*Signature, error) {
	P := sk.ActOnBase()
	evenP, flip := P.Normalized()
	d := sk.CondNegate(flip)

	dBytes := d.Bytes()
	aux := Hash(TagAux, auxRand[:])
	var t [32]byte
	for i := range t {
		t[i] = dBytes[i] ^ aux[i]
	}

	px := evenP.XOnlyBytes()
	kHash := Hash(TagNonce, t[:], px[:], msg)
	k := curve.NewScalar()
	k.SetBytes(kHash[:])
	if k.IsZero() {
		return nil, fmt.Errorf("taghash: derived nonce is zero")
	}

	R := k.ActOnBase()
	evenR, rFlip := R.Normalized()
	k = k.CondNegate(rFlip)

	rx := evenR.XOnlyBytes()
	e := Challenge(rx, px, msg)
	s := k.Add(e.Mul(d))

	return &Signature{RX: rx, S: s.Bytes()}, nil
}

// Verify checks a BIP-340 Schnorr signature against an x-only public key.
func Verify(pub *curve.Point, msg []byte, sig *Signature) bool {
	evenP, _ := pub.Normalized()
	px := evenP.XOnlyBytes()

	e := Challenge(sig.RX, px, msg)
	s := curve.NewScalar()
	if s.SetBytes(sig.S[:]) {
		return false
	}

	sG := s.ActOnBase()
	eP := e.Act(evenP)
	R := sG.Add(eP.Negate())

	if R.IsIdentity() || !R.HasEvenY() {
		return false
	}
	return R.XOnlyBytes() == sig.RX
}
