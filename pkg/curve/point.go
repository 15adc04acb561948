package curve

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Point is a secp256k1 curve point, stored internally in Jacobian
// coordinates and normalized to affine lazily.
type Point struct {
	j secp256k1.JacobianPoint
}

// NewPoint returns the identity element.
func NewPoint() *Point {
	return &Point{}
}

// Generator returns the secp256k1 base point G.
func Generator() *Point {
	return ScalarFromUint64(1).ActOnBase()
}

func (p *Point) affine() secp256k1.JacobianPoint {
	a := p.j
	a.ToAffine()
	return a
}

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool {
	a := p.affine()
	return (a.X.IsZero() && a.Y.IsZero()) || p.j.Z.IsZero()
}

// Add returns p + other as a new point.
func (p *Point) Add(other *Point) *Point {
	var out secp256k1.JacobianPoint
	secp256k1.AddNonConst(&p.j, &other.j, &out)
	return &Point{j: out}
}

// Negate returns -p as a new point.
func (p *Point) Negate() *Point {
	a := p.affine()
	a.Y.Negate(1)
	a.Y.Normalize()
	return &Point{j: a}
}

// CondNegate returns -p if negate is true, otherwise p unchanged. Mirrors
// Scalar.CondNegate for the same parity-flip bookkeeping on the point side.
func (p *Point) CondNegate(negate bool) *Point {
	if negate {
		return p.Negate()
	}
	return p.Add(NewPoint())
}

// Act returns scalar * p, the action of a scalar on an arbitrary point
// (as opposed to ActOnBase's action on the generator).
func (s *Scalar) Act(p *Point) *Point {
	var out secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&s.v, &p.j, &out)
	return &Point{j: out}
}

// Equal reports whether p and other encode the same curve point.
func (p *Point) Equal(other *Point) bool {
	if p.IsIdentity() || other.IsIdentity() {
		return p.IsIdentity() && other.IsIdentity()
	}
	a, b := p.affine(), other.affine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

// HasEvenY reports whether the affine Y coordinate of p is even, the
// normalization BIP-340/BIP-341 require for x-only public keys.
func (p *Point) HasEvenY() bool {
	a := p.affine()
	return a.Y.IsOdd() == false
}

// Normalized returns an even-Y point equal to ±p, together with whether a
// negation was required to get there. Callers MUST track the returned flag:
// composing an odd number of such flips must flip the corresponding secret,
// an even number must not.
func (p *Point) Normalized() (*Point, bool) {
	if p.HasEvenY() {
		return p, false
	}
	return p.Negate(), true
}

// XOnlyBytes returns the 32-byte BIP-340 x-only encoding. p must already be
// even-Y normalized (the DKG/signing/HD code paths always call Normalized()
// before exporting a key at a module boundary).
func (p *Point) XOnlyBytes() [32]byte {
	a := p.affine()
	var out [32]byte
	a.X.PutBytesUnchecked(out[:])
	return out
}

// XBytes returns the raw 32-byte big-endian X coordinate irrespective of Y
// parity. Used internally to derive the nonce-commitment x-coordinate "R.x"
// which BIP-340 always treats as x-only regardless of R's own parity.
func (p *Point) XBytes() [32]byte {
	return p.XOnlyBytes()
}

// CompressedBytes returns the 33-byte SEC1 compressed encoding (0x02/0x03
// prefix || X), used as the HMAC-SHA512 preimage component in BIP-32 style
// derivation.
func (p *Point) CompressedBytes() [33]byte {
	a := p.affine()
	var out [33]byte
	if a.Y.IsOdd() {
		out[0] = 0x03
	} else {
		out[0] = 0x02
	}
	a.X.PutBytesUnchecked(out[1:])
	return out
}

// SetXOnlyBytes decodes a 32-byte BIP-340 x-only public key, choosing the
// even-Y point with that X coordinate.
func SetXOnlyBytes(b [32]byte) (*Point, error) {
	var fx secp256k1.FieldVal
	if overflow := fx.SetByteSlice(b[:]); overflow {
		return nil, fmt.Errorf("curve: x-only bytes overflow field")
	}
	pub, err := secp256k1.ParsePubKey(append([]byte{0x02}, b[:]...))
	if err != nil {
		return nil, fmt.Errorf("curve: invalid x-only point: %w", err)
	}
	var j secp256k1.JacobianPoint
	pub.AsJacobian(&j)
	return &Point{j: j}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler using the x-only
// encoding. Callers that need arbitrary-parity points should use
// CompressedBytes instead.
func (p *Point) MarshalBinary() ([]byte, error) {
	b := p.XOnlyBytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for the x-only
// encoding.
func (p *Point) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("curve: point must be 32 bytes, got %d", len(data))
	}
	var arr [32]byte
	copy(arr[:], data)
	np, err := SetXOnlyBytes(arr)
	if err != nil {
		return err
	}
	p.j = np.j
	return nil
}
