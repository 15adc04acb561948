// Package curve provides the secp256k1 scalar/point arithmetic that the rest of
// the module builds on. Field/group primitives are treated as an external
// concern by the specification; this package is a thin, concrete wrapper
// around decred's secp256k1 implementation rather than a re-derivation of the
// curve itself.
package curve

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Scalar is an element of the secp256k1 scalar field.
type Scalar struct {
	v secp256k1.ModNScalar
}

// NewScalar returns the zero scalar.
func NewScalar() *Scalar {
	return &Scalar{}
}

// ScalarFromNat embeds an arbitrary-precision natural number into the scalar
// field, reducing modulo the group order. This is the integer-to-scalar
// embedding used for party indices and for HTSS falling-factorial
// coefficients.
func ScalarFromNat(n *saferith.Nat) *Scalar {
	s := NewScalar()
	s.v.SetByteSlice(n.Bytes())
	return s
}

// ScalarFromUint64 embeds a small non-negative integer (a party index, a
// polynomial coefficient power, a rank) into the scalar field.
func ScalarFromUint64(u uint64) *Scalar {
	n := new(saferith.Nat).SetUint64(u)
	return ScalarFromNat(n)
}

// ScalarFromBigInt embeds a non-negative arbitrary-precision integer (the
// numerator or denominator of a Birkhoff interpolation weight, before
// reduction) into the scalar field, reducing modulo the group order.
func ScalarFromBigInt(n *big.Int) *Scalar {
	s := NewScalar()
	s.v.SetByteSlice(n.Bytes())
	return s
}

// RandomScalar samples a uniformly random non-zero scalar from r (a CSPRNG in
// production, a deterministic test source under an explicit capability).
func RandomScalar(r io.Reader) (*Scalar, error) {
	var buf [32]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("curve: read random scalar: %w", err)
		}
		s := NewScalar()
		overflow := s.v.SetBytes((*[32]byte)(&buf))
		if overflow == 0 && !s.v.IsZero() {
			return s, nil
		}
	}
}

// SetBytes interprets b as a big-endian 32-byte scalar, reducing modulo the
// group order. It reports whether the value overflowed the field.
func (s *Scalar) SetBytes(b []byte) (overflow bool) {
	var arr [32]byte
	copy(arr[32-len(b):], b)
	return s.v.SetBytes(&arr) != 0
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (s *Scalar) Bytes() [32]byte {
	var out [32]byte
	s.v.PutBytes(&out)
	return out
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	b := s.Bytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("curve: scalar must be 32 bytes, got %d", len(data))
	}
	s.SetBytes(data)
	return nil
}

// Set copies other into s and returns s.
func (s *Scalar) Set(other *Scalar) *Scalar {
	s.v = other.v
	return s
}

// Clone returns an independent copy of s.
func (s *Scalar) Clone() *Scalar {
	return NewScalar().Set(s)
}

// Add returns s + other as a new scalar.
func (s *Scalar) Add(other *Scalar) *Scalar {
	out := NewScalar()
	out.v.Set(&s.v).Add(&other.v)
	return out
}

// Sub returns s - other as a new scalar.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	neg := NewScalar()
	neg.v.Set(&other.v).Negate()
	return s.Add(neg)
}

// Mul returns s * other as a new scalar.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	out := NewScalar()
	out.v.Set(&s.v).Mul(&other.v)
	return out
}

// Negate returns -s as a new scalar.
func (s *Scalar) Negate() *Scalar {
	out := NewScalar()
	out.v.Set(&s.v).Negate()
	return out
}

// CondNegate returns -s if negate is true, otherwise s unchanged (still a
// fresh copy). It implements the parity flip bookkeeping described in the
// design notes: an even number of negations is a no-op, an odd number flips.
func (s *Scalar) CondNegate(negate bool) *Scalar {
	if negate {
		return s.Negate()
	}
	return s.Clone()
}

// Invert returns the multiplicative inverse of s. s must be non-zero.
func (s *Scalar) Invert() *Scalar {
	out := NewScalar()
	out.v.Set(&s.v).InverseNonConst()
	return out
}

// IsZero reports whether s is the additive identity.
func (s *Scalar) IsZero() bool {
	return s.v.IsZero()
}

// Equal reports whether s and other represent the same field element.
func (s *Scalar) Equal(other *Scalar) bool {
	return s.v.Equals(&other.v)
}

// ActOnBase returns s * G, the point obtained by scalar-multiplying the
// generator.
func (s *Scalar) ActOnBase() *Point {
	var j secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&s.v, &j)
	return &Point{j: j}
}

// modN exposes the underlying decred scalar for callers in this module that
// need direct access (e.g. BIP-340 Schnorr verification math).
func (s *Scalar) modN() *secp256k1.ModNScalar {
	return &s.v
}

// ScalarFromModN wraps a decred ModNScalar value.
func ScalarFromModN(v *secp256k1.ModNScalar) *Scalar {
	s := NewScalar()
	s.v.Set(v)
	return s
}

// RandomNonZero is kept separate from RandomScalar for readability at call
// sites that specifically need a nonce or polynomial coefficient.
func RandomNonZero() (*Scalar, error) {
	return RandomScalar(rand.Reader)
}
