// Package wallet defines the long-term state a party holds between protocol
// runs — its paired share, the group's public key, and the threshold/rank
// metadata shared by every party — along with the Store capability other
// packages use to persist and retrieve that state.
package wallet

import (
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
)

// PairedShare is a party's long-term secret: its index, its share of the
// group secret, and the group public key the share belongs to. Its 96-byte
// wire form is index_as_scalar(32) || share_scalar(32) || group_pubkey_xonly(32).
type PairedShare struct {
	Index    frostparty.ID
	Share    *curve.Scalar
	GroupKey *GroupKey
}

// Bytes serializes a PairedShare to its canonical 96-byte wire form.
func (p *PairedShare) Bytes() [96]byte {
	var out [96]byte
	idx := p.Index.Scalar().Bytes()
	share := p.Share.Bytes()
	gk := p.GroupKey.XOnlyBytes()
	copy(out[0:32], idx[:])
	copy(out[32:64], share[:])
	copy(out[64:96], gk[:])
	return out
}

// ParsePairedShare decodes the 96-byte wire form produced by Bytes. The
// recovered index is only as reliable as the caller's knowledge of the
// original party index: the wire form round-trips the scalar embedding, not
// necessarily distinguishing an index from any other 32-byte value that
// happens to embed to the same scalar, so callers that need the index back
// out should also independently verify membership in an expected ID set.
func ParsePairedShare(b [96]byte) (*PairedShare, error) {
	var idxBytes, shareBytes, gkBytes [32]byte
	copy(idxBytes[:], b[0:32])
	copy(shareBytes[:], b[32:64])
	copy(gkBytes[:], b[64:96])

	share := curve.NewScalar()
	share.SetBytes(shareBytes[:])

	gkPoint, err := curve.SetXOnlyBytes(gkBytes)
	if err != nil {
		return nil, fmt.Errorf("wallet: parsing group pubkey: %w", err)
	}

	idxScalar := curve.NewScalar()
	idxScalar.SetBytes(idxBytes[:])
	idx, err := scalarToID(idxScalar)
	if err != nil {
		return nil, fmt.Errorf("wallet: parsing party index: %w", err)
	}

	return &PairedShare{
		Index:    idx,
		Share:    share,
		GroupKey: &GroupKey{point: gkPoint},
	}, nil
}

func scalarToID(s *curve.Scalar) (frostparty.ID, error) {
	b := s.Bytes()
	for i := 0; i < 28; i++ {
		if b[i] != 0 {
			return 0, fmt.Errorf("index does not fit a uint32 party ID")
		}
	}
	v := uint32(b[28])<<24 | uint32(b[29])<<16 | uint32(b[30])<<8 | uint32(b[31])
	return frostparty.ID(v), nil
}

// GroupKey is the x-only, even-Y group public key: fixed at DKG completion
// and invariant under resharing, recovery, and non-hardened HD derivation
// (up to the parity flips tracked alongside it).
type GroupKey struct {
	point *Point
}

// Point is an alias kept local to this package so wallet.go does not need to
// import pkg/curve's Point type name directly at call sites that only deal
// with group keys.
type Point = curve.Point

// NewGroupKey wraps an already even-Y-normalized point as a GroupKey. It
// panics if p has odd Y, since every caller in this module is expected to
// normalize before constructing a GroupKey; use curve.Point.Normalized first.
func NewGroupKey(p *Point) *GroupKey {
	if !p.HasEvenY() {
		panic("wallet: GroupKey must be constructed from an even-Y point")
	}
	return &GroupKey{point: p}
}

// Point returns the underlying even-Y curve point.
func (g *GroupKey) Point() *Point { return g.point }

// XOnlyBytes returns the 32-byte BIP-340 x-only encoding.
func (g *GroupKey) XOnlyBytes() [32]byte { return g.point.XOnlyBytes() }

// Metadata is the threshold/rank configuration shared identically by every
// party holding a share of the same group key.
type Metadata struct {
	Ranks        map[frostparty.ID]int
	Threshold    int
	N            int
	Hierarchical bool
}

// Validate checks the structural invariants every metadata value must
// satisfy: threshold in [1, n], one rank entry per listed party, and (when
// Hierarchical) every rank non-negative.
func (m Metadata) Validate() error {
	if m.Threshold < 1 || m.Threshold > m.N {
		return fmt.Errorf("wallet: threshold %d invalid for n=%d", m.Threshold, m.N)
	}
	if len(m.Ranks) != m.N {
		return fmt.Errorf("wallet: metadata has %d ranks, want n=%d", len(m.Ranks), m.N)
	}
	for id, rank := range m.Ranks {
		if err := id.Validate(); err != nil {
			return err
		}
		if m.Hierarchical && rank < 0 {
			return fmt.Errorf("wallet: negative rank %d for party %s", rank, id)
		}
		if !m.Hierarchical && rank != 0 {
			return fmt.Errorf("wallet: non-hierarchical metadata carries nonzero rank for party %s", id)
		}
	}
	return nil
}

// SignerIDs returns the sorted party IDs in the metadata.
func (m Metadata) SignerIDs() frostparty.IDSlice {
	ids := make(frostparty.IDSlice, 0, len(m.Ranks))
	for id := range m.Ranks {
		ids = append(ids, id)
	}
	return ids.Sorted()
}
