// Package walletfile provides the JSON encoding for a party's long-term
// wallet state — its PairedShare and the HTSS metadata shared by the whole
// group — so an embedding can persist and reload it across process
// restarts. On-disk layout, file naming, and atomic writes are the
// embedding's concern (spec's explicit non-goal); this package only owns
// the byte encoding of the in-memory types.
//
// Grounded on the teacher's protocols/lss/config/marshal.go: scalars and
// points are base64-encoded inside a JSON envelope rather than embedded as
// raw bytes, and custom (Un)MarshalJSON methods wrap the canonical wire
// forms pkg/wallet already defines (PairedShare.Bytes/ParsePairedShare)
// instead of re-deriving a separate encoding.
package walletfile

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/wallet"
)

// shareJSON is the on-disk form of a wallet.PairedShare: its 96-byte wire
// encoding, base64'd, under a named field so the envelope is self
// describing and versionable.
type shareJSON struct {
	Share string `json:"share"` // base64(PairedShare.Bytes())
}

// MarshalShare encodes share as a JSON document.
func MarshalShare(share *wallet.PairedShare) ([]byte, error) {
	b := share.Bytes()
	out := shareJSON{Share: base64.StdEncoding.EncodeToString(b[:])}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("walletfile: marshal share: %w", err)
	}
	return data, nil
}

// UnmarshalShare decodes a JSON document produced by MarshalShare.
func UnmarshalShare(data []byte) (*wallet.PairedShare, error) {
	var in shareJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("walletfile: unmarshal share: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(in.Share)
	if err != nil {
		return nil, fmt.Errorf("walletfile: decode share: %w", err)
	}
	if len(raw) != 96 {
		return nil, fmt.Errorf("walletfile: share must decode to 96 bytes, got %d", len(raw))
	}
	var fixed [96]byte
	copy(fixed[:], raw)
	share, err := wallet.ParsePairedShare(fixed)
	if err != nil {
		return nil, fmt.Errorf("walletfile: parse share: %w", err)
	}
	return share, nil
}

// metadataJSON is the on-disk form of wallet.Metadata: ranks keyed by
// string (frostparty.ID's decimal form) since JSON object keys must be
// strings, threshold/n as plain ints, and a bool for the hierarchical flag.
type metadataJSON struct {
	Ranks        map[string]int `json:"ranks"`
	Threshold    int            `json:"threshold"`
	N            int            `json:"n"`
	Hierarchical bool           `json:"hierarchical"`
}

// MarshalMetadata encodes meta as a JSON document.
func MarshalMetadata(meta wallet.Metadata) ([]byte, error) {
	ranks := make(map[string]int, len(meta.Ranks))
	for id, rank := range meta.Ranks {
		ranks[id.String()] = rank
	}
	out := metadataJSON{
		Ranks:        ranks,
		Threshold:    meta.Threshold,
		N:            meta.N,
		Hierarchical: meta.Hierarchical,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("walletfile: marshal metadata: %w", err)
	}
	return data, nil
}

// UnmarshalMetadata decodes a JSON document produced by MarshalMetadata and
// validates the result via wallet.Metadata.Validate.
func UnmarshalMetadata(data []byte) (wallet.Metadata, error) {
	var in metadataJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return wallet.Metadata{}, fmt.Errorf("walletfile: unmarshal metadata: %w", err)
	}
	ranks := make(map[frostparty.ID]int, len(in.Ranks))
	for idStr, rank := range in.Ranks {
		var id uint32
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			return wallet.Metadata{}, fmt.Errorf("walletfile: invalid party id %q: %w", idStr, err)
		}
		ranks[frostparty.ID(id)] = rank
	}
	meta := wallet.Metadata{
		Ranks:        ranks,
		Threshold:    in.Threshold,
		N:            in.N,
		Hierarchical: in.Hierarchical,
	}
	if err := meta.Validate(); err != nil {
		return wallet.Metadata{}, fmt.Errorf("walletfile: %w", err)
	}
	return meta, nil
}

// GroupKeyJSON is the on-disk form of a wallet.GroupKey: its 32-byte x-only
// encoding, base64'd.
type groupKeyJSON struct {
	Pubkey string `json:"pubkey"` // base64(32-byte x-only)
}

// MarshalGroupKey encodes gk as a JSON document.
func MarshalGroupKey(gk *wallet.GroupKey) ([]byte, error) {
	xb := gk.XOnlyBytes()
	out := groupKeyJSON{Pubkey: base64.StdEncoding.EncodeToString(xb[:])}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("walletfile: marshal group key: %w", err)
	}
	return data, nil
}

// UnmarshalGroupKey decodes a JSON document produced by MarshalGroupKey.
func UnmarshalGroupKey(data []byte) (*wallet.GroupKey, error) {
	var in groupKeyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("walletfile: unmarshal group key: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(in.Pubkey)
	if err != nil {
		return nil, fmt.Errorf("walletfile: decode group key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("walletfile: group key must decode to 32 bytes, got %d", len(raw))
	}
	var fixed [32]byte
	copy(fixed[:], raw)
	point, err := curve.SetXOnlyBytes(fixed)
	if err != nil {
		return nil, fmt.Errorf("walletfile: parse group key: %w", err)
	}
	return wallet.NewGroupKey(point), nil
}
