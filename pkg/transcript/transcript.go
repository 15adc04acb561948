// Package transcript builds the domain-separated session context bytes fed
// into proof-of-possession challenges and FROST binding factors. Inputs are
// canonically CBOR-encoded before hashing so that map-valued inputs (e.g. a
// signer set keyed by party ID) hash identically regardless of iteration
// order, the same discipline the teacher's pkg/protocol/handler.go applies
// via fxamacker/cbor before computing its broadcast-message digest.
package transcript

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/frostdao/htss/pkg/frostparty"
)

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("transcript: building canonical CBOR encoder: %v", err))
	}
	return m
}()

// Context hashes a DKG/reshare session identifier together with the
// participating threshold configuration into a fixed-length domain-separator
// used downstream by PoP challenges and zero-polynomial commitments.
func Context(sessionID []byte, threshold, n int, signers frostparty.IDSlice) []byte {
	type payload struct {
		Session   []byte          `cbor:"1,keyasint"`
		Threshold int             `cbor:"2,keyasint"`
		N         int             `cbor:"3,keyasint"`
		Signers   []frostparty.ID `cbor:"4,keyasint"`
	}
	sorted := signers.Sorted()
	data, err := encMode.Marshal(payload{Session: sessionID, Threshold: threshold, N: n, Signers: sorted})
	if err != nil {
		panic(fmt.Sprintf("transcript: encoding context: %v", err))
	}
	h := blake3.Sum256(data)
	return h[:]
}

// SignerSetDigest canonically hashes a signer set, used as the last input to
// FROST's per-signer binding factor.
func SignerSetDigest(signers frostparty.IDSlice) []byte {
	sorted := signers.Sorted()
	data, err := encMode.Marshal(sorted)
	if err != nil {
		panic(fmt.Sprintf("transcript: encoding signer set: %v", err))
	}
	h := blake3.Sum256(data)
	return h[:]
}
