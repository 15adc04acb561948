package wallet

import (
	"github.com/frostdao/htss/pkg/curve"
)

// Binonce is the secret half of a signing nonce, a fresh (d, e) scalar pair.
// Store implementations persist this between GenerateNonce and the matching
// Partial call, then must destroy it at the moment it is taken.
type Binonce struct {
	D *curve.Scalar
	E *curve.Scalar
}

// Store is the persistence capability every protocol function takes instead
// of doing its own I/O: it is the only place suspension can occur (spec §5),
// and every method here is specified as synchronous.
//
// Two concurrent calls against the same wallet are only safe if they touch
// disjoint session IDs; TakeNonce in particular MUST be atomic — it returns
// the binonce and deletes it in one critical section, so that concurrent
// callers racing on the same session ID succeed exactly once.
type Store interface {
	// PutNonce persists binonce secrets under (walletID, sessionID).
	PutNonce(walletID, sessionID string, b Binonce) error
	// TakeNonce atomically reads and deletes the binonce for
	// (walletID, sessionID). It returns ErrNonceMissing-classed errors (via
	// pkg/frosterr) if the session is unknown or was already consumed.
	TakeNonce(walletID, sessionID string) (Binonce, error)
	// LoadShare retrieves the wallet's current paired share.
	LoadShare(walletID string) (*PairedShare, error)
	// StoreShare replaces the wallet's paired share (used after DKG,
	// reshare, or recovery finalize).
	StoreShare(walletID string, share *PairedShare) error
	// LoadMeta retrieves the wallet's threshold/rank metadata.
	LoadMeta(walletID string) (Metadata, error)
	// StoreMeta replaces the wallet's metadata (used after reshare).
	StoreMeta(walletID string, meta Metadata) error
}
