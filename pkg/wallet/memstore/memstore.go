// Package memstore is an in-memory reference implementation of
// wallet.Store, used by tests and simple single-process embeddings. Shares
// and metadata live in plain maps guarded by a mutex; nonces additionally
// carry an expiry so a caller-configured TTL can reclaim abandoned sessions,
// the in-process analog of the teacher's 30-second `time.After` timeouts
// around each network round in cmd/threshold-cli/protocols.go.
package memstore

import (
	"sync"
	"time"

	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/wallet"
)

type nonceEntry struct {
	binonce wallet.Binonce
	expiry  time.Time
}

// Store is an in-memory wallet.Store. The zero value is not usable; call
// New.
type Store struct {
	mu sync.Mutex

	ttl time.Duration

	nonces map[string]nonceEntry
	shares map[string]*wallet.PairedShare
	metas  map[string]wallet.Metadata
}

// New returns an empty Store whose nonces expire after ttl. A ttl of zero
// means nonces never expire on their own (Sweep becomes a no-op).
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:    ttl,
		nonces: make(map[string]nonceEntry),
		shares: make(map[string]*wallet.PairedShare),
		metas:  make(map[string]wallet.Metadata),
	}
}

func key(walletID, sessionID string) string {
	return walletID + "\x00" + sessionID
}

// PutNonce implements wallet.Store.
func (s *Store) PutNonce(walletID, sessionID string, b wallet.Binonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(walletID, sessionID)
	if _, exists := s.nonces[k]; exists {
		return frosterr.New("memstore.PutNonce", frosterr.NonceAlreadyUsed, nil)
	}
	entry := nonceEntry{binonce: b}
	if s.ttl > 0 {
		entry.expiry = time.Now().Add(s.ttl)
	}
	s.nonces[k] = entry
	return nil
}

// TakeNonce implements wallet.Store's atomic read-and-delete contract:
// the mutex makes the whole read-check-delete sequence a single critical
// section, so two concurrent TakeNonce calls on the same session ID never
// both observe the entry present.
func (s *Store) TakeNonce(walletID, sessionID string) (wallet.Binonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(walletID, sessionID)
	entry, ok := s.nonces[k]
	if !ok {
		return wallet.Binonce{}, frosterr.New("memstore.TakeNonce", frosterr.NonceMissing, nil)
	}
	delete(s.nonces, k)
	if !entry.expiry.IsZero() && time.Now().After(entry.expiry) {
		return wallet.Binonce{}, frosterr.New("memstore.TakeNonce", frosterr.NonceMissing, nil)
	}
	return entry.binonce, nil
}

// LoadShare implements wallet.Store.
func (s *Store) LoadShare(walletID string) (*wallet.PairedShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.shares[walletID]
	if !ok {
		return nil, frosterr.New("memstore.LoadShare", frosterr.InvalidInput, nil)
	}
	return share, nil
}

// StoreShare implements wallet.Store.
func (s *Store) StoreShare(walletID string, share *wallet.PairedShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shares[walletID] = share
	return nil
}

// LoadMeta implements wallet.Store.
func (s *Store) LoadMeta(walletID string) (wallet.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.metas[walletID]
	if !ok {
		return wallet.Metadata{}, frosterr.New("memstore.LoadMeta", frosterr.InvalidInput, nil)
	}
	return meta, nil
}

// StoreMeta implements wallet.Store.
func (s *Store) StoreMeta(walletID string, meta wallet.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metas[walletID] = meta
	return nil
}

// Sweep deletes every nonce entry expired as of now, reclaiming sessions
// abandoned by a cancelled or crashed caller (spec §4.6: "Session entries
// SHOULD expire after a caller-configured TTL"). It returns the number of
// entries removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, entry := range s.nonces {
		if !entry.expiry.IsZero() && now.After(entry.expiry) {
			delete(s.nonces, k)
			removed++
		}
	}
	return removed
}
