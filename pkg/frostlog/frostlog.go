// Package frostlog provides the structured logging used around DKG, signing,
// resharing, recovery, and HD derivation operations. Logging is an ambient
// concern carried regardless of the specification's Non-goals; this module
// follows the zerolog idiom already present in the corpus (see
// SafeMPC-mpc-service's derivation_utils.go) rather than hand-rolling a
// logger on top of the standard library.
package frostlog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// SetLevel adjusts the minimum level logged, for embeddings that want to
// silence or expand core logging.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(level)
}

// For returns a logger scoped to a named component (e.g. "dkg", "signing").
// It never includes secret share or nonce bytes in any field; callers pass
// only public identifiers (party IDs, session IDs, x-only keys).
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With().Str("component", component).Logger()
}
