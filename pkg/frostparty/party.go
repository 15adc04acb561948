// Package frostparty defines the party identifier used throughout the
// module: a 1-based integer index, unique within a wallet.
package frostparty

import (
	"fmt"
	"sort"

	"github.com/frostdao/htss/pkg/curve"
)

// ID identifies a party. Indices are 1-based; 0 is never a valid ID.
type ID uint32

// Validate reports whether id is a well-formed 1-based index.
func (id ID) Validate() error {
	if id == 0 {
		return fmt.Errorf("frostparty: index 0 is not a valid party ID")
	}
	return nil
}

// Scalar embeds id into the scalar field via the integer-to-scalar
// embedding: the index is taken as-is, never as a hash or truncation.
func (id ID) Scalar() *curve.Scalar {
	return curve.ScalarFromUint64(uint64(id))
}

func (id ID) String() string {
	return fmt.Sprintf("%d", uint32(id))
}

// IDSlice is a sortable, deduplicable collection of party IDs.
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sorted returns a sorted copy of s.
func (s IDSlice) Sorted() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id appears in s.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// HasDuplicates reports whether any ID appears more than once in s.
func (s IDSlice) HasDuplicates() bool {
	seen := make(map[ID]struct{}, len(s))
	for _, id := range s {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
