package memstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/wallet"
	"github.com/frostdao/htss/pkg/wallet/memstore"
)

func TestTakeNonceIsOneShot(t *testing.T) {
	store := memstore.New(time.Minute)
	b := wallet.Binonce{D: curve.ScalarFromUint64(1), E: curve.ScalarFromUint64(2)}

	require.NoError(t, store.PutNonce("w1", "s1", b))

	got, err := store.TakeNonce("w1", "s1")
	require.NoError(t, err)
	require.True(t, got.D.Equal(b.D))

	_, err = store.TakeNonce("w1", "s1")
	require.ErrorIs(t, err, frosterr.NonceMissing)
}

func TestPutNonceRejectsDuplicateSession(t *testing.T) {
	store := memstore.New(0)
	b := wallet.Binonce{D: curve.ScalarFromUint64(1), E: curve.ScalarFromUint64(2)}

	require.NoError(t, store.PutNonce("w1", "s1", b))
	err := store.PutNonce("w1", "s1", b)
	require.ErrorIs(t, err, frosterr.NonceAlreadyUsed)
}

func TestSweepRemovesExpiredNonces(t *testing.T) {
	store := memstore.New(time.Nanosecond)
	b := wallet.Binonce{D: curve.ScalarFromUint64(1), E: curve.ScalarFromUint64(2)}
	require.NoError(t, store.PutNonce("w1", "s1", b))

	time.Sleep(time.Millisecond)
	removed := store.Sweep(time.Now())
	require.Equal(t, 1, removed)

	_, err := store.TakeNonce("w1", "s1")
	require.ErrorIs(t, err, frosterr.NonceMissing)
}

func TestShareAndMetaRoundTrip(t *testing.T) {
	store := memstore.New(0)
	gk := wallet.NewGroupKey(curve.Generator())
	share := &wallet.PairedShare{Index: 1, Share: curve.ScalarFromUint64(7), GroupKey: gk}

	require.NoError(t, store.StoreShare("w1", share))
	got, err := store.LoadShare("w1")
	require.NoError(t, err)
	require.True(t, got.Share.Equal(share.Share))

	meta := wallet.Metadata{Ranks: map[frostparty.ID]int{1: 0}, Threshold: 1, N: 1}
	require.NoError(t, store.StoreMeta("w1", meta))
	gotMeta, err := store.LoadMeta("w1")
	require.NoError(t, err)
	require.Equal(t, meta, gotMeta)
}
