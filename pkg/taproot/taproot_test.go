package taproot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/dkg"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/signing"
	"github.com/frostdao/htss/pkg/taghash"
	"github.com/frostdao/htss/pkg/taproot"
	"github.com/frostdao/htss/pkg/wallet"
	"github.com/frostdao/htss/pkg/wallet/memstore"
)

func flatRanks(n int) map[frostparty.ID]int {
	ranks := make(map[frostparty.ID]int, n)
	for i := 1; i <= n; i++ {
		ranks[frostparty.ID(i)] = 0
	}
	return ranks
}

func runDKG(t *testing.T, threshold, n int) (map[frostparty.ID]*wallet.PairedShare, *wallet.GroupKey) {
	t.Helper()
	ctx := []byte("taproot-test-ctx")
	ranks := flatRanks(n)
	params := dkg.Params{Threshold: threshold, N: n}

	ids := make(frostparty.IDSlice, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, frostparty.ID(i))
	}

	all := make(map[frostparty.ID]*dkg.Round1Output, n)
	secrets := make(map[frostparty.ID]*dkg.Round1Secret, n)
	for _, id := range ids {
		out, secret, err := dkg.Round1(params, ctx, ids, id, ranks[id])
		require.NoError(t, err)
		all[id] = out
		secrets[id] = secret
	}

	receivedByRecipient := make(map[frostparty.ID]map[frostparty.ID]*curve.Scalar, n)
	for _, id := range ids {
		receivedByRecipient[id] = make(map[frostparty.ID]*curve.Scalar, n)
	}
	for _, sender := range ids {
		outgoing, err := dkg.Round2(sender, secrets[sender], all)
		require.NoError(t, err)
		for recipient, share := range outgoing {
			receivedByRecipient[recipient][sender] = share
		}
	}

	meta := wallet.Metadata{Ranks: ranks, Threshold: threshold, N: n}
	shares := make(map[frostparty.ID]*wallet.PairedShare, n)
	var groupKey *wallet.GroupKey
	for _, id := range ids {
		share, gk, err := dkg.Finalize(ctx, id, meta, all, receivedByRecipient[id])
		require.NoError(t, err)
		shares[id] = share
		groupKey = gk
	}
	return shares, groupKey
}

func TestOutputKeyDiffersFromInternalKey(t *testing.T) {
	_, groupKey := runDKG(t, 2, 3)
	output := taproot.OutputKey(groupKey, nil)
	require.False(t, output.Point().Equal(groupKey.Point()))
}

func TestMerkleRootChangesOutputKey(t *testing.T) {
	_, groupKey := runDKG(t, 2, 3)

	root := make([]byte, 32)
	root[0] = 0xAB
	withRoot, err := taproot.MerkleRoot(root)
	require.NoError(t, err)

	out1 := taproot.OutputKey(groupKey, nil)
	out2 := taproot.OutputKey(groupKey, withRoot)
	require.False(t, out1.Point().Equal(out2.Point()))
}

func TestMerkleRootRejectsWrongLength(t *testing.T) {
	_, err := taproot.MerkleRoot([]byte{1, 2, 3})
	require.Error(t, err)
}

// TestSignAgainstOutputKeyVerifies exercises the coupling pkg/taproot exists
// for: the BIP-341 tweak, handed straight to signing.Partial/Combine's
// tweak parameter, must produce a signature verifying against the
// published Taproot output key.
func TestSignAgainstOutputKeyVerifies(t *testing.T) {
	shares, groupKey := runDKG(t, 2, 3)
	meta := wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}
	tweak := &signing.Tweak{Scalar: taproot.TweakGroupKey(groupKey, nil)}
	outputKey := taproot.OutputKey(groupKey, nil)

	store := memstore.New(time.Minute)
	sessionID := "session-1"
	msg := []byte("spend via key path")
	signers := frostparty.IDSlice{1, 3}

	commitments := make(map[frostparty.ID]signing.BinonceCommitment, 2)
	for _, id := range signers {
		c, err := signing.GenerateNonce(store, shares[id], sessionID)
		require.NoError(t, err)
		commitments[id] = c
	}

	partials := make(map[frostparty.ID]*signing.PartialSig, 2)
	for _, id := range signers {
		p, err := signing.Partial(store, shares[id], sessionID, msg, signers, commitments, meta, tweak)
		require.NoError(t, err)
		partials[id] = p
	}

	sig, err := signing.Combine(signers, partials, groupKey, msg, meta, tweak)
	require.NoError(t, err)

	ok := taghash.Verify(outputKey.Point(), msg, &taghash.Signature{RX: sig.RX, S: sig.S.Bytes()})
	require.True(t, ok, "signature over Taproot output key failed to verify")
}
