// Package e2e_test exercises the six literal end-to-end scenarios and the
// boundary behaviors of the threshold engine's testable properties, each
// scenario driving the real dkg/signing/reshare/recovery/hd packages
// together rather than any single package in isolation.
//
// Grounded on the teacher's protocols/lss/lss_property_test.go Describe/It
// structure (BeforeEach/AfterEach scaffolding, helper run* functions feeding
// Ginkgo specs) — generalized here from ECDSA/LSS to FROST/HTSS.
package e2e_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frostdao/htss/pkg/curve"
	"github.com/frostdao/htss/pkg/dkg"
	"github.com/frostdao/htss/pkg/frostparty"
	"github.com/frostdao/htss/pkg/frosterr"
	"github.com/frostdao/htss/pkg/hd"
	"github.com/frostdao/htss/pkg/polynomial"
	"github.com/frostdao/htss/pkg/recovery"
	"github.com/frostdao/htss/pkg/reshare"
	"github.com/frostdao/htss/pkg/signing"
	"github.com/frostdao/htss/pkg/taghash"
	"github.com/frostdao/htss/pkg/wallet"
	"github.com/frostdao/htss/pkg/wallet/memstore"
)

func runDKG(threshold, n int, ranks map[frostparty.ID]int) (map[frostparty.ID]*wallet.PairedShare, *wallet.GroupKey) {
	ctx := []byte("e2e-test-ctx")
	params := dkg.Params{Threshold: threshold, N: n}

	ids := make(frostparty.IDSlice, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, frostparty.ID(i))
	}

	all := make(map[frostparty.ID]*dkg.Round1Output, n)
	secrets := make(map[frostparty.ID]*dkg.Round1Secret, n)
	for _, id := range ids {
		out, secret, err := dkg.Round1(params, ctx, ids, id, ranks[id])
		Expect(err).NotTo(HaveOccurred())
		all[id] = out
		secrets[id] = secret
	}

	receivedByRecipient := make(map[frostparty.ID]map[frostparty.ID]*curve.Scalar, n)
	for _, id := range ids {
		receivedByRecipient[id] = make(map[frostparty.ID]*curve.Scalar, n)
	}
	for _, sender := range ids {
		outgoing, err := dkg.Round2(sender, secrets[sender], all)
		Expect(err).NotTo(HaveOccurred())
		for recipient, share := range outgoing {
			receivedByRecipient[recipient][sender] = share
		}
	}

	hierarchical := false
	for _, r := range ranks {
		if r != 0 {
			hierarchical = true
		}
	}
	meta := wallet.Metadata{Ranks: ranks, Threshold: threshold, N: n, Hierarchical: hierarchical}

	shares := make(map[frostparty.ID]*wallet.PairedShare, n)
	var groupKey *wallet.GroupKey
	for _, id := range ids {
		share, gk, err := dkg.Finalize(ctx, id, meta, all, receivedByRecipient[id])
		Expect(err).NotTo(HaveOccurred())
		shares[id] = share
		groupKey = gk
	}
	return shares, groupKey
}

func flatRanks(n int) map[frostparty.ID]int {
	ranks := make(map[frostparty.ID]int, n)
	for i := 1; i <= n; i++ {
		ranks[frostparty.ID(i)] = 0
	}
	return ranks
}

// sign runs GenerateNonce/Partial/Combine for the given signer subset and
// tweak, returning the combined signature.
func sign(shares map[frostparty.ID]*wallet.PairedShare, groupKey *wallet.GroupKey, meta wallet.Metadata, signers frostparty.IDSlice, msg []byte, tweak *signing.Tweak, sessionID string) (*signing.Signature, error) {
	store := memstore.New(time.Minute)

	commitments := make(map[frostparty.ID]signing.BinonceCommitment, len(signers))
	for _, id := range signers {
		c, err := signing.GenerateNonce(store, shares[id], sessionID)
		if err != nil {
			return nil, err
		}
		commitments[id] = c
	}

	partials := make(map[frostparty.ID]*signing.PartialSig, len(signers))
	for _, id := range signers {
		p, err := signing.Partial(store, shares[id], sessionID, msg, signers, commitments, meta, tweak)
		if err != nil {
			return nil, err
		}
		partials[id] = p
	}

	return signing.Combine(signers, partials, groupKey, msg, meta, tweak)
}

var _ = Describe("2-of-3 TSS happy path", func() {
	It("verifies under the group pubkey for either qualifying signer subset, with differing signatures", func() {
		shares, groupKey := runDKG(2, 3, flatRanks(3))
		msg := []byte("hello")

		sig12, err := sign(shares, groupKey, wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}, frostparty.IDSlice{1, 2}, msg, nil, "s-12")
		Expect(err).NotTo(HaveOccurred())
		Expect(taghash.Verify(groupKey.Point(), msg, &taghash.Signature{RX: sig12.RX, S: sig12.S.Bytes()})).To(BeTrue())

		sig23, err := sign(shares, groupKey, wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}, frostparty.IDSlice{2, 3}, msg, nil, "s-23")
		Expect(err).NotTo(HaveOccurred())
		Expect(taghash.Verify(groupKey.Point(), msg, &taghash.Signature{RX: sig23.RX, S: sig23.S.Bytes()})).To(BeTrue())

		Expect(sig12.S.Equal(sig23.S)).To(BeFalse())
	})
})

var _ = Describe("3-of-4 HTSS rank enforcement", func() {
	It("rejects a Pólya-violating signer set and signs with a valid one", func() {
		ranks := map[frostparty.ID]int{1: 0, 2: 1, 3: 1, 4: 2}
		shares, groupKey := runDKG(3, 4, ranks)
		meta := wallet.Metadata{Ranks: ranks, Threshold: 3, N: 4, Hierarchical: true}
		msg := []byte("htss rank test")

		_, err := sign(shares, groupKey, meta, frostparty.IDSlice{2, 3, 4}, msg, nil, "bad-set")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, frosterr.SignerSetInvalid)).To(BeTrue())

		sig, err := sign(shares, groupKey, meta, frostparty.IDSlice{1, 2, 4}, msg, nil, "good-set")
		Expect(err).NotTo(HaveOccurred())
		Expect(taghash.Verify(groupKey.Point(), msg, &taghash.Signature{RX: sig.RX, S: sig.S.Bytes()})).To(BeTrue())
	})
})

var _ = Describe("Reshare preserves the group address", func() {
	It("keeps the group pubkey byte-for-byte equal after a 2-of-3 to 2-of-3 reshare", func() {
		oldShares, groupKey := runDKG(2, 3, flatRanks(3))
		oldMeta := wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}

		newParties := frostparty.IDSlice{1, 2, 3}
		outputs := make(map[frostparty.ID]*reshare.Round1Output, 2)
		for _, id := range frostparty.IDSlice{1, 2} {
			out, err := reshare.Round1(oldShares[id], 2, 3, newParties)
			Expect(err).NotTo(HaveOccurred())
			outputs[id] = out
		}

		for _, id := range newParties {
			ns, err := reshare.Finalize(oldMeta, oldShares[id].Share, groupKey, id, outputs)
			Expect(err).NotTo(HaveOccurred())
			Expect(ns.GroupKey.XOnlyBytes()).To(Equal(groupKey.XOnlyBytes()))
		}
	})
})

var _ = Describe("Recovery reconstructs the exact lost share", func() {
	It("rebuilds party 3's share bitwise from helpers {1,2}", func() {
		shares, groupKey := runDKG(2, 3, flatRanks(3))
		meta := wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}

		snapshot := shares[3].Share.Clone()
		helperSet := frostparty.IDSlice{1, 2}

		subs := make(map[frostparty.ID]*recovery.HelperSubShare, 2)
		for _, id := range helperSet {
			sub, err := recovery.Round1(shares[id], meta, 3, helperSet)
			Expect(err).NotTo(HaveOccurred())
			subs[id] = sub
		}

		recovered, err := recovery.Finalize(groupKey, meta, 3, subs)
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered.Share.Equal(snapshot)).To(BeTrue())
	})
})

var _ = Describe("HD derivation path validation and child signing", func() {
	It("rejects hardened components and signs under the derived child key for a non-hardened path", func() {
		_, err := hd.ParsePath("m/44'/0'/0'/0/5")
		Expect(err).To(HaveOccurred())

		shares, groupKey := runDKG(2, 3, flatRanks(3))
		meta := wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}
		cc := hd.SeedChainCode(groupKey)

		path, err := hd.ParsePath("m/0/5")
		Expect(err).NotTo(HaveOccurred())

		result, err := hd.Derive(groupKey, cc, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ChildKey.XOnlyBytes()).NotTo(Equal(groupKey.XOnlyBytes()))

		tweak := &signing.Tweak{Scalar: result.CumulativeTweak, BaseNegate: result.BaseNegate}
		sig, err := sign(shares, groupKey, meta, frostparty.IDSlice{1, 2}, []byte("pay"), tweak, "hd-session")
		Expect(err).NotTo(HaveOccurred())
		Expect(taghash.Verify(result.ChildKey.Point(), []byte("pay"), &taghash.Signature{RX: sig.RX, S: sig.S.Bytes()})).To(BeTrue())
	})
})

var _ = Describe("Nonce reuse fails closed", func() {
	It("rejects a second partial signature attempt on the same session id", func() {
		shares, _ := runDKG(2, 3, flatRanks(3))
		meta := wallet.Metadata{Ranks: flatRanks(3), Threshold: 2, N: 3}

		store := memstore.New(time.Minute)
		sessionID := "s1"
		signers := frostparty.IDSlice{1, 2}
		msg := []byte("reuse test")

		commitments := make(map[frostparty.ID]signing.BinonceCommitment, 2)
		for _, id := range signers {
			c, err := signing.GenerateNonce(store, shares[id], sessionID)
			Expect(err).NotTo(HaveOccurred())
			commitments[id] = c
		}

		_, err := signing.Partial(store, shares[1], sessionID, msg, signers, commitments, meta, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = signing.Partial(store, shares[1], sessionID, msg, signers, commitments, meta, nil)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, frosterr.NonceMissing)).To(BeTrue())
	})
})

var _ = Describe("Boundary behaviors", func() {
	It("requires every party when t == n, rejecting any t-1 subset", func() {
		shares, groupKey := runDKG(3, 3, flatRanks(3))
		meta := wallet.Metadata{Ranks: flatRanks(3), Threshold: 3, N: 3}

		_, err := sign(shares, groupKey, meta, frostparty.IDSlice{1, 2}, []byte("m"), nil, "t-eq-n-short")
		Expect(err).To(HaveOccurred())

		sig, err := sign(shares, groupKey, meta, frostparty.IDSlice{1, 2, 3}, []byte("m"), nil, "t-eq-n-full")
		Expect(err).NotTo(HaveOccurred())
		Expect(taghash.Verify(groupKey.Point(), []byte("m"), &taghash.Signature{RX: sig.RX, S: sig.S.Bytes()})).To(BeTrue())
	})

	It("allows a single signer to produce a valid signature when t == 1", func() {
		shares, groupKey := runDKG(1, 2, flatRanks(2))
		meta := wallet.Metadata{Ranks: flatRanks(2), Threshold: 1, N: 2}

		sig, err := sign(shares, groupKey, meta, frostparty.IDSlice{1}, []byte("solo"), nil, "t-eq-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(taghash.Verify(groupKey.Point(), []byte("solo"), &taghash.Signature{RX: sig.RX, S: sig.S.Bytes()})).To(BeTrue())
	})

	It("computes correct Lagrange coefficients for n >= 14 without factorial overflow", func() {
		n := 14
		ids := make(frostparty.IDSlice, n)
		for i := 0; i < n; i++ {
			ids[i] = frostparty.ID(i + 1)
		}
		weights := polynomial.Lagrange(ids)

		sum := curve.NewScalar()
		for _, w := range weights {
			sum = sum.Add(w)
		}
		Expect(sum.Equal(curve.ScalarFromUint64(1))).To(BeTrue())
	})

	It("behaves identically to flat TSS when all HTSS ranks are zero", func() {
		ranks := flatRanks(3)
		tssShares, tssGroupKey := runDKG(2, 3, ranks)

		htssRanks := map[frostparty.ID]int{1: 0, 2: 0, 3: 0}
		htssShares, htssGroupKey := runDKG(2, 3, htssRanks)

		tssSig, err := sign(tssShares, tssGroupKey, wallet.Metadata{Ranks: ranks, Threshold: 2, N: 3}, frostparty.IDSlice{1, 2}, []byte("m"), nil, "flat")
		Expect(err).NotTo(HaveOccurred())

		htssSig, err := sign(htssShares, htssGroupKey, wallet.Metadata{Ranks: htssRanks, Threshold: 2, N: 3, Hierarchical: true}, frostparty.IDSlice{1, 2}, []byte("m"), nil, "htss-zero")
		Expect(err).NotTo(HaveOccurred())

		Expect(taghash.Verify(tssGroupKey.Point(), []byte("m"), &taghash.Signature{RX: tssSig.RX, S: tssSig.S.Bytes()})).To(BeTrue())
		Expect(taghash.Verify(htssGroupKey.Point(), []byte("m"), &taghash.Signature{RX: htssSig.RX, S: htssSig.S.Bytes()})).To(BeTrue())
	})
})
