package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func issueProofFor(t *testing.T, h *harness, address string) *entities.ClaimProof {
	h.reader.setChain(testChainID, 1000, tokens(1))
	h.reader.setPower(testChainID, userA, 250)
	h.recalculate(t)
	proof, err := h.svc.GenerateClaimProof(context.Background(), address, testChainID)
	require.NoError(t, err)
	return proof
}

func issueProof(t *testing.T, h *harness) *entities.ClaimProof {
	return issueProofFor(t, h, userA.Hex())
}

func TestGenerateClaimProof(t *testing.T) {
	require := require.New(t)
	h := newHarness(t)
	proof := issueProof(t, h)

	require.Equal(userA.Hex(), proof.UserAddress)
	require.Equal("250", proof.Amount)
	require.Equal(testEpoch, proof.Epoch)
	require.Equal(testChainID, proof.ChainID)
	require.Len(proof.Proof, 132)
	require.Equal("0x85771fd2a848be1cfba9d4910b6631a79b261ad6620429a93e5f4b2ef8e394e1", crypto.RewardDigest(proof.UserAddress, proof.Amount, proof.Epoch).Hex())

	signer, err := crypto.RecoverSignerHex(crypto.RewardDigest(userA.Hex(), "250", testEpoch), proof.Proof)
	require.NoError(err)
	require.Equal(h.svc.SignerAddress(), signer.Hex())
	require.Equal(float64(1), testutil.ToFloat64(h.svc.metrics.claimsIssued))
}

func TestClaimRoundTrip(t *testing.T) {
	h := newHarness(t)
	proof := issueProof(t, h)
	require.Equal(t, entities.ValidClaim(), h.svc.VerifyClaimProof(context.Background(), *proof))
}

func TestClaimSignsAddressAsSubmitted(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	lower := strings.ToLower(userA.Hex())
	proof := issueProofFor(t, h, lower)

	require.Equal(lower, proof.UserAddress)
	require.Equal("250", proof.Amount)
	signer, err := crypto.RecoverSignerHex(crypto.RewardDigest(lower, "250", testEpoch), proof.Proof)
	require.NoError(err)
	require.Equal(h.svc.SignerAddress(), signer.Hex())
	require.Equal(entities.ValidClaim(), h.svc.VerifyClaimProof(ctx, *proof))

	checksummed := *proof
	checksummed.UserAddress = userA.Hex()
	require.Equal(entities.InvalidClaim(entities.ReasonInvalidSignature), h.svc.VerifyClaimProof(ctx, checksummed))
}

func TestClaimExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proof := issueProof(t, h)

	h.clock.Add(24 * time.Hour)
	require.True(t, h.svc.VerifyClaimProof(ctx, *proof).Valid)

	h.clock.Add(time.Hour)
	v := h.svc.VerifyClaimProof(ctx, *proof)
	require.False(t, v.Valid)
	require.Equal(t, entities.ReasonClaimExpired, v.Reason)
	require.Equal(t, float64(1), testutil.ToFloat64(h.svc.metrics.claimVerifications.WithLabelValues("expired")))
}

func TestTamperedClaims(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proof := issueProof(t, h)

	amount := *proof
	amount.Amount = "251"
	require.Equal(t, entities.InvalidClaim(entities.ReasonInvalidSignature), h.svc.VerifyClaimProof(ctx, amount))

	epoch := *proof
	epoch.Epoch--
	require.Equal(t, entities.InvalidClaim(entities.ReasonInvalidSignature), h.svc.VerifyClaimProof(ctx, epoch))

	user := *proof
	user.UserAddress = userB.Hex()
	require.Equal(t, entities.InvalidClaim(entities.ReasonInvalidSignature), h.svc.VerifyClaimProof(ctx, user))

	other, err := crypto.NewSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	forged := *proof
	forged.Proof, err = other.SignDigestHex(crypto.RewardDigest(proof.UserAddress, proof.Amount, proof.Epoch))
	require.NoError(t, err)
	require.Equal(t, entities.InvalidClaim(entities.ReasonInvalidSignature), h.svc.VerifyClaimProof(ctx, forged))
}

func TestMalformedClaims(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proof := issueProof(t, h)
	failed := entities.InvalidClaim(entities.ReasonVerificationFailed)

	for name, mutate := range map[string]func(c *entities.ClaimProof){
		"bad address":    func(c *entities.ClaimProof) { c.UserAddress = "0x1234" },
		"empty proof":    func(c *entities.ClaimProof) { c.Proof = "" },
		"not hex":        func(c *entities.ClaimProof) { c.Proof = "0xnothex" },
		"short proof":    func(c *entities.ClaimProof) { c.Proof = c.Proof[:100] },
		"bad recid":      func(c *entities.ClaimProof) { c.Proof = c.Proof[:130] + "05" },
		"zero signature": func(c *entities.ClaimProof) { c.Proof = "0x" + strings.Repeat("0", 128) + "1b" },
	} {
		t.Run(name, func(t *testing.T) {
			c := *proof
			mutate(&c)
			require.Equal(t, failed, h.svc.VerifyClaimProof(ctx, c))
		})
	}
}

func TestVerifyWithoutSigner(t *testing.T) {
	h := newHarness(t)
	proof := issueProof(t, h)
	svc, err := NewRewardService(h.svc.Config(), h.reader, h.store, h.cache, nil)
	require.NoError(t, err)
	require.Equal(t, entities.InvalidClaim(entities.ReasonVerificationFailed), svc.VerifyClaimProof(context.Background(), *proof))

	_, err = svc.GenerateClaimProof(context.Background(), userA.Hex(), testChainID)
	require.True(t, apperror.IsConfiguration(err))
}

func TestGenerateClaimProofPropagatesTransientErrors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	h.reader.setChain(testChainID, 1000, tokens(1))
	h.reader.setPower(testChainID, userA, 250)
	h.recalculate(t)
	h.reader.setFailure(testChainID, apperror.Transient("rpc down", context.DeadlineExceeded))

	_, err := h.svc.GenerateClaimProof(ctx, userA.Hex(), testChainID)
	require.True(apperror.IsTransient(err))

	_, err = h.svc.GenerateClaimProof(ctx, "0x12", testChainID)
	require.True(apperror.IsBadRequest(err))
	_, err = h.svc.GenerateClaimProof(ctx, userA.Hex(), 1)
	require.True(apperror.IsConfiguration(err))
}
