package service

import (
	"context"
	"strings"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/common/utils"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/crypto"
	"github.com/sirupsen/logrus"
)

// GenerateClaimProof signs the user's current pending amount for the current
// epoch. Unlike the display query, transient failures are returned. The
// address is signed and echoed exactly as submitted.
func (s *RewardService) GenerateClaimProof(ctx context.Context, address string, chainID uint64) (*entities.ClaimProof, error) {
	address = strings.TrimSpace(address)
	user, ok := utils.NormalizeAddress(address)
	if !ok {
		return nil, apperror.BadRequest("Invalid address")
	}
	if err := s.checkChain(chainID); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, apperror.Configuration("claim signer is not configured")
	}
	reward, err := s.pendingReward(ctx, user, chainID)
	if err != nil {
		logger.WithFields(logrus.Fields{"chain": chainID, "user": user.Hex()}).Errorf("Error generating claim proof: %v", err)
		return nil, err
	}

	epoch := utils.Epoch(s.clock.Now())
	digest := crypto.RewardDigest(address, reward.Amount, epoch)
	proof, err := s.signer.SignDigestHex(digest)
	if err != nil {
		return nil, err
	}
	s.metrics.claimsIssued.Inc()
	return &entities.ClaimProof{
		UserAddress: address,
		Amount:      reward.Amount,
		Epoch:       epoch,
		Proof:       proof,
		ChainID:     chainID,
	}, nil
}

// VerifyClaimProof checks that proof was signed by this node's signer over
// (address, amount, epoch) and that the epoch is recent enough. It never
// fails; any malformed input is reported as a failed verification.
func (s *RewardService) VerifyClaimProof(ctx context.Context, claim entities.ClaimProof) (result entities.ClaimVerification) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Claim verification panicked: %v", r)
			result = entities.InvalidClaim(entities.ReasonVerificationFailed)
		}
		s.metrics.claimVerifications.WithLabelValues(verificationLabel(result)).Inc()
	}()

	if s.signer == nil {
		return entities.InvalidClaim(entities.ReasonVerificationFailed)
	}
	if !utils.IsValidAddress(claim.UserAddress) {
		return entities.InvalidClaim(entities.ReasonVerificationFailed)
	}
	digest := crypto.RewardDigest(claim.UserAddress, claim.Amount, claim.Epoch)
	signer, err := crypto.RecoverSignerHex(digest, claim.Proof)
	if err != nil {
		logger.Debugf("Claim signature recovery failed: %v", err)
		return entities.InvalidClaim(entities.ReasonVerificationFailed)
	}
	if !strings.EqualFold(signer.Hex(), s.signer.Address().Hex()) {
		return entities.InvalidClaim(entities.ReasonInvalidSignature)
	}

	current := utils.Epoch(s.clock.Now())
	if current > claim.Epoch && current-claim.Epoch > s.cfg.MaxEpochAge {
		return entities.InvalidClaim(entities.ReasonClaimExpired)
	}
	return entities.ValidClaim()
}

func verificationLabel(v entities.ClaimVerification) string {
	switch {
	case v.Valid:
		return "valid"
	case v.Reason == entities.ReasonInvalidSignature:
		return "invalid_signature"
	case v.Reason == entities.ReasonClaimExpired:
		return "expired"
	default:
		return "failed"
	}
}
