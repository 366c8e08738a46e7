package entities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ClaimProof is handed to the user, who submits it to the RewardClaim contract.
// Proof signs (UserAddress, Amount, Epoch). ChainID is informational.
type ClaimProof struct {
	UserAddress string `json:"userAddress"`
	Amount      string `json:"amount"`
	Epoch       uint64 `json:"epoch"`
	Proof       string `json:"proof"`
	ChainID     uint64 `json:"chainId"`
}

// UnmarshalJSON accepts epoch as a JSON number or a decimal string.
func (c *ClaimProof) UnmarshalJSON(data []byte) error {
	type plain ClaimProof
	aux := struct {
		*plain
		Epoch json.RawMessage `json:"epoch"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw := string(aux.Epoch)
	if raw == "" || raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	epoch, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("epoch: %q is not an unsigned integer", raw)
	}
	c.Epoch = epoch
	return nil
}

const (
	ReasonInvalidSignature   = "Invalid signature"
	ReasonClaimExpired       = "Claim expired"
	ReasonVerificationFailed = "Verification failed"
)

type ClaimVerification struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func ValidClaim() ClaimVerification {
	return ClaimVerification{Valid: true}
}

func InvalidClaim(reason string) ClaimVerification {
	return ClaimVerification{Valid: false, Reason: reason}
}

// PendingRewardEntry is the cached form of a pending reward.
type PendingRewardEntry struct {
	Amount             string    `json:"amount"`
	AggregateUpdatedAt time.Time `json:"aggregateUpdatedAt"`
	Stale              bool      `json:"stale"`
}

// PendingReward is what the calculator answers. Degraded results carry
// amount "0" and the reason the live computation failed.
type PendingReward struct {
	UserAddress string `json:"userAddress"`
	ChainID     uint64 `json:"chainId"`
	Amount      string `json:"rewards"`
	Stale       bool   `json:"stale"`
	Cached      bool   `json:"cached"`
	Degraded    bool   `json:"degraded,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
