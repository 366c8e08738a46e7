package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abstractors/go-rewards/entities"
)

// MaxHistory bounds the history a single stats request may ask for.
const MaxHistory = 720

// GetRewardStats answers one chain when chainID is given, else every
// chain. history asks for that many past aggregates of the one chain.
func GetRewardStats(ctx context.Context, rewards RewardsAPI, chainID string, history string) (interface{}, error) {
	limit, err := parseHistory(history)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(chainID) == "" {
		if limit > 0 {
			return nil, NewValidationError(entities.FieldError{Field: "history", Message: "\"history\" needs a \"chainId\""})
		}
		return rewards.GetAllStats(ctx), nil
	}
	id, err := ParseChainID(chainID, 0)
	if err != nil {
		return nil, err
	}
	stats, err := rewards.GetAggregateStats(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		if stats.History, err = rewards.GetAggregateHistory(ctx, id, limit); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func parseHistory(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxHistory {
		return 0, NewValidationError(entities.FieldError{Field: "history", Message: fmt.Sprintf("\"history\" must be between 1 and %d", MaxHistory)})
	}
	return n, nil
}
