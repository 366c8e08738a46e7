package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/common/utils"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

func RewardsCacheKey(chainID uint64, user common.Address) string {
	return constants.RewardsKeyPrefix.NewKey(chainID, strings.ToLower(user.Hex()))
}

// CalculatePendingRewards answers the display query. Transient failures of
// the chain or the aggregate store give a degraded zero instead of an error.
func (s *RewardService) CalculatePendingRewards(ctx context.Context, address string, chainID uint64) (*entities.PendingReward, error) {
	user, ok := utils.NormalizeAddress(address)
	if !ok {
		return nil, apperror.BadRequest("Invalid address")
	}
	if err := s.checkChain(chainID); err != nil {
		return nil, err
	}
	reward, err := s.pendingReward(ctx, user, chainID)
	if err != nil {
		if !apperror.IsTransient(err) {
			s.metrics.rewardQueries.WithLabelValues("error").Inc()
			return nil, err
		}
		logger.WithFields(logrus.Fields{"chain": chainID, "user": user.Hex()}).Warnf("Pending reward degraded: %v", err)
		s.metrics.rewardQueries.WithLabelValues("degraded").Inc()
		return &entities.PendingReward{
			UserAddress: user.Hex(),
			ChainID:     chainID,
			Amount:      "0",
			Degraded:    true,
			Reason:      err.Error(),
		}, nil
	}
	if reward.Cached {
		s.metrics.rewardQueries.WithLabelValues("cached").Inc()
	} else {
		s.metrics.rewardQueries.WithLabelValues("computed").Inc()
	}
	return reward, nil
}

// pendingReward is the strict computation: every failure is returned.
func (s *RewardService) pendingReward(ctx context.Context, user common.Address, chainID uint64) (*entities.PendingReward, error) {
	key := RewardsCacheKey(chainID, user)
	if entry, ok := s.cachedEntry(ctx, key); ok {
		return &entities.PendingReward{
			UserAddress: user.Hex(),
			ChainID:     chainID,
			Amount:      entry.Amount,
			Stale:       s.isStale(entry.AggregateUpdatedAt),
			Cached:      true,
		}, nil
	}

	agg, err := s.store.GetAggregate(ctx, chainID)
	if err != nil {
		return nil, apperror.Transient("aggregate store unavailable", err)
	}
	amount := "0"
	if agg.HasPower() {
		power, err := chain.FleetPower(ctx, s.chains, chainID, user)
		if err != nil {
			return nil, err
		}
		amount = PendingAmount(power, agg)
	}

	entry := entities.PendingRewardEntry{Amount: amount}
	if agg != nil {
		entry.AggregateUpdatedAt = agg.UpdatedAt
	}
	entry.Stale = s.isStale(entry.AggregateUpdatedAt)
	s.storeEntry(ctx, key, entry)

	return &entities.PendingReward{
		UserAddress: user.Hex(),
		ChainID:     chainID,
		Amount:      amount,
		Stale:       entry.Stale,
	}, nil
}

func (s *RewardService) cachedEntry(ctx context.Context, key string) (*entities.PendingRewardEntry, bool) {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warnf("Reward cache read failed for %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	entry := entities.PendingRewardEntry{}
	if err := json.Unmarshal(b, &entry); err != nil {
		logger.Warnf("Dropping undecodable cache entry %s: %v", key, err)
		return nil, false
	}
	return &entry, true
}

func (s *RewardService) storeEntry(ctx context.Context, key string, entry entities.PendingRewardEntry) {
	b, err := json.Marshal(entry)
	if err != nil {
		logger.Errorf("Encoding cache entry %s: %v", key, err)
		return
	}
	ttl := s.cfg.CacheTTL
	if ttl <= 0 {
		ttl = constants.DefaultRewardsCacheTTL
	}
	if err := s.cache.Set(ctx, key, b, ttl); err != nil {
		logger.Warnf("Reward cache write failed for %s: %v", key, err)
	}
}

// aggregateAge is how old the chain's aggregate is, or -1 without one.
func (s *RewardService) aggregateAge(agg *entities.ChainAggregate) time.Duration {
	if agg == nil {
		return -1
	}
	return agg.Age(s.clock.Now())
}
