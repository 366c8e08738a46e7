package service

import (
	"context"
	"fmt"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/chain"
	dsquery "github.com/abstractors/go-rewards/internal/ds/query"
	"github.com/shopspring/decimal"
)

// GetAggregateStats reports the stored aggregate of a chain with its
// staleness, live mining figures and recalculation counters.
func (s *RewardService) GetAggregateStats(ctx context.Context, chainID uint64) (*entities.ChainStats, error) {
	if err := s.checkChain(chainID); err != nil {
		return nil, err
	}
	agg, err := s.store.GetAggregate(ctx, chainID)
	if err != nil {
		return nil, apperror.Transient("aggregate store unavailable", err)
	}
	stats := &entities.ChainStats{ChainID: chainID}
	if agg != nil {
		stats.Aggregate = &entities.AggregateStat{
			ChainAggregate: agg,
			Stale:          s.isStale(agg.UpdatedAt),
		}
		logger.Debugf("Chain %d aggregate age %s", chainID, s.aggregateAge(agg))
	}

	if mining, err := s.miningStats(ctx, chainID); err != nil {
		stats.MiningError = err.Error()
	} else {
		stats.Mining = mining
	}

	if s.systemStore != nil {
		recalc, err := dsquery.GetStats(ctx, s.systemStore, chainID)
		if err != nil {
			logger.Errorf("Reading recalculation stats of chain %d: %v", chainID, err)
		} else {
			stats.Recalculation = recalc
		}
	}
	return stats, nil
}

// GetAllStats reports every configured chain; a chain that cannot be read
// carries its error instead of failing the whole answer. Aggregates stored
// for chains no longer configured follow, with a configuration error.
func (s *RewardService) GetAllStats(ctx context.Context) []*entities.ChainStats {
	list := []*entities.ChainStats{}
	configured := map[uint64]bool{}
	for _, chainID := range s.chains.ChainIDs() {
		configured[chainID] = true
		stats, err := s.GetAggregateStats(ctx, chainID)
		if err != nil {
			stats = &entities.ChainStats{ChainID: chainID, Error: err.Error()}
		}
		list = append(list, stats)
	}

	lister, ok := s.store.(AggregateLister)
	if !ok {
		return list
	}
	stored, err := lister.ListAggregates(ctx)
	if err != nil {
		logger.Errorf("Listing stored aggregates: %v", err)
		return list
	}
	for _, agg := range stored {
		if configured[agg.ChainID] {
			continue
		}
		list = append(list, &entities.ChainStats{
			ChainID:   agg.ChainID,
			Aggregate: &entities.AggregateStat{ChainAggregate: agg, Stale: s.isStale(agg.UpdatedAt)},
			Error:     fmt.Sprintf("configuration not found for chain ID: %d", agg.ChainID),
		})
	}
	return list
}

// GetAggregateHistory returns up to limit past aggregates of a chain, newest
// first. Only stores that keep history can answer.
func (s *RewardService) GetAggregateHistory(ctx context.Context, chainID uint64, limit int) ([]*entities.ChainAggregate, error) {
	if err := s.checkChain(chainID); err != nil {
		return nil, err
	}
	historian, ok := s.store.(AggregateHistorian)
	if !ok {
		return nil, apperror.NotFound("aggregate history is only kept by the sql store backend")
	}
	list, err := historian.History(ctx, chainID, limit)
	if err != nil {
		return nil, apperror.Transient("aggregate history unavailable", err)
	}
	return list, nil
}

func (s *RewardService) miningStats(ctx context.Context, chainID uint64) (*entities.MiningStats, error) {
	emitted, err := chain.TotalEmitted(ctx, s.chains, chainID)
	if err != nil {
		return nil, err
	}
	rate, err := chain.BaseEmissionRate(ctx, s.chains, chainID)
	if err != nil {
		return nil, err
	}
	return &entities.MiningStats{
		TotalEmitted: decimal.NewFromBigInt(emitted, -constants.TokenDecimals).String(),
		EmissionRate: decimal.NewFromBigInt(rate, -constants.TokenDecimals).String(),
	}, nil
}
