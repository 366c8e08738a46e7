package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/chain"
	dsquery "github.com/abstractors/go-rewards/internal/ds/query"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const recalculationKey = "recalculate"

// CalculateAllRewards refreshes the aggregate of every configured chain and
// then invalidates the cached pending rewards. A chain that fails gets an
// error entry; the others are still written. A call made while a run is in
// progress shares that run's result.
func (s *RewardService) CalculateAllRewards(ctx context.Context) (entities.RecalculationResult, error) {
	v, err, shared := s.recalc.Do(recalculationKey, func() (interface{}, error) {
		return s.recalculate(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Joined in-flight recalculation")
	}
	return v.(entities.RecalculationResult), nil
}

func (s *RewardService) recalculate(ctx context.Context) (entities.RecalculationResult, error) {
	runID := uuid.New().String()
	ctx = context.WithValue(ctx, constants.RunIDKey, runID)
	started := time.Now()
	stamp := s.clock.Now()
	chainIDs := s.chains.ChainIDs()
	log := logger.WithField("run", runID)
	log.Infof("Starting reward recalculation for %d chains", len(chainIDs))

	result := entities.RecalculationResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, chainID := range chainIDs {
		wg.Add(1)
		go func(chainID uint64) {
			defer wg.Done()
			entry := s.recalculateChain(ctx, chainID, stamp)
			mu.Lock()
			result[chainID] = entry
			mu.Unlock()
		}(chainID)
	}
	wg.Wait()

	// cached rewards stay until their TTL when invalidation fails
	removed, err := s.cache.DeleteByPrefix(ctx, constants.RewardsKeyPrefix.Prefix())
	if err != nil {
		s.metrics.invalidationFailures.Inc()
		log.Errorf("Reward cache invalidation failed: %v", err)
	} else {
		log.Debugf("Invalidated %d cached rewards", removed)
	}

	if s.systemStore != nil {
		if err := dsquery.IncrementStats(s.systemStore, result); err != nil {
			log.Errorf("Recording recalculation stats: %v", err)
		}
	}

	s.metrics.recalcRuns.Inc()
	s.metrics.recalcDuration.Observe(time.Since(started).Seconds())
	log.Infof("Reward recalculation completed: %d chains, %d failed", len(result), result.Failures())
	return result, nil
}

func (s *RewardService) recalculateChain(ctx context.Context, chainID uint64, stamp time.Time) entities.RecalculationEntry {
	log := logger.WithFields(logrus.Fields{"chain": chainID, "run": ctx.Value(constants.RunIDKey)})
	fail := func(err error) entities.RecalculationEntry {
		log.Errorf("Error updating chain %d: %v", chainID, err)
		s.metrics.recalcFailures.WithLabelValues(fmt.Sprint(chainID)).Inc()
		return entities.FailedRecalculationEntry(err)
	}

	total, err := chain.TotalFleetPower(ctx, s.chains, chainID)
	if err != nil {
		return fail(err)
	}
	rate, err := chain.BaseEmissionRate(ctx, s.chains, chainID)
	if err != nil {
		return fail(err)
	}
	agg := &entities.ChainAggregate{
		ChainID:         chainID,
		TotalFleetPower: total,
		HourlyEmission:  HourlyEmission(rate, total),
		UpdatedAt:       stamp,
	}
	if err := s.store.PutAggregate(ctx, agg); err != nil {
		return fail(err)
	}
	log.Infof("Chain %d: total fleet power %s, hourly emission %s", chainID, total, agg.HourlyEmission)
	return entities.NewRecalculationEntry(agg)
}
