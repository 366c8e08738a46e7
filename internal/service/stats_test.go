package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/entities"
	sqlquery "github.com/abstractors/go-rewards/internal/sql/query"
	coresql "github.com/abstractors/go-rewards/pkg/core/sql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGetAggregateStats(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t, testChainID, otherChainID)
	h.reader.setChain(testChainID, 1000, tokens(1))
	h.reader.emitted[testChainID] = new(big.Int).Div(tokens(3), big.NewInt(2))
	h.reader.setFailure(otherChainID, apperror.Transient("rpc down", errors.New("eof")))

	stats, err := h.svc.GetAggregateStats(ctx, testChainID)
	require.NoError(err)
	require.Nil(stats.Aggregate)
	require.Equal("1.5", stats.Mining.TotalEmitted)
	require.Equal("1", stats.Mining.EmissionRate)
	require.Equal(uint64(0), stats.Recalculation.Runs)

	h.recalculate(t)
	stats, err = h.svc.GetAggregateStats(ctx, testChainID)
	require.NoError(err)
	require.NotNil(stats.Aggregate)
	require.Equal("1000", stats.Aggregate.TotalFleetPower.String())
	require.False(stats.Aggregate.Stale)
	require.Equal(uint64(1), stats.Recalculation.Runs)
	require.NotNil(stats.Recalculation.LastSuccess)

	h.clock.Add(90 * time.Minute)
	stats, err = h.svc.GetAggregateStats(ctx, testChainID)
	require.NoError(err)
	require.True(stats.Aggregate.Stale)

	stats, err = h.svc.GetAggregateStats(ctx, otherChainID)
	require.NoError(err)
	require.Nil(stats.Mining)
	require.Contains(stats.MiningError, "rpc down")
	require.Equal(uint64(1), stats.Recalculation.Failures)

	_, err = h.svc.GetAggregateStats(ctx, 5)
	require.True(apperror.IsConfiguration(err))

	all := h.svc.GetAllStats(ctx)
	require.Len(all, 2)
	require.Equal(testChainID, all[0].ChainID)
	require.Equal(otherChainID, all[1].ChainID)
}

func TestGetAllStatsListsStoredChainsNoLongerConfigured(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	h.reader.setChain(testChainID, 1000, tokens(1))
	require.NoError(h.store.PutAggregate(ctx, &entities.ChainAggregate{
		ChainID:         1,
		TotalFleetPower: big.NewInt(5),
		HourlyEmission:  decimal.NewFromInt(2),
		UpdatedAt:       h.clock.Now(),
	}))

	all := h.svc.GetAllStats(ctx)
	require.Len(all, 2)
	require.Equal(testChainID, all[0].ChainID)
	require.Empty(all[0].Error)

	require.Equal(uint64(1), all[1].ChainID)
	require.Equal("5", all[1].Aggregate.TotalFleetPower.String())
	require.False(all[1].Aggregate.Stale)
	require.Equal("configuration not found for chain ID: 1", all[1].Error)
	require.Nil(all[1].Mining)
}

func TestGetAggregateHistory(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.GetAggregateHistory(ctx, testChainID, 5)
	require.Equal(http.StatusNotFound, apperror.HTTPStatus(err))

	db, err := coresql.Open(coresql.DriverSqlite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(err)
	t.Cleanup(func() { coresql.Close(db) })
	svc, err := NewRewardService(h.svc.Config(), h.reader, sqlquery.NewAggregateHistory(db), h.cache, nil, WithClock(h.clock))
	require.NoError(err)

	h.reader.setChain(testChainID, 1000, tokens(1))
	for i := 0; i < 3; i++ {
		h.clock.Add(time.Minute)
		result, err := svc.CalculateAllRewards(ctx)
		require.NoError(err)
		require.False(result[testChainID].Failed())
	}

	history, err := svc.GetAggregateHistory(ctx, testChainID, 2)
	require.NoError(err)
	require.Len(history, 2)
	require.True(history[0].UpdatedAt.Equal(h.clock.Now()))
	require.True(history[0].UpdatedAt.After(history[1].UpdatedAt))

	_, err = svc.GetAggregateHistory(ctx, 5, 2)
	require.True(apperror.IsConfiguration(err))
}
