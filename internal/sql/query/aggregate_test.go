package query

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/sql/models"
	"github.com/abstractors/go-rewards/pkg/core/sql"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDB(t *testing.T) *gorm.DB {
	db, err := sql.Open(sql.DriverSqlite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { sql.Close(db) })
	return db
}

func aggregate(chainID uint64, total int64, at time.Time) *entities.ChainAggregate {
	return &entities.ChainAggregate{
		ChainID:         chainID,
		TotalFleetPower: big.NewInt(total),
		HourlyEmission:  decimal.RequireFromString("1.5").Mul(decimal.NewFromInt(total)),
		UpdatedAt:       at,
	}
}

func TestAggregateHistory(t *testing.T) {
	require := require.New(t)
	db := newDB(t)
	h := NewAggregateHistory(db)
	ctx := context.WithValue(context.Background(), constants.RunIDKey, "run-1")
	t0 := time.Date(2024, 2, 21, 16, 0, 0, 0, time.UTC)

	agg, err := h.GetAggregate(ctx, 11124)
	require.NoError(err)
	require.Nil(agg)

	require.NoError(h.PutAggregate(ctx, aggregate(11124, 1000, t0)))
	agg, err = h.GetAggregate(ctx, 11124)
	require.NoError(err)
	require.Equal("1000", agg.TotalFleetPower.String())
	require.Equal("1500", agg.HourlyEmission.String())
	require.True(agg.UpdatedAt.Equal(t0))

	err = h.PutAggregate(ctx, aggregate(11124, 1, t0))
	require.True(errors.Is(err, entities.ErrStaleAggregate))

	require.NoError(h.PutAggregate(ctx, aggregate(11124, 2000, t0.Add(time.Hour))))
	agg, err = h.GetAggregate(ctx, 11124)
	require.NoError(err)
	require.Equal("2000", agg.TotalFleetPower.String())

	history, err := h.History(ctx, 11124, 10)
	require.NoError(err)
	require.Len(history, 2)
	require.Equal("2000", history[0].TotalFleetPower.String())
	require.Equal("1000", history[1].TotalFleetPower.String())
	require.True(history[1].UpdatedAt.Equal(t0))

	history, err = h.History(ctx, 11124, 1)
	require.NoError(err)
	require.Len(history, 1)

	records := []models.AggregateRecord{}
	require.NoError(db.Where(&models.AggregateRecord{ChainID: 11124}).Find(&records).Error)
	require.Len(records, 2)
	require.Equal("run-1", records[0].RunID)
	require.NotEmpty(records[0].ID)
}

func TestListAndPrune(t *testing.T) {
	require := require.New(t)
	h := NewAggregateHistory(newDB(t))
	ctx := context.Background()
	t0 := time.Date(2024, 2, 21, 16, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(h.PutAggregate(ctx, aggregate(11124, int64(i+1), t0.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(h.PutAggregate(ctx, aggregate(1, 7, t0)))

	list, err := h.ListAggregates(ctx)
	require.NoError(err)
	require.Len(list, 2)
	require.Equal(uint64(1), list[0].ChainID)
	require.Equal("3", list[1].TotalFleetPower.String())

	removed, err := h.PruneBefore(ctx, t0.Add(10*time.Hour))
	require.NoError(err)
	require.Equal(int64(2), removed)

	history, err := h.History(ctx, 11124, 10)
	require.NoError(err)
	require.Len(history, 1)
	agg, err := h.GetAggregate(ctx, 1)
	require.NoError(err)
	require.Equal("7", agg.TotalFleetPower.String())
}
