package query

import (
	"context"
	"errors"
	"time"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/sql/models"
	"github.com/abstractors/go-rewards/pkg/log"
	"gorm.io/gorm"
)

var logger = &log.Logger

// AggregateHistory is the SQL aggregate store. Every recalculation appends a
// row; reads return the latest row per chain.
type AggregateHistory struct {
	db *gorm.DB
}

func NewAggregateHistory(db *gorm.DB) *AggregateHistory {
	return &AggregateHistory{db: db}
}

func latest(tx *gorm.DB, chainID uint64) (*models.AggregateRecord, error) {
	record := models.AggregateRecord{}
	err := tx.Where(&models.AggregateRecord{ChainID: chainID}).
		Order("aggregate_updated_at desc").
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetAggregate returns nil, nil when the chain has no history.
func (h *AggregateHistory) GetAggregate(ctx context.Context, chainID uint64) (*entities.ChainAggregate, error) {
	record, err := latest(h.db.WithContext(ctx), chainID)
	if err != nil || record == nil {
		return nil, err
	}
	return record.ToChainAggregate()
}

// PutAggregate appends agg, tagged with the run id found in ctx.
func (h *AggregateHistory) PutAggregate(ctx context.Context, agg *entities.ChainAggregate) error {
	runID, _ := ctx.Value(constants.RunIDKey).(string)
	stored := *agg
	stored.UpdatedAt = agg.UpdatedAt.UTC().Truncate(time.Microsecond)
	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := latest(tx, agg.ChainID)
		if err != nil {
			return err
		}
		if current != nil && !stored.UpdatedAt.After(current.AggregateUpdatedAt) {
			return entities.ErrStaleAggregate
		}
		return tx.Create(models.NewAggregateRecord(&stored, runID)).Error
	})
}

func (h *AggregateHistory) chainIDs(ctx context.Context) ([]uint64, error) {
	ids := []uint64{}
	err := h.db.WithContext(ctx).Model(&models.AggregateRecord{}).
		Distinct("chain_id").Order("chain_id").Pluck("chain_id", &ids).Error
	return ids, err
}

func (h *AggregateHistory) ListAggregates(ctx context.Context) ([]*entities.ChainAggregate, error) {
	ids, err := h.chainIDs(ctx)
	if err != nil {
		return nil, err
	}
	list := []*entities.ChainAggregate{}
	for _, id := range ids {
		agg, err := h.GetAggregate(ctx, id)
		if err != nil {
			return nil, err
		}
		if agg != nil {
			list = append(list, agg)
		}
	}
	return list, nil
}

// History returns up to limit past aggregates of a chain, newest first.
func (h *AggregateHistory) History(ctx context.Context, chainID uint64, limit int) ([]*entities.ChainAggregate, error) {
	data := []models.AggregateRecord{}
	err := h.db.WithContext(ctx).
		Where(&models.AggregateRecord{ChainID: chainID}).
		Order("aggregate_updated_at desc").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		return nil, err
	}
	list := make([]*entities.ChainAggregate, 0, len(data))
	for i := range data {
		agg, err := data[i].ToChainAggregate()
		if err != nil {
			return nil, err
		}
		list = append(list, agg)
	}
	return list, nil
}

// PruneBefore deletes records older than t. The latest record of each chain
// is always kept.
func (h *AggregateHistory) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	ids, err := h.chainIDs(ctx)
	if err != nil {
		return 0, err
	}
	var removed int64
	for _, id := range ids {
		current, err := latest(h.db.WithContext(ctx), id)
		if err != nil {
			return removed, err
		}
		if current == nil {
			continue
		}
		cutoff := t.UTC()
		if current.AggregateUpdatedAt.Before(cutoff) {
			cutoff = current.AggregateUpdatedAt
		}
		result := h.db.WithContext(ctx).Unscoped().
			Where("chain_id = ? AND aggregate_updated_at < ?", id, cutoff).
			Delete(&models.AggregateRecord{})
		if result.Error != nil {
			return removed, result.Error
		}
		removed += result.RowsAffected
	}
	if removed > 0 {
		logger.Infof("Pruned %d aggregate history records older than %s", removed, t.Format(time.RFC3339))
	}
	return removed, nil
}
