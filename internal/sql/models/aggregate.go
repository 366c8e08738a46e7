package models

import (
	"fmt"
	"math/big"
	"time"

	"github.com/abstractors/go-rewards/entities"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AggregateRecord is one recalculation result of a chain. The row with the
// latest AggregateUpdatedAt is the chain's current aggregate.
type AggregateRecord struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChainID            uint64    `gorm:"not null;uniqueIndex:idx_aggregate_chain_time,priority:1" json:"chainId"`
	TotalFleetPower    string    `gorm:"type:varchar(80);not null" json:"totalFleetPower"`
	HourlyEmission     string    `gorm:"type:varchar(100);not null" json:"hourlyEmission"`
	AggregateUpdatedAt time.Time `gorm:"not null;uniqueIndex:idx_aggregate_chain_time,priority:2" json:"updatedAt"`
	RunID              string    `gorm:"type:varchar(36);index" json:"runId,omitempty"`
	BaseModel
}

func (r *AggregateRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func NewAggregateRecord(agg *entities.ChainAggregate, runID string) *AggregateRecord {
	total := "0"
	if agg.TotalFleetPower != nil {
		total = agg.TotalFleetPower.String()
	}
	return &AggregateRecord{
		ChainID:            agg.ChainID,
		TotalFleetPower:    total,
		HourlyEmission:     agg.HourlyEmission.String(),
		AggregateUpdatedAt: agg.UpdatedAt,
		RunID:              runID,
	}
}

func (r *AggregateRecord) ToChainAggregate() (*entities.ChainAggregate, error) {
	total, ok := new(big.Int).SetString(r.TotalFleetPower, 10)
	if !ok {
		return nil, fmt.Errorf("invalid total fleet power %q", r.TotalFleetPower)
	}
	emission, err := decimal.NewFromString(r.HourlyEmission)
	if err != nil {
		return nil, err
	}
	return &entities.ChainAggregate{
		ChainID:         r.ChainID,
		TotalFleetPower: total,
		HourlyEmission:  emission,
		UpdatedAt:       r.AggregateUpdatedAt.UTC(),
	}, nil
}
