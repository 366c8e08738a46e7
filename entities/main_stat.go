package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// ChainAggregate is the per chain snapshot written by the recalculation job.
type ChainAggregate struct {
	ChainID         uint64          `json:"chainId"`
	TotalFleetPower *big.Int        `json:"-"`
	HourlyEmission  decimal.Decimal `json:"hourlyEmission"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type chainAggregateJSON struct {
	ChainID         uint64          `json:"chainId"`
	TotalFleetPower string          `json:"totalFleetPower"`
	HourlyEmission  decimal.Decimal `json:"hourlyEmission"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (a ChainAggregate) MarshalJSON() ([]byte, error) {
	total := "0"
	if a.TotalFleetPower != nil {
		total = a.TotalFleetPower.String()
	}
	return json.Marshal(chainAggregateJSON{
		ChainID:         a.ChainID,
		TotalFleetPower: total,
		HourlyEmission:  a.HourlyEmission,
		UpdatedAt:       a.UpdatedAt,
	})
}

func (a *ChainAggregate) UnmarshalJSON(b []byte) error {
	var raw chainAggregateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	total, ok := new(big.Int).SetString(raw.TotalFleetPower, 10)
	if !ok {
		return fmt.Errorf("invalid totalFleetPower %q", raw.TotalFleetPower)
	}
	a.ChainID = raw.ChainID
	a.TotalFleetPower = total
	a.HourlyEmission = raw.HourlyEmission
	a.UpdatedAt = raw.UpdatedAt
	return nil
}

func (a *ChainAggregate) EncodeBytes() ([]byte, error) {
	return json.Marshal(a)
}

func UnpackChainAggregate(b []byte) (*ChainAggregate, error) {
	var a ChainAggregate
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// HasPower is false when no fleet power is registered on the chain,
// in which case every pending reward is zero.
func (a *ChainAggregate) HasPower() bool {
	return a != nil && a.TotalFleetPower != nil && a.TotalFleetPower.Sign() > 0
}

func (a *ChainAggregate) Age(now time.Time) time.Duration {
	return now.Sub(a.UpdatedAt)
}

// AggregateStat is the aggregate as served by the stats endpoint.
type AggregateStat struct {
	*ChainAggregate
	Stale bool `json:"stale"`
}

func (s AggregateStat) MarshalJSON() ([]byte, error) {
	if s.ChainAggregate == nil {
		return []byte("null"), nil
	}
	b, err := s.ChainAggregate.MarshalJSON()
	if err != nil {
		return nil, err
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	m["stale"] = s.Stale
	return json.Marshal(m)
}

// ErrStaleAggregate is returned by aggregate stores when a write would not
// move updatedAt forward.
var ErrStaleAggregate = errors.New("aggregate is not newer than the stored one")
