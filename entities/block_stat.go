package entities

import "time"

// RecalculationEntry is one chain's slot in the recalculation result map.
// Either the aggregate fields or Error is set.
type RecalculationEntry struct {
	TotalFleetPower string     `json:"totalFleetPower,omitempty"`
	HourlyEmission  string     `json:"hourlyEmission,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func (e RecalculationEntry) Failed() bool {
	return e.Error != ""
}

func NewRecalculationEntry(agg *ChainAggregate) RecalculationEntry {
	ts := agg.UpdatedAt
	return RecalculationEntry{
		TotalFleetPower: agg.TotalFleetPower.String(),
		HourlyEmission:  agg.HourlyEmission.String(),
		Timestamp:       &ts,
	}
}

func FailedRecalculationEntry(err error) RecalculationEntry {
	return RecalculationEntry{Error: err.Error()}
}

// RecalculationResult maps chain id to its entry.
type RecalculationResult map[uint64]RecalculationEntry

func (r RecalculationResult) Failures() int {
	n := 0
	for _, e := range r {
		if e.Failed() {
			n++
		}
	}
	return n
}

// RecalculationStats counts the recalculation runs of one chain.
type RecalculationStats struct {
	Runs        uint64     `json:"runs"`
	Failures    uint64     `json:"failures"`
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`
}

// MiningStats are live RewardClaim figures, in tokens.
type MiningStats struct {
	TotalEmitted string `json:"totalUfoEmitted"`
	EmissionRate string `json:"emissionRate"`
}

// ChainStats is one chain's entry of the stats endpoint.
type ChainStats struct {
	ChainID       uint64              `json:"chainId"`
	Aggregate     *AggregateStat      `json:"aggregate"`
	Mining        *MiningStats        `json:"mining,omitempty"`
	MiningError   string              `json:"miningError,omitempty"`
	Recalculation *RecalculationStats `json:"recalculation,omitempty"`
	History       []*ChainAggregate   `json:"history,omitempty"`
	Error         string              `json:"error,omitempty"`
}
