package service

import (
	"math/big"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/entities"
	"github.com/shopspring/decimal"
)

const amountPrecision int32 = 18

// HourlyEmission is formatUnits(baseEmissionRate, 18) * totalFleetPower.
func HourlyEmission(baseEmissionRate, totalFleetPower *big.Int) decimal.Decimal {
	if baseEmissionRate == nil || totalFleetPower == nil {
		return decimal.Zero
	}
	rate := decimal.NewFromBigInt(baseEmissionRate, -constants.TokenDecimals)
	return rate.Mul(decimal.NewFromBigInt(totalFleetPower, 0))
}

// PendingAmount is fleetPower * hourlyEmission / totalFleetPower rounded to
// 18 decimal places. It is "0" without an aggregate or with no power.
func PendingAmount(fleetPower *big.Int, agg *entities.ChainAggregate) string {
	if !agg.HasPower() || fleetPower == nil || fleetPower.Sign() <= 0 {
		return "0"
	}
	power := decimal.NewFromBigInt(fleetPower, 0)
	total := decimal.NewFromBigInt(agg.TotalFleetPower, 0)
	return power.Mul(agg.HourlyEmission).DivRound(total, amountPrecision).String()
}
