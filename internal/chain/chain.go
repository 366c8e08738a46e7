package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/ethereum/go-ethereum/common"
)

var logger = &log.Logger

// Reader performs read-only contract calls on the configured chains.
type Reader interface {
	Read(ctx context.Context, contract constants.ContractName, method string, args []interface{}, chainID uint64) ([]interface{}, error)
	ChainIDs() []uint64
}

func FleetPower(ctx context.Context, r Reader, chainID uint64, user common.Address) (*big.Int, error) {
	return readUint(ctx, r, chainID, constants.MethodGetFleetPower, user)
}

func TotalFleetPower(ctx context.Context, r Reader, chainID uint64) (*big.Int, error) {
	return readUint(ctx, r, chainID, constants.MethodGetTotalFleetPower)
}

// BaseEmissionRate is in wei per unit of fleet power per hour.
func BaseEmissionRate(ctx context.Context, r Reader, chainID uint64) (*big.Int, error) {
	return readUint(ctx, r, chainID, constants.MethodBaseEmissionRate)
}

func TotalEmitted(ctx context.Context, r Reader, chainID uint64) (*big.Int, error) {
	return readUint(ctx, r, chainID, constants.MethodTotalEmitted)
}

func readUint(ctx context.Context, r Reader, chainID uint64, method string, args ...interface{}) (*big.Int, error) {
	out, err := r.Read(ctx, constants.RewardClaimContract, method, args, chainID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperror.Configuration(fmt.Sprintf("%s returned no value on chain %d", method, chainID))
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, apperror.Configuration(fmt.Sprintf("%s returned %T on chain %d, expected uint256", method, out[0], chainID))
	}
	return v, nil
}
