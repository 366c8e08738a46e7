package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func IsValidAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}

// NormalizeAddress returns the EIP-55 checksummed form, or false when address
// is not a 20 byte hex account.
func NormalizeAddress(address string) (common.Address, bool) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, false
	}
	return common.HexToAddress(address), true
}
