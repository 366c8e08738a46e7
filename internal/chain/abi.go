package chain

import (
	"embed"
	"fmt"
	"strings"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abis/*.json
var abiFiles embed.FS

// ABI returns the parsed interface of a known contract.
func ABI(name constants.ContractName) (*abi.ABI, error) {
	raw, err := abiFiles.ReadFile(fmt.Sprintf("abis/%s.json", name))
	if err != nil {
		return nil, fmt.Errorf("no abi for contract %s", name)
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
