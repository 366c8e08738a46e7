package configs

import (
	"sort"
	"strconv"
	"strings"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/pkg/log"
)

var logger = &log.Logger

// env suffix -> contract name, e.g. CONTRACT_11124_REWARD_CLAIM
var contractEnvSuffixes = map[string]constants.ContractName{
	"UFO":          constants.UFOContract,
	"SHIP_NFT":     constants.ShipNFTContract,
	"STATION_NFT":  constants.StationNFTContract,
	"MARKETPLACE":  constants.MarketplaceContract,
	"PACK_SALE":    constants.PackSaleContract,
	"REWARD_CLAIM": constants.RewardClaimContract,
}

// ChainsFromEnv discovers chains from CONTRACT_<id>_* variables. The rpc url
// comes from CHAIN_<id>_RPC or <id>_RPC_URL; chains without one are skipped.
func ChainsFromEnv(environ []string) []ChainConfig {
	env := map[string]string{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}

	chains := map[uint64]*ChainConfig{}
	for k, v := range env {
		if !strings.HasPrefix(k, "CONTRACT_") {
			continue
		}
		idPart, suffix, ok := strings.Cut(strings.TrimPrefix(k, "CONTRACT_"), "_")
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(idPart, 10, 64)
		if err != nil {
			continue
		}
		name, ok := contractEnvSuffixes[suffix]
		if !ok {
			continue
		}
		c, ok := chains[id]
		if !ok {
			c = &ChainConfig{ID: id, Contracts: map[string]string{}}
			chains[id] = c
		}
		c.Contracts[string(name)] = v
	}

	out := []ChainConfig{}
	for id, c := range chains {
		idStr := strconv.FormatUint(id, 10)
		c.RPC = env["CHAIN_"+idStr+"_RPC"]
		if c.RPC == "" {
			c.RPC = env[idStr+"_RPC_URL"]
		}
		if c.RPC == "" {
			logger.Warnf("RPC URL not found for chain %d. Skipping.", id)
			continue
		}
		c.Name = env["CHAIN_"+idStr+"_NAME"]
		if c.Name == "" {
			c.Name = "Chain " + idStr
		}
		if c.Contracts[string(constants.RewardClaimContract)] == "" {
			logger.Warnf("RewardClaim contract not configured for chain %d. Rewards will not be computed on it.", id)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MergeChains overlays env chains on file chains; file entries win per chain.
func MergeChains(file, env []ChainConfig) []ChainConfig {
	merged := append([]ChainConfig{}, file...)
	known := map[uint64]bool{}
	for _, c := range file {
		known[c.ID] = true
	}
	for _, c := range env {
		if !known[c.ID] {
			merged = append(merged, c)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}
