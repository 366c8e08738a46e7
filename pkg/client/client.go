package client

import (
	"time"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/configs"
)

var startedAt = time.Now()

type ChainInfo struct {
	ChainID        uint64 `json:"chainId"`
	Name           string `json:"name"`
	RewardContract string `json:"rewardContract,omitempty"`
}

type NodeInfo struct {
	Status         string      `json:"status"`
	Timestamp      time.Time   `json:"timestamp"`
	Uptime         string      `json:"uptime"`
	Signer         string      `json:"signer,omitempty"`
	DefaultChainID uint64      `json:"defaultChainId"`
	Chains         []ChainInfo `json:"chains"`
	StoreBackend   string      `json:"storeBackend"`
	CacheBackend   string      `json:"cacheBackend"`
}

func Info(cfg *configs.MainConfiguration, rewards RewardsAPI) *NodeInfo {
	info := &NodeInfo{
		Status:         "healthy",
		Timestamp:      time.Now().UTC(),
		Uptime:         time.Since(startedAt).Round(time.Second).String(),
		Signer:         rewards.SignerAddress(),
		DefaultChainID: cfg.DefaultChainID,
		Chains:         []ChainInfo{},
		StoreBackend:   cfg.Store.Backend,
		CacheBackend:   cfg.Cache.Backend,
	}
	for _, c := range cfg.Chains {
		address, _ := c.ContractAddress(constants.RewardClaimContract)
		info.Chains = append(info.Chains, ChainInfo{ChainID: c.ID, Name: c.Name, RewardContract: address})
	}
	return info
}
