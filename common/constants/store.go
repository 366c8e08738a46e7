package constants

import (
	"fmt"
	"strings"
	"time"
)

type DataStore string

const (
	AggregateStore DataStore = "aggregate-store"
	SystemStore    DataStore = "system-store"
)

type ContextKey string

const (
	ConfigKey ContextKey = "config"
	RunIDKey  ContextKey = "runId"
)

// CacheKeyPrefix namespaces result cache entries.
type CacheKeyPrefix string

const (
	RewardsKeyPrefix   CacheKeyPrefix = "rewards"
	AggregateKeyPrefix CacheKeyPrefix = "aggregate"
)

const cacheKeySeparator = ":"

// NewKey joins parts under the prefix, e.g. rewards:11124:0xabc...
func (c CacheKeyPrefix) NewKey(parts ...interface{}) string {
	keyParts := []string{string(c)}
	for _, p := range parts {
		keyParts = append(keyParts, fmt.Sprint(p))
	}
	return strings.Join(keyParts, cacheKeySeparator)
}

// Prefix matches every key created with NewKey.
func (c CacheKeyPrefix) Prefix() string {
	return string(c) + cacheKeySeparator
}

const (
	// EpochDuration is the wall-clock window a claim proof is scoped to.
	EpochDuration = time.Hour
	// ClaimMaxEpochAge is how many epochs a proof stays redeemable off-chain.
	ClaimMaxEpochAge       uint64 = 24
	DefaultRewardsCacheTTL        = 5 * time.Minute
	DefaultRecalcInterval         = time.Hour
	DefaultChainReadTimeout       = 10 * time.Second
	DefaultChainID         uint64 = 11124
	// reward token decimals, used for baseEmissionRate and amounts
	TokenDecimals int32 = 18
)
