package configs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/common/constants"
	"github.com/spf13/viper"
)

type ChainConfig struct {
	ID        uint64            `mapstructure:"id"`
	Name      string            `mapstructure:"name"`
	RPC       string            `mapstructure:"rpc"`
	Contracts map[string]string `mapstructure:"contracts"`
}

// ContractAddress fails with a configuration error when the contract is not
// deployed on the chain.
func (c ChainConfig) ContractAddress(name constants.ContractName) (string, error) {
	for k, v := range c.Contracts {
		if strings.EqualFold(k, string(name)) && v != "" {
			return v, nil
		}
	}
	return "", apperror.Configuration(fmt.Sprintf("contract %s not configured for chain %d", name, c.ID))
}

type SignerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

type RecalculationConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

type RewardsConfig struct {
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type ClaimsConfig struct {
	MaxEpochAge uint64 `mapstructure:"max_epoch_age"`
}

type ChainReadConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	MaxRetries        uint64        `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type CacheConfig struct {
	Backend  string `mapstructure:"backend"`
	RedisURL string `mapstructure:"redis_url"`
}

type StoreConfig struct {
	Backend          string        `mapstructure:"backend"`
	SQLDriver        string        `mapstructure:"sql_driver"`
	SQLDSN           string        `mapstructure:"sql_dsn"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	StoreBackendKV     = "kv"
	StoreBackendSQL    = "sql"
)

type MainConfiguration struct {
	LogLevel       string              `mapstructure:"log_level"`
	LogJSON        bool                `mapstructure:"log_json"`
	DataDir        string              `mapstructure:"data_dir"`
	RestAddress    string              `mapstructure:"rest_address"`
	AdminKey       string              `mapstructure:"admin_key"`
	DefaultChainID uint64              `mapstructure:"default_chain_id"`
	Chains         []ChainConfig       `mapstructure:"chains"`
	Signer         SignerConfig        `mapstructure:"signer"`
	Recalculation  RecalculationConfig `mapstructure:"recalculation"`
	Rewards        RewardsConfig       `mapstructure:"rewards"`
	Claims         ClaimsConfig        `mapstructure:"claims"`
	Chain          ChainReadConfig     `mapstructure:"chain"`
	Cache          CacheConfig         `mapstructure:"cache"`
	Store          StoreConfig         `mapstructure:"store"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("rest_address", ":3000")
	v.SetDefault("default_chain_id", constants.DefaultChainID)
	v.SetDefault("recalculation.interval", constants.DefaultRecalcInterval)
	v.SetDefault("recalculation.run_on_start", true)
	v.SetDefault("rewards.cache_ttl", constants.DefaultRewardsCacheTTL)
	v.SetDefault("claims.max_epoch_age", constants.ClaimMaxEpochAge)
	v.SetDefault("chain.read_timeout", constants.DefaultChainReadTimeout)
	v.SetDefault("chain.max_retries", 3)
	v.SetDefault("chain.requests_per_second", 20.0)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("store.backend", StoreBackendKV)
	v.SetDefault("store.sql_driver", "postgres")
	v.SetDefault("store.history_retention", 30*24*time.Hour)
}

// plain environment names accepted alongside REWARDNODE_*
var envBindings = map[string]string{
	"signer.private_key": "SERVER_WALLET_PRIVATE_KEY",
	"default_chain_id":   "DEFAULT_CHAIN_ID",
	"cache.redis_url":    "REDIS_URL",
	"admin_key":          "ADMIN_API_KEY",
}

// Load reads configuration from v (defaults, file, REWARDNODE_* env, flags)
// and merges chains discovered from environ.
func Load(v *viper.Viper, environ []string) (*MainConfiguration, error) {
	SetDefaults(v)
	v.SetEnvPrefix("rewardnode")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "REWARDNODE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	cfg := &MainConfiguration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Chains = MergeChains(cfg.Chains, ChainsFromEnv(environ))
	if cfg.Rewards.StaleAfter <= 0 {
		cfg.Rewards.StaleAfter = cfg.Recalculation.Interval
	}
	return cfg, cfg.Validate()
}

func (cfg *MainConfiguration) Validate() error {
	if cfg.Recalculation.Interval <= 0 {
		return apperror.Configuration("recalculation.interval must be positive")
	}
	if cfg.Rewards.CacheTTL <= 0 {
		return apperror.Configuration("rewards.cache_ttl must be positive")
	}
	if cfg.Chain.ReadTimeout <= 0 {
		return apperror.Configuration("chain.read_timeout must be positive")
	}
	switch cfg.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if cfg.Cache.RedisURL == "" {
			return apperror.Configuration("cache.redis_url is required for the redis cache")
		}
	default:
		return apperror.Configuration(fmt.Sprintf("unknown cache backend %q", cfg.Cache.Backend))
	}
	switch cfg.Store.Backend {
	case StoreBackendKV:
	case StoreBackendSQL:
		if cfg.Store.SQLDSN == "" {
			return apperror.Configuration("store.sql_dsn is required for the sql store")
		}
	default:
		return apperror.Configuration(fmt.Sprintf("unknown store backend %q", cfg.Store.Backend))
	}
	seen := map[uint64]bool{}
	for _, c := range cfg.Chains {
		if seen[c.ID] {
			return apperror.Configuration(fmt.Sprintf("chain %d configured twice", c.ID))
		}
		seen[c.ID] = true
		if c.RPC == "" {
			return apperror.Configuration(fmt.Sprintf("chain %d has no rpc url", c.ID))
		}
	}
	return nil
}

func (cfg *MainConfiguration) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		ids = append(ids, c.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
