package service

import (
	"context"
	"fmt"
	"time"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/chain"
	"github.com/abstractors/go-rewards/internal/crypto"
	"github.com/abstractors/go-rewards/pkg/core/cache"
	"github.com/abstractors/go-rewards/pkg/core/ds"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

var logger = &log.Logger

// AggregateStore persists the latest ChainAggregate of every chain.
// GetAggregate returns nil, nil when a chain has none.
type AggregateStore interface {
	GetAggregate(ctx context.Context, chainID uint64) (*entities.ChainAggregate, error)
	PutAggregate(ctx context.Context, agg *entities.ChainAggregate) error
}

// AggregateLister is implemented by stores that can enumerate their chains.
type AggregateLister interface {
	ListAggregates(ctx context.Context) ([]*entities.ChainAggregate, error)
}

// AggregateHistorian is implemented by stores that keep past aggregates.
type AggregateHistorian interface {
	History(ctx context.Context, chainID uint64, limit int) ([]*entities.ChainAggregate, error)
}

type Config struct {
	CacheTTL       time.Duration
	StaleAfter     time.Duration
	MaxEpochAge    uint64
	DefaultChainID uint64
}

func ConfigFrom(cfg *configs.MainConfiguration) Config {
	return Config{
		CacheTTL:       cfg.Rewards.CacheTTL,
		StaleAfter:     cfg.Rewards.StaleAfter,
		MaxEpochAge:    cfg.Claims.MaxEpochAge,
		DefaultChainID: cfg.DefaultChainID,
	}
}

type Option func(*RewardService)

// WithClock replaces wall-clock time, used for epochs and aggregate stamps.
func WithClock(c clock.Clock) Option {
	return func(s *RewardService) { s.clock = c }
}

// WithSystemStore enables per chain recalculation counters.
func WithSystemStore(store *ds.Datastore) Option {
	return func(s *RewardService) { s.systemStore = store }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *RewardService) { s.registerer = reg }
}

// RewardService computes pending rewards, runs recalculations and issues and
// verifies claim proofs.
type RewardService struct {
	cfg         Config
	chains      chain.Reader
	store       AggregateStore
	cache       cache.Cache
	signer      *crypto.Signer
	clock       clock.Clock
	systemStore *ds.Datastore
	registerer  prometheus.Registerer
	metrics     *metrics
	recalc      singleflight.Group
}

func NewRewardService(cfg Config, reader chain.Reader, store AggregateStore, c cache.Cache, signer *crypto.Signer, opts ...Option) (*RewardService, error) {
	if reader == nil || store == nil || c == nil {
		return nil, fmt.Errorf("reward service needs a chain reader, an aggregate store and a cache")
	}
	if cfg.MaxEpochAge == 0 {
		cfg.MaxEpochAge = 24
	}
	s := &RewardService{
		cfg:    cfg,
		chains: reader,
		store:  store,
		cache:  c,
		signer: signer,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	m, err := newMetrics(s.registerer)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

func (s *RewardService) Config() Config {
	return s.cfg
}

func (s *RewardService) ChainIDs() []uint64 {
	return s.chains.ChainIDs()
}

// SignerAddress is empty when no signing key is configured.
func (s *RewardService) SignerAddress() string {
	if s.signer == nil {
		return ""
	}
	return s.signer.Address().Hex()
}

func (s *RewardService) checkChain(chainID uint64) error {
	for _, id := range s.chains.ChainIDs() {
		if id == chainID {
			return nil
		}
	}
	return apperror.Configuration(fmt.Sprintf("configuration not found for chain ID: %d", chainID))
}

// isStale reports whether an aggregate stamped at updatedAt is too old to be
// trusted. A missing aggregate is stale.
func (s *RewardService) isStale(updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return true
	}
	if s.cfg.StaleAfter <= 0 {
		return false
	}
	return s.clock.Since(updatedAt) > s.cfg.StaleAfter
}
