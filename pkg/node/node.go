package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/internal/chain"
	"github.com/abstractors/go-rewards/internal/crypto"
	dsstores "github.com/abstractors/go-rewards/internal/ds/stores"
	"github.com/abstractors/go-rewards/internal/service"
	"github.com/abstractors/go-rewards/internal/system"
	"github.com/abstractors/go-rewards/pkg/core/cache"
	"github.com/abstractors/go-rewards/pkg/core/rest"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var logger = &log.Logger

const shutdownTimeout = 10 * time.Second

type Options struct {
	// InMemory keeps the badger stores in memory, for one-shot commands and tests.
	InMemory bool
	// Dial overrides how chain rpc endpoints are reached.
	Dial     chain.DialFunc
}

// Node owns every long lived component of the reward node.
type Node struct {
	Cfg      *configs.MainConfiguration
	Service  *service.RewardService
	Registry *prometheus.Registry

	stores  *dsstores.Stores
	cache   *cache.Metered
	archive *aggregateArchive
}

// New opens stores, the result cache and chain connections and builds the
// reward service on top of them.
func New(ctx context.Context, cfg *configs.MainConfiguration, opts Options) (_ *Node, err error) {
	if opts.Dial == nil {
		opts.Dial = chain.DialEthClient
	}
	n := &Node{Cfg: cfg, Registry: prometheus.NewRegistry()}
	n.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	defer func() {
		if err != nil {
			n.Close()
		}
	}()

	if n.stores, err = dsstores.InitStores(cfg, opts.InMemory); err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	if n.cache, err = dsstores.InitCaches(ctx, cfg, n.Registry); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if n.archive, err = openAggregateArchive(cfg, n.stores); err != nil {
		return nil, fmt.Errorf("open aggregate store: %w", err)
	}

	if len(cfg.Chains) == 0 {
		logger.Warn("No chains configured")
	}
	chainOpts := chain.OptionsFromConfig(cfg)
	chainOpts.Registerer = n.Registry
	reader, err := chain.NewEVMReader(ctx, cfg.Chains, chainOpts, opts.Dial)
	if err != nil {
		return nil, err
	}

	var signer *crypto.Signer
	if cfg.Signer.PrivateKey != "" {
		if signer, err = crypto.NewSigner(cfg.Signer.PrivateKey); err != nil {
			return nil, fmt.Errorf("load signer: %w", err)
		}
		logger.Infof("Claim signer: %s", signer.Address().Hex())
	} else {
		logger.Warn("No signer private key configured, claim proofs are disabled")
	}

	n.Service, err = service.NewRewardService(service.ConfigFrom(cfg), reader, n.archive.Store, n.cache, signer,
		service.WithSystemStore(n.stores.SystemStore),
		service.WithRegisterer(n.Registry),
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Calculate runs one recalculation of every chain.
func (n *Node) Calculate(ctx context.Context) (entities.RecalculationResult, error) {
	return n.Service.CalculateAllRewards(ctx)
}

// Run serves the rest api and the recalculation scheduler until ctx ends,
// then shuts both down.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scheduler := system.NewScheduler(n.Service, n.Cfg.Recalculation.Interval, system.SchedulerOptions{
		RunOnStart:  n.Cfg.Recalculation.RunOnStart,
		SystemStore: n.stores.SystemStore,
		Pruner:      n.archive.Pruner,
		Retention:   n.Cfg.Store.HistoryRetention,
	})
	scheduler.Start(ctx)
	logger.Infof("Reward calculation scheduled every %s", n.Cfg.Recalculation.Interval)

	router := rest.NewRestService(n.Cfg, n.Service, n.Registry).Initialize()
	server := &http.Server{
		Addr:              n.Cfg.RestAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Infof("Starting REST api on: %s", n.Cfg.RestAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down reward node")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("REST api shutdown: %v", err)
	}
	wg.Wait()
	<-scheduler.Done()

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

func (n *Node) Close() {
	if n.cache != nil {
		if err := n.cache.Close(); err != nil {
			logger.Errorf("Closing cache: %v", err)
		}
	}
	n.archive.Close()
	if n.stores != nil {
		n.stores.Close()
	}
}

// Start runs the node configured in mainCtx until the context is cancelled.
func Start(mainCtx *context.Context) error {
	ctx := *mainCtx
	cfg, ok := ctx.Value(constants.ConfigKey).(*configs.MainConfiguration)
	if !ok {
		return fmt.Errorf("unable to load config from context")
	}
	n, err := New(ctx, cfg, Options{})
	if err != nil {
		return err
	}
	defer n.Close()
	return n.Run(ctx)
}
