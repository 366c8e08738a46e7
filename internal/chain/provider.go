package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abstractors/go-rewards/common/apperror"
	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/configs"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

type Options struct {
	ReadTimeout       time.Duration
	MaxRetries        uint64
	RetryInterval     time.Duration
	RequestsPerSecond float64
	Registerer        prometheus.Registerer
}

func OptionsFromConfig(cfg *configs.MainConfiguration) Options {
	return Options{
		ReadTimeout:       cfg.Chain.ReadTimeout,
		MaxRetries:        cfg.Chain.MaxRetries,
		RetryInterval:     200 * time.Millisecond,
		RequestsPerSecond: cfg.Chain.RequestsPerSecond,
	}
}

// DialFunc connects to a chain's rpc endpoint.
type DialFunc func(ctx context.Context, chain configs.ChainConfig) (bind.ContractCaller, error)

func DialEthClient(ctx context.Context, chain configs.ChainConfig) (bind.ContractCaller, error) {
	client, err := ethclient.DialContext(ctx, chain.RPC)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ChainProvider binds the configured contracts of one chain.
type ChainProvider struct {
	Config    configs.ChainConfig
	caller    bind.ContractCaller
	limiter   *rate.Limiter
	mu        sync.Mutex
	contracts map[constants.ContractName]*boundContract
}

type boundContract struct {
	abi     *abi.ABI
	address common.Address
}

func (p *ChainProvider) bind(name constants.ContractName) (*boundContract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.contracts[name]; ok {
		return c, nil
	}
	address, err := p.Config.ContractAddress(name)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(address) {
		return nil, apperror.Configuration(fmt.Sprintf("invalid %s address %q on chain %d", name, address, p.Config.ID))
	}
	parsed, err := ABI(name)
	if err != nil {
		return nil, apperror.Configuration(err.Error())
	}
	c := &boundContract{
		abi:     parsed,
		address: common.HexToAddress(address),
	}
	p.contracts[name] = c
	return c, nil
}

// EVMReader is the go-ethereum backed Reader. Calls are throttled per chain,
// bounded by ReadTimeout and retried with exponential backoff.
type EVMReader struct {
	providers map[uint64]*ChainProvider
	opts      Options
	calls     *prometheus.CounterVec
}

func NewEVMReader(ctx context.Context, chains []configs.ChainConfig, opts Options, dial DialFunc) (*EVMReader, error) {
	if dial == nil {
		dial = DialEthClient
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = constants.DefaultChainReadTimeout
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 200 * time.Millisecond
	}
	r := &EVMReader{
		providers: map[uint64]*ChainProvider{},
		opts:      opts,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rewardnode",
			Subsystem: "chain",
			Name:      "calls_total",
			Help:      "Contract reads by chain, method and result.",
		}, []string{"chain", "method", "result"}),
	}
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(r.calls); err != nil {
			return nil, err
		}
	}
	for _, c := range chains {
		caller, err := dial(ctx, c)
		if err != nil {
			return nil, apperror.Configuration(fmt.Sprintf("dial chain %d: %v", c.ID, err))
		}
		limit := rate.Inf
		if opts.RequestsPerSecond > 0 {
			limit = rate.Limit(opts.RequestsPerSecond)
		}
		r.providers[c.ID] = &ChainProvider{
			Config:    c,
			caller:    caller,
			limiter:   rate.NewLimiter(limit, 1),
			contracts: map[constants.ContractName]*boundContract{},
		}
		logger.Infof("Chain %d (%s) ready", c.ID, c.Name)
	}
	return r, nil
}

// Provider returns the chain's provider or a configuration error.
func (r *EVMReader) Provider(chainID uint64) (*ChainProvider, error) {
	p, ok := r.providers[chainID]
	if !ok {
		return nil, apperror.Configuration(fmt.Sprintf("configuration not found for chain ID: %d", chainID))
	}
	return p, nil
}

func (r *EVMReader) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *EVMReader) Read(ctx context.Context, contract constants.ContractName, method string, args []interface{}, chainID uint64) ([]interface{}, error) {
	p, err := r.Provider(chainID)
	if err != nil {
		return nil, err
	}
	bc, err := p.bind(contract)
	if err != nil {
		return nil, err
	}
	if _, ok := bc.abi.Methods[method]; !ok {
		return nil, apperror.Configuration(fmt.Sprintf("method %s not found on %s", method, contract))
	}
	input, err := bc.abi.Pack(method, args...)
	if err != nil {
		return nil, apperror.BadRequest(fmt.Sprintf("invalid arguments for %s.%s: %v", contract, method, err))
	}

	msg := ethereum.CallMsg{To: &bc.address, Data: input}
	var output []byte
	call := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		callCtx, cancel := context.WithTimeout(ctx, r.opts.ReadTimeout)
		defer cancel()
		var err error
		output, err = p.caller.CallContract(callCtx, msg, nil)
		if err != nil {
			if isRevert(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(output) == 0 {
			code, err := p.caller.CodeAt(callCtx, bc.address, nil)
			if err != nil {
				return err
			}
			if len(code) == 0 {
				return backoff.Permanent(bind.ErrNoCode)
			}
		}
		return nil
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.opts.RetryInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, r.opts.MaxRetries), ctx)

	err = backoff.RetryNotify(call, policy, func(err error, next time.Duration) {
		logger.WithField("chain", chainID).Debugf("Retrying %s.%s in %s: %v", contract, method, next, err)
	})
	chainLabel := fmt.Sprint(chainID)
	if err != nil {
		r.calls.WithLabelValues(chainLabel, method, "error").Inc()
		switch {
		case errors.Is(err, bind.ErrNoCode):
			return nil, apperror.Configuration(fmt.Sprintf("%s has no code on chain %d", contract, chainID))
		case isRevert(err):
			return nil, apperror.Configuration(fmt.Sprintf("%s.%s reverted on chain %d: %v", contract, method, chainID, err))
		}
		return nil, apperror.Transient(fmt.Sprintf("%s.%s failed on chain %d", contract, method, chainID), err)
	}
	out, err := bc.abi.Unpack(method, output)
	if err != nil {
		r.calls.WithLabelValues(chainLabel, method, "error").Inc()
		return nil, apperror.Configuration(fmt.Sprintf("%s.%s output does not match its ABI on chain %d: %v", contract, method, chainID, err))
	}
	r.calls.WithLabelValues(chainLabel, method, "ok").Inc()
	return out, nil
}

// eth_call reports a revert as json-rpc error 3 or with an "execution
// reverted" message, depending on the node.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 3 {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
