package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/pkg/core/ds"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/ipfs/go-datastore"
	"github.com/pkg/errors"
)

var logger = &log.Logger

var ErrStaleAggregate = entities.ErrStaleAggregate

func IsErrorNotFound(e error) bool {
	return e == datastore.ErrNotFound || e == badger.ErrKeyNotFound
}

const aggregateKeyPrefix = "/aggregate"

func AggregateKey(chainID uint64) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("%s/%d", aggregateKeyPrefix, chainID))
}

// AggregateStore keeps the latest ChainAggregate per chain in a badger datastore.
type AggregateStore struct {
	store *ds.Datastore
}

func NewAggregateStore(store *ds.Datastore) *AggregateStore {
	return &AggregateStore{store: store}
}

// GetAggregate returns nil, nil when the chain was never recalculated.
func (s *AggregateStore) GetAggregate(ctx context.Context, chainID uint64) (*entities.ChainAggregate, error) {
	value, err := s.store.Get(ctx, AggregateKey(chainID))
	if err != nil {
		if IsErrorNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read aggregate for chain %d", chainID)
	}
	agg, err := entities.UnpackChainAggregate(value)
	if err != nil {
		return nil, errors.Wrapf(err, "decode aggregate for chain %d", chainID)
	}
	return agg, nil
}

func (s *AggregateStore) PutAggregate(ctx context.Context, agg *entities.ChainAggregate) error {
	if agg == nil {
		return fmt.Errorf("nil aggregate")
	}
	value, err := agg.EncodeBytes()
	if err != nil {
		return err
	}
	key := AggregateKey(agg.ChainID)
	return s.store.Update(func(txn *ds.Txn) error {
		current, err := txn.Get(key)
		if err != nil && !IsErrorNotFound(err) {
			return err
		}
		if err == nil {
			stored, err := entities.UnpackChainAggregate(current)
			if err != nil {
				return errors.Wrapf(err, "decode aggregate for chain %d", agg.ChainID)
			}
			if !agg.UpdatedAt.After(stored.UpdatedAt) {
				logger.Debugf("Rejected aggregate for chain %d: %s <= %s", agg.ChainID, agg.UpdatedAt, stored.UpdatedAt)
				return ErrStaleAggregate
			}
		}
		return txn.Put(key, value)
	})
}

// ListAggregates returns every stored aggregate ordered by chain id.
func (s *AggregateStore) ListAggregates(ctx context.Context) ([]*entities.ChainAggregate, error) {
	keys, err := s.store.KeysWithPrefix(ctx, datastore.NewKey(aggregateKeyPrefix))
	if err != nil {
		return nil, err
	}
	list := []*entities.ChainAggregate{}
	for _, key := range keys {
		chainID, err := strconv.ParseUint(strings.TrimPrefix(key.String(), aggregateKeyPrefix+"/"), 10, 64)
		if err != nil {
			logger.Warnf("Skipping unexpected aggregate key %s", key)
			continue
		}
		agg, err := s.GetAggregate(ctx, chainID)
		if err != nil {
			return nil, err
		}
		if agg != nil {
			list = append(list, agg)
		}
	}
	return list, nil
}
