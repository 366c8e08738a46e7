package query

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/pkg/core/ds"
	"github.com/ipfs/go-datastore"
)

func recalcRunsKey(chainID uint64) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("/stats/recalc/%d/runs", chainID))
}

func recalcFailuresKey(chainID uint64) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("/stats/recalc/%d/failures", chainID))
}

func recalcLastSuccessKey(chainID uint64) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("/stats/recalc/%d/lastSuccess", chainID))
}

// IncrementStats adds one recalculation run per chain of result to the
// system store counters.
func IncrementStats(store *ds.Datastore, result entities.RecalculationResult) error {
	return store.Update(func(txn *ds.Txn) error {
		for chainID, entry := range result {
			if err := incrementCounter(txn, recalcRunsKey(chainID)); err != nil {
				return err
			}
			if entry.Failed() {
				if err := incrementCounter(txn, recalcFailuresKey(chainID)); err != nil {
					return err
				}
				continue
			}
			if entry.Timestamp != nil {
				b, err := entry.Timestamp.MarshalBinary()
				if err != nil {
					return err
				}
				if err := txn.Put(recalcLastSuccessKey(chainID), b); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func incrementCounter(txn *ds.Txn, key datastore.Key) error {
	var count *big.Int
	value, err := txn.Get(key)
	if err != nil {
		if !IsErrorNotFound(err) {
			logger.Errorf("Incrementing recalculation counter %s: %v", key, err)
			return err
		}
		count = big.NewInt(1)
	} else {
		count = new(big.Int).Add(new(big.Int).SetBytes(value), big.NewInt(1))
	}
	return txn.Put(key, count.Bytes())
}

func GetStats(ctx context.Context, store *ds.Datastore, chainID uint64) (*entities.RecalculationStats, error) {
	stats := &entities.RecalculationStats{}
	var err error
	if stats.Runs, err = getCounter(ctx, store, recalcRunsKey(chainID)); err != nil {
		return nil, err
	}
	if stats.Failures, err = getCounter(ctx, store, recalcFailuresKey(chainID)); err != nil {
		return nil, err
	}
	value, err := store.Get(ctx, recalcLastSuccessKey(chainID))
	if err != nil && !IsErrorNotFound(err) {
		return nil, err
	}
	if err == nil {
		t := time.Time{}
		if err := t.UnmarshalBinary(value); err != nil {
			return nil, err
		}
		stats.LastSuccess = &t
	}
	return stats, nil
}

func getCounter(ctx context.Context, store *ds.Datastore, key datastore.Key) (uint64, error) {
	value, err := store.Get(ctx, key)
	if err != nil {
		if IsErrorNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return new(big.Int).SetBytes(value).Uint64(), nil
}
