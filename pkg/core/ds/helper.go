package ds

import (
	"context"
	"time"

	"github.com/ipfs/go-datastore"
)

const (
	LastRecalculationKey = "/lastRecalculation"
)

func GetLastRecalculation(ctx context.Context, store *Datastore) (time.Time, error) {
	b, err := store.Get(ctx, Key(LastRecalculationKey))
	if err == datastore.ErrNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	var t time.Time
	err = t.UnmarshalBinary(b)
	return t, err
}

func SetLastRecalculation(ctx context.Context, store *Datastore, t time.Time) error {
	b, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	return store.Put(ctx, Key(LastRecalculationKey), b)
}
