package stores

import (
	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/pkg/core/ds"
	"github.com/abstractors/go-rewards/pkg/log"
)

var logger = &log.Logger

// Stores holds the badger datastores of the node.
type Stores struct {
	AggregateStore *ds.Datastore
	SystemStore    *ds.Datastore
}

// InitStores opens every datastore under cfg.DataDir, or in memory.
func InitStores(cfg *configs.MainConfiguration, inMemory bool) (*Stores, error) {
	opts := ds.Options{DataDir: cfg.DataDir, InMemory: inMemory}
	s := &Stores{}
	var err error
	if s.AggregateStore, err = ds.New(string(constants.AggregateStore), opts); err != nil {
		return nil, err
	}
	if s.SystemStore, err = ds.New(string(constants.SystemStore), opts); err != nil {
		s.AggregateStore.Close()
		return nil, err
	}
	return s, nil
}

func (s *Stores) All() []*ds.Datastore {
	return []*ds.Datastore{s.AggregateStore, s.SystemStore}
}

func (s *Stores) Close() {
	for _, store := range s.All() {
		if store == nil {
			continue
		}
		if err := store.Close(); err != nil {
			logger.Errorf("Closing %s: %v", store.Name, err)
		}
	}
}
