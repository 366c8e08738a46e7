package node

import (
	"github.com/abstractors/go-rewards/configs"
	dsquery "github.com/abstractors/go-rewards/internal/ds/query"
	dsstores "github.com/abstractors/go-rewards/internal/ds/stores"
	"github.com/abstractors/go-rewards/internal/service"
	sqlquery "github.com/abstractors/go-rewards/internal/sql/query"
	"github.com/abstractors/go-rewards/internal/system"
	coresql "github.com/abstractors/go-rewards/pkg/core/sql"
	"gorm.io/gorm"
)

// aggregateArchive is where recalculated aggregates are kept. The kv
// backend holds only the latest aggregate per chain; the sql backend keeps
// a pruned history.
type aggregateArchive struct {
	Store  service.AggregateStore
	Pruner system.Pruner
	db     *gorm.DB
}

func openAggregateArchive(cfg *configs.MainConfiguration, stores *dsstores.Stores) (*aggregateArchive, error) {
	if cfg.Store.Backend != configs.StoreBackendSQL {
		return &aggregateArchive{Store: dsquery.NewAggregateStore(stores.AggregateStore)}, nil
	}
	db, err := coresql.Open(cfg.Store.SQLDriver, cfg.Store.SQLDSN)
	if err != nil {
		return nil, err
	}
	history := sqlquery.NewAggregateHistory(db)
	logger.Infof("Aggregate history kept in %s for %s", cfg.Store.SQLDriver, cfg.Store.HistoryRetention)
	return &aggregateArchive{Store: history, Pruner: history, db: db}, nil
}

func (a *aggregateArchive) Close() {
	if a == nil || a.db == nil {
		return
	}
	if err := coresql.Close(a.db); err != nil {
		logger.Errorf("Closing aggregate history: %v", err)
	}
}
