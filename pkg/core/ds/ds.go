package ds

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	ds "github.com/ipfs/go-datastore"
	"github.com/pkg/errors"
)

func Key(key string) ds.Key {
	return ds.NewKey(key)
}

type Options struct {
	// DataDir is the node data directory; stores live under DataDir/store/kv/<name>.
	DataDir    string
	InMemory   bool
	SyncWrites bool
}

// Datastore is a named badger database addressed with go-datastore keys.
type Datastore struct {
	Name string
	DB   *badger.DB
}

func New(name string, opts Options) (*Datastore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dir := filepath.Join(opts.DataDir, "store", "kv", name)
		valueLogDir := filepath.Join(opts.DataDir, "store", "kv", "logs", name)
		if !strings.HasPrefix(dir, "./") && !strings.HasPrefix(dir, "../") && !filepath.IsAbs(dir) {
			dir = "./" + dir
			valueLogDir = "./" + valueLogDir
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
		if err := os.MkdirAll(valueLogDir, os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "create %s", valueLogDir)
		}
		bopts = badger.DefaultOptions(dir).
			WithValueDir(valueLogDir).
			WithSyncWrites(opts.SyncWrites).
			WithNumVersionsToKeep(1)
	}
	bopts = bopts.WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "open datastore %s", name)
	}
	return &Datastore{Name: name, DB: db}, nil
}

// Get returns ds.ErrNotFound for a missing key.
func (d *Datastore) Get(_ context.Context, key ds.Key) (value []byte, err error) {
	err = d.DB.View(func(txn *badger.Txn) error {
		value, err = getTxn(txn, key)
		return err
	})
	return value, err
}

func (d *Datastore) Has(ctx context.Context, key ds.Key) (bool, error) {
	_, err := d.Get(ctx, key)
	if err == ds.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (d *Datastore) Put(_ context.Context, key ds.Key, value []byte) error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(key.Bytes(), value)
	})
}

func (d *Datastore) Delete(_ context.Context, key ds.Key) error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return txn.Delete(key.Bytes())
	})
}

// Update runs fn in a read-write transaction, retried by the caller on
// badger.ErrConflict if needed.
func (d *Datastore) Update(fn func(txn *Txn) error) error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return fn(&Txn{txn: txn})
	})
}

// KeysWithPrefix lists the keys under prefix in key order.
func (d *Datastore) KeysWithPrefix(_ context.Context, prefix ds.Key) ([]ds.Key, error) {
	keys := []ds.Key{}
	err := d.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := prefix.Bytes()
		if prefix.String() != "/" {
			p = append(p, '/')
		}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, ds.RawKey(string(it.Item().KeyCopy(nil))))
		}
		return nil
	})
	return keys, err
}

func (d *Datastore) Close() error {
	return d.DB.Close()
}

// Txn exposes get/put on a badger transaction with datastore semantics.
type Txn struct {
	txn *badger.Txn
}

func (t *Txn) Get(key ds.Key) ([]byte, error) {
	return getTxn(t.txn, key)
}

func (t *Txn) Put(key ds.Key, value []byte) error {
	return t.txn.Set(key.Bytes(), value)
}

func getTxn(txn *badger.Txn, key ds.Key) ([]byte, error) {
	item, err := txn.Get(key.Bytes())
	if err == badger.ErrKeyNotFound {
		return nil, ds.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
