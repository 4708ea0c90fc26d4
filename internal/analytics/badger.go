package analytics

import (
	"context"
	"encoding/json"
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	derrors "github.com/sharedash/sharedash/internal/errors"
)

// snapshotKey is the single document holding the latest snapshot,
// replaced wholesale on every recomputation.
var snapshotKey = []byte("snapshot:latest")

// BadgerStore implements Store using BadgerDB as the document cache.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (creating if needed) the analytics cache at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, derrors.StoreError("open analytics store", err)
	}
	return &BadgerStore{db: db}, nil
}

// ReplaceSnapshot writes the snapshot in one transaction, fully
// replacing the previous document.
func (s *BadgerStore) ReplaceSnapshot(_ context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return derrors.InternalError("encode snapshot", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, payload)
	})
	if err != nil {
		return derrors.StoreError("replace snapshot", err)
	}
	return nil
}

// ReadLatest returns the latest snapshot.
func (s *BadgerStore) ReadLatest(_ context.Context) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, derrors.NotFoundError("analytics snapshot")
	}
	if err != nil {
		return nil, derrors.StoreError("read snapshot", err)
	}
	return &snap, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
