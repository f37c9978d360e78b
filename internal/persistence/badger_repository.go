package persistence

import (
	"errors"

	"rl-rebalancer-go/internal/models"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// resultPrefix namespaces run results within the database.
var resultPrefix = []byte("run/")

// badgerRepository is the BadgerDB implementation of the ResultRepository.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository creates and returns a new repository instance connected to a BadgerDB database.
func NewBadgerRepository(dbPath string) (ResultRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is disabled; errors are still returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

// NewInMemoryBadgerRepository opens a BadgerDB instance that never touches disk.
func NewInMemoryBadgerRepository() (ResultRepository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

func resultKey(runID string) []byte {
	return append(append([]byte(nil), resultPrefix...), runID...)
}

// SaveResult marshals the result with msgpack and stores it under run/<id>.
func (r *badgerRepository) SaveResult(result *models.RunResult) error {
	if result.RunID == "" {
		return errors.New("run result has no ID")
	}
	data, err := msgpack.Marshal(result)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resultKey(result.RunID), data)
	})
}

// LoadResult loads one result.
// If the key is not found, it returns (nil, nil) to indicate no result is present.
func (r *badgerRepository) LoadResult(runID string) (*models.RunResult, error) {
	var result models.RunResult

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(runID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("result value is empty in database")
			}
			return msgpack.Unmarshal(val, &result)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResults iterates the run/ prefix in key order.
func (r *badgerRepository) ListResults() ([]models.RunResult, error) {
	var results []models.RunResult

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = resultPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var result models.RunResult
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &result)
			}); err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
