package cache

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// DatabaseFileName is the name of the cache database within the cache directory.
const DatabaseFileName = "objects.db"

// objectsBucket is the bucket relocatable objects are stored in.
var objectsBucket = []byte("objects")

// ObjectCache persists worker outputs keyed by the hash of their input, so that unchanged units are not recompiled.
// It is safe for concurrent use.
type ObjectCache struct {
	db *bolt.DB
}

// Open opens (or creates) the object cache within the given directory.
func Open(directory string) (*ObjectCache, error) {
	if err := utils.MakeDirectory(directory); err != nil {
		return nil, errors.WithStack(err)
	}
	db, err := bolt.Open(filepath.Join(directory, DatabaseFileName), 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "could not open object cache")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(objectsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}
	return &ObjectCache{db: db}, nil
}

// Key returns the cache key of a worker input: the keccak256 hash of its JSON encoding.
func Key(input any) ([]byte, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return crypto.Keccak256(data), nil
}

// Get returns the object cached for the input, if any.
func (c *ObjectCache) Get(input any) (*types.ContractObject, bool, error) {
	key, err := Key(input)
	if err != nil {
		return nil, false, err
	}

	var data []byte
	err = c.db.View(func(tx *bolt.Tx) error {
		// Values are only valid within the transaction.
		if value := tx.Bucket(objectsBucket).Get(key); value != nil {
			data = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, errors.WithStack(err)
	}

	var object types.ContractObject
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, false, errors.Wrap(err, "corrupted object cache entry")
	}
	return &object, true, nil
}

// Put stores the object compiled for the input.
func (c *ObjectCache) Put(input any, object *types.ContractObject) error {
	key, err := Key(input)
	if err != nil {
		return err
	}
	data, err := json.Marshal(object)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(objectsBucket).Put(key, data)
	}))
}

// Close closes the underlying database.
func (c *ObjectCache) Close() error {
	return errors.WithStack(c.db.Close())
}
