package store

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/value"
)

var (
	bucketInput  = []byte("input")
	bucketOutput = []byte("output")
)

// Store is the Durable State Store. A Store is safe for concurrent use by
// multiple goroutines: reads run in concurrent bbolt read transactions,
// writes are serialised by bbolt's single-writer model (spec.md §4.2).
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the state database at path and
// ensures both sub-buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, bffherr.Wrap(bffherr.KindStoreOpen, "store: open_env", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketInput); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketOutput); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, bffherr.Wrap(bffherr.KindStoreOpen, "store: create_db", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func idKey(id uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return b[:]
}

func getState(tx *bolt.Tx, bucket []byte, id uint64) (value.State, bool, error) {
	b := tx.Bucket(bucket)
	data := b.Get(idKey(id))
	if data == nil {
		return value.State{}, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s, err := value.Unmarshal(cp)
	if err != nil {
		return value.State{}, false, bffherr.Wrap(bffherr.KindStoreTxn, "store: get", err)
	}
	return s, true, nil
}

// GetInput returns the current input State for id, or ok=false if the
// resource has never been written.
func (s *Store) GetInput(id uint64) (st value.State, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		st, ok, err = getState(tx, bucketInput, id)
		return err
	})
	return st, ok, err
}

// GetOutput returns the current output State for id, or ok=false if the
// resource has never been written.
func (s *Store) GetOutput(id uint64) (st value.State, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		st, ok, err = getState(tx, bucketOutput, id)
		return err
	})
	return st, ok, err
}

// Put writes both the input and output State for id in a single
// read-write transaction; it commits atomically, and a failure leaves
// the store unchanged (spec.md §4.2).
func (s *Store) Put(id uint64, input, output value.State) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := idKey(id)
		if err := tx.Bucket(bucketInput).Put(key, input.Marshal()); err != nil {
			return err
		}
		return tx.Bucket(bucketOutput).Put(key, output.Marshal())
	})
	if err != nil {
		return bffherr.Wrap(bffherr.KindStoreTxn, "store: put", err)
	}
	return nil
}

// Entry is one row yielded by IterateAll.
type Entry struct {
	ID     uint64
	Input  value.State
	Output value.State
}

// IterateAll walks every resource id present in the output bucket (every
// resource ever Put always has both an input and an output entry) and
// invokes fn with its id and both States, for dump/diagnostics use
// (spec.md §4.2). It runs inside a single read transaction, so fn sees a
// consistent snapshot; fn must not block indefinitely.
func (s *Store) IterateAll(fn func(Entry) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		in := tx.Bucket(bucketInput)
		out := tx.Bucket(bucketOutput)
		c := out.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			id := binary.LittleEndian.Uint64(k)
			output, err := value.Unmarshal(v)
			if err != nil {
				return bffherr.Wrap(bffherr.KindStoreTxn, fmt.Sprintf("store: iterate_all: output %d", id), err)
			}
			inputData := in.Get(k)
			var input value.State
			if inputData != nil {
				input, err = value.Unmarshal(inputData)
				if err != nil {
					return bffherr.Wrap(bffherr.KindStoreTxn, fmt.Sprintf("store: iterate_all: input %d", id), err)
				}
			}
			if err := fn(Entry{ID: id, Input: input, Output: output}); err != nil {
				return err
			}
		}
		return nil
	})
}
