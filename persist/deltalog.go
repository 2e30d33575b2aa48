package persist

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/nftbarter/tradeloop-engine/persist/internal"
	"github.com/nftbarter/tradeloop-engine/types"
)

// deltaLogHeader/deltaLogVersion identify the on-disk format of a DeltaLog's
// bolt file, checked by BoltDatabase on every open.
const (
	deltaLogHeader  = "tradeloop-engine delta log"
	deltaLogVersion = "0.1"
)

var rootBucketName = []byte("deltas")

// DeltaLog is the append-only replay log graphstore.Store writes every
// committed GraphDelta to (spec.md §6 "Persistence boundary (optional)").
// Each tenant gets its own bolt bucket nested under the root bucket, keyed
// by the delta's commit sequence number, so recovery can replay a single
// tenant's history in commit order without scanning the others.
type DeltaLog struct {
	db *BoltDatabase
}

// OpenDeltaLog opens (creating if necessary) a DeltaLog backed by filename.
func OpenDeltaLog(filename string) (*DeltaLog, error) {
	db, err := OpenDatabase(Metadata{Header: deltaLogHeader, Version: deltaLogVersion}, filename)
	if err != nil {
		return nil, fmt.Errorf("persist: could not open delta log: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DeltaLog{db: db}, nil
}

// Append satisfies graphstore.DeltaSink. It msgpack-encodes delta and writes
// it under tenant's nested bucket at the big-endian-sortable key for seq, so
// a later iteration over the bucket replays deltas in commit order.
func (l *DeltaLog) Append(tenant types.TenantID, seq uint64, delta types.GraphDelta) error {
	raw, err := msgpack.Marshal(delta)
	if err != nil {
		return fmt.Errorf("persist: could not encode delta: %w", err)
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucketName)
		bucket, err := root.CreateBucketIfNotExists([]byte(tenant))
		if err != nil {
			return err
		}
		return bucket.Put(internal.EncodeSeq(seq), raw)
	})
}

// Replay calls fn once per delta previously appended for tenant, in commit
// order, stopping at the first error fn returns.
func (l *DeltaLog) Replay(tenant types.TenantID, fn func(seq uint64, delta types.GraphDelta) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucketName)
		bucket := root.Bucket([]byte(tenant))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var delta types.GraphDelta
			if err := msgpack.Unmarshal(v, &delta); err != nil {
				return fmt.Errorf("persist: could not decode delta at seq %d: %w", internal.DecodeSeq(k), err)
			}
			return fn(internal.DecodeSeq(k), delta)
		})
	})
}

// Close closes the underlying database.
func (l *DeltaLog) Close() error {
	return l.db.Close()
}
