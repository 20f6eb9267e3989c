package staking

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketUsers        = []byte("users")
	bucketTransactions = []byte("transactions")
	bucketMeta         = []byte("meta")
	keyTotals          = []byte("totals")
)

// BoltStore keeps ledger state in a single bbolt file. Users and transactions
// are keyed by their big-endian sequence numbers so cursors return them in
// registration and append order.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("boltstore: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketTransactions, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Load reads the whole ledger state.
func (s *BoltStore) Load(_ context.Context) (Changeset, error) {
	var cs Changeset
	err := s.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketUsers).ForEach(func(_, v []byte) error {
			var u UserRecord
			if err := decodeGob(v, &u); err != nil {
				return fmt.Errorf("boltstore: decode user: %w", err)
			}
			cs.Users = append(cs.Users, u)
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketTransactions).ForEach(func(_, v []byte) error {
			var t Transaction
			if err := decodeGob(v, &t); err != nil {
				return fmt.Errorf("boltstore: decode transaction: %w", err)
			}
			cs.Transactions = append(cs.Transactions, t)
			return nil
		})
		if err != nil {
			return err
		}
		if raw := tx.Bucket(bucketMeta).Get(keyTotals); raw != nil {
			if err := decodeGob(raw, &cs.Totals); err != nil {
				return fmt.Errorf("boltstore: decode totals: %w", err)
			}
		}
		return nil
	})
	return cs, err
}

// Apply writes the changeset in one bbolt update transaction.
func (s *BoltStore) Apply(_ context.Context, cs Changeset) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		for _, u := range cs.Users {
			raw, err := encodeGob(u)
			if err != nil {
				return err
			}
			if err := users.Put(seqKey(u.Seq), raw); err != nil {
				return err
			}
		}
		txs := tx.Bucket(bucketTransactions)
		for _, t := range cs.Transactions {
			raw, err := encodeGob(t)
			if err != nil {
				return err
			}
			if err := txs.Put(seqKey(t.Seq), raw); err != nil {
				return err
			}
		}
		raw, err := encodeGob(cs.Totals)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyTotals, raw)
	})
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
