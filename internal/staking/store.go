package staking

import (
	"context"
	"sort"
	"sync"
)

// Store persists committed changesets. Apply must be all-or-nothing.
type Store interface {
	Load(ctx context.Context) (Changeset, error)
	Apply(ctx context.Context, cs Changeset) error
}

type memoryStore struct {
	mu           sync.RWMutex
	users        map[string]UserRecord
	transactions []Transaction
	totals       Totals
}

// NewMemoryStore builds a process-local store, mainly for tests and development.
func NewMemoryStore() Store {
	return &memoryStore{users: make(map[string]UserRecord)}
}

func (s *memoryStore) Load(_ context.Context) (Changeset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]UserRecord, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Seq < users[j].Seq })

	txs := make([]Transaction, len(s.transactions))
	copy(txs, s.transactions)
	return Changeset{Users: users, Transactions: txs, Totals: s.totals}, nil
}

func (s *memoryStore) Apply(_ context.Context, cs Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range cs.Users {
		s.users[u.ID] = u
	}
	s.transactions = append(s.transactions, cs.Transactions...)
	s.totals = cs.Totals
	return nil
}
