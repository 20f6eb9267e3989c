package staking

import "time"

const noParent = -1

// record is one arena slot. Slots are never removed, so an index stays valid
// for the lifetime of the arena and child adjacency can be stored as indexes.
type record struct {
	seq          uint64
	id           string
	name         string
	parent       int
	children     []int
	signupAt     time.Time
	lastRewardAt time.Time
	staked       uint64
	history      []Transaction
}

// arena is the explicit ledger store owned by the Engine. Index 0 always holds
// the root identity once initialization completed.
type arena struct {
	records   []*record
	index     map[string]int
	totals    Totals
	nextTxSeq uint64
}

func newArena() *arena {
	return &arena{index: make(map[string]int), nextTxSeq: 1}
}

func (a *arena) register(id, name string, at time.Time) (int, error) {
	if id == "" {
		return noParent, ErrEmptyIdentity
	}
	if _, ok := a.index[id]; ok {
		return noParent, ErrAlreadyRegistered
	}
	idx := len(a.records)
	a.records = append(a.records, &record{
		seq:          uint64(idx) + 1,
		id:           id,
		name:         name,
		parent:       noParent,
		signupAt:     at,
		lastRewardAt: at,
	})
	a.index[id] = idx
	return idx, nil
}

func (a *arena) exists(id string) bool {
	_, ok := a.index[id]
	return ok
}

func (a *arena) lookup(id string) (*record, bool) {
	idx, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return a.records[idx], true
}

func (a *arena) nextSeq() uint64 {
	return uint64(len(a.records)) + 1
}

// userRecord captures the persisted shape of a slot.
func (a *arena) userRecord(r *record) UserRecord {
	ur := UserRecord{
		Seq:          r.seq,
		ID:           r.id,
		Name:         r.name,
		SignupAt:     r.signupAt,
		LastRewardAt: r.lastRewardAt,
		Staked:       r.staked,
	}
	if r.parent != noParent {
		ur.Referrer = a.records[r.parent].id
	}
	return ur
}

func (a *arena) view(r *record) User {
	ur := a.userRecord(r)
	return User{
		ID:           ur.ID,
		Name:         ur.Name,
		Referrer:     ur.Referrer,
		SignupAt:     ur.SignupAt,
		LastRewardAt: ur.LastRewardAt,
		Staked:       ur.Staked,
		Referrals:    a.directChildren(r.id),
	}
}
