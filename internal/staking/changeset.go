package staking

import (
	"fmt"
	"time"
)

// UserRecord is the persisted state of one identity.
type UserRecord struct {
	Seq          uint64
	ID           string
	Name         string
	Referrer     string
	SignupAt     time.Time
	LastRewardAt time.Time
	Staked       uint64
}

// Changeset is one committed unit of ledger state. Users are upserted,
// Transactions appended and Totals replaced. A full snapshot is a Changeset
// holding every user in registration order.
type Changeset struct {
	Users        []UserRecord
	Transactions []Transaction
	Totals       Totals
}

// IsEmpty reports whether the changeset carries no state at all.
func (c Changeset) IsEmpty() bool {
	return len(c.Users) == 0 && len(c.Transactions) == 0 && c.Totals == (Totals{})
}

// apply folds a changeset into the arena. Changesets are validated while they
// are staged, so an error here means the persisted state is corrupt.
func (a *arena) apply(cs Changeset) error {
	for _, u := range cs.Users {
		if r, ok := a.lookup(u.ID); ok {
			r.staked = u.Staked
			if u.LastRewardAt.After(r.lastRewardAt) {
				r.lastRewardAt = u.LastRewardAt
			}
			continue
		}
		idx, err := a.register(u.ID, u.Name, u.SignupAt)
		if err != nil {
			return fmt.Errorf("register %q: %w", u.ID, err)
		}
		if u.Seq != 0 && u.Seq != a.records[idx].seq {
			return fmt.Errorf("user %q out of order: seq %d, expected %d", u.ID, u.Seq, a.records[idx].seq)
		}
		a.records[idx].lastRewardAt = u.LastRewardAt
		a.records[idx].staked = u.Staked
		if u.Referrer != "" {
			if err := a.addEdge(u.Referrer, u.ID); err != nil {
				return fmt.Errorf("link %q under %q: %w", u.ID, u.Referrer, err)
			}
		}
	}
	for _, tx := range cs.Transactions {
		if err := a.appendTx(tx); err != nil {
			return fmt.Errorf("append transaction %d: %w", tx.Seq, err)
		}
	}
	a.totals = cs.Totals
	return nil
}
