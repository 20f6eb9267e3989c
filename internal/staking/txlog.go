package staking

func (a *arena) appendTx(tx Transaction) error {
	r, ok := a.lookup(tx.Subject)
	if !ok {
		return ErrNotRegistered
	}
	r.history = append(r.history, tx)
	if tx.Seq >= a.nextTxSeq {
		a.nextTxSeq = tx.Seq + 1
	}
	return nil
}

func (a *arena) history(id string) ([]Transaction, error) {
	r, ok := a.lookup(id)
	if !ok {
		return nil, ErrUnknownUser
	}
	out := make([]Transaction, len(r.history))
	copy(out, r.history)
	return out, nil
}
