package ledger

// SeedBalance is a test helper that sets an account balance on the in-memory
// ledger, opening the account when needed.
func SeedBalance(l Ledger, code string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[code] = amount
	}
}
