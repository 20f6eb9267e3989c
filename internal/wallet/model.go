package wallet

import "time"

// Balance encapsulates available funds for an identity's wallet.
type Balance struct {
	Owner  string    `json:"owner"`
	Amount int64     `json:"balance"`
	AsOf   time.Time `json:"timestamp"`
}

// TopUpInput captures an inbound credit to a wallet.
type TopUpInput struct {
	Owner      string
	Amount     int64
	ClientTxID string
}

// TopUpResult represents the outcome of a wallet top-up.
type TopUpResult struct {
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	Balance       int64     `json:"balance"`
	CompletedAt   time.Time `json:"completed_at"`
}
