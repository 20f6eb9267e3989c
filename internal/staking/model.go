package staking

import "time"

// Kind classifies a ledger-affecting event in a user's history.
type Kind string

const (
	KindStake          Kind = "stake"
	KindPeriodicReward Kind = "periodic_reward"
	KindLevelUpReward  Kind = "level_up_reward"
	KindReferralReward Kind = "referral_reward"
)

const (
	referralRewardPercent = 5
	levelUpStartPercent   = 5
	levelUpMaxHops        = 5
	periodicRewardDivisor = 20
	rewardInterval        = 24 * time.Hour
)

// Transaction is an immutable entry in a user's history. Subject is the
// identity whose history holds the entry; Source is the identity whose action
// triggered it (the new signup for referral and level-up rewards).
type Transaction struct {
	Seq       uint64    `json:"seq"`
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Subject   string    `json:"subject"`
	Source    string    `json:"source,omitempty"`
	Amount    uint64    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a read-only view of a registered identity.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Referrer     string    `json:"referrer,omitempty"`
	SignupAt     time.Time `json:"signup_at"`
	LastRewardAt time.Time `json:"last_reward_at"`
	Staked       uint64    `json:"staked"`
	Referrals    []string  `json:"referrals"`
}

// Totals exposes the aggregate accounting. TotalStaked plus AdminPaidOut always
// equals the sum of every user's staked balance.
type Totals struct {
	TotalStaked  uint64 `json:"total_staked"`
	AdminPaidOut uint64 `json:"admin_paid_out"`
}

// Reward describes a single payout made by the engine.
type Reward struct {
	Kind      Kind   `json:"kind"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Hop       int    `json:"hop,omitempty"`
}
