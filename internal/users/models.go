package users

import "time"

// User is the platform user row as seen by the call-billing core.
//
// Money invariant reminder: CoinBalance and WalletBalance are mutated only by
// the settlement engine during call settlement (and by unrelated flows such as
// coin purchases). Settlement must reference call_history_id in the
// transactions ledger rather than mutating money fields without a trail.
type User struct {
	ID   string `json:"id" db:"id"`
	Role string `json:"role" db:"role"`

	// Level drives per-minute rate resolution for female users.
	Level int `json:"level" db:"level"`

	IsOnline bool `json:"is_online" db:"is_online"`

	// AgencyID is the referring agency's user id; empty when unaffiliated.
	AgencyID string `json:"agency_id,omitempty" db:"agency_id"`

	// CoinBalance is spendable coins (male users buy these).
	CoinBalance float64 `json:"coin_balance" db:"coin_balance"`

	// WalletBalance is withdrawable earnings (female users and agencies).
	WalletBalance float64 `json:"wallet_balance" db:"wallet_balance"`

	// Gamification score counters maintained by the rewards service.
	TotalScore  int `json:"total_score" db:"total_score"`
	DailyScore  int `json:"daily_score" db:"daily_score"`
	WeeklyScore int `json:"weekly_score" db:"weekly_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
