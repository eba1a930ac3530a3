package reporting

import (
	"time"

	"amora-platform/internal/rates"
)

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics for one user, either
// side of the call. UserID is required.

type CallsSummaryRequest struct {
	UserID   string         `json:"user_id"`
	Range    TimeRange      `json:"range"`
	CallType rates.CallType `json:"call_type,omitempty"` // empty = both
}

type CallsSummary struct {
	UserID   string         `json:"user_id"`
	CallType rates.CallType `json:"call_type,omitempty"`

	TotalCalls             int `json:"total_calls"`
	CompletedCalls         int `json:"completed_calls"`
	InsufficientCoinsCalls int `json:"insufficient_coins_calls"`
	FailedCalls            int `json:"failed_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	TotalBillableSeconds   int `json:"total_billable_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// TotalCharged sums charges where the user was the caller; TotalEarned
	// sums earnings where the user was the receiver.
	TotalCharged float64 `json:"total_charged"`
	TotalEarned  float64 `json:"total_earned"`

	RatedCalls    int     `json:"rated_calls"`
	AverageRating float64 `json:"average_rating"`
}

// EarningsSummaryRequest requests aggregated earnings derived from immutable
// ledger entries.

type EarningsSummaryRequest struct {
	UserID string    `json:"user_id"`
	Range  TimeRange `json:"range"`
}

type EarningsSummary struct {
	UserID string `json:"user_id"`

	TotalCredits float64 `json:"total_credits"`
	TotalDebits  float64 `json:"total_debits"`
	NetDelta     float64 `json:"net_delta"`

	CallEarnings   float64 `json:"call_earnings"`
	AgencyEarnings float64 `json:"agency_earnings"`

	Entries int `json:"entries"`
}
