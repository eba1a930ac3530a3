package settlement

import (
	"time"

	"amora-platform/internal/rates"
)

// Status is the terminal state of a settlement attempt.
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusInsufficientCoins Status = "insufficient_coins"
	StatusFailed            Status = "failed"
)

// CallHistory is the durable, append-only record of a terminated call
// attempt. Rates are copied from the session, never re-read from config.
// Immutable after creation except for the one-time rating fields.
type CallHistory struct {
	ID         string `json:"id" db:"id"`
	CallID     string `json:"call_id" db:"call_id"`
	CallerID   string `json:"caller_id" db:"caller_id"`
	ReceiverID string `json:"receiver_id" db:"receiver_id"`
	AgencyID   string `json:"agency_id,omitempty" db:"agency_id"`

	CallType rates.CallType `json:"call_type" db:"call_type"`

	// DurationSeconds is the actual connected time as reported by the client.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`
	// BillableSeconds is the duration floored up to the billing minimum.
	BillableSeconds int `json:"billable_seconds" db:"billable_seconds"`

	// Rates in effect, copied from the frozen session.
	FemaleRatePerMinute     float64 `json:"female_rate_per_minute" db:"female_rate_per_minute"`
	PlatformMarginPerMinute float64 `json:"platform_margin_per_minute" db:"platform_margin_per_minute"`
	FemaleRatePerSecond     float64 `json:"female_rate_per_second" db:"female_rate_per_second"`
	PlatformRatePerSecond   float64 `json:"platform_rate_per_second" db:"platform_rate_per_second"`
	MalePayPerSecond        float64 `json:"male_pay_per_second" db:"male_pay_per_second"`

	// Money moved. MalePay = FemaleEarning + PlatformMargin exactly.
	MalePay        float64 `json:"male_pay" db:"male_pay"`
	FemaleEarning  float64 `json:"female_earning" db:"female_earning"`
	PlatformMargin float64 `json:"platform_margin" db:"platform_margin"`

	// Margin split. AdminSharePercentage is the percentage in effect at
	// settlement time; shares are rounded to 2 decimals independently.
	AdminSharePercentage float64 `json:"admin_share_percentage" db:"admin_share_percentage"`
	AdminShare           float64 `json:"admin_share" db:"admin_share"`
	AgencyShare          float64 `json:"agency_share" db:"agency_share"`

	Status       Status `json:"status" db:"status"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	// Rating is 0 until the receiver rates the call, then 1..5 exactly once.
	Rating      int    `json:"rating,omitempty" db:"rating"`
	RatingLabel string `json:"rating_label,omitempty" db:"rating_label"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RatingLabel maps a star count to its qualitative label.
func RatingLabel(stars int) string {
	switch stars {
	case 1:
		return "poor"
	case 2:
		return "fair"
	case 3:
		return "good"
	case 4:
		return "very_good"
	case 5:
		return "excellent"
	default:
		return ""
	}
}
