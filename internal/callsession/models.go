package callsession

import (
	"time"

	"amora-platform/internal/rates"
)

// Session is the ephemeral, rate-frozen record of an in-progress call.
//
// Core correctness property: the rate fields are written once at call start
// and NEVER updated. Admin changes to level or platform configuration must
// not affect an in-flight call; settlement reads these frozen values only.
//
// At most one active session may exist per caller, enforced by a partial
// unique index on (caller_id) WHERE is_active.
type Session struct {
	CallID     string `json:"call_id" db:"call_id"`
	CallerID   string `json:"caller_id" db:"caller_id"`
	ReceiverID string `json:"receiver_id" db:"receiver_id"`

	CallType rates.CallType `json:"call_type" db:"call_type"`

	// ReceiverLevel is the receiver's level at session start.
	ReceiverLevel int `json:"receiver_level" db:"receiver_level"`

	// AgencyID is the receiver's agency at session start; empty when none.
	AgencyID       string `json:"agency_id,omitempty" db:"agency_id"`
	IsAgencyFemale bool   `json:"is_agency_female" db:"is_agency_female"`

	// Frozen economics.
	FemaleRatePerSecond     float64 `json:"female_rate_per_second" db:"female_rate_per_second"`
	PlatformRatePerSecond   float64 `json:"platform_rate_per_second" db:"platform_rate_per_second"`
	MalePayPerSecond        float64 `json:"male_pay_per_second" db:"male_pay_per_second"`
	FemaleRatePerMinute     float64 `json:"female_rate_per_minute" db:"female_rate_per_minute"`
	PlatformMarginPerMinute float64 `json:"platform_margin_per_minute" db:"platform_margin_per_minute"`

	IsActive bool `json:"is_active" db:"is_active"`

	// ExpiresAt is the crash-recovery backstop: sessions past this instant
	// are deactivated by the reaper and can no longer settle.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
