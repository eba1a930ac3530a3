package rates

import "time"

// Rate amounts are expressed in coins (fractional) per minute; per-second
// values are derived by dividing by 60 and are never stored.

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

func (t CallType) Valid() bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

// LevelConfig defines the per-minute earning rates for a female user level.
// Only one active config may exist per level; rate resolution ignores
// inactive rows.
type LevelConfig struct {
	ID    string `json:"id" db:"id"`
	Level int    `json:"level" db:"level"`

	AudioRatePerMinute float64 `json:"audio_rate_per_minute" db:"audio_rate_per_minute"`
	VideoRatePerMinute float64 `json:"video_rate_per_minute" db:"video_rate_per_minute"`

	Status ConfigStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ConfigStatus string

const (
	ConfigStatusActive   ConfigStatus = "active"
	ConfigStatusInactive ConfigStatus = "inactive"
)

// AdminConfig is the single platform-wide configuration row.
type AdminConfig struct {
	// AdminSharePercentage is the platform's cut of the margin when the
	// receiver is agency-affiliated; the remainder goes to the agency.
	// nil means not configured, which fails agency settlements.
	AdminSharePercentage *float64 `json:"admin_share_percentage,omitempty" db:"admin_share_percentage"`

	// MinCallCoins is an anti-spam floor on the caller's balance before a
	// call may start. Zero disables the check.
	MinCallCoins float64 `json:"min_call_coins" db:"min_call_coins"`

	// Platform margin per minute, selected by the receiver's agency affiliation.
	PlatformMarginAgencyPerMinute    float64 `json:"platform_margin_agency_per_minute" db:"platform_margin_agency_per_minute"`
	PlatformMarginNonAgencyPerMinute float64 `json:"platform_margin_non_agency_per_minute" db:"platform_margin_non_agency_per_minute"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
