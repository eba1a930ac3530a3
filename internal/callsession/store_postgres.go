package callsession

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"amora-platform/pkg/utils"
)

// PostgresStore persists call sessions.
//
// Assumes:
// - Table call_sessions
// - Partial unique index: CREATE UNIQUE INDEX uq_call_sessions_active_caller
//   ON call_sessions(caller_id) WHERE is_active
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	const q = `
INSERT INTO call_sessions (
  call_id, caller_id, receiver_id, call_type, receiver_level, agency_id, is_agency_female,
  female_rate_per_second, platform_rate_per_second, male_pay_per_second,
  female_rate_per_minute, platform_margin_per_minute,
  is_active, expires_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
`
	_, err := s.db.ExecContext(ctx, q,
		sess.CallID,
		sess.CallerID,
		sess.ReceiverID,
		sess.CallType,
		sess.ReceiverLevel,
		sess.AgencyID,
		sess.IsAgencyFemale,
		sess.FemaleRatePerSecond,
		sess.PlatformRatePerSecond,
		sess.MalePayPerSecond,
		sess.FemaleRatePerMinute,
		sess.PlatformMarginPerMinute,
		sess.IsActive,
		sess.ExpiresAt,
		sess.CreatedAt,
	)
	if err != nil {
		if utils.IsUniqueViolation(err) {
			return ErrActiveSessionExists
		}
		return err
	}
	return nil
}

func (s *PostgresStore) FindActiveByCaller(ctx context.Context, callerID string) (Session, bool, error) {
	const q = `
SELECT call_id, caller_id, receiver_id, call_type, receiver_level, COALESCE(agency_id, ''), is_agency_female,
       female_rate_per_second, platform_rate_per_second, male_pay_per_second,
       female_rate_per_minute, platform_margin_per_minute,
       is_active, expires_at, created_at
FROM call_sessions
WHERE caller_id = $1 AND is_active
LIMIT 1
`
	var sess Session
	err := s.db.QueryRowContext(ctx, q, callerID).Scan(
		&sess.CallID,
		&sess.CallerID,
		&sess.ReceiverID,
		&sess.CallType,
		&sess.ReceiverLevel,
		&sess.AgencyID,
		&sess.IsAgencyFemale,
		&sess.FemaleRatePerSecond,
		&sess.PlatformRatePerSecond,
		&sess.MalePayPerSecond,
		&sess.FemaleRatePerMinute,
		&sess.PlatformMarginPerMinute,
		&sess.IsActive,
		&sess.ExpiresAt,
		&sess.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *PostgresStore) DeactivateExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	// ctid subquery keeps the sweep bounded without needing an ORDER BY
	// over the whole table.
	const q = `
UPDATE call_sessions SET is_active = FALSE
WHERE ctid IN (
  SELECT ctid FROM call_sessions
  WHERE is_active AND expires_at <= $1
  LIMIT $2
)
`
	res, err := s.db.ExecContext(ctx, q, now, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
