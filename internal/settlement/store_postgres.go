package settlement

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"amora-platform/internal/callsession"
	"amora-platform/internal/ledger"
	"amora-platform/internal/rates"
	"amora-platform/pkg/utils"
)

// PostgresStore runs settlements inside database transactions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) ActiveSession(ctx context.Context, callID, callerID, receiverID string) (callsession.Session, bool, error) {
	// FOR UPDATE serializes concurrent settlements of the same call; the
	// loser re-reads after commit and finds the session inactive.
	const q = `
SELECT call_id, caller_id, receiver_id, call_type, receiver_level, COALESCE(agency_id, ''), is_agency_female,
       female_rate_per_second, platform_rate_per_second, male_pay_per_second,
       female_rate_per_minute, platform_margin_per_minute,
       is_active, expires_at, created_at
FROM call_sessions
WHERE call_id = $1 AND caller_id = $2 AND receiver_id = $3 AND is_active
FOR UPDATE
`
	var sess callsession.Session
	err := t.tx.QueryRowContext(ctx, q, callID, callerID, receiverID).Scan(
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
			return callsession.Session{}, false, nil
		}
		return callsession.Session{}, false, err
	}
	return sess, true, nil
}

func (t *pgTx) DeactivateSession(ctx context.Context, callID string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE call_sessions SET is_active = FALSE WHERE call_id = $1`, callID)
	return err
}

func (t *pgTx) CoinBalance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := t.tx.QueryRowContext(ctx, `SELECT coin_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	return balance, err
}

func (t *pgTx) DecrementCoinsIfAtLeast(ctx context.Context, userID string, amount float64) (float64, bool, error) {
	const q = `
UPDATE users SET coin_balance = coin_balance - $1, updated_at = NOW()
WHERE id = $2 AND coin_balance >= $1
RETURNING coin_balance
`
	var after float64
	err := t.tx.QueryRowContext(ctx, q, amount, userID).Scan(&after)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return after, true, nil
}

func (t *pgTx) IncrementWallet(ctx context.Context, userID string, amount float64) (float64, error) {
	const q = `
UPDATE users SET wallet_balance = wallet_balance + $1, updated_at = NOW()
WHERE id = $2
RETURNING wallet_balance
`
	var after float64
	err := t.tx.QueryRowContext(ctx, q, amount, userID).Scan(&after)
	return after, err
}

func (t *pgTx) InsertHistory(ctx context.Context, h *CallHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	const q = `
INSERT INTO call_history (
  id, call_id, caller_id, receiver_id, agency_id, call_type,
  duration_seconds, billable_seconds,
  female_rate_per_minute, platform_margin_per_minute,
  female_rate_per_second, platform_rate_per_second, male_pay_per_second,
  male_pay, female_earning, platform_margin,
  admin_share_percentage, admin_share, agency_share,
  status, error_message, rating, rating_label, created_at
) VALUES (
  $1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NULLIF($21,''),$22,NULLIF($23,''),$24
)
`
	_, err := t.tx.ExecContext(ctx, q,
		h.ID, h.CallID, h.CallerID, h.ReceiverID, h.AgencyID, h.CallType,
		h.DurationSeconds, h.BillableSeconds,
		h.FemaleRatePerMinute, h.PlatformMarginPerMinute,
		h.FemaleRatePerSecond, h.PlatformRatePerSecond, h.MalePayPerSecond,
		h.MalePay, h.FemaleEarning, h.PlatformMargin,
		h.AdminSharePercentage, h.AdminShare, h.AgencyShare,
		h.Status, h.ErrorMessage, h.Rating, h.RatingLabel, h.CreatedAt,
	)
	return err
}

func (t *pgTx) InsertTransaction(ctx context.Context, entry ledger.Transaction) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (id, user_id, type, amount, balance_after, call_history_id, description, created_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8)
`
	_, err := t.tx.ExecContext(ctx, q,
		entry.ID, entry.UserID, entry.Type, entry.Amount, entry.BalanceAfter,
		entry.CallHistoryID, entry.Description, entry.CreatedAt,
	)
	return err
}

func (t *pgTx) AdminConfig(ctx context.Context) (rates.AdminConfig, bool, error) {
	const q = `
SELECT admin_share_percentage, min_call_coins,
       platform_margin_agency_per_minute, platform_margin_non_agency_per_minute,
       updated_at
FROM admin_config
LIMIT 1
`
	var cfg rates.AdminConfig
	err := t.tx.QueryRowContext(ctx, q).Scan(
		&cfg.AdminSharePercentage,
		&cfg.MinCallCoins,
		&cfg.PlatformMarginAgencyPerMinute,
		&cfg.PlatformMarginNonAgencyPerMinute,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rates.AdminConfig{}, false, nil
		}
		return rates.AdminConfig{}, false, err
	}
	return cfg, true, nil
}

func (s *PostgresStore) SetRating(ctx context.Context, historyID, receiverID string, stars int, label string) error {
	const q = `
UPDATE call_history SET rating = $1, rating_label = $2
WHERE id = $3 AND receiver_id = $4 AND rating = 0
`
	res, err := s.db.ExecContext(ctx, q, stars, label, historyID, receiverID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM call_history WHERE id = $1 AND receiver_id = $2)`,
		historyID, receiverID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrHistoryNotFound
	}
	return ErrAlreadyRated
}

func (s *PostgresStore) HistoryByCallID(ctx context.Context, callID string) (CallHistory, bool, error) {
	const q = `
SELECT id, call_id, caller_id, receiver_id, COALESCE(agency_id, ''), call_type,
       duration_seconds, billable_seconds,
       female_rate_per_minute, platform_margin_per_minute,
       female_rate_per_second, platform_rate_per_second, male_pay_per_second,
       male_pay, female_earning, platform_margin,
       admin_share_percentage, admin_share, agency_share,
       status, COALESCE(error_message, ''), rating, COALESCE(rating_label, ''), created_at
FROM call_history
WHERE call_id = $1
ORDER BY created_at DESC
LIMIT 1
`
	var h CallHistory
	err := s.db.QueryRowContext(ctx, q, callID).Scan(
		&h.ID, &h.CallID, &h.CallerID, &h.ReceiverID, &h.AgencyID, &h.CallType,
		&h.DurationSeconds, &h.BillableSeconds,
		&h.FemaleRatePerMinute, &h.PlatformMarginPerMinute,
		&h.FemaleRatePerSecond, &h.PlatformRatePerSecond, &h.MalePayPerSecond,
		&h.MalePay, &h.FemaleEarning, &h.PlatformMargin,
		&h.AdminSharePercentage, &h.AdminShare, &h.AgencyShare,
		&h.Status, &h.ErrorMessage, &h.Rating, &h.RatingLabel, &h.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallHistory{}, false, nil
		}
		return CallHistory{}, false, err
	}
	return h, true, nil
}
