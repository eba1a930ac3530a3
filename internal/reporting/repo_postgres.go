package reporting

import (
	"context"
	"database/sql"
	"time"

	"amora-platform/internal/ledger"
	"amora-platform/internal/settlement"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListCallHistory(ctx context.Context, userID string, from, to time.Time) ([]settlement.CallHistory, error) {
	const q = `
SELECT id, call_id, caller_id, receiver_id, COALESCE(agency_id, ''), call_type,
       duration_seconds, billable_seconds,
       female_rate_per_minute, platform_margin_per_minute,
       female_rate_per_second, platform_rate_per_second, male_pay_per_second,
       male_pay, female_earning, platform_margin,
       admin_share_percentage, admin_share, agency_share,
       status, COALESCE(error_message, ''), rating, COALESCE(rating_label, ''), created_at
FROM call_history
WHERE (caller_id = $1 OR receiver_id = $1) AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.CallHistory
	for rows.Next() {
		var h settlement.CallHistory
		if err := rows.Scan(
			&h.ID, &h.CallID, &h.CallerID, &h.ReceiverID, &h.AgencyID, &h.CallType,
			&h.DurationSeconds, &h.BillableSeconds,
			&h.FemaleRatePerMinute, &h.PlatformMarginPerMinute,
			&h.FemaleRatePerSecond, &h.PlatformRatePerSecond, &h.MalePayPerSecond,
			&h.MalePay, &h.FemaleEarning, &h.PlatformMargin,
			&h.AdminSharePercentage, &h.AdminShare, &h.AgencyShare,
			&h.Status, &h.ErrorMessage, &h.Rating, &h.RatingLabel, &h.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListLedger(ctx context.Context, userID string, from, to time.Time) ([]ledger.Transaction, error) {
	const q = `
SELECT id, user_id, type, amount, balance_after, COALESCE(call_history_id, ''), COALESCE(description, ''), created_at
FROM transactions
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter, &t.CallHistoryID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
