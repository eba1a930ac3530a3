package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events. Insert-only; no read path is exposed
// through the application (ops query the table directly).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_user_id, actor_role, ip_address, target_user_id, call_id, level, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.TargetUserID,
		e.CallID,
		e.Level,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
