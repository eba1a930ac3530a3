package ledger

import "time"

// EntryType marks money direction relative to the user.
type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// Transaction is one append-only ledger entry. Settlement writes one debit
// for the caller, one credit for the receiver and, when an agency share is
// paid out, one credit for the agency, all in the settlement transaction.
// Entries are never mutated after creation.
type Transaction struct {
	ID     string    `json:"id" db:"id"`
	UserID string    `json:"user_id" db:"user_id"`
	Type   EntryType `json:"type" db:"type"`
	Amount float64   `json:"amount" db:"amount"`

	// BalanceAfter snapshots the user's balance right after this entry was
	// applied: coin balance for debits, wallet balance for credits.
	BalanceAfter float64 `json:"balance_after" db:"balance_after"`

	// CallHistoryID back-references the settlement that produced this entry.
	CallHistoryID string `json:"call_history_id" db:"call_history_id"`

	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
