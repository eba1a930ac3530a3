package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_call_sessions_active_caller"}
	if !IsUniqueViolation(uniqueErr) {
		t.Fatalf("expected unique violation to be detected")
	}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", uniqueErr)) {
		t.Fatalf("expected wrapped unique violation to be detected")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("plain error")) {
		t.Fatalf("plain error is not a unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Fatalf("nil is not a unique violation")
	}
}
