package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"amora-platform/internal/ledger"
	"amora-platform/internal/rates"
	"amora-platform/internal/settlement"
)

func testRange() TimeRange {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return TimeRange{From: from, To: from.AddDate(0, 0, 7)}
}

func seedReportingRepo() *MemoryRepo {
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	repo.Histories = []settlement.CallHistory{
		{ID: "h1", CallerID: "m1", ReceiverID: "f1", CallType: rates.CallTypeVideo, Status: settlement.StatusCompleted,
			DurationSeconds: 45, BillableSeconds: 45, MalePay: 53, FemaleEarning: 45, Rating: 4, CreatedAt: at},
		{ID: "h2", CallerID: "m1", ReceiverID: "f1", CallType: rates.CallTypeAudio, Status: settlement.StatusCompleted,
			DurationSeconds: 10, BillableSeconds: 30, MalePay: 25, FemaleEarning: 20, Rating: 2, CreatedAt: at.Add(time.Hour)},
		{ID: "h3", CallerID: "m1", ReceiverID: "f1", CallType: rates.CallTypeVideo, Status: settlement.StatusInsufficientCoins,
			DurationSeconds: 60, BillableSeconds: 60, CreatedAt: at.Add(2 * time.Hour)},
		// Outside the window; must not count.
		{ID: "h4", CallerID: "m1", ReceiverID: "f1", CallType: rates.CallTypeVideo, Status: settlement.StatusCompleted,
			DurationSeconds: 100, MalePay: 999, CreatedAt: at.AddDate(0, 1, 0)},
		// Different participants; must not count.
		{ID: "h5", CallerID: "m2", ReceiverID: "f2", CallType: rates.CallTypeVideo, Status: settlement.StatusCompleted,
			DurationSeconds: 100, MalePay: 999, CreatedAt: at},
	}
	repo.Ledgers = []ledger.Transaction{
		{ID: "t1", UserID: "f1", Type: ledger.EntryCredit, Amount: 45, Description: "call earning", CreatedAt: at},
		{ID: "t2", UserID: "f1", Type: ledger.EntryCredit, Amount: 20, Description: "call earning", CreatedAt: at.Add(time.Hour)},
		{ID: "t3", UserID: "m1", Type: ledger.EntryDebit, Amount: 53, Description: "call charge", CreatedAt: at},
		{ID: "t4", UserID: "ag1", Type: ledger.EntryCredit, Amount: 4.5, Description: "agency share", CreatedAt: at},
	}
	return repo
}

func TestCallsSummary(t *testing.T) {
	svc := NewService(seedReportingRepo())

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "m1", Range: testRange()})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 3 {
		t.Fatalf("expected 3 calls in window, got %d", got.TotalCalls)
	}
	if got.CompletedCalls != 2 || got.InsufficientCoinsCalls != 1 {
		t.Fatalf("expected 2 completed / 1 insufficient, got %d/%d", got.CompletedCalls, got.InsufficientCoinsCalls)
	}
	if got.TotalCharged != 78 {
		t.Fatalf("expected total charged 78, got %v", got.TotalCharged)
	}
	if got.TotalEarned != 0 {
		t.Fatalf("caller should have no earnings, got %v", got.TotalEarned)
	}
	if got.AverageDurationSeconds != (45+10+60)/3 {
		t.Fatalf("bad average duration %d", got.AverageDurationSeconds)
	}
	if got.RatedCalls != 2 || got.AverageRating != 3 {
		t.Fatalf("expected 2 rated avg 3, got %d/%v", got.RatedCalls, got.AverageRating)
	}
}

func TestCallsSummary_ReceiverSideAndTypeFilter(t *testing.T) {
	svc := NewService(seedReportingRepo())

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		UserID: "f1", Range: testRange(), CallType: rates.CallTypeVideo,
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 2 {
		t.Fatalf("expected 2 video calls, got %d", got.TotalCalls)
	}
	if got.TotalEarned != 45 {
		t.Fatalf("expected earned 45, got %v", got.TotalEarned)
	}
	if got.TotalCharged != 0 {
		t.Fatalf("receiver should have no charges, got %v", got.TotalCharged)
	}
}

func TestEarningsSummary(t *testing.T) {
	svc := NewService(seedReportingRepo())

	got, err := svc.EarningsSummary(context.Background(), EarningsSummaryRequest{UserID: "f1", Range: testRange()})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCredits != 65 || got.TotalDebits != 0 {
		t.Fatalf("expected credits 65 debits 0, got %v/%v", got.TotalCredits, got.TotalDebits)
	}
	if got.CallEarnings != 65 || got.AgencyEarnings != 0 {
		t.Fatalf("expected call earnings 65, got %v/%v", got.CallEarnings, got.AgencyEarnings)
	}
	if got.NetDelta != 65 {
		t.Fatalf("expected net 65, got %v", got.NetDelta)
	}
	if got.Entries != 2 {
		t.Fatalf("expected 2 entries, got %d", got.Entries)
	}
}

func TestEarningsSummary_AgencyShare(t *testing.T) {
	svc := NewService(seedReportingRepo())

	got, err := svc.EarningsSummary(context.Background(), EarningsSummaryRequest{UserID: "ag1", Range: testRange()})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.AgencyEarnings != 4.5 || got.TotalCredits != 4.5 {
		t.Fatalf("expected agency earnings 4.5, got %v/%v", got.AgencyEarnings, got.TotalCredits)
	}
}

func TestSummaries_Validation(t *testing.T) {
	svc := NewService(seedReportingRepo())

	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{Range: testRange()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for missing user, got %v", err)
	}
	bad := TimeRange{From: time.Now(), To: time.Now().Add(-time.Hour)}
	if _, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{UserID: "m1", Range: bad}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for inverted range, got %v", err)
	}
	if _, err := svc.EarningsSummary(context.Background(), EarningsSummaryRequest{UserID: "f1"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero range, got %v", err)
	}
}
