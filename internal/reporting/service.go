package reporting

import (
	"context"
	"errors"
	"time"

	"amora-platform/internal/ledger"
	"amora-platform/internal/settlement"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations query immutable sources only (call history, ledger).

type Repository interface {
	// ListCallHistory returns history rows where the user is caller or
	// receiver, created in [from, to).
	ListCallHistory(ctx context.Context, userID string, from, to time.Time) ([]settlement.CallHistory, error)

	ListLedger(ctx context.Context, userID string, from, to time.Time) ([]ledger.Transaction, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.UserID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCallHistory(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{UserID: req.UserID, CallType: req.CallType}
	var ratingSum int
	for _, h := range rows {
		if req.CallType != "" && h.CallType != req.CallType {
			continue
		}
		out.TotalCalls++
		out.TotalDurationSeconds += h.DurationSeconds
		out.TotalBillableSeconds += h.BillableSeconds
		switch h.Status {
		case settlement.StatusCompleted:
			out.CompletedCalls++
		case settlement.StatusInsufficientCoins:
			out.InsufficientCoinsCalls++
		case settlement.StatusFailed:
			out.FailedCalls++
		}
		if h.CallerID == req.UserID {
			out.TotalCharged += h.MalePay
		}
		if h.ReceiverID == req.UserID {
			out.TotalEarned += h.FemaleEarning
		}
		if h.Rating > 0 {
			out.RatedCalls++
			ratingSum += h.Rating
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	if out.RatedCalls > 0 {
		out.AverageRating = float64(ratingSum) / float64(out.RatedCalls)
	}
	return out, nil
}

func (s *Service) EarningsSummary(ctx context.Context, req EarningsSummaryRequest) (EarningsSummary, error) {
	if req.UserID == "" {
		return EarningsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return EarningsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return EarningsSummary{}, errors.New("reporting: repository not configured")
	}

	entries, err := s.repo.ListLedger(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return EarningsSummary{}, err
	}

	out := EarningsSummary{UserID: req.UserID}
	for _, entry := range entries {
		out.Entries++
		switch entry.Type {
		case ledger.EntryCredit:
			out.TotalCredits += entry.Amount
			switch entry.Description {
			case "call earning":
				out.CallEarnings += entry.Amount
			case "agency share":
				out.AgencyEarnings += entry.Amount
			}
		case ledger.EntryDebit:
			out.TotalDebits += entry.Amount
		}
	}
	out.NetDelta = out.TotalCredits - out.TotalDebits
	return out, nil
}
