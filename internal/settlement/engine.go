package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"amora-platform/internal/ledger"
	"amora-platform/internal/rates"
	"amora-platform/pkg/utils"
)

var (
	// ErrSessionNotFound covers expiry, double-submission and forged ids: no
	// matching active session means nothing to settle.
	ErrSessionNotFound = errors.New("settlement: no active session for this call")

	// ErrNeverConnected rejects duration 0 with no charge and no history row.
	ErrNeverConnected = errors.New("settlement: call never connected")

	ErrInvalidDuration = errors.New("settlement: duration must be >= 0")

	// ErrBalanceChanged means the conditional debit lost a race; the client
	// should retry end-call against the now-deactivated session and will get
	// ErrSessionNotFound, which is the correct terminal answer.
	ErrBalanceChanged = errors.New("settlement: balance changed concurrently, not charged")

	// ErrShareNotConfigured fails agency settlements before any money moves.
	ErrShareNotConfigured = errors.New("settlement: admin share percentage not configured")

	ErrInvalidRating = errors.New("settlement: rating must be 1..5")
)

// InsufficientCoinsError reports the shortfall when the caller cannot cover
// the computed charge at end-call.
type InsufficientCoinsError struct {
	Required  float64
	Available float64
}

func (e *InsufficientCoinsError) Error() string {
	return fmt.Sprintf("settlement: insufficient coins: required %.2f, available %.2f", e.Required, e.Available)
}

func (e *InsufficientCoinsError) Shortfall() float64 {
	return e.Required - e.Available
}

// Receipt is the successful settlement result.
type Receipt struct {
	History             CallHistory `json:"history"`
	CallerBalanceAfter  float64     `json:"caller_balance_after"`
	ReceiverWalletAfter float64     `json:"receiver_wallet_after"`
	AgencyWalletAfter   float64     `json:"agency_wallet_after,omitempty"`
}

// SettledFunc is invoked after a completed settlement commits. Used to fire
// the reward trigger; it must never be able to affect the settlement.
type SettledFunc func(receiverID string, callType rates.CallType, callHistoryID string)

// Engine performs end-of-call settlement: charge the caller at the session's
// frozen rates, split the money, and record history and ledger entries, all
// in one storage transaction.
type Engine struct {
	store Store

	// rdb is optional; used to release the caller's fast-path call slot.
	rdb *redis.Client

	onSettled SettledFunc

	minBillableSeconds int

	now func() time.Time
	log *slog.Logger
}

func NewEngine(store Store, rdb *redis.Client, minBillableSeconds int, log *slog.Logger) *Engine {
	if minBillableSeconds <= 0 {
		minBillableSeconds = 30
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:              store,
		rdb:                rdb,
		minBillableSeconds: minBillableSeconds,
		now:                time.Now,
		log:                log,
	}
}

// OnSettled registers the post-commit hook. Call before serving traffic.
func (e *Engine) OnSettled(fn SettledFunc) {
	e.onSettled = fn
}

// WithClock overrides the time source; tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// EndCall settles a call.
//
// The happy path and both failure paths (insufficient coins, lost debit race)
// commit their own outcome: failures still deactivate the session and write a
// zero-earnings history row, so every end-call attempt leaves exactly one
// durable record. Only precondition errors (bad duration, missing session,
// unconfigured share) leave no trace.
func (e *Engine) EndCall(ctx context.Context, callerID, receiverID, callID string, durationSeconds int) (Receipt, error) {
	if durationSeconds < 0 {
		return Receipt{}, ErrInvalidDuration
	}
	if durationSeconds == 0 {
		return Receipt{}, ErrNeverConnected
	}

	var (
		receipt    Receipt
		settleErr  error
		sessCaller string
	)

	txErr := e.store.InTx(ctx, func(tx Tx) error {
		sess, ok, err := tx.ActiveSession(ctx, callID, callerID, receiverID)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if !ok {
			settleErr = ErrSessionNotFound
			return settleErr
		}
		sessCaller = sess.CallerID

		billable := durationSeconds
		if billable < e.minBillableSeconds {
			billable = e.minBillableSeconds
		}
		malePay := math.Ceil(float64(billable) * sess.MalePayPerSecond)

		// Resolve the margin split up front so a misconfigured share fails
		// the whole attempt before any money moves.
		sharePct := 100.0
		if sess.IsAgencyFemale {
			cfg, ok, err := tx.AdminConfig(ctx)
			if err != nil {
				return fmt.Errorf("admin config: %w", err)
			}
			if !ok || cfg.AdminSharePercentage == nil {
				settleErr = ErrShareNotConfigured
				return settleErr
			}
			sharePct = *cfg.AdminSharePercentage
		}

		h := CallHistory{
			CallID:                  sess.CallID,
			CallerID:                sess.CallerID,
			ReceiverID:              sess.ReceiverID,
			AgencyID:                sess.AgencyID,
			CallType:                sess.CallType,
			DurationSeconds:         durationSeconds,
			BillableSeconds:         billable,
			FemaleRatePerMinute:     sess.FemaleRatePerMinute,
			PlatformMarginPerMinute: sess.PlatformMarginPerMinute,
			FemaleRatePerSecond:     sess.FemaleRatePerSecond,
			PlatformRatePerSecond:   sess.PlatformRatePerSecond,
			MalePayPerSecond:        sess.MalePayPerSecond,
			AdminSharePercentage:    sharePct,
			CreatedAt:               e.now(),
		}

		balance, err := tx.CoinBalance(ctx, callerID)
		if err != nil {
			return fmt.Errorf("caller balance: %w", err)
		}
		if balance < malePay {
			if err := tx.DeactivateSession(ctx, callID); err != nil {
				return fmt.Errorf("deactivate session: %w", err)
			}
			h.Status = StatusInsufficientCoins
			h.ErrorMessage = fmt.Sprintf("required %.2f coins, available %.2f", malePay, balance)
			if err := tx.InsertHistory(ctx, &h); err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
			settleErr = &InsufficientCoinsError{Required: malePay, Available: balance}
			receipt.History = h
			return nil // commit the failure record
		}

		callerAfter, debited, err := tx.DecrementCoinsIfAtLeast(ctx, callerID, malePay)
		if err != nil {
			return fmt.Errorf("debit caller: %w", err)
		}
		if !debited {
			if err := tx.DeactivateSession(ctx, callID); err != nil {
				return fmt.Errorf("deactivate session: %w", err)
			}
			h.Status = StatusFailed
			h.ErrorMessage = "coin balance changed during settlement"
			if err := tx.InsertHistory(ctx, &h); err != nil {
				return fmt.Errorf("insert history: %w", err)
			}
			settleErr = ErrBalanceChanged
			receipt.History = h
			return nil
		}

		// Single rounding point: the female share floors, the platform keeps
		// the remainder, so the two always sum exactly to malePay.
		femaleEarning := math.Floor(malePay * (sess.FemaleRatePerSecond / sess.MalePayPerSecond))
		platformMargin := malePay - femaleEarning

		receiverAfter, err := tx.IncrementWallet(ctx, receiverID, femaleEarning)
		if err != nil {
			return fmt.Errorf("credit receiver: %w", err)
		}

		adminShare := platformMargin
		agencyShare := 0.0
		if sess.IsAgencyFemale {
			adminShare = round2(platformMargin * sharePct / 100)
			agencyShare = round2(platformMargin * (100 - sharePct) / 100)
		}

		var agencyAfter float64
		if agencyShare > 0 && sess.AgencyID != "" {
			agencyAfter, err = tx.IncrementWallet(ctx, sess.AgencyID, agencyShare)
			if err != nil {
				return fmt.Errorf("credit agency: %w", err)
			}
		}

		if err := tx.DeactivateSession(ctx, callID); err != nil {
			return fmt.Errorf("deactivate session: %w", err)
		}

		h.Status = StatusCompleted
		h.MalePay = malePay
		h.FemaleEarning = femaleEarning
		h.PlatformMargin = platformMargin
		h.AdminShare = adminShare
		h.AgencyShare = agencyShare
		if err := tx.InsertHistory(ctx, &h); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		now := h.CreatedAt
		entries := []ledger.Transaction{
			{UserID: callerID, Type: ledger.EntryDebit, Amount: malePay, BalanceAfter: callerAfter, CallHistoryID: h.ID, Description: "call charge", CreatedAt: now},
			{UserID: receiverID, Type: ledger.EntryCredit, Amount: femaleEarning, BalanceAfter: receiverAfter, CallHistoryID: h.ID, Description: "call earning", CreatedAt: now},
		}
		if agencyShare > 0 && sess.AgencyID != "" {
			entries = append(entries, ledger.Transaction{
				UserID: sess.AgencyID, Type: ledger.EntryCredit, Amount: agencyShare,
				BalanceAfter: agencyAfter, CallHistoryID: h.ID, Description: "agency share", CreatedAt: now,
			})
		}
		for _, entry := range entries {
			if err := tx.InsertTransaction(ctx, entry); err != nil {
				return fmt.Errorf("insert ledger entry: %w", err)
			}
		}

		receipt = Receipt{
			History:             h,
			CallerBalanceAfter:  callerAfter,
			ReceiverWalletAfter: receiverAfter,
			AgencyWalletAfter:   agencyAfter,
		}
		return nil
	})

	if txErr != nil {
		if settleErr != nil {
			// Precondition failure surfaced through the rollback path.
			return Receipt{}, settleErr
		}
		return Receipt{}, txErr
	}

	// The transaction committed; the session is gone either way, so release
	// the fast-path slot.
	e.releaseSlot(ctx, sessCaller, callID)

	if settleErr != nil {
		e.log.Warn("call settlement failed",
			"call_id", callID,
			"caller_id", callerID,
			"status", string(receipt.History.Status),
			"error", settleErr,
		)
		return Receipt{}, settleErr
	}

	e.log.Info("call settled",
		"call_id", callID,
		"caller_id", callerID,
		"receiver_id", receiverID,
		"billable_seconds", receipt.History.BillableSeconds,
		"male_pay", receipt.History.MalePay,
		"female_earning", receipt.History.FemaleEarning,
	)

	if e.onSettled != nil {
		e.dispatchSettled(receipt.History)
	}
	return receipt, nil
}

// RateCall records the receiver's one-time 1..5 star rating on a call.
func (e *Engine) RateCall(ctx context.Context, receiverID, historyID string, stars int) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}
	return e.store.SetRating(ctx, historyID, receiverID, stars, RatingLabel(stars))
}

// dispatchSettled runs the reward hook in the background. A panicking or
// failing hook must never reach the caller of EndCall.
func (e *Engine) dispatchSettled(h CallHistory) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("settled hook panicked", "call_history_id", h.ID, "panic", r)
			}
		}()
		e.onSettled(h.ReceiverID, h.CallType, h.ID)
	}()
}

func (e *Engine) releaseSlot(ctx context.Context, callerID, callID string) {
	if e.rdb == nil || callerID == "" {
		return
	}
	if err := utils.ReleaseCallSlot(ctx, e.rdb, callerID, callID); err != nil {
		e.log.Warn("call slot release failed", "caller_id", callerID, "call_id", callID, "error", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
