package callsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"amora-platform/internal/rates"
	"amora-platform/internal/users"
	"amora-platform/pkg/utils"
)

var (
	ErrSelfCall         = errors.New("callsession: cannot call yourself")
	ErrReceiverNotFound = errors.New("callsession: receiver not found")
	ErrReceiverOffline  = errors.New("callsession: receiver is offline")
	ErrBlocked          = errors.New("callsession: call blocked between users")
)

// InsufficientBalanceError rejects a call start when the caller cannot cover
// the configured minimum or the minimum billable duration.
type InsufficientBalanceError struct {
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("callsession: insufficient coins: required %.2f, available %.2f", e.Required, e.Available)
}

// StartResult is what a successful (or recovered) start returns.
type StartResult struct {
	Session Session

	// AlreadyActive is set when the caller already had an in-flight session
	// and we returned that one instead of creating a duplicate.
	AlreadyActive bool

	// MaxSeconds is a client-side budget hint, floor(balance / pay rate).
	// Informational only; the authoritative check happens at settlement.
	MaxSeconds int64
}

// Service owns the start-call flow: precondition checks, rate freezing and
// session creation.
type Service struct {
	users    users.Store
	resolver *rates.Resolver
	store    Store

	// rdb is optional; when present it provides a best-effort fast-path slot
	// guard in front of the database uniqueness constraint.
	rdb *redis.Client

	sessionTTL         time.Duration
	minBillableSeconds int

	now func() time.Time
	log *slog.Logger
}

func NewService(userStore users.Store, resolver *rates.Resolver, store Store, rdb *redis.Client, sessionTTL time.Duration, minBillableSeconds int, log *slog.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 2 * time.Hour
	}
	if minBillableSeconds <= 0 {
		minBillableSeconds = 30
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:              userStore,
		resolver:           resolver,
		store:              store,
		rdb:                rdb,
		sessionTTL:         sessionTTL,
		minBillableSeconds: minBillableSeconds,
		now:                time.Now,
		log:                log,
	}
}

// WithClock overrides the time source; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start runs the start-call preconditions in order and persists a rate-frozen
// session. Precondition order matters: cheap identity checks first, then
// config resolution, then balance checks against the resolved rate, then the
// uniqueness guard.
func (s *Service) Start(ctx context.Context, callerID, receiverID string, callType rates.CallType) (StartResult, error) {
	if callerID == receiverID {
		return StartResult{}, ErrSelfCall
	}

	receiver, err := s.users.Get(ctx, receiverID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return StartResult{}, ErrReceiverNotFound
		}
		return StartResult{}, fmt.Errorf("load receiver: %w", err)
	}
	if !receiver.IsOnline {
		return StartResult{}, ErrReceiverOffline
	}

	blocked, err := s.users.IsBlockedEither(ctx, callerID, receiverID)
	if err != nil {
		return StartResult{}, fmt.Errorf("block check: %w", err)
	}
	if blocked {
		return StartResult{}, ErrBlocked
	}

	resolved, err := s.resolver.Resolve(ctx, receiver.Level, callType, receiver.AgencyID != "")
	if err != nil {
		return StartResult{}, err
	}

	balance, err := s.users.CoinBalance(ctx, callerID)
	if err != nil {
		return StartResult{}, fmt.Errorf("caller balance: %w", err)
	}

	if cfg, ok, err := s.resolver.Config(ctx); err != nil {
		return StartResult{}, fmt.Errorf("admin config: %w", err)
	} else if ok && cfg.MinCallCoins > 0 && balance < cfg.MinCallCoins {
		return StartResult{}, &InsufficientBalanceError{Required: cfg.MinCallCoins, Available: balance}
	}

	minCost := math.Ceil(float64(s.minBillableSeconds) * resolved.MalePayPerSecond)
	if balance < minCost {
		return StartResult{}, &InsufficientBalanceError{Required: minCost, Available: balance}
	}

	if existing, ok, err := s.store.FindActiveByCaller(ctx, callerID); err != nil {
		return StartResult{}, fmt.Errorf("active session lookup: %w", err)
	} else if ok {
		return StartResult{
			Session:       existing,
			AlreadyActive: true,
			MaxSeconds:    maxSeconds(balance, existing.MalePayPerSecond),
		}, nil
	}

	now := s.now()
	sess := Session{
		CallID:                  fmt.Sprintf("%s_%s_%d", callerID, receiverID, now.UnixMilli()),
		CallerID:                callerID,
		ReceiverID:              receiverID,
		CallType:                callType,
		ReceiverLevel:           receiver.Level,
		AgencyID:                receiver.AgencyID,
		IsAgencyFemale:          resolved.IsAgencyFemale,
		FemaleRatePerSecond:     resolved.FemaleRatePerSecond,
		PlatformRatePerSecond:   resolved.PlatformRatePerSecond,
		MalePayPerSecond:        resolved.MalePayPerSecond,
		FemaleRatePerMinute:     resolved.FemaleRatePerMinute,
		PlatformMarginPerMinute: resolved.PlatformMarginPerMinute,
		IsActive:                true,
		ExpiresAt:               now.Add(s.sessionTTL),
		CreatedAt:               now,
	}

	if s.rdb != nil {
		acquired, err := utils.AcquireCallSlot(ctx, s.rdb, callerID, sess.CallID, s.sessionTTL)
		if err != nil {
			// Fast path only; the database constraint below is authoritative.
			s.log.Warn("redis call slot acquire failed", "caller_id", callerID, "error", err)
		} else if !acquired {
			if existing, ok, lookupErr := s.store.FindActiveByCaller(ctx, callerID); lookupErr == nil && ok {
				return StartResult{
					Session:       existing,
					AlreadyActive: true,
					MaxSeconds:    maxSeconds(balance, existing.MalePayPerSecond),
				}, nil
			}
			// Slot held but no session in the database (stale slot or a
			// racing start that hasn't committed). Fall through and let the
			// unique index decide.
		}
	}

	if err := s.store.Create(ctx, sess); err != nil {
		if errors.Is(err, ErrActiveSessionExists) {
			if existing, ok, lookupErr := s.store.FindActiveByCaller(ctx, callerID); lookupErr == nil && ok {
				return StartResult{
					Session:       existing,
					AlreadyActive: true,
					MaxSeconds:    maxSeconds(balance, existing.MalePayPerSecond),
				}, nil
			}
			return StartResult{}, ErrActiveSessionExists
		}
		return StartResult{}, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("call session started",
		"call_id", sess.CallID,
		"caller_id", callerID,
		"receiver_id", receiverID,
		"call_type", callType,
		"male_pay_per_second", sess.MalePayPerSecond,
	)

	return StartResult{
		Session:    sess,
		MaxSeconds: maxSeconds(balance, sess.MalePayPerSecond),
	}, nil
}

func maxSeconds(balance, payPerSecond float64) int64 {
	if payPerSecond <= 0 {
		return 0
	}
	return int64(math.Floor(balance / payPerSecond))
}
