package rewards

import (
	"context"
	"log/slog"
	"time"

	"amora-platform/internal/rates"
)

// Dispatcher adapts the reward service to the settlement engine's post-commit
// hook. Reward evaluation runs detached from the request with its own
// deadline; any error is logged and swallowed, never surfaced to settlement.
type Dispatcher struct {
	svc     *Service
	timeout time.Duration
	log     *slog.Logger
}

func NewDispatcher(svc *Service, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{svc: svc, timeout: timeout, log: log}
}

// OnCallSettled satisfies settlement.SettledFunc.
func (d *Dispatcher) OnCallSettled(receiverID string, callType rates.CallType, callHistoryID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if _, err := d.svc.ApplyCallTargetReward(ctx, receiverID, callType, callHistoryID); err != nil {
		d.log.Error("call target reward failed",
			"user_id", receiverID,
			"call_type", string(callType),
			"call_history_id", callHistoryID,
			"error", err,
		)
	}
}
