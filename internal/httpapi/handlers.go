package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"amora-platform/internal/auth"
	"amora-platform/internal/callsession"
	"amora-platform/internal/ledger"
	"amora-platform/internal/metrics"
	"amora-platform/internal/rates"
	"amora-platform/internal/reporting"
	"amora-platform/internal/rewards"
	"amora-platform/internal/settlement"
	"amora-platform/internal/users"
)

// LedgerReader is the slice of ledger access the API needs.
type LedgerReader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Users      users.Store
	Calls      *callsession.Service
	Settlement *settlement.Engine
	Rewards    *rewards.Service
	Reporting  *reporting.Service
	RatesAdmin *rates.AdminService
	Ledger     LedgerReader
	Metrics    *metrics.Metrics
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair and fires the daily login reward.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	rewardGranted := false
	if h.Rewards != nil {
		// Best-effort; login never fails because of rewards.
		rewardGranted, _ = h.Rewards.ApplyDailyLoginReward(c.Request.Context(), req.UserID)
		if rewardGranted && h.Metrics != nil {
			h.Metrics.RewardsGranted.WithLabelValues(string(rewards.RuleDailyLogin)).Inc()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":         pair.AccessToken,
		"refresh_token":        pair.RefreshToken,
		"login_reward_granted": rewardGranted,
	})
}

// --- Calls ---

type startCallRequest struct {
	ReceiverID string `json:"receiver_id"`
	CallType   string `json:"call_type"`
}

func (h Handlers) StartCall(c *gin.Context) {
	callerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ReceiverID == "" || req.CallType == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "receiver_id, call_type required"})
		return
	}

	res, err := h.Calls.Start(c.Request.Context(), callerID, req.ReceiverID, rates.CallType(req.CallType))
	if err != nil {
		h.startCallError(c, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyActive {
		// The caller already has this call in flight; hand it back so the
		// client can resume instead of duplicating.
		status = http.StatusConflict
	} else if h.Metrics != nil {
		h.Metrics.CallsStarted.Inc()
	}

	c.JSON(status, gin.H{
		"call_id":        res.Session.CallID,
		"already_active": res.AlreadyActive,
		"max_seconds":    res.MaxSeconds,
		"rates": gin.H{
			"female_rate_per_second":   res.Session.FemaleRatePerSecond,
			"platform_rate_per_second": res.Session.PlatformRatePerSecond,
			"male_pay_per_second":      res.Session.MalePayPerSecond,
		},
		"expires_at": res.Session.ExpiresAt,
	})
}

func (h Handlers) startCallError(c *gin.Context, err error) {
	var insErr *callsession.InsufficientBalanceError
	switch {
	case errors.As(err, &insErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient coins",
			"required":  insErr.Required,
			"available": insErr.Available,
		})
	case errors.Is(err, callsession.ErrSelfCall):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot call yourself"})
	case errors.Is(err, callsession.ErrReceiverNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
	case errors.Is(err, callsession.ErrReceiverOffline):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "receiver offline"})
	case errors.Is(err, callsession.ErrBlocked):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "call not allowed"})
	case errors.Is(err, callsession.ErrActiveSessionExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "active call exists"})
	case errors.Is(err, rates.ErrLevelConfigNotFound),
		errors.Is(err, rates.ErrRateNotSet),
		errors.Is(err, rates.ErrAdminConfigNotFound):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, rates.ErrInvalidCallType):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_type must be audio or video"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call start failed"})
	}
}

type endCallRequest struct {
	CallID          string `json:"call_id"`
	ReceiverID      string `json:"receiver_id"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (h Handlers) EndCall(c *gin.Context) {
	callerID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}

	var req endCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CallID == "" || req.ReceiverID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id, receiver_id required"})
		return
	}

	started := time.Now()
	receipt, err := h.Settlement.EndCall(c.Request.Context(), callerID, req.ReceiverID, req.CallID, req.DurationSeconds)
	if h.Metrics != nil {
		h.Metrics.SettlementDuration.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		h.endCallError(c, err)
		return
	}

	if h.Metrics != nil {
		h.Metrics.CallsSettled.WithLabelValues(string(settlement.StatusCompleted)).Inc()
		h.Metrics.CoinsCharged.Add(receipt.History.MalePay)
		h.Metrics.CoinsEarned.Add(receipt.History.FemaleEarning)
	}

	c.JSON(http.StatusOK, gin.H{
		"call_history_id":      receipt.History.ID,
		"status":               receipt.History.Status,
		"billable_seconds":     receipt.History.BillableSeconds,
		"coins_charged":        receipt.History.MalePay,
		"female_earning":       receipt.History.FemaleEarning,
		"platform_margin":      receipt.History.PlatformMargin,
		"caller_balance_after": receipt.CallerBalanceAfter,
	})
}

func (h Handlers) endCallError(c *gin.Context, err error) {
	var insErr *settlement.InsufficientCoinsError
	switch {
	case errors.As(err, &insErr):
		if h.Metrics != nil {
			h.Metrics.CallsSettled.WithLabelValues(string(settlement.StatusInsufficientCoins)).Inc()
		}
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
			"error":     "insufficient coins",
			"required":  insErr.Required,
			"available": insErr.Available,
			"shortfall": insErr.Shortfall(),
		})
	case errors.Is(err, settlement.ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no active session for this call"})
	case errors.Is(err, settlement.ErrNeverConnected):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call never connected, nothing to charge"})
	case errors.Is(err, settlement.ErrInvalidDuration):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "duration must be >= 0"})
	case errors.Is(err, settlement.ErrBalanceChanged):
		if h.Metrics != nil {
			h.Metrics.CallsSettled.WithLabelValues(string(settlement.StatusFailed)).Inc()
		}
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "balance changed during settlement"})
	case errors.Is(err, settlement.ErrShareNotConfigured):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "revenue share not configured"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
	}
}

type rateCallRequest struct {
	Rating int `json:"rating"`
}

// RateCall lets the receiver attach a one-time star rating to a settled call.
func (h Handlers) RateCall(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	historyID := c.Param("history_id")
	if historyID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "history_id required"})
		return
	}

	var req rateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	err = h.Settlement.RateCall(c.Request.Context(), userID, historyID, req.Rating)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"rating": req.Rating, "rating_label": settlement.RatingLabel(req.Rating)})
	case errors.Is(err, settlement.ErrInvalidRating):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "rating must be 1..5"})
	case errors.Is(err, settlement.ErrHistoryNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, settlement.ErrAlreadyRated):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already rated"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rating failed"})
	}
}

// --- Balances and ledger ---

func (h Handlers) GetBalance(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	u, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coin_balance":   u.CoinBalance,
		"wallet_balance": u.WalletBalance,
		"total_score":    u.TotalScore,
	})
}

func (h Handlers) ListLedger(c *gin.Context) {
	if h.Ledger == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ledger not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	entries, err := h.Ledger.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ledger lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// --- Reporting ---

func (h Handlers) CallsSummary(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	rng, ok := timeRangeQuery(c)
	if !ok {
		return
	}

	out, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		UserID:   userID,
		Range:    rng,
		CallType: rates.CallType(c.Query("call_type")),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) EarningsSummary(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	rng, ok := timeRangeQuery(c)
	if !ok {
		return
	}

	out, err := h.Reporting.EarningsSummary(c.Request.Context(), reporting.EarningsSummaryRequest{
		UserID: userID,
		Range:  rng,
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- helpers ---

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	var n int
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return def
		}
		n = n*10 + int(ch-'0')
	}
	return n
}

func timeRangeQuery(c *gin.Context) (reporting.TimeRange, bool) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
		return reporting.TimeRange{}, false
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
		return reporting.TimeRange{}, false
	}
	return reporting.TimeRange{From: from, To: to}, true
}
