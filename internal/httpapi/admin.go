package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"amora-platform/internal/auth"
	"amora-platform/internal/rates"
)

// Admin rate-configuration endpoints. RBAC: admin or super_admin; changes are
// audited and never touch frozen in-flight sessions.

type levelConfigRequest struct {
	Level              int     `json:"level"`
	AudioRatePerMinute float64 `json:"audio_rate_per_minute"`
	VideoRatePerMinute float64 `json:"video_rate_per_minute"`
}

func (h Handlers) SetLevelConfig(c *gin.Context) {
	if h.RatesAdmin == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin config not available"})
		return
	}
	actorID, _ := auth.UserID(c.Request.Context())
	actorRole, _ := auth.Role(c.Request.Context())

	var req levelConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	out, err := h.RatesAdmin.SetLevelConfig(c.Request.Context(), actorID, actorRole, c.ClientIP(), rates.LevelConfig{
		Level:              req.Level,
		AudioRatePerMinute: req.AudioRatePerMinute,
		VideoRatePerMinute: req.VideoRatePerMinute,
	})
	if err != nil {
		if errors.Is(err, rates.ErrInvalidConfig) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid level config"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "level config update failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

type adminConfigRequest struct {
	AdminSharePercentage             *float64 `json:"admin_share_percentage"`
	MinCallCoins                     float64  `json:"min_call_coins"`
	PlatformMarginAgencyPerMinute    float64  `json:"platform_margin_agency_per_minute"`
	PlatformMarginNonAgencyPerMinute float64  `json:"platform_margin_non_agency_per_minute"`
}

func (h Handlers) SetAdminConfig(c *gin.Context) {
	if h.RatesAdmin == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin config not available"})
		return
	}
	actorID, _ := auth.UserID(c.Request.Context())
	actorRole, _ := auth.Role(c.Request.Context())

	var req adminConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	out, err := h.RatesAdmin.SetAdminConfig(c.Request.Context(), actorID, actorRole, c.ClientIP(), rates.AdminConfig{
		AdminSharePercentage:             req.AdminSharePercentage,
		MinCallCoins:                     req.MinCallCoins,
		PlatformMarginAgencyPerMinute:    req.PlatformMarginAgencyPerMinute,
		PlatformMarginNonAgencyPerMinute: req.PlatformMarginNonAgencyPerMinute,
	})
	if err != nil {
		if errors.Is(err, rates.ErrInvalidConfig) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid admin config"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin config update failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}
