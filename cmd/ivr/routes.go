package main

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"time"

	"jobboard-ivr/internal/auth"
	"jobboard-ivr/internal/config"
	"jobboard-ivr/internal/ivr"
	"jobboard-ivr/internal/messages"
	"jobboard-ivr/internal/payments"
	"jobboard-ivr/internal/telephony"
	"jobboard-ivr/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	cfg      config.Config
	engine   *ivr.Engine
	opsAuth  *auth.Manager
	payStore *payments.SQLStore
	msgStore *messages.SQLStore
	db       *sql.DB
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhook (public; guarded by the shared webhook token).
	webhook := telephony.WebhookHandler{
		Engine:       d.engine,
		WebhookToken: d.cfg.Provider.WebhookToken,
		BusyPrompts:  ivr.Prompt(ivr.Text("כל הקווים תפוסים כעת, אנא נסו שוב בעוד מספר דקות")),
	}
	r.POST("/webhook/ivr", webhook.HandleCallback)

	r.POST("/v1/ops/token", opsLogin(d))

	admin := r.Group("/v1/admin")
	admin.Use(auth.RequireToken(d.opsAuth))
	{
		admin.GET("/sessions", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"live_calls": d.engine.Live()})
		})

		admin.GET("/payments/settings", func(c *gin.Context) {
			s, ok, err := d.payStore.GetSettings(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "settings load failed"})
				return
			}
			if !ok {
				s = payments.DefaultSettings()
			}
			c.JSON(http.StatusOK, settingsDTO(s))
		})

		admin.PUT("/payments/settings", func(c *gin.Context) {
			var in paymentSettingsDTO
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}
			if err := d.payStore.UpdateSettings(c.Request.Context(), in.toSettings()); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "settings update failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "updated", "by": auth.Operator(c)})
		})

		admin.GET("/messages", func(c *gin.Context) {
			msgs, err := d.msgStore.Recent(c.Request.Context(), 50)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "messages load failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"messages": msgs})
		})
	}
}

// opsLogin issues an operator token. The bootstrap credential is the ops
// secret itself; rotate it to revoke all outstanding tokens.
func opsLogin(d routeDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Operator string `json:"operator" binding:"required"`
			Secret   string `json:"secret" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "operator and secret required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(in.Secret), []byte(d.cfg.Ops.JWTSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
			return
		}
		token, err := d.opsAuth.Issue(time.Now(), in.Operator)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(d.cfg.Ops.TokenTTL.Seconds())})
	}
}

type paymentSettingsDTO struct {
	Enabled           bool `json:"enabled"`
	PosterEnabled     bool `json:"poster_enabled"`
	ViewerEnabled     bool `json:"viewer_enabled"`
	PosterPrice       int  `json:"poster_price"`
	ViewerPrice       int  `json:"viewer_price"`
	SubscriptionPrice int  `json:"subscription_price"`
}

func settingsDTO(s payments.Settings) paymentSettingsDTO {
	return paymentSettingsDTO{
		Enabled:           s.Enabled,
		PosterEnabled:     s.PosterEnabled,
		ViewerEnabled:     s.ViewerEnabled,
		PosterPrice:       s.PosterPrice,
		ViewerPrice:       s.ViewerPrice,
		SubscriptionPrice: s.SubscriptionPrice,
	}
}

func (in paymentSettingsDTO) toSettings() payments.Settings {
	return payments.Settings{
		Enabled:           in.Enabled,
		PosterEnabled:     in.PosterEnabled,
		ViewerEnabled:     in.ViewerEnabled,
		PosterPrice:       in.PosterPrice,
		ViewerPrice:       in.ViewerPrice,
		SubscriptionPrice: in.SubscriptionPrice,
	}
}
