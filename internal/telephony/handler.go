package telephony

import (
	"errors"
	"net/http"

	"jobboard-ivr/internal/ivr"
	"jobboard-ivr/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler converts a provider callback into an engine event, waits for
// the dialog's next action, and renders it back in the provider wire format.
//
// No business logic here; dialog behavior lives behind the engine.
type WebhookHandler struct {
	Engine *ivr.Engine

	// WebhookToken is the shared secret the provider presents. Empty
	// disables validation (local development only).
	WebhookToken string

	// BusyPrompts is spoken before hanging up when the line is at capacity.
	BusyPrompts ivr.PromptSpec
}

func (h WebhookHandler) HandleCallback(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "engine not configured"})
		return
	}

	form, err := ParseInboundForm(c.Request)
	if err != nil {
		log.Warn("webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if !ValidToken(h.WebhookToken, form.Token) {
		log.Warn("webhook token rejected", "call_id", form.CallID)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
		return
	}
	if form.CallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call id required"})
		return
	}

	action, err := h.Engine.Dispatch(c.Request.Context(), form.ToCallbackEvent())
	switch {
	case err == nil:
	case errors.Is(err, ivr.ErrBusy):
		action = ivr.Action{Prompts: h.BusyPrompts, Hangup: true}
	case errors.Is(err, ivr.ErrDialogStalled):
		log.Error("dialog stalled", "call_id", form.CallID)
		action = ivr.Action{Hangup: true}
	default:
		log.Error("dispatch failed", "call_id", form.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dispatch failed"})
		return
	}

	body, err := RenderAction(action)
	if err != nil {
		log.Error("render failed", "call_id", form.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, body)
}
