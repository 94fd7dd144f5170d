package telephony

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"jobboard-ivr/internal/ivr"

	"github.com/gin-gonic/gin"
)

func newWebhookRouter(h WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.HandleCallback)
	return r
}

func postForm(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleCallback_NewCallRendersMenuRead(t *testing.T) {
	engine := ivr.NewEngine(ivr.NewRouter(ivr.DefaultRouterPrompts()), slog.Default(), nil, time.Minute)
	defer engine.Shutdown()
	r := newWebhookRouter(WebhookHandler{Engine: engine})

	form := url.Values{}
	form.Set("ApiCallId", "c1")
	form.Set("ApiPhone", "0501234567")

	w := postForm(r, form)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Body.String(), "read=") {
		t.Fatalf("expected a read directive, got %q", w.Body.String())
	}
}

func TestHandleCallback_RejectsBadToken(t *testing.T) {
	engine := ivr.NewEngine(ivr.NewRouter(ivr.DefaultRouterPrompts()), slog.Default(), nil, time.Minute)
	defer engine.Shutdown()
	r := newWebhookRouter(WebhookHandler{Engine: engine, WebhookToken: "secret"})

	form := url.Values{}
	form.Set("ApiCallId", "c1")
	form.Set("ApiToken", "wrong")

	if w := postForm(r, form); w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandleCallback_BusyLineSpeaksBusyPromptAndHangsUp(t *testing.T) {
	engine := ivr.NewEngine(ivr.NewRouter(ivr.DefaultRouterPrompts()), slog.Default(), nil, time.Minute)
	engine.AcquireSlot = func(ctx context.Context) (bool, error) { return false, nil }
	defer engine.Shutdown()
	r := newWebhookRouter(WebhookHandler{
		Engine:      engine,
		BusyPrompts: ivr.Prompt(ivr.Text("המערכת עמוסה")),
	})

	form := url.Values{}
	form.Set("ApiCallId", "c1")

	w := postForm(r, form)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "go_to_folder=hangup") || !strings.Contains(body, "המערכת עמוסה") {
		t.Fatalf("expected busy message then hangup, got %q", body)
	}
}

func TestHandleCallback_MissingCallIDRejected(t *testing.T) {
	engine := ivr.NewEngine(ivr.NewRouter(ivr.DefaultRouterPrompts()), slog.Default(), nil, time.Minute)
	defer engine.Shutdown()
	r := newWebhookRouter(WebhookHandler{Engine: engine})

	if w := postForm(r, url.Values{}); w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
