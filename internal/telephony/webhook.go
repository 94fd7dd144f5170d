package telephony

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"jobboard-ivr/internal/ivr"
)

// InboundForm captures the subset of provider callback fields we care about.
// The provider sends application/x-www-form-urlencoded (or query params on
// GET) on every dialog step of a live call.
//
// Keep it provider-adapter-only. No dialog logic here.
type InboundForm struct {
	CallID    string
	Caller    string
	DID       string
	Extension string
	Token     string

	// Input carries the value captured for the outstanding read. All reads
	// are rendered under the same wire name, so the adapter never needs to
	// know which dialog slot is pending.
	Input    string
	HasInput bool

	Hangup bool
}

// Wire parameter names used by the provider callbacks.
const (
	paramCallID    = "ApiCallId"
	paramCaller    = "ApiPhone"
	paramDID       = "ApiDID"
	paramExtension = "ApiExtension"
	paramToken     = "ApiToken"
	paramHangup    = "ApiHangup"

	// paramInput is the fixed result name every read is rendered with.
	paramInput = "Input"
)

func ParseInboundForm(r *http.Request) (InboundForm, error) {
	if err := r.ParseForm(); err != nil {
		return InboundForm{}, err
	}
	get := func(key string) string {
		if v := r.PostFormValue(key); v != "" {
			return v
		}
		return r.URL.Query().Get(key)
	}

	f := InboundForm{
		CallID:    strings.TrimSpace(get(paramCallID)),
		Caller:    normalizePhone(get(paramCaller)),
		DID:       normalizePhone(get(paramDID)),
		Extension: strings.TrimSpace(strings.Trim(get(paramExtension), "/")),
		Token:     get(paramToken),
		Hangup:    strings.EqualFold(get(paramHangup), "yes"),
	}
	if _, ok := r.Form[paramInput]; ok {
		f.Input = get(paramInput)
		f.HasInput = true
	}
	return f, nil
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// The provider sometimes sends "anonymous" for withheld numbers; keep as-is.
	return s
}

// ToCallbackEvent converts a parsed form into the engine's event type.
func (f InboundForm) ToCallbackEvent() ivr.CallbackEvent {
	return ivr.CallbackEvent{
		CallID:    f.CallID,
		Caller:    f.Caller,
		Extension: f.Extension,
		Input:     f.Input,
		HasInput:  f.HasInput,
		Hangup:    f.Hangup,
	}
}

// ValidToken compares the callback token against the configured shared
// secret in constant time. An empty configured secret disables the check
// (local development only).
func ValidToken(configured, presented string) bool {
	if configured == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
