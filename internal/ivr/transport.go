package ivr

import (
	"context"
	"errors"
)

// Transport is the telephony boundary used by dialog flows.
//
// Rules:
// - No provider wire-format knowledge outside the telephony adapter.
// - Read suspends the calling flow until input, timeout, or teardown.
// - Nothing here touches storage.
type Transport interface {
	// Read plays prompts, then blocks until the caller supplies input or the
	// session inactivity window elapses. Transport-level failures are
	// returned as errors; timeout and hangup come back in the result status.
	Read(ctx context.Context, prompts PromptSpec, req ReadRequest) (ReadResult, error)

	// Announce plays prompts with no capture (fire-and-forget).
	Announce(ctx context.Context, prompts PromptSpec) error

	// Transfer hands the call to a provider-side extension. Terminal.
	Transfer(ctx context.Context, destination string) error

	// Hangup ends the call. Terminal.
	Hangup(ctx context.Context) error
}

// ErrCallEnded signals that the call is gone (hang-up or inactivity timeout)
// and the flow stack must unwind without further side effects.
var ErrCallEnded = errors.New("ivr: call ended")
