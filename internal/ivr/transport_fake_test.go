package ivr

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

// fakeTransport replays a script of read results and records everything the
// dialog did to it.
type fakeTransport struct {
	script []ReadResult

	reads       []ReadRequest
	readPrompts []PromptSpec
	announced   []PromptSpec
	transferred string
	hungup      bool
}

func (f *fakeTransport) Read(_ context.Context, prompts PromptSpec, req ReadRequest) (ReadResult, error) {
	f.reads = append(f.reads, req)
	f.readPrompts = append(f.readPrompts, prompts)
	if len(f.script) == 0 {
		return ReadResult{Status: ReadTimeout}, nil
	}
	res := f.script[0]
	f.script = f.script[1:]
	return res, nil
}

func (f *fakeTransport) Announce(_ context.Context, prompts PromptSpec) error {
	f.announced = append(f.announced, prompts)
	return nil
}

func (f *fakeTransport) Transfer(_ context.Context, destination string) error {
	f.transferred = destination
	return nil
}

func (f *fakeTransport) Hangup(context.Context) error {
	f.hungup = true
	return nil
}

func digits(values ...string) []ReadResult {
	out := make([]ReadResult, 0, len(values))
	for _, v := range values {
		out = append(out, ReadResult{Status: ReadOK, Value: v})
	}
	return out
}

func newTestCall(t *testing.T, ft *fakeTransport) *Call {
	t.Helper()
	return &Call{
		Session:   NewSession("call-1", "0501234567", "", time.Now()),
		Transport: ft,
		Log:       slog.Default(),
	}
}
