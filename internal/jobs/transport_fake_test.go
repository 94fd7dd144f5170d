package jobs

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"jobboard-ivr/internal/ivr"
)

// fakeTransport replays a scripted sequence of read results and records
// everything the flow plays or reads.
type fakeTransport struct {
	script    []ivr.ReadResult
	reads     int
	slots     []string
	announced []ivr.PromptSpec
}

func (f *fakeTransport) Read(_ context.Context, _ ivr.PromptSpec, req ivr.ReadRequest) (ivr.ReadResult, error) {
	f.reads++
	f.slots = append(f.slots, req.Slot)
	if len(f.script) == 0 {
		return ivr.ReadResult{Status: ivr.ReadTimeout}, nil
	}
	res := f.script[0]
	f.script = f.script[1:]
	return res, nil
}

func (f *fakeTransport) Announce(_ context.Context, p ivr.PromptSpec) error {
	f.announced = append(f.announced, p)
	return nil
}

func (f *fakeTransport) Transfer(context.Context, string) error { return nil }
func (f *fakeTransport) Hangup(context.Context) error           { return nil }

// spokenText flattens every announced prompt into one string for substring
// assertions.
func (f *fakeTransport) spokenText() string {
	var b strings.Builder
	for _, p := range f.announced {
		for _, seg := range p {
			b.WriteString(seg.Value)
			b.WriteString(" ")
		}
	}
	return b.String()
}

func digits(values ...string) []ivr.ReadResult {
	out := make([]ivr.ReadResult, 0, len(values))
	for _, v := range values {
		out = append(out, ivr.ReadResult{Status: ivr.ReadOK, Value: v})
	}
	return out
}

func newTestCall(t *testing.T, ft *fakeTransport) *ivr.Call {
	t.Helper()
	return &ivr.Call{
		Session:   ivr.NewSession("call-1", "0501234567", "2", time.Now()),
		Transport: ft,
		Log:       slog.Default(),
	}
}
