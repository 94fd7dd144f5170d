package ivr

import (
	"context"
	"testing"

	"jobboard-ivr/internal/messages"
)

func TestContactFlow_SavesRecording(t *testing.T) {
	ft := &fakeTransport{script: []ReadResult{{Status: ReadOK, Value: "rec-42"}}}
	call := newTestCall(t, ft)
	sink := messages.NewMemoryStore()

	if err := ContactFlow(sink, call.Log)(context.Background(), call); err != nil {
		t.Fatalf("ContactFlow: %v", err)
	}

	got, err := sink.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("stored %d messages, want 1", len(got))
	}
	if got[0].Caller != call.Session.Caller || got[0].RecordingRef != "rec-42" {
		t.Fatalf("stored %+v", got[0])
	}
	if len(ft.announced) != 1 {
		t.Fatalf("announced %d prompts, want thank-you", len(ft.announced))
	}
}

func TestContactFlow_CancelStoresNothing(t *testing.T) {
	ft := &fakeTransport{script: digits(CancelDigit)}
	call := newTestCall(t, ft)
	sink := messages.NewMemoryStore()

	if err := ContactFlow(sink, call.Log)(context.Background(), call); err != nil {
		t.Fatalf("ContactFlow: %v", err)
	}
	got, _ := sink.Recent(context.Background(), 10)
	if len(got) != 0 {
		t.Fatalf("stored %d messages, want none", len(got))
	}
	if len(ft.announced) != 0 {
		t.Fatalf("announced %d prompts, want none on cancel", len(ft.announced))
	}
}

// A persistence failure must not surface to the caller.
func TestContactFlow_SinkFailureStillThanks(t *testing.T) {
	ft := &fakeTransport{script: []ReadResult{{Status: ReadOK, Value: "rec-1"}}}
	call := newTestCall(t, ft)

	if err := ContactFlow(failingSink{}, call.Log)(context.Background(), call); err != nil {
		t.Fatalf("ContactFlow: %v", err)
	}
	if len(ft.announced) != 1 {
		t.Fatalf("announced %d prompts, want thank-you despite sink error", len(ft.announced))
	}
}

type failingSink struct{}

func (failingSink) SaveMessage(context.Context, string, string) error {
	return context.DeadlineExceeded
}
