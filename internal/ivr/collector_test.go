package ivr

import (
	"context"
	"errors"
	"testing"
)

func TestCollect_EmptyInputExhaustsAttemptsAndFallsBack(t *testing.T) {
	ft := &fakeTransport{script: digits("", "", "")}
	call := newTestCall(t, ft)

	v, err := call.Collect(context.Background(), CollectSpec{
		Slot:        "title",
		Prompt:      Prompt(Text("say the title")),
		Mode:        ReadRecord,
		MaxAttempts: 3,
		Fallback:    "generic-title",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != "generic-title" {
		t.Fatalf("expected fallback, got %q", v)
	}
	if len(ft.reads) != 3 {
		t.Fatalf("expected exactly 3 read attempts, got %d", len(ft.reads))
	}
	if v == "" {
		t.Fatalf("collect must never return an empty value")
	}
}

func TestCollect_ValidatorNormalizesValue(t *testing.T) {
	ft := &fakeTransport{script: digits("07", "3")}
	call := newTestCall(t, ft)

	v, err := call.Collect(context.Background(), CollectSpec{
		Slot:   "choice",
		Prompt: Prompt(Text("pick")),
		Mode:   ReadDigits,
		Validate: func(raw string) (string, bool) {
			if raw == "3" {
				return "three", true
			}
			return "", false
		},
		Fallback: "none",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != "three" {
		t.Fatalf("expected normalized value, got %q", v)
	}
	if got := call.Session.Value("choice"); got != "three" {
		t.Fatalf("expected session slot set, got %q", got)
	}
}

func TestCollect_ConfirmRedoRepeatsThenAccepts(t *testing.T) {
	// rec-1 rejected at the confirm gate, rec-2 confirmed.
	ft := &fakeTransport{script: []ReadResult{
		{Status: ReadOK, Value: "rec-1"},
		{Status: ReadOK, Value: "2"},
		{Status: ReadOK, Value: "rec-2"},
		{Status: ReadOK, Value: "1"},
	}}
	call := newTestCall(t, ft)

	v, err := call.Collect(context.Background(), CollectSpec{
		Slot:        "title",
		Prompt:      Prompt(Text("record")),
		Mode:        ReadRecord,
		MaxAttempts: 3,
		Fallback:    "generic",
		Confirm: &ConfirmSpec{
			Playback: func(value string) PromptSpec { return Prompt(File(value)) },
			Question: Prompt(Text("1 confirm, 2 redo")),
		},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != "rec-2" {
		t.Fatalf("expected second recording, got %q", v)
	}
}

func TestCollect_CancelDigitReturnedVerbatim(t *testing.T) {
	ft := &fakeTransport{script: digits("*")}
	call := newTestCall(t, ft)

	v, err := call.Collect(context.Background(), CollectSpec{
		Slot:        "area",
		Prompt:      Prompt(Text("pick area")),
		Mode:        ReadDigits,
		AllowCancel: true,
		Fallback:    "any",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != CancelDigit {
		t.Fatalf("expected cancel digit verbatim, got %q", v)
	}
}

func TestCollect_TimeoutSurfacesCallEnded(t *testing.T) {
	ft := &fakeTransport{} // empty script yields timeout
	call := newTestCall(t, ft)

	_, err := call.Collect(context.Background(), CollectSpec{
		Slot:     "x",
		Prompt:   Prompt(Text("p")),
		Mode:     ReadDigits,
		Fallback: "d",
	})
	if !errors.Is(err, ErrCallEnded) {
		t.Fatalf("expected ErrCallEnded, got %v", err)
	}
}
