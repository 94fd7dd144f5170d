package ivr

import (
	"context"
	"errors"
	"testing"
)

func testPrompts() RouterPrompts {
	return RouterPrompts{
		Welcome:     Prompt(Text("welcome")),
		Menu:        Prompt(Text("menu")),
		Invalid:     Prompt(Text("invalid")),
		Goodbye:     Prompt(Text("bye")),
		SystemError: Prompt(Text("error")),
	}
}

func TestRouter_DispatchesToRegisteredHandler(t *testing.T) {
	r := NewRouter(testPrompts())
	var entered bool
	r.Handle(StateJobs, func(ctx context.Context, call *Call) error {
		entered = true
		return ErrCallEnded
	})

	ft := &fakeTransport{script: digits("1")}
	r.Run(context.Background(), newTestCall(t, ft))

	if !entered {
		t.Fatalf("expected jobs handler to run")
	}
}

func TestRouter_InvalidInputBoundedThenHangsUp(t *testing.T) {
	r := NewRouter(testPrompts())
	ft := &fakeTransport{script: digits("9", "0", "8", "7")}
	r.Run(context.Background(), newTestCall(t, ft))

	if !ft.hungup {
		t.Fatalf("expected hangup after bounded invalid attempts")
	}
	// Cap of 3 means exactly 3 menu reads; there is no recursion to grow.
	if len(ft.reads) != 3 {
		t.Fatalf("expected 3 menu reads, got %d", len(ft.reads))
	}
}

func TestRouter_SubflowErrorSpeaksGenericPromptAndEndsCall(t *testing.T) {
	r := NewRouter(testPrompts())
	r.Handle(StatePost, func(ctx context.Context, call *Call) error {
		return errors.New("pg: connection refused")
	})

	ft := &fakeTransport{script: digits("2")}
	r.Run(context.Background(), newTestCall(t, ft))

	if !ft.hungup {
		t.Fatalf("expected hangup on subflow failure")
	}
	var spokeError bool
	for _, p := range ft.announced {
		for _, seg := range p {
			if seg.Value == "error" {
				spokeError = true
			}
			if seg.Value == "pg: connection refused" {
				t.Fatalf("raw error text must never be spoken")
			}
		}
	}
	if !spokeError {
		t.Fatalf("expected generic error prompt")
	}
}

func TestRouter_SubflowPanicCaughtAtBoundary(t *testing.T) {
	r := NewRouter(testPrompts())
	r.Handle(StateJobs, func(ctx context.Context, call *Call) error {
		panic("boom")
	})

	ft := &fakeTransport{script: digits("1")}
	r.Run(context.Background(), newTestCall(t, ft)) // must not re-panic

	if !ft.hungup {
		t.Fatalf("expected hangup after panic")
	}
}

func TestRouter_SubflowReturnRedisplaysMenu(t *testing.T) {
	r := NewRouter(testPrompts())
	calls := 0
	r.Handle(StateJobs, func(ctx context.Context, call *Call) error {
		calls++
		return nil
	})

	// Enter jobs, come back, enter jobs again, then the script runs dry and
	// the menu read times out.
	ft := &fakeTransport{script: digits("1", "1")}
	r.Run(context.Background(), newTestCall(t, ft))

	if calls != 2 {
		t.Fatalf("expected handler to run twice, got %d", calls)
	}
}

func TestRouter_DialedExtensionSkipsFirstMenuRead(t *testing.T) {
	r := NewRouter(testPrompts())
	var entered bool
	r.Handle(StateSubscribe, func(ctx context.Context, call *Call) error {
		entered = true
		return ErrCallEnded
	})

	ft := &fakeTransport{}
	call := newTestCall(t, ft)
	call.Session.Extension = "3"
	r.Run(context.Background(), call)

	if !entered {
		t.Fatalf("expected direct dispatch from dialed extension")
	}
	if len(ft.reads) != 0 {
		t.Fatalf("expected no menu read, got %d", len(ft.reads))
	}
}
