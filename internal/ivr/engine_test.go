package ivr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestEngine(idle time.Duration, wire func(*Router)) *Engine {
	r := NewRouter(testPrompts())
	if wire != nil {
		wire(r)
	}
	return NewEngine(r, slog.Default(), nil, idle)
}

func TestEngine_FirstCallbackYieldsMenuRead(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	defer e.Shutdown()

	a, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1", Caller: "0501"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if a.Read == nil {
		t.Fatalf("expected a read action, got %+v", a)
	}
	// The welcome announcement is flushed in front of the menu read.
	if len(a.Prompts) == 0 {
		t.Fatalf("expected buffered welcome prompts")
	}
	if e.Live() != 1 {
		t.Fatalf("expected one live session, got %d", e.Live())
	}
}

func TestEngine_InputAdvancesDialog(t *testing.T) {
	e := newTestEngine(time.Minute, func(r *Router) {
		r.Handle(StateJobs, func(ctx context.Context, call *Call) error {
			res, err := call.Transport.Read(ctx, Prompt(Text("filter?")), ReadRequest{Slot: "f", Mode: ReadDigits, MaxDigits: 1})
			if err != nil || res.Ended() {
				return ErrCallEnded
			}
			return ErrCallEnded
		})
	})
	defer e.Shutdown()

	if _, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1", Caller: "0501"}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	a, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1", Input: "1", HasInput: true})
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if a.Read == nil || a.Read.Slot != "f" {
		t.Fatalf("expected the subflow read, got %+v", a)
	}
}

func TestEngine_HangupEventTearsDownSession(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	if _, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1", Hangup: true}); err != nil {
		t.Fatalf("hangup dispatch: %v", err)
	}
	if e.Live() != 0 {
		t.Fatalf("expected no live sessions, got %d", e.Live())
	}
}

func TestEngine_IdleWatchdogDiscardsSession(t *testing.T) {
	e := newTestEngine(30*time.Millisecond, nil)
	if _, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for e.Live() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected watchdog teardown")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEngine_SessionsAreIsolatedAcrossConcurrentCalls(t *testing.T) {
	e := newTestEngine(time.Minute, func(r *Router) {
		r.Handle(StateJobs, func(ctx context.Context, call *Call) error {
			call.Session.Set("who", call.Session.Caller)
			res, err := call.Transport.Read(ctx, Prompt(Text("x")), ReadRequest{Slot: "x", Mode: ReadDigits})
			if err != nil || res.Ended() {
				return ErrCallEnded
			}
			if call.Session.Value("who") != call.Session.Caller {
				t.Errorf("session state leaked across calls")
			}
			return ErrCallEnded
		})
	})
	defer e.Shutdown()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			caller := fmt.Sprintf("05%08d", i)
			if _, err := e.Dispatch(context.Background(), CallbackEvent{CallID: id, Caller: caller}); err != nil {
				t.Errorf("dispatch %s: %v", id, err)
				return
			}
			if _, err := e.Dispatch(context.Background(), CallbackEvent{CallID: id, Input: "1", HasInput: true}); err != nil {
				t.Errorf("advance %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestEngine_ConcurrencyCapRejectsNewCall(t *testing.T) {
	e := newTestEngine(time.Minute, nil)
	e.AcquireSlot = func(ctx context.Context) (bool, error) { return false, nil }

	_, err := e.Dispatch(context.Background(), CallbackEvent{CallID: "c1"})
	if err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

// A duplicate callback whose input arrives while the dialog is between reads
// must be dropped, not buffered for the next unrelated read.
func TestBridge_InputBetweenReadsIsDropped(t *testing.T) {
	b := newBridge(context.Background(), time.Minute)

	b.deliver(ReadResult{Status: ReadOK, Value: "9"})

	done := make(chan ReadResult, 1)
	go func() {
		res, _ := b.Read(context.Background(), Prompt(Text("q")), ReadRequest{Slot: "answer", Mode: ReadDigits, MaxDigits: 1})
		done <- res
	}()
	<-b.actions
	b.deliver(ReadResult{Status: ReadOK, Value: "2"})

	res := <-done
	if res.Status != ReadOK || res.Value != "2" {
		t.Fatalf("read consumed stray input: %+v", res)
	}
}

func TestBridge_StaleInputDoesNotSatisfyNextRead(t *testing.T) {
	b := newBridge(context.Background(), 80*time.Millisecond)

	done := make(chan ReadResult, 1)
	go func() {
		res, _ := b.Read(context.Background(), Prompt(Text("first")), ReadRequest{Slot: "first", Mode: ReadDigits})
		done <- res
	}()
	<-b.actions
	// Two rapid callbacks for the same read; the second is the duplicate.
	b.deliver(ReadResult{Status: ReadOK, Value: "1"})
	b.deliver(ReadResult{Status: ReadOK, Value: "1"})
	if res := <-done; res.Value != "1" {
		t.Fatalf("first read: %+v", res)
	}

	go func() {
		res, _ := b.Read(context.Background(), Prompt(Text("second")), ReadRequest{Slot: "second", Mode: ReadDigits})
		done <- res
	}()
	<-b.actions

	if res := <-done; res.Status != ReadTimeout {
		t.Fatalf("second read must time out, not consume the duplicate: %+v", res)
	}
}
