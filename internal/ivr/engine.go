package ivr

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jobboard-ivr/pkg/metrics"
)

// CallbackEvent is one provider webhook callback normalized by the telephony
// adapter: either a brand-new call, input for the outstanding read, or a
// hang-up notification.
type CallbackEvent struct {
	CallID    string
	Caller    string
	Extension string

	Input    string
	HasInput bool

	Hangup bool
}

// Action is what the engine hands back to the adapter for rendering: zero or
// more announcements followed by exactly one of {read, transfer, hangup}.
type Action struct {
	Prompts PromptSpec

	Read       *ReadRequest
	TransferTo string
	Hangup     bool
}

// ErrDialogStalled means the dialog goroutine produced no next action within
// the step deadline. It indicates a bug or an overloaded backend, never
// caller misbehavior.
var ErrDialogStalled = errors.New("ivr: dialog stalled")

// ErrBusy means the per-line concurrency cap rejected a new call.
var ErrBusy = errors.New("ivr: line at capacity")

// Engine owns every live call session. Each call runs one sequential dialog
// goroutine; across calls sessions are fully concurrent and share no dialog
// state. The engine is the only piece aware of both worlds, and its map is
// the only shared structure, guarded by a mutex.
type Engine struct {
	router *Router
	log    *slog.Logger
	m      *metrics.Metrics

	// idle is the session inactivity window; when it elapses with no
	// callback, the session is torn down and draft state discarded.
	idle time.Duration

	// stepTimeout bounds how long one webhook waits for the dialog's next
	// action. This is compute time, not caller think time.
	stepTimeout time.Duration

	// AcquireSlot/ReleaseSlot hook the per-line concurrency cap (redis-backed
	// in production, nil to disable).
	AcquireSlot func(ctx context.Context) (bool, error)
	ReleaseSlot func(ctx context.Context)

	now func() time.Time

	mu    sync.Mutex
	calls map[string]*liveCall
}

type liveCall struct {
	call     *Call
	bridge   *bridge
	cancel   context.CancelFunc
	watchdog *time.Timer
	started  time.Time
	done     chan struct{}
}

func NewEngine(router *Router, log *slog.Logger, m *metrics.Metrics, idle time.Duration) *Engine {
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &Engine{
		router:      router,
		log:         log,
		m:           m,
		idle:        idle,
		stepTimeout: 15 * time.Second,
		now:         time.Now,
		calls:       make(map[string]*liveCall),
	}
}

// Live returns the number of in-flight call sessions.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Dispatch feeds one webhook callback into the matching session and returns
// the next outward action. It creates the session on first contact.
func (e *Engine) Dispatch(ctx context.Context, ev CallbackEvent) (Action, error) {
	if ev.CallID == "" {
		return Action{}, errors.New("ivr: call id required")
	}

	if ev.Hangup {
		e.end(ev.CallID, "hangup")
		return Action{Hangup: true}, nil
	}

	lc, created, err := e.findOrStart(ctx, ev)
	if err != nil {
		return Action{}, err
	}
	if !created && ev.HasInput {
		lc.bridge.deliver(ReadResult{Status: ReadOK, Value: ev.Input})
	}
	lc.watchdog.Reset(e.idle)

	select {
	case a := <-lc.bridge.actions:
		if a.Read != nil {
			e.m.IncReads()
		}
		if a.TransferTo != "" {
			e.end(ev.CallID, "transfer")
		}
		if a.Hangup {
			e.end(ev.CallID, "completed")
		}
		return a, nil
	case <-time.After(e.stepTimeout):
		e.end(ev.CallID, "error")
		return Action{}, ErrDialogStalled
	case <-ctx.Done():
		return Action{}, ctx.Err()
	}
}

// Shutdown tears down every live session.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.calls))
	for id := range e.calls {
		ids = append(ids, id)
	}
	e.mu.Unlock()
	for _, id := range ids {
		e.end(id, "shutdown")
	}
}

func (e *Engine) findOrStart(ctx context.Context, ev CallbackEvent) (*liveCall, bool, error) {
	e.mu.Lock()
	if lc, ok := e.calls[ev.CallID]; ok {
		e.mu.Unlock()
		return lc, false, nil
	}
	e.mu.Unlock()

	if e.AcquireSlot != nil {
		ok, err := e.AcquireSlot(ctx)
		if err != nil {
			// The cap is a protection, not a dependency; admit on failure.
			e.log.Warn("concurrency cap check failed", "err", err)
		} else if !ok {
			return nil, false, ErrBusy
		}
	}

	now := e.now()
	sess := NewSession(ev.CallID, ev.Caller, ev.Extension, now)
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	lc := &liveCall{
		call: &Call{
			Session:   sess,
			Log:       e.log.With("call_id", ev.CallID, "caller", ev.Caller),
			Transport: nil, // set below
		},
		cancel:  cancel,
		started: now,
		done:    make(chan struct{}),
	}
	lc.bridge = newBridge(sessCtx, e.idle)
	lc.call.Transport = lc.bridge
	lc.watchdog = time.AfterFunc(e.idle, func() {
		e.m.IncReadTimeouts()
		e.end(ev.CallID, "timeout")
	})

	e.mu.Lock()
	// Double-check under lock; a concurrent first callback may have won.
	if existing, ok := e.calls[ev.CallID]; ok {
		e.mu.Unlock()
		cancel()
		lc.watchdog.Stop()
		if e.ReleaseSlot != nil {
			e.ReleaseSlot(context.WithoutCancel(ctx))
		}
		return existing, false, nil
	}
	e.calls[ev.CallID] = lc
	e.mu.Unlock()

	e.m.IncCallsStarted()
	lc.call.Log.Info("call session started", "extension", ev.Extension)

	go func() {
		defer close(lc.done)
		e.router.Run(sessCtx, lc.call)
	}()

	return lc, true, nil
}

func (e *Engine) end(callID, reason string) {
	e.mu.Lock()
	lc, ok := e.calls[callID]
	if ok {
		delete(e.calls, callID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	lc.watchdog.Stop()
	lc.cancel()
	if e.ReleaseSlot != nil {
		e.ReleaseSlot(context.Background())
	}

	dur := e.now().Sub(lc.started)
	e.m.IncCallsFinished(reason)
	e.m.ObserveCallDuration(dur.Seconds())
	lc.call.Log.Info("call session ended", "reason", reason, "duration_ms", dur.Milliseconds())
}

// bridge adapts the channel world (webhook request/response) to the blocking
// Transport world the dialog flows live in.
//
// Announcements are buffered and flushed with the next read or terminal
// action, matching how the provider plays message sequences.
type bridge struct {
	ctx  context.Context
	idle time.Duration

	mu     sync.Mutex
	queued PromptSpec

	// pending is the slot of the outstanding read, "" when the dialog is
	// between reads.
	pending string

	// actions carries the dialog's next outward step; buffered so a terminal
	// action never blocks a finishing goroutine when no webhook is waiting.
	actions chan Action
	inputs  chan ReadResult
}

func newBridge(ctx context.Context, idle time.Duration) *bridge {
	return &bridge{
		ctx:     ctx,
		idle:    idle,
		actions: make(chan Action, 1),
		inputs:  make(chan ReadResult, 1),
	}
}

// deliver hands caller input to the outstanding read without blocking the
// webhook goroutine. Input arriving while the dialog is between reads is a
// duplicate callback and is dropped; it must never satisfy a later read.
func (b *bridge) deliver(res ReadResult) {
	b.mu.Lock()
	res.Slot = b.pending
	b.mu.Unlock()
	if res.Slot == "" {
		return
	}
	select {
	case b.inputs <- res:
	default:
	}
}

func (b *bridge) setPending(slot string) {
	b.mu.Lock()
	b.pending = slot
	b.mu.Unlock()
}

func (b *bridge) flush(extra PromptSpec) PromptSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := Join(b.queued, extra)
	b.queued = nil
	return out
}

func (b *bridge) Read(ctx context.Context, prompts PromptSpec, req ReadRequest) (ReadResult, error) {
	b.setPending(req.Slot)
	defer b.setPending("")

	out := Action{Prompts: b.flush(prompts), Read: &req}
	select {
	case b.actions <- out:
	case <-ctx.Done():
		return ReadResult{Status: ReadHangup}, nil
	}

	timer := time.NewTimer(b.idle)
	defer timer.Stop()
	for {
		select {
		case res := <-b.inputs:
			if res.Slot != req.Slot {
				// Stale input buffered for an abandoned read.
				continue
			}
			return res, nil
		case <-timer.C:
			return ReadResult{Status: ReadTimeout}, nil
		case <-ctx.Done():
			return ReadResult{Status: ReadHangup}, nil
		}
	}
}

func (b *bridge) Announce(ctx context.Context, prompts PromptSpec) error {
	b.mu.Lock()
	b.queued = Join(b.queued, prompts)
	b.mu.Unlock()
	return nil
}

func (b *bridge) Transfer(ctx context.Context, destination string) error {
	return b.terminal(ctx, Action{Prompts: b.flush(nil), TransferTo: destination})
}

func (b *bridge) Hangup(ctx context.Context) error {
	return b.terminal(ctx, Action{Prompts: b.flush(nil), Hangup: true})
}

func (b *bridge) terminal(ctx context.Context, a Action) error {
	select {
	case b.actions <- a:
		return nil
	case <-ctx.Done():
		return ErrCallEnded
	}
}
