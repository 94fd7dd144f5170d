package ivr

import (
	"context"
	"errors"
	"fmt"
)

// State names one top-level menu destination. One state per extension.
type State string

const (
	StateMain        State = "main"
	StateJobs        State = "jobs"
	StatePost        State = "post"
	StateSubscribe   State = "subscribe"
	StateContact     State = "contact"
	StateUnsubscribe State = "unsubscribe"
)

// RouterPrompts carries the static audio for the top-level dispatch.
type RouterPrompts struct {
	Welcome     PromptSpec
	Menu        PromptSpec
	Invalid     PromptSpec
	Goodbye     PromptSpec
	SystemError PromptSpec
}

// Router is the top-level dispatcher: play the menu, read one digit, hand the
// call to the matching subflow, and come back.
//
// Invalid input re-enters the main state through an explicit bounded loop
// with a per-session attempt cap; there is no recursion, so adversarial
// input cannot grow the stack.
type Router struct {
	prompts  RouterPrompts
	handlers map[State]Handler

	// menu maps the caller's digit to a state.
	menu map[string]State

	// MaxInvalid bounds consecutive bad menu digits before the call is ended.
	MaxInvalid int
}

func NewRouter(prompts RouterPrompts) *Router {
	return &Router{
		prompts:  prompts,
		handlers: make(map[State]Handler),
		menu: map[string]State{
			"1": StateJobs,
			"2": StatePost,
			"3": StateSubscribe,
			"4": StateContact,
			"5": StateUnsubscribe,
		},
		MaxInvalid: 3,
	}
}

// Handle registers the subflow for a state. Must be called before Run.
func (r *Router) Handle(state State, h Handler) { r.handlers[state] = h }

const slotMenuChoice = "menu.choice"

// Run drives the whole dialog for one call. It returns only when the call is
// over; every exit path ends with an explicit terminal transport action
// unless a subflow already transferred the call away.
//
// Error boundary: an error or panic escaping a subflow is logged, a generic
// system-error prompt is spoken, and the call ends. Raw error detail is
// never read to the caller.
func (r *Router) Run(ctx context.Context, call *Call) {
	defer func() {
		if p := recover(); p != nil {
			call.Log.Error("dialog panic", "panic", fmt.Sprint(p))
			r.failCall(ctx, call)
		}
	}()

	if err := call.Transport.Announce(ctx, r.prompts.Welcome); err != nil {
		call.Log.Warn("welcome announce failed", "err", err)
	}

	invalid := 0
	first := true
	for {
		// A caller who dialed straight into a subflow extension skips the
		// first menu read.
		var choice string
		if _, mapped := r.menu[call.Session.Extension]; first && mapped {
			choice = call.Session.Extension
			first = false
		} else {
			first = false
			res, err := call.Transport.Read(ctx, r.prompts.Menu, ReadRequest{
				Slot:      slotMenuChoice,
				Mode:      ReadDigits,
				MaxDigits: 1,
			})
			if err != nil {
				call.Log.Error("menu read failed", "err", err)
				r.failCall(ctx, call)
				return
			}
			if res.Ended() {
				return
			}
			choice = res.Value
		}

		state, ok := r.menu[choice]
		if !ok {
			invalid++
			if invalid >= r.MaxInvalid {
				_ = call.Transport.Announce(ctx, r.prompts.Goodbye)
				_ = call.Transport.Hangup(ctx)
				return
			}
			_ = call.Transport.Announce(ctx, r.prompts.Invalid)
			continue
		}
		invalid = 0

		h, registered := r.handlers[state]
		if !registered {
			call.Log.Error("no handler registered", "state", string(state))
			r.failCall(ctx, call)
			return
		}

		err := h(ctx, call)
		switch {
		case err == nil:
			// Subflow finished; redisplay the menu.
		case errors.Is(err, ErrCallEnded):
			return
		default:
			call.Log.Error("subflow failed", "state", string(state), "err", err)
			r.failCall(ctx, call)
			return
		}
	}
}

func (r *Router) failCall(ctx context.Context, call *Call) {
	_ = call.Transport.Announce(ctx, r.prompts.SystemError)
	_ = call.Transport.Hangup(ctx)
}
