package ivr

import "context"

// CollectSpec drives one field collection: prompt, capture, validate, retry.
type CollectSpec struct {
	// Slot names the session field the value is stored under.
	Slot string

	Prompt PromptSpec
	// ErrorPrompt is played before a retry. Optional.
	ErrorPrompt PromptSpec

	Mode        ReadMode
	MaxDigits   int
	AllowCancel bool

	// MaxAttempts bounds the retry loop. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Validate normalizes the raw input and reports whether it is usable.
	// Nil accepts any non-empty input.
	Validate func(raw string) (string, bool)

	// Fallback is returned when attempts are exhausted. Collection never
	// fails a call on noisy input; it degrades to this documented default.
	Fallback string

	// Confirm, when set, plays the captured value back and asks a binary
	// confirm/redo question. Anything other than ConfirmDigit repeats the
	// collection from the top, bounded by the same attempt cap.
	Confirm *ConfirmSpec
}

type ConfirmSpec struct {
	// Playback builds the prompts that play the captured value back.
	Playback func(value string) PromptSpec
	// Question asks confirm/redo (e.g. "press 1 to confirm, 2 to re-record").
	Question PromptSpec
	// ConfirmDigit accepts the value; default "1".
	ConfirmDigit string
}

// DefaultMaxAttempts bounds collection retries when a spec does not say.
const DefaultMaxAttempts = 3

// Collect runs the generic prompt/read/validate/retry loop for one field.
//
// Guarantees:
//   - Always returns a usable value: invalid or empty input is retried and,
//     past the attempt cap, the configured fallback is returned. Validation never
//     surfaces as an error.
//   - Returns ErrCallEnded only when the call itself is gone.
//   - A cancel tap (when allowed) returns ("", errCancelled-free): the cancel
//     digit is surfaced as the value so callers can special-case it.
func (c *Call) Collect(ctx context.Context, spec CollectSpec) (string, error) {
	maxAttempts := spec.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	confirmDigit := "1"
	if spec.Confirm != nil && spec.Confirm.ConfirmDigit != "" {
		confirmDigit = spec.Confirm.ConfirmDigit
	}

	c.Session.ResetAttempts(spec.Slot)
	for {
		attempt := c.Session.IncAttempts(spec.Slot)

		res, err := c.Transport.Read(ctx, spec.Prompt, ReadRequest{
			Slot:        spec.Slot,
			Mode:        spec.Mode,
			MaxDigits:   spec.MaxDigits,
			AllowCancel: spec.AllowCancel,
		})
		if err != nil {
			return "", err
		}
		if res.Ended() {
			return "", ErrCallEnded
		}
		if spec.AllowCancel && res.Cancelled() {
			return CancelDigit, nil
		}

		value, ok := res.Value, res.Value != ""
		if ok && spec.Validate != nil {
			value, ok = spec.Validate(res.Value)
		}

		if ok && spec.Confirm != nil {
			confirmed, err := c.confirm(ctx, spec, value, confirmDigit)
			if err != nil {
				return "", err
			}
			ok = confirmed
		}

		if ok {
			c.Session.Set(spec.Slot, value)
			return value, nil
		}

		if attempt >= maxAttempts {
			c.Log.Debug("collect attempts exhausted, using fallback",
				"slot", spec.Slot, "attempts", attempt)
			c.Session.Set(spec.Slot, spec.Fallback)
			return spec.Fallback, nil
		}
		if len(spec.ErrorPrompt) > 0 {
			if err := c.Transport.Announce(ctx, spec.ErrorPrompt); err != nil {
				return "", err
			}
		}
	}
}

func (c *Call) confirm(ctx context.Context, spec CollectSpec, value, confirmDigit string) (bool, error) {
	prompts := spec.Confirm.Playback(value)
	prompts = Join(prompts, spec.Confirm.Question)

	res, err := c.Transport.Read(ctx, prompts, ReadRequest{
		Slot:      spec.Slot + ".confirm",
		Mode:      ReadDigits,
		MaxDigits: 1,
	})
	if err != nil {
		return false, err
	}
	if res.Ended() {
		return false, ErrCallEnded
	}
	return res.Value == confirmDigit, nil
}
