package ivr

import (
	"context"
	"log/slog"
)

// MessageSink receives a caller-recorded message reference. Failures are
// non-critical for the dialog: the caller is thanked either way.
type MessageSink interface {
	SaveMessage(ctx context.Context, caller, recordingRef string) error
}

const (
	audioLeaveMessage = "M110"
	audioMessageSaved = "M111"
)

// ContactFlow records a free-form message box entry and returns to the menu.
func ContactFlow(sink MessageSink, log *slog.Logger) Handler {
	return func(ctx context.Context, call *Call) error {
		value, err := call.Collect(ctx, CollectSpec{
			Slot:        "contact.message",
			Prompt:      Prompt(File(audioLeaveMessage), Text("השאירו הודעה לאחר הצליל")),
			Mode:        ReadRecord,
			AllowCancel: true,
			MaxAttempts: 2,
		})
		if err != nil {
			return err
		}
		if value == CancelDigit || value == "" {
			return nil
		}

		if sink != nil {
			if err := sink.SaveMessage(ctx, call.Session.Caller, value); err != nil {
				log.Warn("message save failed", "call_id", call.Session.ID, "err", err)
			}
		}
		return call.Transport.Announce(ctx, Prompt(File(audioMessageSaved), Text("ההודעה נקלטה, תודה")))
	}
}
