package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobboard-ivr/internal/ivr"
	"jobboard-ivr/pkg/metrics"

	"github.com/google/uuid"
)

var (
	ErrChargeFailed    = errors.New("payments: charge failed")
	ErrInvalidArgument = errors.New("payments: invalid argument")
)

// Decide is the pure gating function: settings plus entitlement facts in,
// decision out. No side effects, no prompts.
func Decide(s Settings, role Role, f Facts, price int) Decision {
	if !s.Enabled {
		return Decision{Outcome: OutcomeAllowedFree}
	}
	switch role {
	case RolePoster:
		if !s.PosterEnabled {
			return Decision{Outcome: OutcomeAllowedFree}
		}
	case RoleViewer:
		if !s.ViewerEnabled {
			return Decision{Outcome: OutcomeAllowedFree}
		}
	default:
		return Decision{Outcome: OutcomeDenied}
	}

	if f.IsAdmin || f.IsOwner || f.HasUnlock || f.HasActiveSubscription {
		return Decision{Outcome: OutcomeAllowedEntitled}
	}
	if price <= 0 {
		return Decision{Outcome: OutcomeAllowedFree}
	}
	return Decision{Outcome: OutcomeChallenge, Price: price}
}

// Gate runs the challenge dialog and, on acceptance, the charge plus
// entitlement write. The charge is never retried automatically: a failed
// charge always requires a caller-initiated re-attempt.
type Gate struct {
	Store   Store
	Charger Charger

	// ClaimAttempt guards one charge attempt key (redis SET NX in
	// production). Nil disables the guard.
	ClaimAttempt func(ctx context.Context, key string) (bool, error)

	Log   *slog.Logger
	M     *metrics.Metrics
	Clock func() time.Time
}

func (g *Gate) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now()
}

// settings loads gating settings with documented defaults on absence.
func (g *Gate) settings(ctx context.Context) Settings {
	s, ok, err := g.Store.GetSettings(ctx)
	if err != nil {
		// Gating must not take the board down; fall back to open access.
		g.Log.Warn("payment settings load failed, gating disabled", "err", err)
		return DefaultSettings()
	}
	if !ok {
		return DefaultSettings()
	}
	return s
}

// Prompts for the challenge dialog.
const (
	audioPriceIntro     = "P201"
	audioShekels        = "P202"
	audioAcceptOrCancel = "P203"
	audioChargeOK       = "P204"
	audioChargeFailed   = "P205"
	audioRecordFailed   = "P206"
)

// AuthorizePoster gates the job-posting wizard. A successful charge grants a
// 30-day posting subscription.
func (g *Gate) AuthorizePoster(ctx context.Context, call *ivr.Call) (bool, error) {
	s := g.settings(ctx)

	until, err := g.Store.SubscriptionUntil(ctx, call.Session.Caller)
	if err != nil {
		return false, fmt.Errorf("payments: subscription lookup: %w", err)
	}
	facts := Facts{HasActiveSubscription: until != nil && until.After(g.now())}

	d := Decide(s, RolePoster, facts, s.PosterPrice)
	return g.resolve(ctx, call, d, RolePoster, "")
}

// AuthorizeViewer gates contact details of one posting. A successful charge
// appends a single-job unlock.
func (g *Gate) AuthorizeViewer(ctx context.Context, call *ivr.Call, jobID string, isOwner bool) (bool, error) {
	if jobID == "" {
		return false, ErrInvalidArgument
	}
	s := g.settings(ctx)

	unlocked, err := g.Store.HasUnlock(ctx, call.Session.Caller, jobID)
	if err != nil {
		return false, fmt.Errorf("payments: unlock lookup: %w", err)
	}
	until, err := g.Store.SubscriptionUntil(ctx, call.Session.Caller)
	if err != nil {
		return false, fmt.Errorf("payments: subscription lookup: %w", err)
	}
	facts := Facts{
		IsOwner:               isOwner,
		HasUnlock:             unlocked,
		HasActiveSubscription: until != nil && until.After(g.now()),
	}

	d := Decide(s, RoleViewer, facts, s.ViewerPrice)
	return g.resolve(ctx, call, d, RoleViewer, jobID)
}

func (g *Gate) resolve(ctx context.Context, call *ivr.Call, d Decision, role Role, jobID string) (bool, error) {
	switch d.Outcome {
	case OutcomeAllowedFree, OutcomeAllowedEntitled:
		g.M.IncPayments("allowed")
		return true, nil
	case OutcomeDenied:
		g.M.IncPayments("denied")
		return false, nil
	}

	// Challenge: present the price and a binary accept/cancel prompt.
	res, err := call.Transport.Read(ctx,
		ivr.Prompt(
			ivr.File(audioPriceIntro),
			ivr.Number(d.Price),
			ivr.File(audioShekels),
			ivr.File(audioAcceptOrCancel),
			ivr.Text("לאישור הקישו 1, לביטול הקישו כוכבית"),
		),
		ivr.ReadRequest{Slot: "payment.accept", Mode: ivr.ReadDigits, MaxDigits: 1, AllowCancel: true},
	)
	if err != nil {
		return false, err
	}
	if res.Ended() {
		return false, ivr.ErrCallEnded
	}
	if res.Value != "1" {
		g.M.IncPayments("declined")
		return false, nil
	}

	// One attempt key per session step; a duplicate callback for the same
	// step must not charge twice.
	step := call.Session.IncAttempts("payment.charge")
	key := fmt.Sprintf("charge:%s:%d", call.Session.ID, step)
	if g.ClaimAttempt != nil {
		owned, err := g.ClaimAttempt(ctx, key)
		if err != nil {
			call.Log.Warn("charge idempotency claim failed", "key", key, "err", err)
		} else if !owned {
			call.Log.Warn("duplicate charge attempt suppressed", "key", key)
			return false, nil
		}
	}

	req := ChargeRequest{
		AttemptKey:  key,
		Phone:       call.Session.Caller,
		Amount:      d.Price,
		Description: string(role),
	}
	if err := g.Charger.Charge(ctx, req); err != nil {
		g.M.IncPayments("failed")
		call.Log.Warn("charge failed", "key", key, "err", err)
		_ = call.Transport.Announce(ctx, ivr.Prompt(ivr.File(audioChargeFailed), ivr.Text("החיוב נכשל")))
		return false, nil
	}

	now := g.now()
	txn := Transaction{
		ID:         uuid.NewString(),
		Phone:      call.Session.Caller,
		JobID:      jobID,
		Role:       role,
		Amount:     d.Price,
		AttemptKey: key,
		CreatedAt:  now,
	}
	switch role {
	case RoleViewer:
		err = g.Store.GrantUnlock(ctx, call.Session.Caller, jobID, txn)
	case RolePoster:
		err = g.Store.GrantSubscription(ctx, call.Session.Caller, now.Add(SubscriptionWindow), txn)
	}
	if err != nil {
		// The caller was charged; log loudly, tell the caller, and send
		// them back to the menu instead of tearing the call down.
		g.M.IncPayments("record_failed")
		call.Log.Error("entitlement write after charge failed", "key", key, "err", err)
		_ = call.Transport.Announce(ctx, ivr.Prompt(
			ivr.File(audioRecordFailed),
			ivr.Text("אירעה שגיאה ברישום התשלום, אנא פנו לשירות הלקוחות"),
		))
		return false, nil
	}

	g.M.IncPayments("charged")
	_ = call.Transport.Announce(ctx, ivr.Prompt(ivr.File(audioChargeOK), ivr.Text("החיוב בוצע בהצלחה")))
	return true, nil
}
