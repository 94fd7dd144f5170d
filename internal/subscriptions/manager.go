package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"jobboard-ivr/internal/ivr"
	"jobboard-ivr/internal/jobs"
	"jobboard-ivr/pkg/metrics"
)

// Directory answers list-membership queries against the telephony provider.
// The manager never writes provider-side membership; enrollment always goes
// through a call transfer into the provider's own flow.
type Directory interface {
	MembershipsOf(ctx context.Context, phone string) ([]string, error)
}

// Static audio assets for the subscription dialogs.
const (
	audioSubWelcome    = "S401"
	audioSubExisting   = "S402"
	audioSubSaved      = "S403"
	audioSubError      = "S404"
	audioUnsubMenu     = "S405"
	audioInvalidChoice = "S406"
)

// Manager runs the subscribe and unsubscribe dialogs.
type Manager struct {
	Store Store
	Dir   Directory
	Log   *slog.Logger
	M     *metrics.Metrics

	// Provider-side extensions the call is transferred into.
	RegistrationExt string
	ManagementExt   string

	// ClaimAttempt guards record creation against duplicate callbacks for
	// the same dialog step. Optional.
	ClaimAttempt func(ctx context.Context, key string) (bool, error)

	clock func() time.Time
}

func NewManager(store Store, dir Directory, log *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{Store: store, Dir: dir, Log: log, M: m, clock: time.Now}
}

// SetClock injects a deterministic clock for tests.
func (mg *Manager) SetClock(clock func() time.Time) { mg.clock = clock }

func (mg *Manager) now() time.Time {
	if mg.clock == nil {
		return time.Now()
	}
	return mg.clock()
}

// SubscribeHandler decides between managing an existing provider-side
// membership and creating a new enrollment.
func (mg *Manager) SubscribeHandler() ivr.Handler {
	return func(ctx context.Context, call *ivr.Call) error {
		lists := mg.memberships(ctx, call.Session.Caller)
		if len(lists) > 0 {
			return mg.existing(ctx, call, lists)
		}
		return mg.enroll(ctx, call)
	}
}

// memberships queries the directory. A lookup failure is logged and treated
// as "no memberships" so the dialog can continue.
func (mg *Manager) memberships(ctx context.Context, phone string) []string {
	lists, err := mg.Dir.MembershipsOf(ctx, phone)
	if err != nil {
		mg.M.IncDirectoryErrs()
		mg.Log.Warn("directory membership lookup failed", "phone", phone, "error", err)
		return nil
	}
	return lists
}

func (mg *Manager) existing(ctx context.Context, call *ivr.Call, lists []string) error {
	announce := ivr.Prompt(ivr.File(audioSubExisting), ivr.Text("אתם רשומים לרשימות הבאות"))
	for _, name := range lists {
		announce = append(announce, ivr.Text(name))
	}
	if err := call.Transport.Announce(ctx, announce); err != nil {
		return err
	}

	choice, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        "subscribe.manage",
		Prompt:      ivr.Prompt(ivr.Text("לניהול או הסרה מהרשימות הקישו 1, לסיום הקישו 2")),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("הקשה לא חוקית")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   1,
		AllowCancel: true,
		Validate: func(raw string) (string, bool) {
			return raw, raw == "1" || raw == "2"
		},
		Fallback: "2",
	})
	if err != nil {
		return err
	}
	if choice != "1" {
		return nil
	}

	// Second confirmation before leaving for the provider's management flow.
	res, err := call.Transport.Read(ctx,
		ivr.Prompt(ivr.Text("לאישור מעבר לניהול הרשימות הקישו 1, לחזרה הקישו כל מקש אחר")),
		ivr.ReadRequest{Slot: "subscribe.manage.confirm", Mode: ivr.ReadDigits, MaxDigits: 1},
	)
	if err != nil {
		return err
	}
	if res.Ended() {
		return ivr.ErrCallEnded
	}
	if res.Value != "1" {
		return nil
	}

	if err := call.Transport.Transfer(ctx, mg.ManagementExt); err != nil {
		return err
	}
	return ivr.ErrCallEnded
}

// New-enrollment type choices.
const (
	enrollBasic    = "1"
	enrollFiltered = "2"
	enrollNight    = "3"
)

func (mg *Manager) enroll(ctx context.Context, call *ivr.Call) error {
	kind, err := call.Collect(ctx, ivr.CollectSpec{
		Slot: "subscribe.type",
		Prompt: ivr.Prompt(
			ivr.File(audioSubWelcome),
			ivr.Text("להרשמה רגילה הקישו 1, להרשמה עם סינון הקישו 2, להרשמה כולל שעות הלילה הקישו 3"),
		),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("הקשה לא חוקית")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   1,
		AllowCancel: true,
		Validate: func(raw string) (string, bool) {
			return raw, raw == enrollBasic || raw == enrollFiltered || raw == enrollNight
		},
		Fallback: enrollBasic,
	})
	if err != nil {
		return err
	}

	switch kind {
	case ivr.CancelDigit:
		return nil

	case enrollBasic:
		// No local record: the provider's generic registration flow owns the
		// whole enrollment.
		if err := call.Transport.Transfer(ctx, mg.RegistrationExt); err != nil {
			return err
		}
		return ivr.ErrCallEnded

	case enrollNight:
		return mg.create(ctx, call, Record{
			Phone:     call.Session.Caller,
			NightMode: true,
		})

	default: // enrollFiltered
		filters, cancelled, err := mg.collectFilters(ctx, call)
		if err != nil || cancelled {
			return err
		}

		night, cancelled, err := mg.nightModeQuestion(ctx, call)
		if err != nil {
			return err
		}
		if cancelled {
			// Cancellation after filter collection discards the whole draft.
			return nil
		}

		return mg.create(ctx, call, Record{
			Phone:      call.Session.Caller,
			Filters:    filters,
			HasFilters: true,
			NightMode:  night,
		})
	}
}

// collectFilters runs one filter-category choice and its follow-up value.
func (mg *Manager) collectFilters(ctx context.Context, call *ivr.Call) (jobs.FilterCriteria, bool, error) {
	category, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        "subscribe.filter",
		Prompt:      ivr.Prompt(ivr.Text("לסינון לפי אזור הקישו 1, לפי שכר שעתי מינימלי הקישו 2, לפי גיל הקישו 3")),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("הקשה לא חוקית")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   1,
		AllowCancel: true,
		Validate: func(raw string) (string, bool) {
			return raw, raw == "1" || raw == "2" || raw == "3"
		},
		Fallback: "1",
	})
	if err != nil {
		return jobs.FilterCriteria{}, false, err
	}

	var c jobs.FilterCriteria
	switch category {
	case ivr.CancelDigit:
		return jobs.FilterCriteria{}, true, nil

	case "1":
		area, err := call.Collect(ctx, ivr.CollectSpec{
			Slot:        "subscribe.area",
			Prompt:      jobs.AreaTable.Prompt(),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("הקשה לא חוקית")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   1,
			Validate:    jobs.ChoiceValidator(jobs.AreaTable),
		})
		if err != nil {
			return jobs.FilterCriteria{}, false, err
		}
		c.Area = area

	case "2":
		raw, err := call.Collect(ctx, ivr.CollectSpec{
			Slot:        "subscribe.minsalary",
			Prompt:      ivr.Prompt(ivr.Text("מהו השכר השעתי המינימלי בשקלים")),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("סכום לא חוקי")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   3,
			Validate:    parsePositive,
			Fallback:    "0",
		})
		if err != nil {
			return jobs.FilterCriteria{}, false, err
		}
		if n, _ := strconv.Atoi(raw); n > 0 {
			c.PaymentKind = jobs.PaymentHourly
			c.MinSalary = &n
		}

	case "3":
		raw, err := call.Collect(ctx, ivr.CollectSpec{
			Slot:        "subscribe.minage",
			Prompt:      ivr.Prompt(ivr.Text("מהו הגיל המינימלי")),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("גיל לא חוקי")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   2,
			Validate:    parsePositive,
			Fallback:    "0",
		})
		if err != nil {
			return jobs.FilterCriteria{}, false, err
		}
		if n, _ := strconv.Atoi(raw); n > 0 {
			c.MinAge = &n
		}
	}
	return c, false, nil
}

// nightModeQuestion asks whether night delivery is allowed. The cancel digit
// aborts the whole enrollment draft.
func (mg *Manager) nightModeQuestion(ctx context.Context, call *ivr.Call) (bool, bool, error) {
	res, err := call.Transport.Read(ctx,
		ivr.Prompt(ivr.Text("לקבלת עדכונים גם בשעות הלילה הקישו 1, לשעות היום בלבד הקישו 2, לביטול הקישו כוכבית")),
		ivr.ReadRequest{Slot: "subscribe.night", Mode: ivr.ReadDigits, MaxDigits: 1, AllowCancel: true},
	)
	if err != nil {
		return false, false, err
	}
	if res.Ended() {
		return false, false, ivr.ErrCallEnded
	}
	if res.Cancelled() {
		return false, true, nil
	}
	return res.Value == "1", false, nil
}

// create persists the record and hands the call to the provider's
// registration flow so the delivery list gains the caller.
func (mg *Manager) create(ctx context.Context, call *ivr.Call, r Record) error {
	step := call.Session.IncAttempts("subscribe.create")
	key := fmt.Sprintf("subscribe:%s:%d", call.Session.ID, step)
	owned := true
	if mg.ClaimAttempt != nil {
		var err error
		owned, err = mg.ClaimAttempt(ctx, key)
		if err != nil {
			mg.Log.Warn("subscription idempotency claim failed", "key", key, "error", err)
			owned = true
		} else if !owned {
			mg.Log.Warn("duplicate subscription attempt suppressed", "key", key)
		}
	}

	if owned {
		id, err := mg.Store.Create(ctx, r)
		if err != nil {
			mg.Log.Error("subscription save failed", "phone", r.Phone, "error", err)
			return call.Transport.Announce(ctx, ivr.Prompt(
				ivr.File(audioSubError),
				ivr.Text("אירעה שגיאה בשמירת ההרשמה, אנא נסו שוב מאוחר יותר"),
			))
		}
		mg.Log.Info("subscription created", "id", id, "phone", r.Phone,
			"has_filters", r.HasFilters, "night_mode", r.NightMode)
	}

	if err := call.Transport.Announce(ctx, ivr.Prompt(
		ivr.File(audioSubSaved),
		ivr.Text("ההרשמה נשמרה, כעת תועברו להשלמת הרישום"),
	)); err != nil {
		return err
	}
	if err := call.Transport.Transfer(ctx, mg.RegistrationExt); err != nil {
		return err
	}
	return ivr.ErrCallEnded
}

// Unsubscribe menu choices.
const (
	unsubCancel     = "1"
	unsubPauseLong  = "2"
	unsubPauseShort = "3"
	unsubReturn     = "4"
)

// UnsubscribeHandler offers permanent cancellation or a temporary pause of
// the caller's active record.
func (mg *Manager) UnsubscribeHandler() ivr.Handler {
	return func(ctx context.Context, call *ivr.Call) error {
		rec, err := mg.Store.FindActive(ctx, call.Session.Caller)
		if err != nil {
			return err
		}
		if rec == nil {
			return call.Transport.Announce(ctx, ivr.Prompt(
				ivr.Text("לא נמצאה הרשמה פעילה עבור מספר זה"),
			))
		}

		choice, err := call.Collect(ctx, ivr.CollectSpec{
			Slot: "unsubscribe.choice",
			Prompt: ivr.Prompt(
				ivr.File(audioUnsubMenu),
				ivr.Text("להסרה לצמיתות הקישו 1, להשהיה לשלושים יום הקישו 2, להשהיה לשבוע הקישו 3, לחזרה הקישו 4"),
			),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidChoice), ivr.Text("הקשה לא חוקית")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   1,
			AllowCancel: true,
			Validate: func(raw string) (string, bool) {
				switch raw {
				case unsubCancel, unsubPauseLong, unsubPauseShort, unsubReturn:
					return raw, true
				}
				return "", false
			},
			Fallback: unsubReturn,
		})
		if err != nil {
			return err
		}

		switch choice {
		case unsubCancel:
			if err := mg.Store.Cancel(ctx, rec.ID, "caller request"); err != nil {
				return mg.updateFailed(ctx, call, rec.ID, err)
			}
			mg.Log.Info("subscription cancelled", "id", rec.ID, "phone", rec.Phone)
			return call.Transport.Announce(ctx, ivr.Prompt(ivr.Text("ההרשמה הוסרה לצמיתות")))

		case unsubPauseLong:
			return mg.pause(ctx, call, rec, PauseLong, "ההרשמה הושהתה לשלושים יום")

		case unsubPauseShort:
			return mg.pause(ctx, call, rec, PauseShort, "ההרשמה הושהתה לשבוע")

		default:
			return nil
		}
	}
}

func (mg *Manager) pause(ctx context.Context, call *ivr.Call, rec *Record, window time.Duration, done string) error {
	until := mg.now().Add(window)
	if err := mg.Store.Pause(ctx, rec.ID, until); err != nil {
		return mg.updateFailed(ctx, call, rec.ID, err)
	}
	mg.Log.Info("subscription paused", "id", rec.ID, "phone", rec.Phone, "until", until)
	return call.Transport.Announce(ctx, ivr.Prompt(ivr.Text(done)))
}

// updateFailed speaks the dedicated error prompt and returns to the menu;
// the raw error never reaches the caller.
func (mg *Manager) updateFailed(ctx context.Context, call *ivr.Call, id string, err error) error {
	mg.Log.Error("subscription update failed", "id", id, "error", err)
	return call.Transport.Announce(ctx, ivr.Prompt(
		ivr.File(audioSubError),
		ivr.Text("אירעה שגיאה, אנא נסו שוב מאוחר יותר"),
	))
}

func parsePositive(raw string) (string, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}
