package jobs

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"jobboard-ivr/internal/ivr"
	"jobboard-ivr/pkg/metrics"
)

// PosterGate authorizes entry to the posting wizard.
type PosterGate interface {
	AuthorizePoster(ctx context.Context, call *ivr.Call) (bool, error)
}

// Composer is the multi-step posting wizard: gate, collect every field in a
// fixed order, speak a summary, then persist atomically on confirmation.
type Composer struct {
	Store Store
	Gate  PosterGate
	Log   *slog.Logger
	M     *metrics.Metrics

	clock func() time.Time
}

func NewComposer(store Store, gate PosterGate, log *slog.Logger, m *metrics.Metrics) *Composer {
	return &Composer{Store: store, Gate: gate, Log: log, M: m, clock: time.Now}
}

// SetClock injects a deterministic clock for tests.
func (cp *Composer) SetClock(clock func() time.Time) { cp.clock = clock }

// Unparsable entries fall back to these documented defaults rather than
// failing the wizard.
const (
	fallbackTitle       = "משרה חדשה"
	defaultMinAge       = 16
	defaultHourlyAmount = 40
	defaultGlobalAmount = 200
	maxWizardRounds     = 3
)

func (cp *Composer) Handler() ivr.Handler {
	return func(ctx context.Context, call *ivr.Call) error {
		allowed, err := cp.Gate.AuthorizePoster(ctx, call)
		if err != nil {
			return err
		}
		if !allowed {
			return nil
		}

		if err := call.Transport.Announce(ctx, ivr.Prompt(
			ivr.File(audioPostWelcome),
			ivr.Text("פרסום משרה חדשה"),
		)); err != nil {
			return err
		}

		// "Edit" at the summary discards the draft and restarts from step
		// one, bounded so a caller cannot loop forever.
		for round := 1; round <= maxWizardRounds; round++ {
			draft, err := cp.collectDraft(ctx, call)
			if err != nil {
				return err
			}

			confirmed, err := cp.confirmSummary(ctx, call, draft)
			if err != nil {
				return err
			}
			if !confirmed {
				continue
			}
			return cp.save(ctx, call, draft)
		}

		return call.Transport.Announce(ctx, ivr.Prompt(
			ivr.Text("המשרה לא נשמרה, ניתן לנסות שוב מהתפריט הראשי"),
		))
	}
}

func (cp *Composer) collectDraft(ctx context.Context, call *ivr.Call) (Draft, error) {
	var d Draft
	d.PosterPhone = call.Session.Caller

	title, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        "post.title",
		Prompt:      ivr.Prompt(ivr.Text("הקליטו את שם המשרה לאחר הצליל, ולסיום הקישו סולמית")),
		ErrorPrompt: ivr.Prompt(ivr.Text("ההקלטה לא נקלטה, אנא נסו שוב")),
		Mode:        ivr.ReadRecord,
		Fallback:    fallbackTitle,
		Confirm: &ivr.ConfirmSpec{
			Playback: func(value string) ivr.PromptSpec {
				return ivr.Prompt(ivr.Text("הוקלט"), ivr.File(value))
			},
			Question: ivr.Prompt(ivr.Text("לאישור הקישו 1, להקלטה מחדש הקישו 2")),
		},
	})
	if err != nil {
		return Draft{}, err
	}
	d.Title = title

	d.Area, err = cp.choice(ctx, call, "post.area", AreaTable, "")
	if err != nil {
		return Draft{}, err
	}
	d.Difficulty, err = cp.choice(ctx, call, "post.difficulty", difficultyTable, "")
	if err != nil {
		return Draft{}, err
	}

	dateKind, err := cp.choice(ctx, call, "post.datekind", dateKindTable, string(DateFlexible))
	if err != nil {
		return Draft{}, err
	}
	d.DateKind = DateKind(dateKind)
	if err := cp.collectDate(ctx, call, &d); err != nil {
		return Draft{}, err
	}

	if err := cp.collectPayment(ctx, call, &d); err != nil {
		return Draft{}, err
	}

	suit, err := cp.choice(ctx, call, "post.suitability", suitabilityTable, string(SuitGeneral))
	if err != nil {
		return Draft{}, err
	}
	d.Suitability = Suitability(suit)

	age, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        "post.minage",
		Prompt:      ivr.Prompt(ivr.Text("מהו הגיל המינימלי הנדרש")),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("גיל לא חוקי")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   2,
		Validate:    parseNumber,
		Fallback:    strconv.Itoa(defaultMinAge),
	})
	if err != nil {
		return Draft{}, err
	}
	d.MinAge, _ = strconv.Atoi(age)

	if err := cp.collectContactPhone(ctx, call, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (cp *Composer) choice(ctx context.Context, call *ivr.Call, slot string, t ChoiceTable, fallback string) (string, error) {
	if fallback == "" {
		// Closed-choice fields without a natural default fall back to the
		// first option.
		fallback = t.Options["1"].Value
	}
	return call.Collect(ctx, ivr.CollectSpec{
		Slot:        slot,
		Prompt:      t.Prompt(),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("הקשה לא חוקית")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   1,
		Validate:    ChoiceValidator(t),
		Fallback:    fallback,
	})
}

// collectDate fills DateValue for the kinds that carry a reference date.
// Today and coming-week anchor on the current day; an unparsable specific
// date falls back to today.
func (cp *Composer) collectDate(ctx context.Context, call *ivr.Call, d *Draft) error {
	today := startOfDay(cp.clock())
	switch d.DateKind {
	case DateToday, DateWeek:
		d.DateValue = &today
	case DateSpecific:
		raw, err := call.Collect(ctx, ivr.CollectSpec{
			Slot:        "post.date",
			Prompt:      ivr.Prompt(ivr.Text("הקישו את התאריך, יום חודש ושנה, שמונה ספרות")),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("תאריך לא חוקי")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   8,
			Validate: func(raw string) (string, bool) {
				if _, err := time.Parse("02012006", raw); err != nil {
					return "", false
				}
				return raw, true
			},
		})
		if err != nil {
			return err
		}
		if t, err := time.Parse("02012006", raw); err == nil {
			t = t.UTC()
			d.DateValue = &t
		} else {
			d.DateValue = &today
		}
	}
	return nil
}

func (cp *Composer) collectPayment(ctx context.Context, call *ivr.Call, d *Draft) error {
	kind, err := cp.choice(ctx, call, "post.paykind", paymentKindTable, string(PaymentHourly))
	if err != nil {
		return err
	}
	d.PaymentKind = PaymentKind(kind)

	question := "מהו השכר לשעה בשקלים"
	fallback := defaultHourlyAmount
	if d.PaymentKind == PaymentGlobal {
		question = "מהו השכר הגלובלי בשקלים"
		fallback = defaultGlobalAmount
	}

	raw, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        "post.amount",
		Prompt:      ivr.Prompt(ivr.Text(question)),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("סכום לא חוקי")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   5,
		Validate:    parseNumber,
		Fallback:    strconv.Itoa(fallback),
	})
	if err != nil {
		return err
	}
	amount, _ := strconv.Atoi(raw)
	if d.PaymentKind == PaymentGlobal {
		d.GlobalPayment = &amount
	} else {
		d.HourlyRate = &amount
	}
	return nil
}

func (cp *Composer) collectContactPhone(ctx context.Context, call *ivr.Call, d *Draft) error {
	choice, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:      "post.phonechoice",
		Prompt:    ivr.Prompt(ivr.Text("לשימוש במספר ממנו אתם מתקשרים הקישו 1, למספר אחר הקישו 2")),
		Mode:      ivr.ReadDigits,
		MaxDigits: 1,
		Validate: func(raw string) (string, bool) {
			return raw, raw == "1" || raw == "2"
		},
		Fallback: "1",
	})
	if err != nil {
		return err
	}
	if choice == "1" {
		d.ContactPhone = call.Session.Caller
		return nil
	}

	custom, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        "post.phone",
		Prompt:      ivr.Prompt(ivr.Text("הקישו את מספר הטלפון ליצירת קשר")),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("מספר לא חוקי")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   10,
		Validate: func(raw string) (string, bool) {
			return raw, len(raw) >= 7
		},
		// A blank custom number falls back to the caller ID.
		Fallback: call.Session.Caller,
	})
	if err != nil {
		return err
	}
	d.ContactPhone = custom
	return nil
}

func (cp *Composer) confirmSummary(ctx context.Context, call *ivr.Call, d Draft) (bool, error) {
	summary := ivr.Prompt(ivr.File(audioPostSummary), ivr.Text("פרטי המשרה"))
	summary = append(summary, ivr.Text(d.Title), ivr.Text("באזור "+d.Area), ivr.Text("רמת קושי "+d.Difficulty))
	switch d.PaymentKind {
	case PaymentHourly:
		summary = append(summary, ivr.Text("שכר לשעה"), ivr.Number(*d.HourlyRate), ivr.Text("שקלים"))
	case PaymentGlobal:
		summary = append(summary, ivr.Text("שכר גלובלי"), ivr.Number(*d.GlobalPayment), ivr.Text("שקלים"))
	}
	summary = append(summary,
		ivr.Text(suitabilityLabel(d.Suitability)),
		ivr.Text("גיל מינימלי"), ivr.Number(d.MinAge),
		ivr.Text("טלפון ליצירת קשר"), ivr.DigitGroup(d.ContactPhone),
	)

	res, err := call.Transport.Read(ctx, ivr.Join(summary, ivr.Prompt(
		ivr.Text("לאישור ופרסום הקישו 1, לעריכה מחדש הקישו 2"),
	)), ivr.ReadRequest{
		Slot:      "post.confirm",
		Mode:      ivr.ReadDigits,
		MaxDigits: 1,
	})
	if err != nil {
		return false, err
	}
	if res.Ended() {
		return false, ivr.ErrCallEnded
	}
	return res.Value == "1", nil
}

// save persists the confirmed draft. A failed save speaks a dedicated error
// prompt and returns the caller to the main menu.
func (cp *Composer) save(ctx context.Context, call *ivr.Call, d Draft) error {
	id, serial, err := cp.Store.CreateJob(ctx, d)
	if err != nil {
		cp.Log.Error("job save failed", "caller", call.Session.Caller, "error", err)
		return call.Transport.Announce(ctx, ivr.Prompt(
			ivr.Text("אירעה שגיאה בשמירת המשרה, אנא נסו שוב מאוחר יותר"),
		))
	}

	cp.M.IncJobsPosted()
	cp.Log.Info("job posted", "job_id", id, "serial", serial, "caller", call.Session.Caller)
	return call.Transport.Announce(ctx, ivr.Prompt(
		ivr.File(audioPostSaved),
		ivr.Text("המשרה פורסמה בהצלחה, מספר המשרה"),
		ivr.Number(int(serial)),
	))
}
