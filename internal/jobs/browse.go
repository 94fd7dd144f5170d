package jobs

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"jobboard-ivr/internal/ivr"
)

// ViewerGate authorizes access to a posting's contact details.
type ViewerGate interface {
	AuthorizeViewer(ctx context.Context, call *ivr.Call, jobID string, isOwner bool) (bool, error)
}

// Browse walks a caller through filter selection and one-at-a-time posting
// presentation.
type Browse struct {
	Query *QueryEngine
	Store Store
	Gate  ViewerGate
	Log   *slog.Logger
}

// Per-item navigation choices.
const (
	navDetails    = "1"
	navNext       = "2"
	navFilterMenu = "3"
	navMainMenu   = "4"
)

func (b *Browse) Handler() ivr.Handler {
	return func(ctx context.Context, call *ivr.Call) error {
		for {
			criteria, toMain, err := b.collectCriteria(ctx, call)
			if err != nil || toMain {
				return err
			}

			results, err := b.Query.Search(ctx, criteria)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				if err := call.Transport.Announce(ctx, ivr.Prompt(
					ivr.File(audioNoResults),
					ivr.Text("לא נמצאו משרות מתאימות"),
				)); err != nil {
					return err
				}
				return nil
			}

			again, err := b.present(ctx, call, results)
			if err != nil || !again {
				return err
			}
			// Caller asked for the filter menu again.
		}
	}
}

// collectCriteria runs the filter menu. toMain reports that the caller
// cancelled out to the main menu.
func (b *Browse) collectCriteria(ctx context.Context, call *ivr.Call) (FilterCriteria, bool, error) {
	choice, err := call.Collect(ctx, ivr.CollectSpec{
		Slot: "browse.filter",
		Prompt: ivr.Prompt(
			ivr.File(audioBrowseMenu),
			ivr.Text("לחיפוש בכל המשרות הקישו 1, לסינון לפי אזור הקישו 2, לפי סוג שכר הקישו 3, לפי גיל הקישו 4"),
		),
		ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("הקשה לא חוקית")),
		Mode:        ivr.ReadDigits,
		MaxDigits:   1,
		AllowCancel: true,
		Validate: func(raw string) (string, bool) {
			switch raw {
			case "1", "2", "3", "4":
				return raw, true
			}
			return "", false
		},
		Fallback: "1",
	})
	if err != nil {
		return FilterCriteria{}, false, err
	}
	if choice == ivr.CancelDigit {
		return FilterCriteria{}, true, nil
	}

	var c FilterCriteria
	switch choice {
	case "2":
		area, err := call.Collect(ctx, ivr.CollectSpec{
			Slot:        "browse.area",
			Prompt:      AreaTable.Prompt(),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("הקשה לא חוקית")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   1,
			Validate:    ChoiceValidator(AreaTable),
		})
		if err != nil {
			return FilterCriteria{}, false, err
		}
		c.Area = area
	case "3":
		kind, err := call.Collect(ctx, ivr.CollectSpec{
			Slot:        "browse.payment",
			Prompt:      filterPaymentTable.Prompt(),
			ErrorPrompt: ivr.Prompt(ivr.File(audioInvalidEntry), ivr.Text("הקשה לא חוקית")),
			Mode:        ivr.ReadDigits,
			MaxDigits:   1,
			Validate:    ChoiceValidator(filterPaymentTable),
			Fallback:    string(PaymentAny),
		})
		if err != nil {
			return FilterCriteria{}, false, err
		}
		c.PaymentKind = PaymentKind(kind)
		if c.PaymentKind == PaymentHourly {
			c.MinSalary, err = b.optionalNumber(ctx, call, "browse.minsalary",
				"מהו השכר השעתי המינימלי, או המתינו לדילוג", 3)
			if err != nil {
				return FilterCriteria{}, false, err
			}
			c.MaxSalary, err = b.optionalNumber(ctx, call, "browse.maxsalary",
				"מהו השכר השעתי המקסימלי, או המתינו לדילוג", 3)
			if err != nil {
				return FilterCriteria{}, false, err
			}
		}
	case "4":
		var err error
		c.MinAge, err = b.optionalNumber(ctx, call, "browse.minage",
			"מהו הגיל המינימלי, או המתינו לדילוג", 2)
		if err != nil {
			return FilterCriteria{}, false, err
		}
		c.MaxAge, err = b.optionalNumber(ctx, call, "browse.maxage",
			"מהו הגיל המקסימלי, או המתינו לדילוג", 2)
		if err != nil {
			return FilterCriteria{}, false, err
		}
	}
	return c, false, nil
}

// optionalNumber collects a numeric filter bound with a single attempt; an
// empty or unparsable entry means "no constraint".
func (b *Browse) optionalNumber(ctx context.Context, call *ivr.Call, slot, question string, maxDigits int) (*int, error) {
	v, err := call.Collect(ctx, ivr.CollectSpec{
		Slot:        slot,
		Prompt:      ivr.Prompt(ivr.Text(question)),
		Mode:        ivr.ReadDigits,
		MaxDigits:   maxDigits,
		MaxAttempts: 1,
		Validate:    parseNumber,
	})
	if err != nil {
		return nil, err
	}
	if v == "" {
		return nil, nil
	}
	n, _ := strconv.Atoi(v)
	return &n, nil
}

func parseNumber(raw string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// present walks the result window one posting at a time. again reports that
// the caller asked for the filter menu; false with nil error returns to the
// main menu.
func (b *Browse) present(ctx context.Context, call *ivr.Call, results []JobRecord) (bool, error) {
	if err := call.Transport.Announce(ctx, ivr.Prompt(
		ivr.Text("נמצאו"), ivr.Number(len(results)), ivr.Text("משרות"),
	)); err != nil {
		return false, err
	}

items:
	for i := range results {
		j := &results[i]
		viewed, contacted := false, false
		invalid := 0

		for {
			res, err := call.Transport.Read(ctx, b.summaryPrompt(j, i+1, len(results)), ivr.ReadRequest{
				Slot:        "browse.nav",
				Mode:        ivr.ReadDigits,
				MaxDigits:   1,
				AllowCancel: true,
			})
			if err != nil {
				return false, err
			}
			if res.Ended() {
				return false, ivr.ErrCallEnded
			}

			switch res.Value {
			case navDetails:
				if !viewed {
					b.bumpStat(ctx, j.ID, StatView)
					viewed = true
				}
				revealed, err := b.details(ctx, call, j, !contacted)
				if err != nil {
					return false, err
				}
				if revealed {
					contacted = true
				}
			case navNext:
				continue items
			case navFilterMenu:
				return true, nil
			case navMainMenu, ivr.CancelDigit:
				return false, nil
			default:
				invalid++
				if invalid >= ivr.DefaultMaxAttempts {
					return false, nil
				}
				if err := call.Transport.Announce(ctx, ivr.Prompt(
					ivr.File(audioInvalidEntry), ivr.Text("הקשה לא חוקית"),
				)); err != nil {
					return false, err
				}
			}
		}
	}

	if err := call.Transport.Announce(ctx, ivr.Prompt(
		ivr.File(audioAllSeen),
		ivr.Text("אלו כל המשרות שנמצאו"),
	)); err != nil {
		return false, err
	}
	return false, nil
}

// details plays the full posting and, when the viewer gate allows it, the
// contact phone. revealed reports that contact details were spoken.
func (b *Browse) details(ctx context.Context, call *ivr.Call, j *JobRecord, firstContact bool) (bool, error) {
	if err := call.Transport.Announce(ctx, b.detailsPrompt(j)); err != nil {
		return false, err
	}

	isOwner := j.PosterPhone != "" && j.PosterPhone == call.Session.Caller
	ok, err := b.Gate.AuthorizeViewer(ctx, call, j.ID, isOwner)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := call.Transport.Announce(ctx, ivr.Prompt(
		ivr.Text("מספר הטלפון ליצירת קשר"),
		ivr.DigitGroup(j.ContactPhone),
	)); err != nil {
		return false, err
	}
	if firstContact {
		b.bumpStat(ctx, j.ID, StatContact)
	}
	return true, nil
}

// bumpStat is best-effort: a lost increment never aborts presentation.
func (b *Browse) bumpStat(ctx context.Context, id string, stat Stat) {
	if err := b.Store.IncrementStat(ctx, id, stat); err != nil {
		b.Log.Warn("job stat increment failed", "job_id", id, "stat", string(stat), "error", err)
	}
}

func (b *Browse) summaryPrompt(j *JobRecord, pos, total int) ivr.PromptSpec {
	segs := ivr.Prompt(
		ivr.Text("משרה מספר"), ivr.Number(pos), ivr.Text("מתוך"), ivr.Number(total),
		ivr.Text(j.Title),
		ivr.Text("באזור "+j.Area),
	)
	segs = append(segs, paymentSegments(j)...)
	segs = append(segs,
		ivr.Text("לפרטים מלאים הקישו 1, למשרה הבאה הקישו 2, לשינוי הסינון הקישו 3, לתפריט הראשי הקישו 4"))
	return segs
}

func (b *Browse) detailsPrompt(j *JobRecord) ivr.PromptSpec {
	segs := ivr.Prompt(
		ivr.Text(j.Title),
		ivr.Text("באזור "+j.Area),
		ivr.Text("רמת קושי "+j.Difficulty),
	)
	segs = append(segs, paymentSegments(j)...)
	segs = append(segs,
		ivr.Text("גיל מינימלי"), ivr.Number(j.MinAge),
		ivr.Text(suitabilityLabel(j.Suitability)),
	)
	return segs
}

func paymentSegments(j *JobRecord) ivr.PromptSpec {
	switch j.PaymentKind {
	case PaymentHourly:
		if j.HourlyRate != nil {
			return ivr.Prompt(ivr.Text("שכר לשעה"), ivr.Number(*j.HourlyRate), ivr.Text("שקלים"))
		}
		return ivr.Prompt(ivr.Text("שכר לפי שעה"))
	case PaymentGlobal:
		if j.GlobalPayment != nil {
			return ivr.Prompt(ivr.Text("שכר גלובלי"), ivr.Number(*j.GlobalPayment), ivr.Text("שקלים"))
		}
		return ivr.Prompt(ivr.Text("שכר גלובלי"))
	}
	return nil
}

func suitabilityLabel(s Suitability) string {
	switch s {
	case SuitMen:
		return "מתאים לגברים"
	case SuitWomen:
		return "מתאים לנשים"
	default:
		return "מתאים לגברים ולנשים"
	}
}
