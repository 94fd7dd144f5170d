package jobs

import (
	"sort"
	"strings"

	"jobboard-ivr/internal/ivr"
)

// Static audio assets for the jobs dialogs.
const (
	audioBrowseMenu   = "J301"
	audioNoResults    = "J302"
	audioAllSeen      = "J303"
	audioPostWelcome  = "J304"
	audioPostSaved    = "J305"
	audioPostSummary  = "J306"
	audioInvalidEntry = "J307"
)

// ChoiceTable maps DTMF digits to closed-set values with spoken labels.
// Tables are package-level and must not be mutated.
type ChoiceTable struct {
	Question string
	Options  map[string]ChoiceOption
}

type ChoiceOption struct {
	Value string
	Label string
}

// Lookup resolves a digit to its value; ok is false for digits outside the
// table.
func (t ChoiceTable) Lookup(digit string) (ChoiceOption, bool) {
	opt, ok := t.Options[digit]
	return opt, ok
}

// Prompt renders the question followed by every option in digit order.
func (t ChoiceTable) Prompt() ivr.PromptSpec {
	digits := make([]string, 0, len(t.Options))
	for d := range t.Options {
		digits = append(digits, d)
	}
	sort.Strings(digits)

	var b strings.Builder
	b.WriteString(t.Question)
	for _, d := range digits {
		b.WriteString(", ל")
		b.WriteString(t.Options[d].Label)
		b.WriteString(" הקישו ")
		b.WriteString(d)
	}
	return ivr.Prompt(ivr.Text(b.String()))
}

// AreaTable is shared with the subscription filter dialog.
var AreaTable = ChoiceTable{
	Question: "באיזה אזור מחפשים",
	Options: map[string]ChoiceOption{
		"1": {Value: "ירושלים", Label: "ירושלים"},
		"2": {Value: "בני ברק", Label: "בני ברק"},
		"3": {Value: "אשדוד", Label: "אשדוד"},
		"4": {Value: "חיפה", Label: "חיפה"},
		"5": {Value: "ביתר עילית", Label: "ביתר עילית"},
		"6": {Value: "מודיעין עילית", Label: "מודיעין עילית"},
		"7": {Value: "אלעד", Label: "אלעד"},
		"8": {Value: "צפת", Label: "צפת"},
		"9": {Value: "אחר", Label: "אזור אחר"},
	},
}

var difficultyTable = ChoiceTable{
	Question: "מהי רמת הקושי של העבודה",
	Options: map[string]ChoiceOption{
		"1": {Value: "קלה", Label: "עבודה קלה"},
		"2": {Value: "בינונית", Label: "עבודה בינונית"},
		"3": {Value: "קשה", Label: "עבודה קשה"},
	},
}

var dateKindTable = ChoiceTable{
	Question: "מתי העבודה מתקיימת",
	Options: map[string]ChoiceOption{
		"1": {Value: string(DateToday), Label: "היום"},
		"2": {Value: string(DateSpecific), Label: "תאריך מסוים"},
		"3": {Value: string(DateFlexible), Label: "תאריך גמיש"},
		"4": {Value: string(DateWeek), Label: "במהלך השבוע הקרוב"},
	},
}

var paymentKindTable = ChoiceTable{
	Question: "כיצד משולם השכר",
	Options: map[string]ChoiceOption{
		"1": {Value: string(PaymentHourly), Label: "תשלום לפי שעה"},
		"2": {Value: string(PaymentGlobal), Label: "תשלום גלובלי"},
	},
}

var suitabilityTable = ChoiceTable{
	Question: "למי מתאימה העבודה",
	Options: map[string]ChoiceOption{
		"1": {Value: string(SuitMen), Label: "גברים"},
		"2": {Value: string(SuitWomen), Label: "נשים"},
		"3": {Value: string(SuitGeneral), Label: "גברים ונשים"},
	},
}

// filterPaymentTable extends the payment table with an any-kind option for
// searches.
var filterPaymentTable = ChoiceTable{
	Question: "איזה סוג שכר מחפשים",
	Options: map[string]ChoiceOption{
		"1": {Value: string(PaymentHourly), Label: "תשלום לפי שעה"},
		"2": {Value: string(PaymentGlobal), Label: "תשלום גלובלי"},
		"3": {Value: string(PaymentAny), Label: "כל סוג שכר"},
	},
}

// ChoiceValidator adapts a table into a collector validator that normalizes
// the pressed digit into the table value. Shared with the subscription
// filter dialog.
func ChoiceValidator(t ChoiceTable) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		opt, ok := t.Lookup(raw)
		if !ok {
			return "", false
		}
		return opt.Value, true
	}
}
