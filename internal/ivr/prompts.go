package ivr

// Static audio assets for the top-level dialog. Codes reference pre-recorded
// files uploaded to the provider; text segments are synthesized.

const (
	audioWelcome     = "M101"
	audioMainMenu    = "M102"
	audioInvalid     = "M103"
	audioGoodbye     = "M104"
	audioSystemError = "M105"
)

// DefaultRouterPrompts returns the production prompt set for the main menu.
func DefaultRouterPrompts() RouterPrompts {
	return RouterPrompts{
		Welcome: Prompt(File(audioWelcome)),
		Menu: Prompt(
			File(audioMainMenu),
			Text("לחיפוש עבודה הקישו 1, לפרסום משרה הקישו 2, להרשמה לעדכונים הקישו 3, להשארת הודעה הקישו 4, להסרה או השהיה הקישו 5"),
		),
		Invalid:     Prompt(File(audioInvalid), Text("הקשה לא חוקית")),
		Goodbye:     Prompt(File(audioGoodbye)),
		SystemError: Prompt(File(audioSystemError), Text("אירעה שגיאה, אנא נסו שוב מאוחר יותר")),
	}
}
