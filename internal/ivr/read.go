package ivr

// ReadMode selects how caller input is captured for one read.
type ReadMode string

const (
	// ReadDigits captures touch-tone digits.
	ReadDigits ReadMode = "digits"
	// ReadRecord captures a voice recording and yields a recording reference.
	ReadRecord ReadMode = "record"
	// ReadSpeech captures speech-to-text.
	ReadSpeech ReadMode = "speech"
)

// CancelDigit is the leading digit that, when honored, aborts the current
// read. It is returned verbatim so flows can special-case it (typically
// "return to main menu").
const CancelDigit = "*"

// ReadRequest describes one suspension point: how input is captured and
// which session slot the value belongs to.
type ReadRequest struct {
	// Slot names the result; also used as the per-field attempt counter key.
	Slot string

	Mode ReadMode

	// MaxDigits bounds digit capture; zero means provider default.
	MaxDigits int

	// AllowCancel honors a leading CancelDigit for this read only.
	AllowCancel bool
}

type ReadStatus string

const (
	ReadOK ReadStatus = "ok"
	// ReadTimeout means the session inactivity window elapsed with no input.
	ReadTimeout ReadStatus = "timeout"
	// ReadHangup means the provider tore the call down mid-read.
	ReadHangup ReadStatus = "hangup"
)

type ReadResult struct {
	Status ReadStatus
	Value  string

	// Slot echoes the read the value answers. Filled by the engine bridge;
	// fakes may leave it empty.
	Slot string
}

// Ended reports whether the call is gone and the flow must unwind.
func (r ReadResult) Ended() bool {
	return r.Status == ReadTimeout || r.Status == ReadHangup
}

// Cancelled reports whether the caller tapped the cancel digit.
func (r ReadResult) Cancelled() bool {
	return r.Status == ReadOK && r.Value == CancelDigit
}
