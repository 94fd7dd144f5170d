package ivr

import "strconv"

// SegmentKind enumerates the prompt segment kinds the provider can play.
type SegmentKind string

const (
	// SegmentFile references a pre-recorded audio asset by code.
	SegmentFile SegmentKind = "file"
	// SegmentNumber is a literal number read out by the provider.
	SegmentNumber SegmentKind = "number"
	// SegmentText is literal text for provider-side synthesis.
	SegmentText SegmentKind = "text"
	// SegmentDigits is a digit string read out group by group, with pauses.
	// Used for phone numbers.
	SegmentDigits SegmentKind = "digits"
)

type Segment struct {
	Kind  SegmentKind
	Value string
}

// PromptSpec is an ordered, immutable sequence of segments played before a
// capture. Construct a fresh one per step; never mutate a shared instance.
type PromptSpec []Segment

func File(code string) Segment    { return Segment{Kind: SegmentFile, Value: code} }
func Number(n int) Segment        { return Segment{Kind: SegmentNumber, Value: strconv.Itoa(n)} }
func Text(s string) Segment       { return Segment{Kind: SegmentText, Value: s} }
func DigitGroup(s string) Segment { return Segment{Kind: SegmentDigits, Value: s} }

// Prompt builds a PromptSpec from segments.
func Prompt(segs ...Segment) PromptSpec { return PromptSpec(segs) }

// Join concatenates prompt specs into a new spec.
func Join(specs ...PromptSpec) PromptSpec {
	var out PromptSpec
	for _, s := range specs {
		out = append(out, s...)
	}
	return out
}
