package telephony

import (
	"errors"
	"fmt"
	"strings"

	"jobboard-ivr/internal/ivr"
)

// Rendering of engine actions into the provider's plaintext response format.
//
// The provider expects one `key=value` directive per line:
//
//	id_list_message=t-שלום.f-M101   play a message sequence
//	read=<sequence>=Input,<mode>,<max>   play then capture into Input
//	go_to_folder=/9                 transfer the call to a provider folder
//	go_to_folder=hangup             end the call
//
// Segment prefixes inside a sequence: t- synthesized text, f- audio file
// code, n- number readout, d- digit-group readout (phone numbers, grouped
// with pauses). Segments are dot-separated.

var ErrUnrenderable = errors.New("telephony: action has no terminal or read step")

func RenderAction(a ivr.Action) (string, error) {
	var lines []string

	switch {
	case a.Read != nil:
		mode, err := readMode(a.Read.Mode)
		if err != nil {
			return "", err
		}
		max := a.Read.MaxDigits
		if max <= 0 {
			max = 20
		}
		cancel := "no"
		if a.Read.AllowCancel {
			cancel = "yes"
		}
		lines = append(lines, fmt.Sprintf("read=%s=%s,%s,%d,%s",
			renderSequence(a.Prompts), paramInput, mode, max, cancel))

	case a.TransferTo != "":
		if len(a.Prompts) > 0 {
			lines = append(lines, "id_list_message="+renderSequence(a.Prompts))
		}
		lines = append(lines, "go_to_folder="+a.TransferTo)

	case a.Hangup:
		if len(a.Prompts) > 0 {
			lines = append(lines, "id_list_message="+renderSequence(a.Prompts))
		}
		lines = append(lines, "go_to_folder=hangup")

	default:
		return "", ErrUnrenderable
	}

	return strings.Join(lines, "\n"), nil
}

func renderSequence(p ivr.PromptSpec) string {
	if len(p) == 0 {
		return "t-"
	}
	parts := make([]string, 0, len(p))
	for _, seg := range p {
		parts = append(parts, segmentPrefix(seg.Kind)+escapeSegment(seg.Value))
	}
	return strings.Join(parts, ".")
}

func segmentPrefix(k ivr.SegmentKind) string {
	switch k {
	case ivr.SegmentFile:
		return "f-"
	case ivr.SegmentNumber:
		return "n-"
	case ivr.SegmentDigits:
		return "d-"
	default:
		return "t-"
	}
}

func escapeSegment(v string) string {
	// Dots and newlines are structural in the wire format.
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, ".", ",")
	return v
}

func readMode(m ivr.ReadMode) (string, error) {
	switch m {
	case ivr.ReadDigits:
		return "tap", nil
	case ivr.ReadRecord:
		return "record", nil
	case ivr.ReadSpeech:
		return "stt", nil
	default:
		return "", fmt.Errorf("telephony: unknown read mode %q", m)
	}
}
