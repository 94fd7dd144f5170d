package telephony

import (
	"strings"
	"testing"

	"jobboard-ivr/internal/ivr"
)

func TestRenderAction_Read(t *testing.T) {
	body, err := RenderAction(ivr.Action{
		Prompts: ivr.Prompt(ivr.File("M102"), ivr.Text("הקישו ספרה")),
		Read:    &ivr.ReadRequest{Slot: "menu.choice", Mode: ivr.ReadDigits, MaxDigits: 1},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(body, "read=f-M102.t-הקישו ספרה=Input,tap,1,no") {
		t.Fatalf("unexpected read line: %q", body)
	}
	if strings.Contains(body, "menu.choice") {
		t.Fatalf("dialog slot names must not leak onto the wire")
	}
}

func TestRenderAction_RecordModeAndCancel(t *testing.T) {
	body, err := RenderAction(ivr.Action{
		Prompts: ivr.Prompt(ivr.Text("דברו")),
		Read:    &ivr.ReadRequest{Slot: "title", Mode: ivr.ReadRecord, AllowCancel: true},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, ",record,") || !strings.HasSuffix(body, ",yes") {
		t.Fatalf("unexpected record line: %q", body)
	}
}

func TestRenderAction_TransferWithMessage(t *testing.T) {
	body, err := RenderAction(ivr.Action{
		Prompts:    ivr.Prompt(ivr.Text("מעבירים אתכם")),
		TransferTo: "/9",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "id_list_message=t-מעבירים אתכם\ngo_to_folder=/9"
	if body != want {
		t.Fatalf("got %q want %q", body, want)
	}
}

func TestRenderAction_Hangup(t *testing.T) {
	body, err := RenderAction(ivr.Action{Hangup: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if body != "go_to_folder=hangup" {
		t.Fatalf("got %q", body)
	}
}

func TestRenderAction_DigitGroupSegment(t *testing.T) {
	body, err := RenderAction(ivr.Action{
		Prompts: ivr.Prompt(ivr.DigitGroup("0501234567")),
		Hangup:  true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "d-0501234567") {
		t.Fatalf("expected digit-group segment, got %q", body)
	}
}

func TestRenderAction_EmptyActionErrors(t *testing.T) {
	if _, err := RenderAction(ivr.Action{}); err == nil {
		t.Fatalf("expected error for empty action")
	}
}
