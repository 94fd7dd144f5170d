package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"jobboard-ivr/internal/ivr"
)

type stubGate struct {
	allow bool
	err   error
	calls int
}

func (g *stubGate) AuthorizePoster(context.Context, *ivr.Call) (bool, error) {
	g.calls++
	return g.allow, g.err
}

func newComposer(store Store, gate PosterGate) *Composer {
	return NewComposer(store, gate, slog.Default(), nil)
}

// Full happy path: recorded title, closed-choice fields, hourly payment at
// 60, suitability for everyone, age 18, contact phone reused from caller ID.
func TestComposer_FullWizardPersistsJob(t *testing.T) {
	store := NewMemoryStore()
	ft := &fakeTransport{script: digits(
		"ניקיון דירה", // title recording
		"1",           // confirm title
		"3",           // area -> אשדוד
		"2",           // difficulty -> בינונית
		"3",           // date kind -> flexible
		"1",           // payment kind -> hourly
		"60",          // hourly amount
		"3",           // suitability -> everyone
		"18",          // minimum age
		"1",           // reuse caller ID
		"1",           // summary confirm
	)}
	call := newTestCall(t, ft)

	if err := newComposer(store, &stubGate{allow: true}).Handler()(context.Background(), call); err != nil {
		t.Fatalf("handler: %v", err)
	}

	jobs, err := store.RecentPublished(context.Background(), 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected one persisted job, got %d (err=%v)", len(jobs), err)
	}
	j := jobs[0]
	if j.Title != "ניקיון דירה" {
		t.Fatalf("title = %q", j.Title)
	}
	if j.Area != "אשדוד" || j.Difficulty != "בינונית" {
		t.Fatalf("area/difficulty = %q/%q", j.Area, j.Difficulty)
	}
	if j.DateKind != DateFlexible || j.DateValue != nil {
		t.Fatalf("date = %s %v", j.DateKind, j.DateValue)
	}
	if j.PaymentKind != PaymentHourly || j.HourlyRate == nil || *j.HourlyRate != 60 {
		t.Fatalf("payment = %s %v", j.PaymentKind, j.HourlyRate)
	}
	if j.GlobalPayment != nil {
		t.Fatalf("global payment should be unset, got %v", j.GlobalPayment)
	}
	if j.Suitability != SuitGeneral || j.MinAge != 18 {
		t.Fatalf("suitability/age = %s/%d", j.Suitability, j.MinAge)
	}
	if j.ContactPhone != call.Session.Caller || j.PosterPhone != call.Session.Caller {
		t.Fatalf("phones = %q/%q", j.ContactPhone, j.PosterPhone)
	}
	if !j.IsPosted || j.Serial != 1 {
		t.Fatalf("posted/serial = %v/%d", j.IsPosted, j.Serial)
	}
	if j.Views != 0 || j.ContactViews != 0 || j.Applications != 0 {
		t.Fatalf("counters must start at zero, got %d/%d/%d", j.Views, j.ContactViews, j.Applications)
	}
}

// Three empty recordings exhaust the title attempts and fall back to the
// generic title; the wizard continues rather than failing the call.
func TestComposer_TitleFallbackAfterEmptyRecordings(t *testing.T) {
	store := NewMemoryStore()
	ft := &fakeTransport{script: digits(
		"", "", "", // three empty title recordings
		"1",  // area
		"1",  // difficulty
		"3",  // date kind
		"1",  // payment kind
		"50", // amount
		"1",  // suitability
		"16", // age
		"1",  // reuse caller ID
		"1",  // summary confirm
	)}

	if err := newComposer(store, &stubGate{allow: true}).Handler()(context.Background(), newTestCall(t, ft)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	jobs, _ := store.RecentPublished(context.Background(), 10)
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}
	if jobs[0].Title != fallbackTitle {
		t.Fatalf("expected fallback title %q, got %q", fallbackTitle, jobs[0].Title)
	}
}

func TestComposer_GateDeniedSkipsWizard(t *testing.T) {
	store := NewMemoryStore()
	ft := &fakeTransport{}
	gate := &stubGate{allow: false}

	if err := newComposer(store, gate).Handler()(context.Background(), newTestCall(t, ft)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if gate.calls != 1 {
		t.Fatalf("expected one gate call, got %d", gate.calls)
	}
	if ft.reads != 0 {
		t.Fatalf("expected no reads after denial, got %d", ft.reads)
	}
	if jobs, _ := store.RecentPublished(context.Background(), 10); len(jobs) != 0 {
		t.Fatalf("no job should be saved, got %d", len(jobs))
	}
}

// "Edit" at the summary discards the draft and restarts from the title step.
func TestComposer_EditRestartsFromStepOne(t *testing.T) {
	store := NewMemoryStore()
	round := []string{"שליחויות", "1", "1", "1", "3", "1", "45", "1", "16", "1"}
	script := append(append([]string{}, round...), "2") // first summary: edit
	script = append(script, "גננות", "1", "1", "1", "3", "1", "45", "1", "16", "1", "1")
	ft := &fakeTransport{script: digits(script...)}

	if err := newComposer(store, &stubGate{allow: true}).Handler()(context.Background(), newTestCall(t, ft)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	jobs, _ := store.RecentPublished(context.Background(), 10)
	if len(jobs) != 1 {
		t.Fatalf("expected exactly one job, got %d", len(jobs))
	}
	if jobs[0].Title != "גננות" {
		t.Fatalf("expected the second round's title, got %q", jobs[0].Title)
	}
}

type failingStore struct{ Store }

func (failingStore) CreateJob(context.Context, Draft) (string, int64, error) {
	return "", 0, errors.New("db down")
}

// A failed save speaks a dedicated error prompt and returns to the menu; the
// raw error never reaches the caller.
func TestComposer_SaveFailureSpeaksErrorPrompt(t *testing.T) {
	ft := &fakeTransport{script: digits(
		"ניקיון", "1", "1", "1", "3", "1", "45", "1", "16", "1", "1",
	)}

	err := newComposer(failingStore{NewMemoryStore()}, &stubGate{allow: true}).Handler()(context.Background(), newTestCall(t, ft))
	if err != nil {
		t.Fatalf("save failure must not propagate, got %v", err)
	}
	spoken := ft.spokenText()
	if !strings.Contains(spoken, "שגיאה בשמירת המשרה") {
		t.Fatalf("expected save-error prompt, spoken: %q", spoken)
	}
	if strings.Contains(spoken, "db down") {
		t.Fatalf("raw error text must never be spoken: %q", spoken)
	}
}

func TestMemoryStore_SerialsContiguousUnderConcurrentPostings(t *testing.T) {
	store := NewMemoryStore()
	const n = 50

	var wg sync.WaitGroup
	serials := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, serial, err := store.CreateJob(context.Background(), Draft{
				Title:        "עבודה",
				ContactPhone: "0500000000",
				DateKind:     DateFlexible,
				PaymentKind:  PaymentHourly,
			})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			serials <- serial
		}()
	}
	wg.Wait()
	close(serials)

	seen := make(map[int64]bool)
	for s := range serials {
		if seen[s] {
			t.Fatalf("duplicate serial %d", s)
		}
		seen[s] = true
	}
	for s := int64(1); s <= n; s++ {
		if !seen[s] {
			t.Fatalf("serial sequence has a gap at %d", s)
		}
	}
}
