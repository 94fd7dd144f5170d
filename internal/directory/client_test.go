package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, lists map[string][]Member) (*httptest.Server, *int) {
	t.Helper()
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/lists", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		names := make([]string, 0, len(lists))
		for name := range lists {
			names = append(names, name)
		}
		json.NewEncoder(w).Encode(listsResponse{Status: "OK", Lists: names})
	})
	mux.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("token") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		members, ok := lists[r.URL.Query().Get("list")]
		if !ok {
			json.NewEncoder(w).Encode(membersResponse{Status: "NOT_FOUND"})
			return
		}
		json.NewEncoder(w).Encode(membersResponse{Status: "OK", Members: members})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestMembershipsOf(t *testing.T) {
	srv, _ := newTestServer(t, map[string][]Member{
		"משרות מרכז": {{Phone: "0501234567"}, {Phone: "0529999999"}},
		"משרות דרום": {{Phone: "0501234567"}},
		"משרות צפון": {{Phone: "0521111111"}},
	})
	c := New(srv.URL, "secret", slog.Default())

	got, err := c.MembershipsOf(context.Background(), "0501234567")
	if err != nil {
		t.Fatalf("memberships: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 memberships, got %v", got)
	}

	none, err := c.MembershipsOf(context.Background(), "0580000000")
	if err != nil {
		t.Fatalf("memberships: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no memberships, got %v", none)
	}
}

func TestListMembers_BadTokenSurfacesUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, map[string][]Member{"רשימה": {}})
	c := New(srv.URL, "wrong", slog.Default())

	if _, err := c.ListMembers(context.Background(), "רשימה"); err == nil {
		t.Fatalf("expected an error for a rejected token")
	}
}

func TestListMembers_ProviderStatusError(t *testing.T) {
	srv, _ := newTestServer(t, map[string][]Member{})
	c := New(srv.URL, "secret", slog.Default())

	if _, err := c.ListMembers(context.Background(), "אין"); err == nil {
		t.Fatalf("expected an error for a NOT_FOUND status")
	}
}

func TestListAll(t *testing.T) {
	srv, calls := newTestServer(t, map[string][]Member{"א": {}, "ב": {}})
	c := New(srv.URL, "secret", slog.Default())

	lists, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("expected 2 lists, got %v", lists)
	}
	if *calls != 1 {
		t.Fatalf("expected one provider call, got %d", *calls)
	}
}
