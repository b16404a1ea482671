package ipblock

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit/infra"
)

func newHandler(b *Blocklist) http.Handler {
	p := pipeline.New(pipeline.Options{Stages: []pipeline.Stage{b}})
	return p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message": "Hello, World!"}`)
	}))
}

func TestBlocklist_BlockedIPGets403(t *testing.T) {
	h := newHandler(New([]string{"123.45.67.89"}))

	r := httptest.NewRequest(http.MethodGet, "/dummy/", nil)
	r.RemoteAddr = "123.45.67.89:40000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if w.Body.String() != "Your IP is blocked." {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestBlocklist_AllowedIPPassesThrough(t *testing.T) {
	h := newHandler(New([]string{"123.45.67.89"}))

	r := httptest.NewRequest(http.MethodGet, "/dummy/", nil)
	r.RemoteAddr = "192.168.1.1:40000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"message": "Hello, World!"}` {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestBlocklist_IgnoresBlankEntries(t *testing.T) {
	b := New([]string{" 10.0.0.1 ", "", "  "})
	if b.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", b.Len())
	}
	if b.Check("10.0.0.1") {
		t.Fatalf("expected trimmed entry to be blocked")
	}
}

func TestBlocklist_RecordsDenials(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	h := newHandler(New([]string{"123.45.67.89"}, WithStats(stats)))

	for _, addr := range []string{"123.45.67.89:1", "192.168.1.1:1"} {
		r := httptest.NewRequest(http.MethodGet, "/dummy/", nil)
		r.RemoteAddr = addr
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	if got := stats.ByPolicy()["ipblock"]; got.Denied != 1 || got.Allowed != 0 {
		t.Fatalf("expected only the denial to be recorded, got %+v", got)
	}
}

func TestBlocklist_ClientHeadersDoNotBypassBlock(t *testing.T) {
	p := pipeline.New(pipeline.Options{
		Stages:    []pipeline.Stage{New([]string{"123.45.67.89"})},
		ClientKey: pipeline.DefaultClientKey("X-Api-Key", true),
	})
	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/dummy/", nil)
	r.RemoteAddr = "123.45.67.89:40000"
	r.Header.Set("X-Api-Key", "k-1")
	r.Header.Set("X-Forwarded-For", "8.8.8.8")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 regardless of client headers, got %d", w.Code)
	}
}

func TestBlocklist_TrustedProxyForwardsBlockedClient(t *testing.T) {
	p := pipeline.New(pipeline.Options{
		Stages:   []pipeline.Stage{New([]string{"123.45.67.89"})},
		RemoteIP: pipeline.PeerAddress([]string{"10.0.0.0/8"}),
	})
	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/dummy/", nil)
	r.RemoteAddr = "10.1.2.3:40000"
	r.Header.Set("X-Forwarded-For", "123.45.67.89")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client behind trusted proxy, got %d", w.Code)
	}
}

func TestBlocklist_RejectsBeforeIdentityLookup(t *testing.T) {
	lookups := 0
	p := pipeline.New(pipeline.Options{
		Stages: []pipeline.Stage{New([]string{"123.45.67.89"})},
		Identify: func(r *http.Request) (pipeline.Identity, error) {
			lookups++
			return pipeline.Identity{}, errors.New("users table unavailable")
		},
	})
	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/dummy/", nil)
	r.RemoteAddr = "123.45.67.89:40000"
	r.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusForbidden || w.Body.String() != BlockedBody {
		t.Fatalf("expected 403 %q, got %d %q", BlockedBody, w.Code, w.Body.String())
	}
	if lookups != 0 {
		t.Fatalf("expected no identity lookup for a blocked request, got %d", lookups)
	}
}
