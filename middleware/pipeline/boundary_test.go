package pipeline

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"store-backend/internal/obs"
)

type statusObserver struct {
	status   int
	panicOut bool
}

func (s *statusObserver) Name() string                    { return "observer" }
func (s *statusObserver) Inbound(rc *RequestContext) bool { return false }
func (s *statusObserver) Outbound(rc *RequestContext) {
	s.status = rc.Response.Status()
	if s.panicOut {
		panic("observer exploded")
	}
}

type panickingSink struct{ obs.Recorder }

func (s *panickingSink) Fault(obs.FaultRecord) { panic("sink exploded") }

func TestBoundary_ConvertsHandlerPanic(t *testing.T) {
	rec := &obs.Recorder{}
	watcher := &statusObserver{}
	p := New(Options{Sink: rec, Stages: []Stage{watcher}})

	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "partial output")
		panic(errors.New("Forced error for testing."))
	}))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/error/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != FaultBody {
		t.Fatalf("expected partial output to be discarded, got %q", w.Body.String())
	}
	if watcher.status != http.StatusInternalServerError {
		t.Fatalf("expected outbound observer to see translated status, got %d", watcher.status)
	}

	faults := rec.Faults()
	if len(faults) != 1 {
		t.Fatalf("expected exactly one fault record, got %d", len(faults))
	}
	if faults[0].Path != "/error/" || faults[0].Fault != "Forced error for testing." || !faults[0].Panic {
		t.Fatalf("unexpected fault record %+v", faults[0])
	}
}

func TestBoundary_ConvertsRaisedFault(t *testing.T) {
	rec := &obs.Recorder{}
	p := New(Options{Sink: rec})

	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RaiseFault(r.Context(), errors.New("db: disk I/O error"))
		w.WriteHeader(http.StatusCreated)
	}))
	w := serve(h, httptest.NewRequest(http.MethodPost, "/orders", nil))

	if w.Code != http.StatusInternalServerError || w.Body.String() != FaultBody {
		t.Fatalf("expected generic 500, got %d %q", w.Code, w.Body.String())
	}
	if got := rec.Faults(); len(got) != 1 || got[0].Panic {
		t.Fatalf("expected one non-panic fault, got %+v", got)
	}
}

func TestBoundary_DoesNotMaskHandledErrorResponses(t *testing.T) {
	rec := &obs.Recorder{}
	p := New(Options{Sink: rec})

	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "maintenance")
	}))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusServiceUnavailable || w.Body.String() != "maintenance" {
		t.Fatalf("expected handled 503 to pass through, got %d %q", w.Code, w.Body.String())
	}
	if len(rec.Faults()) != 0 {
		t.Fatalf("handled error must not be logged as a fault")
	}
}

func TestBoundary_OnlyOneErrorResponseForSeveralFaults(t *testing.T) {
	rec := &obs.Recorder{}
	p := New(Options{Sink: rec, Stages: []Stage{&statusObserver{panicOut: true}}})

	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError || w.Body.String() != FaultBody {
		t.Fatalf("expected a single generic 500, got %d %q", w.Code, w.Body.String())
	}
	if got := len(rec.Faults()); got != 2 {
		t.Fatalf("expected both faults to be logged, got %d", got)
	}
}

func TestBoundary_ObserverFaultAfterSuccessIsConverted(t *testing.T) {
	p := New(Options{Stages: []Stage{&statusObserver{panicOut: true}}})

	w := serve(p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})), httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected observer fault to be converted, got %d", w.Code)
	}
}

func TestBoundary_FaultInLoggingDegradesToPlainText(t *testing.T) {
	p := New(Options{Sink: &panickingSink{}})

	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if w.Body.String() != "Internal Server Error" {
		t.Fatalf("expected plain-text fallback, got %q", w.Body.String())
	}
}

func TestRaiseFault_OutsidePipeline(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if RaiseFault(r.Context(), errors.New("x")) {
		t.Fatalf("expected false outside a pipeline")
	}
}

func TestBoundary_PanicAfterRaiseFaultIsOneFault(t *testing.T) {
	rec := &obs.Recorder{}
	watcher := &statusObserver{}
	p := New(Options{Sink: rec, Stages: []Stage{watcher}})

	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RaiseFault(r.Context(), errors.New("db: disk I/O error"))
		panic("handler exploded")
	}))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError || w.Body.String() != FaultBody {
		t.Fatalf("expected generic 500, got %d %q", w.Code, w.Body.String())
	}
	got := rec.Faults()
	if len(got) != 1 || !got[0].Panic {
		t.Fatalf("expected a single panic fault record, got %+v", got)
	}
}
