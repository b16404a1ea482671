package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"store-backend/middleware/pipeline"
	"store-backend/middleware/ratelimit/infra"
)

func TestConcurrency_DisabledWhenMaxIsZero(t *testing.T) {
	if c := NewConcurrency(ConcurrencyOptions{Max: 0}); c != nil {
		t.Fatalf("expected nil stage when Max=0")
	}
}

func TestConcurrency_TimesOutWhenNoSlot(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	secondDone := make(chan struct{})
	var startedOnce sync.Once

	// handler que segura a vaga até liberarmos.
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusOK)
	})

	stage := NewConcurrency(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 25 * time.Millisecond,
	})
	h := pipeline.New(pipeline.Options{Stages: []pipeline.Stage{stage}}).Handler(next)

	var wg sync.WaitGroup
	wg.Add(2)

	// request 1: ocupa o semáforo e fica pendurado
	go func() {
		defer wg.Done()
		w1 := httptest.NewRecorder()
		h.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		if w1.Code != http.StatusOK {
			t.Errorf("expected first request 200, got %d", w1.Code)
		}
	}()

	select {
	case <-started:
	case <-time.After(200 * time.Millisecond):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting first request to start")
	}

	// request 2: deve falhar por timeout ao tentar adquirir
	go func() {
		defer wg.Done()
		w2 := httptest.NewRecorder()
		h.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		if w2.Code != http.StatusServiceUnavailable {
			t.Errorf("expected second request 503, got %d", w2.Code)
		}
		close(secondDone)
	}()

	select {
	case <-secondDone:
	case <-time.After(500 * time.Millisecond):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting second request to finish")
	}

	close(release)
	wg.Wait()
}

func TestConcurrency_ReleasesSlotWhenHandlerPanics(t *testing.T) {
	pool := infra.NewChanPool(1)
	stage := NewConcurrency(ConcurrencyOptions{Pool: pool, AcquireTimeout: 10 * time.Millisecond})
	h := pipeline.New(pipeline.Options{Stages: []pipeline.Stage{stage}}).
		Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("request %d: expected 500 from the boundary, got %d", i+1, w.Code)
		}
	}
	if pool.InUse() != 0 {
		t.Fatalf("expected slot to be released, %d still in use", pool.InUse())
	}
}
