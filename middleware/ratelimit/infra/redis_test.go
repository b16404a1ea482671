package infra

import (
	"context"
	"testing"
	"time"

	"store-backend/middleware/ratelimit/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisWindowStore_AdmitsUpToMaxThenRejects(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, 2, time.Minute, WithWindowPrefix("rl"))
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		dec, err := s.Admit(ctx, "A", time.Now())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed || dec.Count != i {
			t.Fatalf("request %d: expected allowed with count=%d, got %+v", i, i, dec)
		}
	}

	dec, err := s.Admit(ctx, "A", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected third request to be rejected")
	}
	if dec.RetryAfter <= 0 || dec.RetryAfter > time.Minute {
		t.Fatalf("expected RetryAfter within the window, got %s", dec.RetryAfter)
	}
	if !mr.Exists("rl:A") {
		t.Fatalf("expected window key rl:A to exist")
	}

	// janela expira no Redis => contador recomeça
	mr.FastForward(time.Minute)
	dec, _ = s.Admit(ctx, "A", time.Now())
	if !dec.Allowed || dec.Count != 1 {
		t.Fatalf("expected new window after expiry, got %+v", dec)
	}
}

func TestRedisWindowStore_ReturnsErrorWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, 2, time.Minute)
	mr.Close()

	if _, err := s.Admit(context.Background(), "A", time.Now()); err == nil {
		t.Fatalf("expected error with redis down")
	}
}

func TestRedisStatsStore_RecordsCounters(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("st"), WithStatsTrackKeys(true))
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 34, 0, 0, time.UTC)

	events := []domain.StatsEvent{
		{Key: "1.1.1.1", Allowed: true, Policy: "ratelimit", Method: "GET", Path: "/products", At: at},
		{Key: "1.1.1.1", Allowed: false, Policy: "ratelimit", Method: "GET", Path: "/products", At: at},
		{Key: "9.9.9.9", Allowed: false, Policy: "ipblock", Method: "GET", Path: "/products", At: at},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if got := mr.HGet("st:ratelimit", "denied"); got != "1" {
		t.Fatalf("expected 1 ratelimit denial, got %q", got)
	}
	if got := mr.HGet("st:ipblock", "denied"); got != "1" {
		t.Fatalf("expected ipblock denial to be counted, got %q", got)
	}
	if got := mr.HGet("st:ratelimit:m:202503011234", "allowed"); got != "1" {
		t.Fatalf("expected 1 allowed in minute bucket, got %q", got)
	}
	if got := mr.HGet("st:ratelimit:route", "GET /products:denied"); got != "1" {
		t.Fatalf("expected route counter, got %q", got)
	}
	if got := mr.HGet("st:ratelimit:key:1.1.1.1", "allowed"); got != "1" {
		t.Fatalf("expected per-key counter, got %q", got)
	}
	if mr.Exists("st:ipblock:key:1.1.1.1") {
		t.Fatalf("key counters must stay inside their policy group")
	}
}
