package infra

import (
	"context"
	"testing"

	"store-backend/middleware/ratelimit/domain"
)

func TestMemoryStatsStore_Aggregates(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Policy: "ratelimit", Method: "GET", Path: "/x"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: false, Policy: "ratelimit", Method: "GET", Path: "/x"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "b", Allowed: false, Policy: "ipblock", Method: "POST", Path: "/y"})

	if got := s.Total(); got.Allowed != 1 || got.Denied != 2 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got := s.ByRoute()["GET /x"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected route counters: %+v", got)
	}
	if got := s.ByPolicy()["ipblock"]; got.Denied != 1 {
		t.Fatalf("unexpected policy counters: %+v", got)
	}
	if got := s.ByKey()["a"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected key counters: %+v", got)
	}
}

func TestMemoryStatsStore_KeysNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "a", Allowed: true})

	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no per-key counters without WithTrackKeys")
	}
}
