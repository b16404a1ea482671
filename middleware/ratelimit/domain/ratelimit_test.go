package domain

import (
	"testing"
	"time"
)

func TestWindow_Expired(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	w := Window{Count: 3, Start: start}

	if w.Expired(start.Add(59*time.Second), time.Minute) {
		t.Fatalf("expected window active before duration elapses")
	}
	if !w.Expired(start.Add(time.Minute), time.Minute) {
		t.Fatalf("expected window expired exactly at duration")
	}
	if !(Window{}).Expired(start, time.Minute) {
		t.Fatalf("expected zero window to count as expired")
	}
}
