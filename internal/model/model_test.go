package model

import "testing"

func TestStatusChange_Completed(t *testing.T) {
	tests := []struct {
		prev, cur string
		want      bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusCompleted, StatusCompleted, false},
		{StatusCompleted, StatusPending, false},
		{StatusPending, StatusPending, false},
		{StatusPending, StatusConfirmed, false},
	}
	for _, tt := range tests {
		got := StatusChange{OrderID: 1, Previous: tt.prev, Current: tt.cur}.Completed()
		if got != tt.want {
			t.Fatalf("%s -> %s: got %v, want %v", tt.prev, tt.cur, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus("completed") || ValidStatus("done") {
		t.Fatalf("unexpected status validation")
	}
}
