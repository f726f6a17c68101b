package order

import "testing"

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusReadyForPickup, StatusCompleted, StatusCancelled} {
		if !ValidStatus(s) {
			t.Fatalf("ValidStatus(%s) = false", s)
		}
	}
	for _, s := range []Status{"", "shipped", "PENDING", "done"} {
		if ValidStatus(s) {
			t.Fatalf("ValidStatus(%q) = true", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusReadyForPickup, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusReadyForPickup, StatusCompleted, true},
		{StatusReadyForPickup, StatusCancelled, true},
		{StatusReadyForPickup, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCompleted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
