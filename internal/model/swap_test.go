package model

import "testing"

func TestValidSwapTransition(t *testing.T) {
	tests := []struct {
		from, to SwapStatus
		allowed  bool
	}{
		{SwapPending, SwapAccepted, true},
		{SwapPending, SwapRejected, true},
		{SwapPending, SwapCancelled, true},
		{SwapPending, SwapCompleted, false},
		{SwapPending, SwapPending, false},
		{SwapAccepted, SwapCompleted, true},
		// Account deletion may void an accepted swap.
		{SwapAccepted, SwapCancelled, true},
		{SwapAccepted, SwapRejected, false},
		{SwapAccepted, SwapPending, false},
		// Terminal states have no exits.
		{SwapRejected, SwapPending, false},
		{SwapRejected, SwapAccepted, false},
		{SwapCompleted, SwapCancelled, false},
		{SwapCancelled, SwapPending, false},
		{SwapCancelled, SwapAccepted, false},
	}

	for _, tt := range tests {
		got := ValidSwapTransition(tt.from, tt.to)
		if got != tt.allowed {
			t.Errorf("ValidSwapTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestTerminalSwapStatus(t *testing.T) {
	terminal := []SwapStatus{SwapRejected, SwapCompleted, SwapCancelled}
	for _, s := range terminal {
		if !TerminalSwapStatus(s) {
			t.Errorf("expected %q to be terminal", s)
		}
		if ActiveSwapStatus(s) {
			t.Errorf("expected %q not to be active", s)
		}
	}

	active := []SwapStatus{SwapPending, SwapAccepted}
	for _, s := range active {
		if TerminalSwapStatus(s) {
			t.Errorf("expected %q not to be terminal", s)
		}
		if !ActiveSwapStatus(s) {
			t.Errorf("expected %q to be active", s)
		}
	}
}

func TestIsParticipant(t *testing.T) {
	s := &Swap{RequesterID: 1, OwnerID: 2}

	if !s.IsParticipant(1) || !s.IsParticipant(2) {
		t.Error("expected both parties to be participants")
	}
	if s.IsParticipant(3) {
		t.Error("expected third user not to be a participant")
	}
}

func TestValidAvailabilityTransition(t *testing.T) {
	tests := []struct {
		from, to ItemAvailability
		allowed  bool
	}{
		{ItemAvailable, ItemReserved, true},
		{ItemAvailable, ItemSwapped, false},
		{ItemAvailable, ItemAvailable, false},
		{ItemReserved, ItemSwapped, true},
		{ItemReserved, ItemAvailable, true},
		{ItemReserved, ItemReserved, false},
		{ItemSwapped, ItemAvailable, false},
		{ItemSwapped, ItemReserved, false},
	}

	for _, tt := range tests {
		got := ValidAvailabilityTransition(tt.from, tt.to)
		if got != tt.allowed {
			t.Errorf("ValidAvailabilityTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}
