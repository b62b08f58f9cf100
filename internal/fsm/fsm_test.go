package fsm

import "testing"

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusUnpaid, StatusPending) {
		t.Fatal("expected unpaid -> pending to be allowed")
	}
	if !CanTransition(StatusPending, StatusPaid) {
		t.Fatal("expected pending -> paid to be allowed")
	}
	if !CanTransition(StatusUnpaid, StatusExcused) {
		t.Fatal("expected unpaid -> excused to be allowed")
	}
	if !CanTransition(StatusUnpaid, StatusKicked) {
		t.Fatal("expected unpaid -> kicked to be allowed")
	}
	if !CanTransition(StatusPending, StatusKicked) {
		t.Fatal("expected pending -> kicked to be allowed")
	}
	if CanTransition(StatusUnpaid, StatusPaid) {
		t.Fatal("unpaid -> paid must go through pending")
	}
	if CanTransition(StatusPaid, StatusKicked) {
		t.Fatal("no transition may leave paid")
	}
	if CanTransition(StatusExcused, StatusUnpaid) {
		t.Fatal("no transition may leave excused")
	}
	if CanTransition(StatusKicked, StatusPaid) {
		t.Fatal("no transition may leave kicked")
	}
	if !CanTransition(StatusPending, StatusPending) {
		t.Fatal("same-status transition should be a no-op, not an error")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{StatusPaid, StatusExcused, StatusKicked} {
		if !IsTerminal(s) {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []string{StatusUnpaid, StatusPending} {
		if IsTerminal(s) {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}
