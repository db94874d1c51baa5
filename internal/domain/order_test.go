package domain

import (
	"strings"
	"testing"
	"time"
)

func TestStatusMachineFollowsHappyPath(t *testing.T) {
	path := []Status{StatusAwaitingPayment, StatusProofSubmitted, StatusApproved, StatusDelivered}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("expected transition %s -> %s to be allowed", path[i], path[i+1])
		}
	}
}

func TestStatusMachineToleratesEarlyDecision(t *testing.T) {
	if !CanTransition(StatusAwaitingPayment, StatusApproved) {
		t.Fatalf("expected approve from awaiting_payment to be tolerated")
	}
	if !CanTransition(StatusAwaitingPayment, StatusRejected) {
		t.Fatalf("expected reject from awaiting_payment to be tolerated")
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, status := range []Status{StatusDelivered, StatusRejected, StatusCancelled} {
		if !status.Terminal() {
			t.Fatalf("expected %s to be terminal", status)
		}
		for _, next := range []Status{StatusAwaitingPayment, StatusProofSubmitted, StatusApproved, StatusDelivered, StatusRejected, StatusCancelled} {
			if CanTransition(status, next) {
				t.Fatalf("expected no transition out of %s, found %s", status, next)
			}
		}
	}
}

func TestSourcesOfDelivered(t *testing.T) {
	sources := SourcesOf(StatusDelivered)
	if len(sources) != 1 || sources[0] != StatusApproved {
		t.Fatalf("expected delivered to be reachable only from approved, got %v", sources)
	}
}

func TestNewOrderCodeFormat(t *testing.T) {
	now := time.Date(2025, 9, 23, 10, 30, 0, 0, time.UTC)
	code := NewOrderCode(now)

	if !strings.HasPrefix(code, "ORD-20250923-") {
		t.Fatalf("expected code to carry the creation date, got %q", code)
	}

	suffix := strings.TrimPrefix(code, "ORD-20250923-")
	if len(suffix) != 4 {
		t.Fatalf("expected 4-char suffix, got %q", suffix)
	}
	for _, r := range suffix {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("unexpected suffix character %q in %q", r, code)
		}
	}
}

func TestNewOrderCodeVaries(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		seen[NewOrderCode(now)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varying suffixes, got %d distinct codes", len(seen))
	}
}

func TestFormatPriceToman(t *testing.T) {
	cases := map[int64]string{
		0:       "0 toman",
		950:     "950 toman",
		129000:  "129,000 toman",
		1200000: "1,200,000 toman",
	}
	for value, expected := range cases {
		if got := FormatPriceToman(value); got != expected {
			t.Fatalf("expected %d to render as %q, got %q", value, expected, got)
		}
	}
}

func TestUserDisplayTag(t *testing.T) {
	full := User{UserID: 5, Username: "sam", FirstName: "Sam", LastName: "Lee"}
	if got := full.DisplayTag(); got != "Sam Lee (@sam)" {
		t.Fatalf("unexpected tag %q", got)
	}

	anon := User{UserID: 42}
	if got := anon.DisplayTag(); got != "id:42 (id:42)" {
		t.Fatalf("unexpected tag %q", got)
	}
}
