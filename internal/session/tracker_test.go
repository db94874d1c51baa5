package session

import (
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg_storefront_bot/internal/domain"
)

func TestTakeConsumesSession(t *testing.T) {
	tracker := NewTracker()
	orderID := primitive.NewObjectID()

	tracker.ExpectDelivery(900, orderID)

	session, ok := tracker.Take(900)
	if !ok {
		t.Fatal("expected a pending session")
	}
	if session.Mode != ModeAwaitDelivery || session.OrderID != orderID {
		t.Fatalf("session = %+v, want delivery for %s", session, orderID.Hex())
	}

	if _, ok := tracker.Take(900); ok {
		t.Fatal("second Take should find nothing")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	tracker := NewTracker()
	tracker.ExpectBroadcastDraft(900)

	if _, ok := tracker.Peek(900); !ok {
		t.Fatal("expected a pending session")
	}
	if _, ok := tracker.Peek(900); !ok {
		t.Fatal("Peek must not consume the session")
	}
}

func TestNewExpectationReplacesOld(t *testing.T) {
	tracker := NewTracker()
	orderID := primitive.NewObjectID()

	tracker.ExpectBroadcastDraft(900)
	tracker.ExpectRejectReason(900, orderID)

	session, ok := tracker.Take(900)
	if !ok {
		t.Fatal("expected a pending session")
	}
	if session.Mode != ModeAwaitRejectReason {
		t.Fatalf("mode = %q, want %q", session.Mode, ModeAwaitRejectReason)
	}
}

func TestBroadcastDraftFlow(t *testing.T) {
	tracker := NewTracker()
	draft := domain.DraftRef{FromChatID: 900, MessageID: 314}

	tracker.ExpectBroadcastDraft(900)
	tracker.SetBroadcastReady(900, draft)

	session, ok := tracker.Peek(900)
	if !ok {
		t.Fatal("expected a pending session")
	}
	if session.Mode != ModeBroadcastReady || session.Draft != draft {
		t.Fatalf("session = %+v, want ready draft %+v", session, draft)
	}
}

func TestSessionsAreIndependentPerAdmin(t *testing.T) {
	tracker := NewTracker()

	tracker.ExpectBroadcastDraft(900)
	tracker.ExpectDelivery(901, primitive.NewObjectID())

	tracker.Clear(900)

	if _, ok := tracker.Peek(900); ok {
		t.Fatal("cleared admin should have no session")
	}
	if _, ok := tracker.Peek(901); !ok {
		t.Fatal("other admin's session must survive")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(adminID int64) {
			defer wg.Done()
			tracker.ExpectBroadcastDraft(adminID)
			tracker.Peek(adminID)
			tracker.Take(adminID)
		}(int64(i % 4))
	}
	wg.Wait()
}
