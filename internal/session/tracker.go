// Package session tracks what an admin's next free-form message means.
// Telegram delivers plain text and file uploads with no reply linkage, so the
// bot records an expectation per admin and consumes it on arrival.
package session

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg_storefront_bot/internal/domain"
)

// Mode names what the admin's next inbound message will be interpreted as.
type Mode string

const (
	// ModeAwaitBroadcastDraft captures the next message as broadcast content.
	ModeAwaitBroadcastDraft Mode = "await_broadcast_draft"
	// ModeBroadcastReady holds a captured draft pending segment confirmation.
	ModeBroadcastReady Mode = "broadcast_ready"
	// ModeAwaitDelivery captures the next message as delivery payload for an order.
	ModeAwaitDelivery Mode = "await_delivery"
	// ModeAwaitRejectReason captures the next message as a rejection reason.
	ModeAwaitRejectReason Mode = "await_reject_reason"
)

// Session is one pending expectation for one admin. OrderID is set for the
// order-bound modes, Draft for the broadcast modes.
type Session struct {
	Mode    Mode
	OrderID primitive.ObjectID
	Draft   domain.DraftRef
}

// Tracker holds at most one pending expectation per admin. Starting a new
// expectation replaces any previous one, so an abandoned flow never wedges
// the admin's account.
type Tracker struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: map[int64]Session{}}
}

// ExpectBroadcastDraft arms draft capture for the admin.
func (t *Tracker) ExpectBroadcastDraft(adminID int64) {
	t.set(adminID, Session{Mode: ModeAwaitBroadcastDraft})
}

// SetBroadcastReady stores the captured draft and moves the admin to the
// confirmation step.
func (t *Tracker) SetBroadcastReady(adminID int64, draft domain.DraftRef) {
	t.set(adminID, Session{Mode: ModeBroadcastReady, Draft: draft})
}

// ExpectDelivery arms delivery capture for the given approved order.
func (t *Tracker) ExpectDelivery(adminID int64, orderID primitive.ObjectID) {
	t.set(adminID, Session{Mode: ModeAwaitDelivery, OrderID: orderID})
}

// ExpectRejectReason arms rejection-reason capture for the given order.
func (t *Tracker) ExpectRejectReason(adminID int64, orderID primitive.ObjectID) {
	t.set(adminID, Session{Mode: ModeAwaitRejectReason, OrderID: orderID})
}

// Peek reports the admin's pending session without consuming it.
func (t *Tracker) Peek(adminID int64) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[adminID]
	return session, ok
}

// Take consumes and returns the admin's pending session. A second Take
// without re-arming reports none, so one inbound message satisfies at most
// one expectation.
func (t *Tracker) Take(adminID int64) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[adminID]
	if ok {
		delete(t.sessions, adminID)
	}
	return session, ok
}

// Clear drops any pending session for the admin.
func (t *Tracker) Clear(adminID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, adminID)
}

func (t *Tracker) set(adminID int64, session Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sessions[adminID] = session
}
