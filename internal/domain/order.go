// Package domain defines the shared types, status machine, and errors of the
// storefront.
package domain

import (
	"fmt"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is an order lifecycle state.
type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusProofSubmitted  Status = "proof_submitted"
	StatusApproved        Status = "approved"
	StatusDelivered       Status = "delivered"
	StatusRejected        Status = "rejected"
	StatusCancelled       Status = "cancelled"
)

// transitions is the single source of truth for the order state machine.
// Approve/reject straight from awaiting_payment (no proof yet) is a tolerated
// admin shortcut, not a bug.
var transitions = map[Status][]Status{
	StatusAwaitingPayment: {StatusProofSubmitted, StatusApproved, StatusRejected, StatusCancelled},
	StatusProofSubmitted:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:        {StatusDelivered},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns every status from which the given status is reachable.
func SourcesOf(to Status) []Status {
	var sources []Status
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

// Terminal reports whether no transition leaves the given status.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// ProofKind values accepted as payment proof.
const (
	ProofPhoto    = "photo"
	ProofDocument = "document"
)

// ProofRef is an opaque handle to a user-submitted payment proof file.
type ProofRef struct {
	FileID string `bson:"file_id" json:"file_id"`
	Kind   string `bson:"kind" json:"kind"`
}

// Order is the historical record of a purchase. Item title and price are
// snapshotted at creation so later catalog edits never alter it. Orders are
// never deleted.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderCode  string             `bson:"order_code" json:"order_code"`
	UserID     int64              `bson:"user_id" json:"user_id"`
	Category   string             `bson:"category" json:"category"`
	ItemTitle  string             `bson:"item_title" json:"item_title"`
	PriceToman int64              `bson:"price_toman" json:"price_toman"`
	ItemID     primitive.ObjectID `bson:"item_id,omitempty" json:"item_id"`

	Status Status `bson:"status" json:"status"`

	ProofFileID       string `bson:"proof_file_id,omitempty" json:"proof_file_id,omitempty"`
	ProofKind         string `bson:"proof_kind,omitempty" json:"proof_kind,omitempty"`
	DecidedByAdminID  int64  `bson:"decided_by_admin_id,omitempty" json:"decided_by_admin_id,omitempty"`
	RejectedReason    string `bson:"rejected_reason,omitempty" json:"rejected_reason,omitempty"`
	DeliveryNote      string `bson:"delivery_note,omitempty" json:"delivery_note,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderCode builds a human-shareable order code such as ORD-20250923-AB12.
// Uniqueness is enforced by the storage index; callers must regenerate on a
// collision.
func NewOrderCode(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// FormatPriceToman renders a price with thousands separators for chat output.
func FormatPriceToman(value int64) string {
	s := fmt.Sprintf("%d", value)
	if len(s) <= 3 {
		return s + " toman"
	}
	var out []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digit)
	}
	return string(out) + " toman"
}
