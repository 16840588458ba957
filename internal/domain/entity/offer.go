package entity

import "time"

const (
	OfferTypeInitial = "initial"
	OfferTypeCounter = "counter"
)

const (
	OfferStatusSent       = "sent"
	OfferStatusAccepted   = "accepted"
	OfferStatusDeclined   = "declined"
	OfferStatusExpired    = "expired"
	OfferStatusSuperseded = "superseded"
)

// Offer is the value held in a channel's current-offer slot and appended
// to its history. "sent" is the only non-terminal status; once an offer
// reaches any other status it is never mutated again.
type Offer struct {
	ID        string    `json:"id" firestore:"id"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Amount    int64     `json:"amount" firestore:"amount"` // minor currency units
	Message   string    `json:"message,omitempty" firestore:"message,omitempty"`
	Type      string    `json:"type" firestore:"type"`     // "initial", "counter"
	Status    string    `json:"status" firestore:"status"` // "sent", "accepted", "declined", "expired", "superseded"
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	ExpiresAt time.Time `json:"expires_at" firestore:"expiresAt"`
}

func (o *Offer) Terminal() bool {
	return o.Status != OfferStatusSent
}
