package entity

import (
	"strings"
	"time"
)

const (
	ChannelModeListing = "listing"
	ChannelModePair    = "pair"
)

const (
	ChannelStatusOpen   = "open"
	ChannelStatusClosed = "closed"
)

const (
	EventInquiry = "inquiry"
	EventOffer   = "offer"
	EventOrder   = "order"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

type ParticipantSnapshot struct {
	UserID    string `json:"user_id" firestore:"userId"`
	Username  string `json:"username" firestore:"username"`
	AvatarURL string `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
	Role      string `json:"role" firestore:"role"` // "buyer", "seller"
}

// ListingSnapshot is taken when a channel is created or, in pair mode,
// when it is reused for a newer listing. It is never refreshed from the
// live listing afterwards so old threads keep reading correctly.
type ListingSnapshot struct {
	ListingID string `json:"listing_id" firestore:"listingId"`
	Title     string `json:"title" firestore:"title"`
	Brand     string `json:"brand,omitempty" firestore:"brand,omitempty"`
	Model     string `json:"model,omitempty" firestore:"model,omitempty"`
	Price     int64  `json:"price" firestore:"price"`
	ImageURL  string `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
}

type Inquiry struct {
	ID        string    `json:"id" firestore:"id"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	ListingID string    `json:"listing_id" firestore:"listingId"`
	Message   string    `json:"message,omitempty" firestore:"message,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// Channel is a negotiation thread between exactly two participants.
// Depending on the platform mode it is keyed per (listing, buyer, seller)
// or per unordered user pair.
type Channel struct {
	ID             string                `json:"id" firestore:"id"`
	Mode           string                `json:"mode" firestore:"mode"`
	Participants   []string              `json:"participants" firestore:"participants"`
	BuyerID        string                `json:"buyer_id" firestore:"buyerId"`
	SellerID       string                `json:"seller_id" firestore:"sellerId"`
	Buyer          ParticipantSnapshot   `json:"buyer" firestore:"buyer"`
	Seller         ParticipantSnapshot   `json:"seller" firestore:"seller"`
	ListingID      string                `json:"listing_id" firestore:"listingId"`
	Listing        ListingSnapshot       `json:"listing" firestore:"listing"`
	ConversationID string                `json:"conversation_id,omitempty" firestore:"conversationId,omitempty"`
	Status         string                `json:"status" firestore:"status"`                 // "open", "closed"
	LastEventType  string                `json:"last_event_type" firestore:"lastEventType"` // "inquiry", "offer", "order"
	Inquiries      []Inquiry             `json:"inquiries" firestore:"inquiries"`
	OfferHistory   []Offer               `json:"offer_history" firestore:"offerHistory"`
	LastOffer      *Offer                `json:"last_offer,omitempty" firestore:"lastOffer,omitempty"`

	// Denormalized copies of the current-offer state, kept in sync by
	// SyncOfferIndex, so the expiry sweep can query on top-level fields.
	ActiveOfferStatus    string     `json:"-" firestore:"activeOfferStatus"`
	ActiveOfferExpiresAt *time.Time `json:"-" firestore:"activeOfferExpiresAt,omitempty"`

	// Version backs the optimistic-concurrency check on every save.
	Version   int64     `json:"version" firestore:"version"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ChannelKeyID derives the channel document ID from the identity key of
// the given mode. Deterministic IDs let the storage engine enforce the
// uniqueness constraint: a concurrent create of the same key fails with
// an already-exists error instead of producing a duplicate thread.
func ChannelKeyID(mode, listingID, buyerID, sellerID string) string {
	if mode == ChannelModePair {
		lo, hi := buyerID, sellerID
		if strings.Compare(lo, hi) > 0 {
			lo, hi = hi, lo
		}
		return "pair_" + lo + "_" + hi
	}
	return "lst_" + listingID + "_" + buyerID + "_" + sellerID
}

// RoleOf returns "buyer", "seller" or "" for the given user. Roles are
// fixed at creation and never change, even when a pair-mode channel is
// reused for a different listing.
func (c *Channel) RoleOf(userID string) string {
	switch userID {
	case c.BuyerID:
		return RoleBuyer
	case c.SellerID:
		return RoleSeller
	}
	return ""
}

func (c *Channel) IsParticipant(userID string) bool {
	return c.RoleOf(userID) != ""
}

// ActiveOffer returns the current offer only while it is live: status
// "sent" and not yet past its expiry. A slot holding a terminal offer is
// kept for display but does not count as active.
func (c *Channel) ActiveOffer(now time.Time) *Offer {
	if c.LastOffer == nil || c.LastOffer.Status != OfferStatusSent {
		return nil
	}
	if !now.Before(c.LastOffer.ExpiresAt) {
		return nil
	}
	return c.LastOffer
}

// SyncOfferIndex recomputes the denormalized current-offer fields. Call
// after every slot mutation, before persisting. The index only reflects
// a live offer: a terminal slot occupant clears it, so the expiry query
// never revisits an already-terminalized channel.
func (c *Channel) SyncOfferIndex() {
	if c.LastOffer == nil || c.LastOffer.Status != OfferStatusSent {
		c.ActiveOfferStatus = ""
		c.ActiveOfferExpiresAt = nil
		return
	}
	c.ActiveOfferStatus = OfferStatusSent
	t := c.LastOffer.ExpiresAt
	c.ActiveOfferExpiresAt = &t
}
