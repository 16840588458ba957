package entity

import "time"

const (
	OrderStatusPending = "pending_checkout"
	OrderStatusExpired = "expired"
	OrderStatusPaid    = "paid"
)

// Order is materialized when an offer is accepted. Checkout consumes it
// and must complete before ReservationExpiresAt.
type Order struct {
	ID                   string    `json:"id" firestore:"id"`
	ChannelID            string    `json:"channel_id" firestore:"channelId"`
	ListingID            string    `json:"listing_id" firestore:"listingId"`
	OfferID              string    `json:"offer_id" firestore:"offerId"`
	BuyerID              string    `json:"buyer_id" firestore:"buyerId"`
	SellerID             string    `json:"seller_id" firestore:"sellerId"`
	Amount               int64     `json:"amount" firestore:"amount"`
	Status               string    `json:"status" firestore:"status"`
	ReservationExpiresAt time.Time `json:"reservation_expires_at" firestore:"reservationExpiresAt"`
	CreatedAt            time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt            time.Time `json:"updated_at" firestore:"updatedAt"`
}
