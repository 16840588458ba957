package entity

import "time"

const (
	ListingStatusDraft    = "draft"
	ListingStatusActive   = "active"
	ListingStatusReserved = "reserved"
	ListingStatusSold     = "sold"
)

// Reservation is embedded on a listing when an offer on it is accepted.
type Reservation struct {
	ChannelID  string    `json:"channel_id" firestore:"channelId"`
	BuyerID    string    `json:"buyer_id" firestore:"buyerId"`
	OrderID    string    `json:"order_id" firestore:"orderId"`
	ReservedAt time.Time `json:"reserved_at" firestore:"reservedAt"`
}

type Listing struct {
	ID          string       `json:"id" firestore:"id"`
	DialistID   string       `json:"dialist_id" firestore:"dialistId"` // owner / seller
	Title       string       `json:"title" firestore:"title"`
	Brand       string       `json:"brand,omitempty" firestore:"brand,omitempty"`
	Model       string       `json:"model,omitempty" firestore:"model,omitempty"`
	Price       int64        `json:"price" firestore:"price"` // minor currency units
	AllowOffers bool         `json:"allow_offers" firestore:"allowOffers"`
	Status      string       `json:"status" firestore:"status"` // "draft", "active", "reserved", "sold"
	ImageURL    string       `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	Reservation *Reservation `json:"reservation,omitempty" firestore:"reservation,omitempty"`
	CreatedAt   time.Time    `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time    `json:"updated_at" firestore:"updatedAt"`
}

// Snapshot captures the listing fields a channel carries for display.
func (l *Listing) Snapshot() ListingSnapshot {
	return ListingSnapshot{
		ListingID: l.ID,
		Title:     l.Title,
		Brand:     l.Brand,
		Model:     l.Model,
		Price:     l.Price,
		ImageURL:  l.ImageURL,
	}
}
