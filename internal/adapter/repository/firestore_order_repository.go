package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dialist/internal/domain/entity"
	"dialist/internal/domain/repository"
	"dialist/pkg/errors"
)

type firestoreOrderRepository struct {
	client *firestore.Client
}

func NewFirestoreOrderRepository(client *firestore.Client) repository.OrderRepository {
	return &firestoreOrderRepository{
		client: client,
	}
}

// Reserve is the accept commit point. The listing status is re-read
// inside the transaction, so when two channels accept offers on the same
// listing concurrently only the first commit wins; the loser fails with
// LISTING_UNAVAILABLE and nothing of its accept is persisted.
func (r *firestoreOrderRepository) Reserve(ctx context.Context, channel *entity.Channel, reservationTTL time.Duration) (*entity.Order, error) {
	offer := channel.LastOffer
	if offer == nil || offer.Status != entity.OfferStatusAccepted {
		return nil, errors.Internal("Reserve called without an accepted offer", nil)
	}

	orderID := uuid.New().String()
	var order *entity.Order

	channelRef := r.client.Collection("channels").Doc(channel.ID)
	listingRef := r.client.Collection("listings").Doc(channel.ListingID)
	orderRef := r.client.Collection("orders").Doc(orderID)

	// Captured outside the closure: a rerun after an aborted commit must
	// compare against the caller's snapshot, not the bumped field.
	snapshotVersion := channel.Version

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		channelDoc, err := tx.Get(channelRef)
		if err != nil {
			return err
		}
		var stored entity.Channel
		if err := channelDoc.DataTo(&stored); err != nil {
			return err
		}
		if stored.Version != snapshotVersion {
			return errors.Conflict("Channel was modified concurrently", nil)
		}

		listingDoc, err := tx.Get(listingRef)
		if err != nil {
			return err
		}
		var listing entity.Listing
		if err := listingDoc.DataTo(&listing); err != nil {
			return err
		}
		if listing.Status != entity.ListingStatusActive {
			return errors.State("LISTING_UNAVAILABLE", "Listing is no longer available")
		}

		now := time.Now()
		order = &entity.Order{
			ID:                   orderID,
			ChannelID:            channel.ID,
			ListingID:            listing.ID,
			OfferID:              offer.ID,
			BuyerID:              channel.BuyerID,
			SellerID:             channel.SellerID,
			Amount:               offer.Amount,
			Status:               entity.OrderStatusPending,
			ReservationExpiresAt: now.Add(reservationTTL),
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		listing.Status = entity.ListingStatusReserved
		listing.Reservation = &entity.Reservation{
			ChannelID:  channel.ID,
			BuyerID:    channel.BuyerID,
			OrderID:    orderID,
			ReservedAt: now,
		}
		listing.UpdatedAt = now

		channel.Version = snapshotVersion + 1
		channel.UpdatedAt = now
		channel.SyncOfferIndex()

		if err := tx.Set(channelRef, channel); err != nil {
			return err
		}
		if err := tx.Set(listingRef, &listing); err != nil {
			return err
		}
		return tx.Create(orderRef, order)
	})

	if err != nil {
		if errors.Is(err, "CONFLICT") || errors.Is(err, "LISTING_UNAVAILABLE") {
			return nil, err
		}
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing or channel", err)
		}
		if status.Code(err) == codes.Aborted {
			return nil, errors.Conflict("Accept lost a write race, retry with a fresh read", err)
		}
		if status.Code(err) == codes.DeadlineExceeded || status.Code(err) == codes.Unavailable {
			return nil, errors.Transient("Failed to commit reservation", err)
		}
		return nil, errors.Internal("Failed to commit reservation", err)
	}

	return order, nil
}

func (r *firestoreOrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	doc, err := r.client.Collection("orders").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Order", err)
		}
		return nil, errors.Internal("Failed to get order", err)
	}

	var order entity.Order
	if err := doc.DataTo(&order); err != nil {
		return nil, errors.Internal("Failed to parse order data", err)
	}

	return &order, nil
}

func (r *firestoreOrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Order, int64, error) {
	query := r.client.Collection("orders").
		Where("buyerId", "==", userID).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch orders", err)
	}

	total := int64(len(allDocs))

	start := offset
	end := len(allDocs)
	if limit > 0 {
		end = start + limit
		if end > len(allDocs) {
			end = len(allDocs)
		}
	}
	if start > len(allDocs) {
		start = len(allDocs)
	}

	var orders []*entity.Order
	for i := start; i < end; i++ {
		var order entity.Order
		if err := allDocs[i].DataTo(&order); err != nil {
			continue
		}
		orders = append(orders, &order)
	}

	return orders, total, nil
}
