package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dialist/internal/domain/entity"
	"dialist/internal/domain/repository"
	"dialist/pkg/errors"
)

type firestoreChannelRepository struct {
	client *firestore.Client
}

func NewFirestoreChannelRepository(client *firestore.Client) repository.ChannelRepository {
	return &firestoreChannelRepository{
		client: client,
	}
}

func (r *firestoreChannelRepository) Create(ctx context.Context, channel *entity.Channel) error {
	if channel.ID == "" {
		channel.ID = entity.ChannelKeyID(channel.Mode, channel.ListingID, channel.BuyerID, channel.SellerID)
	}

	now := time.Now()
	channel.CreatedAt = now
	channel.UpdatedAt = now
	channel.Version = 1
	channel.SyncOfferIndex()

	// Doc IDs are derived from the identity key, so Create (not Set)
	// makes the storage engine reject the second of two racing creates.
	_, err := r.client.Collection("channels").Doc(channel.ID).Create(ctx, channel)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Channel already exists for this key", err)
		}
		if status.Code(err) == codes.DeadlineExceeded || status.Code(err) == codes.Unavailable {
			return errors.Transient("Failed to create channel", err)
		}
		return errors.Internal("Failed to create channel", err)
	}

	return nil
}

func (r *firestoreChannelRepository) GetByID(ctx context.Context, id string) (*entity.Channel, error) {
	doc, err := r.client.Collection("channels").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Channel", err)
		}
		return nil, errors.Internal("Failed to get channel", err)
	}

	var channel entity.Channel
	if err := doc.DataTo(&channel); err != nil {
		return nil, errors.Internal("Failed to parse channel data", err)
	}

	return &channel, nil
}

func (r *firestoreChannelRepository) FindExisting(ctx context.Context, mode, listingID, buyerID, sellerID string) (*entity.Channel, error) {
	return r.GetByID(ctx, entity.ChannelKeyID(mode, listingID, buyerID, sellerID))
}

// Save writes the channel inside a transaction that compares the stored
// version with the snapshot version the caller mutated. A mismatch means
// a concurrent writer committed first; the caller gets a CONFLICT and
// must re-read before retrying.
func (r *firestoreChannelRepository) Save(ctx context.Context, channel *entity.Channel) error {
	docRef := r.client.Collection("channels").Doc(channel.ID)

	// The closure may rerun after an aborted commit, so the comparison
	// uses the caller's snapshot version captured here, not the field the
	// closure itself bumps.
	snapshotVersion := channel.Version

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			return err
		}

		var stored entity.Channel
		if err := doc.DataTo(&stored); err != nil {
			return err
		}

		if stored.Version != snapshotVersion {
			return errors.Conflict("Channel was modified concurrently", nil)
		}

		channel.Version = snapshotVersion + 1
		channel.UpdatedAt = time.Now()
		channel.SyncOfferIndex()

		return tx.Set(docRef, channel)
	})

	if err != nil {
		if errors.Is(err, "CONFLICT") {
			return err
		}
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Channel", err)
		}
		if status.Code(err) == codes.Aborted {
			return errors.Conflict("Channel write contention, retry with a fresh read", err)
		}
		if status.Code(err) == codes.DeadlineExceeded || status.Code(err) == codes.Unavailable {
			return errors.Transient("Failed to save channel", err)
		}
		return errors.Internal("Failed to save channel", err)
	}

	return nil
}

func (r *firestoreChannelRepository) ListByUser(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Channel, int64, error) {
	query := r.client.Collection("channels").Where("participants", "array-contains", userID)
	switch role {
	case entity.RoleBuyer:
		query = r.client.Collection("channels").Where("buyerId", "==", userID)
	case entity.RoleSeller:
		query = r.client.Collection("channels").Where("sellerId", "==", userID)
	}
	query = query.OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while fetching channels for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch channels", err)
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

	var channels []*entity.Channel
	for i := start; i < end; i++ {
		var channel entity.Channel
		if err := allDocs[i].DataTo(&channel); err != nil {
			log.Printf("Error parsing channel data for user %s: %v", userID, err)
			continue
		}
		channels = append(channels, &channel)
	}

	return channels, total, nil
}

func (r *firestoreChannelRepository) ListByListing(ctx context.Context, listingID string) ([]*entity.Channel, error) {
	iter := r.client.Collection("channels").Where("listingId", "==", listingID).Documents(ctx)

	var channels []*entity.Channel
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate channels", err)
		}

		var channel entity.Channel
		if err := doc.DataTo(&channel); err != nil {
			log.Printf("Error parsing channel data for listing %s: %v", listingID, err)
			continue
		}
		channels = append(channels, &channel)
	}

	return channels, nil
}

func (r *firestoreChannelRepository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entity.Channel, error) {
	query := r.client.Collection("channels").
		Where("activeOfferStatus", "==", entity.OfferStatusSent).
		Where("activeOfferExpiresAt", "<", before)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	var channels []*entity.Channel
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate expiring channels", err)
		}

		var channel entity.Channel
		if err := doc.DataTo(&channel); err != nil {
			log.Printf("Error parsing expiring channel data: %v", err)
			continue
		}
		channels = append(channels, &channel)
	}

	return channels, nil
}
