package repository

import (
	"context"
	"time"

	"dialist/internal/domain/entity"
)

type ChannelRepository interface {
	// Create persists a new channel under its mode-derived identity key.
	// A concurrent create of the same key fails with a CONFLICT error;
	// the caller must re-fetch and take the reuse path.
	Create(ctx context.Context, channel *entity.Channel) error

	GetByID(ctx context.Context, id string) (*entity.Channel, error)

	// FindExisting resolves the channel for the identity key of the given
	// mode. In pair mode the listing ID is ignored for matching.
	FindExisting(ctx context.Context, mode, listingID, buyerID, sellerID string) (*entity.Channel, error)

	// Save writes a channel read earlier in the same logical operation.
	// The write is conditioned on the version at read time and fails with
	// a CONFLICT error when a concurrent writer got there first.
	Save(ctx context.Context, channel *entity.Channel) error

	// ListByUser returns channels the user participates in, optionally
	// filtered by role ("buyer" or "seller", empty for both).
	ListByUser(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Channel, int64, error)

	ListByListing(ctx context.Context, listingID string) ([]*entity.Channel, error)

	// ListExpiring returns channels whose outstanding offer expired
	// before the given instant, for the sweep job.
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*entity.Channel, error)
}
