package repository

import (
	"context"
	"time"

	"dialist/internal/domain/entity"
)

type OrderRepository interface {
	// Reserve commits an accepted offer: in one atomic transaction it
	// re-checks that the listing is still active (LISTING_UNAVAILABLE
	// otherwise), writes the channel under its optimistic version check,
	// flips the listing to reserved with an embedded reservation record,
	// and materializes the order. Either everything commits or nothing
	// does.
	Reserve(ctx context.Context, channel *entity.Channel, reservationTTL time.Duration) (*entity.Order, error)

	GetByID(ctx context.Context, id string) (*entity.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Order, int64, error)
}
