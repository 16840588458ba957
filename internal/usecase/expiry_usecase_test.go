package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialist/internal/domain/entity"
	"dialist/internal/domain/service"
	"dialist/pkg/errors"
)

func seedChannelWithOffer(t *testing.T, env *testEnv, buyerID string, expiresAt time.Time) *entity.Channel {
	t.Helper()

	now := time.Now()
	offer := &entity.Offer{
		ID:        "offer-" + buyerID,
		SenderID:  buyerID,
		Amount:    800,
		Type:      entity.OfferTypeInitial,
		Status:    entity.OfferStatusSent,
		ExpiresAt: expiresAt,
		CreatedAt: now.Add(-time.Hour),
	}

	channel := &entity.Channel{
		ID:             entity.ChannelKeyID(entity.ChannelModeListing, "listing-1", buyerID, "seller-1"),
		Mode:           entity.ChannelModeListing,
		Participants:   []string{buyerID, "seller-1"},
		BuyerID:        buyerID,
		SellerID:       "seller-1",
		ListingID:      "listing-1",
		Status:         entity.ChannelStatusOpen,
		LastEventType:  entity.EventOffer,
		LastOffer:      offer,
		ConversationID: "conv-" + buyerID,
	}

	require.NoError(t, env.channels.Create(context.Background(), channel))
	return channel
}

func TestSweepExpiresOverdueOffers(t *testing.T) {
	env := newTestEnv(entity.ChannelModeListing)
	expiry := NewExpiryUseCase(env.channels, env.conversations, service.NewOfferMachine(48*time.Hour))

	overdue := seedChannelWithOffer(t, env, "buyer-1", time.Now().Add(-time.Minute))
	fresh := seedChannelWithOffer(t, env, "buyer-2", time.Now().Add(time.Hour))

	expired := expiry.Sweep(context.Background())
	assert.Equal(t, 1, expired)

	stored, err := env.channels.GetByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusExpired, stored.LastOffer.Status)
	require.Len(t, stored.OfferHistory, 1)
	assert.Equal(t, entity.OfferStatusExpired, stored.OfferHistory[0].Status)
	assert.Empty(t, stored.ActiveOfferStatus)

	untouched, err := env.channels.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusSent, untouched.LastOffer.Status)

	require.Len(t, env.conversations.events, 1)
	assert.Equal(t, "offer_expired", env.conversations.events[0].eventType)
	assert.Equal(t, "conv-buyer-1", env.conversations.events[0].conversationID)

	// An expired channel is not picked up again.
	assert.Equal(t, 0, expiry.Sweep(context.Background()))
}

func TestSweepSkipsWhenAlreadyRunning(t *testing.T) {
	env := newTestEnv(entity.ChannelModeListing)
	expiry := NewExpiryUseCase(env.channels, env.conversations, service.NewOfferMachine(48*time.Hour))

	seedChannelWithOffer(t, env, "buyer-1", time.Now().Add(-time.Minute))

	expiry.running.Store(true)
	assert.Equal(t, 0, expiry.Sweep(context.Background()), "an in-flight sweep makes the trigger a no-op")

	expiry.running.Store(false)
	assert.Equal(t, 1, expiry.Sweep(context.Background()))
}

func TestSweepContinuesPastFailedChannel(t *testing.T) {
	env := newTestEnv(entity.ChannelModeListing)
	expiry := NewExpiryUseCase(env.channels, env.conversations, service.NewOfferMachine(48*time.Hour))

	failing := seedChannelWithOffer(t, env, "buyer-1", time.Now().Add(-time.Minute))
	seedChannelWithOffer(t, env, "buyer-2", time.Now().Add(-time.Minute))

	// A user action commits between the sweep's read and its write; that
	// channel is skipped and handled next round.
	env.channels.saveConflictOnce[failing.ID] = true

	assert.Equal(t, 1, expiry.Sweep(context.Background()))
	assert.Equal(t, 1, expiry.Sweep(context.Background()), "the skipped channel is picked up on the next sweep")
}

func TestAcceptAfterExpiry(t *testing.T) {
	env := newTestEnv(entity.ChannelModeListing)
	expiry := NewExpiryUseCase(env.channels, env.conversations, service.NewOfferMachine(48*time.Hour))

	channel := seedChannelWithOffer(t, env, "buyer-1", time.Now().Add(-time.Minute))
	expiry.Sweep(context.Background())

	_, err := env.uc.AcceptOffer(context.Background(), "seller-1", channel.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NO_ACTIVE_OFFER"))
}
