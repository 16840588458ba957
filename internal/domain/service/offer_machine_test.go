package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialist/internal/domain/entity"
	"dialist/pkg/errors"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestMachine() (*OfferMachine, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := NewOfferMachine(48 * time.Hour)
	m.now = func() time.Time { return clock.t }
	return m, clock
}

func newTestListing() *entity.Listing {
	return &entity.Listing{
		ID:          "listing-1",
		DialistID:   "seller-1",
		Title:       "Submariner 16610",
		Price:       1000,
		AllowOffers: true,
		Status:      entity.ListingStatusActive,
	}
}

func newTestChannel(listing *entity.Listing) *entity.Channel {
	return &entity.Channel{
		ID:           entity.ChannelKeyID(entity.ChannelModeListing, listing.ID, "buyer-1", "seller-1"),
		Mode:         entity.ChannelModeListing,
		Participants: []string{"buyer-1", "seller-1"},
		BuyerID:      "buyer-1",
		SellerID:     "seller-1",
		ListingID:    listing.ID,
		Listing:      listing.Snapshot(),
		Status:       entity.ChannelStatusOpen,
	}
}

func TestSendInitial(t *testing.T) {
	m, clock := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	offer, err := m.SendInitial(channel, listing, "buyer-1", 800, "would you take 800?")
	require.NoError(t, err)

	assert.Equal(t, int64(800), offer.Amount)
	assert.Equal(t, entity.OfferTypeInitial, offer.Type)
	assert.Equal(t, entity.OfferStatusSent, offer.Status)
	assert.Equal(t, clock.t.Add(48*time.Hour), offer.ExpiresAt)
	assert.Equal(t, offer, channel.LastOffer)
	assert.Equal(t, entity.EventOffer, channel.LastEventType)
	assert.Empty(t, channel.OfferHistory)
	assert.Equal(t, entity.OfferStatusSent, channel.ActiveOfferStatus)
	require.NotNil(t, channel.ActiveOfferExpiresAt)
}

func TestSendInitialPreconditions(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(listing *entity.Listing, channel *entity.Channel)
		buyerID  string
		amount   int64
		wantCode string
	}{
		{
			name:     "listing not active",
			mutate:   func(l *entity.Listing, c *entity.Channel) { l.Status = entity.ListingStatusReserved },
			buyerID:  "buyer-1",
			amount:   800,
			wantCode: "LISTING_NOT_ACTIVE",
		},
		{
			name:     "offers disabled",
			mutate:   func(l *entity.Listing, c *entity.Channel) { l.AllowOffers = false },
			buyerID:  "buyer-1",
			amount:   800,
			wantCode: "OFFERS_DISABLED",
		},
		{
			name:     "owner offers on own listing",
			mutate:   func(l *entity.Listing, c *entity.Channel) {},
			buyerID:  "seller-1",
			amount:   800,
			wantCode: "SELF_OFFER",
		},
		{
			name:     "amount at asking price",
			mutate:   func(l *entity.Listing, c *entity.Channel) {},
			buyerID:  "buyer-1",
			amount:   1000,
			wantCode: "INVALID_AMOUNT",
		},
		{
			name:     "amount zero",
			mutate:   func(l *entity.Listing, c *entity.Channel) {},
			buyerID:  "buyer-1",
			amount:   0,
			wantCode: "INVALID_AMOUNT",
		},
		{
			name:     "channel closed",
			mutate:   func(l *entity.Listing, c *entity.Channel) { c.Status = entity.ChannelStatusClosed },
			buyerID:  "buyer-1",
			amount:   800,
			wantCode: "CHANNEL_CLOSED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMachine()
			listing := newTestListing()
			channel := newTestChannel(listing)
			tt.mutate(listing, channel)

			_, err := m.SendInitial(channel, listing, tt.buyerID, tt.amount, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantCode), "want %s, got %v", tt.wantCode, err)
			assert.Nil(t, channel.LastOffer)
			assert.Empty(t, channel.OfferHistory)
		})
	}
}

func TestSendInitialWithOfferInFlight(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	_, err = m.SendInitial(channel, listing, "buyer-1", 850, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "OFFER_IN_FLIGHT"))
}

func TestSendInitialRetiresStaleOffer(t *testing.T) {
	m, clock := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	first, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	clock.advance(49 * time.Hour)

	second, err := m.SendInitial(channel, listing, "buyer-1", 850, "")
	require.NoError(t, err)

	assert.Equal(t, second, channel.LastOffer)
	require.Len(t, channel.OfferHistory, 1)
	assert.Equal(t, first.ID, channel.OfferHistory[0].ID)
	assert.Equal(t, entity.OfferStatusExpired, channel.OfferHistory[0].Status)
}

func TestCounterFlow(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	first, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	counter, err := m.Counter(channel, "seller-1", 900, "can do 900")
	require.NoError(t, err)

	assert.Equal(t, entity.OfferTypeCounter, counter.Type)
	assert.Equal(t, entity.OfferStatusSent, counter.Status)
	assert.Equal(t, counter, channel.LastOffer)

	require.Len(t, channel.OfferHistory, 1)
	assert.Equal(t, first.ID, channel.OfferHistory[0].ID)
	assert.Equal(t, entity.OfferStatusSuperseded, channel.OfferHistory[0].Status)
}

func TestCounterPreconditions(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.Counter(channel, "seller-1", 900, "")
	assert.True(t, errors.Is(err, "NO_ACTIVE_OFFER"))

	_, err = m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	_, err = m.Counter(channel, "stranger", 900, "")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = m.Counter(channel, "buyer-1", 750, "")
	assert.True(t, errors.Is(err, "OWN_OFFER"))

	channel.Status = entity.ChannelStatusClosed
	_, err = m.Counter(channel, "seller-1", 900, "")
	assert.True(t, errors.Is(err, "CHANNEL_CLOSED"))
}

func TestCounterDirection(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	// Seller may not undercut the buyer's number.
	_, err = m.Counter(channel, "seller-1", 700, "")
	assert.True(t, errors.Is(err, "INVALID_COUNTER_DIRECTION"))

	_, err = m.Counter(channel, "seller-1", 900, "")
	require.NoError(t, err)

	// Buyer may not go above the seller's counter at 900.
	_, err = m.Counter(channel, "buyer-1", 950, "")
	assert.True(t, errors.Is(err, "INVALID_COUNTER_DIRECTION"))

	_, err = m.Counter(channel, "buyer-1", 850, "")
	require.NoError(t, err)
}

func TestCounterEqualAmount(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	// Matching the outstanding amount is not a direction violation: the
	// seller may re-state 800 as a counter instead of accepting.
	counter, err := m.Counter(channel, "seller-1", 800, "")
	require.NoError(t, err)

	assert.Equal(t, int64(800), counter.Amount)
	assert.Equal(t, "seller-1", counter.SenderID)
	assert.Equal(t, counter, channel.LastOffer)
	require.Len(t, channel.OfferHistory, 1)
	assert.Equal(t, entity.OfferStatusSuperseded, channel.OfferHistory[0].Status)
}

func TestMonotonicCounterSequence(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 700, "")
	require.NoError(t, err)

	amounts := []struct {
		actor  string
		amount int64
	}{
		{"seller-1", 950},
		{"buyer-1", 800},
		{"seller-1", 950},
		{"buyer-1", 850},
		{"seller-1", 900},
	}
	for _, step := range amounts {
		_, err := m.Counter(channel, step.actor, step.amount, "")
		require.NoError(t, err, "counter %d by %s", step.amount, step.actor)
	}

	// Every buyer counter stays at or below the amount it countered,
	// every seller counter at or above: the sequence never moves away
	// from agreement.
	sequence := append([]entity.Offer{}, channel.OfferHistory...)
	sequence = append(sequence, *channel.LastOffer)
	for i := 1; i < len(sequence); i++ {
		prev, cur := sequence[i-1], sequence[i]
		if cur.SenderID == "buyer-1" {
			assert.LessOrEqual(t, cur.Amount, prev.Amount)
		} else {
			assert.GreaterOrEqual(t, cur.Amount, prev.Amount)
		}
	}

	sent := 0
	for _, o := range channel.OfferHistory {
		if o.Status == entity.OfferStatusSent {
			sent++
		}
	}
	assert.Zero(t, sent, "history must only hold terminal offers")
	assert.Equal(t, entity.OfferStatusSent, channel.LastOffer.Status)
}

func TestAccept(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)
	_, err = m.Counter(channel, "seller-1", 900, "")
	require.NoError(t, err)

	accepted, err := m.Accept(channel, "buyer-1")
	require.NoError(t, err)

	assert.Equal(t, entity.OfferStatusAccepted, accepted.Status)
	assert.Equal(t, int64(900), accepted.Amount)
	assert.Equal(t, accepted, channel.LastOffer)
	assert.Equal(t, entity.EventOrder, channel.LastEventType)

	// Both superseded 800 and accepted 900 are in the history.
	require.Len(t, channel.OfferHistory, 2)
	assert.Equal(t, entity.OfferStatusSuperseded, channel.OfferHistory[0].Status)
	assert.Equal(t, entity.OfferStatusAccepted, channel.OfferHistory[1].Status)
}

func TestAcceptPreconditions(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.Accept(channel, "seller-1")
	assert.True(t, errors.Is(err, "NO_ACTIVE_OFFER"))

	_, err = m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	_, err = m.Accept(channel, "stranger")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = m.Accept(channel, "buyer-1")
	assert.True(t, errors.Is(err, "OWN_OFFER"))
}

func TestAcceptExpiredOffer(t *testing.T) {
	m, clock := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	clock.advance(48*time.Hour + time.Minute)

	_, err = m.Accept(channel, "seller-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NO_ACTIVE_OFFER"))
}

func TestReject(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	declined, err := m.Reject(channel, "seller-1")
	require.NoError(t, err)

	assert.Equal(t, entity.OfferStatusDeclined, declined.Status)
	// The declined offer stays in the slot for display but is no longer
	// active, and is distinguishable from a channel that never had one.
	require.NotNil(t, channel.LastOffer)
	assert.Equal(t, entity.OfferStatusDeclined, channel.LastOffer.Status)
	assert.Nil(t, channel.ActiveOffer(time.Now()))
	assert.Empty(t, channel.ActiveOfferStatus, "the offer index only reflects a live offer")
	require.Len(t, channel.OfferHistory, 1)

	// A fresh offer can follow a declined one.
	offer, err := m.SendInitial(channel, listing, "buyer-1", 850, "")
	require.NoError(t, err)
	assert.Equal(t, offer, channel.LastOffer)
	assert.Len(t, channel.OfferHistory, 1, "declined offer must not be re-appended")
}

func TestExpire(t *testing.T) {
	m, clock := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	assert.Nil(t, m.Expire(channel), "no offer, nothing to expire")

	_, err := m.SendInitial(channel, listing, "buyer-1", 800, "")
	require.NoError(t, err)

	assert.Nil(t, m.Expire(channel), "offer still live")

	clock.advance(48*time.Hour + time.Minute)

	expired := m.Expire(channel)
	require.NotNil(t, expired)
	assert.Equal(t, entity.OfferStatusExpired, expired.Status)
	require.Len(t, channel.OfferHistory, 1)
	assert.Equal(t, entity.OfferStatusExpired, channel.OfferHistory[0].Status)
	assert.Empty(t, channel.ActiveOfferStatus)
	assert.Empty(t, channel.ActiveOfferExpiresAt)

	assert.Nil(t, m.Expire(channel), "terminal offers never transition again")
}

func TestSingleActiveOfferInvariant(t *testing.T) {
	m, _ := newTestMachine()
	listing := newTestListing()
	channel := newTestChannel(listing)

	checkInvariant := func() {
		sent := 0
		if channel.LastOffer != nil && channel.LastOffer.Status == entity.OfferStatusSent {
			sent++
		}
		for _, o := range channel.OfferHistory {
			if o.Status == entity.OfferStatusSent {
				sent++
			}
		}
		assert.LessOrEqual(t, sent, 1)
	}

	_, err := m.SendInitial(channel, listing, "buyer-1", 700, "")
	require.NoError(t, err)
	checkInvariant()

	for i, step := range []struct {
		actor  string
		amount int64
	}{
		{"seller-1", 900}, {"buyer-1", 750}, {"seller-1", 880}, {"buyer-1", 800},
	} {
		_, err := m.Counter(channel, step.actor, step.amount, "")
		require.NoError(t, err, "step %d", i)
		checkInvariant()
	}

	_, err = m.Accept(channel, "seller-1")
	require.NoError(t, err)
	checkInvariant()
}

func TestChannelKeyID(t *testing.T) {
	assert.Equal(t,
		entity.ChannelKeyID(entity.ChannelModePair, "L1", "alice", "bob"),
		entity.ChannelKeyID(entity.ChannelModePair, "L2", "bob", "alice"),
		"pair key is unordered and ignores the listing")

	assert.NotEqual(t,
		entity.ChannelKeyID(entity.ChannelModeListing, "L1", "alice", "bob"),
		entity.ChannelKeyID(entity.ChannelModeListing, "L2", "alice", "bob"),
		"listing key scopes per listing")
}
