package service

import (
	"time"

	"github.com/google/uuid"

	"dialist/internal/domain/entity"
	"dialist/pkg/errors"
)

// OfferMachine holds the pure transition rules for a channel's
// current-offer slot. It never performs I/O: every method takes a channel
// snapshot the caller has already loaded, mutates it in memory and
// returns the offer that changed. Persisting the result, and retrying on
// a stale snapshot, is the caller's job.
//
// A single offer moves sent -> accepted | declined | expired | superseded,
// all terminal. A terminal offer stays in the slot for display until a
// new offer replaces it; it is appended to the history exactly once, at
// the moment it turns terminal.
type OfferMachine struct {
	offerTTL time.Duration
	now      func() time.Time
}

func NewOfferMachine(offerTTL time.Duration) *OfferMachine {
	return &OfferMachine{
		offerTTL: offerTTL,
		now:      time.Now,
	}
}

// SendInitial validates and installs a buyer's first offer on a channel.
// The channel may be freshly built and not yet persisted.
func (m *OfferMachine) SendInitial(channel *entity.Channel, listing *entity.Listing, buyerID string, amount int64, message string) (*entity.Offer, error) {
	if listing.Status != entity.ListingStatusActive {
		return nil, errors.State("LISTING_NOT_ACTIVE", "Listing is not available for offers")
	}
	if !listing.AllowOffers {
		return nil, errors.State("OFFERS_DISABLED", "Seller does not accept offers on this listing")
	}
	if buyerID == listing.DialistID {
		return nil, errors.State("SELF_OFFER", "You cannot send an offer on your own listing")
	}
	if amount <= 0 || amount >= listing.Price {
		return nil, errors.State("INVALID_AMOUNT", "Offer amount must be positive and below the asking price")
	}
	if channel.Status == entity.ChannelStatusClosed {
		return nil, errors.State("CHANNEL_CLOSED", "Channel is closed")
	}

	now := m.now()
	if channel.ActiveOffer(now) != nil {
		return nil, errors.State("OFFER_IN_FLIGHT", "An offer is already outstanding on this channel")
	}

	m.retireStaleOffer(channel, now)

	offer := m.newOffer(buyerID, amount, message, entity.OfferTypeInitial, now)
	m.install(channel, offer, now)
	return offer, nil
}

// Counter replaces the outstanding offer with a counter from the other
// party. Counters must move toward the opponent's last number: a buyer
// may not go above the current amount, a seller may not go below it.
func (m *OfferMachine) Counter(channel *entity.Channel, actorID string, amount int64, message string) (*entity.Offer, error) {
	if channel.Status == entity.ChannelStatusClosed {
		return nil, errors.State("CHANNEL_CLOSED", "Channel is closed")
	}

	now := m.now()
	current := channel.ActiveOffer(now)
	if current == nil {
		return nil, errors.State("NO_ACTIVE_OFFER", "There is no outstanding offer to counter")
	}

	role := channel.RoleOf(actorID)
	if role == "" {
		return nil, errors.Forbidden("You are not a participant of this channel", nil)
	}
	if actorID == current.SenderID {
		return nil, errors.State("OWN_OFFER", "You cannot counter your own offer")
	}
	if amount <= 0 {
		return nil, errors.State("INVALID_AMOUNT", "Counter amount must be positive")
	}
	if role == entity.RoleBuyer && amount > current.Amount {
		return nil, errors.State("INVALID_COUNTER_DIRECTION", "A buyer counter cannot exceed the current offer")
	}
	if role == entity.RoleSeller && amount < current.Amount {
		return nil, errors.State("INVALID_COUNTER_DIRECTION", "A seller counter cannot undercut the current offer")
	}

	m.terminate(channel, entity.OfferStatusSuperseded, now)

	offer := m.newOffer(actorID, amount, message, entity.OfferTypeCounter, now)
	m.install(channel, offer, now)
	return offer, nil
}

// Accept marks the outstanding offer accepted. The caller must commit
// the channel together with the listing flip and the order record in one
// transaction.
func (m *OfferMachine) Accept(channel *entity.Channel, actorID string) (*entity.Offer, error) {
	if channel.Status == entity.ChannelStatusClosed {
		return nil, errors.State("CHANNEL_CLOSED", "Channel is closed")
	}

	now := m.now()
	current := channel.ActiveOffer(now)
	if current == nil {
		return nil, errors.State("NO_ACTIVE_OFFER", "There is no outstanding offer to accept")
	}
	if channel.RoleOf(actorID) == "" {
		return nil, errors.Forbidden("You are not a participant of this channel", nil)
	}
	if actorID == current.SenderID {
		return nil, errors.State("OWN_OFFER", "You cannot accept your own offer")
	}

	m.terminate(channel, entity.OfferStatusAccepted, now)
	channel.LastEventType = entity.EventOrder
	return channel.LastOffer, nil
}

// Reject marks the outstanding offer declined. The slot keeps the
// declined offer so the thread still shows it; it no longer counts as
// active.
func (m *OfferMachine) Reject(channel *entity.Channel, actorID string) (*entity.Offer, error) {
	if channel.Status == entity.ChannelStatusClosed {
		return nil, errors.State("CHANNEL_CLOSED", "Channel is closed")
	}

	now := m.now()
	current := channel.ActiveOffer(now)
	if current == nil {
		return nil, errors.State("NO_ACTIVE_OFFER", "There is no outstanding offer to reject")
	}
	if channel.RoleOf(actorID) == "" {
		return nil, errors.Forbidden("You are not a participant of this channel", nil)
	}
	if actorID == current.SenderID {
		return nil, errors.State("OWN_OFFER", "You cannot reject your own offer")
	}

	m.terminate(channel, entity.OfferStatusDeclined, now)
	return channel.LastOffer, nil
}

// Expire is the system-driven transition for an offer past its expiry.
// It returns nil when there is nothing to do.
func (m *OfferMachine) Expire(channel *entity.Channel) *entity.Offer {
	now := m.now()
	if channel.LastOffer == nil || channel.LastOffer.Status != entity.OfferStatusSent {
		return nil
	}
	if now.Before(channel.LastOffer.ExpiresAt) {
		return nil
	}

	m.terminate(channel, entity.OfferStatusExpired, now)
	return channel.LastOffer
}

func (m *OfferMachine) newOffer(senderID string, amount int64, message, offerType string, now time.Time) *entity.Offer {
	return &entity.Offer{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Amount:    amount,
		Message:   message,
		Type:      offerType,
		Status:    entity.OfferStatusSent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.offerTTL),
	}
}

func (m *OfferMachine) install(channel *entity.Channel, offer *entity.Offer, now time.Time) {
	channel.LastOffer = offer
	channel.LastEventType = entity.EventOffer
	channel.UpdatedAt = now
	channel.SyncOfferIndex()
}

// terminate moves the slot offer to the given terminal status and
// appends it to the history. The slot retains the terminal offer.
func (m *OfferMachine) terminate(channel *entity.Channel, status string, now time.Time) {
	offer := channel.LastOffer
	offer.Status = status
	channel.OfferHistory = append(channel.OfferHistory, *offer)
	channel.UpdatedAt = now
	channel.SyncOfferIndex()
}

// retireStaleOffer terminalizes a slot offer that is still "sent" but
// past its expiry before a new offer is installed, so it reaches the
// history with a terminal status instead of being silently overwritten.
// Already-terminal slot occupants were appended when they terminated and
// are simply replaced.
func (m *OfferMachine) retireStaleOffer(channel *entity.Channel, now time.Time) {
	if channel.LastOffer == nil || channel.LastOffer.Status != entity.OfferStatusSent {
		return
	}
	m.terminate(channel, entity.OfferStatusExpired, now)
}
