package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"dialist/internal/domain/entity"
	"dialist/internal/domain/repository"
	"dialist/internal/domain/service"
	"dialist/pkg/errors"
)

// NegotiationUseCase orchestrates the channel lifecycle: resolve or
// create the channel for the identity key, run the offer state machine
// on the loaded snapshot, persist, and emit side-effect intents after
// the state is committed.
type NegotiationUseCase struct {
	channelRepo    repository.ChannelRepository
	listingRepo    repository.ListingRepository
	orderRepo      repository.OrderRepository
	userRepo       repository.UserRepository
	conversations  Conversations
	notifier       Notifier
	machine        *service.OfferMachine
	mode           string
	reservationTTL time.Duration
}

func NewNegotiationUseCase(
	channelRepo repository.ChannelRepository,
	listingRepo repository.ListingRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	conversations Conversations,
	notifier Notifier,
	machine *service.OfferMachine,
	mode string,
	reservationTTL time.Duration,
) *NegotiationUseCase {
	return &NegotiationUseCase{
		channelRepo:    channelRepo,
		listingRepo:    listingRepo,
		orderRepo:      orderRepo,
		userRepo:       userRepo,
		conversations:  conversations,
		notifier:       notifier,
		machine:        machine,
		mode:           mode,
		reservationTTL: reservationTTL,
	}
}

type InquireInput struct {
	ListingID string
	Message   string
}

type SendOfferInput struct {
	ListingID string
	Amount    int64
	Message   string
}

type CounterOfferInput struct {
	Amount  int64
	Message string
}

type AcceptResult struct {
	Channel *entity.Channel `json:"channel"`
	Order   *entity.Order   `json:"order"`
}

// Inquire resolves or creates the channel for the listing's identity key
// and appends the inquiry. A reused pair-mode channel is rebound to the
// newest listing: its listing reference and snapshot are overwritten
// while the accumulated inquiry and offer history stays.
func (uc *NegotiationUseCase) Inquire(ctx context.Context, userID string, input InquireInput) (*entity.Channel, error) {
	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.DialistID == userID {
		return nil, errors.BadRequest("You cannot inquire on your own listing", nil)
	}

	inquiry := entity.Inquiry{
		ID:        uuid.New().String(),
		SenderID:  userID,
		ListingID: listing.ID,
		Message:   input.Message,
		CreatedAt: time.Now(),
	}

	channel, err := uc.resolveOrCreate(ctx, userID, listing, func(c *entity.Channel) error {
		c.Inquiries = append(c.Inquiries, inquiry)
		c.LastEventType = entity.EventInquiry
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.emitEvent(ctx, channel, "inquiry", fmt.Sprintf("New inquiry on %s", channel.Listing.Title), userID, map[string]interface{}{
		"inquiry_id": inquiry.ID,
		"listing_id": listing.ID,
	})
	uc.notify(ctx, uc.counterpart(channel, userID), "inquiry", "New inquiry",
		fmt.Sprintf("You have a new inquiry on %s", channel.Listing.Title),
		map[string]string{"channel_id": channel.ID, "listing_id": listing.ID})

	return channel, nil
}

// SendOffer places an initial offer, creating the channel when the buyer
// has no thread with this seller (or listing, depending on mode) yet.
func (uc *NegotiationUseCase) SendOffer(ctx context.Context, userID string, input SendOfferInput) (*entity.Channel, error) {
	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.DialistID == userID {
		return nil, errors.State("SELF_OFFER", "You cannot send an offer on your own listing")
	}

	channel, err := uc.resolveOrCreate(ctx, userID, listing, func(c *entity.Channel) error {
		_, err := uc.machine.SendInitial(c, listing, userID, input.Amount, input.Message)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.emitOfferEvent(ctx, channel, "offer", userID)
	uc.notify(ctx, channel.SellerID, "offer", "New offer",
		fmt.Sprintf("You received an offer of %d on %s", input.Amount, channel.Listing.Title),
		map[string]string{"channel_id": channel.ID, "listing_id": listing.ID})

	return channel, nil
}

// CounterOffer supersedes the outstanding offer with a counter from the
// other party.
func (uc *NegotiationUseCase) CounterOffer(ctx context.Context, userID, channelID string, input CounterOfferInput) (*entity.Channel, error) {
	channel, err := uc.applyAndSave(ctx, channelID, func(c *entity.Channel) error {
		_, err := uc.machine.Counter(c, userID, input.Amount, input.Message)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.emitOfferEvent(ctx, channel, "counter_offer", userID)
	uc.notify(ctx, uc.counterpart(channel, userID), "counter_offer", "Counter offer",
		fmt.Sprintf("You received a counter offer of %d on %s", input.Amount, channel.Listing.Title),
		map[string]string{"channel_id": channel.ID})

	return channel, nil
}

// AcceptOffer commits the accept atomically with the listing reservation
// and the order record. When the listing was already reserved through
// another channel the whole accept rolls back and the caller gets
// LISTING_UNAVAILABLE.
func (uc *NegotiationUseCase) AcceptOffer(ctx context.Context, userID, channelID string) (*AcceptResult, error) {
	channel, err := uc.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var order *entity.Order
	for attempt := 0; ; attempt++ {
		if _, err := uc.machine.Accept(channel, userID); err != nil {
			return nil, err
		}

		order, err = uc.orderRepo.Reserve(ctx, channel, uc.reservationTTL)
		if err == nil {
			break
		}
		if attempt == 0 && errors.Is(err, "CONFLICT") {
			channel, err = uc.channelRepo.GetByID(ctx, channelID)
			if err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}

	uc.emitEvent(ctx, channel, "offer_accepted",
		fmt.Sprintf("Offer of %d accepted, listing reserved", channel.LastOffer.Amount),
		userID, map[string]interface{}{
			"offer_id": channel.LastOffer.ID,
			"order_id": order.ID,
			"amount":   channel.LastOffer.Amount,
		})
	uc.notify(ctx, uc.counterpart(channel, userID), "offer_accepted", "Offer accepted",
		fmt.Sprintf("Your offer of %d on %s was accepted", channel.LastOffer.Amount, channel.Listing.Title),
		map[string]string{"channel_id": channel.ID, "order_id": order.ID})

	return &AcceptResult{Channel: channel, Order: order}, nil
}

// RejectOffer declines the outstanding offer. The declined offer stays
// in the slot with its terminal status for display.
func (uc *NegotiationUseCase) RejectOffer(ctx context.Context, userID, channelID string) (*entity.Channel, error) {
	channel, err := uc.applyAndSave(ctx, channelID, func(c *entity.Channel) error {
		_, err := uc.machine.Reject(c, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.emitOfferEvent(ctx, channel, "offer_rejected", userID)
	uc.notify(ctx, uc.counterpart(channel, userID), "offer_rejected", "Offer declined",
		fmt.Sprintf("Your offer of %d on %s was declined", channel.LastOffer.Amount, channel.Listing.Title),
		map[string]string{"channel_id": channel.ID})

	return channel, nil
}

func (uc *NegotiationUseCase) GetChannel(ctx context.Context, userID, channelID string) (*entity.Channel, error) {
	channel, err := uc.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this channel", nil)
	}
	return channel, nil
}

func (uc *NegotiationUseCase) ListUserChannels(ctx context.Context, userID, role string, limit, offset int) ([]*entity.Channel, int64, error) {
	if role != "" && role != entity.RoleBuyer && role != entity.RoleSeller {
		return nil, 0, errors.BadRequest("Role must be buyer or seller", nil)
	}
	return uc.channelRepo.ListByUser(ctx, userID, role, limit, offset)
}

// ListListingChannels returns every negotiation thread on a listing,
// restricted to the listing owner.
func (uc *NegotiationUseCase) ListListingChannels(ctx context.Context, userID, listingID string) ([]*entity.Channel, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.DialistID != userID {
		return nil, errors.Forbidden("Only the listing owner can list its channels", nil)
	}
	return uc.channelRepo.ListByListing(ctx, listingID)
}

// resolveOrCreate finds the channel for the identity key or builds and
// persists a new one, applying the transition either way. Two racing
// creators are disambiguated by the repository's uniqueness key: the
// loser's create fails with CONFLICT and falls back to the reuse path.
func (uc *NegotiationUseCase) resolveOrCreate(ctx context.Context, buyerID string, listing *entity.Listing, apply func(*entity.Channel) error) (*entity.Channel, error) {
	channel, err := uc.channelRepo.FindExisting(ctx, uc.mode, listing.ID, buyerID, listing.DialistID)
	if err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			return nil, err
		}

		channel, err = uc.buildChannel(ctx, buyerID, listing)
		if err != nil {
			return nil, err
		}
		if err := apply(channel); err != nil {
			return nil, err
		}

		// The conversation binding is established before the local record
		// so a persisted channel always has a communication target.
		conversationID, err := uc.conversations.EnsureConversation(ctx, channel)
		if err != nil {
			return nil, errors.Transient("Failed to establish conversation", err)
		}
		channel.ConversationID = conversationID

		err = uc.channelRepo.Create(ctx, channel)
		if err == nil {
			return channel, nil
		}
		if !errors.Is(err, "CONFLICT") {
			return nil, err
		}

		channel, err = uc.channelRepo.FindExisting(ctx, uc.mode, listing.ID, buyerID, listing.DialistID)
		if err != nil {
			return nil, err
		}
	}

	return uc.saveReused(ctx, channel, listing, apply)
}

// saveReused applies the transition to an existing channel and saves it,
// re-reading and re-applying once when the optimistic write loses.
func (uc *NegotiationUseCase) saveReused(ctx context.Context, channel *entity.Channel, listing *entity.Listing, apply func(*entity.Channel) error) (*entity.Channel, error) {
	for attempt := 0; ; attempt++ {
		uc.rebindListing(channel, listing)
		if err := apply(channel); err != nil {
			return nil, err
		}

		err := uc.channelRepo.Save(ctx, channel)
		if err == nil {
			return channel, nil
		}
		if attempt == 0 && errors.Is(err, "CONFLICT") {
			channel, err = uc.channelRepo.GetByID(ctx, channel.ID)
			if err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
}

// applyAndSave is saveReused for channel-addressed operations that need
// no listing rebinding.
func (uc *NegotiationUseCase) applyAndSave(ctx context.Context, channelID string, apply func(*entity.Channel) error) (*entity.Channel, error) {
	channel, err := uc.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if err := apply(channel); err != nil {
			return nil, err
		}

		err := uc.channelRepo.Save(ctx, channel)
		if err == nil {
			return channel, nil
		}
		if attempt == 0 && errors.Is(err, "CONFLICT") {
			channel, err = uc.channelRepo.GetByID(ctx, channelID)
			if err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
}

func (uc *NegotiationUseCase) buildChannel(ctx context.Context, buyerID string, listing *entity.Listing) (*entity.Channel, error) {
	buyer, err := uc.userRepo.GetByID(ctx, buyerID)
	if err != nil {
		return nil, errors.NotFound("Buyer", err)
	}
	seller, err := uc.userRepo.GetByID(ctx, listing.DialistID)
	if err != nil {
		return nil, errors.NotFound("Seller", err)
	}

	return &entity.Channel{
		ID:           entity.ChannelKeyID(uc.mode, listing.ID, buyerID, listing.DialistID),
		Mode:         uc.mode,
		Participants: []string{buyerID, listing.DialistID},
		BuyerID:      buyerID,
		SellerID:     listing.DialistID,
		Buyer:        buyer.ParticipantSnapshot(entity.RoleBuyer),
		Seller:       seller.ParticipantSnapshot(entity.RoleSeller),
		ListingID:    listing.ID,
		Listing:      listing.Snapshot(),
		Status:       entity.ChannelStatusOpen,
	}, nil
}

// rebindListing points a reused pair-mode channel at the most recent
// listing context. Listing-scoped channels always match their listing.
func (uc *NegotiationUseCase) rebindListing(channel *entity.Channel, listing *entity.Listing) {
	if channel.Mode != entity.ChannelModePair || channel.ListingID == listing.ID {
		return
	}
	channel.ListingID = listing.ID
	channel.Listing = listing.Snapshot()
}

func (uc *NegotiationUseCase) counterpart(channel *entity.Channel, userID string) string {
	if userID == channel.BuyerID {
		return channel.SellerID
	}
	return channel.BuyerID
}

func (uc *NegotiationUseCase) emitOfferEvent(ctx context.Context, channel *entity.Channel, eventType, actorID string) {
	offer := channel.LastOffer
	if offer == nil {
		return
	}
	uc.emitEvent(ctx, channel, eventType,
		fmt.Sprintf("Offer of %d (%s)", offer.Amount, offer.Status),
		actorID, map[string]interface{}{
			"offer_id":   offer.ID,
			"amount":     offer.Amount,
			"status":     offer.Status,
			"offer_type": offer.Type,
			"expires_at": offer.ExpiresAt,
		})
}

// emitEvent and notify run after the state change is committed; their
// failures are logged and swallowed so delivery problems never undo a
// committed negotiation step.
func (uc *NegotiationUseCase) emitEvent(ctx context.Context, channel *entity.Channel, eventType, content, actorID string, metadata map[string]interface{}) {
	if channel.ConversationID == "" {
		return
	}
	if err := uc.conversations.PostSystemEvent(ctx, channel.ConversationID, eventType, content, actorID, metadata); err != nil {
		log.Printf("Failed to post %s event for channel %s: %v", eventType, channel.ID, err)
	}
}

func (uc *NegotiationUseCase) notify(ctx context.Context, userID, kind, title, body string, data map[string]string) {
	if err := uc.notifier.Notify(ctx, userID, kind, title, body, data); err != nil {
		log.Printf("Failed to notify user %s (%s): %v", userID, kind, err)
	}
}
