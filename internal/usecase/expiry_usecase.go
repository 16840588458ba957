package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"dialist/internal/domain/repository"
	"dialist/internal/domain/service"
	"dialist/pkg/logger"
)

const sweepBatchSize = 100

// ExpiryUseCase drives channels whose outstanding offer passed its
// expiry timestamp through the expire transition. It runs on a fixed
// period independent of request traffic and shares the live paths'
// optimistic-concurrency discipline: if a user action commits first the
// sweep's write loses and the channel is simply picked up next round.
type ExpiryUseCase struct {
	channelRepo   repository.ChannelRepository
	conversations Conversations
	machine       *service.OfferMachine

	// running keeps a sweep from overlapping itself; a trigger while one
	// is in flight is a no-op, not queued.
	running atomic.Bool
}

func NewExpiryUseCase(channelRepo repository.ChannelRepository, conversations Conversations, machine *service.OfferMachine) *ExpiryUseCase {
	return &ExpiryUseCase{
		channelRepo:   channelRepo,
		conversations: conversations,
		machine:       machine,
	}
}

// Sweep expires every overdue offer it can find. Individual channel
// failures are logged and skipped, never aborting the batch. Returns the
// number of offers expired.
func (uc *ExpiryUseCase) Sweep(ctx context.Context) int {
	if !uc.running.CompareAndSwap(false, true) {
		logger.Debug("Expiry sweep already in progress, skipping trigger")
		return 0
	}
	defer uc.running.Store(false)

	channels, err := uc.channelRepo.ListExpiring(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		logger.Error("Expiry sweep query failed: %v", err)
		return 0
	}

	expiredCount := 0
	for _, channel := range channels {
		offer := uc.machine.Expire(channel)
		if offer == nil {
			continue
		}

		if err := uc.channelRepo.Save(ctx, channel); err != nil {
			logger.LogChannelError(channel.ID, "expire", err)
			continue
		}
		expiredCount++

		if channel.ConversationID != "" {
			if err := uc.conversations.PostSystemEvent(ctx, channel.ConversationID, "offer_expired",
				"The offer expired without a response", "", map[string]interface{}{
					"offer_id": offer.ID,
					"amount":   offer.Amount,
				}); err != nil {
				logger.LogChannelError(channel.ID, "expire_event", err)
			}
		}
	}

	if expiredCount > 0 {
		logger.Info("Expiry sweep processed: %d offers expired", expiredCount)
	}
	return expiredCount
}

// StartSweepJob runs Sweep on the given period until the context is
// cancelled.
func (uc *ExpiryUseCase) StartSweepJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				uc.Sweep(ctx)
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	logger.Info("Offer expiry sweep started (every %s)", interval)
}
