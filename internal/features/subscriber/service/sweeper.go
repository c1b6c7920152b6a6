package service

import (
	"context"
	"sync"
	"time"

	"subgate-bot/internal/common/logger"
	"subgate-bot/internal/features/subscriber/models"
	"subgate-bot/internal/features/subscriber/repository"
	"subgate-bot/internal/service/gate"
)

// renewalWarning is how close to expiry a subscriber starts receiving
// renewal reminders. Reminders are not deduplicated; at the default
// 5-minute cadence that bounds them at 12 per hour per subscriber.
const renewalWarning = time.Hour

// AccessGate is the channel-membership surface the sweeper needs.
type AccessGate interface {
	IsMember(userID int64) bool
	Evict(userID int64) gate.Outcome
}

// Notifier delivers sweep-driven user messages. Both calls are
// best-effort; delivery failure is the implementation's problem to log.
type Notifier interface {
	SubscriptionExpired(userID int64)
	SubscriptionExpiring(userID int64, left time.Duration)
}

// Sweeper is the single periodic reconciliation loop: it demotes expired
// subscribers, evicts them from the gated channel and warns subscribers
// nearing expiry. Every pass is idempotent and safe to overlap.
type Sweeper struct {
	ctx      context.Context
	cancel   context.CancelFunc
	repo     repository.SubscriberRepository
	gate     AccessGate
	notifier Notifier
	interval time.Duration
	wg       sync.WaitGroup
}

func NewSweeper(repo repository.SubscriberRepository, g AccessGate, notifier Notifier, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		ctx:      ctx,
		cancel:   cancel,
		repo:     repo,
		gate:     g,
		notifier: notifier,
		interval: interval,
	}
}

func (s *Sweeper) Start() {
	logger.Info().Dur("interval", s.interval).Msg("Starting subscription sweeper")
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Sweep(s.ctx, time.Now())
		for {
			select {
			case <-ticker.C:
				s.Sweep(s.ctx, time.Now())
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	logger.Info().Msg("Stopping subscription sweeper")
	s.cancel()
	s.wg.Wait()
	logger.Info().Msg("Subscription sweeper stopped")
}

// Sweep runs one reconciliation pass at the given instant. One failing
// subscriber or external call never aborts the remaining work.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) {
	subs, err := s.repo.ListPaid(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Sweep: listing paid subscribers failed")
		return
	}

	for i := range subs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.reconcile(ctx, &subs[i], now)
	}
}

func (s *Sweeper) reconcile(ctx context.Context, sub *models.Subscriber, now time.Time) {
	if !sub.Expired(now) {
		if left := sub.Remaining(now); left <= renewalWarning {
			logger.Info().Int64("user_id", sub.UserID).Dur("left", left).Msg("Subscription expiring soon, sending reminder")
			s.notifier.SubscriptionExpiring(sub.UserID, left)
		}
		return
	}

	// Demotion comes first and does not depend on any gate call: store
	// state must never stay on a stale paid tier because the platform
	// was unreachable.
	if err := s.repo.SetLabel(ctx, sub.UserID, models.LabelBasic); err != nil {
		logger.Error().Err(err).Int64("user_id", sub.UserID).Msg("Sweep: demoting expired subscriber failed")
	} else {
		logger.Info().Int64("user_id", sub.UserID).Str("label", string(sub.Label)).Msg("Subscription expired, label collapsed")
	}

	if !s.gate.IsMember(sub.UserID) {
		return
	}
	outcome := s.gate.Evict(sub.UserID)
	logger.Info().Int64("user_id", sub.UserID).Str("outcome", outcome.String()).Msg("Evicted expired subscriber from channel")
	if outcome != gate.OutcomeFailed {
		s.notifier.SubscriptionExpired(sub.UserID)
	}
}
