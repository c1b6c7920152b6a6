package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"subgate-bot/internal/common/logger"
	"subgate-bot/internal/features/payment/models"
	submodels "subgate-bot/internal/features/subscriber/models"
	"subgate-bot/internal/platform/yoomoney"
)

const (
	pollInterval = 20 * time.Second
	maxAttempts  = 30
	// Only settlements newer than this are considered a match; together
	// with the attempt budget this gives the purchase a 10-minute window.
	lookback = 10 * time.Minute
)

// Ledger is the external settlement ledger: submit a payment request,
// poll for settlement by correlation label.
type Ledger interface {
	RequestPayment(ctx context.Context, receiver string, amount int, targets, label string) (string, error)
	OperationHistory(ctx context.Context, label string, from time.Time) ([]yoomoney.Operation, error)
}

// Subscriptions is the slice of the subscriber lifecycle the settlement
// path drives.
type Subscriptions interface {
	Get(ctx context.Context, userID int64) (*submodels.Subscriber, error)
	Promote(ctx context.Context, userID int64, username string, label submodels.Label, duration time.Duration) (*submodels.Subscriber, error)
	Extend(ctx context.Context, userID int64, duration time.Duration) (time.Time, error)
}

// InviteIssuer mints or fetches the channel invite link handed to a
// fresh purchaser.
type InviteIssuer interface {
	Grant() (string, error)
}

// Messenger reports settlement results back to the user.
type Messenger interface {
	PaymentSucceeded(userID, chatID int64, end time.Time, inviteLink string)
	PaymentTimedOut(chatID int64)
}

// Service creates payment intents and watches the ledger for their
// settlement. Each purchase gets an independent polling task keyed by
// its correlation label; tasks never interfere with each other.
type Service struct {
	ctx     context.Context
	cancel  context.CancelFunc
	ledger  Ledger
	subs    Subscriptions
	invites InviteIssuer
	msg     Messenger

	receiver string
	interval time.Duration
	attempts int
	lookback time.Duration
	wg       sync.WaitGroup
}

func New(ledger Ledger, subs Subscriptions, invites InviteIssuer, msg Messenger, receiver string) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		ctx:      ctx,
		cancel:   cancel,
		ledger:   ledger,
		subs:     subs,
		invites:  invites,
		msg:      msg,
		receiver: receiver,
		interval: pollInterval,
		attempts: maxAttempts,
		lookback: lookback,
	}
}

// Stop cancels all in-flight settlement watchers. An abandoned watcher
// logs and leaves the purchase unpromoted; the design accepts that.
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// InitiatePurchase creates the payment request and spawns the settlement
// watcher. It returns the URL the user pays at.
func (s *Service) InitiatePurchase(ctx context.Context, userID, chatID int64, tierCode string, renewal bool) (string, error) {
	tier, err := models.TierByCode(tierCode)
	if err != nil {
		return "", err
	}

	label := models.CorrelationLabel{UserID: userID, TierCode: tierCode, Renewal: renewal}
	targets := fmt.Sprintf("Payment for %s", tier.Name)
	if renewal {
		targets = fmt.Sprintf("Renewal of %s", tier.Name)
	}

	payURL, err := s.ledger.RequestPayment(ctx, s.receiver, tier.Amount, targets, label.String())
	if err != nil {
		return "", fmt.Errorf("create payment request: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watchSettlement(label, chatID)
	}()

	return payURL, nil
}

// GrantDirect performs the promotion path without the external payment
// step. It backs the admin test-mode bypass and admin grants; the
// decision to use it is made per call, never from ambient state.
func (s *Service) GrantDirect(ctx context.Context, userID int64, username, tierCode string, renewal bool) (time.Time, error) {
	label := models.CorrelationLabel{UserID: userID, TierCode: tierCode, Renewal: renewal}
	return s.settle(ctx, label, username)
}

// CheckSettled is a one-shot, user-triggered settlement check with a
// wider lookback than the background watcher. It only reports; it never
// mutates subscription state; the watcher owns the promotion.
func (s *Service) CheckSettled(ctx context.Context, wire string) (bool, error) {
	ops, err := s.ledger.OperationHistory(ctx, wire, time.Now().Add(-30*time.Minute))
	if err != nil {
		return false, err
	}
	for i := range ops {
		if ops[i].Status == yoomoney.StatusSuccess && ops[i].Label == wire {
			return true, nil
		}
	}
	return false, nil
}

// watchSettlement polls the ledger for a settled transaction matching
// the correlation label exactly, then drives the subscription change and
// reports to the originating chat.
func (s *Service) watchSettlement(label models.CorrelationLabel, chatID int64) {
	taskID := uuid.NewString()
	wire := label.String()
	logger.Info().Str("task_id", taskID).Str("label", wire).Msg("Watching for settlement")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.attempts; attempt++ {
		op := s.findSettled(wire, taskID)
		if op != nil {
			username := ""
			if sub, err := s.subs.Get(s.ctx, label.UserID); err == nil {
				username = sub.Username
			}
			end, err := s.settle(s.ctx, label, username)
			if err != nil {
				logger.Error().Err(err).Str("task_id", taskID).Str("label", wire).Msg("Settlement found but promotion failed")
				return
			}

			invite, err := s.invites.Grant()
			if err != nil {
				logger.Error().Err(err).Str("task_id", taskID).Msg("Could not obtain invite link")
			}
			s.msg.PaymentSucceeded(label.UserID, chatID, end, invite)
			logger.Info().Str("task_id", taskID).Str("label", wire).Time("end", end).Msg("Settlement confirmed, subscription updated")
			return
		}

		select {
		case <-ticker.C:
		case <-s.ctx.Done():
			logger.Warn().Str("task_id", taskID).Str("label", wire).Msg("Settlement watcher cancelled, purchase abandoned")
			return
		}
	}

	logger.Info().Str("task_id", taskID).Str("label", wire).Msg("Settlement never arrived, giving up")
	s.msg.PaymentTimedOut(chatID)
}

// findSettled returns the first settled ledger operation whose label
// matches exactly, or nil. A ledger error only costs this attempt.
func (s *Service) findSettled(wire, taskID string) *yoomoney.Operation {
	ops, err := s.ledger.OperationHistory(s.ctx, wire, time.Now().Add(-s.lookback))
	if err != nil {
		logger.Error().Err(err).Str("task_id", taskID).Msg("Ledger query failed, will retry")
		return nil
	}
	for i := range ops {
		if ops[i].Status == yoomoney.StatusSuccess && ops[i].Label == wire {
			return &ops[i]
		}
	}
	return nil
}

// settle applies a confirmed settlement to the store: renewals extend
// the window additively (clamped to now), new purchases establish a
// fresh window and promote the tier label.
func (s *Service) settle(ctx context.Context, label models.CorrelationLabel, username string) (time.Time, error) {
	tier, err := models.TierByCode(label.TierCode)
	if err != nil {
		return time.Time{}, err
	}

	if label.Renewal {
		return s.subs.Extend(ctx, label.UserID, tier.Duration)
	}
	sub, err := s.subs.Promote(ctx, label.UserID, username, tier.Label, tier.Duration)
	if err != nil {
		return time.Time{}, err
	}
	return sub.SubscriptionEnd, nil
}
