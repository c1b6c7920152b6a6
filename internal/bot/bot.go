package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subgate-bot/internal/common/config"
	"subgate-bot/internal/common/logger"
	payservice "subgate-bot/internal/features/payment/service"
	"subgate-bot/internal/features/subscriber/repository"
	subservice "subgate-bot/internal/features/subscriber/service"
	"subgate-bot/internal/platform/yoomoney"
	"subgate-bot/internal/service/gate"
)

// Wallet exposes the receiving wallet's balance for the admin panel.
type Wallet interface {
	AccountInfo(ctx context.Context) (*yoomoney.AccountInfo, error)
}

// Bot is the Telegram dispatch surface: one long-polling loop feeding
// command and callback handlers. Updates are handled sequentially, so
// per-admin session state needs no locking.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	subs     *subservice.Service
	payments *payservice.Service
	gate     *gate.Gate
	wallet   Wallet
	repo     repository.SubscriberRepository
	notify   *Notifier

	// testMode tracks which administrators currently bypass the payment
	// step. Scoped to the admin's identity and read at purchase time,
	// never from any other code path.
	testMode map[int64]bool
}

func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	subs *subservice.Service,
	payments *payservice.Service,
	g *gate.Gate,
	wallet Wallet,
	repo repository.SubscriberRepository,
	notify *Notifier,
) *Bot {
	return &Bot{
		api:      api,
		cfg:      cfg,
		subs:     subs,
		payments: payments,
		gate:     g,
		wallet:   wallet,
		repo:     repo,
		notify:   notify,
		testMode: make(map[int64]bool),
	}
}

// Run starts the long-polling dispatch loop and blocks until the context
// is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	logger.Info().Str("bot", b.api.Self.UserName).Msg("Bot dispatch loop started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate routes one update. A panic in a handler is contained
// here; the dispatch loop must survive any single interaction.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recovered from handler panic")
		}
	}()

	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	switch {
	case cmd == "start":
		b.handleStart(ctx, msg)
	case cmd == "balance":
		b.handleBalance(ctx, msg)
	case strings.HasPrefix(cmd, "extend_"):
		b.handleManageCommand(ctx, msg)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		return
	}

	data := cq.Data
	switch {
	case data == "subscribe":
		b.handleSubscribeMenu(cq)
	case data == "main_menu":
		b.handleMainMenu(cq)
	case data == "cancel_payment":
		b.handleCancelPayment(cq)
	case data == "cancel_extend":
		b.handleCancelExtend(cq)
	case data == "admin_panel":
		b.handleAdminPanel(cq)
	case data == "toggle_test_mode":
		b.handleToggleTestMode(cq)
	case data == "admin_subscriptions":
		b.handleAdminSubscriptions(ctx, cq)
	case data == "admin_channel":
		b.handleAdminChannel(ctx, cq)
	case data == "admin_balance":
		b.handleAdminBalance(ctx, cq)
	case strings.HasPrefix(data, "admin_extend_"):
		b.handleAdminExtend(ctx, cq)
	case strings.HasPrefix(data, "admin_cancel_"):
		b.handleAdminCancel(ctx, cq)
	case strings.HasPrefix(data, "check_payment_"):
		b.handleCheckPayment(ctx, cq)
	case strings.HasPrefix(data, "extend_"):
		b.handleRenewalChoice(ctx, cq)
	default:
		b.handleTierChoice(ctx, cq)
	}
}

// send delivers a message, logging delivery failures instead of
// propagating them; no user interaction is worth crashing the loop over.
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		logger.Error().Err(err).Msg("Telegram send failed")
	}
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string, alert bool) {
	var callback tgbotapi.CallbackConfig
	if alert {
		callback = tgbotapi.NewCallbackWithAlert(cq.ID, text)
	} else {
		callback = tgbotapi.NewCallback(cq.ID, text)
	}
	if _, err := b.api.Request(callback); err != nil {
		logger.Error().Err(err).Msg("Callback answer failed")
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logger.Debug().Err(err).Msg("Message delete failed")
	}
}

// sendPhotoOrText sends a photo with caption, falling back to a plain
// text message when the image asset is unavailable.
func (b *Bot) sendPhotoOrText(chatID int64, photoPath, caption string, markup *tgbotapi.InlineKeyboardMarkup) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photoPath))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		photo.ReplyMarkup = *markup
	}
	if _, err := b.api.Send(photo); err == nil {
		return
	}

	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.send(msg)
}
