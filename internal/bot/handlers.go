package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subgate-bot/internal/common/logger"
	"subgate-bot/internal/features/payment/models"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	if from == nil {
		return
	}

	if _, err := b.subs.Register(ctx, from.ID, from.FirstName, from.UserName); err != nil {
		logger.Error().Err(err).Int64("user_id", from.ID).Msg("/start registration failed")
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Something went wrong. Please try again later."))
		return
	}

	kb := mainKeyboard(b.cfg.IsAdmin(from.ID))
	b.sendPhotoOrText(msg.Chat.ID, welcomePhotoPath, welcomeText, &kb)
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message) {
	info, err := b.wallet.AccountInfo(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Balance lookup failed")
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Something went wrong while fetching the balance"))
		return
	}
	b.send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Your balance: %.2f %s", info.Balance, info.Currency)))
}

func (b *Bot) handleSubscribeMenu(cq *tgbotapi.CallbackQuery) {
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	kb := subscriptionKeyboard()
	b.sendPhotoOrText(cq.Message.Chat.ID, subscribePhotoPath, subscribeText, &kb)
	b.answer(cq, "", false)
}

func (b *Bot) handleMainMenu(cq *tgbotapi.CallbackQuery) {
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	msg := tgbotapi.NewMessage(cq.Message.Chat.ID, "👋 Main menu\nPick an action:")
	msg.ReplyMarkup = mainKeyboard(b.cfg.IsAdmin(cq.From.ID))
	b.send(msg)
	b.answer(cq, "", false)
}

func (b *Bot) handleCancelPayment(cq *tgbotapi.CallbackQuery) {
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	b.send(tgbotapi.NewMessage(cq.Message.Chat.ID, paymentCancelText))
	b.answer(cq, "", false)
}

func (b *Bot) handleCancelExtend(cq *tgbotapi.CallbackQuery) {
	b.send(tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, extendCancelText))
	msg := tgbotapi.NewMessage(cq.Message.Chat.ID, welcomeText)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = mainKeyboard(b.cfg.IsAdmin(cq.From.ID))
	b.send(msg)
	b.answer(cq, "", false)
}

// handleTierChoice handles the selection of a subscription tier. An
// already-active subscriber is offered a renewal instead; administrators
// in test mode skip the payment step entirely.
func (b *Bot) handleTierChoice(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	tier, err := models.TierByCode(cq.Data)
	if err != nil {
		b.answer(cq, unknownTierText, true)
		return
	}

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	b.deleteMessage(chatID, cq.Message.MessageID)

	if sub, err := b.subs.Get(ctx, userID); err == nil && sub.Active(time.Now()) {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"You already have an active subscription until: %s\nExtend it?",
			sub.SubscriptionEnd.Format(displayTime)))
		msg.ReplyMarkup = extendConfirmKeyboard(tier.Code)
		b.send(msg)
		b.answer(cq, "", false)
		return
	}

	if b.cfg.IsAdmin(userID) && b.testMode[userID] {
		end, err := b.payments.GrantDirect(ctx, userID, cq.From.UserName, tier.Code, false)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Test-mode grant failed")
			b.answer(cq, "❌ Test-mode grant failed", true)
			return
		}
		invite, err := b.gate.Grant()
		if err != nil {
			logger.Error().Err(err).Msg("Could not obtain invite link for test-mode grant")
		}
		b.notify.PaymentSucceeded(userID, chatID, end, invite)
		b.answer(cq, "", false)
		return
	}

	b.startPurchase(ctx, cq, tier, false)
}

func (b *Bot) handleRenewalChoice(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	tier, err := models.TierByCode(strings.TrimPrefix(cq.Data, "extend_"))
	if err != nil {
		b.answer(cq, unknownTierText, true)
		return
	}
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	b.startPurchase(ctx, cq, tier, true)
}

func (b *Bot) startPurchase(ctx context.Context, cq *tgbotapi.CallbackQuery, tier models.Tier, renewal bool) {
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	payURL, err := b.payments.InitiatePurchase(ctx, userID, chatID, tier.Code, renewal)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Str("tier", tier.Code).Msg("Purchase initiation failed")
		b.send(tgbotapi.NewMessage(chatID, paymentFailText))
		b.answer(cq, "", false)
		return
	}

	verb := "pay for"
	if renewal {
		verb = "renew"
	}
	label := models.CorrelationLabel{UserID: userID, TierCode: tier.Code, Renewal: renewal}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"💳 To %s %s (%d₽), tap 'Pay' below.\n\n"+
			"⏳ The bot checks the payment status automatically.\nWait window: 10 minutes",
		verb, tier.Name, tier.Amount))
	msg.ReplyMarkup = paymentKeyboard(payURL, label.String())
	b.send(msg)
	b.answer(cq, "", false)
}

// handleCheckPayment is the "I've paid" button: a single on-demand
// ledger check with a wider lookback than the background watcher.
func (b *Bot) handleCheckPayment(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	wire := strings.TrimPrefix(cq.Data, "check_payment_")

	settled, err := b.payments.CheckSettled(ctx, wire)
	if err != nil {
		logger.Error().Err(err).Str("label", wire).Msg("On-demand settlement check failed")
		b.answer(cq, "Something went wrong while checking the payment. Try again later.", true)
		return
	}
	if settled {
		b.send(tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID,
			"✅ Payment received! Your subscription is being activated."))
		b.answer(cq, "", false)
		return
	}
	b.answer(cq, "❌ The payment has not arrived yet. If you already paid, wait a moment and try again.", true)
}
