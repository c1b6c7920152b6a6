package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subgate-bot/internal/common/logger"
)

// Notifier delivers sweep- and settlement-driven messages to users. All
// sends are best-effort: a delivery failure is logged, never retried and
// never fatal to the caller.
type Notifier struct {
	api *tgbotapi.BotAPI
}

func NewNotifier(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) SubscriptionExpired(userID int64) {
	msg := tgbotapi.NewMessage(userID, expiredNoticeText)
	if _, err := n.api.Send(msg); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Could not deliver expiry notice")
	}
}

func (n *Notifier) SubscriptionExpiring(userID int64, left time.Duration) {
	minutes := int(left.Minutes())
	msg := tgbotapi.NewMessage(userID, fmt.Sprintf(
		"⚠️ Heads up! Your subscription expires in %d minutes.\nTo renew, pick a tier below:", minutes))
	msg.ReplyMarkup = subscriptionKeyboard()
	if _, err := n.api.Send(msg); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Could not deliver renewal reminder")
	}
}

func (n *Notifier) PaymentSucceeded(userID, chatID int64, end time.Time, inviteLink string) {
	caption := fmt.Sprintf(
		"🎉 Payment received!\n\n📅 Subscription active until: %s\n\nTap the button below to join the channel:",
		end.Format(displayTime))

	photo := tgbotapi.NewPhoto(userID, tgbotapi.FilePath(successPhotoPath))
	photo.Caption = caption
	if inviteLink != "" {
		photo.ReplyMarkup = joinChannelKeyboard(inviteLink)
	}
	if _, err := n.api.Send(photo); err != nil {
		// Fall back to plain text if the photo asset is unavailable.
		msg := tgbotapi.NewMessage(userID, caption)
		if inviteLink != "" {
			msg.ReplyMarkup = joinChannelKeyboard(inviteLink)
		}
		if _, err := n.api.Send(msg); err != nil {
			logger.Error().Err(err).Int64("user_id", userID).Msg("Could not deliver payment confirmation")
		}
	}
}

func (n *Notifier) PaymentTimedOut(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, timeoutText)
	if _, err := n.api.Send(msg); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Could not deliver payment timeout notice")
	}
}
