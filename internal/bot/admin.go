package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subgate-bot/internal/common/logger"
	paymodels "subgate-bot/internal/features/payment/models"
)

// grantPeriods maps the admin grant buttons to tier products. Granting
// to a resting subscriber promotes to the matching tier; granting to an
// active one extends the window additively.
var grantPeriods = map[string]string{
	"day":   paymodels.TierDay,
	"week":  paymodels.TierWeek,
	"month": paymodels.TierMonth,
}

func (b *Bot) requireAdmin(cq *tgbotapi.CallbackQuery) bool {
	if b.cfg.IsAdmin(cq.From.ID) {
		return true
	}
	b.answer(cq, notAdminText, true)
	return false
}

func (b *Bot) handleAdminPanel(cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	msg := tgbotapi.NewMessage(cq.Message.Chat.ID, "👨‍💼 Admin panel\nPick an action:")
	msg.ReplyMarkup = adminKeyboard(b.testMode[cq.From.ID])
	b.send(msg)
	b.answer(cq, "", false)
}

func (b *Bot) handleToggleTestMode(cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}
	b.testMode[cq.From.ID] = !b.testMode[cq.From.ID]

	mode := "real"
	if b.testMode[cq.From.ID] {
		mode = "test"
	}
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	msg := tgbotapi.NewMessage(cq.Message.Chat.ID, fmt.Sprintf(
		"👨‍💼 Admin panel\nMode: %s\nPick an action:", mode))
	msg.ReplyMarkup = adminKeyboard(b.testMode[cq.From.ID])
	b.send(msg)
	b.answer(cq, "", false)
}

func (b *Bot) handleAdminBalance(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}
	info, err := b.wallet.AccountInfo(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Wallet balance lookup failed")
		b.answer(cq, "❌ Could not fetch the balance", true)
		return
	}
	b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	msg := tgbotapi.NewMessage(cq.Message.Chat.ID, fmt.Sprintf(
		"💰 Wallet balance: %.2f %s\n\n👨‍💼 Admin panel\nPick an action:", info.Balance, info.Currency))
	msg.ReplyMarkup = adminKeyboard(b.testMode[cq.From.ID])
	b.send(msg)
	b.answer(cq, "", false)
}

// handleAdminSubscriptions renders the full subscriber list with window
// status and a per-user management command.
func (b *Bot) handleAdminSubscriptions(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}

	subs, err := b.subs.ListAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Subscriber listing failed")
		b.answer(cq, "❌ Could not fetch the subscriber list", true)
		return
	}
	if len(subs) == 0 {
		b.send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
			"📝 No subscribers yet\n\n👨‍💼 Admin panel\nPick an action:",
			adminKeyboard(b.testMode[cq.From.ID])))
		b.answer(cq, "", false)
		return
	}

	now := time.Now()
	var sb strings.Builder
	sb.WriteString("📋 Subscribers:\n\n")
	for i := range subs {
		sub := &subs[i]
		status := "❌ Inactive"
		remaining := ""
		switch {
		case sub.Active(now):
			left := sub.Remaining(now)
			status = "✅ Active"
			remaining = fmt.Sprintf("(left: %dd %dh)", int(left.Hours())/24, int(left.Hours())%24)
		case sub.Expired(now):
			status = "⚠️ Expired"
		}

		name := sub.FirstName
		if name == "" {
			name = "No name"
		}
		fmt.Fprintf(&sb, "👤 %s %s (ID: %d)\n📝 Plan: %s\n🔄 Status: %s %s\n⚡️ Manage: /extend_%d\n➖➖➖➖➖➖➖➖➖➖\n",
			name, sub.UsernameAt, sub.UserID, sub.Label, status, remaining, sub.UserID)
	}
	sb.WriteString("\n🔍 To manage a subscription, tap the matching /extend_ID command")

	b.send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		sb.String(), adminKeyboard(b.testMode[cq.From.ID])))
	b.answer(cq, "", false)
}

// handleManageCommand handles /extend_<id>: shows the management
// keyboard for one subscriber.
func (b *Bot) handleManageCommand(ctx context.Context, msg *tgbotapi.Message) {
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, notAdminText))
		return
	}

	userID, err := strconv.ParseInt(strings.TrimPrefix(msg.Command(), "extend_"), 10, 64)
	if err != nil {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Bad command format. Use /extend_ID"))
		return
	}

	sub, err := b.subs.Get(ctx, userID)
	if err != nil {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Subscriber not found."))
		return
	}

	name := sub.FirstName
	if name == "" {
		name = "No name"
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"👤 Managing subscription:\nID: %d\nName: %s\nStatus: %s\nUntil: %s\n\nPick an action:",
		sub.UserID, name, sub.Label, sub.SubscriptionEnd.Format(displayTime)))
	reply.ReplyMarkup = managementKeyboard(userID)
	b.send(reply)
}

// handleAdminExtend grants access without payment: callback data is
// admin_extend_<id>_<period>.
func (b *Bot) handleAdminExtend(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}

	rest := strings.TrimPrefix(cq.Data, "admin_extend_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		b.answer(cq, "❌ Bad grant request.", true)
		return
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		b.answer(cq, "❌ Bad grant request.", true)
		return
	}
	tierCode, ok := grantPeriods[parts[1]]
	if !ok {
		b.answer(cq, "❌ Unknown grant period.", true)
		return
	}

	sub, err := b.subs.Get(ctx, userID)
	if err != nil {
		b.answer(cq, "❌ Subscriber not found.", true)
		return
	}

	renewal := sub.Active(time.Now())
	end, err := b.payments.GrantDirect(ctx, userID, sub.Username, tierCode, renewal)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Admin grant failed")
		b.answer(cq, "❌ Something went wrong while extending the subscription.", true)
		return
	}

	invite, err := b.gate.Grant()
	if err != nil {
		logger.Error().Err(err).Msg("Could not obtain invite link for admin grant")
	}

	text := fmt.Sprintf("🎉 Your subscription was extended by an administrator!\nNew end date: %s", end.Format(displayTime))
	if invite != "" {
		text += "\n\n🔗 Channel link: " + invite
	}
	notice := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(notice); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Could not notify user of admin grant")
	}

	name := sub.FirstName
	if name == "" {
		name = strconv.FormatInt(userID, 10)
	}
	b.send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		fmt.Sprintf("✅ Subscription for %s extended!\nNew end date: %s\n\nPick an action:",
			name, end.Format(displayTime)),
		managementKeyboard(userID)))
	b.answer(cq, "", false)
}

// handleAdminCancel revokes a subscription immediately: soft-kick from
// the channel when present, then collapse the stored state.
func (b *Bot) handleAdminCancel(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}

	userID, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, "admin_cancel_"), 10, 64)
	if err != nil {
		b.answer(cq, "❌ Bad cancel request.", true)
		return
	}

	sub, err := b.subs.Get(ctx, userID)
	if err != nil {
		b.answer(cq, "❌ Subscriber not found.", true)
		return
	}

	if b.gate.IsMember(userID) {
		outcome := b.gate.Evict(userID)
		logger.Info().Int64("user_id", userID).Str("outcome", outcome.String()).Msg("Evicted subscriber on admin cancel")
	}

	// Local state collapses regardless of how the gate call went.
	if err := b.subs.Cancel(ctx, userID); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Admin cancel failed")
		b.answer(cq, "❌ Something went wrong while cancelling the subscription.", true)
		return
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(userID, cancelledText)); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Could not notify user of cancellation")
	}

	b.send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		fmt.Sprintf("✅ Subscription for %s cancelled.\nThe user was removed from the channel.\n\nPick an action:", sub.FirstName),
		managementKeyboard(userID)))
	b.answer(cq, "", false)
}

// handleAdminChannel shows the gated channel overview: title, member
// count and how many expired subscribers are still present.
func (b *Bot) handleAdminChannel(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !b.requireAdmin(cq) {
		return
	}

	title, err := b.gate.ChannelTitle()
	if err != nil {
		logger.Error().Err(err).Msg("Channel info lookup failed")
		b.send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
			"❌ Could not fetch channel info. Check the bot's rights and the channel ID.",
			adminKeyboard(b.testMode[cq.From.ID])))
		b.answer(cq, "", false)
		return
	}

	memberCount, err := b.gate.MemberCount()
	if err != nil {
		logger.Error().Err(err).Msg("Member count lookup failed")
	}

	stillPresent := 0
	expired, err := b.repo.ListExpired(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("Expired listing failed")
	}
	for i := range expired {
		if b.gate.IsMember(expired[i].UserID) {
			stillPresent++
		}
	}

	b.send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		fmt.Sprintf("📢 Channel overview\n\nTitle: %s\nID: %d\nMembers: %d\nExpired subscribers still present: %d\n\n🤖 Bot status: ✅ Administrator\nAuto-removal: ✅ Active",
			title, b.cfg.Telegram.ChannelID, memberCount, stillPresent),
		adminKeyboard(b.testMode[cq.From.ID])))
	b.answer(cq, "", false)
}
