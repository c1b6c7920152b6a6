package gate

import (
	"encoding/json"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subgate-bot/internal/common/logger"
)

// Outcome classifies an external-gate call so callers can proceed with
// local state changes regardless of which one occurred.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// API is the slice of the Telegram Bot API the gate depends on.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gate translates subscription state into channel membership actions:
// grant via invite link, revoke via ban+unban. Platform failures are
// logged and soft; callers never block local state changes on them.
type Gate struct {
	api       API
	channelID int64
}

func New(api API, channelID int64) *Gate {
	return &Gate{api: api, channelID: channelID}
}

// IsMember reports whether the user is currently present in the gated
// channel. Not-found and platform errors count as not-a-member.
func (g *Gate) IsMember(userID int64) bool {
	member, err := g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: g.channelID,
			UserID: userID,
		},
	})
	if err != nil {
		logger.Debug().Err(err).Int64("user_id", userID).Msg("getChatMember failed, treating as non-member")
		return false
	}
	switch member.Status {
	case "left", "kicked", "banned":
		return false
	}
	return true
}

// Evict removes the user from the channel with a soft kick: ban
// immediately followed by unban, so the user can freely rejoin after a
// future purchase.
func (g *Gate) Evict(userID int64) Outcome {
	memberConfig := tgbotapi.ChatMemberConfig{
		ChatID: g.channelID,
		UserID: userID,
	}

	if _, err := g.api.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: memberConfig}); err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("banChatMember failed")
		return OutcomeFailed
	}
	if _, err := g.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: memberConfig}); err != nil {
		// The user is out of the channel but the ban stuck; they cannot
		// rejoin until a later unban succeeds.
		logger.Error().Err(err).Int64("user_id", userID).Msg("unbanChatMember failed after ban")
		return OutcomeUnknown
	}
	return OutcomeSucceeded
}

// Grant returns an invite link for the gated channel, minting one only
// if the channel does not already carry one.
func (g *Gate) Grant() (string, error) {
	chat, err := g.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: g.channelID},
	})
	if err == nil && chat.InviteLink != "" {
		return chat.InviteLink, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("getChat failed, minting a fresh invite link")
	}

	resp, err := g.api.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: g.channelID},
	})
	if err != nil {
		return "", err
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", err
	}
	return link.InviteLink, nil
}

// MemberCount returns the current channel member count, for the admin
// channel overview.
func (g *Gate) MemberCount() (int, error) {
	resp, err := g.api.Request(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: g.channelID},
	})
	if err != nil {
		return 0, err
	}
	var count int
	if err := json.Unmarshal(resp.Result, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// ChannelTitle returns the gated channel's display title.
func (g *Gate) ChannelTitle() (string, error) {
	chat, err := g.api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: g.channelID},
	})
	if err != nil {
		return "", err
	}
	return chat.Title, nil
}
