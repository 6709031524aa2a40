package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/agora-labs/gatekeeper/domain"
	"github.com/agora-labs/gatekeeper/domain/mvc"
	"github.com/agora-labs/gatekeeper/log"
)

// BotAPI is the subset of the Telegram bot client the group admin
// needs. *tgbotapi.BotAPI satisfies it.
type BotAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
}

var _ mvc.GroupAdmin = &telegramGroupAdmin{}

// telegramGroupAdmin implements group membership actions over the
// Telegram Bot API. Identity IDs are Telegram user IDs and group IDs
// are chat IDs, both as decimal strings.
type telegramGroupAdmin struct {
	bot          BotAPI
	inviteExpiry time.Duration

	logger log.Logger
}

// NewTelegramGroupAdmin creates the Telegram-backed group admin.
func NewTelegramGroupAdmin(bot BotAPI, config *domain.TelegramConfig, logger log.Logger) mvc.GroupAdmin {
	return &telegramGroupAdmin{
		bot:          bot,
		inviteExpiry: time.Duration(config.InviteExpirySeconds) * time.Second,
		logger:       logger,
	}
}

// IsAdmin implements mvc.GroupAdmin.
func (t *telegramGroupAdmin) IsAdmin(ctx context.Context, identityID, groupID string) (bool, error) {
	userID, chatID, err := parseIDs(identityID, groupID)
	if err != nil {
		return false, err
	}

	admins, err := t.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return false, fmt.Errorf("list chat administrators for group (%s): %w", groupID, err)
	}

	for _, admin := range admins {
		if admin.User != nil && admin.User.ID == userID {
			return true, nil
		}
	}

	return false, nil
}

// Evict implements mvc.GroupAdmin. The ban is immediately lifted so the
// user can rejoin through a future invite once their stake recovers.
func (t *telegramGroupAdmin) Evict(ctx context.Context, identityID, groupID, reason string) error {
	userID, chatID, err := parseIDs(identityID, groupID)
	if err != nil {
		return err
	}

	// Telegram lets a bot ban an admin only to fail confusingly later;
	// check up front and refuse outright.
	isAdmin, err := t.IsAdmin(ctx, identityID, groupID)
	if err != nil {
		return err
	}
	if isAdmin {
		return fmt.Errorf("refusing to evict administrator (%s) of group (%s)", identityID, groupID)
	}

	if _, err := t.bot.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	}); err != nil {
		return fmt.Errorf("ban member (%s) in group (%s): %w", identityID, groupID, err)
	}

	if _, err := t.bot.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		OnlyIfBanned: true,
	}); err != nil {
		return fmt.Errorf("unban member (%s) in group (%s): %w", identityID, groupID, err)
	}

	// The membership change already happened; a failed courtesy message
	// must not fail the eviction.
	if _, err := t.bot.Send(tgbotapi.NewMessage(userID, reason)); err != nil {
		t.logger.Warn("eviction notice delivery failed",
			zap.String("identity_id", identityID),
			zap.String("group_id", groupID),
			zap.Error(err))
	}

	return nil
}

// IssueInvite implements mvc.GroupAdmin.
func (t *telegramGroupAdmin) IssueInvite(ctx context.Context, identityID, groupID string) (domain.Invite, error) {
	userID, chatID, err := parseIDs(identityID, groupID)
	if err != nil {
		return domain.Invite{}, err
	}

	expiresAt := time.Now().Add(t.inviteExpiry)

	resp, err := t.bot.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		ExpireDate: int(expiresAt.Unix()),
		// Single use: the link dies once this identity joins.
		MemberLimit: 1,
	})
	if err != nil {
		return domain.Invite{}, fmt.Errorf("create invite link for group (%s): %w", groupID, err)
	}

	var inviteLink tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &inviteLink); err != nil {
		return domain.Invite{}, fmt.Errorf("decode invite link for group (%s): %w", groupID, err)
	}

	message := fmt.Sprintf("your stake qualifies you for this group, join here: %s", inviteLink.InviteLink)
	if _, err := t.bot.Send(tgbotapi.NewMessage(userID, message)); err != nil {
		return domain.Invite{}, fmt.Errorf("deliver invite to identity (%s): %w", identityID, err)
	}

	return domain.Invite{
		Link:      inviteLink.InviteLink,
		ExpiresAt: expiresAt,
	}, nil
}

func parseIDs(identityID, groupID string) (userID int64, chatID int64, err error) {
	userID, err = strconv.ParseInt(identityID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed identity id (%s): %w", identityID, err)
	}

	chatID, err = strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed group id (%s): %w", groupID, err)
	}

	return userID, chatID, nil
}
