package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Notifier delivers messages and images to a single party. Workflows treat
// delivery as fire-and-forget: a failed send never rolls back a committed
// transition.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
	NotifyPhoto(ctx context.Context, chatID int64, image []byte, filename, caption string) error
	ForwardPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}

// GroupInviter grants time-limited access to a restricted group.
type GroupInviter interface {
	Invite(ctx context.Context, groupID string, userID int64) error
}

const inviteTTL = 24 * time.Hour

// TelegramChannel implements Notifier and GroupInviter on a bot client.
type TelegramChannel struct {
	b *bot.Bot
}

func NewTelegramChannel(b *bot.Bot) *TelegramChannel {
	return &TelegramChannel{b: b}
}

func (t *TelegramChannel) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := t.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

func (t *TelegramChannel) NotifyPhoto(ctx context.Context, chatID int64, image []byte, filename, caption string) error {
	_, err := t.b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(image),
		},
		Caption: caption,
	})
	return err
}

func (t *TelegramChannel) ForwardPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	_, err := t.b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileString{Data: fileID},
		Caption: caption,
	})
	return err
}

// Invite validates the group, creates a single-use 24-hour invite link and
// delivers it. The group id is normalized to the channel's -100 prefix form;
// if the first metadata lookup fails the alternate form is tried once.
func (t *TelegramChannel) Invite(ctx context.Context, groupID string, userID int64) error {
	formatted := normalizeGroupID(groupID)

	if _, err := t.b.GetChat(ctx, &bot.GetChatParams{ChatID: formatted}); err != nil {
		alternate := alternateGroupID(groupID, formatted)
		if _, retryErr := t.b.GetChat(ctx, &bot.GetChatParams{ChatID: alternate}); retryErr != nil {
			return fmt.Errorf("group validation failed: %w", retryErr)
		}
		formatted = alternate
	}

	link, err := t.b.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:      formatted,
		MemberLimit: 1,
		ExpireDate:  int(time.Now().Add(inviteTTL).Unix()),
	})
	if err != nil {
		return fmt.Errorf("create invite link: %w", err)
	}

	text := fmt.Sprintf(
		"You've been invited to our channel. This invite link will remain valid only for 24 hours and admits a single member. Join here: %s",
		link.InviteLink,
	)
	if err := t.Notify(ctx, userID, text); err != nil {
		return fmt.Errorf("deliver invite link: %w", err)
	}
	return nil
}

func normalizeGroupID(groupID string) string {
	if !strings.HasPrefix(groupID, "-100") && isDigits(groupID) {
		return "-100" + groupID
	}
	return groupID
}

func alternateGroupID(original, formatted string) string {
	if strings.HasPrefix(formatted, "-100") && formatted != original {
		return original
	}
	return "-100" + strings.TrimPrefix(original, "-100")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
