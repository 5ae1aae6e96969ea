package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/contextkeys"
	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/workflow"
	"github.com/subgate/subgate-bot/types"
)

// normalizeCommand extracts the command token: first word, bot-mention
// suffix stripped, lowercased so /Done and /done behave the same.
func normalizeCommand(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}
	return strings.ToLower(cmd)
}

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	cmd := normalizeCommand(update.Message.Text)
	if cmd == "" {
		return
	}

	switch cmd {
	case "/start":
		bh.handleStart(ctx, b, update, session)
	case "/done":
		bh.handleDone(ctx, b, update, session)
	case "/staff":
		if !contextkeys.IsStaff(ctx) {
			bh.sendText(ctx, b, update.Message.Chat.ID, messages.ErrorStaffOnly())
			return
		}
		bh.sendMainMenu(ctx, b, update.Message.Chat.ID, true)
	default:
		bh.sendText(ctx, b, update.Message.Chat.ID, messages.ErrorUnknownCommand())
	}
}

// handleStart registers the requester, abandons any in-flight sequence and
// opens the menu.
func (bh *Handlers) handleStart(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	chatID := update.Message.Chat.ID
	from := update.Message.From

	existing, err := bh.entities.GetSubscriberByExternalID(ctx, from.ID)
	if err != nil {
		log.Printf("Error looking up subscriber %d: %v", from.ID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	if existing == nil {
		name := strings.TrimSpace(from.FirstName + " " + from.LastName)
		_, err := bh.entities.UpsertSubscriber(ctx, types.Subscriber{
			ExternalID: from.ID,
			Name:       name,
			Handle:     from.Username,
		})
		if err != nil {
			log.Printf("Error registering subscriber %d: %v", from.ID, err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.sendText(ctx, b, chatID, messages.WelcomeNew())
	} else {
		bh.sendText(ctx, b, chatID, messages.WelcomeBack())
	}

	if err := bh.sessions.ClearSession(session.ID); err != nil {
		log.Printf("Error clearing session %s: %v", session.ID, err)
	}

	bh.sendMainMenu(ctx, b, chatID, contextkeys.IsStaff(ctx))
}

// handleDone submits the draft support ticket. Outside info collection it is
// a stray command.
func (bh *Handlers) handleDone(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	chatID := update.Message.Chat.ID
	if session.State != types.StateCollectingInfo {
		bh.sendText(ctx, b, chatID, messages.StrayMessageHint())
		return
	}

	isStaff := contextkeys.IsStaff(ctx)
	attachments := session.Attachments

	ticket, err := bh.tickets.Submit(ctx, session, isStaff)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrTicketRateLimited):
			bh.sendText(ctx, b, chatID, messages.ErrorTicketRateLimited())
		default:
			log.Printf("Error submitting ticket for %d: %v", session.UserID, err)
			bh.sendText(ctx, b, chatID, messages.ErrorTicketCreateFailed())
		}
		return
	}

	bh.sendText(ctx, b, chatID, messages.TicketCreated())
	bh.alertStaffNewTicket(ctx, b, ticket, session.UserID, attachments)
}

// alertStaffNewTicket pushes the ticket and its images to the staff chat.
// Delivery failures are logged only; the ticket is already persisted.
func (bh *Handlers) alertStaffNewTicket(ctx context.Context, b *bot.Bot, ticket *types.SupportTicket, userID int64, attachments []types.Attachment) {
	if bh.cfg.StaffChatID == 0 {
		log.Printf("Staff chat not configured, skipping ticket %d alert", ticket.ID)
		return
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: bh.cfg.StaffChatID,
		Text:   messages.TicketStaffAlert(ticket.ID, userID, ticket.Issue),
	})
	if err != nil {
		log.Printf("Error alerting staff about ticket %d: %v", ticket.ID, err)
		return
	}

	for _, att := range attachments {
		if att.Type != types.AttachmentTypePhoto {
			continue
		}
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: bh.cfg.StaffChatID,
			Photo:  &models.InputFileString{Data: att.FileID},
		})
		if err != nil {
			log.Printf("Error forwarding ticket %d attachment: %v", ticket.ID, err)
		}
	}
}
