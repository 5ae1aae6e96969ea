package handlers

import (
	"context"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/types"
)

func (bh *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		bh.sendText(ctx, b, chatID, messages.StrayMessageHint())
		return
	}

	switch session.State {
	case types.StateAwaitingIssue:
		if err := bh.tickets.DescribeIssue(session, text); err != nil {
			log.Printf("Error recording issue for %d: %v", session.UserID, err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.sendText(ctx, b, chatID, messages.SupportCollecting())

	case types.StateCollectingInfo:
		if err := bh.tickets.AppendText(session, text); err != nil {
			log.Printf("Error appending issue text for %d: %v", session.UserID, err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.sendText(ctx, b, chatID, messages.SupportMoreReceived())

	case types.StateAwaitingReply:
		bh.handleReplyText(ctx, b, chatID, session, text)

	case types.StateAwaitingReceipt:
		bh.sendText(ctx, b, chatID, messages.ReceiptPrompt())

	default:
		bh.sendText(ctx, b, chatID, messages.StrayMessageHint())
	}
}

func (bh *Handlers) handleReplyText(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session, text string) {
	reply, ticket, err := bh.tickets.SubmitReply(ctx, session, text)
	if err != nil {
		log.Printf("Error submitting reply for ticket %d: %v", session.ReplyTicketID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.sendText(ctx, b, chatID, messages.TicketReplyAdded())

	subscriber, err := bh.entities.GetSubscriber(ctx, ticket.SubscriberID)
	if err != nil || subscriber == nil {
		log.Printf("Error resolving requester for ticket %d: %v", ticket.ID, err)
		return
	}
	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: subscriber.ExternalID,
		Text:   messages.TicketReplyNotification(ticket.ID, reply.Reply),
	})
	if err != nil {
		log.Printf("Error notifying user %d about reply: %v", subscriber.ExternalID, err)
	}
}
