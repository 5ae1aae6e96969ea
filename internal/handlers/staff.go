package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/utils"
	"github.com/subgate/subgate-bot/internal/workflow"
	"github.com/subgate/subgate-bot/types"
)

func (bh *Handlers) handleStaffPayments(ctx context.Context, b *bot.Bot, chatID int64) {
	pending, err := bh.entities.ListPendingPayments(ctx)
	if err != nil {
		log.Printf("Error listing pending payments: %v", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(pending) == 0 {
		bh.sendText(ctx, b, chatID, messages.NoPendingPayments())
		return
	}

	buttons := make([]utils.Button, 0, len(pending)+1)
	for _, p := range pending {
		buttons = append(buttons, utils.Button{
			Text:         messages.PendingPaymentButton(p),
			CallbackData: fmt.Sprintf("payment_%d", p.ID),
		})
	}
	buttons = append(buttons, utils.Button{Text: messages.MenuBtnBack(), CallbackData: "main_menu"})

	keyboard := utils.BuildInlineKeyboard(buttons, 1)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.StaffDashboardTitle(),
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handlePaymentDetail(ctx context.Context, b *bot.Bot, chatID, paymentID int64) {
	payment, err := bh.entities.GetPayment(ctx, paymentID)
	if err != nil {
		log.Printf("Error getting payment %d: %v", paymentID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if payment == nil {
		bh.sendText(ctx, b, chatID, messages.NoPendingPayments())
		return
	}

	keyboard := utils.BuildInlineKeyboard([]utils.Button{
		{Text: messages.BtnVerify(), CallbackData: fmt.Sprintf("verify_%d", payment.ID)},
		{Text: messages.BtnReject(), CallbackData: fmt.Sprintf("reject_%d", payment.ID)},
	}, 2)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.PaymentDetailsCaption(payment),
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handleVerdict(ctx context.Context, b *bot.Bot, update *models.Update, chatID, paymentID int64, verify bool) {
	verdict := workflow.VerdictReject
	if verify {
		verdict = workflow.VerdictVerify
	}

	result, err := bh.adjudicator.Adjudicate(ctx, paymentID, verdict)
	if err != nil {
		if errors.Is(err, workflow.ErrPaymentNotFound) {
			_ = bh.answerCallbackAlert(ctx, b, update.CallbackQuery.ID, messages.ErrorDefault())
			return
		}
		log.Printf("Error adjudicating payment %d: %v", paymentID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	if !result.Applied {
		_ = bh.answerCallbackAlert(ctx, b, update.CallbackQuery.ID, messages.ErrorAlreadyProcessed())
		return
	}

	// Drop the verdict buttons so the message reflects the decision.
	if update.CallbackQuery.Message.Message != nil {
		msg := update.CallbackQuery.Message.Message
		_, _ = b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			ReplyMarkup: &models.InlineKeyboardMarkup{
				InlineKeyboard: [][]models.InlineKeyboardButton{},
			},
		})
	}

	if verify {
		bh.sendText(ctx, b, chatID, messages.VerifiedStaffAck())
	} else {
		bh.sendText(ctx, b, chatID, messages.RejectedStaffAck())
	}
}

func (bh *Handlers) handleStaffTickets(ctx context.Context, b *bot.Bot, chatID int64) {
	tickets, err := bh.entities.ListTickets(ctx)
	if err != nil {
		log.Printf("Error listing tickets: %v", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(tickets) == 0 {
		bh.sendText(ctx, b, chatID, messages.NoOpenTickets())
		return
	}

	buttons := make([]utils.Button, 0, len(tickets)+1)
	for _, t := range tickets {
		buttons = append(buttons, utils.Button{
			Text:         messages.TicketButton(t),
			CallbackData: fmt.Sprintf("ticket_%d", t.ID),
		})
	}
	buttons = append(buttons, utils.Button{Text: messages.MenuBtnBack(), CallbackData: "main_menu"})

	keyboard := utils.BuildInlineKeyboard(buttons, 1)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.StaffDashboardTitle(),
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handleTicketDetail(ctx context.Context, b *bot.Bot, chatID, ticketID int64) {
	ticket, err := bh.entities.GetTicket(ctx, ticketID)
	if err != nil {
		log.Printf("Error getting ticket %d: %v", ticketID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if ticket == nil {
		bh.sendText(ctx, b, chatID, messages.NoOpenTickets())
		return
	}

	replies, err := bh.entities.ListTicketReplies(ctx, ticket.ID)
	if err != nil {
		log.Printf("Error listing replies for ticket %d: %v", ticket.ID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	keyboard := utils.BuildInlineKeyboard([]utils.Button{
		{Text: messages.BtnReply(), CallbackData: fmt.Sprintf("reply_%d", ticket.ID)},
		{Text: messages.BtnToggleResolved(ticket.Resolved), CallbackData: fmt.Sprintf("resolve_%d", ticket.ID)},
		{Text: messages.MenuBtnBack(), CallbackData: "staff_tickets"},
	}, 2)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.TicketDetails(ticket, replies),
		ReplyMarkup: &keyboard,
	})

	for _, att := range ticket.Attachments {
		if att.Type != types.AttachmentTypePhoto {
			continue
		}
		_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileString{Data: att.FileID},
		})
		if err != nil {
			log.Printf("Error showing ticket %d attachment: %v", ticket.ID, err)
		}
	}
}

func (bh *Handlers) handleBeginReply(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session, ticketID int64) {
	if err := bh.tickets.BeginReply(session, ticketID); err != nil {
		log.Printf("Error opening reply flow for ticket %d: %v", ticketID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.sendText(ctx, b, chatID, messages.TicketReplyPrompt())
}

func (bh *Handlers) handleToggleResolved(ctx context.Context, b *bot.Bot, chatID, ticketID int64) {
	ticket, err := bh.tickets.ToggleResolved(ctx, ticketID)
	if err != nil {
		log.Printf("Error toggling ticket %d: %v", ticketID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.sendText(ctx, b, chatID, messages.TicketToggleAck(ticket.Resolved))

	subscriber, err := bh.entities.GetSubscriber(ctx, ticket.SubscriberID)
	if err != nil || subscriber == nil {
		log.Printf("Error resolving requester for ticket %d: %v", ticket.ID, err)
		return
	}
	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: subscriber.ExternalID,
		Text:   messages.TicketStatusChanged(ticket.ID, ticket.Resolved),
	})
	if err != nil {
		log.Printf("Error notifying user %d about ticket status: %v", subscriber.ExternalID, err)
	}
}

func (bh *Handlers) handleSubscriptionRoster(ctx context.Context, b *bot.Bot, chatID int64) {
	subs, err := bh.entities.ListSubscriptions(ctx)
	if err != nil {
		log.Printf("Error listing subscriptions: %v", err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(subs) == 0 {
		bh.sendText(ctx, b, chatID, messages.NoSubscriptions())
		return
	}

	lines := make([]string, 0, len(subs))
	for _, sub := range subs {
		externalID := int64(0)
		if subscriber, err := bh.entities.GetSubscriber(ctx, sub.SubscriberID); err == nil && subscriber != nil {
			externalID = subscriber.ExternalID
		}
		lines = append(lines, messages.SubscriptionRosterLine(sub, externalID, bh.planName(ctx, sub.PlanID)))
	}
	bh.sendText(ctx, b, chatID, strings.Join(lines, "\n"))
}
