package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/payments"
	"github.com/subgate/subgate-bot/internal/utils"
	"github.com/subgate/subgate-bot/internal/workflow"
	"github.com/subgate/subgate-bot/types"
)

func (bh *Handlers) sendMainMenu(ctx context.Context, b *bot.Bot, chatID int64, isStaff bool) {
	buttons := []utils.Button{
		{Text: messages.MenuBtnPurchase(), CallbackData: "purchase"},
		{Text: messages.MenuBtnMySubscriptions(), CallbackData: "view_subs"},
		{Text: messages.MenuBtnSupport(), CallbackData: "support"},
	}
	title := messages.MainMenuTitle()
	if isStaff {
		buttons = append(buttons,
			utils.Button{Text: messages.MenuBtnStaffPayments(), CallbackData: "staff_payments"},
			utils.Button{Text: messages.MenuBtnStaffTickets(), CallbackData: "staff_tickets"},
			utils.Button{Text: messages.MenuBtnStaffRoster(), CallbackData: "staff_subscriptions"},
		)
		title = messages.StaffDashboardTitle()
	}

	keyboard := utils.BuildInlineKeyboard(buttons, 1)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        title,
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handlePurchase(ctx context.Context, b *bot.Bot, chatID int64) {
	catalog, err := bh.catalog.Get(ctx)
	if err != nil {
		log.Printf("Error loading plan catalog: %v", err)
		bh.sendText(ctx, b, chatID, messages.ErrorPlansUnavailable())
		return
	}

	buttons := make([]utils.Button, 0, len(catalog)+1)
	for i, plan := range catalog {
		buttons = append(buttons, utils.Button{
			Text:         messages.PlanButton(plan),
			CallbackData: fmt.Sprintf("plan_%d", i+1),
		})
	}
	buttons = append(buttons, utils.Button{Text: messages.MenuBtnBack(), CallbackData: "main_menu"})

	keyboard := utils.BuildInlineKeyboard(buttons, 1)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.PlansTitle(),
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handlePlanSelection(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session, index int) {
	selection, err := bh.payments.SelectPlan(ctx, session, index)
	if err != nil {
		if errors.Is(err, workflow.ErrInvalidPlan) {
			bh.sendText(ctx, b, chatID, messages.ErrorInvalidPlanSelection())
			return
		}
		log.Printf("Error selecting plan %d for %d: %v", index, session.UserID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorSubscriptionCreateFailed())
		return
	}

	keyboard := utils.BuildInlineKeyboard([]utils.Button{
		{Text: messages.PayBtnLocal(), CallbackData: "pay_local"},
		{Text: messages.PayBtnIntl(), CallbackData: "pay_intl"},
		{Text: messages.MenuBtnBack(), CallbackData: "main_menu"},
	}, 1)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.ChooseMethodTitle(selection.Plan),
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handlePayLocal(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session) {
	inst, err := bh.payments.ChooseLocal(ctx, session)
	if err != nil {
		bh.reportRoutingError(ctx, b, chatID, session, err)
		return
	}
	bh.sendLocalInstructions(ctx, b, chatID, session.UserID, inst)
}

func (bh *Handlers) handlePayInternational(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session) {
	inst, err := bh.payments.ChooseInternational(ctx, session)
	if err != nil {
		bh.reportRoutingError(ctx, b, chatID, session, err)
		return
	}
	bh.sendText(ctx, b, chatID, messages.IntlPaymentInstructions(inst))
}

func (bh *Handlers) reportRoutingError(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session, err error) {
	switch {
	case errors.Is(err, payments.ErrRouteNotConfigured):
		log.Printf("Payment route missing for amount %.0f", session.Amount)
		bh.sendText(ctx, b, chatID, messages.ErrorPaymentNotConfigured())
	case errors.Is(err, workflow.ErrWrongState):
		bh.sendText(ctx, b, chatID, messages.StrayMessageHint())
	default:
		log.Printf("Error routing payment %d: %v", session.PaymentID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
	}
}

func (bh *Handlers) sendLocalInstructions(ctx context.Context, b *bot.Bot, chatID, userID int64, inst *payments.LocalInstructions) {
	_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo: &models.InputFileUpload{
			Filename: fmt.Sprintf("upi_qr_%d.png", userID),
			Data:     bytes.NewReader(inst.QR),
		},
		Caption: messages.LocalPaymentCaption(inst),
	})
	if err != nil {
		log.Printf("Error sending QR to %d, falling back to text: %v", chatID, err)
		bh.sendText(ctx, b, chatID, messages.LocalPaymentCaption(inst))
	}
}

func (bh *Handlers) handleViewSubscriptions(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session) {
	subscriber, err := bh.entities.GetSubscriberByExternalID(ctx, session.UserID)
	if err != nil {
		log.Printf("Error looking up subscriber %d: %v", session.UserID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if subscriber == nil {
		bh.sendText(ctx, b, chatID, messages.NoSubscriptions())
		return
	}

	subs, err := bh.entities.ListSubscriberSubscriptions(ctx, subscriber.ID)
	if err != nil {
		log.Printf("Error listing subscriptions for %d: %v", subscriber.ID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(subs) == 0 {
		bh.sendText(ctx, b, chatID, messages.NoSubscriptions())
		return
	}

	lines := make([]string, 0, len(subs))
	for _, sub := range subs {
		lines = append(lines, messages.SubscriptionLine(bh.planName(ctx, sub.PlanID), sub.Status))
	}
	bh.sendText(ctx, b, chatID, strings.Join(lines, "\n"))
}

func (bh *Handlers) handleSupport(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session) {
	if err := bh.tickets.Begin(session); err != nil {
		log.Printf("Error opening support flow for %d: %v", session.UserID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	bh.sendText(ctx, b, chatID, messages.SupportIssuePrompt())
}

func (bh *Handlers) planName(ctx context.Context, planID int64) string {
	plan, err := bh.entities.GetPlan(ctx, planID)
	if err != nil || plan == nil {
		return fmt.Sprintf("plan %d", planID)
	}
	return plan.Name
}
