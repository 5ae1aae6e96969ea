package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/contextkeys"
	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/types"
)

type actionKind int

const (
	actionUnknown actionKind = iota
	actionMainMenu
	actionPurchase
	actionPlan
	actionViewSubs
	actionSupport
	actionPayLocal
	actionPayIntl
	actionStaffPayments
	actionPaymentDetail
	actionVerify
	actionReject
	actionStaffTickets
	actionTicketDetail
	actionReplyTicket
	actionResolveTicket
	actionStaffRoster
)

type action struct {
	kind actionKind
	id   int64
}

// parseCallbackData maps button payloads onto a closed action set. Anything
// unrecognized, including a malformed id suffix, is actionUnknown.
func parseCallbackData(data string) action {
	data = strings.TrimSpace(data)

	switch data {
	case "main_menu":
		return action{kind: actionMainMenu}
	case "purchase":
		return action{kind: actionPurchase}
	case "view_subs":
		return action{kind: actionViewSubs}
	case "support":
		return action{kind: actionSupport}
	case "pay_local":
		return action{kind: actionPayLocal}
	case "pay_intl":
		return action{kind: actionPayIntl}
	case "staff_payments":
		return action{kind: actionStaffPayments}
	case "staff_tickets":
		return action{kind: actionStaffTickets}
	case "staff_subscriptions":
		return action{kind: actionStaffRoster}
	}

	prefixes := []struct {
		prefix string
		kind   actionKind
	}{
		{"plan_", actionPlan},
		{"payment_", actionPaymentDetail},
		{"verify_", actionVerify},
		{"reject_", actionReject},
		{"ticket_", actionTicketDetail},
		{"reply_", actionReplyTicket},
		{"resolve_", actionResolveTicket},
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(data, p.prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(data, p.prefix), 10, 64)
		if err != nil || id <= 0 {
			return action{kind: actionUnknown}
		}
		return action{kind: p.kind, id: id}
	}

	return action{kind: actionUnknown}
}

func (a action) staffOnly() bool {
	switch a.kind {
	case actionStaffPayments, actionPaymentDetail, actionVerify, actionReject,
		actionStaffTickets, actionTicketDetail, actionReplyTicket,
		actionResolveTicket, actionStaffRoster:
		return true
	}
	return false
}

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	if update.CallbackQuery == nil {
		return
	}
	chatID := bh.getChatIDFromUpdate(update)

	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = update.CallbackQuery.Data
	}

	act := parseCallbackData(data)
	if act.kind == actionUnknown {
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, messages.ErrorUnknownCommand())
		return
	}

	if act.staffOnly() && !contextkeys.IsStaff(ctx) {
		_ = bh.answerCallbackAlert(ctx, b, update.CallbackQuery.ID, messages.ErrorStaffOnly())
		return
	}

	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	switch act.kind {
	case actionMainMenu:
		bh.sendMainMenu(ctx, b, chatID, contextkeys.IsStaff(ctx))
	case actionPurchase:
		bh.handlePurchase(ctx, b, chatID)
	case actionPlan:
		bh.handlePlanSelection(ctx, b, chatID, session, int(act.id))
	case actionViewSubs:
		bh.handleViewSubscriptions(ctx, b, chatID, session)
	case actionSupport:
		bh.handleSupport(ctx, b, chatID, session)
	case actionPayLocal:
		bh.handlePayLocal(ctx, b, chatID, session)
	case actionPayIntl:
		bh.handlePayInternational(ctx, b, chatID, session)
	case actionStaffPayments:
		bh.handleStaffPayments(ctx, b, chatID)
	case actionPaymentDetail:
		bh.handlePaymentDetail(ctx, b, chatID, act.id)
	case actionVerify:
		bh.handleVerdict(ctx, b, update, chatID, act.id, true)
	case actionReject:
		bh.handleVerdict(ctx, b, update, chatID, act.id, false)
	case actionStaffTickets:
		bh.handleStaffTickets(ctx, b, chatID)
	case actionTicketDetail:
		bh.handleTicketDetail(ctx, b, chatID, act.id)
	case actionReplyTicket:
		bh.handleBeginReply(ctx, b, chatID, session, act.id)
	case actionResolveTicket:
		bh.handleToggleResolved(ctx, b, chatID, act.id)
	case actionStaffRoster:
		bh.handleSubscriptionRoster(ctx, b, chatID)
	}
}
