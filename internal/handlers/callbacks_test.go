package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		data string
		want action
	}{
		{"main_menu", action{kind: actionMainMenu}},
		{"purchase", action{kind: actionPurchase}},
		{"view_subs", action{kind: actionViewSubs}},
		{"support", action{kind: actionSupport}},
		{"pay_local", action{kind: actionPayLocal}},
		{"pay_intl", action{kind: actionPayIntl}},
		{"plan_2", action{kind: actionPlan, id: 2}},
		{"payment_17", action{kind: actionPaymentDetail, id: 17}},
		{"verify_17", action{kind: actionVerify, id: 17}},
		{"reject_17", action{kind: actionReject, id: 17}},
		{"staff_payments", action{kind: actionStaffPayments}},
		{"staff_tickets", action{kind: actionStaffTickets}},
		{"staff_subscriptions", action{kind: actionStaffRoster}},
		{"ticket_5", action{kind: actionTicketDetail, id: 5}},
		{"reply_5", action{kind: actionReplyTicket, id: 5}},
		{"resolve_5", action{kind: actionResolveTicket, id: 5}},
		{"  plan_1  ", action{kind: actionPlan, id: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			assert.Equal(t, tc.want, parseCallbackData(tc.data))
		})
	}
}

func TestParseCallbackDataRejectsMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"nonsense",
		"plan_",
		"plan_abc",
		"plan_0",
		"verify_-3",
		"verify_1x",
		"payment",
	} {
		t.Run(data, func(t *testing.T) {
			assert.Equal(t, actionUnknown, parseCallbackData(data).kind)
		})
	}
}

func TestStaffOnlyActions(t *testing.T) {
	staffOnly := []action{
		{kind: actionStaffPayments},
		{kind: actionPaymentDetail, id: 1},
		{kind: actionVerify, id: 1},
		{kind: actionReject, id: 1},
		{kind: actionStaffTickets},
		{kind: actionTicketDetail, id: 1},
		{kind: actionReplyTicket, id: 1},
		{kind: actionResolveTicket, id: 1},
		{kind: actionStaffRoster},
	}
	for _, a := range staffOnly {
		assert.True(t, a.staffOnly(), "kind %d", a.kind)
	}

	open := []action{
		{kind: actionMainMenu},
		{kind: actionPurchase},
		{kind: actionPlan, id: 1},
		{kind: actionViewSubs},
		{kind: actionSupport},
		{kind: actionPayLocal},
		{kind: actionPayIntl},
	}
	for _, a := range open {
		assert.False(t, a.staffOnly(), "kind %d", a.kind)
	}
}
