package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/subgate/subgate-bot/internal/payments"
	"github.com/subgate/subgate-bot/types"
)

func ErrorDefault() string {
	return "🚫 Something went wrong on our side. Please try again."
}

func ErrorUnknownCommand() string {
	return "Unknown command. Please use the menu buttons."
}

func ErrorUnsupportedMessageType() string {
	return "Unsupported file type. Please send text or images."
}

func ErrorPlansUnavailable() string {
	return "Failed to load plans. Please try again later."
}

func ErrorInvalidPlanSelection() string {
	return "Invalid plan selection"
}

func ErrorSubscriptionCreateFailed() string {
	return "Failed to create subscription. Please try again."
}

func ErrorPaymentNotConfigured() string {
	return "Payments are temporarily unavailable. Please contact support."
}

func ErrorFileTooLarge(maxBytes int64) string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", maxBytes/(1024*1024))
}

func ErrorReceiptDownloadFailed() string {
	return "Failed to download the receipt. Please try again."
}

func ErrorRateLimited() string {
	return "🚫 Too many requests. Please slow down."
}

func ErrorTicketRateLimited() string {
	return "🚫 You have raised too many support tickets recently. Please wait before raising another one."
}

func ErrorTicketCreateFailed() string {
	return "Failed to create the support ticket. Please try again later."
}

func ErrorStaffOnly() string {
	return "Staff access denied"
}

func ErrorAlreadyProcessed() string {
	return "⚠️ This payment has already been processed and cannot be adjudicated again."
}

func StrayMessageHint() string {
	return "I wasn't expecting that. Use /start to open the menu."
}

func WelcomeNew() string {
	return "Welcome! You have been registered."
}

func WelcomeBack() string {
	return "Welcome back!"
}

func MainMenuTitle() string {
	return "Main Menu:"
}

func StaffDashboardTitle() string {
	return "Staff Dashboard:"
}

func PlansTitle() string {
	return "Available subscription plans:"
}

func PlanButton(p types.Plan) string {
	return fmt.Sprintf("%s - ₹%.0f", p.Name, p.Price)
}

func ChooseMethodTitle(p types.Plan) string {
	return fmt.Sprintf("You selected %s (₹%.0f). How would you like to pay?", p.Name, p.Price)
}

func MenuBtnPurchase() string {
	return "💳 Purchase Subscription"
}

func MenuBtnMySubscriptions() string {
	return "📋 My Subscriptions"
}

func MenuBtnSupport() string {
	return "🛟 Support"
}

func MenuBtnStaffPayments() string {
	return "🧾 Pending Payments"
}

func MenuBtnStaffTickets() string {
	return "📨 Support Tickets"
}

func MenuBtnStaffRoster() string {
	return "👥 All Subscriptions"
}

func MenuBtnBack() string {
	return "⬅️ Back"
}

func PayBtnLocal() string {
	return "🇮🇳 UPI (domestic)"
}

func PayBtnIntl() string {
	return "🌍 International"
}

func BtnVerify() string {
	return "✅ Verify"
}

func BtnReject() string {
	return "❌ Reject"
}

func BtnReply() string {
	return "💬 Reply"
}

func BtnToggleResolved(resolved bool) string {
	if resolved {
		return "🔓 Reopen"
	}
	return "✔️ Resolve"
}

// LocalPaymentCaption renders the VPA transfer instructions, including the
// three-way split suggestion for the distinguished high-value amount.
func LocalPaymentCaption(inst *payments.LocalInstructions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💳 Please send ₹%.0f to VPA: %s\n", inst.Amount, inst.VPA)
	if len(inst.SplitSuggestion) > 0 {
		parts := make([]string, 0, len(inst.SplitSuggestion))
		for _, p := range inst.SplitSuggestion {
			parts = append(parts, fmt.Sprintf("₹%.0f", p))
		}
		fmt.Fprintf(&b, "💡 Tip: send it as three transfers of %s.\n", strings.Join(parts, " + "))
	}
	b.WriteString("📸 After payment, send the receipt screenshot here.")
	return b.String()
}

func IntlPaymentInstructions(inst *payments.IntlInstructions) string {
	return fmt.Sprintf(
		"🌍 International payment via %s\n\n"+
			"Amount: ₹%.0f\n"+
			"Send to: %s\n"+
			"Recipient name: %s\n"+
			"Reason: %s\n\n"+
			"📸 After payment, send the receipt screenshot here.",
		inst.Service, inst.Amount, inst.AccountAlias, inst.PayeeName, inst.Reason,
	)
}

func ReceiptPrompt() string {
	return "Please send the payment receipt screenshot."
}

func ReceiptReceived() string {
	return "✅ Payment received! Awaiting staff verification."
}

func ReceiptStaffCaption(subscriptionID int64) string {
	return fmt.Sprintf("Payment receipt for subscription %d", subscriptionID)
}

func PaymentVerified(planName string) string {
	return fmt.Sprintf("✅ Your payment for %s subscription has been verified! Your subscription is now active.", planName)
}

func PaymentRejected(planName string) string {
	return fmt.Sprintf("❌ Your payment for %s subscription has been rejected. Please contact support or try making the payment again.", planName)
}

func ConciergeActivation(planName, staffContact string) string {
	return fmt.Sprintf(
		"✅ Your payment for %s has been verified! This plan is set up personally. %s will contact you shortly to get you onboarded.",
		planName, staffContact,
	)
}

func VerifiedStaffAck() string {
	return "✅ Payment verified!"
}

func RejectedStaffAck() string {
	return "❌ Payment rejected!"
}

func SubscriptionLine(planName string, status types.SubscriptionStatus) string {
	return fmt.Sprintf("%s (%s)", planName, status)
}

func NoSubscriptions() string {
	return "You have no active subscriptions."
}

func NoPendingPayments() string {
	return "No pending payments"
}

func NoOpenTickets() string {
	return "No open support tickets."
}

func SupportIssuePrompt() string {
	return "Please describe your issue:"
}

func SupportIssueFirst() string {
	return "Please describe your issue in a text message first."
}

func SupportCollecting() string {
	return "Thank you for describing your issue. You can now send additional messages or images if needed. When you're done, type /done."
}

func SupportMoreReceived() string {
	return "Additional message received. You can send more or type /done when finished."
}

func SupportImageReceived() string {
	return "Image received. You can send more or type /done when finished."
}

func TicketCreated() string {
	return "📨 Your support ticket has been created. We'll get back to you soon! ⏳"
}

func TicketStaffAlert(ticketID, userID int64, issue string) string {
	return fmt.Sprintf(
		"🚨 New Support Ticket 🚨\n\nTicket ID: #%d\nUser ID: %d\nIssue: %s\n\nPlease respond promptly.",
		ticketID, userID, issue,
	)
}

func TicketReplyPrompt() string {
	return "Please enter your reply:"
}

func TicketReplyAdded() string {
	return "Reply added successfully!"
}

func TicketReplyNotification(ticketID int64, reply string) string {
	return fmt.Sprintf(
		"🔔 You have received a reply to your support ticket #%d:\n\n%s\n\nYou can continue the conversation through the support system.",
		ticketID, reply,
	)
}

func TicketStatusChanged(ticketID int64, resolved bool) string {
	status := "reopened"
	if resolved {
		status = "resolved"
	}
	return fmt.Sprintf("Your support ticket #%d has been %s.", ticketID, status)
}

func TicketToggleAck(resolved bool) string {
	if resolved {
		return "Ticket resolved!"
	}
	return "Ticket reopened!"
}

func TicketDetails(t *types.SupportTicket, replies []types.TicketReply) string {
	status := "Open"
	if t.Resolved {
		status = "Resolved"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Ticket Details\n\nTicket ID: #%d\nStatus: %s\nIssue: %s\nCreated At: %s\n",
		t.ID, status, t.Issue, t.CreatedAt.Format(time.RFC3339))
	if len(replies) > 0 {
		b.WriteString("\nReplies:\n")
		for _, r := range replies {
			fmt.Fprintf(&b, "- %s (by %d)\n", r.Reply, r.RepliedBy)
		}
	}
	return b.String()
}

func PaymentDetailsCaption(p *types.Payment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment Details:\nAmount: ₹%.0f\nSubscription ID: %d", p.Amount, p.SubscriptionID)
	if p.ReceiptURL != "" && p.ReceiptURL != types.ReceiptPlaceholder {
		fmt.Fprintf(&b, "\nReceipt: %s", p.ReceiptURL)
	}
	return b.String()
}

func PendingPaymentButton(p types.Payment) string {
	return fmt.Sprintf("Payment ID: %d | ₹%.0f", p.ID, p.Amount)
}

func TicketButton(t types.SupportTicket) string {
	status := "Open"
	if t.Resolved {
		status = "Resolved"
	}
	return fmt.Sprintf("Ticket #%d (%s)", t.ID, status)
}

func SubscriptionRosterLine(sub types.Subscription, externalID int64, planName string) string {
	return fmt.Sprintf("ID: %d | User ID: %d | Plan: %s | Status: %s", sub.ID, externalID, planName, sub.Status)
}
