package types

type SubscriptionStatus string

const (
	SubscriptionPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionActive         SubscriptionStatus = "active"
	SubscriptionExpired        SubscriptionStatus = "expired"
)

type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "pending"
	PaymentPendingVerification PaymentStatus = "pending_verification"
	PaymentVerified            PaymentStatus = "verified"
	PaymentInvalid             PaymentStatus = "invalid"
)

// Adjudicable reports whether a payment in this status may still be
// verified or rejected. Terminal statuses are single-shot.
func (s PaymentStatus) Adjudicable() bool {
	return s == PaymentPending || s == PaymentPendingVerification
}

// SessionState tags the conversational workflow a requester is in.
type SessionState string

const (
	StateIdle SessionState = "idle"

	// Payment workflow.
	StateAwaitingMethod  SessionState = "awaiting_method"
	StateAwaitingReceipt SessionState = "awaiting_receipt"

	// Support ticket workflow.
	StateAwaitingIssue  SessionState = "awaiting_issue"
	StateCollectingInfo SessionState = "collecting_info"

	// Staff reply workflow.
	StateAwaitingReply SessionState = "awaiting_reply"
)

// ReceiptPlaceholder is stored on a payment stub until a receipt is uploaded.
const ReceiptPlaceholder = "pending_upload"

const AttachmentTypePhoto = "photo"
