package types

import (
	"context"
	"time"
)

// Subscriber is a requester known to the system. ExternalID is the Telegram
// user id: unique and immutable once created.
type Subscriber struct {
	ID         int64
	ExternalID int64
	Name       string
	Handle     string
	CreatedAt  time.Time
}

// Plan is a catalog entry. Read-only to the workflows; selected by index
// from the cached catalog.
type Plan struct {
	ID             int64
	Name           string
	Price          float64
	DurationDays   int
	ChannelID      string
	Description    string
	ManualHandling bool
}

type Subscription struct {
	ID           int64
	SubscriberID int64
	PlanID       int64
	Status       SubscriptionStatus
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type Payment struct {
	ID              int64
	SubscriptionID  int64
	Amount          float64
	Status          PaymentStatus
	ReceiptURL      string
	IsInternational bool
	CreatedAt       time.Time
}

type Attachment struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

type SupportTicket struct {
	ID           int64
	SubscriberID int64
	Issue        string
	Resolved     bool
	Attachments  []Attachment
	CreatedAt    time.Time
}

type TicketReply struct {
	ID        int64
	TicketID  int64
	Reply     string
	RepliedBy int64
	Timestamp time.Time
}

type StaffMember struct {
	ID         int64
	Name       string
	Email      string
	ExternalID int64
}

// EntityStore is the durable record store. Lookups return (nil, nil) when
// the record does not exist; an error means the store itself failed.
type EntityStore interface {
	UpsertSubscriber(ctx context.Context, sub Subscriber) (*Subscriber, error)
	GetSubscriber(ctx context.Context, id int64) (*Subscriber, error)
	GetSubscriberByExternalID(ctx context.Context, externalID int64) (*Subscriber, error)

	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id int64) (*Plan, error)

	CreateSubscription(ctx context.Context, subscriberID, planID int64, expiresAt time.Time) (*Subscription, error)
	GetSubscription(ctx context.Context, id int64) (*Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	ListSubscriberSubscriptions(ctx context.Context, subscriberID int64) ([]Subscription, error)

	CreatePayment(ctx context.Context, subscriptionID int64, amount float64) (*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	SetPaymentRoute(ctx context.Context, id int64, international bool) error
	AttachReceipt(ctx context.Context, id int64, receiptURL string) error
	// FinalizePayment applies the terminal payment status and the matching
	// subscription status in one transaction. The payment update is
	// conditional on the current status still being adjudicable; false means
	// the payment was already processed.
	FinalizePayment(ctx context.Context, id int64, payment PaymentStatus, subscription SubscriptionStatus) (bool, error)
	ListPendingPayments(ctx context.Context) ([]Payment, error)

	CreateTicket(ctx context.Context, subscriberID int64, issue string, attachments []Attachment) (*SupportTicket, error)
	GetTicket(ctx context.Context, id int64) (*SupportTicket, error)
	ListTickets(ctx context.Context) ([]SupportTicket, error)
	SetTicketResolved(ctx context.Context, id int64, resolved bool) error
	CreateTicketReply(ctx context.Context, ticketID int64, reply string, repliedBy int64) (*TicketReply, error)
	ListTicketReplies(ctx context.Context, ticketID int64) ([]TicketReply, error)

	IsStaff(ctx context.Context, externalID int64) (bool, error)
}
