package workflow

import (
	"context"
	"errors"
	"log"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/notify"
	"github.com/subgate/subgate-bot/types"
)

// ErrPaymentNotFound means the adjudicated payment does not exist.
var ErrPaymentNotFound = errors.New("payment not found")

// Verdict is a staff decision on a pending payment.
type Verdict string

const (
	VerdictVerify Verdict = "verify"
	VerdictReject Verdict = "reject"
)

// AdjudicationResult reports what a verdict actually did. Applied=false means
// the payment had already been processed and nothing changed. Notification
// and invite failures never undo an applied verdict; they are surfaced here
// for the caller to report.
type AdjudicationResult struct {
	Applied     bool
	Payment     *types.Payment
	Plan        *types.Plan
	RequesterID int64
	Concierge   bool
	NotifyErr   error
	InviteTried bool
	InviteErr   error
}

// Adjudicator applies staff verdicts: the atomic status transition first,
// then best-effort requester notification and group access.
type Adjudicator struct {
	store    types.EntityStore
	notifier notify.Notifier
	inviter  notify.GroupInviter
	cfg      config.Config
}

func NewAdjudicator(store types.EntityStore, notifier notify.Notifier, inviter notify.GroupInviter, cfg config.Config) *Adjudicator {
	return &Adjudicator{
		store:    store,
		notifier: notifier,
		inviter:  inviter,
		cfg:      cfg,
	}
}

// Adjudicate applies the verdict to the payment. The payment and subscription
// statuses move together in one transaction, conditional on the payment still
// being adjudicable; a second verdict on the same payment reports
// Applied=false regardless of direction.
func (a *Adjudicator) Adjudicate(ctx context.Context, paymentID int64, verdict Verdict) (*AdjudicationResult, error) {
	payment, err := a.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	result := &AdjudicationResult{Payment: payment}
	if !payment.Status.Adjudicable() {
		return result, nil
	}

	sub, err := a.store.GetSubscription(ctx, payment.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errors.New("subscription missing for payment")
	}
	plan, err := a.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	subscriber, err := a.store.GetSubscriber(ctx, sub.SubscriberID)
	if err != nil {
		return nil, err
	}

	paymentStatus := types.PaymentVerified
	subscriptionStatus := types.SubscriptionActive
	if verdict == VerdictReject {
		paymentStatus = types.PaymentInvalid
		subscriptionStatus = types.SubscriptionExpired
	}

	applied, err := a.store.FinalizePayment(ctx, payment.ID, paymentStatus, subscriptionStatus)
	if err != nil {
		return nil, err
	}
	if !applied {
		return result, nil
	}
	result.Applied = true
	result.Plan = plan
	payment.Status = paymentStatus

	if subscriber == nil {
		log.Printf("payment %d adjudicated but subscriber %d is missing, skipping notification", payment.ID, sub.SubscriberID)
		return result, nil
	}
	result.RequesterID = subscriber.ExternalID

	planName := "your"
	if plan != nil {
		planName = plan.Name
	}

	if verdict == VerdictReject {
		result.NotifyErr = a.notifier.Notify(ctx, subscriber.ExternalID, messages.PaymentRejected(planName))
		if result.NotifyErr != nil {
			log.Printf("failed to notify user %d of rejection: %v", subscriber.ExternalID, result.NotifyErr)
		}
		return result, nil
	}

	if plan != nil && plan.ManualHandling {
		result.Concierge = true
		result.NotifyErr = a.notifier.Notify(ctx, subscriber.ExternalID, messages.ConciergeActivation(planName, a.cfg.StaffContact))
		if result.NotifyErr != nil {
			log.Printf("failed to notify user %d of concierge activation: %v", subscriber.ExternalID, result.NotifyErr)
		}
		return result, nil
	}

	result.NotifyErr = a.notifier.Notify(ctx, subscriber.ExternalID, messages.PaymentVerified(planName))
	if result.NotifyErr != nil {
		log.Printf("failed to notify user %d of verification: %v", subscriber.ExternalID, result.NotifyErr)
		return result, nil
	}

	if plan == nil || plan.ChannelID == "" {
		log.Printf("plan for subscription %d has no channel configured, skipping invite", sub.ID)
		return result, nil
	}

	result.InviteTried = true
	result.InviteErr = a.inviter.Invite(ctx, plan.ChannelID, subscriber.ExternalID)
	if result.InviteErr != nil {
		log.Printf("failed to invite user %d to channel %s: %v", subscriber.ExternalID, plan.ChannelID, result.InviteErr)
	}
	return result, nil
}
