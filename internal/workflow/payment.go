package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/payments"
	"github.com/subgate/subgate-bot/internal/plans"
	"github.com/subgate/subgate-bot/internal/receipts"
	"github.com/subgate/subgate-bot/types"
)

var (
	// ErrInvalidPlan means the selected index fell outside the catalog.
	ErrInvalidPlan = errors.New("invalid plan selection")
	// ErrWrongState means the event arrived outside its workflow state.
	ErrWrongState = errors.New("unexpected workflow state")
	// ErrReceiptTooLarge means the image exceeded the size cap.
	ErrReceiptTooLarge = errors.New("receipt exceeds size cap")
)

// PaymentWorkflow drives a subscription from plan selection through receipt
// capture. It is transport-agnostic: callers feed it sessions and bytes and
// render the returned instructions however they like.
type PaymentWorkflow struct {
	store    types.EntityStore
	sessions types.SessionStore
	catalog  *plans.Catalog
	router   *payments.Router
	storage  *receipts.Storage
	cfg      config.Config
	tz       *time.Location
	now      func() time.Time
}

func NewPaymentWorkflow(
	store types.EntityStore,
	sessions types.SessionStore,
	catalog *plans.Catalog,
	router *payments.Router,
	storage *receipts.Storage,
	cfg config.Config,
) *PaymentWorkflow {
	tz, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		tz = time.FixedZone("IST", 5*3600+30*60)
	}
	return &PaymentWorkflow{
		store:    store,
		sessions: sessions,
		catalog:  catalog,
		router:   router,
		storage:  storage,
		cfg:      cfg,
		tz:       tz,
		now:      time.Now,
	}
}

// PlanSelection is everything created by a successful plan pick: the
// subscription stub, its payment stub and the plan the price was captured
// from.
type PlanSelection struct {
	Plan         types.Plan
	Subscription types.Subscription
	Payment      types.Payment
}

// SelectPlan creates the pending subscription and payment stub for the
// 1-based catalog index and moves the session to method selection. An
// out-of-range index changes nothing.
func (w *PaymentWorkflow) SelectPlan(ctx context.Context, session *types.Session, index int) (*PlanSelection, error) {
	plan, err := w.catalog.Select(ctx, index)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrInvalidPlan
	}

	subscriber, err := w.store.GetSubscriberByExternalID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if subscriber == nil {
		return nil, errors.New("subscriber not registered")
	}

	expiresAt := w.now().In(w.tz).AddDate(0, 0, plan.DurationDays)
	sub, err := w.store.CreateSubscription(ctx, subscriber.ID, plan.ID, expiresAt)
	if err != nil {
		return nil, err
	}

	// Price is captured here; later plan edits never touch this payment.
	payment, err := w.store.CreatePayment(ctx, sub.ID, plan.Price)
	if err != nil {
		return nil, err
	}

	session.State = types.StateAwaitingMethod
	session.SubscriptionID = sub.ID
	session.PaymentID = payment.ID
	session.Amount = plan.Price
	if err := w.sessions.UpdateSession(session); err != nil {
		return nil, err
	}

	return &PlanSelection{Plan: *plan, Subscription: *sub, Payment: *payment}, nil
}

// ChooseLocal routes the payment domestically and advances to receipt
// capture. A missing tier address aborts with ErrRouteNotConfigured and no
// state change.
func (w *PaymentWorkflow) ChooseLocal(ctx context.Context, session *types.Session) (*payments.LocalInstructions, error) {
	if session.State != types.StateAwaitingMethod {
		return nil, ErrWrongState
	}

	inst, err := w.router.Local(session.Amount)
	if err != nil {
		return nil, err
	}

	if err := w.store.SetPaymentRoute(ctx, session.PaymentID, false); err != nil {
		return nil, err
	}
	session.State = types.StateAwaitingReceipt
	if err := w.sessions.UpdateSession(session); err != nil {
		return nil, err
	}
	return inst, nil
}

// ChooseInternational routes through the remittance corridor and advances
// to receipt capture.
func (w *PaymentWorkflow) ChooseInternational(ctx context.Context, session *types.Session) (*payments.IntlInstructions, error) {
	if session.State != types.StateAwaitingMethod {
		return nil, ErrWrongState
	}

	inst, err := w.router.International(session.Amount)
	if err != nil {
		return nil, err
	}

	if err := w.store.SetPaymentRoute(ctx, session.PaymentID, true); err != nil {
		return nil, err
	}
	session.State = types.StateAwaitingReceipt
	if err := w.sessions.UpdateSession(session); err != nil {
		return nil, err
	}
	return inst, nil
}

// SubmitReceipt persists the screenshot, marks the payment as awaiting
// verification and ends the conversational sequence. Oversize images and
// storage failures leave the session in receipt capture so the requester
// can retry.
func (w *PaymentWorkflow) SubmitReceipt(ctx context.Context, session *types.Session, image []byte) (string, error) {
	if session.State != types.StateAwaitingReceipt {
		return "", ErrWrongState
	}
	if int64(len(image)) > w.cfg.MaxReceiptBytes {
		return "", ErrReceiptTooLarge
	}

	receiptURL, err := w.storage.Save(image, receipts.FileName(session.UserID))
	if err != nil {
		return "", err
	}

	if err := w.store.AttachReceipt(ctx, session.PaymentID, receiptURL); err != nil {
		return "", err
	}

	if err := w.sessions.ClearSession(session.ID); err != nil {
		return "", err
	}
	return receiptURL, nil
}

// MaxReceiptBytes exposes the cap so callers can reject oversize files
// before downloading them.
func (w *PaymentWorkflow) MaxReceiptBytes() int64 {
	return w.cfg.MaxReceiptBytes
}
