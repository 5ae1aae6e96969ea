package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/payments"
	"github.com/subgate/subgate-bot/internal/plans"
	"github.com/subgate/subgate-bot/internal/receipts"
	"github.com/subgate/subgate-bot/types"
)

func paymentTestConfig() config.Config {
	return config.Config{
		VPAPrimary:         "primary@upi",
		VPAHigh:            "high@upi",
		LocalTierThreshold: 2000,
		SplitAmount:        5000,
		RemittanceService:  "Wise",
		IntlAccountAlias:   "alias@wise",
		IntlPayeeName:      "Subgate Payments",
		IntlReason:         "Subscription",
		StaffContact:       "@support",
		MaxReceiptBytes:    5 * 1024 * 1024,
	}
}

type paymentEnv struct {
	store    *memStore
	sessions *memSessions
	flow     *PaymentWorkflow
	session  *types.Session
	plan     *types.Plan
}

func newPaymentEnv(t *testing.T) *paymentEnv {
	t.Helper()

	store := newMemStore()
	sessions := newMemSessions()
	cfg := paymentTestConfig()

	storage, err := receipts.NewStorage(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)

	plan := store.addPlan(types.Plan{
		Name:         "Premium",
		Price:        2000,
		DurationDays: 60,
		ChannelID:    "1234567890",
	})
	store.addSubscriber(777)

	session := &types.Session{UserID: 777, ChatID: 777}
	require.NoError(t, sessions.CreateSession(session))

	flow := NewPaymentWorkflow(
		store,
		sessions,
		plans.NewCatalog(store, time.Minute),
		payments.NewRouter(cfg),
		storage,
		cfg,
	)

	return &paymentEnv{
		store:    store,
		sessions: sessions,
		flow:     flow,
		session:  session,
		plan:     plan,
	}
}

func TestSelectPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("creates subscription and payment stubs", func(t *testing.T) {
		env := newPaymentEnv(t)

		selection, err := env.flow.SelectPlan(ctx, env.session, 1)
		require.NoError(t, err)

		assert.Equal(t, env.plan.ID, selection.Subscription.PlanID)
		assert.Equal(t, types.SubscriptionPendingPayment, selection.Subscription.Status)
		assert.Equal(t, types.PaymentPending, selection.Payment.Status)
		assert.Equal(t, types.ReceiptPlaceholder, selection.Payment.ReceiptURL)
		assert.Equal(t, env.plan.Price, selection.Payment.Amount)

		assert.Equal(t, types.StateAwaitingMethod, env.session.State)
		assert.Equal(t, selection.Payment.ID, env.session.PaymentID)
		assert.Equal(t, env.plan.Price, env.session.Amount)
	})

	t.Run("expiry is duration days from now in IST", func(t *testing.T) {
		env := newPaymentEnv(t)
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		env.flow.now = func() time.Time { return fixed }

		selection, err := env.flow.SelectPlan(ctx, env.session, 1)
		require.NoError(t, err)

		want := fixed.In(env.flow.tz).AddDate(0, 0, env.plan.DurationDays)
		assert.True(t, selection.Subscription.ExpiresAt.Equal(want),
			"got %v want %v", selection.Subscription.ExpiresAt, want)
	})

	t.Run("out of range index changes nothing", func(t *testing.T) {
		env := newPaymentEnv(t)

		_, err := env.flow.SelectPlan(ctx, env.session, 5)
		assert.ErrorIs(t, err, ErrInvalidPlan)
		assert.Empty(t, env.store.subscriptions)
		assert.Empty(t, env.store.payments)
		assert.Equal(t, types.SessionState(""), env.session.State)
	})
}

func TestChooseMethod(t *testing.T) {
	ctx := context.Background()

	t.Run("local routes and advances to receipt capture", func(t *testing.T) {
		env := newPaymentEnv(t)
		_, err := env.flow.SelectPlan(ctx, env.session, 1)
		require.NoError(t, err)

		inst, err := env.flow.ChooseLocal(ctx, env.session)
		require.NoError(t, err)
		assert.Equal(t, "primary@upi", inst.VPA)
		assert.Equal(t, types.StateAwaitingReceipt, env.session.State)
		assert.False(t, env.store.payments[env.session.PaymentID].IsInternational)
	})

	t.Run("international marks the payment", func(t *testing.T) {
		env := newPaymentEnv(t)
		_, err := env.flow.SelectPlan(ctx, env.session, 1)
		require.NoError(t, err)

		inst, err := env.flow.ChooseInternational(ctx, env.session)
		require.NoError(t, err)
		assert.Equal(t, "Wise", inst.Service)
		assert.Equal(t, types.StateAwaitingReceipt, env.session.State)
		assert.True(t, env.store.payments[env.session.PaymentID].IsInternational)
	})

	t.Run("missing route keeps the workflow in method selection", func(t *testing.T) {
		env := newPaymentEnv(t)
		env.flow.router = payments.NewRouter(config.Config{LocalTierThreshold: 2000})
		_, err := env.flow.SelectPlan(ctx, env.session, 1)
		require.NoError(t, err)

		_, err = env.flow.ChooseLocal(ctx, env.session)
		assert.ErrorIs(t, err, payments.ErrRouteNotConfigured)
		assert.Equal(t, types.StateAwaitingMethod, env.session.State)
		assert.Equal(t, types.PaymentPending, env.store.payments[env.session.PaymentID].Status)
	})

	t.Run("wrong state is rejected", func(t *testing.T) {
		env := newPaymentEnv(t)

		_, err := env.flow.ChooseLocal(ctx, env.session)
		assert.ErrorIs(t, err, ErrWrongState)
	})
}

func TestSubmitReceipt(t *testing.T) {
	ctx := context.Background()

	advanceToReceipt := func(t *testing.T, env *paymentEnv) {
		t.Helper()
		_, err := env.flow.SelectPlan(ctx, env.session, 1)
		require.NoError(t, err)
		_, err = env.flow.ChooseLocal(ctx, env.session)
		require.NoError(t, err)
	}

	t.Run("stores the image and ends the sequence", func(t *testing.T) {
		env := newPaymentEnv(t)
		advanceToReceipt(t, env)
		paymentID := env.session.PaymentID

		url, err := env.flow.SubmitReceipt(ctx, env.session, []byte("fake png bytes"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:8000/receipts/"))

		payment := env.store.payments[paymentID]
		assert.Equal(t, types.PaymentPendingVerification, payment.Status)
		assert.Equal(t, url, payment.ReceiptURL)

		stored, err := env.sessions.GetSession(env.session.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StateIdle, stored.State)
		assert.Zero(t, stored.PaymentID)
	})

	t.Run("image at the cap is accepted", func(t *testing.T) {
		env := newPaymentEnv(t)
		advanceToReceipt(t, env)

		_, err := env.flow.SubmitReceipt(ctx, env.session, make([]byte, 5*1024*1024))
		assert.NoError(t, err)
	})

	t.Run("image above the cap is refused without transition", func(t *testing.T) {
		env := newPaymentEnv(t)
		advanceToReceipt(t, env)
		paymentID := env.session.PaymentID

		_, err := env.flow.SubmitReceipt(ctx, env.session, make([]byte, 5*1024*1024+1))
		assert.ErrorIs(t, err, ErrReceiptTooLarge)

		payment := env.store.payments[paymentID]
		assert.Equal(t, types.PaymentPending, payment.Status)
		assert.Equal(t, types.ReceiptPlaceholder, payment.ReceiptURL)
		assert.Equal(t, types.StateAwaitingReceipt, env.session.State)
	})

	t.Run("wrong state is rejected", func(t *testing.T) {
		env := newPaymentEnv(t)

		_, err := env.flow.SubmitReceipt(ctx, env.session, []byte("png"))
		assert.ErrorIs(t, err, ErrWrongState)
	})
}
