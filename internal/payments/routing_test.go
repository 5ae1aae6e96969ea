package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subgate/subgate-bot/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		VPAPrimary:         "primary@upi",
		VPAHigh:            "high@upi",
		LocalTierThreshold: 2000,
		SplitAmount:        5000,
		RemittanceService:  "Wise",
		IntlAccountAlias:   "alias@wise",
		IntlPayeeName:      "Subgate Payments",
		IntlReason:         "Subscription",
	}
}

func TestRouterLocalTierSelection(t *testing.T) {
	r := NewRouter(testConfig())

	t.Run("at threshold uses primary", func(t *testing.T) {
		inst, err := r.Local(2000)
		require.NoError(t, err)
		assert.Equal(t, "primary@upi", inst.VPA)
		assert.Equal(t, float64(2000), inst.Amount)
	})

	t.Run("above threshold uses high tier", func(t *testing.T) {
		inst, err := r.Local(2001)
		require.NoError(t, err)
		assert.Equal(t, "high@upi", inst.VPA)
	})

	t.Run("below threshold uses primary", func(t *testing.T) {
		inst, err := r.Local(500)
		require.NoError(t, err)
		assert.Equal(t, "primary@upi", inst.VPA)
	})

	t.Run("QR code is rendered", func(t *testing.T) {
		inst, err := r.Local(500)
		require.NoError(t, err)
		assert.NotEmpty(t, inst.QR)
	})
}

func TestRouterLocalMissingVPA(t *testing.T) {
	t.Run("missing primary", func(t *testing.T) {
		cfg := testConfig()
		cfg.VPAPrimary = ""
		r := NewRouter(cfg)

		_, err := r.Local(500)
		assert.ErrorIs(t, err, ErrRouteNotConfigured)
	})

	t.Run("missing high tier", func(t *testing.T) {
		cfg := testConfig()
		cfg.VPAHigh = ""
		r := NewRouter(cfg)

		_, err := r.Local(3000)
		assert.ErrorIs(t, err, ErrRouteNotConfigured)

		// Primary tier still works.
		_, err = r.Local(500)
		assert.NoError(t, err)
	})
}

func TestRouterLocalSplitSuggestion(t *testing.T) {
	r := NewRouter(testConfig())

	t.Run("split amount gets three parts", func(t *testing.T) {
		inst, err := r.Local(5000)
		require.NoError(t, err)
		require.Len(t, inst.SplitSuggestion, 3)

		sum := 0.0
		for _, p := range inst.SplitSuggestion {
			sum += p
		}
		assert.Equal(t, float64(5000), sum)
		assert.Equal(t, []float64{1668, 1666, 1666}, inst.SplitSuggestion)
		// The suggestion never changes the recorded amount.
		assert.Equal(t, float64(5000), inst.Amount)
	})

	t.Run("other amounts get no split", func(t *testing.T) {
		inst, err := r.Local(2000)
		require.NoError(t, err)
		assert.Empty(t, inst.SplitSuggestion)
	})
}

func TestRouterInternational(t *testing.T) {
	t.Run("renders the corridor fields", func(t *testing.T) {
		r := NewRouter(testConfig())
		inst, err := r.International(2000)
		require.NoError(t, err)
		assert.Equal(t, "Wise", inst.Service)
		assert.Equal(t, "alias@wise", inst.AccountAlias)
		assert.Equal(t, "Subgate Payments", inst.PayeeName)
		assert.Equal(t, "Subscription", inst.Reason)
		assert.Equal(t, float64(2000), inst.Amount)
	})

	t.Run("missing alias is not configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.IntlAccountAlias = ""
		r := NewRouter(cfg)

		_, err := r.International(2000)
		assert.ErrorIs(t, err, ErrRouteNotConfigured)
	})
}
