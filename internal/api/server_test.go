package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/types"
)

// stubStore overrides only the read paths the API serves.
type stubStore struct {
	types.EntityStore
	plans   []types.Plan
	pending []types.Payment
	tickets map[int64]*types.SupportTicket
	replies map[int64][]types.TicketReply
}

func (s *stubStore) ListPlans(ctx context.Context) ([]types.Plan, error) {
	return s.plans, nil
}

func (s *stubStore) ListSubscriptions(ctx context.Context) ([]types.Subscription, error) {
	return nil, nil
}

func (s *stubStore) ListPendingPayments(ctx context.Context) ([]types.Payment, error) {
	return s.pending, nil
}

func (s *stubStore) ListTickets(ctx context.Context) ([]types.SupportTicket, error) {
	out := make([]types.SupportTicket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubStore) GetTicket(ctx context.Context, id int64) (*types.SupportTicket, error) {
	return s.tickets[id], nil
}

func (s *stubStore) ListTicketReplies(ctx context.Context, ticketID int64) ([]types.TicketReply, error) {
	return s.replies[ticketID], nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := &stubStore{
		plans: []types.Plan{
			{ID: 1, Name: "Basic", Price: 500, DurationDays: 60},
			{ID: 2, Name: "Premium Plus", Price: 5000, DurationDays: 60, ManualHandling: true},
		},
		pending: []types.Payment{
			{ID: 10, SubscriptionID: 4, Amount: 2000, Status: types.PaymentPendingVerification},
		},
		tickets: map[int64]*types.SupportTicket{
			5: {ID: 5, SubscriberID: 2, Issue: "no access"},
		},
		replies: map[int64][]types.TicketReply{
			5: {{ID: 6, TicketID: 5, Reply: "looking into it", RepliedBy: 100}},
		},
	}
	return NewServer(store, t.TempDir(), config.Config{APIKey: "sekret"})
}

func doRequest(s *Server, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestAPIKeyGate(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing key is unauthorized", func(t *testing.T) {
		rr := doRequest(s, "GET", "/plans", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong key is unauthorized", func(t *testing.T) {
		rr := doRequest(s, "GET", "/plans", "wrong")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid key passes", func(t *testing.T) {
		rr := doRequest(s, "GET", "/plans", "sekret")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unconfigured key disables the routes", func(t *testing.T) {
		bare := NewServer(&stubStore{}, t.TempDir(), config.Config{})
		req := httptest.NewRequest("GET", "/plans", nil)
		rr := httptest.NewRecorder()
		bare.Router().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("health needs no key", func(t *testing.T) {
		rr := doRequest(s, "GET", "/healthz", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestListPlans(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/plans", "sekret")
	require.Equal(t, http.StatusOK, rr.Code)

	var out []planDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Basic", out[0].Name)
	assert.True(t, out[1].ManualHandling)
}

func TestListPendingPayments(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/staff/pending-payments", "sekret")
	require.Equal(t, http.StatusOK, rr.Code)

	var out []paymentDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(10), out[0].ID)
	assert.Equal(t, types.PaymentPendingVerification, out[0].Status)
}

func TestGetTicket(t *testing.T) {
	s := newTestServer(t)

	t.Run("includes replies", func(t *testing.T) {
		rr := doRequest(s, "GET", "/support/tickets/5", "sekret")
		require.Equal(t, http.StatusOK, rr.Code)

		var out ticketDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		assert.Equal(t, int64(5), out.ID)
		require.Len(t, out.Replies, 1)
		assert.Equal(t, "looking into it", out.Replies[0].Reply)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rr := doRequest(s, "GET", "/support/tickets/999", "sekret")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		rr := doRequest(s, "GET", "/support/tickets/abc", "sekret")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
