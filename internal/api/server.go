package api

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/types"
)

// Server is the read-only staff HTTP API: catalog, subscriptions, pending
// payments and support tickets, plus the receipt file host.
type Server struct {
	entities    types.EntityStore
	receiptsDir string
	apiKey      string
}

func NewServer(entities types.EntityStore, receiptsDir string, cfg config.Config) *Server {
	return &Server{
		entities:    entities,
		receiptsDir: receiptsDir,
		apiKey:      cfg.APIKey,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(prometheusMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/receipts/*", http.StripPrefix("/receipts/", http.FileServer(http.Dir(s.receiptsDir))))

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/plans", s.handleListPlans)
		r.Get("/subscriptions", s.handleListSubscriptions)
		r.Get("/staff/pending-payments", s.handleListPendingPayments)
		r.Get("/support/tickets", s.handleListTickets)
		r.Get("/support/tickets/{id}", s.handleGetTicket)
	})

	return r
}

// requireAPIKey rejects requests without the shared staff key. An empty
// configured key disables the protected routes entirely.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			respondWithError(w, http.StatusServiceUnavailable, "API key not configured")
			return
		}
		provided := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) != 1 {
			respondWithError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type planDTO struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	DurationDays   int     `json:"duration_days"`
	Description    string  `json:"description,omitempty"`
	ManualHandling bool    `json:"manual_handling"`
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.entities.ListPlans(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}

	out := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, planDTO{
			ID:             p.ID,
			Name:           p.Name,
			Price:          p.Price,
			DurationDays:   p.DurationDays,
			Description:    p.Description,
			ManualHandling: p.ManualHandling,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type subscriptionDTO struct {
	ID           int64                    `json:"id"`
	SubscriberID int64                    `json:"subscriber_id"`
	PlanID       int64                    `json:"plan_id"`
	Status       types.SubscriptionStatus `json:"status"`
	CreatedAt    time.Time                `json:"created_at"`
	ExpiresAt    time.Time                `json:"expires_at"`
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.entities.ListSubscriptions(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	out := make([]subscriptionDTO, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionDTO{
			ID:           sub.ID,
			SubscriberID: sub.SubscriberID,
			PlanID:       sub.PlanID,
			Status:       sub.Status,
			CreatedAt:    sub.CreatedAt,
			ExpiresAt:    sub.ExpiresAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type paymentDTO struct {
	ID              int64               `json:"id"`
	SubscriptionID  int64               `json:"subscription_id"`
	Amount          float64             `json:"amount"`
	Status          types.PaymentStatus `json:"status"`
	ReceiptURL      string              `json:"receipt_url"`
	IsInternational bool                `json:"is_international"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (s *Server) handleListPendingPayments(w http.ResponseWriter, r *http.Request) {
	pending, err := s.entities.ListPendingPayments(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list pending payments")
		return
	}

	out := make([]paymentDTO, 0, len(pending))
	for _, p := range pending {
		out = append(out, paymentDTO{
			ID:              p.ID,
			SubscriptionID:  p.SubscriptionID,
			Amount:          p.Amount,
			Status:          p.Status,
			ReceiptURL:      p.ReceiptURL,
			IsInternational: p.IsInternational,
			CreatedAt:       p.CreatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

type ticketDTO struct {
	ID           int64              `json:"id"`
	SubscriberID int64              `json:"subscriber_id"`
	Issue        string             `json:"issue"`
	Resolved     bool               `json:"resolved"`
	Attachments  []types.Attachment `json:"attachments,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	Replies      []replyDTO         `json:"replies,omitempty"`
}

type replyDTO struct {
	ID        int64     `json:"id"`
	Reply     string    `json:"reply"`
	RepliedBy int64     `json:"replied_by"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.entities.ListTickets(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}

	out := make([]ticketDTO, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketDTO{
			ID:           t.ID,
			SubscriberID: t.SubscriberID,
			Issue:        t.Issue,
			Resolved:     t.Resolved,
			Attachments:  t.Attachments,
			CreatedAt:    t.CreatedAt,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, err := s.entities.GetTicket(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load ticket")
		return
	}
	if ticket == nil {
		respondWithError(w, http.StatusNotFound, "ticket not found")
		return
	}

	replies, err := s.entities.ListTicketReplies(r.Context(), ticket.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load ticket replies")
		return
	}

	out := ticketDTO{
		ID:           ticket.ID,
		SubscriberID: ticket.SubscriberID,
		Issue:        ticket.Issue,
		Resolved:     ticket.Resolved,
		Attachments:  ticket.Attachments,
		CreatedAt:    ticket.CreatedAt,
	}
	for _, rep := range replies {
		out.Replies = append(out.Replies, replyDTO{
			ID:        rep.ID,
			Reply:     rep.Reply,
			RepliedBy: rep.RepliedBy,
			Timestamp: rep.Timestamp,
		})
	}
	respondWithJSON(w, http.StatusOK, out)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling API response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
