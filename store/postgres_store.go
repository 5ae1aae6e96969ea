package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/subgate/subgate-bot/types"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

const (
	storeRetries    = 3
	storeRetryDelay = time.Second
	callTimeout     = 5 * time.Second
)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = buildPostgresDSNFromEnv()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func buildPostgresDSNFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	if host == "" {
		host = "localhost"
	}
	port := strings.TrimSpace(os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	db := strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	if db == "" {
		db = "subgate"
	}
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		user = "subgate"
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", urlEscape(user), urlEscape(pass), host, port, db)
}

func urlEscape(s string) string {
	r := strings.NewReplacer(
		"%", "%25",
		":", "%3A",
		"/", "%2F",
		"@", "%40",
		"?", "%3F",
		"#", "%23",
		"[", "%5B",
		"]", "%5D",
	)
	return r.Replace(s)
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

// withRetry runs op up to storeRetries times with linear backoff, each
// attempt under its own timeout. The last error is returned as-is so
// callers can degrade instead of crashing the workflow.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= storeRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		err = op(callCtx)
		cancel()
		if err == nil || err == pgx.ErrNoRows {
			return err
		}
		if attempt < storeRetries {
			log.Printf("entity store call failed (attempt %d): %v", attempt, err)
			select {
			case <-time.After(storeRetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

func (s *PostgresStore) UpsertSubscriber(ctx context.Context, sub types.Subscriber) (*types.Subscriber, error) {
	var out types.Subscriber
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO subscribers (external_id, name, handle)
VALUES ($1, $2, $3)
ON CONFLICT (external_id) DO UPDATE SET
  name = EXCLUDED.name,
  handle = EXCLUDED.handle
RETURNING id, external_id, name, handle, created_at
`, sub.ExternalID, strings.TrimSpace(sub.Name), strings.TrimSpace(sub.Handle)).
			Scan(&out.ID, &out.ExternalID, &out.Name, &out.Handle, &out.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) GetSubscriber(ctx context.Context, id int64) (*types.Subscriber, error) {
	return s.scanSubscriber(ctx, `
SELECT id, external_id, name, handle, created_at FROM subscribers WHERE id = $1
`, id)
}

func (s *PostgresStore) GetSubscriberByExternalID(ctx context.Context, externalID int64) (*types.Subscriber, error) {
	return s.scanSubscriber(ctx, `
SELECT id, external_id, name, handle, created_at FROM subscribers WHERE external_id = $1
`, externalID)
}

func (s *PostgresStore) scanSubscriber(ctx context.Context, query string, arg int64) (*types.Subscriber, error) {
	var sub types.Subscriber
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, query, arg).
			Scan(&sub.ID, &sub.ExternalID, &sub.Name, &sub.Handle, &sub.CreatedAt)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context) ([]types.Plan, error) {
	var plans []types.Plan
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, name, price, duration_days, COALESCE(channel_id, ''), COALESCE(description, ''), manual_handling
FROM plans
ORDER BY id
`)
		if err != nil {
			return err
		}
		defer rows.Close()

		plans = plans[:0]
		for rows.Next() {
			var p types.Plan
			if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.ChannelID, &p.Description, &p.ManualHandling); err != nil {
				return err
			}
			plans = append(plans, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id int64) (*types.Plan, error) {
	var p types.Plan
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
SELECT id, name, price, duration_days, COALESCE(channel_id, ''), COALESCE(description, ''), manual_handling
FROM plans
WHERE id = $1
`, id).Scan(&p.ID, &p.Name, &p.Price, &p.DurationDays, &p.ChannelID, &p.Description, &p.ManualHandling)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreatePlan(ctx context.Context, p types.Plan) (*types.Plan, error) {
	var out types.Plan
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO plans (name, price, duration_days, channel_id, description, manual_handling)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (name) DO UPDATE SET
  price = EXCLUDED.price,
  duration_days = EXCLUDED.duration_days,
  channel_id = EXCLUDED.channel_id,
  description = EXCLUDED.description,
  manual_handling = EXCLUDED.manual_handling
RETURNING id, name, price, duration_days, COALESCE(channel_id, ''), COALESCE(description, ''), manual_handling
`, strings.TrimSpace(p.Name), p.Price, p.DurationDays, strings.TrimSpace(p.ChannelID), p.Description, p.ManualHandling).
			Scan(&out.ID, &out.Name, &out.Price, &out.DurationDays, &out.ChannelID, &out.Description, &out.ManualHandling)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) CreateSubscription(ctx context.Context, subscriberID, planID int64, expiresAt time.Time) (*types.Subscription, error) {
	var sub types.Subscription
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO subscriptions (subscriber_id, plan_id, status, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id, subscriber_id, plan_id, status, created_at, expires_at
`, subscriberID, planID, types.SubscriptionPendingPayment, expiresAt).
			Scan(&sub.ID, &sub.SubscriberID, &sub.PlanID, &sub.Status, &sub.CreatedAt, &sub.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, id int64) (*types.Subscription, error) {
	var sub types.Subscription
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
SELECT id, subscriber_id, plan_id, status, created_at, expires_at
FROM subscriptions
WHERE id = $1
`, id).Scan(&sub.ID, &sub.SubscriberID, &sub.PlanID, &sub.Status, &sub.CreatedAt, &sub.ExpiresAt)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context) ([]types.Subscription, error) {
	return s.querySubscriptions(ctx, `
SELECT id, subscriber_id, plan_id, status, created_at, expires_at
FROM subscriptions
ORDER BY id
`)
}

func (s *PostgresStore) ListSubscriberSubscriptions(ctx context.Context, subscriberID int64) ([]types.Subscription, error) {
	return s.querySubscriptions(ctx, `
SELECT id, subscriber_id, plan_id, status, created_at, expires_at
FROM subscriptions
WHERE subscriber_id = $1
ORDER BY id
`, subscriberID)
}

func (s *PostgresStore) querySubscriptions(ctx context.Context, query string, args ...interface{}) ([]types.Subscription, error) {
	var subs []types.Subscription
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		subs = subs[:0]
		for rows.Next() {
			var sub types.Subscription
			if err := rows.Scan(&sub.ID, &sub.SubscriberID, &sub.PlanID, &sub.Status, &sub.CreatedAt, &sub.ExpiresAt); err != nil {
				return err
			}
			subs = append(subs, sub)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, subscriptionID int64, amount float64) (*types.Payment, error) {
	var p types.Payment
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO payments (subscription_id, amount, status, receipt_url)
VALUES ($1, $2, $3, $4)
RETURNING id, subscription_id, amount, status, receipt_url, is_international, created_at
`, subscriptionID, amount, types.PaymentPending, types.ReceiptPlaceholder).
			Scan(&p.ID, &p.SubscriptionID, &p.Amount, &p.Status, &p.ReceiptURL, &p.IsInternational, &p.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetPayment(ctx context.Context, id int64) (*types.Payment, error) {
	var p types.Payment
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
SELECT id, subscription_id, amount, status, receipt_url, is_international, created_at
FROM payments
WHERE id = $1
`, id).Scan(&p.ID, &p.SubscriptionID, &p.Amount, &p.Status, &p.ReceiptURL, &p.IsInternational, &p.CreatedAt)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) SetPaymentRoute(ctx context.Context, id int64, international bool) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
UPDATE payments SET is_international = $2 WHERE id = $1
`, id, international)
		return err
	})
}

func (s *PostgresStore) AttachReceipt(ctx context.Context, id int64, receiptURL string) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
UPDATE payments SET status = $2, receipt_url = $3 WHERE id = $1
`, id, types.PaymentPendingVerification, receiptURL)
		return err
	})
}

// FinalizePayment is the adjudication commit. The payment update is a
// compare-and-swap on the adjudicable statuses, so a second verify/reject
// on the same payment affects zero rows and reports false.
func (s *PostgresStore) FinalizePayment(ctx context.Context, id int64, payment types.PaymentStatus, subscription types.SubscriptionStatus) (bool, error) {
	applied := false
	err := withRetry(ctx, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		tag, err := tx.Exec(ctx, `
UPDATE payments
SET status = $2
WHERE id = $1 AND status IN ($3, $4)
`, id, payment, types.PaymentPending, types.PaymentPendingVerification)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			applied = false
			return tx.Commit(ctx)
		}

		_, err = tx.Exec(ctx, `
UPDATE subscriptions
SET status = $2
WHERE id = (SELECT subscription_id FROM payments WHERE id = $1)
`, id, subscription)
		if err != nil {
			return err
		}

		applied = true
		return tx.Commit(ctx)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *PostgresStore) ListPendingPayments(ctx context.Context) ([]types.Payment, error) {
	var payments []types.Payment
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, subscription_id, amount, status, receipt_url, is_international, created_at
FROM payments
WHERE status = $1
ORDER BY id
`, types.PaymentPendingVerification)
		if err != nil {
			return err
		}
		defer rows.Close()

		payments = payments[:0]
		for rows.Next() {
			var p types.Payment
			if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.Amount, &p.Status, &p.ReceiptURL, &p.IsInternational, &p.CreatedAt); err != nil {
				return err
			}
			payments = append(payments, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *PostgresStore) CreateTicket(ctx context.Context, subscriberID int64, issue string, attachments []types.Attachment) (*types.SupportTicket, error) {
	if attachments == nil {
		attachments = []types.Attachment{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return nil, err
	}

	var t types.SupportTicket
	err = withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO support_tickets (subscriber_id, issue, attachments)
VALUES ($1, $2, $3)
RETURNING id, subscriber_id, issue, resolved, created_at
`, subscriberID, issue, attachmentsJSON).
			Scan(&t.ID, &t.SubscriberID, &t.Issue, &t.Resolved, &t.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	t.Attachments = attachments
	return &t, nil
}

func (s *PostgresStore) GetTicket(ctx context.Context, id int64) (*types.SupportTicket, error) {
	var t types.SupportTicket
	var attachmentsJSON []byte
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
SELECT id, subscriber_id, issue, resolved, attachments, created_at
FROM support_tickets
WHERE id = $1
`, id).Scan(&t.ID, &t.SubscriberID, &t.Issue, &t.Resolved, &attachmentsJSON, &t.CreatedAt)
	})
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(attachmentsJSON) > 0 {
		if err := json.Unmarshal(attachmentsJSON, &t.Attachments); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *PostgresStore) ListTickets(ctx context.Context) ([]types.SupportTicket, error) {
	var tickets []types.SupportTicket
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, subscriber_id, issue, resolved, attachments, created_at
FROM support_tickets
ORDER BY id
`)
		if err != nil {
			return err
		}
		defer rows.Close()

		tickets = tickets[:0]
		for rows.Next() {
			var t types.SupportTicket
			var attachmentsJSON []byte
			if err := rows.Scan(&t.ID, &t.SubscriberID, &t.Issue, &t.Resolved, &attachmentsJSON, &t.CreatedAt); err != nil {
				return err
			}
			if len(attachmentsJSON) > 0 {
				if err := json.Unmarshal(attachmentsJSON, &t.Attachments); err != nil {
					return err
				}
			}
			tickets = append(tickets, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *PostgresStore) SetTicketResolved(ctx context.Context, id int64, resolved bool) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
UPDATE support_tickets SET resolved = $2 WHERE id = $1
`, id, resolved)
		return err
	})
}

func (s *PostgresStore) CreateTicketReply(ctx context.Context, ticketID int64, reply string, repliedBy int64) (*types.TicketReply, error) {
	var r types.TicketReply
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO ticket_replies (ticket_id, reply, replied_by, replied_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, ticket_id, reply, replied_by, replied_at
`, ticketID, reply, repliedBy).
			Scan(&r.ID, &r.TicketID, &r.Reply, &r.RepliedBy, &r.Timestamp)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListTicketReplies(ctx context.Context, ticketID int64) ([]types.TicketReply, error) {
	var replies []types.TicketReply
	err := withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
SELECT id, ticket_id, reply, replied_by, replied_at
FROM ticket_replies
WHERE ticket_id = $1
ORDER BY id
`, ticketID)
		if err != nil {
			return err
		}
		defer rows.Close()

		replies = replies[:0]
		for rows.Next() {
			var r types.TicketReply
			if err := rows.Scan(&r.ID, &r.TicketID, &r.Reply, &r.RepliedBy, &r.Timestamp); err != nil {
				return err
			}
			replies = append(replies, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (s *PostgresStore) CreateStaffMember(ctx context.Context, m types.StaffMember) (*types.StaffMember, error) {
	var out types.StaffMember
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
INSERT INTO staff_members (name, email, external_id)
VALUES ($1, $2, $3)
ON CONFLICT (external_id) DO UPDATE SET
  name = EXCLUDED.name,
  email = EXCLUDED.email
RETURNING id, name, email, external_id
`, strings.TrimSpace(m.Name), strings.TrimSpace(m.Email), m.ExternalID).
			Scan(&out.ID, &out.Name, &out.Email, &out.ExternalID)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) IsStaff(ctx context.Context, externalID int64) (bool, error) {
	var ok bool
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx, `
SELECT EXISTS(SELECT 1 FROM staff_members WHERE external_id = $1)
`, externalID).Scan(&ok)
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
