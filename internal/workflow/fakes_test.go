package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/subgate/subgate-bot/types"
)

// memStore is an in-memory EntityStore for workflow tests. It mirrors the
// Postgres store's semantics: (nil, nil) on absent lookups and a conditional
// FinalizePayment.
type memStore struct {
	nextID        int64
	subscribers   map[int64]*types.Subscriber
	plans         map[int64]*types.Plan
	planOrder     []int64
	subscriptions map[int64]*types.Subscription
	payments      map[int64]*types.Payment
	tickets       map[int64]*types.SupportTicket
	replies       map[int64][]types.TicketReply
	staff         map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		subscribers:   make(map[int64]*types.Subscriber),
		plans:         make(map[int64]*types.Plan),
		subscriptions: make(map[int64]*types.Subscription),
		payments:      make(map[int64]*types.Payment),
		tickets:       make(map[int64]*types.SupportTicket),
		replies:       make(map[int64][]types.TicketReply),
		staff:         make(map[int64]bool),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addPlan(p types.Plan) *types.Plan {
	p.ID = m.id()
	m.plans[p.ID] = &p
	m.planOrder = append(m.planOrder, p.ID)
	return &p
}

func (m *memStore) addSubscriber(externalID int64) *types.Subscriber {
	sub := &types.Subscriber{
		ID:         m.id(),
		ExternalID: externalID,
		Name:       fmt.Sprintf("user %d", externalID),
		CreatedAt:  time.Now(),
	}
	m.subscribers[sub.ID] = sub
	return sub
}

func (m *memStore) UpsertSubscriber(ctx context.Context, sub types.Subscriber) (*types.Subscriber, error) {
	for _, existing := range m.subscribers {
		if existing.ExternalID == sub.ExternalID {
			return existing, nil
		}
	}
	sub.ID = m.id()
	m.subscribers[sub.ID] = &sub
	return &sub, nil
}

func (m *memStore) GetSubscriber(ctx context.Context, id int64) (*types.Subscriber, error) {
	return m.subscribers[id], nil
}

func (m *memStore) GetSubscriberByExternalID(ctx context.Context, externalID int64) (*types.Subscriber, error) {
	for _, sub := range m.subscribers {
		if sub.ExternalID == externalID {
			return sub, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListPlans(ctx context.Context) ([]types.Plan, error) {
	out := make([]types.Plan, 0, len(m.planOrder))
	for _, id := range m.planOrder {
		out = append(out, *m.plans[id])
	}
	return out, nil
}

func (m *memStore) GetPlan(ctx context.Context, id int64) (*types.Plan, error) {
	return m.plans[id], nil
}

func (m *memStore) CreateSubscription(ctx context.Context, subscriberID, planID int64, expiresAt time.Time) (*types.Subscription, error) {
	sub := &types.Subscription{
		ID:           m.id(),
		SubscriberID: subscriberID,
		PlanID:       planID,
		Status:       types.SubscriptionPendingPayment,
		CreatedAt:    time.Now(),
		ExpiresAt:    expiresAt,
	}
	m.subscriptions[sub.ID] = sub
	return sub, nil
}

func (m *memStore) GetSubscription(ctx context.Context, id int64) (*types.Subscription, error) {
	return m.subscriptions[id], nil
}

func (m *memStore) ListSubscriptions(ctx context.Context) ([]types.Subscription, error) {
	out := make([]types.Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		out = append(out, *sub)
	}
	return out, nil
}

func (m *memStore) ListSubscriberSubscriptions(ctx context.Context, subscriberID int64) ([]types.Subscription, error) {
	out := make([]types.Subscription, 0)
	for _, sub := range m.subscriptions {
		if sub.SubscriberID == subscriberID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memStore) CreatePayment(ctx context.Context, subscriptionID int64, amount float64) (*types.Payment, error) {
	p := &types.Payment{
		ID:             m.id(),
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Status:         types.PaymentPending,
		ReceiptURL:     types.ReceiptPlaceholder,
		CreatedAt:      time.Now(),
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *memStore) GetPayment(ctx context.Context, id int64) (*types.Payment, error) {
	return m.payments[id], nil
}

func (m *memStore) SetPaymentRoute(ctx context.Context, id int64, international bool) error {
	m.payments[id].IsInternational = international
	return nil
}

func (m *memStore) AttachReceipt(ctx context.Context, id int64, receiptURL string) error {
	m.payments[id].Status = types.PaymentPendingVerification
	m.payments[id].ReceiptURL = receiptURL
	return nil
}

func (m *memStore) FinalizePayment(ctx context.Context, id int64, payment types.PaymentStatus, subscription types.SubscriptionStatus) (bool, error) {
	p, ok := m.payments[id]
	if !ok || !p.Status.Adjudicable() {
		return false, nil
	}
	p.Status = payment
	m.subscriptions[p.SubscriptionID].Status = subscription
	return true, nil
}

func (m *memStore) ListPendingPayments(ctx context.Context) ([]types.Payment, error) {
	out := make([]types.Payment, 0)
	for _, p := range m.payments {
		if p.Status == types.PaymentPendingVerification {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) CreateTicket(ctx context.Context, subscriberID int64, issue string, attachments []types.Attachment) (*types.SupportTicket, error) {
	t := &types.SupportTicket{
		ID:           m.id(),
		SubscriberID: subscriberID,
		Issue:        issue,
		Attachments:  attachments,
		CreatedAt:    time.Now(),
	}
	m.tickets[t.ID] = t
	return t, nil
}

func (m *memStore) GetTicket(ctx context.Context, id int64) (*types.SupportTicket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *memStore) ListTickets(ctx context.Context) ([]types.SupportTicket, error) {
	out := make([]types.SupportTicket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memStore) SetTicketResolved(ctx context.Context, id int64, resolved bool) error {
	m.tickets[id].Resolved = resolved
	return nil
}

func (m *memStore) CreateTicketReply(ctx context.Context, ticketID int64, reply string, repliedBy int64) (*types.TicketReply, error) {
	r := types.TicketReply{
		ID:        m.id(),
		TicketID:  ticketID,
		Reply:     reply,
		RepliedBy: repliedBy,
		Timestamp: time.Now(),
	}
	m.replies[ticketID] = append(m.replies[ticketID], r)
	return &r, nil
}

func (m *memStore) ListTicketReplies(ctx context.Context, ticketID int64) ([]types.TicketReply, error) {
	return m.replies[ticketID], nil
}

func (m *memStore) IsStaff(ctx context.Context, externalID int64) (bool, error) {
	return m.staff[externalID], nil
}

// memSessions is an in-memory SessionStore.
type memSessions struct {
	sessions map[string]*types.Session
	byUser   map[int64]string
}

func newMemSessions() *memSessions {
	return &memSessions{
		sessions: make(map[string]*types.Session),
		byUser:   make(map[int64]string),
	}
}

func (m *memSessions) CreateSession(session *types.Session) error {
	if session.ID == "" {
		session.ID = fmt.Sprintf("session-%d", session.UserID)
	}
	if session.State == "" {
		session.State = types.StateIdle
	}
	copied := *session
	m.sessions[session.ID] = &copied
	m.byUser[session.UserID] = session.ID
	return nil
}

func (m *memSessions) GetSession(sessionID string) (*types.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	copied := *s
	return &copied, nil
}

func (m *memSessions) GetUserSession(userID int64) (*types.Session, error) {
	id, ok := m.byUser[userID]
	if !ok {
		return nil, fmt.Errorf("no session for user %d", userID)
	}
	return m.GetSession(id)
}

func (m *memSessions) UpdateSession(session *types.Session) error {
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memSessions) UpdateSessionState(sessionID string, state types.SessionState) error {
	s, err := m.GetSession(sessionID)
	if err != nil {
		return err
	}
	s.State = state
	return m.UpdateSession(s)
}

func (m *memSessions) ClearSession(sessionID string) error {
	s, err := m.GetSession(sessionID)
	if err != nil {
		return err
	}
	s.ResetWorkflow()
	return m.UpdateSession(s)
}

// fakeNotifier records deliveries and can be told to fail.
type fakeNotifier struct {
	notifyErr error
	texts     []string
	targets   []int64
}

func (f *fakeNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.targets = append(f.targets, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeNotifier) NotifyPhoto(ctx context.Context, chatID int64, image []byte, filename, caption string) error {
	return f.Notify(ctx, chatID, caption)
}

func (f *fakeNotifier) ForwardPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	return f.Notify(ctx, chatID, caption)
}

// fakeInviter records invites and can be told to fail.
type fakeInviter struct {
	inviteErr error
	groups    []string
	users     []int64
}

func (f *fakeInviter) Invite(ctx context.Context, groupID string, userID int64) error {
	if f.inviteErr != nil {
		return f.inviteErr
	}
	f.groups = append(f.groups, groupID)
	f.users = append(f.users, userID)
	return nil
}

// fakeWindowCounter backs the limiter with a manual clock.
type fakeWindowCounter struct {
	now     time.Time
	counts  map[string]int64
	expires map[string]time.Time
}

func newFakeWindowCounter() *fakeWindowCounter {
	return &fakeWindowCounter{
		now:     time.Unix(1700000000, 0),
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeWindowCounter) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fakeWindowCounter) expireStale(key string) {
	if exp, ok := f.expires[key]; ok && !f.now.Before(exp) {
		delete(f.counts, key)
		delete(f.expires, key)
	}
}

func (f *fakeWindowCounter) GetCount(key string) (int64, error) {
	f.expireStale(key)
	return f.counts[key], nil
}

func (f *fakeWindowCounter) IncrWithWindow(key string, window time.Duration) (int64, error) {
	f.expireStale(key)
	f.counts[key]++
	if f.counts[key] == 1 {
		f.expires[key] = f.now.Add(window)
	}
	return f.counts[key], nil
}
