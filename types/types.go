package types

import "time"

// Session is the per-requester conversational state. One session exists per
// requester at a time; the workflow fields below are only meaningful for the
// state that set them.
type Session struct {
	ID     string       `json:"id"`
	UserID int64        `json:"user_id"`
	ChatID int64        `json:"chat_id"`
	State  SessionState `json:"state"`

	// Payment workflow.
	SubscriptionID int64   `json:"subscription_id,omitempty"`
	PaymentID      int64   `json:"payment_id,omitempty"`
	Amount         float64 `json:"amount,omitempty"`

	// Support ticket workflow.
	Issue       string       `json:"issue,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Staff reply workflow.
	ReplyTicketID int64 `json:"reply_ticket_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResetWorkflow drops all workflow fields and returns the session to idle.
func (s *Session) ResetWorkflow() {
	s.State = StateIdle
	s.SubscriptionID = 0
	s.PaymentID = 0
	s.Amount = 0
	s.Issue = ""
	s.Attachments = nil
	s.ReplyTicketID = 0
}

type SessionStore interface {
	CreateSession(session *Session) error
	GetSession(sessionID string) (*Session, error)
	GetUserSession(userID int64) (*Session, error)
	UpdateSession(session *Session) error
	UpdateSessionState(sessionID string, state SessionState) error
	ClearSession(sessionID string) error
}
