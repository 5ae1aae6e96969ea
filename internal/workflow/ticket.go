package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/ratelimit"
	"github.com/subgate/subgate-bot/types"
)

var (
	// ErrTicketRateLimited means the requester is at the submission cap.
	ErrTicketRateLimited = errors.New("ticket submission cap reached")
	// ErrTicketNotFound means the referenced ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrAttachmentTooLarge means the image exceeded the size cap.
	ErrAttachmentTooLarge = errors.New("attachment exceeds size cap")
)

const ticketScope = "support_ticket"

// TicketWorkflow drives support tickets from issue collection through
// submission, staff replies and resolution.
type TicketWorkflow struct {
	store    types.EntityStore
	sessions types.SessionStore
	limiter  *ratelimit.Limiter
	cfg      config.Config
}

func NewTicketWorkflow(
	store types.EntityStore,
	sessions types.SessionStore,
	limiter *ratelimit.Limiter,
	cfg config.Config,
) *TicketWorkflow {
	return &TicketWorkflow{
		store:    store,
		sessions: sessions,
		limiter:  limiter,
		cfg:      cfg,
	}
}

// Begin opens issue collection for the requester.
func (w *TicketWorkflow) Begin(session *types.Session) error {
	session.State = types.StateAwaitingIssue
	return w.sessions.UpdateSession(session)
}

// DescribeIssue records the primary issue text and opens the
// supplementary-material phase.
func (w *TicketWorkflow) DescribeIssue(session *types.Session, text string) error {
	if session.State != types.StateAwaitingIssue {
		return ErrWrongState
	}
	session.Issue = text
	session.Attachments = nil
	session.State = types.StateCollectingInfo
	return w.sessions.UpdateSession(session)
}

// AppendText folds a follow-up message into the issue body.
func (w *TicketWorkflow) AppendText(session *types.Session, text string) error {
	if session.State != types.StateCollectingInfo {
		return ErrWrongState
	}
	session.Issue += "\n" + text
	return w.sessions.UpdateSession(session)
}

// AppendAttachment records an image reference against the draft ticket.
// Images over the size cap are refused without touching the draft.
func (w *TicketWorkflow) AppendAttachment(session *types.Session, fileID string, size int64) error {
	if session.State != types.StateCollectingInfo {
		return ErrWrongState
	}
	if size > w.cfg.MaxReceiptBytes {
		return ErrAttachmentTooLarge
	}
	session.Attachments = append(session.Attachments, types.Attachment{
		Type:   types.AttachmentTypePhoto,
		FileID: fileID,
	})
	return w.sessions.UpdateSession(session)
}

// Submit persists the draft as a SupportTicket and ends the sequence. Staff
// members bypass the submission cap; everyone else is counted against a
// sliding window and refused at the cap, with no ticket created and the
// counter untouched.
func (w *TicketWorkflow) Submit(ctx context.Context, session *types.Session, isStaff bool) (*types.SupportTicket, error) {
	if session.State != types.StateCollectingInfo {
		return nil, ErrWrongState
	}

	if !isStaff {
		atCap, err := w.limiter.AtCap(ticketScope, session.UserID, w.cfg.TicketsPerWindow)
		if err != nil {
			return nil, err
		}
		if atCap {
			return nil, ErrTicketRateLimited
		}
		window := time.Duration(w.cfg.TicketWindowSeconds) * time.Second
		if err := w.limiter.Record(ticketScope, session.UserID, window); err != nil {
			return nil, err
		}
	}

	subscriber, err := w.store.GetSubscriberByExternalID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if subscriber == nil {
		return nil, errors.New("subscriber not registered")
	}

	ticket, err := w.store.CreateTicket(ctx, subscriber.ID, session.Issue, session.Attachments)
	if err != nil {
		return nil, err
	}

	if err := w.sessions.ClearSession(session.ID); err != nil {
		return nil, err
	}
	return ticket, nil
}

// BeginReply opens reply entry against the given ticket.
func (w *TicketWorkflow) BeginReply(session *types.Session, ticketID int64) error {
	session.State = types.StateAwaitingReply
	session.ReplyTicketID = ticketID
	return w.sessions.UpdateSession(session)
}

// SubmitReply persists the staff reply and returns it together with the
// ticket so the caller can notify the requester.
func (w *TicketWorkflow) SubmitReply(ctx context.Context, session *types.Session, text string) (*types.TicketReply, *types.SupportTicket, error) {
	if session.State != types.StateAwaitingReply {
		return nil, nil, ErrWrongState
	}

	ticket, err := w.store.GetTicket(ctx, session.ReplyTicketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket == nil {
		return nil, nil, ErrTicketNotFound
	}

	reply, err := w.store.CreateTicketReply(ctx, ticket.ID, text, session.UserID)
	if err != nil {
		return nil, nil, err
	}

	if err := w.sessions.ClearSession(session.ID); err != nil {
		return nil, nil, err
	}
	return reply, ticket, nil
}

// ToggleResolved flips the ticket's resolution flag and returns the ticket
// with its new state.
func (w *TicketWorkflow) ToggleResolved(ctx context.Context, ticketID int64) (*types.SupportTicket, error) {
	ticket, err := w.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	if err := w.store.SetTicketResolved(ctx, ticket.ID, !ticket.Resolved); err != nil {
		return nil, err
	}
	ticket.Resolved = !ticket.Resolved
	return ticket, nil
}
