package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/contextkeys"
	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/ratelimit"
	"github.com/subgate/subgate-bot/types"
)

const generalScope = "general"

// Middlewares prepare every update before it reaches the main handler:
// session bootstrap, staff flag, general throttling and message
// classification.
type Middlewares struct {
	sessions types.SessionStore
	entities types.EntityStore
	limiter  *ratelimit.Limiter
	cfg      config.Config
}

func NewMessageAnalyzer(sessions types.SessionStore, entities types.EntityStore, limiter *ratelimit.Limiter, cfg config.Config) *Middlewares {
	return &Middlewares{
		sessions: sessions,
		entities: entities,
		limiter:  limiter,
		cfg:      cfg,
	}
}

// SessionMiddleware resolves or creates the requester's session, marks staff
// updates and attaches the session id to the context.
func (m *Middlewares) SessionMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			userID int64
			chatID int64
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
			if chatID == 0 {
				return
			}
		default:
			return
		}

		if userID == 0 || chatID == 0 {
			return
		}

		session, err := m.sessions.GetUserSession(userID)
		if err != nil {
			session = &types.Session{
				UserID: userID,
				ChatID: chatID,
				State:  types.StateIdle,
			}
			if err := m.sessions.CreateSession(session); err != nil {
				log.Printf("Error creating session: %v", err)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   messages.ErrorDefault(),
				})
				return
			}
		}

		isStaff, err := m.entities.IsStaff(ctx, userID)
		if err != nil {
			log.Printf("Error checking staff status for %d: %v", userID, err)
			isStaff = false
		}

		ctx = contextkeys.WithSessionID(ctx, session.ID)
		ctx = contextkeys.WithStaff(ctx, isStaff)
		next(ctx, b, update)
	}
}

// RateLimitMiddleware throttles all non-staff traffic with the general
// per-user window. Throttled updates are answered once and dropped.
func (m *Middlewares) RateLimitMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if contextkeys.IsStaff(ctx) {
			next(ctx, b, update)
			return
		}

		var userID, chatID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
		}
		if userID == 0 {
			next(ctx, b, update)
			return
		}

		window := time.Duration(m.cfg.DefaultLimitSeconds) * time.Second
		allowed, err := m.limiter.Allow(generalScope, userID, m.cfg.DefaultLimitRequests, window)
		if err != nil {
			log.Printf("Rate limit check failed for %d: %v", userID, err)
			next(ctx, b, update)
			return
		}
		if !allowed {
			if chatID != 0 {
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   messages.ErrorRateLimited(),
				})
			}
			return
		}

		next(ctx, b, update)
	}
}

// AnalyzeMessageMiddleware classifies the update into a closed set of
// message types so the main handler can switch on one value.
func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			ctx = contextkeys.WithCallbackData(ctx, update.CallbackQuery.Data)
			next(ctx, b, update)
			return
		}

		if update.Message != nil && update.Message.Text != "" && strings.HasPrefix(update.Message.Text, "/") {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
			next(ctx, b, update)
			return
		}

		next(m.analyzeMessage(ctx, update), b, update)
	}
}

func (m *Middlewares) analyzeMessage(ctx context.Context, update *models.Update) context.Context {
	if update.Message == nil {
		return ctx
	}

	msg := update.Message

	if len(msg.Photo) > 0 {
		best := msg.Photo[0]
		for i := 1; i < len(msg.Photo); i++ {
			if msg.Photo[i].FileSize > best.FileSize {
				best = msg.Photo[i]
			}
		}
		ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypePhoto)
		return contextkeys.WithPhotoInfo(ctx, &contextkeys.PhotoInfo{
			FileID:   best.FileID,
			FileSize: int64(best.FileSize),
			Width:    best.Width,
			Height:   best.Height,
		})
	}

	if msg.Text != "" {
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText)
	}

	// Documents, video, audio, stickers: nothing in the workflows accepts
	// them.
	if msg.Document != nil || msg.Video != nil || msg.Audio != nil ||
		msg.Voice != nil || msg.Sticker != nil || msg.VideoNote != nil {
		return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnsupported)
	}

	return contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}
