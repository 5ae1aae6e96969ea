package handlers

import (
	"context"
	"log"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/config"
	"github.com/subgate/subgate-bot/internal/contextkeys"
	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/plans"
	"github.com/subgate/subgate-bot/internal/ratelimit"
	"github.com/subgate/subgate-bot/internal/workflow"
	"github.com/subgate/subgate-bot/types"
)

// Handlers glue Telegram updates to the workflows. All business decisions
// live in the workflow package; here we only parse updates, pick the right
// operation and render the result.
type Handlers struct {
	sessions    types.SessionStore
	entities    types.EntityStore
	catalog     *plans.Catalog
	payments    *workflow.PaymentWorkflow
	tickets     *workflow.TicketWorkflow
	adjudicator *workflow.Adjudicator
	limiter     *ratelimit.Limiter
	cfg         config.Config
}

func NewHandlers(
	sessions types.SessionStore,
	entities types.EntityStore,
	catalog *plans.Catalog,
	payments *workflow.PaymentWorkflow,
	tickets *workflow.TicketWorkflow,
	adjudicator *workflow.Adjudicator,
	limiter *ratelimit.Limiter,
	cfg config.Config,
) *Handlers {
	return &Handlers{
		sessions:    sessions,
		entities:    entities,
		catalog:     catalog,
		payments:    payments,
		tickets:     tickets,
		adjudicator: adjudicator,
		limiter:     limiter,
		cfg:         cfg,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := bh.getChatIDFromUpdate(update)
	messageType, _ := contextkeys.GetMessageType(ctx)

	sessionID, ok := contextkeys.GetSessionID(ctx)
	if !ok {
		log.Printf("Error: SessionID not found in context")
		if chatID != 0 {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   messages.ErrorDefault(),
			})
		}
		return
	}

	session, err := bh.sessions.GetSession(sessionID)
	if err != nil {
		log.Printf("Error getting session: %v", err)
		if chatID != 0 {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   messages.ErrorDefault(),
			})
		}
		return
	}

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, session)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, b, update, session)
	case contextkeys.MessageTypePhoto:
		bh.HandlePhoto(ctx, b, update, session)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, b, update, session)
	default:
		if chatID != 0 {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   messages.ErrorUnsupportedMessageType(),
			})
		}
	}
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

func (bh *Handlers) answerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID, text string) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
	return err
}

func (bh *Handlers) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}
