package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/subgate/subgate-bot/internal/contextkeys"
	"github.com/subgate/subgate-bot/internal/messages"
	"github.com/subgate/subgate-bot/internal/utils"
	"github.com/subgate/subgate-bot/internal/workflow"
	"github.com/subgate/subgate-bot/types"
)

const receiptScope = "receipt"

func (bh *Handlers) HandlePhoto(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	photo, ok := contextkeys.GetPhotoInfo(ctx)
	if !ok || photo == nil {
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	switch session.State {
	case types.StateAwaitingReceipt:
		bh.handleReceiptPhoto(ctx, b, chatID, session, photo)

	case types.StateAwaitingIssue:
		// The primary issue must be text; images come after.
		bh.sendText(ctx, b, chatID, messages.SupportIssueFirst())

	case types.StateCollectingInfo:
		if err := bh.tickets.AppendAttachment(session, photo.FileID, photo.FileSize); err != nil {
			if errors.Is(err, workflow.ErrAttachmentTooLarge) {
				bh.sendText(ctx, b, chatID, messages.ErrorFileTooLarge(bh.cfg.MaxReceiptBytes))
				return
			}
			log.Printf("Error appending attachment for %d: %v", session.UserID, err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.sendText(ctx, b, chatID, messages.SupportImageReceived())

	default:
		bh.sendText(ctx, b, chatID, messages.StrayMessageHint())
	}
}

func (bh *Handlers) handleReceiptPhoto(ctx context.Context, b *bot.Bot, chatID int64, session *types.Session, photo *contextkeys.PhotoInfo) {
	if !contextkeys.IsStaff(ctx) {
		window := time.Duration(bh.cfg.ReceiptLimitSeconds) * time.Second
		allowed, err := bh.limiter.Allow(receiptScope, session.UserID, bh.cfg.ReceiptLimitRequests, window)
		if err != nil {
			log.Printf("Receipt rate limit check failed for %d: %v", session.UserID, err)
		} else if !allowed {
			bh.sendText(ctx, b, chatID, messages.ErrorRateLimited())
			return
		}
	}

	// Telegram reports the size before download; refuse oversize files
	// without fetching them.
	if photo.FileSize > bh.payments.MaxReceiptBytes() {
		bh.sendText(ctx, b, chatID, messages.ErrorFileTooLarge(bh.payments.MaxReceiptBytes()))
		return
	}

	image, err := bh.downloadFile(ctx, b, photo.FileID)
	if err != nil {
		log.Printf("Error downloading receipt for %d: %v", session.UserID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorReceiptDownloadFailed())
		return
	}

	// SubmitReceipt clears the session; capture the ids first.
	paymentID := session.PaymentID
	subscriptionID := session.SubscriptionID

	if _, err := bh.payments.SubmitReceipt(ctx, session, image); err != nil {
		if errors.Is(err, workflow.ErrReceiptTooLarge) {
			bh.sendText(ctx, b, chatID, messages.ErrorFileTooLarge(bh.payments.MaxReceiptBytes()))
			return
		}
		log.Printf("Error storing receipt for payment %d: %v", paymentID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault())
		return
	}

	bh.sendText(ctx, b, chatID, messages.ReceiptReceived())
	bh.alertStaffNewReceipt(ctx, b, paymentID, subscriptionID, session.UserID, image)
}

// alertStaffNewReceipt pushes the receipt image to the staff chat with
// verdict buttons attached.
func (bh *Handlers) alertStaffNewReceipt(ctx context.Context, b *bot.Bot, paymentID, subscriptionID, userID int64, image []byte) {
	if bh.cfg.StaffChatID == 0 {
		log.Printf("Staff chat not configured, skipping receipt alert for payment %d", paymentID)
		return
	}

	keyboard := utils.BuildInlineKeyboard([]utils.Button{
		{Text: messages.BtnVerify(), CallbackData: fmt.Sprintf("verify_%d", paymentID)},
		{Text: messages.BtnReject(), CallbackData: fmt.Sprintf("reject_%d", paymentID)},
	}, 2)

	_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: bh.cfg.StaffChatID,
		Photo: &models.InputFileUpload{
			Filename: fmt.Sprintf("receipt_%d.png", userID),
			Data:     bytes.NewReader(image),
		},
		Caption:     messages.ReceiptStaffCaption(subscriptionID),
		ReplyMarkup: &keyboard,
	})
	if err != nil {
		log.Printf("Error alerting staff about payment %d receipt: %v", paymentID, err)
	}
}

func (bh *Handlers) downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, bh.payments.MaxReceiptBytes()+1))
	if err != nil {
		return nil, err
	}
	return data, nil
}
