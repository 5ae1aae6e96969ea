package contextkeys

import "context"

type messageTypeKey struct{}
type photoInfoKey struct{}
type sessionIDKey struct{}
type callbackDataKey struct{}
type staffKey struct{}

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypePhoto       MessageType = "photo"
	MessageTypeUnsupported MessageType = "unsupported"
	MessageTypeUnknown     MessageType = "unknown"
	MessageTypeCommand     MessageType = "command"
	MessageTypeClickButton MessageType = "clickButton"
)

// PhotoInfo is the largest variant of an incoming photo. FileSize is the
// size Telegram reports before download.
type PhotoInfo struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v := ctx.Value(messageTypeKey{})
	if v == nil {
		return MessageTypeUnknown, false
	}
	return v.(MessageType), true
}

func WithPhotoInfo(ctx context.Context, info *PhotoInfo) context.Context {
	return context.WithValue(ctx, photoInfoKey{}, info)
}

func GetPhotoInfo(ctx context.Context) (*PhotoInfo, bool) {
	v := ctx.Value(photoInfoKey{})
	if v == nil {
		return nil, false
	}
	return v.(*PhotoInfo), true
}

func IsTextMessage(ctx context.Context) bool {
	msgType, ok := GetMessageType(ctx)
	return ok && msgType == MessageTypeText
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func GetSessionID(ctx context.Context) (string, bool) {
	v := ctx.Value(sessionIDKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v := ctx.Value(callbackDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

func WithStaff(ctx context.Context, isStaff bool) context.Context {
	return context.WithValue(ctx, staffKey{}, isStaff)
}

func IsStaff(ctx context.Context) bool {
	v := ctx.Value(staffKey{})
	if v == nil {
		return false
	}
	return v.(bool)
}
