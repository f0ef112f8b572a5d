// Package messenger sends replies and pushes through the LINE Messaging API
// and downloads the content of image messages.
package messenger

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Messenger is the outbound side of the bot.
type Messenger interface {
	// Reply answers an event with its single-use reply token.
	Reply(ctx context.Context, replyToken string, messages ...messaging_api.MessageInterface) error
	// Push sends to a user, group or room ID without a reply token.
	Push(ctx context.Context, to string, messages ...messaging_api.MessageInterface) error
	// FetchContent downloads a message's binary content and its MIME type.
	FetchContent(ctx context.Context, messageID string) ([]byte, string, error)
}

// MaxContentBytes caps downloaded images. LINE accepts uploads up to 10 MB.
const MaxContentBytes = 10 << 20

// DefaultImageMIME is assumed when the content type cannot be determined.
const DefaultImageMIME = "image/jpeg"
