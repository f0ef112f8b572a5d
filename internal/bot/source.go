package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// GetChatID extracts the chat ID from a LINE source.
// Returns user ID for personal chats, group ID for groups, room ID for rooms.
// Returns empty string if source type is unknown.
func GetChatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// GetUserID extracts the user ID from a LINE source.
// Group and room members only carry one if they have consented, so the
// result may be empty outside personal chats.
func GetUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// replyTarget pulls the reply token and source out of events that carry one.
func replyTarget(event webhook.EventInterface) (replyToken string, source webhook.SourceInterface, eventID string) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken, e.Source, e.WebhookEventId
	case webhook.FollowEvent:
		return e.ReplyToken, e.Source, e.WebhookEventId
	case webhook.JoinEvent:
		return e.ReplyToken, e.Source, e.WebhookEventId
	case webhook.PostbackEvent:
		return e.ReplyToken, e.Source, e.WebhookEventId
	case webhook.MemberJoinedEvent:
		return e.ReplyToken, e.Source, e.WebhookEventId
	case webhook.BeaconEvent:
		return e.ReplyToken, e.Source, e.WebhookEventId
	default:
		return "", nil, ""
	}
}
