package transport

import "context"

// Update is a transport-neutral inbound event.
type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromName     string
	FromUsername string
	Text         string
	IsGroup      bool
	MentionsBot  bool
}

// ChatTarget addresses an outbound send. For direct (private) delivery the
// ChatID is the recipient's user ID — Telegram private chats share the user's ID.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// ParseModeHTML selects Telegram's HTML parse mode for SendOptions.ParseMode.
const ParseModeHTML = "HTML"

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is the outbound messaging transport plus the inbound update feed.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt SendOptions) (MessageRef, error)
	// SendVoice uploads an audio artifact from disk as a voice note.
	SendVoice(ctx context.Context, to ChatTarget, path string) error
}

// Presence reports group-call membership, fed by video-chat service messages.
// Both methods are best-effort views of the adapter's in-memory tracker.
type Presence interface {
	VoiceChatActive(chatID int64) bool
	InVoiceChat(chatID, userID int64) bool
}
