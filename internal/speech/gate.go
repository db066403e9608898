package speech

import (
	"context"
	"os"
	"strings"

	"mealbot/internal/transport"
	"mealbot/pkg/logx"
	"mealbot/pkg/tgui"
)

// DefaultMaxChars bounds spoken text; longer messages are cut, not refused.
const DefaultMaxChars = 240

// OptInStore is the slice of the storage layer the gate reads.
type OptInStore interface {
	SpeechOptedIn(ctx context.Context, userID, chatID int64) (bool, error)
}

// Player uploads the rendered wav as a voice note.
type Player interface {
	SendVoice(ctx context.Context, to transport.ChatTarget, path string) error
}

type TextSynthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

// Gate decides per message whether to speak it, and owns the synthesize,
// play and cleanup sequence. Every filter short-circuits silently; only
// actual synthesis or playback trouble surfaces as an error.
type Gate struct {
	Store    OptInStore
	Presence transport.Presence
	Player   Player
	Synth    TextSynthesizer

	MaxChars int
	Log      logx.Logger
}

// HandleMessage speaks a group message when the author opted in and is in
// the chat's running group call. The wav file is removed whether or not
// playback succeeds.
func (g *Gate) HandleMessage(ctx context.Context, msg *transport.Message) error {
	if msg == nil || !msg.IsGroup {
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return nil
	}

	log := g.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	opted, err := g.Store.SpeechOptedIn(ctx, msg.FromID, msg.ChatID)
	if err != nil {
		log.Warn("opt-in lookup failed",
			logx.Int64("user", msg.FromID), logx.Int64("chat", msg.ChatID), logx.Err(err))
		return nil
	}
	if !opted {
		return nil
	}

	if g.Presence == nil ||
		!g.Presence.VoiceChatActive(msg.ChatID) ||
		!g.Presence.InVoiceChat(msg.ChatID, msg.FromID) {
		return nil
	}

	maxChars := g.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = tgui.CutRunes(text, maxChars)

	path, err := g.Synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn("tts temp file cleanup failed", logx.String("path", path), logx.Err(rmErr))
		}
	}()

	return g.Player.SendVoice(ctx, transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, path)
}
