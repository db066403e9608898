package commands

import (
	"context"
	"strings"

	"mealbot/pkg/logx"
)

func (r *Router) handleTTS(ctx context.Context, req *Request) error {
	if !req.Msg.IsGroup {
		return r.reply(ctx, req, "Speech opt-in only works in group chats.")
	}
	if len(req.Args) != 1 {
		return r.reply(ctx, req, "Usage: /tts on|off")
	}

	switch strings.ToLower(req.Args[0]) {
	case "on":
		if err := r.store.OptInSpeech(ctx, req.Msg.FromID, req.Msg.ChatID); err != nil {
			req.Log.Error("speech opt-in failed", logx.Err(err))
			return r.reply(ctx, req, "Could not save that. Please try again later.")
		}
		return r.reply(ctx, req, "Speech enabled. I'll read your messages aloud while you're in the group call.")
	case "off":
		if err := r.store.OptOutSpeech(ctx, req.Msg.FromID, req.Msg.ChatID); err != nil {
			req.Log.Error("speech opt-out failed", logx.Err(err))
			return r.reply(ctx, req, "Could not save that. Please try again later.")
		}
		return r.reply(ctx, req, "Speech disabled.")
	default:
		return r.reply(ctx, req, "Usage: /tts on|off")
	}
}
