package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mealbot/internal/scheduler"
	"mealbot/internal/storage"
	"mealbot/pkg/logx"
)

func (r *Router) handleRemind(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return r.reply(ctx, req, "Usage: "+r.cmds["remind"].Usage)
	}
	switch strings.ToLower(req.Args[0]) {
	case "add":
		return r.remindAdd(ctx, req, req.Args[1:])
	case "list":
		return r.remindList(ctx, req)
	case "del", "delete":
		return r.remindDelete(ctx, req, req.Args[1:])
	default:
		return r.reply(ctx, req, "Usage: "+r.cmds["remind"].Usage)
	}
}

func (r *Router) remindAdd(ctx context.Context, req *Request, args []string) error {
	if len(args) < 2 {
		return r.reply(ctx, req, "Usage: /remind add <medicine|food|other> <HH:MM> [timezone] [private] [note]")
	}

	kind := strings.ToLower(args[0])
	switch kind {
	case storage.KindMedicine, storage.KindFood, storage.KindOther:
	default:
		return r.reply(ctx, req, "Unknown reminder kind. Use medicine, food or other.")
	}

	hour, minute, err := scheduler.ParseHHMM(args[1])
	if err != nil {
		return r.reply(ctx, req, "Invalid time format. Please use HH:MM in 24h format, e.g. 08:30.")
	}
	hhmm := fmt.Sprintf("%02d:%02d", hour, minute)

	rest := args[2:]
	tz := "UTC"
	if len(rest) > 0 && looksLikeZone(rest[0]) {
		if _, err := time.LoadLocation(rest[0]); err != nil {
			return r.reply(ctx, req, "Invalid timezone. Please use a valid IANA timezone like Europe/Lisbon or America/New_York.")
		}
		tz = rest[0]
		rest = rest[1:]
	}

	private := false
	if len(rest) > 0 && strings.EqualFold(rest[0], "private") {
		private = true
		rest = rest[1:]
	}
	note := strings.TrimSpace(strings.Join(rest, " "))

	rem := storage.Reminder{
		UserID:   req.Msg.FromID,
		UserName: req.Msg.FromName,
		Kind:     kind,
		TimeHHMM: hhmm,
		Note:     note,
		Private:  private,
		Timezone: tz,
	}
	// Group reminders keep a channel to fall back to; DM reminders do not.
	if req.Msg.IsGroup {
		rem.ChatID = req.Msg.ChatID
		rem.ThreadID = req.Msg.ThreadID
	}

	id, err := r.store.AddReminder(ctx, rem)
	if err != nil {
		req.Log.Error("reminder save failed", logx.Err(err))
		return r.reply(ctx, req, "Failed to save your reminder. Please try again later.")
	}

	privacy := "public"
	if private {
		privacy = "private"
	}
	msg := fmt.Sprintf("Saved a %s reminder at %s (%s), timezone: %s. ID %d.", kind, hhmm, privacy, tz, id)
	if note != "" {
		msg += " Note: " + note
	}
	return r.reply(ctx, req, msg)
}

func (r *Router) remindList(ctx context.Context, req *Request) error {
	rems, err := r.store.ListReminders(ctx, req.Msg.FromID)
	if err != nil {
		req.Log.Error("reminder list failed", logx.Err(err))
		return r.reply(ctx, req, "Failed to fetch your reminders. Please try again later.")
	}
	if len(rems) == 0 {
		return r.reply(ctx, req, "You have no reminders yet.")
	}

	var b strings.Builder
	b.WriteString("Your reminders:\n")
	for _, rem := range rems {
		privacy := "public"
		if rem.Private {
			privacy = "private"
		}
		fmt.Fprintf(&b, "- ID %d: %s at %s (%s, tz: %s)", rem.ID, rem.Kind, rem.TimeHHMM, privacy, rem.Timezone)
		if rem.Note != "" {
			fmt.Fprintf(&b, ", note: %s", rem.Note)
		}
		b.WriteByte('\n')
	}
	return r.reply(ctx, req, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) remindDelete(ctx context.Context, req *Request, args []string) error {
	if len(args) != 1 {
		return r.reply(ctx, req, "Usage: /remind del <id> (see /remind list)")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return r.reply(ctx, req, "Reminder ID must be a number (see /remind list).")
	}

	ok, err := r.store.DeleteReminder(ctx, id, req.Msg.FromID)
	if err != nil {
		req.Log.Error("reminder delete failed", logx.Err(err))
		return r.reply(ctx, req, "Failed to delete reminder. Please try again later.")
	}
	if !ok {
		return r.reply(ctx, req, "No reminder with that ID belongs to you.")
	}
	return r.reply(ctx, req, fmt.Sprintf("Deleted reminder %d.", id))
}

// looksLikeZone guesses whether the token is a timezone rather than a note
// word. IANA zones carry a slash; the handful of fixed names are short and
// uppercase.
func looksLikeZone(s string) bool {
	if strings.Contains(s, "/") {
		return true
	}
	return len(s) <= 5 && s == strings.ToUpper(s) && s != strings.ToLower(s)
}
