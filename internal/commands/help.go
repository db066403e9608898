package commands

import (
	"context"
	"strings"

	"mealbot/pkg/tgui"
)

func (r *Router) handleStart(ctx context.Context, req *Request) error {
	return r.reply(ctx, req,
		"Hi! I'm MealBot. I post a daily recipe, nag you about medicine and meals, "+
			"and can read group-call messages aloud. Try /help for the full list.")
}

func (r *Router) handleHelp(ctx context.Context, req *Request) error {
	var b strings.Builder
	b.WriteString(tgui.B("MealBot commands").String())
	b.WriteString("\n")
	for _, name := range r.order {
		c := r.cmds[name]
		b.WriteString("\n")
		b.WriteString(tgui.Esc(c.Usage).String())
		b.WriteString(" - ")
		b.WriteString(tgui.I(c.Description).String())
	}
	return r.replyHTML(ctx, req, b.String())
}
