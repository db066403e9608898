// Package commands routes inbound updates: slash commands to handlers, and
// everything else to the chat responder and the speech gate.
package commands

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mealbot/internal/catalog"
	rtsup "mealbot/internal/runtime/supervisor"
	"mealbot/internal/storage"
	kit "mealbot/internal/transport"
	"mealbot/pkg/logx"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

type Command struct {
	Name        string
	Description string
	Usage       string
	Handle      HandlerFunc
}

type Request struct {
	Msg  *kit.Message
	Chat kit.ChatTarget
	Args []string
	Log  logx.Logger
}

// MealSource is the slice of the catalog client the /recipe command uses.
type MealSource interface {
	Random(ctx context.Context) (*catalog.Meal, error)
	RandomByCategory(ctx context.Context, category string) (*catalog.Meal, error)
	RandomByIngredient(ctx context.Context, ingredient string) (*catalog.Meal, error)
}

// SpeechGate decides whether to read a message aloud.
type SpeechGate interface {
	HandleMessage(ctx context.Context, msg *kit.Message) error
}

// Chatter produces a conversational reply, or "" to stay silent.
type Chatter interface {
	ReplyTo(msg *kit.Message) string
}

type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	store   storage.Store
	meals   MealSource
	chat    Chatter
	gate    SpeechGate

	cmds  map[string]Command
	order []string

	timeout time.Duration
	jobs    chan func()
}

func New(log logx.Logger, adapter kit.Adapter, store storage.Store, meals MealSource, chat Chatter, gate SpeechGate) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		log:     log,
		adapter: adapter,
		store:   store,
		meals:   meals,
		chat:    chat,
		gate:    gate,
		cmds:    map[string]Command{},
		timeout: 15 * time.Second,
		jobs:    make(chan func(), 256),
	}
	r.register(Command{Name: "start", Description: "introduce the bot", Usage: "/start", Handle: r.handleStart})
	r.register(Command{Name: "help", Description: "show this help", Usage: "/help", Handle: r.handleHelp})
	r.register(Command{
		Name:        "recipe",
		Description: "fetch a recipe on demand",
		Usage:       "/recipe [random | category <name> | ingredient <name>]",
		Handle:      r.handleRecipe,
	})
	r.register(Command{
		Name:        "remind",
		Description: "manage daily reminders",
		Usage:       "/remind add <medicine|food|other> <HH:MM> [timezone] [private] [note] | list | del <id>",
		Handle:      r.handleRemind,
	})
	r.register(Command{
		Name:        "tts",
		Description: "read your call messages aloud",
		Usage:       "/tts on|off",
		Handle:      r.handleTTS,
	})
	return r
}

func (r *Router) register(c Command) {
	r.cmds[c.Name] = c
	r.order = append(r.order, c.Name)
}

// DispatchLoop consumes updates until ctx is cancelled or the channel closes.
// Command bodies run on a bounded worker pool so a slow handler never stalls
// the feed.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}

	sup := rtsup.New(ctx, r.log.With(logx.String("comp", "commands")))
	for i := 0; i < workers; i++ {
		name := "command.worker." + strconv.Itoa(i)
		sup.Go0(name, func(c context.Context) {
			for {
				select {
				case <-c.Done():
					return
				case job, ok := <-r.jobs:
					if !ok {
						return
					}
					job()
				}
			}
		})
	}
	r.log.Info("command dispatcher started", logx.Int("workers", workers))

	defer func() {
		sup.Cancel()
		sup.Wait()
		r.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.routeUpdate(ctx, up)
		}
	}
}

func (r *Router) routeUpdate(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if name, args, ok := parseCommand(text); ok {
		cmd, known := r.cmds[name]
		if !known {
			// Stay quiet about unknown commands in groups unless addressed;
			// they are usually meant for another bot.
			if !msg.IsGroup || msg.MentionsBot {
				r.enqueue(ctx, msg, func(c context.Context) {
					_, _ = r.adapter.SendText(c, targetOf(msg), "Unknown command. Try /help.", kit.SendOptions{})
				})
			}
			return
		}
		r.enqueueCommand(ctx, msg, cmd, args)
		return
	}

	r.enqueue(ctx, msg, func(c context.Context) {
		if r.chat != nil {
			if reply := r.chat.ReplyTo(msg); reply != "" {
				if _, err := r.adapter.SendText(c, targetOf(msg), reply, kit.SendOptions{}); err != nil {
					r.log.Warn("chat reply failed", logx.Int64("chat", msg.ChatID), logx.Err(err))
				}
			}
		}
		if r.gate != nil {
			if err := r.gate.HandleMessage(c, msg); err != nil {
				r.log.Warn("speech failed", logx.Int64("chat", msg.ChatID), logx.Err(err))
			}
		}
	})
}

// parseCommand splits "/name@bot arg arg" into its name and arguments.
func parseCommand(text string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := strings.Fields(text)
	word := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if word == "" {
		return "", nil, false
	}
	return strings.ToLower(word), parts[1:], true
}

func (r *Router) enqueueCommand(ctx context.Context, msg *kit.Message, cmd Command, args []string) {
	rid := uuid.NewString()[:8]
	req := &Request{
		Msg:  msg,
		Chat: targetOf(msg),
		Args: args,
		Log: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}

	final := Chain(
		cmd.Handle,
		mwPanicRecover(r.log),
		mwRequestLog(),
		mwTimeout(r.timeout),
	)

	r.enqueue(ctx, msg, func(c context.Context) { _ = final(c, req) })
}

func (r *Router) enqueue(ctx context.Context, msg *kit.Message, job func(ctx context.Context)) {
	select {
	case r.jobs <- func() { job(ctx) }:
	default:
		r.log.Warn("command queue full, update dropped", logx.Int64("chat", msg.ChatID))
		_, _ = r.adapter.SendText(ctx, targetOf(msg), "Busy right now, try again in a moment.", kit.SendOptions{})
	}
}

func targetOf(msg *kit.Message) kit.ChatTarget {
	return kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
}

func (r *Router) reply(ctx context.Context, req *Request, text string) error {
	_, err := r.adapter.SendText(ctx, req.Chat, text, kit.SendOptions{})
	return err
}

func (r *Router) replyHTML(ctx context.Context, req *Request, html string) error {
	_, err := r.adapter.SendText(ctx, req.Chat, html, kit.SendOptions{
		ParseMode:      kit.ParseModeHTML,
		DisablePreview: true,
	})
	return err
}

func mwTimeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if d <= 0 {
				return next(ctx, req)
			}
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

func mwPanicRecover(log logx.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger := log
					if req != nil && !req.Log.IsZero() {
						logger = req.Log
					}
					logger.Error("panic in command handler",
						logx.Any("panic", r),
						logx.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func mwRequestLog() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			d := time.Since(start)
			if err != nil {
				req.Log.Warn("command failed", logx.Duration("dur", d), logx.Err(err))
			} else {
				req.Log.Debug("command ok", logx.Duration("dur", d))
			}
			return err
		}
	}
}
