// Package chat answers casual messages that address the bot: a few canned
// responses keyed on phrases, a custom greeting for configured users, and a
// random greeting for everyone else.
package chat

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"mealbot/internal/transport"
)

var greetings = []string{"Hi", "Hello", "Hey", "Heya", "Greetings", "Howdy"}

// phrase/response pairs are checked in order; the first hit wins.
var canned = []struct {
	phrase   string
	response string
}{
	{"who are you", "I'm MealBot, your friendly kitchen helper."},
	{"good bot", "Thanks! I do my best."},
	{"bad bot", "I'm still learning. How can I improve?"},
	{"thank", "You're welcome!"},
	{"help", "Need help? Try /help to see what I can do."},
}

type Responder struct {
	mu      sync.RWMutex
	special map[string]string // username (without @) -> greeting

	// pick selects an index in [0,n); swapped out in tests.
	pick func(n int) int
}

func New(special map[string]string) *Responder {
	return &Responder{special: special, pick: rand.Intn}
}

// Apply replaces the special-user table on config reload.
func (r *Responder) Apply(special map[string]string) {
	r.mu.Lock()
	r.special = special
	r.mu.Unlock()
}

// ReplyTo returns the reply for a message, or "" when the message is not
// addressed to the bot. Commands are left to the command router.
func (r *Responder) ReplyTo(msg *transport.Message) string {
	if msg == nil {
		return ""
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return ""
	}
	// In a group the bot only reacts when mentioned; a DM is always for us.
	if msg.IsGroup && !msg.MentionsBot {
		return ""
	}

	lower := strings.ToLower(text)
	for _, c := range canned {
		if strings.Contains(lower, c.phrase) {
			return c.response
		}
	}

	name := strings.TrimSpace(msg.FromName)
	if name == "" {
		name = "friend"
	}

	r.mu.RLock()
	custom, ok := r.special[strings.TrimPrefix(msg.FromUsername, "@")]
	r.mu.RUnlock()
	if ok && custom != "" {
		if strings.Contains(custom, "%s") {
			return fmt.Sprintf(custom, name)
		}
		return custom
	}

	return fmt.Sprintf("%s, %s!", greetings[r.pick(len(greetings))], name)
}
