package chat

import (
	"strings"
	"testing"

	"mealbot/internal/transport"
)

func mention(text string) *transport.Message {
	return &transport.Message{
		FromID: 7, FromName: "Ana", FromUsername: "ana",
		Text: text, IsGroup: true, MentionsBot: true,
	}
}

func newResponder(special map[string]string) *Responder {
	r := New(special)
	r.pick = func(n int) int { return 0 }
	return r
}

func TestReplyToIgnores(t *testing.T) {
	t.Parallel()
	r := newResponder(nil)

	cases := []struct {
		name string
		msg  *transport.Message
	}{
		{name: "nil", msg: nil},
		{name: "empty", msg: mention("  ")},
		{name: "command", msg: mention("/recipe")},
		{name: "group without mention", msg: &transport.Message{Text: "hi all", IsGroup: true}},
	}
	for _, tc := range cases {
		if got := r.ReplyTo(tc.msg); got != "" {
			t.Errorf("%s: ReplyTo = %q, want silence", tc.name, got)
		}
	}
}

func TestReplyToCanned(t *testing.T) {
	t.Parallel()
	r := newResponder(nil)

	cases := []struct {
		text, want string
	}{
		{"hey, WHO ARE YOU exactly?", "I'm MealBot, your friendly kitchen helper."},
		{"good bot", "Thanks! I do my best."},
		{"bad bot!!", "I'm still learning. How can I improve?"},
		{"thanks a lot", "You're welcome!"},
		{"i need some help", "Need help? Try /help to see what I can do."},
	}
	for _, tc := range cases {
		if got := r.ReplyTo(mention(tc.text)); got != tc.want {
			t.Errorf("ReplyTo(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestReplyToGreetsByName(t *testing.T) {
	t.Parallel()
	r := newResponder(nil)
	if got := r.ReplyTo(mention("morning!")); got != "Hi, Ana!" {
		t.Fatalf("ReplyTo = %q", got)
	}

	anon := mention("morning!")
	anon.FromName = ""
	if got := r.ReplyTo(anon); !strings.Contains(got, "friend") {
		t.Fatalf("ReplyTo = %q, want fallback name", got)
	}
}

func TestReplyToSpecialUser(t *testing.T) {
	t.Parallel()
	r := newResponder(map[string]string{"ana": "Salutations, %s, my liege."})
	if got := r.ReplyTo(mention("hello")); got != "Salutations, Ana, my liege." {
		t.Fatalf("ReplyTo = %q", got)
	}

	// canned responses still win over the special greeting
	if got := r.ReplyTo(mention("good bot")); got != "Thanks! I do my best." {
		t.Fatalf("ReplyTo = %q", got)
	}
}

func TestReplyToDM(t *testing.T) {
	t.Parallel()
	r := newResponder(nil)
	dm := &transport.Message{FromID: 7, FromName: "Ana", Text: "hello", IsGroup: false}
	if got := r.ReplyTo(dm); got == "" {
		t.Fatalf("DM ignored")
	}
}

func TestApplySwapsSpecialUsers(t *testing.T) {
	t.Parallel()
	r := newResponder(nil)
	r.Apply(map[string]string{"ana": "Meowdy"})
	if got := r.ReplyTo(mention("hello")); got != "Meowdy" {
		t.Fatalf("ReplyTo = %q", got)
	}
}
