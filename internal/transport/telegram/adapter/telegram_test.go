package adapter

import (
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestSplitTelegramTextShort(t *testing.T) {
	t.Parallel()
	got := splitTelegramText("hello", 100, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %#v", got)
	}
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 50) + "\n" + strings.Repeat("y", 50)
	got := splitTelegramText(text, 60, "")
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2: %#v", len(got), got)
	}
	if strings.ContainsRune(got[0], 'y') || strings.ContainsRune(got[1], 'x') {
		t.Fatalf("split not on the newline: %#v", got)
	}
}

func TestSplitTelegramTextAvoidsHTMLTagSplit(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 55) + "<b>bold</b>"
	got := splitTelegramText(text, 57, "HTML")
	for _, chunk := range got {
		open := strings.Count(chunk, "<")
		closed := strings.Count(chunk, ">")
		if open != closed {
			t.Fatalf("chunk splits a tag: %q", chunk)
		}
	}
}

func TestSplitTelegramTextCoversEverything(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("word ", 500)
	got := splitTelegramText(text, 120, "")
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	joined := strings.Join(got, "")
	if strings.ReplaceAll(joined, "\n", "") != strings.ReplaceAll(strings.TrimRight(text, "\n"), "\n", "") {
		t.Fatalf("content lost while splitting")
	}
	for _, chunk := range got {
		if len([]rune(chunk)) > 120 {
			t.Fatalf("chunk over limit: %d runes", len([]rune(chunk)))
		}
	}
}

func TestMentionsBot(t *testing.T) {
	t.Parallel()
	const botID = 99

	cases := []struct {
		name string
		msg  *tele.Message
		want bool
	}{
		{"username in text", &tele.Message{Text: "hey @MealBot what's for dinner"}, true},
		{"case insensitive", &tele.Message{Text: "@mealbot hi"}, true},
		{"other mention", &tele.Message{Text: "ask @someoneelse"}, false},
		{"plain text", &tele.Message{Text: "nothing here"}, false},
		{
			"reply to bot",
			&tele.Message{Text: "yes", ReplyTo: &tele.Message{Sender: &tele.User{ID: botID}}},
			true,
		},
		{
			"reply to human",
			&tele.Message{Text: "yes", ReplyTo: &tele.Message{Sender: &tele.User{ID: 7}}},
			false,
		},
	}
	for _, tc := range cases {
		if got := mentionsBot(tc.msg, botID, "MealBot"); got != tc.want {
			t.Errorf("%s: mentionsBot = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		u    *tele.User
		want string
	}{
		{&tele.User{FirstName: "Ana", LastName: "Reis"}, "Ana Reis"},
		{&tele.User{FirstName: "Ana"}, "Ana"},
		{&tele.User{LastName: "Reis"}, "Reis"},
		{&tele.User{Username: "ana"}, "ana"},
	}
	for _, tc := range cases {
		if got := displayName(tc.u); got != tc.want {
			t.Errorf("displayName(%+v) = %q, want %q", tc.u, got, tc.want)
		}
	}
}

func TestPresenceTrackerLifecycle(t *testing.T) {
	t.Parallel()
	p := NewPresenceTracker()

	if p.VoiceChatActive(-100) {
		t.Fatalf("no call yet")
	}

	p.CallStarted(-100, 7)
	if !p.VoiceChatActive(-100) || !p.InVoiceChat(-100, 7) {
		t.Fatalf("starter not tracked")
	}
	if p.InVoiceChat(-100, 8) {
		t.Fatalf("unknown user reported in call")
	}

	p.Joined(-100, []int64{8, 9})
	if !p.InVoiceChat(-100, 8) || !p.InVoiceChat(-100, 9) {
		t.Fatalf("joined users not tracked")
	}

	p.CallEnded(-100)
	if p.VoiceChatActive(-100) || p.InVoiceChat(-100, 7) {
		t.Fatalf("call state survived the end event")
	}
}

func TestPresenceTrackerJoinWithoutStart(t *testing.T) {
	t.Parallel()
	p := NewPresenceTracker()

	// A missed start event should not hide an obviously running call.
	p.Joined(-200, []int64{5})
	if !p.VoiceChatActive(-200) || !p.InVoiceChat(-200, 5) {
		t.Fatalf("join without start ignored")
	}
}

func TestPresenceTrackerRestartResetsMembers(t *testing.T) {
	t.Parallel()
	p := NewPresenceTracker()
	p.CallStarted(-300, 1)
	p.Joined(-300, []int64{2})
	p.CallStarted(-300, 3)

	if p.InVoiceChat(-300, 2) {
		t.Fatalf("member from previous call survived restart")
	}
	if !p.InVoiceChat(-300, 3) {
		t.Fatalf("new starter missing")
	}
}

func TestPresenceTrackerPerChatIsolation(t *testing.T) {
	t.Parallel()
	p := NewPresenceTracker()
	p.CallStarted(-1, 7)

	if p.VoiceChatActive(-2) || p.InVoiceChat(-2, 7) {
		t.Fatalf("call leaked into another chat")
	}
}
