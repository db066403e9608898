package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"mealbot/internal/transport"
	"mealbot/pkg/logx"
)

type fakeStore struct {
	optedIn map[int64]bool // by user id
	err     error
}

func (f *fakeStore) SpeechOptedIn(ctx context.Context, userID, chatID int64) (bool, error) {
	return f.optedIn[userID], f.err
}

type fakePresence struct {
	active  bool
	members map[int64]bool
}

func (f *fakePresence) VoiceChatActive(chatID int64) bool     { return f.active }
func (f *fakePresence) InVoiceChat(chatID, userID int64) bool { return f.members[userID] }

type fakeSynth struct {
	t     *testing.T
	dir   string
	text  string
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (string, error) {
	f.calls++
	f.text = text
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(f.dir, "out.wav")
	if err := os.WriteFile(p, []byte("RIFF"), 0o600); err != nil {
		f.t.Fatalf("write wav: %v", err)
	}
	return p, nil
}

type fakePlayer struct {
	to    transport.ChatTarget
	path  string
	calls int
	err   error
	// pathExisted records whether the wav was still on disk during playback.
	pathExisted bool
}

func (f *fakePlayer) SendVoice(ctx context.Context, to transport.ChatTarget, path string) error {
	f.calls++
	f.to = to
	f.path = path
	_, statErr := os.Stat(path)
	f.pathExisted = statErr == nil
	return f.err
}

func groupMsg(text string) *transport.Message {
	return &transport.Message{ChatID: -100, ThreadID: 2, FromID: 7, Text: text, IsGroup: true}
}

func newGate(t *testing.T, st *fakeStore, pr *fakePresence, sy *fakeSynth, pl *fakePlayer) *Gate {
	t.Helper()
	if sy.dir == "" {
		sy.dir = t.TempDir()
	}
	sy.t = t
	return &Gate{Store: st, Presence: pr, Player: pl, Synth: sy, Log: logx.Nop()}
}

func TestGateSpeaksAndCleansUp(t *testing.T) {
	t.Parallel()
	st := &fakeStore{optedIn: map[int64]bool{7: true}}
	pr := &fakePresence{active: true, members: map[int64]bool{7: true}}
	sy := &fakeSynth{}
	pl := &fakePlayer{}
	g := newGate(t, st, pr, sy, pl)

	if err := g.HandleMessage(context.Background(), groupMsg("hello there")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if pl.calls != 1 || pl.to.ChatID != -100 || pl.to.ThreadID != 2 {
		t.Fatalf("player = %+v", pl)
	}
	if !pl.pathExisted {
		t.Fatalf("wav was gone before playback")
	}
	if _, err := os.Stat(pl.path); !os.IsNotExist(err) {
		t.Fatalf("wav not cleaned up: %v", err)
	}
}

func TestGateCleansUpWhenPlaybackFails(t *testing.T) {
	t.Parallel()
	st := &fakeStore{optedIn: map[int64]bool{7: true}}
	pr := &fakePresence{active: true, members: map[int64]bool{7: true}}
	sy := &fakeSynth{}
	pl := &fakePlayer{err: errors.New("upload failed")}
	g := newGate(t, st, pr, sy, pl)

	if err := g.HandleMessage(context.Background(), groupMsg("hello")); err == nil {
		t.Fatalf("expected playback error")
	}
	if _, err := os.Stat(pl.path); !os.IsNotExist(err) {
		t.Fatalf("wav not cleaned up after failure: %v", err)
	}
}

func TestGateSkips(t *testing.T) {
	t.Parallel()

	base := func() (*fakeStore, *fakePresence) {
		return &fakeStore{optedIn: map[int64]bool{7: true}},
			&fakePresence{active: true, members: map[int64]bool{7: true}}
	}

	cases := []struct {
		name   string
		msg    *transport.Message
		mutate func(*fakeStore, *fakePresence)
	}{
		{name: "nil message", msg: nil},
		{name: "direct message", msg: &transport.Message{ChatID: 7, FromID: 7, Text: "hi", IsGroup: false}},
		{name: "empty text", msg: groupMsg("   ")},
		{name: "command", msg: groupMsg("/remind list")},
		{name: "not opted in", msg: groupMsg("hi"), mutate: func(st *fakeStore, pr *fakePresence) { st.optedIn = nil }},
		{name: "opt-in lookup error", msg: groupMsg("hi"), mutate: func(st *fakeStore, pr *fakePresence) { st.err = errors.New("db") }},
		{name: "no call running", msg: groupMsg("hi"), mutate: func(st *fakeStore, pr *fakePresence) { pr.active = false }},
		{name: "author not in call", msg: groupMsg("hi"), mutate: func(st *fakeStore, pr *fakePresence) { pr.members = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st, pr := base()
			if tc.mutate != nil {
				tc.mutate(st, pr)
			}
			sy := &fakeSynth{}
			pl := &fakePlayer{}
			g := newGate(t, st, pr, sy, pl)
			if err := g.HandleMessage(context.Background(), tc.msg); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			if sy.calls != 0 || pl.calls != 0 {
				t.Fatalf("spoke anyway: synth=%d play=%d", sy.calls, pl.calls)
			}
		})
	}
}

func TestGateTruncatesSpokenText(t *testing.T) {
	t.Parallel()
	st := &fakeStore{optedIn: map[int64]bool{7: true}}
	pr := &fakePresence{active: true, members: map[int64]bool{7: true}}
	sy := &fakeSynth{}
	pl := &fakePlayer{}
	g := newGate(t, st, pr, sy, pl)

	long := strings.Repeat("ab ", 200) // 600 chars
	if err := g.HandleMessage(context.Background(), groupMsg(long)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := utf8.RuneCountInString(sy.text); got != DefaultMaxChars {
		t.Fatalf("spoken length = %d, want %d", got, DefaultMaxChars)
	}
}

func TestGateSynthesisErrorSurfaces(t *testing.T) {
	t.Parallel()
	st := &fakeStore{optedIn: map[int64]bool{7: true}}
	pr := &fakePresence{active: true, members: map[int64]bool{7: true}}
	sy := &fakeSynth{err: errors.New("no tts engine available")}
	pl := &fakePlayer{}
	g := newGate(t, st, pr, sy, pl)

	if err := g.HandleMessage(context.Background(), groupMsg("hi")); err == nil {
		t.Fatalf("expected synthesis error")
	}
	if pl.calls != 0 {
		t.Fatalf("played without a wav")
	}
}
