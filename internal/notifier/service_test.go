package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mealbot/internal/transport"
	"mealbot/pkg/logx"
)

type sentMsg struct {
	to   transport.ChatTarget
	text string
	opt  transport.SendOptions
}

type fakeAdapter struct {
	mu    sync.Mutex
	sends []sentMsg
	// failTo makes SendText fail for a specific chat id.
	failTo map[int64]error
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                               { return nil }
func (f *fakeAdapter) SendVoice(ctx context.Context, to transport.ChatTarget, path string) error {
	return nil
}

func (f *fakeAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failTo[to.ChatID]; err != nil {
		return transport.MessageRef{}, err
	}
	f.sends = append(f.sends, sentMsg{to: to, text: text, opt: opt})
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sends)}, nil
}

func (f *fakeAdapter) sent() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sends...)
}

func newTestService(ad transport.Adapter, cfg Config) *Service {
	cfg.Enabled = true
	return New(cfg, ad, logx.Nop())
}

func TestDefaultsFillUnsetFields(t *testing.T) {
	t.Parallel()
	s := newTestService(&fakeAdapter{}, Config{})

	// These must match the nil-section defaults config assumes when diffing
	// reloads (config.derefNotifier), or an explicit section spelling them
	// out would be treated as "no change" while the runtime differs.
	want := Config{
		Enabled:         true,
		Workers:         2,
		QueueSize:       512,
		RatePerSec:      3,
		RetryMax:        3,
		RetryBase:       500 * time.Millisecond,
		RetryMaxDelay:   10 * time.Second,
		DedupWindow:     time.Minute,
		DedupMaxEntries: 2000,
	}
	if s.cfg != want {
		t.Fatalf("defaults = %+v, want %+v", s.cfg, want)
	}
}

func TestDeliverOncePrivateDM(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{})

	d := Delivery{UserID: 42, UserName: "ana", Chat: transport.ChatTarget{ChatID: -100}, Text: "Time to eat!", Private: true}
	if err := s.deliverOnce(context.Background(), ad, d); err != nil {
		t.Fatalf("deliverOnce: %v", err)
	}

	sends := ad.sent()
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sends))
	}
	if sends[0].to.ChatID != 42 {
		t.Fatalf("DM went to %d, want user 42", sends[0].to.ChatID)
	}
	if sends[0].text != "Time to eat!" {
		t.Fatalf("text = %q", sends[0].text)
	}
}

func TestDeliverOnceFallsBackToChat(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failTo: map[int64]error{42: errors.New("bot blocked")}}
	s := newTestService(ad, Config{})

	d := Delivery{UserID: 42, UserName: "ana", Chat: transport.ChatTarget{ChatID: -100}, Text: "Time to eat!", Private: true}
	if err := s.deliverOnce(context.Background(), ad, d); err != nil {
		t.Fatalf("deliverOnce: %v", err)
	}

	sends := ad.sent()
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1 (fallback only)", len(sends))
	}
	got := sends[0]
	if got.to.ChatID != -100 {
		t.Fatalf("fallback went to %d, want chat -100", got.to.ChatID)
	}
	if !strings.Contains(got.text, "tg://user?id=42") || !strings.Contains(got.text, "Time to eat!") {
		t.Fatalf("fallback text = %q, want mention + message", got.text)
	}
	if got.opt.ParseMode != transport.ParseModeHTML {
		t.Fatalf("fallback parse mode = %q", got.opt.ParseMode)
	}
}

func TestDeliverOncePrivateNoFallbackPropagatesError(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failTo: map[int64]error{42: errors.New("bot blocked")}}
	s := newTestService(ad, Config{})

	d := Delivery{UserID: 42, Text: "hi", Private: true}
	if err := s.deliverOnce(context.Background(), ad, d); err == nil {
		t.Fatalf("expected DM error with no fallback chat")
	}
}

func TestDeliverOncePublicMentionsUser(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{})

	d := Delivery{UserID: 7, UserName: "bo", Chat: transport.ChatTarget{ChatID: -5}, Text: "Reminder!"}
	if err := s.deliverOnce(context.Background(), ad, d); err != nil {
		t.Fatalf("deliverOnce: %v", err)
	}
	sends := ad.sent()
	if len(sends) != 1 || sends[0].to.ChatID != -5 {
		t.Fatalf("sends = %+v", sends)
	}
	if !strings.Contains(sends[0].text, "tg://user?id=7") {
		t.Fatalf("text = %q, want mention", sends[0].text)
	}
}

func TestDeliverOnceEscapesPlainTextInMention(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{})

	d := Delivery{UserID: 7, UserName: "bo", Chat: transport.ChatTarget{ChatID: -5}, Text: "a < b"}
	if err := s.deliverOnce(context.Background(), ad, d); err != nil {
		t.Fatalf("deliverOnce: %v", err)
	}
	if got := ad.sent()[0].text; !strings.Contains(got, "a &lt; b") {
		t.Fatalf("text = %q, want escaped body", got)
	}
}

func TestDeliverOnceNoDestination(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{})
	if err := s.deliverOnce(context.Background(), ad, Delivery{Text: "x"}); err == nil {
		t.Fatalf("expected error for empty destination")
	}
}

func TestDispatchPipeline(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{Workers: 1, RatePerSec: 100})
	ctx := context.Background()
	s.Start(ctx)

	if err := s.Dispatch(ctx, Delivery{Chat: transport.ChatTarget{ChatID: -9}, Text: "hello"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(ad.sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sends := ad.sent(); len(sends) != 1 || sends[0].text != "hello" {
		t.Fatalf("sends = %+v", sends)
	}

	s.Stop(ctx)
	if err := s.Dispatch(ctx, Delivery{Chat: transport.ChatTarget{ChatID: -9}, Text: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Dispatch after Stop = %v, want ErrStopped", err)
	}
}

func TestDispatchDisabled(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: false}, &fakeAdapter{}, logx.Nop())
	if err := s.Dispatch(context.Background(), Delivery{Text: "x"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Dispatch = %v, want ErrDisabled", err)
	}
}

func TestDedupWindowSuppressesRepeats(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{Workers: 1, RatePerSec: 100, DedupWindow: time.Minute})
	ctx := context.Background()
	s.Start(ctx)
	defer s.Stop(ctx)

	d := Delivery{Chat: transport.ChatTarget{ChatID: -9}, Text: "same"}
	for i := 0; i < 3; i++ {
		if err := s.Dispatch(ctx, d); err != nil {
			t.Fatalf("Dispatch #%d: %v", i, err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(ad.sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// give duplicates a moment to (not) show up
	time.Sleep(50 * time.Millisecond)
	if sends := ad.sent(); len(sends) != 1 {
		t.Fatalf("sends = %d, want 1 deduped send", len(sends))
	}
}

func TestRetryDelayBounded(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 10; attempt++ {
		d := retryDelay(cfg, attempt)
		if d < 0 || d > cfg.RetryMaxDelay {
			t.Fatalf("retryDelay(attempt=%d) = %v out of bounds", attempt, d)
		}
	}
}
