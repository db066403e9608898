package app

import (
	"strings"
	"testing"
	"time"

	"mealbot/internal/config"
)

func TestMapNotifierConfig(t *testing.T) {
	t.Parallel()

	got, err := mapNotifierConfig(nil)
	if err != nil {
		t.Fatalf("nil section: %v", err)
	}
	if !got.Enabled {
		t.Fatalf("nil section should enable the notifier")
	}

	got, err = mapNotifierConfig(&config.NotifierConfig{
		Enabled:     true,
		RetryMax:    5,
		RetryBase:   "250ms",
		DedupWindow: "90s",
	})
	if err != nil {
		t.Fatalf("mapNotifierConfig: %v", err)
	}
	if got.RetryMax != 5 || got.RetryBase != 250*time.Millisecond || got.DedupWindow != 90*time.Second {
		t.Fatalf("mapped config = %+v", got)
	}

	_, err = mapNotifierConfig(&config.NotifierConfig{RetryBase: "soon"})
	if err == nil || !strings.Contains(err.Error(), "notifier.retry_base") {
		t.Fatalf("bad duration error = %v", err)
	}
}
