package notifier

import (
	"time"

	"mealbot/internal/transport"
)

// Config controls the async delivery pipeline.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
}

// Delivery is one outbound message.
//
// Private deliveries are tried as a direct message first; when the DM fails
// (the user never started the bot, or blocked it) and Chat is set, the text
// is delivered to Chat instead, prefixed with a mention so the user still
// sees it.
type Delivery struct {
	UserID   int64
	UserName string

	// Chat is the origin group chat. Zero means DM-only.
	Chat transport.ChatTarget

	Text    string
	HTML    bool
	Private bool
}

type HistoryItem struct {
	At   time.Time
	Text string
}
