package storage

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Reminder kinds. Anything else is rejected at insert time.
const (
	KindMedicine = "medicine"
	KindFood     = "food"
	KindOther    = "other"
)

// Reminder is a user-scheduled daily reminder. TimeHHMM is a wall-clock
// "HH:MM" string interpreted in Timezone, never in server time.
type Reminder struct {
	ID       int64
	UserID   int64
	UserName string

	// ChatID is the group chat the reminder was created in, or 0 when it
	// was created in a direct message.
	ChatID   int64
	ThreadID int

	Kind     string
	TimeHHMM string
	Note     string
	Private  bool
	Timezone string

	CreatedAt time.Time
}

// Store is the persistence API used by the announce, sweep, speech and
// command layers.
type Store interface {
	// SeenRecipe reports whether key was announced before.
	SeenRecipe(ctx context.Context, key string) (bool, error)
	// MarkRecipeSeen records key. Marking an already-seen key is a no-op.
	MarkRecipeSeen(ctx context.Context, key, title string) error

	AddReminder(ctx context.Context, r Reminder) (int64, error)
	// DeleteReminder removes a reminder only if it belongs to userID.
	DeleteReminder(ctx context.Context, id, userID int64) (bool, error)
	ListReminders(ctx context.Context, userID int64) ([]Reminder, error)

	// DistinctTimezones lists every timezone any reminder uses.
	DistinctTimezones(ctx context.Context) ([]string, error)
	// DueReminders returns reminders whose wall-clock time in tz equals hhmm.
	DueReminders(ctx context.Context, tz, hhmm string) ([]Reminder, error)

	OptInSpeech(ctx context.Context, userID, chatID int64) error
	OptOutSpeech(ctx context.Context, userID, chatID int64) error
	SpeechOptedIn(ctx context.Context, userID, chatID int64) (bool, error)

	Close() error
}
