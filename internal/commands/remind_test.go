package commands

import (
	"strings"
	"testing"
)

func TestRemindAdd(t *testing.T) {
	t.Parallel()
	f := newFixture()

	f.handle(t, groupMsg("/remind add medicine 08:30 Europe/Lisbon private ibuprofen"))

	got := f.adapter.last(t).text
	for _, want := range []string{"medicine", "08:30", "private", "Europe/Lisbon", "ibuprofen"} {
		if !strings.Contains(got, want) {
			t.Errorf("confirmation misses %q: %q", want, got)
		}
	}

	rems, _ := f.store.ListReminders(t.Context(), 7)
	if len(rems) != 1 {
		t.Fatalf("reminders = %d", len(rems))
	}
	r := rems[0]
	if r.Kind != "medicine" || r.TimeHHMM != "08:30" || r.Timezone != "Europe/Lisbon" ||
		!r.Private || r.Note != "ibuprofen" || r.ChatID != -100 || r.ThreadID != 3 {
		t.Fatalf("stored reminder = %+v", r)
	}
}

func TestRemindAddDefaults(t *testing.T) {
	t.Parallel()
	f := newFixture()

	// No timezone, no privacy flag; the first free word starts the note.
	f.handle(t, dmMsg("/remind add food 9:05 lunch with Rui"))

	rems, _ := f.store.ListReminders(t.Context(), 7)
	if len(rems) != 1 {
		t.Fatalf("reminders = %d", len(rems))
	}
	r := rems[0]
	if r.Timezone != "UTC" || r.Private || r.Note != "lunch with Rui" {
		t.Fatalf("stored reminder = %+v", r)
	}
	if r.TimeHHMM != "09:05" {
		t.Fatalf("time not normalized: %q", r.TimeHHMM)
	}
	if r.ChatID != 0 {
		t.Fatalf("DM reminder kept a fallback chat: %+v", r)
	}
}

func TestRemindAddRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, cmd, want string
	}{
		{"bad kind", "/remind add nap 08:30", "Unknown reminder kind"},
		{"bad time", "/remind add food 25:99", "Invalid time format"},
		{"bad zone", "/remind add food 08:30 Mars/Olympus", "Invalid timezone"},
		{"missing args", "/remind add food", "Usage:"},
		{"no subcommand", "/remind", "Usage:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			f.handle(t, groupMsg(tc.cmd))
			if got := f.adapter.last(t).text; !strings.Contains(got, tc.want) {
				t.Fatalf("reply = %q, want %q", got, tc.want)
			}
			if rems, _ := f.store.ListReminders(t.Context(), 7); len(rems) != 0 {
				t.Fatalf("invalid reminder was stored")
			}
		})
	}
}

func TestRemindListAndDelete(t *testing.T) {
	t.Parallel()
	f := newFixture()

	f.handle(t, groupMsg("/remind list"))
	if got := f.adapter.last(t).text; !strings.Contains(got, "no reminders") {
		t.Fatalf("empty list reply = %q", got)
	}

	f.handle(t, groupMsg("/remind add food 12:00 UTC lunch"))
	f.handle(t, groupMsg("/remind list"))
	got := f.adapter.last(t).text
	if !strings.Contains(got, "ID 1") || !strings.Contains(got, "note: lunch") {
		t.Fatalf("list reply = %q", got)
	}

	f.handle(t, groupMsg("/remind del 1"))
	if got := f.adapter.last(t).text; !strings.Contains(got, "Deleted reminder 1") {
		t.Fatalf("delete reply = %q", got)
	}
	if rems, _ := f.store.ListReminders(t.Context(), 7); len(rems) != 0 {
		t.Fatalf("reminder survived deletion")
	}
}

func TestRemindDeleteNotOwned(t *testing.T) {
	t.Parallel()
	f := newFixture()

	other := groupMsg("/remind add food 12:00")
	other.FromID = 99
	f.handle(t, other)

	f.handle(t, groupMsg("/remind del 1"))
	if got := f.adapter.last(t).text; !strings.Contains(got, "No reminder") {
		t.Fatalf("reply = %q", got)
	}
	if rems, _ := f.store.ListReminders(t.Context(), 99); len(rems) != 1 {
		t.Fatalf("someone else's reminder was deleted")
	}
}

func TestLooksLikeZone(t *testing.T) {
	t.Parallel()
	cases := []struct {
		s    string
		want bool
	}{
		{"Europe/Lisbon", true},
		{"America/New_York", true},
		{"UTC", true},
		{"GMT", true},
		{"lunch", false},
		{"private", false},
		{"08:30", false},
	}
	for _, tc := range cases {
		if got := looksLikeZone(tc.s); got != tc.want {
			t.Errorf("looksLikeZone(%q) = %v, want %v", tc.s, got, tc.want)
		}
	}
}
