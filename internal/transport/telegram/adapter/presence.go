package adapter

import "sync"

// PresenceTracker keeps an in-memory view of group calls per chat, rebuilt
// from video-chat service messages. Bot API only reports call start, call end
// and participant joins, so membership is additive until the call ends.
type PresenceTracker struct {
	mu    sync.RWMutex
	calls map[int64]*callState
}

type callState struct {
	members map[int64]struct{}
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{calls: make(map[int64]*callState)}
}

// CallStarted opens a fresh call for the chat. starterID 0 means the starter
// is unknown (anonymous admin) and only later joins are tracked.
func (p *PresenceTracker) CallStarted(chatID, starterID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cs := &callState{members: make(map[int64]struct{})}
	if starterID != 0 {
		cs.members[starterID] = struct{}{}
	}
	p.calls[chatID] = cs
}

func (p *PresenceTracker) CallEnded(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.calls, chatID)
}

// Joined records users entering the chat's call. A join for a chat with no
// recorded call implies we missed the start event; open one.
func (p *PresenceTracker) Joined(chatID int64, userIDs []int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cs := p.calls[chatID]
	if cs == nil {
		cs = &callState{members: make(map[int64]struct{})}
		p.calls[chatID] = cs
	}
	for _, id := range userIDs {
		if id != 0 {
			cs.members[id] = struct{}{}
		}
	}
}

func (p *PresenceTracker) VoiceChatActive(chatID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls[chatID] != nil
}

func (p *PresenceTracker) InVoiceChat(chatID, userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cs := p.calls[chatID]
	if cs == nil {
		return false
	}
	_, ok := cs.members[userID]
	return ok
}
