package realtime

import (
	"context"
	"sync"

	"supportchat/internal/domain/repository"
)

// TypingSignal holds the per-conversation userTyping flag. Last-write-wins;
// a write is only issued when the value actually changes, and a successful
// send always forces it back to false.
type TypingSignal struct {
	mu   sync.Mutex
	repo repository.StateRepository

	flags     map[string]bool
	subs      map[string]map[int]chan bool
	changes   map[int]chan struct{}
	nextSubID int
}

func NewTypingSignal(repo repository.StateRepository) *TypingSignal {
	return &TypingSignal{
		repo:    repo,
		flags:   make(map[string]bool),
		subs:    make(map[string]map[int]chan bool),
		changes: make(map[int]chan struct{}),
	}
}

func (t *TypingSignal) Set(ctx context.Context, conversationID string, typing bool) error {
	t.mu.Lock()
	current := t.flags[conversationID]
	t.mu.Unlock()
	if current == typing {
		return nil
	}

	if err := t.repo.SetUserTyping(ctx, conversationID, typing); err != nil {
		return err
	}

	t.mu.Lock()
	t.flags[conversationID] = typing
	t.fanOutLocked(conversationID)
	t.mu.Unlock()
	return nil
}

func (t *TypingSignal) IsTyping(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags[conversationID]
}

// Subscribe delivers the flag for one conversation, starting with its
// current value. Cancel on every exit path.
func (t *TypingSignal) Subscribe(conversationID string) (<-chan bool, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSubID
	t.nextSubID++

	ch := make(chan bool, 1)
	if t.subs[conversationID] == nil {
		t.subs[conversationID] = make(map[int]chan bool)
	}
	t.subs[conversationID][id] = ch
	ch <- t.flags[conversationID]

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subs[conversationID][id]; ok {
			delete(t.subs[conversationID], id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscribeChanges ticks on any typing change, for the inbox aggregator.
func (t *TypingSignal) SubscribeChanges() (<-chan struct{}, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSubID
	t.nextSubID++

	ch := make(chan struct{}, 1)
	t.changes[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.changes[id]; ok {
			delete(t.changes, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (t *TypingSignal) fanOutLocked(conversationID string) {
	value := t.flags[conversationID]
	for _, ch := range t.subs[conversationID] {
		select {
		case ch <- value:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- value:
			default:
			}
		}
	}
	for _, ch := range t.changes {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
