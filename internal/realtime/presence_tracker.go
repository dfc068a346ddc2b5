package realtime

import (
	"context"
	"sync"
	"time"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/internal/infrastructure/metrics"
	"supportchat/pkg/logger"
)

// PresenceTracker keeps the per-user online/offline flag. SetOnline also
// registers the deferred offline write: every session carries a heartbeat
// deadline, and the background sweep flips any session past its deadline to
// offline. That makes presence go offline deterministically even when the
// client dies without running teardown.
//
// Valid transitions: unknown -> online -> offline -> online -> ...
type PresenceTracker struct {
	mu   sync.Mutex
	repo repository.StateRepository

	status    map[string]entity.PresenceStatus
	deadlines map[string]time.Time // one entry per live session
	subs      map[string]map[int]chan entity.PresenceStatus
	changes   map[int]chan struct{}
	nextSubID int

	timeout    time.Duration
	sweepEvery time.Duration
}

func NewPresenceTracker(repo repository.StateRepository, timeout, sweepEvery time.Duration) *PresenceTracker {
	return &PresenceTracker{
		repo:       repo,
		status:     make(map[string]entity.PresenceStatus),
		deadlines:  make(map[string]time.Time),
		subs:       make(map[string]map[int]chan entity.PresenceStatus),
		changes:    make(map[int]chan struct{}),
		timeout:    timeout,
		sweepEvery: sweepEvery,
	}
}

// Start runs the disconnect sweep until ctx is cancelled.
func (t *PresenceTracker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// SetOnline writes online immediately and arms the deferred offline.
func (t *PresenceTracker) SetOnline(ctx context.Context, userID string) error {
	if err := t.repo.SetPresence(ctx, userID, entity.StatusOnline); err != nil {
		return err
	}

	t.mu.Lock()
	t.status[userID] = entity.StatusOnline
	t.deadlines[userID] = time.Now().Add(t.timeout)
	t.fanOutLocked(userID)
	t.mu.Unlock()
	return nil
}

// Heartbeat extends the session deadline. A heartbeat for a user with no
// live session is ignored; only SetOnline opens a session.
func (t *PresenceTracker) Heartbeat(ctx context.Context, userID string) {
	t.mu.Lock()
	_, live := t.deadlines[userID]
	if live {
		t.deadlines[userID] = time.Now().Add(t.timeout)
	}
	t.mu.Unlock()

	if live {
		// Refresh the store-side TTL so the crash safety net keeps up.
		if err := t.repo.SetPresence(ctx, userID, entity.StatusOnline); err != nil {
			logger.Warn("Presence heartbeat write failed for %s: %v", userID, err)
		}
	}
}

// SetOffline cancels the deferred write and writes offline directly.
func (t *PresenceTracker) SetOffline(ctx context.Context, userID string) error {
	if err := t.repo.SetPresence(ctx, userID, entity.StatusOffline); err != nil {
		return err
	}

	t.mu.Lock()
	delete(t.deadlines, userID)
	t.status[userID] = entity.StatusOffline
	t.fanOutLocked(userID)
	t.mu.Unlock()
	return nil
}

// Status returns the last observed status, falling back to the repository
// for users this process has not seen yet.
func (t *PresenceTracker) Status(ctx context.Context, userID string) entity.PresenceStatus {
	t.mu.Lock()
	status := t.status[userID]
	t.mu.Unlock()

	if status != entity.StatusUnknown {
		return status
	}

	stored, err := t.repo.GetPresence(ctx, userID)
	if err != nil {
		logger.Warn("Presence read failed for %s: %v", userID, err)
		return entity.StatusUnknown
	}
	return stored
}

// Subscribe delivers status changes for one user, starting with the current
// status when one has been observed. Cancel on every exit path.
func (t *PresenceTracker) Subscribe(userID string) (<-chan entity.PresenceStatus, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSubID
	t.nextSubID++

	ch := make(chan entity.PresenceStatus, 1)
	if t.subs[userID] == nil {
		t.subs[userID] = make(map[int]chan entity.PresenceStatus)
	}
	t.subs[userID][id] = ch
	if current := t.status[userID]; current != entity.StatusUnknown {
		ch <- current
	}

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if sub, ok := t.subs[userID][id]; ok {
			delete(t.subs[userID], id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscribeChanges ticks on any presence change, for the inbox aggregator.
func (t *PresenceTracker) SubscribeChanges() (<-chan struct{}, func()) {
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

func (t *PresenceTracker) sweep(ctx context.Context) {
	now := time.Now()

	t.mu.Lock()
	var expired []string
	for userID, deadline := range t.deadlines {
		if now.After(deadline) {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		delete(t.deadlines, userID)
		t.status[userID] = entity.StatusOffline
		t.fanOutLocked(userID)
	}
	t.mu.Unlock()

	for _, userID := range expired {
		logger.Info("Presence sweep: %s went offline (heartbeat timeout)", userID)
		metrics.PresenceSweeps.Inc()
		if err := t.repo.SetPresence(ctx, userID, entity.StatusOffline); err != nil {
			logger.Error("Presence sweep write failed for %s: %v", userID, err)
		}
	}
}

func (t *PresenceTracker) fanOutLocked(userID string) {
	status := t.status[userID]
	for _, ch := range t.subs[userID] {
		select {
		case ch <- status:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- status:
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
