package realtime

import (
	"context"
	"sync"
	"time"

	"supportchat/internal/domain/entity"
	"supportchat/internal/domain/repository"
	"supportchat/pkg/logger"
)

// AdminChannel is the single shared status scalar for the whole admin pool:
// online, offline, or typing (typing implies online). The pool is one
// logical persona; concurrent admin consoles overwrite each other
// last-write-wins. Like user presence, an admin session carries a heartbeat
// deadline so a crashed console goes offline without teardown.
type AdminChannel struct {
	mu   sync.Mutex
	repo repository.StateRepository

	online   bool
	typing   bool
	deadline time.Time // zero when no session is live

	subs      map[int]chan entity.AdminStatus
	nextSubID int

	timeout    time.Duration
	sweepEvery time.Duration
}

func NewAdminChannel(repo repository.StateRepository, timeout, sweepEvery time.Duration) *AdminChannel {
	return &AdminChannel{
		repo:       repo,
		subs:       make(map[int]chan entity.AdminStatus),
		timeout:    timeout,
		sweepEvery: sweepEvery,
	}
}

func (a *AdminChannel) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(a.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (a *AdminChannel) SetOnline(ctx context.Context) error {
	return a.apply(ctx, true, false, true)
}

func (a *AdminChannel) SetOffline(ctx context.Context) error {
	return a.apply(ctx, false, false, false)
}

// SetTyping flips the typing overlay. Ignored while offline: typing without
// an online session would fabricate presence.
func (a *AdminChannel) SetTyping(ctx context.Context, typing bool) error {
	a.mu.Lock()
	online := a.online
	current := a.typing
	a.mu.Unlock()

	if !online || current == typing {
		return nil
	}
	return a.apply(ctx, true, typing, true)
}

func (a *AdminChannel) Heartbeat(ctx context.Context) {
	a.mu.Lock()
	live := a.online
	if live {
		a.deadline = time.Now().Add(a.timeout)
	}
	status := a.statusLocked()
	a.mu.Unlock()

	if live {
		if err := a.repo.SetAdminStatus(ctx, status); err != nil {
			logger.Warn("Admin heartbeat write failed: %v", err)
		}
	}
}

func (a *AdminChannel) Status() entity.AdminStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusLocked()
}

// Subscribe delivers status changes, starting with the current status.
// Cancel on every exit path.
func (a *AdminChannel) Subscribe() (<-chan entity.AdminStatus, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextSubID
	a.nextSubID++

	ch := make(chan entity.AdminStatus, 1)
	a.subs[id] = ch
	ch <- a.statusLocked()

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (a *AdminChannel) apply(ctx context.Context, online, typing, armDeadline bool) error {
	next := entity.AdminOffline
	if online {
		next = entity.AdminOnline
		if typing {
			next = entity.AdminTyping
		}
	}

	if err := a.repo.SetAdminStatus(ctx, next); err != nil {
		return err
	}

	a.mu.Lock()
	a.online = online
	a.typing = typing
	if armDeadline {
		a.deadline = time.Now().Add(a.timeout)
	} else {
		a.deadline = time.Time{}
	}
	a.fanOutLocked()
	a.mu.Unlock()
	return nil
}

func (a *AdminChannel) sweep(ctx context.Context) {
	a.mu.Lock()
	expired := a.online && !a.deadline.IsZero() && time.Now().After(a.deadline)
	if expired {
		a.online = false
		a.typing = false
		a.deadline = time.Time{}
		a.fanOutLocked()
	}
	a.mu.Unlock()

	if expired {
		logger.Info("Admin channel went offline (heartbeat timeout)")
		if err := a.repo.SetAdminStatus(ctx, entity.AdminOffline); err != nil {
			logger.Error("Admin sweep write failed: %v", err)
		}
	}
}

func (a *AdminChannel) statusLocked() entity.AdminStatus {
	if !a.online {
		return entity.AdminOffline
	}
	if a.typing {
		return entity.AdminTyping
	}
	return entity.AdminOnline
}

func (a *AdminChannel) fanOutLocked() {
	status := a.statusLocked()
	for _, ch := range a.subs {
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
}
