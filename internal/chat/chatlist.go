package chat

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Rida-Lamiini/Chat-app/internal/metrics"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// ListEntry is a membership entry joined with the counterpart's resolved
// profile. User is nil when the profile read failed; the entry still
// appears so the list never silently shrinks.
type ListEntry struct {
	models.MembershipEntry
	User *models.UserProfile `json:"user"`
}

// ListSync mirrors the owner's membership list into memory. Every snapshot
// from the store, including ones caused by our own writes, re-resolves all
// counterpart profiles concurrently and re-sorts, so the list is eventually
// consistent but never transactional: a read right after a write may still
// see the pre-write list.
type ListSync struct {
	store store.Store
	log   *zap.SugaredLogger

	mu      sync.Mutex
	sub     *store.MembershipSubscription
	done    chan struct{}
	entries []ListEntry
	subs    []func([]ListEntry)
}

func NewListSync(st store.Store, log *zap.SugaredLogger) *ListSync {
	return &ListSync{store: st, log: log}
}

// Start subscribes to the owner's membership list. Any previous
// subscription is released first, so an identity change never leaks the
// old owner's feed into the new one.
func (l *ListSync) Start(ctx context.Context, ownerID string) error {
	l.Stop()

	sub, err := l.store.WatchMembershipList(ctx, ownerID)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	l.mu.Lock()
	l.sub = sub
	l.done = done
	l.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()

	go func() {
		defer close(done)
		defer metrics.ActiveSubscriptions.Dec()
		for list := range sub.C {
			l.publish(l.resolve(ctx, list))
		}
	}()
	return nil
}

// Stop releases the subscription and waits for the delivery goroutine to
// drain. Safe to call repeatedly and without a prior Start.
func (l *ListSync) Stop() {
	l.mu.Lock()
	sub, done := l.sub, l.done
	l.sub, l.done = nil, nil
	l.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Stop()
	<-done
}

func (l *ListSync) Entries() []ListEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ListEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ListSync) OnUpdate(fn func([]ListEntry)) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

// resolve joins each entry with its counterpart profile. Reads run
// concurrently, one per entry, so latency stays bounded by the slowest
// single read rather than the list length.
func (l *ListSync) resolve(ctx context.Context, list models.MembershipList) []ListEntry {
	entries := make([]ListEntry, len(list.Chats))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range list.Chats {
		i, e := i, e
		g.Go(func() error {
			user, err := l.store.GetProfile(gctx, e.ReceiverID)
			if err != nil {
				l.log.Warnw("resolve counterpart", "receiver", e.ReceiverID, "err", err)
			}
			entries[i] = ListEntry{MembershipEntry: e, User: user}
			return nil
		})
	}
	_ = g.Wait()

	// Descending by last update; equal timestamps keep membership order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt > entries[j].UpdatedAt
	})
	return entries
}

func (l *ListSync) publish(entries []ListEntry) {
	l.mu.Lock()
	l.entries = entries
	subs := make([]func([]ListEntry), len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()
	for _, fn := range subs {
		fn(entries)
	}
}
