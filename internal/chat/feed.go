package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/metrics"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// FeedSync watches at most one conversation document at a time. Each
// notification replaces the whole message slice; with an append-only model
// and small documents a full replace is the simplest policy that cannot go
// wrong.
type FeedSync struct {
	store store.Store
	log   *zap.SugaredLogger

	mu       sync.Mutex
	chatID   string
	sub      *store.ConversationSubscription
	done     chan struct{}
	messages []models.Message
	subs     []func(chatID string, msgs []models.Message)
}

func NewFeedSync(st store.Store, log *zap.SugaredLogger) *FeedSync {
	return &FeedSync{store: st, log: log}
}

// Select switches the watched conversation. The previous subscription is
// torn down before the new one is established, so there is never more than
// one active. An empty id just clears the feed.
func (f *FeedSync) Select(ctx context.Context, chatID string) error {
	f.Stop()
	if chatID == "" {
		f.publish("", nil)
		return nil
	}

	sub, err := f.store.WatchConversation(ctx, chatID)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	f.mu.Lock()
	f.chatID = chatID
	f.sub = sub
	f.done = done
	f.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()

	go func() {
		defer close(done)
		defer metrics.ActiveSubscriptions.Dec()
		for conv := range sub.C {
			f.publish(chatID, conv.Messages)
		}
	}()
	return nil
}

// Stop releases the current subscription, if any, waits for delivery to
// drain and clears the held messages so they cannot outlive the feed that
// produced them. Idempotent.
func (f *FeedSync) Stop() {
	f.mu.Lock()
	sub, done := f.sub, f.done
	f.sub, f.done = nil, nil
	f.chatID = ""
	f.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Stop()
	<-done
	f.publish("", nil)
}

func (f *FeedSync) Messages() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *FeedSync) OnUpdate(fn func(chatID string, msgs []models.Message)) {
	f.mu.Lock()
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
}

func (f *FeedSync) publish(chatID string, msgs []models.Message) {
	f.mu.Lock()
	f.messages = msgs
	subs := make([]func(string, []models.Message), len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(chatID, msgs)
	}
}
