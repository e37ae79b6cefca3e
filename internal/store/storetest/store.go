// Package storetest provides an in-memory Store for holder and
// synchronizer tests: writes notify watchers the same way the real
// backend's change streams do.
package storetest

import (
	"context"
	"sync"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// watcher is one subscriber channel guarded against the send/close race:
// send and close serialize on the watcher's own mutex, so a writer that
// snapshotted the subscriber list before a Stop cannot hit a closed
// channel.
type watcher[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
}

func newWatcher[T any]() *watcher[T] {
	return &watcher[T]{ch: make(chan T, 16)}
}

func (w *watcher[T]) send(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.ch <- v
}

func (w *watcher[T]) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

type Store struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
	lists    map[string]models.MembershipList
	convs    map[string]models.Conversation

	listSubs map[string][]*watcher[models.MembershipList]
	convSubs map[string][]*watcher[models.Conversation]

	// ProfileErr, when set for an id, fails reads of that profile.
	ProfileErr map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		profiles:   make(map[string]models.UserProfile),
		lists:      make(map[string]models.MembershipList),
		convs:      make(map[string]models.Conversation),
		listSubs:   make(map[string][]*watcher[models.MembershipList]),
		convSubs:   make(map[string][]*watcher[models.Conversation]),
		ProfileErr: make(map[string]error),
	}
}

func (s *Store) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ProfileErr[id]; err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) CreateProfile(ctx context.Context, p *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Email != "" {
		for _, existing := range s.profiles {
			if existing.Email == p.Email {
				return store.ErrDuplicate
			}
		}
	}
	s.profiles[p.ID] = *p
	return nil
}

func (s *Store) SetBlocked(ctx context.Context, ownerID, blockedID string, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[ownerID]
	if !ok {
		return store.ErrNotFound
	}
	if blocked {
		if !p.Blocks(blockedID) {
			p.Blocked = append(p.Blocked, blockedID)
		}
	} else {
		kept := p.Blocked[:0]
		for _, b := range p.Blocked {
			if b != blockedID {
				kept = append(kept, b)
			}
		}
		p.Blocked = kept
	}
	s.profiles[ownerID] = p
	return nil
}

func (s *Store) GetMembershipList(ctx context.Context, ownerID string) (*models.MembershipList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copyList(l)
	return &cp, nil
}

func (s *Store) CreateMembershipList(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[ownerID] = models.MembershipList{OwnerID: ownerID, Chats: []models.MembershipEntry{}}
	return nil
}

func (s *Store) AppendMembershipEntry(ctx context.Context, ownerID string, e models.MembershipEntry) error {
	s.mu.Lock()
	l, ok := s.lists[ownerID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	l.Chats = append(l.Chats, e)
	s.lists[ownerID] = l
	subs := append([]*watcher[models.MembershipList](nil), s.listSubs[ownerID]...)
	cp := copyList(l)
	s.mu.Unlock()
	for _, w := range subs {
		w.send(cp)
	}
	return nil
}

func (s *Store) UpdateMembershipEntry(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, updatedAt int64) error {
	s.mu.Lock()
	l, ok := s.lists[ownerID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	found := false
	for i := range l.Chats {
		if l.Chats[i].ChatID == chatID {
			l.Chats[i].LastMessage = lastMessage
			l.Chats[i].IsSeen = seen
			l.Chats[i].UpdatedAt = updatedAt
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.lists[ownerID] = l
	subs := append([]*watcher[models.MembershipList](nil), s.listSubs[ownerID]...)
	cp := copyList(l)
	s.mu.Unlock()
	for _, w := range subs {
		w.send(cp)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := copyConv(c)
	return &cp, nil
}

func (s *Store) CreateConversation(ctx context.Context, c *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.ID] = copyConv(*c)
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, chatID string, m models.Message) error {
	s.mu.Lock()
	c, ok := s.convs[chatID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	c.Messages = append(c.Messages, m)
	s.convs[chatID] = c
	subs := append([]*watcher[models.Conversation](nil), s.convSubs[chatID]...)
	cp := copyConv(c)
	s.mu.Unlock()
	for _, w := range subs {
		w.send(cp)
	}
	return nil
}

func (s *Store) WatchMembershipList(ctx context.Context, ownerID string) (*store.MembershipSubscription, error) {
	s.mu.Lock()
	l, ok := s.lists[ownerID]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	w := newWatcher[models.MembershipList]()
	s.listSubs[ownerID] = append(s.listSubs[ownerID], w)
	cp := copyList(l)
	s.mu.Unlock()
	w.send(cp)

	stop := func() {
		s.mu.Lock()
		kept := s.listSubs[ownerID][:0]
		for _, c := range s.listSubs[ownerID] {
			if c != w {
				kept = append(kept, c)
			}
		}
		s.listSubs[ownerID] = kept
		s.mu.Unlock()
		w.close()
	}
	return store.NewMembershipSubscription(w.ch, stop), nil
}

func (s *Store) WatchConversation(ctx context.Context, chatID string) (*store.ConversationSubscription, error) {
	s.mu.Lock()
	c, ok := s.convs[chatID]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	w := newWatcher[models.Conversation]()
	s.convSubs[chatID] = append(s.convSubs[chatID], w)
	cp := copyConv(c)
	s.mu.Unlock()
	w.send(cp)

	stop := func() {
		s.mu.Lock()
		kept := s.convSubs[chatID][:0]
		for _, c := range s.convSubs[chatID] {
			if c != w {
				kept = append(kept, c)
			}
		}
		s.convSubs[chatID] = kept
		s.mu.Unlock()
		w.close()
	}
	return store.NewConversationSubscription(w.ch, stop), nil
}

// ActiveConversationSubs reports how many watchers a conversation has.
func (s *Store) ActiveConversationSubs(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convSubs[chatID])
}

// ActiveMembershipSubs reports how many watchers a membership list has.
func (s *Store) ActiveMembershipSubs(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listSubs[ownerID])
}

func copyList(l models.MembershipList) models.MembershipList {
	cp := l
	cp.Chats = append([]models.MembershipEntry(nil), l.Chats...)
	return cp
}

func copyConv(c models.Conversation) models.Conversation {
	cp := c
	cp.Messages = append([]models.Message(nil), c.Messages...)
	return cp
}
