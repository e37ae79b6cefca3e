package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/session"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

var ErrNoSession = errors.New("no active session")

// SelectionState describes the currently open conversation. When the
// counterpart blocks the current user no conversation id is exposed at all;
// when the current user blocks the counterpart the history stays viewable
// but BlockedByMe disables sending.
type SelectionState struct {
	ChatID               string
	Counterpart          *models.UserProfile
	BlockedByMe          bool
	BlockedByCounterpart bool
	Err                  error
}

// Selection holds which conversation is open. Constructed once per client
// and passed to consumers; nothing here is a global.
type Selection struct {
	store   store.Store
	session *session.Holder

	mu    sync.RWMutex
	state SelectionState
	subs  []func(SelectionState)
}

func NewSelection(st store.Store, sess *session.Holder) *Selection {
	return &Selection{store: st, session: sess}
}

// Select opens a conversation with the given counterpart. The counterpart
// profile is re-read so block flags reflect the store, not a stale cache.
// A missing counterpart becomes an explicit error state instead of leaving
// the previous selection in place.
func (s *Selection) Select(ctx context.Context, chatID, counterpartID string) error {
	cur := s.session.State().Profile
	if cur == nil {
		return ErrNoSession
	}

	counterpart, err := s.store.GetProfile(ctx, counterpartID)
	if err != nil {
		err = fmt.Errorf("load counterpart %s: %w", counterpartID, err)
		s.set(SelectionState{Err: err})
		return err
	}

	switch {
	case counterpart.Blocks(cur.ID):
		s.set(SelectionState{BlockedByCounterpart: true})
	case cur.Blocks(counterpartID):
		s.set(SelectionState{ChatID: chatID, Counterpart: counterpart, BlockedByMe: true})
	default:
		s.set(SelectionState{ChatID: chatID, Counterpart: counterpart})
	}
	return nil
}

// Clear drops the selection, e.g. on sign-out.
func (s *Selection) Clear() {
	s.set(SelectionState{})
}

// ToggleBlockedByMe flips the local blocked-by-me flag. It is a UI refresh
// after a block or unblock write; the caller issues the profile mutation
// separately.
func (s *Selection) ToggleBlockedByMe() {
	s.mu.Lock()
	st := s.state
	st.BlockedByMe = !st.BlockedByMe
	s.state = st
	subs := make([]func(SelectionState), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

func (s *Selection) State() SelectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Selection) OnChange(fn func(SelectionState)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Selection) set(st SelectionState) {
	s.mu.Lock()
	s.state = st
	subs := make([]func(SelectionState), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}
