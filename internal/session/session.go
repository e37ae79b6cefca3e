package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

var ErrNoProfile = errors.New("no profile for identity")

// State is what consumers see of the authenticated identity. Exactly one of
// the shapes holds at a time: loading, signed in (Profile set), signed out
// (everything zero), or failed (Err set, Profile nil).
type State struct {
	Profile *models.UserProfile
	Loading bool
	Err     error
}

func (s State) SignedIn() bool { return s.Profile != nil }

// Holder tracks the current identity's profile. It is driven purely by
// identity-change events: HandleIdentity is called once per sign-in or
// sign-out transition and re-reads the profile document.
type Holder struct {
	store store.Store
	log   *zap.SugaredLogger

	mu    sync.RWMutex
	state State
	subs  []func(State)
}

func NewHolder(st store.Store, log *zap.SugaredLogger) *Holder {
	return &Holder{store: st, log: log, state: State{Loading: true}}
}

// HandleIdentity reacts to a sign-in (uid set) or sign-out (uid empty).
// A read failure leaves no session but keeps the error visible rather than
// swallowing it.
func (h *Holder) HandleIdentity(ctx context.Context, uid string) {
	if uid == "" {
		h.set(State{})
		return
	}
	h.set(State{Loading: true})
	p, err := h.store.GetProfile(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.log.Warnw("profile missing for identity", "uid", uid)
		} else {
			h.log.Errorw("load profile", "uid", uid, "err", err)
		}
		h.set(State{Err: err})
		return
	}
	h.set(State{Profile: p})
}

// State returns the current state synchronously.
func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// OnChange registers a callback invoked after every state transition.
func (h *Holder) OnChange(fn func(State)) {
	h.mu.Lock()
	h.subs = append(h.subs, fn)
	h.mu.Unlock()
}

func (h *Holder) set(s State) {
	h.mu.Lock()
	h.state = s
	subs := make([]func(State), len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}
