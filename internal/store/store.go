package store

import (
	"context"
	"errors"
	"sync"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate reports an insert rejected by a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the remote document store the client runs against. It is the
// single source of truth: holders never mutate local state directly, every
// write goes through here and the visible update arrives through a Watch
// subscription. All writes are single atomic server-side operations
// (point insert, array append, element-level update).
type Store interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
	// GetProfileByEmail resolves a profile through the unique email index.
	GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	ListProfiles(ctx context.Context) ([]models.UserProfile, error)
	// CreateProfile returns ErrDuplicate when the email is already taken.
	CreateProfile(ctx context.Context, p *models.UserProfile) error
	// SetBlocked adds or removes one id from the owner's blocked set as a
	// single element-level update.
	SetBlocked(ctx context.Context, ownerID, blockedID string, blocked bool) error

	GetMembershipList(ctx context.Context, ownerID string) (*models.MembershipList, error)
	CreateMembershipList(ctx context.Context, ownerID string) error
	AppendMembershipEntry(ctx context.Context, ownerID string, e models.MembershipEntry) error
	// UpdateMembershipEntry rewrites the preview fields of the entry whose
	// chat id matches, in place, as one atomic positional update.
	UpdateMembershipEntry(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, updatedAt int64) error

	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, c *models.Conversation) error
	AppendMessage(ctx context.Context, chatID string, m models.Message) error

	// WatchMembershipList delivers the owner's full membership list once
	// immediately and again after every remote change.
	WatchMembershipList(ctx context.Context, ownerID string) (*MembershipSubscription, error)
	// WatchConversation does the same for one conversation document.
	WatchConversation(ctx context.Context, chatID string) (*ConversationSubscription, error)
}

// MembershipSubscription is a live feed of one user's membership list.
// Stop is idempotent; after Stop returns no further values are delivered
// and C is eventually closed.
type MembershipSubscription struct {
	C    <-chan models.MembershipList
	stop func()
	once sync.Once
}

func NewMembershipSubscription(c <-chan models.MembershipList, stop func()) *MembershipSubscription {
	return &MembershipSubscription{C: c, stop: stop}
}

func (s *MembershipSubscription) Stop() { s.once.Do(s.stop) }

// ConversationSubscription is a live feed of one conversation document.
type ConversationSubscription struct {
	C    <-chan models.Conversation
	stop func()
	once sync.Once
}

func NewConversationSubscription(c <-chan models.Conversation, stop func()) *ConversationSubscription {
	return &ConversationSubscription{C: c, stop: stop}
}

func (s *ConversationSubscription) Stop() { s.once.Do(s.stop) }
