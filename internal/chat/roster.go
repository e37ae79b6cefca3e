package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// Roster lists reachable users and starts new conversations.
type Roster struct {
	store store.Store
}

func NewRoster(st store.Store) *Roster {
	return &Roster{store: st}
}

// ListUsers returns every profile except the caller's own.
func (r *Roster) ListUsers(ctx context.Context, selfID string) ([]models.UserProfile, error) {
	profiles, err := r.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := profiles[:0]
	for _, p := range profiles {
		if p.ID != selfID {
			out = append(out, p)
		}
	}
	return out, nil
}

// StartConversation creates an empty conversation and appends one
// membership entry to each participant's list, both referencing the new
// chat id. The appended entries carry a blank preview and the creation
// time, so the new chat sorts to the top of both lists.
func (r *Roster) StartConversation(ctx context.Context, selfID, otherID string) (string, error) {
	chatID := uuid.NewString()
	conv := &models.Conversation{
		ID:        chatID,
		CreatedAt: time.Now().UTC(),
		Messages:  []models.Message{},
	}
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	now := time.Now().UnixMilli()
	pairs := []struct{ owner, receiver string }{
		{selfID, otherID},
		{otherID, selfID},
	}
	for _, p := range pairs {
		e := models.MembershipEntry{
			ChatID:     chatID,
			ReceiverID: p.receiver,
			IsSeen:     true,
			UpdatedAt:  now,
		}
		if err := r.store.AppendMembershipEntry(ctx, p.owner, e); err != nil {
			return "", fmt.Errorf("append membership entry for %s: %w", p.owner, err)
		}
	}
	return chatID, nil
}
