package models

import "time"

// UserProfile is one document in the users collection, keyed by identity id.
// Created at signup, mutated only by block/unblock.
type UserProfile struct {
	ID           string   `bson:"_id" json:"id"`
	Name         string   `bson:"name" json:"name"`
	Email        string   `bson:"email,omitempty" json:"email"`
	ProfilePhoto string   `bson:"profile_photo,omitempty" json:"profile_photo,omitempty"`
	Blocked      []string `bson:"blocked" json:"blocked"`
	PasswordHash string   `bson:"password_hash" json:"-"`
}

// Blocks reports whether this profile blocks the given identity.
func (p *UserProfile) Blocks(id string) bool {
	for _, b := range p.Blocked {
		if b == id {
			return true
		}
	}
	return false
}

// Message is one element of a conversation's append-only message array.
// Immutable once appended. CreatedAt is unix seconds.
type Message struct {
	SenderID  string `bson:"sender_id" json:"sender_id"`
	Text      string `bson:"text" json:"text"`
	Image     string `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}

// Conversation is one document in the chats collection. The messages array
// is append-only; insertion order is chronological order.
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Messages  []Message `bson:"messages" json:"messages"`
}

// MembershipEntry is a per-user denormalized pointer to a conversation.
// Exactly two entries exist per conversation, one in each participant's
// membership list, and both reference the same chat id. UpdatedAt is unix
// milliseconds.
type MembershipEntry struct {
	ChatID      string `bson:"chat_id" json:"chat_id"`
	ReceiverID  string `bson:"receiver_id" json:"receiver_id"`
	LastMessage string `bson:"last_message" json:"last_message"`
	IsSeen      bool   `bson:"is_seen" json:"is_seen"`
	UpdatedAt   int64  `bson:"updated_at" json:"updated_at"`
}

// MembershipList is one document in the userchats collection, keyed by the
// owning identity id.
type MembershipList struct {
	OwnerID string            `bson:"_id" json:"owner_id"`
	Chats   []MembershipEntry `bson:"chats" json:"chats"`
}
