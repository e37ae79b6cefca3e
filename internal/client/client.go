package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/chat"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/session"
	"github.com/Rida-Lamiini/Chat-app/internal/storage"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

// Client is one signed-in user's runtime: the session and selection
// holders, the two synchronizers and the composer, wired to a shared
// store. One Client exists per connected socket; Close releases every
// remote subscription it holds.
type Client struct {
	Session   *session.Holder
	Selection *chat.Selection
	List      *chat.ListSync
	Feed      *chat.FeedSync
	Composer  *chat.Composer
	Roster    *chat.Roster

	store store.Store
	log   *zap.SugaredLogger
}

func New(st store.Store, blobs storage.BlobStore, log *zap.SugaredLogger) *Client {
	sess := session.NewHolder(st, log)
	sel := chat.NewSelection(st, sess)
	return &Client{
		Session:   sess,
		Selection: sel,
		List:      chat.NewListSync(st, log),
		Feed:      chat.NewFeedSync(st, log),
		Composer:  chat.NewComposer(st, blobs, sess, sel, log),
		Roster:    chat.NewRoster(st),
		store:     st,
		log:       log,
	}
}

// SignIn feeds the identity-change event into the session holder and, on
// success, starts mirroring the user's chat list.
func (c *Client) SignIn(ctx context.Context, uid string) error {
	c.Session.HandleIdentity(ctx, uid)
	st := c.Session.State()
	if st.Err != nil {
		return st.Err
	}
	if !st.SignedIn() {
		return session.ErrNoProfile
	}
	return c.List.Start(ctx, uid)
}

// SelectConversation opens a conversation and points the message feed at
// it. When the resulting selection carries no conversation (blocked by the
// counterpart) the feed is cleared instead.
func (c *Client) SelectConversation(ctx context.Context, chatID, counterpartID string) error {
	if err := c.Selection.Select(ctx, chatID, counterpartID); err != nil {
		return err
	}
	return c.Feed.Select(ctx, c.Selection.State().ChatID)
}

// SetBlock puts the selected counterpart into the requested block state.
// Already being there is a no-op, so the command is safe to repeat.
func (c *Client) SetBlock(ctx context.Context, blocked bool) error {
	sess := c.Session.State().Profile
	sel := c.Selection.State()
	if sess == nil || sel.Counterpart == nil {
		return chat.ErrNoSession
	}
	if sel.BlockedByMe == blocked {
		return nil
	}
	if err := c.store.SetBlocked(ctx, sess.ID, sel.Counterpart.ID, blocked); err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	c.Selection.ToggleBlockedByMe()
	return nil
}

// ToggleBlock flips the block state of the selected counterpart.
func (c *Client) ToggleBlock(ctx context.Context) error {
	return c.SetBlock(ctx, !c.Selection.State().BlockedByMe)
}

// StartChat creates a conversation with the given user and returns its id.
func (c *Client) StartChat(ctx context.Context, otherID string) (string, error) {
	sess := c.Session.State().Profile
	if sess == nil {
		return "", chat.ErrNoSession
	}
	return c.Roster.StartConversation(ctx, sess.ID, otherID)
}

// Users lists everyone except the signed-in user.
func (c *Client) Users(ctx context.Context) ([]models.UserProfile, error) {
	sess := c.Session.State().Profile
	if sess == nil {
		return nil, chat.ErrNoSession
	}
	return c.Roster.ListUsers(ctx, sess.ID)
}

// Close signs the runtime out and releases all subscriptions.
func (c *Client) Close(ctx context.Context) {
	c.Feed.Stop()
	c.List.Stop()
	c.Selection.Clear()
	c.Session.HandleIdentity(ctx, "")
}
