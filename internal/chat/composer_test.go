package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/chat"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/session"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
	"github.com/Rida-Lamiini/Chat-app/internal/store/storetest"
)

type fakeBlobs struct {
	keys []string
	err  error
}

func (f *fakeBlobs) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://blobs.test/" + key, nil
}

// one conversation c1 between u1 and u2, u1 signed in and c1 selected
func composerFixture(t *testing.T) (*chat.Composer, *storetest.Store, *fakeBlobs, *chat.Selection, *session.Holder) {
	t.Helper()
	ctx := context.Background()
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})
	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u2"}))
	seedConversation(t, st, "c1")
	seedList(t, st, "u1", models.MembershipEntry{ChatID: "c1", ReceiverID: "u2", IsSeen: true, UpdatedAt: 1})
	seedList(t, st, "u2", models.MembershipEntry{ChatID: "c1", ReceiverID: "u1", IsSeen: true, UpdatedAt: 1})

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(ctx, "c1", "u2"))

	blobs := &fakeBlobs{}
	return chat.NewComposer(st, blobs, sess, sel, zap.NewNop().Sugar()), st, blobs, sel, sess
}

func TestSubmitText(t *testing.T) {
	c, st, _, _, _ := composerFixture(t)
	ctx := context.Background()

	c.SetText("  hello  ")
	require.NoError(t, c.Submit(ctx))

	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	msg := conv.Messages[0]
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "hello", msg.Text)
	assert.Empty(t, msg.Image)
	assert.InDelta(t, time.Now().Unix(), msg.CreatedAt, 5)

	mine, err := st.GetMembershipList(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mine.Chats[0].IsSeen)
	assert.Equal(t, "hello", mine.Chats[0].LastMessage)

	theirs, err := st.GetMembershipList(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, theirs.Chats[0].IsSeen)
	assert.Equal(t, "hello", theirs.Chats[0].LastMessage)

	text, hasImage := c.Pending()
	assert.Empty(t, text)
	assert.False(t, hasImage)
}

func TestSubmitEmptyIsNoOp(t *testing.T) {
	c, st, _, _, _ := composerFixture(t)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		c.SetText(text)
		require.NoError(t, c.Submit(ctx))
	}

	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
}

func TestSubmitBlockedIsNoOp(t *testing.T) {
	c, st, _, sel, _ := composerFixture(t)
	ctx := context.Background()

	sel.ToggleBlockedByMe()
	c.SetText("hello")
	require.NoError(t, c.Submit(ctx))

	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)

	// input survives the rejected no-op
	text, _ := c.Pending()
	assert.Equal(t, "hello", text)
}

func TestSubmitImageOnly(t *testing.T) {
	c, st, blobs, _, _ := composerFixture(t)
	ctx := context.Background()

	c.AttachImage([]byte{0x01, 0x02, 0x03})
	require.NoError(t, c.Submit(ctx))

	require.Len(t, blobs.keys, 1)
	assert.Contains(t, blobs.keys[0], "chat_images/")

	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Empty(t, conv.Messages[0].Text)
	assert.Equal(t, "https://blobs.test/"+blobs.keys[0], conv.Messages[0].Image)
}

func TestSubmitTextAndImage(t *testing.T) {
	c, st, blobs, _, _ := composerFixture(t)
	ctx := context.Background()

	c.SetText("look at this")
	c.AttachImage([]byte{0x01, 0x02, 0x03})
	require.NoError(t, c.Submit(ctx))

	require.Len(t, blobs.keys, 1)
	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	msg := conv.Messages[0]
	assert.Equal(t, "look at this", msg.Text)
	assert.Equal(t, "https://blobs.test/"+blobs.keys[0], msg.Image)

	theirs, err := st.GetMembershipList(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "look at this", theirs.Chats[0].LastMessage)

	text, hasImage := c.Pending()
	assert.Empty(t, text)
	assert.False(t, hasImage)
}

func TestSubmitUploadFailureKeepsInput(t *testing.T) {
	c, st, blobs, _, _ := composerFixture(t)
	ctx := context.Background()
	blobs.err = assert.AnError

	c.SetText("hello")
	c.AttachImage([]byte{0x01})
	require.Error(t, c.Submit(ctx))

	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)

	text, hasImage := c.Pending()
	assert.Equal(t, "hello", text)
	assert.True(t, hasImage)
}

func TestSubmitAppendFailurePropagates(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})
	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u2"}))
	// conversation document never created

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(ctx, "missing", "u2"))

	c := chat.NewComposer(st, &fakeBlobs{}, sess, sel, zap.NewNop().Sugar())
	c.SetText("hello")
	err := c.Submit(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	text, _ := c.Pending()
	assert.Equal(t, "hello", text)
}

func TestSubmitMembershipUpdateFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})
	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u2"}))
	seedConversation(t, st, "c1")
	seedList(t, st, "u1", models.MembershipEntry{ChatID: "c1", ReceiverID: "u2"})
	// u2 has no membership list at all

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(ctx, "c1", "u2"))

	c := chat.NewComposer(st, &fakeBlobs{}, sess, sel, zap.NewNop().Sugar())
	c.SetText("hello")
	require.NoError(t, c.Submit(ctx))

	conv, err := st.GetConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
}
