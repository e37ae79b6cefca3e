package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/client"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store/storetest"
)

type nullBlobs struct{}

func (nullBlobs) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	return "https://blobs.test/" + key, nil
}

func fixture(t *testing.T) (*client.Client, *storetest.Store) {
	t.Helper()
	ctx := context.Background()
	st := storetest.New()
	for _, id := range []string{"u1", "u2"} {
		require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: id}))
		require.NoError(t, st.CreateMembershipList(ctx, id))
	}
	return client.New(st, nullBlobs{}, zap.NewNop().Sugar()), st
}

func TestSignInStartsListSync(t *testing.T) {
	cl, st := fixture(t)
	ctx := context.Background()

	require.NoError(t, cl.SignIn(ctx, "u1"))
	defer cl.Close(ctx)

	assert.True(t, cl.Session.State().SignedIn())
	assert.Equal(t, 1, st.ActiveMembershipSubs("u1"))
}

func TestSignInUnknownIdentity(t *testing.T) {
	cl, _ := fixture(t)
	err := cl.SignIn(context.Background(), "ghost")
	require.Error(t, err)
}

func TestSelectConversationDrivesFeed(t *testing.T) {
	cl, st := fixture(t)
	ctx := context.Background()
	require.NoError(t, cl.SignIn(ctx, "u1"))
	defer cl.Close(ctx)

	chatID, err := cl.StartChat(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, cl.SelectConversation(ctx, chatID, "u2"))
	assert.Equal(t, 1, st.ActiveConversationSubs(chatID))
	assert.Equal(t, chatID, cl.Selection.State().ChatID)
}

func TestToggleBlockWritesAndFlips(t *testing.T) {
	cl, st := fixture(t)
	ctx := context.Background()
	require.NoError(t, cl.SignIn(ctx, "u1"))
	defer cl.Close(ctx)

	chatID, err := cl.StartChat(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, cl.SelectConversation(ctx, chatID, "u2"))

	require.NoError(t, cl.ToggleBlock(ctx))
	assert.True(t, cl.Selection.State().BlockedByMe)
	p, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.Blocks("u2"))

	require.NoError(t, cl.ToggleBlock(ctx))
	assert.False(t, cl.Selection.State().BlockedByMe)
	p, err = st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, p.Blocks("u2"))
}

func TestSetBlockExplicitStates(t *testing.T) {
	cl, st := fixture(t)
	ctx := context.Background()
	require.NoError(t, cl.SignIn(ctx, "u1"))
	defer cl.Close(ctx)

	chatID, err := cl.StartChat(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, cl.SelectConversation(ctx, chatID, "u2"))

	require.NoError(t, cl.SetBlock(ctx, true))
	require.NoError(t, cl.SetBlock(ctx, true)) // repeat is a no-op
	assert.True(t, cl.Selection.State().BlockedByMe)
	p, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.Blocks("u2"))

	require.NoError(t, cl.SetBlock(ctx, false))
	assert.False(t, cl.Selection.State().BlockedByMe)
	p, err = st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, p.Blocks("u2"))
}

func TestCloseReleasesEverything(t *testing.T) {
	cl, st := fixture(t)
	ctx := context.Background()
	require.NoError(t, cl.SignIn(ctx, "u1"))

	chatID, err := cl.StartChat(ctx, "u2")
	require.NoError(t, err)
	require.NoError(t, cl.SelectConversation(ctx, chatID, "u2"))

	cl.Close(ctx)

	assert.Equal(t, 0, st.ActiveMembershipSubs("u1"))
	assert.Equal(t, 0, st.ActiveConversationSubs(chatID))
	assert.False(t, cl.Session.State().SignedIn())
	assert.Empty(t, cl.Selection.State().ChatID)
}
