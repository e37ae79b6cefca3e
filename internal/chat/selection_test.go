package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rida-Lamiini/Chat-app/internal/chat"
	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/session"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
	"github.com/Rida-Lamiini/Chat-app/internal/store/storetest"
)

func signedIn(t *testing.T, st *storetest.Store, p models.UserProfile) *session.Holder {
	t.Helper()
	require.NoError(t, st.CreateProfile(context.Background(), &p))
	h := session.NewHolder(st, zap.NewNop().Sugar())
	h.HandleIdentity(context.Background(), p.ID)
	require.True(t, h.State().SignedIn())
	return h
}

func TestSelectNoBlocks(t *testing.T) {
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})
	require.NoError(t, st.CreateProfile(context.Background(), &models.UserProfile{ID: "u2", Name: "Nadia"}))

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(context.Background(), "c1", "u2"))

	got := sel.State()
	assert.Equal(t, "c1", got.ChatID)
	require.NotNil(t, got.Counterpart)
	assert.Equal(t, "u2", got.Counterpart.ID)
	assert.False(t, got.BlockedByMe)
	assert.False(t, got.BlockedByCounterpart)
}

func TestSelectBlockedByCounterpart(t *testing.T) {
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})
	require.NoError(t, st.CreateProfile(context.Background(), &models.UserProfile{ID: "u2", Blocked: []string{"u1"}}))

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(context.Background(), "c1", "u2"))

	got := sel.State()
	assert.Empty(t, got.ChatID)
	assert.Nil(t, got.Counterpart)
	assert.True(t, got.BlockedByCounterpart)
	assert.False(t, got.BlockedByMe)
}

func TestSelectBlockedByMe(t *testing.T) {
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1", Blocked: []string{"u2"}})
	require.NoError(t, st.CreateProfile(context.Background(), &models.UserProfile{ID: "u2"}))

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(context.Background(), "c1", "u2"))

	// history stays viewable, sending is the composer's problem
	got := sel.State()
	assert.Equal(t, "c1", got.ChatID)
	require.NotNil(t, got.Counterpart)
	assert.True(t, got.BlockedByMe)
	assert.False(t, got.BlockedByCounterpart)
}

func TestSelectCounterpartMissing(t *testing.T) {
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})

	sel := chat.NewSelection(st, sess)
	err := sel.Select(context.Background(), "c1", "ghost")

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	got := sel.State()
	assert.Empty(t, got.ChatID)
	assert.ErrorIs(t, got.Err, store.ErrNotFound)
}

func TestSelectWithoutSession(t *testing.T) {
	st := storetest.New()
	sess := session.NewHolder(st, zap.NewNop().Sugar())

	sel := chat.NewSelection(st, sess)
	err := sel.Select(context.Background(), "c1", "u2")
	assert.ErrorIs(t, err, chat.ErrNoSession)
}

func TestToggleBlockedByMe(t *testing.T) {
	st := storetest.New()
	sess := signedIn(t, st, models.UserProfile{ID: "u1"})
	require.NoError(t, st.CreateProfile(context.Background(), &models.UserProfile{ID: "u2"}))

	sel := chat.NewSelection(st, sess)
	require.NoError(t, sel.Select(context.Background(), "c1", "u2"))

	sel.ToggleBlockedByMe()
	assert.True(t, sel.State().BlockedByMe)
	sel.ToggleBlockedByMe()
	assert.False(t, sel.State().BlockedByMe)
}
