package storetest_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
	"github.com/Rida-Lamiini/Chat-app/internal/store/storetest"
)

func TestCreateProfileRejectsDuplicateEmail(t *testing.T) {
	st := storetest.New()
	ctx := context.Background()

	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u1", Email: "amal@example.com"}))
	err := st.CreateProfile(ctx, &models.UserProfile{ID: "u2", Email: "amal@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// profiles without an email never collide with each other
	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u3"}))
	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u4"}))
}

func TestGetProfileByEmail(t *testing.T) {
	st := storetest.New()
	ctx := context.Background()
	require.NoError(t, st.CreateProfile(ctx, &models.UserProfile{ID: "u1", Email: "amal@example.com"}))

	p, err := st.GetProfileByEmail(ctx, "amal@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)

	_, err = st.GetProfileByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStopDuringWritesDoesNotPanic(t *testing.T) {
	st := storetest.New()
	ctx := context.Background()
	require.NoError(t, st.CreateMembershipList(ctx, "u1"))

	// race a writer against Stop; a send landing on a closed channel
	// would panic the writer goroutine and fail the test
	for i := 0; i < 100; i++ {
		sub, err := st.WatchMembershipList(ctx, "u1")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.AppendMembershipEntry(ctx, "u1", models.MembershipEntry{ChatID: "c1"})
		}()
		sub.Stop()
		wg.Wait()
		for range sub.C {
		}
	}
}
