package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/source"
	"github.com/Kerhoff/wishlist/internal/state"
	"github.com/Kerhoff/wishlist/pkg/logger"
)

// stubSource answers each entity with a canned result.
type stubSource struct {
	wishes        func(userID int64) ([]models.Wish, error)
	friends       []models.Friend
	friendsErr    error
	requests      []models.FriendRequest
	notifications []models.Notification
}

func (s *stubSource) Wishes(_ context.Context, userID int64) ([]models.Wish, error) {
	if s.wishes == nil {
		return nil, nil
	}
	return s.wishes(userID)
}

func (s *stubSource) Friends(context.Context, int64) ([]models.Friend, error) {
	return s.friends, s.friendsErr
}

func (s *stubSource) PendingRequests(context.Context, int64) ([]models.FriendRequest, error) {
	return s.requests, nil
}

func (s *stubSource) Notifications(context.Context, int64) ([]models.Notification, error) {
	return s.notifications, nil
}

var errRefused = &apiclient.NetworkError{Method: "GET", Path: "/wishes", Err: errors.New("connection refused")}

func newTestLoader(primary source.DataSource) (*Loader, *state.Store) {
	store := state.NewStore(models.Session{UserID: 1}, models.DefaultSettings())
	return New(primary, source.NewFixture(nil), store, logger.Discard()), store
}

func TestLoadAll_IndependentFailure(t *testing.T) {
	live := &stubSource{
		wishes: func(int64) ([]models.Wish, error) { return nil, errRefused },
		friends: []models.Friend{
			{User: models.User{ID: 77, Username: "live_friend"}, Status: models.FriendshipStatusAccepted},
		},
	}
	l, store := newTestLoader(live)

	rep, err := l.LoadAll(context.Background(), 1)
	require.NoError(t, err)

	st := store.Snapshot()
	assert.True(t, st.Loaded)
	assert.NotEmpty(t, st.Wishes)
	assert.True(t, st.Demo.Wishes)

	require.Len(t, st.Friends, 1)
	assert.Equal(t, "live_friend", st.Friends[0].Username)
	assert.False(t, st.Demo.Friends)

	assert.Equal(t, []state.Entity{state.EntityWishes}, rep.Fallbacks)
	assert.Error(t, rep.Err())
}

func TestLoad_MalformedFallsBackToDemo(t *testing.T) {
	live := &stubSource{
		wishes: func(int64) ([]models.Wish, error) {
			return nil, apiclient.ErrMalformedResponse
		},
	}
	l, store := newTestLoader(live)

	_, err := l.LoadWishes(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, store.Snapshot().Demo.Wishes)
}

func TestLoad_RequestFailedShowsEmptyList(t *testing.T) {
	live := &stubSource{
		friendsErr: &apiclient.RequestFailedError{Status: 500, Message: "db down"},
	}
	l, store := newTestLoader(live)

	rep, err := l.LoadFriends(context.Background(), 1)
	require.NoError(t, err)

	st := store.Snapshot()
	assert.Empty(t, st.Friends)
	assert.False(t, st.Demo.Friends)
	assert.Empty(t, rep.Fallbacks)
	assert.Error(t, rep.Err())
}

func TestLoad_SessionExpiredAborts(t *testing.T) {
	live := &stubSource{
		wishes: func(int64) ([]models.Wish, error) { return nil, apiclient.ErrSessionExpired },
	}
	l, store := newTestLoader(live)

	_, err := l.LoadAll(context.Background(), 1)
	assert.ErrorIs(t, err, apiclient.ErrSessionExpired)
	assert.Empty(t, store.Snapshot().Wishes)
}

func TestLoad_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	live := &stubSource{
		wishes: func(int64) ([]models.Wish, error) {
			calls++
			if calls == 1 {
				close(started)
				<-release
				return []models.Wish{{ID: 1, Title: "slow and old"}}, nil
			}
			return []models.Wish{{ID: 2, Title: "fast and new"}}, nil
		},
	}
	l, store := newTestLoader(live)

	done := make(chan *Report)
	go func() {
		rep, _ := l.LoadWishes(context.Background(), 1)
		done <- rep
	}()
	<-started

	_, err := l.LoadWishes(context.Background(), 1)
	require.NoError(t, err)
	close(release)

	var slow *Report
	select {
	case slow = <-done:
	case <-time.After(time.Second):
		t.Fatal("slow load did not finish")
	}

	assert.Equal(t, []state.Entity{state.EntityWishes}, slow.Stale)
	wishes := store.Snapshot().Wishes
	require.Len(t, wishes, 1)
	assert.Equal(t, "fast and new", wishes[0].Title)
}

func TestLoad_FixturePrimaryIsDemo(t *testing.T) {
	l, store := newTestLoader(source.NewFixture(nil))

	rep, err := l.LoadAll(context.Background(), 1)
	require.NoError(t, err)

	st := store.Snapshot()
	assert.True(t, st.Demo.Wishes)
	assert.True(t, st.Demo.Notifications)
	assert.Empty(t, rep.Fallbacks)
}

func TestLoadFriendWishes(t *testing.T) {
	live := &stubSource{
		wishes: func(userID int64) ([]models.Wish, error) {
			return []models.Wish{{ID: 10, UserID: userID, Title: "Book"}}, nil
		},
	}
	l, store := newTestLoader(live)

	_, err := l.LoadFriendWishes(context.Background(), models.User{ID: 200001})
	require.NoError(t, err)

	v := store.Snapshot().Viewing
	require.NotNil(t, v)
	assert.Equal(t, int64(200001), v.Friend.ID)
	require.Len(t, v.Wishes, 1)
	assert.Equal(t, int64(200001), v.Wishes[0].UserID)
}
