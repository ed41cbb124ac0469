// Package miniapp owns the per-user sessions of the mini app: identity,
// state, loader and actions, and their replacement when a session expires.
package miniapp

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Kerhoff/wishlist/internal/actions"
	"github.com/Kerhoff/wishlist/internal/host"
	"github.com/Kerhoff/wishlist/internal/loader"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/state"
)

// App is one user's running mini app. It is created whole at launch and
// replaced whole when its session expires; nothing outlives it.
type App struct {
	ID string

	launch   host.LaunchData
	identity host.Identity
	store    *state.Store
	loader   *loader.Loader
	actions  *actions.Handler

	expired  atomic.Bool
	lastSeen atomic.Int64
}

// Snapshot returns the current state.
func (a *App) Snapshot() state.AppState {
	return a.store.Snapshot()
}

// Chrome returns the host window settings resolved at launch.
func (a *App) Chrome() models.Chrome {
	return a.identity.Chrome
}

// UserID returns the id of the session user.
func (a *App) UserID() int64 {
	return a.identity.Session.UserID
}

// Actions returns the action handler of the session.
func (a *App) Actions() *actions.Handler {
	return a.actions
}

// Expired reports whether the backend has rejected the session.
func (a *App) Expired() bool {
	return a.expired.Load()
}

// SwitchTab changes the visible tab without any backend call.
func (a *App) SwitchTab(tab state.Tab) {
	a.store.SwitchTab(tab)
}

// Refresh reloads every list.
func (a *App) Refresh(ctx context.Context) error {
	_, err := a.loader.LoadAll(ctx, a.UserID())
	return err
}

// RefreshWishes reloads the user's own wishes.
func (a *App) RefreshWishes(ctx context.Context) error {
	_, err := a.loader.LoadWishes(ctx, a.UserID())
	return err
}

// OpenFriend shows the wish list of an accepted friend.
func (a *App) OpenFriend(ctx context.Context, friendID int64) error {
	st := a.store.Snapshot()
	for _, f := range st.Friends {
		if f.ID == friendID {
			a.store.SwitchTab(state.TabSocial)
			_, err := a.loader.LoadFriendWishes(ctx, f.User)
			return err
		}
	}
	return fmt.Errorf("%w: user %d is not a friend", actions.ErrRequestNotFound, friendID)
}

// CloseFriend leaves the friend wish list.
func (a *App) CloseFriend() {
	a.store.CloseFriendView()
}

func (a *App) touch(now time.Time) {
	a.lastSeen.Store(now.UnixNano())
}

func (a *App) idleSince() time.Time {
	return time.Unix(0, a.lastSeen.Load())
}

// Close releases the session's timers.
func (a *App) Close() {
	a.store.Close()
}
