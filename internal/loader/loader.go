// Package loader fills the application state from a data source.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/metrics"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/source"
	"github.com/Kerhoff/wishlist/internal/state"
)

// Report describes how a load settled.
type Report struct {
	Seq uint64

	// Fallbacks lists entities answered with demo data.
	Fallbacks []state.Entity
	// Stale lists entities whose result lost to a newer load.
	Stale []state.Entity
	// Failures aggregates the per-entity errors that were recovered from.
	Failures *multierror.Error

	mu sync.Mutex
}

func (r *Report) fallback(e state.Entity) {
	r.mu.Lock()
	r.Fallbacks = append(r.Fallbacks, e)
	r.mu.Unlock()
}

func (r *Report) stale(e state.Entity) {
	r.mu.Lock()
	r.Stale = append(r.Stale, e)
	r.mu.Unlock()
}

func (r *Report) fail(err error) {
	r.mu.Lock()
	r.Failures = multierror.Append(r.Failures, err)
	r.mu.Unlock()
}

// Err returns the recovered failures, or nil.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failures.ErrorOrNil()
}

// Loader replaces state lists with fresh snapshots. Network failures and
// malformed responses are answered from the fallback source, one entity at
// a time, so the UI always has something to show.
type Loader struct {
	primary     source.DataSource
	fallback    source.DataSource
	primaryDemo bool
	store       *state.Store
	logger      *logrus.Logger
}

// New creates a loader. When primary is itself the demo fixture every list
// is flagged as demo data.
func New(primary, fallback source.DataSource, store *state.Store, logger *logrus.Logger) *Loader {
	_, isFixture := primary.(*source.Fixture)
	return &Loader{
		primary:     primary,
		fallback:    fallback,
		primaryDemo: isFixture,
		store:       store,
		logger:      logger,
	}
}

// LoadAll fetches every list concurrently and waits for all of them.
func (l *Loader) LoadAll(ctx context.Context, userID int64) (*Report, error) {
	return l.load(ctx, userID,
		state.EntityWishes, state.EntityFriends, state.EntityRequests, state.EntityNotifications)
}

// LoadWishes refreshes the user's own wishes.
func (l *Loader) LoadWishes(ctx context.Context, userID int64) (*Report, error) {
	return l.load(ctx, userID, state.EntityWishes)
}

// LoadFriends refreshes friends and pending invitations.
func (l *Loader) LoadFriends(ctx context.Context, userID int64) (*Report, error) {
	return l.load(ctx, userID, state.EntityFriends, state.EntityRequests)
}

// LoadNotifications refreshes the notification list.
func (l *Loader) LoadNotifications(ctx context.Context, userID int64) (*Report, error) {
	return l.load(ctx, userID, state.EntityNotifications)
}

// LoadFriendWishes opens the wish list of a friend.
func (l *Loader) LoadFriendWishes(ctx context.Context, friend models.User) (*Report, error) {
	rep := &Report{Seq: l.store.Begin()}
	o, err := fetch(l, state.EntityFriendWishes, rep, func(src source.DataSource) ([]models.Wish, error) {
		return src.Wishes(ctx, friend.ID)
	})
	if err != nil {
		return rep, err
	}
	l.commit(rep, state.EntityFriendWishes, func(st *state.AppState) {
		st.Viewing = &state.FriendView{Friend: friend, Wishes: o.items, Demo: o.demo}
	})
	return rep, nil
}

func (l *Loader) load(ctx context.Context, userID int64, entities ...state.Entity) (*Report, error) {
	rep := &Report{Seq: l.store.Begin()}
	log := l.logger.WithFields(logrus.Fields{"user_id": userID, "seq": rep.Seq})
	log.WithField("entities", entities).Debug("Loading")

	var g errgroup.Group
	for _, entity := range entities {
		g.Go(func() error {
			return l.loadEntity(ctx, userID, entity, rep)
		})
	}
	err := g.Wait()
	l.store.MarkLoaded()

	if err != nil {
		log.WithError(err).Warn("Load aborted")
		return rep, err
	}
	if failures := rep.Err(); failures != nil {
		log.WithError(failures).Warn("Load settled with recovered failures")
	}
	return rep, nil
}

func (l *Loader) loadEntity(ctx context.Context, userID int64, entity state.Entity, rep *Report) error {
	switch entity {
	case state.EntityWishes:
		o, err := fetch(l, entity, rep, func(src source.DataSource) ([]models.Wish, error) {
			return src.Wishes(ctx, userID)
		})
		if err != nil {
			return err
		}
		l.commit(rep, entity, func(st *state.AppState) {
			st.Wishes, st.Demo.Wishes = o.items, o.demo
		})
	case state.EntityFriends:
		o, err := fetch(l, entity, rep, func(src source.DataSource) ([]models.Friend, error) {
			return src.Friends(ctx, userID)
		})
		if err != nil {
			return err
		}
		l.commit(rep, entity, func(st *state.AppState) {
			st.Friends, st.Demo.Friends = o.items, o.demo
		})
	case state.EntityRequests:
		o, err := fetch(l, entity, rep, func(src source.DataSource) ([]models.FriendRequest, error) {
			return src.PendingRequests(ctx, userID)
		})
		if err != nil {
			return err
		}
		l.commit(rep, entity, func(st *state.AppState) {
			st.Requests, st.Demo.Requests = o.items, o.demo
		})
	case state.EntityNotifications:
		o, err := fetch(l, entity, rep, func(src source.DataSource) ([]models.Notification, error) {
			return src.Notifications(ctx, userID)
		})
		if err != nil {
			return err
		}
		l.commit(rep, entity, func(st *state.AppState) {
			st.Notifications, st.Demo.Notifications = o.items, o.demo
		})
	default:
		return fmt.Errorf("unknown entity %q", entity)
	}
	return nil
}

func (l *Loader) commit(rep *Report, entity state.Entity, apply func(*state.AppState)) {
	if !l.store.Commit(rep.Seq, entity, apply) {
		rep.stale(entity)
		l.logger.WithFields(logrus.Fields{"entity": entity, "seq": rep.Seq}).Debug("Discarded stale result")
	}
}

type outcome[T any] struct {
	items []T
	demo  bool
}

// fetch reads one entity from the primary source and applies the fallback
// policy. Only a session expiry is returned as an error.
func fetch[T any](l *Loader, entity state.Entity, rep *Report, get func(source.DataSource) ([]T, error)) (outcome[T], error) {
	items, err := get(l.primary)
	if err == nil {
		return outcome[T]{items: items, demo: l.primaryDemo}, nil
	}

	if errors.Is(err, apiclient.ErrSessionExpired) {
		return outcome[T]{}, err
	}

	rep.fail(fmt.Errorf("%s: %w", entity, err))
	log := l.logger.WithError(err).WithField("entity", entity)

	if apiclient.IsNetwork(err) || errors.Is(err, apiclient.ErrMalformedResponse) {
		demo, derr := get(l.fallback)
		if derr != nil {
			log.WithField("fallback_error", derr).Error("Demo data unavailable")
			return outcome[T]{}, nil
		}
		metrics.LoaderFallbacks.WithLabelValues(string(entity)).Inc()
		rep.fallback(entity)
		log.Warn("Backend unavailable, using demo data")
		return outcome[T]{items: demo, demo: true}, nil
	}

	// The backend answered and refused; show an empty list rather than
	// pretending with demo data.
	log.Warn("Backend refused load")
	return outcome[T]{}, nil
}
