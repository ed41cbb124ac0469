package miniapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/wishlist/internal/actions"
	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/host"
	"github.com/Kerhoff/wishlist/internal/loader"
	"github.com/Kerhoff/wishlist/internal/metrics"
	"github.com/Kerhoff/wishlist/internal/settings"
	"github.com/Kerhoff/wishlist/internal/source"
	"github.com/Kerhoff/wishlist/internal/state"
	"github.com/Kerhoff/wishlist/internal/storage"
)

// Config configures how sessions reach the backend.
type Config struct {
	BackendURL         string
	APIPath            string
	Timeout            time.Duration
	HTTPClient         *http.Client
	Demo               bool
	NotificationsLimit int
	NoticeTTL          time.Duration
	IdleTTL            time.Duration
}

// Manager holds the live sessions.
type Manager struct {
	cfg     Config
	adapter *host.Adapter
	storage storage.LocalStorage
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*App
}

// NewManager creates a Manager.
func NewManager(cfg Config, adapter *host.Adapter, ls storage.LocalStorage, logger *logrus.Logger) *Manager {
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	return &Manager{
		cfg:      cfg,
		adapter:  adapter,
		storage:  ls,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*App),
	}
}

// Start launches a new session and performs its first load.
func (m *Manager) Start(ctx context.Context, launch host.LaunchData) (*App, error) {
	app, err := m.Build(ctx, launch)
	if err != nil {
		return nil, err
	}
	app.ID = uuid.NewString()
	m.put(app)

	log := m.logger.WithFields(logrus.Fields{"session": app.ID, "user_id": app.UserID()})
	if err := app.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Initial load failed")
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return app, nil
		}
		return app, err
	}
	log.Info("Session started")
	return app, nil
}

// Build assembles an App for launch without registering it. Settings are
// read from local storage before anything talks to the backend.
func (m *Manager) Build(ctx context.Context, launch host.LaunchData) (*App, error) {
	identity, err := m.adapter.ResolveUser(ctx, launch)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if m.cfg.Demo {
		identity.Session.Demo = true
	}

	prefs := settings.NewStore(m.storage, identity.Session.UserID)
	loaded, err := prefs.Load(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to read settings, using defaults")
	}

	app := &App{launch: launch, identity: identity}
	app.touch(m.now())
	app.store = state.NewStore(identity.Session, loaded)

	fixture := source.NewFixture(m.now)
	var (
		primary source.DataSource = fixture
		backend actions.Backend   = actions.Offline{}
	)
	if !m.cfg.Demo {
		client, err := apiclient.New(apiclient.Config{
			BaseURL:          m.cfg.BackendURL,
			APIPath:          m.cfg.APIPath,
			HTTPClient:       m.cfg.HTTPClient,
			Timeout:          m.cfg.Timeout,
			Session:          identity.Session,
			Logger:           m.logger,
			OnSessionExpired: func() { app.expired.Store(true) },
		})
		if err != nil {
			return nil, err
		}
		primary = source.NewLive(client, m.cfg.NotificationsLimit)
		backend = client
	}

	app.loader = loader.New(primary, fixture, app.store, m.logger)
	app.actions = actions.New(actions.Config{
		Backend:   backend,
		Loader:    app.loader,
		Store:     app.store,
		Settings:  prefs,
		NoticeTTL: m.cfg.NoticeTTL,
		Logger:    m.logger,
	})
	return app, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*App, bool) {
	m.mu.Lock()
	app, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		app.touch(m.now())
	}
	return app, ok
}

// Reload replaces app wholesale by resolving its launch data again. The
// new App keeps the session id.
func (m *Manager) Reload(ctx context.Context, app *App) (*App, error) {
	m.logger.WithFields(logrus.Fields{"session": app.ID, "user_id": app.UserID()}).Info("Reloading expired session")

	fresh, err := m.Build(ctx, app.launch)
	if err != nil {
		return nil, err
	}
	fresh.ID = app.ID
	m.put(fresh)

	if err := fresh.Refresh(ctx); err != nil && !errors.Is(err, apiclient.ErrSessionExpired) {
		return fresh, err
	}
	return fresh, nil
}

// Run calls fn on app and replaces the session if it turned out to be
// expired. It returns the App that is current afterwards.
func (m *Manager) Run(ctx context.Context, app *App, fn func(*App) error) (*App, error) {
	if app.Expired() {
		var err error
		if app, err = m.Reload(ctx, app); err != nil {
			return app, err
		}
	}
	err := fn(app)
	if errors.Is(err, apiclient.ErrSessionExpired) || app.Expired() {
		return m.Reload(ctx, app)
	}
	return app, err
}

// Remove ends a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	app, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	if ok {
		app.Close()
		metrics.Sessions.Set(float64(n))
	}
}

func (m *Manager) put(app *App) {
	m.mu.Lock()
	old, replaced := m.sessions[app.ID]
	m.sessions[app.ID] = app
	n := len(m.sessions)
	m.mu.Unlock()
	if replaced && old != app {
		old.Close()
	}
	metrics.Sessions.Set(float64(n))
}

// StartSweeper drops idle sessions every interval. It blocks until ctx is
// cancelled, so it should be launched in a separate goroutine.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Session sweeper started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var idle []*App
	for id, app := range m.sessions {
		if app.idleSince().Before(cutoff) {
			idle = append(idle, app)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, app := range idle {
		app.Close()
	}
	if len(idle) > 0 {
		m.logger.WithField("count", len(idle)).Info("Dropped idle sessions")
	}
	metrics.Sessions.Set(float64(n))
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*App)
	m.mu.Unlock()
	for _, app := range sessions {
		app.Close()
	}
	metrics.Sessions.Set(0)
}
