package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/wishlist/internal/actions"
	"github.com/Kerhoff/wishlist/internal/host"
	"github.com/Kerhoff/wishlist/internal/miniapp"
	"github.com/Kerhoff/wishlist/internal/render"
	"github.com/Kerhoff/wishlist/internal/state"
	"github.com/Kerhoff/wishlist/pkg/logger"
)

// SessionCookie carries the mini app session id.
const SessionCookie = "wishlist_session"

//go:embed static
var staticFS embed.FS

// Server serves the mini app pages, tab fragments and action posts.
type Server struct {
	manager  *miniapp.Manager
	renderer *render.Renderer
	logger   *logrus.Logger
	mux      *http.ServeMux
	now      func() time.Time
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(manager *miniapp.Manager, renderer *render.Renderer, logger *logrus.Logger) *Server {
	s := &Server{
		manager:  manager,
		renderer: renderer,
		logger:   logger,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		middleware.Recoverer,
	).Handler(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Session
	s.mux.HandleFunc("POST /session", s.handleStartSession)
	s.mux.HandleFunc("POST /refresh", s.withApp(s.handleRefresh))
	s.mux.HandleFunc("GET /api/state", s.withApp(s.handleState))

	// Pages
	s.mux.HandleFunc("GET /{$}", s.withApp(s.handleIndex))
	s.mux.HandleFunc("GET /tabs/{tab}", s.withApp(s.handleTab))

	// Wishes
	s.mux.HandleFunc("POST /wishes", s.withApp(s.handleAddWish))
	s.mux.HandleFunc("POST /wishes/{id}/delete", s.withApp(s.handleDeleteWish))

	// Friends
	s.mux.HandleFunc("GET /friends/{id}/wishes", s.withApp(s.handleFriendWishes))
	s.mux.HandleFunc("GET /friends/back", s.withApp(s.handleCloseFriend))
	s.mux.HandleFunc("POST /friends/{owner}/wishes/{id}/gift", s.withApp(s.handleMarkGift))
	s.mux.HandleFunc("POST /friends/invite", s.withApp(s.handleInviteFriend))
	s.mux.HandleFunc("POST /friends/{id}/accept", s.withApp(s.handleAcceptFriend))
	s.mux.HandleFunc("POST /friends/{id}/reject", s.withApp(s.handleRejectFriend))

	// Settings
	s.mux.HandleFunc("POST /settings", s.withApp(s.handleSetting))

	// Static files & health
	static, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.WithFields(s.logger, logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

type appHandler func(w http.ResponseWriter, r *http.Request, app *miniapp.App)

// withApp resolves the session from the cookie. Only the index page starts
// a fresh session for visitors without one; inside the chat client app.js
// replaces it with a verified one. Anything else is sent to the index.
func (s *Server) withApp(h appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(SessionCookie); err == nil {
			if app, ok := s.manager.Get(c.Value); ok {
				h(w, r, app)
				return
			}
		}
		if r.Method != http.MethodGet || r.URL.Path != "/" {
			redirectHome(w, r)
			return
		}

		app, err := s.manager.Start(r.Context(), host.LaunchData{})
		if app == nil {
			s.logger.WithError(err).Error("failed to start session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		s.setSessionCookie(w, app.ID)
		h(w, r, app)
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondPage renders the full document, or only the active tab when the
// client asks for a fragment.
func (s *Server) respondPage(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	st := app.Snapshot()

	var buf bytes.Buffer
	var err error
	if r.URL.Query().Get("fragment") == "1" {
		err = s.renderer.Render(&buf, st.Tab, st, s.now())
	} else {
		err = s.renderer.Page(&buf, st, app.Chrome(), s.now())
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// redirectHome finishes a form post so a reload never repeats it.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// pathID extracts a path value and converts it to int64.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s in path", name)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// run executes an action and redirects home. Action outcomes reach the
// user as notices, so errors here are only logged.
func (s *Server) run(w http.ResponseWriter, r *http.Request, app *miniapp.App, action string, fn func(*miniapp.App) error) {
	if _, err := s.manager.Run(r.Context(), app, fn); err != nil && !actions.IsValidation(err) {
		s.logger.WithError(err).WithFields(logrus.Fields{"action": action, "session": app.ID}).Debug("Action did not complete")
	}
	redirectHome(w, r)
}

// ---------------------------------------------------------------------------
// Session & pages
// ---------------------------------------------------------------------------

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid form")
		return
	}

	app, err := s.manager.Start(r.Context(), host.LaunchData{InitData: r.PostForm.Get("init_data")})
	if app == nil {
		s.logger.WithError(err).Error("failed to start session")
		s.respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != app.ID {
		s.manager.Remove(c.Value)
	}
	s.setSessionCookie(w, app.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	if app.Expired() {
		fresh, err := s.manager.Reload(r.Context(), app)
		if fresh == nil {
			s.logger.WithError(err).Error("failed to reload session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		app = fresh
	}
	s.respondPage(w, r, app)
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	tab, ok := state.ParseTab(r.PathValue("tab"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	app.SwitchTab(tab)
	s.respondPage(w, r, app)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	s.run(w, r, app, "refresh", func(a *miniapp.App) error {
		return a.Refresh(r.Context())
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	s.respondJSON(w, http.StatusOK, stateResponse(app.Snapshot()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Wishes
// ---------------------------------------------------------------------------

func (s *Server) handleAddWish(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := actions.WishForm{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		Price:       r.PostForm.Get("price"),
		Link:        r.PostForm.Get("link"),
	}
	s.run(w, r, app, "add_wish", func(a *miniapp.App) error {
		return a.Actions().AddWish(r.Context(), form)
	})
}

func (s *Server) handleDeleteWish(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid wish id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	confirmed := r.PostForm.Get("confirm") == "true"
	s.run(w, r, app, "delete_wish", func(a *miniapp.App) error {
		return a.Actions().DeleteWish(r.Context(), id, confirmed)
	})
}

// ---------------------------------------------------------------------------
// Friends
// ---------------------------------------------------------------------------

func (s *Server) handleFriendWishes(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid friend id", http.StatusBadRequest)
		return
	}
	app, err = s.manager.Run(r.Context(), app, func(a *miniapp.App) error {
		return a.OpenFriend(r.Context(), id)
	})
	if errors.Is(err, actions.ErrRequestNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("friend_id", id).Warn("failed to open friend wishes")
	}
	s.respondPage(w, r, app)
}

func (s *Server) handleCloseFriend(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	app.CloseFriend()
	app.SwitchTab(state.TabSocial)
	s.respondPage(w, r, app)
}

func (s *Server) handleMarkGift(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	owner, err := pathID(r, "owner")
	if err != nil {
		http.Error(w, "invalid friend id", http.StatusBadRequest)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid wish id", http.StatusBadRequest)
		return
	}
	s.run(w, r, app, "mark_gift", func(a *miniapp.App) error {
		return a.Actions().MarkGift(r.Context(), owner, id)
	})
}

func (s *Server) handleInviteFriend(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	s.run(w, r, app, "invite_friend", func(a *miniapp.App) error {
		return a.Actions().InviteFriend(r.Context(), username)
	})
}

func (s *Server) handleAcceptFriend(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	s.run(w, r, app, "accept_friend", func(a *miniapp.App) error {
		return a.Actions().AcceptFriend(r.Context(), id)
	})
}

func (s *Server) handleRejectFriend(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	s.run(w, r, app, "reject_friend", func(a *miniapp.App) error {
		return a.Actions().RejectFriend(r.Context(), id)
	})
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Server) handleSetting(w http.ResponseWriter, r *http.Request, app *miniapp.App) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	key := r.PostForm.Get("key")
	// An unchecked checkbox is not submitted at all.
	value := r.PostForm.Get("value") == "true"
	s.run(w, r, app, "set_setting", func(a *miniapp.App) error {
		return a.Actions().SetSetting(r.Context(), key, value)
	})
}
