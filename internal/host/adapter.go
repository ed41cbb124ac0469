// Package host resolves who is using the mini app from what the embedding
// chat client hands over at launch.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/storage"
)

// DemoUserIDKey is the local storage key of the demo user id.
const DemoUserIDKey = "userId"

// HeaderColor is applied to the host window chrome.
const HeaderColor = "#1f2121"

// LaunchData is what the host supplies when the app opens.
type LaunchData struct {
	// InitData is the raw, signed query string of the WebView host.
	InitData string
	// Trusted is a user already authenticated by the chat platform, such
	// as the sender of a bot command.
	Trusted *models.User
}

// Identity is the outcome of resolving a launch.
type Identity struct {
	Session models.Session
	Chrome  models.Chrome
}

// Verifier exchanges launch data for a verified user and token.
type Verifier interface {
	Verify(ctx context.Context, initData string) (*models.User, string, error)
}

// Adapter resolves identities. verifier may be nil, in which case launch
// data is trusted as-is and requests carry only the user id header.
type Adapter struct {
	verifier   Verifier
	storage    storage.LocalStorage
	demoUserID int64
	logger     *logrus.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(verifier Verifier, ls storage.LocalStorage, demoUserID int64, logger *logrus.Logger) *Adapter {
	return &Adapter{verifier: verifier, storage: ls, demoUserID: demoUserID, logger: logger}
}

// ResolveUser returns the identity for launch. It falls back to the demo
// user whenever the host supplied no usable user.
func (a *Adapter) ResolveUser(ctx context.Context, launch LaunchData) (Identity, error) {
	if launch.Trusted != nil && launch.Trusted.ID != 0 {
		u := *launch.Trusted
		return Identity{Session: models.Session{UserID: u.ID, User: &u}}, nil
	}

	if launch.InitData != "" {
		user, err := ParseInitData(launch.InitData)
		if err == nil {
			if id, ok := a.hostIdentity(ctx, launch.InitData, user); ok {
				return id, nil
			}
			return Identity{
				Session: models.Session{UserID: a.demoID(ctx), Demo: true},
				Chrome:  models.Chrome{Expand: true, HeaderColor: HeaderColor},
			}, nil
		}
		a.logger.WithError(err).Warn("No user in launch data, using demo id")
	}

	return Identity{Session: models.Session{UserID: a.demoID(ctx), Demo: true}}, nil
}

// hostIdentity trusts the launch user unless the backend rejected the
// launch data. Only an unreachable backend falls back to the id header.
func (a *Adapter) hostIdentity(ctx context.Context, initData string, user *models.User) (Identity, bool) {
	id := Identity{
		Session: models.Session{UserID: user.ID, User: user},
		Chrome:  models.Chrome{Expand: true, HeaderColor: HeaderColor},
	}
	log := a.logger.WithField("user_id", user.ID)

	if a.verifier == nil {
		log.Debug("User resolved from launch data")
		return id, true
	}

	verified, token, err := a.verifier.Verify(ctx, initData)
	if err != nil {
		if apiclient.IsNetwork(err) {
			log.WithError(err).Warn("Backend unreachable, continuing with id header")
			return id, true
		}
		log.WithError(err).Warn("Launch data rejected, using demo id")
		return Identity{}, false
	}
	if verified.ID != 0 {
		id.Session.UserID = verified.ID
		id.Session.User = verified
	}
	id.Session.Token = token
	id.Session.ExpiresAt = tokenExpiry(token)
	log.Info("User verified by backend")
	return id, true
}

func (a *Adapter) demoID(ctx context.Context) int64 {
	if a.storage == nil {
		return a.demoUserID
	}
	raw, ok, err := a.storage.GetItem(ctx, DemoUserIDKey)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to read stored demo user id")
		return a.demoUserID
	}
	if !ok {
		return a.demoUserID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return a.demoUserID
	}
	return id
}

// ParseInitData extracts the user from a WebView launch query string.
func ParseInitData(initData string) (*models.User, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("invalid launch data: %w", err)
	}
	raw := values.Get("user")
	if raw == "" {
		return nil, fmt.Errorf("launch data has no user")
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("invalid launch user: %w", err)
	}
	if user.ID <= 0 {
		return nil, fmt.Errorf("launch user has no id")
	}
	return &user, nil
}

// tokenExpiry reads the exp claim without checking the signature; the
// backend remains the authority on validity.
func tokenExpiry(token string) *time.Time {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
