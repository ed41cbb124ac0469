package host

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/storage"
	"github.com/Kerhoff/wishlist/pkg/logger"
)

type stubVerifier struct {
	user  *models.User
	token string
	err   error
	calls int
}

func (v *stubVerifier) Verify(context.Context, string) (*models.User, string, error) {
	v.calls++
	return v.user, v.token, v.err
}

func initData(userJSON string) string {
	return url.Values{
		"query_id":  {"AAE"},
		"user":      {userJSON},
		"auth_date": {"1716200000"},
		"hash":      {"abc"},
	}.Encode()
}

func newStorage(t *testing.T) storage.LocalStorage {
	t.Helper()
	ls, err := storage.NewFile(filepath.Join(t.TempDir(), "ls.yaml"))
	require.NoError(t, err)
	return ls
}

func TestResolveUser_FromInitDataWithVerify(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "647859651",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	v := &stubVerifier{user: &models.User{ID: 647859651, Username: "kate"}, token: token}
	a := NewAdapter(v, newStorage(t), 123456, logger.Discard())

	id, err := a.ResolveUser(context.Background(), LaunchData{InitData: initData(`{"id":647859651,"first_name":"Kate","username":"kate"}`)})
	require.NoError(t, err)

	assert.Equal(t, int64(647859651), id.Session.UserID)
	assert.False(t, id.Session.Demo)
	assert.Equal(t, token, id.Session.Token)
	require.NotNil(t, id.Session.ExpiresAt)
	assert.True(t, exp.Equal(*id.Session.ExpiresAt))
	assert.True(t, id.Chrome.Expand)
	assert.Equal(t, HeaderColor, id.Chrome.HeaderColor)
	assert.Equal(t, 1, v.calls)
}

func TestResolveUser_UnreachableBackendKeepsHostUser(t *testing.T) {
	v := &stubVerifier{err: &apiclient.NetworkError{Method: "POST", Path: "/auth/verify", Err: errors.New("connection refused")}}
	a := NewAdapter(v, newStorage(t), 123456, logger.Discard())

	id, err := a.ResolveUser(context.Background(), LaunchData{InitData: initData(`{"id":42,"first_name":"Ann"}`)})
	require.NoError(t, err)

	assert.Equal(t, int64(42), id.Session.UserID)
	assert.Empty(t, id.Session.Token)
	assert.Nil(t, id.Session.ExpiresAt)
	assert.False(t, id.Session.Demo)
}

func TestResolveUser_RejectedLaunchDataIsDemo(t *testing.T) {
	rejections := []error{
		&apiclient.RequestFailedError{Status: 403, Message: "invalid hash"},
		apiclient.ErrSessionExpired,
		fmt.Errorf("%w: missing %q", apiclient.ErrMalformedResponse, "user"),
	}

	for _, rejection := range rejections {
		v := &stubVerifier{err: rejection}
		a := NewAdapter(v, newStorage(t), 123456, logger.Discard())

		id, err := a.ResolveUser(context.Background(), LaunchData{InitData: initData(`{"id":999,"first_name":"Mallory"}`)})
		require.NoError(t, err)

		assert.True(t, id.Session.Demo, "%v", rejection)
		assert.Equal(t, int64(123456), id.Session.UserID, "%v", rejection)
		assert.Nil(t, id.Session.User)
		assert.Empty(t, id.Session.Token)
	}
}

func TestResolveUser_DemoFallback(t *testing.T) {
	ls := newStorage(t)
	a := NewAdapter(nil, ls, 123456, logger.Discard())
	ctx := context.Background()

	id, err := a.ResolveUser(ctx, LaunchData{})
	require.NoError(t, err)
	assert.True(t, id.Session.Demo)
	assert.Equal(t, int64(123456), id.Session.UserID)
	assert.False(t, id.Chrome.Expand)

	id, err = a.ResolveUser(ctx, LaunchData{InitData: "query_id=1&hash=x"})
	require.NoError(t, err)
	assert.True(t, id.Session.Demo)

	require.NoError(t, ls.SetItem(ctx, DemoUserIDKey, "647859651"))
	id, err = a.ResolveUser(ctx, LaunchData{})
	require.NoError(t, err)
	assert.Equal(t, int64(647859651), id.Session.UserID)

	require.NoError(t, ls.SetItem(ctx, DemoUserIDKey, "not-a-number"))
	id, err = a.ResolveUser(ctx, LaunchData{})
	require.NoError(t, err)
	assert.Equal(t, int64(123456), id.Session.UserID)
}

func TestResolveUser_TrustedUserSkipsVerify(t *testing.T) {
	v := &stubVerifier{}
	a := NewAdapter(v, newStorage(t), 123456, logger.Discard())

	id, err := a.ResolveUser(context.Background(), LaunchData{Trusted: &models.User{ID: 9, Username: "bot_user"}})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id.Session.UserID)
	assert.False(t, id.Session.Demo)
	assert.Zero(t, v.calls)
}

func TestParseInitData(t *testing.T) {
	_, err := ParseInitData("user=%7Bbroken")
	assert.Error(t, err)

	_, err = ParseInitData(initData(`{"id":0}`))
	assert.Error(t, err)

	u, err := ParseInitData(initData(`{"id":5,"first_name":"Ivan","last_name":"Petrov"}`))
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", u.FullName())
}

func TestTokenExpiry(t *testing.T) {
	assert.Nil(t, tokenExpiry(""))
	assert.Nil(t, tokenExpiry("not.a.jwt"))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, tokenExpiry(noExp))
}
