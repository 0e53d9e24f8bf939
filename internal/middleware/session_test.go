package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-s-yu/menupick/internal/auth"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionEcho(t *testing.T, sessions *auth.Sessions) http.Handler {
	logger, _ := logtest.NewNullLogger()
	return Session(sessions, false, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := SessionID(r.Context())
		require.True(t, ok)
		w.Write([]byte(id))
	}))
}

func TestSessionIssuesCookie(t *testing.T) {
	sessions, err := auth.NewSessions("secret", time.Hour)
	require.NoError(t, err)
	h := sessionEcho(t, sessions)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	sessionID, err := sessions.AuthenticateJWT(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, sessionID, w.Body.String())
}

func TestSessionReusesValidCookie(t *testing.T) {
	sessions, err := auth.NewSessions("secret", time.Hour)
	require.NoError(t, err)
	h := sessionEcho(t, sessions)

	token, err := sessions.CreateJWT("S1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "S1", w.Body.String())
	assert.Empty(t, w.Result().Cookies(), "a valid cookie is not reissued")
}

func TestSessionReplacesForgedCookie(t *testing.T) {
	sessions, err := auth.NewSessions("secret", time.Hour)
	require.NoError(t, err)
	other, err := auth.NewSessions("other-secret", time.Hour)
	require.NoError(t, err)
	h := sessionEcho(t, sessions)

	forged, err := other.CreateJWT("S1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: forged})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.NotEqual(t, "S1", w.Body.String())
	assert.Len(t, w.Result().Cookies(), 1)
}
