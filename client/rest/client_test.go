package restclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CrafterTA/UnityWallet-sub002/client"
	restclient "github.com/CrafterTA/UnityWallet-sub002/client/rest"
)

const testPublicKey = "02a1633cafcc01ebfb6d78e39f687a1f0995c62fc95f51ead10a02ee0be551b5dc"

// fakeAuthServer implements the auth contract over a session cookie, the way
// the real backend binds calls to the session channel.
type fakeAuthServer struct {
	token     string
	expiresAt time.Time
	loggedIn  bool
}

func (s *fakeAuthServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if body["password_verified"] != true || body["public_key"] == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.loggedIn = true
		http.SetCookie(w, &http.Cookie{Name: "session", Value: s.token})
		s.writeSession(w)
	})
	mux.HandleFunc("GET /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.writeSession(w)
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.token += "-rotated"
		http.SetCookie(w, &http.Cookie{Name: "session", Value: s.token})
		s.writeSession(w)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		s.loggedIn = false
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (s *fakeAuthServer) authorized(r *http.Request) bool {
	cookie, err := r.Cookie("session")
	return s.loggedIn && err == nil && cookie.Value == s.token
}

func (s *fakeAuthServer) writeSession(w http.ResponseWriter) {
	// nolint:errcheck
	json.NewEncoder(w).Encode(map[string]any{
		"session_token": s.token,
		"expires_at":    s.expiresAt.Unix(),
		"public_key":    testPublicKey,
	})
}

func TestAuthFlow(t *testing.T) {
	ctx := context.Background()
	backend := &fakeAuthServer{token: "tok-1", expiresAt: time.Now().Add(time.Hour)}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	authClient, err := restclient.NewClient(server.URL)
	require.NoError(t, err)
	defer authClient.Close()

	// Verify before login rides no cookie and is rejected.
	_, err = authClient.Verify(ctx)
	require.ErrorIs(t, err, client.ErrSessionRejected)

	descriptor, err := authClient.Login(ctx, testPublicKey)
	require.NoError(t, err)
	require.Equal(t, "tok-1", descriptor.SessionToken)
	require.Equal(t, testPublicKey, descriptor.OwnerPublicKey)
	require.Equal(t, backend.expiresAt.Unix(), descriptor.ExpiresAt.Unix())

	// The cookie jar carries the session; no token goes out on the request.
	descriptor, err = authClient.Verify(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1", descriptor.SessionToken)

	descriptor, err = authClient.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1-rotated", descriptor.SessionToken)

	// The rotated cookie keeps verifying.
	descriptor, err = authClient.Verify(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-1-rotated", descriptor.SessionToken)

	require.NoError(t, authClient.Logout(ctx))
	_, err = authClient.Verify(ctx)
	require.ErrorIs(t, err, client.ErrSessionRejected)
}

func TestConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	authClient, err := restclient.NewClient(serverURL)
	require.NoError(t, err)

	_, err = authClient.Verify(context.Background())
	require.ErrorIs(t, err, client.ErrConnectionFailed)
}

func TestOversizedResponseRejected(t *testing.T) {
	// A misbehaving endpoint streaming an enormous body must produce a parse
	// error, not an unbounded read.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// nolint:errcheck
		w.Write([]byte(`{"session_token":"`))
		filler := bytes.Repeat([]byte("a"), 64*1024)
		for i := 0; i < 40; i++ {
			// nolint:errcheck
			w.Write(filler)
		}
		// nolint:errcheck
		w.Write([]byte(`"}`))
	}))
	defer server.Close()

	authClient, err := restclient.NewClient(server.URL)
	require.NoError(t, err)
	defer authClient.Close()

	_, err = authClient.Verify(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, client.ErrConnectionFailed)
}

func TestMissingServerURL(t *testing.T) {
	_, err := restclient.NewClient("")
	require.Error(t, err)
}
