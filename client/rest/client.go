package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/CrafterTA/UnityWallet-sub002/client"
	"github.com/CrafterTA/UnityWallet-sub002/types"
)

// maxResponseBytes caps auth response bodies; session payloads are tiny and
// anything larger is a misbehaving endpoint.
const maxResponseBytes = 1 << 20

type restClient struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new REST client for the auth service. A cookie jar
// binds every call to the session channel so the token does not have to be
// echoed by the caller.
func NewClient(serverURL string) (client.AuthClient, error) {
	if len(serverURL) <= 0 {
		return nil, fmt.Errorf("missing server url")
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	reqTimeout := 15 * time.Second

	return &restClient{serverURL, &http.Client{Jar: jar, Timeout: reqTimeout}}, nil
}

type sessionResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresAt    int64  `json:"expires_at"`
	PublicKey    string `json:"public_key"`
}

func (d sessionResponse) decode() *types.SessionDescriptor {
	return &types.SessionDescriptor{
		SessionToken:   d.SessionToken,
		ExpiresAt:      time.Unix(d.ExpiresAt, 0),
		OwnerPublicKey: d.PublicKey,
	}
}

func (a *restClient) Login(
	ctx context.Context, publicKey string,
) (*types.SessionDescriptor, error) {
	body := map[string]any{
		"public_key":        publicKey,
		"password_verified": true,
	}
	resp := &sessionResponse{}
	if err := a.call(ctx, http.MethodPost, "/auth/login", body, resp); err != nil {
		return nil, err
	}
	if resp.PublicKey != "" {
		if _, err := types.PublicKeyFromHex(resp.PublicKey); err != nil {
			return nil, fmt.Errorf("auth service returned malformed public key: %w", err)
		}
	}
	return resp.decode(), nil
}

func (a *restClient) Verify(ctx context.Context) (*types.SessionDescriptor, error) {
	resp := &sessionResponse{}
	if err := a.call(ctx, http.MethodGet, "/auth/verify", nil, resp); err != nil {
		return nil, err
	}
	return resp.decode(), nil
}

func (a *restClient) Refresh(ctx context.Context) (*types.SessionDescriptor, error) {
	resp := &sessionResponse{}
	if err := a.call(ctx, http.MethodPost, "/auth/refresh", nil, resp); err != nil {
		return nil, err
	}
	return resp.decode(), nil
}

func (a *restClient) Logout(ctx context.Context) error {
	return a.call(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (a *restClient) Close() {
	a.httpClient.CloseIdleConnections()
}

func (a *restClient) call(
	ctx context.Context, method, path string, body any, out any,
) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.serverURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", client.ErrConnectionFailed, err)
	}
	// nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return client.ErrSessionRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to parse auth response: %w", err)
	}
	return nil
}
