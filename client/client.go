// Package client defines the transport contract with the session-issuance
// backend. The backend is a black box to the SDK: it issues, confirms,
// refreshes and revokes session tokens, and everything else about it is an
// implementation detail of the deployment.
package client

import (
	"context"
	"errors"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

const (
	// RestClient is the supported transport type.
	RestClient = "rest"
)

var (
	// ErrConnectionFailed is returned when the backend could not be reached
	// at all. Callers must not infer anything about session validity from it.
	ErrConnectionFailed = errors.New("auth service connection failed")

	// ErrSessionRejected is returned when the backend explicitly refused the
	// current session.
	ErrSessionRejected = errors.New("session rejected by auth service")
)

// AuthClient is the session endpoint contract consumed by the credential
// broker. All calls ride on the client's own cookie channel, so the raw token
// only appears in the response bodies where the contract requires it.
type AuthClient interface {
	// Login exchanges a locally verified password check for a fresh session.
	// The password itself never goes over the wire; the request only asserts
	// that verification happened.
	Login(ctx context.Context, publicKey string) (*types.SessionDescriptor, error)
	// Verify re-confirms the current session and returns its token.
	// Idempotent.
	Verify(ctx context.Context) (*types.SessionDescriptor, error)
	// Refresh rotates the session token.
	Refresh(ctx context.Context) (*types.SessionDescriptor, error)
	// Logout revokes the session server-side.
	Logout(ctx context.Context) error
	Close()
}
