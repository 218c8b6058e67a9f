// Package auth adapts the surrounding application's auth subsystem to the
// query-only surface the collection manager needs.
package auth

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Adapter reports whether a session exists and which bearer token to attach.
// Implementations tolerate the auth subsystem not being initialized yet by
// returning false from HasSession until it is.
type Adapter interface {
	HasSession() bool
	CurrentToken() string
}

// StaticToken is an Adapter backed by a fixed bearer token. An empty token
// means no session (anonymous mode).
type StaticToken string

func (t StaticToken) HasSession() bool {
	return t != ""
}

func (t StaticToken) CurrentToken() string {
	return string(t)
}

// TokenSource adapts an oauth2.TokenSource (refresh-token flows, cached
// credentials) to the Adapter surface.
type TokenSource struct {
	src oauth2.TokenSource
}

// NewTokenSource wraps the given token source.
func NewTokenSource(src oauth2.TokenSource) *TokenSource {
	return &TokenSource{src: src}
}

func (a *TokenSource) HasSession() bool {
	return a.CurrentToken() != ""
}

func (a *TokenSource) CurrentToken() string {
	if a.src == nil {
		return ""
	}
	tok, err := a.src.Token()
	if err != nil {
		zlog.Debug().Err(err).Msg("Token source not ready")
		return ""
	}
	if !tok.Valid() {
		return ""
	}
	return tok.AccessToken
}

// Wait polls the adapter until a session appears, up to attempts polls spaced
// by interval. Returns true as soon as a session is seen, false once the
// attempts are exhausted: the user is then treated as anonymous.
func Wait(ctx context.Context, a Adapter, attempts int, interval time.Duration) bool {
	for i := 0; i < attempts; i++ {
		if a.HasSession() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return a.HasSession()
}
