// Package sync decides when the backend becomes the source of truth for the
// liked set and drains it into collection state.
package sync

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/collection"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/auth"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/store"
)

// Remote is the subset of the backend client the controller needs.
type Remote interface {
	LoadLiked(ctx context.Context) ([]song.Song, time.Duration, error)
}

// Gate defers work while a like operation is in flight, so a refresh never
// overwrites a pending optimistic change.
type Gate interface {
	RunWhenIdle(fn func())
}

// Config holds sync controller configuration.
type Config struct {
	FreshnessWindow  time.Duration // how long a remote load stays fresh
	AuthPollAttempts int           // polls before concluding the user is anonymous
	AuthPollInterval time.Duration
}

// Controller reacts to bootstrap, session transitions, and view activation.
type Controller struct {
	collection *collection.Manager
	store      *store.Store
	remote     Remote
	auth       auth.Adapter
	gate       Gate
	config     Config

	mu            sync.Mutex
	window        time.Duration // effective freshness window (server may advertise one)
	authenticated bool
}

// NewController creates a new sync controller.
func NewController(col *collection.Manager, st *store.Store, remote Remote, authAdapter auth.Adapter, gate Gate, cfg Config) *Controller {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 5 * time.Minute
	}
	if cfg.AuthPollAttempts <= 0 {
		cfg.AuthPollAttempts = 5
	}
	if cfg.AuthPollInterval <= 0 {
		cfg.AuthPollInterval = 1 * time.Second
	}
	return &Controller{
		collection: col,
		store:      st,
		remote:     remote,
		auth:       authAdapter,
		gate:       gate,
		config:     cfg,
		window:     cfg.FreshnessWindow,
	}
}

// Bootstrap runs the page-load sequence: the local snapshot is already the
// display; if a session is present and the last load is stale, the remote set
// is fetched behind it. The auth subsystem may still be initializing, so the
// adapter is polled before concluding the user is anonymous.
func (c *Controller) Bootstrap(ctx context.Context) error {
	hasSession := auth.Wait(ctx, c.auth, c.config.AuthPollAttempts, c.config.AuthPollInterval)

	c.mu.Lock()
	c.authenticated = hasSession
	window := c.window
	c.mu.Unlock()

	if !hasSession {
		zlog.Info().Msg("No session, collections run in local-only mode")
		return nil
	}

	last := c.collection.LastRemoteSyncAt()
	if !last.IsZero() && time.Since(last) < window {
		zlog.Debug().Time("lastLoad", last).Msg("Liked songs cache is fresh, skipping remote load")
		return nil
	}
	return c.refresh(ctx, false)
}

// HandleSessionChange reacts to the auth subsystem gaining or losing a
// session.
func (c *Controller) HandleSessionChange(ctx context.Context, authenticated bool) error {
	c.mu.Lock()
	was := c.authenticated
	c.authenticated = authenticated
	c.mu.Unlock()

	switch {
	case authenticated && !was:
		// The remote becomes authoritative, but an empty remote set does not
		// erase songs the user liked while signed out.
		return c.refresh(ctx, true)
	case !authenticated && was:
		// Fall back to the local snapshot without contacting the backend.
		c.gate.RunWhenIdle(func() {
			c.collection.ReplaceLiked(c.store.LikedSongs())
		})
		return nil
	default:
		return nil
	}
}

// ActivateLikedView re-projects the liked view and refreshes from the
// backend in the background when authenticated.
func (c *Controller) ActivateLikedView(ctx context.Context) {
	// The view may have been hidden while the snapshot stayed identical, so
	// the repaint must bypass the binder's unchanged-state skip.
	c.collection.TouchLiked()

	c.mu.Lock()
	authenticated := c.authenticated
	c.mu.Unlock()
	if !authenticated {
		return
	}
	go func() {
		if err := c.refresh(ctx, false); err != nil {
			zlog.Warn().Err(err).Msg("Background liked-songs refresh failed")
		}
	}()
}

// refresh loads the remote liked set and swaps it in once the like gate is
// idle. With preserveLocalOnEmpty, a non-empty local set survives an empty
// remote result.
func (c *Controller) refresh(ctx context.Context, preserveLocalOnEmpty bool) error {
	songs, maxAge, err := c.remote.LoadLiked(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("Failed to load liked songs from server, keeping local state")
		return err
	}

	if maxAge > 0 {
		c.mu.Lock()
		c.window = maxAge
		c.mu.Unlock()
	}

	now := time.Now()
	if len(songs) == 0 && preserveLocalOnEmpty && len(c.collection.LikedSongs()) > 0 {
		zlog.Info().Msg("Server liked set is empty, preserving local songs")
		c.collection.SetLastRemoteSyncAt(now)
		return nil
	}

	c.gate.RunWhenIdle(func() {
		c.collection.ReplaceLiked(songs)
		c.collection.SetLastRemoteSyncAt(now)
	})
	zlog.Info().Int("count", len(songs)).Msg("Loaded liked songs from server")
	return nil
}
