package like

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/collection"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/notification"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/identity"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/api"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/auth"
)

// Errors
var (
	ErrClickIgnored = errors.New("click ignored") // debounced or gate busy
)

// Remote is the subset of the backend client the coordinator needs.
type Remote interface {
	Like(ctx context.Context, songID string) error
	Unlike(ctx context.Context, songID string) error
	ClearLiked(ctx context.Context) error
}

// CurrentTrack describes whatever the player surface knows about the track
// being played. All fields are optional; Empty reports a missing track.
type CurrentTrack struct {
	StreamURL    string
	ThumbnailURL string
	Title        string
	Artist       string
	Album        string
	Duration     float64
}

// Empty reports whether no track is playing.
func (t CurrentTrack) Empty() bool {
	return t.StreamURL == "" && t.ThumbnailURL == "" && t.Title == ""
}

// Config holds coordinator timing configuration.
type Config struct {
	Debounce      time.Duration // minimum spacing between accepted gestures
	Cooldown      time.Duration // Busy hold-down after a toggle completes
	ProgressDelay time.Duration // delay before the in-progress notice fires
}

// Coordinator serializes like/unlike operations. At most one operation is in
// flight globally; gestures arriving while Busy are dropped.
type Coordinator struct {
	mu        sync.Mutex
	state     State
	lastClick time.Time

	cooldownCancel func()
	idleWaiters    []func()

	collection *collection.Manager
	remote     Remote
	auth       auth.Adapter
	notifier   *notification.Manager
	config     Config

	eventCh chan Event
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(col *collection.Manager, remote Remote, authAdapter auth.Adapter, notifier *notification.Manager, cfg Config) *Coordinator {
	if cfg.ProgressDelay <= 0 {
		cfg.ProgressDelay = 500 * time.Millisecond
	}
	return &Coordinator{
		state:      StateIdle,
		collection: col,
		remote:     remote,
		auth:       authAdapter,
		notifier:   notifier,
		config:     cfg,
		eventCh:    make(chan Event, 10),
	}
}

// Events returns the event channel.
func (c *Coordinator) Events() <-chan Event {
	return c.eventCh
}

// GetState returns the current gate state.
func (c *Coordinator) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RunWhenIdle runs fn immediately if the gate is Idle, otherwise defers it
// until the gate next becomes Idle. Used by the sync controller so a remote
// refresh never clobbers a pending optimistic change. The gate stays held
// while fn runs, so a toggle cannot start mid-run; fn must not call back
// into the coordinator.
func (c *Coordinator) RunWhenIdle(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		c.idleWaiters = append(c.idleWaiters, fn)
		return
	}
	fn()
}

// ToggleCurrent flips the liked state of the currently playing track,
// applying the change optimistically and rolling back if the backend rejects
// it. Returns ErrClickIgnored for debounced or gated clicks.
func (c *Coordinator) ToggleCurrent(ctx context.Context, track CurrentTrack) error {
	now := time.Now()

	c.mu.Lock()
	if c.config.Debounce > 0 && !c.lastClick.IsZero() && now.Sub(c.lastClick) < c.config.Debounce {
		c.mu.Unlock()
		return ErrClickIgnored
	}
	c.lastClick = now
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrClickIgnored
	}
	c.state = StateBusy
	c.sendEventLocked(Event{Type: EventStateChanged, State: StateBusy})
	c.mu.Unlock()

	if track.Empty() {
		c.notifier.Broadcast(notification.LevelInfo, "No song is currently playing")
		c.release(false)
		return nil
	}

	err := c.toggle(ctx, track)
	c.release(true)
	return err
}

func (c *Coordinator) toggle(ctx context.Context, track CurrentTrack) error {
	res := identity.Resolve(identity.Sources{
		StreamURL:    track.StreamURL,
		ThumbnailURL: track.ThumbnailURL,
		Title:        track.Title,
		Artist:       track.Artist,
	})

	partial := song.Song{
		ID:           res.CanonicalID,
		Title:        track.Title,
		Artist:       track.Artist,
		Album:        track.Album,
		Duration:     track.Duration,
		ThumbnailURL: track.ThumbnailURL,
		Synthetic:    res.Synthetic(),
	}
	partial.Normalize()

	// An existing member may carry a different ID for the same song, so the
	// match uses every field of the partial, not just the resolved ID.
	idx := c.collection.FindLiked(partial)
	wasLiked := idx >= 0

	var removed song.Song
	if wasLiked {
		liked := c.collection.LikedSongs()
		target := liked[idx]
		removed, _ = c.collection.RemoveLiked(target.ID)
	} else {
		c.collection.AddLiked(partial)
	}
	nowLiked := !wasLiked

	// Synthetic IDs stay local-only; anonymous sessions likewise.
	if res.Synthetic() || !c.auth.HasSession() {
		zlog.Debug().Str("songId", res.CanonicalID).Str("confidence", res.Confidence.String()).Msg("Toggle applied locally only")
		c.broadcastResult(nowLiked, nil)
		c.sendEvent(Event{Type: EventToggleCommitted, SongID: res.CanonicalID, Liked: nowLiked})
		return nil
	}

	remoteID := res.CanonicalID
	if wasLiked && removed.ID != "" && !removed.Synthetic {
		// Prefer the stored member's ID; the gesture's surfaces may have
		// resolved a weaker identifier for the same song.
		remoteID = removed.ID
	}

	progressCancel := c.startProgressTimer()
	var err error
	if nowLiked {
		err = c.remote.Like(ctx, remoteID)
	} else {
		err = c.remote.Unlike(ctx, remoteID)
	}
	progressCancel()

	if err != nil {
		// Roll back the optimistic change.
		if wasLiked {
			c.collection.AddLiked(removed)
		} else {
			c.collection.RemoveLiked(res.CanonicalID)
		}
		zlog.Warn().Err(err).Str("songId", remoteID).Msg("Toggle rejected by server, rolled back")
		c.broadcastResult(nowLiked, err)
		c.sendEvent(Event{Type: EventToggleRolledBack, SongID: remoteID, Liked: wasLiked})
		return err
	}

	c.broadcastResult(nowLiked, nil)
	c.sendEvent(Event{Type: EventToggleCommitted, SongID: remoteID, Liked: nowLiked})
	return nil
}

// UnlikeRow removes a liked song from a list row. Unlike the toggle, this
// path updates the backend first and only applies locally on success: the
// user's intent is unambiguous, so a failed call leaves the row in place.
func (c *Coordinator) UnlikeRow(ctx context.Context, songID string) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrClickIgnored
	}
	c.state = StateBusy
	c.sendEventLocked(Event{Type: EventStateChanged, State: StateBusy})
	c.mu.Unlock()

	err := c.unlikeRow(ctx, songID)
	c.release(false)
	return err
}

func (c *Coordinator) unlikeRow(ctx context.Context, songID string) error {
	idx := c.collection.FindLiked(song.Song{ID: songID})
	if idx < 0 {
		return nil
	}
	member := c.collection.LikedSongs()[idx]

	if c.auth.HasSession() && !member.Synthetic {
		progressCancel := c.startProgressTimer()
		err := c.remote.Unlike(ctx, member.ID)
		progressCancel()
		if err != nil {
			zlog.Warn().Err(err).Str("songId", member.ID).Msg("Row unlike rejected by server")
			c.broadcastResult(false, err)
			return err
		}
	}

	c.collection.RemoveLiked(member.ID)
	c.broadcastResult(false, nil)
	c.sendEvent(Event{Type: EventToggleCommitted, SongID: member.ID, Liked: false})
	return nil
}

// Clear empties the liked set, backend first when a session exists.
func (c *Coordinator) Clear(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrClickIgnored
	}
	c.state = StateBusy
	c.sendEventLocked(Event{Type: EventStateChanged, State: StateBusy})
	c.mu.Unlock()

	var err error
	if c.auth.HasSession() {
		err = c.remote.ClearLiked(ctx)
	}
	if err == nil {
		c.collection.ClearLiked()
		c.notifier.Broadcast(notification.LevelSuccess, "Liked Songs cleared")
	} else {
		c.notifier.Broadcast(notification.LevelError, "Couldn't clear Liked Songs. Please try again.")
	}
	c.release(false)
	return err
}

// release ends the Busy phase. With cooldown, the gate stays Busy for the
// configured hold-down so an accidental double-click lands on a closed gate.
func (c *Coordinator) release(withCooldown bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if withCooldown && c.config.Cooldown > 0 {
		timer := time.AfterFunc(c.config.Cooldown, c.becomeIdle)
		c.cooldownCancel = func() { timer.Stop() }
		return
	}
	c.becomeIdleLocked()
}

func (c *Coordinator) becomeIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.becomeIdleLocked()
}

func (c *Coordinator) becomeIdleLocked() {
	c.cooldownCancel = nil

	// Deferred work runs before the gate reopens, so a new toggle cannot
	// slip in between the Idle transition and the deferred swap.
	waiters := c.idleWaiters
	c.idleWaiters = nil
	for _, fn := range waiters {
		fn()
	}

	c.state = StateIdle
	c.sendEventLocked(Event{Type: EventStateChanged, State: StateIdle})
}

// Close cancels a pending cool-down and reopens the gate immediately. It has
// no effect while an operation is still in flight.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooldownCancel != nil {
		c.cooldownCancel()
		c.becomeIdleLocked()
	}
}

// startProgressTimer schedules the in-progress notice and returns its cancel
// function. The notice fires only if the remote call outlives the delay.
func (c *Coordinator) startProgressTimer() func() {
	timer := time.AfterFunc(c.config.ProgressDelay, func() {
		c.notifier.Broadcast(notification.LevelProgress, "Updating Liked Songs...")
	})
	return func() { timer.Stop() }
}

func (c *Coordinator) broadcastResult(nowLiked bool, err error) {
	switch {
	case err == nil && nowLiked:
		c.notifier.Broadcast(notification.LevelSuccess, "Added to Liked Songs")
	case err == nil:
		c.notifier.Broadcast(notification.LevelSuccess, "Removed from Liked Songs")
	case errors.Is(err, api.ErrUnauthorized):
		c.notifier.Broadcast(notification.LevelError, "Your session expired. Please sign in again.")
	default:
		c.notifier.Broadcast(notification.LevelError, "Couldn't update Liked Songs. Please try again.")
	}
}

func (c *Coordinator) sendEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendEventLocked(e)
}

// sendEventLocked sends without blocking; a full channel drops the event.
func (c *Coordinator) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
	default:
	}
}
