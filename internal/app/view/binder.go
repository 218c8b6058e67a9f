// Package view projects collection state onto the embedding document's
// surfaces. The binder is the only component that touches the surfaces;
// everything else mutates state and lets the binder react.
package view

import (
	"sort"
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/collection"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/identity"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/playlist"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
)

// SidebarSurface renders the playlist list in the sidebar.
type SidebarSurface interface {
	RenderPlaylists(lists []playlist.Playlist)
}

// SongListSurface renders a song table and flips per-row liked markers.
type SongListSurface interface {
	RenderLikedSongs(songs []song.Song)
	SetRowLiked(songID string, liked bool)
}

// TrackButtonSurface is the like button next to the currently playing track.
type TrackButtonSurface interface {
	SetLiked(liked bool)
}

// Player is the external audio-player collaborator. The binder feeds it song
// lists but does not own it.
type Player interface {
	PlaySong(s song.Song)
	LoadLikedSongs(songs []song.Song)
	LoadPlaylistSongs(songs []song.Song)
	CurrentTrack() (thumbnailURL, title, artist string, ok bool)
}

// Surfaces bundles the projection targets. Any field may be nil; the binder
// skips absent surfaces.
type Surfaces struct {
	Sidebar     SidebarSurface
	SongList    SongListSurface
	TrackButton TrackButtonSurface
	Player      Player
}

// Binder observes collection state and keeps the surfaces in agreement with
// it. Re-applying an unchanged state is a no-op.
type Binder struct {
	collection *collection.Manager
	surfaces   Surfaces

	subscriptionID string

	// Changes arrive from whichever goroutine mutated the state, so
	// projections and their fingerprints are serialized under mu.
	mu            sync.Mutex
	lastLiked     string // fingerprint of the last projected liked set
	lastPlaylists string
}

// NewBinder creates a binder over the given surfaces.
func NewBinder(col *collection.Manager, surfaces Surfaces) *Binder {
	// "\x00" never matches a real fingerprint, so the first projection
	// always renders.
	return &Binder{collection: col, surfaces: surfaces, lastLiked: "\x00", lastPlaylists: "\x00"}
}

// Bind subscribes to state changes and performs the initial projection.
func (b *Binder) Bind() {
	b.subscriptionID = b.collection.Subscribe(b.onChange)
	b.ProjectAll()
}

// Close unsubscribes from state changes.
func (b *Binder) Close() {
	if b.subscriptionID != "" {
		b.collection.Unsubscribe(b.subscriptionID)
		b.subscriptionID = ""
	}
}

// ProjectAll re-projects every surface from the current state,
// unconditionally.
func (b *Binder) ProjectAll() {
	b.projectLiked("", true)
	b.projectPlaylists(true)
}

func (b *Binder) onChange(c collection.Change) {
	switch c.Kind {
	case collection.ChangeLiked:
		b.projectLiked(c.SongID, false)
	case collection.ChangePlaylists:
		b.projectPlaylists(false)
	case collection.ChangeReload:
		// Reactivated views repaint even though the snapshot is unchanged.
		b.projectLiked("", true)
	}
}

func (b *Binder) projectLiked(changedSongID string, force bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	liked := b.collection.LikedSongs()

	fp := likedFingerprint(liked)
	if !force && fp == b.lastLiked {
		zlog.Debug().Msg("Liked view unchanged, skipping re-render")
		return
	}
	b.lastLiked = fp

	if b.surfaces.SongList != nil {
		b.surfaces.SongList.RenderLikedSongs(liked)
		if changedSongID != "" {
			b.surfaces.SongList.SetRowLiked(changedSongID, b.collection.IsLiked(changedSongID))
		}
	}
	if b.surfaces.Player != nil {
		b.surfaces.Player.LoadLikedSongs(liked)
	}
	b.projectTrackButton(liked)
}

// projectTrackButton flips the current-track heart when the playing track's
// identity is affected.
func (b *Binder) projectTrackButton(liked []song.Song) {
	if b.surfaces.TrackButton == nil || b.surfaces.Player == nil {
		return
	}
	thumb, title, artist, ok := b.surfaces.Player.CurrentTrack()
	if !ok {
		b.surfaces.TrackButton.SetLiked(false)
		return
	}
	res := identity.Resolve(identity.Sources{ThumbnailURL: thumb, Title: title, Artist: artist})
	partial := song.Song{ID: res.CanonicalID, Title: title, Artist: artist}
	b.surfaces.TrackButton.SetLiked(identity.FindInCollection(partial, liked) >= 0)
}

func (b *Binder) projectPlaylists(force bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lists := b.collection.Playlists()
	sort.SliceStable(lists, func(i, j int) bool {
		return lists[i].CreatedAt < lists[j].CreatedAt
	})

	fp := playlistFingerprint(lists)
	if !force && fp == b.lastPlaylists {
		zlog.Debug().Msg("Playlist view unchanged, skipping re-render")
		return
	}
	b.lastPlaylists = fp

	if b.surfaces.Sidebar != nil {
		b.surfaces.Sidebar.RenderPlaylists(lists)
	}
}

// PlayFromPlaylist hands a playlist's songs to the player and starts the
// given entry.
func (b *Binder) PlayFromPlaylist(playlistID, songID string) {
	if b.surfaces.Player == nil {
		return
	}
	p, ok := b.collection.Playlist(playlistID)
	if !ok {
		return
	}
	b.surfaces.Player.LoadPlaylistSongs(p.Songs)
	idx := identity.FindInCollection(song.Song{ID: songID}, p.Songs)
	if idx >= 0 {
		b.surfaces.Player.PlaySong(p.Songs[idx])
	}
}

func likedFingerprint(songs []song.Song) string {
	var sb strings.Builder
	for _, s := range songs {
		sb.WriteString(s.ID)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func playlistFingerprint(lists []playlist.Playlist) string {
	var sb strings.Builder
	for _, p := range lists {
		sb.WriteString(p.ID)
		sb.WriteByte('|')
		sb.WriteString(p.Name)
		sb.WriteByte('|')
		sb.WriteString(p.Description)
		sb.WriteByte('|')
		sb.WriteString(strings.Join(p.SongIDs(), ","))
		sb.WriteByte('\n')
	}
	return sb.String()
}
