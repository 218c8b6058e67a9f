// Package collection holds the in-memory authoritative copy of the user's
// liked songs and playlists.
package collection

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/identity"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/playlist"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/store"
)

// Errors
var (
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// ChangeKind identifies which part of the state changed.
type ChangeKind int

const (
	ChangeLiked ChangeKind = iota
	ChangePlaylists
	ChangeReload // no state changed, observers must re-project anyway
)

// String returns the string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeLiked:
		return "liked"
	case ChangePlaylists:
		return "playlists"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change describes a single state change for observers.
type Change struct {
	Kind       ChangeKind
	SongID     string // identity affected, empty for bulk changes
	PlaylistID string // playlist affected, empty for liked changes
}

// Listener receives change notifications. Listeners run synchronously on the
// mutating call, after the local store write.
type Listener func(Change)

// Manager manages collection state with thread-safe access. Every mutation
// writes through to the local store and notifies listeners before returning.
type Manager struct {
	mu sync.RWMutex

	liked            []song.Song
	playlists        []playlist.Playlist
	lastRemoteSyncAt time.Time

	store *store.Store

	listenersMu sync.RWMutex
	listeners   map[string]Listener
}

// NewManager creates a manager seeded from the local store snapshot.
func NewManager(st *store.Store) *Manager {
	return &Manager{
		liked:            st.LikedSongs(),
		playlists:        st.Playlists(),
		lastRemoteSyncAt: st.LastLikedSongsLoad(),
		store:            st,
		listeners:        make(map[string]Listener),
	}
}

// Subscribe registers a change listener and returns its subscription ID.
func (m *Manager) Subscribe(l Listener) string {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	id := uuid.New().String()
	m.listeners[id] = l
	return id
}

// Unsubscribe removes a change listener.
func (m *Manager) Unsubscribe(id string) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	delete(m.listeners, id)
}

func (m *Manager) notify(c Change) {
	m.listenersMu.RLock()
	ls := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.listenersMu.RUnlock()
	for _, l := range ls {
		l(c)
	}
}

// LikedSongs returns a copy of the liked set in display order.
func (m *Manager) LikedSongs() []song.Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]song.Song, len(m.liked))
	copy(out, m.liked)
	return out
}

// IsLiked reports whether a song with the given identity is liked.
func (m *Manager) IsLiked(songID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return identity.FindInCollection(song.Song{ID: songID}, m.liked) >= 0
}

// FindLiked locates a liked member matching the partial song, or -1.
func (m *Manager) FindLiked(partial song.Song) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return identity.FindInCollection(partial, m.liked)
}

// AddLiked appends a song to the liked set. Returns false without mutating
// when a member already resolves to the same identity.
func (m *Manager) AddLiked(s song.Song) bool {
	m.mu.Lock()
	if identity.FindInCollection(s, m.liked) >= 0 {
		m.mu.Unlock()
		return false
	}
	m.liked = append(m.liked, s)
	snapshot := make([]song.Song, len(m.liked))
	copy(snapshot, m.liked)
	m.mu.Unlock()

	m.store.SaveLikedSongs(snapshot)
	m.notify(Change{Kind: ChangeLiked, SongID: s.ID})
	return true
}

// RemoveLiked removes the first member whose identity resolves to songID.
// The removed song is returned so callers can roll back.
func (m *Manager) RemoveLiked(songID string) (song.Song, bool) {
	m.mu.Lock()
	idx := identity.FindInCollection(song.Song{ID: songID}, m.liked)
	if idx < 0 {
		m.mu.Unlock()
		return song.Song{}, false
	}
	removed := m.liked[idx]
	m.liked = append(m.liked[:idx], m.liked[idx+1:]...)
	snapshot := make([]song.Song, len(m.liked))
	copy(snapshot, m.liked)
	m.mu.Unlock()

	m.store.SaveLikedSongs(snapshot)
	m.notify(Change{Kind: ChangeLiked, SongID: songID})
	return removed, true
}

// ReplaceLiked swaps in a full snapshot, dropping any duplicates by identity.
// Used by the sync controller when the remote becomes the source of truth.
func (m *Manager) ReplaceLiked(list []song.Song) {
	deduped := make([]song.Song, 0, len(list))
	for _, s := range list {
		if identity.FindInCollection(s, deduped) < 0 {
			deduped = append(deduped, s)
		}
	}

	m.mu.Lock()
	m.liked = deduped
	snapshot := make([]song.Song, len(m.liked))
	copy(snapshot, m.liked)
	m.mu.Unlock()

	m.store.SaveLikedSongs(snapshot)
	m.notify(Change{Kind: ChangeLiked})
}

// ClearLiked empties the liked set.
func (m *Manager) ClearLiked() {
	m.mu.Lock()
	m.liked = []song.Song{}
	m.mu.Unlock()

	m.store.SaveLikedSongs(nil)
	m.notify(Change{Kind: ChangeLiked})
}

// TouchLiked asks observers to re-project the liked view without changing
// any state. Views re-activated from a hidden tab use this to repaint.
func (m *Manager) TouchLiked() {
	m.notify(Change{Kind: ChangeReload})
}

// LastRemoteSyncAt returns when the liked set was last loaded from the
// backend, or the zero time if never.
func (m *Manager) LastRemoteSyncAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRemoteSyncAt
}

// SetLastRemoteSyncAt stamps a successful remote load and persists it.
func (m *Manager) SetLastRemoteSyncAt(t time.Time) {
	m.mu.Lock()
	m.lastRemoteSyncAt = t
	m.mu.Unlock()
	m.store.SetLastLikedSongsLoad(t)
}

// Playlists returns a copy of the playlist set.
func (m *Manager) Playlists() []playlist.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]playlist.Playlist, len(m.playlists))
	copy(out, m.playlists)
	return out
}

// Playlist returns a copy of the playlist with the given ID.
func (m *Manager) Playlist(playlistID string) (playlist.Playlist, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.playlists {
		if m.playlists[i].ID == playlistID {
			return m.playlists[i], true
		}
	}
	return playlist.Playlist{}, false
}

// CreatePlaylist creates and appends a new playlist.
func (m *Manager) CreatePlaylist(name, description string) (playlist.Playlist, error) {
	p, err := playlist.New(name, description)
	if err != nil {
		return playlist.Playlist{}, err
	}

	m.mu.Lock()
	// Two creations within the same millisecond would collide on the
	// timestamp-derived ID.
	for m.hasPlaylistLocked(p.ID) {
		p.CreatedAt++
		p.ID = "playlist-" + strconv.FormatInt(p.CreatedAt, 10)
	}
	m.playlists = append(m.playlists, *p)
	snapshot := make([]playlist.Playlist, len(m.playlists))
	copy(snapshot, m.playlists)
	m.mu.Unlock()

	m.store.SavePlaylists(snapshot)
	m.notify(Change{Kind: ChangePlaylists, PlaylistID: p.ID})
	return *p, nil
}

func (m *Manager) hasPlaylistLocked(playlistID string) bool {
	for i := range m.playlists {
		if m.playlists[i].ID == playlistID {
			return true
		}
	}
	return false
}

// DeletePlaylist removes a playlist by ID.
func (m *Manager) DeletePlaylist(playlistID string) error {
	m.mu.Lock()
	idx := -1
	for i := range m.playlists {
		if m.playlists[i].ID == playlistID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return ErrPlaylistNotFound
	}
	m.playlists = append(m.playlists[:idx], m.playlists[idx+1:]...)
	snapshot := make([]playlist.Playlist, len(m.playlists))
	copy(snapshot, m.playlists)
	m.mu.Unlock()

	m.store.SavePlaylists(snapshot)
	m.notify(Change{Kind: ChangePlaylists, PlaylistID: playlistID})
	return nil
}

// RenamePlaylist updates a playlist's name and description.
func (m *Manager) RenamePlaylist(playlistID, name, description string) error {
	m.mu.Lock()
	var target *playlist.Playlist
	for i := range m.playlists {
		if m.playlists[i].ID == playlistID {
			target = &m.playlists[i]
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return ErrPlaylistNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		m.mu.Unlock()
		return playlist.ErrEmptyName
	}
	target.Name = name
	target.Description = description
	snapshot := make([]playlist.Playlist, len(m.playlists))
	copy(snapshot, m.playlists)
	m.mu.Unlock()

	m.store.SavePlaylists(snapshot)
	m.notify(Change{Kind: ChangePlaylists, PlaylistID: playlistID})
	return nil
}

// AddToPlaylist appends a song to a playlist, rejecting duplicates within
// that playlist.
func (m *Manager) AddToPlaylist(playlistID string, s song.Song) error {
	m.mu.Lock()
	var target *playlist.Playlist
	for i := range m.playlists {
		if m.playlists[i].ID == playlistID {
			target = &m.playlists[i]
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return ErrPlaylistNotFound
	}
	if err := target.Add(s); err != nil {
		m.mu.Unlock()
		return err
	}
	snapshot := make([]playlist.Playlist, len(m.playlists))
	copy(snapshot, m.playlists)
	m.mu.Unlock()

	m.store.SavePlaylists(snapshot)
	m.notify(Change{Kind: ChangePlaylists, PlaylistID: playlistID, SongID: s.ID})
	return nil
}

// RemoveFromPlaylist removes a song from a playlist by identity.
func (m *Manager) RemoveFromPlaylist(playlistID, songID string) error {
	m.mu.Lock()
	var target *playlist.Playlist
	for i := range m.playlists {
		if m.playlists[i].ID == playlistID {
			target = &m.playlists[i]
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return ErrPlaylistNotFound
	}
	if err := target.Remove(songID); err != nil {
		m.mu.Unlock()
		return err
	}
	snapshot := make([]playlist.Playlist, len(m.playlists))
	copy(snapshot, m.playlists)
	m.mu.Unlock()

	m.store.SavePlaylists(snapshot)
	m.notify(Change{Kind: ChangePlaylists, PlaylistID: playlistID, SongID: songID})
	return nil
}
