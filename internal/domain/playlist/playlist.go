// Package playlist provides the Playlist domain entity.
package playlist

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/identity"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
)

// Errors
var (
	ErrEmptyName     = errors.New("playlist name is empty")
	ErrDuplicateSong = errors.New("song already in playlist")
	ErrSongNotFound  = errors.New("song not in playlist")
)

// Playlist represents a user-named ordered collection of songs.
type Playlist struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Songs       []song.Song `json:"songs"`
	CreatedAt   int64       `json:"createdAt"` // milliseconds since epoch, display sort only
}

// New creates a playlist with a locally generated ID. The name must be
// non-empty after trimming.
func New(name, description string) (*Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	now := time.Now().UnixMilli()
	return &Playlist{
		ID:          "playlist-" + strconv.FormatInt(now, 10),
		Name:        name,
		Description: description,
		Songs:       []song.Song{},
		CreatedAt:   now,
	}, nil
}

// Add appends a song, rejecting it if a member already resolves to the same
// identity.
func (p *Playlist) Add(s song.Song) error {
	if identity.FindInCollection(s, p.Songs) >= 0 {
		return ErrDuplicateSong
	}
	p.Songs = append(p.Songs, s)
	return nil
}

// Remove deletes the first song whose identity resolves to songID.
func (p *Playlist) Remove(songID string) error {
	idx := identity.FindInCollection(song.Song{ID: songID}, p.Songs)
	if idx < 0 {
		return ErrSongNotFound
	}
	p.Songs = append(p.Songs[:idx], p.Songs[idx+1:]...)
	return nil
}

// Contains reports whether a song with the given identity is a member.
func (p *Playlist) Contains(songID string) bool {
	return identity.FindInCollection(song.Song{ID: songID}, p.Songs) >= 0
}

// SongIDs returns all song IDs in order.
func (p *Playlist) SongIDs() []string {
	ids := make([]string, len(p.Songs))
	for i, s := range p.Songs {
		ids[i] = s.ID
	}
	return ids
}

// TotalDuration returns the summed duration of all songs in seconds.
func (p *Playlist) TotalDuration() float64 {
	var total float64
	for _, s := range p.Songs {
		total += s.Duration
	}
	return total
}
