// Package song provides the Song domain entity.
package song

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Sentinel values used when a producer could not supply a field.
const (
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// Song represents a single track as known to the collection manager.
// Every producer normalizes into this shape exactly once, at the boundary.
type Song struct {
	ID           string  `json:"id" mapstructure:"id"`
	Title        string  `json:"title" mapstructure:"title"`
	Artist       string  `json:"artist" mapstructure:"artist"`
	Album        string  `json:"album" mapstructure:"album"`
	Duration     float64 `json:"duration" mapstructure:"duration"` // seconds, 0 if unknown
	ThumbnailURL string  `json:"thumbnailUrl" mapstructure:"thumbnailUrl"`
	Synthetic    bool    `json:"synthetic,omitempty" mapstructure:"synthetic"` // ID is locally generated, never sent remotely
}

// ServerSong is the wire shape returned by the backend (snake_case fields).
type ServerSong struct {
	ID           json.Number `json:"id"`
	Title        string      `json:"title"`
	Artist       string      `json:"artist"`
	Album        string      `json:"album"`
	Duration     float64     `json:"duration"`
	ThumbnailURL string      `json:"thumbnail_url"`
}

// FromServer converts a server DTO to the canonical Song shape.
func FromServer(dto ServerSong) Song {
	s := Song{
		ID:           dto.ID.String(),
		Title:        dto.Title,
		Artist:       dto.Artist,
		Album:        dto.Album,
		Duration:     dto.Duration,
		ThumbnailURL: dto.ThumbnailURL,
	}
	s.Normalize()
	return s
}

// FromRecord converts a loosely-typed record (scraped DOM dataset, legacy
// persisted entry) to a Song. Keys may be camelCase or snake_case and values
// may be strings where numbers are expected.
func FromRecord(record map[string]any) (Song, error) {
	flat := make(map[string]any, len(record))
	for k, v := range record {
		// mapstructure matches field names case-insensitively but not
		// across underscores, so fold snake_case keys first.
		flat[strings.ReplaceAll(k, "_", "")] = v
	}

	var s Song
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Song{}, errors.Wrap(err, "failed to build song decoder")
	}
	if err := dec.Decode(flat); err != nil {
		return Song{}, errors.Wrap(err, "failed to decode song record")
	}
	s.Normalize()
	return s, nil
}

// Normalize fills sentinel values for missing fields and clamps the duration.
func (s *Song) Normalize() {
	if strings.TrimSpace(s.Title) == "" {
		s.Title = UnknownTitle
	}
	if strings.TrimSpace(s.Artist) == "" {
		s.Artist = UnknownArtist
	}
	if strings.TrimSpace(s.Album) == "" {
		s.Album = UnknownAlbum
	}
	if s.Duration < 0 {
		s.Duration = 0
	}
}

// ThumbnailOrDefault returns the song's thumbnail URL, deriving the
// conventional backend path when none was supplied.
func (s *Song) ThumbnailOrDefault() string {
	if s.ThumbnailURL != "" {
		return s.ThumbnailURL
	}
	return "/api/thumbnail/" + s.ID
}

// Slug returns the synthetic title-artist slug used for identity matching
// when no canonical ID is available.
func (s *Song) Slug() string {
	return Slugify(s.Title + "-" + s.Artist)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the input and collapses runs of non-alphanumeric
// characters into single dashes.
func Slugify(v string) string {
	v = strings.ToLower(v)
	v = slugStrip.ReplaceAllString(v, "-")
	return strings.Trim(v, "-")
}
