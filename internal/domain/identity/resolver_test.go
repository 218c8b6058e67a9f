package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
)

func TestResolve_TieBreakOrder(t *testing.T) {
	tests := []struct {
		name       string
		src        Sources
		expectedID string
		confidence Confidence
	}{
		{
			name:       "existing id wins",
			src:        Sources{Existing: "99", StreamURL: "/api/stream/1"},
			expectedID: "99",
			confidence: ConfidenceHigh,
		},
		{
			name:       "stream url",
			src:        Sources{StreamURL: "/api/stream/123"},
			expectedID: "123",
			confidence: ConfidenceHigh,
		},
		{
			name:       "stream url beats thumbnail url",
			src:        Sources{StreamURL: "/api/stream/123", ThumbnailURL: "/api/thumbnail/456"},
			expectedID: "123",
			confidence: ConfidenceHigh,
		},
		{
			name:       "thumbnail url",
			src:        Sources{ThumbnailURL: "/api/thumbnail/42"},
			expectedID: "42",
			confidence: ConfidenceHigh,
		},
		{
			name:       "thumbnail url with query",
			src:        Sources{ThumbnailURL: "https://host/api/thumbnail/abc123?w=300"},
			expectedID: "abc123",
			confidence: ConfidenceHigh,
		},
		{
			name:       "external storage thumbnail",
			src:        Sources{ThumbnailURL: "https://storage.example.com/thumbnails/777.png"},
			expectedID: "777",
			confidence: ConfidenceHigh,
		},
		{
			name:       "static audio path",
			src:        Sources{StreamURL: "/static/audio/555.mp3"},
			expectedID: "555",
			confidence: ConfidenceHigh,
		},
		{
			name:       "numeric image filename",
			src:        Sources{ThumbnailURL: "https://img.example.com/covers/88.jpg"},
			expectedID: "88",
			confidence: ConfidenceMedium,
		},
		{
			name:       "any digits as last pattern",
			src:        Sources{StreamURL: "https://cdn2.example.com/files/song.mp3"},
			expectedID: "2",
			confidence: ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(tt.src)
			assert.Equal(t, tt.expectedID, res.CanonicalID)
			assert.Equal(t, tt.confidence, res.Confidence)
		})
	}
}

func TestResolve_Synthetic(t *testing.T) {
	src := Sources{ThumbnailURL: "/static/images/placeholder.png", Title: "T", Artist: "A"}

	res := Resolve(src)
	assert.Equal(t, ConfidenceSynthetic, res.Confidence)
	assert.True(t, res.Synthetic())
	assert.NotEmpty(t, res.CanonicalID)

	// Deterministic: the same sources always produce the same ID.
	again := Resolve(src)
	assert.Equal(t, res.CanonicalID, again.CanonicalID)

	// Different sources produce a different ID.
	other := Resolve(Sources{Title: "Other", Artist: "A"})
	assert.NotEqual(t, res.CanonicalID, other.CanonicalID)
}

func TestFindInCollection(t *testing.T) {
	collection := []song.Song{
		{ID: "7", Title: "Song A", Artist: "Artist B"},
		{ID: "8", Title: "Song C", Artist: "Artist D"},
	}

	tests := []struct {
		name     string
		partial  song.Song
		expected int
	}{
		{name: "exact id", partial: song.Song{ID: "8"}, expected: 1},
		{name: "slug match regardless of id", partial: song.Song{ID: "999", Title: "Song A", Artist: "Artist B"}, expected: 0},
		{name: "title artist pair", partial: song.Song{Title: "Song C", Artist: "Artist D"}, expected: 1},
		{name: "title only as last resort", partial: song.Song{Title: "Song A", Artist: "Someone Else"}, expected: 0},
		{name: "no match", partial: song.Song{ID: "999", Title: "Nope", Artist: "Nobody"}, expected: -1},
		{name: "empty partial", partial: song.Song{}, expected: -1},
		{name: "sentinel title never matches by title", partial: song.Song{Title: song.UnknownTitle}, expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindInCollection(tt.partial, collection))
		})
	}
}

func TestSame(t *testing.T) {
	a := song.Song{ID: "7", Title: "Song A", Artist: "Artist B"}
	b := song.Song{ID: "7", Title: "Different", Artist: "Different"}
	c := song.Song{ID: "9", Title: "Song X", Artist: "Artist Y"}

	assert.True(t, Same(a, b))
	assert.False(t, Same(a, c))
}
