// Package identity resolves canonical song identity from heterogeneous
// identifiers exposed by different UI surfaces.
package identity

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
)

// Confidence expresses how trustworthy a resolved ID is.
type Confidence int

const (
	ConfidenceSynthetic Confidence = iota // locally generated, never sent remotely
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the string representation of the confidence level.
func (c Confidence) String() string {
	switch c {
	case ConfidenceSynthetic:
		return "synthetic"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Sources carries whatever identifiers a caller has for a song. All fields
// are optional.
type Sources struct {
	StreamURL    string
	ThumbnailURL string
	Title        string
	Artist       string
	Existing     string // previously resolved canonical ID, if any
}

// Resolution is the outcome of resolving Sources.
type Resolution struct {
	CanonicalID string
	Confidence  Confidence
}

// Synthetic reports whether the ID is local-only and must not be sent to the
// backend.
func (r Resolution) Synthetic() bool {
	return r.Confidence == ConfidenceSynthetic
}

var (
	reStreamID      = regexp.MustCompile(`/api/stream/(\d+)`)
	reThumbnailID   = regexp.MustCompile(`/api/thumbnail/([^/?#]+)`)
	reStorageThumb  = regexp.MustCompile(`/thumbnails/([^.]+)\.png`)
	reStaticAudio   = regexp.MustCompile(`/static/audio/([^.]+)`)
	reImageFilename = regexp.MustCompile(`/(\d+)\.(jpg|png)$`)
	reAnyDigits     = regexp.MustCompile(`\d+`)
)

// Resolve maps the available identifiers to a canonical song ID, trying the
// most reliable source first. It never fails: when nothing matches it falls
// back to a deterministic synthetic ID.
func Resolve(src Sources) Resolution {
	if src.Existing != "" {
		return Resolution{CanonicalID: src.Existing, Confidence: ConfidenceHigh}
	}
	if m := reStreamID.FindStringSubmatch(src.StreamURL); m != nil {
		return Resolution{CanonicalID: m[1], Confidence: ConfidenceHigh}
	}
	if m := reThumbnailID.FindStringSubmatch(src.ThumbnailURL); m != nil {
		return Resolution{CanonicalID: m[1], Confidence: ConfidenceHigh}
	}
	if m := reStorageThumb.FindStringSubmatch(src.ThumbnailURL); m != nil {
		return Resolution{CanonicalID: m[1], Confidence: ConfidenceHigh}
	}
	if m := reStaticAudio.FindStringSubmatch(src.StreamURL); m != nil {
		return Resolution{CanonicalID: m[1], Confidence: ConfidenceHigh}
	}
	if m := reImageFilename.FindStringSubmatch(src.ThumbnailURL); m != nil {
		return Resolution{CanonicalID: m[1], Confidence: ConfidenceMedium}
	}
	for _, u := range []string{src.StreamURL, src.ThumbnailURL} {
		if m := reAnyDigits.FindString(u); m != "" {
			return Resolution{CanonicalID: m, Confidence: ConfidenceLow}
		}
	}
	return Resolution{CanonicalID: syntheticID(src), Confidence: ConfidenceSynthetic}
}

// syntheticID derives a stable positive 32-bit hash from whatever sources
// are present, so repeated resolutions of the same surface agree.
func syntheticID(src Sources) string {
	h := fnv.New32a()
	h.Write([]byte(src.StreamURL))
	h.Write([]byte(src.ThumbnailURL))
	h.Write([]byte(src.Title + "|" + src.Artist))
	return strconv.FormatUint(uint64(h.Sum32()&0x7fffffff), 10)
}

// FindInCollection locates the member of collection that is the same song as
// partial, or -1. Matching falls back from canonical ID to the title-artist
// slug to the exact title/artist pair and finally to title alone.
func FindInCollection(partial song.Song, collection []song.Song) int {
	if partial.ID != "" {
		for i := range collection {
			if collection[i].ID == partial.ID {
				return i
			}
		}
	}

	title := strings.TrimSpace(partial.Title)
	if title == "" || title == song.UnknownTitle {
		return -1
	}

	slug := partial.Slug()
	for i := range collection {
		if collection[i].Slug() == slug {
			return i
		}
	}
	for i := range collection {
		if collection[i].Title == partial.Title && collection[i].Artist == partial.Artist {
			return i
		}
	}
	for i := range collection {
		if collection[i].Title == partial.Title {
			return i
		}
	}
	return -1
}

// Same reports whether two songs resolve to the same identity.
func Same(a, b song.Song) bool {
	return FindInCollection(a, []song.Song{b}) == 0
}
