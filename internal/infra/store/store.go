// Package store provides the durable local snapshot of the user's
// collections. It is a cache only: when a session exists the backend is
// authoritative, and failures here are logged but never surfaced to callers.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/playlist"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
)

var bucketCollections = []byte("collections")

// Fixed keys within the collections bucket.
const (
	KeyLikedSongs         = "likedSongs"
	KeyPlaylists          = "playlists"
	KeyLastLikedSongsLoad = "lastLikedSongsLoad"
)

// Store is a process-wide key-value snapshot backed by BoltDB, with an
// in-memory copy for hot-path reads. An empty cache directory selects
// memory-only mode (no persistence), which tests rely on.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string][]byte
}

// Open opens (or creates) the store under dir. Empty dir means memory-only.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "collections.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LikedSongs returns the persisted liked set, or an empty slice when the key
// is absent or unreadable.
func (s *Store) LikedSongs() []song.Song {
	var songs []song.Song
	if !s.get(KeyLikedSongs, &songs) || songs == nil {
		return []song.Song{}
	}
	return songs
}

// SaveLikedSongs persists the liked set. Best-effort.
func (s *Store) SaveLikedSongs(songs []song.Song) {
	if songs == nil {
		songs = []song.Song{}
	}
	s.put(KeyLikedSongs, songs)
}

// Playlists returns the persisted playlists, or an empty slice.
func (s *Store) Playlists() []playlist.Playlist {
	var lists []playlist.Playlist
	if !s.get(KeyPlaylists, &lists) || lists == nil {
		return []playlist.Playlist{}
	}
	return lists
}

// SavePlaylists persists the playlist set. Best-effort.
func (s *Store) SavePlaylists(lists []playlist.Playlist) {
	if lists == nil {
		lists = []playlist.Playlist{}
	}
	s.put(KeyPlaylists, lists)
}

// LastLikedSongsLoad returns when the liked set was last loaded from the
// backend, or the zero time if never.
func (s *Store) LastLikedSongsLoad() time.Time {
	var millis int64
	if !s.get(KeyLastLikedSongsLoad, &millis) || millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// SetLastLikedSongsLoad stamps the last successful remote load.
func (s *Store) SetLastLikedSongsLoad(t time.Time) {
	s.put(KeyLastLikedSongsLoad, t.UnixMilli())
}

// get reads and decodes a key. Returns false on absence or decode failure;
// decode failures are logged and treated as absence.
func (s *Store) get(key string, dest any) bool {
	s.mu.RLock()
	data, ok := s.cache[key]
	s.mu.RUnlock()

	if !ok && s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketCollections).Get([]byte(key)); v != nil {
				data = append([]byte(nil), v...)
				ok = true
			}
			return nil
		})
		if err != nil {
			zlog.Warn().Err(err).Str("key", key).Msg("Local store read failed")
			return false
		}
		if ok {
			s.mu.Lock()
			s.cache[key] = data
			s.mu.Unlock()
		}
	}

	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("Local store entry is corrupt, treating as empty")
		return false
	}
	return true
}

// put encodes and writes a key. Failures are logged, never returned: the
// in-memory state remains the truth for the session.
func (s *Store) put(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("Local store encode failed")
		return
	}

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCollections).Put([]byte(key), data)
	})
	if err != nil {
		zlog.Warn().Err(err).Str("key", key).Msg("Local store write failed")
	}
}
