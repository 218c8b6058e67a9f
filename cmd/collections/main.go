// Package main provides a command-line harness around the collection
// manager, useful for poking the backend and the local cache by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/collection"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/like"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/notification"
	appsync "github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/sync"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/view"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/playlist"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/api"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/auth"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/config"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/logger"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/store"
)

var (
	app        = kingpin.New("collections", "Liked-songs and playlist manager")
	configPath = app.Flag("config", "Path to config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	listCmd = app.Command("list", "Show liked songs (refreshing from the server when stale)")

	likeCmd       = app.Command("like", "Toggle the like state of a track")
	likeTitle     = likeCmd.Flag("title", "Track title").String()
	likeArtist    = likeCmd.Flag("artist", "Track artist").String()
	likeThumbnail = likeCmd.Flag("thumbnail", "Thumbnail URL").String()
	likeStream    = likeCmd.Flag("stream", "Stream URL").String()

	unlikeCmd    = app.Command("unlike", "Remove a song from liked songs")
	unlikeSongID = unlikeCmd.Arg("song-id", "Song ID").Required().String()

	clearCmd = app.Command("clear", "Clear all liked songs")

	playlistsCmd = app.Command("playlists", "Show playlists")

	createCmd  = app.Command("create-playlist", "Create a playlist")
	createName = createCmd.Arg("name", "Playlist name").Required().String()
	createDesc = createCmd.Flag("description", "Playlist description").String()

	addCmd      = app.Command("add-to-playlist", "Add a liked song to a playlist")
	addPlaylist = addCmd.Arg("playlist-id", "Playlist ID").Required().String()
	addSongID   = addCmd.Arg("song-id", "Song ID").Required().String()
)

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stderr", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := loadConfig()
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(command, cfg); err != nil {
		zlog.Error().Msgf("Command failed: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.Default()
}

// run wires the components and dispatches the command. A separate function
// ensures defers run before the process exits.
func run(command string, cfg *config.Config) error {
	st, err := store.Open(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	defer st.Close()

	authAdapter := auth.StaticToken(cfg.Server.Token)

	client, err := api.New(api.Config{
		BaseURL:        cfg.Server.BaseURL,
		RequestTimeout: cfg.Server.RequestTimeout(),
		LoadTimeout:    cfg.Server.LoadTimeout(),
		MaxRetries:     cfg.Server.MaxRetries,
		RetryBackoff:   cfg.Server.RetryBackoff(),
	}, authAdapter)
	if err != nil {
		return err
	}

	col := collection.NewManager(st)

	notifier := notification.NewManager()
	defer notifier.Close()
	notifier.Subscribe(notification.SinkFunc(func(n notification.Notice) {
		fmt.Printf("[%s] %s\n", n.Level, n.Message)
	}))

	coordinator := like.NewCoordinator(col, client, authAdapter, notifier, like.Config{
		Debounce:      time.Duration(cfg.Like.DebounceMs) * time.Millisecond,
		Cooldown:      0, // no accidental double-clicks on a CLI
		ProgressDelay: time.Duration(cfg.Like.ProgressDelayMs) * time.Millisecond,
	})
	defer coordinator.Close()

	controller := appsync.NewController(col, st, client, authAdapter, coordinator, appsync.Config{
		FreshnessWindow:  cfg.Sync.FreshnessWindow(),
		AuthPollAttempts: 1, // the token is static, no need to wait for it
		AuthPollInterval: time.Duration(cfg.Sync.AuthPollIntervalMs) * time.Millisecond,
	})

	binder := view.NewBinder(col, view.Surfaces{
		Sidebar:  consoleSidebar{},
		SongList: consoleSongList{},
	})
	binder.Bind()
	defer binder.Close()

	ctx := context.Background()
	if err := controller.Bootstrap(ctx); err != nil {
		zlog.Warn().Err(err).Msg("Bootstrap sync failed, showing local state")
	}

	switch command {
	case listCmd.FullCommand():
		printLiked(col.LikedSongs())
		return nil
	case likeCmd.FullCommand():
		return coordinator.ToggleCurrent(ctx, like.CurrentTrack{
			Title:        *likeTitle,
			Artist:       *likeArtist,
			ThumbnailURL: *likeThumbnail,
			StreamURL:    *likeStream,
		})
	case unlikeCmd.FullCommand():
		return coordinator.UnlikeRow(ctx, *unlikeSongID)
	case clearCmd.FullCommand():
		return coordinator.Clear(ctx)
	case playlistsCmd.FullCommand():
		printPlaylists(col.Playlists())
		return nil
	case createCmd.FullCommand():
		p, err := col.CreatePlaylist(*createName, *createDesc)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (%s)\n", p.Name, p.ID)
		return nil
	case addCmd.FullCommand():
		idx := col.FindLiked(song.Song{ID: *addSongID})
		if idx < 0 {
			return fmt.Errorf("song %s is not in liked songs", *addSongID)
		}
		return col.AddToPlaylist(*addPlaylist, col.LikedSongs()[idx])
	default:
		return nil
	}
}

func printLiked(songs []song.Song) {
	if len(songs) == 0 {
		fmt.Println("No liked songs")
		return
	}
	for _, s := range songs {
		fmt.Printf("%-8s %-40s %-24s %s\n", s.ID, s.Title, s.Artist, s.Album)
	}
	fmt.Printf("%d songs\n", len(songs))
}

func printPlaylists(lists []playlist.Playlist) {
	if len(lists) == 0 {
		fmt.Println("No playlists")
		return
	}
	for _, p := range lists {
		fmt.Printf("%-28s %-30s %d songs\n", p.ID, p.Name, len(p.Songs))
	}
}

// Console surfaces keep the binder exercised; a real embedding provides DOM
// projections instead.

type consoleSidebar struct{}

func (consoleSidebar) RenderPlaylists(lists []playlist.Playlist) {
	zlog.Debug().Int("count", len(lists)).Msg("Sidebar re-rendered")
}

type consoleSongList struct{}

func (consoleSongList) RenderLikedSongs(songs []song.Song) {
	zlog.Debug().Int("count", len(songs)).Msg("Liked view re-rendered")
}

func (consoleSongList) SetRowLiked(songID string, liked bool) {
	zlog.Debug().Str("songId", songID).Bool("liked", liked).Msg("Row liked state updated")
}
