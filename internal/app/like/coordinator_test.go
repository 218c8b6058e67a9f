package like

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/collection"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/app/notification"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/domain/song"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/api"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/auth"
	"github.com/DiegoLigtenberg/spotify-v3-sub001/internal/infra/store"
)

// fakeRemote records calls and can fail or block on demand.
type fakeRemote struct {
	mu      sync.Mutex
	likes   []string
	unlikes []string
	clears  int
	err     error
	block   chan struct{} // when set, mutations wait until closed
}

func (f *fakeRemote) Like(ctx context.Context, songID string) error {
	return f.record(&f.likes, songID)
}

func (f *fakeRemote) Unlike(ctx context.Context, songID string) error {
	return f.record(&f.unlikes, songID)
}

func (f *fakeRemote) ClearLiked(ctx context.Context) error {
	f.mu.Lock()
	f.clears++
	err := f.err
	f.mu.Unlock()
	return err
}

func (f *fakeRemote) record(calls *[]string, songID string) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	*calls = append(*calls, songID)
	return f.err
}

func (f *fakeRemote) likeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.likes...)
}

func (f *fakeRemote) unlikeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unlikes...)
}

// noticeRecorder collects broadcast notices.
type noticeRecorder struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (r *noticeRecorder) Show(n notification.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) byLevel(level notification.Level) []notification.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notice
	for _, n := range r.notices {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	coordinator *Coordinator
	collection  *collection.Manager
	store       *store.Store
	remote      *fakeRemote
	notices     *noticeRecorder
}

func newFixture(t *testing.T, token auth.StaticToken, cfg Config) *fixture {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	col := collection.NewManager(st)
	remote := &fakeRemote{}
	notices := &noticeRecorder{}
	notifier := notification.NewManager()
	t.Cleanup(notifier.Close)
	notifier.Subscribe(notices)

	return &fixture{
		coordinator: NewCoordinator(col, remote, token, notifier, cfg),
		collection:  col,
		store:       st,
		remote:      remote,
		notices:     notices,
	}
}

var currentTrack7 = CurrentTrack{ThumbnailURL: "/api/thumbnail/7", Title: "T", Artist: "A"}

func TestToggle_LikeSuccess(t *testing.T) {
	f := newFixture(t, "tok", Config{})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))

	liked := f.collection.LikedSongs()
	require.Len(t, liked, 1)
	assert.Equal(t, "7", liked[0].ID)
	assert.Equal(t, "T", liked[0].Title)
	assert.Equal(t, "A", liked[0].Artist)

	assert.Equal(t, []string{"7"}, f.remote.likeCalls())
	assert.Equal(t, liked, f.store.LikedSongs())
	assert.NotEmpty(t, f.notices.byLevel(notification.LevelSuccess))
}

func TestToggle_UnlikeSuccess(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "T", Artist: "A", Album: "L"})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))

	assert.Empty(t, f.collection.LikedSongs())
	assert.Equal(t, []string{"7"}, f.remote.unlikeCalls())
	assert.Empty(t, f.store.LikedSongs())
}

func TestToggle_RollbackOnLikeFailure(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.remote.err = api.ErrServerUnavailable

	err := f.coordinator.ToggleCurrent(context.Background(), currentTrack7)
	assert.Error(t, err)

	assert.Empty(t, f.collection.LikedSongs())
	assert.Empty(t, f.store.LikedSongs())
	assert.Len(t, f.notices.byLevel(notification.LevelError), 1)
}

func TestToggle_RollbackOnUnlikeFailure(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "T", Artist: "A", Album: "L"})
	f.remote.err = api.ErrServerUnavailable

	err := f.coordinator.ToggleCurrent(context.Background(), currentTrack7)
	assert.Error(t, err)

	liked := f.collection.LikedSongs()
	require.Len(t, liked, 1)
	assert.Equal(t, "7", liked[0].ID)
	assert.Equal(t, liked, f.store.LikedSongs())
}

func TestToggle_UnauthorizedNotice(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.remote.err = api.ErrUnauthorized

	assert.Error(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))
	assert.Empty(t, f.collection.LikedSongs())

	errs := f.notices.byLevel(notification.LevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "sign in")
}

func TestToggle_AnonymousIsLocalOnly(t *testing.T) {
	f := newFixture(t, "", Config{})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))

	assert.Len(t, f.collection.LikedSongs(), 1)
	assert.Empty(t, f.remote.likeCalls())
	assert.Equal(t, f.collection.LikedSongs(), f.store.LikedSongs())
}

func TestToggle_SyntheticIsLocalOnly(t *testing.T) {
	f := newFixture(t, "tok", Config{})

	track := CurrentTrack{ThumbnailURL: "/static/images/placeholder.png", Title: "T", Artist: "A"}
	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), track))

	liked := f.collection.LikedSongs()
	require.Len(t, liked, 1)
	assert.True(t, liked[0].Synthetic)
	assert.Empty(t, f.remote.likeCalls())
}

func TestToggle_NoCurrentTrack(t *testing.T) {
	f := newFixture(t, "tok", Config{})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), CurrentTrack{}))

	assert.Empty(t, f.collection.LikedSongs())
	assert.Empty(t, f.remote.likeCalls())
	assert.NotEmpty(t, f.notices.byLevel(notification.LevelInfo))
	assert.Equal(t, StateIdle, f.coordinator.GetState())
}

func TestToggle_MatchesExistingByTitleArtist(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "Song A", Artist: "Artist B", Album: "L"})

	// Only text fields available: resolves synthetically but still matches
	// the stored member, so the toggle removes it locally.
	track := CurrentTrack{Title: "Song A", Artist: "Artist B"}
	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), track))

	assert.Empty(t, f.collection.LikedSongs())
	assert.Empty(t, f.remote.unlikeCalls())
}

func TestToggle_Debounce(t *testing.T) {
	f := newFixture(t, "tok", Config{Debounce: 200 * time.Millisecond})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))
	assert.ErrorIs(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7), ErrClickIgnored)

	// Only the first gesture reached the backend.
	assert.Equal(t, []string{"7"}, f.remote.likeCalls())
}

func TestToggle_BusyGateDropsSecondClick(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.remote.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.coordinator.ToggleCurrent(context.Background(), currentTrack7)
	}()

	require.Eventually(t, func() bool {
		return f.coordinator.GetState() == StateBusy
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7), ErrClickIgnored)

	close(f.remote.block)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"7"}, f.remote.likeCalls())
}

func TestToggle_CooldownHoldsGate(t *testing.T) {
	f := newFixture(t, "tok", Config{Cooldown: 30 * time.Millisecond})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))
	assert.Equal(t, StateBusy, f.coordinator.GetState())

	assert.Eventually(t, func() bool {
		return f.coordinator.GetState() == StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestToggle_ProgressNotice(t *testing.T) {
	f := newFixture(t, "tok", Config{ProgressDelay: 10 * time.Millisecond})
	f.remote.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.coordinator.ToggleCurrent(context.Background(), currentTrack7)
	}()

	assert.Eventually(t, func() bool {
		return len(f.notices.byLevel(notification.LevelProgress)) > 0
	}, time.Second, time.Millisecond)

	close(f.remote.block)
	require.NoError(t, <-done)
}

func TestRunWhenIdle(t *testing.T) {
	f := newFixture(t, "tok", Config{})

	// Idle gate runs immediately.
	ran := false
	f.coordinator.RunWhenIdle(func() { ran = true })
	assert.True(t, ran)
}

func TestRunWhenIdle_DefersWhileBusy(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.remote.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.coordinator.ToggleCurrent(context.Background(), currentTrack7)
	}()
	require.Eventually(t, func() bool {
		return f.coordinator.GetState() == StateBusy
	}, time.Second, time.Millisecond)

	var mu sync.Mutex
	ran := false
	f.coordinator.RunWhenIdle(func() {
		mu.Lock()
		defer mu.Unlock()
		ran = true
	})

	mu.Lock()
	assert.False(t, ran)
	mu.Unlock()

	close(f.remote.block)
	require.NoError(t, <-done)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran
	}, time.Second, time.Millisecond)
}

func TestRunWhenIdle_HoldsGateWhileRunning(t *testing.T) {
	f := newFixture(t, "tok", Config{})

	entered := make(chan struct{})
	finish := make(chan struct{})
	swapped := make(chan struct{})
	go func() {
		f.coordinator.RunWhenIdle(func() {
			close(entered)
			<-finish
			f.collection.ReplaceLiked(nil)
		})
		close(swapped)
	}()
	<-entered

	// A gesture arriving while the deferred swap is still running must wait
	// for it, so the stale snapshot can never erase the newer toggle.
	done := make(chan error, 1)
	go func() {
		done <- f.coordinator.ToggleCurrent(context.Background(), currentTrack7)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.remote.likeCalls())

	close(finish)
	<-swapped
	require.NoError(t, <-done)

	assert.True(t, f.collection.IsLiked("7"))
	assert.Equal(t, []string{"7"}, f.remote.likeCalls())
}

func TestClose_CancelsPendingCooldown(t *testing.T) {
	f := newFixture(t, "tok", Config{Cooldown: time.Minute})

	require.NoError(t, f.coordinator.ToggleCurrent(context.Background(), currentTrack7))
	require.Equal(t, StateBusy, f.coordinator.GetState())

	f.coordinator.Close()
	assert.Equal(t, StateIdle, f.coordinator.GetState())
}

func TestUnlikeRow_RemoteFirst(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "A", Artist: "X", Album: "L"})
	f.remote.err = api.ErrServerUnavailable

	// The backend rejects the call, so the row stays.
	assert.Error(t, f.coordinator.UnlikeRow(context.Background(), "7"))
	assert.True(t, f.collection.IsLiked("7"))

	f.remote.err = nil
	require.NoError(t, f.coordinator.UnlikeRow(context.Background(), "7"))
	assert.False(t, f.collection.IsLiked("7"))
	assert.Equal(t, []string{"7", "7"}, f.remote.unlikeCalls())
}

func TestUnlikeRow_Anonymous(t *testing.T) {
	f := newFixture(t, "", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "A", Artist: "X", Album: "L"})
	f.collection.AddLiked(song.Song{ID: "8", Title: "B", Artist: "Y", Album: "L"})

	require.NoError(t, f.coordinator.UnlikeRow(context.Background(), "7"))

	liked := f.collection.LikedSongs()
	require.Len(t, liked, 1)
	assert.Equal(t, "8", liked[0].ID)
	assert.Empty(t, f.remote.unlikeCalls())
	assert.Equal(t, liked, f.store.LikedSongs())
}

func TestUnlikeRow_UnknownSongIsNoop(t *testing.T) {
	f := newFixture(t, "tok", Config{})

	require.NoError(t, f.coordinator.UnlikeRow(context.Background(), "404"))
	assert.Empty(t, f.remote.unlikeCalls())
}

func TestClear(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "A", Artist: "X", Album: "L"})

	require.NoError(t, f.coordinator.Clear(context.Background()))
	assert.Empty(t, f.collection.LikedSongs())
	assert.Equal(t, 1, f.remote.clears)
}

func TestClear_FailureKeepsState(t *testing.T) {
	f := newFixture(t, "tok", Config{})
	f.collection.AddLiked(song.Song{ID: "7", Title: "A", Artist: "X", Album: "L"})
	f.remote.err = api.ErrServerUnavailable

	assert.Error(t, f.coordinator.Clear(context.Background()))
	assert.Len(t, f.collection.LikedSongs(), 1)
}
