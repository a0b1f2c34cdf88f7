package service

import (
	"bytes"
	"context"
	"image"
	"strings"
	"testing"
	"time"

	"posterboard/internal/cache"
	"posterboard/internal/featureflags"
	"posterboard/internal/models"
	"posterboard/internal/storage"
	"posterboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances one second per call so uploads get distinct
// LastModified values.
func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newPosterService(t *testing.T, flags string) (*PosterService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemory("http://blob.local/posters")
	store.SetClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	return NewPosterService(store, nil, featureflags.NewManager(flags), 1), store
}

func TestPosterService_Upload(t *testing.T) {
	t.Parallel()

	svc, store := newPosterService(t, "poster_thumbnails=on")
	info, err := svc.Upload(context.Background(), UploadPosterInput{
		Filename: "Show.PNG",
		Content:  testutil.PNG(t, 1200, 800),
	})
	require.NoError(t, err)

	assert.Equal(t, "current_poster.png", info.Key)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, 1200, info.Width)
	assert.Equal(t, 800, info.Height)
	assert.True(t, strings.HasPrefix(info.URL, "http://blob.local/posters/current_poster.png?t="))
	assert.Contains(t, info.ThumbnailURL, PosterThumbnailKey+"?t=")

	rc, thumb, err := store.Get(context.Background(), PosterThumbnailKey)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/webp", thumb.ContentType)
	cfg, format, err := image.DecodeConfig(rc)
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, ThumbnailMaxSize, cfg.Width)
	assert.Equal(t, 320, cfg.Height)
}

func TestPosterService_Upload_Rejects(t *testing.T) {
	t.Parallel()

	svc, _ := newPosterService(t, "")
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadPosterInput{Filename: "a.png"})
	assertAppErrorCode(t, err, models.CodeValidation)

	_, err = svc.Upload(ctx, UploadPosterInput{Filename: "notes.txt", Content: []byte("just text")})
	assertAppErrorCode(t, err, models.CodeValidation)

	_, err = svc.Upload(ctx, UploadPosterInput{Filename: "big.png", Content: make([]byte, 1024*1024+1)})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestPosterService_Current(t *testing.T) {
	t.Parallel()

	svc, _ := newPosterService(t, "")
	ctx := context.Background()

	_, err := svc.Current(ctx)
	assertAppErrorCode(t, err, models.CodeNotFound)

	_, err = svc.Upload(ctx, UploadPosterInput{Filename: "first.png", Content: testutil.PNG(t, 10, 10)})
	require.NoError(t, err)
	second, err := svc.Upload(ctx, UploadPosterInput{Filename: "second.gif", ContentType: "image/png", Content: testutil.PNG(t, 20, 10)})
	require.NoError(t, err)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "current_poster.gif", current.Key)
	assert.Equal(t, second.URL, current.URL)
	assert.Equal(t, 20, current.Width)
	assert.Empty(t, current.ThumbnailURL)
}

func TestPosterService_PurgeStale(t *testing.T) {
	t.Parallel()

	svc, store := newPosterService(t, "poster_thumbnails=on")
	ctx := context.Background()

	for _, name := range []string{"a.jpg", "b.webp", "c.png"} {
		_, err := svc.Upload(ctx, UploadPosterInput{Filename: name, Content: testutil.PNG(t, 4, 4)})
		require.NoError(t, err)
	}

	removed, err := svc.PurgeStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := store.List(ctx, PosterPrefix)
	require.NoError(t, err)
	keys := make([]string, 0, len(left))
	for _, obj := range left {
		keys = append(keys, obj.Key)
	}
	assert.ElementsMatch(t, []string{"current_poster.png", PosterThumbnailKey}, keys)

	removed, err = svc.PurgeStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPosterService_CurrentIsCached(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewMemory("http://blob.local/posters")
	counting := &listCounter{BlobStore: store}
	svc := NewPosterService(counting, cache.NewStore(rdb), featureflags.NewManager(""), 1)
	ctx := context.Background()

	_, err := store.Put(ctx, "current_poster.png", "image/png", bytes.NewReader(testutil.PNG(t, 3, 3)), -1)
	require.NoError(t, err)

	first, err := svc.Current(ctx)
	require.NoError(t, err)
	second, err := svc.Current(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 1, counting.posterLists)
	assert.True(t, mr.Exists(posterCacheKey))
}

type listCounter struct {
	storage.BlobStore
	posterLists int
}

func (l *listCounter) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if prefix == PosterPrefix {
		l.posterLists++
	}
	return l.BlobStore.List(ctx, prefix)
}
