package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"posterboard/internal/cache"
	"posterboard/internal/featureflags"
	"posterboard/internal/models"
	"posterboard/internal/observability"
	"posterboard/internal/storage"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp" // Register BMP decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// PosterPrefix names the single poster slot. The object key carries the
	// uploaded file's extension, so several may exist until the janitor runs.
	PosterPrefix       = "current_poster"
	PosterThumbnailKey = "current_poster_thumb.webp"

	DefaultMaxPosterMB = 20
	ThumbnailMaxSize   = 480
	ThumbnailQuality   = 70

	posterCacheKey = "poster:current"
	posterCacheTTL = 5 * time.Minute
)

var extByType = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/x-icon":  "ico",
	"image/svg+xml": "svg",
}

type UploadPosterInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

type PosterService struct {
	store    storage.BlobStore
	cache    *cache.Store
	flags    *featureflags.Manager
	maxBytes int64
}

func NewPosterService(store storage.BlobStore, cacheStore *cache.Store, flags *featureflags.Manager, maxPosterMB int) *PosterService {
	if maxPosterMB <= 0 {
		maxPosterMB = DefaultMaxPosterMB
	}
	return &PosterService{
		store:    store,
		cache:    cacheStore,
		flags:    flags,
		maxBytes: int64(maxPosterMB) * 1024 * 1024,
	}
}

// Upload replaces the current poster. The write is an upsert on
// current_poster.<ext>; last write wins.
func (s *PosterService) Upload(ctx context.Context, in UploadPosterInput) (info *models.PosterInfo, err error) {
	ctx, span := observability.StartSpan(ctx, "poster", "upload")
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		observability.PosterUploads.WithLabelValues(result).Inc()
		observability.EndSpan(span, err)
	}()

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	contentType := detectImageType(in.Content, in.ContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, models.NewValidationError("Only image files can be used as the poster")
	}

	key := PosterPrefix + "." + posterExt(in.Filename, contentType)
	span.SetAttributes(observability.AttrPoster.String(key))
	obj, err := s.store.Put(ctx, key, contentType, bytes.NewReader(in.Content), int64(len(in.Content)))
	if err != nil {
		return nil, fmt.Errorf("put poster: %w", err)
	}

	info = s.describe(obj)
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Content)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	if s.flags.On(featureflags.PosterThumbnails) {
		if thumb, err := s.writeThumbnail(ctx, in.Content); err != nil {
			slog.WarnContext(ctx, "poster thumbnail failed", "key", key, "error", err)
		} else {
			info.ThumbnailURL = s.versionedURL(thumb)
		}
	}

	if err := s.cache.SetJSON(ctx, posterCacheKey, info, posterCacheTTL); err != nil {
		slog.WarnContext(ctx, "poster cache write failed", "error", err)
	}
	return info, nil
}

// Current returns the newest current_poster object, or NOT_FOUND when no
// poster has been uploaded.
func (s *PosterService) Current(ctx context.Context) (*models.PosterInfo, error) {
	var info models.PosterInfo
	err := s.cache.Aside(ctx, posterCacheKey, &info, posterCacheTTL, func() error {
		objects, err := s.posterObjects(ctx)
		if err != nil {
			return err
		}
		if len(objects) == 0 {
			return models.NewNotFoundError("Poster", PosterPrefix)
		}

		current := s.describe(objects[0])
		current.Width, current.Height = s.dimensions(ctx, objects[0].Key)
		if thumbs, err := s.store.List(ctx, PosterThumbnailKey); err == nil && len(thumbs) > 0 {
			current.ThumbnailURL = s.versionedURL(thumbs[0])
		}
		info = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// PurgeStale removes every poster object except the newest. Objects pile up
// when consecutive uploads use different extensions.
func (s *PosterService) PurgeStale(ctx context.Context) (int, error) {
	objects, err := s.posterObjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(objects) <= 1 {
		return 0, nil
	}

	removed := 0
	for _, obj := range objects[1:] {
		if err := s.store.Remove(ctx, obj.Key); err != nil {
			return removed, fmt.Errorf("remove %s: %w", obj.Key, err)
		}
		removed++
	}
	observability.PosterObjectsPurged.Add(float64(removed))
	if err := s.cache.Delete(ctx, posterCacheKey); err != nil {
		slog.WarnContext(ctx, "poster cache invalidation failed", "error", err)
	}
	return removed, nil
}

// posterObjects lists poster objects newest first, thumbnail excluded.
func (s *PosterService) posterObjects(ctx context.Context) ([]storage.ObjectInfo, error) {
	all, err := s.store.List(ctx, PosterPrefix)
	if err != nil {
		return nil, fmt.Errorf("list posters: %w", err)
	}
	objects := all[:0]
	for _, obj := range all {
		if obj.Key == PosterThumbnailKey {
			continue
		}
		objects = append(objects, obj)
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

func (s *PosterService) describe(obj storage.ObjectInfo) *models.PosterInfo {
	return &models.PosterInfo{
		Key:         obj.Key,
		URL:         s.versionedURL(obj),
		ContentType: obj.ContentType,
		Size:        obj.Size,
		UpdatedAt:   obj.LastModified,
	}
}

// versionedURL appends ?t=<unix ms> so a replaced poster is not served from
// a stale browser cache.
func (s *PosterService) versionedURL(obj storage.ObjectInfo) string {
	return s.store.PublicURL(obj.Key) + "?t=" + strconv.FormatInt(obj.LastModified.UnixMilli(), 10)
}

func (s *PosterService) dimensions(ctx context.Context, key string) (int, int) {
	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, 0
	}
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func (s *PosterService) writeThumbnail(ctx context.Context, content []byte) (storage.ObjectInfo, error) {
	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resizeToFit(src, ThumbnailMaxSize, ThumbnailMaxSize), &webp.Options{Quality: ThumbnailQuality}); err != nil {
		return storage.ObjectInfo{}, err
	}
	return s.store.Put(ctx, PosterThumbnailKey, "image/webp", buf, int64(buf.Len()))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// detectImageType sniffs the content. A client-declared image type is used
// when sniffing cannot tell, since SVG is text to the sniffer.
func detectImageType(content []byte, declared string) string {
	detected := http.DetectContentType(content)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "image/svg+xml" {
		return declared
	}
	return detected
}

func posterExt(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext != "" && !strings.ContainsAny(ext, "/\\?#") {
		return ext
	}
	if e, ok := extByType[contentType]; ok {
		return e
	}
	return "img"
}
