package media

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/logging"
)

// DurationProber reads the playable duration of a local media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Uploader moves request-scoped multipart files into the media store. The
// local temporary copy is removed on every path, success or failure.
type Uploader struct {
	store  Store
	prober DurationProber
	tmpDir string
	logger *slog.Logger
}

// NewUploader constructs an Uploader writing temp files under tmpDir (the OS
// temp directory when empty).
func NewUploader(store Store, prober DurationProber, tmpDir string, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{store: store, prober: prober, tmpDir: tmpDir, logger: logger}
}

// UploadOptions controls how a single asset upload behaves.
type UploadOptions struct {
	// KeyPrefix namespaces the object key, e.g. "videos" or "avatars".
	KeyPrefix string
	// ProbeDuration runs ffprobe against the local copy before uploading.
	ProbeDuration bool
}

// Upload spools the multipart file to local disk, optionally probes its
// duration, and persists it in the media store.
func (u *Uploader) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, opts UploadOptions) (Asset, error) {
	if u == nil || u.store == nil {
		return Asset{}, ErrStoreUnavailable
	}

	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()

	tmp, err := os.CreateTemp(u.tmpDir, "upload-*"+sanitizeExt(header.Filename))
	if err != nil {
		return Asset{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.FromContext(ctx).Warn("remove temp upload", "path", tmpPath, "error", removeErr)
		}
	}()

	size, err := tmp.ReadFrom(file)
	if err != nil {
		tmp.Close()
		return Asset{}, fmt.Errorf("spool upload to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Asset{}, fmt.Errorf("flush temp upload: %w", err)
	}

	asset := Asset{Size: size}

	if opts.ProbeDuration && u.prober != nil {
		duration, err := u.prober.Duration(ctx, tmpPath)
		if err != nil {
			// A missing duration should not lose the upload.
			logging.FromContext(ctx).Warn("probe media duration", "file", header.Filename, "error", err)
		} else {
			asset.Duration = duration
		}
	}

	key := objectKey(opts.KeyPrefix, header.Filename)

	local, err := os.Open(tmpPath)
	if err != nil {
		return Asset{}, fmt.Errorf("reopen temp upload: %w", err)
	}
	defer local.Close()

	url, storedKey, err := u.store.Save(ctx, key, local)
	if err != nil {
		return Asset{}, fmt.Errorf("store media asset: %w", err)
	}

	asset.URL = url
	asset.Key = storedKey
	return asset, nil
}

func objectKey(prefix, filename string) string {
	name := uuid.NewString() + sanitizeExt(filename)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		return ""
	}
	return ext
}
