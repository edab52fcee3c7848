package media

import (
	"context"
	"errors"
	"io"
)

// Asset describes a durably stored media object.
type Asset struct {
	URL      string
	Key      string
	Duration float64
	Size     int64
}

// Store abstracts the object store holding media assets.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (url, key string, err error)
	Delete(ctx context.Context, key string) error
}

// ErrStoreUnavailable indicates the media store dependency was not wired.
var ErrStoreUnavailable = errors.New("media store unavailable")
