package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"go.uber.org/zap"

	"github.com/ligustah/mapleads/internal/logger"
)

// ErrInvalidName is returned for names that cannot be used as an object key.
var ErrInvalidName = errors.New("export: invalid file name")

// Object describes a saved file.
type Object struct {
	Key      string
	Size     int64
	Location string
}

// Exporter writes files to a bucket.
type Exporter struct {
	bucket  *blob.Bucket
	baseURL string
	log     *zap.Logger
}

// New returns an Exporter writing to bucket. baseURL is only used to build
// human-readable locations.
func New(bucket *blob.Bucket, baseURL string, log *zap.Logger) *Exporter {
	return &Exporter{bucket: bucket, baseURL: baseURL, log: logger.OrNop(log)}
}

// Save streams r into an object named name. Only the base name is used.
func (e *Exporter) Save(ctx context.Context, name string, r io.Reader) (*Object, error) {
	key, err := objectKey(name)
	if err != nil {
		return nil, err
	}
	if ok, err := e.Exists(ctx, key); err == nil && ok {
		e.log.Info("replacing existing export", zap.String("key", key))
	}

	w, err := e.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType:        "text/csv",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", key),
	})
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", key, err)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("export: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("export: close %s: %w", key, err)
	}

	obj := &Object{Key: key, Size: n, Location: e.location(key)}
	e.log.Debug("export saved", zap.String("key", key), zap.Int64("size", n))
	return obj, nil
}

// Exists reports whether an object named name is already present.
func (e *Exporter) Exists(ctx context.Context, name string) (bool, error) {
	key, err := objectKey(name)
	if err != nil {
		return false, err
	}
	_, err = e.bucket.Attributes(ctx, key)
	if err == nil {
		return true, nil
	}
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	return false, err
}

func (e *Exporter) location(key string) string {
	base := e.baseURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		return key
	}
	return strings.TrimSuffix(base, "/") + "/" + key
}

func objectKey(name string) (string, error) {
	key := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if key == "" || key == "." || key == ".." || key == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return key, nil
}
