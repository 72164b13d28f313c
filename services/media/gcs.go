package mediasvc

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

const gcsPublicHost = "https://storage.googleapis.com"

type gcsStore struct {
	client *storage.Client
	bucket string
}

var _ core.MediaStore = (*gcsStore)(nil)

// NewGCSStore uploads to conf.Media.GCSBucket using the ambient application default credentials.
// The bucket is expected to be publicly readable.
func NewGCSStore(ctx context.Context, conf *core.Config) (core.MediaStore, func() error, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating storage client")
	}
	return &gcsStore{client: client, bucket: conf.Media.GCSBucket}, client.Close, nil
}

func (s *gcsStore) Save(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object("news/" + name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		if errors.Cause(err) == ErrTooLarge {
			return "", ErrTooLarge
		}
		return "", errors.Wrap(err, "uploading media")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "finalizing upload")
	}
	return gcsPublicHost + "/" + s.bucket + "/news/" + name, nil
}
