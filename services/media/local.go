package mediasvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

type localStore struct {
	dir     string
	baseURL string
}

var _ core.MediaStore = (*localStore)(nil)

// NewLocalStore writes into conf.Media.Dir; echo serves that directory under conf.Media.BaseURL.
func NewLocalStore(conf *core.Config) (core.MediaStore, error) {
	dir := conf.Media.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media dir")
	}
	return &localStore{dir: dir, baseURL: strings.TrimSuffix(conf.Media.BaseURL, "/")}, nil
}

func (s *localStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	fp := filepath.Join(s.dir, filepath.Base(name))
	f, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		if errors.Cause(err) == ErrTooLarge {
			return "", ErrTooLarge
		}
		return "", errors.Wrap(err, "writing media file")
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "closing media file")
	}
	return s.baseURL + "/" + filepath.Base(name), nil
}
