package core

import (
	"context"
	"io"
)

// MediaStore keeps uploaded files and hands back their public URL.
type MediaStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (url string, err error)
}
