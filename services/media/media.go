// Package mediasvc stores images uploaded from the news editor.
package mediasvc

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

var (
	ErrUnsupportedType = errors.New("only png, jpeg, gif and webp images are allowed")
	ErrTooLarge        = errors.New("file is too large")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload is the result of a stored image.
type Upload struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Markdown string `json:"markdown"`
}

// Save sniffs the image type of r, stores it under a random name and returns the markdown to insert.
// The declared content type is ignored.
func Save(ctx context.Context, store core.MediaStore, origName string, r io.Reader, maxSize int64) (Upload, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return Upload{}, errors.Wrap(err, "reading upload")
	}
	ct := http.DetectContentType(head)
	ext, ok := extensions[ct]
	if !ok {
		return Upload{}, ErrUnsupportedType
	}

	var src io.Reader = br
	if maxSize > 0 {
		src = &limitedReader{r: br, left: maxSize}
	}
	name := uuid.New().String() + ext
	url, err := store.Save(ctx, name, ct, src)
	if err != nil {
		return Upload{}, err
	}

	alt := altText(origName)
	return Upload{
		URL:      url,
		Name:     name,
		Markdown: "![" + alt + "](" + url + ")",
	}, nil
}

// altMarkup holds the characters that would end an image token early.
var altMarkup = strings.NewReplacer("[", " ", "]", " ", "(", " ", ")", " ")

// altText derives the image alt text from the uploaded file name.
func altText(origName string) string {
	alt := strings.TrimSuffix(path.Base(origName), path.Ext(origName))
	alt = strings.Join(strings.Fields(altMarkup.Replace(alt)), " ")
	if alt == "" || alt == "." || alt == "/" {
		return "image"
	}
	return alt
}

// limitedReader fails with ErrTooLarge instead of silently truncating.
type limitedReader struct {
	r    io.Reader
	left int64
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > lr.left+1 {
		p = p[:lr.left+1]
	}
	n, err := lr.r.Read(p)
	lr.left -= int64(n)
	if lr.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}
