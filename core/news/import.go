package news

import (
	"bytes"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
)

var ErrNoTitle = errors.New("front matter has no title")

type frontMatter struct {
	Title     string    `yaml:"title"`
	Slug      string    `yaml:"slug"`
	Branch    string    `yaml:"branch"`
	Published bool      `yaml:"published"`
	Date      time.Time `yaml:"date"`
}

// ParseDocument reads a markdown file with a YAML front matter header into an ArticleInput.
func ParseDocument(src []byte) (ArticleInput, error) {
	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		return ArticleInput{}, errors.Wrap(err, "parsing front matter")
	}
	title := cleanTitle(meta.Title)
	if title == "" {
		return ArticleInput{}, ErrNoTitle
	}

	return ArticleInput{
		Title:       title,
		Slug:        core.CleanString(meta.Slug, true /* lower */),
		Content:     strings.TrimSpace(string(body)),
		Branch:      core.CleanString(meta.Branch, true /* lower */),
		Published:   meta.Published,
		publishedAt: meta.Date,
	}, nil
}
