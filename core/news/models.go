package news

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/amork0112-rgb/frageedu/core"
)

// Article is a news post. Content is raw markdown; it is rendered on the way out.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	Branch      string    `json:"branch"` // empty = all branches
	Published   bool      `json:"is_published"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
	PublishedAt null.Time `json:"published_at"`
}

// Summary is a list entry of the public news page.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Branch      string    `json:"branch"`
	Summary     string    `json:"summary"`
	PublishedAt null.Time `json:"published_at"`
}

// Detail is a published article with its rendered body.
type Detail struct {
	Article
	ContentHTML string `json:"content_html"`
}

// ArticleInput creates or fully replaces an article.
type ArticleInput struct {
	Title     string `json:"title" validate:"required,max=256"`
	Slug      string `json:"slug" validate:"omitempty,max=256"`
	Content   string `json:"content" validate:"required"`
	Branch    string `json:"branch" validate:"omitempty,branch"`
	Published bool   `json:"is_published"`

	publishedAt time.Time // set by imports
}

func (in *ArticleInput) Validate(validate *validator.Validate) error {
	in.Title = cleanTitle(in.Title)
	in.Slug = core.CleanString(in.Slug, true /* lower */)
	in.Branch = core.CleanString(in.Branch, true /* lower */)
	return validate.Struct(in)
}

// cleanTitle trims a title and collapses its inner runs of whitespace.
func cleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type PublishRequest struct {
	Published bool `json:"is_published"`
}

type PreviewRequest struct {
	Content string `json:"content"`
}

type GetFilter struct {
	ID            string
	Slug          string
	PublishedOnly bool
}

type QueryFilter struct {
	Query  string `query:"query"` // case-insensitive match on the title
	Branch string `query:"branch"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`

	PublishedOnly bool `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Query = core.CleanString(qf.Query)
	qf.Branch = core.CleanString(qf.Branch, true /* lower */)
}
