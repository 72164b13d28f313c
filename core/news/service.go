package news

import (
	"context"
	"strconv"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/markdown"
)

const (
	maxPageSize     = 50
	maxSlugAttempts = 100
)

var ErrNotFound = &core.NotFoundError{Detail: "Article not found"}

type (
	Repository interface {
		CreateArticle(ctx context.Context, art Article, exec ...core.DBExecutor) (Article, error)
		GetArticle(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Article, error)
		// QueryArticles returns one page, newest publication first, plus the total match count.
		QueryArticles(ctx context.Context, filter QueryFilter, offset, limit int, exec ...core.DBExecutor) ([]Article, int, error)
		UpdateArticle(ctx context.Context, art Article, exec ...core.DBExecutor) (Article, error)
		DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error
		SlugExists(ctx context.Context, slug, excludedID string, exec ...core.DBExecutor) (bool, error)
	}

	Service interface {
		Create(ctx context.Context, authorID string, in ArticleInput) (Article, error)
		Update(ctx context.Context, id string, in ArticleInput) (Article, error)
		SetPublished(ctx context.Context, id string, published bool) (Article, error)
		Delete(ctx context.Context, id string) error
		Get(ctx context.Context, id string) (Article, error)
		Query(ctx context.Context, filter QueryFilter) ([]Article, core.Page, error)

		// public
		PublicQuery(ctx context.Context, filter QueryFilter) ([]Summary, core.Page, error)
		PublicGet(ctx context.Context, idOrSlug string) (Detail, error)
		Preview(content string) string

		// Import creates or replaces (matched by slug) an article parsed from a front-matter document.
		Import(ctx context.Context, authorID string, src []byte) (Article, bool, error)
	}

	service struct {
		repo          Repository
		summaryLength int
		extended      bool
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	return &service{
		repo:          repo,
		summaryLength: conf.News.SummaryLength,
		extended:      conf.News.ExtendedPreview,
	}
}

// uniqueSlug normalizes the wanted slug (or the title) and suffixes it until it is free.
// Titles with nothing sluggable (e.g. only Hangul) get a random one.
func (svc *service) uniqueSlug(ctx context.Context, want, title, excludedID string) (string, error) {
	base := want
	if base == "" {
		base = title
	}
	s, err := slug.Normalize(base)
	if err != nil || s == "" {
		s = uuid.New().String()
	}

	candidate := s
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := svc.repo.SlugExists(ctx, candidate, excludedID)
		if err != nil {
			return "", errors.Wrap(err, "checking slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = s + "-" + strconv.Itoa(i)
	}
	return s + "-" + uuid.New().String()[:8], nil
}

func (svc *service) Create(ctx context.Context, authorID string, in ArticleInput) (Article, error) {
	s, err := svc.uniqueSlug(ctx, in.Slug, in.Title, "")
	if err != nil {
		return Article{}, err
	}

	now := time.Now().UTC()
	art := Article{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Slug:      s,
		Content:   in.Content,
		Branch:    in.Branch,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	setPublished(&art, in.Published, in.publishedAt)

	art, err = svc.repo.CreateArticle(ctx, art)
	return art, errors.Wrap(err, "creating article")
}

func (svc *service) Update(ctx context.Context, id string, in ArticleInput) (Article, error) {
	art, err := svc.Get(ctx, id)
	if err != nil {
		return Article{}, err
	}

	if in.Slug != "" && in.Slug != art.Slug {
		if art.Slug, err = svc.uniqueSlug(ctx, in.Slug, in.Title, art.ID); err != nil {
			return Article{}, err
		}
	}
	art.Title = in.Title
	art.Content = in.Content
	art.Branch = in.Branch
	art.UpdatedAt = time.Now().UTC()
	setPublished(&art, in.Published, in.publishedAt)

	art, err = svc.repo.UpdateArticle(ctx, art)
	return art, errors.Wrap(err, "updating article")
}

func (svc *service) SetPublished(ctx context.Context, id string, published bool) (Article, error) {
	art, err := svc.Get(ctx, id)
	if err != nil {
		return Article{}, err
	}
	art.UpdatedAt = time.Now().UTC()
	setPublished(&art, published, time.Time{})

	art, err = svc.repo.UpdateArticle(ctx, art)
	return art, errors.Wrap(err, "updating article")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteArticle(ctx, id)
}

func (svc *service) Get(ctx context.Context, id string) (Article, error) {
	return svc.repo.GetArticle(ctx, GetFilter{ID: id})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Article, core.Page, error) {
	filter.Clean()
	offset, limit := core.Paginate(filter.Page, filter.Limit, maxPageSize)
	page := core.Page{Page: offset/limit + 1, PageSize: limit}

	arts, total, err := svc.repo.QueryArticles(ctx, filter, offset, limit)
	if err != nil {
		return nil, page, errors.Wrap(err, "querying articles")
	}
	if arts == nil {
		arts = []Article{}
	}
	page.Total = total
	return arts, page, nil
}

func (svc *service) PublicQuery(ctx context.Context, filter QueryFilter) ([]Summary, core.Page, error) {
	filter.PublishedOnly = true
	arts, page, err := svc.Query(ctx, filter)
	if err != nil {
		return nil, page, err
	}

	sums := make([]Summary, 0, len(arts))
	for _, art := range arts {
		sums = append(sums, Summary{
			ID:          art.ID,
			Title:       art.Title,
			Slug:        art.Slug,
			Branch:      art.Branch,
			Summary:     markdown.Truncate(art.Content, svc.summaryLength),
			PublishedAt: art.PublishedAt,
		})
	}
	return sums, page, nil
}

func (svc *service) PublicGet(ctx context.Context, idOrSlug string) (Detail, error) {
	art, err := svc.repo.GetArticle(ctx, GetFilter{ID: idOrSlug, PublishedOnly: true})
	if core.IsNotFound(err) {
		art, err = svc.repo.GetArticle(ctx, GetFilter{Slug: idOrSlug, PublishedOnly: true})
	}
	if err != nil {
		return Detail{}, err
	}
	return Detail{Article: art, ContentHTML: markdown.Render(art.Content)}, nil
}

func (svc *service) Preview(content string) string {
	if svc.extended {
		return markdown.RenderExtended(content)
	}
	return markdown.Render(content)
}

func (svc *service) Import(ctx context.Context, authorID string, src []byte) (Article, bool, error) {
	in, err := ParseDocument(src)
	if err != nil {
		return Article{}, false, err
	}

	if in.Slug != "" {
		existing, err := svc.repo.GetArticle(ctx, GetFilter{Slug: in.Slug})
		switch {
		case err == nil:
			art, err := svc.Update(ctx, existing.ID, in)
			return art, false, err
		case !core.IsNotFound(err):
			return Article{}, false, errors.Wrap(err, "finding article by slug")
		}
	}
	art, err := svc.Create(ctx, authorID, in)
	return art, true, err
}

// setPublished keeps the first publication date across unpublish/publish cycles.
func setPublished(art *Article, published bool, at time.Time) {
	art.Published = published
	switch {
	case !at.IsZero():
		art.PublishedAt = null.TimeFrom(at.UTC())
	case published && !art.PublishedAt.Valid:
		art.PublishedAt = null.TimeFrom(time.Now().UTC())
	}
}
