package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/news"
)

const newsColumns = `id, title, slug, content, branch, is_published, author_id, created_at, updated_at, published_at`

type newsRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Slug        string    `db:"slug"`
	Content     string    `db:"content"`
	Branch      string    `db:"branch"`
	Published   bool      `db:"is_published"`
	AuthorID    string    `db:"author_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	PublishedAt null.Time `db:"published_at"`
}

type newsRepository struct {
	baseRepository
}

var _ news.Repository = (*newsRepository)(nil)

func NewNewsRepository(exec core.DBExecutor) news.Repository {
	return &newsRepository{baseRepository{exec: exec}}
}

func (repo newsRepository) toRow(art news.Article) newsRow {
	row := newsRow{
		ID:        art.ID,
		Title:     art.Title,
		Slug:      art.Slug,
		Content:   art.Content,
		Branch:    art.Branch,
		Published: art.Published,
		AuthorID:  art.AuthorID,
		CreatedAt: art.CreatedAt.UTC(),
		UpdatedAt: art.UpdatedAt.UTC(),
	}
	if art.PublishedAt.Valid {
		row.PublishedAt = null.TimeFrom(art.PublishedAt.Time.UTC())
	}
	return row
}

func (repo newsRepository) fromRow(row newsRow) news.Article {
	art := news.Article{
		ID:        row.ID,
		Title:     row.Title,
		Slug:      row.Slug,
		Content:   row.Content,
		Branch:    row.Branch,
		Published: row.Published,
		AuthorID:  row.AuthorID,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.PublishedAt.Valid {
		art.PublishedAt = null.TimeFrom(row.PublishedAt.Time.UTC())
	}
	return art
}

// trapNoRowsErr maps psql "no rows" err to news.ErrNotFound
func (repo newsRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return news.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo newsRepository) CreateArticle(ctx context.Context, art news.Article, exec ...core.DBExecutor) (news.Article, error) {
	q := `INSERT INTO "news" (` + newsColumns + `) VALUES (:id, :title, :slug, :content, :branch, :is_published,
		:author_id, :created_at, :updated_at, :published_at)`
	if _, err := sqlxNamedExec(ctx, repo.getExec(exec), q, repo.toRow(art)); err != nil {
		return news.Article{}, errors.Wrap(err, "inserting article")
	}
	return art, nil
}

func (repo newsRepository) GetArticle(ctx context.Context, filter news.GetFilter, exec ...core.DBExecutor) (news.Article, error) {
	var w where
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return news.Article{}, news.ErrNotFound
		}
		w.add("id = ?", filter.ID)
	case filter.Slug != "":
		w.add("slug = ?", filter.Slug)
	default:
		return news.Article{}, news.ErrNotFound
	}
	if filter.PublishedOnly {
		w.add("is_published")
	}

	var row newsRow
	q := `SELECT ` + newsColumns + ` FROM "news"` + w.String() + ` LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, w.args...); err != nil {
		return news.Article{}, repo.trapNoRowsErr(err, "getting article")
	}
	return repo.fromRow(row), nil
}

func (repo newsRepository) QueryArticles(
	ctx context.Context,
	filter news.QueryFilter,
	offset, limit int,
	exec ...core.DBExecutor,
) ([]news.Article, int, error) {
	var w where
	if filter.Query != "" {
		w.add("title ILIKE ?", "%"+filter.Query+"%")
	}
	if filter.Branch != "" {
		w.add("(branch = ? OR branch = '')", filter.Branch)
	}
	if filter.PublishedOnly {
		w.add("is_published")
	}

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, `SELECT COUNT(*) FROM "news"`+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting articles")
	}

	q := `SELECT ` + newsColumns + ` FROM "news"` + w.String() +
		` ORDER BY COALESCE(published_at, created_at) DESC` +
		` LIMIT ` + w.arg(limit) + ` OFFSET ` + w.arg(offset)
	var rows []newsRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting articles")
	}
	arts := make([]news.Article, 0, len(rows))
	for _, row := range rows {
		arts = append(arts, repo.fromRow(row))
	}
	return arts, total, nil
}

func (repo newsRepository) UpdateArticle(ctx context.Context, art news.Article, exec ...core.DBExecutor) (news.Article, error) {
	q := `UPDATE "news" SET title = :title, slug = :slug, content = :content, branch = :branch,
		is_published = :is_published, updated_at = :updated_at, published_at = :published_at WHERE id = :id`
	res, err := sqlxNamedExec(ctx, repo.getExec(exec), q, repo.toRow(art))
	if err != nil {
		return news.Article{}, errors.Wrap(err, "updating article")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return news.Article{}, news.ErrNotFound
	}
	return art, nil
}

func (repo newsRepository) DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return news.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "news" WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting article")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return news.ErrNotFound
	}
	return nil
}

func (repo newsRepository) SlugExists(ctx context.Context, slug, excludedID string, exec ...core.DBExecutor) (bool, error) {
	var w where
	w.add("slug = ?", slug)
	if isUUID(excludedID) {
		w.add("id <> ?", excludedID)
	}
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM "news"` + w.String() + `)`
	if err := repo.getExec(exec).GetContext(ctx, &exists, q, w.args...); err != nil {
		return false, errors.Wrap(err, "checking slug")
	}
	return exists, nil
}
