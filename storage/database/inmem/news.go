package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/news"
)

type newsRepository struct {
	db *newsTable
}

var _ news.Repository = (*newsRepository)(nil)

func NewNewsRepository(db *DB) news.Repository {
	return &newsRepository{db: db.news}
}

func (repo *newsRepository) CreateArticle(_ context.Context, art news.Article, _ ...core.DBExecutor) (news.Article, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[art.ID] = &art
	return art, nil
}

func (repo *newsRepository) GetArticle(_ context.Context, filter news.GetFilter, _ ...core.DBExecutor) (news.Article, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, art := range repo.db.table {
		if filter.PublishedOnly && !art.Published {
			continue
		}
		if (filter.ID != "" && art.ID == filter.ID) || (filter.ID == "" && filter.Slug != "" && art.Slug == filter.Slug) {
			return *art, nil
		}
	}
	return news.Article{}, news.ErrNotFound
}

func (repo *newsRepository) QueryArticles(
	_ context.Context,
	filter news.QueryFilter,
	offset, limit int,
	_ ...core.DBExecutor,
) ([]news.Article, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q := strings.ToLower(filter.Query)
	arts := make([]news.Article, 0)
	for _, art := range repo.db.table {
		if filter.PublishedOnly && !art.Published {
			continue
		}
		if filter.Branch != "" && art.Branch != "" && art.Branch != filter.Branch {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(art.Title), q) {
			continue
		}
		arts = append(arts, *art)
	}

	// newest publication first, drafts (no date) by creation date
	sort.SliceStable(arts, func(i, j int) bool {
		ti, tj := arts[i].CreatedAt, arts[j].CreatedAt
		if arts[i].PublishedAt.Valid {
			ti = arts[i].PublishedAt.Time
		}
		if arts[j].PublishedAt.Valid {
			tj = arts[j].PublishedAt.Time
		}
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return arts[i].ID < arts[j].ID
	})
	return paginate(arts, offset, limit), len(arts), nil
}

func (repo *newsRepository) UpdateArticle(_ context.Context, art news.Article, _ ...core.DBExecutor) (news.Article, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[art.ID]; !ok {
		return news.Article{}, news.ErrNotFound
	}
	repo.db.table[art.ID] = &art
	return art, nil
}

func (repo *newsRepository) DeleteArticle(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return news.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *newsRepository) SlugExists(_ context.Context, slug, excludedID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, art := range repo.db.table {
		if art.Slug == slug && art.ID != excludedID {
			return true, nil
		}
	}
	return false, nil
}
