package news_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/markdown"
	"github.com/amork0112-rgb/frageedu/core/news"
	inmemdb "github.com/amork0112-rgb/frageedu/storage/database/inmem"
	testutil "github.com/amork0112-rgb/frageedu/tests"
)

func setup(t *testing.T) news.Service {
	t.Helper()
	return news.NewService(inmemdb.NewNewsRepository(inmemdb.Open()), core.NewTestConfig())
}

func mustCreate(t *testing.T, svc news.Service, in news.ArticleInput) news.Article {
	art, err := svc.Create(context.Background(), "author-1", in)
	require.NoError(t, err)
	return art
}

func normalized(t *testing.T, s string) string {
	out, err := slug.Normalize(s)
	require.NoError(t, err)
	return out
}

func TestCreate_slugs(t *testing.T) {
	svc := setup(t)

	first := mustCreate(t, svc, news.ArticleInput{Title: "Winter Camp", Content: "x"})
	second := mustCreate(t, svc, news.ArticleInput{Title: "Winter Camp", Content: "y"})
	third := mustCreate(t, svc, news.ArticleInput{Title: "Other", Slug: first.Slug, Content: "z"})

	want := normalized(t, "Winter Camp")
	assert.Equal(t, want, first.Slug)
	assert.Equal(t, want+"-2", second.Slug)
	assert.Equal(t, want+"-3", third.Slug)
	assert.Equal(t, "author-1", first.AuthorID)
	assert.False(t, first.Published)
	assert.False(t, first.PublishedAt.Valid)
}

func TestArticleInput_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	in := news.ArticleInput{Title: "\t Open   House\n 2025 ", Slug: " Open-House ", Content: "x", Branch: " Kinder "}
	require.NoError(t, in.Validate(validate))
	assert.Equal(t, "Open House 2025", in.Title)
	assert.Equal(t, "open-house", in.Slug)
	assert.Equal(t, "kinder", in.Branch)

	blank := news.ArticleInput{Title: " \t ", Content: "x"}
	assert.Error(t, blank.Validate(validate))
}

func TestUpdate_keepsOwnSlug(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	art := mustCreate(t, svc, news.ArticleInput{Title: "Notice", Content: "old"})

	updated, err := svc.Update(ctx, art.ID, news.ArticleInput{Title: "Notice (edited)", Slug: art.Slug, Content: "new", Branch: "kinder"})
	require.NoError(t, err)
	assert.Equal(t, art.Slug, updated.Slug)
	assert.Equal(t, "new", updated.Content)
	assert.Equal(t, "kinder", updated.Branch)

	_, err = svc.Update(ctx, "nope", news.ArticleInput{Title: "x", Content: "y"})
	assert.True(t, core.IsNotFound(err))
}

func TestPublicQuery(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	long := strings.Repeat("가", 250)
	mustCreate(t, svc, news.ArticleInput{Title: "All branches", Content: long, Published: true})
	mustCreate(t, svc, news.ArticleInput{Title: "Kinder only", Content: "k", Branch: "kinder", Published: true})
	mustCreate(t, svc, news.ArticleInput{Title: "Junior only", Content: "j", Branch: "junior", Published: true})
	mustCreate(t, svc, news.ArticleInput{Title: "Kinder draft", Content: "d", Branch: "kinder"})

	sums, page, err := svc.PublicQuery(ctx, news.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, sums, 3)
	for _, s := range sums {
		assert.True(t, s.PublishedAt.Valid, s.Title)
		if s.Title == "All branches" {
			assert.Equal(t, strings.Repeat("가", 200)+"...", s.Summary)
		}
	}

	t.Run("branch filter keeps articles for every branch", func(t *testing.T) {
		sums, _, err := svc.PublicQuery(ctx, news.QueryFilter{Branch: " Kinder "})
		require.NoError(t, err)
		titles := make([]string, 0, len(sums))
		for _, s := range sums {
			titles = append(titles, s.Title)
		}
		assert.ElementsMatch(t, []string{"All branches", "Kinder only"}, titles)
	})

	t.Run("title search", func(t *testing.T) {
		sums, _, err := svc.PublicQuery(ctx, news.QueryFilter{Query: "JUNIOR"})
		require.NoError(t, err)
		require.Len(t, sums, 1)
		assert.Equal(t, "Junior only", sums[0].Title)
	})

	t.Run("paging", func(t *testing.T) {
		sums, page, err := svc.PublicQuery(ctx, news.QueryFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, sums, 1)
		assert.Equal(t, core.Page{Page: 2, PageSize: 2, Total: 3}, page)
	})

	t.Run("admins see drafts", func(t *testing.T) {
		arts, page, err := svc.Query(ctx, news.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, arts, 4)
		assert.Equal(t, 4, page.Total)
	})
}

func TestPublicGet(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	pub := mustCreate(t, svc, news.ArticleInput{Title: "Open Day", Content: "# Hi\n**come**", Published: true})
	draft := mustCreate(t, svc, news.ArticleInput{Title: "Secret", Content: "x"})

	for _, key := range []string{pub.ID, pub.Slug} {
		detail, err := svc.PublicGet(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, pub.ID, detail.ID)
		assert.Equal(t, "<h1>Hi</h1><br/><strong>come</strong>", detail.ContentHTML)
	}

	for _, key := range []string{draft.ID, draft.Slug, "missing"} {
		_, err := svc.PublicGet(ctx, key)
		assert.Equal(t, news.ErrNotFound, err, key)
	}
}

func TestSetPublishedAndDelete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	art := mustCreate(t, svc, news.ArticleInput{Title: "Notice", Content: "x"})

	published, err := svc.SetPublished(ctx, art.ID, true)
	require.NoError(t, err)
	require.True(t, published.PublishedAt.Valid)

	unpublished, err := svc.SetPublished(ctx, art.ID, false)
	require.NoError(t, err)
	assert.False(t, unpublished.Published)
	assert.Equal(t, published.PublishedAt, unpublished.PublishedAt)

	require.NoError(t, svc.Delete(ctx, art.ID))
	_, err = svc.Get(ctx, art.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, art.ID)))
}

func TestPreview(t *testing.T) {
	src := "- one\n- two\n**bold**"
	assert.Equal(t, markdown.Render(src), setup(t).Preview(src))

	conf := core.NewTestConfig()
	conf.News.ExtendedPreview = true
	svc := news.NewService(inmemdb.NewNewsRepository(inmemdb.Open()), conf)
	assert.Equal(t, markdown.RenderExtended(src), svc.Preview(src))
}

func TestImport(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	doc := "---\ntitle: Graduation\nslug: graduation-2025\npublished: true\ndate: 2025-02-14T10:00:00Z\n---\nCongrats!"

	art, created, err := svc.Import(ctx, "author-1", []byte(doc))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, normalized(t, "graduation-2025"), art.Slug)
	assert.Equal(t, time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC), art.PublishedAt.Time)

	again, created, err := svc.Import(ctx, "author-2", []byte(strings.Replace(doc, "Congrats!", "Congrats again!", 1)))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, art.ID, again.ID)
	assert.Equal(t, "Congrats again!", again.Content)
	assert.Equal(t, "author-1", again.AuthorID)

	_, _, err = svc.Import(ctx, "", []byte("---\nslug: x\n---\nbody"))
	assert.Equal(t, news.ErrNoTitle, err)
}
