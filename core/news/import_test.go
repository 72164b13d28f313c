package news

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	t.Run("full header", func(t *testing.T) {
		in, err := ParseDocument([]byte("---\ntitle: \"  Spring   Recital \"\nslug: Spring-Recital\nbranch: Junior\npublished: true\ndate: 2025-03-01T09:00:00Z\n---\n\n# Recital\nSee you there.\n\n"))
		require.NoError(t, err)
		assert.Equal(t, "Spring Recital", in.Title)
		assert.Equal(t, "spring-recital", in.Slug)
		assert.Equal(t, "junior", in.Branch)
		assert.True(t, in.Published)
		assert.Equal(t, "# Recital\nSee you there.", in.Content)
		assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), in.publishedAt.UTC())
	})

	t.Run("minimal header", func(t *testing.T) {
		in, err := ParseDocument([]byte("---\ntitle: Notice\n---\nbody"))
		require.NoError(t, err)
		assert.Equal(t, "Notice", in.Title)
		assert.Empty(t, in.Slug)
		assert.False(t, in.Published)
		assert.True(t, in.publishedAt.IsZero())
	})

	t.Run("no title", func(t *testing.T) {
		_, err := ParseDocument([]byte("---\nslug: x\n---\nbody"))
		assert.Equal(t, ErrNoTitle, err)
	})
}

func TestSetPublished(t *testing.T) {
	var art Article

	setPublished(&art, false, time.Time{})
	assert.False(t, art.Published)
	assert.False(t, art.PublishedAt.Valid)

	setPublished(&art, true, time.Time{})
	require.True(t, art.PublishedAt.Valid)
	first := art.PublishedAt.Time

	setPublished(&art, false, time.Time{})
	setPublished(&art, true, time.Time{})
	assert.True(t, art.Published)
	assert.Equal(t, first, art.PublishedAt.Time)

	at := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	setPublished(&art, true, at)
	assert.Equal(t, at, art.PublishedAt.Time)
}
