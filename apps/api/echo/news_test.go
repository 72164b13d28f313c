package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/audit"
)

func (app *testApp) createArticle(t *testing.T, token, body string) map[string]interface{} {
	req, rec := newAuthRequest(http.MethodPost, "/api/admin/news", token, []byte(body))
	app.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestCreateArticle(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t, app.createAdmin(t, "kim", admin.RoleKinderAdmin))

	tests := []httpTest{
		{
			name:     "missing fields",
			body:     []byte(`{"title": "  "}`),
			wantCode: http.StatusBadRequest,
			wantData: errData(t, validationFailed, "title", requiredText, "content", requiredText),
		},
		{
			name:     "invalid branch",
			body:     []byte(`{"title": "Hi", "content": "x", "branch": "college"}`),
			wantCode: http.StatusBadRequest,
			wantData: errData(t, validationFailed, "branch", "invalid branch"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/admin/news", token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("slugs stay unique", func(t *testing.T) {
		want, err := slug.Normalize("Open House 2025")
		require.NoError(t, err)
		first := app.createArticle(t, token, `{"title": "Open House 2025", "content": "**Welcome**"}`)
		assert.Equal(t, want, first["slug"])
		assert.Equal(t, false, first["is_published"])
		assert.Nil(t, first["published_at"])

		second := app.createArticle(t, token, `{"title": "Open House 2025", "content": "again"}`)
		assert.Equal(t, want+"-2", second["slug"])
	})

	t.Run("audited", func(t *testing.T) {
		entries, _, err := app.auditSvc.Query(context.Background(), audit.QueryFilter{Action: audit.ActionNewsCreate})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("staff cannot manage news", func(t *testing.T) {
		staff := app.createAdmin(t, "clerk", admin.RoleStaff)
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/news", app.adminToken(t, staff), []byte(`{"title": "x", "content": "y"}`))
		app.serve(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPublishArticle(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t, app.createAdmin(t, "boss", admin.RoleSuperAdmin))
	art := app.createArticle(t, token, `{"title": "Summer Camp", "content": "# Camp\n**Sign up** now"}`)
	id, artSlug := art["id"].(string), art["slug"].(string)

	publicGet := func(t *testing.T, path string) *httptest.ResponseRecorder {
		req, rec := newRequest(http.MethodGet, path)
		app.serve(req, rec)
		return rec
	}

	// drafts are invisible to the public
	rec := publicGet(t, "/api/news")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["articles"])
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: errData(t, "Article not found")},
		publicGet(t, "/api/news/"+id))

	req, rec := newAuthRequest(http.MethodPatch, "/api/admin/news/"+id+"/publish", token, []byte(`{"is_published": true}`))
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	published := decode(t, rec)
	assert.Equal(t, true, published["is_published"])
	require.NotNil(t, published["published_at"])

	rec = publicGet(t, "/api/news")
	require.Equal(t, http.StatusOK, rec.Code)
	articles := decode(t, rec)["articles"].([]interface{})
	require.Len(t, articles, 1)
	summary := articles[0].(map[string]interface{})
	assert.Equal(t, artSlug, summary["slug"])
	assert.Equal(t, "# Camp\n**Sign up** now", summary["summary"])

	for _, path := range []string{"/api/news/" + id, "/api/news/" + artSlug} {
		rec = publicGet(t, path)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "<h1>Camp</h1><br/><strong>Sign up</strong> now", decode(t, rec)["content_html"])
	}

	// republishing keeps the first publication date
	req, rec = newAuthRequest(http.MethodPatch, "/api/admin/news/"+id+"/publish", token, []byte(`{"is_published": false}`))
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodPatch, "/api/admin/news/"+id+"/publish", token, []byte(`{"is_published": true}`))
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, published["published_at"], decode(t, rec)["published_at"])
}

func TestUpdateAndDeleteArticle(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t, app.createAdmin(t, "boss", admin.RoleSuperAdmin))
	id := app.createArticle(t, token, `{"title": "Notice", "content": "old"}`)["id"].(string)

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/admin/news/"+id, token,
			[]byte(`{"title": "Notice v2", "slug": "Notice-Two", "content": "new", "branch": "junior"}`))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decode(t, rec)
		want, err := slug.Normalize("notice-two")
		require.NoError(t, err)
		assert.Equal(t, want, data["slug"])
		assert.Equal(t, "junior", data["branch"])

		req, rec = newAuthRequest(http.MethodGet, "/api/admin/news/"+id, token)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "new", decode(t, rec)["content"])
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/admin/news?query=v2", token)
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["articles"], 1)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/admin/news/"+id, token)
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"message": "Article deleted"}`)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/api/admin/news/"+id, token)
		app.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/api/admin/news/"+id, token)
		app.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	entries, _, err := app.auditSvc.Query(context.Background(), audit.QueryFilter{TargetID: id})
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	assert.ElementsMatch(t, []string{audit.ActionNewsCreate, audit.ActionNewsUpdate, audit.ActionNewsDelete}, actions)
}

func TestPreviewArticle(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t, app.createAdmin(t, "boss", admin.RoleSuperAdmin))

	req, rec := newAuthRequest(http.MethodPost, "/api/admin/news/preview", token, []byte(`{"content": "**a** *b*"}`))
	app.serve(req, rec)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, PreviewResponse{HTML: "<strong>a</strong> <em>b</em>"}),
	}, rec)
}

func newUploadRequest(t *testing.T, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/news/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func TestUploadImage(t *testing.T) {
	app := setup(t)
	token := app.adminToken(t, app.createAdmin(t, "boss", admin.RoleSuperAdmin))
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	t.Run("png", func(t *testing.T) {
		req, rec := newUploadRequest(t, token, "poster.png", png)
		app.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := decode(t, rec)
		url := data["url"].(string)
		assert.True(t, strings.HasPrefix(url, "/uploads/"), url)
		assert.True(t, strings.HasSuffix(url, ".png"), url)
		assert.Equal(t, "![poster]("+url+")", data["markdown"])

		// served back from the media dir
		req, rec = newRequest(http.MethodGet, url)
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, png, rec.Body.Bytes())
	})

	t.Run("not an image", func(t *testing.T) {
		req, rec := newUploadRequest(t, token, "notes.png", []byte("just some text"))
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnsupportedMediaType,
			wantData: errData(t, "only png, jpeg, gif and webp images are allowed"),
		}, rec)
	})

	t.Run("too large", func(t *testing.T) {
		big := append(append([]byte{}, png...), make([]byte, app.Conf.Media.MaxSize)...)
		req, rec := newUploadRequest(t, token, "big.png", big)
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusRequestEntityTooLarge,
			wantData: errData(t, "file is too large"),
		}, rec)
	})

	t.Run("no file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/admin/news/upload", token, []byte(`{}`))
		app.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
