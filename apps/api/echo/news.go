package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/audit"
	"github.com/amork0112-rgb/frageedu/core/news"
	mediasvc "github.com/amork0112-rgb/frageedu/services/media"
)

var errUploadsDisabled = echo.NewHTTPError(http.StatusServiceUnavailable, "Uploads are disabled")

func (s *server) registerNewsAPI(g *echo.Group) {
	g.GET("/news", s.publicNews)
	g.GET("/news/:id", s.publicArticle)
}

func (s *server) registerAdminNewsAPI(g *echo.Group) {
	ng := g.Group("/news", s.adminMiddleware(admin.PermManageNews))
	ng.GET("", s.queryArticles)
	ng.POST("", s.createArticle)
	ng.POST("/preview", s.previewArticle)
	ng.POST("/upload", s.uploadImage)
	ng.GET("/:id", s.getArticle)
	ng.PUT("/:id", s.updateArticle)
	ng.PATCH("/:id/publish", s.publishArticle)
	ng.DELETE("/:id", s.deleteArticle)
}

// Public handlers

func (s *server) publicNews(ctx echo.Context) error {
	var filter news.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to news.QueryFilter")
	}
	sums, page, err := s.NewsSvc.PublicQuery(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying news")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"articles": sums, "pagination": page})
}

func (s *server) publicArticle(ctx echo.Context) error {
	detail, err := s.NewsSvc.PublicGet(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

// Admin handlers

func (s *server) queryArticles(ctx echo.Context) error {
	var filter news.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to news.QueryFilter")
	}
	arts, page, err := s.NewsSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying articles")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"articles": arts, "pagination": page})
}

func (s *server) bindArticle(ctx echo.Context) (news.ArticleInput, error) {
	var data news.ArticleInput
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to news.ArticleInput")
	}
	return data, data.Validate(s.Validate)
}

func (s *server) createArticle(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	data, err := s.bindArticle(ctx)
	if err != nil {
		return err
	}

	art, err := s.NewsSvc.Create(ctx.Request().Context(), adm.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating article")
	}
	s.audit(ctx, adm, audit.ActionNewsCreate, art.ID, art.Title)
	return ctx.JSON(http.StatusCreated, art)
}

func (s *server) getArticle(ctx echo.Context) error {
	art, err := s.NewsSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, art)
}

func (s *server) updateArticle(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	data, err := s.bindArticle(ctx)
	if err != nil {
		return err
	}

	art, err := s.NewsSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	s.audit(ctx, adm, audit.ActionNewsUpdate, art.ID, art.Title)
	return ctx.JSON(http.StatusOK, art)
}

func (s *server) publishArticle(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	var data news.PublishRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to news.PublishRequest")
	}

	art, err := s.NewsSvc.SetPublished(ctx.Request().Context(), ctx.Param("id"), data.Published)
	if err != nil {
		return err
	}
	detail := "unpublished"
	if art.Published {
		detail = "published"
	}
	s.audit(ctx, adm, audit.ActionNewsUpdate, art.ID, detail)
	return ctx.JSON(http.StatusOK, art)
}

func (s *server) deleteArticle(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if err = s.NewsSvc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	s.audit(ctx, adm, audit.ActionNewsDelete, id, "")
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Article deleted"})
}

func (s *server) previewArticle(ctx echo.Context) error {
	var data news.PreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to news.PreviewRequest")
	}
	return ctx.JSON(http.StatusOK, PreviewResponse{HTML: s.NewsSvc.Preview(data.Content)})
}

func (s *server) uploadImage(ctx echo.Context) error {
	if s.Media == nil {
		return errUploadsDisabled
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "A file is required").SetInternal(err)
	}
	if max := s.Conf.Media.MaxSize; max > 0 && fh.Size > max {
		return mediasvc.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	up, err := mediasvc.Save(ctx.Request().Context(), s.Media, fh.Filename, f, s.Conf.Media.MaxSize)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, up)
}
