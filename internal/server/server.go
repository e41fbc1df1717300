// Package server wires the portfolio's HTTP surface: the resume page, the
// HTMX repository feed fragments, a JSON snapshot endpoint and metrics.
package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/khantimmy27/portfolio/internal/content"
	"github.com/khantimmy27/portfolio/internal/metrics"
	"github.com/khantimmy27/portfolio/internal/session"
	"github.com/khantimmy27/portfolio/internal/theme"
)

// Deps are the components the router serves.
type Deps struct {
	Content  *content.Store
	Views    *session.Registry
	Theme    *theme.Store
	Logger   *log.Logger
	Recorder metrics.Recorder
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	// GitHubUser overrides the resume's github_user as the default identifier.
	GitHubUser  string
	ResumePDF   string
	CORSOrigins []string
}

type handlers struct {
	content    *content.Store
	views      *session.Registry
	theme      *theme.Store
	logger     *log.Logger
	githubUser string
	resumePDF  bool
}

// New builds the gin engine.
func New(d Deps) (*gin.Engine, error) {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Recorder == nil {
		d.Recorder = metrics.NoopRecorder{}
	}
	if d.Theme == nil {
		d.Theme = theme.NewStore(theme.System)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger), pageViewMiddleware(d.Recorder))
	static, err := staticFiles()
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))
	if d.ResumePDF != "" {
		r.StaticFile("/resume.pdf", d.ResumePDF)
	}

	h := &handlers{
		content:    d.Content,
		views:      d.Views,
		theme:      d.Theme,
		logger:     d.Logger,
		githubUser: d.GitHubUser,
		resumePDF:  d.ResumePDF != "",
	}

	// Home page route
	r.GET("/", h.index)

	// HTMX repository feed fragments
	r.GET("/views/:id/repos", h.reposFragment)
	r.POST("/views/:id/identifier", h.setIdentifier)
	r.GET("/views/:id/theme", h.themePref)

	api := r.Group("/api")
	if len(d.CORSOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins: d.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type"},
		}))
	}
	api.GET("/views/:id/repos", h.reposJSON)
	api.POST("/views/:id/identifier", h.setIdentifierJSON)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "views": d.Views.Len()})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return r, nil
}
