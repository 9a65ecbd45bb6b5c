package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"survivaldash/app"
	"survivaldash/domain/filter"
	"survivaldash/internal"

	"github.com/gin-gonic/gin"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// Deps are the services the page server renders.
type Deps struct {
	Analysis   *app.AnalysisService
	Prediction *app.PredictionService
	// API is mounted under /api when set.
	API http.Handler
	// Health reports whether the warehouse is reachable.
	Health  func(ctx context.Context) error
	Logger  *internal.Logger
	GinMode string
}

// Server represents the web server for the dashboard
type Server struct {
	router     *gin.Engine
	templates  *template.Template
	analysis   *app.AnalysisService
	prediction *app.PredictionService
	health     func(ctx context.Context) error
	logger     *internal.Logger
	homeBlurb  template.HTML
}

// NewServer creates the page server and registers every route.
func NewServer(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = internal.NewNopLogger()
	}
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}

	templates, err := template.New("").Funcs(templateFuncs()).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	blurb, err := embeddedFiles.ReadFile("templates/home.md")
	if err != nil {
		return nil, fmt.Errorf("failed to read home page text: %w", err)
	}

	s := &Server{
		router:     gin.New(),
		templates:  templates,
		analysis:   deps.Analysis,
		prediction: deps.Prediction,
		health:     deps.Health,
		logger:     deps.Logger,
		homeBlurb:  renderMarkdown(string(blurb)),
	}

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes(deps.API)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(api http.Handler) {
	s.router.GET("/", s.handleHome)
	s.router.GET("/analysis", s.handleAnalysis)
	s.router.POST("/analysis", s.handleAnalysis)
	s.router.GET("/analysis/export.xlsx", s.handleAnalysisExport)
	s.router.GET("/predict", s.handlePredictForm)
	s.router.POST("/predict", s.handlePredict)
	s.router.GET("/healthz", s.handleHealth)

	if api != nil {
		s.router.Any("/api/*path", gin.WrapH(api))
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down dashboard")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"contains": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
		"lowKey":  filter.LowKey,
		"highKey": filter.HighKey,
		"num": func(f float64) string {
			return strconv.FormatFloat(f, 'f', -1, 64)
		},
		"pct": func(f float64) string {
			return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
		},
		"deref": func(f *float64) string {
			if f == nil {
				return "n/a"
			}
			return strconv.FormatFloat(*f, 'f', 2, 64)
		},
		"join": strings.Join,
		"until": func(n int) []int {
			res := make([]int, n)
			for i := range res {
				res[i] = i
			}
			return res
		},
	}
}
