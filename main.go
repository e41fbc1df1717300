package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/khantimmy27/portfolio/internal/config"
	"github.com/khantimmy27/portfolio/internal/content"
	"github.com/khantimmy27/portfolio/internal/feed"
	"github.com/khantimmy27/portfolio/internal/github"
	"github.com/khantimmy27/portfolio/internal/metrics"
	"github.com/khantimmy27/portfolio/internal/server"
	"github.com/khantimmy27/portfolio/internal/session"
	"github.com/khantimmy27/portfolio/internal/theme"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port        string
		contentFile string
		githubUser  string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:          "portfolio",
		Short:        "Serve the portfolio site",
		Long:         "Serves the resume page and a live list of the owner's public GitHub repositories.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			if contentFile != "" {
				cfg.Content.File = contentFile
			}
			if githubUser != "" {
				cfg.GitHub.Username = githubUser
			}
			if verbose {
				cfg.LogLevel = "debug"
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().StringVarP(&contentFile, "content", "c", "", "resume YAML file (overrides CONTENT_FILE)")
	cmd.Flags().StringVar(&githubUser, "github-user", "", "default GitHub username (overrides GITHUB_USERNAME)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
	})
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resume, err := content.Load(cfg.Content.File)
	if err != nil {
		logger.Error("failed to load resume", "err", err)
		return err
	}
	store := content.NewStore(resume)

	initialTheme, err := theme.Parse(firstNonEmpty(cfg.Content.Theme, resume.Theme))
	if err != nil {
		logger.Warn("ignoring theme setting", "err", err)
		initialTheme = theme.System
	}
	themes := theme.NewStore(initialTheme)

	if cfg.Content.File != "" && cfg.Content.Watch {
		watcher, err := content.NewWatcher(cfg.Content.File, store, logger)
		if err != nil {
			return err
		}
		watcher.OnChange(func(r *content.Resume) {
			if cfg.Content.Theme != "" {
				return
			}
			if p, err := theme.Parse(r.Theme); err == nil {
				themes.Set(p)
			}
		})
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	recorder := metrics.NewPrometheusRecorder(nil)
	client := github.NewClient(
		github.WithBaseURL(cfg.GitHub.APIURL),
		github.WithUserAgent(cfg.GitHub.UserAgent),
		github.WithLogger(logger),
	)

	views := session.NewRegistry(session.Config{
		TTL:      cfg.Feed.ViewTTL,
		MaxViews: cfg.Feed.MaxViews,
		Theme:    themes,
		Logger:   logger,
		Recorder: recorder,
		NewLoader: func() *feed.Loader {
			return feed.NewLoader(client, feed.Config{
				Options: feed.Options{MaxItems: cfg.Feed.MaxItems},
				AllowList: func() []string {
					return store.Get().PreferredRepos
				},
				Timeout:  cfg.Feed.Timeout,
				Logger:   logger,
				Recorder: recorder,
			})
		},
	})
	go views.Run(ctx, time.Minute)

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	deps := server.Deps{
		Content:     store,
		Views:       views,
		Theme:       themes,
		Logger:      logger,
		Recorder:    recorder,
		GitHubUser:  cfg.GitHub.Username,
		ResumePDF:   cfg.Content.ResumePDF,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if cfg.Server.Metrics {
		deps.Metrics = recorder.Handler()
	}
	engine, err := server.New(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portfolio listening", "addr", srv.Addr, "github_user", firstNonEmpty(cfg.GitHub.Username, resume.GitHubUser))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
