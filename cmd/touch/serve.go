package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/internal/feat/auth"
	"github.com/stereo-express/touch/internal/feat/contact"
	"github.com/stereo-express/touch/internal/feat/subjects"
	"github.com/stereo-express/touch/internal/feat/submissions"
	"github.com/stereo-express/touch/internal/web"
	"github.com/stereo-express/touch/pkg/cl/app"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/database"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/mailer"
	"github.com/stereo-express/touch/pkg/cl/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the contact form and admin server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	log.Infof("Starting Touch %s [%s mode]", touch.Version, cfg.Env)

	pipeline, router, err := setup(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := app.NewServer(router, cfg.Server.Addr)
	errs := make(chan error, 1)
	go func() { errs <- app.Serve(srv) }()
	log.Infof("Server listening on %s", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err = <-errs:
		log.Errorf("Server failed: %v", err)
	}

	pipeline.Shutdown(srv)
	log.Info("Server stopped")
	return err
}

// setup builds and starts every component and returns the routed pipeline.
func setup(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Pipeline, chi.Router, error) {
	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load site timezone %q: %w", cfg.Site.Timezone, err)
	}

	catalog, err := i18n.Load(touch.TranslationsFS, "assets/translations")
	if err != nil {
		return nil, nil, err
	}

	m, err := mailer.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	csrfMw := middleware.CSRF(csrfKey(cfg, log), !cfg.IsDev(), cfg.Forms.AllowedOrigins)

	db := database.New(touch.MigrationsFS, cfg, log)

	subjectRepo := subjects.NewRepository(db)
	subjectProvider := subjects.NewProvider(subjectRepo, cfg.I18n.Languages, log)
	subjectSeeder := subjects.NewSeeder(subjectRepo, cfg.Subjects.SeedPath, log)
	subjectHandler := subjects.NewHandler(subjectProvider, catalog, touch.TemplatesFS, cfg, log)

	store := submissions.NewStore(db, log)
	formatter := submissions.NewFormatter(subjectProvider, subjectProvider, catalog, loc, log)

	authService := auth.NewService(cfg, log)
	authHandler := auth.NewHandler(authService, catalog, csrfMw, touch.TemplatesFS, cfg, log)

	submissionHandler := submissions.NewHandler(store, formatter, subjectProvider, catalog,
		authHandler.SessionMiddleware(), csrfMw, touch.TemplatesFS, cfg, log)
	contactHandler := contact.NewHandler(store, subjectProvider, formatter, m, catalog,
		csrfMw, touch.TemplatesFS, cfg, log)

	fileServer := web.NewFileServer(touch.StaticFS, log)

	router := chi.NewRouter()
	middleware.DefaultStack(router)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Locale(cfg.I18n.DefaultLanguage, cfg.I18n.Languages))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/contact", http.StatusFound)
	})

	pipeline := app.Setup(log,
		db, subjectSeeder, authService,
		subjectHandler, authHandler, submissionHandler, contactHandler,
		fileServer,
	)
	if err := pipeline.Start(ctx, router); err != nil {
		return nil, nil, fmt.Errorf("startup failed: %w", err)
	}

	return pipeline, router, nil
}

// csrfKey returns the configured CSRF key, or a random one that lasts for
// the process lifetime.
func csrfKey(cfg *config.Config, log logger.Logger) []byte {
	if cfg.CSRF.Key != "" {
		if len(cfg.CSRF.Key) < 32 {
			log.Warnf("csrf.key is shorter than 32 bytes")
		}
		return []byte(cfg.CSRF.Key)
	}

	log.Warnf("No csrf.key configured, generating a random one; forms break across restarts")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}
