package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-dropzone/internal/api"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

func main() {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(config.LogLevel, config.LogFormat))

	ctx := context.Background()

	store, servesFiles, err := openStore(ctx, config)
	if err != nil {
		slog.Error("Failed to initialize storage", "err", err)
		os.Exit(1)
	}

	repo, closeLedger, err := openLedger(ctx, config.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize ledger", "err", err)
		os.Exit(1)
	}
	defer closeLedger()

	metrics := api.NewMetrics(prometheus.DefaultRegisterer)
	uploadHandler := api.NewUploadHandler(store, repo,
		api.WithExtensionPolicy(dropzone.NewAllowList(config.CaseSensitive, config.AllowedExtensions...)),
		api.WithMaxUploadBytes(config.MaxUploadBytes),
		api.WithMetrics(metrics),
	)

	tokenAuth := jwtauth.New("HS256", []byte(config.JWTSecret), nil)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", promhttp.Handler())

	server.R.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)
		r.Mount("/api", uploadHandler.Routes())
	})
	if servesFiles {
		server.R.Mount("/files", api.NewFilesHandler(store, metrics).Routes())
	}

	slog.Info("Starting upload server",
		"storage", config.StorageURL,
		"public_base_url", config.PublicBaseURL,
		"extensions", config.AllowedExtensions)

	server.Run()
}
