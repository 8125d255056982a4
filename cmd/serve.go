package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/adhamahmad/music-genie/internal/auth"
	"github.com/adhamahmad/music-genie/internal/cache"
	"github.com/adhamahmad/music-genie/internal/providers"
	"github.com/adhamahmad/music-genie/internal/repositories"
	"github.com/adhamahmad/music-genie/internal/server"
	"github.com/adhamahmad/music-genie/internal/services"
	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/adhamahmad/music-genie/internal/vault"
	"github.com/urfave/cli/v3"
)

// Serve wires the application and runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	v, err := vault.New(config.Encryption.Password, config.Encryption.Salt)
	if err != nil {
		return err
	}

	coordinator := auth.NewCoordinator(
		repositories.NewSessionRepository(db),
		repositories.NewCredentialRepository(db),
		repositories.NewUserRepository(db),
		repositories.NewProviderRepository(db),
		v,
		r.logger,
	)

	registry := providers.NewRegistry()
	spotify, err := providers.NewSpotifyClient(
		config.Credentials.Spotify.ClientID,
		config.Credentials.Spotify.ClientSecret,
		config.Credentials.Spotify.RedirectURI,
	)
	if err != nil {
		return err
	}
	registry.Register(spotify)

	playlistCache := cache.NewPlaylistCache(cache.New(db))
	songService := services.NewSongService(registry, playlistCache, coordinator, r.logger)
	playlistService := services.NewPlaylistService(registry, playlistCache, coordinator, r.logger)
	filterService := services.NewFilterService(songService, playlistCache, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewAuthHandler(registry, coordinator, r.logger))
	router.Handler(server.NewPlaylistHandler(playlistService, songService, filterService, r.logger))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the web service",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}
