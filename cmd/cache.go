package main

import (
	"context"
	"fmt"

	"github.com/adhamahmad/music-genie/internal/cache"
	"github.com/adhamahmad/music-genie/internal/repositories"
	"github.com/adhamahmad/music-genie/internal/shared"
	"github.com/urfave/cli/v3"
)

// CachePurge deletes expired cache entries and inactive sessions.
//
// Reads already treat both as absent; this reclaims the disk space.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	entries, err := cache.New(db).PurgeExpired()
	if err != nil {
		return fmt.Errorf("failed to purge cache entries: %w", err)
	}

	sessions, err := repositories.NewSessionRepository(db).PurgeInactive()
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	r.logger.Info("purge complete", "cache_entries", entries, "sessions", sessions)
	return r.writeJSON(map[string]int64{"cache_entries": entries, "sessions": sessions}, cmd.Bool("pretty"))
}

// cacheCommand handles cache maintenance
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Cache maintenance",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Delete expired cache entries and inactive sessions",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.CachePurge,
			},
		},
	}
}
