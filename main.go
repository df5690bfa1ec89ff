package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/tracks2cal/tracks2cal/internal/app"
	"github.com/tracks2cal/tracks2cal/internal/config"
	"github.com/tracks2cal/tracks2cal/internal/database"
	"github.com/tracks2cal/tracks2cal/pkg/google"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	cliApp := &cli.App{
		Name:  "tracks2cal",
		Usage: "synchronize Google MyTracks recordings into Google Calendar events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "./config/application.yaml",
				Usage: "path to the configuration file",
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server with the authorization front-end",
				Action: runServe,
			},
			{
				Name:   "sync",
				Usage:  "run a single synchronization pass and exit",
				Action: runSync,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServe(c *cli.Context) error {
	application, err := app.NewApplication(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

func runSync(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(cfg.Database); err != nil {
		return err
	}

	deps := app.BuildDependencies(db, cfg)
	summary, err := deps.SyncService.RunOnce(context.Background())
	if err != nil {
		if google.IsAuthError(err) {
			return fmt.Errorf("the credentials have been revoked or expired, please re-authorize through the web interface: %w", err)
		}
		return err
	}

	log.Infof("Synchronized folder %q into calendar %q: %d added, %d parsed, %d skipped (took %s)",
		summary.Folder, summary.Calendar, summary.TotalAdded, summary.TotalParsed, summary.TotalSkipped, summary.Duration)
	return nil
}
