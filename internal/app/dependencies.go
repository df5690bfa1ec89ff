package app

import (
	"database/sql"

	"github.com/tracks2cal/tracks2cal/internal/config"
	"github.com/tracks2cal/tracks2cal/internal/utils"
	"github.com/tracks2cal/tracks2cal/pkg/google"
	"github.com/tracks2cal/tracks2cal/pkg/sync"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	GoogleAuth *google.Auth

	SyncService *sync.Service
	SyncHandler *sync.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}

	deps.GoogleAuth = google.NewAuth(db, cfg)

	deps.SyncService = sync.NewService(deps.GoogleAuth, cfg, deps.Clock)
	deps.SyncHandler = sync.NewHandler(deps.SyncService)

	return deps
}
