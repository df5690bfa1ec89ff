package sync

import (
	"context"
	"fmt"

	"github.com/tracks2cal/tracks2cal/internal/config"
	"github.com/tracks2cal/tracks2cal/internal/utils"
	"github.com/tracks2cal/tracks2cal/pkg/calendar"
	"github.com/tracks2cal/tracks2cal/pkg/drive"
	"github.com/tracks2cal/tracks2cal/pkg/google"
)

// Service builds authorized Drive and Calendar clients per run and executes
// one synchronization pass with them. Credentials come from the injected
// provider; there is no process-wide authorization state.
type Service struct {
	provider     google.ClientProvider
	folderName   string
	calendarName string
	clock        utils.Clock
}

func NewService(provider google.ClientProvider, cfg config.Application, clock utils.Clock) *Service {
	return &Service{
		provider:     provider,
		folderName:   cfg.Sync.Folder,
		calendarName: cfg.Sync.Calendar,
		clock:        clock,
	}
}

func (s *Service) RunOnce(ctx context.Context) (Summary, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return Summary{}, err
	}

	driveService, err := drive.NewClient(ctx, client)
	if err != nil {
		return Summary{}, fmt.Errorf("unable to prepare Drive client: %w", err)
	}
	calendarService, err := calendar.NewClient(ctx, client)
	if err != nil {
		return Summary{}, fmt.Errorf("unable to prepare Calendar client: %w", err)
	}

	runner := NewRunner(driveService, calendarService, s.folderName, s.calendarName, s.clock)
	return runner.Run(ctx)
}
