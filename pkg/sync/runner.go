package sync

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tracks2cal/tracks2cal/internal/utils"
	"github.com/tracks2cal/tracks2cal/pkg/calendar"
	"github.com/tracks2cal/tracks2cal/pkg/drive"
	"github.com/tracks2cal/tracks2cal/pkg/track"
)

// Summary reports the outcome of one synchronization pass.
type Summary struct {
	Folder       string        `json:"folder"`
	Calendar     string        `json:"calendar"`
	TotalParsed  int           `json:"totalParsed"`
	TotalAdded   int           `json:"totalAdded"`
	TotalSkipped int           `json:"totalSkipped"`
	Duration     time.Duration `json:"duration"`
}

// Runner executes one synchronization pass: resolve the folder, snapshot the
// calendar, then parse, deduplicate and write each track file in turn.
// Execution is strictly sequential.
type Runner struct {
	drive        drive.Service
	calendar     calendar.Service
	folderName   string
	calendarName string
	clock        utils.Clock
}

func NewRunner(driveService drive.Service, calendarService calendar.Service, folderName, calendarName string, clock utils.Clock) *Runner {
	return &Runner{
		drive:        driveService,
		calendar:     calendarService,
		folderName:   folderName,
		calendarName: calendarName,
		clock:        clock,
	}
}

// Run performs one pass. A folder that resolves to zero or multiple matches
// aborts the run before any file is processed. Files that fail to download
// or parse are skipped; an event insertion failure stops the run with the
// counters accumulated so far.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := r.clock.Now()
	summary := Summary{Folder: r.folderName, Calendar: r.calendarName}

	folder, err := r.drive.FindRootFolder(ctx, r.folderName)
	if err != nil {
		return summary, err
	}

	calendarID, err := r.calendar.EnsureCalendar(ctx, r.calendarName)
	if err != nil {
		return summary, err
	}

	existing, err := r.calendar.ListEvents(ctx, calendarID)
	if err != nil {
		return summary, err
	}
	cache := NewEventCache(existing)
	log.Debugf("Loaded %d existing events from calendar %q", cache.Size(), r.calendarName)

	files, errChan := r.drive.StreamTrackFiles(ctx, folder.ID)
	for file := range files {
		added, err := r.processFile(ctx, calendarID, cache, file, &summary)
		if err != nil {
			return summary, err
		}
		if added {
			summary.TotalAdded++
		}
	}
	if err := <-errChan; err != nil {
		return summary, err
	}

	summary.Duration = r.clock.Now().Sub(started)
	log.Infof("Synchronized folder %q into calendar %q: %d added, %d parsed, %d skipped",
		summary.Folder, summary.Calendar, summary.TotalAdded, summary.TotalParsed, summary.TotalSkipped)
	return summary, nil
}

// processFile handles one track file. A malformed payload is skipped and the
// run continues, the same tolerance applied to failed downloads.
func (r *Runner) processFile(ctx context.Context, calendarID string, cache *EventCache, file drive.TrackFile, summary *Summary) (bool, error) {
	record, err := track.Parse(file.Title, file.Data)
	if err != nil {
		log.Warnf("Skipping malformed track file %q: %v", file.Title, err)
		summary.TotalSkipped++
		return false, nil
	}
	summary.TotalParsed++

	if cache.HasMatch(record) {
		log.Debugf("Event %q already exists", record.Title)
		return false, nil
	}

	if err := r.calendar.InsertEvent(ctx, calendarID, calendar.EventInput{
		Title:       record.Title,
		Start:       record.Start,
		End:         record.End,
		Location:    record.Location,
		Description: record.Description,
	}); err != nil {
		return false, fmt.Errorf("failed to add event %q: %w", record.Title, err)
	}
	return true, nil
}
