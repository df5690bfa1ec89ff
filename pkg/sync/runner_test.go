package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracks2cal/tracks2cal/internal/utils"
	"github.com/tracks2cal/tracks2cal/pkg/calendar"
	"github.com/tracks2cal/tracks2cal/pkg/drive"
)

const morningRunKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://earth.google.com/kml/2.2">
  <Document>
    <Placemark>
      <styleUrl>#start</styleUrl>
      <TimeStamp><when>2014-01-01T08:00:00.000000Z</when></TimeStamp>
      <Point><coordinates>-123.1,49.2,10</coordinates></Point>
    </Placemark>
    <Placemark>
      <styleUrl>#end</styleUrl>
      <description>Total distance: 5.2 km</description>
      <TimeStamp><when>2014-01-01T09:00:00.000000Z</when></TimeStamp>
      <Point><coordinates>-123.2,49.3,12</coordinates></Point>
    </Placemark>
  </Document>
</kml>`

func setupRunnerTest(t *testing.T) (*drive.ServiceStub, *calendar.ServiceStub, *Runner) {
	t.Helper()

	driveStub := drive.NewServiceStub()
	driveStub.Folders["My Tracks"] = drive.Folder{ID: "folder-1", Title: "My Tracks"}

	calendarStub := calendar.NewServiceStub()
	clock := &utils.MockClock{FixedNow: time.Date(2014, 2, 1, 12, 0, 0, 0, time.UTC)}

	runner := NewRunner(driveStub, calendarStub, "My Tracks", "Logging", clock)
	return driveStub, calendarStub, runner
}

func TestRunner_AddsEventForNewTrack(t *testing.T) {
	driveStub, calendarStub, runner := setupRunnerTest(t)
	driveStub.Files["folder-1"] = []drive.TrackFile{
		{Title: "Morning Run", Data: []byte(morningRunKML)},
	}

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "My Tracks", summary.Folder)
	assert.Equal(t, "Logging", summary.Calendar)
	assert.Equal(t, 1, summary.TotalParsed)
	assert.Equal(t, 1, summary.TotalAdded)
	assert.Equal(t, 0, summary.TotalSkipped)

	calendarID := calendarStub.Calendars["Logging"]
	inserted := calendarStub.Inserted[calendarID]
	require.Len(t, inserted, 1)
	assert.Equal(t, "Morning Run", inserted[0].Title)
	assert.Equal(t, time.Date(2014, 1, 1, 8, 0, 0, 0, time.UTC), inserted[0].Start)
	assert.Equal(t, time.Date(2014, 1, 1, 9, 0, 0, 0, time.UTC), inserted[0].End)
	assert.Equal(t, "49.2,-123.1", inserted[0].Location)
	assert.Contains(t, inserted[0].Description, "Total distance: 5.2 km")
	assert.Contains(t, inserted[0].Description, "https://maps.google.com/?q=49.2,-123.1")
	assert.Contains(t, inserted[0].Description, "https://maps.google.com/?q=49.3,-123.2")
}

func TestRunner_SecondRunIsIdempotent(t *testing.T) {
	driveStub, calendarStub, runner := setupRunnerTest(t)
	driveStub.Files["folder-1"] = []drive.TrackFile{
		{Title: "Morning Run", Data: []byte(morningRunKML)},
	}

	first, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalAdded)

	second, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalParsed)
	assert.Equal(t, 0, second.TotalAdded)

	calendarID := calendarStub.Calendars["Logging"]
	assert.Len(t, calendarStub.Inserted[calendarID], 1)
}

func TestRunner_FolderCountGuard(t *testing.T) {
	testCases := []struct {
		name    string
		findErr error
	}{
		{name: "zero matching folders", findErr: drive.ErrFolderNotFound},
		{name: "multiple matching folders", findErr: drive.ErrAmbiguousFolder},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			driveStub, calendarStub, runner := setupRunnerTest(t)
			driveStub.FindErr = tc.findErr
			driveStub.Files["folder-1"] = []drive.TrackFile{
				{Title: "Morning Run", Data: []byte(morningRunKML)},
			}

			summary, err := runner.Run(context.Background())
			require.ErrorIs(t, err, tc.findErr)
			assert.Equal(t, 0, summary.TotalParsed)
			assert.Equal(t, 0, summary.TotalAdded)
			assert.Empty(t, calendarStub.Inserted)
		})
	}
}

func TestRunner_MalformedFileIsSkipped(t *testing.T) {
	driveStub, calendarStub, runner := setupRunnerTest(t)
	driveStub.Files["folder-1"] = []drive.TrackFile{
		{Title: "Broken", Data: []byte("not kml at all")},
		{Title: "Morning Run", Data: []byte(morningRunKML)},
	}

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalParsed)
	assert.Equal(t, 1, summary.TotalAdded)
	assert.Equal(t, 1, summary.TotalSkipped)

	calendarID := calendarStub.Calendars["Logging"]
	require.Len(t, calendarStub.Inserted[calendarID], 1)
	assert.Equal(t, "Morning Run", calendarStub.Inserted[calendarID][0].Title)
}

func TestRunner_DuplicateTitlesInOneBatch(t *testing.T) {
	// The cache is loaded once per run, so two identical recordings in the
	// same batch both produce an event. Inherent to the load-once design.
	driveStub, calendarStub, runner := setupRunnerTest(t)
	driveStub.Files["folder-1"] = []drive.TrackFile{
		{Title: "Morning Run", Data: []byte(morningRunKML)},
		{Title: "Morning Run", Data: []byte(morningRunKML)},
	}

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalParsed)
	assert.Equal(t, 2, summary.TotalAdded)

	calendarID := calendarStub.Calendars["Logging"]
	assert.Len(t, calendarStub.Inserted[calendarID], 2)
}

func TestRunner_InsertErrorStopsRun(t *testing.T) {
	driveStub, calendarStub, runner := setupRunnerTest(t)
	driveStub.Files["folder-1"] = []drive.TrackFile{
		{Title: "Morning Run", Data: []byte(morningRunKML)},
	}
	calendarStub.InsertErr = fmt.Errorf("calendar unavailable")

	summary, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "calendar unavailable")
	assert.Equal(t, 1, summary.TotalParsed)
	assert.Equal(t, 0, summary.TotalAdded)
}

func TestRunner_StreamErrorPropagates(t *testing.T) {
	driveStub, _, runner := setupRunnerTest(t)
	driveStub.ListErr = fmt.Errorf("listing failed")

	_, err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "listing failed")
}
