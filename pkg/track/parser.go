package track

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// timestampLayout is the exact timestamp format MyTracks writes into KML
// exports: ISO-8601 UTC with six fractional digits.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

const (
	startTag = "#start"
	trackTag = "#track"
	endTag   = "#end"
)

var ErrMarkerMissing = fmt.Errorf("required placemark missing")

// Record is the structured form of one track recording.
type Record struct {
	Title       string
	Start       time.Time
	End         time.Time
	Location    string // "latitude,longitude" of the start marker
	Description string
}

type kmlRoot struct {
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	StyleURL    string `xml:"styleUrl"`
	Description string `xml:"description"`
	When        string `xml:"TimeStamp>when"`
	Coordinates string `xml:"Point>coordinates"`
}

// Parse decodes one KML payload into a Record. Placemarks are classified by
// their style reference: the "#start" and "#end" markers are required, a
// "#track" marker is ignored. Elements are matched by local name, so the
// document's declared default namespace does not need to be known up front.
func Parse(title string, data []byte) (Record, error) {
	log.Debugf("Parsing KML data for %q", title)

	var root kmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return Record{}, fmt.Errorf("invalid KML document: %w", err)
	}

	markers := make(map[string]kmlPlacemark, len(root.Document.Placemarks))
	for _, p := range root.Document.Placemarks {
		markers[strings.TrimSpace(p.StyleURL)] = p
	}

	start, err := requireMarker(markers, startTag)
	if err != nil {
		return Record{}, err
	}
	end, err := requireMarker(markers, endTag)
	if err != nil {
		return Record{}, err
	}

	startTime, err := parseTimestamp(start.When)
	if err != nil {
		return Record{}, fmt.Errorf("start marker: %w", err)
	}
	endTime, err := parseTimestamp(end.When)
	if err != nil {
		return Record{}, fmt.Errorf("end marker: %w", err)
	}
	if startTime.After(endTime) {
		return Record{}, fmt.Errorf("track starts at %s, after it ends at %s", startTime, endTime)
	}

	startLocation, err := parseCoordinates(start.Coordinates)
	if err != nil {
		return Record{}, fmt.Errorf("start marker: %w", err)
	}
	endLocation, err := parseCoordinates(end.Coordinates)
	if err != nil {
		return Record{}, fmt.Errorf("end marker: %w", err)
	}

	return Record{
		Title:       title,
		Start:       startTime,
		End:         endTime,
		Location:    startLocation,
		Description: buildDescription(end.Description, startLocation, endLocation),
	}, nil
}

func requireMarker(markers map[string]kmlPlacemark, tag string) (kmlPlacemark, error) {
	marker, ok := markers[tag]
	if !ok {
		return kmlPlacemark{}, fmt.Errorf("%w: %s", ErrMarkerMissing, tag)
	}
	return marker, nil
}

func parseTimestamp(text string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", strings.TrimSpace(text), err)
	}
	return t.UTC(), nil
}

// parseCoordinates converts the KML "longitude,latitude[,altitude]" point
// text to "latitude,longitude", dropping any altitude component.
func parseCoordinates(text string) (string, error) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid coordinates %q", strings.TrimSpace(text))
	}
	return strings.TrimSpace(parts[1]) + "," + strings.TrimSpace(parts[0]), nil
}

func buildDescription(description, startLocation, endLocation string) string {
	links := fmt.Sprintf("Start: %s\nEnd: %s", mapLink(startLocation), mapLink(endLocation))
	description = strings.TrimSpace(description)
	if description == "" {
		return links
	}
	return description + "\n" + links
}

func mapLink(location string) string {
	return "https://maps.google.com/?q=" + location
}
