package track

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kmlTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="%s">
  <Document>
    <Placemark>
      <name>(Start)</name>
      <styleUrl>#start</styleUrl>
      <TimeStamp><when>%s</when></TimeStamp>
      <Point><coordinates>%s</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Morning Run</name>
      <styleUrl>#track</styleUrl>
    </Placemark>
    <Placemark>
      <name>(End)</name>
      <styleUrl>#end</styleUrl>
      <description>%s</description>
      <TimeStamp><when>%s</when></TimeStamp>
      <Point><coordinates>%s</coordinates></Point>
    </Placemark>
  </Document>
</kml>`

func buildKML(ns, startWhen, startCoords, description, endWhen, endCoords string) []byte {
	return []byte(fmt.Sprintf(kmlTemplate, ns, startWhen, startCoords, description, endWhen, endCoords))
}

func TestParse(t *testing.T) {
	data := buildKML(
		"http://earth.google.com/kml/2.2",
		"2014-01-01T08:00:00.000000Z", "-123.1,49.2,10",
		"Total distance: 5.2 km",
		"2014-01-01T09:00:00.000000Z", "-123.2,49.3,12",
	)

	record, err := Parse("Morning Run", data)
	require.NoError(t, err)

	assert.Equal(t, "Morning Run", record.Title)
	assert.Equal(t, time.Date(2014, 1, 1, 8, 0, 0, 0, time.UTC), record.Start)
	assert.Equal(t, time.Date(2014, 1, 1, 9, 0, 0, 0, time.UTC), record.End)
	assert.Equal(t, "49.2,-123.1", record.Location)
	assert.Equal(t, "Total distance: 5.2 km\n"+
		"Start: https://maps.google.com/?q=49.2,-123.1\n"+
		"End: https://maps.google.com/?q=49.3,-123.2", record.Description)
}

func TestParse_NamespaceIsNotFixed(t *testing.T) {
	// MyTracks exports have carried different default namespaces over time.
	data := buildKML(
		"http://www.opengis.net/kml/2.2",
		"2014-01-01T08:00:00.000000Z", "-123.1,49.2",
		"",
		"2014-01-01T09:00:00.000000Z", "-123.2,49.3",
	)

	record, err := Parse("Morning Run", data)
	require.NoError(t, err)
	assert.Equal(t, "49.2,-123.1", record.Location)
	assert.Equal(t, "Start: https://maps.google.com/?q=49.2,-123.1\n"+
		"End: https://maps.google.com/?q=49.3,-123.2", record.Description)
}

func TestParse_CoordinateTransform(t *testing.T) {
	testCases := []struct {
		name   string
		coords string
		want   string
	}{
		{name: "altitude dropped and order swapped", coords: "-123.1,49.2,10", want: "49.2,-123.1"},
		{name: "no altitude", coords: "-123.1,49.2", want: "49.2,-123.1"},
		{name: "surrounding whitespace", coords: " -123.1, 49.2 ", want: "49.2,-123.1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			location, err := parseCoordinates(tc.coords)
			require.NoError(t, err)
			assert.Equal(t, tc.want, location)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{
			name: "not XML",
			data: []byte("definitely not kml"),
		},
		{
			name: "missing start marker",
			data: []byte(`<?xml version="1.0"?>
<kml xmlns="http://earth.google.com/kml/2.2"><Document>
  <Placemark><styleUrl>#end</styleUrl>
    <TimeStamp><when>2014-01-01T09:00:00.000000Z</when></TimeStamp>
    <Point><coordinates>-123.2,49.3</coordinates></Point>
  </Placemark>
</Document></kml>`),
		},
		{
			name: "missing end marker",
			data: []byte(`<?xml version="1.0"?>
<kml xmlns="http://earth.google.com/kml/2.2"><Document>
  <Placemark><styleUrl>#start</styleUrl>
    <TimeStamp><when>2014-01-01T08:00:00.000000Z</when></TimeStamp>
    <Point><coordinates>-123.1,49.2</coordinates></Point>
  </Placemark>
</Document></kml>`),
		},
		{
			name: "timestamp without fractional seconds",
			data: buildKML("http://earth.google.com/kml/2.2",
				"2014-01-01T08:00:00Z", "-123.1,49.2", "",
				"2014-01-01T09:00:00.000000Z", "-123.2,49.3"),
		},
		{
			name: "coordinates without latitude",
			data: buildKML("http://earth.google.com/kml/2.2",
				"2014-01-01T08:00:00.000000Z", "-123.1", "",
				"2014-01-01T09:00:00.000000Z", "-123.2,49.3"),
		},
		{
			name: "start after end",
			data: buildKML("http://earth.google.com/kml/2.2",
				"2014-01-01T10:00:00.000000Z", "-123.1,49.2", "",
				"2014-01-01T09:00:00.000000Z", "-123.2,49.3"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("Morning Run", tc.data)
			assert.Error(t, err)
		})
	}
}

func TestParse_MissingMarkerNamesTag(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<kml xmlns="http://earth.google.com/kml/2.2"><Document>
  <Placemark><styleUrl>#end</styleUrl>
    <TimeStamp><when>2014-01-01T09:00:00.000000Z</when></TimeStamp>
    <Point><coordinates>-123.2,49.3</coordinates></Point>
  </Placemark>
</Document></kml>`)

	_, err := Parse("Morning Run", data)
	require.ErrorIs(t, err, ErrMarkerMissing)
	assert.Contains(t, err.Error(), "#start")
}
