package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	gdrive "google.golang.org/api/drive/v2"
	"google.golang.org/api/option"

	"github.com/tracks2cal/tracks2cal/internal/paging"
)

const (
	folderMimeType    = "application/vnd.google-apps.folder"
	trackFileMimeType = "application/vnd.google-earth.kml+xml"
)

var (
	ErrFolderNotFound  = fmt.Errorf("no matching folder found in Google Drive")
	ErrAmbiguousFolder = fmt.Errorf("more than one matching folder found in Google Drive")
)

// Folder is a Google Drive folder located directly under the Drive root.
type Folder struct {
	ID    string
	Title string
}

// TrackFile is one downloaded track recording: the file title with its last
// extension stripped, and the raw KML payload.
type TrackFile struct {
	Title string
	Data  []byte
}

type Service interface {
	// FindRootFolder locates exactly one root-level folder with the given
	// title. Zero matches yields ErrFolderNotFound, multiple matches
	// ErrAmbiguousFolder.
	FindRootFolder(ctx context.Context, name string) (Folder, error)

	// StreamTrackFiles downloads the non-trashed KML files of a folder one
	// by one. The returned channels are valid for a single run; the file
	// channel is closed when the enumeration ends, after which the error
	// channel reports at most one structural failure. Files whose download
	// fails are logged and skipped.
	StreamTrackFiles(ctx context.Context, folderID string) (<-chan TrackFile, <-chan error)
}

// Client wraps the Google Drive API service.
type Client struct {
	service    *gdrive.Service
	httpClient *http.Client
}

// NewClient creates a new Google Drive API client using an authorized HTTP
// client. Optionally accepts an endpoint URL for testing with mock servers.
func NewClient(ctx context.Context, httpClient *http.Client, endpoint ...string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	srv, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	return &Client{service: srv, httpClient: httpClient}, nil
}

func (c *Client) FindRootFolder(ctx context.Context, name string) (Folder, error) {
	log.Debugf("Looking up the %q folder in Google Drive", name)

	query := fmt.Sprintf("mimeType='%s' and title='%s' and trashed=false", folderMimeType, escapeQueryTerm(name))
	files, err := paging.FetchAll(func(pageToken string) ([]*gdrive.File, string, error) {
		call := c.service.Files.List().Q(query).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, "", err
		}
		return res.Items, res.NextPageToken, nil
	})
	if err != nil {
		return Folder{}, fmt.Errorf("unable to list folders in Google Drive: %w", err)
	}

	var matches []Folder
	for _, f := range files {
		if f.Title != name || !hasRootParent(f) {
			continue
		}
		matches = append(matches, Folder{ID: f.Id, Title: f.Title})
	}

	switch len(matches) {
	case 0:
		return Folder{}, fmt.Errorf("folder %q: %w", name, ErrFolderNotFound)
	case 1:
		return matches[0], nil
	default:
		return Folder{}, fmt.Errorf("folder %q (%d matches): %w", name, len(matches), ErrAmbiguousFolder)
	}
}

func (c *Client) StreamTrackFiles(ctx context.Context, folderID string) (<-chan TrackFile, <-chan error) {
	files := make(chan TrackFile)
	errChan := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errChan)

		log.Debug("Getting kml files in the folder")

		query := fmt.Sprintf("mimeType='%s' and trashed=false", trackFileMimeType)
		children, err := paging.FetchAll(func(pageToken string) ([]*gdrive.ChildReference, string, error) {
			call := c.service.Children.List(folderID).Q(query).Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			res, err := call.Do()
			if err != nil {
				return nil, "", err
			}
			return res.Items, res.NextPageToken, nil
		})
		if err != nil {
			errChan <- fmt.Errorf("unable to list track files in Google Drive: %w", err)
			return
		}

		for _, child := range children {
			meta, err := c.service.Files.Get(child.Id).Context(ctx).Do()
			if err != nil {
				errChan <- fmt.Errorf("unable to get metadata for file %s: %w", child.Id, err)
				return
			}

			title := strings.TrimSuffix(meta.Title, filepath.Ext(meta.Title))

			log.Debugf("Downloading data from %q", meta.Title)

			data, err := c.download(ctx, meta.DownloadUrl)
			if err != nil {
				log.Warnf("Error occurred downloading KML file %q: %v", meta.Title, err)
				continue
			}

			select {
			case files <- TrackFile{Title: title, Data: data}:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return files, errChan
}

func (c *Client) download(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected download status: %s", res.Status)
	}
	return io.ReadAll(res.Body)
}

func hasRootParent(f *gdrive.File) bool {
	for _, p := range f.Parents {
		if p.IsRoot {
			return true
		}
	}
	return false
}

func escapeQueryTerm(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
