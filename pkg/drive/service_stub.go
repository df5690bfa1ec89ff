package drive

import (
	"context"
)

// ServiceStub is an in-memory Service implementation for tests.
type ServiceStub struct {
	Folders map[string]Folder // name -> folder
	Files   map[string][]TrackFile
	FindErr error
	ListErr error
}

func NewServiceStub() *ServiceStub {
	return &ServiceStub{
		Folders: make(map[string]Folder),
		Files:   make(map[string][]TrackFile),
	}
}

func (s *ServiceStub) FindRootFolder(_ context.Context, name string) (Folder, error) {
	if s.FindErr != nil {
		return Folder{}, s.FindErr
	}
	folder, ok := s.Folders[name]
	if !ok {
		return Folder{}, ErrFolderNotFound
	}
	return folder, nil
}

func (s *ServiceStub) StreamTrackFiles(ctx context.Context, folderID string) (<-chan TrackFile, <-chan error) {
	files := make(chan TrackFile)
	errChan := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errChan)

		if s.ListErr != nil {
			errChan <- s.ListErr
			return
		}
		for _, f := range s.Files[folderID] {
			select {
			case files <- f:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return files, errChan
}
