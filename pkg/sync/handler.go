package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/tracks2cal/tracks2cal/internal/rest"
	"github.com/tracks2cal/tracks2cal/pkg/drive"
	"github.com/tracks2cal/tracks2cal/pkg/google"
)

// SyncRunner is the part of Service the handler needs.
type SyncRunner interface {
	RunOnce(ctx context.Context) (Summary, error)
}

type Handler struct {
	service SyncRunner
}

func NewHandler(service SyncRunner) *Handler {
	return &Handler{service: service}
}

// Run triggers one synchronization pass and returns the summary.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	summary, err := h.service.RunOnce(r.Context())
	if err != nil {
		switch {
		case google.IsAuthError(err):
			log.Warnf("synchronization requires authorization: %v", err)
			w.WriteHeader(http.StatusUnauthorized)
			writeError(w, "Google authorization required, please re-authorize")
		case errors.Is(err, drive.ErrFolderNotFound), errors.Is(err, drive.ErrAmbiguousFolder):
			log.Errorf("synchronization aborted: %v", err)
			w.WriteHeader(http.StatusConflict)
			writeError(w, err.Error())
		default:
			log.Errorf("synchronization failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			writeError(w, "Synchronization failed")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string) {
	if err := json.NewEncoder(w).Encode(rest.ErrorResponse{Error: message}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
