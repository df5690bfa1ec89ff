package google

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	gdrive "google.golang.org/api/drive/v2"
	"google.golang.org/api/googleapi"

	"github.com/tracks2cal/tracks2cal/internal/config"
	"github.com/tracks2cal/tracks2cal/internal/rest"
)

var ErrUnauthenticated = fmt.Errorf("no Google authorization found, authorization is required")

// ClientProvider hands out an HTTP client authorized with the stored Google
// credentials. Returns ErrUnauthenticated when no token has been stored.
type ClientProvider interface {
	Client(ctx context.Context) (*http.Client, error)
}

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

type authStatus struct {
	Authenticated bool `json:"authenticated"`
}

// Auth implements the OAuth consent flow and stores the resulting token in
// the database. The application is single-user: at most one token row exists.
type Auth struct {
	db          *sql.DB
	oauthConfig *oauth2.Config
}

func NewAuth(db *sql.DB, cfg config.Application) *Auth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/auth/callback",
		Scopes:       []string{gdrive.DriveReadonlyScope, gcal.CalendarScope},
	}

	return &Auth{db: db, oauthConfig: oauthConfig}
}

func (a *Auth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	_, err := a.db.Exec("DELETE FROM google_auth")
	if err != nil {
		log.Errorf("failed to delete old Google auth row: %v", err)
		writeAuthError(w)
		return
	}

	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	// store nonce for use when the callback arrives
	_, err = a.db.Exec("INSERT INTO google_auth (nonce) VALUES ($1)", stateNonce)
	if err != nil {
		log.Errorf("failed to store Google auth nonce: %v", err)
		writeAuthError(w)
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := a.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	w.WriteHeader(http.StatusOK)
	encodeErr := json.NewEncoder(w).Encode(googleAuthRedirect{
		RedirectUrl: u,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func (a *Auth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	parts := strings.SplitN(state, "|", 2)
	if len(parts) != 2 {
		log.Errorf("malformed OAuth state: %q", state)
		http.Error(w, "malformed OAuth state", http.StatusBadRequest)
		return
	}
	finalUrl := parts[0]
	nonce := parts[1]

	token, err := a.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		err := fmt.Errorf("unable to exchange code for token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	result, err := a.db.Exec("UPDATE google_auth SET access_token = $1, refresh_token = $2, expiry = $3 WHERE nonce = $4",
		token.AccessToken, token.RefreshToken, token.Expiry.Unix(), nonce)
	if err != nil {
		err := fmt.Errorf("unable to store Google auth token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		log.Errorf("no pending Google auth row for nonce %s", nonce)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debug("Successfully stored Google auth token for nonce: ", nonce)
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

func (a *Auth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	_, err := a.db.Exec("DELETE FROM google_auth")
	if err != nil {
		log.Errorf("failed to delete Google auth row: %v", err)
		writeAuthError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Auth) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	token, err := a.getToken(r.Context())
	if err != nil {
		log.Errorf("failed to read Google auth token: %v", err)
		writeAuthError(w)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(authStatus{Authenticated: token != nil}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *Auth) getToken(ctx context.Context) (*oauth2.Token, error) {
	var token oauth2.Token
	var expiryTimestamp int64
	err := a.db.QueryRowContext(ctx,
		"SELECT access_token, refresh_token, expiry FROM google_auth WHERE access_token IS NOT NULL").
		Scan(&token.AccessToken, &token.RefreshToken, &expiryTimestamp)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google auth token: %v", err)
	}

	token.Expiry = time.Unix(expiryTimestamp, 0)
	return &token, nil
}

// Client returns an HTTP client authorized with the stored token. The
// oauth2 transport refreshes the token transparently when it has expired.
func (a *Auth) Client(ctx context.Context) (*http.Client, error) {
	token, err := a.getToken(ctx)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	if token == nil {
		return nil, ErrUnauthenticated
	}
	return a.oauthConfig.Client(ctx, token), nil
}

// IsAuthError reports whether err indicates missing, revoked or expired
// Google credentials, as opposed to an operational failure.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrUnauthenticated) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

func writeAuthError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusInternalServerError)
	encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
		Error: "Failed to handle Google authentication",
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}
