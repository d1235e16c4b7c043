package carelink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

var ErrTokenExpired = errors.New("access token expired and no refresh token available")

var _ oauth2.TokenSource = (*storeTokenSource)(nil)

// storeTokenSource hands out the stored access token until it expires, then
// refreshes it and writes the new pair back to the store.
type storeTokenSource struct {
	config     *oauth2.Config
	httpClient *http.Client
	store      TokenStore

	mu    sync.Mutex
	token *oauth2.Token
}

func newStoreTokenSource(config *oauth2.Config, httpClient *http.Client, store TokenStore, initial *oauth2.Token) *storeTokenSource {
	return &storeTokenSource{
		config:     config,
		httpClient: httpClient,
		store:      store,
		token:      initial,
	}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token, nil
	}

	if s.token.RefreshToken == "" {
		return nil, ErrTokenExpired
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, s.httpClient)
	newToken, err := s.config.TokenSource(ctx, s.token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if newToken.RefreshToken == "" {
		newToken.RefreshToken = s.token.RefreshToken
	}

	// A superseded write leaves this client on a session the operator has
	// replaced; failing here sends the caller back to a fresh login.
	if err := s.store.UpdateToken(s.token.RefreshToken, newToken); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	s.token = newToken
	return newToken, nil
}
