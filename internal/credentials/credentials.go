// Package credentials owns the login document the vendor client authenticates with.
//
// The document is operator-supplied JSON. Its known keys are decoded into
// Credentials, but the file is always stored and displayed as the operator wrote
// it, re-indented, so keys the dashboard does not understand survive a save.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	defaultScope    = "profile openid roles country msso msso_register msso_client_register"
	defaultResource = "https://mdtsts-ocl.medtronic.com/*"

	indent = "    "
)

var (
	ErrNotFound    = errors.New("credentials file not found")
	ErrInvalidJSON = errors.New("credentials are not valid JSON")
	ErrNotObject   = errors.New("credentials must be a JSON object")
	ErrSuperseded  = errors.New("credentials were replaced since the refresh started")
)

type Credentials struct {
	AccessToken   string   `json:"access_token"`
	RefreshToken  string   `json:"refresh_token"`
	Scope         string   `json:"scope"`
	Resource      []string `json:"resource"`
	ClientID      string   `json:"client_id"`
	ClientSecret  string   `json:"client_secret"`
	MagIdentifier string   `json:"mag-identifier"`
}

// Template is shown by the login form when no credentials have been stored yet.
func Template() Credentials {
	return Credentials{
		Scope:    defaultScope,
		Resource: []string{defaultResource},
	}
}

func (c Credentials) IsEmpty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Token converts the stored tokens to an oauth2.Token. The access token is a
// JWT; its exp claim becomes the expiry so the oauth2 machinery knows when to
// refresh. A token that cannot be parsed is treated as already expired.
func (c Credentials) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	tok.Expiry = accessTokenExpiry(c.AccessToken)
	return tok
}

func accessTokenExpiry(accessToken string) time.Time {
	expired := time.Unix(1, 0)
	if accessToken == "" {
		return expired
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return expired
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Pretty validates raw as JSON and returns it re-indented with four spaces.
func Pretty(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	var v any
	if err := go_json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	var buf bytes.Buffer
	if err := go_json.Indent(&buf, raw, "", indent); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (Credentials, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Credentials{}, ErrNotObject
	}
	var creds Credentials
	if err := go_json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}
