// Package carelink is a thin client for the CareLink patient API.
package carelink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/garrettladley/minimon/internal/credentials"
	"github.com/garrettladley/minimon/internal/xhttp"
	go_json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL  = "https://clcloud.minimed.eu"
	DefaultTokenURL = "https://mdtsts-ocl.medtronic.com/mmcl/auth/oauth/v2/token"

	userPath        = "/patient/users/me"
	monitorDataPath = "/patient/monitor/data"

	headerMagIdentifier = "mag-identifier"
)

var (
	ErrNoCredentials = errors.New("no carelink credentials stored")
	ErrNoData        = errors.New("carelink returned no data")
)

// TokenStore is where the client reads its credentials and writes refreshed
// tokens back. UpdateToken is given the refresh token the refresh started from
// and must refuse the write once the stored credentials have moved on.
type TokenStore interface {
	Load() (credentials.Credentials, error)
	UpdateToken(refreshedFrom string, tok *oauth2.Token) error
}

// RecentData is the monitor document. Only the field that drives scheduling is
// decoded; the rest is kept raw.
type RecentData struct {
	LastConduitUpdateServerTime go_json.Number `json:"lastConduitUpdateServerTime"`

	Raw go_json.RawMessage `json:"-"`
}

type User struct {
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Country   string `json:"country"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	user *User
}

type clientConfig struct {
	baseURL  string
	tokenURL string
	timeout  time.Duration
	logger   *slog.Logger
	base     http.RoundTripper
}

type Option func(*clientConfig)

func WithBaseURL(u string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = strings.TrimRight(u, "/") }
}

func WithTokenURL(u string) Option {
	return func(cfg *clientConfig) { cfg.tokenURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

// WithTransport replaces the underlying round tripper used for both API calls
// and token refreshes.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *clientConfig) { cfg.base = rt }
}

// New reads the stored credentials and builds a client bound to them. The
// store is read exactly once; a new login cycle needs a new client.
func New(store TokenStore, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:  DefaultBaseURL,
		tokenURL: DefaultTokenURL,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
		base:     xhttp.NewTransport(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	creds, err := store.Load()
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if creds.IsEmpty() {
		return nil, ErrNoCredentials
	}

	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: strings.Fields(creds.Scope),
	}
	refreshClient := &http.Client{Transport: cfg.base, Timeout: cfg.timeout}

	transport := &carelinkTransport{
		base:          cfg.base,
		tokenSource:   newStoreTokenSource(oauthConfig, refreshClient, store, creds.Token()),
		magIdentifier: creds.MagIdentifier,
	}

	return &Client{
		baseURL:    cfg.baseURL,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.timeout},
		logger:     cfg.logger,
	}, nil
}

// Login validates the session by fetching the current user. It refreshes the
// access token first when it has expired.
func (c *Client) Login(ctx context.Context) error {
	var user User
	if err := c.do(ctx, http.MethodGet, userPath, nil, &user); err != nil {
		return fmt.Errorf("carelink login: %w", err)
	}
	c.user = &user
	return nil
}

// User is the account resolved by the last successful Login.
func (c *Client) User() *User { return c.user }

// RecentData fetches the latest monitor document. A null body is ErrNoData.
func (c *Client) RecentData(ctx context.Context) (*RecentData, error) {
	body := map[string]string{}
	if c.user != nil {
		body["username"] = c.user.FirstName
		body["role"] = patientRole(c.user.Role)
	}

	var raw go_json.RawMessage
	if err := c.do(ctx, http.MethodPost, monitorDataPath, body, &raw); err != nil {
		return nil, fmt.Errorf("fetching recent data: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, ErrNoData
	}

	var data RecentData
	if err := go_json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding recent data: %w", err)
	}
	data.Raw = raw
	return &data, nil
}

func patientRole(role string) string {
	if strings.EqualFold(role, "CARE_PARTNER") || strings.EqualFold(role, "CARE_PARTNER_OUS") {
		return "carepartner"
	}
	return "patient"
}

func (c *Client) do(ctx context.Context, method string, path string, payload any, result any) error {
	var reqBody io.Reader
	if payload != nil {
		b, err := go_json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set(xhttp.ContentType, "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if raw, ok := result.(*go_json.RawMessage); ok {
		*raw = body
		return nil
	}
	if err := go_json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type carelinkTransport struct {
	base          http.RoundTripper
	tokenSource   oauth2.TokenSource
	magIdentifier string
}

var _ http.RoundTripper = (*carelinkTransport)(nil)

func (t *carelinkTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if t.magIdentifier != "" {
		req.Header.Set(headerMagIdentifier, t.magIdentifier)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
