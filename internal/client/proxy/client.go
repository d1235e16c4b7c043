// Package proxy reads pump documents from the local CareLink proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/xhttp"
	go_json "github.com/goccy/go-json"
)

const (
	TelemetryPath = "/carelink/nohistory"
	GraphPath     = "/carelink"
)

// ErrNoUpdate means the proxy answered but had nothing new: a non-200 status
// or an empty document. The previous snapshot should be kept.
var ErrNoUpdate = errors.New("proxy returned no update")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type clientConfig struct {
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*clientConfig)

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = xhttp.NewHTTPClient(xhttp.WithTimeout(cfg.timeout))
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// FetchTelemetry returns the decoded device-status document and its raw body.
func (c *Client) FetchTelemetry(ctx context.Context) (*pump.Telemetry, []byte, error) {
	body, err := c.get(ctx, TelemetryPath)
	if err != nil {
		return nil, nil, err
	}
	tel, err := DecodeTelemetry(body)
	if err != nil {
		return nil, nil, err
	}
	return tel, body, nil
}

// FetchGraph returns the decoded time-series document and its raw body.
func (c *Client) FetchGraph(ctx context.Context) (*pump.Graph, []byte, error) {
	body, err := c.get(ctx, GraphPath)
	if err != nil {
		return nil, nil, err
	}
	graph, err := DecodeGraph(body)
	if err != nil {
		return nil, nil, err
	}
	return graph, body, nil
}

// DecodeTelemetry decodes a telemetry body. Empty documents are ErrNoUpdate.
func DecodeTelemetry(body []byte) (*pump.Telemetry, error) {
	if pump.IsEmpty(body) {
		return nil, fmt.Errorf("%w: empty telemetry document", ErrNoUpdate)
	}
	var tel pump.Telemetry
	if err := go_json.Unmarshal(body, &tel); err != nil {
		return nil, fmt.Errorf("decoding telemetry: %w", err)
	}
	return &tel, nil
}

// DecodeGraph decodes a graph body. Empty documents, or documents without
// patientData, are ErrNoUpdate.
func DecodeGraph(body []byte) (*pump.Graph, error) {
	if pump.IsEmpty(body) {
		return nil, fmt.Errorf("%w: empty graph document", ErrNoUpdate)
	}
	var graph pump.Graph
	if err := go_json.Unmarshal(body, &graph); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	if graph.PatientData == nil {
		return nil, fmt.Errorf("%w: graph document has no patientData", ErrNoUpdate)
	}
	return &graph, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrNoUpdate, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}
