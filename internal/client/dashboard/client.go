// Package dashboard reads a running minimon server's JSON API.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/history"
	"github.com/garrettladley/minimon/internal/xhttp"
	go_json "github.com/goccy/go-json"
)

const (
	pumpDataPath  = "/api/pump-data"
	graphDataPath = "/api/pump-graph-data"
	historyPath   = "/api/history"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: xhttp.NewHTTPClient(xhttp.WithTimeout(timeout)),
	}
}

func (c *Client) PumpData(ctx context.Context) (format.PumpData, error) {
	var out format.PumpData
	if err := c.get(ctx, pumpDataPath, nil, &out); err != nil {
		return format.PumpData{}, err
	}
	return out, nil
}

func (c *Client) GraphData(ctx context.Context) (format.GraphData, error) {
	var out format.GraphData
	if err := c.get(ctx, graphDataPath, nil, &out); err != nil {
		return format.GraphData{}, err
	}
	return out, nil
}

type HistoryResponse struct {
	Hours   int              `json:"hours"`
	Samples []history.Sample `json:"samples"`
}

func (c *Client) History(ctx context.Context, hours int) (HistoryResponse, error) {
	var out HistoryResponse
	q := url.Values{"hours": {strconv.Itoa(hours)}}
	if err := c.get(ctx, historyPath, q, &out); err != nil {
		return HistoryResponse{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Message string `json:"message"`
		}
		if err := go_json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("%s: %d %s", path, resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	if err := go_json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
