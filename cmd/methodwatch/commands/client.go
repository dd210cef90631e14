package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zeusync/methodwatch/internal/core/stats"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// client talks to the statistics endpoints of a running server.
type client struct {
	base string
	http *http.Client
}

func newClient(addr string) *client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &client{
		base: strings.TrimRight(addr, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) all(ctx context.Context) ([]stats.Snapshot, error) {
	var out []stats.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/statistics", http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) one(ctx context.Context, key string) (stats.Snapshot, error) {
	var out stats.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/statistics/"+url.PathEscape(key), http.StatusOK, &out); err != nil {
		return stats.Snapshot{}, err
	}
	return out, nil
}

func (c *client) clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/statistics", http.StatusNoContent, nil)
}

func (c *client) do(ctx context.Context, method, path string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
