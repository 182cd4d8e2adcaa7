// Package history retrieves room backfill from the chat server over HTTP.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBody = 8 << 20

// FetchError is a non-2xx history response.
type FetchError struct {
	Room   string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("history %s: unexpected status %d", e.Room, e.Status)
}

// Client fetches GET {base}/history/{room}.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the server at base, e.g. "http://localhost:8080".
// A nil httpClient uses a client with a 30s timeout.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: httpClient,
	}
}

type response struct {
	Messages []json.RawMessage `json:"messages"`
}

// History returns the raw history records of room, oldest first. Records are
// not validated here.
func (c *Client) History(ctx context.Context, room string) ([]json.RawMessage, error) {
	endpoint := c.base + "/history/" + url.PathEscape(room)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", room, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", room, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &FetchError{Room: room, Status: resp.StatusCode}
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("history %s: decode: %w", room, err)
	}
	return body.Messages, nil
}
