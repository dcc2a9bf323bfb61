// Package notifier sends resolved notification records to the Notifiarr
// passthrough gateway.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"torznab_monitor/internal/mapping"
)

const defaultColor = "00FF00"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts notifications to the Notifiarr passthrough webhook.
type Client struct {
	client    HTTPClient
	url       string
	channelID int64
	limiter   *rate.Limiter
	timeout   time.Duration
}

// New creates a Client for the given gateway. The API key becomes the last
// path segment of the webhook URL, per the passthrough contract.
func New(client HTTPClient, baseURL, apiKey string, channelID int64) *Client {
	return &Client{
		client:    client,
		url:       strings.TrimSuffix(baseURL, "/") + "/" + apiKey,
		channelID: channelID,
		// Notifiarr throttles aggressive senders; one post per second
		// with a small burst keeps a busy tick under the limit.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		timeout: 30 * time.Second,
	}
}

type payload struct {
	Notification notification `json:"notification"`
	Discord      discord      `json:"discord"`
}

type notification struct {
	Update bool   `json:"update"`
	Name   string `json:"name"`
	Event  string `json:"event,omitempty"`
}

type discord struct {
	Color  string `json:"color,omitempty"`
	Text   text   `json:"text"`
	Images images `json:"images"`
	IDs    ids    `json:"ids"`
}

type text struct {
	Title       string `json:"title,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	Footer      string `json:"footer,omitempty"`
}

type images struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Image     string `json:"image,omitempty"`
}

type ids struct {
	Channel int64 `json:"channel"`
}

// Send serializes a record into the gateway schema and posts it. A non-2xx
// response or transport failure is returned as an error; the caller decides
// what to do with it, there is no retry here.
func (c *Client) Send(ctx context.Context, record mapping.Record) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(buildPayload(c.channelID, record))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway status %d", resp.StatusCode)
	}
	return nil
}

func buildPayload(channel int64, record mapping.Record) payload {
	color := record["color"]
	if color == "" {
		color = defaultColor
	}
	return payload{
		Notification: notification{
			Name:  record["name"],
			Event: record["event"],
		},
		Discord: discord{
			Color: color,
			Text: text{
				Title:       record["title"],
				Icon:        record["icon"],
				Content:     record["content"],
				Description: record["description"],
				Footer:      record["footer"],
			},
			Images: images{
				Thumbnail: record["thumbnail"],
				Image:     record["image"],
			},
			IDs: ids{Channel: channel},
		},
	}
}
