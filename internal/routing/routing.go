// Package routing resolves driving routes through the Google Maps
// Directions API.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"googlemaps.github.io/maps"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

const requestTimeout = 10 * time.Second

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// Client asks the Directions API for driving routes.
type Client struct {
	maps *maps.Client
}

// New constructs a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	o := options{httpClient: &http.Client{Timeout: requestTimeout}}
	for _, opt := range opts {
		opt(&o)
	}

	mopts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(o.httpClient),
	}
	if o.baseURL != "" {
		mopts = append(mopts, maps.WithBaseURL(o.baseURL))
	}

	c, err := maps.NewClient(mopts...)
	if err != nil {
		return nil, fmt.Errorf("routing.New: %w", err)
	}
	return &Client{maps: c}, nil
}

// Route returns every leg of every driving route between start and end,
// plus the routes as JSON.
func (c *Client) Route(ctx context.Context, start, end string) (domain.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	routes, _, err := c.maps.Directions(ctx, &maps.DirectionsRequest{
		Origin:       start,
		Destination:  end,
		Mode:         maps.TravelModeDriving,
		Alternatives: true,
		Language:     "de",
		Region:       "de",
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("routing.Client.Route: %w", err)
	}

	raw, err := json.Marshal(routes)
	if err != nil {
		return domain.Route{}, fmt.Errorf("routing.Client.Route: encode: %w", err)
	}

	out := domain.Route{Raw: string(raw)}
	for _, r := range routes {
		for _, leg := range r.Legs {
			if leg == nil {
				continue
			}
			out.Legs = append(out.Legs, domain.RouteLeg{
				Meters:  leg.Meters,
				Seconds: int(leg.Duration / time.Second),
			})
		}
	}
	return out, nil
}
