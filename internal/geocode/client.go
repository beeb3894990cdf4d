package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/futebolada/internal/dependencies/retry"
)

// UserAgent identifies this application to the geocoding service
const UserAgent = "Futebolada.org/1.0"

// ErrNoAddress is returned when the service knows nothing about a point
var ErrNoAddress = errors.New("no address found")

// Address holds the parts of a reverse geocoding result this application uses
type Address struct {
	Amenity       string `json:"amenity"`
	Leisure       string `json:"leisure"`
	Road          string `json:"road"`
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Town          string `json:"town"`
	City          string `json:"city"`
	Village       string `json:"village"`
}

// Name joins the most specific available parts, e.g. "Campo X, Rua Y, Alvalade, Lisboa"
func (a Address) Name() string {
	parts := []string{
		first(a.Amenity, a.Leisure),
		a.Road,
		first(a.Neighbourhood, a.Suburb),
		first(a.Town, a.City, a.Village),
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type reverseResponse struct {
	Address *Address `json:"address"`
	Error   string   `json:"error"`
}

// Client is a Nominatim reverse geocoding client
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		attempts:   retry.DefaultAttempts,
	}
}

// Reverse resolves a coordinate to a display name. Transient failures are retried.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	var name string
	err := retry.Do(ctx, c.attempts, func() error {
		addr, err := c.reverse(ctx, lat, lon)
		if err != nil {
			return err
		}
		name = addr.Name()
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (*Address, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("geocoder returned status %d", resp.StatusCode))
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, retry.Permanent(fmt.Errorf("decoding geocoder response: %w", err))
	}
	if body.Address == nil {
		return nil, retry.Permanent(ErrNoAddress)
	}
	return body.Address, nil
}
