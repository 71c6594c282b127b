package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/geomesh/internal/geo"
	"github.com/Faultbox/geomesh/internal/logger"
)

const (
	// DefaultEndpoint is the public Open-Elevation lookup API.
	DefaultEndpoint = "https://api.open-elevation.com/api/v1/lookup"

	// DefaultMaxLocations bounds the size of a single lookup request.
	DefaultMaxLocations = 10000

	// DefaultTimeout applies when ClientConfig.Timeout is zero.
	DefaultTimeout = 60 * time.Second
)

// HTTPDoer is the subset of *http.Client the lookup client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a LookupClient.
type ClientConfig struct {
	Endpoint     string
	Timeout      time.Duration
	MaxLocations int
	Cache        *FileCache // nil disables caching
}

// LookupClient batches locations into one elevation lookup request.
type LookupClient struct {
	endpoint     string
	httpClient   HTTPDoer
	cache        *FileCache
	maxLocations int
	locations    []location
	log          *zap.Logger
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupRequest struct {
	Locations []location `json:"locations"`
}

type lookupResponse struct {
	Results []Sample `json:"results"`
}

// NewLookupClient creates a client using net/http.
func NewLookupClient(cfg ClientConfig) *LookupClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewLookupClientWithHTTPDoer(cfg, &http.Client{Timeout: timeout})
}

// NewLookupClientWithHTTPDoer creates a client with a custom transport, mainly for tests.
func NewLookupClientWithHTTPDoer(cfg ClientConfig, doer HTTPDoer) *LookupClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	maxLocations := cfg.MaxLocations
	if maxLocations <= 0 {
		maxLocations = DefaultMaxLocations
	}
	return &LookupClient{
		endpoint:     endpoint,
		httpClient:   doer,
		cache:        cfg.Cache,
		maxLocations: maxLocations,
		log:          logger.Named("lookup"),
	}
}

// AddLocation queues a location for the next request.
func (c *LookupClient) AddLocation(lat, lon float64) {
	c.locations = append(c.locations, location{Latitude: lat, Longitude: lon})
}

// AddPoints queues several locations in order.
func (c *LookupClient) AddPoints(points []geo.Point) {
	for _, p := range points {
		c.AddLocation(p.Latitude, p.Longitude)
	}
}

// Locations returns the queued locations in request order.
func (c *LookupClient) Locations() []geo.Point {
	out := make([]geo.Point, len(c.locations))
	for i, l := range c.locations {
		out[i] = geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
	}
	return out
}

// Reset drops all queued locations.
func (c *LookupClient) Reset() {
	c.locations = c.locations[:0]
}

// Lookup returns elevations for the queued locations.
//
// A cached response, if present and readable, is returned as-is without any
// network traffic and without checking that it matches the queued locations.
// Otherwise the locations are posted and a successful body replaces the cache.
func (c *LookupClient) Lookup(ctx context.Context) ([]Sample, error) {
	if samples, ok := c.loadCached(); ok {
		return samples, nil
	}
	return c.Post(ctx)
}

func (c *LookupClient) loadCached() ([]Sample, bool) {
	if c.cache == nil {
		return nil, false
	}

	data, ok, err := c.cache.Load()
	if err != nil {
		c.log.Warn("ignoring unreadable elevation cache", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var resp lookupResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Warn("ignoring malformed elevation cache",
			zap.String("path", c.cache.Path()),
			zap.Error(fmt.Errorf("%w: %v", ErrCacheIO, err)))
		return nil, false
	}

	c.log.Info("loaded cached elevation data",
		zap.String("path", c.cache.Path()),
		zap.Int("results", len(resp.Results)))
	return resp.Results, true
}

// Post sends the queued locations to the lookup endpoint, bypassing the cache read.
func (c *LookupClient) Post(ctx context.Context) ([]Sample, error) {
	if len(c.locations) == 0 {
		return nil, ErrEmptyRequest
	}
	if len(c.locations) > c.maxLocations {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(c.locations), c.maxLocations)
	}

	body, err := json.Marshal(lookupRequest{Locations: c.locations})
	if err != nil {
		return nil, fmt.Errorf("encoding lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Op: "post", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "post", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &NetworkError{Op: "status", StatusCode: resp.StatusCode, Err: errors.New(string(bytes.TrimSpace(snippet)))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read", Err: err}
	}

	var parsed lookupResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &NetworkError{Op: "decode", Err: err}
	}
	if len(parsed.Results) != len(c.locations) {
		return nil, &NetworkError{Op: "count", Err: fmt.Errorf("got %d results for %d locations", len(parsed.Results), len(c.locations))}
	}

	c.log.Info("received elevation data",
		zap.Int("locations", len(c.locations)),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)))

	if c.cache != nil {
		if err := c.cache.Store(raw); err != nil {
			c.log.Warn("failed to save elevation cache", zap.Error(err))
		} else {
			c.log.Debug("saved elevation data", zap.String("path", c.cache.Path()))
		}
	}

	return parsed.Results, nil
}
