package fipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dealer-workers/internal/common/errors"
	commonhttp "dealer-workers/internal/common/http"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/common/metrics"
	"dealer-workers/internal/filecache"
)

var (
	ErrNotFound        = stderrors.New("fipe resource not found")
	ErrInvalidArgument = stderrors.New("invalid fipe argument")
)

// Cache is the subset of the file cache the client uses.
type Cache interface {
	Get(key string, ttl time.Duration) filecache.Result
	Set(key string, value interface{})
}

// Client reads through the cache to the FIPE API.
type Client struct {
	http    *commonhttp.Client
	baseURL string
	cache   Cache
	ttls    TTLs
	logger  logger.Logger
}

func NewClient(httpClient *commonhttp.Client, baseURL string, cache Cache, ttls TTLs, log logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
		ttls:    ttls,
		logger:  log.WithFields(map[string]interface{}{"component": "fipe"}),
	}
}

func (c *Client) Brands(ctx context.Context, vt VehicleType) ([]Reference, error) {
	var out []Reference
	err := c.lookup(ctx, CacheKey{Resource: ResourceBrands, VehicleType: vt}, &out)
	return out, err
}

func (c *Client) Models(ctx context.Context, vt VehicleType, brand Code) (*Models, error) {
	if brand == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrInvalidArgument)
	}
	var out Models
	if err := c.lookup(ctx, CacheKey{Resource: ResourceModels, VehicleType: vt, Brand: brand}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Years(ctx context.Context, vt VehicleType, brand, model Code) ([]Reference, error) {
	if brand == "" || model == "" {
		return nil, fmt.Errorf("%w: brand and model are required", ErrInvalidArgument)
	}
	var out []Reference
	err := c.lookup(ctx, CacheKey{Resource: ResourceYears, VehicleType: vt, Brand: brand, Model: model}, &out)
	return out, err
}

func (c *Client) Price(ctx context.Context, vt VehicleType, brand, model, year Code) (*Price, error) {
	if brand == "" || model == "" || year == "" {
		return nil, fmt.Errorf("%w: brand, model and year are required", ErrInvalidArgument)
	}
	var out Price
	key := CacheKey{Resource: ResourcePrice, VehicleType: vt, Brand: brand, Model: model, Year: year}
	if err := c.lookup(ctx, key, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// lookup serves key from the cache when fresh, otherwise fetches, validates
// and caches the upstream payload before decoding it into dst.
func (c *Client) lookup(ctx context.Context, key CacheKey, dst interface{}) error {
	if _, err := ParseVehicleType(string(key.VehicleType)); err != nil {
		return err
	}

	cacheKey := key.String()
	if res := c.cache.Get(cacheKey, c.ttls.For(key.Resource)); res.Hit() {
		if err := json.Unmarshal(res.Data, dst); err == nil {
			return nil
		}
		c.logger.Warn("cached fipe payload does not decode, refetching", map[string]interface{}{"key": cacheKey})
	}

	raw, err := c.fetch(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.NewFipeInvalidResponseError(key.Path(), err.Error())
	}

	c.cache.Set(cacheKey, raw)
	return nil
}

func (c *Client) fetch(ctx context.Context, key CacheKey) (json.RawMessage, error) {
	path := key.Path()
	resource := string(key.Resource)
	start := time.Now()

	raw, err := c.http.GetJSON(ctx, c.baseURL+path)
	metrics.FipeRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		var statusErr *commonhttp.StatusError
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			metrics.FipeRequestsTotal.WithLabelValues(resource, "not_found").Inc()
			return nil, ErrNotFound
		}
		metrics.FipeRequestsTotal.WithLabelValues(resource, "error").Inc()
		c.logger.Error("fipe request failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil, errors.NewFipeRequestFailedError(path, err)
	}

	result, err := schemaFor(key.Resource).ValidateJSON(raw)
	if err != nil {
		return nil, errors.NewFipeInvalidResponseError(path, err.Error())
	}
	if !result.Valid {
		metrics.FipeRequestsTotal.WithLabelValues(resource, "invalid").Inc()
		c.logger.Warn("fipe payload failed validation", map[string]interface{}{
			"path":   path,
			"errors": result.GetErrorMessages(),
		})
		return nil, errors.NewFipeInvalidResponseError(path, result.Error())
	}

	metrics.FipeRequestsTotal.WithLabelValues(resource, "ok").Inc()
	return raw, nil
}
