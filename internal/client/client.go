// Package client implements engine.RemoteAPI over the mealsync HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/mealsync/internal/engine"
	"github.com/roach88/mealsync/internal/model"
)

// Client talks to a mealsync server on behalf of one identity.
//
// Thread-safety: safe for concurrent use; UpsertMeals fan-out issues
// requests from several goroutines.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

var _ engine.RemoteAPI = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client for the server at baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: server url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse server url: %w", err)
	}
	c := &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IdentityFromToken returns the subject of a bearer token without verifying
// its signature. The server verifies every request; the client only needs
// the identity to pick its persistence mode.
func IdentityFromToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("parse token: missing subject")
	}
	return claims.Subject, nil
}

// CreateVendor creates a vendor, or returns the caller's existing vendor
// with the same name.
func (c *Client) CreateVendor(ctx context.Context, v model.Vendor) (model.Vendor, error) {
	var resp model.VendorResponse
	if err := c.do(ctx, "create vendor", http.MethodPost, "/vendor", nil, v, &resp); err != nil {
		return model.Vendor{}, err
	}
	return resp.Vendor, nil
}

// ListVendors returns the caller's vendors with their offered meals.
func (c *Client) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	var vendors []model.Vendor
	if err := c.do(ctx, "list vendors", http.MethodGet, "/vendor", nil, nil, &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}

// UpdateVendor replaces the vendor's name and status, and its offerings when
// v carries any.
func (c *Client) UpdateVendor(ctx context.Context, v model.Vendor) (model.Vendor, error) {
	var resp model.VendorResponse
	q := url.Values{"id": {v.ID}}
	if err := c.do(ctx, "update vendor", http.MethodPut, "/vendor", q, v, &resp); err != nil {
		return model.Vendor{}, err
	}
	return resp.Vendor, nil
}

// DeleteVendor deletes a vendor and its meal logs.
func (c *Client) DeleteVendor(ctx context.Context, id string) error {
	return c.do(ctx, "delete vendor", http.MethodDelete, "/vendor", url.Values{"id": {id}}, nil, nil)
}

// LogMeals appends meal logs; entries whose natural key exists are skipped.
func (c *Client) LogMeals(ctx context.Context, vendorID string, meals []model.MealEntry) ([]model.MealLog, error) {
	var resp model.MealLogsResponse
	body := model.MealBatch{VendorID: vendorID, Meals: meals}
	if err := c.do(ctx, "log meals", http.MethodPost, "/meallog", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// UpsertMeals creates or updates meal logs by natural key.
func (c *Client) UpsertMeals(ctx context.Context, vendorID string, meals []model.MealEntry) ([]model.TaggedLog, error) {
	var resp model.UpsertResponse
	body := model.MealBatch{VendorID: vendorID, Meals: meals}
	if err := c.do(ctx, "upsert meals", http.MethodPost, "/meallog/upsert", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// ListMealLogs returns the caller's meal logs. The server answers 404 when
// there are none; that is reported as an empty list.
func (c *Client) ListMealLogs(ctx context.Context) ([]model.MealLog, error) {
	var logs []model.MealLog
	err := c.do(ctx, "list meal logs", http.MethodGet, "/meallog", nil, nil, &logs)
	if engine.IsNotFound(err) {
		return []model.MealLog{}, nil
	}
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteMealLog deletes the meal log with the given natural key.
func (c *Client) DeleteMealLog(ctx context.Context, key model.MealKey) error {
	q := url.Values{
		"vendorId": {key.VendorID},
		"mealType": {string(key.MealType)},
		"date":     {key.Date.String()},
	}
	return c.do(ctx, "delete meal log", http.MethodDelete, "/meallog", q, nil, nil)
}

// do sends a request and decodes a JSON response into out (when non-nil).
// Failures are returned as *engine.Error.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return engine.NewError(engine.KindValidation, op, "encode request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return engine.NewError(engine.KindNetwork, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return engine.NewError(engine.KindNetwork, op, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return engine.NewError(engine.KindNetwork, op, "decode response", err)
	}
	return nil
}

// statusError maps an HTTP error status to an engine error kind.
func statusError(op string, resp *http.Response) error {
	var msg model.MessageResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
		msg.Message = strings.TrimSpace(string(data))
	}
	if msg.Message == "" {
		msg.Message = resp.Status
	}

	kind := engine.KindStorage
	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusUnprocessableEntity:
		kind = engine.KindValidation
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		kind = engine.KindAuth
	case resp.StatusCode == http.StatusNotFound:
		kind = engine.KindNotFound
	case resp.StatusCode >= 500:
		kind = engine.KindStorage
	}
	return engine.NewError(kind, op, msg.Message, nil)
}
