package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/cart"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/geo"
)

// ErrBackend marks any non-2xx response. The consoles show it as a generic
// failure and never retry on their own.
var ErrBackend = errors.New("backend rejected request")

// TokenSource supplies the bearer token attached to authenticated calls.
type TokenSource interface {
	Token() (string, error)
}

// ModeratorOrders is one entry of the moderators-with-orders listing: a
// shipper account and the orders currently assigned to it.
type ModeratorOrders struct {
	UserID   int64   `json:"userId"`
	OrderIDs []int64 `json:"orderIds"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Client is the typed REST client for the storefront backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

func NewClient(baseURL string, tokens TokenSource, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "storefront-backend",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
		breaker:    breaker,
		logger:     logger,
	}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	data, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, false)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return resp.Token, nil
}

// ModeratorsWithOrders lists shipper accounts with their assigned order ids.
func (c *Client) ModeratorsWithOrders(ctx context.Context) ([]ModeratorOrders, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/users/moderators-with-orders", nil, false)
	if err != nil {
		return nil, err
	}

	var moderators []ModeratorOrders
	if err := json.Unmarshal(data, &moderators); err != nil {
		return nil, fmt.Errorf("decode moderators: %w", err)
	}
	return moderators, nil
}

// Tracking fetches the server-computed distance payload for one
// (shipper, order) pair.
func (c *Client) Tracking(ctx context.Context, userID, orderID int64) (*geo.TrackingResult, error) {
	path := fmt.Sprintf("/api/v1/location/user/%d/order/%d", userID, orderID)
	data, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	var result geo.TrackingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode tracking payload: %w", err)
	}
	return &result, nil
}

// UpdateLocation reports a single location fix for an order.
func (c *Client) UpdateLocation(ctx context.Context, sample geo.LocationSample) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/location/update", sample, true)
	return err
}

// MarkShipped marks an order as shipped.
func (c *Client) MarkShipped(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/api/v1/location/%d/mark-shipped", orderID)
	_, err := c.do(ctx, http.MethodPost, path, nil, true)
	return err
}

// Redeliver schedules a redelivery attempt with a reason.
func (c *Client) Redeliver(ctx context.Context, orderID int64, reason string) error {
	path := fmt.Sprintf("/api/v1/location/%d/redeliver", orderID)
	_, err := c.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, true)
	return err
}

// Cart fetches the current cart snapshot, used to resync after the realtime
// channel (re)opens.
func (c *Client) Cart(ctx context.Context) (*cart.Snapshot, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/cart", nil, true)
	if err != nil {
		return nil, err
	}

	var snapshot cart.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return &snapshot, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	if authenticated {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("attach bearer token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	} else if token, err := c.tokens.Token(); err == nil {
		// Best effort on public endpoints.
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			c.logger.Warn("Backend rejection",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
			)
			return nil, fmt.Errorf("%w: %s %s returned %d", ErrBackend, method, path, resp.StatusCode)
		}
		return data, nil
	})
}
