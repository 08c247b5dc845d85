package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nileways/storefront/internal/domain"
	"github.com/nileways/storefront/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks to the headless CMS REST API. Every cart call carries the
// visitor's access token and returns the complete, authoritative cart, which
// callers adopt verbatim. The per-request timeout lives here because the cart
// store itself performs no timeout management.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a CMS API client.
func NewClient(baseURL string, httpClient HTTPDoer, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}
}

// cartEnvelope is the CMS response wrapper for cart payloads.
type cartEnvelope struct {
	Data *domain.Cart `json:"data"`
}

// GetCart fetches the server-side cart for the authenticated visitor.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	return c.doCart(ctx, token, http.MethodGet, "/api/cart", nil)
}

// AddCartItem adds a product to the server-side cart. The CMS owns the
// quantity-merge logic; the returned cart reflects it.
func (c *Client) AddCartItem(ctx context.Context, token string, productID int64, quantity int) (*domain.Cart, error) {
	body := map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	}
	return c.doCart(ctx, token, http.MethodPost, "/api/cart/items", body)
}

// RemoveCartItem removes a product from the server-side cart.
func (c *Client) RemoveCartItem(ctx context.Context, token string, productID int64) (*domain.Cart, error) {
	return c.doCart(ctx, token, http.MethodDelete, "/api/cart/items/"+strconv.FormatInt(productID, 10), nil)
}

// SetCartItemQuantity sets the quantity of a product in the server-side cart.
func (c *Client) SetCartItemQuantity(ctx context.Context, token string, productID int64, quantity int) (*domain.Cart, error) {
	body := map[string]any{
		"quantity": quantity,
	}
	return c.doCart(ctx, token, http.MethodPut, "/api/cart/items/"+strconv.FormatInt(productID, 10), body)
}

// ClearCart empties the server-side cart. The record is kept; only its items go.
func (c *Client) ClearCart(ctx context.Context, token string) (*domain.Cart, error) {
	return c.doCart(ctx, token, http.MethodDelete, "/api/cart", nil)
}

// doCart executes a cart request and decodes the returned authoritative cart.
func (c *Client) doCart(ctx context.Context, token, method, path string, body any) (*domain.Cart, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call cms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "cms")
	}

	var envelope cartEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("cms returned empty cart payload")
	}

	c.logger.DebugContext(ctx, "cms cart call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int64("cart_id", envelope.Data.ID),
	)

	return envelope.Data, nil
}

// ListTours fetches the tour catalog.
func (c *Client) ListTours(ctx context.Context) ([]domain.Tour, error) {
	var out struct {
		Data []domain.Tour `json:"data"`
	}
	if err := c.doList(ctx, "/api/tours", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListProducts fetches the shop product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out struct {
		Data []domain.Product `json:"data"`
	}
	if err := c.doList(ctx, "/api/products", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListVideos fetches the history-video library.
func (c *Client) ListVideos(ctx context.Context) ([]domain.Video, error) {
	var out struct {
		Data []domain.Video `json:"data"`
	}
	if err := c.doList(ctx, "/api/videos", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) doList(ctx context.Context, path string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create GET %s request: %w", path, err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call cms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, "cms")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// Ping checks CMS reachability for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("cms ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("cms ping: status %d", resp.StatusCode)
	}
	return nil
}
