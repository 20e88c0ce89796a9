// Package api is the client for the remote storefront REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 1 << 20

// Client talks JSON to the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New returns a client for baseURL. A zero timeout means DefaultTimeout.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

type call struct {
	method string
	path   string
	token  string
	auth   bool
	header http.Header
	body   any
	out    any
}

func (c *Client) do(ctx context.Context, cl call) error {
	if cl.auth && cl.token == "" {
		return ErrUnauthenticated
	}

	var body io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", cl.method, cl.path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("method", cl.method), zap.String("path", cl.path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	switch out := cl.out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *[]byte:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s %s: %w", cl.method, cl.path, err)
		}
		*out = raw
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err)
		}
		return nil
	}
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}

// CreateOrder places an order for one product. idempotencyKey may be empty.
func (c *Client) CreateOrder(ctx context.Context, token, productID, idempotencyKey string) error {
	if productID == "" {
		return validationf("productId is required")
	}
	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{"Idempotency-Key": []string{idempotencyKey}}
	}
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/orders/admin/create",
		token:  token,
		auth:   true,
		header: header,
		body:   map[string]string{"productId": productID},
	})
}

// Profile fetches the signed-in user, including balance and role.
func (c *Client) Profile(ctx context.Context, token string) (*models.Profile, error) {
	var resp struct {
		User *models.Profile `json:"user"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/profile", token: token, auth: true, out: &resp}); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("GET /auth/profile: response has no user")
	}
	return resp.User, nil
}

// PublicProducts lists the catalog. The backend answers either
// {"products": [...]} or a bare array.
func (c *Client) PublicProducts(ctx context.Context) ([]models.Product, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodGet, path: "/products/public", out: &raw}); err != nil {
		return nil, err
	}
	products := []models.Product{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
		return products, nil
	}
	var wrapped struct {
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if wrapped.Products != nil {
		products = wrapped.Products
	}
	return products, nil
}

// PaymentConfig fetches the recharge settings. No token is needed.
func (c *Client) PaymentConfig(ctx context.Context) (*models.PaymentConfig, error) {
	var cfg models.PaymentConfig
	if err := c.do(ctx, call{method: http.MethodGet, path: "/payment/config", out: &cfg}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AdminOrders lists every order.
func (c *Client) AdminOrders(ctx context.Context, token string) ([]models.Order, error) {
	var resp struct {
		Orders []models.Order `json:"orders"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/orders/admin/all", token: token, auth: true, out: &resp}); err != nil {
		return nil, err
	}
	if resp.Orders == nil {
		return []models.Order{}, nil
	}
	return resp.Orders, nil
}

// validID reports whether id can be used as one path segment. Dot segments
// would be resolved by the backend router.
func validID(id string) bool {
	return id != "" && id != "." && id != ".."
}

// UpdateOrderStatus sets an order's status.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID, status string) error {
	if !validID(orderID) {
		return validationf("order id is required")
	}
	if strings.TrimSpace(status) == "" {
		return validationf("status is required")
	}
	return c.do(ctx, call{
		method: http.MethodPut,
		path:   "/orders/" + url.PathEscape(orderID) + "/status",
		token:  token,
		auth:   true,
		body:   map[string]string{"status": status},
	})
}

// Export formats accepted by ExportOrders.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

// ExportOrders downloads the order export in format.
func (c *Client) ExportOrders(ctx context.Context, token, format string) ([]byte, error) {
	if format != ExportCSV && format != ExportPDF {
		return nil, validationf("unsupported export format %q", format)
	}
	var raw []byte
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/orders/admin/export/" + format,
		token:  token,
		auth:   true,
		out:    &raw,
	})
	return raw, err
}

// AdjustBalance credits (or, when negative, debits) a user's balance.
// amount must be numeric; nothing is sent otherwise.
func (c *Client) AdjustBalance(ctx context.Context, token, userID, amount, note string) (*models.AdminUser, error) {
	if !validID(userID) {
		return nil, validationf("user id is required")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, validationf("invalid amount %q", amount)
	}
	var resp struct {
		User *models.AdminUser `json:"user"`
	}
	err = c.do(ctx, call{
		method: http.MethodPost,
		path:   "/users/" + url.PathEscape(userID) + "/adjust-balance",
		token:  token,
		auth:   true,
		body: struct {
			Amount decimal.Decimal `json:"amount"`
			Note   string          `json:"note"`
		}{value, note},
		out: &resp,
	})
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

// UpdateUserStatus sets a user's account status.
func (c *Client) UpdateUserStatus(ctx context.Context, token, userID, status string) (*models.AdminUser, error) {
	if !validID(userID) {
		return nil, validationf("user id is required")
	}
	if strings.TrimSpace(status) == "" {
		return nil, validationf("status is required")
	}
	var resp struct {
		User *models.AdminUser `json:"user"`
	}
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/users/" + url.PathEscape(userID) + "/status",
		token:  token,
		auth:   true,
		body:   map[string]string{"status": status},
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}
