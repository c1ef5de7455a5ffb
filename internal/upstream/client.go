// Package upstream is the HTTP client for the remote order service. The
// service owns all authoritative order state; this client is a thin,
// contract-shaped surface over it.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voltkart/voltkart/internal/domain/order"
)

// Error is a failure reported by the order service. Its message is surfaced
// to the user verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("order service: %s (status %d)", e.Message, e.Status)
}

// Config holds the client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements order.Gateway over HTTP.
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

var _ order.Gateway = (*Client)(nil)

// NewClient builds a Client. Outbound requests are traced via otelhttp.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		base:   base,
		apiKey: cfg.APIKey,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}, nil
}

// CreateOrder submits an order and returns the raw response body. The body
// is returned undecoded because the service's response shape varies between
// versions; the order package resolves the invoice number from it. The call
// is never retried here: a duplicate submission would create a duplicate
// order.
func (c *Client) CreateOrder(ctx context.Context, sub order.Submission) (jx.Raw, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, errors.Wrap(err, "encode submission")
	}

	body, err := c.do(ctx, http.MethodPost, "/orders", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return jx.Raw(body), nil
}

// ListOrders returns the customer's orders with full line items.
func (c *Client) ListOrders(ctx context.Context, customerID string) ([]order.Order, error) {
	query := url.Values{}
	if customerID != "" {
		query.Set("customer_id", customerID)
	}

	body, err := c.do(ctx, http.MethodGet, "/orders", query, nil)
	if err != nil {
		return nil, err
	}

	var orders []order.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return orders, nil
}

// GetOrder returns one order by internal id or invoice number.
func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	body, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		var uerr *Error
		if errors.As(err, &uerr) && uerr.Status == http.StatusNotFound {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}

	var o order.Order
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}

// cancelResponse is the order service's cancellation result envelope.
type cancelResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CancelOrder cancels by invoice number or internal id.
func (c *Client) CancelOrder(ctx context.Context, invoiceOrID string) error {
	body, err := c.do(ctx, http.MethodDelete, "/orders/"+url.PathEscape(invoiceOrID), nil, nil)
	if err != nil {
		return err
	}

	var res cancelResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return errors.Wrap(err, "decode cancel response")
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "cancellation rejected"
		}
		return &Error{Status: http.StatusConflict, Message: msg}
	}
	return nil
}

// do performs one request and returns the response body. Non-2xx statuses
// become *Error carrying the service's message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	u := *c.base
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "order service request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Status:  resp.StatusCode,
			Message: serviceMessage(data, resp.StatusCode),
		}
	}
	return data, nil
}

// serviceMessage pulls a human-readable message out of an error body,
// falling back to the HTTP status text.
func serviceMessage(body []byte, status int) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return http.StatusText(status)
}
