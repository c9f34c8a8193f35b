package remote

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

	"cartsync/internal/cartapi"
	"cartsync/internal/domain"
)

// ErrUnauthorized means the server rejected the bearer credential.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx answer other than an auth rejection.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

// Client talks to the cart API on behalf of one identity's token.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL is the API root used to resolve relative image refs.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCart returns the server cart, normalized.
func (c *Client) FetchCart(ctx context.Context, token string) (domain.Cart, error) {
	var resp cartapi.CartResponse
	if err := c.do(ctx, "fetch cart", http.MethodGet, cartapi.PathCart, token, nil, &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.ToCart(c.baseURL), nil
}

// AddLine creates the line or increments it by quantity.
func (c *Client) AddLine(ctx context.Context, token, productID string, quantity int) error {
	body := cartapi.AddItemRequest{ProductID: productID, Quantity: quantity}
	return c.do(ctx, "add line", http.MethodPost, cartapi.PathCartItems, token, body, nil)
}

func (c *Client) RemoveLine(ctx context.Context, token, productID string) error {
	return c.do(ctx, "remove line", http.MethodDelete, itemPath(productID), token, nil, nil)
}

// UpdateQuantity sets an absolute quantity.
func (c *Client) UpdateQuantity(ctx context.Context, token, productID string, quantity int) error {
	body := cartapi.UpdateQuantityRequest{Quantity: quantity}
	return c.do(ctx, "update quantity", http.MethodPut, itemPath(productID), token, body, nil)
}

func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, "clear cart", http.MethodDelete, cartapi.PathCart, token, nil, nil)
}

// Sync hands the server a local snapshot to merge and returns the merged cart.
func (c *Client) Sync(ctx context.Context, token string, local domain.Cart) (domain.Cart, error) {
	var resp cartapi.CartResponse
	if err := c.do(ctx, "sync cart", http.MethodPost, cartapi.PathCartSync, token, cartapi.SyncLines(local), &resp); err != nil {
		return domain.Cart{}, err
	}
	return resp.ToCart(c.baseURL), nil
}

// FetchProduct reads one catalog entry. It needs no token.
func (c *Client) FetchProduct(ctx context.Context, productID string) (domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, "fetch product", http.MethodGet, "/products/"+url.PathEscape(productID), "", nil, &p); err != nil {
		return domain.Product{}, err
	}
	p.Image = cartapi.ResolveImage(c.baseURL, p.Image)
	return p, nil
}

func itemPath(productID string) string {
	return cartapi.PathCartItems + "/" + url.PathEscape(productID)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case res.StatusCode < 200 || res.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &StatusError{Op: op, Code: res.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
