package api

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
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "shopfront/0.1"
	defaultTimeout   = 10 * time.Second

	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

// Client talks to the storefront HTTP API. It owns the JWT access token used
// for the Authorization header and echoes the CSRF cookie on state-changing
// calls.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       *Jar
	userAgent string

	mu     sync.RWMutex
	access string
}

// NewClient builds a Client for the given base URL. The jar is attached to
// the transport so server-set cookies (csrftoken, guest cart deletion) are
// captured and persisted.
func NewClient(base string, jar *Jar, timeout time.Duration) (*Client, error) {
	u, err := parseBaseURL(base)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		jar:       jar,
		userAgent: defaultUserAgent,
	}, nil
}

// Jar exposes the cookie store backing this client.
func (c *Client) Jar() *Jar { return c.jar }

// SetAccessToken installs the JWT sent on authenticated calls. An empty
// token clears it.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.access = token
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

// FetchProducts retrieves the full product list.
func (c *Client) FetchProducts(ctx context.Context) ([]Product, error) {
	var payload []Product
	if err := c.do(ctx, http.MethodGet, &url.URL{Path: "/api/products"}, nil, &payload, false); err != nil {
		return nil, err
	}
	return payload, nil
}

// ProductFilter narrows the product list server-side.
type ProductFilter struct {
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	Digital  bool
}

// FilterProducts retrieves a server-filtered product list.
func (c *Client) FilterProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	values := url.Values{}
	values.Set("min_price", f.MinPrice.String())
	values.Set("max_price", f.MaxPrice.String())
	values.Set("digital", fmt.Sprintf("%t", f.Digital))
	rel := &url.URL{Path: "/api/products/filter/", RawQuery: values.Encode()}
	var payload []Product
	if err := c.do(ctx, http.MethodGet, rel, nil, &payload, false); err != nil {
		return nil, err
	}
	return payload, nil
}

// SearchProducts retrieves products matching a free-text query.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	values := url.Values{}
	values.Set("q", query)
	rel := &url.URL{Path: "/api/search/", RawQuery: values.Encode()}
	var payload []Product
	if err := c.do(ctx, http.MethodGet, rel, nil, &payload, false); err != nil {
		return nil, err
	}
	return payload, nil
}

// FetchCart retrieves the server-backed cart for the authenticated user,
// normalized into the canonical shape.
func (c *Client) FetchCart(ctx context.Context) (CartData, error) {
	var payload cartPayload
	if err := c.do(ctx, http.MethodGet, &url.URL{Path: "/api/cart-data"}, nil, &payload, true); err != nil {
		return CartData{}, err
	}
	return payload.normalize(), nil
}

// UpdateCart adds or removes one unit of a product in the server cart.
// Action is "add" or "remove".
func (c *Client) UpdateCart(ctx context.Context, action string, productID int64) (CartMutation, error) {
	body := map[string]any{
		"action":     action,
		"product_id": productID,
	}
	var payload CartMutation
	if err := c.do(ctx, http.MethodPost, &url.URL{Path: "/api/update-cart/"}, body, &payload, true); err != nil {
		return CartMutation{}, err
	}
	return payload, nil
}

// CreateOrder ensures a pending order exists and adds the product to it.
func (c *Client) CreateOrder(ctx context.Context, productID int64) (CartMutation, error) {
	body := map[string]any{"product_id": productID}
	var payload CartMutation
	if err := c.do(ctx, http.MethodPost, &url.URL{Path: "/api/create-order/"}, body, &payload, true); err != nil {
		return CartMutation{}, err
	}
	return payload, nil
}

// ProcessOrder completes the authenticated checkout.
func (c *Client) ProcessOrder(ctx context.Context, info ShippingInfo, transactionID string) error {
	body := map[string]any{
		"transaction_id": transactionID,
		"shipping_info":  info,
	}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/api/process-order/"}, body, nil, true)
}

// GuestProcessOrder completes checkout for a guest. The server reads the
// cart cookie sent with the request and clears it on success.
func (c *Client) GuestProcessOrder(ctx context.Context, info ShippingInfo, transactionID string) error {
	body := map[string]any{
		"transaction_id": transactionID,
		"shipping_info":  info,
	}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/api/unauth-process-order/"}, body, nil, false)
}

// Login exchanges credentials for a token pair. Credential rejections come
// back as *ValidationError.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, &url.URL{Path: "/auth/jwt/create/"}, body, &pair, false); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// VerifyToken asks the server whether an access token is still valid.
// Returns ErrTokenInvalid when the server rejects it. The rejection arrives
// as a 401 whose body carries code "token_not_valid"; only that code means
// the token itself is bad.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	var resp verifyResponse
	if err := c.do(ctx, http.MethodPost, &url.URL{Path: "/auth/jwt/verify/"}, body, &resp, false); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Fields["code"] == "token_not_valid" {
			return ErrTokenInvalid
		}
		return err
	}
	if resp.Code == "token_not_valid" {
		return ErrTokenInvalid
	}
	return nil
}

// Signup registers a new account. Field rejections come back as
// *ValidationError; success does not authenticate the caller.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/auth/users/"}, req, nil, false)
}

// Me retrieves the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, &url.URL{Path: "/auth/users/me/"}, nil, &profile, true); err != nil {
		return UserProfile{}, err
	}
	return profile, nil
}

// Activate confirms a new account from the emailed uid/token pair.
func (c *Client) Activate(ctx context.Context, uid, token string) error {
	body := map[string]string{"uid": uid, "token": token}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/auth/users/activation/"}, body, nil, false)
}

// ResetPassword requests a password reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/auth/users/reset_password/"}, body, nil, false)
}

// ResetPasswordConfirm completes a password reset.
func (c *Client) ResetPasswordConfirm(ctx context.Context, uid, token, newPassword, rePassword string) error {
	body := map[string]string{
		"uid":             uid,
		"token":           token,
		"new_password":    newPassword,
		"re_new_password": rePassword,
	}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/auth/users/reset_password_confirm/"}, body, nil, false)
}

// GoogleExchange trades the OAuth redirect state/code pair for a token pair.
// The provider contract wants the pair form-encoded in the query string.
func (c *Client) GoogleExchange(ctx context.Context, state, code string) (TokenPair, error) {
	values := url.Values{}
	values.Set("state", state)
	values.Set("code", code)
	rel := &url.URL{Path: "/auth/o/google-oauth2/", RawQuery: values.Encode()}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), strings.NewReader(""))
	if err != nil {
		return TokenPair{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return TokenPair{}, c.errorFromResponse(rel.Path, resp)
	}
	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return TokenPair{}, fmt.Errorf("decode response: %w", err)
	}
	return pair, nil
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, body, dest any, authed bool) error {
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		if token, ok := c.jar.Value(csrfCookieName); ok {
			req.Header.Set(csrfHeaderName, token)
		}
	}
	if authed {
		if token := c.accessToken(); token != "" {
			req.Header.Set("Authorization", "JWT "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(rel.Path, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorFromResponse prefers a field-keyed validation error when the body
// carries one, otherwise collapses the failure into a generic Error. Reads
// are capped; error bodies are small.
func (c *Client) errorFromResponse(path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		if ve := decodeValidationBody(raw); ve != nil {
			return ve
		}
	}
	return &Error{Path: path, Status: resp.StatusCode}
}

func parseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", base, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
