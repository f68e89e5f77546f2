package client

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

	"github.com/google/uuid"
)

// DefaultBaseURL is used when no backend origin is configured.
const DefaultBaseURL = "http://localhost:8000"

// TokenSource supplies the bearer token attached to authorized requests.
// It is consulted at request time, so the header always reflects the
// current session rather than whatever was valid when the client was built.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a plain function to a TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// Client provides typed access to the Limited API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       TokenSource
	unauthorized func()
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTokenSource installs the source consulted for bearer tokens.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUnauthorizedHandler registers a callback invoked whenever a request
// that carried a bearer token is rejected with 401. Requests that went out
// without a token (login itself, public catalog reads) never trigger it.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.unauthorized = fn
	}
}

// New constructs a Client pointing at the provided backend origin. All
// request paths are issued under the /api prefix.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/") + "/api",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 rejection from the API.
func IsUnauthorized(err error) bool {
	var apiErr APIError
	return AsAPIError(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 rejection from the API.
func IsNotFound(err error) bool {
	var apiErr APIError
	return AsAPIError(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// AsAPIError unwraps err into an APIError when possible.
func AsAPIError(err error, target *APIError) bool {
	type causer interface{ Unwrap() error }
	for err != nil {
		if apiErr, ok := err.(APIError); ok {
			*target = apiErr
			return true
		}
		wrapped, ok := err.(causer)
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body any, authorized bool, v any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.roundTrip(ctx, method, path, reader, contentType, authorized, v)
}

func (c *Client) doForm(ctx context.Context, path string, form url.Values, v any) error {
	body := strings.NewReader(form.Encode())
	return c.roundTrip(ctx, http.MethodPost, path, body, "application/x-www-form-urlencoded", false, v)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, contentType string, authorized bool, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	tokenAttached := false
	if authorized && c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			tokenAttached = true
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusUnauthorized && tokenAttached && c.unauthorized != nil {
			c.unauthorized()
		}
		return APIError{Status: resp.StatusCode, Message: extractDetail(resp.Body)}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractDetail pulls the human-readable reason out of an error payload.
// The backend reports failures in a "detail" field.
func extractDetail(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Detail == "" {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Detail)
}

// RegisterInput captures the payload for account creation.
type RegisterInput struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CompanyName  string `json:"company_name,omitempty"`
	UserType     string `json:"user_type"`
	IsAccredited bool   `json:"is_accredited"`
}

// Register creates a new account. It does not authenticate; callers log in
// separately once the account exists.
func (c *Client) Register(ctx context.Context, input RegisterInput) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/register", input, false, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// LoginResponse captures the token payload emitted by the API.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Login exchanges credentials for a bearer token and profile. The token
// endpoint expects OAuth2-style form fields, with the email as username.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	var resp LoginResponse
	if err := c.doForm(ctx, "/auth/token", form, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Me fetches the profile of the current bearer token's owner.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, true, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ProfileUpdate carries the fields of a partial profile update. Nil fields
// are omitted from the request and left untouched by the backend.
type ProfileUpdate struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	CompanyName  *string `json:"company_name,omitempty"`
	IsAccredited *bool   `json:"is_accredited,omitempty"`
}

// UpdateMe applies a partial profile update. The raw response document is
// returned so callers can merge exactly the fields the backend echoed back,
// leaving unspecified fields untouched.
func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/auth/me", update, true, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Featured returns the unauthenticated catalog used by the home view.
func (c *Client) Featured(ctx context.Context) (Catalog, error) {
	var catalog Catalog
	if err := c.do(ctx, http.MethodGet, "/featured", nil, false, &catalog); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

// Funds lists every fund on the platform.
func (c *Client) Funds(ctx context.Context) ([]Fund, error) {
	var funds []Fund
	if err := c.do(ctx, http.MethodGet, "/funds", nil, false, &funds); err != nil {
		return nil, err
	}
	return funds, nil
}

// Fund fetches a single fund record.
func (c *Client) Fund(ctx context.Context, fundID string) (Fund, error) {
	var fund Fund
	path := "/funds/" + url.PathEscape(fundID)
	if err := c.do(ctx, http.MethodGet, path, nil, false, &fund); err != nil {
		return Fund{}, err
	}
	return fund, nil
}

type createInvestmentInput struct {
	FundID string  `json:"fund_id"`
	Amount float64 `json:"amount"`
}

// CreateInvestment submits a capital commitment against a fund. The backend
// assigns the investment id and status.
func (c *Client) CreateInvestment(ctx context.Context, fundID string, amount float64) (Investment, error) {
	input := createInvestmentInput{FundID: fundID, Amount: amount}
	var inv Investment
	if err := c.do(ctx, http.MethodPost, "/investments", input, true, &inv); err != nil {
		return Investment{}, err
	}
	return inv, nil
}

// Investments lists the caller's investments.
func (c *Client) Investments(ctx context.Context) ([]Investment, error) {
	var investments []Investment
	if err := c.do(ctx, http.MethodGet, "/investments", nil, true, &investments); err != nil {
		return nil, err
	}
	return investments, nil
}
