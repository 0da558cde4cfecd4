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

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Error codes carried in the JSON error body of 401 responses.
const (
	CodeSessionInvalidated = "SESSION_INVALIDATED"
	CodeUnauthorized       = "UNAUTHORIZED"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the portal API.
type APIError struct {
	Message string
	Status  int
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsSessionInvalidated reports whether err says a newer login replaced this session.
func IsSessionInvalidated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeSessionInvalidated
}

// IsUnauthorized reports whether err is any 401 response.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type SessionInfo struct {
	Valid    bool   `json:"valid"`
	VendorID string `json:"vendorId"`
	PlantID  string `json:"plantId"`
}

type LoginResult struct {
	AccessToken string `json:"accessToken"`
	VendorID    string `json:"vendorId"`
	PlantID     string `json:"plantId"`
}

type FeedbackInput struct {
	Rating  int      `json:"rating"`
	Comment string   `json:"comment,omitempty"`
	Images  []string `json:"images,omitempty"`
}

// APIClient calls the portal API with the bearer token held in a SessionState.
type APIClient struct {
	baseURL        string
	httpClient     *http.Client
	state          *SessionState
	onUnauthorized func(*APIError)
	logger         zerolog.Logger
}

type ClientOption func(*APIClient)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *APIClient) {
		c.httpClient = httpClient
	}
}

// WithUnauthorizedHandler replaces the handler run for every 401 that is not a
// session invalidation. The default clears the session.
func WithUnauthorizedHandler(fn func(*APIError)) ClientOption {
	return func(c *APIClient) {
		c.onUnauthorized = fn
	}
}

func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// NewAPIClient builds a client for the API rooted at baseURL, e.g. http://localhost:4000/api.
func NewAPIClient(baseURL string, state *SessionState, options ...ClientOption) (*APIClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrap(err, "[NewAPIClient] invalid base url")
	}
	if state == nil {
		return nil, errors.New("[NewAPIClient] session state is required")
	}

	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		state:      state,
		logger:     zerolog.Nop(),
	}
	c.onUnauthorized = func(apiErr *APIError) {
		c.logger.Info().Str("code", apiErr.Code).Msg("unauthorized, clearing session")
		_ = c.state.ClearSession()
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// QRLogin exchanges a scanned credential for a session and stores it.
func (c *APIClient) QRLogin(ctx context.Context, rawToken string) (*LoginResult, error) {
	var result LoginResult
	// a rejected scan must not end a session the server still accepts
	if err := c.send(ctx, http.MethodPost, "/auth/qr-login", map[string]string{"token": rawToken}, &result, false); err != nil {
		return nil, err
	}
	if err := c.state.SetSession(SessionData{
		AccessToken: result.AccessToken,
		VendorID:    result.VendorID,
		PlantID:     result.PlantID,
		UserRole:    RoleTechnician,
	}); err != nil {
		c.logger.Warn().Err(err).Msg("session not persisted")
	}
	return &result, nil
}

// AdminLogin signs an admin in with email and password and stores the token.
func (c *APIClient) AdminLogin(ctx context.Context, email, password string) error {
	var result struct {
		AccessToken string `json:"accessToken"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/admin/login", body, &result, false); err != nil {
		return err
	}
	if err := c.state.SetSession(SessionData{AccessToken: result.AccessToken, UserRole: RoleAdmin}); err != nil {
		c.logger.Warn().Err(err).Msg("session not persisted")
	}
	return nil
}

// ValidateSession asks the server whether the held token is still live.
func (c *APIClient) ValidateSession(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *APIClient) SubmitFeedback(ctx context.Context, jobID string, input FeedbackInput) error {
	return c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/feedback", input, nil)
}

// AdminUser is a portal administrator as listed by the admin API.
type AdminUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
	Blocked   bool      `json:"blocked"`
}

type dataEnvelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (c *APIClient) ListAdminUsers(ctx context.Context) ([]AdminUser, error) {
	var resp dataEnvelope[[]AdminUser]
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *APIClient) CreateAdminUser(ctx context.Context, name, email, password string) (*AdminUser, error) {
	var resp dataEnvelope[AdminUser]
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/admin/users", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *APIClient) ResetAdminPassword(ctx context.Context, id, newPassword string) error {
	path := "/admin/users/" + url.PathEscape(id) + "/reset-password"
	return c.do(ctx, http.MethodPost, path, map[string]string{"newPassword": newPassword}, nil)
}

func (c *APIClient) DeleteAdminUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
}

// Logout forgets the local session. Server records expire on their own.
func (c *APIClient) Logout() error {
	return c.state.ClearSession()
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, body, out, true)
}

// send performs the request. notifyUnauthorized controls whether a plain 401 runs
// the unauthorized handler; login calls opt out.
func (c *APIClient) send(ctx context.Context, method, path string, body, out any, notifyUnauthorized bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[do] encode body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[do] build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.state.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[do] %s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "[do] read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp, data)
		if notifyUnauthorized && apiErr.Status == http.StatusUnauthorized && apiErr.Code != CodeSessionInvalidated && c.onUnauthorized != nil {
			c.onUnauthorized(apiErr)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "[do] decode body")
	}
	return nil
}

func decodeAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		if text := strings.TrimSpace(string(data)); text != "" {
			apiErr.Message = text
		}
		return apiErr
	}
	switch {
	case body.Message != "":
		apiErr.Message = body.Message
	case body.Error != "":
		apiErr.Message = body.Error
	}
	apiErr.Code = body.Code
	return apiErr
}
