// Package authapi talks to the QuickVideo authentication backend.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
)

const (
	tracerName   = "github.com/ydv-ankit/video-summarizer-client/internal/web/authapi"
	loginPath    = "/login"
	maxErrorBody = 64 << 10
	networkError = "Network Error"
)

// Credentials is the login request body. Values are sent exactly as entered.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticator performs the backend login call.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*session.User, error)
}

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Request failed with status code %d", e.Status)
}

// ErrIncompleteUser rejects a 2xx login response without an id or email.
var ErrIncompleteUser = errors.New("authapi: login response missing id or email")

// TransportError wraps failures that prevented a response from arriving.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return networkError }

func (e *TransportError) Unwrap() error { return e.Err }

// Client is an HTTP Authenticator rooted at the backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type loginResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Tokens int    `json:"tokens"`
	Auth   string `json:"auth"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Login posts the credentials to <base>/login and returns the user record
// carried by a 2xx response.
func (c *Client) Login(ctx context.Context, creds Credentials) (*session.User, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "authapi.Login", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	user, status, err := c.login(ctx, creds)
	if status != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("quickvideo.login.success", true))
	return user, nil
}

func (c *Client) login(ctx context.Context, creds Credentials) (*session.User, int, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return nil, 0, fmt.Errorf("authapi: encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("authapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &StatusError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("authapi: decode login response: %w", err)
	}
	if strings.TrimSpace(body.ID) == "" || strings.TrimSpace(body.Email) == "" {
		return nil, resp.StatusCode, ErrIncompleteUser
	}
	return &session.User{
		ID:     body.ID,
		Email:  body.Email,
		Tokens: body.Tokens,
		Auth:   body.Auth,
	}, resp.StatusCode, nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(body.Error)
}

// Message returns the user-facing text for a Login error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return networkError
	}
	return "Something went wrong, please try again"
}
