// Package client is the device app's connection to the glimpse server: the
// JSON API under the API base path and the live comment stream.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JaimeStill/glimpse/internal/comments"
	"github.com/JaimeStill/glimpse/internal/identity"
	"github.com/JaimeStill/glimpse/internal/users"
	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/pagination"
)

// ErrNotSignedIn is returned by authenticated calls made without a token.
var ErrNotSignedIn = errors.New("not signed in")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client calls the glimpse server. Safe for concurrent use.
type Client struct {
	base     *url.URL
	basePath string
	http     *http.Client
	dialer   *websocket.Dialer
	logger   *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a Client for the server at serverURL whose API is mounted at
// basePath. timeout bounds each request; the stream is not bounded.
func New(serverURL, basePath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url scheme must be http or https: %q", serverURL)
	}

	return &Client{
		base:     base,
		basePath: "/" + strings.Trim(basePath, "/"),
		http:     &http.Client{Timeout: timeout},
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
		logger: logger.With("system", "client"),
	}, nil
}

// SetToken sets the session token sent with authenticated calls. An empty
// token signs the client out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.JoinPath("/healthz").String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: "unhealthy"}
	}
	return nil
}

// SignIn exchanges an identity provider ID token for a session and stores
// the returned token on the client.
func (c *Client) SignIn(ctx context.Context, idToken string) (*identity.SignInResult, error) {
	var result identity.SignInResult
	err := c.do(ctx, http.MethodPost, "/auth/session", nil, identity.SignInCommand{IDToken: idToken}, &result, false)
	if err != nil {
		return nil, err
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Me returns the signed-in user, including the current role.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// Comments returns a page of the thread for classificationID, newest first.
func (c *Client) Comments(ctx context.Context, classificationID string, page, pageSize int) (*pagination.PageResult[comments.View], error) {
	q := url.Values{}
	q.Set("classification_id", classificationID)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}

	var result pagination.PageResult[comments.View]
	if err := c.do(ctx, http.MethodGet, "/comments", q, nil, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddComment posts text to the thread for classificationID.
func (c *Client) AddComment(ctx context.Context, classificationID, text string) (*comments.View, error) {
	var v comments.View
	cmd := comments.CreateCommand{ClassificationID: classificationID, Text: text}
	if err := c.do(ctx, http.MethodPost, "/comments", nil, cmd, &v, true); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateComment replaces the text of a comment owned by the caller.
func (c *Client) UpdateComment(ctx context.Context, id uuid.UUID, text string) (*comments.View, error) {
	var v comments.View
	if err := c.do(ctx, http.MethodPut, "/comments/"+id.String(), nil, comments.UpdateCommand{Text: text}, &v, true); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+id.String(), nil, nil, nil, true)
}

// UploadSnapshot attaches a JPEG to a comment owned by the caller.
func (c *Client) UploadSnapshot(ctx context.Context, id uuid.UUID, jpeg []byte) (*comments.View, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/comments/"+id.String()+"/snapshot", nil, bytes.NewReader(jpeg), true)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	var v comments.View
	if err := c.send(req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any, authed bool) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, q, r, authed)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader, authed bool) (*http.Request, error) {
	u := c.base.JoinPath(c.basePath, path)
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if authed {
		token := c.currentToken()
		if token == "" {
			return nil, ErrNotSignedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body handlers.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
