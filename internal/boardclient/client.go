// Package boardclient talks to the posterboard API: REST calls through resty
// and realtime subscriptions over websockets. It implements board.Store,
// board.PosterStore and board.Feed.
package boardclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"posterboard/internal/board"
	"posterboard/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	DefaultTimeout = 10 * time.Second

	codeCooldown = "COOLDOWN"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Is lets callers match policy denials and cooldowns with the board errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case board.ErrDeleteDenied:
		return e.Status == http.StatusForbidden && e.Code == models.CodeDeleteDenied
	case board.ErrCooldown:
		return e.Status == http.StatusTooManyRequests && e.Code == codeCooldown
	case board.ErrPinNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Client is an API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *resty.Client
	dialer  *websocket.Dialer

	mu    sync.RWMutex
	token string
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")

	rc := resty.New().
		SetBaseURL(baseURL+"/api").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &Client{
		baseURL: baseURL,
		http:    rc,
		dialer:  defaultDialer(timeout),
	}
}

// SetToken sets the team token sent on privileged calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	var body models.ErrorResponse
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

// ListPins returns every pin.
func (c *Client) ListPins(ctx context.Context) ([]models.Pin, error) {
	var pins []models.Pin
	if err := checkResponse(c.request(ctx).SetResult(&pins).Get("/pins")); err != nil {
		return nil, err
	}
	return pins, nil
}

// ListPinsWithReplyCounts returns the team list view, newest first. It needs
// a team token.
func (c *Client) ListPinsWithReplyCounts(ctx context.Context) ([]models.Pin, error) {
	var pins []models.Pin
	if err := checkResponse(c.request(ctx).SetResult(&pins).Get("/pins/list")); err != nil {
		return nil, err
	}
	return pins, nil
}

func (c *Client) CreatePin(ctx context.Context, in board.CreatePinInput) (*models.Pin, error) {
	var pin models.Pin
	if err := checkResponse(c.request(ctx).SetBody(in).SetResult(&pin).Post("/pins")); err != nil {
		return nil, err
	}
	return &pin, nil
}

// DeletePin deletes a pin. A delete the server's policy blocks matches
// board.ErrDeleteDenied.
func (c *Client) DeletePin(ctx context.Context, id string) error {
	return checkResponse(c.request(ctx).SetPathParam("id", id).Delete("/pins/{id}"))
}

func (c *Client) ListReplies(ctx context.Context, pinID string) ([]models.Reply, error) {
	var replies []models.Reply
	resp, err := c.request(ctx).SetPathParam("id", pinID).SetResult(&replies).Get("/pins/{id}/replies")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return replies, nil
}

func (c *Client) CreateReply(ctx context.Context, pinID string, in board.CreateReplyInput) error {
	return checkResponse(c.request(ctx).SetPathParam("id", pinID).SetBody(in).Post("/pins/{id}/replies"))
}

type unlockResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Unlock trades the team secret for a token and keeps it for later calls.
func (c *Client) Unlock(ctx context.Context, secret string) (time.Time, error) {
	var out unlockResponse
	resp, err := c.request(ctx).
		SetBody(map[string]string{"secret": secret}).
		SetResult(&out).
		Post("/team/unlock")
	if err := checkResponse(resp, err); err != nil {
		return time.Time{}, err
	}
	if out.Token == "" {
		return time.Time{}, errors.New("api: unlock returned no token")
	}
	c.SetToken(out.Token)
	return out.ExpiresAt, nil
}

func (c *Client) CurrentPoster(ctx context.Context) (*models.PosterInfo, error) {
	var info models.PosterInfo
	if err := checkResponse(c.request(ctx).SetResult(&info).Get("/poster")); err != nil {
		return nil, err
	}
	return &info, nil
}

// UploadPoster replaces the poster. It needs a team token.
func (c *Client) UploadPoster(ctx context.Context, filename string, r io.Reader) (*models.PosterInfo, error) {
	var info models.PosterInfo
	resp, err := c.request(ctx).
		SetFileReader("file", filename, r).
		SetResult(&info).
		Post("/poster")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return &info, nil
}

var (
	_ board.Store       = (*Client)(nil)
	_ board.PosterStore = (*Client)(nil)
	_ board.Feed        = (*Client)(nil)
)
