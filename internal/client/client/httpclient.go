package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/common"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password, code string) error {
	body := map[string]string{"username": username, "password": password, "code": code}
	return c.do(ctx, http.MethodPost, "/register", false, body, nil)
}

// Login authenticates and keeps the returned token for later calls.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", false, body, &out); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *HTTPClient) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", false, nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) ListLockers(ctx context.Context) ([]Locker, error) {
	var out struct {
		Lockers []Locker `json:"lockers"`
	}
	if err := c.do(ctx, http.MethodGet, "/lockers", false, nil, &out); err != nil {
		return nil, err
	}
	return out.Lockers, nil
}

func (c *HTTPClient) Deposit(ctx context.Context, lockerID int) (string, error) {
	return c.action(ctx, "/lockers/deposit", true, map[string]int{"locker_id": lockerID})
}

func (c *HTTPClient) Unlock(ctx context.Context, lockerID int) (string, error) {
	return c.action(ctx, fmt.Sprintf("/lockers/%d/unlock", lockerID), true, nil)
}

func (c *HTTPClient) Return(ctx context.Context, lockerID int) (string, error) {
	return c.action(ctx, fmt.Sprintf("/lockers/%d/return", lockerID), true, nil)
}

func (c *HTTPClient) Lock(ctx context.Context, lockerID int) (string, error) {
	return c.action(ctx, fmt.Sprintf("/lockers/%d/lock", lockerID), false, nil)
}

func (c *HTTPClient) action(ctx context.Context, path string, auth bool, body any) (string, error) {
	var out actionResponse
	if err := c.do(ctx, http.MethodPost, path, auth, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return mapError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// mapError turns a non-2xx reply into a sentinel carrying the server message.
func mapError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&e)
	msg := e.Error
	if msg == "" {
		msg = resp.Status
	}

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = common.ErrValidation
	case http.StatusUnauthorized:
		kind = common.ErrUnauthenticated
	case http.StatusForbidden:
		kind = common.ErrForbidden
	case http.StatusServiceUnavailable:
		kind = common.ErrHardwareFault
	default:
		kind = common.ErrInternal
	}
	return &ServerError{Status: resp.StatusCode, Message: msg, kind: kind}
}

// ServerError is a rejected request.
type ServerError struct {
	Status  int
	Message string
	kind    error
}

func (e *ServerError) Error() string { return e.Message }

func (e *ServerError) Unwrap() error { return e.kind }

// Message extracts the server's text from err, or err's own text.
func Message(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
