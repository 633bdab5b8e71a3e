package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/layer-3/walletgate/core"
	"github.com/layer-3/walletgate/ports"
)

const (
	loginMessagePath = "/api/wallet/login-message"
	walletLoginPath  = "/api/wallet/login"
	registerPath     = "/api/auth/wallet-register"
	logoutPath       = "/api/auth/logout"
	mePath           = "/api/auth/me"

	// TokenCookie is the cookie the server sets on login
	TokenCookie = "TOKEN"

	maxBodySize = 1 << 20
)

// envelope is the response shape shared by all endpoints
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Client implements ports.AuthAPI over HTTP
type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.AuthAPI = (*Client)(nil)

// New creates a client for the server at baseURL. A nil httpClient uses a
// client without timeout, leaving cancellation to the caller's context.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// FetchChallenge retrieves a fresh login message
func (c *Client) FetchChallenge(ctx context.Context) (core.Challenge, error) {
	resp, err := c.do(ctx, http.MethodGet, loginMessagePath, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		env, _ := decodeEnvelope(resp.Body)
		return "", serverError(core.ErrServer, resp.StatusCode, env)
	}

	env, err := decodeEnvelope(resp.Body)
	if err != nil {
		return "", fmt.Errorf("decode login message: %w", core.ErrServer)
	}
	if !env.Success {
		return "", serverError(core.ErrServer, resp.StatusCode, env)
	}

	var message string
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &message) != nil || strings.TrimSpace(message) == "" {
		return "", core.ErrEmptyChallenge
	}
	return core.Challenge(message), nil
}

// SubmitLogin posts the signed login message
func (c *Client) SubmitLogin(ctx context.Context, req core.WalletLogin) (*core.ClientSession, error) {
	return c.submit(ctx, walletLoginPath, req, req.WalletAddress)
}

// SubmitRegistration posts the signed registration
func (c *Client) SubmitRegistration(ctx context.Context, req core.WalletRegistration) (*core.ClientSession, error) {
	return c.submit(ctx, registerPath, req, req.WalletAddress)
}

func (c *Client) submit(ctx context.Context, path string, body any, account core.Account) (*core.ClientSession, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, payload, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp.Body)
	if err != nil || resp.StatusCode >= 500 {
		return nil, serverError(core.ErrServer, resp.StatusCode, env)
	}
	if !env.Success {
		return nil, serverError(core.ErrAuthRejected, resp.StatusCode, env)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(core.ErrServer, resp.StatusCode, env)
	}

	session := &core.ClientSession{
		Account:   account,
		Data:      env.Data,
		CreatedAt: time.Now(),
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == TokenCookie {
			session.Token = cookie.Value
		}
	}
	return session, nil
}

// Logout tells the server to end the session. The response body is ignored.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, logoutPath, nil, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	return nil
}

// Me returns the current user payload. The server answers either {data: user} or
// the bare user; a null or missing user means nobody is logged in.
func (c *Client) Me(ctx context.Context, token string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, mePath, nil, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(core.ErrServer, resp.StatusCode, envelope{})
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrNetwork, err)
	}

	if isNull(raw) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode current user: %w", core.ErrServer)
	}
	if data, ok := fields["data"]; ok {
		if isNull(data) {
			return nil, nil
		}
		return data, nil
	}
	if _, ok := fields["success"]; ok {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, core.ErrNetwork, err)
	}
	return resp, nil
}

func decodeEnvelope(r io.Reader) (envelope, error) {
	var env envelope
	err := json.NewDecoder(io.LimitReader(r, maxBodySize)).Decode(&env)
	return env, err
}

func serverError(kind error, status int, env envelope) error {
	return &core.ServerMessageError{
		Kind:    kind,
		Status:  status,
		Message: env.Message,
	}
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
