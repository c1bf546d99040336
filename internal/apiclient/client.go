package apiclient

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

	"useradmin/client/internal/logging"
	"useradmin/client/internal/state"
)

// Client инкапсулирует HTTP-взаимодействия с сервером управления пользователями.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *logging.Logger
}

// Options позволяет переопределить зависимости клиента.
type Options struct {
	HTTPClient *http.Client
	Logger     *logging.Logger
}

const (
	defaultTimeout = 15 * time.Second
)

// New создаёт новый клиент API.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: parsed, httpClient: client, logger: opts.Logger}, nil
}

// Error описывает проблему при запросах к API.
// Message содержит текст из тела ответа сервера, если тот его прислал.
type Error struct {
	Op      string
	Kind    state.ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "api client error"
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Login вызывает POST /api/login и возвращает токен и роль.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	const op = "Login"
	payload := LoginRequest{Username: username, Password: password}
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/login", "", payload)
	if err != nil {
		return LoginResult{}, wrapError(op, state.ErrorKindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return LoginResult{}, errorFromResponse(op, resp, state.ErrorKindAuthFailed)
	}
	var body LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return LoginResult{}, wrapError(op, state.ErrorKindUnknown, err)
	}
	result, err := body.Validate()
	if err != nil {
		return LoginResult{}, wrapError(op, state.ErrorKindUnknown, err)
	}
	return result, nil
}

// ListUsers вызывает GET /api/users и возвращает проверенный список пользователей.
func (c *Client) ListUsers(ctx context.Context, authToken string) ([]state.User, error) {
	const op = "ListUsers"
	resp, err := c.do(ctx, http.MethodGet, "/api/users", authToken, nil)
	if err != nil {
		return nil, wrapError(op, state.ErrorKindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(op, resp, state.ErrorKindRequestFailed)
	}
	var payload []UserDTO
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, wrapError(op, state.ErrorKindRequestFailed, err)
	}
	users := make([]state.User, 0, len(payload))
	for _, dto := range payload {
		user, err := dto.Validate()
		if err != nil {
			return nil, wrapError(op, state.ErrorKindRequestFailed, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateUser вызывает POST /api/users.
func (c *Client) CreateUser(ctx context.Context, authToken, username, password string, role state.Role) error {
	const op = "CreateUser"
	payload := CreateUserRequest{Username: username, Password: password, Role: string(role)}
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/users", authToken, payload)
	if err != nil {
		return wrapError(op, state.ErrorKindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errorFromResponse(op, resp, state.ErrorKindRequestFailed)
	}
	return nil
}

// DeleteUser вызывает DELETE /api/users/{uuid}.
func (c *Client) DeleteUser(ctx context.Context, authToken, uuid string) error {
	const op = "DeleteUser"
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return wrapError(op, state.ErrorKindRequestFailed, errors.New("user uuid is empty"))
	}
	resp, err := c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(uuid), authToken, nil)
	if err != nil {
		return wrapError(op, state.ErrorKindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errorFromResponse(op, resp, state.ErrorKindRequestFailed)
	}
	return nil
}

// Me вызывает GET /api/users/me и возвращает сведения о текущей учётной записи.
func (c *Client) Me(ctx context.Context, authToken string) (MeResult, error) {
	const op = "Me"
	resp, err := c.do(ctx, http.MethodGet, "/api/users/me", authToken, nil)
	if err != nil {
		return MeResult{}, wrapError(op, state.ErrorKindNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return MeResult{}, errorFromResponse(op, resp, state.ErrorKindRequestFailed)
	}
	var body MeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return MeResult{}, wrapError(op, state.ErrorKindRequestFailed, err)
	}
	return body.Validate()
}

func (c *Client) do(ctx context.Context, method, path, authToken string, body io.Reader) (*http.Response, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	full := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, full.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, authToken string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}
	return c.do(ctx, method, path, authToken, body)
}

// errorFromResponse строит Error из не-успешного ответа, извлекая поле
// message из тела, если сервер его прислал.
func errorFromResponse(op string, resp *http.Response, fallback state.ErrorKind) *Error {
	kind := fallback
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = state.ErrorKindAuthFailed
	}
	message := ""
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		var body MessageResponse
		if err := json.Unmarshal(raw, &body); err == nil {
			message = strings.TrimSpace(body.Message)
		}
	}
	return &Error{
		Op:      op,
		Kind:    kind,
		Status:  resp.StatusCode,
		Message: message,
		Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

func wrapError(op string, kind state.ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}
