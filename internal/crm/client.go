// Package crm is the narrow client for the hosted CRM data API. The agent
// core consumes it for generic table reads/writes and for resolving the
// caller's cookie session; everything page-level lives on the other side of
// this boundary.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	logx "github.com/voxcrm/server/pkg/logger"
)

// ErrUnauthenticated is returned when the data API rejects the session cookie.
var ErrUnauthenticated = errors.New("crm: session not authenticated")

// Config holds connection settings for the data API.
type Config struct {
	BaseURL string `envconfig:"CRM_API_URL" required:"true"`
	// ServiceToken authenticates calls against tables that lack per-user
	// ownership columns.
	ServiceToken string        `envconfig:"CRM_SERVICE_TOKEN"`
	Timeout      time.Duration `envconfig:"CRM_API_TIMEOUT" default:"10s"`
}

// Identity describes the authenticated CRM user behind a session cookie.
type Identity struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Language string `json:"language"`
}

// AuthContext bundles the forwarded session cookie with the resolved user.
// Per-user data-API calls carry the cookie so row-level ownership is
// enforced by the API, not re-implemented here.
type AuthContext struct {
	Cookie string
	User   Identity
}

// Filter narrows a table read; semantics are the data API's own.
type Filter map[string]any

// Payload is the body of a create/update.
type Payload map[string]any

// Record is one row as returned by the data API.
type Record map[string]any

// DataAPI is the surface tools execute against.
type DataAPI interface {
	Read(ctx context.Context, auth *AuthContext, table string, filter Filter, limit int) ([]Record, error)
	Create(ctx context.Context, auth *AuthContext, table string, payload Payload) (Record, error)
	Update(ctx context.Context, auth *AuthContext, table string, id string, payload Payload) (Record, error)
	Delete(ctx context.Context, auth *AuthContext, table string, id string) error
}

// SessionResolver validates a session cookie and returns the owning user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, cookie string) (*Identity, error)
}

// Client implements DataAPI and SessionResolver over HTTP.
type Client struct {
	baseURL      string
	serviceToken string
	http         *http.Client
}

// New builds a data API client from config.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		serviceToken: cfg.ServiceToken,
		http:         &http.Client{Timeout: timeout},
	}
}

// SessionCookieName is the cookie the CRM front end sets after login.
const SessionCookieName = "voxcrm_session"

func (c *Client) ResolveSession(ctx context.Context, cookie string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/session", nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve session: unexpected status %d", resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("resolve session: decode: %w", err)
	}
	return &id, nil
}

func (c *Client) Read(ctx context.Context, auth *AuthContext, table string, filter Filter, limit int) ([]Record, error) {
	body := map[string]any{"filter": filter}
	if limit > 0 {
		body["limit"] = limit
	}
	var rows []Record
	if err := c.do(ctx, auth, http.MethodPost, "/api/data/"+table+"/query", body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Create(ctx context.Context, auth *AuthContext, table string, payload Payload) (Record, error) {
	var row Record
	if err := c.do(ctx, auth, http.MethodPost, "/api/data/"+table, payload, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func (c *Client) Update(ctx context.Context, auth *AuthContext, table string, id string, payload Payload) (Record, error) {
	var row Record
	if err := c.do(ctx, auth, http.MethodPatch, "/api/data/"+table+"/"+id, payload, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func (c *Client) Delete(ctx context.Context, auth *AuthContext, table string, id string) error {
	return c.do(ctx, auth, http.MethodDelete, "/api/data/"+table+"/"+id, nil, nil)
}

// do performs one JSON request. The session cookie is forwarded when the
// caller has one; otherwise the service credential is used.
func (c *Client) do(ctx context.Context, auth *AuthContext, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("crm request encode: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth != nil && auth.Cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: auth.Cookie})
	} else if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logx.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("crm data API call failed")
		return fmt.Errorf("crm %s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm %s %s: decode: %w", method, path, err)
	}
	return nil
}

var (
	_ DataAPI         = (*Client)(nil)
	_ SessionResolver = (*Client)(nil)
)
