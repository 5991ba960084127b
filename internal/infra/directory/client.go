// Package directory talks to the deployment's directory/resource-manager
// service: the system of record for group memberships and role bindings.
// The remote is eventually consistent; freshly created resources can
// briefly answer 404 or 409, so mutating calls retry with a short fixed
// delay.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"warden/internal/domain"
)

const (
	maxAttempts = 5
	retryDelay  = 500 * time.Millisecond
)

type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	retryDelay time.Duration
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryDelay: retryDelay,
	}
}

// Membership is the directory's record of one time-bounded grant.
type Membership struct {
	Principal  string    `json:"principal"`
	Grant      string    `json:"grant"`
	StartTime  time.Time `json:"start_time"`
	ExpireTime time.Time `json:"expire_time"`
}

// UpsertMembership creates or replaces a membership; the remote treats it
// as last-writer-wins on the expiry.
func (c *Client) UpsertMembership(ctx context.Context, membership Membership) error {
	body, err := json.Marshal(membership)
	if err != nil {
		return err
	}
	// A freshly created resource can briefly answer 404 while the remote
	// converges; retry those here, unlike on reads where 404 is an answer.
	resp, err := c.do(ctx, http.MethodPut, "/v1/memberships", body, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		// A racing writer already created the membership; idempotence
		// treats that as success.
		return fmt.Errorf("membership for %s: %w", membership.Principal, domain.ErrAlreadyExists)
	default:
		return statusError(resp)
	}
}

// DeleteMembership removes a membership. Absence is not an error.
func (c *Client) DeleteMembership(ctx context.Context, principal, grant string) error {
	path := fmt.Sprintf("/v1/memberships?principal=%s&grant=%s", principal, grant)
	resp, err := c.do(ctx, http.MethodDelete, path, nil, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError(resp)
	}
}

// GetMembership fetches one membership, nil when the principal never held
// the grant.
func (c *Client) GetMembership(ctx context.Context, principal, grant string) (*Membership, error) {
	path := fmt.Sprintf("/v1/memberships?principal=%s&grant=%s", principal, grant)
	resp, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var membership Membership
	if err := json.NewDecoder(resp.Body).Decode(&membership); err != nil {
		return nil, err
	}
	return &membership, nil
}

// Groups returns the group principals the user belongs to.
func (c *Client) Groups(ctx context.Context, user domain.Principal) ([]domain.Principal, error) {
	path := fmt.Sprintf("/v1/principals/%s/groups", user.Value)
	resp, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var payload struct {
		Groups []string `json:"groups"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	groups := make([]domain.Principal, 0, len(payload.Groups))
	for _, g := range payload.Groups {
		groups = append(groups, domain.Group(g))
	}
	return groups, nil
}

// do issues the request, retrying statuses the eventually consistent
// remote emits transiently. GET requests retry too; their handlers are
// idempotent by nature.
func (c *Client) do(ctx context.Context, method, path string, body []byte, retryNotFound bool) (*http.Response, error) {
	if c.endpoint == "" {
		return nil, errors.New("directory endpoint is not configured")
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if retryable(resp.StatusCode) || (retryNotFound && resp.StatusCode == http.StatusNotFound) {
			lastErr = fmt.Errorf("directory returned status %d", resp.StatusCode)
			resp.Body.Close()
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrIncompleteOperation, lastErr)
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("directory: %w", domain.ErrNotFound)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("directory: %w", domain.ErrAccessDenied)
	default:
		return fmt.Errorf("directory returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}
