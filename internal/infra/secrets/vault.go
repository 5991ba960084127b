// Package secrets fetches policy documents from secret stores. Clients
// speak the stores' REST APIs directly; no SDK dependency.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VaultClient reads policy documents from a Vault KV v2 mount.
type VaultClient struct {
	addr       string
	token      string
	mount      string
	httpClient *http.Client
}

func NewVaultClient(addr, token, mount string) *VaultClient {
	if mount == "" {
		mount = "secret"
	}
	return &VaultClient{
		addr:       strings.TrimRight(addr, "/"),
		token:      token,
		mount:      strings.Trim(mount, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// LoadPolicyDocument reads the "policy" field of the KV entry
// <mount>/data/warden/policies/<name>.
func (c *VaultClient) LoadPolicyDocument(ctx context.Context, name string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("vault client is nil")
	}
	if c.addr == "" || c.token == "" {
		return nil, errors.New("vault addr or token missing")
	}
	if name == "" {
		return nil, errors.New("environment name is required")
	}

	url := fmt.Sprintf("%s/v1/%s/data/warden/policies/%s", c.addr, c.mount, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vault read failed: status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			Data struct {
				Policy json.RawMessage `json:"policy"`
			} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data.Data.Policy) == 0 {
		return nil, errors.New("vault response missing policy field")
	}
	return envelope.Data.Data.Policy, nil
}
