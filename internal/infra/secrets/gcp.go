package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GCPClient reads policy documents from GCP Secret Manager, one secret
// per environment named "warden-policy-<environment>".
type GCPClient struct {
	endpoint   string
	projectID  string
	token      string
	httpClient *http.Client
}

func NewGCPClient(endpoint, projectID, token string) *GCPClient {
	if endpoint == "" {
		endpoint = "https://secretmanager.googleapis.com"
	}
	return &GCPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		projectID:  projectID,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *GCPClient) LoadPolicyDocument(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("environment name is required")
	}
	return c.accessSecret(ctx, "warden-policy-"+name)
}

func (c *GCPClient) accessSecret(ctx context.Context, secretID string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("gcp client is nil")
	}
	if c.projectID == "" || c.token == "" {
		return nil, errors.New("gcp client missing configuration")
	}

	url := fmt.Sprintf("%s/v1/projects/%s/secrets/%s/versions/latest:access", c.endpoint, c.projectID, secretID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

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
		return nil, fmt.Errorf("secret access failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Payload struct {
			Data string `json:"data"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Payload.Data == "" {
		return nil, errors.New("secret payload missing")
	}
	return base64.StdEncoding.DecodeString(payload.Payload.Data)
}
