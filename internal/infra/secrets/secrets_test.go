package secrets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVaultClient_LoadPolicyDocument(t *testing.T) {
	const policy = `{"environment":"prod","systems":[]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/warden/policies/prod" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"data":{"data":{"policy":%s}}}`, policy)
	}))
	defer server.Close()

	client := NewVaultClient(server.URL, "test-token", "secret")
	raw, err := client.LoadPolicyDocument(context.Background(), "prod")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if string(raw) != policy {
		t.Fatalf("unexpected policy payload: %s", raw)
	}

	if _, err := client.LoadPolicyDocument(context.Background(), "staging"); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestVaultClient_MissingPolicyField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"data":{}}}`)
	}))
	defer server.Close()

	client := NewVaultClient(server.URL, "t", "")
	if _, err := client.LoadPolicyDocument(context.Background(), "prod"); err == nil {
		t.Fatalf("expected error for missing policy field")
	}
}

func TestGCPClient_LoadPolicyDocument(t *testing.T) {
	const policy = `{"environment":"prod","systems":[]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gcp-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/v1/projects/proj/secrets/warden-policy-prod/versions/latest:access" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"payload":{"data":"%s"}}`, base64.StdEncoding.EncodeToString([]byte(policy)))
	}))
	defer server.Close()

	client := NewGCPClient(server.URL, "proj", "gcp-token")
	raw, err := client.LoadPolicyDocument(context.Background(), "prod")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if string(raw) != policy {
		t.Fatalf("unexpected policy payload: %s", raw)
	}
}

func TestGCPClient_MissingConfiguration(t *testing.T) {
	client := NewGCPClient("", "", "")
	if _, err := client.LoadPolicyDocument(context.Background(), "prod"); err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
