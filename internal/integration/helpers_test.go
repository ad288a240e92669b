//go:build integration

// Package integration exercises a running HealthyLife API over HTTP. Tests
// skip when the API is not reachable.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var client = &http.Client{Timeout: 10 * time.Second}

func baseURL() string {
	if v := os.Getenv("HEALTHYLIFE_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8080"
}

// seededRecipeID is the legacy id of a recipe loaded with cmd/seed.
func seededRecipeID() string {
	if v := os.Getenv("HEALTHYLIFE_RECIPE_ID"); v != "" {
		return v
	}
	return "1"
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.example.com", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

func skipIfNotRunning(t *testing.T) {
	t.Helper()
	resp, err := (&http.Client{Timeout: 2 * time.Second}).Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("api at %s not reachable: %v", baseURL(), err)
	}
	resp.Body.Close()
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call sends a JSON request and decodes the response envelope.
func call(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, baseURL()+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&env)
	}
	return resp.StatusCode, env
}

// post sends a JSON POST and returns only the status. It is safe to call
// from goroutines other than the test's own.
func post(path, token string, body any) (int, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL()+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// register creates a fresh user and returns its access token.
func register(t *testing.T, prefix string) string {
	t.Helper()
	status, env := call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    uniqueEmail(prefix),
		"password": "TestPass123!",
	})
	require.Equal(t, http.StatusCreated, status)
	res := decode[struct {
		AccessToken string `json:"access_token"`
	}](t, env)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

// requireSeededRecipe skips when the seeded recipe is missing.
func requireSeededRecipe(t *testing.T) string {
	t.Helper()
	id := seededRecipeID()
	status, _ := call(t, http.MethodGet, "/api/v1/recipes/"+id, "", nil)
	if status == http.StatusNotFound {
		t.Skipf("recipe %s not seeded; run cmd/seed first", id)
	}
	require.Equal(t, http.StatusOK, status)
	return id
}
