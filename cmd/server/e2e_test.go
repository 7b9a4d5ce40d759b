package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wadjakorntonsri/shortlink-engine/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/app"
	"github.com/wadjakorntonsri/shortlink-engine/pkg/config"
)

const e2eSecret = "e2e-secret"

func newTestServer(t *testing.T, dbName string, maxRequests int) (*httptest.Server, *app.App) {
	t.Helper()
	cfg := &config.Config{
		DatabaseURL:          "file:" + dbName + "?mode=memory&cache=shared",
		BaseURL:              "http://sho.rt",
		JWTSecret:            e2eSecret,
		JWTExpiration:        time.Hour,
		ShortCodeLength:      7,
		MaxURLLength:         2048,
		RateLimitStrategy:    "fixed",
		RateLimitMaxRequests: maxRequests,
		RateLimitWindow:      time.Minute,
		ClickQueueSize:       16,
		ClickWorkers:         1,
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to init app: %v", err)
	}
	server := httptest.NewServer(a.Handler)
	t.Cleanup(func() {
		server.Close()
		a.Close()
	})

	// Don't follow redirects so the 302 can be checked.
	server.Client().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return server, a
}

type linkBody struct {
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url"`
	Clicks      int64  `json:"clicks"`
}

func do(t *testing.T, client *http.Client, method, url, token string, payload interface{}) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIntegration(t *testing.T) {
	server, a := newTestServer(t, "e2e_flow", 1000)
	client := server.Client()

	// TEST 1: Create Link
	resp := do(t, client, "POST", server.URL+"/api/v1/links", "", map[string]string{"url": "https://example.com/page"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var created linkBody
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if len(created.ShortCode) != 7 {
		t.Errorf("Expected a 7 character code, got %q", created.ShortCode)
	}
	if created.ShortURL != "http://sho.rt/"+created.ShortCode {
		t.Errorf("short_url = %q", created.ShortURL)
	}

	// TEST 2: Redirect
	resp = do(t, client, "GET", server.URL+"/"+created.ShortCode, "", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Redirect expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/page" {
		t.Errorf("Redirect location mismatch: %s", loc)
	}

	// TEST 3: Click is recorded asynchronously
	var info linkBody
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp = do(t, client, "GET", server.URL+"/api/v1/links/"+created.ShortCode, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Info expected 200, got %d", resp.StatusCode)
		}
		_ = json.NewDecoder(resp.Body).Decode(&info)
		if info.Clicks == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if info.Clicks != 1 {
		t.Errorf("Expected 1 click, got %d", info.Clicks)
	}

	// TEST 4: Unknown code
	resp = do(t, client, "GET", server.URL+"/nope123", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	// TEST 5: Custom code conflict
	if resp = do(t, client, "POST", server.URL+"/api/v1/links", "", map[string]string{"url": "https://a.example", "custom_code": "promo"}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("custom code create: %d", resp.StatusCode)
	}
	resp = do(t, client, "POST", server.URL+"/api/v1/links", "", map[string]string{"url": "https://b.example", "custom_code": "promo"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}

	// TEST 6: Invalid URL
	resp = do(t, client, "POST", server.URL+"/api/v1/links", "", map[string]string{"url": "ftp://example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}

	// TEST 7: Export (Dump)
	links, err := a.Repo.Dump(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Errorf("Expected 2 links in dump, got %d", len(links))
	}
}

func TestOwnedLinkDeletion(t *testing.T) {
	server, _ := newTestServer(t, "e2e_owner", 1000)
	client := server.Client()

	alice, _, err := handler.IssueToken([]byte(e2eSecret), "alice@example.com", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	bob, _, err := handler.IssueToken([]byte(e2eSecret), "bob@example.com", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	resp := do(t, client, "POST", server.URL+"/api/v1/links", alice, map[string]string{"url": "https://example.com/private"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d", resp.StatusCode)
	}
	var created linkBody
	_ = json.NewDecoder(resp.Body).Decode(&created)
	linkURL := server.URL + "/api/v1/links/" + created.ShortCode

	resp = do(t, client, "GET", server.URL+"/api/v1/me/links", alice, nil)
	var mine struct {
		Total int64 `json:"total"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&mine)
	if resp.StatusCode != http.StatusOK || mine.Total != 1 {
		t.Errorf("my links: %d total=%d", resp.StatusCode, mine.Total)
	}

	if resp = do(t, client, "DELETE", linkURL, bob, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("other user delete: expected 403, got %d", resp.StatusCode)
	}
	if resp = do(t, client, "DELETE", linkURL, "", nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("anonymous delete: expected 403, got %d", resp.StatusCode)
	}
	if resp = do(t, client, "DELETE", linkURL, alice, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("owner delete: expected 204, got %d", resp.StatusCode)
	}
	if resp = do(t, client, "GET", server.URL+"/"+created.ShortCode, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted link redirect: expected 404, got %d", resp.StatusCode)
	}
}

func TestAPIRateLimit(t *testing.T) {
	server, _ := newTestServer(t, "e2e_limit", 3)
	client := server.Client()

	for i := 1; i <= 3; i++ {
		if resp := do(t, client, "GET", server.URL+"/api/v1/stats", "", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}

	resp := do(t, client, "GET", server.URL+"/api/v1/stats", "", nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	var body handler.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body.Error, "rate_limited") {
		t.Errorf("error body = %+v", body)
	}

	// Another API key has its own budget.
	req, _ := http.NewRequest("GET", server.URL+"/api/v1/stats", nil)
	req.Header.Set("X-API-Key", "other")
	other, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Body.Close()
	if other.StatusCode != http.StatusOK {
		t.Errorf("other key: expected 200, got %d", other.StatusCode)
	}
}
