package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:8080", "http://localhost:8080"},
		{"with https prefix", "https://localhost:8080", "https://localhost:8080"},
		{"without prefix", "localhost:8080", "http://localhost:8080"},
		{"trailing slash", "http://api.example.com/", "http://api.example.com"},
		{"surrounding space", "  api.example.com ", "http://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHTTPClient(tt.server).BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_URL(t *testing.T) {
	c := NewHTTPClient("http://localhost:8080")

	if got := c.URL("api/products", nil); got != "http://localhost:8080/api/products" {
		t.Errorf("URL() = %q", got)
	}
	q := url.Values{"activeOnly": {"true"}}
	if got := c.URL("/api/products", q); got != "http://localhost:8080/api/products?activeOnly=true" {
		t.Errorf("URL() = %q", got)
	}
}

func TestHTTPClient_Do_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if r.URL.Path != "/api/products/7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "prodadmin-cli/test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Authorization") != "Bearer abc" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "" {
			t.Errorf("Content-Type should be empty without body, got %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"id":7}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, WithUserAgent("prodadmin-cli/test"))
	resp, err := c.Do(context.Background(), Request{
		Path:   "/api/products/7",
		Header: http.Header{"Authorization": {"Bearer abc"}},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !resp.OK() {
		t.Errorf("status = %d", resp.StatusCode)
	}

	var out struct {
		ID int `json:"id"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if out.ID != 7 {
		t.Errorf("ID = %d, want 7", out.ID)
	}
}

func TestHTTPClient_Do_PostJSON(t *testing.T) {
	type body struct {
		Name  string `json:"name"`
		Price int    `json:"price"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		var b body
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if b.Name != "Widget" || b.Price != 3 {
			t.Errorf("body = %+v", b)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(server.URL).Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/products/create",
		Body:   body{Name: "Widget", Price: 3},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if err := resp.Decode(&struct{}{}); err != nil {
		t.Errorf("Decode() of empty body error = %v", err)
	}
}

func TestHTTPClient_Do_NonSuccessIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(server.URL).Do(context.Background(), Request{Path: "/"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.OK() || resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestHTTPClient_Do_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(server.URL).Do(ctx, Request{Path: "/"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want deadline exceeded", err)
	}
}

func TestHTTPClient_Do_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	if _, err := NewHTTPClient(addr).Do(context.Background(), Request{Path: "/"}); err == nil {
		t.Error("Do() should fail for a closed server")
	}
}

func TestHTTPClient_Do_ResponseSizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at limit", MaxResponseSize, false},
		{"over limit", MaxResponseSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(bytes.Repeat([]byte("a"), tt.size))
			}))
			defer server.Close()

			resp, err := NewHTTPClient(server.URL).Do(context.Background(), Request{Path: "/"})
			if tt.wantErr {
				if !errors.Is(err, ErrResponseTooLarge) {
					t.Errorf("Do() error = %v, want ErrResponseTooLarge", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			if len(resp.Body) != tt.size {
				t.Errorf("len(Body) = %d, want %d", len(resp.Body), tt.size)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"backend shape", `{"status":401,"error":"Unauthorized","message":"Invalid username or password"}`, "Invalid username or password"},
		{"no message", `{"status":500}`, ""},
		{"not json", `<html>oops</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
